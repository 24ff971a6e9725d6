package timeline

import "testing"

func TestParseLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantOK    bool
		wantMin   int
		wantSec   int
		wantLabel string
		wantTrail string
		wantOff   float64
	}{
		{
			name:      "simple",
			line:      "[00:01] Hi there",
			wantOK:    true,
			wantMin:   0,
			wantSec:   1,
			wantLabel: "00:01",
			wantTrail: " Hi there",
			wantOff:   1,
		},
		{
			name:      "out of range components are kept",
			line:      "[99:99]x",
			wantOK:    true,
			wantMin:   99,
			wantSec:   99,
			wantLabel: "99:99",
			wantTrail: "x",
			wantOff:   6039,
		},
		{
			name:      "empty trailing text",
			line:      "[12:30]",
			wantOK:    true,
			wantMin:   12,
			wantSec:   30,
			wantLabel: "12:30",
			wantTrail: "",
			wantOff:   750,
		},
		{name: "blank line", line: ""},
		{name: "prose", line: "Here is your transcript:"},
		{name: "single digit minutes", line: "[1:05] nope"},
		{name: "three digit minutes", line: "[100:05] nope"},
		{name: "hours form", line: "[01:02:03] nope"},
		{name: "label not at start", line: "  [00:01] indented"},
		{name: "missing bracket", line: "00:01 nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, ok := ParseLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ParseLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if ts.Minutes != tt.wantMin || ts.Seconds != tt.wantSec {
				t.Errorf("got %d:%d, want %d:%d", ts.Minutes, ts.Seconds, tt.wantMin, tt.wantSec)
			}
			if ts.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", ts.Label, tt.wantLabel)
			}
			if ts.Trailing != tt.wantTrail {
				t.Errorf("Trailing = %q, want %q", ts.Trailing, tt.wantTrail)
			}
			if ts.Offset() != tt.wantOff {
				t.Errorf("Offset() = %v, want %v", ts.Offset(), tt.wantOff)
			}
		})
	}
}
