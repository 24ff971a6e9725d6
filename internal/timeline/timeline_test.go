package timeline

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseTwoLines(t *testing.T) {
	tl := Parse("[00:01] Hi there\n[00:05] Bye now")

	want := []Segment{
		{StartTime: 1, TimeLabel: "00:01", Text: "Hi there", OriginalText: "[00:01] Hi there"},
		{StartTime: 5, TimeLabel: "00:05", Text: "Bye now", OriginalText: "[00:05] Bye now"},
	}
	if got := tl.Segments(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Segments() = %#v\nwant %#v", got, want)
	}
	if !tl.Monotonic() {
		t.Error("expected monotonic timeline")
	}
}

func TestParseDropsPreamble(t *testing.T) {
	tl := Parse("Sure! Here is the translation:\n[00:03] Only line")
	if tl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tl.Len())
	}
	seg, _ := tl.At(0)
	if seg.Text != "Only line" || seg.StartTime != 3 {
		t.Errorf("unexpected segment %#v", seg)
	}
}

func TestParseEmpty(t *testing.T) {
	tl := Parse("")
	if tl.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", tl.Len())
	}
	if got := tl.Segments(); got == nil || len(got) != 0 {
		t.Errorf("Segments() = %#v, want empty non-nil slice", got)
	}
}

func TestParseKeepsSourceOrder(t *testing.T) {
	tl := Parse("[00:10] ten\n[00:02] two\n[00:05] five")
	var got []float64
	for _, s := range tl.Segments() {
		got = append(got, s.StartTime)
	}
	if want := []float64{10, 2, 5}; !reflect.DeepEqual(got, want) {
		t.Errorf("start times = %v, want %v", got, want)
	}
	if tl.Monotonic() {
		t.Error("expected non-monotonic timeline")
	}
}

func TestParseCRLF(t *testing.T) {
	tl := Parse("[00:01] Hello\r\n[00:02] World\r\n")
	if tl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tl.Len())
	}
	seg, _ := tl.At(0)
	if seg.Text != "Hello" {
		t.Errorf("Text = %q, want %q", seg.Text, "Hello")
	}
	if seg.OriginalText != "[00:01] Hello\r" {
		t.Errorf("OriginalText = %q", seg.OriginalText)
	}
}

func TestSegmentCountBoundedByLines(t *testing.T) {
	blobs := []string{
		"",
		"\n\n\n",
		"[00:01] a",
		"[00:01] a\n[00:02] b\nnoise\n[00:03] c",
		"[00:01]\n[00:01]\n[00:01]",
		"intro\n[0:01] bad\n[00:01] good\n",
	}
	for _, blob := range blobs {
		lines := len(strings.Split(blob, "\n"))
		if n := Parse(blob).Len(); n > lines {
			t.Errorf("Parse(%q).Len() = %d > %d lines", blob, n, lines)
		}
	}
}

func TestReparseOriginalTextIsIdempotent(t *testing.T) {
	blobs := []string{
		"[00:01] Hi there\n[00:05] Bye now",
		"preamble\n[00:10]   padded   \n\n[00:02] back in time\ntrailer",
		"[99:99] odd\n[00:00] zero",
	}
	for _, blob := range blobs {
		first := Parse(blob)
		second := Parse(first.Lines())
		if !reflect.DeepEqual(first.Segments(), second.Segments()) {
			t.Errorf("reparse of %q differs:\n%#v\n%#v", blob, first.Segments(), second.Segments())
		}
	}
}

func TestNewCopiesInput(t *testing.T) {
	segs := []Segment{{StartTime: 1, Text: "a"}}
	tl := New(segs)
	segs[0].Text = "changed"

	got, _ := tl.At(0)
	if got.Text != "a" {
		t.Errorf("timeline observed caller mutation: %q", got.Text)
	}

	out := tl.Segments()
	out[0].Text = "also changed"
	got, _ = tl.At(0)
	if got.Text != "a" {
		t.Errorf("timeline observed mutation of Segments() result: %q", got.Text)
	}
}

func TestNilTimeline(t *testing.T) {
	var tl *Timeline
	if tl.Len() != 0 {
		t.Error("nil timeline should be empty")
	}
	if _, ok := tl.ActiveIndex(3); ok {
		t.Error("nil timeline should have no active segment")
	}
	if doc, err := tl.Export(FormatSRT); err != nil || doc != "" {
		t.Errorf("Export() = %q, %v", doc, err)
	}
}
