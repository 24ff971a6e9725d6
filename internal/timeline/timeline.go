// Package timeline turns a timestamped transcript blob into an ordered
// segment model, resolves the active segment for a playback position and
// renders the model as SRT or WebVTT.
//
// A Timeline is an immutable snapshot. Consumers never modify it; a new
// transcript produces a new Timeline that replaces the old reference.
package timeline

import (
	"sort"
	"strings"
)

// Segment is one timestamped transcript line.
type Segment struct {
	StartTime    float64 `json:"start_time"` // seconds from media start
	TimeLabel    string  `json:"time_label"` // "MM:SS" as it appeared in the source
	Text         string  `json:"text"`
	OriginalText string  `json:"original_text"`
}

// Timeline is the ordered sequence of segments parsed from one raw blob.
// Source order is preserved; start times are not required to increase.
type Timeline struct {
	segments  []Segment
	monotonic bool
}

// Parse splits raw on newlines and keeps every line that carries a
// timestamp label. Lines without one (preambles, commentary, blanks) are
// dropped. Empty input yields an empty timeline.
func Parse(raw string) *Timeline {
	if raw == "" {
		return New(nil)
	}
	var segs []Segment
	for _, line := range strings.Split(raw, "\n") {
		ts, ok := ParseLine(line)
		if !ok {
			continue
		}
		segs = append(segs, Segment{
			StartTime:    ts.Offset(),
			TimeLabel:    ts.Label,
			Text:         strings.TrimSpace(ts.Trailing),
			OriginalText: line,
		})
	}
	return New(segs)
}

// New builds a Timeline from segments in the given order. The slice is
// copied so later changes by the caller do not leak in.
func New(segs []Segment) *Timeline {
	cp := make([]Segment, len(segs))
	copy(cp, segs)
	return &Timeline{
		segments:  cp,
		monotonic: sort.SliceIsSorted(cp, func(i, j int) bool { return cp[i].StartTime < cp[j].StartTime }),
	}
}

// Len returns the number of segments. A nil Timeline is empty.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.segments)
}

// Segments returns a copy of the segment sequence.
func (t *Timeline) Segments() []Segment {
	if t == nil {
		return []Segment{}
	}
	cp := make([]Segment, len(t.segments))
	copy(cp, t.segments)
	return cp
}

// At returns the segment at index i.
func (t *Timeline) At(i int) (Segment, bool) {
	if i < 0 || i >= t.Len() {
		return Segment{}, false
	}
	return t.segments[i], true
}

// Monotonic reports whether start times never decrease in source order.
func (t *Timeline) Monotonic() bool {
	if t == nil {
		return true
	}
	return t.monotonic
}

// Lines returns the original source lines of every segment joined by
// newlines. Parsing the result yields an equal timeline.
func (t *Timeline) Lines() string {
	if t.Len() == 0 {
		return ""
	}
	lines := make([]string, len(t.segments))
	for i, s := range t.segments {
		lines[i] = s.OriginalText
	}
	return strings.Join(lines, "\n")
}
