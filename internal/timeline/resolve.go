package timeline

import (
	"math"
	"sort"
)

// ActiveIndex returns the index of the segment active at offset at: the
// first i with at >= S[i].StartTime and either i is last or
// at < S[i+1].StartTime. The half-open intervals partition the axis from
// the first start onwards, so the answer is unique.
//
// ok is false when the timeline is empty, at is NaN, or at precedes every
// segment.
func (t *Timeline) ActiveIndex(at float64) (idx int, ok bool) {
	n := t.Len()
	if n == 0 || math.IsNaN(at) {
		return -1, false
	}
	if t.monotonic {
		// largest i with StartTime <= at
		i := sort.Search(n, func(i int) bool { return t.segments[i].StartTime > at }) - 1
		if i < 0 {
			return -1, false
		}
		return i, true
	}
	for i, s := range t.segments {
		if at < s.StartTime {
			continue
		}
		if i == n-1 || at < t.segments[i+1].StartTime {
			return i, true
		}
	}
	return -1, false
}

// Active returns the segment active at offset at.
func (t *Timeline) Active(at float64) (Segment, bool) {
	i, ok := t.ActiveIndex(at)
	if !ok {
		return Segment{}, false
	}
	return t.segments[i], true
}
