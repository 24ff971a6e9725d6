package timeline

import (
	"regexp"
	"strconv"
)

// lineRe matches a "[MM:SS]" label at the start of a line. Both groups are
// exactly two digits; the rest of the line is captured untouched.
var lineRe = regexp.MustCompile(`^\[(\d{2}):(\d{2})\](.*)`)

// Timestamp is the result of parsing one transcript line.
type Timestamp struct {
	Minutes  int
	Seconds  int
	Label    string // "MM:SS" as captured
	Trailing string // everything after "]", not trimmed
}

// Offset returns minutes*60 + seconds. Components are not range checked,
// so "99:99" yields 6039.
func (ts Timestamp) Offset() float64 {
	return float64(ts.Minutes*60 + ts.Seconds)
}

// ParseLine reports whether line starts with a timestamp label.
// A line without one is not an error; ok is simply false.
func ParseLine(line string) (ts Timestamp, ok bool) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return Timestamp{}, false
	}
	// two ASCII digits always fit an int
	mm, _ := strconv.Atoi(m[1])
	ss, _ := strconv.Atoi(m[2])
	return Timestamp{
		Minutes:  mm,
		Seconds:  ss,
		Label:    m[1] + ":" + m[2],
		Trailing: m[3],
	}, true
}
