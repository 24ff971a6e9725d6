package timeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultLastDuration is how long the final segment lasts in an export,
// since no following start time bounds it.
const DefaultLastDuration = 5.0

// ErrUnknownFormat is returned for a subtitle format other than srt or vtt.
var ErrUnknownFormat = errors.New("unknown subtitle format")

// Format is a subtitle interchange format.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// ParseFormat accepts "srt", "vtt", ".SRT" and similar spellings.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case FormatSRT:
		return FormatSRT, nil
	case FormatVTT:
		return FormatVTT, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type used when serving the document.
func (f Format) ContentType() string {
	if f == FormatVTT {
		return "text/vtt; charset=utf-8"
	}
	return "application/x-subrip; charset=utf-8"
}

// Filename is the download name for an exported transcript.
func (f Format) Filename() string {
	return "transcript" + f.Extension()
}

func (f Format) msSeparator() string {
	if f == FormatVTT {
		return "."
	}
	return ","
}

// EndTimes infers when each segment stops: at the next segment's start,
// or DefaultLastDuration after its own start for the last one.
func (t *Timeline) EndTimes() []float64 {
	n := t.Len()
	ends := make([]float64, n)
	for i := 0; i < n; i++ {
		if i+1 < n {
			ends[i] = t.segments[i+1].StartTime
		} else {
			ends[i] = t.segments[i].StartTime + DefaultLastDuration
		}
	}
	return ends
}

// Export renders the timeline as an SRT or WebVTT document. An empty
// timeline renders as the empty string; callers treat that as nothing to
// export. The output depends only on the segments and the format.
func (t *Timeline) Export(f Format) (string, error) {
	if f != FormatSRT && f != FormatVTT {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
	if t.Len() == 0 {
		return "", nil
	}

	var sb strings.Builder
	if f == FormatVTT {
		sb.WriteString("WEBVTT\n\n")
	}
	ends := t.EndTimes()
	for i, seg := range t.segments {
		if f == FormatSRT {
			sb.WriteString(strconv.Itoa(i + 1))
			sb.WriteString("\n")
		}
		sb.WriteString(FormatTimestamp(seg.StartTime, f))
		sb.WriteString(" --> ")
		sb.WriteString(FormatTimestamp(ends[i], f))
		sb.WriteString("\n")
		sb.WriteString(seg.Text)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

// epoch anchors timestamp formatting; offsets of a day or more wrap around
// the clock the same way a calendar time of day does.
var epoch = time.Unix(0, 0).UTC()

// FormatTimestamp renders seconds as HH:MM:SS,mmm (SRT) or HH:MM:SS.mmm (VTT).
func FormatTimestamp(seconds float64, f Format) string {
	ms := time.Duration(math.Round(seconds*1000)) * time.Millisecond
	at := epoch.Add(ms)
	return fmt.Sprintf("%s%s%03d", at.Format("15:04:05"), f.msSeparator(), at.Nanosecond()/int(time.Millisecond))
}
