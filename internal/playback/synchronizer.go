package playback

import (
	"errors"
	"fmt"

	"github.com/lazvid/backend/internal/timeline"
)

const (
	// SkipStep is how far the arrow keys seek, in seconds.
	SkipStep = 5.0
	// VolumeStep is how much the arrow keys change the volume.
	VolumeStep = 0.1
)

var (
	ErrNoSuchSegment   = errors.New("no such segment")
	ErrUnsupportedRate = errors.New("unsupported playback rate")
)

// ActiveChange is called when the active segment changes. idx is -1 when
// no segment is active.
type ActiveChange func(idx int, seg timeline.Segment)

// Synchronizer resolves the active segment from clock samples and forwards
// navigation to a MediaElement. It is not safe for concurrent use; callers
// serialize access (one call per clock tick or user action).
type Synchronizer struct {
	media    MediaElement
	timeline *timeline.Timeline
	onChange ActiveChange

	clock     float64
	active    int
	hasActive bool
}

// NewSynchronizer creates a synchronizer with an empty timeline.
func NewSynchronizer(media MediaElement) *Synchronizer {
	return &Synchronizer{media: media, active: -1}
}

// OnActiveChange registers fn to be called whenever the active segment
// changes.
func (s *Synchronizer) OnActiveChange(fn ActiveChange) {
	s.onChange = fn
}

// SetTimeline replaces the timeline and re-resolves the last clock sample
// against it. A nil timeline clears the transcript. The change callback
// always fires.
func (s *Synchronizer) SetTimeline(tl *timeline.Timeline) {
	s.timeline = tl
	s.resolve(true)
}

// Timeline returns the current timeline snapshot.
func (s *Synchronizer) Timeline() *timeline.Timeline {
	return s.timeline
}

// OnTimeUpdate records a clock sample and recomputes the active segment.
func (s *Synchronizer) OnTimeUpdate(currentTime float64) {
	s.clock = currentTime
	s.resolve(false)
}

// Clock returns the most recent clock sample.
func (s *Synchronizer) Clock() float64 {
	return s.clock
}

// Active returns the active segment, if any.
func (s *Synchronizer) Active() (int, timeline.Segment, bool) {
	if !s.hasActive {
		return -1, timeline.Segment{}, false
	}
	seg, _ := s.timeline.At(s.active)
	return s.active, seg, true
}

// resolve recomputes the active segment. The callback fires on change, or
// always when force is set since a new timeline invalidates the old one.
func (s *Synchronizer) resolve(force bool) {
	idx, ok := s.timeline.ActiveIndex(s.clock)
	if !force && ok == s.hasActive && idx == s.active {
		return
	}
	s.active, s.hasActive = idx, ok
	if s.onChange != nil {
		seg, _ := s.timeline.At(idx)
		s.onChange(idx, seg)
	}
}

// SeekToSegment jumps to the segment's start and resumes playback if the
// element is paused. Clicking a line means "play from here".
func (s *Synchronizer) SeekToSegment(seg timeline.Segment) {
	s.media.SetCurrentTime(seg.StartTime)
	if s.media.Paused() {
		_ = s.media.Play()
	}
}

// SeekToIndex seeks to the i-th segment of the current timeline.
func (s *Synchronizer) SeekToIndex(i int) error {
	seg, ok := s.timeline.At(i)
	if !ok {
		return fmt.Errorf("%w: index %d of %d", ErrNoSuchSegment, i, s.timeline.Len())
	}
	s.SeekToSegment(seg)
	return nil
}

// Skip seeks relative to the element's current time. The result is not
// clamped; the element decides what an out-of-range position means.
func (s *Synchronizer) Skip(delta float64) {
	s.media.SetCurrentTime(s.media.CurrentTime() + delta)
}

// TogglePlay plays a paused element and pauses a playing one.
func (s *Synchronizer) TogglePlay() {
	if s.media.Paused() {
		_ = s.media.Play()
		return
	}
	s.media.Pause()
}

// AdjustVolume changes the volume by delta, clamped to [0,1], and mutes
// when the result is exactly zero.
func (s *Synchronizer) AdjustVolume(delta float64) {
	s.SetVolume(s.media.Volume() + delta)
}

// SetVolume sets an absolute volume, clamped to [0,1]. Zero mutes; any
// other value unmutes.
func (s *Synchronizer) SetVolume(v float64) {
	v = min(1, max(0, v))
	s.media.SetVolume(v)
	s.media.SetMuted(v == 0)
}

// ToggleMute flips the muted flag without touching the volume.
func (s *Synchronizer) ToggleMute() {
	s.media.SetMuted(!s.media.Muted())
}

// SetPlaybackRate changes the speed to one of PlaybackRates.
func (s *Synchronizer) SetPlaybackRate(rate float64) error {
	if !ValidRate(rate) {
		return fmt.Errorf("%w: %v", ErrUnsupportedRate, rate)
	}
	s.media.SetPlaybackRate(rate)
	return nil
}

// RequestFullscreen asks the element to go fullscreen. Failures, such as
// an audio-only element, are ignored.
func (s *Synchronizer) RequestFullscreen() {
	_ = s.media.RequestFullscreen()
}
