package session

import (
	"github.com/lazvid/backend/internal/playback"
	"github.com/lazvid/backend/internal/timeline"
)

// PlaybackState is what the client polls: the mirrored element, the active
// segment and the commands it still has to apply.
type PlaybackState struct {
	playback.State
	ActiveIndex int                `json:"active_index"` // -1 when none
	Active      *timeline.Segment  `json:"active,omitempty"`
	ActiveSeq   uint64             `json:"active_seq"` // bumps on every highlight change
	Commands    []playback.Command `json:"commands,omitempty"`
}

func (s *Session) playbackState() PlaybackState {
	st := PlaybackState{
		State:       s.element.State(),
		ActiveIndex: -1,
		ActiveSeq:   s.activeSeq,
	}
	if idx, seg, ok := s.syncer.Active(); ok {
		st.ActiveIndex = idx
		st.Active = &seg
	}
	return st
}

// Playback runs fn against the session's synchronizer. After fn the active
// segment is re-resolved from the mirrored clock so seeks show up at once.
func (s *Session) Playback(fn func(*playback.Synchronizer) error) (PlaybackState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.syncer)
	s.syncer.OnTimeUpdate(s.element.CurrentTime())
	return s.playbackState(), err
}

// Observe applies a client media event. Time updates drive the active
// segment.
func (s *Session) Observe(ev playback.Event) (PlaybackState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.element.Observe(ev); err != nil {
		return s.playbackState(), err
	}
	if ev.CurrentTime != nil {
		s.syncer.OnTimeUpdate(s.element.CurrentTime())
	}
	return s.playbackState(), nil
}

// Poll returns the playback state and hands over queued commands.
func (s *Session) Poll() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.playbackState()
	st.Commands = s.element.Drain()
	return st
}
