package playback

import (
	"errors"
	"fmt"
	"math"
)

// maxPendingCommands bounds the command queue of a client that stops
// draining it; the oldest commands are dropped first.
const maxPendingCommands = 64

var (
	ErrUnknownEvent          = errors.New("unknown media event")
	ErrFullscreenUnsupported = errors.New("fullscreen not supported for audio")
)

// CommandType names an instruction for the client-side player.
type CommandType string

const (
	CmdSeek       CommandType = "seek"
	CmdPlay       CommandType = "play"
	CmdPause      CommandType = "pause"
	CmdVolume     CommandType = "volume"
	CmdMuted      CommandType = "muted"
	CmdRate       CommandType = "rate"
	CmdFullscreen CommandType = "fullscreen"
)

// Command is one instruction queued for the client to apply to its
// <video>/<audio> element.
type Command struct {
	Type  CommandType `json:"type"`
	Value *float64    `json:"value,omitempty"`
	Muted *bool       `json:"muted,omitempty"`
}

// EventType names a notification sent by the client-side player.
type EventType string

const (
	EventTimeUpdate     EventType = "timeupdate"
	EventPlay           EventType = "play"
	EventPause          EventType = "pause"
	EventVolumeChange   EventType = "volumechange"
	EventDurationChange EventType = "durationchange"
	EventRateChange     EventType = "ratechange"
)

// Event is a notification from the client-side player. Only the fields
// relevant to Type are read.
type Event struct {
	Type         EventType `json:"type"`
	CurrentTime  *float64  `json:"current_time,omitempty"`
	Duration     *float64  `json:"duration,omitempty"`
	Volume       *float64  `json:"volume,omitempty"`
	Muted        *bool     `json:"muted,omitempty"`
	PlaybackRate *float64  `json:"playback_rate,omitempty"`
}

// State is a JSON-friendly snapshot of a RemoteElement.
type State struct {
	CurrentTime  float64  `json:"current_time"`
	Duration     *float64 `json:"duration"` // null until known
	Paused       bool     `json:"paused"`
	Volume       float64  `json:"volume"`
	Muted        bool     `json:"muted"`
	PlaybackRate float64  `json:"playback_rate"`
	Audio        bool     `json:"audio"`
}

// RemoteElement mirrors a media element that lives in the user's browser.
// Commands from the Synchronizer update the mirror and are queued for the
// client; events from the client update the mirror without queueing
// anything. Like the Synchronizer it is not safe for concurrent use.
type RemoteElement struct {
	currentTime float64
	duration    float64
	paused      bool
	volume      float64
	muted       bool
	rate        float64
	audio       bool

	pending []Command
}

// NewRemoteElement returns a paused element at time zero with full volume
// and an unknown duration.
func NewRemoteElement() *RemoteElement {
	return &RemoteElement{
		duration: math.NaN(),
		paused:   true,
		volume:   1,
		rate:     1,
	}
}

// Load resets the clock for a newly loaded file. Volume and mute carry
// over; queued commands for the previous file are discarded.
func (e *RemoteElement) Load(audio bool) {
	e.currentTime = 0
	e.duration = math.NaN()
	e.paused = true
	e.rate = 1
	e.audio = audio
	e.pending = nil
}

// Observe applies a client event to the mirror.
func (e *RemoteElement) Observe(ev Event) error {
	switch ev.Type {
	case EventTimeUpdate:
		if ev.CurrentTime != nil {
			e.currentTime = *ev.CurrentTime
		}
		// some browsers only report a usable duration once playing
		if ev.Duration != nil {
			e.observeDuration(*ev.Duration)
		}
	case EventPlay:
		e.paused = false
	case EventPause:
		e.paused = true
	case EventVolumeChange:
		if ev.Volume != nil {
			e.volume = *ev.Volume
		}
		if ev.Muted != nil {
			e.muted = *ev.Muted
		}
	case EventDurationChange:
		if ev.Duration != nil {
			e.observeDuration(*ev.Duration)
		}
	case EventRateChange:
		if ev.PlaybackRate != nil {
			e.rate = *ev.PlaybackRate
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	return nil
}

func (e *RemoteElement) observeDuration(d float64) {
	if !math.IsNaN(d) && !math.IsInf(d, 0) && d > 0 {
		e.duration = d
	}
}

// Drain returns and clears the queued commands.
func (e *RemoteElement) Drain() []Command {
	cmds := e.pending
	e.pending = nil
	if cmds == nil {
		cmds = []Command{}
	}
	return cmds
}

// Pending returns the number of queued commands.
func (e *RemoteElement) Pending() int {
	return len(e.pending)
}

// State returns a snapshot of the mirror.
func (e *RemoteElement) State() State {
	st := State{
		CurrentTime:  e.currentTime,
		Paused:       e.paused,
		Volume:       e.volume,
		Muted:        e.muted,
		PlaybackRate: e.rate,
		Audio:        e.audio,
	}
	if !math.IsNaN(e.duration) {
		d := e.duration
		st.Duration = &d
	}
	return st
}

func (e *RemoteElement) push(c Command) {
	if len(e.pending) >= maxPendingCommands {
		e.pending = e.pending[1:]
	}
	e.pending = append(e.pending, c)
}

func valueCommand(t CommandType, v float64) Command {
	return Command{Type: t, Value: &v}
}

func (e *RemoteElement) CurrentTime() float64 { return e.currentTime }
func (e *RemoteElement) Duration() float64    { return e.duration }
func (e *RemoteElement) Paused() bool         { return e.paused }
func (e *RemoteElement) Volume() float64      { return e.volume }
func (e *RemoteElement) Muted() bool          { return e.muted }

func (e *RemoteElement) SetCurrentTime(seconds float64) {
	e.currentTime = seconds
	e.push(valueCommand(CmdSeek, seconds))
}

func (e *RemoteElement) Play() error {
	e.paused = false
	e.push(Command{Type: CmdPlay})
	return nil
}

func (e *RemoteElement) Pause() {
	e.paused = true
	e.push(Command{Type: CmdPause})
}

func (e *RemoteElement) SetVolume(v float64) {
	e.volume = v
	e.push(valueCommand(CmdVolume, v))
}

func (e *RemoteElement) SetMuted(muted bool) {
	e.muted = muted
	e.push(Command{Type: CmdMuted, Muted: &muted})
}

func (e *RemoteElement) SetPlaybackRate(rate float64) {
	e.rate = rate
	e.push(valueCommand(CmdRate, rate))
}

func (e *RemoteElement) RequestFullscreen() error {
	if e.audio {
		return ErrFullscreenUnsupported
	}
	e.push(Command{Type: CmdFullscreen})
	return nil
}
