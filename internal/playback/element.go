// Package playback keeps a transcript timeline in step with a media
// element's clock and turns navigation intents into element commands.
package playback

// MediaElement is the player the synchronizer drives. It owns the clock and
// the play/pause state; the synchronizer only reads the clock and issues
// commands.
type MediaElement interface {
	CurrentTime() float64
	SetCurrentTime(seconds float64)
	// Duration is NaN until the media metadata is known.
	Duration() float64
	Paused() bool
	Play() error
	Pause()
	Volume() float64
	SetVolume(v float64)
	Muted() bool
	SetMuted(muted bool)
	SetPlaybackRate(rate float64)
	RequestFullscreen() error
}

// PlaybackRates are the speeds offered to the user.
var PlaybackRates = []float64{0.5, 0.75, 1, 1.25, 1.5, 2}

// ValidRate reports whether rate is one of PlaybackRates.
func ValidRate(rate float64) bool {
	for _, r := range PlaybackRates {
		if r == rate {
			return true
		}
	}
	return false
}
