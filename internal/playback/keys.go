package playback

// Key is a keyboard key code as reported by the browser (KeyboardEvent.code).
type Key string

const (
	KeySpace      Key = "Space"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
)

// HandleKey applies a keyboard shortcut. Shortcuts are ignored while the
// user is typing in a text field. It reports whether the key was handled,
// so the caller knows to suppress the browser default.
func (s *Synchronizer) HandleKey(k Key, inTextInput bool) bool {
	if inTextInput {
		return false
	}
	switch k {
	case KeySpace:
		s.TogglePlay()
	case KeyArrowLeft:
		s.Skip(-SkipStep)
	case KeyArrowRight:
		s.Skip(SkipStep)
	case KeyArrowUp:
		s.AdjustVolume(VolumeStep)
	case KeyArrowDown:
		s.AdjustVolume(-VolumeStep)
	default:
		return false
	}
	return true
}
