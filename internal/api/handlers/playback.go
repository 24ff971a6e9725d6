package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lazvid/backend/internal/playback"
	"github.com/lazvid/backend/internal/session"
)

type PlaybackHandler struct {
	store *session.Store
}

func NewPlaybackHandler(store *session.Store) *PlaybackHandler {
	return &PlaybackHandler{store: store}
}

// State returns the playback state and drains queued player commands
func (h *PlaybackHandler) State(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	jsonResponse(w, s.Poll(), http.StatusOK)
}

// Events applies a media element event reported by the browser
func (h *PlaybackHandler) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	var ev playback.Event
	if !decodeJSON(w, r, &ev) {
		return
	}
	st, err := s.Observe(ev)
	if errors.Is(err, playback.ErrUnknownEvent) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	jsonResponse(w, st, http.StatusOK)
}

type commandRequest struct {
	Value       *float64 `json:"value"`
	Index       *int     `json:"index"`
	Key         string   `json:"key"`
	InTextInput bool     `json:"in_text_input"`
}

type commandResponse struct {
	session.PlaybackState
	Handled bool `json:"handled"`
}

// Command runs one player action: toggle, skip, seek, volume, mute, rate,
// fullscreen or key.
func (h *PlaybackHandler) Command(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	var req commandRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}

	cmd := chi.URLParam(r, "command")
	handled := true
	var badRequest string

	st, err := s.Playback(func(p *playback.Synchronizer) error {
		switch cmd {
		case "toggle":
			p.TogglePlay()
		case "skip":
			if req.Value == nil {
				badRequest = "value is required"
				return nil
			}
			p.Skip(*req.Value)
		case "seek":
			if req.Index == nil {
				badRequest = "index is required"
				return nil
			}
			return p.SeekToIndex(*req.Index)
		case "volume":
			if req.Value == nil {
				badRequest = "value is required"
				return nil
			}
			p.SetVolume(*req.Value)
		case "mute":
			p.ToggleMute()
		case "rate":
			if req.Value == nil {
				badRequest = "value is required"
				return nil
			}
			return p.SetPlaybackRate(*req.Value)
		case "fullscreen":
			p.RequestFullscreen()
		case "key":
			handled = p.HandleKey(playback.Key(req.Key), req.InTextInput)
		default:
			badRequest = "unknown command: " + cmd
		}
		return nil
	})

	switch {
	case badRequest != "":
		jsonError(w, badRequest, http.StatusBadRequest)
	case errors.Is(err, playback.ErrNoSuchSegment):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, playback.ErrUnsupportedRate):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		jsonResponse(w, commandResponse{PlaybackState: st, Handled: handled}, http.StatusOK)
	}
}
