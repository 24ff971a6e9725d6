package handlers

import (
	"bytes"
	"net/http"

	"github.com/lazvid/backend/internal/session"
)

type StreamHandler struct {
	store *session.Store
}

func NewStreamHandler(store *session.Store) *StreamHandler {
	return &StreamHandler{store: store}
}

// Media serves the session's uploaded file with range support so the
// player can seek without downloading the whole file first.
func (h *StreamHandler) Media(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	f := s.Media()
	if f == nil {
		jsonError(w, "no media uploaded", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", f.MimeType)
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, f.Name, s.CreatedAt, bytes.NewReader(f.Data))
}
