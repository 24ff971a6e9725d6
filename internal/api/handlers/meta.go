package handlers

import (
	"net/http"
	"time"

	"github.com/lazvid/backend/internal/generate"
	"github.com/lazvid/backend/internal/playback"
	"github.com/lazvid/backend/internal/session"
)

var startTime = time.Now()

type MetaHandler struct {
	store           *session.Store
	defaultLanguage func() string
}

func NewMetaHandler(store *session.Store, defaultLanguage func() string) *MetaHandler {
	return &MetaHandler{store: store, defaultLanguage: defaultLanguage}
}

func (h *MetaHandler) Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]interface{}{
		"status":   "ok",
		"sessions": h.store.Len(),
		"uptime":   time.Since(startTime).Round(time.Second).String(),
	}, http.StatusOK)
}

// Languages lists the target languages and playback rates the UI offers
func (h *MetaHandler) Languages(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]interface{}{
		"languages":      generate.TargetLanguages,
		"default":        h.defaultLanguage(),
		"playback_rates": playback.PlaybackRates,
	}, http.StatusOK)
}
