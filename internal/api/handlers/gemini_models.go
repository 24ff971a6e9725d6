package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/lazvid/backend/internal/generate"
)

const modelCacheTTL = time.Hour

// ModelLister is implemented by generate.GeminiClient.
type ModelLister interface {
	ListModels(ctx context.Context) ([]generate.Model, error)
}

type GeminiModelsHandler struct {
	lister ModelLister

	mu           sync.Mutex
	cachedModels []generate.Model
	cacheTime    time.Time
}

func NewGeminiModelsHandler(lister ModelLister) *GeminiModelsHandler {
	return &GeminiModelsHandler{lister: lister}
}

// ListModels returns Gemini models usable for generation. Without an API
// key the list is empty.
func (h *GeminiModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.getModels(r.Context())
	if generate.Classify(err) == generate.KindNoKey {
		jsonResponse(w, []generate.Model{}, http.StatusOK)
		return
	}
	if err != nil {
		jsonError(w, "failed to fetch Gemini models: "+err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, models, http.StatusOK)
}

func (h *GeminiModelsHandler) getModels(ctx context.Context) ([]generate.Model, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Return cache if fresh
	if len(h.cachedModels) > 0 && time.Since(h.cacheTime) < modelCacheTTL {
		return h.cached(), nil
	}

	models, err := h.lister.ListModels(ctx)
	if err != nil {
		if len(h.cachedModels) > 0 && generate.Classify(err) != generate.KindNoKey {
			return h.cached(), nil
		}
		return nil, err
	}

	h.cachedModels = models
	h.cacheTime = time.Now()
	return h.cached(), nil
}

func (h *GeminiModelsHandler) cached() []generate.Model {
	result := make([]generate.Model, len(h.cachedModels))
	copy(result, h.cachedModels)
	return result
}
