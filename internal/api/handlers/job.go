package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lazvid/backend/internal/api/middleware"
	"github.com/lazvid/backend/internal/db/models"
	"github.com/lazvid/backend/internal/job"
	"github.com/lazvid/backend/internal/session"
)

// JobHandler exposes generation jobs. A job is visible to whoever may use
// its session; jobs of expired sessions are visible to admins only.
type JobHandler struct {
	queue *job.JobQueue
	store *session.Store
}

func NewJobHandler(queue *job.JobQueue, store *session.Store) *JobHandler {
	return &JobHandler{queue: queue, store: store}
}

func (h *JobHandler) visible(r *http.Request, j *job.Job) bool {
	if claims := middleware.GetClaims(r); claims != nil && claims.Role == models.RoleAdmin {
		return true
	}
	s, err := h.store.Get(j.SessionID)
	return err == nil && canAccess(r, s)
}

// ListJobs returns the caller's jobs, optionally filtered by ?session=
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.queue.ListJobs(r.URL.Query().Get("session"))
	if err != nil {
		jsonError(w, "failed to list jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]*job.Job, 0, len(jobs))
	for _, j := range jobs {
		if h.visible(r, j) {
			out = append(out, j)
		}
	}
	jsonResponse(w, out, http.StatusOK)
}

// load resolves {id} to a job the caller may see.
func (h *JobHandler) load(w http.ResponseWriter, r *http.Request) (*job.Job, bool) {
	j, err := h.queue.GetJob(chi.URLParam(r, "id"))
	if errors.Is(err, job.ErrNotFound) || (err == nil && !h.visible(r, j)) {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		jsonError(w, "failed to load job: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return j, true
}

// GetJob returns a single job by ID
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	if j, ok := h.load(w, r); ok {
		jsonResponse(w, j, http.StatusOK)
	}
}

// CancelJob cancels a pending or running job
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	j, ok := h.load(w, r)
	if !ok {
		return
	}
	err := h.queue.CancelJob(j.ID)
	if errors.Is(err, job.ErrNotFound) {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to cancel job: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
