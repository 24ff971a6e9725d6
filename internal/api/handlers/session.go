package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lazvid/backend/internal/api/middleware"
	"github.com/lazvid/backend/internal/db/models"
	"github.com/lazvid/backend/internal/generate"
	"github.com/lazvid/backend/internal/job"
	"github.com/lazvid/backend/internal/media"
	"github.com/lazvid/backend/internal/session"
	"github.com/lazvid/backend/internal/timeline"
)

// TaskStarter queues generation work for a session.
type TaskStarter interface {
	Start(sess *session.Session, t session.Task) (*job.Job, error)
}

type SessionHandler struct {
	store           *session.Store
	tasks           TaskStarter
	defaultLanguage func() string
	hasAPIKey       func() bool
	maxUpload       int64
}

func NewSessionHandler(store *session.Store, tasks TaskStarter, defaultLanguage func() string, hasAPIKey func() bool, maxUpload int64) *SessionHandler {
	return &SessionHandler{
		store:           store,
		tasks:           tasks,
		defaultLanguage: defaultLanguage,
		hasAPIKey:       hasAPIKey,
		maxUpload:       maxUpload,
	}
}

// loadSession resolves {id} to a session the caller may use. Sessions of
// other users look like missing ones, except to admins.
func loadSession(store *session.Store, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := store.Get(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	if !canAccess(r, s) {
		jsonError(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

// canAccess reports whether the caller owns s or is an admin.
func canAccess(r *http.Request, s *session.Session) bool {
	claims := middleware.GetClaims(r)
	return claims != nil && (claims.Role == models.RoleAdmin || claims.UserID == s.OwnerID)
}

// Create starts a new session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	lang := req.Language
	if lang == "" {
		lang = h.defaultLanguage()
	}
	if !validLanguage(lang) {
		jsonError(w, "unsupported target language: "+lang, http.StatusBadRequest)
		return
	}

	claims := middleware.GetClaims(r)
	s := h.store.Create(claims.UserID, lang)
	jsonResponse(w, s.Info(), http.StatusCreated)
}

// List returns the caller's sessions; admins see all of them
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	owner := claims.UserID
	if claims.Role == models.RoleAdmin {
		owner = 0
	}
	sessions := h.store.List(owner)
	infos := make([]session.Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	jsonResponse(w, infos, http.StatusOK)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	jsonResponse(w, s.Info(), http.StatusOK)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	h.store.Delete(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Reset clears media and every generated result
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	s.Reset()
	jsonResponse(w, s.Info(), http.StatusOK)
}

// UploadMedia accepts a multipart "file" field holding audio or video
func (h *SessionHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}

	// leave room for the multipart envelope
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			uploadError(w, media.ErrTooLarge)
			return
		}
		jsonError(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	f, err := media.Read(file, header.Filename, header.Header.Get("Content-Type"), h.maxUpload)
	if err != nil {
		uploadError(w, err)
		return
	}
	s.SetMedia(f)
	jsonResponse(w, s.Info(), http.StatusOK)
}

func uploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		jsonError(w, (&generate.Error{Kind: generate.KindTooLarge}).Message(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, media.ErrUnsupported):
		jsonError(w, "please upload an audio or video file", http.StatusUnsupportedMediaType)
	default:
		jsonError(w, "failed to read upload: "+err.Error(), http.StatusBadRequest)
	}
}

// SetLanguage changes the target language for the next generation
func (h *SessionHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	var req struct {
		Language string `json:"language"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validLanguage(req.Language) {
		jsonError(w, "unsupported target language: "+req.Language, http.StatusBadRequest)
		return
	}
	s.SetTargetLanguage(req.Language)
	jsonResponse(w, s.Info(), http.StatusOK)
}

func (h *SessionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, session.TaskTranscript)
}

func (h *SessionHandler) Refine(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, session.TaskRefine)
}

func (h *SessionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, session.TaskSummary)
}

func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request, t session.Task) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	if !h.hasAPIKey() {
		jsonError(w, (&generate.Error{Kind: generate.KindNoKey}).Message(), http.StatusBadRequest)
		return
	}

	j, err := h.tasks.Start(s, t)
	switch {
	case errors.Is(err, session.ErrNoMedia):
		jsonError(w, "upload a media file first", http.StatusConflict)
		return
	case errors.Is(err, session.ErrNoTranscript):
		jsonError(w, "generate a transcript first", http.StatusConflict)
		return
	case errors.Is(err, session.ErrBusy):
		jsonError(w, string(t)+" is already running", http.StatusConflict)
		return
	case err != nil:
		jsonError(w, "failed to start "+string(t)+": "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"job":     j,
		"session": s.Info(),
	}, http.StatusAccepted)
}

type transcriptResponse struct {
	Raw       string             `json:"raw"`
	Segments  []timeline.Segment `json:"segments"`
	Monotonic bool               `json:"monotonic"`
}

func newTranscriptResponse(raw string, tl *timeline.Timeline) transcriptResponse {
	return transcriptResponse{Raw: raw, Segments: tl.Segments(), Monotonic: tl.Monotonic()}
}

// PutTranscript installs transcript text supplied by the user
func (h *SessionHandler) PutTranscript(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	var req struct {
		Transcript string `json:"transcript"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	tl := s.SetTranscript(req.Transcript)
	jsonResponse(w, newTranscriptResponse(req.Transcript, tl), http.StatusOK)
}

func (h *SessionHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	raw, tl := s.Transcript()
	jsonResponse(w, newTranscriptResponse(raw, tl), http.StatusOK)
}

// Export downloads the transcript as SRT or VTT. An empty transcript
// answers 204.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	format, err := timeline.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, tl := s.Transcript()
	doc, err := tl.Export(format)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	attachment(w, format.ContentType(), format.Filename(), doc)
}

var markdownKinds = map[string]session.Task{
	"full_text": session.TaskRefine,
	"refined":   session.TaskRefine,
	"summary":   session.TaskSummary,
}

// Markdown downloads the refined article or the summary as a .md file
func (h *SessionHandler) Markdown(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(h.store, w, r)
	if !ok {
		return
	}
	kind := strings.ToLower(chi.URLParam(r, "kind"))
	task, ok := markdownKinds[kind]
	if !ok {
		jsonError(w, "unknown document: "+kind, http.StatusNotFound)
		return
	}
	text := s.Article(task)
	if text == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	prefix := "full_text"
	if task == session.TaskSummary {
		prefix = "summary"
	}
	name := fmt.Sprintf("%s-%s.md", prefix, time.Now().UTC().Format("2006-01-02"))
	attachment(w, "text/markdown; charset=utf-8", name, text)
}

func attachment(w http.ResponseWriter, contentType, filename, body string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
