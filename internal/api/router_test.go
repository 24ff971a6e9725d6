package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lazvid/backend/internal/api/handlers"
	"github.com/lazvid/backend/internal/auth"
	"github.com/lazvid/backend/internal/config"
	"github.com/lazvid/backend/internal/db"
	"github.com/lazvid/backend/internal/generate"
	"github.com/lazvid/backend/internal/job"
	"github.com/lazvid/backend/internal/pipeline"
	"github.com/lazvid/backend/internal/session"
)

type stubGenerator struct{}

func (stubGenerator) Name() string { return "stub" }

func (stubGenerator) Transcribe(ctx context.Context, m generate.Media, lang string) (string, error) {
	return "Here you go:\n[00:00] Intro\n[00:07] Body\n", nil
}

func (stubGenerator) Refine(ctx context.Context, transcript, lang string) (string, error) {
	return "# Article", nil
}

func (stubGenerator) Summarize(ctx context.Context, transcript, lang string) (string, error) {
	return "# Summary", nil
}

type stubModels struct{}

func (stubModels) ListModels(ctx context.Context) ([]generate.Model, error) {
	return []generate.Model{{ID: "gemini-2.5-flash"}}, nil
}

type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	token string
	queue *job.JobQueue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	d, err := db.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.EnsureAdmin("admin", "secret"); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		CORSOrigins:    []string{"*"},
		MaxUploadMB:    1,
		LoginRateLimit: 100,
		TargetLanguage: "English",
	}
	q := job.NewJobQueue(d.DB())
	store := session.NewStore(time.Hour)
	svc := Services{
		DB:       d,
		JWT:      auth.NewJWTService("test-secret"),
		Jobs:     q,
		Sessions: store,
		Tasks:    pipeline.NewService(store, stubGenerator{}, q),
		Models:   stubModels{},
		Settings: &handlers.Resolver{DB: d, GeminiKey: "k", TargetLanguage: cfg.TargetLanguage},
	}
	srv := httptest.NewServer(NewRouter(cfg, svc))
	t.Cleanup(func() {
		srv.Close()
		q.Stop()
		d.Close()
	})

	ts := &testServer{t: t, srv: srv, queue: q}
	var login struct {
		Token string `json:"token"`
	}
	ts.do("POST", "/api/auth/login", map[string]string{"username": "admin", "password": "secret"}, http.StatusOK, &login)
	ts.token = login.Token
	return ts
}

// do sends a JSON request and decodes the JSON reply into out when set.
func (ts *testServer) do(method, path string, body interface{}, wantStatus int, out interface{}) *http.Response {
	ts.t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, ts.srv.URL+path, rd)
	req.Header.Set("Content-Type", "application/json")
	return ts.send(req, wantStatus, out)
}

func (ts *testServer) send(req *http.Request, wantStatus int, out interface{}) *http.Response {
	ts.t.Helper()
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		ts.t.Fatalf("%s %s: status %d, want %d: %s", req.Method, req.URL.Path, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if s, ok := out.(*string); ok {
			*s = string(raw)
		} else if err := json.Unmarshal(raw, out); err != nil {
			ts.t.Fatalf("decode %s: %v: %s", req.URL.Path, err, raw)
		}
	}
	return resp
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""
	ts.do("GET", "/api/sessions", nil, http.StatusUnauthorized, nil)
	ts.do("GET", "/api/health", nil, http.StatusOK, nil)
	ts.do("POST", "/api/auth/login", map[string]string{"username": "admin", "password": "nope"}, http.StatusUnauthorized, nil)
}

func TestTranscriptExportFlow(t *testing.T) {
	ts := newTestServer(t)

	var info session.Info
	ts.do("POST", "/api/sessions", nil, http.StatusCreated, &info)
	if info.TargetLanguage != "English" {
		t.Errorf("language = %q", info.TargetLanguage)
	}
	base := "/api/sessions/" + info.ID

	// nothing to export yet
	ts.do("GET", base+"/export/srt", nil, http.StatusNoContent, nil)
	ts.do("GET", base+"/export/ass", nil, http.StatusBadRequest, nil)

	var tr struct {
		Segments []struct {
			StartTime float64 `json:"start_time"`
			Text      string  `json:"text"`
		} `json:"segments"`
	}
	ts.do("PUT", base+"/transcript", map[string]string{
		"transcript": "[00:01] Hello\nnot a line\n[00:04] World",
	}, http.StatusOK, &tr)
	if len(tr.Segments) != 2 || tr.Segments[1].StartTime != 4 {
		t.Fatalf("segments = %+v", tr.Segments)
	}

	var srt string
	resp := ts.do("GET", base+"/export/srt", nil, http.StatusOK, &srt)
	want := "1\n00:00:01,000 --> 00:00:04,000\nHello\n\n2\n00:00:04,000 --> 00:00:09,000\nWorld\n\n"
	if srt != want {
		t.Errorf("srt = %q", srt)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "transcript.srt") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	var vtt string
	ts.do("GET", base+"/export/VTT", nil, http.StatusOK, &vtt)
	if !strings.HasPrefix(vtt, "WEBVTT\n\n00:00:01.000 --> 00:00:04.000\nHello\n\n") {
		t.Errorf("vtt = %q", vtt)
	}

	ts.do("GET", base+"/markdown/summary", nil, http.StatusNoContent, nil)
	ts.do("POST", base+"/reset", nil, http.StatusOK, nil)
	ts.do("GET", base+"/export/vtt", nil, http.StatusNoContent, nil)
}

func TestPlaybackFlow(t *testing.T) {
	ts := newTestServer(t)
	var info session.Info
	ts.do("POST", "/api/sessions", map[string]string{"language": "Japanese"}, http.StatusCreated, &info)
	base := "/api/sessions/" + info.ID
	ts.do("PUT", base+"/transcript", map[string]string{"transcript": "[00:00] A\n[00:05] B\n[00:10] C"}, http.StatusOK, nil)

	var st session.PlaybackState
	ts.do("POST", base+"/playback/events", map[string]interface{}{"type": "timeupdate", "current_time": 6.5}, http.StatusOK, &st)
	if st.ActiveIndex != 1 {
		t.Errorf("active = %d, want 1", st.ActiveIndex)
	}
	ts.do("POST", base+"/playback/events", map[string]interface{}{"type": "seeked"}, http.StatusBadRequest, nil)

	ts.do("POST", base+"/playback/seek", map[string]int{"index": 2}, http.StatusOK, &st)
	if st.ActiveIndex != 2 || st.Paused {
		t.Errorf("after seek: %+v", st)
	}
	ts.do("POST", base+"/playback/seek", map[string]int{"index": 3}, http.StatusNotFound, nil)

	var keyResp struct {
		Handled bool `json:"handled"`
		session.PlaybackState
	}
	ts.do("POST", base+"/playback/key", map[string]interface{}{"key": "Space", "in_text_input": true}, http.StatusOK, &keyResp)
	if keyResp.Handled || keyResp.Paused {
		t.Errorf("key in text input should be ignored: %+v", keyResp)
	}
	ts.do("POST", base+"/playback/key", map[string]interface{}{"key": "ArrowLeft"}, http.StatusOK, &keyResp)
	if !keyResp.Handled || keyResp.CurrentTime != 5 || keyResp.ActiveIndex != 1 {
		t.Errorf("ArrowLeft: %+v", keyResp)
	}

	ts.do("POST", base+"/playback/rate", map[string]float64{"value": 3}, http.StatusBadRequest, nil)
	ts.do("POST", base+"/playback/volume", map[string]float64{"value": 0}, http.StatusOK, &st)
	if !st.Muted || st.Volume != 0 {
		t.Errorf("volume 0 should mute: %+v", st)
	}
	ts.do("POST", base+"/playback/bogus", nil, http.StatusBadRequest, nil)

	var polled, again session.PlaybackState
	ts.do("GET", base+"/playback", nil, http.StatusOK, &polled)
	if len(polled.Commands) == 0 || polled.Commands[0].Type != "seek" {
		t.Errorf("commands = %+v", polled.Commands)
	}
	ts.do("GET", base+"/playback", nil, http.StatusOK, &again)
	if len(again.Commands) != 0 {
		t.Errorf("commands not drained: %+v", again.Commands)
	}
}

func upload(t *testing.T, ts *testServer, path, filename, contentType string, data []byte, wantStatus int) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, _ := mw.CreatePart(h)
	part.Write(data)
	mw.Close()

	req, _ := http.NewRequest("PUT", ts.srv.URL+path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	ts.send(req, wantStatus, nil)
}

func TestGenerateFlow(t *testing.T) {
	ts := newTestServer(t)
	var info session.Info
	ts.do("POST", "/api/sessions", nil, http.StatusCreated, &info)
	base := "/api/sessions/" + info.ID

	ts.do("POST", base+"/generate", nil, http.StatusConflict, nil)
	upload(t, ts, base+"/media", "notes.txt", "text/plain", []byte("hi"), http.StatusUnsupportedMediaType)
	upload(t, ts, base+"/media", "big.mp3", "audio/mpeg", make([]byte, 1<<20+1), http.StatusRequestEntityTooLarge)
	ts.do("GET", base+"/media", nil, http.StatusNotFound, nil)
	upload(t, ts, base+"/media", "talk.mp3", "audio/mpeg", []byte("ID3"), http.StatusOK)

	req, _ := http.NewRequest("GET", ts.srv.URL+base+"/media", nil)
	req.Header.Set("Range", "bytes=1-2")
	var part string
	resp := ts.send(req, http.StatusPartialContent, &part)
	if part != "D3" || resp.Header.Get("Content-Type") != "audio/mpeg" {
		t.Errorf("range = %q (%s)", part, resp.Header.Get("Content-Type"))
	}

	var started struct {
		Job job.Job `json:"job"`
	}
	ts.do("POST", base+"/generate", nil, http.StatusAccepted, &started)

	deadline := time.Now().Add(5 * time.Second)
	var j job.Job
	for time.Now().Before(deadline) {
		ts.do("GET", "/api/jobs/"+started.Job.ID, nil, http.StatusOK, &j)
		if j.Done() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if j.Status != job.StatusCompleted {
		t.Fatalf("job = %+v", j)
	}

	ts.do("GET", base, nil, http.StatusOK, &info)
	if info.Segments != 2 || info.Media == nil || !info.Media.Audio {
		t.Errorf("info = %+v", info)
	}

	ts.do("POST", base+"/summary", nil, http.StatusAccepted, &started)
	for time.Now().Before(deadline) {
		ts.do("GET", "/api/jobs/"+started.Job.ID, nil, http.StatusOK, &j)
		if j.Done() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	var md string
	resp = ts.do("GET", base+"/markdown/summary", nil, http.StatusOK, &md)
	if md != "# Summary" {
		t.Errorf("markdown = %q", md)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "summary-") || !strings.HasSuffix(cd, `.md"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)

	var created struct {
		ID int64 `json:"id"`
	}
	ts.do("POST", "/api/admin/users", map[string]string{"username": "viewer1", "password": "pw", "role": "viewer"}, http.StatusCreated, &created)
	ts.do("POST", "/api/admin/users", map[string]string{"username": "x", "password": "pw", "role": "god"}, http.StatusBadRequest, nil)

	var models []generate.Model
	ts.do("GET", "/api/gemini/models", nil, http.StatusOK, &models)
	if len(models) != 1 {
		t.Errorf("models = %+v", models)
	}
	ts.do("PUT", "/api/settings", map[string]string{"default_target_language": "Klingon"}, http.StatusBadRequest, nil)
	ts.do("PUT", "/api/settings", map[string]string{"default_target_language": "German"}, http.StatusNoContent, nil)

	var langs struct {
		Default string    `json:"default"`
		Rates   []float64 `json:"playback_rates"`
	}
	ts.do("GET", "/api/languages", nil, http.StatusOK, &langs)
	if langs.Default != "German" || len(langs.Rates) != 6 {
		t.Errorf("languages = %+v", langs)
	}

	// a viewer cannot reach admin routes or other users' sessions
	var adminSession session.Info
	ts.do("POST", "/api/sessions", nil, http.StatusCreated, &adminSession)

	var login struct {
		Token string `json:"token"`
	}
	ts.do("POST", "/api/auth/login", map[string]string{"username": "viewer1", "password": "pw"}, http.StatusOK, &login)
	ts.token = login.Token
	ts.do("GET", "/api/settings", nil, http.StatusForbidden, nil)
	ts.do("GET", "/api/sessions/"+adminSession.ID, nil, http.StatusNotFound, nil)
}

func TestChangePassword(t *testing.T) {
	ts := newTestServer(t)

	ts.do("PUT", "/api/auth/password", map[string]string{"current_password": "wrong", "new_password": "another1"}, http.StatusForbidden, nil)
	ts.do("PUT", "/api/auth/password", map[string]string{"current_password": "secret", "new_password": "abc"}, http.StatusBadRequest, nil)
	ts.do("PUT", "/api/auth/password", map[string]string{"current_password": "secret", "new_password": "another1"}, http.StatusOK, nil)

	token := ts.token
	ts.token = ""
	ts.do("POST", "/api/auth/login", map[string]string{"username": "admin", "password": "secret"}, http.StatusUnauthorized, nil)
	ts.do("POST", "/api/auth/login", map[string]string{"username": "admin", "password": "another1"}, http.StatusOK, nil)
	ts.token = token
}

func TestJobsScopedToOwner(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.token
	ts.do("POST", "/api/admin/users", map[string]string{"username": "viewer2", "password": "pw", "role": "viewer"}, http.StatusCreated, nil)

	startRefine := func() string {
		var info session.Info
		ts.do("POST", "/api/sessions", nil, http.StatusCreated, &info)
		base := "/api/sessions/" + info.ID
		ts.do("PUT", base+"/transcript", map[string]string{"transcript": "[00:01] Hi"}, http.StatusOK, nil)
		var started struct {
			Job job.Job `json:"job"`
		}
		ts.do("POST", base+"/refine", nil, http.StatusAccepted, &started)
		return started.Job.ID
	}
	ids := func() map[string]bool {
		var jobs []job.Job
		ts.do("GET", "/api/jobs", nil, http.StatusOK, &jobs)
		seen := map[string]bool{}
		for _, j := range jobs {
			seen[j.ID] = true
		}
		return seen
	}

	adminJob := startRefine()

	var login struct {
		Token string `json:"token"`
	}
	ts.do("POST", "/api/auth/login", map[string]string{"username": "viewer2", "password": "pw"}, http.StatusOK, &login)
	ts.token = login.Token
	viewerJob := startRefine()

	if seen := ids(); seen[adminJob] || !seen[viewerJob] {
		t.Errorf("viewer job list = %v", seen)
	}
	ts.do("GET", "/api/jobs/"+adminJob, nil, http.StatusNotFound, nil)
	ts.do("DELETE", "/api/jobs/"+adminJob, nil, http.StatusNotFound, nil)
	ts.do("GET", "/api/jobs/"+viewerJob, nil, http.StatusOK, nil)

	ts.token = adminToken
	if seen := ids(); !seen[adminJob] || !seen[viewerJob] {
		t.Errorf("admin job list = %v", seen)
	}
	ts.do("GET", "/api/jobs/"+viewerJob, nil, http.StatusOK, nil)
}
