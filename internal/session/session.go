// Package session keeps per-user transcript sessions in memory. A session
// owns the uploaded media, the current timeline and the mirror of the
// browser's media element; nothing in it is persisted.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/lazvid/backend/internal/generate"
	"github.com/lazvid/backend/internal/media"
	"github.com/lazvid/backend/internal/playback"
	"github.com/lazvid/backend/internal/timeline"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrStale        = errors.New("result superseded")
	ErrNoMedia      = errors.New("no media uploaded")
	ErrNoTranscript = errors.New("no transcript yet")
	ErrBusy         = errors.New("task already running")
)

// Task is a generation performed for a session.
type Task string

const (
	TaskTranscript Task = "transcript"
	TaskRefine     Task = "refine"
	TaskSummary    Task = "summary"
)

// Status of one task.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// TaskError is the last classified failure of a task.
type TaskError struct {
	Kind    generate.Kind `json:"kind"`
	Message string        `json:"message"`
}

// TaskState is the progress of one task.
type TaskState struct {
	Status Status     `json:"status"`
	JobID  string     `json:"job_id,omitempty"`
	Error  *TaskError `json:"error,omitempty"`

	run uint64
}

// Session is one transcript workspace. All methods are safe for concurrent
// use; each call is one serialized step of the playback core.
type Session struct {
	ID        string
	OwnerID   int64
	CreatedAt time.Time

	mu             sync.Mutex
	lastUsed       time.Time
	media          *media.File
	targetLanguage string
	raw            string
	refined        string
	summary        string
	tasks          map[Task]*TaskState
	generation     uint64
	runs           uint64
	activeSeq      uint64

	element *playback.RemoteElement
	syncer  *playback.Synchronizer
}

func newSession(id string, owner int64, lang string, now time.Time) *Session {
	s := &Session{
		ID:             id,
		OwnerID:        owner,
		CreatedAt:      now,
		lastUsed:       now,
		targetLanguage: lang,
		element:        playback.NewRemoteElement(),
	}
	s.resetTasks()
	s.syncer = playback.NewSynchronizer(s.element)
	s.syncer.OnActiveChange(func(int, timeline.Segment) {
		s.activeSeq++
	})
	return s
}

func (s *Session) resetTasks() {
	s.tasks = map[Task]*TaskState{
		TaskTranscript: {Status: StatusIdle},
		TaskRefine:     {Status: StatusIdle},
		TaskSummary:    {Status: StatusIdle},
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Info is a JSON snapshot of a session.
type Info struct {
	ID             string             `json:"id"`
	CreatedAt      time.Time          `json:"created_at"`
	Media          *media.File        `json:"media,omitempty"`
	TargetLanguage string             `json:"target_language"`
	Segments       int                `json:"segments"`
	HasRefined     bool               `json:"has_refined"`
	HasSummary     bool               `json:"has_summary"`
	Generation     uint64             `json:"generation"`
	Tasks          map[Task]TaskState `json:"tasks"`
	Playback       PlaybackState      `json:"playback"`
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make(map[Task]TaskState, len(s.tasks))
	for k, v := range s.tasks {
		tasks[k] = *v
	}
	return Info{
		ID:             s.ID,
		CreatedAt:      s.CreatedAt,
		Media:          s.media,
		TargetLanguage: s.targetLanguage,
		Segments:       s.syncer.Timeline().Len(),
		HasRefined:     s.refined != "",
		HasSummary:     s.summary != "",
		Generation:     s.generation,
		Tasks:          tasks,
		Playback:       s.playbackState(),
	}
}

// TargetLanguage returns the language transcripts are translated into.
func (s *Session) TargetLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetLanguage
}

// SetTargetLanguage changes the language for the next generation. Results
// already produced are kept.
func (s *Session) SetTargetLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetLanguage = lang
}

// Media returns the uploaded file, or nil.
func (s *Session) Media() *media.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media
}

// SetMedia replaces the uploaded file. Everything derived from the previous
// file is discarded and in-flight generations are superseded.
func (s *Session) SetMedia(f *media.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.media = f
	s.element.Load(f.Audio)
}

// Reset clears media and every derived result. In-flight generations are
// superseded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.media = nil
	s.element.Load(false)
}

func (s *Session) clearLocked() {
	s.generation++
	s.raw = ""
	s.refined = ""
	s.summary = ""
	s.resetTasks()
	s.syncer.SetTimeline(nil)
}

// Transcript returns the raw transcript and its timeline. The timeline is
// an immutable snapshot and stays valid after the session changes.
func (s *Session) Transcript() (string, *timeline.Timeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw, s.syncer.Timeline()
}

// SetTranscript installs raw transcript text supplied by the user. It
// supersedes any running generation and drops derived articles.
func (s *Session) SetTranscript(raw string) *timeline.Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.refined = ""
	s.summary = ""
	s.resetTasks()
	return s.installLocked(raw)
}

func (s *Session) installLocked(raw string) *timeline.Timeline {
	s.raw = raw
	tl := timeline.Parse(raw)
	s.syncer.SetTimeline(tl)
	s.tasks[TaskTranscript].Status = StatusReady
	return tl
}

// Article returns the refined article or the summary.
func (s *Session) Article(t Task) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t {
	case TaskRefine:
		return s.refined
	case TaskSummary:
		return s.summary
	}
	return ""
}

// Ticket identifies one generation run. Results are applied only while the
// ticket's generation is current.
type Ticket struct {
	Task           Task
	Generation     uint64
	Run            uint64 // distinguishes restarts of a task within one generation
	TargetLanguage string
	Media          *media.File
	Transcript     string
}

// Begin starts a task. A transcript run needs media, clears the current
// transcript and supersedes earlier runs. Refine and summary runs need a
// transcript and are tied to the transcript they were started from.
func (s *Session) Begin(t Task) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.tasks[t]
	if st == nil {
		return Ticket{}, errors.New("unknown task " + string(t))
	}
	if st.Status == StatusProcessing {
		return Ticket{}, ErrBusy
	}

	switch t {
	case TaskTranscript:
		if s.media == nil {
			return Ticket{}, ErrNoMedia
		}
		s.generation++
		s.raw = ""
		s.refined = ""
		s.summary = ""
		s.resetTasks()
		s.syncer.SetTimeline(nil)
	default:
		if s.raw == "" {
			return Ticket{}, ErrNoTranscript
		}
	}

	s.runs++
	s.tasks[t] = &TaskState{Status: StatusProcessing, run: s.runs}
	return Ticket{
		Task:           t,
		Generation:     s.generation,
		Run:            s.runs,
		TargetLanguage: s.targetLanguage,
		Media:          s.media,
		Transcript:     s.raw,
	}, nil
}

// Resume returns the ticket of run of task t started at generation gen,
// or ErrStale when the session has moved on since.
func (s *Session) Resume(t Task, gen, run uint64) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tk := Ticket{Task: t, Generation: gen, Run: run}
	if !s.currentLocked(tk) {
		return Ticket{}, ErrStale
	}
	return Ticket{
		Task:           t,
		Generation:     gen,
		Run:            run,
		TargetLanguage: s.targetLanguage,
		Media:          s.media,
		Transcript:     s.raw,
	}, nil
}

// currentLocked reports whether tk is the task run still in progress.
func (s *Session) currentLocked(tk Ticket) bool {
	st := s.tasks[tk.Task]
	return st != nil && tk.Generation == s.generation &&
		st.Status == StatusProcessing && st.run == tk.Run
}

// AttachJob records the queue job running tk.
func (s *Session) AttachJob(tk Ticket, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentLocked(tk) {
		s.tasks[tk.Task].JobID = jobID
	}
}

// Complete applies the text produced for tk. It returns ErrStale when the
// session moved on while the task ran.
func (s *Session) Complete(tk Ticket, text string) (*timeline.Timeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(tk) {
		return nil, ErrStale
	}

	switch tk.Task {
	case TaskTranscript:
		return s.installLocked(text), nil
	case TaskRefine:
		s.refined = text
	case TaskSummary:
		s.summary = text
	}
	s.tasks[tk.Task].Status = StatusReady
	return nil, nil
}

// Fail records a classified failure for tk.
func (s *Session) Fail(tk Ticket, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(tk) {
		return ErrStale
	}
	ge := generate.AsError(err)
	st := s.tasks[tk.Task]
	st.Status = StatusError
	st.Error = &TaskError{Kind: ge.Kind, Message: ge.Message()}
	return nil
}

// Abort returns a cancelled task to idle. It reports whether tk was still
// running.
func (s *Session) Abort(tk Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(tk) {
		return false
	}
	s.tasks[tk.Task] = &TaskState{Status: StatusIdle}
	return true
}
