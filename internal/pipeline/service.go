// Package pipeline runs generation jobs for sessions.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lazvid/backend/internal/generate"
	"github.com/lazvid/backend/internal/job"
	"github.com/lazvid/backend/internal/media"
	"github.com/lazvid/backend/internal/session"
)

var taskJobs = map[session.Task]job.JobType{
	session.TaskTranscript: job.JobTranscript,
	session.TaskRefine:     job.JobRefine,
	session.TaskSummary:    job.JobSummary,
}

// Service starts generation tasks on the job queue and applies their
// results to sessions.
type Service struct {
	store *session.Store
	gen   generate.Generator
	queue *job.JobQueue
}

// NewService registers the generation handlers on queue.
func NewService(store *session.Store, gen generate.Generator, queue *job.JobQueue) *Service {
	s := &Service{store: store, gen: gen, queue: queue}
	for _, jt := range taskJobs {
		queue.RegisterHandler(jt, s.HandleJob)
	}
	queue.OnCancel(s.cancelled)
	store.OnEvict(queue.CancelSession)
	log.Printf("[pipeline] registered %s engine", gen.Name())
	return s
}

// Start begins task t on sess and enqueues the job that performs it.
func (s *Service) Start(sess *session.Session, t session.Task) (*job.Job, error) {
	jt, ok := taskJobs[t]
	if !ok {
		return nil, fmt.Errorf("unknown task: %s", t)
	}
	tk, err := sess.Begin(t)
	if err != nil {
		return nil, err
	}

	j, err := s.queue.Enqueue(jt, sess.ID, job.GenerateParams{
		Generation:     tk.Generation,
		Run:            tk.Run,
		TargetLanguage: tk.TargetLanguage,
	})
	if err != nil {
		sess.Fail(tk, err)
		return nil, err
	}
	sess.AttachJob(tk, j.ID)
	log.Printf("[pipeline] %s job %s queued for session %s (generation %d)", t, j.ID, sess.ID, tk.Generation)
	return j, nil
}

// HandleJob is the job.JobHandler for all generation jobs.
func (s *Service) HandleJob(ctx context.Context, j *job.Job, updateProgress func(float64)) (interface{}, error) {
	var params job.GenerateParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	task := session.Task(j.Type)

	sess, err := s.store.Get(j.SessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", j.SessionID, err)
	}
	tk, err := sess.Resume(task, params.Generation, params.Run)
	if errors.Is(err, session.ErrStale) {
		return job.GenerateResult{Discarded: true}, nil
	}
	if err != nil {
		return nil, err
	}

	start := time.Now()
	updateProgress(0.1)

	text, err := s.run(ctx, tk)
	if ctx.Err() != nil {
		sess.Abort(tk)
		return nil, ctx.Err()
	}
	if err != nil {
		if ferr := sess.Fail(tk, err); ferr == nil {
			log.Printf("[pipeline] %s for session %s failed (%s): %v", task, sess.ID, generate.Classify(err), err)
		}
		return nil, err
	}

	updateProgress(0.9)
	tl, err := sess.Complete(tk, text)
	if errors.Is(err, session.ErrStale) {
		log.Printf("[pipeline] discarding superseded %s for session %s", task, sess.ID)
		return job.GenerateResult{Discarded: true}, nil
	}
	if err != nil {
		return nil, err
	}

	res := job.GenerateResult{
		Chars:    len(text),
		Duration: time.Since(start).Seconds(),
	}
	if tl != nil {
		res.Segments = tl.Len()
	}
	log.Printf("[pipeline] %s for session %s done: %d chars, %d segments", task, sess.ID, res.Chars, res.Segments)
	return res, nil
}

// cancelled returns the session task of a cancelled job to idle. A job
// cancelled while pending never reaches HandleJob.
func (s *Service) cancelled(j *job.Job) {
	task := session.Task(j.Type)
	if _, ok := taskJobs[task]; !ok {
		return
	}
	var params job.GenerateParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return
	}
	sess, err := s.store.Get(j.SessionID)
	if err != nil {
		return
	}
	tk, err := sess.Resume(task, params.Generation, params.Run)
	if err != nil {
		return
	}
	if sess.Abort(tk) {
		log.Printf("[pipeline] %s for session %s cancelled", task, sess.ID)
	}
}

func (s *Service) run(ctx context.Context, tk session.Ticket) (string, error) {
	switch tk.Task {
	case session.TaskTranscript:
		if tk.Media == nil {
			return "", &generate.Error{Kind: generate.KindEmpty, Err: session.ErrNoMedia}
		}
		if tk.Media.Size > media.DefaultMaxBytes {
			return "", &generate.Error{Kind: generate.KindTooLarge, Err: media.ErrTooLarge}
		}
		return s.gen.Transcribe(ctx, generate.Media{Data: tk.Media.Data, MimeType: tk.Media.MimeType}, tk.TargetLanguage)
	case session.TaskRefine:
		return s.gen.Refine(ctx, tk.Transcript, tk.TargetLanguage)
	case session.TaskSummary:
		return s.gen.Summarize(ctx, tk.Transcript, tk.TargetLanguage)
	}
	return "", fmt.Errorf("unknown task: %s", tk.Task)
}
