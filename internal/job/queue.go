package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const pollInterval = 10 * time.Second

var ErrNotFound = errors.New("job not found")

// JobQueue manages job persistence and dispatching
type JobQueue struct {
	db       *sql.DB
	mu       sync.RWMutex
	pending  chan string // job IDs to process
	cancels  map[string]context.CancelFunc
	handlers map[JobType]JobHandler
	onCancel []func(*Job)
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewJobQueue creates and starts a new job queue. Jobs left pending or
// running by a previous process are marked failed: their sessions lived in
// memory and are gone.
func NewJobQueue(db *sql.DB) *JobQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &JobQueue{
		db:       db,
		pending:  make(chan string, 100),
		cancels:  make(map[string]context.CancelFunc),
		handlers: make(map[JobType]JobHandler),
		ctx:      ctx,
		cancel:   cancel,
	}

	q.failStaleJobs()

	q.wg.Add(1)
	go q.worker()

	return q
}

// RegisterHandler registers a handler for a job type
func (q *JobQueue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Enqueue creates a new job and adds it to the queue
func (q *JobQueue) Enqueue(jobType JobType, sessionID string, params interface{}) (*Job, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    StatusPending,
		SessionID: sessionID,
		Params:    paramsJSON,
		Progress:  0,
		CreatedAt: time.Now(),
	}

	_, err = q.db.Exec(`
		INSERT INTO jobs (id, type, status, session_id, params, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Type, job.Status, job.SessionID, string(job.Params), job.Progress, job.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	// Push to worker channel
	select {
	case q.pending <- job.ID:
	default:
		log.Printf("[job] queue full, job %s will be picked up on next poll", job.ID)
	}

	return job, nil
}

const jobColumns = `id, type, status, session_id, params, progress, result, error, created_at, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	job := &Job{}
	var params, result sql.NullString
	var startedAt, completedAt sql.NullTime
	var errMsg sql.NullString

	if err := row.Scan(&job.ID, &job.Type, &job.Status, &job.SessionID, &params, &job.Progress,
		&result, &errMsg, &job.CreatedAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	if params.Valid {
		job.Params = json.RawMessage(params.String)
	}
	if result.Valid {
		job.Result = json.RawMessage(result.String)
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

// GetJob retrieves a job by ID
func (q *JobQueue) GetJob(id string) (*Job, error) {
	job, err := scanJob(q.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// ListJobs returns jobs ordered by creation time (newest first). A non-empty
// sessionID restricts the list to that session.
func (q *JobQueue) ListJobs(sessionID string) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// OnCancel registers fn to run after a pending or running job is
// cancelled. Handlers of jobs cancelled before they started never run, so
// owners release their state here.
func (q *JobQueue) OnCancel(fn func(*Job)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onCancel = append(q.onCancel, fn)
}

// CancelJob cancels a pending or running job
func (q *JobQueue) CancelJob(id string) error {
	q.mu.Lock()
	if cancelFn, ok := q.cancels[id]; ok {
		cancelFn()
		delete(q.cancels, id)
	}
	q.mu.Unlock()

	res, err := q.db.Exec(`
		UPDATE jobs SET status = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		StatusCancelled, time.Now(), id, StatusPending, StatusRunning,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	job, err := q.GetJob(id)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	q.mu.RLock()
	hooks := append([]func(*Job){}, q.onCancel...)
	q.mu.RUnlock()
	for _, fn := range hooks {
		fn(job)
	}
	return nil
}

// CancelSession cancels every unfinished job of a session
func (q *JobQueue) CancelSession(sessionID string) {
	rows, err := q.db.Query("SELECT id FROM jobs WHERE session_id = ? AND status IN (?, ?)",
		sessionID, StatusPending, StatusRunning)
	if err != nil {
		log.Printf("[job] failed to list jobs of session %s: %v", sessionID, err)
		return
	}
	var ids []string
	for rows.Next() {
		var id string
		if rows.Scan(&id) == nil {
			ids = append(ids, id)
		}
	}
	rows.Close()

	for _, id := range ids {
		if err := q.CancelJob(id); err != nil {
			log.Printf("[job] failed to cancel job %s: %v", id, err)
		}
	}
}

// UpdateProgress updates the progress of a running job
func (q *JobQueue) UpdateProgress(id string, progress float64) {
	q.db.Exec("UPDATE jobs SET progress = ? WHERE id = ?", progress, id)
}

// Stop shuts down the queue and waits for the worker to exit
func (q *JobQueue) Stop() {
	q.cancel()
	q.wg.Wait()
}

// worker processes jobs from the pending channel one at a time
func (q *JobQueue) worker() {
	defer q.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case jobID := <-q.pending:
			q.processJob(jobID)
		case <-ticker.C:
			q.requeuePending()
		}
	}
}

// processJob runs a single job
func (q *JobQueue) processJob(jobID string) {
	job, err := q.GetJob(jobID)
	if err != nil {
		log.Printf("[job] failed to load job %s: %v", jobID, err)
		return
	}

	// Skip if not pending
	if job.Status != StatusPending {
		return
	}

	// Get handler
	q.mu.RLock()
	handler, ok := q.handlers[job.Type]
	q.mu.RUnlock()

	if !ok {
		log.Printf("[job] no handler for job type %s", job.Type)
		q.failJob(job, fmt.Sprintf("no handler for job type: %s", job.Type))
		return
	}

	// Mark as running
	now := time.Now()
	job.StartedAt = &now
	job.Status = StatusRunning
	q.db.Exec("UPDATE jobs SET status = ?, started_at = ? WHERE id = ?",
		StatusRunning, now, job.ID)

	// Create cancellable context
	ctx, cancelFn := context.WithCancel(q.ctx)
	q.mu.Lock()
	q.cancels[job.ID] = cancelFn
	q.mu.Unlock()

	// Progress callback
	updateProgress := func(progress float64) {
		q.UpdateProgress(job.ID, progress)
	}

	type outcome struct {
		result interface{}
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := handler(ctx, job, updateProgress)
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		log.Printf("[job] job %s cancelled", job.ID)
	case out := <-done:
		if ctx.Err() != nil {
			log.Printf("[job] job %s cancelled", job.ID)
		} else if out.err != nil {
			q.failJob(job, out.err.Error())
		} else {
			q.completeJob(job, out.result)
		}
	}

	// Cleanup cancel func
	q.mu.Lock()
	delete(q.cancels, job.ID)
	q.mu.Unlock()
	cancelFn()
}

func (q *JobQueue) completeJob(job *Job, result interface{}) {
	var resultJSON sql.NullString
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			resultJSON = sql.NullString{String: string(b), Valid: true}
		}
	}
	now := time.Now()
	q.db.Exec("UPDATE jobs SET status = ?, progress = 1.0, result = ?, completed_at = ? WHERE id = ? AND status = ?",
		StatusCompleted, resultJSON, now, job.ID, StatusRunning)
	log.Printf("[job] job %s completed", job.ID)
}

func (q *JobQueue) failJob(job *Job, errMsg string) {
	now := time.Now()
	q.db.Exec("UPDATE jobs SET status = ?, error = ?, completed_at = ? WHERE id = ? AND status IN (?, ?)",
		StatusFailed, errMsg, now, job.ID, StatusPending, StatusRunning)
	log.Printf("[job] job %s failed: %s", job.ID, errMsg)
}

// failStaleJobs marks jobs left over from a previous run as failed
func (q *JobQueue) failStaleJobs() {
	res, err := q.db.Exec("UPDATE jobs SET status = ?, error = ?, completed_at = ? WHERE status IN (?, ?)",
		StatusFailed, "server restarted", time.Now(), StatusPending, StatusRunning)
	if err != nil {
		log.Printf("[job] failed to clean up stale jobs: %v", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[job] marked %d stale jobs as failed", n)
	}
}

// requeuePending pushes pending jobs that did not fit in the channel
func (q *JobQueue) requeuePending() {
	rows, err := q.db.Query("SELECT id FROM jobs WHERE status = ? ORDER BY created_at ASC", StatusPending)
	if err != nil {
		log.Printf("[job] failed to poll jobs: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		select {
		case q.pending <- id:
		default:
			return
		}
	}
}
