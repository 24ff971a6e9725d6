package job

import (
	"context"
	"encoding/json"
	"time"
)

// JobType represents the kind of job
type JobType string

const (
	JobTranscript JobType = "transcript"
	JobRefine     JobType = "refine"
	JobSummary    JobType = "summary"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job is a queued generation request for one session. Generated text stays
// in the session; only a small summary is stored in Result.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	SessionID   string          `json:"session_id"`
	Params      json.RawMessage `json:"params"`
	Progress    float64         `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Done reports whether the job reached a final status.
func (j *Job) Done() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// GenerateParams are parameters shared by all generation jobs
type GenerateParams struct {
	Generation     uint64 `json:"generation"`      // session generation the result belongs to
	Run            uint64 `json:"run"`             // task run within that generation
	TargetLanguage string `json:"target_language"` // e.g. "English"
	Model          string `json:"model,omitempty"`
}

// GenerateResult is the output of a successful generation job
type GenerateResult struct {
	Segments  int     `json:"segments,omitempty"` // transcript jobs only
	Chars     int     `json:"chars"`
	Discarded bool    `json:"discarded,omitempty"` // superseded by a reset or newer job
	Duration  float64 `json:"duration"`            // processing time in seconds
}

// JobHandler processes a job and returns a JSON-encodable result.
type JobHandler func(ctx context.Context, job *Job, updateProgress func(float64)) (interface{}, error)
