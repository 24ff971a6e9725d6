package job

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lazvid/backend/internal/db"
)

func newTestQueue(t *testing.T) (*JobQueue, *db.Database) {
	t.Helper()
	d, err := db.NewSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatal(err)
	}
	q := NewJobQueue(d.DB())
	t.Cleanup(func() {
		q.Stop()
		d.Close()
	})
	return q, d
}

func waitDone(t *testing.T, q *JobQueue, id string) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := q.GetJob(id)
		if err != nil {
			t.Fatal(err)
		}
		if j.Done() {
			return j
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

func TestJobCompletes(t *testing.T) {
	q, _ := newTestQueue(t)
	q.RegisterHandler(JobTranscript, func(ctx context.Context, j *Job, progress func(float64)) (interface{}, error) {
		var p GenerateParams
		if err := json.Unmarshal(j.Params, &p); err != nil {
			return nil, err
		}
		progress(0.5)
		return GenerateResult{Segments: 3, Chars: len(p.TargetLanguage)}, nil
	})

	j, err := q.Enqueue(JobTranscript, "sess-1", GenerateParams{Generation: 2, TargetLanguage: "English"})
	if err != nil {
		t.Fatal(err)
	}
	done := waitDone(t, q, j.ID)
	if done.Status != StatusCompleted || done.Progress != 1 {
		t.Fatalf("job = %+v", done)
	}
	var res GenerateResult
	if err := json.Unmarshal(done.Result, &res); err != nil {
		t.Fatal(err)
	}
	if res.Segments != 3 || res.Chars != 7 {
		t.Errorf("result = %+v", res)
	}

	list, _ := q.ListJobs("sess-1")
	if len(list) != 1 || list[0].SessionID != "sess-1" {
		t.Errorf("list = %+v", list)
	}
	if other, _ := q.ListJobs("sess-2"); len(other) != 0 {
		t.Errorf("other session jobs = %+v", other)
	}
}

func TestJobFails(t *testing.T) {
	q, _ := newTestQueue(t)
	q.RegisterHandler(JobRefine, func(ctx context.Context, j *Job, progress func(float64)) (interface{}, error) {
		return nil, errors.New("boom")
	})

	j, _ := q.Enqueue(JobRefine, "s", GenerateParams{})
	done := waitDone(t, q, j.ID)
	if done.Status != StatusFailed || done.Error != "boom" {
		t.Errorf("job = %+v", done)
	}

	j2, _ := q.Enqueue(JobSummary, "s", GenerateParams{})
	if done := waitDone(t, q, j2.ID); done.Status != StatusFailed {
		t.Errorf("unhandled type should fail, got %+v", done)
	}
}

func TestCancelRunningJob(t *testing.T) {
	q, _ := newTestQueue(t)
	started := make(chan struct{})
	stopped := make(chan struct{})
	q.RegisterHandler(JobTranscript, func(ctx context.Context, j *Job, progress func(float64)) (interface{}, error) {
		close(started)
		<-ctx.Done()
		close(stopped)
		return nil, ctx.Err()
	})

	j, _ := q.Enqueue(JobTranscript, "s", GenerateParams{})
	<-started
	q.CancelSession("s")

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("handler context was not cancelled")
	}
	if done := waitDone(t, q, j.ID); done.Status != StatusCancelled {
		t.Errorf("status = %s", done.Status)
	}

	if err := q.CancelJob("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CancelJob(missing) = %v", err)
	}
}

func TestStaleJobsFailOnStartup(t *testing.T) {
	d, err := db.NewSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	_, err = d.DB().Exec(`INSERT INTO jobs (id, type, status, session_id, params) VALUES ('old', 'transcript', 'running', 's', '{}')`)
	if err != nil {
		t.Fatal(err)
	}

	q := NewJobQueue(d.DB())
	defer q.Stop()

	j, err := q.GetJob("old")
	if err != nil {
		t.Fatal(err)
	}
	if j.Status != StatusFailed || j.Error != "server restarted" {
		t.Errorf("job = %+v", j)
	}
}

func TestOnCancelHook(t *testing.T) {
	q, _ := newTestQueue(t)
	release := make(chan struct{})
	q.RegisterHandler(JobTranscript, func(ctx context.Context, j *Job, progress func(float64)) (interface{}, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, nil
	})
	var cancelled []string
	q.OnCancel(func(j *Job) { cancelled = append(cancelled, j.ID) })

	busy, _ := q.Enqueue(JobTranscript, "a", GenerateParams{})
	queued, _ := q.Enqueue(JobTranscript, "b", GenerateParams{Generation: 3})

	if err := q.CancelJob(queued.ID); err != nil {
		t.Fatal(err)
	}
	if len(cancelled) != 1 || cancelled[0] != queued.ID {
		t.Fatalf("hook saw %v", cancelled)
	}
	// already final: no second notification
	if err := q.CancelJob(queued.ID); err != nil {
		t.Fatal(err)
	}
	if len(cancelled) != 1 {
		t.Errorf("hook fired again: %v", cancelled)
	}

	close(release)
	waitDone(t, q, busy.ID)
	if done := waitDone(t, q, queued.ID); done.Status != StatusCancelled {
		t.Errorf("queued status = %s", done.Status)
	}
}
