// internal/tasks/job.go
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle of a background job:
// pending → started → success|failure, or revoked before/while running.
type Status string

const (
	StatusPending Status = "pending"
	StatusStarted Status = "started"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusRevoked Status = "revoked"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure || s == StatusRevoked
}

// Handler executes one job. The returned value becomes the job result; a
// returned error marks the job failed. Handlers should honor ctx, which is
// canceled on shutdown and on Revoke.
type Handler func(ctx context.Context, job *Job) (any, error)

// Job is one unit of background work. Handlers report progress through it;
// the API layer reads snapshots of it.
type Job struct {
	ID      uuid.UUID
	Name    string
	Payload any

	mu         sync.Mutex
	status     Status
	progress   int
	message    string
	result     any
	errMsg     string
	revoked    bool
	enqueuedAt time.Time
	startedAt  *time.Time
	finishedAt *time.Time
	cancel     context.CancelFunc

	done chan struct{}
}

func newJob(name string, payload any) *Job {
	return &Job{
		ID:         uuid.New(),
		Name:       name,
		Payload:    payload,
		status:     StatusPending,
		enqueuedAt: time.Now(),
		done:       make(chan struct{}),
	}
}

// ReportProgress records completion percentage and an optional message.
// Progress never goes backwards; values are clamped to [0,100].
func (j *Job) ReportProgress(pct int, message string) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if pct > j.progress {
		j.progress = pct
	}
	if message != "" {
		j.message = message
	}
}

// Done is closed once the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) markStarted(cancel context.CancelFunc) {
	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusStarted
	j.startedAt = &now
	j.cancel = cancel
}

func (j *Job) finish(result any, err error) {
	now := time.Now()
	j.mu.Lock()
	switch {
	case err == nil:
		j.status = StatusSuccess
		j.progress = 100
		j.result = result
	case j.revoked:
		j.status = StatusRevoked
		j.errMsg = err.Error()
	default:
		j.status = StatusFailure
		j.errMsg = err.Error()
	}
	j.finishedAt = &now
	j.cancel = nil
	j.mu.Unlock()
	close(j.done)
}

// revoke marks the job revoked. For a pending job it is finalized
// immediately; for a started job the handler context is canceled and the
// worker finalizes it when the handler returns.
func (j *Job) revoke() bool {
	j.mu.Lock()
	if j.status.Terminal() {
		j.mu.Unlock()
		return false
	}
	j.revoked = true
	if j.status == StatusPending {
		now := time.Now()
		j.status = StatusRevoked
		j.finishedAt = &now
		j.mu.Unlock()
		close(j.done)
		return true
	}
	cancel := j.cancel
	j.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return true
}

func (j *Job) isRevoked() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.revoked
}

// View is an immutable snapshot of a job for API responses.
type View struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     Status     `json:"status"`
	Progress   int        `json:"progress"`
	Message    string     `json:"message,omitempty"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Snapshot returns the job's current state.
func (j *Job) Snapshot() View {
	j.mu.Lock()
	defer j.mu.Unlock()
	return View{
		ID:         j.ID.String(),
		Name:       j.Name,
		Status:     j.status,
		Progress:   j.progress,
		Message:    j.message,
		Result:     j.result,
		Error:      j.errMsg,
		EnqueuedAt: j.enqueuedAt,
		StartedAt:  j.startedAt,
		FinishedAt: j.finishedAt,
	}
}

// Status returns the job's current status.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}
