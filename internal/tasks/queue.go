// internal/tasks/queue.go
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownTask means no handler is registered under the given name.
	ErrUnknownTask = errors.New("unknown task")

	// ErrQueueFull means the submission buffer is full. Callers either
	// surface it or degrade to running without the background job.
	ErrQueueFull = errors.New("task queue is full")

	// ErrAwaitTimeout means the job did not finish within the wait window.
	// The job itself keeps running.
	ErrAwaitTimeout = errors.New("timed out waiting for task")
)

// Queue runs registered handlers on a fixed worker pool. Jobs are kept in
// memory; PruneFinished discards old terminal ones.
type Queue struct {
	logger  *slog.Logger
	workers int
	ch      chan *Job

	mu       sync.Mutex
	handlers map[string]Handler
	jobs     map[uuid.UUID]*Job
}

func NewQueue(workers, size int, logger *slog.Logger) *Queue {
	return &Queue{
		logger:   logger,
		workers:  workers,
		ch:       make(chan *Job, size),
		handlers: make(map[string]Handler),
		jobs:     make(map[uuid.UUID]*Job),
	}
}

// Register installs the handler for a task name. Registration happens at
// startup, before Start.
func (q *Queue) Register(name string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = h
}

// Start runs the worker pool until ctx is canceled and the workers have
// drained. It blocks, so callers run it in a goroutine or errgroup.
func (q *Queue) Start(ctx context.Context) error {
	q.logger.Info("starting task workers", "workers", q.workers, "queue_size", cap(q.ch))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			q.worker(gctx)
			return nil
		})
	}
	err := g.Wait()
	q.logger.Info("task workers stopped", "reason", ctx.Err())
	return err
}

func (q *Queue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.ch:
			q.run(ctx, job)
		}
	}
}

func (q *Queue) run(ctx context.Context, job *Job) {
	if job.isRevoked() {
		return
	}

	q.mu.Lock()
	handler := q.handlers[job.Name]
	q.mu.Unlock()

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	job.markStarted(cancel)

	logger := q.logger.With("task", job.Name, "job_id", job.ID)
	logger.Info("task started")

	result, err := handler(jobCtx, job)
	job.finish(result, err)

	if err != nil {
		logger.Error("task finished with error", "status", job.Status(), "error", err)
	} else {
		logger.Info("task finished")
	}
}

// Enqueue submits a job without blocking. It fails fast with ErrQueueFull
// when the buffer is full and ErrUnknownTask for an unregistered name.
func (q *Queue) Enqueue(name string, payload any) (*Job, error) {
	q.mu.Lock()
	_, ok := q.handlers[name]
	q.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	job := newJob(name, payload)

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.mu.Unlock()

	select {
	case q.ch <- job:
		q.logger.Debug("task enqueued", "task", name, "job_id", job.ID)
		return job, nil
	default:
		q.mu.Lock()
		delete(q.jobs, job.ID)
		q.mu.Unlock()
		return nil, fmt.Errorf("%w: dropping %s", ErrQueueFull, name)
	}
}

// Get looks up a job by id.
func (q *Queue) Get(id uuid.UUID) (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	return job, ok
}

// List returns snapshots of every tracked job, newest first.
func (q *Queue) List() []View {
	q.mu.Lock()
	views := make([]View, 0, len(q.jobs))
	for _, job := range q.jobs {
		views = append(views, job.Snapshot())
	}
	q.mu.Unlock()

	sort.Slice(views, func(i, j int) bool { return views[i].EnqueuedAt.After(views[j].EnqueuedAt) })
	return views
}

// Await blocks until the job finishes or the timeout elapses. On timeout
// the job keeps running and ErrAwaitTimeout is returned alongside the job.
func (q *Queue) Await(ctx context.Context, id uuid.UUID, timeout time.Duration) (*Job, error) {
	job, ok := q.Get(id)
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-job.Done():
		return job, nil
	case <-timer.C:
		return job, ErrAwaitTimeout
	case <-ctx.Done():
		return job, ctx.Err()
	}
}

// Revoke cancels a job: a pending one is dropped, a running one has its
// context canceled. Returns false when the job is unknown or already done.
func (q *Queue) Revoke(id uuid.UUID) bool {
	job, ok := q.Get(id)
	if !ok {
		return false
	}
	if job.revoke() {
		q.logger.Info("task revoked", "task", job.Name, "job_id", id)
		return true
	}
	return false
}

// PruneFinished discards terminal jobs that finished more than keep ago.
// Returns the number removed.
func (q *Queue) PruneFinished(keep time.Duration) int {
	cutoff := time.Now().Add(-keep)

	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	for id, job := range q.jobs {
		v := job.Snapshot()
		if v.Status.Terminal() && v.FinishedAt != nil && v.FinishedAt.Before(cutoff) {
			delete(q.jobs, id)
			removed++
		}
	}
	return removed
}
