package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of background work, typically an export job identified by
// its persisted ID. Attempt counts prior failed deliveries.
type Job struct {
	ID         string
	Type       string
	Attempt    int
	EnqueuedAt time.Time
}

// Handler processes a job. A non-nil error schedules a retry until the
// queue's retry budget is spent.
type Handler func(context.Context, Job) error

// QueueConfig configures the worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

func (cfg QueueConfig) withDefaults() QueueConfig {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}

// Queue is an in-process job dispatcher. Jobs survive only as long as the
// process; callers that need durability persist job state themselves and
// re-enqueue on startup.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig

	jobs chan Job
	wg   sync.WaitGroup

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewQueue builds a named queue that delivers jobs to handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the worker pool. Subsequent calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.started = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
	q.cfg.Logger.Sugar().Infow("job queue started", "queue", q.name, "workers", q.cfg.Workers)
}

// Stop cancels the pool and blocks until every worker has exited.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.cfg.Logger.Sugar().Infow("job queue stopped", "queue", q.name)
}

// Enqueue submits a job, blocking while the buffer is full. It fails when the
// queue has not been started or has been stopped.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx, started := q.ctx, q.started
	q.mu.Unlock()
	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}

	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.retry(job, err)
			}
		}
	}
}

// retry requeues a failed job after the configured delay, dropping it once
// the retry budget is spent.
func (q *Queue) retry(job Job, cause error) {
	job.Attempt++
	log := q.cfg.Logger.Sugar()
	if job.Attempt > q.cfg.MaxRetries {
		log.Errorw("job dropped after retries",
			"queue", q.name, "job_id", job.ID, "type", job.Type, "attempts", job.Attempt-1, "error", cause)
		return
	}
	log.Warnw("job failed, scheduling retry",
		"queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", cause)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(job); err != nil {
				log.Errorw("job requeue failed", "queue", q.name, "job_id", job.ID, "error", err)
			}
		}
	}()
}
