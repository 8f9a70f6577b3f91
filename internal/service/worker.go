package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"github.com/timmy/ipv4-deal-os/internal/logger"
	"github.com/timmy/ipv4-deal-os/internal/queue"
	"github.com/timmy/ipv4-deal-os/internal/repository"
	"golang.org/x/sync/errgroup"
)

// TaskHandler executes one kind of job.
type TaskHandler interface {
	Run(ctx context.Context, job *JobContext) error
}

// TaskHandlerFunc adapts a function to TaskHandler.
type TaskHandlerFunc func(ctx context.Context, job *JobContext) error

func (f TaskHandlerFunc) Run(ctx context.Context, job *JobContext) error {
	return f(ctx, job)
}

// Beater records worker liveness.
type Beater interface {
	Beat(ctx context.Context, workerID string, ttl time.Duration) error
}

// JobContext is handed to a TaskHandler for reporting progress and log lines.
type JobContext struct {
	RunID uint
	Type  domain.JobType
	store JobStore
	now   Clock
}

// Progress records completion percentage (0..100).
func (j *JobContext) Progress(ctx context.Context, pct int) error {
	return j.store.UpdateProgress(ctx, j.RunID, pct)
}

// Logf appends a line to the run's log.
func (j *JobContext) Logf(ctx context.Context, format string, args ...interface{}) error {
	line := fmt.Sprintf(format, args...)
	logger.CtxDebug(ctx, "job log: %s", line)
	return j.store.AppendLog(ctx, j.RunID, line, j.now())
}

// WorkerConfig holds worker loop settings.
type WorkerConfig struct {
	Concurrency       int
	PollTimeout       time.Duration
	HeartbeatInterval time.Duration
}

// Worker pulls tasks from the queue and drives job runs through
// queued -> running -> done | failed.
type Worker struct {
	id        string
	store     JobStore
	queue     queue.Queue
	heartbeat Beater
	handlers  map[domain.JobType]TaskHandler
	cfg       WorkerConfig
	now       Clock
}

// NewWorker creates a Worker. heartbeat may be nil.
func NewWorker(store JobStore, q queue.Queue, heartbeat Beater, cfg *WorkerConfig, now Clock) *Worker {
	c := WorkerConfig{Concurrency: 1, PollTimeout: 5 * time.Second, HeartbeatInterval: 10 * time.Second}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			c.Concurrency = cfg.Concurrency
		}
		if cfg.PollTimeout > 0 {
			c.PollTimeout = cfg.PollTimeout
		}
		if cfg.HeartbeatInterval > 0 {
			c.HeartbeatInterval = cfg.HeartbeatInterval
		}
	}
	return &Worker{
		id:        uuid.NewString(),
		store:     store,
		queue:     q,
		heartbeat: heartbeat,
		handlers:  make(map[domain.JobType]TaskHandler),
		cfg:       c,
		now:       orSystemClock(now),
	}
}

// Register binds a handler to a job type. Not safe to call after Run.
func (w *Worker) Register(jobType domain.JobType, h TaskHandler) {
	w.handlers[jobType] = h
}

// Run consumes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldComponent: "worker",
		logger.FieldWorkerID:  w.id,
	})
	logger.CtxInfo(ctx, "Worker started: concurrency=%d", w.cfg.Concurrency)

	g, ctx := errgroup.WithContext(ctx)
	if w.heartbeat != nil {
		g.Go(func() error {
			w.beatLoop(ctx)
			return nil
		})
	}
	for i := 0; i < w.cfg.Concurrency; i++ {
		g.Go(func() error {
			return w.consume(ctx)
		})
	}

	err := g.Wait()
	logger.CtxInfo(ctx, "Worker stopped")
	if eris.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) consume(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		task, err := w.queue.Dequeue(ctx, w.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if eris.Is(err, queue.ErrClosed) {
				return nil
			}
			logger.FromContext(ctx).WithError(err).Warn("Dequeue failed")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		if task == nil {
			continue
		}
		if err := w.Process(ctx, *task); err != nil {
			logger.FromContext(ctx).WithError(err).WithField(logger.FieldJobID, task.JobID).Error("Job processing failed")
		}
	}
}

func (w *Worker) beatLoop(ctx context.Context) {
	ttl := 3 * w.cfg.HeartbeatInterval
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		if err := w.heartbeat.Beat(ctx, w.id, ttl); err != nil && ctx.Err() == nil {
			logger.FromContext(ctx).WithError(err).Warn("Heartbeat failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Process executes one task and records every state transition.
// A task whose run is missing or no longer queued is skipped.
// The returned error reports store failures only; handler failures are
// recorded on the run.
func (w *Worker) Process(ctx context.Context, task queue.Task) error {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldJobID:   task.JobID,
		logger.FieldJobType: string(task.Type),
	})

	if err := w.store.MarkRunning(ctx, task.JobID); err != nil {
		if eris.Is(err, repository.ErrNotFound) {
			logger.CtxWarn(ctx, "Skipping task: job run missing or not queued")
			return nil
		}
		return err
	}

	jc := &JobContext{RunID: task.JobID, Type: task.Type, store: w.store, now: w.now}
	w.appendLog(ctx, jc, "Job started on worker %s", w.id)

	start := time.Now()
	runErr := w.execute(ctx, jc)

	// Terminal writes must land even when shutdown cancelled ctx
	final := context.WithoutCancel(ctx)
	if runErr != nil {
		w.appendLog(final, jc, "Job failed: %v", runErr)
		logger.With(logger.Fields{logger.FieldStatus: string(domain.JobStatusFailed)}).
			WithDuration(time.Since(start).Milliseconds()).
			Warn(ctx, "Job failed: %v", runErr)
		return w.store.Finish(final, task.JobID, domain.JobStatusFailed, w.now(), runErr.Error())
	}

	w.appendLog(final, jc, "Job complete")
	logger.With(logger.Fields{logger.FieldStatus: string(domain.JobStatusDone)}).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "Job complete")
	return w.store.Finish(final, task.JobID, domain.JobStatusDone, w.now(), "")
}

// appendLog writes a lifecycle line to the run's log. A failed write is
// logged and does not change the run's outcome.
func (w *Worker) appendLog(ctx context.Context, jc *JobContext, format string, args ...interface{}) {
	if err := jc.Logf(ctx, format, args...); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to write job log")
	}
}

func (w *Worker) execute(ctx context.Context, jc *JobContext) (err error) {
	h, ok := w.handlers[jc.Type]
	if !ok {
		return eris.Errorf("no handler registered for job type %q", jc.Type)
	}
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("handler panic: %v", r)
		}
	}()
	return h.Run(ctx, jc)
}
