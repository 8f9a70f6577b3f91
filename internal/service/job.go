package service

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"github.com/timmy/ipv4-deal-os/internal/logger"
	"github.com/timmy/ipv4-deal-os/internal/queue"
)

// ErrInvalidJobType is returned when a dispatch request names no job type.
var ErrInvalidJobType = eris.New("job type is required")

// JobStore is the persistence used by JobService and Worker.
type JobStore interface {
	Create(ctx context.Context, run *domain.JobRun) error
	List(ctx context.Context) ([]domain.JobRun, error)
	GetByID(ctx context.Context, id uint) (*domain.JobRun, error)
	MarkRunning(ctx context.Context, id uint) error
	UpdateProgress(ctx context.Context, id uint, progress int) error
	Finish(ctx context.Context, id uint, status domain.JobStatus, at time.Time, errMsg string) error
	AppendLog(ctx context.Context, id uint, line string, at time.Time) error
	ListLogs(ctx context.Context, id uint) ([]domain.JobLog, error)
}

// JobService records job runs and hands dispatchable ones to the work queue.
type JobService struct {
	store JobStore
	queue queue.Queue
	now   Clock
}

// NewJobService creates a JobService. A nil clock uses SystemClock.
func NewJobService(store JobStore, q queue.Queue, now Clock) *JobService {
	return &JobService{store: store, queue: q, now: orSystemClock(now)}
}

// Run creates a queued job run and, for dispatchable types, enqueues it.
// It returns without waiting for the job to execute.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobType: job kind name; unknown kinds are recorded but not dispatched.
// Returns:
//   - *domain.JobRun: the created run.
//   - error: non-nil if the run could not be stored or enqueued.
func (s *JobService) Run(ctx context.Context, jobType domain.JobType) (*domain.JobRun, error) {
	if jobType == "" {
		return nil, ErrInvalidJobType
	}

	run := &domain.JobRun{
		Type:      jobType,
		Status:    domain.JobStatusQueued,
		StartedAt: s.now(),
		Progress:  0,
	}
	if err := s.store.Create(ctx, run); err != nil {
		return nil, err
	}

	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldJobID:   run.ID,
		logger.FieldJobType: string(jobType),
	})

	if !jobType.IsDispatchable() {
		logger.CtxWarn(ctx, "No worker handles job type %q; run recorded without dispatch", jobType)
		return run, nil
	}

	task := queue.Task{JobID: run.ID, Type: jobType, EnqueuedAt: run.StartedAt}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		msg := "enqueue failed: " + err.Error()
		if ferr := s.store.Finish(ctx, run.ID, domain.JobStatusFailed, s.now(), msg); ferr != nil {
			logger.FromContext(ctx).WithError(ferr).Error("Failed to mark undispatched job run as failed")
		}
		return nil, eris.Wrapf(err, "dispatch job run %d", run.ID)
	}

	logger.CtxInfo(ctx, "Job run queued")
	return run, nil
}

// List returns all job runs, newest first.
func (s *JobService) List(ctx context.Context) ([]domain.JobRun, error) {
	return s.store.List(ctx)
}

// Logs returns the log lines of one run, or ErrNotFound if the run is missing.
func (s *JobService) Logs(ctx context.Context, id uint) ([]domain.JobLog, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListLogs(ctx, id)
}
