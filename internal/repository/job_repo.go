package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobRepository handles job run and job log persistence.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job run.
func (r *JobRepository) Create(ctx context.Context, run *domain.JobRun) error {
	return eris.Wrap(r.db.WithContext(ctx).Create(run).Error, "create job run")
}

// List returns every job run, most recently started first.
func (r *JobRepository) List(ctx context.Context) ([]domain.JobRun, error) {
	var runs []domain.JobRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Order("id DESC").
		Find(&runs).Error
	if err != nil {
		return nil, eris.Wrap(err, "list job runs")
	}
	return runs, nil
}

// GetByID retrieves a job run by its ID, or ErrNotFound.
func (r *JobRepository) GetByID(ctx context.Context, id uint) (*domain.JobRun, error) {
	var run domain.JobRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "get job run %d", id)
	}
	return &run, nil
}

// MarkRunning moves a queued run to running.
// Returns ErrNotFound when the run is missing or no longer queued.
func (r *JobRepository) MarkRunning(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&domain.JobRun{}).
		Where("id = ? AND status = ?", id, domain.JobStatusQueued).
		Updates(map[string]interface{}{
			"status":   domain.JobStatusRunning,
			"progress": 0,
		})
	if res.Error != nil {
		return eris.Wrapf(res.Error, "mark job run %d running", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProgress records progress for a running run, clamped to 0..100.
func (r *JobRepository) UpdateProgress(ctx context.Context, id uint, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	err := r.db.WithContext(ctx).Model(&domain.JobRun{}).
		Where("id = ? AND status = ?", id, domain.JobStatusRunning).
		Update("progress", progress).Error
	return eris.Wrapf(err, "update job run %d progress", id)
}

// Finish moves a run to a terminal status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: job run ID.
//   - status: JobStatusDone or JobStatusFailed.
//   - at: completion time.
//   - errMsg: failure reason; ignored for done.
// Returns:
//   - error: non-nil if the update fails.
func (r *JobRepository) Finish(ctx context.Context, id uint, status domain.JobStatus, at time.Time, errMsg string) error {
	if !status.IsTerminal() {
		return eris.Errorf("job status %q is not terminal", status)
	}
	fields := map[string]interface{}{
		"status":      status,
		"finished_at": at,
	}
	if status == domain.JobStatusDone {
		fields["progress"] = 100
		fields["error"] = nil
	} else {
		fields["error"] = errMsg
	}
	err := r.db.WithContext(ctx).Model(&domain.JobRun{}).Where("id = ?", id).Updates(fields).Error
	return eris.Wrapf(err, "finish job run %d", id)
}

// AppendLog adds a log line to a run.
func (r *JobRepository) AppendLog(ctx context.Context, id uint, line string, at time.Time) error {
	entry := domain.JobLog{JobRunID: id, Line: line, Timestamp: at}
	return eris.Wrapf(r.db.WithContext(ctx).Create(&entry).Error, "append log to job run %d", id)
}

// ListLogs returns the log lines of a run in write order.
func (r *JobRepository) ListLogs(ctx context.Context, id uint) ([]domain.JobLog, error) {
	var logs []domain.JobLog
	err := r.db.WithContext(ctx).
		Where("job_run_id = ?", id).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}).
		Order("id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, eris.Wrapf(err, "list logs of job run %d", id)
	}
	return logs, nil
}
