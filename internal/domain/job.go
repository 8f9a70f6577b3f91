package domain

import "time"

// JobStatus represents the lifecycle state of a job run.
// Runs move queued -> running -> done | failed.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// IsTerminal reports whether no further transition is expected.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// JobType names the kind of background work a run performs.
type JobType string

const (
	JobTypeRDAPIngestion     JobType = "RDAP Ingestion"
	JobTypeRoutingSnapshot   JobType = "Routing Snapshot"
	JobTypeReputationScan    JobType = "Reputation Scan"
	JobTypeCompanyEnrichment JobType = "Company Enrichment"
	JobTypeScoringRun        JobType = "Scoring Run"
	JobTypeFullPipeline      JobType = "Full Pipeline"
)

// dispatchable job types have a worker-side handler.
var dispatchable = map[JobType]bool{
	JobTypeRDAPIngestion: true,
}

// IsDispatchable reports whether runs of this type are handed to the work queue.
func (t JobType) IsDispatchable() bool {
	return dispatchable[t]
}

// JobRun records one execution of a background task.
type JobRun struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Type       JobType    `gorm:"type:text;not null" json:"type"`
	Status     JobStatus  `gorm:"type:text;not null;default:queued;index:idx_job_runs_status" json:"status"`
	StartedAt  time.Time  `gorm:"index:idx_job_runs_started_at" json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
	Progress   int        `gorm:"not null;default:0" json:"progress"`
	Error      *string    `gorm:"type:text" json:"error"`
}

// TableName returns the database table name for JobRun.
func (JobRun) TableName() string {
	return "job_runs"
}

// JobLog is one append-only log line of a job run.
type JobLog struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	JobRunID  uint      `gorm:"not null;index:idx_job_logs_job_run_id" json:"-"`
	JobRun    *JobRun   `gorm:"foreignKey:JobRunID;constraint:OnDelete:CASCADE" json:"-"`
	Line      string    `gorm:"type:text" json:"line"`
	Timestamp time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

// TableName returns the database table name for JobLog.
func (JobLog) TableName() string {
	return "job_logs"
}
