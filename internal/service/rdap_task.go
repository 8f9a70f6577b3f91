package service

import (
	"context"
	"time"
)

// RDAPIngestionTask stands in for RDAP ingestion. It walks through a fixed
// number of steps over Duration, reporting progress, and writes no registry data.
// TODO: fetch the IANA RDAP bootstrap and upsert blocks/organizations once a registry client exists.
type RDAPIngestionTask struct {
	Duration time.Duration
	Steps    int
}

func (t *RDAPIngestionTask) Run(ctx context.Context, job *JobContext) error {
	steps := t.Steps
	if steps <= 0 {
		steps = 10
	}
	interval := t.Duration / time.Duration(steps)

	if err := job.Logf(ctx, "Processing RDAP Ingestion for job %d", job.RunID); err != nil {
		return err
	}
	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		if err := job.Progress(ctx, i*100/steps); err != nil {
			return err
		}
	}
	return job.Logf(ctx, "RDAP ingestion placeholder finished; no registry data fetched")
}
