package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"github.com/timmy/ipv4-deal-os/internal/repository"
	"github.com/timmy/ipv4-deal-os/internal/repository/repotest"
)

func TestJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewJobRepository(repotest.NewDB(t))

	run := &domain.JobRun{Type: domain.JobTypeRDAPIngestion, Status: domain.JobStatusQueued, StartedAt: base}
	require.NoError(t, repo.Create(ctx, run))

	require.NoError(t, repo.MarkRunning(ctx, run.ID))
	assert.True(t, eris.Is(repo.MarkRunning(ctx, run.ID), repository.ErrNotFound), "only queued runs can start")

	require.NoError(t, repo.UpdateProgress(ctx, run.ID, 140))
	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusRunning, got.Status)
	assert.Equal(t, 100, got.Progress)

	finished := base.Add(time.Minute)
	require.NoError(t, repo.Finish(ctx, run.ID, domain.JobStatusFailed, finished, "rdap timeout"))
	got, err = repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(finished))
	require.NotNil(t, got.Error)
	assert.Equal(t, "rdap timeout", *got.Error)

	assert.Error(t, repo.Finish(ctx, run.ID, domain.JobStatusRunning, finished, ""))
}

func TestJobRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewJobRepository(repotest.NewDB(t))

	for i, jt := range []domain.JobType{domain.JobTypeRDAPIngestion, domain.JobTypeScoringRun, domain.JobTypeFullPipeline} {
		require.NoError(t, repo.Create(ctx, &domain.JobRun{
			Type:      jt,
			Status:    domain.JobStatusQueued,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, domain.JobTypeFullPipeline, runs[0].Type)
	assert.Equal(t, domain.JobTypeRDAPIngestion, runs[2].Type)
}

func TestJobRepository_Logs(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewJobRepository(repotest.NewDB(t))

	run := &domain.JobRun{Type: domain.JobTypeRDAPIngestion, Status: domain.JobStatusQueued, StartedAt: base}
	require.NoError(t, repo.Create(ctx, run))

	require.NoError(t, repo.AppendLog(ctx, run.ID, "second", base.Add(2*time.Second)))
	require.NoError(t, repo.AppendLog(ctx, run.ID, "first", base.Add(time.Second)))

	logs, err := repo.ListLogs(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "first", logs[0].Line)
	assert.Equal(t, "second", logs[1].Line)

	_, err = repo.GetByID(ctx, run.ID+1)
	assert.True(t, eris.Is(err, repository.ErrNotFound))
}
