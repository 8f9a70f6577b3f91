package service

import (
	"testing"
	"time"

	"github.com/timmy/ipv4-deal-os/internal/repository"
	"github.com/timmy/ipv4-deal-os/internal/repository/repotest"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

type testRepos struct {
	leads     *repository.LeadRepository
	inventory *repository.InventoryRepository
	jobs      *repository.JobRepository
}

func newTestRepos(t *testing.T) testRepos {
	t.Helper()
	db := repotest.NewDB(t)
	return testRepos{
		leads:     repository.NewLeadRepository(db),
		inventory: repository.NewInventoryRepository(db),
		jobs:      repository.NewJobRepository(db),
	}
}

func daysAgo(n int) time.Time {
	return testNow.Add(-time.Duration(n) * 24 * time.Hour)
}
