package service

import (
	"context"
	"time"

	"github.com/timmy/ipv4-deal-os/internal/logger"
)

// Pinger checks connectivity to a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// LivenessChecker reports whether a worker has recently checked in.
type LivenessChecker interface {
	Alive(ctx context.Context) (bool, error)
}

// HealthReport is the liveness payload served at /api/health.
type HealthReport struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Worker   string `json:"worker"`
}

// HealthService probes the store, the queue broker and worker liveness.
// Probe failures are reported as "error" values, never returned.
type HealthService struct {
	database Pinger
	broker   Pinger
	workers  LivenessChecker
	timeout  time.Duration
}

// NewHealthService creates a HealthService. broker and workers may be nil.
func NewHealthService(database, broker Pinger, workers LivenessChecker) *HealthService {
	return &HealthService{database: database, broker: broker, workers: workers, timeout: 2 * time.Second}
}

// Check runs every probe and returns the report.
func (s *HealthService) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report := HealthReport{Status: "ok", Database: "connected", Redis: "connected", Worker: "active"}

	if err := s.database.Ping(ctx); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Database health probe failed")
		report.Database = "error"
	}

	if s.broker == nil {
		report.Redis = "disabled"
	} else if err := s.broker.Ping(ctx); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Redis health probe failed")
		report.Redis = "error"
	}

	switch {
	case s.workers == nil:
		report.Worker = "unknown"
	default:
		alive, err := s.workers.Alive(ctx)
		if err != nil {
			report.Worker = "error"
		} else if !alive {
			report.Worker = "inactive"
		}
	}

	return report
}
