package service

import (
	"context"
	"time"

	"github.com/timmy/ipv4-deal-os/internal/domain"
	"github.com/timmy/ipv4-deal-os/internal/logger"
)

const (
	trendWindow    = 30 * 24 * time.Hour
	recentWindow   = 24 * time.Hour
	defaultUrgentN = 5
	defaultUnitUSD = 52.5
)

// LeadStats is the lead-side read model used by MetricsService.
type LeadStats interface {
	Count(ctx context.Context) (int64, error)
	CountByStage(ctx context.Context, stage domain.Stage) (int64, error)
	SumSizeExcludingStage(ctx context.Context, stage domain.Stage) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	ListDueFollowups(ctx context.Context, now time.Time, limit int) ([]domain.Lead, error)
}

// InventoryStats is the inventory-side read model used by MetricsService.
type InventoryStats interface {
	SumBlockSize(ctx context.Context) (int64, error)
	SumBlockSizeSince(ctx context.Context, since time.Time) (int64, error)
	SumBlockSizeBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountSnapshotsSince(ctx context.Context, since time.Time) (int64, error)
}

// MetricsConfig holds pricing and list-size settings for the dashboard.
type MetricsConfig struct {
	UnitPriceUSD        float64
	UrgentFollowupLimit int
}

// Metrics is one dashboard snapshot.
type Metrics struct {
	TotalInventoryIPs int64
	// ActiveLeads counts every lead, closed ones included.
	ActiveLeads       int64
	InventoryTrend30d float64
	ConversionRate    float64
	PipelineValueUSD  float64
	UrgentFollowups   []domain.Lead
	RoutingShifts24h  int64
	NewCandidates24h  int64
}

// MetricsService derives pipeline and inventory statistics from the store.
type MetricsService struct {
	leads     LeadStats
	inventory InventoryStats
	cfg       MetricsConfig
	now       Clock
}

// NewMetricsService creates a MetricsService. A nil clock uses SystemClock.
func NewMetricsService(leads LeadStats, inventory InventoryStats, cfg *MetricsConfig, now Clock) *MetricsService {
	c := MetricsConfig{UnitPriceUSD: defaultUnitUSD, UrgentFollowupLimit: defaultUrgentN}
	if cfg != nil {
		c = *cfg
		if c.UrgentFollowupLimit <= 0 {
			c.UrgentFollowupLimit = defaultUrgentN
		}
	}
	return &MetricsService{
		leads:     leads,
		inventory: inventory,
		cfg:       c,
		now:       orSystemClock(now),
	}
}

// Compute reads the store and returns the current dashboard metrics.
func (s *MetricsService) Compute(ctx context.Context) (*Metrics, error) {
	start := time.Now()
	now := s.now()
	m := &Metrics{}

	var err error
	if m.TotalInventoryIPs, err = s.inventory.SumBlockSize(ctx); err != nil {
		return nil, err
	}
	if m.ActiveLeads, err = s.leads.Count(ctx); err != nil {
		return nil, err
	}

	recent, err := s.inventory.SumBlockSizeSince(ctx, now.Add(-trendWindow))
	if err != nil {
		return nil, err
	}
	prior, err := s.inventory.SumBlockSizeBetween(ctx, now.Add(-2*trendWindow), now.Add(-trendWindow))
	if err != nil {
		return nil, err
	}
	m.InventoryTrend30d = percentChange(recent, prior)

	won, err := s.leads.CountByStage(ctx, domain.StageClosedWon)
	if err != nil {
		return nil, err
	}
	m.ConversionRate = percentOf(won, m.ActiveLeads)

	open, err := s.leads.SumSizeExcludingStage(ctx, domain.StageClosedLost)
	if err != nil {
		return nil, err
	}
	m.PipelineValueUSD = float64(open) * s.cfg.UnitPriceUSD

	if m.UrgentFollowups, err = s.leads.ListDueFollowups(ctx, now, s.cfg.UrgentFollowupLimit); err != nil {
		return nil, err
	}
	if m.UrgentFollowups == nil {
		m.UrgentFollowups = []domain.Lead{}
	}

	if m.RoutingShifts24h, err = s.inventory.CountSnapshotsSince(ctx, now.Add(-recentWindow)); err != nil {
		return nil, err
	}
	if m.NewCandidates24h, err = s.leads.CountCreatedSince(ctx, now.Add(-recentWindow)); err != nil {
		return nil, err
	}

	logger.With(logger.Fields{"urgent_followups": len(m.UrgentFollowups)}).
		WithDuration(time.Since(start).Milliseconds()).
		WithCount(int(m.ActiveLeads)).
		Debug(ctx, "Metrics computed")

	return m, nil
}

// percentChange returns (cur-prev)/prev*100, or 0 when prev is zero.
func percentChange(cur, prev int64) float64 {
	if prev == 0 {
		return 0
	}
	return float64(cur-prev) / float64(prev) * 100
}

// percentOf returns part/whole*100, or 0 when whole is zero.
func percentOf(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
