package seed

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"github.com/timmy/ipv4-deal-os/internal/logger"
	"gorm.io/datatypes"
)

// InventoryStore is the inventory persistence the seeder writes to.
type InventoryStore interface {
	EnsureOrganization(ctx context.Context, name string) (*domain.Organization, error)
	UpsertBlock(ctx context.Context, block *domain.IPBlock) error
	CreateSnapshot(ctx context.Context, snap *domain.RoutingSnapshot) error
}

// LeadStore creates leads.
type LeadStore interface {
	Create(ctx context.Context, lead *domain.Lead) error
}

// Summary counts the rows written by Apply.
type Summary struct {
	Organizations int
	Blocks        int
	Leads         int
	Snapshots     int
}

// Seeder writes fixtures to the store.
type Seeder struct {
	inventory InventoryStore
	leads     LeadStore
	now       func() time.Time
}

// NewSeeder creates a Seeder. Rows without explicit timestamps get now().
func NewSeeder(inventory InventoryStore, leads LeadStore, now func() time.Time) *Seeder {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Seeder{inventory: inventory, leads: leads, now: now}
}

// Apply writes every row of f. Organizations and blocks are upserted, so
// re-running a fixture only duplicates leads and snapshots.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (*Summary, error) {
	ctx = logger.SetComponent(ctx, "seed")
	var sum Summary
	orgIDs := make(map[string]uint)

	ensureOrg := func(name string) (uint, error) {
		if id, ok := orgIDs[name]; ok {
			return id, nil
		}
		org, err := s.inventory.EnsureOrganization(ctx, name)
		if err != nil {
			return 0, err
		}
		orgIDs[name] = org.ID
		sum.Organizations++
		return org.ID, nil
	}

	for _, o := range f.Organizations {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			return nil, eris.New("organization name is empty")
		}
		if _, err := ensureOrg(name); err != nil {
			return nil, err
		}
	}

	for _, b := range f.Blocks {
		cidr, size, err := NormalizeCIDR(b.CIDR)
		if err != nil {
			return nil, err
		}
		block := &domain.IPBlock{CIDR: cidr, Size: size, CreatedAt: s.timeOr(b.CreatedAt)}
		if org := strings.TrimSpace(b.Org); org != "" {
			id, err := ensureOrg(org)
			if err != nil {
				return nil, err
			}
			block.OrgID = &id
		}
		if err := s.inventory.UpsertBlock(ctx, block); err != nil {
			return nil, err
		}
		sum.Blocks++
	}

	for _, l := range f.Leads {
		lead, err := s.lead(l)
		if err != nil {
			return nil, err
		}
		if err := s.leads.Create(ctx, lead); err != nil {
			return nil, err
		}
		sum.Leads++
	}

	for _, sn := range f.Snapshots {
		cidr, _, err := NormalizeCIDR(sn.CIDR)
		if err != nil {
			return nil, err
		}
		raw, err := toJSON(sn.RawData)
		if err != nil {
			return nil, eris.Wrapf(err, "snapshot raw_data for %s", cidr)
		}
		snap := &domain.RoutingSnapshot{CIDR: cidr, RawData: raw, Timestamp: s.timeOr(sn.Timestamp)}
		if err := s.inventory.CreateSnapshot(ctx, snap); err != nil {
			return nil, err
		}
		sum.Snapshots++
	}

	logger.With(logger.Fields{
		"organizations": sum.Organizations,
		"blocks":        sum.Blocks,
		"leads":         sum.Leads,
		"snapshots":     sum.Snapshots,
	}).Info(ctx, "Seed fixture applied")

	return &sum, nil
}

func (s *Seeder) lead(l LeadFixture) (*domain.Lead, error) {
	cidr, size, err := NormalizeCIDR(l.CIDR)
	if err != nil {
		return nil, err
	}
	breakdown, err := toJSON(l.ScoreBreakdown)
	if err != nil {
		return nil, eris.Wrapf(err, "lead score_breakdown for %s", cidr)
	}
	stage := domain.Stage(l.Stage)
	if stage == "" {
		stage = domain.StageFound
	}
	if !stage.IsKnown() {
		return nil, eris.Errorf("lead %s: unknown stage %q", cidr, l.Stage)
	}
	owner := l.Owner
	if owner == "" {
		owner = "System"
	}
	created := s.timeOr(l.CreatedAt)

	var next *time.Time
	if l.NextActionDate != nil {
		t := l.NextActionDate.UTC()
		next = &t
	}

	return &domain.Lead{
		OrgName:        l.OrgName,
		CIDR:           cidr,
		Size:           size,
		Score:          l.Score,
		Stage:          stage,
		Owner:          owner,
		NextActionDate: next,
		CreatedAt:      created,
		LastUpdated:    created,
		ScoreBreakdown: breakdown,
		Notes:          l.Notes,
	}, nil
}

func (s *Seeder) timeOr(t *time.Time) time.Time {
	if t == nil {
		return s.now()
	}
	return t.UTC()
}

func toJSON(v map[string]interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
