package service

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"github.com/timmy/ipv4-deal-os/internal/logger"
	"github.com/timmy/ipv4-deal-os/internal/repository"
)

var (
	// ErrNotFound is returned when a lead or job run does not exist.
	ErrNotFound = repository.ErrNotFound
	// ErrInvalidStage is returned when strict stage checking rejects a patch.
	ErrInvalidStage = eris.New("invalid stage")
)

// LeadStore is the persistence used by LeadService.
type LeadStore interface {
	List(ctx context.Context) ([]domain.Lead, error)
	GetByID(ctx context.Context, id uint) (*domain.Lead, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) (*domain.Lead, error)
}

// LeadPatch carries the optional fields of a partial lead update.
// Nil pointers leave the stored value untouched.
type LeadPatch struct {
	Stage          *domain.Stage
	NextActionDate *time.Time
	// ClearNextActionDate stores NULL; it wins over NextActionDate.
	ClearNextActionDate bool
	Notes               *string
}

// LeadServiceConfig controls lead update validation.
type LeadServiceConfig struct {
	StrictStages bool
}

// LeadService lists, reads and partially updates leads.
type LeadService struct {
	store LeadStore
	cfg   LeadServiceConfig
	now   Clock
}

// NewLeadService creates a LeadService. A nil clock uses SystemClock.
func NewLeadService(store LeadStore, cfg *LeadServiceConfig, now Clock) *LeadService {
	var c LeadServiceConfig
	if cfg != nil {
		c = *cfg
	}
	return &LeadService{store: store, cfg: c, now: orSystemClock(now)}
}

// List returns all leads ordered by score, highest first.
func (s *LeadService) List(ctx context.Context) ([]domain.Lead, error) {
	return s.store.List(ctx)
}

// Get returns one lead or ErrNotFound.
func (s *LeadService) Get(ctx context.Context, id uint) (*domain.Lead, error) {
	return s.store.GetByID(ctx, id)
}

// Update applies the present fields of patch to a lead and refreshes last_updated.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: lead ID.
//   - patch: fields to change.
// Returns:
//   - *domain.Lead: the stored lead after the update.
//   - error: ErrNotFound for a missing lead, ErrInvalidStage for an unknown stage in strict mode.
func (s *LeadService) Update(ctx context.Context, id uint, patch LeadPatch) (*domain.Lead, error) {
	fields := map[string]interface{}{}

	if patch.Stage != nil {
		if s.cfg.StrictStages && !patch.Stage.IsKnown() {
			return nil, eris.Wrapf(ErrInvalidStage, "%q is not one of %v", *patch.Stage, domain.KnownStages)
		}
		fields["stage"] = *patch.Stage
	}
	switch {
	case patch.ClearNextActionDate:
		fields["next_action_date"] = nil
	case patch.NextActionDate != nil:
		fields["next_action_date"] = patch.NextActionDate.UTC()
	}
	if patch.Notes != nil {
		fields["notes"] = *patch.Notes
	}
	fields["last_updated"] = s.now()

	lead, err := s.store.UpdateFields(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldLeadID: id,
		"stage":            lead.Stage,
		"closed":           lead.Stage.IsClosed(),
	}).Info("Lead updated")

	return lead, nil
}
