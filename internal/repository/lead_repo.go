package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"gorm.io/gorm"
)

// LeadRepository handles lead data operations.
type LeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new LeadRepository.
func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create inserts a new lead. An empty stage is stored as Found.
func (r *LeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	if lead.Stage == "" {
		lead.Stage = domain.StageFound
	}
	return eris.Wrap(r.db.WithContext(ctx).Create(lead).Error, "create lead")
}

// List returns every lead, highest score first.
func (r *LeadRepository) List(ctx context.Context) ([]domain.Lead, error) {
	var leads []domain.Lead
	err := r.db.WithContext(ctx).
		Order("score DESC").
		Order("id ASC").
		Find(&leads).Error
	if err != nil {
		return nil, eris.Wrap(err, "list leads")
	}
	return leads, nil
}

// GetByID retrieves a lead by its ID.
// Returns:
//   - *domain.Lead: lead if found.
//   - error: ErrNotFound when no row matches.
func (r *LeadRepository) GetByID(ctx context.Context, id uint) (*domain.Lead, error) {
	var lead domain.Lead
	if err := r.db.WithContext(ctx).First(&lead, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "get lead %d", id)
	}
	return &lead, nil
}

// UpdateFields applies column updates to one lead and returns the stored row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: lead ID.
//   - fields: column name to value; a nil value stores NULL.
// Returns:
//   - *domain.Lead: the lead after the update.
//   - error: ErrNotFound when no row matches.
func (r *LeadRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) (*domain.Lead, error) {
	var updated domain.Lead
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Lead{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return eris.Wrapf(res.Error, "update lead %d", id)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Count returns the number of leads.
func (r *LeadRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Lead{}).Count(&n).Error
	return n, eris.Wrap(err, "count leads")
}

// CountByStage returns the number of leads in the given stage.
func (r *LeadRepository) CountByStage(ctx context.Context, stage domain.Stage) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Lead{}).Where("stage = ?", stage).Count(&n).Error
	return n, eris.Wrap(err, "count leads by stage")
}

// SumSizeExcludingStage sums lead sizes over every stage except the given one.
func (r *LeadRepository) SumSizeExcludingStage(ctx context.Context, stage domain.Stage) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Lead{}).
		Where("stage IS NULL OR stage <> ?", stage).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error
	return total, eris.Wrap(err, "sum lead sizes")
}

// CountCreatedSince counts leads created at or after since.
func (r *LeadRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Lead{}).Where("created_at >= ?", since).Count(&n).Error
	return n, eris.Wrap(err, "count new leads")
}

// ListDueFollowups returns up to limit leads whose next action is due at or
// before now, earliest first.
func (r *LeadRepository) ListDueFollowups(ctx context.Context, now time.Time, limit int) ([]domain.Lead, error) {
	var leads []domain.Lead
	err := r.db.WithContext(ctx).
		Where("next_action_date IS NOT NULL AND next_action_date <= ?", now).
		Order("next_action_date ASC").
		Order("id ASC").
		Limit(limit).
		Find(&leads).Error
	if err != nil {
		return nil, eris.Wrap(err, "list due followups")
	}
	return leads, nil
}
