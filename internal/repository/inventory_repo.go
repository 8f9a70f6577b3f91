package repository

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository handles organizations, IP blocks and routing snapshots.
type InventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates a new InventoryRepository.
func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// EnsureOrganization returns the organization with the given name, creating it if needed.
func (r *InventoryRepository) EnsureOrganization(ctx context.Context, name string) (*domain.Organization, error) {
	org := domain.Organization{Name: name}
	err := r.db.WithContext(ctx).
		Where(domain.Organization{Name: name}).
		FirstOrCreate(&org).Error
	if err != nil {
		return nil, eris.Wrapf(err, "ensure organization %q", name)
	}
	return &org, nil
}

// UpsertBlock inserts a block, refreshing size and owner when the CIDR already exists.
func (r *InventoryRepository) UpsertBlock(ctx context.Context, block *domain.IPBlock) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cidr"}},
		DoUpdates: clause.AssignmentColumns([]string{"size", "org_id"}),
	}).Create(block).Error
	return eris.Wrapf(err, "upsert block %s", block.CIDR)
}

// CreateSnapshot stores a routing snapshot.
func (r *InventoryRepository) CreateSnapshot(ctx context.Context, snap *domain.RoutingSnapshot) error {
	return eris.Wrap(r.db.WithContext(ctx).Create(snap).Error, "create routing snapshot")
}

// SumBlockSize returns the total number of addresses under management.
func (r *InventoryRepository) SumBlockSize(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.IPBlock{}).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error
	return total, eris.Wrap(err, "sum block sizes")
}

// SumBlockSizeSince sums sizes of blocks created at or after since.
func (r *InventoryRepository) SumBlockSizeSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.IPBlock{}).
		Where("created_at >= ?", since).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error
	return total, eris.Wrap(err, "sum recent block sizes")
}

// SumBlockSizeBetween sums sizes of blocks created in [from, to).
func (r *InventoryRepository) SumBlockSizeBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.IPBlock{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error
	return total, eris.Wrap(err, "sum block sizes in window")
}

// CountSnapshotsSince counts routing snapshots taken at or after since.
func (r *InventoryRepository) CountSnapshotsSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.RoutingSnapshot{}).
		Where(clause.Gte{Column: clause.Column{Name: "timestamp"}, Value: since}).
		Count(&n).Error
	return n, eris.Wrap(err, "count routing snapshots")
}
