package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockbooks/backend/internal/domain/invoicing"
	"github.com/stockbooks/backend/internal/domain/shared"
)

// GormReturnedItemRepository implements invoicing.ReturnedItemRepository using GORM
type GormReturnedItemRepository struct {
	db *gorm.DB
}

// NewGormReturnedItemRepository creates a new GormReturnedItemRepository
func NewGormReturnedItemRepository(db *gorm.DB) *GormReturnedItemRepository {
	return &GormReturnedItemRepository{db: db}
}

// Save creates or updates a return record
func (r *GormReturnedItemRepository) Save(ctx context.Context, item *invoicing.ReturnedItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// FindByInvoice returns the return records for one invoice, newest first
func (r *GormReturnedItemRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]invoicing.ReturnedItem, error) {
	var records []invoicing.ReturnedItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("returned_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindAllForTenant returns all return records for a tenant
func (r *GormReturnedItemRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]invoicing.ReturnedItem, error) {
	var records []invoicing.ReturnedItem
	query := applySortAndPagination(
		r.db.WithContext(ctx).Model(&invoicing.ReturnedItem{}).
			Where("tenant_id = ?", tenantID),
		filter, ReturnedItemSortFields,
	)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountForTenant counts return records for a tenant
func (r *GormReturnedItemRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&invoicing.ReturnedItem{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormReturnedItemRepository implements invoicing.ReturnedItemRepository
var _ invoicing.ReturnedItemRepository = (*GormReturnedItemRepository)(nil)
