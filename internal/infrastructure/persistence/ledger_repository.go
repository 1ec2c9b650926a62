package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockbooks/backend/internal/domain/invoicing"
)

// GormLedgerRepository implements invoicing.LedgerRepository using GORM.
// The ledger is append-only: entries are never updated in place.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Append inserts a batch of ledger entries
func (r *GormLedgerRepository) Append(ctx context.Context, entries []*invoicing.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(entries).Error
}

// FindByInvoice returns all entries written for one invoice, oldest first
func (r *GormLedgerRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]invoicing.LedgerEntry, error) {
	var entries []invoicing.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("occurred_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByLine returns all entries written for one invoice line, oldest first
func (r *GormLedgerRepository) FindByLine(ctx context.Context, tenantID, lineID uuid.UUID) ([]invoicing.LedgerEntry, error) {
	var entries []invoicing.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND line_id = ?", tenantID, lineID).
		Order("occurred_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// signedQuantityExpr folds the direction enum into the quantity sign, the
// SQL counterpart of LedgerEntry.SignedQuantity. Summing it lets reversing
// entries (return restocks against a sale line) cancel prior applications.
const signedQuantityExpr = "CASE WHEN direction = 'DEDUCTION' THEN -quantity ELSE quantity END"

// SumAppliedByLine returns the direction-signed sum of applied quantities
// for one line: restocks positive, deductions negative.
func (r *GormLedgerRepository) SumAppliedByLine(ctx context.Context, tenantID, lineID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&invoicing.LedgerEntry{}).
		Select("COALESCE(SUM("+signedQuantityExpr+"), 0) as total").
		Where("tenant_id = ? AND line_id = ?", tenantID, lineID).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// SumAppliedByLines returns per-line direction-signed sums for a batch of
// lines. Lines with no entries are absent from the result map.
func (r *GormLedgerRepository) SumAppliedByLines(ctx context.Context, tenantID uuid.UUID, lineIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	sums := make(map[uuid.UUID]decimal.Decimal, len(lineIDs))
	if len(lineIDs) == 0 {
		return sums, nil
	}

	var rows []struct {
		LineID uuid.UUID
		Total  decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&invoicing.LedgerEntry{}).
		Select("line_id, COALESCE(SUM("+signedQuantityExpr+"), 0) as total").
		Where("tenant_id = ? AND line_id IN ?", tenantID, lineIDs).
		Group("line_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		sums[row.LineID] = row.Total
	}
	return sums, nil
}

// CountOpenByProduct counts ledger entries referencing the product
func (r *GormLedgerRepository) CountOpenByProduct(ctx context.Context, tenantID, productID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&invoicing.LedgerEntry{}).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteByInvoice removes all entries for one invoice (invoice cascade only)
func (r *GormLedgerRepository) DeleteByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&invoicing.LedgerEntry{}, "tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).Error
}

// Ensure GormLedgerRepository implements invoicing.LedgerRepository
var _ invoicing.LedgerRepository = (*GormLedgerRepository)(nil)
