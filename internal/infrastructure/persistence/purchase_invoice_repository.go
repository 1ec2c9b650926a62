package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockbooks/backend/internal/domain/invoicing"
	"github.com/stockbooks/backend/internal/domain/shared"
)

// GormPurchaseInvoiceRepository implements invoicing.PurchaseInvoiceRepository using GORM
type GormPurchaseInvoiceRepository struct {
	db *gorm.DB
}

// NewGormPurchaseInvoiceRepository creates a new GormPurchaseInvoiceRepository
func NewGormPurchaseInvoiceRepository(db *gorm.DB) *GormPurchaseInvoiceRepository {
	return &GormPurchaseInvoiceRepository{db: db}
}

// FindByID finds a purchase invoice by its ID with line items
func (r *GormPurchaseInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.PurchaseInvoice, error) {
	var inv invoicing.PurchaseInvoice
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindByIDForTenant finds a purchase invoice by ID within a tenant
func (r *GormPurchaseInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.PurchaseInvoice, error) {
	var inv invoicing.PurchaseInvoice
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindByIDForUpdate loads the invoice and its lines under a row lock.
// Must be called inside a transaction scope.
func (r *GormPurchaseInvoiceRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.PurchaseInvoice, error) {
	var inv invoicing.PurchaseInvoice
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindByNumber finds a purchase invoice by its tenant-scoped number
func (r *GormPurchaseInvoiceRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*invoicing.PurchaseInvoice, error) {
	var inv invoicing.PurchaseInvoice
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND invoice_number = ?", tenantID, invoiceNumber).
		First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindAll finds all purchase invoices matching the filter
func (r *GormPurchaseInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]invoicing.PurchaseInvoice, error) {
	var invoices []invoicing.PurchaseInvoice
	query := applySortAndPagination(
		r.db.WithContext(ctx).Model(&invoicing.PurchaseInvoice{}).Preload("Items"),
		filter, InvoiceSortFields,
	)
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindAllForTenant finds all purchase invoices for a tenant
func (r *GormPurchaseInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]invoicing.PurchaseInvoice, error) {
	var invoices []invoicing.PurchaseInvoice
	query := applySortAndPagination(
		r.filtered(r.db.WithContext(ctx).Model(&invoicing.PurchaseInvoice{}).
			Preload("Items").
			Where("tenant_id = ?", tenantID), filter),
		filter, InvoiceSortFields,
	)
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByStatus finds purchase invoices in one status
func (r *GormPurchaseInvoiceRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status invoicing.PurchaseInvoiceStatus, filter shared.Filter) ([]invoicing.PurchaseInvoice, error) {
	var invoices []invoicing.PurchaseInvoice
	query := applySortAndPagination(
		r.db.WithContext(ctx).Model(&invoicing.PurchaseInvoice{}).
			Preload("Items").
			Where("tenant_id = ? AND status = ?", tenantID, status),
		filter, InvoiceSortFields,
	)
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save persists the invoice and synchronizes its line items
func (r *GormPurchaseInvoiceRepository) Save(ctx context.Context, inv *invoicing.PurchaseInvoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(inv).Error; err != nil {
			return err
		}
		return syncPurchaseItems(tx, inv)
	})
}

// SaveWithLock persists the aggregate with an optimistic version check.
// The domain bumps the version on every mutation, so any persisted version
// older than the aggregate's is accepted; an equal or newer one means a
// concurrent writer got there first.
func (r *GormPurchaseInvoiceRepository) SaveWithLock(ctx context.Context, inv *invoicing.PurchaseInvoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&invoicing.PurchaseInvoice{}).
			Where("id = ? AND version < ?", inv.ID, inv.Version).
			Updates(map[string]interface{}{
				"supplier_id":         inv.SupplierID,
				"supplier_name":       inv.SupplierName,
				"status":              inv.Status,
				"payment_status":      inv.PaymentStatus,
				"date_due":            inv.DateDue,
				"tax":                 inv.Tax,
				"discount":            inv.Discount,
				"sub_total":           inv.SubTotal,
				"total":               inv.Total,
				"amount_paid":         inv.AmountPaid,
				"fulfilled":           inv.Fulfilled,
				"partially_fulfilled": inv.PartiallyFulfilled,
				"notes":               inv.Notes,
				"version":             inv.Version,
				"updated_at":          inv.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return syncPurchaseItems(tx, inv)
	})
}

func syncPurchaseItems(tx *gorm.DB, inv *invoicing.PurchaseInvoice) error {
	currentItemIDs := make([]uuid.UUID, len(inv.Items))
	for i, item := range inv.Items {
		currentItemIDs[i] = item.ID
	}

	if len(currentItemIDs) > 0 {
		if err := tx.Where("invoice_id = ? AND id NOT IN ?", inv.ID, currentItemIDs).
			Delete(&invoicing.PurchaseInvoiceItem{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("invoice_id = ?", inv.ID).
			Delete(&invoicing.PurchaseInvoiceItem{}).Error; err != nil {
			return err
		}
	}

	for i := range inv.Items {
		inv.Items[i].InvoiceID = inv.ID
		if err := tx.Save(&inv.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the invoice and its line items
func (r *GormPurchaseInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).
			Delete(&invoicing.PurchaseInvoiceItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&invoicing.PurchaseInvoice{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts purchase invoices matching the filter
func (r *GormPurchaseInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.filtered(r.db.WithContext(ctx).Model(&invoicing.PurchaseInvoice{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountForTenant counts the tenant's purchase invoices matching the filter
func (r *GormPurchaseInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.filtered(r.db.WithContext(ctx).Model(&invoicing.PurchaseInvoice{}).
		Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TotalPurchases sums the totals of non-cancelled invoices since the given time
func (r *GormPurchaseInvoiceRepository) TotalPurchases(ctx context.Context, tenantID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&invoicing.PurchaseInvoice{}).
		Select("COALESCE(SUM(total), 0) as total").
		Where("tenant_id = ? AND status <> ? AND created_at >= ?",
			tenantID, invoicing.PurchaseInvoiceStatusCancelled, since).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// TotalPendingPayment sums the outstanding balance across open invoices
func (r *GormPurchaseInvoiceRepository) TotalPendingPayment(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&invoicing.PurchaseInvoice{}).
		Select("COALESCE(SUM(total - amount_paid), 0) as total").
		Where("tenant_id = ? AND status <> ? AND payment_status <> ?",
			tenantID, invoicing.PurchaseInvoiceStatusCancelled, invoicing.PaymentStatusPaid).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// filtered applies map-based filter criteria to the query
func (r *GormPurchaseInvoiceRepository) filtered(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "payment_status":
			query = query.Where("payment_status = ?", value)
		case "supplier_id":
			query = query.Where("supplier_id = ?", value)
		case "fulfilled":
			query = query.Where("fulfilled = ?", value)
		}
	}
	if filter.Search != "" {
		query = query.Where("invoice_number ILIKE ? OR supplier_name ILIKE ?",
			"%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	return query
}

// Ensure GormPurchaseInvoiceRepository implements invoicing.PurchaseInvoiceRepository
var _ invoicing.PurchaseInvoiceRepository = (*GormPurchaseInvoiceRepository)(nil)
