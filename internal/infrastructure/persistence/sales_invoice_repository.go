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

// GormSalesInvoiceRepository implements invoicing.SalesInvoiceRepository using GORM
type GormSalesInvoiceRepository struct {
	db *gorm.DB
}

// NewGormSalesInvoiceRepository creates a new GormSalesInvoiceRepository
func NewGormSalesInvoiceRepository(db *gorm.DB) *GormSalesInvoiceRepository {
	return &GormSalesInvoiceRepository{db: db}
}

// FindByID finds a sales invoice by its ID with line items
func (r *GormSalesInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.SalesInvoice, error) {
	var inv invoicing.SalesInvoice
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

// FindByIDForTenant finds a sales invoice by ID within a tenant
func (r *GormSalesInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.SalesInvoice, error) {
	var inv invoicing.SalesInvoice
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
func (r *GormSalesInvoiceRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.SalesInvoice, error) {
	var inv invoicing.SalesInvoice
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

// FindByNumber finds a sales invoice by its tenant-scoped number
func (r *GormSalesInvoiceRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*invoicing.SalesInvoice, error) {
	var inv invoicing.SalesInvoice
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

// FindAll finds all sales invoices matching the filter
func (r *GormSalesInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]invoicing.SalesInvoice, error) {
	var invoices []invoicing.SalesInvoice
	query := applySortAndPagination(
		r.db.WithContext(ctx).Model(&invoicing.SalesInvoice{}).Preload("Items"),
		filter, InvoiceSortFields,
	)
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindAllForTenant finds all sales invoices for a tenant
func (r *GormSalesInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]invoicing.SalesInvoice, error) {
	var invoices []invoicing.SalesInvoice
	query := applySortAndPagination(
		r.filtered(r.db.WithContext(ctx).Model(&invoicing.SalesInvoice{}).
			Preload("Items").
			Where("tenant_id = ?", tenantID), filter),
		filter, InvoiceSortFields,
	)
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByStatus finds sales invoices in one status
func (r *GormSalesInvoiceRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status invoicing.SalesInvoiceStatus, filter shared.Filter) ([]invoicing.SalesInvoice, error) {
	var invoices []invoicing.SalesInvoice
	query := applySortAndPagination(
		r.db.WithContext(ctx).Model(&invoicing.SalesInvoice{}).
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
func (r *GormSalesInvoiceRepository) Save(ctx context.Context, inv *invoicing.SalesInvoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(inv).Error; err != nil {
			return err
		}
		return syncSalesItems(tx, inv)
	})
}

// SaveWithLock persists the aggregate with an optimistic version check.
// The domain bumps the version on every mutation, so any persisted version
// older than the aggregate's is accepted; an equal or newer one means a
// concurrent writer got there first.
func (r *GormSalesInvoiceRepository) SaveWithLock(ctx context.Context, inv *invoicing.SalesInvoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&invoicing.SalesInvoice{}).
			Where("id = ? AND version < ?", inv.ID, inv.Version).
			Updates(map[string]interface{}{
				"customer_id":         inv.CustomerID,
				"customer_name":       inv.CustomerName,
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
		return syncSalesItems(tx, inv)
	})
}

func syncSalesItems(tx *gorm.DB, inv *invoicing.SalesInvoice) error {
	currentItemIDs := make([]uuid.UUID, len(inv.Items))
	for i, item := range inv.Items {
		currentItemIDs[i] = item.ID
	}

	if len(currentItemIDs) > 0 {
		if err := tx.Where("invoice_id = ? AND id NOT IN ?", inv.ID, currentItemIDs).
			Delete(&invoicing.SalesInvoiceItem{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("invoice_id = ?", inv.ID).
			Delete(&invoicing.SalesInvoiceItem{}).Error; err != nil {
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
func (r *GormSalesInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).
			Delete(&invoicing.SalesInvoiceItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&invoicing.SalesInvoice{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts sales invoices matching the filter
func (r *GormSalesInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.filtered(r.db.WithContext(ctx).Model(&invoicing.SalesInvoice{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountForTenant counts the tenant's sales invoices matching the filter
func (r *GormSalesInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.filtered(r.db.WithContext(ctx).Model(&invoicing.SalesInvoice{}).
		Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TotalSales sums the totals of non-cancelled invoices since the given time
func (r *GormSalesInvoiceRepository) TotalSales(ctx context.Context, tenantID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&invoicing.SalesInvoice{}).
		Select("COALESCE(SUM(total), 0) as total").
		Where("tenant_id = ? AND status <> ? AND created_at >= ?",
			tenantID, invoicing.SalesInvoiceStatusCancelled, since).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// TotalItemsSold sums shipped quantities across non-cancelled invoices
func (r *GormSalesInvoiceRepository) TotalItemsSold(ctx context.Context, tenantID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&invoicing.SalesInvoiceItem{}).
		Select("COALESCE(SUM(sales_invoice_items.quantity_fulfilled), 0) as total").
		Joins("JOIN sales_invoices ON sales_invoices.id = sales_invoice_items.invoice_id").
		Where("sales_invoices.tenant_id = ? AND sales_invoices.status <> ? AND sales_invoices.created_at >= ?",
			tenantID, invoicing.SalesInvoiceStatusCancelled, since).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// filtered applies map-based filter criteria to the query
func (r *GormSalesInvoiceRepository) filtered(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "payment_status":
			query = query.Where("payment_status = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "fulfilled":
			query = query.Where("fulfilled = ?", value)
		}
	}
	if filter.Search != "" {
		query = query.Where("invoice_number ILIKE ? OR customer_name ILIKE ?",
			"%"+filter.Search+"%", "%"+filter.Search+"%")
	}
	return query
}

// Ensure GormSalesInvoiceRepository implements invoicing.SalesInvoiceRepository
var _ invoicing.SalesInvoiceRepository = (*GormSalesInvoiceRepository)(nil)
