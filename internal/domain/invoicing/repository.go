package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/shared"
)

// PurchaseInvoiceRepository persists purchase invoice aggregates
type PurchaseInvoiceRepository interface {
	shared.TenantRepository[PurchaseInvoice]

	// FindByIDForUpdate loads the invoice and its lines under a row lock.
	// Must be called inside a transaction scope.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseInvoice, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*PurchaseInvoice, error)
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status PurchaseInvoiceStatus, filter shared.Filter) ([]PurchaseInvoice, error)

	// SaveWithLock persists the aggregate with an optimistic version check
	SaveWithLock(ctx context.Context, inv *PurchaseInvoice) error

	TotalPurchases(ctx context.Context, tenantID uuid.UUID, since time.Time) (decimal.Decimal, error)
	TotalPendingPayment(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
}

// SalesInvoiceRepository persists sales invoice aggregates
type SalesInvoiceRepository interface {
	shared.TenantRepository[SalesInvoice]

	// FindByIDForUpdate loads the invoice and its lines under a row lock.
	// Must be called inside a transaction scope.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*SalesInvoice, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*SalesInvoice, error)
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status SalesInvoiceStatus, filter shared.Filter) ([]SalesInvoice, error)

	// SaveWithLock persists the aggregate with an optimistic version check
	SaveWithLock(ctx context.Context, inv *SalesInvoice) error

	TotalSales(ctx context.Context, tenantID uuid.UUID, since time.Time) (decimal.Decimal, error)
	TotalItemsSold(ctx context.Context, tenantID uuid.UUID, since time.Time) (decimal.Decimal, error)
}

// LedgerRepository is the append-only store of applied quantity movements.
// Entries are never updated; they are removed only by invoice cascade.
type LedgerRepository interface {
	Append(ctx context.Context, entries []*LedgerEntry) error
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]LedgerEntry, error)
	FindByLine(ctx context.Context, tenantID, lineID uuid.UUID) ([]LedgerEntry, error)

	// SumAppliedByLine returns the direction-signed sum of a line's
	// entries, per LedgerEntry.SignedQuantity: restocks positive,
	// deductions negative. Reversing entries cancel out instead of
	// inflating the sum.
	SumAppliedByLine(ctx context.Context, tenantID, lineID uuid.UUID) (decimal.Decimal, error)

	// SumAppliedByLines returns per-line direction-signed sums for a batch
	// of lines. Lines with no entries are absent from the result map.
	SumAppliedByLines(ctx context.Context, tenantID uuid.UUID, lineIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// CountOpenByProduct counts ledger entries referencing the product,
	// used to block deletion of inventory rows with movement history
	CountOpenByProduct(ctx context.Context, tenantID, productID uuid.UUID) (int64, error)

	DeleteByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) error
}

// ReturnedItemRepository persists sales return records
type ReturnedItemRepository interface {
	Save(ctx context.Context, item *ReturnedItem) error
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]ReturnedItem, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]ReturnedItem, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}
