package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/shared"
)

// InvoiceKind distinguishes the two invoice variants sharing the ledger
type InvoiceKind string

const (
	// InvoiceKindPurchase is stock inflow (restock)
	InvoiceKindPurchase InvoiceKind = "PURCHASE"
	// InvoiceKindSale is stock outflow (deduction)
	InvoiceKindSale InvoiceKind = "SALE"
)

// IsValid returns true if the kind is a known invoice kind
func (k InvoiceKind) IsValid() bool {
	return k == InvoiceKindPurchase || k == InvoiceKindSale
}

// LedgerDirection is the stock direction of a ledger entry
type LedgerDirection string

const (
	// LedgerDirectionRestock increases on-hand stock
	LedgerDirectionRestock LedgerDirection = "RESTOCK"
	// LedgerDirectionDeduction decreases on-hand stock
	LedgerDirectionDeduction LedgerDirection = "DEDUCTION"
)

// IsValid returns true if the direction is a known ledger direction
func (d LedgerDirection) IsValid() bool {
	return d == LedgerDirectionRestock || d == LedgerDirectionDeduction
}

// LedgerEntry is an immutable record of one quantity movement applied
// against an invoice line. Entries are append-only: corrections are made
// with new entries, never by mutating existing ones. The ledger is the
// durable, replayable audit of every inventory movement, and the sum of a
// line's entries always equals the line's cached fulfilled quantity.
type LedgerEntry struct {
	shared.BaseEntity
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_tenant_time,priority:1"`
	InvoiceKind   InvoiceKind     `gorm:"type:varchar(10);not null"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_invoice"`
	LineID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_line"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_product"`
	Direction     LedgerDirection `gorm:"type:varchar(10);not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"` // always positive, direction carries the sign
	TransactionID string          `gorm:"type:varchar(50);not null;index"`
	OccurredAt    time.Time       `gorm:"type:timestamptz;not null;index:idx_ledger_tenant_time,priority:2"`
	Notes         string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// NewLedgerEntry creates a new ledger entry for an applied delta
func NewLedgerEntry(
	tenantID uuid.UUID,
	kind InvoiceKind,
	invoiceID, lineID, productID uuid.UUID,
	direction LedgerDirection,
	quantity decimal.Decimal,
	transactionID string,
) (*LedgerEntry, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_INVOICE_KIND", "Invalid invoice kind")
	}
	if invoiceID == uuid.Nil || lineID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Invoice and line IDs cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Invalid ledger direction")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Ledger quantity must be positive")
	}
	if transactionID == "" {
		return nil, shared.NewDomainError("INVALID_TRANSACTION", "Transaction ID cannot be empty")
	}

	return &LedgerEntry{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		InvoiceKind:   kind,
		InvoiceID:     invoiceID,
		LineID:        lineID,
		ProductID:     productID,
		Direction:     direction,
		Quantity:      quantity,
		TransactionID: transactionID,
		OccurredAt:    time.Now(),
	}, nil
}

// WithNotes sets the free-form notes for the entry
func (e *LedgerEntry) WithNotes(notes string) *LedgerEntry {
	e.Notes = notes
	return e
}

// SignedQuantity returns the quantity signed by stock direction:
// positive for restocks, negative for deductions.
func (e *LedgerEntry) SignedQuantity() decimal.Decimal {
	if e.Direction == LedgerDirectionDeduction {
		return e.Quantity.Neg()
	}
	return e.Quantity
}
