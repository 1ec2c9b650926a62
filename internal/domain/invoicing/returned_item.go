package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/shared"
)

// ReturnedItem records a customer return against a sales invoice line.
// It is a standalone history row, not a variant of the line itself; the
// line keeps only its returned flag.
type ReturnedItem struct {
	shared.BaseEntity
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Restocked   bool            `gorm:"not null;default:false"`
	Reason      string          `gorm:"type:text"`
	ReturnedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReturnedItem) TableName() string {
	return "returned_items"
}

// NewReturnedItem creates a return record snapshotting the line at return time
func NewReturnedItem(tenantID uuid.UUID, inv *SalesInvoice, item *SalesInvoiceItem, reason string) (*ReturnedItem, error) {
	if inv == nil || item == nil {
		return nil, shared.NewDomainError("INVALID_RETURN", "Invoice and line item are required")
	}
	if item.QuantityFulfilled.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot return a line with no fulfillment")
	}

	return &ReturnedItem{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		InvoiceID:   inv.ID,
		LineID:      item.ID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    item.QuantityFulfilled,
		Restocked:   false,
		Reason:      reason,
		ReturnedAt:  time.Now(),
	}, nil
}

// MarkRestocked records that the returned quantity was put back on hand
func (r *ReturnedItem) MarkRestocked() {
	r.Restocked = true
	r.UpdatedAt = time.Now()
}
