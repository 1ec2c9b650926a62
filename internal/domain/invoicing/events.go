package invoicing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/shared"
)

// Event types for the invoicing domain
const (
	EventTypePurchaseInvoiceCreated   = "purchase_invoice.created"
	EventTypeSalesInvoiceCreated      = "sales_invoice.created"
	EventTypeInventoryRestocked       = "purchase_invoice.inventory_restocked"
	EventTypeInventoryDeducted        = "sales_invoice.inventory_deducted"
	EventTypeSalesInvoiceItemReturned = "sales_invoice.item_returned"
)

// AppliedLineInfo describes one line's applied delta in a reconciliation pass
type AppliedLineInfo struct {
	LineID    uuid.UUID       `json:"line_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Delta     decimal.Decimal `json:"delta"`
	Fulfilled decimal.Decimal `json:"fulfilled"`
}

// PurchaseInvoiceCreatedEvent is published when a purchase invoice is created
type PurchaseInvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string    `json:"invoice_number"`
	SupplierID    uuid.UUID `json:"supplier_id"`
}

// NewPurchaseInvoiceCreatedEvent creates a new purchase invoice created event
func NewPurchaseInvoiceCreatedEvent(inv *PurchaseInvoice) *PurchaseInvoiceCreatedEvent {
	return &PurchaseInvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseInvoiceCreated, "PurchaseInvoice", inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		SupplierID:      inv.SupplierID,
	}
}

// SalesInvoiceCreatedEvent is published when a sales invoice is created
type SalesInvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string    `json:"invoice_number"`
	CustomerID    uuid.UUID `json:"customer_id"`
}

// NewSalesInvoiceCreatedEvent creates a new sales invoice created event
func NewSalesInvoiceCreatedEvent(inv *SalesInvoice) *SalesInvoiceCreatedEvent {
	return &SalesInvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSalesInvoiceCreated, "SalesInvoice", inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
	}
}

// InventoryRestockedEvent is published after a reconciliation pass applies
// restock deltas for a purchase invoice
type InventoryRestockedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string            `json:"invoice_number"`
	AppliedLines  []AppliedLineInfo `json:"applied_lines"`
}

// NewInventoryRestockedEvent creates a new inventory restocked event
func NewInventoryRestockedEvent(inv *PurchaseInvoice, applied []AppliedLineInfo) *InventoryRestockedEvent {
	return &InventoryRestockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryRestocked, "PurchaseInvoice", inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		AppliedLines:    applied,
	}
}

// InventoryDeductedEvent is published after a reconciliation pass applies
// deduction deltas for a sales invoice
type InventoryDeductedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string            `json:"invoice_number"`
	AppliedLines  []AppliedLineInfo `json:"applied_lines"`
}

// NewInventoryDeductedEvent creates a new inventory deducted event
func NewInventoryDeductedEvent(inv *SalesInvoice, applied []AppliedLineInfo) *InventoryDeductedEvent {
	return &InventoryDeductedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryDeducted, "SalesInvoice", inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		AppliedLines:    applied,
	}
}

// SalesInvoiceItemReturnedEvent is published when a sales line is marked returned
type SalesInvoiceItemReturnedEvent struct {
	shared.BaseDomainEvent
	LineID    uuid.UUID       `json:"line_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Restocked bool            `json:"restocked"`
}

// NewSalesInvoiceItemReturnedEvent creates a new item returned event
func NewSalesInvoiceItemReturnedEvent(inv *SalesInvoice, item *SalesInvoiceItem, restocked bool) *SalesInvoiceItemReturnedEvent {
	return &SalesInvoiceItemReturnedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSalesInvoiceItemReturned, "SalesInvoice", inv.ID, inv.TenantID),
		LineID:          item.ID,
		ProductID:       item.ProductID,
		Quantity:        item.QuantityFulfilled,
		Restocked:       restocked,
	}
}
