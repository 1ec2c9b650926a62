package invoicing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/shared"
	"github.com/stockbooks/backend/internal/domain/shared/valueobject"
)

// SalesInvoiceStatus represents the status of a sales invoice
type SalesInvoiceStatus string

const (
	SalesInvoiceStatusDraft              SalesInvoiceStatus = "DRAFT"
	SalesInvoiceStatusSent               SalesInvoiceStatus = "SENT"
	SalesInvoiceStatusOverdue            SalesInvoiceStatus = "OVERDUE"
	SalesInvoiceStatusCancelled          SalesInvoiceStatus = "CANCELLED"
	SalesInvoiceStatusCompleted          SalesInvoiceStatus = "COMPLETED"
	SalesInvoiceStatusPartiallyCompleted SalesInvoiceStatus = "PARTIALLY_COMPLETED"
)

// IsValid checks if the status is a valid SalesInvoiceStatus
func (s SalesInvoiceStatus) IsValid() bool {
	switch s {
	case SalesInvoiceStatusDraft, SalesInvoiceStatusSent, SalesInvoiceStatusOverdue,
		SalesInvoiceStatusCancelled, SalesInvoiceStatusCompleted, SalesInvoiceStatusPartiallyCompleted:
		return true
	}
	return false
}

// String returns the string representation of SalesInvoiceStatus
func (s SalesInvoiceStatus) String() string {
	return string(s)
}

// TriggersFulfillment returns true if the status is in the set that lets
// the reconciliation engine deduct inventory.
func (s SalesInvoiceStatus) TriggersFulfillment() bool {
	return s == SalesInvoiceStatusCompleted || s == SalesInvoiceStatusPartiallyCompleted
}

// SalesInvoiceItem represents a line item on a sales invoice.
// Quantity is what the customer ordered; QuantityShipped is the cumulative
// target declared by the caller; QuantityFulfilled is the ledger-confirmed
// cumulative quantity actually deducted from inventory.
type SalesInvoiceItem struct {
	ID                 uuid.UUID              `gorm:"type:uuid;primary_key"`
	InvoiceID          uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_si_item_invoice_product,priority:1"`
	ProductID          uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_si_item_invoice_product,priority:2"`
	ProductName        string                 `gorm:"type:varchar(200);not null"`
	Quantity           decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	QuantityShipped    decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityFulfilled  decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPrice          decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Discount           valueobject.Adjustment `gorm:"type:jsonb;serializer:json"`
	Fulfilled          bool                   `gorm:"not null;default:false"`
	PartiallyFulfilled bool                   `gorm:"not null;default:false"`
	Returned           bool                   `gorm:"not null;default:false"`
	ReturnedAt         *time.Time
	Notes              string    `gorm:"type:text"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SalesInvoiceItem) TableName() string {
	return "sales_invoice_items"
}

// NewSalesInvoiceItem creates a new sales invoice line item
func NewSalesInvoiceItem(invoiceID, productID uuid.UUID, productName string, quantity decimal.Decimal, unitPrice valueobject.Money) (*SalesInvoiceItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	return &SalesInvoiceItem{
		ID:                uuid.New(),
		InvoiceID:         invoiceID,
		ProductID:         productID,
		ProductName:       productName,
		Quantity:          quantity,
		QuantityShipped:   decimal.Zero,
		QuantityFulfilled: decimal.Zero,
		UnitPrice:         unitPrice.Amount(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// State returns the line's fulfillment state derived from quantities
func (i *SalesInvoiceItem) State() FulfillmentState {
	return DeriveLineState(i.Quantity, i.QuantityFulfilled)
}

// GrossAmount returns quantity x unit price before any discount
func (i *SalesInvoiceItem) GrossAmount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// DiscountAmount returns the line's own discount. A percentage discount is
// taken from the unit price once per line, not per unit ordered.
func (i *SalesInvoiceItem) DiscountAmount() (decimal.Decimal, error) {
	if i.Discount.IsZero() {
		return decimal.Zero, nil
	}
	if i.Discount.Kind == valueobject.AdjustmentKindPercentage {
		return i.Discount.ApplyTo(i.UnitPrice)
	}
	return i.Discount.ApplyTo(i.GrossAmount())
}

// SetShippedQuantity sets the cumulative shipped target for the line
func (i *SalesInvoiceItem) SetShippedQuantity(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Shipped quantity cannot be negative")
	}
	if quantity.GreaterThan(i.Quantity) {
		return shared.NewDomainError("OVER_FULFILLMENT",
			fmt.Sprintf("Shipped quantity %s exceeds ordered quantity %s", quantity.String(), i.Quantity.String()))
	}
	if quantity.LessThan(i.QuantityFulfilled) {
		return shared.NewDomainError("INVALID_QUANTITY",
			fmt.Sprintf("Shipped quantity %s is below already fulfilled quantity %s", quantity.String(), i.QuantityFulfilled.String()))
	}

	i.QuantityShipped = quantity
	i.UpdatedAt = time.Now()
	return nil
}

// ApplyDelta records a positive applied delta against the line's cached
// fulfilled quantity and refreshes the fulfillment flags
func (i *SalesInvoiceItem) ApplyDelta(delta decimal.Decimal) error {
	if delta.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Applied delta must be positive")
	}

	fulfilled := i.QuantityFulfilled.Add(delta)
	if fulfilled.GreaterThan(i.Quantity) {
		return shared.ErrOverFulfillment
	}

	i.QuantityFulfilled = fulfilled
	if i.QuantityShipped.LessThan(fulfilled) {
		i.QuantityShipped = fulfilled
	}
	i.syncFlags()
	i.UpdatedAt = time.Now()
	return nil
}

// ResetFulfillment clears the line's shipped target and fulfilled quantity
// after restored stock reversed its ledger entries
func (i *SalesInvoiceItem) ResetFulfillment() {
	i.QuantityShipped = decimal.Zero
	i.QuantityFulfilled = decimal.Zero
	i.syncFlags()
	i.UpdatedAt = time.Now()
}

// MarkReturned flips the returned flag. Returning an unfulfilled line or
// returning twice is rejected.
func (i *SalesInvoiceItem) MarkReturned() error {
	if i.Returned {
		return shared.NewDomainError("ALREADY_RETURNED", "Line item is already marked as returned")
	}
	if i.QuantityFulfilled.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_STATE", "Cannot return a line with no fulfillment")
	}

	now := time.Now()
	i.Returned = true
	i.ReturnedAt = &now
	i.UpdatedAt = now
	return nil
}

func (i *SalesInvoiceItem) syncFlags() {
	switch i.State() {
	case FulfillmentFulfilled:
		i.Fulfilled = true
		i.PartiallyFulfilled = false
	case FulfillmentPartial:
		i.Fulfilled = false
		i.PartiallyFulfilled = true
	default:
		i.Fulfilled = false
		i.PartiallyFulfilled = false
	}
}

// SalesInvoice is the aggregate root for stock-outflow invoices
type SalesInvoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber      string                 `gorm:"type:varchar(50);not null;uniqueIndex:idx_sales_invoice_tenant_number,priority:2"`
	CustomerID         uuid.UUID              `gorm:"type:uuid;not null;index"`
	CustomerName       string                 `gorm:"type:varchar(200);not null"`
	Status             SalesInvoiceStatus     `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	PaymentStatus      PaymentStatus          `gorm:"type:varchar(20);not null;default:'PENDING'"`
	DateDue            *time.Time             `gorm:"type:date"`
	Tax                valueobject.Adjustment `gorm:"type:jsonb;serializer:json"`
	Discount           valueobject.Adjustment `gorm:"type:jsonb;serializer:json"`
	SubTotal           decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	Total              decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	AmountPaid         decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	Fulfilled          bool                   `gorm:"not null;default:false"`
	PartiallyFulfilled bool                   `gorm:"not null;default:false"`
	Notes              string                 `gorm:"type:text"`
	Items              []SalesInvoiceItem     `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (SalesInvoice) TableName() string {
	return "sales_invoices"
}

// NewSalesInvoice creates a new sales invoice in DRAFT status
func NewSalesInvoice(tenantID uuid.UUID, invoiceNumber string, customerID uuid.UUID, customerName string) (*SalesInvoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}

	inv := &SalesInvoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceNumber:       invoiceNumber,
		CustomerID:          customerID,
		CustomerName:        customerName,
		Status:              SalesInvoiceStatusDraft,
		PaymentStatus:       PaymentStatusPending,
		SubTotal:            decimal.Zero,
		Total:               decimal.Zero,
		AmountPaid:          decimal.Zero,
		Items:               make([]SalesInvoiceItem, 0),
	}

	inv.AddDomainEvent(NewSalesInvoiceCreatedEvent(inv))

	return inv, nil
}

// CanModifyItems returns true while line items may still be added or changed
func (inv *SalesInvoice) CanModifyItems() bool {
	return !inv.Fulfilled &&
		inv.Status != SalesInvoiceStatusCompleted &&
		inv.Status != SalesInvoiceStatusCancelled
}

// AddItem adds a new line item. A product may appear on at most one line.
func (inv *SalesInvoice) AddItem(productID uuid.UUID, productName string, quantity decimal.Decimal, unitPrice valueobject.Money) (*SalesInvoiceItem, error) {
	if !inv.CanModifyItems() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot add items to invoice in %s status", inv.Status))
	}
	for _, item := range inv.Items {
		if item.ProductID == productID {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists on invoice, update quantity instead")
		}
	}

	item, err := NewSalesInvoiceItem(inv.ID, productID, productName, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	inv.Items = append(inv.Items, *item)
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return item, nil
}

// UpdateItemQuantity updates the ordered quantity of an existing line
func (inv *SalesInvoice) UpdateItemQuantity(itemID uuid.UUID, quantity decimal.Decimal) error {
	if !inv.CanModifyItems() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot update items on invoice in %s status", inv.Status))
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	for idx := range inv.Items {
		if inv.Items[idx].ID == itemID {
			if quantity.LessThan(inv.Items[idx].QuantityFulfilled) {
				return shared.NewDomainError("INVALID_QUANTITY", "Ordered quantity cannot be below fulfilled quantity")
			}
			inv.Items[idx].Quantity = quantity
			inv.Items[idx].syncFlags()
			inv.Items[idx].UpdatedAt = time.Now()
			inv.UpdatedAt = time.Now()
			inv.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError("ITEM_NOT_FOUND", "Invoice item not found")
}

// RemoveItem removes a line item that has no fulfillment history
func (inv *SalesInvoice) RemoveItem(itemID uuid.UUID) error {
	if !inv.CanModifyItems() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot remove items from invoice in %s status", inv.Status))
	}

	for idx, item := range inv.Items {
		if item.ID == itemID {
			if item.QuantityFulfilled.GreaterThan(decimal.Zero) {
				return shared.NewDomainError("INVALID_STATE", "Cannot remove a line with fulfillment history")
			}
			inv.Items = append(inv.Items[:idx], inv.Items[idx+1:]...)
			inv.UpdatedAt = time.Now()
			inv.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError("ITEM_NOT_FOUND", "Invoice item not found")
}

// SetTax sets the invoice-level tax adjustment
func (inv *SalesInvoice) SetTax(tax valueobject.Adjustment) error {
	if err := tax.Validate(); err != nil {
		return shared.NewDomainError("INVALID_ADJUSTMENT", err.Error())
	}
	inv.Tax = tax
	inv.UpdatedAt = time.Now()
	return nil
}

// SetDiscount sets the invoice-level discount adjustment
func (inv *SalesInvoice) SetDiscount(discount valueobject.Adjustment) error {
	if err := discount.Validate(); err != nil {
		return shared.NewDomainError("INVALID_ADJUSTMENT", err.Error())
	}
	inv.Discount = discount
	inv.UpdatedAt = time.Now()
	return nil
}

// AdjustTotals recomputes sub_total and total from the current lines.
// An invoice-level discount overrides line discounts entirely; when it is
// absent the discount is the sum of the per-line discounts. Tax applies at
// invoice level only. An unknown adjustment kind is a validation error.
func (inv *SalesInvoice) AdjustTotals() error {
	subTotal := decimal.Zero
	for _, item := range inv.Items {
		subTotal = subTotal.Add(item.GrossAmount())
	}

	var discount decimal.Decimal
	if !inv.Discount.IsZero() {
		d, err := inv.Discount.ApplyTo(subTotal)
		if err != nil {
			return shared.NewDomainError("INVALID_ADJUSTMENT", err.Error())
		}
		discount = d
	} else {
		discount = decimal.Zero
		for _, item := range inv.Items {
			d, err := item.DiscountAmount()
			if err != nil {
				return shared.NewDomainError("INVALID_ADJUSTMENT", err.Error())
			}
			discount = discount.Add(d)
		}
	}

	tax, err := inv.Tax.ApplyTo(subTotal)
	if err != nil {
		return shared.NewDomainError("INVALID_ADJUSTMENT", err.Error())
	}

	inv.SubTotal = subTotal
	inv.Total = subTotal.Add(tax).Sub(discount)
	inv.UpdatedAt = time.Now()
	return nil
}

// MarkSent moves a draft invoice into SENT
func (inv *SalesInvoice) MarkSent() error {
	if inv.Status != SalesInvoiceStatusDraft && inv.Status != SalesInvoiceStatusOverdue {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot mark invoice in %s status as sent", inv.Status))
	}
	inv.Status = SalesInvoiceStatusSent
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
	return nil
}

// SetShipmentTargets records the cumulative shipped quantity per product
// and moves the invoice into the fulfillment-triggering status
func (inv *SalesInvoice) SetShipmentTargets(targets map[uuid.UUID]decimal.Decimal) error {
	if inv.Status == SalesInvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot ship against a cancelled invoice")
	}
	if inv.Fulfilled {
		return shared.NewDomainError("NOTHING_TO_SHIP", "Invoice is already fully fulfilled")
	}
	if len(targets) == 0 {
		return shared.NewDomainError("NOTHING_TO_SHIP", "No shipment quantities provided")
	}

	for productID, quantity := range targets {
		item := inv.GetItemByProduct(productID)
		if item == nil {
			return shared.NewDomainError("ITEM_NOT_FOUND",
				fmt.Sprintf("Product %s not found on invoice", productID))
		}
		if err := item.SetShippedQuantity(quantity); err != nil {
			return err
		}
	}

	if inv.allTargetsComplete() {
		inv.Status = SalesInvoiceStatusCompleted
	} else {
		inv.Status = SalesInvoiceStatusPartiallyCompleted
	}
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
	return nil
}

func (inv *SalesInvoice) allTargetsComplete() bool {
	for _, item := range inv.Items {
		if item.QuantityShipped.LessThan(item.Quantity) {
			return false
		}
	}
	return len(inv.Items) > 0
}

// FulfillmentTarget returns the quantity the reconciliation engine should
// drive the line's ledger sum towards. A COMPLETED invoice targets the
// ordered quantity; a partially completed one targets the line's declared
// shipped quantity.
func (inv *SalesInvoice) FulfillmentTarget(item *SalesInvoiceItem) decimal.Decimal {
	if inv.Status == SalesInvoiceStatusCompleted {
		return item.Quantity
	}
	return item.QuantityShipped
}

// RecomputeFulfillment re-derives the invoice-level flags and status from
// the current line states. Fulfilled and PartiallyFulfilled are mutually
// exclusive.
func (inv *SalesInvoice) RecomputeFulfillment() {
	states := make([]FulfillmentState, 0, len(inv.Items))
	for idx := range inv.Items {
		inv.Items[idx].syncFlags()
		states = append(states, inv.Items[idx].State())
	}

	switch AggregateLineStates(states) {
	case FulfillmentFulfilled:
		inv.Fulfilled = true
		inv.PartiallyFulfilled = false
		inv.Status = SalesInvoiceStatusCompleted
	case FulfillmentPartial:
		inv.Fulfilled = false
		inv.PartiallyFulfilled = true
		inv.Status = SalesInvoiceStatusPartiallyCompleted
	default:
		inv.Fulfilled = false
		inv.PartiallyFulfilled = false
	}
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
}

// IsFullyApplied is the invoice-level idempotency guard
func (inv *SalesInvoice) IsFullyApplied() bool {
	return inv.Fulfilled
}

// MarkLineReturned marks one line as returned
func (inv *SalesInvoice) MarkLineReturned(lineID uuid.UUID) (*SalesInvoiceItem, error) {
	item := inv.GetItem(lineID)
	if item == nil {
		return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Invoice item not found")
	}
	if err := item.MarkReturned(); err != nil {
		return nil, err
	}
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
	return item, nil
}

// GetItem returns an item by its ID
func (inv *SalesInvoice) GetItem(itemID uuid.UUID) *SalesInvoiceItem {
	for idx := range inv.Items {
		if inv.Items[idx].ID == itemID {
			return &inv.Items[idx]
		}
	}
	return nil
}

// GetItemByProduct returns an item by product ID
func (inv *SalesInvoice) GetItemByProduct(productID uuid.UUID) *SalesInvoiceItem {
	for idx := range inv.Items {
		if inv.Items[idx].ProductID == productID {
			return &inv.Items[idx]
		}
	}
	return nil
}

// ItemCount returns the number of line items
func (inv *SalesInvoice) ItemCount() int {
	return len(inv.Items)
}
