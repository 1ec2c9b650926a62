package invoicing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/shared"
	"github.com/stockbooks/backend/internal/domain/shared/valueobject"
)

// PurchaseInvoiceStatus represents the status of a purchase invoice
type PurchaseInvoiceStatus string

const (
	PurchaseInvoiceStatusDraft             PurchaseInvoiceStatus = "DRAFT"
	PurchaseInvoiceStatusReceived          PurchaseInvoiceStatus = "RECEIVED"
	PurchaseInvoiceStatusPartiallyReceived PurchaseInvoiceStatus = "PARTIALLY_RECEIVED"
	PurchaseInvoiceStatusOverdue           PurchaseInvoiceStatus = "OVERDUE"
	PurchaseInvoiceStatusCancelled         PurchaseInvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PurchaseInvoiceStatus
func (s PurchaseInvoiceStatus) IsValid() bool {
	switch s {
	case PurchaseInvoiceStatusDraft, PurchaseInvoiceStatusReceived,
		PurchaseInvoiceStatusPartiallyReceived, PurchaseInvoiceStatusOverdue,
		PurchaseInvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PurchaseInvoiceStatus
func (s PurchaseInvoiceStatus) String() string {
	return string(s)
}

// TriggersFulfillment returns true if the status is in the set that lets
// the reconciliation engine apply inventory changes.
func (s PurchaseInvoiceStatus) TriggersFulfillment() bool {
	return s == PurchaseInvoiceStatusReceived || s == PurchaseInvoiceStatusPartiallyReceived
}

// PurchaseInvoiceItem represents a line item on a purchase invoice.
// Quantity is what was ordered; QuantityReceived is the cumulative target
// declared by restock requests; QuantityFulfilled is the ledger-confirmed
// cumulative quantity actually applied to inventory.
type PurchaseInvoiceItem struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_pi_item_invoice_product,priority:1"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_pi_item_invoice_product,priority:2"`
	ProductName        string          `gorm:"type:varchar(200);not null"`
	Quantity           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityReceived   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityFulfilled  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Fulfilled          bool            `gorm:"not null;default:false"`
	PartiallyFulfilled bool            `gorm:"not null;default:false"`
	TrackCode          string          `gorm:"type:varchar(100)"`
	Notes              string          `gorm:"type:text"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseInvoiceItem) TableName() string {
	return "purchase_invoice_items"
}

// NewPurchaseInvoiceItem creates a new purchase invoice line item
func NewPurchaseInvoiceItem(invoiceID, productID uuid.UUID, productName string, quantity decimal.Decimal, unitCost valueobject.Money) (*PurchaseInvoiceItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	now := time.Now()
	return &PurchaseInvoiceItem{
		ID:                uuid.New(),
		InvoiceID:         invoiceID,
		ProductID:         productID,
		ProductName:       productName,
		Quantity:          quantity,
		QuantityReceived:  decimal.Zero,
		QuantityFulfilled: decimal.Zero,
		UnitCost:          unitCost.Amount(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// State returns the line's fulfillment state derived from quantities
func (i *PurchaseInvoiceItem) State() FulfillmentState {
	return DeriveLineState(i.Quantity, i.QuantityFulfilled)
}

// Amount returns the line amount (ordered quantity x unit cost)
func (i *PurchaseInvoiceItem) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitCost)
}

// SetReceivedQuantity sets the cumulative received target for the line.
// The target may never exceed the ordered quantity and may never move
// backwards below what the ledger has already confirmed.
func (i *PurchaseInvoiceItem) SetReceivedQuantity(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Received quantity cannot be negative")
	}
	if quantity.GreaterThan(i.Quantity) {
		return shared.NewDomainError("OVER_FULFILLMENT",
			fmt.Sprintf("Received quantity %s exceeds ordered quantity %s", quantity.String(), i.Quantity.String()))
	}
	if quantity.LessThan(i.QuantityFulfilled) {
		return shared.NewDomainError("INVALID_QUANTITY",
			fmt.Sprintf("Received quantity %s is below already fulfilled quantity %s", quantity.String(), i.QuantityFulfilled.String()))
	}

	i.QuantityReceived = quantity
	i.UpdatedAt = time.Now()
	return nil
}

// ApplyDelta records a positive applied delta against the line's cached
// fulfilled quantity and refreshes the fulfillment flags. The caller must
// have written a matching ledger entry in the same transaction.
func (i *PurchaseInvoiceItem) ApplyDelta(delta decimal.Decimal) error {
	if delta.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Applied delta must be positive")
	}

	fulfilled := i.QuantityFulfilled.Add(delta)
	if fulfilled.GreaterThan(i.Quantity) {
		return shared.ErrOverFulfillment
	}

	i.QuantityFulfilled = fulfilled
	if i.QuantityReceived.LessThan(fulfilled) {
		i.QuantityReceived = fulfilled
	}
	i.syncFlags()
	i.UpdatedAt = time.Now()
	return nil
}

// syncFlags keeps the stored flags a pure function of the derived state
func (i *PurchaseInvoiceItem) syncFlags() {
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

// PurchaseInvoice is the aggregate root for stock-inflow invoices.
// Fulfillment flags are always a pure function of line-level flags;
// the Fulfilled and PartiallyFulfilled flags are mutually exclusive.
type PurchaseInvoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber      string                 `gorm:"type:varchar(50);not null;uniqueIndex:idx_purchase_invoice_tenant_number,priority:2"`
	SupplierID         uuid.UUID              `gorm:"type:uuid;not null;index"`
	SupplierName       string                 `gorm:"type:varchar(200);not null"`
	Status             PurchaseInvoiceStatus  `gorm:"type:varchar(20);not null;default:'DRAFT'"`
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
	Items              []PurchaseInvoiceItem  `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseInvoice) TableName() string {
	return "purchase_invoices"
}

// NewPurchaseInvoice creates a new purchase invoice in DRAFT status
func NewPurchaseInvoice(tenantID uuid.UUID, invoiceNumber string, supplierID uuid.UUID, supplierName string) (*PurchaseInvoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier ID cannot be empty")
	}
	if supplierName == "" {
		return nil, shared.NewDomainError("INVALID_SUPPLIER_NAME", "Supplier name cannot be empty")
	}

	inv := &PurchaseInvoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceNumber:       invoiceNumber,
		SupplierID:          supplierID,
		SupplierName:        supplierName,
		Status:              PurchaseInvoiceStatusDraft,
		PaymentStatus:       PaymentStatusPending,
		SubTotal:            decimal.Zero,
		Total:               decimal.Zero,
		AmountPaid:          decimal.Zero,
		Items:               make([]PurchaseInvoiceItem, 0),
	}

	inv.AddDomainEvent(NewPurchaseInvoiceCreatedEvent(inv))

	return inv, nil
}

// CanModifyItems returns true while line items may still be added or changed
func (inv *PurchaseInvoice) CanModifyItems() bool {
	return !inv.Fulfilled &&
		inv.Status != PurchaseInvoiceStatusReceived &&
		inv.Status != PurchaseInvoiceStatusCancelled
}

// AddItem adds a new line item. A product may appear on at most one line.
func (inv *PurchaseInvoice) AddItem(productID uuid.UUID, productName string, quantity decimal.Decimal, unitCost valueobject.Money) (*PurchaseInvoiceItem, error) {
	if !inv.CanModifyItems() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot add items to invoice in %s status", inv.Status))
	}
	for _, item := range inv.Items {
		if item.ProductID == productID {
			return nil, shared.NewDomainError("DUPLICATE_PRODUCT", "Product already exists on invoice, update quantity instead")
		}
	}

	item, err := NewPurchaseInvoiceItem(inv.ID, productID, productName, quantity, unitCost)
	if err != nil {
		return nil, err
	}

	inv.Items = append(inv.Items, *item)
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return item, nil
}

// UpdateItemQuantity updates the ordered quantity of an existing line
func (inv *PurchaseInvoice) UpdateItemQuantity(itemID uuid.UUID, quantity decimal.Decimal) error {
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
func (inv *PurchaseInvoice) RemoveItem(itemID uuid.UUID) error {
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
func (inv *PurchaseInvoice) SetTax(tax valueobject.Adjustment) error {
	if err := tax.Validate(); err != nil {
		return shared.NewDomainError("INVALID_ADJUSTMENT", err.Error())
	}
	inv.Tax = tax
	inv.UpdatedAt = time.Now()
	return nil
}

// SetDiscount sets the invoice-level discount adjustment
func (inv *PurchaseInvoice) SetDiscount(discount valueobject.Adjustment) error {
	if err := discount.Validate(); err != nil {
		return shared.NewDomainError("INVALID_ADJUSTMENT", err.Error())
	}
	inv.Discount = discount
	inv.UpdatedAt = time.Now()
	return nil
}

// AdjustTotals recomputes sub_total and total from the current lines.
// Tax and discount are applied at invoice level only; an unknown
// adjustment kind is a validation error, never silently defaulted.
func (inv *PurchaseInvoice) AdjustTotals() error {
	subTotal := decimal.Zero
	for _, item := range inv.Items {
		subTotal = subTotal.Add(item.Quantity.Mul(item.UnitCost))
	}

	tax, err := inv.Tax.ApplyTo(subTotal)
	if err != nil {
		return shared.NewDomainError("INVALID_ADJUSTMENT", err.Error())
	}
	discount, err := inv.Discount.ApplyTo(subTotal)
	if err != nil {
		return shared.NewDomainError("INVALID_ADJUSTMENT", err.Error())
	}

	inv.SubTotal = subTotal
	inv.Total = subTotal.Add(tax).Sub(discount)
	inv.UpdatedAt = time.Now()
	return nil
}

// SetRestockTargets records the cumulative received quantity per product
// and moves the invoice into the fulfillment-triggering status. Targets
// for products not on the invoice are rejected.
func (inv *PurchaseInvoice) SetRestockTargets(targets map[uuid.UUID]decimal.Decimal) error {
	if inv.Status == PurchaseInvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot restock a cancelled invoice")
	}
	if inv.Fulfilled {
		return shared.NewDomainError("NOTHING_TO_RESTOCK", "Invoice is already fully restocked")
	}
	if len(targets) == 0 {
		return shared.NewDomainError("NOTHING_TO_RESTOCK", "No restock quantities provided")
	}

	for productID, quantity := range targets {
		item := inv.GetItemByProduct(productID)
		if item == nil {
			return shared.NewDomainError("ITEM_NOT_FOUND",
				fmt.Sprintf("Product %s not found on invoice", productID))
		}
		if err := item.SetReceivedQuantity(quantity); err != nil {
			return err
		}
	}

	if inv.allTargetsComplete() {
		inv.Status = PurchaseInvoiceStatusReceived
	} else {
		inv.Status = PurchaseInvoiceStatusPartiallyReceived
	}
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
	return nil
}

// allTargetsComplete reports whether every line's received target covers
// its full ordered quantity.
func (inv *PurchaseInvoice) allTargetsComplete() bool {
	for _, item := range inv.Items {
		if item.QuantityReceived.LessThan(item.Quantity) {
			return false
		}
	}
	return len(inv.Items) > 0
}

// FulfillmentTarget returns the quantity the reconciliation engine should
// drive the line's ledger sum towards. A fully RECEIVED invoice targets
// the ordered quantity; a partially received one targets the line's
// declared received quantity.
func (inv *PurchaseInvoice) FulfillmentTarget(item *PurchaseInvoiceItem) decimal.Decimal {
	if inv.Status == PurchaseInvoiceStatusReceived {
		return item.Quantity
	}
	return item.QuantityReceived
}

// RecomputeFulfillment re-derives the invoice-level flags and status from
// the current line states. It never stores an inconsistent combination:
// Fulfilled and PartiallyFulfilled are mutually exclusive, and both are
// false only when no line has any fulfillment.
func (inv *PurchaseInvoice) RecomputeFulfillment() {
	states := make([]FulfillmentState, 0, len(inv.Items))
	for idx := range inv.Items {
		inv.Items[idx].syncFlags()
		states = append(states, inv.Items[idx].State())
	}

	switch AggregateLineStates(states) {
	case FulfillmentFulfilled:
		inv.Fulfilled = true
		inv.PartiallyFulfilled = false
		inv.Status = PurchaseInvoiceStatusReceived
	case FulfillmentPartial:
		inv.Fulfilled = false
		inv.PartiallyFulfilled = true
		inv.Status = PurchaseInvoiceStatusPartiallyReceived
	default:
		inv.Fulfilled = false
		inv.PartiallyFulfilled = false
	}
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
}

// IsFullyApplied is the invoice-level idempotency guard: once true, the
// reconciliation engine must not re-enter the apply path.
func (inv *PurchaseInvoice) IsFullyApplied() bool {
	return inv.Fulfilled
}

// GetItem returns an item by its ID
func (inv *PurchaseInvoice) GetItem(itemID uuid.UUID) *PurchaseInvoiceItem {
	for idx := range inv.Items {
		if inv.Items[idx].ID == itemID {
			return &inv.Items[idx]
		}
	}
	return nil
}

// GetItemByProduct returns an item by product ID
func (inv *PurchaseInvoice) GetItemByProduct(productID uuid.UUID) *PurchaseInvoiceItem {
	for idx := range inv.Items {
		if inv.Items[idx].ProductID == productID {
			return &inv.Items[idx]
		}
	}
	return nil
}

// ItemCount returns the number of line items
func (inv *PurchaseInvoice) ItemCount() int {
	return len(inv.Items)
}

// MapToProducts indexes the invoice lines by product ID
func (inv *PurchaseInvoice) MapToProducts() map[uuid.UUID]*PurchaseInvoiceItem {
	m := make(map[uuid.UUID]*PurchaseInvoiceItem, len(inv.Items))
	for idx := range inv.Items {
		m[inv.Items[idx].ProductID] = &inv.Items[idx]
	}
	return m
}
