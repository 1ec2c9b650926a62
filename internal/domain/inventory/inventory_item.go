package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/shared"
	"github.com/stockbooks/backend/internal/domain/shared/valueobject"
)

// InventoryItem is the on-hand stock record for a product within a tenant.
// The composite identifier is TenantID + ProductID; LocationID is optional
// and stays nil when the tenant has no default location configured.
//
// Rows are created lazily by the first fulfillment that touches the product
// and mutated only through Restock, Deduct and Restore, each of which pairs
// with a ledger entry written in the same transaction.
type InventoryItem struct {
	shared.TenantAggregateRoot
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_tenant_product,priority:2"`
	ProductName       string          `gorm:"type:varchar(200);not null"`
	LocationID        *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // cumulative received
	QuantityOnHand    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityReserved  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // moving weighted average
	ReorderLevel      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastTransactionID string          `gorm:"type:varchar(50)"`
	LastTransactionAt *time.Time
}

// TableName returns the table name for GORM
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// NewInventoryItem creates a stock record for a tenant-product combination
func NewInventoryItem(tenantID, productID uuid.UUID, productName string, locationID *uuid.UUID) (*InventoryItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}

	return &InventoryItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		ProductName:         productName,
		LocationID:          locationID,
		Quantity:            decimal.Zero,
		QuantityOnHand:      decimal.Zero,
		QuantityReserved:    decimal.Zero,
		UnitCost:            decimal.Zero,
		ReorderLevel:        decimal.Zero,
	}, nil
}

// Restock increases on-hand stock and recalculates the unit cost as a
// moving weighted average over the existing on-hand value.
func (i *InventoryItem) Restock(quantity decimal.Decimal, unitCost valueobject.Money, transactionID string) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	oldQuantity := i.QuantityOnHand
	if oldQuantity.LessThanOrEqual(decimal.Zero) {
		i.UnitCost = unitCost.Amount()
	} else {
		totalValue := oldQuantity.Mul(i.UnitCost).Add(quantity.Mul(unitCost.Amount()))
		i.UnitCost = totalValue.Div(oldQuantity.Add(quantity)).Round(4)
	}

	i.Quantity = i.Quantity.Add(quantity)
	i.QuantityOnHand = i.QuantityOnHand.Add(quantity)
	i.touch(transactionID)

	i.AddDomainEvent(NewStockRestockedEvent(i, quantity, transactionID))
	return nil
}

// Deduct decreases on-hand stock. Driving on-hand below zero is rejected
// with INSUFFICIENT_STOCK, never clamped.
func (i *InventoryItem) Deduct(quantity decimal.Decimal, transactionID string) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Deduct quantity must be positive")
	}
	if i.QuantityOnHand.LessThan(quantity) {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			"Insufficient stock on hand: have "+i.QuantityOnHand.String()+", need "+quantity.String())
	}

	i.QuantityOnHand = i.QuantityOnHand.Sub(quantity)
	i.touch(transactionID)

	i.AddDomainEvent(NewStockDeductedEvent(i, quantity, transactionID))
	if i.IsBelowReorderLevel() {
		i.AddDomainEvent(NewStockBelowReorderLevelEvent(i))
	}
	return nil
}

// Restore puts previously deducted stock back on hand, used by the return
// restock policy. Unlike Restock it does not move the average cost.
func (i *InventoryItem) Restore(quantity decimal.Decimal, transactionID string) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Restore quantity must be positive")
	}

	i.QuantityOnHand = i.QuantityOnHand.Add(quantity)
	i.touch(transactionID)

	i.AddDomainEvent(NewStockRestockedEvent(i, quantity, transactionID))
	return nil
}

// Reserve moves on-hand stock into the reserved bucket
func (i *InventoryItem) Reserve(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if i.AvailableQuantity().LessThan(quantity) {
		return shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient unreserved stock")
	}

	i.QuantityReserved = i.QuantityReserved.Add(quantity)
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// ReleaseReservation returns reserved stock to the available pool
func (i *InventoryItem) ReleaseReservation(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if i.QuantityReserved.LessThan(quantity) {
		return shared.NewDomainError("INVALID_QUANTITY", "Cannot release more than is reserved")
	}

	i.QuantityReserved = i.QuantityReserved.Sub(quantity)
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// SetReorderLevel sets the threshold below which a reorder alert fires
func (i *InventoryItem) SetReorderLevel(level decimal.Decimal) error {
	if level.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Reorder level cannot be negative")
	}
	i.ReorderLevel = level
	i.UpdatedAt = time.Now()
	return nil
}

// SetLocation assigns or clears the stock location
func (i *InventoryItem) SetLocation(locationID *uuid.UUID) {
	i.LocationID = locationID
	i.UpdatedAt = time.Now()
}

func (i *InventoryItem) touch(transactionID string) {
	now := time.Now()
	i.LastTransactionID = transactionID
	i.LastTransactionAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()
}

// AvailableQuantity returns on-hand stock not held by a reservation
func (i *InventoryItem) AvailableQuantity() decimal.Decimal {
	return i.QuantityOnHand.Sub(i.QuantityReserved)
}

// CanFulfill returns true if on-hand stock covers the requested quantity
func (i *InventoryItem) CanFulfill(quantity decimal.Decimal) bool {
	return i.QuantityOnHand.GreaterThanOrEqual(quantity)
}

// IsBelowReorderLevel returns true when a positive reorder level is breached
func (i *InventoryItem) IsBelowReorderLevel() bool {
	return i.ReorderLevel.GreaterThan(decimal.Zero) && i.QuantityOnHand.LessThan(i.ReorderLevel)
}

// TotalValue returns on-hand quantity times the moving average cost
func (i *InventoryItem) TotalValue() valueobject.Money {
	return valueobject.NewMoneyUSD(i.QuantityOnHand.Mul(i.UnitCost))
}

// HasMovementHistory reports whether any ledger movement ever touched the row
func (i *InventoryItem) HasMovementHistory() bool {
	return i.LastTransactionID != ""
}
