package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/shared"
)

// Event types for the inventory domain
const (
	EventTypeStockRestocked         = "inventory.stock_restocked"
	EventTypeStockDeducted          = "inventory.stock_deducted"
	EventTypeStockBelowReorderLevel = "inventory.stock_below_reorder_level"
)

// StockRestockedEvent is published when stock is added to an inventory row
type StockRestockedEvent struct {
	shared.BaseDomainEvent
	ProductID     uuid.UUID       `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	OnHandAfter   decimal.Decimal `json:"on_hand_after"`
	TransactionID string          `json:"transaction_id"`
}

// NewStockRestockedEvent creates a new stock restocked event
func NewStockRestockedEvent(item *InventoryItem, quantity decimal.Decimal, transactionID string) *StockRestockedEvent {
	return &StockRestockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockRestocked, "InventoryItem", item.ID, item.TenantID),
		ProductID:       item.ProductID,
		Quantity:        quantity,
		OnHandAfter:     item.QuantityOnHand,
		TransactionID:   transactionID,
	}
}

// StockDeductedEvent is published when stock is removed from an inventory row
type StockDeductedEvent struct {
	shared.BaseDomainEvent
	ProductID     uuid.UUID       `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	OnHandAfter   decimal.Decimal `json:"on_hand_after"`
	TransactionID string          `json:"transaction_id"`
}

// NewStockDeductedEvent creates a new stock deducted event
func NewStockDeductedEvent(item *InventoryItem, quantity decimal.Decimal, transactionID string) *StockDeductedEvent {
	return &StockDeductedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockDeducted, "InventoryItem", item.ID, item.TenantID),
		ProductID:       item.ProductID,
		Quantity:        quantity,
		OnHandAfter:     item.QuantityOnHand,
		TransactionID:   transactionID,
	}
}

// StockBelowReorderLevelEvent fires when a deduction breaches the reorder level
type StockBelowReorderLevelEvent struct {
	shared.BaseDomainEvent
	ProductID    uuid.UUID       `json:"product_id"`
	OnHand       decimal.Decimal `json:"on_hand"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
}

// NewStockBelowReorderLevelEvent creates a new reorder alert event
func NewStockBelowReorderLevelEvent(item *InventoryItem) *StockBelowReorderLevelEvent {
	return &StockBelowReorderLevelEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowReorderLevel, "InventoryItem", item.ID, item.TenantID),
		ProductID:       item.ProductID,
		OnHand:          item.QuantityOnHand,
		ReorderLevel:    item.ReorderLevel,
	}
}
