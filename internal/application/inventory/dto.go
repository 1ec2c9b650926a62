package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/inventory"
)

// ListFilter carries list filtering options for stock records
type ListFilter struct {
	Page              int    `form:"page"`
	PageSize          int    `form:"page_size"`
	OrderBy           string `form:"order_by"`
	OrderDir          string `form:"order_dir"`
	Search            string `form:"search"`
	BelowReorderLevel bool   `form:"below_reorder_level"`
}

// SetReorderLevelRequest updates the reorder threshold
type SetReorderLevelRequest struct {
	ReorderLevel decimal.Decimal `json:"reorder_level" binding:"required"`
}

// BulkDeleteRequest removes a batch of stock records
type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1"`
}

// BulkDeleteResult reports which rows were deleted or blocked
type BulkDeleteResult struct {
	Deleted []uuid.UUID `json:"deleted,omitempty"`
	Blocked []uuid.UUID `json:"blocked,omitempty"`
}

// InventoryItemResponse is the read model of a stock record
type InventoryItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	ProductName       string          `json:"product_name"`
	LocationID        *uuid.UUID      `json:"location_id,omitempty"`
	Quantity          decimal.Decimal `json:"quantity"`
	QuantityOnHand    decimal.Decimal `json:"quantity_on_hand"`
	QuantityReserved  decimal.Decimal `json:"quantity_reserved"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	TotalValue        decimal.Decimal `json:"total_value"`
	ReorderLevel      decimal.Decimal `json:"reorder_level"`
	BelowReorderLevel bool            `json:"below_reorder_level"`
	LastTransactionID string          `json:"last_transaction_id,omitempty"`
	LastTransactionAt *time.Time      `json:"last_transaction_at,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ToInventoryItemResponse converts a stock record to its response DTO
func ToInventoryItemResponse(item *inventory.InventoryItem) InventoryItemResponse {
	return InventoryItemResponse{
		ID:                item.ID,
		ProductID:         item.ProductID,
		ProductName:       item.ProductName,
		LocationID:        item.LocationID,
		Quantity:          item.Quantity,
		QuantityOnHand:    item.QuantityOnHand,
		QuantityReserved:  item.QuantityReserved,
		UnitCost:          item.UnitCost,
		TotalValue:        item.TotalValue().Amount(),
		ReorderLevel:      item.ReorderLevel,
		BelowReorderLevel: item.IsBelowReorderLevel(),
		LastTransactionID: item.LastTransactionID,
		LastTransactionAt: item.LastTransactionAt,
		UpdatedAt:         item.UpdatedAt,
	}
}
