package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/shared"
)

// Repository persists inventory items
type Repository interface {
	shared.TenantRepository[InventoryItem]

	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*InventoryItem, error)

	// FindByProducts loads the rows for a batch of products, keyed by
	// product ID. Products with no row yet are absent from the result.
	FindByProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]*InventoryItem, error)

	// FindByProductsForUpdate is FindByProducts under row locks; must be
	// called inside a transaction scope.
	FindByProductsForUpdate(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]*InventoryItem, error)

	// SaveWithLock persists the item with an optimistic version check
	SaveWithLock(ctx context.Context, item *InventoryItem) error

	FindBelowReorderLevel(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]InventoryItem, error)
	DeleteBatch(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error

	// TotalStockValue sums on-hand quantity times average cost per tenant
	TotalStockValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error)
}
