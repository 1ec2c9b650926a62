package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockbooks/backend/internal/domain/inventory"
	"github.com/stockbooks/backend/internal/domain/shared"
)

// GormInventoryRepository implements inventory.Repository using GORM
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// FindByID finds an inventory item by its ID
func (r *GormInventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByIDForTenant finds an inventory item by ID within a tenant
func (r *GormInventoryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindAll finds all inventory items matching the filter
func (r *GormInventoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.InventoryItem, error) {
	var items []inventory.InventoryItem
	query := applySortAndPagination(
		r.db.WithContext(ctx).Model(&inventory.InventoryItem{}),
		filter, InventorySortFields,
	)
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindAllForTenant finds all inventory items for a tenant
func (r *GormInventoryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]inventory.InventoryItem, error) {
	var items []inventory.InventoryItem
	query := applySortAndPagination(
		r.filtered(r.db.WithContext(ctx).Model(&inventory.InventoryItem{}).
			Where("tenant_id = ?", tenantID), filter),
		filter, InventorySortFields,
	)
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindByProduct finds the inventory row for one product
func (r *GormInventoryRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByProducts loads the rows for a batch of products, keyed by product ID
func (r *GormInventoryRepository) FindByProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]*inventory.InventoryItem, error) {
	return r.findByProducts(ctx, tenantID, productIDs, false)
}

// FindByProductsForUpdate is FindByProducts with SELECT ... FOR UPDATE row locks
func (r *GormInventoryRepository) FindByProductsForUpdate(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]*inventory.InventoryItem, error) {
	return r.findByProducts(ctx, tenantID, productIDs, true)
}

func (r *GormInventoryRepository) findByProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID, forUpdate bool) (map[uuid.UUID]*inventory.InventoryItem, error) {
	result := make(map[uuid.UUID]*inventory.InventoryItem, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	query := r.db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var items []inventory.InventoryItem
	if err := query.
		Where("tenant_id = ? AND product_id IN ?", tenantID, productIDs).
		Find(&items).Error; err != nil {
		return nil, err
	}
	for idx := range items {
		result[items[idx].ProductID] = &items[idx]
	}
	return result, nil
}

// Save creates or updates an inventory item
func (r *GormInventoryRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormInventoryRepository) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	result := r.db.WithContext(ctx).
		Model(item).
		Where("id = ? AND version < ?", item.ID, item.Version).
		Updates(map[string]interface{}{
			"quantity":            item.Quantity,
			"quantity_on_hand":    item.QuantityOnHand,
			"quantity_reserved":   item.QuantityReserved,
			"unit_cost":           item.UnitCost,
			"reorder_level":       item.ReorderLevel,
			"location_id":         item.LocationID,
			"last_transaction_id": item.LastTransactionID,
			"last_transaction_at": item.LastTransactionAt,
			"version":             item.Version,
			"updated_at":          item.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindBelowReorderLevel finds items at or below their reorder level
func (r *GormInventoryRepository) FindBelowReorderLevel(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]inventory.InventoryItem, error) {
	var items []inventory.InventoryItem
	query := applySortAndPagination(
		r.db.WithContext(ctx).Model(&inventory.InventoryItem{}).
			Where("tenant_id = ? AND reorder_level > 0 AND quantity_on_hand <= reorder_level", tenantID),
		filter, InventorySortFields,
	)
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Delete deletes an inventory item
func (r *GormInventoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&inventory.InventoryItem{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteBatch deletes a batch of inventory rows within a tenant
func (r *GormInventoryRepository) DeleteBatch(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Delete(&inventory.InventoryItem{}, "tenant_id = ? AND id IN ?", tenantID, ids).Error
}

// Count counts inventory items matching the filter
func (r *GormInventoryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.filtered(r.db.WithContext(ctx).Model(&inventory.InventoryItem{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountForTenant counts the tenant's inventory items matching the filter
func (r *GormInventoryRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.filtered(r.db.WithContext(ctx).Model(&inventory.InventoryItem{}).
		Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TotalStockValue sums on-hand quantity times average cost per tenant
func (r *GormInventoryRepository) TotalStockValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&inventory.InventoryItem{}).
		Select("COALESCE(SUM(quantity_on_hand * unit_cost), 0) as total").
		Where("tenant_id = ?", tenantID).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// filtered applies map-based filter criteria to the query
func (r *GormInventoryRepository) filtered(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "location_id":
			query = query.Where("location_id = ?", value)
		case "below_reorder_level":
			if value == true {
				query = query.Where("reorder_level > 0 AND quantity_on_hand <= reorder_level")
			}
		case "has_stock":
			if value == true {
				query = query.Where("quantity_on_hand > 0")
			}
		}
	}
	if filter.Search != "" {
		query = query.Where("product_name ILIKE ?", "%"+filter.Search+"%")
	}
	return query
}

// Ensure GormInventoryRepository implements inventory.Repository
var _ inventory.Repository = (*GormInventoryRepository)(nil)
