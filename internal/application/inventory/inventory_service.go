package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/inventory"
	"github.com/stockbooks/backend/internal/domain/invoicing"
	"github.com/stockbooks/backend/internal/domain/shared"
)

// InventoryService exposes read and maintenance operations over the stock
// records. Stock quantities themselves are mutated only by reconciliation,
// never through this service.
type InventoryService struct {
	invRepo    inventory.Repository
	ledgerRepo invoicing.LedgerRepository
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(invRepo inventory.Repository, ledgerRepo invoicing.LedgerRepository) *InventoryService {
	return &InventoryService{
		invRepo:    invRepo,
		ledgerRepo: ledgerRepo,
	}
}

// GetByProduct retrieves the stock record for a product
func (s *InventoryService) GetByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*InventoryItemResponse, error) {
	item, err := s.invRepo.FindByProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	response := ToInventoryItemResponse(item)
	return &response, nil
}

// List retrieves stock records with filtering and pagination
func (s *InventoryService) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) (shared.Paginated[InventoryItemResponse], error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search

	var (
		items []inventory.InventoryItem
		err   error
	)
	if filter.BelowReorderLevel {
		items, err = s.invRepo.FindBelowReorderLevel(ctx, tenantID, domainFilter)
	} else {
		items, err = s.invRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	}
	if err != nil {
		return shared.Paginated[InventoryItemResponse]{}, err
	}

	total, err := s.invRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return shared.Paginated[InventoryItemResponse]{}, err
	}

	responses := make([]InventoryItemResponse, 0, len(items))
	for idx := range items {
		responses = append(responses, ToInventoryItemResponse(&items[idx]))
	}
	return shared.NewPaginated(responses, total, domainFilter.Page, domainFilter.PageSize), nil
}

// SetReorderLevel updates the reorder threshold on a stock record
func (s *InventoryService) SetReorderLevel(ctx context.Context, tenantID, productID uuid.UUID, level decimal.Decimal) (*InventoryItemResponse, error) {
	item, err := s.invRepo.FindByProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	if err := item.SetReorderLevel(level); err != nil {
		return nil, err
	}
	if err := s.invRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	response := ToInventoryItemResponse(item)
	return &response, nil
}

// BulkDelete removes stock records that have no ledger history. Rows whose
// product appears in any ledger entry are rejected as a batch: deleting
// them would orphan the movement audit trail.
func (s *InventoryService) BulkDelete(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (*BulkDeleteResult, error) {
	if len(ids) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "No inventory item IDs provided")
	}

	blocked := make([]uuid.UUID, 0)
	deletable := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		item, err := s.invRepo.FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		count, err := s.ledgerRepo.CountOpenByProduct(ctx, tenantID, item.ProductID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			blocked = append(blocked, id)
			continue
		}
		deletable = append(deletable, id)
	}

	if len(blocked) > 0 {
		return &BulkDeleteResult{Blocked: blocked},
			shared.NewDomainError("HAS_LEDGER_HISTORY", "Some inventory items have ledger history and cannot be deleted")
	}

	if err := s.invRepo.DeleteBatch(ctx, tenantID, deletable); err != nil {
		return nil, err
	}
	return &BulkDeleteResult{Deleted: deletable}, nil
}

// StockValue returns the tenant's total on-hand stock value
func (s *InventoryService) StockValue(ctx context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	return s.invRepo.TotalStockValue(ctx, tenantID)
}
