package invoicing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/invoicing"
	"github.com/stockbooks/backend/internal/domain/shared"
	"github.com/stockbooks/backend/internal/domain/shared/valueobject"
)

// PurchaseInvoiceService handles purchase invoice business operations.
// Restocking is the write that triggers reconciliation: the status change
// and the reconciliation pass commit in the same transaction, so a rejected
// pass rolls the status change back with it.
type PurchaseInvoiceService struct {
	scope          TransactionScope
	invoiceRepo    invoicing.PurchaseInvoiceRepository
	ledgerRepo     invoicing.LedgerRepository
	reconciler     *ReconciliationService
	eventPublisher shared.EventPublisher
}

// NewPurchaseInvoiceService creates a new PurchaseInvoiceService
func NewPurchaseInvoiceService(scope TransactionScope, invoiceRepo invoicing.PurchaseInvoiceRepository, ledgerRepo invoicing.LedgerRepository, reconciler *ReconciliationService) *PurchaseInvoiceService {
	return &PurchaseInvoiceService{
		scope:       scope,
		invoiceRepo: invoiceRepo,
		ledgerRepo:  ledgerRepo,
		reconciler:  reconciler,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PurchaseInvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new purchase invoice, optionally with its line items
func (s *PurchaseInvoiceService) Create(ctx context.Context, tenantID uuid.UUID, req CreatePurchaseInvoiceRequest) (*PurchaseInvoiceResponse, error) {
	if existing, _ := s.invoiceRepo.FindByNumber(ctx, tenantID, req.InvoiceNumber); existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Invoice number is already in use")
	}

	inv, err := invoicing.NewPurchaseInvoice(tenantID, req.InvoiceNumber, req.SupplierID, req.SupplierName)
	if err != nil {
		return nil, err
	}
	inv.DateDue = req.DateDue
	inv.Notes = req.Notes

	if req.Tax != nil {
		if err := inv.SetTax(req.Tax.ToAdjustment()); err != nil {
			return nil, err
		}
	}
	if req.Discount != nil {
		if err := inv.SetDiscount(req.Discount.ToAdjustment()); err != nil {
			return nil, err
		}
	}

	for _, line := range req.Items {
		if _, err := inv.AddItem(line.ProductID, line.ProductName, line.Quantity, valueobject.NewMoneyUSD(line.UnitCost)); err != nil {
			return nil, err
		}
	}

	if err := inv.AdjustTotals(); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, inv)

	response := ToPurchaseInvoiceResponse(inv)
	return &response, nil
}

// GetByID retrieves a purchase invoice by ID
func (s *PurchaseInvoiceService) GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*PurchaseInvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseInvoiceResponse(inv)
	return &response, nil
}

// List retrieves purchase invoices with filtering and pagination
func (s *PurchaseInvoiceService) List(ctx context.Context, tenantID uuid.UUID, filter InvoiceListFilter) (shared.Paginated[PurchaseInvoiceResponse], error) {
	domainFilter := toDomainFilter(filter)

	var (
		invoices []invoicing.PurchaseInvoice
		err      error
	)
	if filter.Status != "" {
		status := invoicing.PurchaseInvoiceStatus(filter.Status)
		if !status.IsValid() {
			return shared.Paginated[PurchaseInvoiceResponse]{}, shared.NewDomainError("INVALID_STATUS", "Unknown purchase invoice status")
		}
		invoices, err = s.invoiceRepo.FindByStatus(ctx, tenantID, status, domainFilter)
	} else {
		invoices, err = s.invoiceRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	}
	if err != nil {
		return shared.Paginated[PurchaseInvoiceResponse]{}, err
	}

	total, err := s.invoiceRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return shared.Paginated[PurchaseInvoiceResponse]{}, err
	}

	responses := make([]PurchaseInvoiceResponse, 0, len(invoices))
	for idx := range invoices {
		responses = append(responses, ToPurchaseInvoiceResponse(&invoices[idx]))
	}
	return shared.NewPaginated(responses, total, domainFilter.Page, domainFilter.PageSize), nil
}

// Restock records cumulative received quantities and reconciles inventory in
// the same transaction. Calling it again with unchanged quantities is a no-op.
func (s *PurchaseInvoiceService) Restock(ctx context.Context, tenantID, invoiceID uuid.UUID, req RestockRequest) (*ReconciliationResult, error) {
	result, err := s.restockOnce(ctx, tenantID, invoiceID, req)
	if err != nil && isConcurrencyConflict(err) {
		result, err = s.restockOnce(ctx, tenantID, invoiceID, req)
	}
	return result, err
}

func (s *PurchaseInvoiceService) restockOnce(ctx context.Context, tenantID, invoiceID uuid.UUID, req RestockRequest) (*ReconciliationResult, error) {
	targets := make(map[uuid.UUID]decimal.Decimal, len(req.Items))
	for _, item := range req.Items {
		targets[item.ProductID] = item.QuantityReceived
	}

	var inv *invoicing.PurchaseInvoice
	result := &ReconciliationResult{InvoiceID: invoiceID}
	var passEvents []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		inv, err = repos.PurchaseInvoices().FindByIDForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.SetRestockTargets(targets); err != nil {
			return err
		}
		if err := repos.PurchaseInvoices().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		return s.reconciler.applyPurchaseTx(ctx, repos, tenantID, invoiceID, result, &passEvents)
	})
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, inv)
	s.reconciler.publish(ctx, passEvents)
	return result, nil
}

// Delete removes a draft purchase invoice along with its lines and ledger
// entries. Invoices with fulfillment history cannot be deleted.
func (s *PurchaseInvoiceService) Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}
	if inv.Fulfilled || inv.PartiallyFulfilled {
		return shared.NewDomainError("INVALID_STATE", "Cannot delete an invoice with fulfillment history")
	}
	if err := s.ledgerRepo.DeleteByInvoice(ctx, tenantID, invoiceID); err != nil {
		return err
	}
	return s.invoiceRepo.Delete(ctx, invoiceID)
}

func (s *PurchaseInvoiceService) publishEvents(ctx context.Context, inv *invoicing.PurchaseInvoice) {
	if s.eventPublisher == nil {
		return
	}
	events := inv.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	inv.ClearDomainEvents()
}

func toDomainFilter(filter InvoiceListFilter) shared.Filter {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	f.Search = filter.Search
	return f
}
