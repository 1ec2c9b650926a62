package invoicing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/invoicing"
	"github.com/stockbooks/backend/internal/domain/shared"
	"github.com/stockbooks/backend/internal/domain/shared/valueobject"
)

// SalesInvoiceService handles sales invoice business operations. A write
// that moves the invoice into a fulfillment-triggering status runs in the
// same transaction as its reconciliation pass, so a rejected pass (say,
// insufficient stock) rolls the status change back with it.
type SalesInvoiceService struct {
	scope          TransactionScope
	invoiceRepo    invoicing.SalesInvoiceRepository
	ledgerRepo     invoicing.LedgerRepository
	reconciler     *ReconciliationService
	eventPublisher shared.EventPublisher
}

// NewSalesInvoiceService creates a new SalesInvoiceService
func NewSalesInvoiceService(scope TransactionScope, invoiceRepo invoicing.SalesInvoiceRepository, ledgerRepo invoicing.LedgerRepository, reconciler *ReconciliationService) *SalesInvoiceService {
	return &SalesInvoiceService{
		scope:       scope,
		invoiceRepo: invoiceRepo,
		ledgerRepo:  ledgerRepo,
		reconciler:  reconciler,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *SalesInvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateWithItems creates a sales invoice with its line items in one shot.
// When the requested status triggers fulfillment the reconciliation pass
// runs immediately after the invoice commits.
func (s *SalesInvoiceService) CreateWithItems(ctx context.Context, tenantID uuid.UUID, req CreateSalesInvoiceRequest) (*SalesInvoiceResponse, error) {
	if existing, _ := s.invoiceRepo.FindByNumber(ctx, tenantID, req.InvoiceNumber); existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Invoice number is already in use")
	}

	inv, err := invoicing.NewSalesInvoice(tenantID, req.InvoiceNumber, req.CustomerID, req.CustomerName)
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
		item, err := inv.AddItem(line.ProductID, line.ProductName, line.Quantity, valueobject.NewMoneyUSD(line.UnitPrice))
		if err != nil {
			return nil, err
		}
		if line.Discount != nil {
			discount := line.Discount.ToAdjustment()
			if err := discount.Validate(); err != nil {
				return nil, shared.NewDomainError("INVALID_ADJUSTMENT", err.Error())
			}
			inv.GetItem(item.ID).Discount = discount
		}
	}

	if err := inv.AdjustTotals(); err != nil {
		return nil, err
	}

	if req.Status != "" && req.Status != invoicing.SalesInvoiceStatusDraft.String() {
		if err := s.transition(inv, req.Status); err != nil {
			return nil, err
		}
	}

	result := &ReconciliationResult{InvoiceID: inv.ID}
	var passEvents []shared.DomainEvent
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.SalesInvoices().Save(ctx, inv); err != nil {
			return err
		}
		if !inv.Status.TriggersFulfillment() {
			return nil
		}
		return s.reconciler.applySaleTx(ctx, repos, tenantID, inv.ID, result, &passEvents)
	})
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, inv)
	s.reconciler.publish(ctx, passEvents)

	// Reload to pick up the fulfillment state written by the pass
	inv, err = s.invoiceRepo.FindByIDForTenant(ctx, tenantID, inv.ID)
	if err != nil {
		return nil, err
	}

	response := ToSalesInvoiceResponse(inv)
	return &response, nil
}

// UpdateWithItems replaces the invoice's mutable header fields and line set,
// recomputes totals, and reconciles if the resulting status triggers
// fulfillment, all in one transaction. A conflicting concurrent writer is
// retried once against fresh state.
func (s *SalesInvoiceService) UpdateWithItems(ctx context.Context, tenantID, invoiceID uuid.UUID, req UpdateSalesInvoiceRequest) (*SalesInvoiceResponse, error) {
	resp, err := s.updateWithItemsOnce(ctx, tenantID, invoiceID, req)
	if err != nil && isConcurrencyConflict(err) {
		resp, err = s.updateWithItemsOnce(ctx, tenantID, invoiceID, req)
	}
	return resp, err
}

func (s *SalesInvoiceService) updateWithItemsOnce(ctx context.Context, tenantID, invoiceID uuid.UUID, req UpdateSalesInvoiceRequest) (*SalesInvoiceResponse, error) {
	var inv *invoicing.SalesInvoice
	result := &ReconciliationResult{InvoiceID: invoiceID}
	var passEvents []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		inv, err = repos.SalesInvoices().FindByIDForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if !inv.CanModifyItems() {
			return shared.NewDomainError("INVALID_STATE", "Invoice can no longer be modified")
		}

		if req.DateDue != nil {
			inv.DateDue = req.DateDue
		}
		if req.Notes != nil {
			inv.Notes = *req.Notes
		}
		if req.Tax != nil {
			if err := inv.SetTax(req.Tax.ToAdjustment()); err != nil {
				return err
			}
		}
		if req.Discount != nil {
			if err := inv.SetDiscount(req.Discount.ToAdjustment()); err != nil {
				return err
			}
		}

		if err := s.mergeLines(inv, req.Items); err != nil {
			return err
		}
		if err := inv.AdjustTotals(); err != nil {
			return err
		}
		if req.Status != "" && req.Status != inv.Status.String() {
			if err := s.transition(inv, req.Status); err != nil {
				return err
			}
		}

		if err := repos.SalesInvoices().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		if inv.Status.TriggersFulfillment() {
			return s.reconciler.applySaleTx(ctx, repos, tenantID, invoiceID, result, &passEvents)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, inv)
	s.reconciler.publish(ctx, passEvents)

	inv, err = s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	response := ToSalesInvoiceResponse(inv)
	return &response, nil
}

// mergeLines reconciles the requested line set against the existing one:
// matching products are updated in place, new products are added, and
// absent products are removed when they have no fulfillment history.
func (s *SalesInvoiceService) mergeLines(inv *invoicing.SalesInvoice, lines []CreateInvoiceLineInput) error {
	requested := make(map[uuid.UUID]CreateInvoiceLineInput, len(lines))
	for _, line := range lines {
		if _, dup := requested[line.ProductID]; dup {
			return shared.NewDomainError("DUPLICATE_PRODUCT", "Product appears on more than one line")
		}
		requested[line.ProductID] = line
	}

	// Remove lines whose product is no longer requested
	for _, existing := range append([]invoicing.SalesInvoiceItem(nil), inv.Items...) {
		if _, keep := requested[existing.ProductID]; !keep {
			if err := inv.RemoveItem(existing.ID); err != nil {
				return err
			}
		}
	}

	for _, line := range lines {
		existing := inv.GetItemByProduct(line.ProductID)
		if existing == nil {
			item, err := inv.AddItem(line.ProductID, line.ProductName, line.Quantity, valueobject.NewMoneyUSD(line.UnitPrice))
			if err != nil {
				return err
			}
			existing = inv.GetItem(item.ID)
		} else {
			if err := inv.UpdateItemQuantity(existing.ID, line.Quantity); err != nil {
				return err
			}
			existing.UnitPrice = line.UnitPrice
		}
		if line.Discount != nil {
			discount := line.Discount.ToAdjustment()
			if err := discount.Validate(); err != nil {
				return shared.NewDomainError("INVALID_ADJUSTMENT", err.Error())
			}
			existing.Discount = discount
		}
	}
	return nil
}

// transition applies an explicitly requested status change
func (s *SalesInvoiceService) transition(inv *invoicing.SalesInvoice, status string) error {
	target := invoicing.SalesInvoiceStatus(status)
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown sales invoice status")
	}

	switch target {
	case invoicing.SalesInvoiceStatusSent:
		return inv.MarkSent()
	case invoicing.SalesInvoiceStatusCompleted:
		// Completing an invoice targets full ordered quantities on all lines
		targets := make(map[uuid.UUID]decimal.Decimal, inv.ItemCount())
		for idx := range inv.Items {
			targets[inv.Items[idx].ProductID] = inv.Items[idx].Quantity
		}
		return inv.SetShipmentTargets(targets)
	case invoicing.SalesInvoiceStatusCancelled:
		if inv.PartiallyFulfilled || inv.Fulfilled {
			return shared.NewDomainError("INVALID_STATE", "Cannot cancel an invoice with fulfillment history")
		}
		inv.Status = invoicing.SalesInvoiceStatusCancelled
		return nil
	default:
		return shared.NewDomainError("INVALID_STATUS", "Unsupported status transition")
	}
}

// Ship records cumulative shipped quantities and reconciles inventory in the
// same transaction, so a stock rejection rolls the status write back too.
func (s *SalesInvoiceService) Ship(ctx context.Context, tenantID, invoiceID uuid.UUID, req ShipmentRequest) (*ReconciliationResult, error) {
	result, err := s.shipOnce(ctx, tenantID, invoiceID, req)
	if err != nil && isConcurrencyConflict(err) {
		result, err = s.shipOnce(ctx, tenantID, invoiceID, req)
	}
	return result, err
}

func (s *SalesInvoiceService) shipOnce(ctx context.Context, tenantID, invoiceID uuid.UUID, req ShipmentRequest) (*ReconciliationResult, error) {
	targets := make(map[uuid.UUID]decimal.Decimal, len(req.Items))
	for _, item := range req.Items {
		targets[item.ProductID] = item.QuantityShipped
	}

	var inv *invoicing.SalesInvoice
	result := &ReconciliationResult{InvoiceID: invoiceID}
	var passEvents []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		inv, err = repos.SalesInvoices().FindByIDForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.SetShipmentTargets(targets); err != nil {
			return err
		}
		if err := repos.SalesInvoices().SaveWithLock(ctx, inv); err != nil {
			return err
		}
		return s.reconciler.applySaleTx(ctx, repos, tenantID, invoiceID, result, &passEvents)
	})
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, inv)
	s.reconciler.publish(ctx, passEvents)
	return result, nil
}

// GetByID retrieves a sales invoice by ID
func (s *SalesInvoiceService) GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*SalesInvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	response := ToSalesInvoiceResponse(inv)
	return &response, nil
}

// List retrieves sales invoices with filtering and pagination
func (s *SalesInvoiceService) List(ctx context.Context, tenantID uuid.UUID, filter InvoiceListFilter) (shared.Paginated[SalesInvoiceResponse], error) {
	domainFilter := toDomainFilter(filter)

	var (
		invoices []invoicing.SalesInvoice
		err      error
	)
	if filter.Status != "" {
		status := invoicing.SalesInvoiceStatus(filter.Status)
		if !status.IsValid() {
			return shared.Paginated[SalesInvoiceResponse]{}, shared.NewDomainError("INVALID_STATUS", "Unknown sales invoice status")
		}
		invoices, err = s.invoiceRepo.FindByStatus(ctx, tenantID, status, domainFilter)
	} else {
		invoices, err = s.invoiceRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	}
	if err != nil {
		return shared.Paginated[SalesInvoiceResponse]{}, err
	}

	total, err := s.invoiceRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return shared.Paginated[SalesInvoiceResponse]{}, err
	}

	responses := make([]SalesInvoiceResponse, 0, len(invoices))
	for idx := range invoices {
		responses = append(responses, ToSalesInvoiceResponse(&invoices[idx]))
	}
	return shared.NewPaginated(responses, total, domainFilter.Page, domainFilter.PageSize), nil
}

// Delete removes a sales invoice without fulfillment history
func (s *SalesInvoiceService) Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
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

func (s *SalesInvoiceService) publishEvents(ctx context.Context, inv *invoicing.SalesInvoice) {
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
