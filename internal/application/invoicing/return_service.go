package invoicing

import (
	"context"

	"github.com/google/uuid"

	"github.com/stockbooks/backend/internal/domain/invoicing"
	"github.com/stockbooks/backend/internal/domain/shared"
)

// ReturnRestockPolicy decides whether marking a sales line as returned also
// restores the stock and writes a reversing ledger entry. The default is
// flag-only: the line is marked, a return record is written, but on-hand
// stock and the ledger stay untouched.
type ReturnRestockPolicy struct {
	RestockOnReturn bool
}

// ReturnService handles customer returns against sales invoice lines
type ReturnService struct {
	scope          TransactionScope
	reconciler     *ReconciliationService
	policy         ReturnRestockPolicy
	eventPublisher shared.EventPublisher
}

// NewReturnService creates a new ReturnService
func NewReturnService(scope TransactionScope, reconciler *ReconciliationService, policy ReturnRestockPolicy) *ReturnService {
	return &ReturnService{
		scope:      scope,
		reconciler: reconciler,
		policy:     policy,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReturnService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// MarkReturned flips the returned flag on a sales line and records a
// ReturnedItem row. When the restock policy is enabled the fulfilled
// quantity also goes back on hand with a reversing ledger entry, all in
// the same transaction.
func (s *ReturnService) MarkReturned(ctx context.Context, tenantID, invoiceID uuid.UUID, req ReturnRequest) (*ReturnedItemResponse, error) {
	var (
		response ReturnedItemResponse
		events   []shared.DomainEvent
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.SalesInvoices().FindByIDForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}

		line, err := inv.MarkLineReturned(req.LineID)
		if err != nil {
			return err
		}

		record, err := invoicing.NewReturnedItem(tenantID, inv, line, req.Reason)
		if err != nil {
			return err
		}

		if s.policy.RestockOnReturn {
			if _, err := s.reconciler.RestoreReturnedLine(ctx, tenantID, inv, line, repos); err != nil {
				return err
			}
			record.MarkRestocked()
		}

		if err := repos.ReturnedItems().Save(ctx, record); err != nil {
			return err
		}
		if err := repos.SalesInvoices().SaveWithLock(ctx, inv); err != nil {
			return err
		}

		events = append(events, invoicing.NewSalesInvoiceItemReturnedEvent(inv, line, record.Restocked))
		response = ToReturnedItemResponse(record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil && len(events) > 0 {
		_ = s.eventPublisher.Publish(ctx, events...)
	}
	return &response, nil
}

// ListByInvoice returns the return records for one invoice
func (s *ReturnService) ListByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]ReturnedItemResponse, error) {
	var responses []ReturnedItemResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		records, err := repos.ReturnedItems().FindByInvoice(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		responses = make([]ReturnedItemResponse, 0, len(records))
		for idx := range records {
			responses = append(responses, ToReturnedItemResponse(&records[idx]))
		}
		return nil
	})
	return responses, err
}
