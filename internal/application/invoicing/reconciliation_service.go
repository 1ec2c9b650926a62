package invoicing

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/catalog"
	"github.com/stockbooks/backend/internal/domain/inventory"
	"github.com/stockbooks/backend/internal/domain/invoicing"
	"github.com/stockbooks/backend/internal/domain/shared"
	"github.com/stockbooks/backend/internal/domain/shared/valueobject"
)

// ReconciliationResult reports what a reconciliation pass did
type ReconciliationResult struct {
	InvoiceID     uuid.UUID                  `json:"invoice_id"`
	TransactionID string                     `json:"transaction_id,omitempty"`
	AppliedLines  []invoicing.AppliedLineInfo `json:"applied_lines"`
	NoOp          bool                       `json:"no_op"`
}

// ReconciliationService drives invoice fulfillment into inventory. For each
// invoice line it computes the gap between the declared target and the sum
// already recorded in the ledger, then applies that gap to the on-hand stock
// rows, writes one ledger entry per non-zero delta and recomputes the
// fulfillment flags, all inside a single transaction.
//
// A pass over an unchanged invoice computes zero deltas everywhere and
// leaves the database untouched, which is what makes the trigger safe to
// call after every invoice write.
type ReconciliationService struct {
	scope          TransactionScope
	locations      catalog.LocationResolver
	eventPublisher shared.EventPublisher
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(scope TransactionScope, locations catalog.LocationResolver) *ReconciliationService {
	return &ReconciliationService{
		scope:     scope,
		locations: locations,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReconciliationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// newTransactionID mints the identifier stamped on every ledger entry and
// inventory row touched by one pass
func newTransactionID() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}

// isConcurrencyConflict reports whether the error is a lock/version conflict
func isConcurrencyConflict(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == "CONCURRENCY_CONFLICT"
}

// ApplyPurchase reconciles a purchase invoice, restocking inventory up to
// each line's declared received quantity. A conflicting concurrent pass is
// retried once from scratch against fresh state.
func (s *ReconciliationService) ApplyPurchase(ctx context.Context, tenantID, invoiceID uuid.UUID) (*ReconciliationResult, error) {
	result, err := s.applyPurchaseOnce(ctx, tenantID, invoiceID)
	if err != nil && isConcurrencyConflict(err) {
		result, err = s.applyPurchaseOnce(ctx, tenantID, invoiceID)
	}
	return result, err
}

// ApplySale reconciles a sales invoice, deducting inventory up to each
// line's declared shipped quantity. A conflicting concurrent pass is
// retried once from scratch against fresh state.
func (s *ReconciliationService) ApplySale(ctx context.Context, tenantID, invoiceID uuid.UUID) (*ReconciliationResult, error) {
	result, err := s.applySaleOnce(ctx, tenantID, invoiceID)
	if err != nil && isConcurrencyConflict(err) {
		result, err = s.applySaleOnce(ctx, tenantID, invoiceID)
	}
	return result, err
}

func (s *ReconciliationService) applyPurchaseOnce(ctx context.Context, tenantID, invoiceID uuid.UUID) (*ReconciliationResult, error) {
	result := &ReconciliationResult{InvoiceID: invoiceID, AppliedLines: nil}
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return s.applyPurchaseTx(ctx, repos, tenantID, invoiceID, result, &events)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	return result, nil
}

// applyPurchaseTx runs one purchase pass against caller-owned transactional
// repositories, so an invoice write and its reconciliation commit or roll
// back together. Raised domain events are appended to events for
// publication after the transaction commits.
func (s *ReconciliationService) applyPurchaseTx(ctx context.Context, repos TransactionalRepositories, tenantID, invoiceID uuid.UUID, result *ReconciliationResult, events *[]shared.DomainEvent) error {
	inv, err := repos.PurchaseInvoices().FindByIDForUpdate(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}

	// Idempotency and status guards: nothing to do, nothing touched
	if inv.IsFullyApplied() || !inv.Status.TriggersFulfillment() || inv.ItemCount() == 0 {
		result.NoOp = true
		return nil
	}

	deltas, err := s.computePurchaseDeltas(ctx, repos, inv)
	if err != nil {
		return err
	}
	if len(deltas) == 0 {
		result.NoOp = true
		return nil
	}

	txnID := newTransactionID()
	items, err := s.lockOrCreatePurchaseRows(ctx, repos, inv, deltas, txnID)
	if err != nil {
		return err
	}

	entries := make([]*invoicing.LedgerEntry, 0, len(deltas))
	applied := make([]invoicing.AppliedLineInfo, 0, len(deltas))
	for _, pd := range deltas {
		item := items[pd.line.ProductID]
		if err := item.Restock(pd.delta, valueobject.NewMoneyUSD(pd.line.UnitCost), txnID); err != nil {
			return err
		}
		entry, err := invoicing.NewLedgerEntry(tenantID, invoicing.InvoiceKindPurchase,
			inv.ID, pd.line.ID, pd.line.ProductID, invoicing.LedgerDirectionRestock, pd.delta, txnID)
		if err != nil {
			return err
		}
		entries = append(entries, entry)

		if err := pd.line.ApplyDelta(pd.delta); err != nil {
			return err
		}
		applied = append(applied, invoicing.AppliedLineInfo{
			LineID:    pd.line.ID,
			ProductID: pd.line.ProductID,
			Delta:     pd.delta,
			Fulfilled: pd.line.QuantityFulfilled,
		})
	}

	inv.RecomputeFulfillment()

	for _, item := range items {
		if err := repos.Inventory().SaveWithLock(ctx, item); err != nil {
			return err
		}
		*events = append(*events, item.GetDomainEvents()...)
		item.ClearDomainEvents()
	}
	if err := repos.Ledger().Append(ctx, entries); err != nil {
		return err
	}
	if err := repos.PurchaseInvoices().SaveWithLock(ctx, inv); err != nil {
		return err
	}

	result.TransactionID = txnID
	result.AppliedLines = applied
	*events = append(*events, invoicing.NewInventoryRestockedEvent(inv, applied))
	return nil
}

func (s *ReconciliationService) applySaleOnce(ctx context.Context, tenantID, invoiceID uuid.UUID) (*ReconciliationResult, error) {
	result := &ReconciliationResult{InvoiceID: invoiceID, AppliedLines: nil}
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return s.applySaleTx(ctx, repos, tenantID, invoiceID, result, &events)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events)
	return result, nil
}

// applySaleTx runs one sale pass against caller-owned transactional
// repositories. A stock rejection therefore rolls back the caller's
// invoice write along with the pass: a shipment declaration that cannot
// be covered never reaches the database.
func (s *ReconciliationService) applySaleTx(ctx context.Context, repos TransactionalRepositories, tenantID, invoiceID uuid.UUID, result *ReconciliationResult, events *[]shared.DomainEvent) error {
	inv, err := repos.SalesInvoices().FindByIDForUpdate(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}

	if inv.IsFullyApplied() || !inv.Status.TriggersFulfillment() || inv.ItemCount() == 0 {
		result.NoOp = true
		return nil
	}

	deltas, err := s.computeSaleDeltas(ctx, repos, inv)
	if err != nil {
		return err
	}
	if len(deltas) == 0 {
		result.NoOp = true
		return nil
	}

	productIDs := make([]uuid.UUID, 0, len(deltas))
	for _, sd := range deltas {
		productIDs = append(productIDs, sd.line.ProductID)
	}
	items, err := repos.Inventory().FindByProductsForUpdate(ctx, tenantID, productIDs)
	if err != nil {
		return err
	}

	// Validate stock across all lines before touching anything, so a
	// rejection leaves no partial writes behind
	for _, sd := range deltas {
		item, ok := items[sd.line.ProductID]
		if !ok || !item.CanFulfill(sd.delta) {
			return shared.NewDomainError("INSUFFICIENT_STOCK",
				"Insufficient stock on hand for product "+sd.line.ProductName)
		}
	}

	txnID := newTransactionID()
	entries := make([]*invoicing.LedgerEntry, 0, len(deltas))
	applied := make([]invoicing.AppliedLineInfo, 0, len(deltas))
	for _, sd := range deltas {
		item := items[sd.line.ProductID]
		if err := item.Deduct(sd.delta, txnID); err != nil {
			return err
		}
		entry, err := invoicing.NewLedgerEntry(tenantID, invoicing.InvoiceKindSale,
			inv.ID, sd.line.ID, sd.line.ProductID, invoicing.LedgerDirectionDeduction, sd.delta, txnID)
		if err != nil {
			return err
		}
		entries = append(entries, entry)

		if err := sd.line.ApplyDelta(sd.delta); err != nil {
			return err
		}
		applied = append(applied, invoicing.AppliedLineInfo{
			LineID:    sd.line.ID,
			ProductID: sd.line.ProductID,
			Delta:     sd.delta,
			Fulfilled: sd.line.QuantityFulfilled,
		})
	}

	inv.RecomputeFulfillment()

	for _, sd := range deltas {
		item := items[sd.line.ProductID]
		if err := repos.Inventory().SaveWithLock(ctx, item); err != nil {
			return err
		}
		*events = append(*events, item.GetDomainEvents()...)
		item.ClearDomainEvents()
	}
	if err := repos.Ledger().Append(ctx, entries); err != nil {
		return err
	}
	if err := repos.SalesInvoices().SaveWithLock(ctx, inv); err != nil {
		return err
	}

	result.TransactionID = txnID
	result.AppliedLines = applied
	*events = append(*events, invoicing.NewInventoryDeductedEvent(inv, applied))
	return nil
}

// RestoreReturnedLine puts a returned sales line's fulfilled quantity back
// on hand and writes the reversing ledger entry. The line's cached shipped
// and fulfilled quantities are cleared in the same pass, so the ledger's
// signed sum and the cache stay in agreement and a later shipment starts
// from a clean slate. Only invoked when the return restock policy is
// enabled.
func (s *ReconciliationService) RestoreReturnedLine(ctx context.Context, tenantID uuid.UUID, inv *invoicing.SalesInvoice, line *invoicing.SalesInvoiceItem, repos TransactionalRepositories) (string, error) {
	txnID := newTransactionID()

	items, err := repos.Inventory().FindByProductsForUpdate(ctx, tenantID, []uuid.UUID{line.ProductID})
	if err != nil {
		return "", err
	}
	item, ok := items[line.ProductID]
	if !ok {
		item, err = s.newInventoryRow(ctx, tenantID, line.ProductID, line.ProductName)
		if err != nil {
			return "", err
		}
	}

	if err := item.Restore(line.QuantityFulfilled, txnID); err != nil {
		return "", err
	}

	entry, err := invoicing.NewLedgerEntry(tenantID, invoicing.InvoiceKindSale,
		inv.ID, line.ID, line.ProductID, invoicing.LedgerDirectionRestock, line.QuantityFulfilled, txnID)
	if err != nil {
		return "", err
	}
	entry.WithNotes("return restock")

	line.ResetFulfillment()
	inv.RecomputeFulfillment()

	if err := repos.Inventory().SaveWithLock(ctx, item); err != nil {
		return "", err
	}
	if err := repos.Ledger().Append(ctx, []*invoicing.LedgerEntry{entry}); err != nil {
		return "", err
	}
	return txnID, nil
}

type purchaseDelta struct {
	line  *invoicing.PurchaseInvoiceItem
	delta decimal.Decimal
}

type saleDelta struct {
	line  *invoicing.SalesInvoiceItem
	delta decimal.Decimal
}

func (s *ReconciliationService) computePurchaseDeltas(ctx context.Context, repos TransactionalRepositories, inv *invoicing.PurchaseInvoice) ([]purchaseDelta, error) {
	lineIDs := make([]uuid.UUID, 0, inv.ItemCount())
	for idx := range inv.Items {
		lineIDs = append(lineIDs, inv.Items[idx].ID)
	}
	sums, err := repos.Ledger().SumAppliedByLines(ctx, inv.TenantID, lineIDs)
	if err != nil {
		return nil, err
	}

	deltas := make([]purchaseDelta, 0, len(lineIDs))
	for idx := range inv.Items {
		line := &inv.Items[idx]
		applied, ok := sums[line.ID]
		if !ok {
			applied = decimal.Zero
		}
		delta, err := invoicing.ComputeDelta(line.Quantity, inv.FulfillmentTarget(line), applied)
		if err != nil {
			return nil, err
		}
		if delta.GreaterThan(decimal.Zero) {
			deltas = append(deltas, purchaseDelta{line: line, delta: delta})
		}
	}
	return deltas, nil
}

func (s *ReconciliationService) computeSaleDeltas(ctx context.Context, repos TransactionalRepositories, inv *invoicing.SalesInvoice) ([]saleDelta, error) {
	lineIDs := make([]uuid.UUID, 0, inv.ItemCount())
	for idx := range inv.Items {
		lineIDs = append(lineIDs, inv.Items[idx].ID)
	}
	sums, err := repos.Ledger().SumAppliedByLines(ctx, inv.TenantID, lineIDs)
	if err != nil {
		return nil, err
	}

	deltas := make([]saleDelta, 0, len(lineIDs))
	for idx := range inv.Items {
		line := &inv.Items[idx]
		applied, ok := sums[line.ID]
		if !ok {
			applied = decimal.Zero
		}
		// Ledger sums are stock-signed (restocks positive). For a sale
		// line fulfillment runs the other way: deductions count towards
		// the target and return restocks cancel them.
		applied = applied.Neg()
		delta, err := invoicing.ComputeDelta(line.Quantity, inv.FulfillmentTarget(line), applied)
		if err != nil {
			return nil, err
		}
		if delta.GreaterThan(decimal.Zero) {
			deltas = append(deltas, saleDelta{line: line, delta: delta})
		}
	}
	return deltas, nil
}

// lockOrCreatePurchaseRows partitions the affected products into existing
// inventory rows (locked for update) and missing ones, which are created
// lazily with the tenant's default location when one is configured.
func (s *ReconciliationService) lockOrCreatePurchaseRows(ctx context.Context, repos TransactionalRepositories, inv *invoicing.PurchaseInvoice, deltas []purchaseDelta, txnID string) (map[uuid.UUID]*inventory.InventoryItem, error) {
	productIDs := make([]uuid.UUID, 0, len(deltas))
	for _, pd := range deltas {
		productIDs = append(productIDs, pd.line.ProductID)
	}

	items, err := repos.Inventory().FindByProductsForUpdate(ctx, inv.TenantID, productIDs)
	if err != nil {
		return nil, err
	}

	for _, pd := range deltas {
		if _, ok := items[pd.line.ProductID]; ok {
			continue
		}
		item, err := s.newInventoryRow(ctx, inv.TenantID, pd.line.ProductID, pd.line.ProductName)
		if err != nil {
			return nil, err
		}
		items[pd.line.ProductID] = item
	}
	return items, nil
}

// newInventoryRow builds a fresh stock row. A failed default-location
// lookup degrades to a null location rather than failing the pass.
func (s *ReconciliationService) newInventoryRow(ctx context.Context, tenantID, productID uuid.UUID, productName string) (*inventory.InventoryItem, error) {
	var locationID *uuid.UUID
	if s.locations != nil {
		if loc, err := s.locations.DefaultLocation(ctx, tenantID); err == nil && loc != nil {
			locationID = &loc.ID
		}
	}
	return inventory.NewInventoryItem(tenantID, productID, productName, locationID)
}

func (s *ReconciliationService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	// Events are best-effort notifications; reconciliation has already
	// committed when they fire
	_ = s.eventPublisher.Publish(ctx, events...)
}
