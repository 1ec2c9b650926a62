package invoicing

import (
	"context"

	"github.com/stockbooks/backend/internal/domain/inventory"
	"github.com/stockbooks/backend/internal/domain/invoicing"
)

// TransactionScope provides transactional access to the reconciliation
// repositories. When a function is executed within a transaction scope, all
// repository operations are part of the same database transaction and are
// committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to every repository a
// reconciliation pass touches. All repositories returned share the same
// underlying database transaction.
//
// Aggregate boundary notes:
//   - Invoice lines are child entities of their invoice aggregate and are
//     persisted through the invoice repositories, never independently.
//   - Ledger is append-only; a pass writes its entries in the same
//     transaction as the inventory and invoice updates so the ledger-sum
//     invariant can never be observed broken.
type TransactionalRepositories interface {
	// PurchaseInvoices returns the purchase invoice repository scoped to the transaction
	PurchaseInvoices() invoicing.PurchaseInvoiceRepository
	// SalesInvoices returns the sales invoice repository scoped to the transaction
	SalesInvoices() invoicing.SalesInvoiceRepository
	// Ledger returns the ledger repository scoped to the transaction
	Ledger() invoicing.LedgerRepository
	// Inventory returns the inventory repository scoped to the transaction
	Inventory() inventory.Repository
	// ReturnedItems returns the returned item repository scoped to the transaction
	ReturnedItems() invoicing.ReturnedItemRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for tests and in-memory wiring.
type NoOpTransactionScope struct {
	purchaseRepo invoicing.PurchaseInvoiceRepository
	salesRepo    invoicing.SalesInvoiceRepository
	ledgerRepo   invoicing.LedgerRepository
	invRepo      inventory.Repository
	returnedRepo invoicing.ReturnedItemRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	purchaseRepo invoicing.PurchaseInvoiceRepository,
	salesRepo invoicing.SalesInvoiceRepository,
	ledgerRepo invoicing.LedgerRepository,
	invRepo inventory.Repository,
	returnedRepo invoicing.ReturnedItemRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		purchaseRepo: purchaseRepo,
		salesRepo:    salesRepo,
		ledgerRepo:   ledgerRepo,
		invRepo:      invRepo,
		returnedRepo: returnedRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// PurchaseInvoices returns the purchase invoice repository
func (s *NoOpTransactionScope) PurchaseInvoices() invoicing.PurchaseInvoiceRepository {
	return s.purchaseRepo
}

// SalesInvoices returns the sales invoice repository
func (s *NoOpTransactionScope) SalesInvoices() invoicing.SalesInvoiceRepository {
	return s.salesRepo
}

// Ledger returns the ledger repository
func (s *NoOpTransactionScope) Ledger() invoicing.LedgerRepository {
	return s.ledgerRepo
}

// Inventory returns the inventory repository
func (s *NoOpTransactionScope) Inventory() inventory.Repository {
	return s.invRepo
}

// ReturnedItems returns the returned item repository
func (s *NoOpTransactionScope) ReturnedItems() invoicing.ReturnedItemRepository {
	return s.returnedRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
