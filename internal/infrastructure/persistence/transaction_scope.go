package persistence

import (
	"context"

	"gorm.io/gorm"

	appinvoicing "github.com/stockbooks/backend/internal/application/invoicing"
	"github.com/stockbooks/backend/internal/domain/inventory"
	"github.com/stockbooks/backend/internal/domain/invoicing"
)

// GormTransactionScope implements the application transaction scope on a
// GORM database transaction. All repositories handed to the callback share
// one transaction, so reconciliation updates commit or roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the function within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinvoicing.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides repositories bound to a single
// transaction handle
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) PurchaseInvoices() invoicing.PurchaseInvoiceRepository {
	return NewGormPurchaseInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) SalesInvoices() invoicing.SalesInvoiceRepository {
	return NewGormSalesInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) Ledger() invoicing.LedgerRepository {
	return NewGormLedgerRepository(r.tx)
}

func (r *gormTransactionalRepositories) Inventory() inventory.Repository {
	return NewGormInventoryRepository(r.tx)
}

func (r *gormTransactionalRepositories) ReturnedItems() invoicing.ReturnedItemRepository {
	return NewGormReturnedItemRepository(r.tx)
}

// Ensure the scope and its repositories satisfy the application contracts
var _ appinvoicing.TransactionScope = (*GormTransactionScope)(nil)
var _ appinvoicing.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
