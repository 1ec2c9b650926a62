package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/inventory"
	"github.com/stockbooks/backend/internal/domain/invoicing"
	"github.com/stockbooks/backend/internal/domain/shared"
)

// In-memory repositories backing the service tests. They keep real state so
// multi-pass scenarios (incremental restock, idempotent re-apply) exercise
// the same ledger arithmetic the production repositories would.

type memPurchaseRepo struct {
	byID map[uuid.UUID]*invoicing.PurchaseInvoice
}

func newMemPurchaseRepo() *memPurchaseRepo {
	return &memPurchaseRepo{byID: make(map[uuid.UUID]*invoicing.PurchaseInvoice)}
}

func (r *memPurchaseRepo) FindByID(_ context.Context, id uuid.UUID) (*invoicing.PurchaseInvoice, error) {
	if inv, ok := r.byID[id]; ok {
		return inv, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memPurchaseRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*invoicing.PurchaseInvoice, error) {
	if inv, ok := r.byID[id]; ok && inv.TenantID == tenantID {
		return inv, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memPurchaseRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.PurchaseInvoice, error) {
	return r.FindByIDForTenant(ctx, tenantID, id)
}

func (r *memPurchaseRepo) FindByNumber(_ context.Context, tenantID uuid.UUID, number string) (*invoicing.PurchaseInvoice, error) {
	for _, inv := range r.byID {
		if inv.TenantID == tenantID && inv.InvoiceNumber == number {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memPurchaseRepo) FindAll(_ context.Context, _ shared.Filter) ([]invoicing.PurchaseInvoice, error) {
	out := make([]invoicing.PurchaseInvoice, 0, len(r.byID))
	for _, inv := range r.byID {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *memPurchaseRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]invoicing.PurchaseInvoice, error) {
	out := make([]invoicing.PurchaseInvoice, 0)
	for _, inv := range r.byID {
		if inv.TenantID == tenantID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *memPurchaseRepo) FindByStatus(_ context.Context, tenantID uuid.UUID, status invoicing.PurchaseInvoiceStatus, _ shared.Filter) ([]invoicing.PurchaseInvoice, error) {
	out := make([]invoicing.PurchaseInvoice, 0)
	for _, inv := range r.byID {
		if inv.TenantID == tenantID && inv.Status == status {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *memPurchaseRepo) Save(_ context.Context, inv *invoicing.PurchaseInvoice) error {
	r.byID[inv.ID] = inv
	return nil
}

func (r *memPurchaseRepo) SaveWithLock(ctx context.Context, inv *invoicing.PurchaseInvoice) error {
	return r.Save(ctx, inv)
}

func (r *memPurchaseRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *memPurchaseRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.byID)), nil
}

func (r *memPurchaseRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) (int64, error) {
	var count int64
	for _, inv := range r.byID {
		if inv.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (r *memPurchaseRepo) TotalPurchases(_ context.Context, tenantID uuid.UUID, _ time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, inv := range r.byID {
		if inv.TenantID == tenantID && inv.Status != invoicing.PurchaseInvoiceStatusCancelled {
			total = total.Add(inv.Total)
		}
	}
	return total, nil
}

func (r *memPurchaseRepo) TotalPendingPayment(_ context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, inv := range r.byID {
		if inv.TenantID == tenantID && inv.PaymentStatus == invoicing.PaymentStatusPending {
			total = total.Add(inv.Total)
		}
	}
	return total, nil
}

type memSalesRepo struct {
	byID map[uuid.UUID]*invoicing.SalesInvoice
}

func newMemSalesRepo() *memSalesRepo {
	return &memSalesRepo{byID: make(map[uuid.UUID]*invoicing.SalesInvoice)}
}

func (r *memSalesRepo) FindByID(_ context.Context, id uuid.UUID) (*invoicing.SalesInvoice, error) {
	if inv, ok := r.byID[id]; ok {
		return inv, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memSalesRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*invoicing.SalesInvoice, error) {
	if inv, ok := r.byID[id]; ok && inv.TenantID == tenantID {
		return inv, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memSalesRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*invoicing.SalesInvoice, error) {
	return r.FindByIDForTenant(ctx, tenantID, id)
}

func (r *memSalesRepo) FindByNumber(_ context.Context, tenantID uuid.UUID, number string) (*invoicing.SalesInvoice, error) {
	for _, inv := range r.byID {
		if inv.TenantID == tenantID && inv.InvoiceNumber == number {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memSalesRepo) FindAll(_ context.Context, _ shared.Filter) ([]invoicing.SalesInvoice, error) {
	out := make([]invoicing.SalesInvoice, 0, len(r.byID))
	for _, inv := range r.byID {
		out = append(out, *inv)
	}
	return out, nil
}

func (r *memSalesRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]invoicing.SalesInvoice, error) {
	out := make([]invoicing.SalesInvoice, 0)
	for _, inv := range r.byID {
		if inv.TenantID == tenantID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *memSalesRepo) FindByStatus(_ context.Context, tenantID uuid.UUID, status invoicing.SalesInvoiceStatus, _ shared.Filter) ([]invoicing.SalesInvoice, error) {
	out := make([]invoicing.SalesInvoice, 0)
	for _, inv := range r.byID {
		if inv.TenantID == tenantID && inv.Status == status {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *memSalesRepo) Save(_ context.Context, inv *invoicing.SalesInvoice) error {
	r.byID[inv.ID] = inv
	return nil
}

func (r *memSalesRepo) SaveWithLock(ctx context.Context, inv *invoicing.SalesInvoice) error {
	return r.Save(ctx, inv)
}

func (r *memSalesRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *memSalesRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.byID)), nil
}

func (r *memSalesRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) (int64, error) {
	var count int64
	for _, inv := range r.byID {
		if inv.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (r *memSalesRepo) TotalSales(_ context.Context, tenantID uuid.UUID, _ time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, inv := range r.byID {
		if inv.TenantID == tenantID && inv.Status != invoicing.SalesInvoiceStatusCancelled {
			total = total.Add(inv.Total)
		}
	}
	return total, nil
}

func (r *memSalesRepo) TotalItemsSold(_ context.Context, tenantID uuid.UUID, _ time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, inv := range r.byID {
		if inv.TenantID != tenantID {
			continue
		}
		for _, item := range inv.Items {
			total = total.Add(item.QuantityFulfilled)
		}
	}
	return total, nil
}

type memLedgerRepo struct {
	entries []invoicing.LedgerEntry
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{}
}

func (r *memLedgerRepo) Append(_ context.Context, entries []*invoicing.LedgerEntry) error {
	for _, e := range entries {
		r.entries = append(r.entries, *e)
	}
	return nil
}

func (r *memLedgerRepo) FindByInvoice(_ context.Context, tenantID, invoiceID uuid.UUID) ([]invoicing.LedgerEntry, error) {
	out := make([]invoicing.LedgerEntry, 0)
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memLedgerRepo) FindByLine(_ context.Context, tenantID, lineID uuid.UUID) ([]invoicing.LedgerEntry, error) {
	out := make([]invoicing.LedgerEntry, 0)
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.LineID == lineID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memLedgerRepo) SumAppliedByLine(_ context.Context, tenantID, lineID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.LineID == lineID {
			sum = sum.Add(e.SignedQuantity())
		}
	}
	return sum, nil
}

func (r *memLedgerRepo) SumAppliedByLines(_ context.Context, tenantID uuid.UUID, lineIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	wanted := make(map[uuid.UUID]bool, len(lineIDs))
	for _, id := range lineIDs {
		wanted[id] = true
	}
	sums := make(map[uuid.UUID]decimal.Decimal)
	for _, e := range r.entries {
		if e.TenantID == tenantID && wanted[e.LineID] {
			sums[e.LineID] = sums[e.LineID].Add(e.SignedQuantity())
		}
	}
	return sums, nil
}

func (r *memLedgerRepo) CountOpenByProduct(_ context.Context, tenantID, productID uuid.UUID) (int64, error) {
	var count int64
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ProductID == productID {
			count++
		}
	}
	return count, nil
}

func (r *memLedgerRepo) DeleteByInvoice(_ context.Context, tenantID, invoiceID uuid.UUID) error {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if !(e.TenantID == tenantID && e.InvoiceID == invoiceID) {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

type memInventoryRepo struct {
	byID map[uuid.UUID]*inventory.InventoryItem
}

func newMemInventoryRepo() *memInventoryRepo {
	return &memInventoryRepo{byID: make(map[uuid.UUID]*inventory.InventoryItem)}
}

func (r *memInventoryRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	if item, ok := r.byID[id]; ok {
		return item, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memInventoryRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*inventory.InventoryItem, error) {
	if item, ok := r.byID[id]; ok && item.TenantID == tenantID {
		return item, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memInventoryRepo) FindAll(_ context.Context, _ shared.Filter) ([]inventory.InventoryItem, error) {
	out := make([]inventory.InventoryItem, 0, len(r.byID))
	for _, item := range r.byID {
		out = append(out, *item)
	}
	return out, nil
}

func (r *memInventoryRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]inventory.InventoryItem, error) {
	out := make([]inventory.InventoryItem, 0)
	for _, item := range r.byID {
		if item.TenantID == tenantID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *memInventoryRepo) FindByProduct(_ context.Context, tenantID, productID uuid.UUID) (*inventory.InventoryItem, error) {
	for _, item := range r.byID {
		if item.TenantID == tenantID && item.ProductID == productID {
			return item, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInventoryRepo) FindByProducts(_ context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]*inventory.InventoryItem, error) {
	wanted := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]*inventory.InventoryItem)
	for _, item := range r.byID {
		if item.TenantID == tenantID && wanted[item.ProductID] {
			out[item.ProductID] = item
		}
	}
	return out, nil
}

func (r *memInventoryRepo) FindByProductsForUpdate(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]*inventory.InventoryItem, error) {
	return r.FindByProducts(ctx, tenantID, productIDs)
}

func (r *memInventoryRepo) Save(_ context.Context, item *inventory.InventoryItem) error {
	r.byID[item.ID] = item
	return nil
}

func (r *memInventoryRepo) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	return r.Save(ctx, item)
}

func (r *memInventoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *memInventoryRepo) DeleteBatch(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	for _, id := range ids {
		if item, ok := r.byID[id]; ok && item.TenantID == tenantID {
			delete(r.byID, id)
		}
	}
	return nil
}

func (r *memInventoryRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.byID)), nil
}

func (r *memInventoryRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) (int64, error) {
	var count int64
	for _, item := range r.byID {
		if item.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (r *memInventoryRepo) FindBelowReorderLevel(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]inventory.InventoryItem, error) {
	out := make([]inventory.InventoryItem, 0)
	for _, item := range r.byID {
		if item.TenantID == tenantID && item.IsBelowReorderLevel() {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *memInventoryRepo) TotalStockValue(_ context.Context, tenantID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range r.byID {
		if item.TenantID == tenantID {
			total = total.Add(item.TotalValue().Amount())
		}
	}
	return total, nil
}

type memReturnedRepo struct {
	records []invoicing.ReturnedItem
}

func newMemReturnedRepo() *memReturnedRepo {
	return &memReturnedRepo{}
}

func (r *memReturnedRepo) Save(_ context.Context, item *invoicing.ReturnedItem) error {
	r.records = append(r.records, *item)
	return nil
}

func (r *memReturnedRepo) FindByInvoice(_ context.Context, tenantID, invoiceID uuid.UUID) ([]invoicing.ReturnedItem, error) {
	out := make([]invoicing.ReturnedItem, 0)
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.InvoiceID == invoiceID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memReturnedRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]invoicing.ReturnedItem, error) {
	out := make([]invoicing.ReturnedItem, 0)
	for _, rec := range r.records {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memReturnedRepo) CountForTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	for _, rec := range r.records {
		if rec.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

// memTransactionScope layers rollback semantics over the NoOp scope: the
// repository state is snapshotted when the outermost Execute begins and
// restored when the pass returns an error, the way a database transaction
// would discard its writes. Aggregates are cloned in the snapshot because
// the repositories hand out live pointers.
type memTransactionScope struct {
	*NoOpTransactionScope
	purchases *memPurchaseRepo
	sales     *memSalesRepo
	ledger    *memLedgerRepo
	stock     *memInventoryRepo
	returns   *memReturnedRepo
	depth     int
}

type memSnapshot struct {
	purchases map[uuid.UUID]*invoicing.PurchaseInvoice
	sales     map[uuid.UUID]*invoicing.SalesInvoice
	stock     map[uuid.UUID]*inventory.InventoryItem
	entries   []invoicing.LedgerEntry
	records   []invoicing.ReturnedItem
}

func (s *memTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.depth++
	var snap *memSnapshot
	if s.depth == 1 {
		snap = s.snapshot()
	}
	err := fn(s)
	s.depth--
	if err != nil && snap != nil {
		s.restore(snap)
	}
	return err
}

func (s *memTransactionScope) snapshot() *memSnapshot {
	snap := &memSnapshot{
		purchases: make(map[uuid.UUID]*invoicing.PurchaseInvoice, len(s.purchases.byID)),
		sales:     make(map[uuid.UUID]*invoicing.SalesInvoice, len(s.sales.byID)),
		stock:     make(map[uuid.UUID]*inventory.InventoryItem, len(s.stock.byID)),
		entries:   append([]invoicing.LedgerEntry(nil), s.ledger.entries...),
		records:   append([]invoicing.ReturnedItem(nil), s.returns.records...),
	}
	for id, inv := range s.purchases.byID {
		clone := *inv
		clone.Items = append([]invoicing.PurchaseInvoiceItem(nil), inv.Items...)
		snap.purchases[id] = &clone
	}
	for id, inv := range s.sales.byID {
		clone := *inv
		clone.Items = append([]invoicing.SalesInvoiceItem(nil), inv.Items...)
		snap.sales[id] = &clone
	}
	for id, item := range s.stock.byID {
		clone := *item
		snap.stock[id] = &clone
	}
	return snap
}

func (s *memTransactionScope) restore(snap *memSnapshot) {
	s.purchases.byID = snap.purchases
	s.sales.byID = snap.sales
	s.stock.byID = snap.stock
	s.ledger.entries = snap.entries
	s.returns.records = snap.records
}

// testFixture wires the in-memory repositories into a rollback-aware scope
// plus the services under test
type testFixture struct {
	tenantID   uuid.UUID
	purchases  *memPurchaseRepo
	sales      *memSalesRepo
	ledger     *memLedgerRepo
	stock      *memInventoryRepo
	returns    *memReturnedRepo
	scope      *memTransactionScope
	reconciler *ReconciliationService
}

func newTestFixture() *testFixture {
	purchases := newMemPurchaseRepo()
	sales := newMemSalesRepo()
	ledger := newMemLedgerRepo()
	stock := newMemInventoryRepo()
	returns := newMemReturnedRepo()
	scope := &memTransactionScope{
		NoOpTransactionScope: NewNoOpTransactionScope(purchases, sales, ledger, stock, returns),
		purchases:            purchases,
		sales:                sales,
		ledger:               ledger,
		stock:                stock,
		returns:              returns,
	}

	return &testFixture{
		tenantID:   uuid.New(),
		purchases:  purchases,
		sales:      sales,
		ledger:     ledger,
		stock:      stock,
		returns:    returns,
		scope:      scope,
		reconciler: NewReconciliationService(scope, nil),
	}
}

// Interface compliance
var (
	_ invoicing.PurchaseInvoiceRepository = (*memPurchaseRepo)(nil)
	_ invoicing.SalesInvoiceRepository    = (*memSalesRepo)(nil)
	_ invoicing.LedgerRepository          = (*memLedgerRepo)(nil)
	_ inventory.Repository                = (*memInventoryRepo)(nil)
	_ invoicing.ReturnedItemRepository    = (*memReturnedRepo)(nil)
	_ TransactionScope                    = (*memTransactionScope)(nil)
)
