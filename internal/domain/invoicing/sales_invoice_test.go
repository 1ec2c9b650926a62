package invoicing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockbooks/backend/internal/domain/shared/valueobject"
)

// Test helpers for SalesInvoice
func createTestSalesInvoice(t *testing.T) *SalesInvoice {
	inv, err := NewSalesInvoice(uuid.New(), "SI-2026-001", uuid.New(), "Globex Corp")
	require.NoError(t, err)
	return inv
}

func addTestSalesItem(t *testing.T, inv *SalesInvoice, name string, quantity, price float64) *SalesInvoiceItem {
	item, err := inv.AddItem(uuid.New(), name, d(quantity), valueobject.NewMoneyUSDFromFloat(price))
	require.NoError(t, err)
	return item
}

// ============================================
// SalesInvoiceStatus Tests
// ============================================

func TestSalesInvoiceStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  SalesInvoiceStatus
		isValid bool
	}{
		{SalesInvoiceStatusDraft, true},
		{SalesInvoiceStatusSent, true},
		{SalesInvoiceStatusOverdue, true},
		{SalesInvoiceStatusCancelled, true},
		{SalesInvoiceStatusCompleted, true},
		{SalesInvoiceStatusPartiallyCompleted, true},
		{SalesInvoiceStatus("INVALID"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestSalesInvoiceStatus_TriggersFulfillment(t *testing.T) {
	assert.True(t, SalesInvoiceStatusCompleted.TriggersFulfillment())
	assert.True(t, SalesInvoiceStatusPartiallyCompleted.TriggersFulfillment())
	assert.False(t, SalesInvoiceStatusDraft.TriggersFulfillment())
	assert.False(t, SalesInvoiceStatusSent.TriggersFulfillment())
	assert.False(t, SalesInvoiceStatusCancelled.TriggersFulfillment())
}

// ============================================
// Creation and Line Tests
// ============================================

func TestNewSalesInvoice(t *testing.T) {
	tenantID := uuid.New()
	inv, err := NewSalesInvoice(tenantID, "SI-2026-001", uuid.New(), "Globex Corp")
	require.NoError(t, err)

	assert.Equal(t, tenantID, inv.TenantID)
	assert.Equal(t, SalesInvoiceStatusDraft, inv.Status)
	assert.Len(t, inv.GetDomainEvents(), 1)
}

func TestSalesInvoice_AddItem_DuplicateProduct(t *testing.T) {
	inv := createTestSalesInvoice(t)
	productID := uuid.New()

	_, err := inv.AddItem(productID, "Widget", d(5), valueobject.NewMoneyUSDFromFloat(20))
	require.NoError(t, err)

	_, err = inv.AddItem(productID, "Widget", d(2), valueobject.NewMoneyUSDFromFloat(20))
	assertDomainCode(t, err, "DUPLICATE_PRODUCT")
}

func TestSalesInvoice_MarkSent(t *testing.T) {
	inv := createTestSalesInvoice(t)
	addTestSalesItem(t, inv, "Widget", 5, 20)

	require.NoError(t, inv.MarkSent())
	assert.Equal(t, SalesInvoiceStatusSent, inv.Status)

	err := inv.MarkSent()
	assertDomainCode(t, err, "INVALID_STATE")
}

// ============================================
// Shipment Target Tests
// ============================================

func TestSalesInvoice_SetShipmentTargets(t *testing.T) {
	inv := createTestSalesInvoice(t)
	item := addTestSalesItem(t, inv, "Widget", 5, 20)

	err := inv.SetShipmentTargets(map[uuid.UUID]decimal.Decimal{item.ProductID: d(3)})
	require.NoError(t, err)
	assert.Equal(t, SalesInvoiceStatusPartiallyCompleted, inv.Status)
	assert.True(t, d(3).Equal(inv.FulfillmentTarget(inv.GetItem(item.ID))))

	err = inv.SetShipmentTargets(map[uuid.UUID]decimal.Decimal{item.ProductID: d(5)})
	require.NoError(t, err)
	assert.Equal(t, SalesInvoiceStatusCompleted, inv.Status)
	assert.True(t, d(5).Equal(inv.FulfillmentTarget(inv.GetItem(item.ID))))
}

func TestSalesInvoice_SetShipmentTargets_OverFulfillment(t *testing.T) {
	inv := createTestSalesInvoice(t)
	item := addTestSalesItem(t, inv, "Widget", 5, 20)

	err := inv.SetShipmentTargets(map[uuid.UUID]decimal.Decimal{item.ProductID: d(6)})
	assertDomainCode(t, err, "OVER_FULFILLMENT")
}

// ============================================
// Totals Tests
// ============================================

func TestSalesInvoice_AdjustTotals_LineDiscounts(t *testing.T) {
	inv := createTestSalesInvoice(t)
	widget := addTestSalesItem(t, inv, "Widget", 10, 20)
	addTestSalesItem(t, inv, "Gadget", 2, 50)

	// 10% off the widget unit price, once per line regardless of the
	// ordered quantity: 20 * 0.10 = 2
	inv.GetItem(widget.ID).Discount = valueobject.NewPercentageAdjustment(d(10))

	require.NoError(t, inv.AdjustTotals())
	assert.True(t, d(300).Equal(inv.SubTotal), "got %s", inv.SubTotal)
	assert.True(t, d(298).Equal(inv.Total), "got %s", inv.Total)
}

func TestSalesInvoice_AdjustTotals_InvoiceDiscountOverridesLines(t *testing.T) {
	inv := createTestSalesInvoice(t)
	widget := addTestSalesItem(t, inv, "Widget", 10, 20)
	inv.GetItem(widget.ID).Discount = valueobject.NewAmountAdjustment(d(50))

	// Invoice-level discount wins; the line's 50 is ignored entirely
	require.NoError(t, inv.SetDiscount(valueobject.NewPercentageAdjustment(d(10))))

	require.NoError(t, inv.AdjustTotals())
	assert.True(t, d(200).Equal(inv.SubTotal))
	assert.True(t, d(180).Equal(inv.Total), "got %s", inv.Total)
}

func TestSalesInvoice_AdjustTotals_FlatLineDiscount(t *testing.T) {
	inv := createTestSalesInvoice(t)
	widget := addTestSalesItem(t, inv, "Widget", 4, 25)
	inv.GetItem(widget.ID).Discount = valueobject.NewAmountAdjustment(d(15))

	require.NoError(t, inv.AdjustTotals())
	assert.True(t, d(100).Equal(inv.SubTotal))
	assert.True(t, d(85).Equal(inv.Total))
}

func TestSalesInvoice_AdjustTotals_UnknownLineKind(t *testing.T) {
	inv := createTestSalesInvoice(t)
	widget := addTestSalesItem(t, inv, "Widget", 4, 25)
	inv.GetItem(widget.ID).Discount = valueobject.Adjustment{Value: d(5), Kind: "bogus"}

	err := inv.AdjustTotals()
	assertDomainCode(t, err, "INVALID_ADJUSTMENT")
}

// ============================================
// Fulfillment and Return Tests
// ============================================

func TestSalesInvoice_RecomputeFulfillment(t *testing.T) {
	inv := createTestSalesInvoice(t)
	widget := addTestSalesItem(t, inv, "Widget", 5, 20)
	gadget := addTestSalesItem(t, inv, "Gadget", 3, 10)

	require.NoError(t, inv.GetItem(widget.ID).ApplyDelta(d(2)))
	inv.RecomputeFulfillment()
	assert.True(t, inv.PartiallyFulfilled)
	assert.False(t, inv.Fulfilled)
	assert.Equal(t, SalesInvoiceStatusPartiallyCompleted, inv.Status)

	require.NoError(t, inv.GetItem(widget.ID).ApplyDelta(d(3)))
	require.NoError(t, inv.GetItem(gadget.ID).ApplyDelta(d(3)))
	inv.RecomputeFulfillment()
	assert.True(t, inv.Fulfilled)
	assert.False(t, inv.PartiallyFulfilled)
	assert.Equal(t, SalesInvoiceStatusCompleted, inv.Status)
}

func TestSalesInvoiceItem_MarkReturned(t *testing.T) {
	inv := createTestSalesInvoice(t)
	widget := addTestSalesItem(t, inv, "Widget", 5, 20)

	line := inv.GetItem(widget.ID)
	require.NoError(t, line.ApplyDelta(d(5)))

	require.NoError(t, line.MarkReturned())
	assert.True(t, line.Returned)
	require.NotNil(t, line.ReturnedAt)

	err := line.MarkReturned()
	assertDomainCode(t, err, "ALREADY_RETURNED")
}

func TestSalesInvoiceItem_MarkReturned_Unfulfilled(t *testing.T) {
	inv := createTestSalesInvoice(t)
	widget := addTestSalesItem(t, inv, "Widget", 5, 20)

	err := inv.GetItem(widget.ID).MarkReturned()
	assertDomainCode(t, err, "INVALID_STATE")
}

func TestNewReturnedItem(t *testing.T) {
	inv := createTestSalesInvoice(t)
	widget := addTestSalesItem(t, inv, "Widget", 5, 20)

	line := inv.GetItem(widget.ID)
	require.NoError(t, line.ApplyDelta(d(4)))

	rec, err := NewReturnedItem(inv.TenantID, inv, line, "damaged in transit")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, rec.InvoiceID)
	assert.Equal(t, line.ID, rec.LineID)
	assert.True(t, d(4).Equal(rec.Quantity))
	assert.False(t, rec.Restocked)
}

// ============================================
// LedgerEntry Tests
// ============================================

func TestNewLedgerEntry(t *testing.T) {
	entry, err := NewLedgerEntry(uuid.New(), InvoiceKindPurchase, uuid.New(), uuid.New(), uuid.New(),
		LedgerDirectionRestock, d(6), "TXN-001")
	require.NoError(t, err)
	assert.True(t, d(6).Equal(entry.Quantity))
	assert.True(t, d(6).Equal(entry.SignedQuantity()))
}

func TestLedgerEntry_SignedQuantity_Deduction(t *testing.T) {
	entry, err := NewLedgerEntry(uuid.New(), InvoiceKindSale, uuid.New(), uuid.New(), uuid.New(),
		LedgerDirectionDeduction, d(3), "TXN-002")
	require.NoError(t, err)
	assert.True(t, d(-3).Equal(entry.SignedQuantity()))
}

func TestNewLedgerEntry_Validation(t *testing.T) {
	base := func() (uuid.UUID, InvoiceKind, uuid.UUID, uuid.UUID, uuid.UUID, LedgerDirection, decimal.Decimal, string) {
		return uuid.New(), InvoiceKindPurchase, uuid.New(), uuid.New(), uuid.New(), LedgerDirectionRestock, d(1), "TXN"
	}

	t.Run("zero quantity", func(t *testing.T) {
		tid, k, iid, lid, pid, dir, _, txn := base()
		_, err := NewLedgerEntry(tid, k, iid, lid, pid, dir, decimal.Zero, txn)
		assertDomainCode(t, err, "INVALID_QUANTITY")
	})

	t.Run("bad direction", func(t *testing.T) {
		tid, k, iid, lid, pid, _, q, txn := base()
		_, err := NewLedgerEntry(tid, k, iid, lid, pid, LedgerDirection("SIDEWAYS"), q, txn)
		assertDomainCode(t, err, "INVALID_DIRECTION")
	})

	t.Run("missing transaction id", func(t *testing.T) {
		tid, k, iid, lid, pid, dir, q, _ := base()
		_, err := NewLedgerEntry(tid, k, iid, lid, pid, dir, q, "")
		assertDomainCode(t, err, "INVALID_TRANSACTION")
	})
}
