package invoicing

import (
	"github.com/shopspring/decimal"

	"github.com/stockbooks/backend/internal/domain/shared"
)

// FulfillmentState describes how much of an ordered quantity has been
// reconciled into inventory, at line or invoice level.
type FulfillmentState string

const (
	FulfillmentUnfulfilled FulfillmentState = "UNFULFILLED"
	FulfillmentPartial     FulfillmentState = "PARTIAL"
	FulfillmentFulfilled   FulfillmentState = "FULFILLED"
)

// String returns the string representation of the state
func (s FulfillmentState) String() string {
	return string(s)
}

// DeriveLineState derives a line's fulfillment state from its quantities.
// FULFILLED iff fulfilled == ordered, PARTIAL iff fulfilled > 0, else
// UNFULFILLED.
func DeriveLineState(ordered, fulfilled decimal.Decimal) FulfillmentState {
	if fulfilled.Equal(ordered) && ordered.GreaterThan(decimal.Zero) {
		return FulfillmentFulfilled
	}
	if fulfilled.GreaterThan(decimal.Zero) {
		return FulfillmentPartial
	}
	return FulfillmentUnfulfilled
}

// AggregateLineStates derives the invoice-level fulfillment state from its
// line states. Any single PARTIAL line forces the invoice to PARTIAL, even
// when every other line is FULFILLED. A mix of FULFILLED and UNFULFILLED
// lines is also PARTIAL. An invoice with no lines is UNFULFILLED.
func AggregateLineStates(states []FulfillmentState) FulfillmentState {
	if len(states) == 0 {
		return FulfillmentUnfulfilled
	}

	fulfilled := 0
	unfulfilled := 0
	for _, s := range states {
		switch s {
		case FulfillmentPartial:
			return FulfillmentPartial
		case FulfillmentFulfilled:
			fulfilled++
		default:
			unfulfilled++
		}
	}

	if fulfilled == len(states) {
		return FulfillmentFulfilled
	}
	if unfulfilled == len(states) {
		return FulfillmentUnfulfilled
	}
	return FulfillmentPartial
}

// ComputeDelta returns the unapplied remainder between a line's target
// fulfilled quantity and the quantity already recorded in the ledger for
// that line. A zero or negative remainder means there is nothing to apply,
// which is what makes repeated reconciliation of an unchanged invoice a
// no-op.
//
// A target above the ordered quantity is rejected before the delta is
// computed; it is never clamped. An applied sum above the ordered quantity
// means the ledger itself violates the write-time invariant and is
// surfaced as a consistency violation.
func ComputeDelta(ordered, target, applied decimal.Decimal) (decimal.Decimal, error) {
	if target.GreaterThan(ordered) {
		return decimal.Zero, shared.ErrOverFulfillment
	}
	if applied.GreaterThan(ordered) {
		return decimal.Zero, shared.NewDomainError(
			"CONSISTENCY_VIOLATION",
			"Ledger sum exceeds ordered quantity for line",
		)
	}
	return target.Sub(applied), nil
}
