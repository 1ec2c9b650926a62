package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AdjustmentKind is how an adjustment value is interpreted
type AdjustmentKind string

const (
	// AdjustmentKindPercentage interprets the value as a percentage of a base amount
	AdjustmentKindPercentage AdjustmentKind = "percentage"
	// AdjustmentKindAmount interprets the value as a flat amount
	AdjustmentKindAmount AdjustmentKind = "amount"
)

// IsValid returns true if the kind is a known adjustment kind
func (k AdjustmentKind) IsValid() bool {
	return k == AdjustmentKindPercentage || k == AdjustmentKindAmount
}

// String returns the string representation of the kind
func (k AdjustmentKind) String() string {
	return string(k)
}

// Adjustment is a tax or discount specification attached to an invoice or a
// line item, e.g. {"value": 10.0, "kind": "percentage"}. A zero Adjustment
// (IsZero() == true) means the adjustment is not set.
//
// An unknown kind is never silently defaulted; ApplyTo rejects it.
type Adjustment struct {
	Value decimal.Decimal `json:"value"`
	Kind  AdjustmentKind  `json:"kind"`
}

// NewPercentageAdjustment creates a percentage adjustment
func NewPercentageAdjustment(value decimal.Decimal) Adjustment {
	return Adjustment{Value: value, Kind: AdjustmentKindPercentage}
}

// NewAmountAdjustment creates a flat-amount adjustment
func NewAmountAdjustment(value decimal.Decimal) Adjustment {
	return Adjustment{Value: value, Kind: AdjustmentKindAmount}
}

// IsZero returns true when the adjustment is not set
func (a Adjustment) IsZero() bool {
	return a.Kind == "" && a.Value.IsZero()
}

// Validate checks that a set adjustment has a known kind and non-negative value
func (a Adjustment) Validate() error {
	if a.IsZero() {
		return nil
	}
	if !a.Kind.IsValid() {
		return fmt.Errorf("unknown adjustment kind %q", a.Kind)
	}
	if a.Value.IsNegative() {
		return fmt.Errorf("adjustment value cannot be negative")
	}
	return nil
}

// ApplyTo resolves the adjustment against a base amount: percentage kinds
// return value/100 * base, amount kinds return the flat value.
func (a Adjustment) ApplyTo(base decimal.Decimal) (decimal.Decimal, error) {
	if a.IsZero() {
		return decimal.Zero, nil
	}
	switch a.Kind {
	case AdjustmentKindPercentage:
		return a.Value.Div(decimal.NewFromInt(100)).Mul(base), nil
	case AdjustmentKindAmount:
		return a.Value, nil
	default:
		return decimal.Zero, fmt.Errorf("unknown adjustment kind %q", a.Kind)
	}
}

