package entities

import (
	"math"

	"github.com/shopspring/decimal"
)

// Quantity represents a non-negative amount of stock. Glass is tracked in
// fractional units (half rods, grams of frit), so it is a real number.
type Quantity float64

// QuantityTolerance is the absolute tolerance used when reconciling
// allocation totals against record quantities.
const QuantityTolerance Quantity = 1e-3

// IsFinite reports whether q is neither NaN nor infinite.
func (q Quantity) IsFinite() bool {
	f := float64(q)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Clamp returns q, or zero when q is negative or not finite.
func (q Quantity) Clamp() Quantity {
	if !q.IsFinite() || q < 0 {
		return 0
	}
	return q
}

// AddQuantities returns a+b computed in decimal so repeated deltas compose
// without binary drift (0.1 + 0.2 == 0.3).
func AddQuantities(a, b Quantity) Quantity {
	return Quantity(decimal.NewFromFloat(float64(a)).Add(decimal.NewFromFloat(float64(b))).InexactFloat64())
}

// SubtractQuantities returns a-b computed in decimal.
func SubtractQuantities(a, b Quantity) Quantity {
	return Quantity(decimal.NewFromFloat(float64(a)).Sub(decimal.NewFromFloat(float64(b))).InexactFloat64())
}

// SumQuantities returns the decimal sum of all quantities.
func SumQuantities(quantities ...Quantity) Quantity {
	total := decimal.Zero
	for _, q := range quantities {
		total = total.Add(decimal.NewFromFloat(float64(q)))
	}
	return Quantity(total.InexactFloat64())
}

// WithinTolerance reports whether a and b differ by no more than tolerance.
func WithinTolerance(a, b, tolerance Quantity) bool {
	return math.Abs(float64(SubtractQuantities(a, b))) <= float64(tolerance)
}
