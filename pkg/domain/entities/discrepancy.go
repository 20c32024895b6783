package entities

// Discrepancy reports a record whose allocations do not add up to its quantity.
type Discrepancy struct {
	RecordID string
	ItemKey  string
	Type     string
	Expected Quantity
	Actual   Quantity
}

// Difference returns the signed difference actual - expected.
func (d Discrepancy) Difference() Quantity {
	return SubtractQuantities(d.Actual, d.Expected)
}
