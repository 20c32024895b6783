package entities

import "strings"

// LocationAllocation is the quantity of one inventory record held at one
// named storage location.
type LocationAllocation struct {
	ID          string
	InventoryID string
	Location    string
	Quantity    Quantity
}

// Clone returns a copy of the allocation.
func (a *LocationAllocation) Clone() *LocationAllocation {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// LocationQuantity is an input pair for replacing an allocation set.
type LocationQuantity struct {
	Location string
	Quantity Quantity
}

// NormalizeLocation trims surrounding whitespace; case is preserved.
func NormalizeLocation(location string) string {
	return strings.TrimSpace(location)
}

// TotalAllocated sums the quantities of the given allocations.
func TotalAllocated(allocations []*LocationAllocation) Quantity {
	quantities := make([]Quantity, 0, len(allocations))
	for _, a := range allocations {
		quantities = append(quantities, a.Quantity)
	}
	return SumQuantities(quantities...)
}
