package entities

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Dimensions maps a dimension field name (diameter, length, ...) to its value.
type Dimensions map[string]float64

// NormalizeDimensions returns nil for an empty mapping and a copy otherwise.
// Empty and absent are not distinguishable states.
func NormalizeDimensions(d Dimensions) Dimensions {
	if len(d) == 0 {
		return nil
	}
	out := make(Dimensions, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Keys returns the dimension names in lexical order.
func (d Dimensions) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CanonicalTypeName lower-cases and trims a stock type name.
func CanonicalTypeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// InventoryRecord is the canonical quantity entry for one physical variant
// of a catalog item.
type InventoryRecord struct {
	ID           string
	ItemKey      string
	Type         string
	Subtype      string
	Subsubtype   string
	Dimensions   Dimensions
	Quantity     Quantity
	DateAdded    time.Time
	DateModified time.Time
}

// NewInventoryRecord creates a normalized InventoryRecord
func NewInventoryRecord(itemKey, typeName string, quantity Quantity) (*InventoryRecord, error) {
	r := &InventoryRecord{
		ItemKey:  itemKey,
		Type:     typeName,
		Quantity: quantity,
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Normalize canonicalizes the type name, trims the subtype fields, folds
// empty dimensions to nil and clamps the quantity at zero.
func (r *InventoryRecord) Normalize() {
	r.Type = CanonicalTypeName(r.Type)
	r.Subtype = strings.TrimSpace(r.Subtype)
	r.Subsubtype = strings.TrimSpace(r.Subsubtype)
	r.Dimensions = NormalizeDimensions(r.Dimensions)
	r.Quantity = r.Quantity.Clamp()
}

// Validate checks the structural rules that do not depend on the taxonomy.
func (r *InventoryRecord) Validate() error {
	if strings.TrimSpace(r.ItemKey) == "" {
		return fmt.Errorf("item key cannot be empty")
	}
	if r.Type == "" {
		return fmt.Errorf("type cannot be empty")
	}
	if r.Subsubtype != "" && r.Subtype == "" {
		return fmt.Errorf("subsubtype %q requires a subtype", r.Subsubtype)
	}
	for _, key := range r.Dimensions.Keys() {
		if v := r.Dimensions[key]; math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("dimension %s must be a finite number", key)
		}
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *InventoryRecord) Clone() *InventoryRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Dimensions = NormalizeDimensions(r.Dimensions)
	return &c
}

// Matches reports whether the record belongs to itemKey and the given type.
func (r *InventoryRecord) Matches(itemKey, typeName string) bool {
	return r.ItemKey == itemKey && r.Type == CanonicalTypeName(typeName)
}
