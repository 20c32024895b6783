package entities

// CheckDelta rejects deltas that are NaN or infinite.
func CheckDelta(op string, delta Quantity) error {
	if !delta.IsFinite() {
		return InvalidDataf(op, "quantity must be a finite number, got %v", float64(delta))
	}
	return nil
}

// CheckPositiveDelta rejects deltas that are not finite and strictly positive.
func CheckPositiveDelta(op string, delta Quantity) error {
	if err := CheckDelta(op, delta); err != nil {
		return err
	}
	if delta <= 0 {
		return InvalidDataf(op, "quantity must be positive, got %v", float64(delta))
	}
	return nil
}

// CheckLocation normalizes location and rejects empty names.
func CheckLocation(op, location string) (string, error) {
	normalized := NormalizeLocation(location)
	if normalized == "" {
		return "", InvalidDataf(op, "location cannot be empty")
	}
	return normalized, nil
}

// CheckAllocationArgs validates the arguments of a single-location delta and
// returns the normalized location.
func CheckAllocationArgs(op, inventoryID, location string, delta Quantity) (string, error) {
	if inventoryID == "" {
		return "", InvalidDataf(op, "inventory id cannot be empty")
	}
	if err := CheckPositiveDelta(op, delta); err != nil {
		return "", err
	}
	return CheckLocation(op, location)
}

// BoundedMoveDelta returns the quantity a move may take from source. Moves
// larger than the source holds are rejected; overdraws within tolerance are
// trimmed to the source quantity so the total is conserved exactly.
func BoundedMoveDelta(op string, source *LocationAllocation, delta Quantity) (Quantity, error) {
	if delta <= source.Quantity {
		return delta, nil
	}
	if WithinTolerance(delta, source.Quantity, QuantityTolerance) {
		return source.Quantity, nil
	}
	return 0, &LedgerError{
		Op:       op,
		Kind:     ErrInvalidData,
		ID:       source.InventoryID,
		Location: source.Location,
		Detail:   "insufficient quantity at source location",
	}
}

// CollapseLocations validates a replacement allocation set and folds
// repeated locations into one entry, keeping the last quantity given. The
// order of first appearance is preserved.
func CollapseLocations(op string, pairs []LocationQuantity) ([]LocationQuantity, error) {
	index := make(map[string]int, len(pairs))
	collapsed := make([]LocationQuantity, 0, len(pairs))
	for _, pair := range pairs {
		location, err := CheckLocation(op, pair.Location)
		if err != nil {
			return nil, err
		}
		if err := CheckDelta(op, pair.Quantity); err != nil {
			return nil, err
		}
		if i, seen := index[location]; seen {
			collapsed[i].Quantity = pair.Quantity
			continue
		}
		index[location] = len(collapsed)
		collapsed = append(collapsed, LocationQuantity{Location: location, Quantity: pair.Quantity})
	}
	return collapsed, nil
}
