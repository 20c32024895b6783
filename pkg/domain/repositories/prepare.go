package repositories

import "github.com/vsinha/glassledger/pkg/domain/entities"

// PrepareRecord copies, normalizes and validates a caller-supplied record.
// A nil validator skips the taxonomy checks.
func PrepareRecord(op string, record *entities.InventoryRecord, validator RecordValidator) (*entities.InventoryRecord, error) {
	if record == nil {
		return nil, entities.InvalidDataf(op, "record cannot be nil")
	}
	candidate := record.Clone()
	candidate.Normalize()
	if err := candidate.Validate(); err != nil {
		return nil, &entities.LedgerError{Op: op, Kind: entities.ErrInvalidData, ID: candidate.ID, ItemKey: candidate.ItemKey, Err: err}
	}
	if validator != nil {
		if err := validator.ValidateRecord(candidate); err != nil {
			return nil, err
		}
	}
	return candidate, nil
}
