package repositories

import (
	"context"

	"github.com/vsinha/glassledger/pkg/domain/entities"
)

// RecordValidator checks a normalized record before it is stored
type RecordValidator interface {
	ValidateRecord(record *entities.InventoryRecord) error
}

// InventoryLookup resolves inventory records by id. Fetch returns nil, nil
// when the id does not exist.
type InventoryLookup interface {
	Fetch(ctx context.Context, id string) (*entities.InventoryRecord, error)
}

// InventoryRepository is the inventory ledger: one quantity record per
// physical variant of an item. All returned records are copies.
//
// Operations addressed by (itemKey, type) follow one of two rules:
// AddQuantity, SubtractQuantity, SetQuantity and FindFirst act on the first
// matching record in creation order; TotalQuantity* and DeleteForItem* act on
// every matching record.
type InventoryRepository interface {
	InventoryLookup

	Create(ctx context.Context, record *entities.InventoryRecord) (*entities.InventoryRecord, error)
	FetchAll(ctx context.Context) ([]*entities.InventoryRecord, error)
	// FetchForItem returns the records of an item sorted by type.
	FetchForItem(ctx context.Context, itemKey string) ([]*entities.InventoryRecord, error)
	// FetchForItemAndType returns matching records, largest quantity first.
	FetchForItemAndType(ctx context.Context, itemKey, typeName string) ([]*entities.InventoryRecord, error)
	FindFirst(ctx context.Context, itemKey, typeName string) (*entities.InventoryRecord, error)
	Update(ctx context.Context, record *entities.InventoryRecord) (*entities.InventoryRecord, error)

	Delete(ctx context.Context, id string) error
	DeleteForItem(ctx context.Context, itemKey string) error
	DeleteForItemAndType(ctx context.Context, itemKey, typeName string) error

	TotalQuantity(ctx context.Context, itemKey string) (entities.Quantity, error)
	TotalQuantityForType(ctx context.Context, itemKey, typeName string) (entities.Quantity, error)

	// AddQuantity applies delta to the first matching record, creating one
	// when none exists. With no match and a delta of zero or less nothing is
	// stored and nil is returned.
	AddQuantity(ctx context.Context, itemKey, typeName string, delta entities.Quantity) (*entities.InventoryRecord, error)
	// SubtractQuantity removes delta from the first matching record. A result
	// at or below zero deletes the record and returns nil.
	SubtractQuantity(ctx context.Context, itemKey, typeName string, delta entities.Quantity) (*entities.InventoryRecord, error)
	// SubtractFromRecord is SubtractQuantity addressed by record id, for
	// callers that already hold the record they mean to change.
	SubtractFromRecord(ctx context.Context, id string, delta entities.Quantity) (*entities.InventoryRecord, error)
	// SetQuantity overwrites the quantity of the first matching record with
	// the same delete-at-zero rule as SubtractQuantity.
	SetQuantity(ctx context.Context, itemKey, typeName string, value entities.Quantity) (*entities.InventoryRecord, error)

	// DistinctTypes returns the types in use across all records, sorted.
	DistinctTypes(ctx context.Context) ([]string, error)
}
