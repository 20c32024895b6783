package repositories

import (
	"context"

	"github.com/vsinha/glassledger/pkg/domain/entities"
)

// LocationRepository tracks how each inventory record's quantity is spread
// across named storage locations. Allocations hold a weak reference to their
// record: deleting a record does not delete its allocations.
type LocationRepository interface {
	// FetchForInventory returns the allocations of a record sorted by location.
	FetchForInventory(ctx context.Context, inventoryID string) ([]*entities.LocationAllocation, error)
	// FetchForLocationName returns allocations at a location sorted by inventory id.
	FetchForLocationName(ctx context.Context, location string) ([]*entities.LocationAllocation, error)
	FetchAll(ctx context.Context) ([]*entities.LocationAllocation, error)

	// SetLocations replaces the whole allocation set of a record. Pairs are
	// stored verbatim; filtering non-positive entries is the caller's job.
	SetLocations(ctx context.Context, inventoryID string, pairs []entities.LocationQuantity) error
	AddQuantity(ctx context.Context, inventoryID, location string, delta entities.Quantity) (*entities.LocationAllocation, error)
	// SubtractQuantity returns nil when the allocation was removed.
	SubtractQuantity(ctx context.Context, inventoryID, location string, delta entities.Quantity) (*entities.LocationAllocation, error)
	// MoveQuantity subtracts from one location and adds to another as a
	// single atomic step.
	MoveQuantity(ctx context.Context, inventoryID, fromLocation, toLocation string, delta entities.Quantity) error
	DeleteForInventory(ctx context.Context, inventoryID string) error

	TotalQuantity(ctx context.Context, inventoryID string) (entities.Quantity, error)
	ValidateQuantities(ctx context.Context, inventoryID string, expectedTotal entities.Quantity) (bool, error)
	// QuantityDiscrepancy returns actual - expected.
	QuantityDiscrepancy(ctx context.Context, inventoryID string, expectedTotal entities.Quantity) (entities.Quantity, error)
	FindOrphanedAllocations(ctx context.Context) ([]*entities.LocationAllocation, error)
}
