package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/repositories"
)

// LocationRepository provides in-memory location allocation storage. One
// write lock guards the whole collection, so a move is never observable
// half-way.
type LocationRepository struct {
	mu          sync.RWMutex
	allocations map[string]*entities.LocationAllocation
	byKey       map[allocationKey]string
	lookup      repositories.InventoryLookup
}

type allocationKey struct {
	inventoryID string
	location    string
}

// NewLocationRepository creates a new in-memory location repository. lookup
// is only needed by FindOrphanedAllocations.
func NewLocationRepository(lookup repositories.InventoryLookup) *LocationRepository {
	return &LocationRepository{
		allocations: make(map[string]*entities.LocationAllocation),
		byKey:       make(map[allocationKey]string),
		lookup:      lookup,
	}
}

// Verify interface compliance
var _ repositories.LocationRepository = (*LocationRepository)(nil)

// FetchForInventory returns the allocations of a record sorted by location
func (r *LocationRepository) FetchForInventory(ctx context.Context, inventoryID string) ([]*entities.LocationAllocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.matchLocked(func(a *entities.LocationAllocation) bool { return a.InventoryID == inventoryID })
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Location < matches[j].Location
	})
	return matches, nil
}

// FetchForLocationName returns every allocation at a location sorted by inventory id
func (r *LocationRepository) FetchForLocationName(ctx context.Context, location string) ([]*entities.LocationAllocation, error) {
	location = entities.NormalizeLocation(location)

	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.matchLocked(func(a *entities.LocationAllocation) bool { return a.Location == location })
	sortByInventory(matches)
	return matches, nil
}

// FetchAll returns every allocation sorted by inventory id then location
func (r *LocationRepository) FetchAll(ctx context.Context) ([]*entities.LocationAllocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.matchLocked(func(*entities.LocationAllocation) bool { return true })
	sortByInventory(matches)
	return matches, nil
}

// SetLocations replaces every allocation of a record with pairs. Repeated
// locations in pairs collapse to the last entry.
func (r *LocationRepository) SetLocations(ctx context.Context, inventoryID string, pairs []entities.LocationQuantity) error {
	const op = "set locations"
	if inventoryID == "" {
		return entities.InvalidDataf(op, "inventory id cannot be empty")
	}
	collapsed, err := entities.CollapseLocations(op, pairs)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteForInventoryLocked(inventoryID)
	for _, pair := range collapsed {
		r.insertLocked(inventoryID, pair.Location, pair.Quantity)
	}
	return nil
}

// AddQuantity adds delta at a location, creating the allocation if needed
func (r *LocationRepository) AddQuantity(ctx context.Context, inventoryID, location string, delta entities.Quantity) (*entities.LocationAllocation, error) {
	const op = "add location quantity"
	location, err := entities.CheckAllocationArgs(op, inventoryID, location, delta)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.addLocked(inventoryID, location, delta).Clone(), nil
}

// SubtractQuantity removes delta from a location. The allocation is deleted
// when its quantity reaches zero or below, and nil is returned.
func (r *LocationRepository) SubtractQuantity(ctx context.Context, inventoryID, location string, delta entities.Quantity) (*entities.LocationAllocation, error) {
	const op = "subtract location quantity"
	location, err := entities.CheckAllocationArgs(op, inventoryID, location, delta)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.getLocked(inventoryID, location)
	if existing == nil {
		return nil, &entities.LedgerError{Op: op, Kind: entities.ErrNotFound, ID: inventoryID, Location: location}
	}
	return r.subtractLocked(existing, delta).Clone(), nil
}

// MoveQuantity moves delta between two locations of the same record under a
// single lock acquisition. Moving more than the source holds is rejected.
func (r *LocationRepository) MoveQuantity(ctx context.Context, inventoryID, fromLocation, toLocation string, delta entities.Quantity) error {
	const op = "move location quantity"
	from, err := entities.CheckAllocationArgs(op, inventoryID, fromLocation, delta)
	if err != nil {
		return err
	}
	to, err := entities.CheckLocation(op, toLocation)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	source := r.getLocked(inventoryID, from)
	if source == nil {
		return &entities.LedgerError{Op: op, Kind: entities.ErrNotFound, ID: inventoryID, Location: from}
	}
	delta, err = entities.BoundedMoveDelta(op, source, delta)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}

	r.subtractLocked(source, delta)
	r.addLocked(inventoryID, to, delta)
	return nil
}

// DeleteForInventory removes every allocation of a record
func (r *LocationRepository) DeleteForInventory(ctx context.Context, inventoryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteForInventoryLocked(inventoryID)
	return nil
}

// TotalQuantity sums the allocations of a record
func (r *LocationRepository) TotalQuantity(ctx context.Context, inventoryID string) (entities.Quantity, error) {
	allocations, err := r.FetchForInventory(ctx, inventoryID)
	if err != nil {
		return 0, err
	}
	return entities.TotalAllocated(allocations), nil
}

// ValidateQuantities reports whether the allocations of a record add up to expectedTotal
func (r *LocationRepository) ValidateQuantities(ctx context.Context, inventoryID string, expectedTotal entities.Quantity) (bool, error) {
	actual, err := r.TotalQuantity(ctx, inventoryID)
	if err != nil {
		return false, err
	}
	return entities.WithinTolerance(actual, expectedTotal, entities.QuantityTolerance), nil
}

// QuantityDiscrepancy returns the allocated total minus expectedTotal
func (r *LocationRepository) QuantityDiscrepancy(ctx context.Context, inventoryID string, expectedTotal entities.Quantity) (entities.Quantity, error) {
	actual, err := r.TotalQuantity(ctx, inventoryID)
	if err != nil {
		return 0, err
	}
	return entities.SubtractQuantities(actual, expectedTotal), nil
}

// FindOrphanedAllocations returns allocations whose record no longer exists
func (r *LocationRepository) FindOrphanedAllocations(ctx context.Context) ([]*entities.LocationAllocation, error) {
	if r.lookup == nil {
		return nil, entities.InvalidDataf("find orphaned allocations", "no inventory lookup configured")
	}

	// Snapshot first so the lookup runs without holding our lock.
	allocations, err := r.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return repositories.FilterOrphans(ctx, r.lookup, allocations)
}

func (r *LocationRepository) getLocked(inventoryID, location string) *entities.LocationAllocation {
	id, exists := r.byKey[allocationKey{inventoryID: inventoryID, location: location}]
	if !exists {
		return nil
	}
	return r.allocations[id]
}

func (r *LocationRepository) insertLocked(inventoryID, location string, quantity entities.Quantity) *entities.LocationAllocation {
	allocation := &entities.LocationAllocation{
		ID:          uuid.NewString(),
		InventoryID: inventoryID,
		Location:    location,
		Quantity:    quantity,
	}
	r.allocations[allocation.ID] = allocation
	r.byKey[allocationKey{inventoryID: inventoryID, location: location}] = allocation.ID
	return allocation
}

func (r *LocationRepository) addLocked(inventoryID, location string, delta entities.Quantity) *entities.LocationAllocation {
	if existing := r.getLocked(inventoryID, location); existing != nil {
		existing.Quantity = entities.AddQuantities(existing.Quantity, delta)
		return existing
	}
	return r.insertLocked(inventoryID, location, delta)
}

// subtractLocked returns nil when the allocation was removed
func (r *LocationRepository) subtractLocked(allocation *entities.LocationAllocation, delta entities.Quantity) *entities.LocationAllocation {
	remaining := entities.SubtractQuantities(allocation.Quantity, delta)
	if remaining <= 0 {
		r.removeLocked(allocation)
		return nil
	}
	allocation.Quantity = remaining
	return allocation
}

func (r *LocationRepository) removeLocked(allocation *entities.LocationAllocation) {
	delete(r.allocations, allocation.ID)
	delete(r.byKey, allocationKey{inventoryID: allocation.InventoryID, location: allocation.Location})
}

func (r *LocationRepository) deleteForInventoryLocked(inventoryID string) {
	for _, allocation := range r.allocations {
		if allocation.InventoryID == inventoryID {
			r.removeLocked(allocation)
		}
	}
}

func (r *LocationRepository) matchLocked(match func(*entities.LocationAllocation) bool) []*entities.LocationAllocation {
	var matches []*entities.LocationAllocation
	for _, allocation := range r.allocations {
		if match(allocation) {
			matches = append(matches, allocation.Clone())
		}
	}
	return matches
}

func sortByInventory(allocations []*entities.LocationAllocation) {
	sort.Slice(allocations, func(i, j int) bool {
		if allocations[i].InventoryID != allocations[j].InventoryID {
			return allocations[i].InventoryID < allocations[j].InventoryID
		}
		return allocations[i].Location < allocations[j].Location
	})
}
