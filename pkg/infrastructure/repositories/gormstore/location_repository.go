package gormstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/repositories"
)

// LocationRepository stores allocations in the location_allocations table.
// A move is one transaction, so readers never see it half applied.
type LocationRepository struct {
	db     *gorm.DB
	mu     sync.Mutex
	lookup repositories.InventoryLookup
}

// NewLocationRepository creates a gorm-backed location repository. lookup is
// only needed by FindOrphanedAllocations.
func NewLocationRepository(db *gorm.DB, lookup repositories.InventoryLookup) *LocationRepository {
	return &LocationRepository{db: db, lookup: lookup}
}

// Verify interface compliance
var _ repositories.LocationRepository = (*LocationRepository)(nil)

func (r *LocationRepository) FetchForInventory(ctx context.Context, inventoryID string) ([]*entities.LocationAllocation, error) {
	q := r.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("location ASC")
	return r.find("fetch for inventory", q)
}

func (r *LocationRepository) FetchForLocationName(ctx context.Context, location string) ([]*entities.LocationAllocation, error) {
	q := r.db.WithContext(ctx).
		Where("location = ?", entities.NormalizeLocation(location)).
		Order("inventory_id ASC")
	return r.find("fetch for location", q)
}

func (r *LocationRepository) FetchAll(ctx context.Context) ([]*entities.LocationAllocation, error) {
	q := r.db.WithContext(ctx).
		Order("inventory_id ASC").
		Order("location ASC")
	return r.find("fetch all allocations", q)
}

// SetLocations replaces every allocation of a record. Repeated locations
// collapse to the last entry.
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

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("inventory_id = ?", inventoryID).Delete(&allocationRow{}).Error; err != nil {
			return err
		}
		for _, pair := range collapsed {
			if _, err := insertAllocation(tx, inventoryID, pair.Location, pair.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapErr(op, err)
}

func (r *LocationRepository) AddQuantity(ctx context.Context, inventoryID, location string, delta entities.Quantity) (*entities.LocationAllocation, error) {
	const op = "add location quantity"
	location, err := entities.CheckAllocationArgs(op, inventoryID, location, delta)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var result *entities.LocationAllocation
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result, err = addAllocation(tx, inventoryID, location, delta)
		return err
	})
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// SubtractQuantity returns nil when the allocation was removed
func (r *LocationRepository) SubtractQuantity(ctx context.Context, inventoryID, location string, delta entities.Quantity) (*entities.LocationAllocation, error) {
	const op = "subtract location quantity"
	location, err := entities.CheckAllocationArgs(op, inventoryID, location, delta)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var result *entities.LocationAllocation
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findAllocation(tx, inventoryID, location)
		if err != nil {
			return err
		}
		if row == nil {
			return &entities.LedgerError{Op: op, Kind: entities.ErrNotFound, ID: inventoryID, Location: location}
		}
		result, err = subtractAllocation(tx, row, delta)
		return err
	})
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

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

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findAllocation(tx, inventoryID, from)
		if err != nil {
			return err
		}
		if row == nil {
			return &entities.LedgerError{Op: op, Kind: entities.ErrNotFound, ID: inventoryID, Location: from}
		}
		moved, err := entities.BoundedMoveDelta(op, row.toAllocation(), delta)
		if err != nil {
			return err
		}
		if from == to {
			return nil
		}
		if _, err := subtractAllocation(tx, row, moved); err != nil {
			return err
		}
		_, err = addAllocation(tx, inventoryID, to, moved)
		return err
	})
	return wrapErr(op, err)
}

func (r *LocationRepository) DeleteForInventory(ctx context.Context, inventoryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.WithContext(ctx).Where("inventory_id = ?", inventoryID).Delete(&allocationRow{}).Error
	return wrapErr("delete for inventory", err)
}

func (r *LocationRepository) TotalQuantity(ctx context.Context, inventoryID string) (entities.Quantity, error) {
	allocations, err := r.FetchForInventory(ctx, inventoryID)
	if err != nil {
		return 0, err
	}
	return entities.TotalAllocated(allocations), nil
}

func (r *LocationRepository) ValidateQuantities(ctx context.Context, inventoryID string, expectedTotal entities.Quantity) (bool, error) {
	actual, err := r.TotalQuantity(ctx, inventoryID)
	if err != nil {
		return false, err
	}
	return entities.WithinTolerance(actual, expectedTotal, entities.QuantityTolerance), nil
}

func (r *LocationRepository) QuantityDiscrepancy(ctx context.Context, inventoryID string, expectedTotal entities.Quantity) (entities.Quantity, error) {
	actual, err := r.TotalQuantity(ctx, inventoryID)
	if err != nil {
		return 0, err
	}
	return entities.SubtractQuantities(actual, expectedTotal), nil
}

func (r *LocationRepository) FindOrphanedAllocations(ctx context.Context) ([]*entities.LocationAllocation, error) {
	if r.lookup == nil {
		return nil, entities.InvalidDataf("find orphaned allocations", "no inventory lookup configured")
	}
	allocations, err := r.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return repositories.FilterOrphans(ctx, r.lookup, allocations)
}

func (r *LocationRepository) find(op string, q *gorm.DB) ([]*entities.LocationAllocation, error) {
	var rows []allocationRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapErr(op, err)
	}
	return toAllocations(rows), nil
}

func findAllocation(tx *gorm.DB, inventoryID, location string) (*allocationRow, error) {
	var rows []allocationRow
	err := tx.Where("inventory_id = ? AND location = ?", inventoryID, location).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func insertAllocation(tx *gorm.DB, inventoryID, location string, quantity entities.Quantity) (*entities.LocationAllocation, error) {
	row := allocationRow{
		ID:          uuid.NewString(),
		InventoryID: inventoryID,
		Location:    location,
		Quantity:    float64(quantity),
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return row.toAllocation(), nil
}

func addAllocation(tx *gorm.DB, inventoryID, location string, delta entities.Quantity) (*entities.LocationAllocation, error) {
	row, err := findAllocation(tx, inventoryID, location)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return insertAllocation(tx, inventoryID, location, delta)
	}
	row.Quantity = float64(entities.AddQuantities(entities.Quantity(row.Quantity), delta))
	if err := tx.Model(&allocationRow{}).Where("id = ?", row.ID).Update("quantity", row.Quantity).Error; err != nil {
		return nil, err
	}
	return row.toAllocation(), nil
}

// subtractAllocation returns nil when the allocation was removed
func subtractAllocation(tx *gorm.DB, row *allocationRow, delta entities.Quantity) (*entities.LocationAllocation, error) {
	remaining := entities.SubtractQuantities(entities.Quantity(row.Quantity), delta)
	if remaining <= 0 {
		return nil, tx.Where("id = ?", row.ID).Delete(&allocationRow{}).Error
	}
	row.Quantity = float64(remaining)
	if err := tx.Model(&allocationRow{}).Where("id = ?", row.ID).Update("quantity", row.Quantity).Error; err != nil {
		return nil, err
	}
	return row.toAllocation(), nil
}
