package repositories

import (
	"context"

	"github.com/vsinha/glassledger/pkg/domain/entities"
)

// FilterOrphans keeps the allocations whose inventory record cannot be
// resolved through lookup. Each inventory id is looked up once.
func FilterOrphans(ctx context.Context, lookup InventoryLookup, allocations []*entities.LocationAllocation) ([]*entities.LocationAllocation, error) {
	exists := make(map[string]bool)
	var orphans []*entities.LocationAllocation
	for _, allocation := range allocations {
		found, checked := exists[allocation.InventoryID]
		if !checked {
			record, err := lookup.Fetch(ctx, allocation.InventoryID)
			if err != nil {
				return nil, err
			}
			found = record != nil
			exists[allocation.InventoryID] = found
		}
		if !found {
			orphans = append(orphans, allocation)
		}
	}
	return orphans, nil
}
