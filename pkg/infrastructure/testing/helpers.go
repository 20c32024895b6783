package testing

import (
	"context"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/services"
	"github.com/vsinha/glassledger/pkg/infrastructure/repositories/memory"
)

// Fixed record ids of the studio scenario
const (
	StudioRodID      = "rec-effetre-591-rod"
	StudioStringerID = "rec-effetre-591-stringer"
	StudioFritID     = "rec-cim-511-frit"
	StudioSheetID    = "rec-bullseye-1101-sheet"
	StudioOrphanID   = "rec-deleted"
)

// BuildStudioTestData builds a small glass studio: a few records, most of
// them filed across shelves, one with a short allocation and one set of
// allocations left behind by a deleted record.
func BuildStudioTestData() (*memory.InventoryRepository, *memory.LocationRepository) {
	ctx := context.Background()
	ledger := memory.NewInventoryRepository(services.NewTypeTaxonomy())
	allocator := memory.NewLocationRepository(ledger)

	records := []*entities.InventoryRecord{
		{
			ID:         StudioRodID,
			ItemKey:    "effetre-591",
			Type:       "rod",
			Subtype:    "standard",
			Dimensions: entities.Dimensions{"diameter": 6, "length": 33},
			Quantity:   10,
		},
		{
			ID:         StudioStringerID,
			ItemKey:    "effetre-591",
			Type:       "stringer",
			Subtype:    "thin",
			Dimensions: entities.Dimensions{"diameter": 1.5},
			Quantity:   25,
		},
		{
			ID:         StudioFritID,
			ItemKey:    "cim-511",
			Type:       "frit",
			Subtype:    "coarse",
			Dimensions: entities.Dimensions{"weight": 250},
			Quantity:   2,
		},
		{
			ID:         StudioSheetID,
			ItemKey:    "bullseye-1101",
			Type:       "sheet",
			Subtype:    "iridescent",
			Subsubtype: "gold",
			Dimensions: entities.Dimensions{"thickness": 3, "width": 25, "height": 25},
			Quantity:   4,
		},
	}
	mustLoad(ledger.LoadRecords(ctx, records))

	mustLoad(allocator.SetLocations(ctx, StudioRodID, []entities.LocationQuantity{
		{Location: "Shelf A", Quantity: 6},
		{Location: "Shelf B", Quantity: 4},
	}))
	// Short by one: the stringer record holds 25
	mustLoad(allocator.SetLocations(ctx, StudioStringerID, []entities.LocationQuantity{
		{Location: "Drawer 2", Quantity: 24},
	}))
	mustLoad(allocator.SetLocations(ctx, StudioSheetID, []entities.LocationQuantity{
		{Location: "Sheet Rack", Quantity: 4},
	}))
	mustLoad(allocator.SetLocations(ctx, StudioOrphanID, []entities.LocationQuantity{
		{Location: "Shelf A", Quantity: 3},
	}))

	return ledger, allocator
}

func mustLoad(err error) {
	if err != nil {
		panic(err)
	}
}
