package repotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/repositories"
)

// LocationFactory returns a fresh ledger and an allocator that uses the
// ledger as its inventory lookup
type LocationFactory func(t *testing.T) (repositories.InventoryRepository, repositories.LocationRepository)

// RunLocationSuite exercises the LocationRepository contract
func RunLocationSuite(t *testing.T, newStores LocationFactory) {
	t.Run("add_and_fetch", func(t *testing.T) { testLocationAddAndFetch(t, newStores) })
	t.Run("argument_checks", func(t *testing.T) { testLocationArguments(t, newStores) })
	t.Run("subtract_deletes_at_zero", func(t *testing.T) { testLocationSubtract(t, newStores) })
	t.Run("set_locations", func(t *testing.T) { testSetLocations(t, newStores) })
	t.Run("move_quantity", func(t *testing.T) { testMoveQuantity(t, newStores) })
	t.Run("move_conserves_total_under_readers", func(t *testing.T) { testMoveConservation(t, newStores) })
	t.Run("discrepancy", func(t *testing.T) { testDiscrepancy(t, newStores) })
	t.Run("orphans", func(t *testing.T) { testOrphans(t, newStores) })
	t.Run("restock_and_redistribution", func(t *testing.T) { testRestockScenario(t, newStores) })
	t.Run("concurrent_add_quantity", func(t *testing.T) { testConcurrentLocationAdd(t, newStores) })
}

func testLocationAddAndFetch(t *testing.T, newStores LocationFactory) {
	_, allocator := newStores(t)
	ctx := context.Background()

	first, err := allocator.AddQuantity(ctx, "rec-1", "  Shelf B ", 4)
	if err != nil {
		t.Fatalf("Failed to add quantity: %v", err)
	}
	if first.Location != "Shelf B" {
		t.Errorf("Expected trimmed location, got %q", first.Location)
	}
	if first.ID == "" {
		t.Error("Expected generated allocation id")
	}

	again, err := allocator.AddQuantity(ctx, "rec-1", "Shelf B", 1.5)
	if err != nil {
		t.Fatalf("Failed to add quantity: %v", err)
	}
	if again.ID != first.ID || again.Quantity != 5.5 {
		t.Errorf("Expected allocation %s with 5.5, got %+v", first.ID, again)
	}

	mustAdd(t, allocator, "rec-1", "Drawer A", 1)
	mustAdd(t, allocator, "rec-1", "shelf b", 1)
	mustAdd(t, allocator, "rec-0", "Drawer A", 2)

	forRecord, err := allocator.FetchForInventory(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Failed to fetch for inventory: %v", err)
	}
	if got := locationsOf(forRecord); got != "[Drawer A Shelf B shelf b]" {
		t.Errorf("Expected allocations sorted by location with case preserved, got %s", got)
	}

	atDrawer, err := allocator.FetchForLocationName(ctx, "Drawer A")
	if err != nil {
		t.Fatalf("Failed to fetch for location: %v", err)
	}
	if len(atDrawer) != 2 || atDrawer[0].InventoryID != "rec-0" || atDrawer[1].InventoryID != "rec-1" {
		t.Errorf("Expected allocations sorted by inventory id, got %+v", atDrawer)
	}

	total, err := allocator.TotalQuantity(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Failed to total: %v", err)
	}
	if total != 7.5 {
		t.Errorf("Expected total 7.5, got %v", total)
	}
}

func testLocationArguments(t *testing.T, newStores LocationFactory) {
	_, allocator := newStores(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		id       string
		location string
		delta    entities.Quantity
	}{
		{"empty_location", "rec-1", "   ", 1},
		{"empty_inventory_id", "", "Shelf", 1},
		{"zero_delta", "rec-1", "Shelf", 0},
		{"negative_delta", "rec-1", "Shelf", -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := allocator.AddQuantity(ctx, tt.id, tt.location, tt.delta); !errors.Is(err, entities.ErrInvalidData) {
				t.Errorf("Expected ErrInvalidData from add, got %v", err)
			}
			if _, err := allocator.SubtractQuantity(ctx, tt.id, tt.location, tt.delta); !errors.Is(err, entities.ErrInvalidData) {
				t.Errorf("Expected ErrInvalidData from subtract, got %v", err)
			}
		})
	}
}

func testLocationSubtract(t *testing.T, newStores LocationFactory) {
	_, allocator := newStores(t)
	ctx := context.Background()

	if _, err := allocator.SubtractQuantity(ctx, "rec-1", "Shelf", 1); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	mustAdd(t, allocator, "rec-1", "Shelf", 5)

	partial, err := allocator.SubtractQuantity(ctx, "rec-1", "Shelf", 2)
	if err != nil {
		t.Fatalf("Failed to subtract: %v", err)
	}
	if partial == nil || partial.Quantity != 3 {
		t.Fatalf("Expected 3 remaining, got %+v", partial)
	}

	gone, err := allocator.SubtractQuantity(ctx, "rec-1", "Shelf", 3)
	if err != nil {
		t.Fatalf("Failed to subtract: %v", err)
	}
	if gone != nil {
		t.Errorf("Expected nil at zero, got %+v", gone)
	}

	mustAdd(t, allocator, "rec-1", "Shelf", 1)
	if below, err := allocator.SubtractQuantity(ctx, "rec-1", "Shelf", 4); err != nil || below != nil {
		t.Errorf("Expected nil, nil when subtracting below zero, got %+v, %v", below, err)
	}

	remaining, _ := allocator.FetchForInventory(ctx, "rec-1")
	if len(remaining) != 0 {
		t.Errorf("Expected no allocations, got %d", len(remaining))
	}
}

func testSetLocations(t *testing.T, newStores LocationFactory) {
	_, allocator := newStores(t)
	ctx := context.Background()

	mustAdd(t, allocator, "rec-1", "Old Shelf", 9)
	mustAdd(t, allocator, "rec-2", "Old Shelf", 1)

	err := allocator.SetLocations(ctx, "rec-1", []entities.LocationQuantity{
		{Location: "Drawer", Quantity: 2},
		{Location: "Bin", Quantity: 0},
		{Location: " Drawer ", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("Failed to set locations: %v", err)
	}

	allocations, _ := allocator.FetchForInventory(ctx, "rec-1")
	if got := locationsOf(allocations); got != "[Bin Drawer]" {
		t.Fatalf("Expected [Bin Drawer], got %s", got)
	}
	if allocations[0].Quantity != 0 {
		t.Errorf("Expected zero entry stored verbatim, got %v", allocations[0].Quantity)
	}
	if allocations[1].Quantity != 3 {
		t.Errorf("Expected last duplicate to win with 3, got %v", allocations[1].Quantity)
	}

	other, _ := allocator.FetchForInventory(ctx, "rec-2")
	if len(other) != 1 {
		t.Errorf("Expected other record untouched, got %d allocations", len(other))
	}

	if err := allocator.SetLocations(ctx, "rec-1", nil); err != nil {
		t.Fatalf("Failed to clear locations: %v", err)
	}
	cleared, _ := allocator.FetchForInventory(ctx, "rec-1")
	if len(cleared) != 0 {
		t.Errorf("Expected no allocations after empty set, got %d", len(cleared))
	}

	err = allocator.SetLocations(ctx, "rec-1", []entities.LocationQuantity{{Location: "", Quantity: 1}})
	if !errors.Is(err, entities.ErrInvalidData) {
		t.Errorf("Expected ErrInvalidData for empty location, got %v", err)
	}
}

func testMoveQuantity(t *testing.T, newStores LocationFactory) {
	ctx := context.Background()

	tests := []struct {
		name      string
		from, to  string
		delta     entities.Quantity
		wantErr   error
		wantState string
	}{
		{"partial_move", "A", "B", 3, nil, "A=7 B=5"},
		{"drains_source", "A", "B", 10, nil, "B=12"},
		{"new_destination", "A", "C", 4, nil, "A=6 B=2 C=4"},
		{"trims_overdraw_within_tolerance", "A", "B", 10.0005, nil, "B=12"},
		{"rejects_overdraw", "A", "B", 11, entities.ErrInvalidData, "A=10 B=2"},
		{"missing_source", "Z", "B", 1, entities.ErrNotFound, "A=10 B=2"},
		{"same_location", "A", "A", 4, nil, "A=10 B=2"},
		{"empty_destination", "A", " ", 1, entities.ErrInvalidData, "A=10 B=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, allocator := newStores(t)
			mustAdd(t, allocator, "rec-1", "A", 10)
			mustAdd(t, allocator, "rec-1", "B", 2)

			err := allocator.MoveQuantity(ctx, "rec-1", tt.from, tt.to, tt.delta)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}

			allocations, _ := allocator.FetchForInventory(ctx, "rec-1")
			if got := stateOf(allocations); got != tt.wantState {
				t.Errorf("Expected state %s, got %s", tt.wantState, got)
			}
			total := entities.TotalAllocated(allocations)
			if total != 12 {
				t.Errorf("Expected total conserved at 12, got %v", total)
			}
		})
	}
}

func testMoveConservation(t *testing.T, newStores LocationFactory) {
	_, allocator := newStores(t)
	ctx := context.Background()

	mustAdd(t, allocator, "rec-1", "A", 50)
	mustAdd(t, allocator, "rec-1", "B", 50)

	const moves = 200
	var wg sync.WaitGroup
	done := make(chan struct{})
	readerErrs := make(chan error, 4)

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				total, err := allocator.TotalQuantity(ctx, "rec-1")
				if err != nil {
					readerErrs <- err
					return
				}
				if total != 100 {
					readerErrs <- fmt.Errorf("observed total %v mid-move", total)
					return
				}
			}
		}()
	}

	var movers sync.WaitGroup
	for i := 0; i < moves; i++ {
		movers.Add(1)
		go func(i int) {
			defer movers.Done()
			from, to := "A", "B"
			if i%2 == 1 {
				from, to = "B", "A"
			}
			// Sources can run dry under contention; a rejected move is fine.
			_ = allocator.MoveQuantity(ctx, "rec-1", from, to, 1)
		}(i)
	}
	movers.Wait()
	close(done)
	wg.Wait()
	close(readerErrs)

	for err := range readerErrs {
		t.Error(err)
	}

	total, err := allocator.TotalQuantity(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Failed to total: %v", err)
	}
	if total != 100 {
		t.Errorf("Expected total 100 after moves, got %v", total)
	}
}

func testDiscrepancy(t *testing.T, newStores LocationFactory) {
	_, allocator := newStores(t)
	ctx := context.Background()

	if err := allocator.SetLocations(ctx, "rec-1", []entities.LocationQuantity{
		{Location: "A", Quantity: 5},
		{Location: "B", Quantity: 2},
	}); err != nil {
		t.Fatalf("Failed to set locations: %v", err)
	}

	diff, err := allocator.QuantityDiscrepancy(ctx, "rec-1", 10)
	if err != nil {
		t.Fatalf("Failed to compute discrepancy: %v", err)
	}
	if diff != -3 {
		t.Errorf("Expected discrepancy -3, got %v", diff)
	}
	if ok, _ := allocator.ValidateQuantities(ctx, "rec-1", 10); ok {
		t.Error("Expected validation to fail for 7 vs 10")
	}

	mustAdd(t, allocator, "rec-1", "C", 3)

	diff, _ = allocator.QuantityDiscrepancy(ctx, "rec-1", 10)
	if diff != 0 {
		t.Errorf("Expected discrepancy 0, got %v", diff)
	}
	if ok, _ := allocator.ValidateQuantities(ctx, "rec-1", 10.0004); !ok {
		t.Error("Expected validation to pass within tolerance")
	}

	if ok, _ := allocator.ValidateQuantities(ctx, "no-allocations", 0); !ok {
		t.Error("Expected a record with no allocations to validate against zero")
	}
}

func testOrphans(t *testing.T, newStores LocationFactory) {
	ledger, allocator := newStores(t)
	ctx := context.Background()

	kept := mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Quantity: 3})
	dropped := mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassB", Type: "rod", Quantity: 2})

	mustAdd(t, allocator, kept.ID, "Shelf", 3)
	mustAdd(t, allocator, dropped.ID, "Shelf", 1)
	mustAdd(t, allocator, dropped.ID, "Drawer", 1)

	if err := ledger.Delete(ctx, dropped.ID); err != nil {
		t.Fatalf("Failed to delete record: %v", err)
	}

	stillThere, _ := allocator.FetchForInventory(ctx, dropped.ID)
	if len(stillThere) != 2 {
		t.Fatalf("Expected ledger delete not to cascade, got %d allocations", len(stillThere))
	}

	orphans, err := allocator.FindOrphanedAllocations(ctx)
	if err != nil {
		t.Fatalf("Failed to find orphans: %v", err)
	}
	if len(orphans) != 2 {
		t.Fatalf("Expected 2 orphans, got %d", len(orphans))
	}
	for _, orphan := range orphans {
		if orphan.InventoryID != dropped.ID {
			t.Errorf("Expected orphan of %s, got %s", dropped.ID, orphan.InventoryID)
		}
	}

	if err := allocator.DeleteForInventory(ctx, dropped.ID); err != nil {
		t.Fatalf("Failed to delete allocations: %v", err)
	}
	orphans, _ = allocator.FindOrphanedAllocations(ctx)
	if len(orphans) != 0 {
		t.Errorf("Expected no orphans after cleanup, got %d", len(orphans))
	}
}

func testRestockScenario(t *testing.T, newStores LocationFactory) {
	ledger, allocator := newStores(t)
	ctx := context.Background()

	record, err := ledger.AddQuantity(ctx, "glassA", "rod", 10)
	if err != nil {
		t.Fatalf("Failed to restock: %v", err)
	}
	if record.Quantity != 10 {
		t.Fatalf("Expected quantity 10, got %v", record.Quantity)
	}
	if err := allocator.SetLocations(ctx, record.ID, []entities.LocationQuantity{
		{Location: "BinA", Quantity: 6},
		{Location: "BinB", Quantity: 4},
	}); err != nil {
		t.Fatalf("Failed to set locations: %v", err)
	}

	if err := allocator.MoveQuantity(ctx, record.ID, "BinA", "BinB", 2); err != nil {
		t.Fatalf("Failed to move: %v", err)
	}
	allocations, _ := allocator.FetchForInventory(ctx, record.ID)
	if got := stateOf(allocations); got != "BinA=4 BinB=6" {
		t.Errorf("Expected BinA=4 BinB=6, got %s", got)
	}
	ok, err := allocator.ValidateQuantities(ctx, record.ID, record.Quantity)
	if err != nil {
		t.Fatalf("Failed to validate: %v", err)
	}
	if !ok {
		t.Error("Expected the move to keep the total at 10")
	}

	consumed, err := ledger.SubtractQuantity(ctx, "glassA", "rod", 10)
	if err != nil {
		t.Fatalf("Failed to consume: %v", err)
	}
	if consumed != nil {
		t.Errorf("Expected record to be deleted, got %+v", consumed)
	}
	remaining, err := ledger.FetchForItemAndType(ctx, "glassA", "rod")
	if err != nil {
		t.Fatalf("Failed to fetch: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Expected no rod records left, got %d", len(remaining))
	}
	if gone, _ := ledger.Fetch(ctx, record.ID); gone != nil {
		t.Errorf("Expected %s to be gone, got %+v", record.ID, gone)
	}
}

func testConcurrentLocationAdd(t *testing.T, newStores LocationFactory) {
	for _, n := range []int{2, 10, 100} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			_, allocator := newStores(t)
			ctx := context.Background()

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := allocator.AddQuantity(ctx, "rec-1", "Shelf", 1); err != nil {
						t.Errorf("Unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			allocations, _ := allocator.FetchForInventory(ctx, "rec-1")
			if len(allocations) != 1 {
				t.Fatalf("Expected one allocation, got %d", len(allocations))
			}
			if allocations[0].Quantity != entities.Quantity(n) {
				t.Errorf("Expected %d, got %v", n, allocations[0].Quantity)
			}
		})
	}
}

func mustAdd(t *testing.T, allocator repositories.LocationRepository, inventoryID, location string, delta entities.Quantity) {
	t.Helper()
	if _, err := allocator.AddQuantity(context.Background(), inventoryID, location, delta); err != nil {
		t.Fatalf("Failed to add %v at %s: %v", delta, location, err)
	}
}

func locationsOf(allocations []*entities.LocationAllocation) string {
	names := make([]string, 0, len(allocations))
	for _, a := range allocations {
		names = append(names, a.Location)
	}
	return fmt.Sprint(names)
}

func stateOf(allocations []*entities.LocationAllocation) string {
	var s string
	for i, a := range allocations {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%v", a.Location, float64(a.Quantity))
	}
	return s
}
