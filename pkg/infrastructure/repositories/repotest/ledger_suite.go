// Package repotest holds behavioural suites shared by every repository
// variant, so the in-memory and database-backed ledgers are held to the same
// contract.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/repositories"
)

// LedgerFactory returns a fresh, empty ledger for each subtest
type LedgerFactory func(t *testing.T) repositories.InventoryRepository

// RunLedgerSuite exercises the InventoryRepository contract
func RunLedgerSuite(t *testing.T, newLedger LedgerFactory) {
	t.Run("create_and_fetch", func(t *testing.T) { testCreateAndFetch(t, newLedger(t)) })
	t.Run("create_duplicate_id", func(t *testing.T) { testCreateDuplicate(t, newLedger(t)) })
	t.Run("create_rejects_unknown_type", func(t *testing.T) { testCreateUnknownType(t, newLedger(t)) })
	t.Run("empty_dimensions_normalized", func(t *testing.T) { testEmptyDimensions(t, newLedger(t)) })
	t.Run("fetch_for_item_ordering", func(t *testing.T) { testFetchOrdering(t, newLedger(t)) })
	t.Run("update", func(t *testing.T) { testUpdate(t, newLedger(t)) })
	t.Run("delete_is_idempotent", func(t *testing.T) { testDeletes(t, newLedger(t)) })
	t.Run("totals_sum_all_matches", func(t *testing.T) { testTotals(t, newLedger(t)) })
	t.Run("add_quantity", func(t *testing.T) { testAddQuantity(t, newLedger(t)) })
	t.Run("add_non_positive_creates_nothing", func(t *testing.T) { testAddNonPositiveCreatesNothing(t, newLedger(t)) })
	t.Run("subtract_quantity", func(t *testing.T) { testSubtractQuantity(t, newLedger(t)) })
	t.Run("subtract_from_record", func(t *testing.T) { testSubtractFromRecord(t, newLedger(t)) })
	t.Run("set_quantity", func(t *testing.T) { testSetQuantity(t, newLedger(t)) })
	t.Run("distinct_types", func(t *testing.T) { testDistinctTypes(t, newLedger(t)) })
	t.Run("concurrent_add_quantity", func(t *testing.T) { testConcurrentAdd(t, newLedger) })
}

func mustCreate(t *testing.T, ledger repositories.InventoryRepository, record *entities.InventoryRecord) *entities.InventoryRecord {
	t.Helper()
	created, err := ledger.Create(context.Background(), record)
	if err != nil {
		t.Fatalf("Failed to create record: %v", err)
	}
	return created
}

func testCreateAndFetch(t *testing.T, ledger repositories.InventoryRepository) {
	ctx := context.Background()

	created := mustCreate(t, ledger, &entities.InventoryRecord{
		ItemKey:    "effetre-591",
		Type:       "ROD",
		Subtype:    "standard",
		Dimensions: entities.Dimensions{"diameter": 6, "length": 33},
		Quantity:   12,
	})

	if created.ID == "" {
		t.Fatal("Expected generated id")
	}
	if created.Type != "rod" {
		t.Errorf("Expected canonical type rod, got %s", created.Type)
	}
	if created.DateAdded.IsZero() || created.DateModified.IsZero() {
		t.Error("Expected dates to be set")
	}

	fetched, err := ledger.Fetch(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to fetch record: %v", err)
	}
	if fetched == nil {
		t.Fatal("Expected record, got nil")
	}
	if fetched.Quantity != 12 {
		t.Errorf("Expected quantity 12, got %v", fetched.Quantity)
	}
	if fetched.Dimensions["diameter"] != 6 || fetched.Dimensions["length"] != 33 {
		t.Errorf("Expected dimensions to round-trip, got %v", fetched.Dimensions)
	}

	missing, err := ledger.Fetch(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing id, got %+v", missing)
	}
}

func testCreateDuplicate(t *testing.T, ledger repositories.InventoryRepository) {
	mustCreate(t, ledger, &entities.InventoryRecord{ID: "rec-1", ItemKey: "glassA", Type: "rod", Quantity: 1})

	_, err := ledger.Create(context.Background(), &entities.InventoryRecord{ID: "rec-1", ItemKey: "glassB", Type: "frit", Quantity: 2})
	if !errors.Is(err, entities.ErrDuplicateID) {
		t.Fatalf("Expected ErrDuplicateID, got %v", err)
	}
}

func testCreateUnknownType(t *testing.T, ledger repositories.InventoryRepository) {
	tests := []struct {
		name   string
		record *entities.InventoryRecord
	}{
		{"unknown_type", &entities.InventoryRecord{ItemKey: "glassA", Type: "marble", Quantity: 1}},
		{"bad_subtype", &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Subtype: "square", Quantity: 1}},
		{"negative_dimension", &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Dimensions: entities.Dimensions{"diameter": -1}, Quantity: 1}},
		{"empty_item_key", &entities.InventoryRecord{ItemKey: " ", Type: "rod", Quantity: 1}},
		{"nan_dimension", &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Dimensions: entities.Dimensions{"diameter": math.NaN()}, Quantity: 1}},
		{"infinite_unknown_dimension", &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Dimensions: entities.Dimensions{"batch": math.Inf(1)}, Quantity: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Create(context.Background(), tt.record)
			if !errors.Is(err, entities.ErrInvalidData) {
				t.Errorf("Expected ErrInvalidData, got %v", err)
			}
		})
	}
}

func testEmptyDimensions(t *testing.T, ledger repositories.InventoryRepository) {
	ctx := context.Background()

	withEmpty := mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Dimensions: entities.Dimensions{}, Quantity: 1})
	withoutAny := mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassB", Type: "rod", Quantity: 1})

	for _, id := range []string{withEmpty.ID, withoutAny.ID} {
		fetched, err := ledger.Fetch(ctx, id)
		if err != nil {
			t.Fatalf("Failed to fetch record: %v", err)
		}
		if fetched.Dimensions != nil {
			t.Errorf("Expected absent dimensions for %s, got %#v", id, fetched.Dimensions)
		}
	}
}

func testFetchOrdering(t *testing.T, ledger repositories.InventoryRepository) {
	ctx := context.Background()

	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "sheet", Quantity: 1})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "frit", Quantity: 2})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Dimensions: entities.Dimensions{"diameter": 5}, Quantity: 3})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Dimensions: entities.Dimensions{"diameter": 8}, Quantity: 9})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassB", Type: "rod", Quantity: 100})

	byType, err := ledger.FetchForItem(ctx, "glassA")
	if err != nil {
		t.Fatalf("Failed to fetch for item: %v", err)
	}
	gotTypes := make([]string, 0, len(byType))
	for _, r := range byType {
		gotTypes = append(gotTypes, r.Type)
	}
	if fmt.Sprint(gotTypes) != fmt.Sprint([]string{"frit", "rod", "rod", "sheet"}) {
		t.Errorf("Expected records sorted by type, got %v", gotTypes)
	}

	rods, err := ledger.FetchForItemAndType(ctx, "glassA", "Rod")
	if err != nil {
		t.Fatalf("Failed to fetch for item and type: %v", err)
	}
	if len(rods) != 2 {
		t.Fatalf("Expected 2 rods, got %d", len(rods))
	}
	if rods[0].Quantity != 9 || rods[1].Quantity != 3 {
		t.Errorf("Expected rods sorted by quantity descending, got %v then %v", rods[0].Quantity, rods[1].Quantity)
	}

	first, err := ledger.FindFirst(ctx, "glassA", "rod")
	if err != nil {
		t.Fatalf("Failed to find first: %v", err)
	}
	if first == nil || first.Quantity != 3 {
		t.Errorf("Expected first created rod (quantity 3), got %+v", first)
	}
}

func testUpdate(t *testing.T, ledger repositories.InventoryRepository) {
	ctx := context.Background()

	created := mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Subtype: "standard", Quantity: 4})

	replacement := created.Clone()
	replacement.Subtype = ""
	replacement.Quantity = -3
	replacement.Dimensions = entities.Dimensions{"diameter": 7}

	updated, err := ledger.Update(ctx, replacement)
	if err != nil {
		t.Fatalf("Failed to update record: %v", err)
	}
	if updated.Quantity != 0 {
		t.Errorf("Expected negative quantity clamped to 0, got %v", updated.Quantity)
	}
	if updated.Subtype != "" {
		t.Errorf("Expected full replace to clear subtype, got %q", updated.Subtype)
	}
	if !updated.DateAdded.Equal(created.DateAdded) {
		t.Errorf("Expected DateAdded to be preserved, got %v want %v", updated.DateAdded, created.DateAdded)
	}

	_, err = ledger.Update(ctx, &entities.InventoryRecord{ID: "missing", ItemKey: "glassA", Type: "rod"})
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	poisoned := updated.Clone()
	poisoned.Dimensions = entities.Dimensions{"length": math.Inf(-1)}
	if _, err := ledger.Update(ctx, poisoned); !errors.Is(err, entities.ErrInvalidData) {
		t.Errorf("Expected ErrInvalidData for an infinite dimension, got %v", err)
	}
	kept, err := ledger.Fetch(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to fetch record: %v", err)
	}
	if kept.Dimensions["diameter"] != 7 {
		t.Errorf("Expected rejected update to leave the record alone, got %v", kept.Dimensions)
	}
}

func testDeletes(t *testing.T, ledger repositories.InventoryRepository) {
	ctx := context.Background()

	a := mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Quantity: 1})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "frit", Quantity: 1})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "frit", Quantity: 2})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassB", Type: "rod", Quantity: 1})

	if err := ledger.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := ledger.Delete(ctx, a.ID); err != nil {
		t.Errorf("Expected repeated delete to be a no-op, got %v", err)
	}

	if err := ledger.DeleteForItemAndType(ctx, "glassA", "FRIT"); err != nil {
		t.Fatalf("Failed to delete for item and type: %v", err)
	}
	remaining, _ := ledger.FetchForItem(ctx, "glassA")
	if len(remaining) != 0 {
		t.Errorf("Expected no glassA records, got %d", len(remaining))
	}

	if err := ledger.DeleteForItem(ctx, "glassB"); err != nil {
		t.Fatalf("Failed to delete for item: %v", err)
	}
	if err := ledger.DeleteForItem(ctx, "nothing-here"); err != nil {
		t.Errorf("Expected delete of unknown item to be a no-op, got %v", err)
	}
	all, _ := ledger.FetchAll(ctx)
	if len(all) != 0 {
		t.Errorf("Expected empty ledger, got %d records", len(all))
	}
}

func testTotals(t *testing.T, ledger repositories.InventoryRepository) {
	ctx := context.Background()

	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Dimensions: entities.Dimensions{"diameter": 5}, Quantity: 2.5})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Dimensions: entities.Dimensions{"diameter": 8}, Quantity: 1.5})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "frit", Quantity: 0.1})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "frit", Quantity: 0.2})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassB", Type: "rod", Quantity: 50})

	tests := []struct {
		name     string
		typeName string
		expected entities.Quantity
	}{
		{"all_types", "", 4.3},
		{"rods", "rod", 4},
		{"frit_sums_exactly", "frit", 0.3},
		{"unused_type", "sheet", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got entities.Quantity
			var err error
			if tt.typeName == "" {
				got, err = ledger.TotalQuantity(ctx, "glassA")
			} else {
				got, err = ledger.TotalQuantityForType(ctx, "glassA", tt.typeName)
			}
			if err != nil {
				t.Fatalf("Failed to total: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected total %v, got %v", tt.expected, got)
			}
		})
	}
}

func testAddQuantity(t *testing.T, ledger repositories.InventoryRepository) {
	ctx := context.Background()

	created, err := ledger.AddQuantity(ctx, "glassA", "Rod", 10)
	if err != nil {
		t.Fatalf("Failed to add quantity: %v", err)
	}
	if created.Quantity != 10 || created.Type != "rod" {
		t.Errorf("Expected new rod record with 10, got %+v", created)
	}

	updated, err := ledger.AddQuantity(ctx, "glassA", "rod", 2.5)
	if err != nil {
		t.Fatalf("Failed to add quantity: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("Expected delta applied to existing record %s, got %s", created.ID, updated.ID)
	}
	if updated.Quantity != 12.5 {
		t.Errorf("Expected quantity 12.5, got %v", updated.Quantity)
	}
	if updated.DateModified.Before(created.DateModified) {
		t.Error("Expected DateModified to move forward")
	}

	clamped, err := ledger.AddQuantity(ctx, "glassA", "rod", -20)
	if err != nil {
		t.Fatalf("Failed to add negative delta: %v", err)
	}
	if clamped.Quantity != 0 {
		t.Errorf("Expected quantity clamped to 0, got %v", clamped.Quantity)
	}

	if _, err := ledger.AddQuantity(ctx, "glassA", "marble", 1); !errors.Is(err, entities.ErrInvalidData) {
		t.Errorf("Expected ErrInvalidData for unknown type, got %v", err)
	}
}

func testAddNonPositiveCreatesNothing(t *testing.T, ledger repositories.InventoryRepository) {
	ctx := context.Background()

	for _, delta := range []entities.Quantity{0, -5} {
		record, err := ledger.AddQuantity(ctx, "glassB", "frit", delta)
		if err != nil {
			t.Fatalf("Unexpected error for delta %v: %v", delta, err)
		}
		if record != nil {
			t.Errorf("Expected no record for delta %v, got %+v", delta, record)
		}
	}

	records, err := ledger.FetchForItem(ctx, "glassB")
	if err != nil {
		t.Fatalf("Failed to fetch: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no zero-quantity records, got %d", len(records))
	}

	if _, err := ledger.AddQuantity(ctx, "glassB", "marble", -1); !errors.Is(err, entities.ErrInvalidData) {
		t.Errorf("Expected ErrInvalidData for unknown type, got %v", err)
	}
}

func testSubtractFromRecord(t *testing.T, ledger repositories.InventoryRepository) {
	ctx := context.Background()

	first := mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Quantity: 5})
	second := mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "rod", Quantity: 8})

	changed, err := ledger.SubtractFromRecord(ctx, second.ID, 3)
	if err != nil {
		t.Fatalf("Failed to subtract: %v", err)
	}
	if changed == nil || changed.ID != second.ID || changed.Quantity != 5 {
		t.Fatalf("Expected %s to hold 5, got %+v", second.ID, changed)
	}
	untouched, _ := ledger.Fetch(ctx, first.ID)
	if untouched == nil || untouched.Quantity != 5 {
		t.Errorf("Expected first record untouched at 5, got %+v", untouched)
	}

	gone, err := ledger.SubtractFromRecord(ctx, second.ID, 5)
	if err != nil {
		t.Fatalf("Failed to subtract to zero: %v", err)
	}
	if gone != nil {
		t.Errorf("Expected nil after subtracting to zero, got %+v", gone)
	}
	if fetched, _ := ledger.Fetch(ctx, second.ID); fetched != nil {
		t.Errorf("Expected record deleted, still found %+v", fetched)
	}

	if _, err := ledger.SubtractFromRecord(ctx, second.ID, 1); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a deleted record, got %v", err)
	}
}

func testSubtractQuantity(t *testing.T, ledger repositories.InventoryRepository) {
	ctx := context.Background()

	if _, err := ledger.SubtractQuantity(ctx, "glassA", "rod", 1); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound when nothing to subtract from, got %v", err)
	}

	if _, err := ledger.AddQuantity(ctx, "glassA", "rod", 10); err != nil {
		t.Fatalf("Failed to add quantity: %v", err)
	}

	partial, err := ledger.SubtractQuantity(ctx, "glassA", "rod", 4)
	if err != nil {
		t.Fatalf("Failed to subtract: %v", err)
	}
	if partial == nil || partial.Quantity != 6 {
		t.Fatalf("Expected remaining 6, got %+v", partial)
	}

	gone, err := ledger.SubtractQuantity(ctx, "glassA", "rod", 6)
	if err != nil {
		t.Fatalf("Failed to subtract to zero: %v", err)
	}
	if gone != nil {
		t.Errorf("Expected nil after subtracting to zero, got %+v", gone)
	}
	if fetched, _ := ledger.Fetch(ctx, partial.ID); fetched != nil {
		t.Errorf("Expected record deleted, still found %+v", fetched)
	}

	if _, err := ledger.AddQuantity(ctx, "glassA", "rod", 2); err != nil {
		t.Fatalf("Failed to add quantity: %v", err)
	}
	below, err := ledger.SubtractQuantity(ctx, "glassA", "rod", 5)
	if err != nil {
		t.Fatalf("Failed to subtract below zero: %v", err)
	}
	if below != nil {
		t.Errorf("Expected nil after subtracting below zero, got %+v", below)
	}
	records, _ := ledger.FetchForItemAndType(ctx, "glassA", "rod")
	if len(records) != 0 {
		t.Errorf("Expected no rod records, got %d", len(records))
	}
}

func testSetQuantity(t *testing.T, ledger repositories.InventoryRepository) {
	ctx := context.Background()

	none, err := ledger.SetQuantity(ctx, "glassA", "frit", 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if none != nil {
		t.Errorf("Expected nil when setting zero on nothing, got %+v", none)
	}

	created, err := ledger.SetQuantity(ctx, "glassA", "frit", 7.5)
	if err != nil {
		t.Fatalf("Failed to set quantity: %v", err)
	}
	if created == nil || created.Quantity != 7.5 {
		t.Fatalf("Expected created record with 7.5, got %+v", created)
	}

	updated, err := ledger.SetQuantity(ctx, "glassA", "frit", 3)
	if err != nil {
		t.Fatalf("Failed to set quantity: %v", err)
	}
	if updated.ID != created.ID || updated.Quantity != 3 {
		t.Errorf("Expected record %s with 3, got %+v", created.ID, updated)
	}

	removed, err := ledger.SetQuantity(ctx, "glassA", "frit", -1)
	if err != nil {
		t.Fatalf("Failed to set negative quantity: %v", err)
	}
	if removed != nil {
		t.Errorf("Expected nil after setting negative quantity, got %+v", removed)
	}
	if fetched, _ := ledger.Fetch(ctx, created.ID); fetched != nil {
		t.Errorf("Expected record deleted, still found %+v", fetched)
	}
}

func testDistinctTypes(t *testing.T, ledger repositories.InventoryRepository) {
	ctx := context.Background()

	types, err := ledger.DistinctTypes(ctx)
	if err != nil {
		t.Fatalf("Failed to list types: %v", err)
	}
	if len(types) != 0 {
		t.Errorf("Expected no types on empty ledger, got %v", types)
	}

	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassA", Type: "sheet", Quantity: 1})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassB", Type: "Rod", Quantity: 1})
	mustCreate(t, ledger, &entities.InventoryRecord{ItemKey: "glassC", Type: "rod", Quantity: 1})

	types, err = ledger.DistinctTypes(ctx)
	if err != nil {
		t.Fatalf("Failed to list types: %v", err)
	}
	if fmt.Sprint(types) != fmt.Sprint([]string{"rod", "sheet"}) {
		t.Errorf("Expected [rod sheet], got %v", types)
	}
}

func testConcurrentAdd(t *testing.T, newLedger LedgerFactory) {
	for _, n := range []int{2, 10, 100} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			ledger := newLedger(t)
			ctx := context.Background()

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := ledger.AddQuantity(ctx, "glassA", "rod", 1); err != nil {
						errs <- err
					}
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				t.Errorf("Unexpected error: %v", err)
			}

			records, err := ledger.FetchForItemAndType(ctx, "glassA", "rod")
			if err != nil {
				t.Fatalf("Failed to fetch: %v", err)
			}
			if len(records) != 1 {
				t.Fatalf("Expected a single record, got %d", len(records))
			}
			if records[0].Quantity != entities.Quantity(n) {
				t.Errorf("Expected quantity %d, got %v", n, records[0].Quantity)
			}
		})
	}
}
