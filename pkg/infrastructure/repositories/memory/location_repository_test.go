package memory

import (
	"context"
	"testing"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/repositories"
	"github.com/vsinha/glassledger/pkg/domain/services"
	"github.com/vsinha/glassledger/pkg/infrastructure/repositories/repotest"
)

func newStores(t *testing.T) (repositories.InventoryRepository, repositories.LocationRepository) {
	ledger := NewInventoryRepository(services.NewTypeTaxonomy())
	return ledger, NewLocationRepository(ledger)
}

func TestLocationRepository_Contract(t *testing.T) {
	repotest.RunLocationSuite(t, newStores)
}

func TestLocationRepository_OrphansNeedLookup(t *testing.T) {
	repo := NewLocationRepository(nil)

	_, err := repo.FindOrphanedAllocations(context.Background())
	if entities.KindOf(err) != entities.ErrInvalidData {
		t.Errorf("Expected ErrInvalidData without a lookup, got %v", err)
	}
}

func TestLocationRepository_ReturnsCopies(t *testing.T) {
	repo := NewLocationRepository(nil)
	ctx := context.Background()

	allocation, err := repo.AddQuantity(ctx, "rec-1", "Shelf", 2)
	if err != nil {
		t.Fatalf("Failed to add quantity: %v", err)
	}
	allocation.Quantity = 500

	total, _ := repo.TotalQuantity(ctx, "rec-1")
	if total != 2 {
		t.Errorf("Expected stored total 2, got %v", total)
	}
}

func TestLocationRepository_FetchAllOrdering(t *testing.T) {
	repo := NewLocationRepository(nil)
	ctx := context.Background()

	for _, a := range []struct {
		id, location string
	}{
		{"rec-2", "Shelf"},
		{"rec-1", "Shelf"},
		{"rec-1", "Drawer"},
	} {
		if _, err := repo.AddQuantity(ctx, a.id, a.location, 1); err != nil {
			t.Fatalf("Failed to add quantity: %v", err)
		}
	}

	all, _ := repo.FetchAll(ctx)
	expected := []string{"rec-1/Drawer", "rec-1/Shelf", "rec-2/Shelf"}
	if len(all) != len(expected) {
		t.Fatalf("Expected %d allocations, got %d", len(expected), len(all))
	}
	for i, a := range all {
		if got := a.InventoryID + "/" + a.Location; got != expected[i] {
			t.Errorf("Position %d: expected %s, got %s", i, expected[i], got)
		}
	}
}
