package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/repositories"
	"github.com/vsinha/glassledger/pkg/domain/services"
	"github.com/vsinha/glassledger/pkg/infrastructure/repositories/repotest"
)

func newLedger(t *testing.T) repositories.InventoryRepository {
	return NewInventoryRepository(services.NewTypeTaxonomy())
}

func TestInventoryRepository_Contract(t *testing.T) {
	repotest.RunLedgerSuite(t, newLedger)
}

func TestInventoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewInventoryRepository(services.NewTypeTaxonomy())
	ctx := context.Background()

	input := &entities.InventoryRecord{
		ItemKey:    "glassA",
		Type:       "rod",
		Dimensions: entities.Dimensions{"diameter": 6},
		Quantity:   3,
	}
	created, err := repo.Create(ctx, input)
	if err != nil {
		t.Fatalf("Failed to create record: %v", err)
	}

	input.Dimensions["diameter"] = 99
	created.Dimensions["diameter"] = 42
	created.Quantity = 1000

	fetched, _ := repo.Fetch(ctx, created.ID)
	if fetched.Dimensions["diameter"] != 6 {
		t.Errorf("Expected stored dimensions unaffected by callers, got %v", fetched.Dimensions["diameter"])
	}
	if fetched.Quantity != 3 {
		t.Errorf("Expected stored quantity 3, got %v", fetched.Quantity)
	}
	if input.ID != "" {
		t.Errorf("Expected caller record untouched, got id %q", input.ID)
	}
}

func TestInventoryRepository_Clock(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start
	repo := NewInventoryRepository(services.NewTypeTaxonomy(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	created, err := repo.AddQuantity(ctx, "glassA", "frit", 100)
	if err != nil {
		t.Fatalf("Failed to add quantity: %v", err)
	}
	if !created.DateAdded.Equal(start) || !created.DateModified.Equal(start) {
		t.Errorf("Expected both dates at %v, got %v / %v", start, created.DateAdded, created.DateModified)
	}

	now = start.Add(time.Hour)
	updated, err := repo.AddQuantity(ctx, "glassA", "frit", 50)
	if err != nil {
		t.Fatalf("Failed to add quantity: %v", err)
	}
	if !updated.DateAdded.Equal(start) {
		t.Errorf("Expected DateAdded to stay %v, got %v", start, updated.DateAdded)
	}
	if !updated.DateModified.Equal(now) {
		t.Errorf("Expected DateModified %v, got %v", now, updated.DateModified)
	}
}

func TestInventoryRepository_UpdateRejectsItemKeyChange(t *testing.T) {
	repo := NewInventoryRepository(nil)
	ctx := context.Background()

	created, err := repo.AddQuantity(ctx, "glassA", "rod", 1)
	if err != nil {
		t.Fatalf("Failed to add quantity: %v", err)
	}

	moved := created.Clone()
	moved.ItemKey = "glassB"
	if _, err := repo.Update(ctx, moved); entities.KindOf(err) != entities.ErrInvalidData {
		t.Errorf("Expected ErrInvalidData, got %v", err)
	}
}

func TestInventoryRepository_NilValidatorAcceptsAnyType(t *testing.T) {
	repo := NewInventoryRepository(nil)

	record, err := repo.AddQuantity(context.Background(), "glassA", "Bead", 2)
	if err != nil {
		t.Fatalf("Expected no taxonomy checks without a validator, got %v", err)
	}
	if record.Type != "bead" {
		t.Errorf("Expected canonical type bead, got %s", record.Type)
	}
}

func TestInventoryRepository_NilValidatorRejectsNonFiniteDimensions(t *testing.T) {
	repo := NewInventoryRepository(nil)

	_, err := repo.Create(context.Background(), &entities.InventoryRecord{
		ItemKey:    "glassA",
		Type:       "bead",
		Dimensions: entities.Dimensions{"diameter": math.NaN()},
		Quantity:   1,
	})
	if !errors.Is(err, entities.ErrInvalidData) {
		t.Errorf("Expected ErrInvalidData, got %v", err)
	}
}

func TestInventoryRepository_LoadRecords(t *testing.T) {
	repo := NewInventoryRepository(services.NewTypeTaxonomy())
	ctx := context.Background()

	records := []*entities.InventoryRecord{
		{ID: "r1", ItemKey: "glassA", Type: "rod", Quantity: 1},
		{ID: "r2", ItemKey: "glassA", Type: "rod", Quantity: 2},
	}
	if err := repo.LoadRecords(ctx, records); err != nil {
		t.Fatalf("Failed to load records: %v", err)
	}

	first, _ := repo.FindFirst(ctx, "glassA", "rod")
	if first == nil || first.ID != "r1" {
		t.Errorf("Expected load order to define first match r1, got %+v", first)
	}

	if err := repo.LoadRecords(ctx, records[:1]); entities.KindOf(err) != entities.ErrDuplicateID {
		t.Errorf("Expected ErrDuplicateID on reload, got %v", err)
	}
}
