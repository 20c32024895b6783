package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/services"
	"github.com/vsinha/glassledger/pkg/infrastructure/logger"
	"github.com/vsinha/glassledger/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/glassledger/pkg/infrastructure/testing"
)

func TestConsistencyChecker_AuditItem(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewInventoryRepository(services.NewTypeTaxonomy())
	allocator := memory.NewLocationRepository(ledger)
	checker := NewConsistencyChecker(ledger, allocator, logger.NewNop())

	record, err := ledger.AddQuantity(ctx, "glassA", "rod", 10)
	if err != nil {
		t.Fatalf("Failed to add quantity: %v", err)
	}
	if err := allocator.SetLocations(ctx, record.ID, []entities.LocationQuantity{
		{Location: "A", Quantity: 5},
		{Location: "B", Quantity: 2},
	}); err != nil {
		t.Fatalf("Failed to set locations: %v", err)
	}

	discrepancies, err := checker.AuditItem(ctx, "glassA")
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if len(discrepancies) != 1 {
		t.Fatalf("Expected 1 discrepancy, got %d", len(discrepancies))
	}
	d := discrepancies[0]
	if d.RecordID != record.ID || d.Expected != 10 || d.Actual != 7 {
		t.Errorf("Expected {%s 10 7}, got %+v", record.ID, d)
	}
	if d.Difference() != -3 {
		t.Errorf("Expected difference -3, got %v", d.Difference())
	}

	if _, err := allocator.AddQuantity(ctx, record.ID, "C", 3); err != nil {
		t.Fatalf("Failed to add allocation: %v", err)
	}
	discrepancies, err = checker.AuditItem(ctx, "glassA")
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if len(discrepancies) != 0 {
		t.Errorf("Expected no discrepancies, got %+v", discrepancies)
	}
}

func TestConsistencyChecker_SkipsUntrackedRecords(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewInventoryRepository(nil)
	allocator := memory.NewLocationRepository(ledger)
	checker := NewConsistencyChecker(ledger, allocator, nil)

	if _, err := ledger.AddQuantity(ctx, "glassA", "frit", 500); err != nil {
		t.Fatalf("Failed to add quantity: %v", err)
	}

	discrepancies, err := checker.AuditAll(ctx)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if len(discrepancies) != 0 {
		t.Errorf("Expected records without allocations to be skipped, got %+v", discrepancies)
	}
}

func TestConsistencyChecker_Tolerance(t *testing.T) {
	tests := []struct {
		name      string
		tolerance entities.Quantity
		allocated entities.Quantity
		expectHit bool
	}{
		{"inside_default", entities.QuantityTolerance, 9.9995, false},
		{"outside_default", entities.QuantityTolerance, 9.99, true},
		{"loose", 0.5, 9.6, false},
		{"exact", 0, 9.9999, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ledger := memory.NewInventoryRepository(nil)
			allocator := memory.NewLocationRepository(ledger)
			checker := NewConsistencyCheckerWithConfig(ledger, allocator, nil, CheckerConfig{Tolerance: tt.tolerance})

			record, _ := ledger.AddQuantity(ctx, "glassA", "rod", 10)
			if _, err := allocator.AddQuantity(ctx, record.ID, "A", tt.allocated); err != nil {
				t.Fatalf("Failed to add allocation: %v", err)
			}

			discrepancies, err := checker.AuditAll(ctx)
			if err != nil {
				t.Fatalf("Audit failed: %v", err)
			}
			if got := len(discrepancies) == 1; got != tt.expectHit {
				t.Errorf("Expected discrepancy=%v, got %+v", tt.expectHit, discrepancies)
			}
		})
	}
}

func TestConsistencyChecker_Report(t *testing.T) {
	ctx := context.Background()
	ledger, allocator := testhelpers.BuildStudioTestData()
	checker := NewConsistencyChecker(ledger, allocator, logger.NewNop())
	generatedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	checker.now = func() time.Time { return generatedAt }

	report, err := checker.Report(ctx, "")
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	if report.RecordsChecked != 4 {
		t.Errorf("Expected 4 records checked, got %d", report.RecordsChecked)
	}
	if report.TrackedRecords != 3 {
		t.Errorf("Expected 3 tracked records, got %d", report.TrackedRecords)
	}
	if len(report.Discrepancies) != 1 || report.Discrepancies[0].RecordID != testhelpers.StudioStringerID {
		t.Errorf("Expected the stringer discrepancy, got %+v", report.Discrepancies)
	}
	if len(report.Orphans) != 1 || report.Orphans[0].InventoryID != testhelpers.StudioOrphanID {
		t.Errorf("Expected one orphan of %s, got %+v", testhelpers.StudioOrphanID, report.Orphans)
	}
	if report.OrphanedQuantity() != 3 {
		t.Errorf("Expected 3 orphaned units, got %v", report.OrphanedQuantity())
	}
	if report.Consistent() {
		t.Error("Expected report to be inconsistent")
	}
	if !report.GeneratedAt.Equal(generatedAt) {
		t.Errorf("Expected GeneratedAt %v, got %v", generatedAt, report.GeneratedAt)
	}

	itemReport, err := checker.Report(ctx, "effetre-591")
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if itemReport.RecordsChecked != 2 || len(itemReport.Orphans) != 0 {
		t.Errorf("Expected item report over 2 records without orphans, got %+v", itemReport)
	}
}

type failingAllocator struct {
	*memory.LocationRepository
}

func (f failingAllocator) FetchForInventory(ctx context.Context, inventoryID string) ([]*entities.LocationAllocation, error) {
	return nil, &entities.LedgerError{Op: "fetch for inventory", Kind: entities.ErrTransient}
}

func TestConsistencyChecker_PropagatesErrors(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewInventoryRepository(nil)
	checker := NewConsistencyChecker(ledger, failingAllocator{memory.NewLocationRepository(ledger)}, nil)

	for _, key := range []string{"a", "b", "c"} {
		if _, err := ledger.AddQuantity(ctx, key, "rod", 1); err != nil {
			t.Fatalf("Failed to add quantity: %v", err)
		}
	}

	_, err := checker.AuditAll(ctx)
	if !errors.Is(err, entities.ErrTransient) {
		t.Errorf("Expected ErrTransient, got %v", err)
	}
}
