package csv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/services"
	"github.com/vsinha/glassledger/pkg/infrastructure/repositories/memory"
)

const inventoryCSV = `item_key,type,subtype,subsubtype,dimensions,quantity
effetre-591,rod,standard,,diameter=6;length=33,10
cim-511,frit,coarse,,weight=250,2.5
bullseye-1101,sheet,iridescent,gold,thickness=3,4
scrap-bin,scrap,,,,1
`

const locationsCSV = `item_key,type,location,quantity
effetre-591,rod,Shelf A,6
effetre-591,rod,Shelf B,4
bullseye-1101,SHEET,Sheet Rack,4
`

func TestLoader_ReadInventory(t *testing.T) {
	records, err := NewLoader().ReadInventory(strings.NewReader(inventoryCSV))
	if err != nil {
		t.Fatalf("Failed to read inventory: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(records))
	}

	rod := records[0]
	if rod.ItemKey != "effetre-591" || rod.Subtype != "standard" || rod.Quantity != 10 {
		t.Errorf("Unexpected rod record: %+v", rod)
	}
	if rod.Dimensions["diameter"] != 6 || rod.Dimensions["length"] != 33 {
		t.Errorf("Expected parsed dimensions, got %v", rod.Dimensions)
	}
	if records[1].Quantity != 2.5 {
		t.Errorf("Expected fractional quantity 2.5, got %v", records[1].Quantity)
	}
	if records[3].Dimensions != nil {
		t.Errorf("Expected empty dimensions to be nil, got %v", records[3].Dimensions)
	}
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"bad_header", "item,type\n", "header mismatch"},
		{"empty", "", "must have a header"},
		{"bad_quantity", "item_key,type,subtype,subsubtype,dimensions,quantity\na,rod,,,,lots\n", "row 2: invalid quantity"},
		{"bad_dimension", "item_key,type,subtype,subsubtype,dimensions,quantity\na,rod,,,diameter,1\n", "row 2: invalid dimension"},
		{"nan_dimension", "item_key,type,subtype,subsubtype,dimensions,quantity\na,rod,,,diameter=NaN,1\n", "row 2: invalid value for dimension diameter"},
		{"infinite_dimension", "item_key,type,subtype,subsubtype,dimensions,quantity\na,rod,,,length=Inf,1\n", "row 2: invalid value for dimension length"},
		{"wrong_columns", "item_key,type,subtype,subsubtype,dimensions,quantity\na,rod\n", "failed to read inventory CSV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().ReadInventory(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Expected error, got none")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestParseDimensions_RoundTrip(t *testing.T) {
	dimensions, err := ParseDimensions(" length = 33 ; diameter=6.5;")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if got := FormatDimensions(dimensions); got != "diameter=6.5;length=33" {
		t.Errorf("Expected sorted canonical form, got %q", got)
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inventoryPath := filepath.Join(dir, "inventory.csv")
	locationsPath := filepath.Join(dir, "locations.csv")
	if err := os.WriteFile(inventoryPath, []byte(inventoryCSV), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	if err := os.WriteFile(locationsPath, []byte(locationsCSV), 0o600); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	loader := NewLoader()
	records, err := loader.LoadInventory(inventoryPath)
	if err != nil {
		t.Fatalf("Failed to load inventory: %v", err)
	}
	locations, err := loader.LoadLocations(locationsPath)
	if err != nil {
		t.Fatalf("Failed to load locations: %v", err)
	}

	ledger := memory.NewInventoryRepository(services.NewTypeTaxonomy())
	allocator := memory.NewLocationRepository(ledger)
	if err := Import(ctx, ledger, allocator, records, locations); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	rod, _ := ledger.FindFirst(ctx, "effetre-591", "rod")
	if ok, _ := allocator.ValidateQuantities(ctx, rod.ID, rod.Quantity); !ok {
		t.Error("Expected rod allocations to add up to 10")
	}
	sheet, _ := ledger.FindFirst(ctx, "bullseye-1101", "sheet")
	if total, _ := allocator.TotalQuantity(ctx, sheet.ID); total != 4 {
		t.Errorf("Expected 4 sheets on the rack, got %v", total)
	}
}

func TestImport_UnknownRecord(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewInventoryRepository(nil)
	allocator := memory.NewLocationRepository(ledger)

	rows := []LocationRow{{Line: 7, ItemKey: "ghost", Type: "rod", Location: "Shelf", Quantity: 1}}
	err := Import(ctx, ledger, allocator, nil, rows)
	if !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "row 7") {
		t.Errorf("Expected row number in error, got %q", err.Error())
	}
}

func TestImport_RejectsInvalidRecord(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewInventoryRepository(services.NewTypeTaxonomy())
	allocator := memory.NewLocationRepository(ledger)

	records := []*entities.InventoryRecord{{ItemKey: "a", Type: "marble", Quantity: 1}}
	if err := Import(ctx, ledger, allocator, records, nil); !errors.Is(err, entities.ErrInvalidData) {
		t.Errorf("Expected ErrInvalidData, got %v", err)
	}
}
