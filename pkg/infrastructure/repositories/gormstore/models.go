package gormstore

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/vsinha/glassledger/pkg/domain/entities"
)

// inventoryRow is the persisted form of an InventoryRecord. Seq records
// creation order, which decides the "first match" of the delta operations.
type inventoryRow struct {
	Seq          uint64         `gorm:"column:seq;primaryKey;autoIncrement"`
	ID           string         `gorm:"column:id;size:64;not null;uniqueIndex"`
	ItemKey      string         `gorm:"column:item_key;not null;index:idx_inventory_item_type,priority:1"`
	Type         string         `gorm:"column:type;not null;index:idx_inventory_item_type,priority:2"`
	Subtype      string         `gorm:"column:subtype"`
	Subsubtype   string         `gorm:"column:subsubtype"`
	Dimensions   datatypes.JSON `gorm:"column:dimensions"`
	Quantity     float64        `gorm:"column:quantity;not null"`
	DateAdded    time.Time      `gorm:"column:date_added;not null"`
	DateModified time.Time      `gorm:"column:date_modified;not null"`
}

func (inventoryRow) TableName() string { return "inventory_records" }

// allocationRow is the persisted form of a LocationAllocation
type allocationRow struct {
	ID          string  `gorm:"column:id;size:64;primaryKey"`
	InventoryID string  `gorm:"column:inventory_id;not null;uniqueIndex:idx_allocation_inventory_location,priority:1"`
	Location    string  `gorm:"column:location;not null;uniqueIndex:idx_allocation_inventory_location,priority:2"`
	Quantity    float64 `gorm:"column:quantity;not null"`
}

func (allocationRow) TableName() string { return "location_allocations" }

func newInventoryRow(record *entities.InventoryRecord) (inventoryRow, error) {
	dimensions, err := encodeDimensions(record.Dimensions)
	if err != nil {
		return inventoryRow{}, err
	}
	return inventoryRow{
		ID:           record.ID,
		ItemKey:      record.ItemKey,
		Type:         record.Type,
		Subtype:      record.Subtype,
		Subsubtype:   record.Subsubtype,
		Dimensions:   dimensions,
		Quantity:     float64(record.Quantity),
		DateAdded:    record.DateAdded,
		DateModified: record.DateModified,
	}, nil
}

func (row inventoryRow) toRecord() (*entities.InventoryRecord, error) {
	dimensions, err := decodeDimensions(row.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", row.ID, err)
	}
	return &entities.InventoryRecord{
		ID:           row.ID,
		ItemKey:      row.ItemKey,
		Type:         row.Type,
		Subtype:      row.Subtype,
		Subsubtype:   row.Subsubtype,
		Dimensions:   dimensions,
		Quantity:     entities.Quantity(row.Quantity),
		DateAdded:    row.DateAdded,
		DateModified: row.DateModified,
	}, nil
}

func toRecords(rows []inventoryRow) ([]*entities.InventoryRecord, error) {
	records := make([]*entities.InventoryRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (row allocationRow) toAllocation() *entities.LocationAllocation {
	return &entities.LocationAllocation{
		ID:          row.ID,
		InventoryID: row.InventoryID,
		Location:    row.Location,
		Quantity:    entities.Quantity(row.Quantity),
	}
}

func toAllocations(rows []allocationRow) []*entities.LocationAllocation {
	allocations := make([]*entities.LocationAllocation, 0, len(rows))
	for _, row := range rows {
		allocations = append(allocations, row.toAllocation())
	}
	return allocations
}

// encodeDimensions stores absent dimensions as SQL NULL. encoding/json
// writes the shortest representation that parses back to the same float64.
func encodeDimensions(d entities.Dimensions) (datatypes.JSON, error) {
	if len(d) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(map[string]float64(d))
	if err != nil {
		return nil, &entities.LedgerError{Op: "encode dimensions", Kind: entities.ErrInvalidData, Err: err}
	}
	return datatypes.JSON(raw), nil
}

func decodeDimensions(raw datatypes.JSON) (entities.Dimensions, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var d map[string]float64
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to decode dimensions: %w", err)
	}
	return entities.NormalizeDimensions(d), nil
}
