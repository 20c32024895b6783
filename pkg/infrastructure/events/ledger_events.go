package events

import (
	"github.com/vsinha/glassledger/pkg/domain/entities"
)

const (
	QuantityChangedEvent   = "inventory.quantity_changed"
	RecordDeletedEvent     = "inventory.record_deleted"
	AllocationChangedEvent = "location.allocation_changed"
	QuantityMovedEvent     = "location.quantity_moved"
)

// QuantityChanged is recorded after a ledger delta. Record is nil when the
// delta deleted the record.
type QuantityChanged struct {
	ItemKey  string                    `json:"item_key"`
	Type     string                    `json:"type"`
	Delta    entities.Quantity         `json:"delta"`
	Record   *entities.InventoryRecord `json:"record,omitempty"`
	Location string                    `json:"location,omitempty"`
}

type RecordDeleted struct {
	Record             entities.InventoryRecord `json:"record"`
	AllocationsRemoved int                      `json:"allocations_removed"`
}

type AllocationChanged struct {
	InventoryID string            `json:"inventory_id"`
	Location    string            `json:"location"`
	Delta       entities.Quantity `json:"delta"`
	Remaining   entities.Quantity `json:"remaining"`
}

type QuantityMoved struct {
	InventoryID string            `json:"inventory_id"`
	From        string            `json:"from"`
	To          string            `json:"to"`
	Quantity    entities.Quantity `json:"quantity"`
}

// RecordStream names the event stream of one inventory record
func RecordStream(recordID string) string {
	return "inventory-" + recordID
}

func NewQuantityChangedEvent(change QuantityChanged) Event {
	streamID := "item-" + change.ItemKey
	if change.Record != nil {
		streamID = RecordStream(change.Record.ID)
	}
	return NewEvent(QuantityChangedEvent, streamID, change)
}

func NewRecordDeletedEvent(deleted RecordDeleted) Event {
	return NewEvent(RecordDeletedEvent, RecordStream(deleted.Record.ID), deleted)
}

func NewAllocationChangedEvent(change AllocationChanged) Event {
	return NewEvent(AllocationChangedEvent, RecordStream(change.InventoryID), change)
}

func NewQuantityMovedEvent(move QuantityMoved) Event {
	return NewEvent(QuantityMovedEvent, RecordStream(move.InventoryID), move)
}
