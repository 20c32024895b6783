package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/vsinha/glassledger/pkg/domain/entities"
)

func TestInMemoryEventStore_Versions(t *testing.T) {
	store := NewInMemoryEventStore(nil)

	record := &entities.InventoryRecord{ID: "rec-1", ItemKey: "glassA", Type: "rod"}
	for i := 0; i < 3; i++ {
		event := NewQuantityChangedEvent(QuantityChanged{ItemKey: "glassA", Type: "rod", Delta: 1, Record: record})
		if err := store.AppendEvent(event.StreamID(), event); err != nil {
			t.Fatalf("Failed to append event: %v", err)
		}
	}
	moved := NewQuantityMovedEvent(QuantityMoved{InventoryID: "rec-2", From: "A", To: "B", Quantity: 1})
	if err := store.AppendEvent(moved.StreamID(), moved); err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}

	stream, err := store.ReadEvents(RecordStream("rec-1"), 2)
	if err != nil {
		t.Fatalf("Failed to read events: %v", err)
	}
	if len(stream) != 2 {
		t.Fatalf("Expected 2 events from version 2, got %d", len(stream))
	}
	if stream[0].Version() != 2 || stream[1].Version() != 3 {
		t.Errorf("Expected versions 2 and 3, got %d and %d", stream[0].Version(), stream[1].Version())
	}
	if stream[0].ID() == "" || stream[0].ID() == stream[1].ID() {
		t.Error("Expected unique event ids")
	}

	all, _ := store.ReadAllEvents(3)
	if len(all) != 1 || all[0].Type() != QuantityMovedEvent {
		t.Errorf("Expected the move event at position 3, got %+v", all)
	}

	empty, _ := store.ReadEvents("unknown", 1)
	if len(empty) != 0 {
		t.Errorf("Expected no events for unknown stream, got %d", len(empty))
	}
}

func TestInMemoryEventStore_Subscribers(t *testing.T) {
	store := NewInMemoryEventStore(nil)

	var mu sync.Mutex
	var seen []string
	handler := &HandlerFunc{
		Types: []string{RecordDeletedEvent},
		Fn: func(e Event) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, e.StreamID())
			return nil
		},
	}
	failing := &HandlerFunc{
		Types: []string{RecordDeletedEvent},
		Fn:    func(Event) error { return errors.New("handler down") },
	}

	if err := store.Subscribe([]string{RecordDeletedEvent}, handler); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if err := store.Subscribe([]string{RecordDeletedEvent}, failing); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	deleted := NewRecordDeletedEvent(RecordDeleted{Record: entities.InventoryRecord{ID: "rec-1"}})
	_ = store.AppendEvent(deleted.StreamID(), deleted)
	changed := NewAllocationChangedEvent(AllocationChanged{InventoryID: "rec-1", Location: "A", Delta: 1, Remaining: 1})
	_ = store.AppendEvent(changed.StreamID(), changed)
	store.Wait()

	if err := store.Unsubscribe(handler); err != nil {
		t.Fatalf("Failed to unsubscribe: %v", err)
	}
	again := NewRecordDeletedEvent(RecordDeleted{Record: entities.InventoryRecord{ID: "rec-2"}})
	_ = store.AppendEvent(again.StreamID(), again)
	store.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != RecordStream("rec-1") {
		t.Errorf("Expected exactly one delivery for rec-1, got %v", seen)
	}
}
