package services

import (
	"context"
	"fmt"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/repositories"
	"github.com/vsinha/glassledger/pkg/domain/services"
	"github.com/vsinha/glassledger/pkg/infrastructure/events"
	"github.com/vsinha/glassledger/pkg/infrastructure/logger"
)

// InventoryService applies stock changes to the ledger and, when a location
// is named, to the allocator, recording an event for each change.
//
// The ledger and allocator are updated one after the other, not
// atomically; ConsistencyChecker finds anything left unbalanced.
type InventoryService struct {
	ledger    repositories.InventoryRepository
	allocator repositories.LocationRepository
	taxonomy  *services.TypeTaxonomy
	events    events.EventStore
	log       *logger.Logger
}

// NewInventoryService creates a new inventory service. eventStore may be nil.
func NewInventoryService(
	ledger repositories.InventoryRepository,
	allocator repositories.LocationRepository,
	taxonomy *services.TypeTaxonomy,
	eventStore events.EventStore,
	log *logger.Logger,
) *InventoryService {
	if log == nil {
		log = logger.NewNop()
	}
	return &InventoryService{
		ledger:    ledger,
		allocator: allocator,
		taxonomy:  taxonomy,
		events:    eventStore,
		log:       log.With("service", "InventoryService"),
	}
}

// Restock adds quantity to the first record of (itemKey, type), creating it
// if needed, and files the same quantity at location when one is given.
func (s *InventoryService) Restock(ctx context.Context, itemKey, typeName string, quantity entities.Quantity, location string) (*entities.InventoryRecord, error) {
	if err := entities.CheckPositiveDelta("restock", quantity); err != nil {
		return nil, err
	}
	if location != "" {
		if _, err := entities.CheckLocation("restock", location); err != nil {
			return nil, err
		}
	}

	record, err := s.ledger.AddQuantity(ctx, itemKey, typeName, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to restock %s/%s: %w", itemKey, typeName, err)
	}
	s.publish(events.NewQuantityChangedEvent(events.QuantityChanged{
		ItemKey:  itemKey,
		Type:     record.Type,
		Delta:    quantity,
		Record:   record,
		Location: location,
	}))

	if location != "" {
		allocation, err := s.allocator.AddQuantity(ctx, record.ID, location, quantity)
		if err != nil {
			return record, fmt.Errorf("restocked %s but failed to file it at %s: %w", record.ID, location, err)
		}
		s.publish(events.NewAllocationChangedEvent(events.AllocationChanged{
			InventoryID: record.ID,
			Location:    allocation.Location,
			Delta:       quantity,
			Remaining:   allocation.Quantity,
		}))
	}

	s.log.Info("Restocked",
		"item_key", itemKey,
		"type", record.Type,
		"record_id", record.ID,
		"quantity", float64(quantity),
		"total", float64(record.Quantity),
		"location", location,
	)
	return record, nil
}

// Consume removes quantity from the first record of (itemKey, type) and,
// when location is given, from that location. A record that runs out is
// deleted together with its remaining allocations, and nil is returned.
func (s *InventoryService) Consume(ctx context.Context, itemKey, typeName string, quantity entities.Quantity, location string) (*entities.InventoryRecord, error) {
	const op = "consume"
	if err := entities.CheckPositiveDelta(op, quantity); err != nil {
		return nil, err
	}

	current, err := s.ledger.FindFirst(ctx, itemKey, typeName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s/%s: %w", itemKey, typeName, err)
	}
	if current == nil {
		return nil, &entities.LedgerError{Op: op, Kind: entities.ErrNotFound, ItemKey: itemKey, Type: entities.CanonicalTypeName(typeName)}
	}

	if location != "" {
		location, err = s.requireAllocation(ctx, op, current.ID, location)
		if err != nil {
			return nil, err
		}
	}

	// By id: the allocations below belong to current, which may no longer be
	// the first match.
	record, err := s.ledger.SubtractFromRecord(ctx, current.ID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s/%s: %w", itemKey, typeName, err)
	}
	s.publish(events.NewQuantityChangedEvent(events.QuantityChanged{
		ItemKey:  itemKey,
		Type:     current.Type,
		Delta:    -quantity,
		Record:   record,
		Location: location,
	}))

	if location != "" {
		allocation, err := s.allocator.SubtractQuantity(ctx, current.ID, location, quantity)
		if err != nil {
			return record, fmt.Errorf("consumed from %s but failed to update %s: %w", current.ID, location, err)
		}
		remaining := entities.Quantity(0)
		if allocation != nil {
			remaining = allocation.Quantity
		}
		s.publish(events.NewAllocationChangedEvent(events.AllocationChanged{
			InventoryID: current.ID,
			Location:    location,
			Delta:       -quantity,
			Remaining:   remaining,
		}))
	}

	if record == nil {
		removed, err := s.dropAllocations(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		s.publish(events.NewRecordDeletedEvent(events.RecordDeleted{Record: *current, AllocationsRemoved: removed}))
		s.log.Info("Consumed last stock", "item_key", itemKey, "type", current.Type, "record_id", current.ID)
		return nil, nil
	}

	s.log.Info("Consumed",
		"item_key", itemKey,
		"type", record.Type,
		"record_id", record.ID,
		"quantity", float64(quantity),
		"total", float64(record.Quantity),
		"location", location,
	)
	return record, nil
}

// Relocate moves quantity of a record between two locations
func (s *InventoryService) Relocate(ctx context.Context, recordID, from, to string, quantity entities.Quantity) error {
	if err := s.allocator.MoveQuantity(ctx, recordID, from, to, quantity); err != nil {
		return fmt.Errorf("failed to move %s from %s to %s: %w", recordID, from, to, err)
	}
	s.publish(events.NewQuantityMovedEvent(events.QuantityMoved{
		InventoryID: recordID,
		From:        entities.NormalizeLocation(from),
		To:          entities.NormalizeLocation(to),
		Quantity:    quantity,
	}))
	s.log.Info("Relocated", "record_id", recordID, "from", from, "to", to, "quantity", float64(quantity))
	return nil
}

// AssignLocations replaces the allocation set of a record. Entries with no
// positive quantity are dropped before they reach the allocator.
func (s *InventoryService) AssignLocations(ctx context.Context, recordID string, pairs []entities.LocationQuantity) error {
	record, err := s.ledger.Fetch(ctx, recordID)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", recordID, err)
	}
	if record == nil {
		return &entities.LedgerError{Op: "assign locations", Kind: entities.ErrNotFound, ID: recordID}
	}

	kept := make([]entities.LocationQuantity, 0, len(pairs))
	for _, pair := range pairs {
		if pair.Quantity > 0 {
			kept = append(kept, pair)
		}
	}
	if err := s.allocator.SetLocations(ctx, recordID, kept); err != nil {
		return fmt.Errorf("failed to assign locations for %s: %w", recordID, err)
	}

	for _, pair := range kept {
		s.publish(events.NewAllocationChangedEvent(events.AllocationChanged{
			InventoryID: recordID,
			Location:    entities.NormalizeLocation(pair.Location),
			Delta:       pair.Quantity,
			Remaining:   pair.Quantity,
		}))
	}
	if ok, err := s.allocator.ValidateQuantities(ctx, recordID, record.Quantity); err == nil && !ok {
		s.log.Warn("Assigned locations do not add up to the record", "record_id", recordID, "quantity", float64(record.Quantity))
	}
	return nil
}

// DeleteRecord removes a record and, explicitly, its allocations
func (s *InventoryService) DeleteRecord(ctx context.Context, recordID string) error {
	record, err := s.ledger.Fetch(ctx, recordID)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", recordID, err)
	}
	if record == nil {
		return &entities.LedgerError{Op: "delete record", Kind: entities.ErrNotFound, ID: recordID}
	}

	removed, err := s.dropAllocations(ctx, recordID)
	if err != nil {
		return err
	}
	if err := s.ledger.Delete(ctx, recordID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", recordID, err)
	}

	s.publish(events.NewRecordDeletedEvent(events.RecordDeleted{Record: *record, AllocationsRemoved: removed}))
	s.log.Info("Deleted record", "record_id", recordID, "item_key", record.ItemKey, "allocations_removed", removed)
	return nil
}

// DescribeRecord returns the one-line label of a record, e.g. "Rod (Standard, 6 mm)"
func (s *InventoryService) DescribeRecord(ctx context.Context, recordID string) (string, error) {
	record, err := s.ledger.Fetch(ctx, recordID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", recordID, err)
	}
	if record == nil {
		return "", &entities.LedgerError{Op: "describe record", Kind: entities.ErrNotFound, ID: recordID}
	}
	return s.taxonomy.ShortDescription(record.Type, record.Subtype, record.Dimensions), nil
}

// requireAllocation returns the normalized location once it is known to
// hold stock of recordID
func (s *InventoryService) requireAllocation(ctx context.Context, op, recordID, location string) (string, error) {
	location, err := entities.CheckLocation(op, location)
	if err != nil {
		return "", err
	}
	allocations, err := s.allocator.FetchForInventory(ctx, recordID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch allocations for %s: %w", recordID, err)
	}
	for _, allocation := range allocations {
		if allocation.Location == location {
			return location, nil
		}
	}
	return "", &entities.LedgerError{Op: op, Kind: entities.ErrNotFound, ID: recordID, Location: location}
}

func (s *InventoryService) dropAllocations(ctx context.Context, recordID string) (int, error) {
	allocations, err := s.allocator.FetchForInventory(ctx, recordID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch allocations for %s: %w", recordID, err)
	}
	if len(allocations) == 0 {
		return 0, nil
	}
	if err := s.allocator.DeleteForInventory(ctx, recordID); err != nil {
		return 0, fmt.Errorf("failed to delete allocations for %s: %w", recordID, err)
	}
	return len(allocations), nil
}

func (s *InventoryService) publish(event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.AppendEvent(event.StreamID(), event); err != nil {
		s.log.Warn("Failed to record event", "event_type", event.Type(), "error", err)
	}
}
