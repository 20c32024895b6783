package main

import (
	"context"
	"fmt"

	"github.com/vsinha/glassledger/pkg/application/services"
	"github.com/vsinha/glassledger/pkg/domain/entities"
	domainservices "github.com/vsinha/glassledger/pkg/domain/services"
	"github.com/vsinha/glassledger/pkg/infrastructure/events"
	"github.com/vsinha/glassledger/pkg/infrastructure/logger"
	"github.com/vsinha/glassledger/pkg/infrastructure/repositories/memory"
)

func main() {
	ctx := context.Background()
	log, err := logger.New("dev")
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		return
	}
	defer log.Sync()

	// Create repositories
	taxonomy := domainservices.NewTypeTaxonomy()
	ledger := memory.NewInventoryRepository(taxonomy)
	allocator := memory.NewLocationRepository(ledger)

	eventStore := events.NewInMemoryEventStore(log)
	watched := []string{events.QuantityChangedEvent, events.AllocationChangedEvent, events.RecordDeletedEvent}
	err = eventStore.Subscribe(watched, &events.HandlerFunc{
		Types: watched,
		Fn: func(event events.Event) error {
			fmt.Printf("  event %-28s stream=%s\n", event.Type(), event.StreamID())
			return nil
		},
	})
	if err != nil {
		fmt.Printf("failed to subscribe: %v\n", err)
		return
	}

	inventory := services.NewInventoryService(ledger, allocator, taxonomy, eventStore, log)
	checker := services.NewConsistencyChecker(ledger, allocator, log)

	fmt.Println("Restocking effetre-591 rods...")
	if _, err := inventory.Restock(ctx, "effetre-591", "rod", 4, "Shelf A"); err != nil {
		fmt.Printf("restock failed: %v\n", err)
		return
	}
	record, err := inventory.Restock(ctx, "effetre-591", "rod", 6, "Shelf B")
	if err != nil {
		fmt.Printf("restock failed: %v\n", err)
		return
	}
	eventStore.Wait()
	printRecord(ctx, inventory, allocator, record)

	fmt.Println("Using up Shelf A...")
	record, err = inventory.Consume(ctx, "effetre-591", "rod", 4, "Shelf A")
	if err != nil {
		fmt.Printf("consume failed: %v\n", err)
		return
	}
	eventStore.Wait()
	printRecord(ctx, inventory, allocator, record)

	fmt.Println("Moving two rods to the torch bench...")
	if err := inventory.Relocate(ctx, record.ID, "Shelf B", "Torch Bench", 2); err != nil {
		fmt.Printf("relocate failed: %v\n", err)
		return
	}
	printRecord(ctx, inventory, allocator, record)

	report, err := checker.Report(ctx, "")
	if err != nil {
		fmt.Printf("audit failed: %v\n", err)
		return
	}
	fmt.Printf("Audit: %d records, %d discrepancies, %d orphans\n",
		report.RecordsChecked, len(report.Discrepancies), len(report.Orphans))
}

func printRecord(ctx context.Context, inventory *services.InventoryService, allocator *memory.LocationRepository, record *entities.InventoryRecord) {
	label, err := inventory.DescribeRecord(ctx, record.ID)
	if err != nil {
		fmt.Printf("  describe failed: %v\n", err)
		return
	}
	current, _ := allocator.TotalQuantity(ctx, record.ID)
	fmt.Printf("  %s: allocated %v\n", label, current)

	allocations, _ := allocator.FetchForInventory(ctx, record.ID)
	for _, allocation := range allocations {
		fmt.Printf("    %-12s %v\n", allocation.Location, allocation.Quantity)
	}
	fmt.Println()
}
