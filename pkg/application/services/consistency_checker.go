package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vsinha/glassledger/pkg/application/dto"
	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/repositories"
	"github.com/vsinha/glassledger/pkg/infrastructure/logger"
)

// CheckerConfig tunes a ConsistencyChecker
type CheckerConfig struct {
	// Tolerance is the largest allocation/record difference still treated as equal
	Tolerance entities.Quantity
	// Concurrency bounds the allocation lookups of a full sweep (0 = 8)
	Concurrency int
}

// ConsistencyChecker compares allocation totals with record quantities. It
// only reads; fixing what it reports is left to the caller.
type ConsistencyChecker struct {
	ledger    repositories.InventoryRepository
	allocator repositories.LocationRepository
	config    CheckerConfig
	log       *logger.Logger
	now       func() time.Time
}

// NewConsistencyChecker creates a checker with the default tolerance
func NewConsistencyChecker(ledger repositories.InventoryRepository, allocator repositories.LocationRepository, log *logger.Logger) *ConsistencyChecker {
	return NewConsistencyCheckerWithConfig(ledger, allocator, log, CheckerConfig{
		Tolerance: entities.QuantityTolerance,
	})
}

// NewConsistencyCheckerWithConfig creates a checker with custom configuration
func NewConsistencyCheckerWithConfig(ledger repositories.InventoryRepository, allocator repositories.LocationRepository, log *logger.Logger, config CheckerConfig) *ConsistencyChecker {
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ConsistencyChecker{
		ledger:    ledger,
		allocator: allocator,
		config:    config,
		log:       log.With("service", "ConsistencyChecker"),
		now:       time.Now,
	}
}

// AuditItem checks every record of an item that has location allocations
func (c *ConsistencyChecker) AuditItem(ctx context.Context, itemKey string) ([]entities.Discrepancy, error) {
	records, err := c.ledger.FetchForItem(ctx, itemKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records for %s: %w", itemKey, err)
	}
	discrepancies, _, err := c.audit(ctx, records)
	return discrepancies, err
}

// AuditAll checks every record in the ledger. It is a full sweep and meant
// for periodic or manual runs.
func (c *ConsistencyChecker) AuditAll(ctx context.Context) ([]entities.Discrepancy, error) {
	records, err := c.ledger.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	discrepancies, _, err := c.audit(ctx, records)
	return discrepancies, err
}

// Report audits one item, or everything when itemKey is empty, and also
// collects orphaned allocations on a full sweep.
func (c *ConsistencyChecker) Report(ctx context.Context, itemKey string) (*dto.AuditReport, error) {
	var (
		records []*entities.InventoryRecord
		err     error
	)
	if itemKey == "" {
		records, err = c.ledger.FetchAll(ctx)
	} else {
		records, err = c.ledger.FetchForItem(ctx, itemKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	discrepancies, tracked, err := c.audit(ctx, records)
	if err != nil {
		return nil, err
	}

	report := &dto.AuditReport{
		GeneratedAt:    c.now(),
		ItemKey:        itemKey,
		RecordsChecked: len(records),
		TrackedRecords: tracked,
		Discrepancies:  discrepancies,
	}
	if itemKey == "" {
		orphans, err := c.allocator.FindOrphanedAllocations(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to find orphaned allocations: %w", err)
		}
		report.Orphans = orphans
	}

	c.log.Info("Audit finished",
		"item_key", itemKey,
		"records", report.RecordsChecked,
		"tracked", report.TrackedRecords,
		"discrepancies", len(report.Discrepancies),
		"orphans", len(report.Orphans),
	)
	return report, nil
}

// audit returns the discrepancies in record order plus the number of
// records that had allocations
func (c *ConsistencyChecker) audit(ctx context.Context, records []*entities.InventoryRecord) ([]entities.Discrepancy, int, error) {
	type result struct {
		tracked     bool
		discrepancy *entities.Discrepancy
	}
	results := make([]result, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Concurrency)
	for i, record := range records {
		g.Go(func() error {
			allocations, err := c.allocator.FetchForInventory(gctx, record.ID)
			if err != nil {
				return fmt.Errorf("failed to fetch allocations for %s: %w", record.ID, err)
			}
			if len(allocations) == 0 {
				return nil
			}
			results[i].tracked = true

			actual := entities.TotalAllocated(allocations)
			if entities.WithinTolerance(actual, record.Quantity, c.config.Tolerance) {
				return nil
			}
			results[i].discrepancy = &entities.Discrepancy{
				RecordID: record.ID,
				ItemKey:  record.ItemKey,
				Type:     record.Type,
				Expected: record.Quantity,
				Actual:   actual,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var discrepancies []entities.Discrepancy
	tracked := 0
	for _, r := range results {
		if r.tracked {
			tracked++
		}
		if r.discrepancy != nil {
			discrepancies = append(discrepancies, *r.discrepancy)
			c.log.Warn("Allocation total does not match record",
				"record_id", r.discrepancy.RecordID,
				"item_key", r.discrepancy.ItemKey,
				"expected", float64(r.discrepancy.Expected),
				"actual", float64(r.discrepancy.Actual),
			)
		}
	}
	return discrepancies, tracked, nil
}
