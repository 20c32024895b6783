package dto

import (
	"time"

	"github.com/vsinha/glassledger/pkg/domain/entities"
)

// AuditReport contains the complete output of a consistency audit
type AuditReport struct {
	GeneratedAt time.Time
	// ItemKey is empty for a full sweep
	ItemKey string
	// RecordsChecked counts every record examined; TrackedRecords only those
	// with at least one location allocation
	RecordsChecked int
	TrackedRecords int
	Discrepancies  []entities.Discrepancy
	// Orphans is only filled by a full sweep
	Orphans []*entities.LocationAllocation
}

// Consistent reports whether the audit found nothing to fix
func (r *AuditReport) Consistent() bool {
	return len(r.Discrepancies) == 0 && len(r.Orphans) == 0
}

// OrphanedQuantity sums the quantity held by orphaned allocations
func (r *AuditReport) OrphanedQuantity() entities.Quantity {
	return entities.TotalAllocated(r.Orphans)
}
