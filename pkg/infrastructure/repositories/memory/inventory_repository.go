package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/repositories"
)

// InventoryRepository provides in-memory inventory ledger storage. Every
// mutation, including the read-modify-write quantity deltas, runs under the
// write lock so concurrent deltas compose exactly.
type InventoryRepository struct {
	mu        sync.RWMutex
	records   map[string]*storedRecord
	nextSeq   uint64
	validator repositories.RecordValidator
	now       func() time.Time
}

// storedRecord remembers creation order so "first match" is deterministic
type storedRecord struct {
	record entities.InventoryRecord
	seq    uint64
}

// InventoryOption configures an InventoryRepository
type InventoryOption func(*InventoryRepository)

// WithClock overrides the time source used for DateAdded/DateModified
func WithClock(now func() time.Time) InventoryOption {
	return func(r *InventoryRepository) {
		r.now = now
	}
}

// NewInventoryRepository creates a new in-memory inventory repository. A nil
// validator skips taxonomy checks.
func NewInventoryRepository(validator repositories.RecordValidator, opts ...InventoryOption) *InventoryRepository {
	r := &InventoryRepository{
		records:   make(map[string]*storedRecord),
		validator: validator,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

// LoadRecords creates each record in order
func (r *InventoryRepository) LoadRecords(ctx context.Context, records []*entities.InventoryRecord) error {
	for _, record := range records {
		if _, err := r.Create(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// Create stores a new record. An empty id is replaced by a generated one.
func (r *InventoryRepository) Create(ctx context.Context, record *entities.InventoryRecord) (*entities.InventoryRecord, error) {
	candidate, err := r.prepare("create", record)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	if _, exists := r.records[candidate.ID]; exists {
		return nil, &entities.LedgerError{Op: "create", Kind: entities.ErrDuplicateID, ID: candidate.ID, ItemKey: candidate.ItemKey}
	}

	now := r.now()
	if candidate.DateAdded.IsZero() {
		candidate.DateAdded = now
	}
	candidate.DateModified = now

	r.insertLocked(candidate)
	return candidate.Clone(), nil
}

// Fetch returns the record with the given id, or nil when it does not exist
func (r *InventoryRepository) Fetch(ctx context.Context, id string) (*entities.InventoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.records[id]
	if !exists {
		return nil, nil
	}
	return stored.record.Clone(), nil
}

// FetchAll returns every record in creation order
func (r *InventoryRepository) FetchAll(ctx context.Context) ([]*entities.InventoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.matchLocked(func(*entities.InventoryRecord) bool { return true })
	return cloneRecords(matches), nil
}

// FetchForItem returns the records of an item sorted by type
func (r *InventoryRepository) FetchForItem(ctx context.Context, itemKey string) ([]*entities.InventoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.matchLocked(func(rec *entities.InventoryRecord) bool { return rec.ItemKey == itemKey })
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].record.Type < matches[j].record.Type
	})
	return cloneRecords(matches), nil
}

// FetchForItemAndType returns matching records sorted by quantity, largest first
func (r *InventoryRepository) FetchForItemAndType(ctx context.Context, itemKey, typeName string) ([]*entities.InventoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.matchLocked(func(rec *entities.InventoryRecord) bool { return rec.Matches(itemKey, typeName) })
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].record.Quantity > matches[j].record.Quantity
	})
	return cloneRecords(matches), nil
}

// FindFirst returns the earliest created record for (itemKey, type), or nil
func (r *InventoryRepository) FindFirst(ctx context.Context, itemKey, typeName string) (*entities.InventoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.firstLocked(itemKey, typeName)
	if stored == nil {
		return nil, nil
	}
	return stored.record.Clone(), nil
}

// Update replaces a record in full. DateAdded and ItemKey cannot change.
func (r *InventoryRepository) Update(ctx context.Context, record *entities.InventoryRecord) (*entities.InventoryRecord, error) {
	candidate, err := r.prepare("update", record)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.records[candidate.ID]
	if !exists {
		return nil, &entities.LedgerError{Op: "update", Kind: entities.ErrNotFound, ID: candidate.ID, ItemKey: candidate.ItemKey}
	}
	if stored.record.ItemKey != candidate.ItemKey {
		return nil, &entities.LedgerError{
			Op:     "update",
			Kind:   entities.ErrInvalidData,
			ID:     candidate.ID,
			Detail: "item key cannot change",
		}
	}

	candidate.DateAdded = stored.record.DateAdded
	candidate.DateModified = r.now()
	stored.record = *candidate
	return candidate.Clone(), nil
}

// Delete removes a record. Deleting a missing id is a no-op.
func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, id)
	return nil
}

// DeleteForItem removes every record of an item
func (r *InventoryRepository) DeleteForItem(ctx context.Context, itemKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, stored := range r.records {
		if stored.record.ItemKey == itemKey {
			delete(r.records, id)
		}
	}
	return nil
}

// DeleteForItemAndType removes every record of an item with the given type
func (r *InventoryRepository) DeleteForItemAndType(ctx context.Context, itemKey, typeName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, stored := range r.records {
		if stored.record.Matches(itemKey, typeName) {
			delete(r.records, id)
		}
	}
	return nil
}

// TotalQuantity sums the quantity of every record of an item across all types
func (r *InventoryRepository) TotalQuantity(ctx context.Context, itemKey string) (entities.Quantity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var quantities []entities.Quantity
	for _, stored := range r.records {
		if stored.record.ItemKey == itemKey {
			quantities = append(quantities, stored.record.Quantity)
		}
	}
	return entities.SumQuantities(quantities...), nil
}

// TotalQuantityForType sums the quantity of every matching record
func (r *InventoryRepository) TotalQuantityForType(ctx context.Context, itemKey, typeName string) (entities.Quantity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var quantities []entities.Quantity
	for _, stored := range r.records {
		if stored.record.Matches(itemKey, typeName) {
			quantities = append(quantities, stored.record.Quantity)
		}
	}
	return entities.SumQuantities(quantities...), nil
}

// AddQuantity adds delta to the first matching record or creates one holding
// delta. A non-positive delta never creates a record.
func (r *InventoryRepository) AddQuantity(ctx context.Context, itemKey, typeName string, delta entities.Quantity) (*entities.InventoryRecord, error) {
	if err := entities.CheckDelta("add quantity", delta); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if stored := r.firstLocked(itemKey, typeName); stored != nil {
		stored.record.Quantity = entities.AddQuantities(stored.record.Quantity, delta).Clamp()
		stored.record.DateModified = r.now()
		return stored.record.Clone(), nil
	}

	return r.createForDeltaLocked("add quantity", itemKey, typeName, delta)
}

// SubtractQuantity removes delta from the first matching record. When the
// result is zero or below the record is deleted and nil is returned.
func (r *InventoryRepository) SubtractQuantity(ctx context.Context, itemKey, typeName string, delta entities.Quantity) (*entities.InventoryRecord, error) {
	if err := entities.CheckDelta("subtract quantity", delta); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.firstLocked(itemKey, typeName)
	if stored == nil {
		return nil, &entities.LedgerError{
			Op:      "subtract quantity",
			Kind:    entities.ErrNotFound,
			ItemKey: itemKey,
			Type:    entities.CanonicalTypeName(typeName),
		}
	}
	return r.subtractLocked(stored, delta), nil
}

// SubtractFromRecord removes delta from the record with the given id, with
// the same delete-at-zero rule as SubtractQuantity.
func (r *InventoryRepository) SubtractFromRecord(ctx context.Context, id string, delta entities.Quantity) (*entities.InventoryRecord, error) {
	if err := entities.CheckDelta("subtract from record", delta); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[id]
	if !ok {
		return nil, &entities.LedgerError{Op: "subtract from record", Kind: entities.ErrNotFound, ID: id}
	}
	return r.subtractLocked(stored, delta), nil
}

// SetQuantity overwrites the quantity of the first matching record. A value
// at or below zero deletes the record; a positive value with no match
// creates one.
func (r *InventoryRepository) SetQuantity(ctx context.Context, itemKey, typeName string, value entities.Quantity) (*entities.InventoryRecord, error) {
	if err := entities.CheckDelta("set quantity", value); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.firstLocked(itemKey, typeName)
	if value <= 0 {
		if stored != nil {
			delete(r.records, stored.record.ID)
		}
		return nil, nil
	}
	if stored == nil {
		return r.createForDeltaLocked("set quantity", itemKey, typeName, value)
	}

	stored.record.Quantity = value
	stored.record.DateModified = r.now()
	return stored.record.Clone(), nil
}

// DistinctTypes returns the sorted set of types used by at least one record
func (r *InventoryRepository) DistinctTypes(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, stored := range r.records {
		seen[stored.record.Type] = struct{}{}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types, nil
}

func (r *InventoryRepository) prepare(op string, record *entities.InventoryRecord) (*entities.InventoryRecord, error) {
	return repositories.PrepareRecord(op, record, r.validator)
}

func (r *InventoryRepository) createForDeltaLocked(op, itemKey, typeName string, quantity entities.Quantity) (*entities.InventoryRecord, error) {
	candidate, err := r.prepare(op, &entities.InventoryRecord{
		ID:       uuid.NewString(),
		ItemKey:  itemKey,
		Type:     typeName,
		Quantity: quantity,
	})
	if err != nil {
		return nil, err
	}
	if candidate.Quantity <= 0 {
		return nil, nil
	}
	now := r.now()
	candidate.DateAdded = now
	candidate.DateModified = now
	r.insertLocked(candidate)
	return candidate.Clone(), nil
}

func (r *InventoryRepository) subtractLocked(stored *storedRecord, delta entities.Quantity) *entities.InventoryRecord {
	remaining := entities.SubtractQuantities(stored.record.Quantity, delta)
	if remaining <= 0 {
		delete(r.records, stored.record.ID)
		return nil
	}
	stored.record.Quantity = remaining
	stored.record.DateModified = r.now()
	return stored.record.Clone()
}

func (r *InventoryRepository) insertLocked(record *entities.InventoryRecord) {
	r.nextSeq++
	r.records[record.ID] = &storedRecord{record: *record, seq: r.nextSeq}
}

// firstLocked returns the earliest created match, or nil
func (r *InventoryRepository) firstLocked(itemKey, typeName string) *storedRecord {
	var first *storedRecord
	for _, stored := range r.records {
		if !stored.record.Matches(itemKey, typeName) {
			continue
		}
		if first == nil || stored.seq < first.seq {
			first = stored
		}
	}
	return first
}

// matchLocked returns the matching records in creation order
func (r *InventoryRepository) matchLocked(match func(*entities.InventoryRecord) bool) []*storedRecord {
	var matches []*storedRecord
	for _, stored := range r.records {
		if match(&stored.record) {
			matches = append(matches, stored)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].seq < matches[j].seq
	})
	return matches
}

func cloneRecords(stored []*storedRecord) []*entities.InventoryRecord {
	out := make([]*entities.InventoryRecord, 0, len(stored))
	for _, s := range stored {
		out = append(out, s.record.Clone())
	}
	return out
}
