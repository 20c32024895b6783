package gormstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/repositories"
)

// InventoryRepository stores the inventory ledger in the inventory_records
// table. Writers are serialized in-process and each compound operation runs
// in one transaction, so deltas compose exactly.
type InventoryRepository struct {
	db        *gorm.DB
	mu        sync.Mutex
	validator repositories.RecordValidator
	now       func() time.Time
}

// NewInventoryRepository creates a gorm-backed inventory repository. The
// tables must already exist (see Migrate).
func NewInventoryRepository(db *gorm.DB, validator repositories.RecordValidator) *InventoryRepository {
	return &InventoryRepository{
		db:        db,
		validator: validator,
		now: func() time.Time {
			// Postgres keeps microseconds.
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

func (r *InventoryRepository) Create(ctx context.Context, record *entities.InventoryRecord) (*entities.InventoryRecord, error) {
	const op = "create"
	candidate, err := repositories.PrepareRecord(op, record, r.validator)
	if err != nil {
		return nil, err
	}
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	now := r.now()
	if candidate.DateAdded.IsZero() {
		candidate.DateAdded = now
	}
	candidate.DateModified = now

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findByID(tx, candidate.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return &entities.LedgerError{Op: op, Kind: entities.ErrDuplicateID, ID: candidate.ID, ItemKey: candidate.ItemKey}
		}
		return insertRecord(tx, candidate)
	})
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return candidate, nil
}

func (r *InventoryRepository) Fetch(ctx context.Context, id string) (*entities.InventoryRecord, error) {
	row, err := findByID(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, wrapErr("fetch", err)
	}
	if row == nil {
		return nil, nil
	}
	record, err := row.toRecord()
	return record, wrapErr("fetch", err)
}

func (r *InventoryRepository) FetchAll(ctx context.Context) ([]*entities.InventoryRecord, error) {
	return r.find("fetch all", r.db.WithContext(ctx).Order("seq ASC"))
}

func (r *InventoryRepository) FetchForItem(ctx context.Context, itemKey string) ([]*entities.InventoryRecord, error) {
	q := r.db.WithContext(ctx).
		Where("item_key = ?", itemKey).
		Order("type ASC").
		Order("seq ASC")
	return r.find("fetch for item", q)
}

func (r *InventoryRepository) FetchForItemAndType(ctx context.Context, itemKey, typeName string) ([]*entities.InventoryRecord, error) {
	q := matching(r.db.WithContext(ctx), itemKey, typeName).
		Order("quantity DESC").
		Order("seq ASC")
	return r.find("fetch for item and type", q)
}

func (r *InventoryRepository) FindFirst(ctx context.Context, itemKey, typeName string) (*entities.InventoryRecord, error) {
	row, err := firstMatch(r.db.WithContext(ctx), itemKey, typeName)
	if err != nil {
		return nil, wrapErr("find first", err)
	}
	if row == nil {
		return nil, nil
	}
	record, err := row.toRecord()
	return record, wrapErr("find first", err)
}

// Update replaces a record in full. DateAdded and ItemKey cannot change.
func (r *InventoryRepository) Update(ctx context.Context, record *entities.InventoryRecord) (*entities.InventoryRecord, error) {
	const op = "update"
	candidate, err := repositories.PrepareRecord(op, record, r.validator)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findByID(tx, candidate.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return &entities.LedgerError{Op: op, Kind: entities.ErrNotFound, ID: candidate.ID, ItemKey: candidate.ItemKey}
		}
		if existing.ItemKey != candidate.ItemKey {
			return &entities.LedgerError{Op: op, Kind: entities.ErrInvalidData, ID: candidate.ID, Detail: "item key cannot change"}
		}

		candidate.DateAdded = existing.DateAdded
		candidate.DateModified = r.now()
		row, err := newInventoryRow(candidate)
		if err != nil {
			return err
		}
		row.Seq = existing.Seq
		return tx.Save(&row).Error
	})
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return candidate, nil
}

func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	return r.deleteWhere("delete", r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *InventoryRepository) DeleteForItem(ctx context.Context, itemKey string) error {
	return r.deleteWhere("delete for item", r.db.WithContext(ctx).Where("item_key = ?", itemKey))
}

func (r *InventoryRepository) DeleteForItemAndType(ctx context.Context, itemKey, typeName string) error {
	return r.deleteWhere("delete for item and type", matching(r.db.WithContext(ctx), itemKey, typeName))
}

func (r *InventoryRepository) TotalQuantity(ctx context.Context, itemKey string) (entities.Quantity, error) {
	return r.sum("total quantity", r.db.WithContext(ctx).Where("item_key = ?", itemKey))
}

func (r *InventoryRepository) TotalQuantityForType(ctx context.Context, itemKey, typeName string) (entities.Quantity, error) {
	return r.sum("total quantity for type", matching(r.db.WithContext(ctx), itemKey, typeName))
}

func (r *InventoryRepository) AddQuantity(ctx context.Context, itemKey, typeName string, delta entities.Quantity) (*entities.InventoryRecord, error) {
	const op = "add quantity"
	if err := entities.CheckDelta(op, delta); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var result *entities.InventoryRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := firstMatch(tx, itemKey, typeName)
		if err != nil {
			return err
		}
		if row == nil {
			result, err = r.createForDelta(tx, op, itemKey, typeName, delta)
			return err
		}
		result, err = r.writeQuantity(tx, row, entities.AddQuantities(entities.Quantity(row.Quantity), delta).Clamp())
		return err
	})
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// SubtractQuantity removes delta from the first matching record. When the
// result is zero or below the record is deleted and nil is returned.
func (r *InventoryRepository) SubtractQuantity(ctx context.Context, itemKey, typeName string, delta entities.Quantity) (*entities.InventoryRecord, error) {
	const op = "subtract quantity"
	if err := entities.CheckDelta(op, delta); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var result *entities.InventoryRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := firstMatch(tx, itemKey, typeName)
		if err != nil {
			return err
		}
		if row == nil {
			return &entities.LedgerError{Op: op, Kind: entities.ErrNotFound, ItemKey: itemKey, Type: entities.CanonicalTypeName(typeName)}
		}
		result, err = r.subtract(tx, row, delta)
		return err
	})
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

// SubtractFromRecord removes delta from the record with the given id, with
// the same delete-at-zero rule as SubtractQuantity.
func (r *InventoryRepository) SubtractFromRecord(ctx context.Context, id string, delta entities.Quantity) (*entities.InventoryRecord, error) {
	const op = "subtract from record"
	if err := entities.CheckDelta(op, delta); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var result *entities.InventoryRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return &entities.LedgerError{Op: op, Kind: entities.ErrNotFound, ID: id}
		}
		result, err = r.subtract(tx, row, delta)
		return err
	})
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

func (r *InventoryRepository) SetQuantity(ctx context.Context, itemKey, typeName string, value entities.Quantity) (*entities.InventoryRecord, error) {
	const op = "set quantity"
	if err := entities.CheckDelta(op, value); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var result *entities.InventoryRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := firstMatch(tx, itemKey, typeName)
		if err != nil {
			return err
		}
		switch {
		case value <= 0 && row == nil:
			return nil
		case value <= 0:
			return tx.Delete(&inventoryRow{}, row.Seq).Error
		case row == nil:
			result, err = r.createForDelta(tx, op, itemKey, typeName, value)
			return err
		default:
			result, err = r.writeQuantity(tx, row, value)
			return err
		}
	})
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return result, nil
}

func (r *InventoryRepository) DistinctTypes(ctx context.Context) ([]string, error) {
	types := []string{}
	err := r.db.WithContext(ctx).
		Model(&inventoryRow{}).
		Distinct().
		Order("type ASC").
		Pluck("type", &types).Error
	if err != nil {
		return nil, wrapErr("distinct types", err)
	}
	return types, nil
}

func (r *InventoryRepository) find(op string, q *gorm.DB) ([]*entities.InventoryRecord, error) {
	var rows []inventoryRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapErr(op, err)
	}
	records, err := toRecords(rows)
	return records, wrapErr(op, err)
}

func (r *InventoryRepository) sum(op string, q *gorm.DB) (entities.Quantity, error) {
	var values []float64
	if err := q.Model(&inventoryRow{}).Pluck("quantity", &values).Error; err != nil {
		return 0, wrapErr(op, err)
	}
	quantities := make([]entities.Quantity, 0, len(values))
	for _, v := range values {
		quantities = append(quantities, entities.Quantity(v))
	}
	return entities.SumQuantities(quantities...), nil
}

func (r *InventoryRepository) deleteWhere(op string, q *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return wrapErr(op, q.Delete(&inventoryRow{}).Error)
}

func (r *InventoryRepository) createForDelta(tx *gorm.DB, op, itemKey, typeName string, quantity entities.Quantity) (*entities.InventoryRecord, error) {
	candidate, err := repositories.PrepareRecord(op, &entities.InventoryRecord{
		ID:       uuid.NewString(),
		ItemKey:  itemKey,
		Type:     typeName,
		Quantity: quantity,
	}, r.validator)
	if err != nil {
		return nil, err
	}
	if candidate.Quantity <= 0 {
		return nil, nil
	}
	now := r.now()
	candidate.DateAdded = now
	candidate.DateModified = now
	if err := insertRecord(tx, candidate); err != nil {
		return nil, err
	}
	return candidate, nil
}

// subtract returns nil when the row was deleted
func (r *InventoryRepository) subtract(tx *gorm.DB, row *inventoryRow, delta entities.Quantity) (*entities.InventoryRecord, error) {
	remaining := entities.SubtractQuantities(entities.Quantity(row.Quantity), delta)
	if remaining <= 0 {
		return nil, tx.Delete(&inventoryRow{}, row.Seq).Error
	}
	return r.writeQuantity(tx, row, remaining)
}

func (r *InventoryRepository) writeQuantity(tx *gorm.DB, row *inventoryRow, quantity entities.Quantity) (*entities.InventoryRecord, error) {
	row.Quantity = float64(quantity)
	row.DateModified = r.now()
	err := tx.Model(&inventoryRow{}).
		Where("seq = ?", row.Seq).
		Updates(map[string]interface{}{
			"quantity":      row.Quantity,
			"date_modified": row.DateModified,
		}).Error
	if err != nil {
		return nil, err
	}
	return row.toRecord()
}

func insertRecord(tx *gorm.DB, record *entities.InventoryRecord) error {
	row, err := newInventoryRow(record)
	if err != nil {
		return err
	}
	return tx.Create(&row).Error
}

func findByID(tx *gorm.DB, id string) (*inventoryRow, error) {
	var rows []inventoryRow
	if err := tx.Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func firstMatch(tx *gorm.DB, itemKey, typeName string) (*inventoryRow, error) {
	var rows []inventoryRow
	err := matching(tx, itemKey, typeName).
		Order("seq ASC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func matching(tx *gorm.DB, itemKey, typeName string) *gorm.DB {
	return tx.Where("item_key = ? AND type = ?", itemKey, entities.CanonicalTypeName(typeName))
}
