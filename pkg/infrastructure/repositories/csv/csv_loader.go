package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/domain/repositories"
)

var (
	inventoryHeader = []string{"item_key", "type", "subtype", "subsubtype", "dimensions", "quantity"}
	locationsHeader = []string{"item_key", "type", "location", "quantity"}
)

// LocationRow is one line of a locations file. It names its record by
// (item key, type) and is resolved to the first matching record on import.
type LocationRow struct {
	Line     int
	ItemKey  string
	Type     string
	Location string
	Quantity entities.Quantity
}

// Loader handles loading ledger data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadInventory loads inventory records from a CSV file
func (l *Loader) LoadInventory(filename string) ([]*entities.InventoryRecord, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file %s: %w", filename, err)
	}
	defer file.Close()
	return l.ReadInventory(file)
}

// ReadInventory parses inventory records from r
func (l *Loader) ReadInventory(r io.Reader) ([]*entities.InventoryRecord, error) {
	rows, err := readRows(r, "inventory", inventoryHeader)
	if err != nil {
		return nil, err
	}

	records := make([]*entities.InventoryRecord, 0, len(rows))
	for i, row := range rows {
		dimensions, err := ParseDimensions(row[4])
		if err != nil {
			return nil, fmt.Errorf("inventory CSV row %d: %w", i+2, err)
		}
		quantity, err := parseQuantity(row[5])
		if err != nil {
			return nil, fmt.Errorf("inventory CSV row %d: %w", i+2, err)
		}
		records = append(records, &entities.InventoryRecord{
			ItemKey:    strings.TrimSpace(row[0]),
			Type:       row[1],
			Subtype:    row[2],
			Subsubtype: row[3],
			Dimensions: dimensions,
			Quantity:   quantity,
		})
	}
	return records, nil
}

// LoadLocations loads location rows from a CSV file
func (l *Loader) LoadLocations(filename string) ([]LocationRow, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open locations file %s: %w", filename, err)
	}
	defer file.Close()
	return l.ReadLocations(file)
}

// ReadLocations parses location rows from r
func (l *Loader) ReadLocations(r io.Reader) ([]LocationRow, error) {
	rows, err := readRows(r, "locations", locationsHeader)
	if err != nil {
		return nil, err
	}

	out := make([]LocationRow, 0, len(rows))
	for i, row := range rows {
		quantity, err := parseQuantity(row[3])
		if err != nil {
			return nil, fmt.Errorf("locations CSV row %d: %w", i+2, err)
		}
		out = append(out, LocationRow{
			Line:     i + 2,
			ItemKey:  strings.TrimSpace(row[0]),
			Type:     row[1],
			Location: row[2],
			Quantity: quantity,
		})
	}
	return out, nil
}

// Import creates the records in the ledger, then files each location row
// against the first record matching its item key and type.
func Import(ctx context.Context, ledger repositories.InventoryRepository, allocator repositories.LocationRepository, records []*entities.InventoryRecord, locations []LocationRow) error {
	for i, record := range records {
		if _, err := ledger.Create(ctx, record); err != nil {
			return fmt.Errorf("inventory record %d (%s): %w", i+1, record.ItemKey, err)
		}
	}

	for _, row := range locations {
		record, err := ledger.FindFirst(ctx, row.ItemKey, row.Type)
		if err != nil {
			return fmt.Errorf("locations CSV row %d: %w", row.Line, err)
		}
		if record == nil {
			return fmt.Errorf("locations CSV row %d: %w", row.Line, &entities.LedgerError{
				Op:      "import locations",
				Kind:    entities.ErrNotFound,
				ItemKey: row.ItemKey,
				Type:    entities.CanonicalTypeName(row.Type),
			})
		}
		if _, err := allocator.AddQuantity(ctx, record.ID, row.Location, row.Quantity); err != nil {
			return fmt.Errorf("locations CSV row %d: %w", row.Line, err)
		}
	}
	return nil
}

// ParseDimensions reads "diameter=6;length=33". An empty string means no
// dimensions.
func ParseDimensions(s string) (entities.Dimensions, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	dimensions := make(entities.Dimensions)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, fmt.Errorf("invalid dimension %q (expected name=value)", part)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("invalid value for dimension %s: %s", name, value)
		}
		dimensions[name] = f
	}
	return entities.NormalizeDimensions(dimensions), nil
}

// FormatDimensions is the inverse of ParseDimensions, with keys sorted
func FormatDimensions(d entities.Dimensions) string {
	parts := make([]string, 0, len(d))
	for _, key := range d.Keys() {
		parts = append(parts, key+"="+strconv.FormatFloat(d[key], 'f', -1, 64))
	}
	return strings.Join(parts, ";")
}

func readRows(r io.Reader, name string, expectedHeader []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", name, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header", name)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", name, expectedHeader, header)
	}

	rows := records[1:]
	for i, row := range rows {
		if len(row) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", name, i+2, len(expectedHeader), len(row))
		}
	}
	return rows, nil
}

func parseQuantity(s string) (entities.Quantity, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity: %s", s)
	}
	q := entities.Quantity(f)
	if !q.IsFinite() {
		return 0, fmt.Errorf("invalid quantity: %s", s)
	}
	return q, nil
}

// validateHeader checks if the CSV header matches expected format
func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range expected {
		if strings.TrimSpace(strings.ToLower(actual[i])) != col {
			return false
		}
	}
	return true
}
