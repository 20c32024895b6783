package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vsinha/glassledger/pkg/domain/entities"
)

// ValidationCode classifies a dimension validation failure
type ValidationCode int

const (
	UnknownType ValidationCode = iota
	MissingRequiredField
	NegativeValue
	NonFiniteValue
)

// String method for ValidationCode enum
func (c ValidationCode) String() string {
	switch c {
	case UnknownType:
		return "UnknownType"
	case MissingRequiredField:
		return "MissingRequiredField"
	case NegativeValue:
		return "NegativeValue"
	case NonFiniteValue:
		return "NonFiniteValue"
	default:
		return "Unknown"
	}
}

// ValidationError is a single dimension validation failure
type ValidationError struct {
	Field   string
	Code    ValidationCode
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// TypeTaxonomy is the static registry of stock types. It holds no mutable
// state after construction and is safe for concurrent use.
type TypeTaxonomy struct {
	types  []entities.TypeDefinition
	byName map[string]int
}

// NewTypeTaxonomy creates a taxonomy holding the built-in glass stock types
func NewTypeTaxonomy() *TypeTaxonomy {
	return NewTypeTaxonomyWith(DefaultTypeDefinitions()...)
}

// NewTypeTaxonomyWith creates a taxonomy from explicit definitions. Later
// definitions with the same name replace earlier ones.
func NewTypeTaxonomyWith(definitions ...entities.TypeDefinition) *TypeTaxonomy {
	t := &TypeTaxonomy{
		types:  make([]entities.TypeDefinition, 0, len(definitions)),
		byName: make(map[string]int, len(definitions)),
	}
	for _, def := range definitions {
		def = def.Clone()
		def.Name = entities.CanonicalTypeName(def.Name)
		if idx, exists := t.byName[def.Name]; exists {
			t.types[idx] = def
			continue
		}
		t.byName[def.Name] = len(t.types)
		t.types = append(t.types, def)
	}
	return t
}

// Types returns every registered definition in declaration order
func (t *TypeTaxonomy) Types() []entities.TypeDefinition {
	out := make([]entities.TypeDefinition, len(t.types))
	for i, def := range t.types {
		out[i] = def.Clone()
	}
	return out
}

// Resolve looks up a type definition by name, ignoring case
func (t *TypeTaxonomy) Resolve(typeName string) (entities.TypeDefinition, error) {
	def, ok := t.lookup(typeName)
	if !ok {
		return entities.TypeDefinition{}, &entities.LedgerError{
			Op:   "resolve type",
			Kind: entities.ErrNotFound,
			Type: typeName,
		}
	}
	return def.Clone(), nil
}

func (t *TypeTaxonomy) lookup(typeName string) (*entities.TypeDefinition, bool) {
	idx, ok := t.byName[entities.CanonicalTypeName(typeName)]
	if !ok {
		return nil, false
	}
	return &t.types[idx], true
}

// ValidateSubtype reports whether subtype is legal for typeName
func (t *TypeTaxonomy) ValidateSubtype(subtype, typeName string) bool {
	def, ok := t.lookup(typeName)
	if !ok {
		return false
	}
	return def.HasSubtype(subtype)
}

// ValidateSubsubtype reports whether subsubtype is legal under subtype for typeName
func (t *TypeTaxonomy) ValidateSubsubtype(subsubtype, subtype, typeName string) bool {
	def, ok := t.lookup(typeName)
	if !ok || !def.HasSubtype(subtype) {
		return false
	}
	return def.HasSubsubtype(subtype, subsubtype)
}

// ValidateDimensions checks dimension values against the schema of typeName.
//
// Declared fields are checked in declaration order. Keys the type does not
// declare are tolerated; they are only checked for negative or non-finite
// values.
func (t *TypeTaxonomy) ValidateDimensions(values entities.Dimensions, typeName string) []ValidationError {
	def, ok := t.lookup(typeName)
	if !ok {
		return []ValidationError{{
			Code:    UnknownType,
			Message: fmt.Sprintf("unknown type: %s", typeName),
		}}
	}

	var errs []ValidationError
	for _, field := range def.DimensionFields {
		value, present := values[field.Name]
		if !present {
			if field.Required {
				errs = append(errs, ValidationError{
					Field:   field.Name,
					Code:    MissingRequiredField,
					Message: fmt.Sprintf("missing required field: %s", field.DisplayName),
				})
			}
			continue
		}
		if err, bad := checkValue(field.Name, field.DisplayName, value); bad {
			errs = append(errs, err)
		}
	}

	for _, key := range values.Keys() {
		if _, declared := def.Field(key); declared {
			continue
		}
		if err, bad := checkValue(key, key, values[key]); bad {
			errs = append(errs, err)
		}
	}

	return errs
}

func checkValue(field, displayName string, value float64) (ValidationError, bool) {
	switch {
	case math.IsNaN(value) || math.IsInf(value, 0):
		return ValidationError{
			Field:   field,
			Code:    NonFiniteValue,
			Message: fmt.Sprintf("%s must be a finite number", displayName),
		}, true
	case value < 0:
		return ValidationError{
			Field:   field,
			Code:    NegativeValue,
			Message: fmt.Sprintf("%s cannot be negative", displayName),
		}, true
	}
	return ValidationError{}, false
}

// FormatDimension renders a value with its unit: integral values without a
// decimal point, fractional values with exactly one decimal place.
func FormatDimension(value float64, field entities.DimensionField) string {
	var number string
	if value == math.Trunc(value) && !math.IsInf(value, 0) {
		number = strconv.FormatFloat(value, 'f', 0, 64)
	} else {
		number = strconv.FormatFloat(value, 'f', 1, 64)
	}
	if field.Unit == "" {
		return number
	}
	return number + " " + field.Unit
}

// ShortDescription composes a one-line label such as "Rod", "Rod (Standard)"
// or "Rod (Standard, 6 mm)". The dimension shown is the first declared field
// present in dimensions, independent of map iteration order.
func (t *TypeTaxonomy) ShortDescription(typeName, subtype string, dimensions entities.Dimensions) string {
	def, ok := t.lookup(typeName)
	if !ok {
		return typeName
	}
	subtype = strings.TrimSpace(subtype)
	if subtype == "" {
		return def.DisplayName
	}

	label := SubtypeDisplayName(subtype)
	for _, field := range def.DimensionFields {
		if value, present := dimensions[field.Name]; present {
			return fmt.Sprintf("%s (%s, %s)", def.DisplayName, label, FormatDimension(value, field))
		}
	}
	return fmt.Sprintf("%s (%s)", def.DisplayName, label)
}

// SubtypeDisplayName turns a subtype identifier such as "thin_wall" into "Thin Wall"
func SubtypeDisplayName(subtype string) string {
	words := strings.FieldsFunc(subtype, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	// cases.Caser is stateful, so one is built per call.
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// ValidateRecord checks a normalized record against the taxonomy: the type
// must be registered, subtype and sub-subtype must be legal, and no dimension
// may be negative. Missing required dimensions are a form concern and are
// not enforced on stored records.
func (t *TypeTaxonomy) ValidateRecord(record *entities.InventoryRecord) error {
	def, ok := t.lookup(record.Type)
	if !ok {
		return &entities.LedgerError{
			Op:      "validate record",
			Kind:    entities.ErrInvalidData,
			ID:      record.ID,
			ItemKey: record.ItemKey,
			Type:    record.Type,
			Detail:  "unknown type",
		}
	}
	if record.Subtype != "" && !def.HasSubtype(record.Subtype) {
		return &entities.LedgerError{
			Op:      "validate record",
			Kind:    entities.ErrInvalidData,
			ID:      record.ID,
			ItemKey: record.ItemKey,
			Type:    record.Type,
			Detail:  fmt.Sprintf("subtype %q is not valid for %s", record.Subtype, def.Name),
		}
	}
	if record.Subsubtype != "" && !def.HasSubsubtype(record.Subtype, record.Subsubtype) {
		return &entities.LedgerError{
			Op:      "validate record",
			Kind:    entities.ErrInvalidData,
			ID:      record.ID,
			ItemKey: record.ItemKey,
			Type:    record.Type,
			Detail:  fmt.Sprintf("subsubtype %q is not valid for %s/%s", record.Subsubtype, def.Name, record.Subtype),
		}
	}
	for _, verr := range t.ValidateDimensions(record.Dimensions, record.Type) {
		if verr.Code == MissingRequiredField {
			continue
		}
		return &entities.LedgerError{
			Op:      "validate record",
			Kind:    entities.ErrInvalidData,
			ID:      record.ID,
			ItemKey: record.ItemKey,
			Type:    record.Type,
			Detail:  verr.Message,
		}
	}
	return nil
}
