package services

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/vsinha/glassledger/pkg/domain/entities"
)

func TestTypeTaxonomy_Resolve(t *testing.T) {
	taxonomy := NewTypeTaxonomy()

	tests := []struct {
		name        string
		typeName    string
		expected    string
		expectFound bool
	}{
		{"exact", "rod", "Rod", true},
		{"upper_case", "SHEET", "Sheet", true},
		{"padded", "  frit ", "Frit", true},
		{"unknown", "marble", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := taxonomy.Resolve(tt.typeName)
			if !tt.expectFound {
				if !errors.Is(err, entities.ErrNotFound) {
					t.Errorf("Expected ErrNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if def.DisplayName != tt.expected {
				t.Errorf("Expected display name %s, got %s", tt.expected, def.DisplayName)
			}
		})
	}
}

func TestTypeTaxonomy_Types(t *testing.T) {
	taxonomy := NewTypeTaxonomy()

	types := taxonomy.Types()
	if len(types) != 9 {
		t.Fatalf("Expected 9 stock types, got %d", len(types))
	}
	if types[0].Name != "rod" || types[len(types)-1].Name != "enamel" {
		t.Errorf("Expected declaration order rod..enamel, got %s..%s", types[0].Name, types[len(types)-1].Name)
	}

	types[0].Subtypes[0] = "mutated"
	if !taxonomy.ValidateSubtype("standard", "rod") {
		t.Error("Expected registry to be unaffected by changes to returned definitions")
	}
}

func TestTypeTaxonomy_ValidateSubtype(t *testing.T) {
	taxonomy := NewTypeTaxonomy()

	tests := []struct {
		name     string
		subtype  string
		typeName string
		expected bool
	}{
		{"declared", "standard", "rod", true},
		{"case_insensitive", "Thin_Wall", "TUBE", true},
		{"not_declared", "thick", "rod", false},
		{"unknown_type", "standard", "marble", false},
		{"type_without_subtypes", "anything", "scrap", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := taxonomy.ValidateSubtype(tt.subtype, tt.typeName); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestTypeTaxonomy_ValidateSubsubtype(t *testing.T) {
	taxonomy := NewTypeTaxonomy()

	if !taxonomy.ValidateSubsubtype("gold", "iridescent", "sheet") {
		t.Error("Expected gold to be valid under iridescent sheet")
	}
	if !taxonomy.ValidateSubsubtype("On_Black", "DICHROIC", "sheet") {
		t.Error("Expected case-insensitive sub-subtype match")
	}
	if taxonomy.ValidateSubsubtype("gold", "dichroic", "sheet") {
		t.Error("Expected gold to be invalid under dichroic")
	}
	if taxonomy.ValidateSubsubtype("gold", "clear", "sheet") {
		t.Error("Expected subtype without sub-subtypes to reject everything")
	}
}

func TestTypeTaxonomy_ValidateDimensions(t *testing.T) {
	taxonomy := NewTypeTaxonomy()

	tests := []struct {
		name          string
		values        entities.Dimensions
		typeName      string
		expectedCodes []ValidationCode
		expectedField []string
	}{
		{
			name:          "negative_diameter",
			values:        entities.Dimensions{"diameter": -5, "length": 10},
			typeName:      "rod",
			expectedCodes: []ValidationCode{NegativeValue},
			expectedField: []string{"diameter"},
		},
		{
			name:     "valid_rod",
			values:   entities.Dimensions{"diameter": 5, "length": 30},
			typeName: "rod",
		},
		{
			name:     "scrap_without_dimensions",
			values:   entities.Dimensions{},
			typeName: "scrap",
		},
		{
			name:          "missing_required",
			values:        entities.Dimensions{"length": 30},
			typeName:      "rod",
			expectedCodes: []ValidationCode{MissingRequiredField},
			expectedField: []string{"diameter"},
		},
		{
			name:          "unknown_type",
			values:        entities.Dimensions{"diameter": -1},
			typeName:      "marble",
			expectedCodes: []ValidationCode{UnknownType},
			expectedField: []string{""},
		},
		{
			name:     "unknown_key_tolerated",
			values:   entities.Dimensions{"weight": 50, "batch": 7},
			typeName: "frit",
		},
		{
			name:          "declared_then_unknown_keys",
			values:        entities.Dimensions{"zeta": -1, "alpha": -2, "length": -3},
			typeName:      "rod",
			expectedCodes: []ValidationCode{MissingRequiredField, NegativeValue, NegativeValue, NegativeValue},
			expectedField: []string{"diameter", "length", "alpha", "zeta"},
		},
		{
			name:          "non_finite_values",
			values:        entities.Dimensions{"diameter": math.NaN(), "length": math.Inf(1), "batch": math.Inf(-1)},
			typeName:      "rod",
			expectedCodes: []ValidationCode{NonFiniteValue, NonFiniteValue, NonFiniteValue},
			expectedField: []string{"diameter", "length", "batch"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := taxonomy.ValidateDimensions(tt.values, tt.typeName)
			if len(errs) != len(tt.expectedCodes) {
				t.Fatalf("Expected %d errors, got %d: %v", len(tt.expectedCodes), len(errs), errs)
			}
			for i, err := range errs {
				if err.Code != tt.expectedCodes[i] {
					t.Errorf("Error %d: expected code %v, got %v", i, tt.expectedCodes[i], err.Code)
				}
				if err.Field != tt.expectedField[i] {
					t.Errorf("Error %d: expected field %q, got %q", i, tt.expectedField[i], err.Field)
				}
			}
		})
	}
}

func TestTypeTaxonomy_ValidationMessages(t *testing.T) {
	taxonomy := NewTypeTaxonomy()

	errs := taxonomy.ValidateDimensions(entities.Dimensions{"diameter": -5, "length": 10}, "rod")
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}
	message := strings.ToLower(errs[0].Message)
	if !strings.Contains(message, "diameter") || !strings.Contains(message, "negative") {
		t.Errorf("Expected message to mention diameter and negative, got %q", errs[0].Message)
	}

	errs = taxonomy.ValidateDimensions(nil, "marble")
	if errs[0].Message != "unknown type: marble" {
		t.Errorf("Expected unknown type message, got %q", errs[0].Message)
	}

	errs = taxonomy.ValidateDimensions(nil, "tube")
	if len(errs) != 1 || errs[0].Message != "missing required field: Outer Diameter" {
		t.Errorf("Expected missing outer diameter, got %v", errs)
	}
}

func TestFormatDimension(t *testing.T) {
	mm := entities.DimensionField{Name: "diameter", Unit: "mm"}

	tests := []struct {
		name     string
		value    float64
		field    entities.DimensionField
		expected string
	}{
		{"integral", 6, mm, "6 mm"},
		{"fractional", 6.5, mm, "6.5 mm"},
		{"rounds_to_one_decimal", 2.34, mm, "2.3 mm"},
		{"large_integral", 1000000, mm, "1000000 mm"},
		{"zero", 0, mm, "0 mm"},
		{"no_unit", 3, entities.DimensionField{Name: "count"}, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDimension(tt.value, tt.field); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestTypeTaxonomy_ShortDescription(t *testing.T) {
	taxonomy := NewTypeTaxonomy()

	tests := []struct {
		name       string
		typeName   string
		subtype    string
		dimensions entities.Dimensions
		expected   string
	}{
		{"type_only", "rod", "", entities.Dimensions{"diameter": 6}, "Rod"},
		{"with_subtype", "rod", "standard", nil, "Rod (Standard)"},
		{"with_dimension", "rod", "standard", entities.Dimensions{"diameter": 6}, "Rod (Standard, 6 mm)"},
		{"first_declared_wins", "rod", "big", entities.Dimensions{"length": 33, "diameter": 12.5}, "Rod (Big, 12.5 mm)"},
		{"falls_back_to_later_field", "rod", "small", entities.Dimensions{"length": 20}, "Rod (Small, 20 cm)"},
		{"unknown_keys_ignored", "frit", "coarse", entities.Dimensions{"batch": 7}, "Frit (Coarse)"},
		{"multi_word_subtype", "tube", "thin_wall", entities.Dimensions{"outer_diameter": 25}, "Tube (Thin Wall, 25 mm)"},
		{"unknown_type", "marble", "big", nil, "marble"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := taxonomy.ShortDescription(tt.typeName, tt.subtype, tt.dimensions); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestTypeTaxonomy_ValidateRecord(t *testing.T) {
	taxonomy := NewTypeTaxonomy()

	tests := []struct {
		name      string
		record    entities.InventoryRecord
		expectErr bool
	}{
		{"valid", entities.InventoryRecord{ItemKey: "a", Type: "sheet", Subtype: "iridescent", Subsubtype: "gold"}, false},
		{"missing_required_allowed", entities.InventoryRecord{ItemKey: "a", Type: "rod"}, false},
		{"unknown_type", entities.InventoryRecord{ItemKey: "a", Type: "marble"}, true},
		{"bad_subtype", entities.InventoryRecord{ItemKey: "a", Type: "rod", Subtype: "thin"}, true},
		{"bad_subsubtype", entities.InventoryRecord{ItemKey: "a", Type: "sheet", Subtype: "clear", Subsubtype: "gold"}, true},
		{"negative_unknown_key", entities.InventoryRecord{ItemKey: "a", Type: "scrap", Dimensions: entities.Dimensions{"weight": -1}}, true},
		{"nan_dimension", entities.InventoryRecord{ItemKey: "a", Type: "rod", Dimensions: entities.Dimensions{"diameter": math.NaN()}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := taxonomy.ValidateRecord(&tt.record)
			if tt.expectErr && !errors.Is(err, entities.ErrInvalidData) {
				t.Errorf("Expected ErrInvalidData, got %v", err)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestSubtypeDisplayName(t *testing.T) {
	tests := map[string]string{
		"standard":   "Standard",
		"thin_wall":  "Thin Wall",
		"extra_fine": "Extra Fine",
		"on-black":   "On Black",
		"":           "",
	}

	for input, expected := range tests {
		if got := SubtypeDisplayName(input); got != expected {
			t.Errorf("SubtypeDisplayName(%q): expected %q, got %q", input, expected, got)
		}
	}
}
