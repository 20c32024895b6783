package services

import "github.com/vsinha/glassledger/pkg/domain/entities"

// DefaultTypeDefinitions returns the built-in stock types in display order
func DefaultTypeDefinitions() []entities.TypeDefinition {
	return []entities.TypeDefinition{
		{
			Name:        "rod",
			DisplayName: "Rod",
			Subtypes:    []string{"standard", "big", "small"},
			DimensionFields: []entities.DimensionField{
				diameterField(true),
				lengthField(),
			},
		},
		{
			Name:        "stringer",
			DisplayName: "Stringer",
			Subtypes:    []string{"thin", "medium", "thick"},
			DimensionFields: []entities.DimensionField{
				diameterField(true),
				lengthField(),
			},
		},
		{
			Name:        "sheet",
			DisplayName: "Sheet",
			Subtypes:    []string{"clear", "transparent", "opalescent", "iridescent", "dichroic"},
			Subsubtypes: map[string][]string{
				"iridescent": {"rainbow", "gold", "silver"},
				"dichroic":   {"on_clear", "on_black"},
			},
			DimensionFields: []entities.DimensionField{
				{Name: "thickness", DisplayName: "Thickness", Unit: "mm", Required: true, Placeholder: "3"},
				{Name: "width", DisplayName: "Width", Unit: "cm", Placeholder: "30"},
				{Name: "height", DisplayName: "Height", Unit: "cm", Placeholder: "30"},
			},
		},
		{
			Name:        "frit",
			DisplayName: "Frit",
			Subtypes:    []string{"fine", "medium", "coarse", "powder", "mosaic"},
			DimensionFields: []entities.DimensionField{
				weightField(),
			},
		},
		{
			Name:        "tube",
			DisplayName: "Tube",
			Subtypes:    []string{"thin_wall", "standard", "thick_wall"},
			DimensionFields: []entities.DimensionField{
				{Name: "outer_diameter", DisplayName: "Outer Diameter", Unit: "mm", Required: true, Placeholder: "25"},
				{Name: "wall_thickness", DisplayName: "Wall Thickness", Unit: "mm", Placeholder: "2"},
				lengthField(),
			},
		},
		{
			Name:        "powder",
			DisplayName: "Powder",
			Subtypes:    []string{"fine", "extra_fine"},
			DimensionFields: []entities.DimensionField{
				weightField(),
			},
		},
		{
			Name:        "scrap",
			DisplayName: "Scrap",
		},
		{
			Name:        "murrini",
			DisplayName: "Murrini",
			Subtypes:    []string{"cane", "slice", "chip"},
			DimensionFields: []entities.DimensionField{
				diameterField(false),
			},
		},
		{
			Name:        "enamel",
			DisplayName: "Enamel",
			Subtypes:    []string{"opaque", "transparent", "liquid"},
			DimensionFields: []entities.DimensionField{
				weightField(),
			},
		},
	}
}

func diameterField(required bool) entities.DimensionField {
	return entities.DimensionField{Name: "diameter", DisplayName: "Diameter", Unit: "mm", Required: required, Placeholder: "6"}
}

func lengthField() entities.DimensionField {
	return entities.DimensionField{Name: "length", DisplayName: "Length", Unit: "cm", Placeholder: "33"}
}

func weightField() entities.DimensionField {
	return entities.DimensionField{Name: "weight", DisplayName: "Weight", Unit: "g", Placeholder: "100"}
}
