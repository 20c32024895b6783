package entities

import "strings"

// DimensionField describes one unit-bearing numeric attribute of a stock type.
type DimensionField struct {
	Name        string
	DisplayName string
	Unit        string
	Required    bool
	Placeholder string
}

// TypeDefinition describes a stock type: its subtypes, sub-subtypes and the
// dimension fields that are meaningful for it. Definitions are immutable
// once registered.
type TypeDefinition struct {
	Name            string
	DisplayName     string
	Subtypes        []string
	Subsubtypes     map[string][]string
	DimensionFields []DimensionField
}

// HasSubtype reports whether subtype is declared for this type (case-insensitive).
func (d TypeDefinition) HasSubtype(subtype string) bool {
	return containsFold(d.Subtypes, subtype)
}

// HasSubsubtype reports whether subsubtype is declared under subtype.
func (d TypeDefinition) HasSubsubtype(subtype, subsubtype string) bool {
	for name, children := range d.Subsubtypes {
		if strings.EqualFold(name, strings.TrimSpace(subtype)) {
			return containsFold(children, subsubtype)
		}
	}
	return false
}

// Field returns the declared dimension field with the given name.
func (d TypeDefinition) Field(name string) (DimensionField, bool) {
	for _, f := range d.DimensionFields {
		if f.Name == name {
			return f, true
		}
	}
	return DimensionField{}, false
}

// Clone returns a deep copy so registry entries cannot be mutated by callers.
func (d TypeDefinition) Clone() TypeDefinition {
	c := d
	c.Subtypes = append([]string(nil), d.Subtypes...)
	c.DimensionFields = append([]DimensionField(nil), d.DimensionFields...)
	if d.Subsubtypes != nil {
		c.Subsubtypes = make(map[string][]string, len(d.Subsubtypes))
		for k, v := range d.Subsubtypes {
			c.Subsubtypes[k] = append([]string(nil), v...)
		}
	}
	return c
}

func containsFold(values []string, target string) bool {
	target = strings.TrimSpace(target)
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
