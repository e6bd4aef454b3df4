package sim

import (
	"fmt"
	"reflect"
)

// ParameterSet is an immutable, schema-validated snapshot of named
// parameter values. It is owned by whichever State currently holds it
// and is replaced wholesale on a regime switch, never mutated in place.
type ParameterSet struct {
	schema *Schema
	values map[string]any // scalars in canonical form, nested models as *ParameterSet
}

// NewParameterSet validates a raw field map against the schema. Missing
// fields fall back to their declared defaults; a missing field with no
// default is a validation error. Keys not declared by the schema are
// dropped (CloseMatchWarnings reports the likely typos among them).
func NewParameterSet(schema *Schema, raw map[string]any) (*ParameterSet, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrConfiguration)
	}
	values := make(map[string]any, len(schema.fields))
	for _, f := range schema.fields {
		v, ok := raw[f.Name]
		if !ok {
			if !f.HasDefault {
				return nil, fmt.Errorf("%w: schema %q: missing required field %q", ErrValidation, schema.name, f.Name)
			}
			v = f.Default
		}
		cv, err := f.coerce(v)
		if err != nil {
			return nil, fmt.Errorf("schema %q: %w", schema.name, err)
		}
		values[f.Name] = cv
	}
	return &ParameterSet{schema: schema, values: values}, nil
}

// MustParameterSet is NewParameterSet that panics on error, for fixed
// parameter literals.
func MustParameterSet(schema *Schema, raw map[string]any) *ParameterSet {
	p, err := NewParameterSet(schema, raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Schema returns the schema this set was validated against.
func (p *ParameterSet) Schema() *Schema { return p.schema }

// Value looks up a field's canonical value. Nested models come back as
// *ParameterSet.
func (p *ParameterSet) Value(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Float returns the named float field. It panics when the field is not
// declared as a float: accessors are only called with names the schema
// is known to carry.
func (p *ParameterSet) Float(name string) float64 {
	v, ok := p.values[name]
	if !ok {
		panic(fmt.Sprintf("sim: parameter set %q has no field %q", p.schema.name, name))
	}
	f, ok := v.(float64)
	if !ok {
		panic(fmt.Sprintf("sim: field %q of %q is %T, not float", name, p.schema.name, v))
	}
	return f
}

// Int returns the named int field, with the same panic contract as Float.
func (p *ParameterSet) Int(name string) int {
	v, ok := p.values[name]
	if !ok {
		panic(fmt.Sprintf("sim: parameter set %q has no field %q", p.schema.name, name))
	}
	n, ok := v.(int)
	if !ok {
		panic(fmt.Sprintf("sim: field %q of %q is %T, not int", name, p.schema.name, v))
	}
	return n
}

// Bool returns the named bool field, with the same panic contract as Float.
func (p *ParameterSet) Bool(name string) bool {
	v, ok := p.values[name]
	if !ok {
		panic(fmt.Sprintf("sim: parameter set %q has no field %q", p.schema.name, name))
	}
	b, ok := v.(bool)
	if !ok {
		panic(fmt.Sprintf("sim: field %q of %q is %T, not bool", name, p.schema.name, v))
	}
	return b
}

// Str returns the named string field, with the same panic contract as
// Float. (Named Str so the type keeps fmt.Stringer free.)
func (p *ParameterSet) Str(name string) string {
	v, ok := p.values[name]
	if !ok {
		panic(fmt.Sprintf("sim: parameter set %q has no field %q", p.schema.name, name))
	}
	s, ok := v.(string)
	if !ok {
		panic(fmt.Sprintf("sim: field %q of %q is %T, not string", name, p.schema.name, v))
	}
	return s
}

// Model returns the named nested parameter set, with the same panic
// contract as Float.
func (p *ParameterSet) Model(name string) *ParameterSet {
	v, ok := p.values[name]
	if !ok {
		panic(fmt.Sprintf("sim: parameter set %q has no field %q", p.schema.name, name))
	}
	m, ok := v.(*ParameterSet)
	if !ok {
		panic(fmt.Sprintf("sim: field %q of %q is %T, not a nested model", name, p.schema.name, v))
	}
	return m
}

// Canonical returns the full field map with nested models expanded to
// plain maps. The result is a fresh copy on every call.
func (p *ParameterSet) Canonical() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		if nested, ok := v.(*ParameterSet); ok {
			out[k] = nested.Canonical()
			continue
		}
		out[k] = v
	}
	return out
}

// Equal reports value equality of the two sets' canonical field maps.
func (p *ParameterSet) Equal(other *ParameterSet) bool {
	if p == nil || other == nil {
		return p == other
	}
	return reflect.DeepEqual(p.Canonical(), other.Canonical())
}

// ParameterChange tags a sparse field overlay with the time it takes
// effect. Only keys explicitly present in Params are applied; month 0
// reads as January.
type ParameterChange struct {
	Year   int            `yaml:"year"`
	Month  int            `yaml:"month"`
	Params map[string]any `yaml:"params"`
}

// Time converts the (year, month) tag to a fractional year.
func (c ParameterChange) Time() float64 {
	month := c.Month
	if month == 0 {
		month = 1
	}
	return float64(c.Year) + float64(month-1)/12
}

// validateSparse coerces the keys of raw that the schema declares,
// recursing into nested models. Keys the schema does not declare are
// dropped; absent fields stay absent.
func (s *Schema) validateSparse(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for _, f := range s.fields {
		v, ok := raw[f.Name]
		if !ok {
			continue
		}
		if f.Kind == KindModel {
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: field %q: cannot use %T as %s", ErrValidation, f.Name, v, f.Kind)
			}
			sub, err := f.Sub.validateSparse(m)
			if err != nil {
				return nil, err
			}
			out[f.Name] = sub
			continue
		}
		cv, err := f.coerce(v)
		if err != nil {
			return nil, err
		}
		out[f.Name] = cv
	}
	return out, nil
}

// ApplyChanges folds an ordered sequence of sparse changes over an
// initial parameter set and returns a new, fully validated set. Each
// change overlays only the fields it explicitly carries; a later change
// wins over an earlier one for the same field. An empty change list
// returns a set equal to the input. Change maps are validated against
// the schema's derived update schema, so read-only fields are never
// overridable targets.
func ApplyChanges(initial *ParameterSet, changes []ParameterChange) (*ParameterSet, error) {
	merged := initial.Canonical()
	update := initial.schema.UpdateSchema()
	for i, change := range changes {
		sparse, err := update.validateSparse(change.Params)
		if err != nil {
			return nil, fmt.Errorf("change %d (%d-%02d): %w", i, change.Year, change.Month, err)
		}
		// top-level overlay: a nested model present in the change
		// replaces the nested map wholesale
		for k, v := range sparse {
			merged[k] = v
		}
	}
	return NewParameterSet(initial.schema, merged)
}
