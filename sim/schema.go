package sim

import "fmt"

// Kind identifies the value type a schema field accepts.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindBool
	KindString
	// KindModel marks a nested parameter set; the field carries its own
	// sub-schema.
	KindModel
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindModel:
		return "model"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field declares one named parameter in a Schema. Read-only fields are
// fixed after initial configuration: they are excluded from the derived
// update schema and watched by ReadOnlyDifferences.
type Field struct {
	Name       string
	Kind       Kind
	ReadOnly   bool
	Sub        *Schema // sub-schema, required when Kind == KindModel
	Default    any
	HasDefault bool
}

// FloatField declares a float64 parameter.
func FloatField(name string) Field { return Field{Name: name, Kind: KindFloat} }

// IntField declares an int parameter.
func IntField(name string) Field { return Field{Name: name, Kind: KindInt} }

// BoolField declares a bool parameter.
func BoolField(name string) Field { return Field{Name: name, Kind: KindBool} }

// StringField declares a string parameter.
func StringField(name string) Field { return Field{Name: name, Kind: KindString} }

// ModelField declares a nested parameter set validated against sub.
func ModelField(name string, sub *Schema) Field {
	return Field{Name: name, Kind: KindModel, Sub: sub}
}

// WithDefault makes the field optional, filling v when the raw map
// omits it. Model fields take a map[string]any default.
func (f Field) WithDefault(v any) Field {
	f.Default = v
	f.HasDefault = true
	return f
}

// AsReadOnly marks the field as fixed after initial configuration.
func (f Field) AsReadOnly() Field {
	f.ReadOnly = true
	return f
}

// Schema is the declared shape of a ParameterSet: an ordered list of
// named, typed fields, some of them read-only, some nested.
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from the declared fields. Field names must
// be unique and model fields must carry a sub-schema.
func NewSchema(name string, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: schema name must not be empty", ErrConfiguration)
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: schema %q: field %d has no name", ErrConfiguration, name, i)
		}
		if _, dup := index[f.Name]; dup {
			return nil, fmt.Errorf("%w: schema %q: duplicate field %q", ErrConfiguration, name, f.Name)
		}
		if f.Kind == KindModel && f.Sub == nil {
			return nil, fmt.Errorf("%w: schema %q: model field %q has no sub-schema", ErrConfiguration, name, f.Name)
		}
		if f.Kind != KindModel && f.Sub != nil {
			return nil, fmt.Errorf("%w: schema %q: field %q carries a sub-schema but is not a model", ErrConfiguration, name, f.Name)
		}
		index[f.Name] = i
	}
	return &Schema{name: name, fields: fields, index: index}, nil
}

// MustSchema is NewSchema that panics on error, for package-level
// schema declarations.
func MustSchema(name string, fields ...Field) *Schema {
	s, err := NewSchema(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema's declared name, used as the root of dotted
// paths in diagnostics.
func (s *Schema) Name() string { return s.name }

// Fields returns the declared fields in order.
func (s *Schema) Fields() []Field { return s.fields }

// Field looks up a declared field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// UpdateSchema derives the companion partial-update schema: every
// mutable field reappears as an optional field with no default,
// recursing into nested schemas. Read-only fields are dropped, so they
// can never be targets of a change overlay.
func (s *Schema) UpdateSchema() *Schema {
	fields := make([]Field, 0, len(s.fields))
	for _, f := range s.fields {
		if f.ReadOnly {
			continue
		}
		uf := Field{Name: f.Name, Kind: f.Kind}
		if f.Kind == KindModel {
			uf.Sub = f.Sub.UpdateSchema()
		}
		fields = append(fields, uf)
	}
	upd, err := NewSchema("Update"+s.name, fields...)
	if err != nil {
		// unreachable: fields derive from an already valid schema
		panic(err)
	}
	return upd
}

// coerce normalizes a raw value to the field's canonical Go type.
func (f Field) coerce(v any) (any, error) {
	switch f.Kind {
	case KindFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case KindInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n == float64(int(n)) {
				return int(n), nil
			}
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindModel:
		switch m := v.(type) {
		case map[string]any:
			return NewParameterSet(f.Sub, m)
		case *ParameterSet:
			return NewParameterSet(f.Sub, m.Canonical())
		}
	}
	return nil, fmt.Errorf("%w: field %q: cannot use %T as %s", ErrValidation, f.Name, v, f.Kind)
}
