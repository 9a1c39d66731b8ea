package load

import (
	"context"
	"fmt"
	"slices"
)

// Schema is a snapshot of a host model: the entities it declares together with
// their properties and keys. It is plain data and can be stored as JSON, YAML
// or msgpack.
type Schema struct {
	Entities []*Entity `json:"entities,omitempty" yaml:"entities,omitempty" msgpack:"entities,omitempty"`
}

// Entity describes one model class.
type Entity struct {
	// Name is the class name, e.g. "TodoItem".
	Name string `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`
	// Namespace the class is declared in.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty" msgpack:"namespace,omitempty"`
	// Base is the direct base classification of the class. Deeper ancestors
	// are not recorded.
	Base string `json:"base,omitempty" yaml:"base,omitempty" msgpack:"base,omitempty"`
	// Abstract reports that the class cannot be instantiated.
	Abstract bool `json:"abstract,omitempty" yaml:"abstract,omitempty" msgpack:"abstract,omitempty"`
	// PrimaryKey holds the key property names in key order.
	PrimaryKey []string `json:"primaryKey,omitempty" yaml:"primaryKey,omitempty" msgpack:"primaryKey,omitempty"`
	// Properties holds the declared properties.
	Properties []*Property `json:"properties,omitempty" yaml:"properties,omitempty" msgpack:"properties,omitempty"`
}

// Property describes one declared property of an entity.
type Property struct {
	Name           string         `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`
	Type           *TypeRef       `json:"type,omitempty" yaml:"type,omitempty" msgpack:"type,omitempty"`
	Nullable       bool           `json:"nullable,omitempty" yaml:"nullable,omitempty" msgpack:"nullable,omitempty"`
	FixedLength    bool           `json:"fixedLength,omitempty" yaml:"fixedLength,omitempty" msgpack:"fixedLength,omitempty"`
	MaxLength      *int           `json:"maxLength,omitempty" yaml:"maxLength,omitempty" msgpack:"maxLength,omitempty"`
	ValueGenerated ValueGenerated `json:"valueGenerated,omitempty" yaml:"valueGenerated,omitempty" msgpack:"valueGenerated,omitempty"`
	ReadOnly       bool           `json:"readOnly,omitempty" yaml:"readOnly,omitempty" msgpack:"readOnly,omitempty"`
	WriteOnly      bool           `json:"writeOnly,omitempty" yaml:"writeOnly,omitempty" msgpack:"writeOnly,omitempty"`
	// Order is the declaration index of the property within its entity.
	Order int `json:"order,omitempty" yaml:"order,omitempty" msgpack:"order,omitempty"`
}

// ValueGenerated tells when the store generates a value for a property.
type ValueGenerated string

// Value generation modes.
const (
	ValueNever    ValueGenerated = "never"
	ValueOnAdd    ValueGenerated = "onAdd"
	ValueOnUpdate ValueGenerated = "onUpdate"
)

// Never reports whether callers must supply the value themselves.
// The empty mode is treated as never.
func (v ValueGenerated) Never() bool { return v == "" || v == ValueNever }

// Valid reports whether v is a known mode.
func (v ValueGenerated) Valid() bool {
	switch v {
	case "", ValueNever, ValueOnAdd, ValueOnUpdate:
		return true
	}
	return false
}

// Readable reports whether the property has a getter.
func (p *Property) Readable() bool { return !p.WriteOnly }

// Writable reports whether the property has a setter.
func (p *Property) Writable() bool { return !p.ReadOnly }

// SchemaProvider exposes the read-only metadata surface of a host model.
type SchemaProvider interface {
	// Entities returns the entity classes of the model in a stable order.
	Entities(ctx context.Context) ([]*Entity, error)
}

// StaticProvider serves a fixed list of entities. It is used for snapshots
// decoded from files and in tests.
type StaticProvider []*Entity

// Entities implements SchemaProvider.
func (p StaticProvider) Entities(context.Context) ([]*Entity, error) {
	return p, nil
}

// normalize assigns declaration indexes when none were recorded and checks
// the value generation modes.
func (s *Schema) normalize() error {
	for _, e := range s.Entities {
		if e == nil {
			return fmt.Errorf("schema: nil entity")
		}
		ordered := slices.ContainsFunc(e.Properties, func(p *Property) bool { return p != nil && p.Order != 0 })
		for i, p := range e.Properties {
			if p == nil {
				return fmt.Errorf("entity %q: nil property at index %d", e.Name, i)
			}
			if !ordered {
				p.Order = i
			}
			if !p.ValueGenerated.Valid() {
				return fmt.Errorf("entity %q property %q: unknown value generation mode %q", e.Name, p.Name, p.ValueGenerated)
			}
		}
	}
	return nil
}
