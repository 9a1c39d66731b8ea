package gen

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/cqrsgen/compiler/load"
)

// The following types and their exported methods are used by the generator
// to build the content blocks of each artifact.
type (
	// Graph holds the entities selected for generation, in provider order.
	Graph struct {
		*Config
		// Nodes are the selected entities with a valid declaration.
		Nodes []*Type
		// Rejected maps the selected entities with an invalid declaration
		// to their schema error. They fail when the graph is generated.
		Rejected map[string]error
		// entries holds every selected entity in provider order.
		entries []*graphEntry
	}

	graphEntry struct {
		name string
		typ  *Type
		err  error
	}

	// Type represents one selected entity and the information it holds.
	Type struct {
		*Config
		entity *load.Entity
		// Name holds the entity name.
		Name string
		// Namespace the entity is declared in.
		Namespace string
		// ID is the first declared primary-key field. Nil when the entity
		// has no primary key, which is reported when it is generated.
		ID *Field
		// Keys holds every primary-key field in key order.
		Keys []*Field
		// Fields holds all declared properties in declaration order.
		Fields []*Field
		fields map[string]*Field
	}

	// Field holds the information of an entity property.
	Field struct {
		def *load.Property
		typ *Type
		// Name is the property name.
		Name string
		// Type is the declared model type.
		Type *load.TypeRef
		// Nullable indicates the store accepts null.
		Nullable bool
		// FixedLength indicates MaxLength is an exact length.
		FixedLength bool
		// MaxLength is the declared length bound, if any.
		MaxLength *int
		// ValueGenerated tells when the store generates the value.
		ValueGenerated load.ValueGenerated
		// Order is the declaration index.
		Order int
	}
)

// NewGraph enumerates the provider's entities and keeps the ones selected
// by the configuration, in provider order. A selected entity whose
// declaration is invalid is recorded in Rejected instead of failing the
// graph; a nil or redeclared entity fails it.
func NewGraph(ctx context.Context, c *Config, p load.SchemaProvider) (*Graph, error) {
	entities, err := p.Entities(ctx)
	if err != nil {
		return nil, fmt.Errorf("cqrsgen: enumerate entities: %w", err)
	}
	g := &Graph{Config: c, Rejected: make(map[string]error)}
	seen := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		if e == nil {
			return nil, NewSchemaError("", "", "nil entity", nil)
		}
		if !c.Selectable(e) {
			c.logger().Debug("skip entity", "entity", e.Name, "namespace", e.Namespace, "base", e.Base, "abstract", e.Abstract)
			continue
		}
		if _, ok := seen[e.Name]; ok {
			return nil, NewSchemaError(e.Name, "", "entity redeclared", nil)
		}
		seen[e.Name] = struct{}{}
		t, err := NewType(c, e)
		if err != nil {
			c.logger().Debug("reject entity", "entity", e.Name, "error", err)
			g.Rejected[e.Name] = err
			g.entries = append(g.entries, &graphEntry{name: e.Name, err: err})
			continue
		}
		g.Nodes = append(g.Nodes, t)
		g.entries = append(g.entries, &graphEntry{name: e.Name, typ: t})
	}
	return g, nil
}

// Selectable reports whether e is generated: a concrete class declared in
// the entity namespace whose direct base is the auditable marker.
func (c *Config) Selectable(e *load.Entity) bool {
	return !e.Abstract && e.Base == c.AuditableBase && e.Namespace == c.EntityNamespace
}

// NewType creates a new type and its fields from the given entity.
func NewType(c *Config, e *load.Entity) (*Type, error) {
	if err := ValidEntityName(e.Name); err != nil {
		return nil, NewSchemaError(e.Name, "", "invalid name", err)
	}
	typ := &Type{
		Config:    c,
		entity:    e,
		Name:      e.Name,
		Namespace: e.Namespace,
		Fields:    make([]*Field, 0, len(e.Properties)),
		fields:    make(map[string]*Field, len(e.Properties)),
	}
	for i, p := range e.Properties {
		if p == nil {
			return nil, NewSchemaError(e.Name, "", fmt.Sprintf("nil property at index %d", i), nil)
		}
	}
	props := slices.Clone(e.Properties)
	slices.SortStableFunc(props, func(a, b *load.Property) int { return a.Order - b.Order })
	for _, p := range props {
		if err := typ.checkField(p); err != nil {
			return nil, err
		}
		f := &Field{
			def:            p,
			typ:            typ,
			Name:           p.Name,
			Type:           p.Type,
			Nullable:       p.Nullable,
			FixedLength:    p.FixedLength,
			MaxLength:      p.MaxLength,
			ValueGenerated: p.ValueGenerated,
			Order:          p.Order,
		}
		typ.Fields = append(typ.Fields, f)
		typ.fields[f.Name] = f
	}
	for _, name := range e.PrimaryKey {
		f, ok := typ.fields[name]
		if !ok {
			return nil, NewSchemaError(e.Name, name, "unknown primary key property", nil)
		}
		typ.Keys = append(typ.Keys, f)
	}
	if len(typ.Keys) > 0 {
		typ.ID = typ.Keys[0]
	}
	return typ, nil
}

// checkField checks the entity property.
func (t *Type) checkField(p *load.Property) error {
	switch {
	case p.Name == "":
		return NewSchemaError(t.Name, "", "property name cannot be empty", nil)
	case p.Type == nil || p.Type.Name == "":
		return NewSchemaError(t.Name, p.Name, "missing type", nil)
	case t.fields[p.Name] != nil:
		return NewSchemaError(t.Name, p.Name, "property redeclared", nil)
	}
	if err := validPropertyName(p.Name); err != nil {
		return NewSchemaError(t.Name, p.Name, "invalid name", err)
	}
	return nil
}

// =============================================================================
// Type methods
// =============================================================================

// Plural returns the entity set name, e.g. "TodoItems".
func (t *Type) Plural() string {
	return rules.Pluralize(t.Name)
}

// ClassName returns the class name of the command an artifact belongs to,
// e.g. "CreateTodoItemCommand". Validators share the name of their command.
func (t *Type) ClassName(k ArtifactKind) string {
	return string(k.Operation()) + t.Name + ModeCommands.Suffix()
}

// Field returns the field with the given name.
func (t *Type) Field(name string) (*Field, bool) {
	f, ok := t.fields[name]
	return f, ok
}

// FieldsFor returns the fields a command of op carries, in declaration
// order. Delete commands carry the primary key only. Create commands never
// carry the primary key.
func (t *Type) FieldsFor(op Operation) []*Field {
	if op == OpDelete {
		if t.ID == nil {
			return nil
		}
		return []*Field{t.ID}
	}
	policy := t.Exclusions()
	fields := make([]*Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		switch {
		case !f.Readable() || !f.Writable():
		case op == OpCreate && f == t.ID:
		case policy.IsExcluded(op, t.Name, f.Name):
		default:
			fields = append(fields, f)
		}
	}
	return fields
}

// =============================================================================
// Field methods
// =============================================================================

// Readable reports whether the property has a getter.
func (f *Field) Readable() bool { return f.def.Readable() }

// Writable reports whether the property has a setter.
func (f *Field) Writable() bool { return f.def.Writable() }

// IsKey reports whether the field is part of the primary key.
func (f *Field) IsKey() bool {
	return slices.Contains(f.typ.Keys, f)
}

// Rules returns the validation rules derived for the field.
func (f *Field) Rules() []Rule {
	return DeriveRules(f.def)
}
