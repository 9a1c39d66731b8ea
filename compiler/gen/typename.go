package gen

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/syssam/cqrsgen/compiler/load"
)

// DefaultTypeMappings returns the table mapping framework primitives to
// their keyword spelling. Every call returns a new map.
func DefaultTypeMappings() map[string]string {
	return map[string]string{
		"System.SByte":   "sbyte",
		"System.Int16":   "short",
		"System.Int32":   "int",
		"System.Int64":   "long",
		"System.Byte":    "byte",
		"System.UInt16":  "ushort",
		"System.UInt32":  "uint",
		"System.UInt64":  "ulong",
		"System.Char":    "char",
		"System.Single":  "float",
		"System.Double":  "double",
		"System.Decimal": "decimal",
		"System.Boolean": "bool",
		"System.String":  "string",
	}
}

// Namespaces is an insertion-ordered set of namespaces a generated file
// needs. Duplicates are dropped on exact match.
type Namespaces struct {
	list []string
	seen map[string]struct{}
}

// NewNamespaces returns a set holding the given namespaces.
func NewNamespaces(initial ...string) *Namespaces {
	n := &Namespaces{seen: make(map[string]struct{})}
	n.Add(initial...)
	return n
}

// Add appends the namespaces not yet in the set. Empty names are ignored.
func (n *Namespaces) Add(names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := n.seen[name]; ok {
			continue
		}
		n.seen[name] = struct{}{}
		n.list = append(n.list, name)
	}
}

// Contains reports whether name is in the set.
func (n *Namespaces) Contains(name string) bool {
	_, ok := n.seen[name]
	return ok
}

// Len returns the number of namespaces.
func (n *Namespaces) Len() int { return len(n.list) }

// List returns the namespaces in insertion order.
func (n *Namespaces) List() []string { return slices.Clone(n.list) }

// Usings renders one using directive per line.
func (n *Namespaces) Usings() string {
	var b strings.Builder
	for i, name := range n.list {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("using ")
		b.WriteString(name)
		b.WriteByte(';')
	}
	return b.String()
}

// TypeResolver turns model types into declaration strings. It is safe for
// concurrent use.
type TypeResolver struct {
	mappings map[string]string
	log      *slog.Logger
}

// NewTypeResolver returns a resolver over a copy of the given mapping table,
// keyed by qualified type name.
func NewTypeResolver(mappings map[string]string, log *slog.Logger) *TypeResolver {
	if log == nil {
		log = discardLogger
	}
	return &TypeResolver{mappings: maps.Clone(mappings), log: log}
}

// Resolve returns the declaration string of t and records the namespaces it
// requires in ns, which may be nil. Unmapped types use their declared name.
// Generic arity markers are stripped and arguments resolved recursively; a
// nullable wrapper around a value type becomes Nullable<inner>.
func (r *TypeResolver) Resolve(t *load.TypeRef, ns *Namespaces) string {
	if t == nil {
		return ""
	}
	name, ok := r.mappings[t.QualifiedName()]
	if !ok {
		name = t.Name
	}
	var args []string
	if t.IsGeneric() {
		if i := strings.IndexByte(name, '`'); i >= 0 {
			name = name[:i]
		}
		args = make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = r.Resolve(a, ns)
		}
		if len(args) > 0 {
			name += "<" + strings.Join(args, ", ") + ">"
		}
	}
	if t.IsNullable() {
		name = "Nullable<" + args[0] + ">"
	}
	if !ok && !t.IsGeneric() {
		r.log.Debug("unmapped type, using declared name", "type", t.QualifiedName(), "name", name)
	}
	if ns != nil {
		ns.Add(t.Namespace)
	}
	return name
}
