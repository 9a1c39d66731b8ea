package load

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// TypeRef describes a host model type: its declared name, the namespace that
// declares it, its generic arguments and whether it is a value type.
//
// A generic name may carry an arity marker, e.g. "List`1".
type TypeRef struct {
	Name      string     `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`
	Namespace string     `json:"namespace,omitempty" yaml:"namespace,omitempty" msgpack:"namespace,omitempty"`
	Args      []*TypeRef `json:"args,omitempty" yaml:"args,omitempty" msgpack:"args,omitempty"`
	ValueType bool       `json:"valueType,omitempty" yaml:"valueType,omitempty" msgpack:"valueType,omitempty"`
}

// builtinValueTypes are the framework structs recognized in shorthand form.
var builtinValueTypes = map[string]struct{}{
	"System.Boolean":        {},
	"System.Byte":           {},
	"System.SByte":          {},
	"System.Char":           {},
	"System.Int16":          {},
	"System.Int32":          {},
	"System.Int64":          {},
	"System.UInt16":         {},
	"System.UInt32":         {},
	"System.UInt64":         {},
	"System.Single":         {},
	"System.Double":         {},
	"System.Decimal":        {},
	"System.DateTime":       {},
	"System.DateTimeOffset": {},
	"System.DateOnly":       {},
	"System.TimeOnly":       {},
	"System.TimeSpan":       {},
	"System.Guid":           {},
	"System.Nullable`1":     {},
}

// Type returns a TypeRef for a qualified name such as "System.Int32".
// Builtin framework structs are marked as value types.
func Type(qualified string, args ...*TypeRef) *TypeRef {
	ns, name := splitQualified(qualified)
	t := &TypeRef{Name: name, Namespace: ns, Args: args}
	t.markBuiltin()
	return t
}

// Nullable wraps t in System.Nullable`1.
func Nullable(t *TypeRef) *TypeRef {
	return Type("System.Nullable`1", t)
}

// ValueOf returns a value TypeRef for a qualified name, e.g. an enum.
func ValueOf(qualified string) *TypeRef {
	t := Type(qualified)
	t.ValueType = true
	return t
}

// QualifiedName returns "Namespace.Name", or Name when the namespace is empty.
func (t *TypeRef) QualifiedName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// BaseName returns the declared name without its arity marker.
func (t *TypeRef) BaseName() string {
	if i := strings.IndexByte(t.Name, '`'); i >= 0 {
		return t.Name[:i]
	}
	return t.Name
}

// IsGeneric reports whether t is a generic instantiation.
func (t *TypeRef) IsGeneric() bool {
	return len(t.Args) > 0 || strings.IndexByte(t.Name, '`') >= 0
}

// IsNullable reports whether t is the nullable wrapper around exactly one
// value type.
func (t *TypeRef) IsNullable() bool {
	return t.Namespace == "System" && t.BaseName() == "Nullable" &&
		len(t.Args) == 1 && t.Args[0] != nil && t.Args[0].ValueType
}

// IsString reports whether t is the framework string type.
func (t *TypeRef) IsString() bool {
	return t.Namespace == "System" && t.Name == "String"
}

// String returns the shorthand notation of t, e.g.
// "System.Nullable`1<System.DateTime>".
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	if len(t.Args) == 0 {
		return t.QualifiedName()
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return t.QualifiedName() + "<" + strings.Join(args, ", ") + ">"
}

// ParseType parses the shorthand notation "Namespace.Name<Arg, ...>".
// The arity marker may be omitted for generic names; it is added from the
// argument count.
func ParseType(s string) (*TypeRef, error) {
	p := &typeParser{s: s}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.skipSpace(); p.pos != len(p.s) {
		return nil, fmt.Errorf("type %q: unexpected %q at offset %d", s, p.s[p.pos:], p.pos)
	}
	return t, nil
}

type typeParser struct {
	s   string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) parse() (*TypeRef, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune("<>, ", rune(p.s[p.pos])) {
		p.pos++
	}
	head := p.s[start:p.pos]
	if head == "" {
		return nil, fmt.Errorf("type %q: missing name at offset %d", p.s, start)
	}
	var args []*TypeRef
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == '<' {
		p.pos++
		for {
			a, err := p.parse()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			p.skipSpace()
			if p.pos >= len(p.s) {
				return nil, fmt.Errorf("type %q: unterminated argument list", p.s)
			}
			if p.s[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.s[p.pos] == '>' {
				p.pos++
				break
			}
			return nil, fmt.Errorf("type %q: unexpected %q at offset %d", p.s, p.s[p.pos], p.pos)
		}
		if !strings.ContainsRune(head, '`') {
			head = fmt.Sprintf("%s`%d", head, len(args))
		}
	}
	return Type(head, args...), nil
}

func splitQualified(q string) (ns, name string) {
	// The arity marker never contains a dot, so the last dot before it
	// separates the namespace.
	base := q
	if i := strings.IndexByte(q, '`'); i >= 0 {
		base = q[:i]
	}
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return q[:i], q[i+1:]
	}
	return "", q
}

type typeRefFields TypeRef

// UnmarshalJSON accepts either the shorthand string or the object form.
func (t *TypeRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := ParseType(s)
		if err != nil {
			return err
		}
		*t = *parsed
		return nil
	}
	var f typeRefFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*t = TypeRef(f)
	t.markBuiltin()
	return nil
}

// markBuiltin flags builtin framework structs as value types when the
// object form left the flag out.
func (t *TypeRef) markBuiltin() {
	if _, ok := builtinValueTypes[t.QualifiedName()]; ok {
		t.ValueType = true
	}
}

// UnmarshalYAML accepts either the shorthand scalar or the mapping form.
func (t *TypeRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err := ParseType(node.Value)
		if err != nil {
			return err
		}
		*t = *parsed
		return nil
	case yaml.MappingNode:
		var f typeRefFields
		if err := node.Decode(&f); err != nil {
			return err
		}
		*t = TypeRef(f)
		t.markBuiltin()
		return nil
	default:
		return fmt.Errorf("line %d: type must be a string or a mapping", node.Line)
	}
}
