package gen

import (
	"strconv"
	"strings"

	"github.com/syssam/cqrsgen/compiler/load"
)

// RuleKind is a validation rule derived from a schema constraint.
type RuleKind string

// Rule kinds, named after the validator methods they render to.
const (
	RuleNotEmpty      RuleKind = "NotEmpty"
	RuleNotNull       RuleKind = "NotNull"
	RuleLength        RuleKind = "Length"
	RuleMaximumLength RuleKind = "MaximumLength"
)

// Rule is one validation rule. Arg holds the bound of length rules.
type Rule struct {
	Kind RuleKind
	Arg  int
}

// String renders the rule call, e.g. "MaximumLength(200)".
func (r Rule) String() string {
	switch r.Kind {
	case RuleLength, RuleMaximumLength:
		return string(r.Kind) + "(" + strconv.Itoa(r.Arg) + ")"
	default:
		return string(r.Kind) + "()"
	}
}

// RuleGroup holds the rules of one property, in derivation order.
type RuleGroup struct {
	Property string
	Rules    []Rule
}

// String renders the group as one rule chain:
//
//	RuleFor(v => v.Title)
//		.NotEmpty()
//		.MaximumLength(200);
func (g RuleGroup) String() string {
	var b strings.Builder
	b.WriteString("RuleFor(v => v.")
	b.WriteString(g.Property)
	b.WriteByte(')')
	for _, r := range g.Rules {
		b.WriteString(ruleIndent)
		b.WriteByte('.')
		b.WriteString(r.String())
	}
	b.WriteByte(';')
	return b.String()
}

// DeriveRules returns the validation rules of a property. Only properties
// the caller must supply get rules. A required rule comes first when the
// property is neither nullable nor a value type, then an exact or maximum
// length rule. A fixed length takes precedence over a maximum.
func DeriveRules(p *load.Property) []Rule {
	if p == nil || !p.ValueGenerated.Never() {
		return nil
	}
	var out []Rule
	if !p.Nullable && (p.Type == nil || !p.Type.ValueType) {
		if p.Type != nil && p.Type.IsString() {
			out = append(out, Rule{Kind: RuleNotEmpty})
		} else {
			out = append(out, Rule{Kind: RuleNotNull})
		}
	}
	switch {
	case p.MaxLength == nil:
	case p.FixedLength:
		out = append(out, Rule{Kind: RuleLength, Arg: *p.MaxLength})
	default:
		out = append(out, Rule{Kind: RuleMaximumLength, Arg: *p.MaxLength})
	}
	return out
}

// DeriveRuleGroups returns one group per field with at least one rule, in
// field order.
func DeriveRuleGroups(fields []*Field) []RuleGroup {
	var groups []RuleGroup
	for _, f := range fields {
		if rs := DeriveRules(f.def); len(rs) > 0 {
			groups = append(groups, RuleGroup{Property: f.Name, Rules: rs})
		}
	}
	return groups
}
