package gen

import (
	"maps"
	"slices"
)

// DefaultAuditFields returns the audit stamps of an auditable entity.
func DefaultAuditFields() []string {
	return []string{"CreatedBy", "Created", "LastModifiedBy", "LastModified"}
}

// DefaultCreateExclusions returns the properties create commands omit: the
// identity and the audit stamps.
func DefaultCreateExclusions() []string {
	return append([]string{"Id"}, DefaultAuditFields()...)
}

// DefaultUpdateExclusions returns the properties update commands omit.
// The identity is kept to address the target.
func DefaultUpdateExclusions() []string { return DefaultAuditFields() }

// ExclusionRuleSet holds the property names excluded from one operation:
// a global set plus additional names per entity.
type ExclusionRuleSet struct {
	global   map[string]struct{}
	entities map[string]map[string]struct{}
}

// NewExclusionRuleSet returns a rule set excluding the given names globally.
func NewExclusionRuleSet(global ...string) *ExclusionRuleSet {
	return &ExclusionRuleSet{
		global:   names(global...),
		entities: make(map[string]map[string]struct{}),
	}
}

// Exclude adds names to the global set.
func (s *ExclusionRuleSet) Exclude(names ...string) *ExclusionRuleSet {
	for _, n := range names {
		s.global[n] = struct{}{}
	}
	return s
}

// ExcludeFor adds names excluded for entity only.
func (s *ExclusionRuleSet) ExcludeFor(entity string, names ...string) *ExclusionRuleSet {
	set, ok := s.entities[entity]
	if !ok {
		set = make(map[string]struct{}, len(names))
		s.entities[entity] = set
	}
	for _, n := range names {
		set[n] = struct{}{}
	}
	return s
}

// Global returns the globally excluded names, sorted.
func (s *ExclusionRuleSet) Global() []string {
	return slices.Sorted(maps.Keys(s.global))
}

// Effective returns the names excluded for entity, global ∪ per-entity,
// sorted.
func (s *ExclusionRuleSet) Effective(entity string) []string {
	all := maps.Clone(s.global)
	maps.Copy(all, s.entities[entity])
	return slices.Sorted(maps.Keys(all))
}

// Contains reports whether property is excluded for entity.
func (s *ExclusionRuleSet) Contains(entity, property string) bool {
	if _, ok := s.global[property]; ok {
		return true
	}
	_, ok := s.entities[entity][property]
	return ok
}

func (s *ExclusionRuleSet) clone() *ExclusionRuleSet {
	c := &ExclusionRuleSet{
		global:   maps.Clone(s.global),
		entities: make(map[string]map[string]struct{}, len(s.entities)),
	}
	for e, set := range s.entities {
		c.entities[e] = maps.Clone(set)
	}
	return c
}

// ExclusionPolicy decides which properties a command of an operation
// omits. Delete has no rule set: delete commands carry the primary key only.
type ExclusionPolicy struct {
	create *ExclusionRuleSet
	update *ExclusionRuleSet
}

// NewExclusionPolicy returns a policy from the create and update rule sets.
// A nil set excludes nothing.
func NewExclusionPolicy(create, update *ExclusionRuleSet) *ExclusionPolicy {
	if create == nil {
		create = NewExclusionRuleSet()
	}
	if update == nil {
		update = NewExclusionRuleSet()
	}
	return &ExclusionPolicy{create: create, update: update}
}

// DefaultExclusionPolicy returns the policy with the default exclusions.
func DefaultExclusionPolicy() *ExclusionPolicy {
	return NewExclusionPolicy(
		NewExclusionRuleSet(DefaultCreateExclusions()...),
		NewExclusionRuleSet(DefaultUpdateExclusions()...),
	)
}

// RuleSet returns the rule set of op, or nil for operations without one.
func (p *ExclusionPolicy) RuleSet(op Operation) *ExclusionRuleSet {
	switch op {
	case OpCreate:
		return p.create
	case OpUpdate:
		return p.update
	default:
		return nil
	}
}

// IsExcluded reports whether property is omitted from the op command of
// entity.
func (p *ExclusionPolicy) IsExcluded(op Operation, entity, property string) bool {
	s := p.RuleSet(op)
	return s != nil && s.Contains(entity, property)
}

// Effective returns the names excluded from the op command of entity.
func (p *ExclusionPolicy) Effective(op Operation, entity string) []string {
	if s := p.RuleSet(op); s != nil {
		return s.Effective(entity)
	}
	return nil
}

func (p *ExclusionPolicy) clone() *ExclusionPolicy {
	return &ExclusionPolicy{create: p.create.clone(), update: p.update.clone()}
}
