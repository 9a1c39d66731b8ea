package gen

import "strings"

// Indentation of multi-line content blocks, matching the layout of the
// template documents.
const (
	propertyIndent   = "\n\t\t"
	assignmentIndent = "\n\t\t\t\t"
	statementIndent  = "\n\t\t\t"
	ruleIndent       = "\n\t\t\t\t"
	ruleGroupIndent  = "\n\n\t\t\t"
)

// Content returns the content block of every token a template of kind k may
// use, for entity t. It fails when t has no primary key.
func (t *Type) Content(k ArtifactKind, r *TypeResolver) (map[Token]string, error) {
	if t.ID == nil {
		return nil, NewSchemaError(t.Name, "", "no primary key", nil)
	}
	op := k.Operation()
	fields := t.FieldsFor(op)
	ns := NewNamespaces(t.Namespaces(k)...)
	content := map[Token]string{
		TokenGenerationNamespace: t.GenerationNamespace,
		TokenDbContextInterface:  t.DbContextInterface,
		TokenClassName:           t.ClassName(k),
		TokenEntity:              t.Name,
		TokenEntitySet:           t.Plural(),
	}
	if k.IsValidator() {
		content[TokenValidationRules] = validationRules(fields)
		content[TokenNamespaces] = ns.Usings()
		return content, nil
	}
	content[TokenProperties] = properties(fields, r, ns)
	content[TokenPropertyAssignments] = assignments(op, fields)
	content[TokenPrimaryKey] = t.ID.Name
	// The return type resolves with its own accumulator, it does not add
	// usings to the command.
	content[TokenReturnType] = r.Resolve(t.ID.Type, nil)
	content[TokenNamespaces] = ns.Usings()
	return content, nil
}

// properties renders one auto-property per field.
func properties(fields []*Field, r *TypeResolver, ns *Namespaces) string {
	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = "public " + r.Resolve(f.Type, ns) + " " + f.Name + " { set; get; }"
	}
	return strings.Join(lines, propertyIndent)
}

// assignments renders the copy of request values into the entity. Create
// uses object initializer members, update assigns the loaded entity and
// skips the key, delete copies nothing.
func assignments(op Operation, fields []*Field) string {
	var lines []string
	switch op {
	case OpCreate:
		for _, f := range fields {
			lines = append(lines, f.Name+" = request."+f.Name+",")
		}
		return strings.Join(lines, assignmentIndent)
	case OpUpdate:
		for _, f := range fields {
			if f.IsKey() {
				continue
			}
			lines = append(lines, "entity."+f.Name+" = request."+f.Name+";")
		}
		return strings.Join(lines, statementIndent)
	default:
		return ""
	}
}

// validationRules renders the rule groups of the fields.
func validationRules(fields []*Field) string {
	groups := DeriveRuleGroups(fields)
	chains := make([]string, len(groups))
	for i, g := range groups {
		chains[i] = g.String()
	}
	return strings.Join(chains, ruleGroupIndent)
}
