package gen

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

// =============================================================================
// Helper functions
// =============================================================================

// rules pluralizes entity names for entity sets and output directories.
var rules = inflect.NewDefaultRuleset()

func names(ids ...string) map[string]struct{} {
	m := make(map[string]struct{})
	for i := range ids {
		m[ids[i]] = struct{}{}
	}
	return m
}

// isIdentifier reports whether name is a valid identifier in the generated
// language: a letter or underscore followed by letters, digits or underscores.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// ValidEntityName reports whether name can be used as an entity name. Entity
// names become class names and path segments of the generated files.
func ValidEntityName(name string) error {
	if name == "" {
		return errors.New("entity name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("entity name %q contains path separator characters", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("entity name %q contains parent directory reference", name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("entity name %q cannot start with a dot", name)
	}
	if !isIdentifier(name) {
		return fmt.Errorf("entity name %q is not a valid identifier", name)
	}
	if _, ok := keywords[name]; ok {
		return fmt.Errorf("entity name conflicts with keyword %q", name)
	}
	return nil
}

// validPropertyName reports whether name can be used as a generated property.
func validPropertyName(name string) error {
	if !isIdentifier(name) {
		return fmt.Errorf("property name %q is not a valid identifier", name)
	}
	if _, ok := keywords[name]; ok {
		return fmt.Errorf("property name conflicts with keyword %q", name)
	}
	return nil
}

// =============================================================================
// Global variables
// =============================================================================

// keywords of the generated language that cannot be used as identifiers.
var keywords = names(
	"abstract", "as", "base", "bool", "break", "byte", "case", "catch",
	"char", "checked", "class", "const", "continue", "decimal", "default",
	"delegate", "do", "double", "else", "enum", "event", "explicit", "extern",
	"false", "finally", "fixed", "float", "for", "foreach", "goto", "if",
	"implicit", "in", "int", "interface", "internal", "is", "lock", "long",
	"namespace", "new", "null", "object", "operator", "out", "override",
	"params", "private", "protected", "public", "readonly", "ref", "return",
	"sbyte", "sealed", "short", "sizeof", "stackalloc", "static", "string",
	"struct", "switch", "this", "throw", "true", "try", "typeof", "uint",
	"ulong", "unchecked", "unsafe", "ushort", "using", "virtual", "void",
	"volatile", "while",
)
