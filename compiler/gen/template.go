package gen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// Token is a placeholder name of a template document. In template text it
// appears as <#Name#>.
type Token string

// The closed set of placeholder tokens.
const (
	TokenNamespaces          Token = "Namespaces"
	TokenGenerationNamespace Token = "GenerationNamespace"
	TokenDbContextInterface  Token = "DbContextInterface"
	TokenClassName           Token = "ClassName"
	TokenEntity              Token = "Entity"
	TokenEntitySet           Token = "EntitySet"
	TokenReturnType          Token = "ReturnType"
	TokenPrimaryKey          Token = "PrimaryKey"
	TokenProperties          Token = "Properties"
	TokenPropertyAssignments Token = "PropertyAssignments"
	TokenValidationRules     Token = "ValidationRules"
)

// Placeholder returns the template spelling of t.
func (t Token) Placeholder() string { return "<#" + string(t) + "#>" }

var (
	commandTokens = []Token{
		TokenNamespaces, TokenGenerationNamespace, TokenDbContextInterface,
		TokenClassName, TokenEntity, TokenEntitySet, TokenReturnType,
		TokenPrimaryKey, TokenProperties, TokenPropertyAssignments,
	}
	validatorTokens = []Token{
		TokenNamespaces, TokenGenerationNamespace, TokenDbContextInterface,
		TokenClassName, TokenEntity, TokenEntitySet, TokenValidationRules,
	}
)

// Operation is the kind of change a command carries.
type Operation string

// Command operations.
const (
	OpCreate Operation = "Create"
	OpUpdate Operation = "Update"
	OpDelete Operation = "Delete"
)

// ArtifactKind identifies one generated file of an entity.
type ArtifactKind string

// Artifact kinds, in generation order.
const (
	CreateCommand   ArtifactKind = "createCommand"
	CreateValidator ArtifactKind = "createValidator"
	UpdateCommand   ArtifactKind = "updateCommand"
	UpdateValidator ArtifactKind = "updateValidator"
	DeleteCommand   ArtifactKind = "deleteCommand"
)

// ArtifactKinds lists every kind in the order artifacts are built.
var ArtifactKinds = []ArtifactKind{CreateCommand, CreateValidator, UpdateCommand, UpdateValidator, DeleteCommand}

// ParseArtifactKind validates an artifact kind name.
func ParseArtifactKind(name string) (ArtifactKind, error) {
	if k := ArtifactKind(name); slices.Contains(ArtifactKinds, k) {
		return k, nil
	}
	return "", fmt.Errorf("unknown artifact kind %q", name)
}

// Operation returns the operation the artifact belongs to.
func (k ArtifactKind) Operation() Operation {
	switch k {
	case CreateCommand, CreateValidator:
		return OpCreate
	case UpdateCommand, UpdateValidator:
		return OpUpdate
	default:
		return OpDelete
	}
}

// IsValidator reports whether the artifact declares validation rules.
func (k ArtifactKind) IsValidator() bool {
	return k == CreateValidator || k == UpdateValidator
}

// Tokens returns the placeholder tokens a template of this kind may use.
func (k ArtifactKind) Tokens() []Token {
	if k.IsValidator() {
		return validatorTokens
	}
	return commandTokens
}

// Allows reports whether a template of this kind may use t.
func (k ArtifactKind) Allows(t Token) bool {
	return slices.Contains(k.Tokens(), t)
}

// DefaultFile returns the default template file name of the kind,
// e.g. "CreateCommandValidatorTemplate.txt".
func (k ArtifactKind) DefaultFile() string {
	name := string(k.Operation()) + "Command"
	if k.IsValidator() {
		name += "Validator"
	}
	return name + "Template.txt"
}

// Template is a parsed template document.
type Template struct {
	Kind ArtifactKind
	Text string
	// tokens in order of first occurrence.
	tokens []Token
}

var placeholder = regexp.MustCompile(`<#([A-Za-z_][A-Za-z0-9_]*)#>`)

var knownTokens = names(
	string(TokenNamespaces), string(TokenGenerationNamespace), string(TokenDbContextInterface),
	string(TokenClassName), string(TokenEntity), string(TokenEntitySet), string(TokenReturnType),
	string(TokenPrimaryKey), string(TokenProperties), string(TokenPropertyAssignments),
	string(TokenValidationRules),
)

// ParseTemplate parses the text of a template of the given kind. It fails
// on placeholders outside the token set and on tokens the kind does not
// allow.
func ParseTemplate(kind ArtifactKind, text string) (*Template, error) {
	t := &Template{Kind: kind, Text: text}
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		tok := Token(m[1])
		if _, ok := knownTokens[m[1]]; !ok {
			return nil, NewTemplateError(kind, tok, "unknown token", nil)
		}
		if !kind.Allows(tok) {
			return nil, NewTemplateError(kind, tok, "token not allowed in this template", nil)
		}
		if !slices.Contains(t.tokens, tok) {
			t.tokens = append(t.tokens, tok)
		}
	}
	return t, nil
}

// Tokens returns the tokens the template references.
func (t *Template) Tokens() []Token {
	return slices.Clone(t.tokens)
}

// Render replaces every placeholder with its content block. Replacement is
// a single literal pass; inserted content is never scanned for tokens.
// Every referenced token must have content, extra entries are ignored.
func (t *Template) Render(content map[Token]string) (string, error) {
	pairs := make([]string, 0, 2*len(t.tokens))
	for _, tok := range t.tokens {
		block, ok := content[tok]
		if !ok {
			return "", NewTemplateError(t.Kind, tok, "no content for token", nil)
		}
		pairs = append(pairs, tok.Placeholder(), block)
	}
	if len(pairs) == 0 {
		return t.Text, nil
	}
	return strings.NewReplacer(pairs...).Replace(t.Text), nil
}

// LoadTemplates reads and parses the template of every artifact kind from
// the configured template directory.
func LoadTemplates(c *Config) (map[ArtifactKind]*Template, error) {
	templates := make(map[ArtifactKind]*Template, len(ArtifactKinds))
	for _, kind := range ArtifactKinds {
		path := filepath.Join(c.TemplateDir, c.TemplateFile(kind))
		buf, err := os.ReadFile(path)
		if err != nil {
			msg := "read template"
			if errors.Is(err, fs.ErrNotExist) {
				msg = "missing template file"
			}
			return nil, &ConfigError{Option: "Templates", Value: path, Message: msg, Cause: err}
		}
		t, err := ParseTemplate(kind, string(buf))
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", path, err)
		}
		templates[kind] = t
	}
	return templates, nil
}
