package gen

import (
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"
)

// FailurePolicy decides what a run does when one entity fails.
type FailurePolicy string

// Failure policies.
const (
	// FailFast writes entities in order and stops at the first failing
	// one; later entities are not written.
	FailFast FailurePolicy = "failFast"
	// PerEntity keeps generating the other entities and reports every
	// failure at the end.
	PerEntity FailurePolicy = "perEntity"
)

// ParseFailurePolicy validates a failure policy name.
func ParseFailurePolicy(name string) (FailurePolicy, error) {
	switch p := FailurePolicy(name); p {
	case FailFast, PerEntity:
		return p, nil
	case "":
		return FailFast, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q; use %s or %s", name, FailFast, PerEntity)
	}
}

// Default configuration values.
const (
	DefaultEntityNamespace     = "SampleApp.Domain.Entities"
	DefaultAuditableBase       = "AuditableEntity"
	DefaultDbContextInterface  = "IApplicationDbContext"
	DefaultDbContextNamespace  = "SampleApp.Application.Common.Interfaces"
	DefaultGenerationNamespace = "SampleApp.Application.CQRS"
	DefaultTarget              = "SampleApp.Application/CQRS"
	DefaultExtension           = ".cs"
)

// DefaultCommandNamespaces returns the using list commands start with. The
// db context and entity namespaces are appended to it.
func DefaultCommandNamespaces() []string {
	return []string{
		"System",
		"System.Collections.Generic",
		"MediatR",
		"System.Threading",
		"System.Threading.Tasks",
	}
}

// DefaultValidatorNamespaces returns the using list validators start with.
func DefaultValidatorNamespaces() []string {
	return []string{"System", "FluentValidation"}
}

var discardLogger = slog.New(slog.DiscardHandler)

// Config holds the global configuration of a generation run. It is built
// by NewConfig and read-only afterwards. A Generator works on a snapshot
// taken when it is created, so options applied later do not reach it.
type Config struct {
	// EntityNamespace is the namespace selected entities are declared in.
	EntityNamespace string
	// AuditableBase is the direct base an entity must have to be generated.
	AuditableBase string
	// DbContextInterface is the name of the data context abstraction the
	// command handlers depend on.
	DbContextInterface string
	// DbContextNamespace is the namespace declaring DbContextInterface.
	DbContextNamespace string
	// GenerationNamespace is the root namespace of generated code.
	GenerationNamespace string
	// Target is the root directory of generated files.
	Target string
	// Extension of generated files, e.g. ".cs".
	Extension string
	// TemplateDir is the directory holding the template documents.
	TemplateDir string
	// Workers bounds the number of entities generated concurrently.
	Workers int
	// FailurePolicy decides what happens when an entity fails.
	FailurePolicy FailurePolicy
	// DryRun renders and plans artifacts without touching the filesystem.
	DryRun bool

	logging             *slog.Logger
	templateFiles       map[ArtifactKind]string
	typeMappings        map[string]string
	commandNamespaces   []string
	validatorNamespaces []string
	exclusions          *ExclusionPolicy
}

func defaultConfig() *Config {
	files := make(map[ArtifactKind]string, len(ArtifactKinds))
	for _, k := range ArtifactKinds {
		files[k] = k.DefaultFile()
	}
	return &Config{
		EntityNamespace:     DefaultEntityNamespace,
		AuditableBase:       DefaultAuditableBase,
		DbContextInterface:  DefaultDbContextInterface,
		DbContextNamespace:  DefaultDbContextNamespace,
		GenerationNamespace: DefaultGenerationNamespace,
		Target:              DefaultTarget,
		Extension:           DefaultExtension,
		TemplateDir:         ".",
		Workers:             runtime.GOMAXPROCS(0),
		FailurePolicy:       FailFast,
		logging:             discardLogger,
		templateFiles:       files,
		typeMappings:        DefaultTypeMappings(),
		commandNamespaces:   DefaultCommandNamespaces(),
		validatorNamespaces: DefaultValidatorNamespaces(),
		exclusions:          DefaultExclusionPolicy(),
	}
}

// init fills the unexported state left nil in a zero Config.
func (c *Config) init() {
	if c.templateFiles == nil {
		c.templateFiles = make(map[ArtifactKind]string, len(ArtifactKinds))
	}
	if c.typeMappings == nil {
		c.typeMappings = make(map[string]string)
	}
	if c.exclusions == nil {
		c.exclusions = NewExclusionPolicy(nil, nil)
	}
}

// clone returns a deep copy of c.
func (c *Config) clone() *Config {
	cc := *c
	cc.templateFiles = maps.Clone(c.templateFiles)
	cc.typeMappings = maps.Clone(c.typeMappings)
	cc.commandNamespaces = slices.Clone(c.commandNamespaces)
	cc.validatorNamespaces = slices.Clone(c.validatorNamespaces)
	if c.exclusions != nil {
		cc.exclusions = c.exclusions.clone()
	}
	return &cc
}

// TemplateFile returns the template file name of an artifact kind,
// relative to TemplateDir.
func (c *Config) TemplateFile(k ArtifactKind) string {
	if name, ok := c.templateFiles[k]; ok {
		return name
	}
	return k.DefaultFile()
}

// TypeMappings returns a copy of the type mapping table.
func (c *Config) TypeMappings() map[string]string {
	return maps.Clone(c.typeMappings)
}

// Exclusions returns the exclusion policy.
func (c *Config) Exclusions() *ExclusionPolicy {
	if c.exclusions == nil {
		return DefaultExclusionPolicy()
	}
	return c.exclusions
}

// Namespaces returns the using list an artifact of kind k starts with.
func (c *Config) Namespaces(k ArtifactKind) []string {
	base := c.commandNamespaces
	if k.IsValidator() {
		base = c.validatorNamespaces
	}
	ns := NewNamespaces(base...)
	ns.Add(c.DbContextNamespace, c.EntityNamespace)
	return ns.List()
}

// Logger returns the logger of the run.
func (c *Config) Logger() *slog.Logger { return c.logger() }

func (c *Config) logger() *slog.Logger {
	if c.logging == nil {
		return discardLogger
	}
	return c.logging
}
