package gen

import (
	"errors"
	"log/slog"
)

// Option configures code generation.
type Option func(*Config) error

// WithEntityNamespace sets the namespace entities must be declared in to be
// generated.
func WithEntityNamespace(ns string) Option {
	return func(c *Config) error {
		if ns == "" {
			return NewConfigError("EntityNamespace", nil, "entity namespace cannot be empty")
		}
		c.EntityNamespace = ns
		return nil
	}
}

// WithAuditableBase sets the direct base classification that marks an
// entity for generation.
func WithAuditableBase(base string) Option {
	return func(c *Config) error {
		if base == "" {
			return NewConfigError("AuditableBase", nil, "auditable base cannot be empty")
		}
		c.AuditableBase = base
		return nil
	}
}

// WithDbContext sets the data context interface and its namespace.
func WithDbContext(iface, namespace string) Option {
	return func(c *Config) error {
		if iface == "" {
			return NewConfigError("DbContextInterface", nil, "db context interface cannot be empty")
		}
		c.DbContextInterface = iface
		c.DbContextNamespace = namespace
		return nil
	}
}

// WithGenerationNamespace sets the root namespace of generated code.
func WithGenerationNamespace(ns string) Option {
	return func(c *Config) error {
		if ns == "" {
			return NewConfigError("GenerationNamespace", nil, "generation namespace cannot be empty")
		}
		c.GenerationNamespace = ns
		return nil
	}
}

// WithTarget sets the output directory.
// The directory where generated code will be written.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithExtension sets the extension of generated files.
func WithExtension(ext string) Option {
	return func(c *Config) error {
		if ext == "" {
			return NewConfigError("Extension", nil, "extension cannot be empty")
		}
		c.Extension = ext
		return nil
	}
}

// WithTemplateDir sets the directory the template documents are read from.
func WithTemplateDir(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("TemplateDir", nil, "template directory cannot be empty")
		}
		c.TemplateDir = dir
		return nil
	}
}

// WithTemplateFile overrides the template file name of an artifact kind.
func WithTemplateFile(kind ArtifactKind, name string) Option {
	return func(c *Config) error {
		if _, err := ParseArtifactKind(string(kind)); err != nil {
			return NewConfigError("TemplateFile", kind, err.Error())
		}
		if name == "" {
			return NewConfigError("TemplateFile", kind, "file name cannot be empty")
		}
		c.init()
		c.templateFiles[kind] = name
		return nil
	}
}

// WithTypeMapping maps a qualified model type name to its declaration
// spelling, e.g. "System.Guid" to "Guid".
func WithTypeMapping(qualified, spelling string) Option {
	return func(c *Config) error {
		if qualified == "" || spelling == "" {
			return NewConfigError("TypeMapping", qualified, "type name and spelling cannot be empty")
		}
		c.init()
		c.typeMappings[qualified] = spelling
		return nil
	}
}

// WithCommandNamespaces appends namespaces to the using list of commands.
func WithCommandNamespaces(ns ...string) Option {
	return func(c *Config) error {
		c.commandNamespaces = append(c.commandNamespaces, ns...)
		return nil
	}
}

// WithValidatorNamespaces appends namespaces to the using list of
// validators.
func WithValidatorNamespaces(ns ...string) Option {
	return func(c *Config) error {
		c.validatorNamespaces = append(c.validatorNamespaces, ns...)
		return nil
	}
}

// WithExclusions excludes property names from every op command.
// Only create and update have exclusions.
func WithExclusions(op Operation, names ...string) Option {
	return func(c *Config) error {
		c.init()
		s := c.exclusions.RuleSet(op)
		if s == nil {
			return NewConfigError("Exclusions", op, "only Create and Update commands have exclusions")
		}
		s.Exclude(names...)
		return nil
	}
}

// WithEntityExclusions excludes property names from the op command of one
// entity, in addition to the global exclusions.
func WithEntityExclusions(op Operation, entity string, names ...string) Option {
	return func(c *Config) error {
		c.init()
		s := c.exclusions.RuleSet(op)
		if s == nil {
			return NewConfigError("Exclusions", op, "only Create and Update commands have exclusions")
		}
		if entity == "" {
			return NewConfigError("Exclusions", op, "entity name cannot be empty")
		}
		s.ExcludeFor(entity, names...)
		return nil
	}
}

// WithExclusionPolicy replaces the exclusion policy, defaults included.
func WithExclusionPolicy(p *ExclusionPolicy) Option {
	return func(c *Config) error {
		if p == nil {
			return NewConfigError("Exclusions", nil, "policy cannot be nil")
		}
		c.exclusions = p.clone()
		return nil
	}
}

// WithWorkers sets the number of entities generated concurrently.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithFailurePolicy sets what a run does when an entity fails.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(c *Config) error {
		policy, err := ParseFailurePolicy(string(p))
		if err != nil {
			return NewConfigError("FailurePolicy", p, err.Error())
		}
		c.FailurePolicy = policy
		return nil
	}
}

// WithDryRun renders and plans artifacts without writing them.
func WithDryRun(dry bool) Option {
	return func(c *Config) error {
		c.DryRun = dry
		return nil
	}
}

// WithLogger sets the structured logger of the run.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.logging = l
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered. Generators already created from
// c keep the configuration they were created with.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with the defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := defaultConfig()
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
