package gen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file a run looks for when none is
// given.
const DefaultConfigFile = "cqrsgen.yaml"

// StringList accepts a single string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = StringList{node.Value}
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
	return nil
}

// FileConfig is the content of a configuration file.
type FileConfig struct {
	EntityNamespace string `yaml:"entityNamespace"`
	AuditableBase   string `yaml:"auditableBase"`
	DbContext       struct {
		Interface string `yaml:"interface"`
		Namespace string `yaml:"namespace"`
	} `yaml:"dbContext"`
	Generation struct {
		Namespace string `yaml:"namespace"`
		Target    string `yaml:"target"`
		Extension string `yaml:"extension"`
	} `yaml:"generation"`
	Templates struct {
		Dir   string            `yaml:"dir"`
		Files map[string]string `yaml:"files"`
	} `yaml:"templates"`
	Namespaces struct {
		Command   StringList `yaml:"command"`
		Validator StringList `yaml:"validator"`
	} `yaml:"namespaces"`
	TypeMappings map[string]string `yaml:"typeMappings"`
	Exclusions   struct {
		Create ExclusionConfig `yaml:"create"`
		Update ExclusionConfig `yaml:"update"`
	} `yaml:"exclusions"`
	Workers       int          `yaml:"workers"`
	FailurePolicy string       `yaml:"failurePolicy"`
	Schema        SchemaSource `yaml:"schema"`

	// dir is the directory of the file; relative paths resolve against it.
	dir string
}

// ExclusionConfig lists the exclusions of one operation.
type ExclusionConfig struct {
	Global   StringList            `yaml:"global"`
	Entities map[string]StringList `yaml:"entities"`
}

// SchemaSource tells where the model description comes from: a snapshot
// file, or a database reached through Driver and DSN.
type SchemaSource struct {
	File   string `yaml:"file"`
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Schema is the database schema to introspect.
	Schema string `yaml:"schema"`
}

// Validate checks that exactly one source is set.
func (s SchemaSource) Validate() error {
	switch {
	case s.File != "" && s.Driver != "":
		return NewConfigError("Schema", nil, "set either a schema file or a driver, not both")
	case s.File == "" && s.Driver == "":
		return NewConfigError("Schema", nil, "missing schema file or driver")
	case s.Driver != "" && s.DSN == "":
		return NewConfigError("Schema", s.Driver, "missing dsn")
	}
	return nil
}

// LoadConfigFile reads a configuration file. Unknown keys are rejected.
func LoadConfigFile(path string) (*FileConfig, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Option: "ConfigFile", Value: path, Message: "read config file", Cause: err}
	}
	f, err := ParseConfig(buf)
	if err != nil {
		return nil, &ConfigError{Option: "ConfigFile", Value: path, Message: "parse config file", Cause: err}
	}
	f.dir = filepath.Dir(path)
	return f, nil
}

// ParseConfig decodes the YAML content of a configuration file.
// Relative paths resolve against the working directory.
func ParseConfig(buf []byte) (*FileConfig, error) {
	f := &FileConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return f, nil
}

// Path resolves p against the directory of the configuration file.
func (f *FileConfig) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || f.dir == "" {
		return p
	}
	return filepath.Join(f.dir, p)
}

// Source returns the schema source with its file path resolved.
func (f *FileConfig) Source() SchemaSource {
	s := f.Schema
	s.File = f.Path(s.File)
	return s
}

// Options converts the file into configuration options. Empty values keep
// the defaults. Map entries are applied in key order.
func (f *FileConfig) Options() ([]Option, error) {
	var opts []Option
	set := func(v string, opt func(string) Option) {
		if v != "" {
			opts = append(opts, opt(v))
		}
	}
	set(f.EntityNamespace, WithEntityNamespace)
	set(f.AuditableBase, WithAuditableBase)
	if f.DbContext.Interface != "" || f.DbContext.Namespace != "" {
		iface := f.DbContext.Interface
		if iface == "" {
			iface = DefaultDbContextInterface
		}
		opts = append(opts, WithDbContext(iface, f.DbContext.Namespace))
	}
	set(f.Generation.Namespace, WithGenerationNamespace)
	set(f.Path(f.Generation.Target), WithTarget)
	set(f.Generation.Extension, WithExtension)
	set(f.Path(f.Templates.Dir), WithTemplateDir)
	for _, name := range slices.Sorted(maps.Keys(f.Templates.Files)) {
		kind, err := ParseArtifactKind(name)
		if err != nil {
			return nil, NewConfigError("TemplateFile", name, err.Error())
		}
		opts = append(opts, WithTemplateFile(kind, f.Templates.Files[name]))
	}
	if len(f.Namespaces.Command) > 0 {
		opts = append(opts, WithCommandNamespaces(f.Namespaces.Command...))
	}
	if len(f.Namespaces.Validator) > 0 {
		opts = append(opts, WithValidatorNamespaces(f.Namespaces.Validator...))
	}
	for _, name := range slices.Sorted(maps.Keys(f.TypeMappings)) {
		opts = append(opts, WithTypeMapping(name, f.TypeMappings[name]))
	}
	opts = append(opts, f.Exclusions.Create.options(OpCreate)...)
	opts = append(opts, f.Exclusions.Update.options(OpUpdate)...)
	if f.Workers != 0 {
		opts = append(opts, WithWorkers(f.Workers))
	}
	if f.FailurePolicy != "" {
		opts = append(opts, WithFailurePolicy(FailurePolicy(f.FailurePolicy)))
	}
	return opts, nil
}

func (e ExclusionConfig) options(op Operation) []Option {
	var opts []Option
	if len(e.Global) > 0 {
		opts = append(opts, WithExclusions(op, e.Global...))
	}
	for _, entity := range slices.Sorted(maps.Keys(e.Entities)) {
		opts = append(opts, WithEntityExclusions(op, entity, e.Entities[entity]...))
	}
	return opts
}
