package gen

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithStringOptions(t *testing.T) {
	tests := []struct {
		name  string
		opt   func(string) Option
		value string
		get   func(*Config) string
	}{
		{"EntityNamespace", WithEntityNamespace, "Acme.Domain", func(c *Config) string { return c.EntityNamespace }},
		{"AuditableBase", WithAuditableBase, "BaseAuditableEntity", func(c *Config) string { return c.AuditableBase }},
		{"GenerationNamespace", WithGenerationNamespace, "Acme.Application", func(c *Config) string { return c.GenerationNamespace }},
		{"Target", WithTarget, "out", func(c *Config) string { return c.Target }},
		{"Extension", WithExtension, ".g.cs", func(c *Config) string { return c.Extension }},
		{"TemplateDir", WithTemplateDir, "templates", func(c *Config) string { return c.TemplateDir }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			require.NoError(t, tt.opt(tt.value)(c))
			assert.Equal(t, tt.value, tt.get(c))

			err := tt.opt("")(c)
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.Equal(t, tt.value, tt.get(c), "failed option leaves the config untouched")
		})
	}
}

func TestWithDbContext(t *testing.T) {
	t.Run("sets interface and namespace", func(t *testing.T) {
		c := &Config{}
		require.NoError(t, WithDbContext("IAppDbContext", "Acme.Interfaces")(c))
		assert.Equal(t, "IAppDbContext", c.DbContextInterface)
		assert.Equal(t, "Acme.Interfaces", c.DbContextNamespace)
	})

	t.Run("empty namespace is allowed", func(t *testing.T) {
		c := &Config{}
		require.NoError(t, WithDbContext("IAppDbContext", "")(c))
		assert.Empty(t, c.DbContextNamespace)
	})

	t.Run("empty interface fails", func(t *testing.T) {
		err := WithDbContext("", "Acme.Interfaces")(&Config{})
		assert.True(t, IsConfigError(err))
	})
}

func TestWithTemplateFile(t *testing.T) {
	t.Run("overrides one kind", func(t *testing.T) {
		c := &Config{}
		require.NoError(t, WithTemplateFile(DeleteCommand, "delete.tmpl")(c))
		assert.Equal(t, "delete.tmpl", c.TemplateFile(DeleteCommand))
		assert.Equal(t, "CreateCommandTemplate.txt", c.TemplateFile(CreateCommand))
	})

	t.Run("unknown kind fails", func(t *testing.T) {
		err := WithTemplateFile("queryHandler", "q.tmpl")(&Config{})
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})

	t.Run("empty name fails", func(t *testing.T) {
		err := WithTemplateFile(CreateCommand, "")(&Config{})
		assert.True(t, IsConfigError(err))
	})
}

func TestWithTypeMapping(t *testing.T) {
	c, err := NewConfig(WithTypeMapping("System.Guid", "Guid"), WithTypeMapping("System.String", "String"))
	require.NoError(t, err)
	m := c.TypeMappings()
	assert.Equal(t, "Guid", m["System.Guid"])
	assert.Equal(t, "String", m["System.String"])
	assert.Equal(t, "int", m["System.Int32"])
	assert.Equal(t, "string", DefaultTypeMappings()["System.String"], "defaults are never modified")

	m["System.Int32"] = "Int32"
	assert.Equal(t, "int", c.TypeMappings()["System.Int32"], "TypeMappings returns a copy")

	err = WithTypeMapping("", "x")(c)
	assert.True(t, IsConfigError(err))
}

func TestWithNamespaces(t *testing.T) {
	c, err := NewConfig(
		WithCommandNamespaces("AutoMapper"),
		WithValidatorNamespaces("System.Linq", "FluentValidation"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"System", "System.Collections.Generic", "MediatR", "System.Threading", "System.Threading.Tasks",
		"AutoMapper", DefaultDbContextNamespace, DefaultEntityNamespace,
	}, c.Namespaces(CreateCommand))
	assert.Equal(t, []string{
		"System", "FluentValidation", "System.Linq", DefaultDbContextNamespace, DefaultEntityNamespace,
	}, c.Namespaces(UpdateValidator))
	assert.Equal(t, []string{"System", "FluentValidation"}, DefaultValidatorNamespaces(), "defaults are never modified")
}

func TestWithExclusions(t *testing.T) {
	t.Run("adds to the defaults", func(t *testing.T) {
		c, err := NewConfig(
			WithExclusions(OpCreate, "Done"),
			WithEntityExclusions(OpUpdate, "TodoList", "Items"),
		)
		require.NoError(t, err)
		p := c.Exclusions()
		assert.True(t, p.IsExcluded(OpCreate, "TodoItem", "Done"))
		assert.True(t, p.IsExcluded(OpCreate, "TodoItem", "Id"))
		assert.True(t, p.IsExcluded(OpUpdate, "TodoList", "Items"))
		assert.False(t, p.IsExcluded(OpUpdate, "TodoItem", "Items"))
		assert.False(t, DefaultExclusionPolicy().IsExcluded(OpCreate, "TodoItem", "Done"))
	})

	t.Run("delete has no exclusions", func(t *testing.T) {
		_, err := NewConfig(WithExclusions(OpDelete, "Id"))
		require.Error(t, err)
		assert.True(t, IsConfigError(err))

		_, err = NewConfig(WithEntityExclusions(OpDelete, "TodoItem", "Id"))
		assert.True(t, IsConfigError(err))
	})

	t.Run("empty entity fails", func(t *testing.T) {
		_, err := NewConfig(WithEntityExclusions(OpCreate, "", "Id"))
		assert.True(t, IsConfigError(err))
	})

	t.Run("zero config", func(t *testing.T) {
		c := &Config{}
		require.NoError(t, WithExclusions(OpUpdate, "Version")(c))
		assert.Equal(t, []string{"Version"}, c.Exclusions().Effective(OpUpdate, "TodoItem"))
		assert.Empty(t, c.Exclusions().Effective(OpCreate, "TodoItem"))
	})

	t.Run("policy replaces the defaults", func(t *testing.T) {
		p := NewExclusionPolicy(NewExclusionRuleSet("Secret"), nil)
		c, err := NewConfig(WithExclusionPolicy(p))
		require.NoError(t, err)
		assert.False(t, c.Exclusions().IsExcluded(OpCreate, "TodoItem", "Id"))
		assert.True(t, c.Exclusions().IsExcluded(OpCreate, "TodoItem", "Secret"))

		p.RuleSet(OpCreate).Exclude("Later")
		assert.False(t, c.Exclusions().IsExcluded(OpCreate, "TodoItem", "Later"), "policy is cloned")

		_, err = NewConfig(WithExclusionPolicy(nil))
		assert.True(t, IsConfigError(err))
	})
}

func TestWithWorkers(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithWorkers(4)(c))
	assert.Equal(t, 4, c.Workers)
	assert.True(t, IsConfigError(WithWorkers(0)(c)))
	assert.True(t, IsConfigError(WithWorkers(-1)(c)))
}

func TestWithFailurePolicy(t *testing.T) {
	tests := []struct {
		name    string
		policy  FailurePolicy
		want    FailurePolicy
		wantErr bool
	}{
		{"failFast", FailFast, FailFast, false},
		{"perEntity", PerEntity, PerEntity, false},
		{"empty defaults to failFast", "", FailFast, false},
		{"unknown", "retry", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			err := WithFailurePolicy(tt.policy)(c)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.FailurePolicy)
		})
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	c, err := NewConfig(WithLogger(l), WithDryRun(true))
	require.NoError(t, err)
	assert.Same(t, l, c.Logger())
	assert.True(t, c.DryRun)

	assert.True(t, IsConfigError(WithLogger(nil)(c)))
	assert.NotNil(t, (&Config{}).Logger(), "zero config logs to a discard handler")
}

func TestApply(t *testing.T) {
	t.Run("stops on first error", func(t *testing.T) {
		c := &Config{}
		err := c.Apply(WithTarget("out"), WithWorkers(0), WithExtension(".txt"))
		require.Error(t, err)
		assert.Equal(t, "out", c.Target)
		assert.Empty(t, c.Extension)
	})

	t.Run("ApplyAll collects errors", func(t *testing.T) {
		c := &Config{}
		err := c.ApplyAll(WithTarget(""), WithWorkers(0), WithExtension(".txt"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Target")
		assert.Contains(t, err.Error(), "Workers")
		assert.Equal(t, ".txt", c.Extension)
	})
}

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := NewConfig()
		require.NoError(t, err)
		assert.Equal(t, DefaultEntityNamespace, c.EntityNamespace)
		assert.Equal(t, DefaultAuditableBase, c.AuditableBase)
		assert.Equal(t, DefaultDbContextInterface, c.DbContextInterface)
		assert.Equal(t, DefaultGenerationNamespace, c.GenerationNamespace)
		assert.Equal(t, DefaultTarget, c.Target)
		assert.Equal(t, DefaultExtension, c.Extension)
		assert.Equal(t, FailFast, c.FailurePolicy)
		assert.Positive(t, c.Workers)
		assert.False(t, c.DryRun)
		for _, k := range ArtifactKinds {
			assert.Equal(t, k.DefaultFile(), c.TemplateFile(k))
		}
	})

	t.Run("error", func(t *testing.T) {
		c, err := NewConfig(WithTarget(""))
		require.Error(t, err)
		assert.Nil(t, c)
	})

	t.Run("MustNewConfig panics", func(t *testing.T) {
		assert.Panics(t, func() { MustNewConfig(WithWorkers(0)) })
		assert.NotPanics(t, func() { MustNewConfig(WithWorkers(2)) })
	})
}
