package gen

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/cqrsgen/compiler/load"
)

// newTestConfig returns a config writing into a temporary target, with the
// templates of writeTemplates.
func newTestConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()
	dir := t.TempDir()
	writeTemplates(t, dir)
	base := []Option{WithTemplateDir(dir), WithTarget(filepath.Join(dir, "out"))}
	return MustNewConfig(append(append(base, todoConfigOptions()...), opts...)...)
}

// tagFixture returns an auditable entity without a primary key.
func tagFixture() *load.Entity {
	return &load.Entity{
		Name:      "Tag",
		Namespace: DefaultEntityNamespace,
		Base:      DefaultAuditableBase,
		Properties: []*load.Property{
			{Name: "Label", Type: load.Type("System.String")},
		},
	}
}

func TestGenerate(t *testing.T) {
	require := require.New(t)
	c := newTestConfig(t)
	res, err := Generate(context.Background(), c, load.StaticProvider{todoListFixture(), todoItemFixture()})
	require.NoError(err)
	require.NotEmpty(res.RunID)
	require.Equal(2, res.Entities)
	require.Empty(res.Failed)
	require.Len(res.Artifacts, 10)
	require.Equal(10, res.Metrics.FilesWritten)

	for i, a := range res.Artifacts {
		entity := "TodoList"
		if i >= len(ArtifactKinds) {
			entity = "TodoItem"
		}
		require.Equal(entity, a.Entity)
		require.Equal(ArtifactKinds[i%len(ArtifactKinds)], a.Kind)
		buf, err := os.ReadFile(a.Path)
		require.NoError(err)
		require.Equal(a.Content, buf)
	}

	create := filepath.Join(c.Target, "TodoItems", "Commands", "CreateTodoItem", "CreateTodoItemCommand.cs")
	buf, err := os.ReadFile(create)
	require.NoError(err)
	out := string(buf)
	require.Contains(out, "namespace SampleApp.Application.CQRS.TodoItems.Commands")
	require.Contains(out, "public class CreateTodoItemCommand")
	require.Contains(out, "public int ListId { set; get; }")
	require.Contains(out, "using SampleApp.Domain.Enums;")
	require.NotContains(out, "public long Id")
	require.NotContains(out, "<#")

	validator := filepath.Join(c.Target, "TodoItems", "Commands", "CreateTodoItem", "CreateTodoItemCommandValidator.cs")
	buf, err = os.ReadFile(validator)
	require.NoError(err)
	require.Contains(string(buf), "RuleFor(v => v.Title)\n\t\t\t\t.NotEmpty()\n\t\t\t\t.MaximumLength(200);")
	require.NotContains(string(buf), "v.Note")

	_, err = os.Stat(filepath.Join(c.Target, "TodoLists", "Commands", "DeleteTodoList", "DeleteTodoListCommand.cs"))
	require.NoError(err)
	_, err = os.Stat(filepath.Join(c.Target, "TodoLists", "Commands", "DeleteTodoList", "DeleteTodoListCommandValidator.cs"))
	require.True(os.IsNotExist(err), "delete has no validator")
}

func TestGenerateIdempotent(t *testing.T) {
	c := newTestConfig(t)
	p := load.StaticProvider{todoItemFixture()}
	first, err := Generate(context.Background(), c, p)
	require.NoError(t, err)

	path := first.Artifacts[0].Path
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than anything generated"), 0o644))

	second, err := Generate(context.Background(), c, p)
	require.NoError(t, err)
	require.Len(t, second.Artifacts, len(first.Artifacts))
	for i := range first.Artifacts {
		assert.Equal(t, first.Artifacts[i].Path, second.Artifacts[i].Path)
		assert.Equal(t, first.Artifacts[i].Content, second.Artifacts[i].Content)
	}
	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first.Artifacts[0].Content, buf, "existing files are replaced")
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestGenerateDryRun(t *testing.T) {
	c := newTestConfig(t, WithDryRun(true))
	res, err := Generate(context.Background(), c, load.StaticProvider{todoItemFixture()})
	require.NoError(t, err)
	require.Len(t, res.Artifacts, len(ArtifactKinds))
	assert.Zero(t, res.Metrics.FilesWritten)
	for _, a := range res.Artifacts {
		assert.NotEmpty(t, a.Content)
		assert.NotEmpty(t, a.Path)
	}
	_, err = os.Stat(c.Target)
	assert.True(t, os.IsNotExist(err), "dry run creates nothing")
}

func TestGenerateEmptyModel(t *testing.T) {
	c := newTestConfig(t)
	res, err := Generate(context.Background(), c, load.StaticProvider{})
	require.NoError(t, err)
	assert.Zero(t, res.Entities)
	assert.Empty(t, res.Artifacts)
	_, err = os.Stat(c.Target)
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateFailurePolicy(t *testing.T) {
	p := load.StaticProvider{todoListFixture(), tagFixture(), todoItemFixture()}

	t.Run("fail fast", func(t *testing.T) {
		for _, workers := range []int{1, 4} {
			c := newTestConfig(t, WithWorkers(workers))
			res, err := Generate(context.Background(), c, p)
			require.Error(t, err)
			assert.Nil(t, res)
			var genErr *GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, "Tag", genErr.Entity)
			assert.True(t, IsSchemaError(err))

			_, err = os.Stat(filepath.Join(c.Target, "TodoLists"))
			assert.NoError(t, err, "entities before the failure are written")
			_, err = os.Stat(filepath.Join(c.Target, "Tags"))
			assert.True(t, os.IsNotExist(err), "failed entity writes nothing")
			_, err = os.Stat(filepath.Join(c.Target, "TodoItems"))
			assert.True(t, os.IsNotExist(err), "entities after the failure are not written (workers=%d)", workers)
		}
	})

	t.Run("per entity", func(t *testing.T) {
		c := newTestConfig(t, WithFailurePolicy(PerEntity), WithWorkers(2))
		res, err := Generate(context.Background(), c, p)
		require.Error(t, err)
		require.NotNil(t, res)
		assert.True(t, IsGenerationError(err))
		assert.Equal(t, []string{"Tag"}, res.Failed)
		assert.Equal(t, 3, res.Entities)
		require.Len(t, res.Artifacts, 2*len(ArtifactKinds))
		assert.Equal(t, "TodoList", res.Artifacts[0].Entity)
		assert.Equal(t, "TodoItem", res.Artifacts[len(ArtifactKinds)].Entity)
		assert.Equal(t, 2*len(ArtifactKinds), res.Metrics.FilesWritten)
	})

	// Tag names a primary key it does not declare.
	invalid := tagFixture()
	invalid.PrimaryKey = []string{"Id"}
	rejected := load.StaticProvider{todoListFixture(), invalid, todoItemFixture()}

	t.Run("per entity isolates invalid declarations", func(t *testing.T) {
		c := newTestConfig(t, WithFailurePolicy(PerEntity), WithWorkers(4))
		res, err := Generate(context.Background(), c, rejected)
		require.Error(t, err)
		require.NotNil(t, res)
		assert.True(t, IsSchemaError(err))
		assert.Equal(t, []string{"Tag"}, res.Failed)
		assert.Equal(t, 3, res.Entities)
		require.Len(t, res.Artifacts, 2*len(ArtifactKinds))
		assert.Equal(t, "TodoList", res.Artifacts[0].Entity)
		assert.Equal(t, "TodoItem", res.Artifacts[len(ArtifactKinds)].Entity)
		_, err = os.Stat(filepath.Join(c.Target, "TodoItems", "Commands", "CreateTodoItem", "CreateTodoItemCommand.cs"))
		assert.NoError(t, err)
	})

	t.Run("fail fast stops at invalid declarations", func(t *testing.T) {
		c := newTestConfig(t, WithWorkers(4))
		res, err := Generate(context.Background(), c, rejected)
		require.Error(t, err)
		assert.Nil(t, res)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, "Tag", schemaErr.Entity)
		_, err = os.Stat(filepath.Join(c.Target, "TodoLists"))
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(c.Target, "TodoItems"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestGeneratorConfigSnapshot(t *testing.T) {
	c := newTestConfig(t, WithDryRun(true))
	g, err := NewGenerator(c)
	require.NoError(t, err)
	require.NoError(t, c.Apply(WithExclusions(OpCreate, "Title"), WithTypeMapping("System.Int32", "Int32")))

	res, err := g.Generate(context.Background(), load.StaticProvider{todoItemFixture()})
	require.NoError(t, err)
	create := string(res.Artifacts[0].Content)
	assert.Contains(t, create, "Title { set; get; }", "options applied after NewGenerator are ignored")
	assert.Contains(t, create, "public int ListId { set; get; }")

	assert.True(t, c.Exclusions().IsExcluded(OpCreate, "TodoItem", "Title"))
	assert.False(t, DefaultExclusionPolicy().IsExcluded(OpCreate, "TodoItem", "Title"))
}

func TestGenerateErrors(t *testing.T) {
	t.Run("missing template", func(t *testing.T) {
		c := newTestConfig(t)
		require.NoError(t, os.Remove(filepath.Join(c.TemplateDir, "DeleteCommandTemplate.txt")))
		_, err := Generate(context.Background(), c, load.StaticProvider{todoItemFixture()})
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
		_, err = os.Stat(c.Target)
		assert.True(t, os.IsNotExist(err), "nothing is written")
	})

	t.Run("provider error", func(t *testing.T) {
		cause := errors.New("connection refused")
		_, err := Generate(context.Background(), newTestConfig(t), failingProvider{cause})
		assert.ErrorIs(t, err, cause)
	})

	t.Run("schema error", func(t *testing.T) {
		e := todoItemFixture()
		e.PrimaryKey = []string{"Key"}
		_, err := Generate(context.Background(), newTestConfig(t), load.StaticProvider{e})
		assert.True(t, IsSchemaError(err))
	})

	t.Run("unwritable target", func(t *testing.T) {
		c := newTestConfig(t, WithWorkers(1))
		require.NoError(t, os.WriteFile(c.Target, nil, 0o644))
		_, err := Generate(context.Background(), c, load.StaticProvider{todoItemFixture()})
		require.Error(t, err)
		var genErr *GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, "write", genErr.Phase)
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := NewGenerator(nil)
		assert.True(t, IsConfigError(err))
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Generate(ctx, newTestConfig(t), load.StaticProvider{todoItemFixture()})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewGeneratorWithTemplates(t *testing.T) {
	c := newTestConfig(t)
	templates, err := LoadTemplates(c)
	require.NoError(t, err)

	_, err = NewGeneratorWithTemplates(c, templates)
	require.NoError(t, err)

	t.Run("missing kind", func(t *testing.T) {
		partial := map[ArtifactKind]*Template{CreateCommand: templates[CreateCommand]}
		_, err := NewGeneratorWithTemplates(c, partial)
		assert.True(t, IsConfigError(err))
	})

	t.Run("kind mismatch", func(t *testing.T) {
		swapped := map[ArtifactKind]*Template{}
		for k, v := range templates {
			swapped[k] = v
		}
		swapped[UpdateCommand] = templates[CreateCommand]
		_, err := NewGeneratorWithTemplates(c, swapped)
		assert.True(t, IsConfigError(err))
	})

	t.Run("render error", func(t *testing.T) {
		broken := map[ArtifactKind]*Template{}
		for k, v := range templates {
			broken[k] = v
		}
		// A template built by hand can reference tokens without content.
		broken[DeleteCommand] = &Template{Kind: DeleteCommand, Text: "<#ValidationRules#>", tokens: []Token{TokenValidationRules}}
		g, err := NewGeneratorWithTemplates(MustNewConfig(WithDryRun(true)), broken)
		require.NoError(t, err)
		typ, err := NewType(c, todoItemFixture())
		require.NoError(t, err)
		_, err = g.GenerateType(typ)
		require.Error(t, err)
		var genErr *GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, string(DeleteCommand), genErr.Phase)
		assert.True(t, IsTemplateError(err))
	})
}

func TestGenerateType(t *testing.T) {
	c := newTestConfig(t, WithDryRun(true))
	g, err := NewGenerator(c)
	require.NoError(t, err)
	typ, err := NewType(c, todoItemFixture())
	require.NoError(t, err)

	arts, err := g.GenerateType(typ)
	require.NoError(t, err)
	require.Len(t, arts, len(ArtifactKinds))
	for i, a := range arts {
		assert.Equal(t, ArtifactKinds[i], a.Kind)
		assert.Equal(t, "TodoItem", a.Entity)
	}
	assert.Contains(t, string(arts[4].Content), "public class DeleteTodoItemCommand")
	assert.Contains(t, string(arts[4].Content), "public long Id { set; get; }")
}

func TestGenerateLogs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := newTestConfig(t, WithLogger(log), WithDryRun(true))
	res, err := Generate(context.Background(), c, load.StaticProvider{todoItemFixture(), tagFixture()})
	require.Error(t, err)
	assert.Nil(t, res)
	out := buf.String()
	assert.Contains(t, out, "generation started")
	assert.Contains(t, out, "run=")
	assert.Contains(t, out, "entity failed")
	assert.Contains(t, out, "entity=Tag")
}
