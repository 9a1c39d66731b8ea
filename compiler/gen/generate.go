package gen

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/cqrsgen/compiler/load"
)

// Artifact is one rendered file.
type Artifact struct {
	Kind    ArtifactKind
	Entity  string
	Path    string
	Content []byte
}

// Result describes a generation run.
type Result struct {
	// RunID identifies the run in logs.
	RunID string
	// Artifacts in entity order, then in ArtifactKinds order.
	Artifacts []*Artifact
	// Entities is the number of selected entities.
	Entities int
	// Failed lists the entities that produced no artifacts, in entity
	// order. Only set under the PerEntity policy.
	Failed []string
	// Metrics of the files written. Zero on dry runs.
	Metrics WriterMetrics
	// Duration of the run.
	Duration time.Duration
}

// Generator drives generation runs. Templates are loaded once, when the
// generator is created, and shared by every run.
type Generator struct {
	cfg       *Config
	templates map[ArtifactKind]*Template
	resolver  *TypeResolver
	planner   *PathPlanner
	log       *slog.Logger
}

// NewGenerator loads the templates of c and returns a generator. A missing
// template file is a configuration error.
func NewGenerator(c *Config) (*Generator, error) {
	if c == nil {
		return nil, NewConfigError("Config", nil, "config cannot be nil")
	}
	templates, err := LoadTemplates(c)
	if err != nil {
		return nil, err
	}
	return NewGeneratorWithTemplates(c, templates)
}

// NewGeneratorWithTemplates returns a generator over already parsed
// templates. Every artifact kind needs a template of that kind.
func NewGeneratorWithTemplates(c *Config, templates map[ArtifactKind]*Template) (*Generator, error) {
	if c == nil {
		return nil, NewConfigError("Config", nil, "config cannot be nil")
	}
	for _, k := range ArtifactKinds {
		t, ok := templates[k]
		if !ok || t == nil {
			return nil, NewConfigError("Templates", k, "missing template")
		}
		if t.Kind != k {
			return nil, NewConfigError("Templates", k, "template of kind "+string(t.Kind)+" registered for another kind")
		}
	}
	c = c.clone()
	return &Generator{
		cfg:       c,
		templates: templates,
		resolver:  NewTypeResolver(c.typeMappings, c.logger()),
		planner:   NewPathPlanner(c.Target, c.Extension),
		log:       c.logger(),
	}, nil
}

// Generate loads the templates of c and runs one generation over p.
func Generate(ctx context.Context, c *Config, p load.SchemaProvider) (*Result, error) {
	g, err := NewGenerator(c)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, p)
}

// Generate enumerates the entities of p and generates the artifacts of each
// selected entity. Rendering runs concurrently, bounded by Config.Workers.
//
// Under FailFast the artifacts are written in entity order and the first
// failing entity stops the run: the entities before it are written, the
// ones after it are not, and no Result is returned. Under PerEntity every
// entity is attempted, including those with an invalid declaration, and
// the Result is returned together with the joined errors of the failed
// ones.
func (g *Generator) Generate(ctx context.Context, p load.SchemaProvider) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	log := g.log.With("run", res.RunID)
	log.Info("generation started",
		"entityNamespace", g.cfg.EntityNamespace,
		"target", g.cfg.Target,
		"workers", g.cfg.Workers,
		"policy", g.cfg.FailurePolicy,
		"dryRun", g.cfg.DryRun,
	)

	graph, err := NewGraph(ctx, g.cfg, p)
	if err != nil {
		log.Error("introspection failed", "error", err)
		return nil, err
	}
	res.Entities = len(graph.entries)

	var (
		w         = NewWriter()
		perEntity = g.cfg.FailurePolicy == PerEntity
		artifacts = make([][]*Artifact, len(graph.entries))
		errs      = make([]error, len(graph.entries))
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.cfg.Workers, 1))
	for i, e := range graph.entries {
		if e.err != nil {
			errs[i] = e.err
			continue
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			arts, err := g.renderType(e.typ)
			if err == nil && perEntity {
				err = g.write(e.typ, arts, w)
			}
			if err != nil {
				errs[i] = err
				return nil
			}
			artifacts[i] = arts
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for i, e := range graph.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if errs[i] == nil && !perEntity {
			errs[i] = g.write(e.typ, artifacts[i], w)
		}
		if errs[i] != nil {
			log.Error("entity failed", "entity", e.name, "error", errs[i])
			if !perEntity {
				return nil, errs[i]
			}
			res.Failed = append(res.Failed, e.name)
			continue
		}
		log.Debug("entity generated", "entity", e.name, "artifacts", len(artifacts[i]))
		res.Artifacts = append(res.Artifacts, artifacts[i]...)
	}
	res.Metrics = w.Metrics()
	res.Duration = time.Since(start)
	log.Info("generation finished",
		"entities", res.Entities,
		"artifacts", len(res.Artifacts),
		"failed", len(res.Failed),
		"files", res.Metrics.FilesWritten,
		"bytes", res.Metrics.TotalBytes,
		"duration", res.Duration,
	)
	return res, errors.Join(errs...)
}

// GenerateType builds, renders and writes the artifacts of one entity.
func (g *Generator) GenerateType(t *Type) ([]*Artifact, error) {
	arts, err := g.renderType(t)
	if err != nil {
		return nil, err
	}
	if err := g.write(t, arts, NewWriter()); err != nil {
		return nil, err
	}
	return arts, nil
}

// renderType renders every artifact kind of t without writing anything.
func (g *Generator) renderType(t *Type) ([]*Artifact, error) {
	arts := make([]*Artifact, 0, len(ArtifactKinds))
	for _, k := range ArtifactKinds {
		a, err := g.render(t, k)
		if err != nil {
			return nil, err
		}
		arts = append(arts, a)
	}
	return arts, nil
}

// write plans the directories of arts and writes them. Dry runs write nothing.
func (g *Generator) write(t *Type, arts []*Artifact, w *Writer) error {
	if g.cfg.DryRun {
		return nil
	}
	for _, a := range arts {
		if _, err := g.planner.PlanPath(ModeCommands, a.Kind.Operation(), t.Name, a.Kind.IsValidator()); err != nil {
			return NewGenerationError(t.Name, "write", a.Path, "", err)
		}
		if err := w.Write(a.Path, a.Content); err != nil {
			return NewGenerationError(t.Name, "write", a.Path, "", err)
		}
	}
	return nil
}

// render builds the content of kind k for t and fills its template.
func (g *Generator) render(t *Type, k ArtifactKind) (*Artifact, error) {
	content, err := t.Content(k, g.resolver)
	if err != nil {
		return nil, NewGenerationError(t.Name, string(k), "", "build content", err)
	}
	text, err := g.templates[k].Render(content)
	if err != nil {
		return nil, NewGenerationError(t.Name, string(k), "", "render", err)
	}
	return &Artifact{
		Kind:    k,
		Entity:  t.Name,
		Path:    g.planner.Path(ModeCommands, k.Operation(), t.Name, k.IsValidator()),
		Content: []byte(text),
	}, nil
}
