package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/cqrsgen/compiler/gen"
	"github.com/syssam/cqrsgen/compiler/load"
)

var errUsage = errors.New("usage error")

// sourceFlags select and override the schema source of a run.
type sourceFlags struct {
	flagSchema   string
	flagDriver   string
	flagDSN      string
	flagDBSchema string
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.flagSchema, "schema", "", "Schema snapshot file (.yaml, .json or .msgpack)")
	cmd.Flags().StringVar(&s.flagDriver, "driver", "", "Database driver to introspect (postgres, pgx, mysql or sqlite)")
	cmd.Flags().StringVar(&s.flagDSN, "dsn", "", "Database connection string")
	cmd.Flags().StringVar(&s.flagDBSchema, "db-schema", "", "Database schema to introspect")
	cmd.MarkFlagsMutuallyExclusive("schema", "driver")
}

// override applies the flags on top of the configured source.
func (s *sourceFlags) override(src gen.SchemaSource) gen.SchemaSource {
	if s.flagSchema != "" {
		src = gen.SchemaSource{File: s.flagSchema}
	}
	if s.flagDriver != "" {
		src = gen.SchemaSource{Driver: s.flagDriver, DSN: src.DSN, Schema: src.Schema}
	}
	if s.flagDSN != "" {
		src.DSN = s.flagDSN
	}
	if s.flagDBSchema != "" {
		src.Schema = s.flagDBSchema
	}
	return src
}

// session is the configuration and schema source of a command.
type session struct {
	cfg      *gen.Config
	file     *gen.FileConfig
	source   gen.SchemaSource
	provider load.SchemaProvider
	close    func() error
}

// inputs lists the files a watch should follow.
func (s *session) inputs(configPath string) []string {
	paths := []string{s.cfg.TemplateDir}
	if s.source.File != "" {
		paths = append(paths, s.source.File)
	}
	if configPath != "" {
		paths = append(paths, configPath)
	}
	return paths
}

// configPath returns the configuration file to read, or "" for defaults.
func (c *cmdGlobal) configPath() (string, error) {
	if c.flagConfig != "" {
		return c.flagConfig, nil
	}
	if _, err := os.Stat(gen.DefaultConfigFile); err == nil {
		return gen.DefaultConfigFile, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	return "", nil
}

// open loads the configuration, applies extra options and opens the schema
// source.
func (c *cmdGlobal) open(ctx context.Context, src *sourceFlags, extra ...gen.Option) (*session, error) {
	path, err := c.configPath()
	if err != nil {
		return nil, err
	}
	file := &gen.FileConfig{}
	if path != "" {
		file, err = gen.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		c.log.Info("Loaded configuration", "path", path)
	}
	opts, err := file.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, gen.WithLogger(c.log))
	cfg, err := gen.NewConfig(append(opts, extra...)...)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, file: file, source: src.override(file.Source()), close: func() error { return nil }}
	if err := s.source.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	if s.source.File != "" {
		s.provider = load.NewFileProvider(s.source.File)
		return s, nil
	}
	storage, err := gen.NewStorage(s.source.Driver)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(ctx, s.source.DSN,
		load.WithSchemaName(s.source.Schema),
		load.WithEntityNamespace(cfg.EntityNamespace),
		load.WithAuditable(cfg.AuditableBase),
	)
	if err != nil {
		return nil, err
	}
	s.provider, s.close = db, db.Close
	return s, nil
}

type cmdGenerate struct {
	global *cmdGlobal
	source sourceFlags

	flagTarget    string
	flagTemplates string
	flagDryRun    bool
	flagKeepGoing bool
	flagWorkers   int
}

func (c *cmdGenerate) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "generate"
	cmd.Short = "Generate CQRS commands and validators"
	cmd.Long = `Description:
  Generate create, update and delete commands and their validators for every
  auditable entity of the model.

  Without --config, ./cqrsgen.yaml is read when present.
`
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run
	c.source.register(cmd)
	cmd.Flags().StringVarP(&c.flagTarget, "target", "o", "", "Output directory")
	cmd.Flags().StringVar(&c.flagTemplates, "templates", "", "Template directory")
	cmd.Flags().BoolVar(&c.flagDryRun, "dry-run", false, "Render and list the files without writing them")
	cmd.Flags().BoolVar(&c.flagKeepGoing, "keep-going", false, "Keep generating the other entities when one fails")
	cmd.Flags().IntVar(&c.flagWorkers, "workers", 0, "Number of entities generated concurrently")

	return cmd
}

// options returns the configuration overrides of the flags.
func (c *cmdGenerate) options() []gen.Option {
	var opts []gen.Option
	if c.flagTarget != "" {
		opts = append(opts, gen.WithTarget(c.flagTarget))
	}
	if c.flagTemplates != "" {
		opts = append(opts, gen.WithTemplateDir(c.flagTemplates))
	}
	if c.flagDryRun {
		opts = append(opts, gen.WithDryRun(true))
	}
	if c.flagKeepGoing {
		opts = append(opts, gen.WithFailurePolicy(gen.PerEntity))
	}
	if c.flagWorkers != 0 {
		opts = append(opts, gen.WithWorkers(c.flagWorkers))
	}
	return opts
}

func (c *cmdGenerate) Run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := c.global.open(ctx, &c.source, c.options()...)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := gen.Generate(ctx, s.cfg, s.provider)
	if res != nil {
		printResult(cmd.OutOrStdout(), s.cfg, res)
	}
	return err
}

func printResult(w io.Writer, cfg *gen.Config, res *gen.Result) {
	for _, a := range res.Artifacts {
		fmt.Fprintln(w, a.Path)
	}
	verb := "Generated"
	if cfg.DryRun {
		verb = "Planned"
	}
	fmt.Fprintf(w, "%s %d files for %d entities", verb, len(res.Artifacts), res.Entities-len(res.Failed))
	if len(res.Failed) > 0 {
		fmt.Fprintf(w, ", %d failed: %v", len(res.Failed), res.Failed)
	}
	fmt.Fprintln(w)
}
