package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/syssam/cqrsgen/compiler/load"
)

type cmdSchema struct {
	global *cmdGlobal
}

func (c *cmdSchema) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "schema"
	cmd.Short = "Inspect the entity model"
	cmd.Long = `Description:
  Inspect the entity model the generator reads.
`

	// Dump
	schemaDumpCmd := cmdSchemaDump{global: c.global}
	cmd.AddCommand(schemaDumpCmd.Command())

	// Workaround for subcommand usage errors. See: https://github.com/spf13/cobra/issues/706
	cmd.Args = cobra.NoArgs
	cmd.Run = func(cmd *cobra.Command, args []string) { _ = cmd.Usage() }
	return cmd
}

type cmdSchemaDump struct {
	global *cmdGlobal
	source sourceFlags

	flagFormat string
	flagOutput string
}

func (c *cmdSchemaDump) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "dump"
	cmd.Short = "Write a snapshot of the entity model"
	cmd.Long = `Description:
  Read the entity model from the configured source, usually a database, and
  write it as a snapshot file that can be used with --schema.

  The format defaults to the extension of --output, or yaml on stdout.
`
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run
	c.source.register(cmd)
	cmd.Flags().StringVarP(&c.flagFormat, "format", "f", "", "Snapshot format (yaml, json or msgpack)")
	cmd.Flags().StringVarP(&c.flagOutput, "output", "o", "", "Output file (default stdout)")

	return cmd
}

// format returns the snapshot format from the flags.
func (c *cmdSchemaDump) format() (load.Format, error) {
	switch {
	case c.flagFormat != "":
		return load.ParseFormat(c.flagFormat)
	case c.flagOutput != "":
		return load.FormatOf(c.flagOutput)
	default:
		return load.FormatYAML, nil
	}
}

func (c *cmdSchemaDump) Run(cmd *cobra.Command, args []string) error {
	format, err := c.format()
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	ctx := cmd.Context()
	s, err := c.global.open(ctx, &c.source)
	if err != nil {
		return err
	}
	defer s.close()

	snapshot, err := load.Snapshot(ctx, s.provider)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if c.flagOutput != "" {
		if err := os.MkdirAll(filepath.Dir(c.flagOutput), 0o755); err != nil {
			return err
		}
		f, err := os.Create(c.flagOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := load.EncodeSchema(w, snapshot, format); err != nil {
		return err
	}
	c.global.log.Info("Dumped schema", "entities", len(snapshot.Entities), "format", format)
	return nil
}
