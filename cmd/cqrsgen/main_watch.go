package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/syssam/cqrsgen/compiler/gen"
	"github.com/syssam/cqrsgen/compiler/watch"
)

type cmdWatch struct {
	global *cmdGlobal
	source sourceFlags

	flagDebounce time.Duration
}

func (c *cmdWatch) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "watch"
	cmd.Short = "Regenerate whenever the schema, templates or configuration change"
	cmd.Long = `Description:
  Generate once, then watch the schema file, the template directory and the
  configuration file and regenerate after every change. Stop with Ctrl-C.

  Failures are logged and do not stop the watch. A database schema source is
  introspected again on every run but not watched.
`
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run
	c.source.register(cmd)
	cmd.Flags().DurationVar(&c.flagDebounce, "debounce", watch.DefaultDebounce, "Quiet period before regenerating")

	return cmd
}

func (c *cmdWatch) Run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath, err := c.global.configPath()
	if err != nil {
		return err
	}
	// The first session only locates the inputs; every run reloads them.
	s, err := c.global.open(ctx, &c.source)
	if err != nil {
		return err
	}
	inputs := s.inputs(configPath)
	s.close()

	out := cmd.OutOrStdout()
	run := func(ctx context.Context) error {
		s, err := c.global.open(ctx, &c.source)
		if err != nil {
			return err
		}
		defer s.close()
		res, err := gen.Generate(ctx, s.cfg, s.provider)
		if res != nil {
			printResult(out, s.cfg, res)
		}
		return err
	}
	if err := run(ctx); err != nil {
		c.global.log.Error("Generation failed", "error", err)
	}

	fmt.Fprintf(out, "Watching %v\n", inputs)
	w := watch.New(run, watch.WithDebounce(c.flagDebounce), watch.WithLogger(c.global.log))
	return w.Watch(ctx, inputs...)
}
