package main

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

type cmdGlobal struct {
	cmd *cobra.Command

	flagConfig     string
	flagLogDebug   bool
	flagLogVerbose bool

	log *slog.Logger
}

// Run sets up logging before any command runs.
func (c *cmdGlobal) Run(cmd *cobra.Command, args []string) error {
	c.log = newLogger(cmd.ErrOrStderr(), c.flagLogDebug, c.flagLogVerbose)
	slog.SetDefault(c.log)
	return nil
}

func newLogger(w io.Writer, debug, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case debug:
		level = slog.LevelDebug
	case verbose:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	}))
}

func newApp() *cobra.Command {
	// generate command (main)
	generateCmd := cmdGenerate{}
	app := generateCmd.Command()
	app.Use = "cqrsgen"
	app.SilenceUsage = true
	app.SilenceErrors = true
	app.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}

	// Global flags
	globalCmd := cmdGlobal{cmd: app}
	generateCmd.global = &globalCmd
	app.PersistentPreRunE = globalCmd.Run
	app.PersistentFlags().StringVarP(&globalCmd.flagConfig, "config", "c", "", "Path to the configuration file (default ./cqrsgen.yaml when present)")
	app.PersistentFlags().BoolVarP(&globalCmd.flagLogDebug, "debug", "d", false, "Show all debug messages")
	app.PersistentFlags().BoolVarP(&globalCmd.flagLogVerbose, "verbose", "v", false, "Show all information messages")

	// generate sub-command, same as the main command
	explicitCmd := cmdGenerate{global: &globalCmd}
	app.AddCommand(explicitCmd.Command())

	// watch sub-command
	watchCmd := cmdWatch{global: &globalCmd}
	app.AddCommand(watchCmd.Command())

	// schema sub-command
	schemaCmd := cmdSchema{global: &globalCmd}
	app.AddCommand(schemaCmd.Command())

	// Version handling
	app.SetVersionTemplate("{{.Version}}\n")
	app.Version = version

	return app
}

func main() {
	app := newApp()
	err := app.Execute()
	if err != nil {
		app.PrintErrf("Error: %s\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
