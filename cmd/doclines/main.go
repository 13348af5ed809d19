// Package main is the entry point for the doclines tool.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/doclines/internal/config"
	"github.com/dshills/doclines/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// app holds what the root command resolves before a subcommand runs.
type app struct {
	configPath string
	logLevel   string

	cfg    config.File
	level  logging.Level
	logger *logging.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "doclines",
		Short: "Inspect the folded and wrapped line model of a file",
		Long: `doclines builds the three-level line model of a file (origin lines,
folded rendered units, and wrapped visual lines) and either prints it or
shows it in an interactive terminal viewer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a TOML or YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newDumpCommand(a))
	root.AddCommand(newViewCommand(a))
	root.AddCommand(newVersionCommand())
	return root
}

// setup loads the configuration and builds the logger. The --log-level flag
// wins over the file's log_level.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.LoadFile(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		if err := config.ApplyEnv(&cfg, os.LookupEnv); err != nil {
			return err
		}
		if err := cfg.Editor.Validate(); err != nil {
			return err
		}
	}

	name := cfg.LogLevel
	if cmd.Flags().Changed("log-level") {
		name = a.logLevel
	}
	level, ok := logging.ParseLevel(name)
	if !ok && name != "" {
		return fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", name)
	}

	a.cfg = cfg
	a.level = level
	a.logger = newLogger(cmd.ErrOrStderr(), level)
	return nil
}

func newLogger(w io.Writer, level logging.Level) *logging.Logger {
	return logging.New(logging.Config{Level: level, Output: w, Prefix: "doclines"})
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "doclines %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}
