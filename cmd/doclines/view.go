package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/doclines/internal/config"
	"github.com/dshills/doclines/internal/lines"
	"github.com/dshills/doclines/internal/logging"
	"github.com/dshills/doclines/internal/renderer"
)

func newViewCommand(a *app) *cobra.Command {
	opts := renderer.DefaultOptions()
	var logPath string
	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Open a file in the interactive line model viewer",
		Long: `Open a file in a read-only terminal viewer.

Keys: j/k or arrows move the cursor, PgUp/PgDn scroll, Enter or z toggles
the fold on the cursor row, q or Esc quits. Clicking a gutter icon or a
fold placeholder toggles the fold.

When --config is given, the file is watched and edits to it apply live.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, a, args[0], logPath, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.ShowLineNumbers, "line-numbers", opts.ShowLineNumbers, "Show line numbers")
	cmd.Flags().BoolVar(&opts.ShowFoldIcons, "fold-icons", opts.ShowFoldIcons, "Show fold icons in the gutter")
	cmd.Flags().StringVar(&logPath, "log-file", "", "Append log output to this file")
	cmd.Flags().IntVar(&opts.ScrollMargin, "scroll-margin", opts.ScrollMargin, "Rows kept between the cursor and the view edge")
	return cmd
}

func runView(cmd *cobra.Command, a *app, path, logPath string, opts renderer.Options) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The terminal owns stderr while the viewer runs.
	logger := logging.Nop()
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger = newLogger(f, a.level).WithComponent("view")
	}

	d, err := openDocument(ctx, path, a.cfg.Editor, logger,
		lines.WithOnUpdate(func(*lines.Snapshot) { renderer.Wake(screen) }))
	if err != nil {
		return err
	}

	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath,
			func(f config.File) {
				if err := d.doc.UpdateConfig(f.Editor); err != nil {
					logger.Warn("apply config: %v", err)
				}
			},
			config.WithWatcherLogger(logger),
			config.WithErrorHandler(func(err error) {
				logger.Warn("reload config: %v", err)
			}),
		)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	v := renderer.NewView(d.doc, renderer.DefaultTheme(), opts)
	err = renderer.Run(ctx, screen, v, logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
