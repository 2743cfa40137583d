package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"roulette/pkg/config"
	"roulette/pkg/engine"
	"roulette/pkg/ledger"
	"roulette/pkg/mutation"
	"roulette/pkg/snapshot"
	"roulette/pkg/workspace"

	"github.com/spf13/cobra"
)

// app bundles the stores every command works against.
type app struct {
	paths    *Paths
	logger   *slog.Logger
	config   *config.Loader
	ledger   *ledger.Store
	snaps    *snapshot.Store
	catalog  *mutation.Catalog
	out      io.Writer
	errOut   io.Writer
	notifier *styledNotifier
}

// openApp resolves paths, creates the state directory and opens the ledger.
func openApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	ctx := cmd.Context()

	logger, err := newLogger(cmd.ErrOrStderr(), flags.logLevel, flags.logJSON)
	if err != nil {
		return nil, err
	}

	paths, err := ResolvePaths(ctx, flags.root)
	if err != nil {
		return nil, err
	}
	if err := ensureStateDir(paths.Home); err != nil {
		return nil, err
	}

	led, err := ledger.Open(ctx, paths.DBPath)
	if err != nil {
		return nil, err
	}

	return &app{
		paths:  paths,
		logger: logger,
		config: config.NewLoader(paths.Home),
		ledger: led,
		snaps: snapshot.New(snapshot.Options{
			Root:   paths.Root,
			Dir:    paths.SnapshotDir,
			Logger: logger,
		}),
		catalog:  mutation.Default(),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		notifier: newStyledNotifier(cmd.ErrOrStderr(), DefaultTheme()),
	}, nil
}

// Close releases the ledger.
func (a *app) Close() error {
	return a.ledger.Close()
}

// newEngine wires an Engine over the app's stores.
func (a *app) newEngine(prompter engine.Prompter) (*engine.Engine, error) {
	return engine.New(engine.Options{
		Catalog:   a.catalog,
		Snapshots: a.snaps,
		Ledger:    a.ledger,
		Settings:  a.config,
		Workspace: workspace.NewInspector(a.paths.Root, workspace.WithLogger(a.logger)),
		Debug:     workspace.NewDebugProbe(a.paths.Home, a.logger),
		Prompter:  prompter,
		Notifier:  a.notifier,
		Logger:    a.logger,
		Out:       a.errOut,
	})
}

// ensureStateDir creates dir with a .gitignore that hides it from git.
func ensureStateDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir %s: %w", dir, err)
	}
	ignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(ignore); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(ignore, []byte("*\n"), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", ignore, err)
		}
	}
	return nil
}
