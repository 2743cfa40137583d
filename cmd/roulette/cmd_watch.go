package main

import (
	"context"
	"fmt"
	"log/slog"

	"roulette/pkg/engine"
	"roulette/pkg/gitwatch"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// newWatchCmd creates the "roulette watch" subcommand.
func newWatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch for commits and spin the wheel after each one",
		Long: `Runs in the foreground until interrupted. Each new commit rolls the dice;
on a hit the workspace is snapshotted and a mutation applied. Other roulette
commands (undo, accept, trigger, status) talk to this daemon over its socket.
On exit an active timed mutation is reverted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, flags)
		},
	}
}

func runWatch(cmd *cobra.Command, flags *globalFlags) error {
	a, err := openApp(cmd, flags)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	cfg, err := a.config.Load()
	if err != nil {
		return err
	}

	pid := pidFile(a.paths.PIDPath)
	if err := pid.claim(); err != nil {
		return err
	}
	ctx, cleanup := daemonContext(cmd.Context(), pid, a.paths.SocketPath)
	defer cleanup()

	styles := NewStyles(DefaultTheme())
	eng, err := a.newEngine(choosePrompter(a.errOut, styles))
	if err != nil {
		return err
	}

	ln, err := listenUnix(a.paths.SocketPath)
	if err != nil {
		return err
	}

	debounce := cfg.Debounce()
	if debounce == 0 {
		debounce = -1
	}
	det := gitwatch.New(gitwatch.Options{
		Root:         a.paths.Root,
		PollInterval: cfg.PollInterval(),
		Debounce:     debounce,
		Cooldown:     cfg.TriggerCooldown(),
		Logger:       a.logger,
	})

	triggers := make(chan engine.Trigger, 1)
	srv := &directiveServer{engine: eng, ledger: a.ledger, triggers: triggers, logger: a.logger}

	progress := newProgressLog(a.out, isTerminal(a.out), styles)
	progress.Step("watching %s", a.paths.Root)
	progress.Step("directives on %s", a.paths.SocketPath)
	if cfg.Enabled {
		progress.Step("odds %.4g%% per commit, %d mutations enabled", cfg.Probability, len(cfg.EnabledMutations))
	} else {
		progress.Warn(`disabled; run "roulette config on" to enable`)
	}

	commits := make(chan gitwatch.Commit)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return det.Run(gctx, commits) })
	g.Go(func() error { return srv.Serve(gctx, ln) })
	g.Go(func() error {
		triggerLoop(gctx, eng, commits, triggers, a, styles)
		return nil
	})

	err = g.Wait()
	eng.Shutdown(context.WithoutCancel(cmd.Context()))
	fmt.Fprintln(a.out, styles.Muted.Render("roulette stopped"))
	return err
}

// triggerLoop runs one cycle per commit or forced directive, in order.
func triggerLoop(ctx context.Context, eng *engine.Engine, commits <-chan gitwatch.Commit, forced <-chan engine.Trigger, a *app, styles Styles) {
	for {
		var trig engine.Trigger
		select {
		case <-ctx.Done():
			return
		case c := <-commits:
			trig = engine.Trigger{Reason: c.Hash}
		case t := <-forced:
			trig = t
		}

		out, err := eng.Roulette(ctx, trig)
		if err != nil {
			a.logger.Error("roulette cycle failed", slog.String("reason", trig.Reason), slog.Any("error", err))
		}
		printOutcome(a.out, styles, out)
	}
}
