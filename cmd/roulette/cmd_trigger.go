package main

import (
	"context"
	"fmt"

	"roulette/pkg/engine"
	"roulette/pkg/protocol"

	"github.com/spf13/cobra"
)

// newTriggerCmd creates the "roulette trigger" subcommand.
func newTriggerCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Spin the wheel now at 100% odds",
		Long: `Forces a roulette cycle. When a watch daemon is running the cycle runs
there; otherwise it runs in this process, which waits for a timed mutation
to expire (or Ctrl+C) before exiting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if daemonUp(a.paths) {
				resp, err := sendDirective(cmd.Context(), a.paths.SocketPath, protocol.Request{Op: protocol.OpTrigger})
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, resp.Detail)
				return nil
			}

			styles := NewStyles(DefaultTheme())
			eng, err := a.newEngine(choosePrompter(a.errOut, styles))
			if err != nil {
				return err
			}
			ctx, cleanup := daemonContext(cmd.Context(), "", "")
			defer cleanup()

			out, err := eng.Roulette(ctx, engine.Trigger{Force: true, Reason: "manual"})
			printOutcome(a.out, styles, out)
			if err != nil {
				return err
			}
			waitForActive(ctx, a.out, eng)
			eng.Shutdown(context.WithoutCancel(cmd.Context()))
			return nil
		},
	}
}
