package main

import (
	"fmt"

	"roulette/pkg/protocol"

	"github.com/spf13/cobra"
)

// newStatusCmd creates the "roulette status" subcommand.
func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the watch daemon is running and what it holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := ResolvePaths(cmd.Context(), flags.root)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			info, err := checkDaemon(paths)
			if err != nil {
				return err
			}
			switch info.State {
			case daemonStopped:
				fmt.Fprintln(w, "watch daemon: stopped")
				return nil
			case daemonStale:
				fmt.Fprintf(w, "watch daemon: stale PID file (PID %d is not listening)\n", info.PID)
				return nil
			}

			resp, err := sendDirective(cmd.Context(), paths.SocketPath, protocol.Request{Op: protocol.OpStatus})
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "watch daemon: running (PID %d)\n%s\n", info.PID, resp.Detail)
			return nil
		},
	}
}
