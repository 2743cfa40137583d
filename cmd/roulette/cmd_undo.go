package main

import (
	"fmt"

	"roulette/pkg/protocol"

	"github.com/spf13/cobra"
)

// newUndoCmd creates the "roulette undo" subcommand.
func newUndoCmd(flags *globalFlags) *cobra.Command {
	var snapshotID string

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Undo the latest mutation",
		Long: `Reverts the latest mutation: by the mutation's own undo when the watch
daemon still holds it, otherwise by restoring its snapshot. Undoing twice is
harmless. With --snapshot, restores that snapshot instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if daemonUp(a.paths) {
				resp, err := sendDirective(cmd.Context(), a.paths.SocketPath,
					protocol.Request{Op: protocol.OpUndo, SnapshotID: snapshotID})
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, resp.Detail)
				return nil
			}

			eng, err := a.newEngine(nil)
			if err != nil {
				return err
			}
			stop := newProgressLog(a.errOut, isTerminal(a.errOut), NewStyles(DefaultTheme())).StartSpinner("Undoing")
			res, err := eng.Undo(cmd.Context(), snapshotID)
			stop()
			if err != nil {
				if msg, ok := benignUndo(err); ok {
					fmt.Fprintln(a.out, msg)
					return nil
				}
				return err
			}
			fmt.Fprintln(a.out, describeUndo(res))
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshotID, "snapshot", "", "restore this snapshot id instead of the latest mutation's")
	return cmd
}
