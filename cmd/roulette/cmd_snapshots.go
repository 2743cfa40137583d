package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"roulette/pkg/protocol"

	"github.com/spf13/cobra"
)

// newSnapshotsCmd creates the "roulette snapshots" command group.
func newSnapshotsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect and restore workspace snapshots",
	}
	cmd.AddCommand(
		newSnapshotsListCmd(flags),
		newSnapshotsRestoreCmd(flags),
		newSnapshotsPruneCmd(flags),
	)
	return cmd
}

func newSnapshotsListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List retained snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			infos, err := a.snaps.List()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintln(a.out, "No snapshots.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tFILES\tSIZE")
			for _, s := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.CreatedAt.Local().Format(time.DateTime), s.Files, formatBytes(s.Bytes))
			}
			return tw.Flush()
		},
	}
}

func newSnapshotsRestoreCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore the workspace from a snapshot",
		Long: `Copies every file of the snapshot back over the workspace. Files created
after the snapshot are left alone. When the snapshot belongs to the latest
mutation, that mutation is marked undone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			id := args[0]
			if daemonUp(a.paths) {
				resp, err := sendDirective(cmd.Context(), a.paths.SocketPath,
					protocol.Request{Op: protocol.OpUndo, SnapshotID: id})
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
			res, err := eng.Undo(cmd.Context(), id)
			if msg, ok := benignUndo(err); ok {
				fmt.Fprintln(a.out, msg)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, describeUndo(res))
			for _, f := range res.Report.Failed {
				fmt.Fprintf(a.errOut, "  failed: %s: %v\n", f.Path, f.Err)
			}
			return nil
		},
	}
}

func newSnapshotsPruneCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			removed, err := a.snaps.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Pruned %d snapshots.\n", len(removed))
			return nil
		},
	}
}

// formatBytes renders n with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
