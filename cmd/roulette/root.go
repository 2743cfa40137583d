package main

import (
	"fmt"

	"roulette/internal/appversion"

	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	root     string
	logLevel string
	logJSON  bool
}

// newRootCmd creates the root roulette command with all subcommands attached.
func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "roulette",
		Short: "Commit roulette: a safety-net mutation engine for your working tree",
		Long: `roulette watches a git working tree. After each commit it may roll the dice
and apply a small, reversible mutation to your files, after taking a full
snapshot. Every mutation can be undone with "roulette undo".`,
		Version:       fmt.Sprintf("roulette %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.root, "root", "", "workspace root (default: git top-level of the current directory)")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.BoolVar(&flags.logJSON, "log-json", false, "emit logs as JSON")

	cmd.AddCommand(
		newInitCmd(flags),
		newWatchCmd(flags),
		newTriggerCmd(flags),
		newUndoCmd(flags),
		newAcceptCmd(flags),
		newStatusCmd(flags),
		newHistoryCmd(flags),
		newStatsCmd(flags),
		newSnapshotsCmd(flags),
		newConfigCmd(flags),
		newMutationsCmd(flags),
	)

	return cmd
}
