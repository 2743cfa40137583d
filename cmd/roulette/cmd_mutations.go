package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"roulette/pkg/mutation"

	"github.com/spf13/cobra"
)

// newMutationsCmd creates the "roulette mutations" subcommand.
func newMutationsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mutations",
		Short: "List the mutation catalog and which entries are enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := loaderFor(cmd, flags)
			if err != nil {
				return err
			}
			cfg, err := l.Load()
			if err != nil {
				return err
			}
			return printMutations(cmd, mutation.Default(), cfg.IsEnabled)
		},
	}
}

func printMutations(cmd *cobra.Command, catalog *mutation.Catalog, enabled func(string) bool) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ON\tNAME\tUNDO\tDESCRIPTION")
	for _, v := range catalog.All() {
		on := " "
		if enabled(v.Name()) {
			on = "✓"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", on, v.Name(), undoKind(v.Capabilities()), v.Description())
	}
	return tw.Flush()
}

// undoKind describes how a variant is reversed.
func undoKind(c mutation.Capabilities) string {
	var parts []string
	if c.SelfUndo {
		parts = append(parts, "self")
	} else {
		parts = append(parts, "snapshot")
	}
	if c.Expires {
		parts = append(parts, "timed")
	}
	return strings.Join(parts, ",")
}
