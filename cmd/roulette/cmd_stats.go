package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newStatsCmd creates the "roulette stats" subcommand.
func newStatsCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize how mutations ended",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			stats, err := a.ledger.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			fmt.Fprint(a.out, renderStats(stats, NewStyles(DefaultTheme())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}
