package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"roulette/pkg/protocol"

	"github.com/spf13/cobra"
)

// newHistoryCmd creates the "roulette history" subcommand.
func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past mutations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			events, err := a.ledger.All(cmd.Context())
			if err != nil {
				return err
			}
			slices.Reverse(events)
			if limit > 0 && len(events) > limit {
				events = events[:limit]
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				if events == nil {
					events = []protocol.Event{}
				}
				return enc.Encode(events)
			}
			return printHistory(a.out, events)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many events (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printHistory(w io.Writer, events []protocol.Event) error {
	if len(events) == 0 {
		fmt.Fprintln(w, "No mutations yet.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tMUTATION\tSTATUS\tSNAPSHOT\tEVENT")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime),
			e.Mutation,
			e.Status,
			e.SnapshotID,
			shortID(e.ID))
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
