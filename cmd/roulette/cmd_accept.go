package main

import (
	"fmt"

	"roulette/pkg/protocol"

	"github.com/spf13/cobra"
)

// newAcceptCmd creates the "roulette accept" subcommand.
func newAcceptCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "accept",
		Short: "Accept your fate: keep the latest mutation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if daemonUp(a.paths) {
				resp, err := sendDirective(cmd.Context(), a.paths.SocketPath, protocol.Request{Op: protocol.OpAccept})
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
			detail, err := acceptLatest(cmd.Context(), eng, a.ledger)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, detail)
			return nil
		},
	}
}
