package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"roulette/pkg/config"

	"github.com/spf13/cobra"
)

// newInitCmd creates the "roulette init" subcommand.
func newInitCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .roulette state directory and a default config",
		Long: `Creates .roulette/ in the workspace root with a .gitignore, the history
ledger and a config.toml holding the defaults. Existing files are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			progress := newProgressLog(a.out, isTerminal(a.out), NewStyles(DefaultTheme()))
			progress.Step("state directory %s", a.paths.Home)
			progress.Step("history ledger %s", a.paths.DBPath)

			if err := exec.CommandContext(cmd.Context(), "git", "-C", a.paths.Root, "rev-parse", "--git-dir").Run(); err != nil {
				progress.Warn("%s is not a git repository; watch will not find commits", a.paths.Root)
			}

			path := a.config.Path()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if err := a.config.Save(config.Default()); err != nil {
					return err
				}
				progress.Step("default config %s", path)
			} else {
				progress.Step("config %s (kept)", path)
			}

			fmt.Fprintln(a.out, `Run "roulette watch" to start the wheel.`)
			return nil
		},
	}
}
