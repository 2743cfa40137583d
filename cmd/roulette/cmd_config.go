package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"roulette/pkg/config"
	"roulette/pkg/mutation"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// newConfigCmd creates the "roulette config" command group.
func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change roulette settings",
		Long: `Reads and writes .roulette/config.toml (or config.yaml when that is the
file in use). Changes apply to the next commit; a running watch daemon picks
them up without a restart. ROULETTE_* environment overrides are shown by
"config show" but never written.`,
	}
	cmd.AddCommand(
		newConfigShowCmd(flags),
		newConfigToggleCmd(flags, "on", "Enable roulette", true),
		newConfigToggleCmd(flags, "off", "Disable roulette", false),
		newConfigMutationCmd(flags, "enable", "Enable mutations by name", true),
		newConfigMutationCmd(flags, "disable", "Disable mutations by name", false),
		newConfigProbabilityCmd(flags),
		newConfigDurationCmd(flags),
	)
	return cmd
}

// loaderFor resolves the state dir without opening the ledger.
func loaderFor(cmd *cobra.Command, flags *globalFlags) (*config.Loader, error) {
	paths, err := ResolvePaths(cmd.Context(), flags.root)
	if err != nil {
		return nil, err
	}
	if err := ensureStateDir(paths.Home); err != nil {
		return nil, err
	}
	return config.NewLoader(paths.Home), nil
}

func newConfigShowCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
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
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Fprintf(w, "# %s\n%s", l.Path(), data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

// updateAndReport saves fn's change and prints msg.
func updateAndReport(cmd *cobra.Command, flags *globalFlags, fn func(*config.Config) error, msg func(config.Config) string) error {
	l, err := loaderFor(cmd, flags)
	if err != nil {
		return err
	}
	cfg, err := l.Update(fn)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg(cfg))
	return nil
}

func newConfigToggleCmd(flags *globalFlags, use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return updateAndReport(cmd, flags,
				func(c *config.Config) error { c.Enabled = enabled; return nil },
				func(c config.Config) string {
					if c.Enabled {
						return "Roulette enabled."
					}
					return "Roulette disabled."
				})
		},
	}
}

func newConfigMutationCmd(flags *globalFlags, use, short string, enable bool) *cobra.Command {
	return &cobra.Command{
		Use:       use + " <mutation>...",
		Short:     short,
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: mutation.Default().Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := mutation.Default()
			for _, name := range args {
				if _, ok := catalog.Lookup(name); !ok {
					return fmt.Errorf("unknown mutation %q (see \"roulette mutations\")", name)
				}
			}
			return updateAndReport(cmd, flags,
				func(c *config.Config) error {
					c.EnabledMutations = setMutations(catalog, c.EnabledMutations, args, enable)
					return nil
				},
				func(c config.Config) string {
					return fmt.Sprintf("%d of %d mutations enabled.", len(c.EnabledMutations), len(catalog.All()))
				})
		},
	}
}

// setMutations adds or removes names from enabled, keeping catalog order.
func setMutations(catalog *mutation.Catalog, enabled, names []string, enable bool) []string {
	out := []string{}
	for _, v := range catalog.All() {
		name := v.Name()
		on := slices.Contains(enabled, name)
		if slices.Contains(names, name) {
			on = enable
		}
		if on {
			out = append(out, name)
		}
	}
	return out
}

func newConfigProbabilityCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "probability <percent>",
		Short: "Set the chance (0-100) that a commit triggers a mutation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("probability %q: %w", args[0], err)
			}
			return updateAndReport(cmd, flags,
				func(c *config.Config) error { c.Probability = p; return nil },
				func(c config.Config) string { return fmt.Sprintf("Probability set to %g%%.", c.Probability) })
		},
	}
}

func newConfigDurationCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "duration <minutes>",
		Short: "Set how long timed mutations last before reverting themselves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("duration %q: %w", args[0], err)
			}
			return updateAndReport(cmd, flags,
				func(c *config.Config) error { c.MutationDurationMinutes = m; return nil },
				func(c config.Config) string {
					return fmt.Sprintf("Timed mutations now last %d minutes.", c.MutationDurationMinutes)
				})
		},
	}
}
