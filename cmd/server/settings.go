package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/amirasaad/awgen/infra/initializer"
	"github.com/amirasaad/awgen/pkg/app"
	"github.com/amirasaad/awgen/pkg/domain"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var (
	keyColor   = color.New(color.FgCyan, color.Bold)
	valueColor = color.New(color.FgGreen)
	noteColor  = color.New(color.FgYellow)
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and edit the project settings database",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print every stored setting",
			Args:  cobra.NoArgs,
			RunE: withDeps(func(cmd *cobra.Command, deps *app.Deps, _ []string) error {
				all, err := deps.Settings.All(cmd.Context())
				if err != nil {
					return err
				}
				printSettings(cmd.OutOrStdout(), all)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print the value of a setting",
			Args:  cobra.ExactArgs(1),
			RunE: withDeps(func(cmd *cobra.Command, deps *app.Deps, args []string) error {
				value, err := deps.Settings.GetSetting(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if value == nil {
					return fmt.Errorf("setting %q: %w", args[0], domain.ErrNotFound)
				}
				fmt.Fprintln(cmd.OutOrStdout(), *value) //nolint:errcheck
				return nil
			}),
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Store a setting",
			Args:  cobra.ExactArgs(2),
			RunE: withDeps(func(cmd *cobra.Command, deps *app.Deps, args []string) error {
				if err := deps.Settings.SetSetting(cmd.Context(), args[0], &args[1]); err != nil {
					return err
				}
				keyColor.Fprint(cmd.OutOrStdout(), args[0])     //nolint:errcheck
				fmt.Fprint(cmd.OutOrStdout(), " = ")            //nolint:errcheck
				valueColor.Fprintln(cmd.OutOrStdout(), args[1]) //nolint:errcheck
				return nil
			}),
		},
		&cobra.Command{
			Use:   "clear <key>",
			Short: "Remove a setting",
			Args:  cobra.ExactArgs(1),
			RunE: withDeps(func(cmd *cobra.Command, deps *app.Deps, args []string) error {
				if err := deps.Settings.SetSetting(cmd.Context(), args[0], nil); err != nil {
					return err
				}
				noteColor.Fprintf(cmd.OutOrStdout(), "cleared %s\n", args[0]) //nolint:errcheck
				return nil
			}),
		},
	)
	return cmd
}

// withDeps opens the settings infrastructure around fn.
func withDeps(fn func(*cobra.Command, *app.Deps, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		deps, err := initializer.InitializeDependencies(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize dependencies: %w", err)
		}
		defer func() {
			for _, c := range deps.Closers {
				err = multierr.Append(err, c.Close())
			}
		}()
		return fn(cmd, deps, args)
	}
}

func printSettings(w io.Writer, all map[string]string) {
	if len(all) == 0 {
		noteColor.Fprintln(w, "no settings stored") //nolint:errcheck
		return
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		keyColor.Fprint(w, k)          //nolint:errcheck
		fmt.Fprint(w, " = ")           //nolint:errcheck
		valueColor.Fprintln(w, all[k]) //nolint:errcheck
	}
}
