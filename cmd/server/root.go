package main

import (
	"fmt"

	"github.com/amirasaad/awgen/pkg/config"
	"github.com/spf13/cobra"
)

var (
	flagEnvFile string
	flagProject string
)

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "awgen",
		Short: "Run the awgen game host and its script runtime",
		Long: `awgen runs the script runtime of a game project and handles the packets
it sends back to the host. Project settings are kept in the project's
settings database and can be inspected with the settings command.`,
		SilenceUsage: true,
		RunE:         runHost,
	}

	cmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Environment file to load")
	cmd.PersistentFlags().StringVar(&flagProject, "project", "", "Project folder (overrides SCRIPTS_PROJECT_FOLDER)")

	cmd.AddCommand(newRunCmd(), newSettingsCmd())
	return cmd
}

func loadConfig() (*config.App, error) {
	cfg, err := config.Load(flagEnvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load application configuration: %w", err)
	}
	if flagProject != "" {
		cfg.Scripts.ProjectFolder = flagProject
	}
	return cfg, nil
}
