package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/nailedit/internal/model"
)

func newConfigCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the config file",
	}
	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), a.ConfigPath)
		},
	})
	return cmd
}

func newConfigInitCmd(a *App) *cobra.Command {
	var (
		force   bool
		baseURL string
		goals   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Long: "Writes the current settings (defaults, existing file and NAILEDIT_* " +
			"environment overrides) so they can be edited by hand.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.ConfigPath); err == nil && !force {
				return writeErr(cmd, fmt.Errorf("%s already exists, use --force to overwrite", a.ConfigPath))
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cfg := *a.cfg
			if baseURL != "" {
				cfg.API.BaseURL = baseURL
			}
			if goals != "" {
				cfg.Goals.Mode = goals
			}
			if err := cfg.Validate(); err != nil {
				return writeErr(cmd, err)
			}
			if err := model.SaveConfig(a.ConfigPath, &cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", a.ConfigPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL")
	cmd.Flags().StringVar(&goals, "goals", "", "Where goals are kept: remote or local")
	return cmd
}
