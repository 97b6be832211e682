/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/strata/pkg/config"
	"github.com/ssargent/strata/pkg/store"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file and create the store",
		Long: `Write a configuration file with a generated API key, then create the
store it describes.

Examples:
  strata init
  strata init --config ./strata.yaml --data-dir ./data --engine pebble
  strata init --force --print-key`,
		Annotations: map[string]string{"store": "none"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			engine, _ := cmd.Flags().GetString("engine")
			force, _ := cmd.Flags().GetBool("force")
			printKey, _ := cmd.Flags().GetBool("print-key")
			if path == "" {
				path = config.GetDefaultConfigPath()
			}

			if config.ConfigExists(path) && !force {
				return fmt.Errorf("config %s already exists, use --force to overwrite it", path)
			}

			cfg, err := config.BootstrapConfig(path, dataDir, engine)
			if err != nil {
				return err
			}

			env, err := store.OpenEnv(cfg, nil)
			if err != nil {
				return fmt.Errorf("failed to create store: %w", err)
			}
			if err := env.Close(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration written to %s\n", path)
			fmt.Fprintf(out, "Store created in %s (%s)\n", cfg.DataDir, cfg.Engine)
			if printKey {
				fmt.Fprintf(out, "API key: %s\n", cfg.Security.APIKey)
			}
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "overwrite an existing config file")
	cmd.Flags().Bool("print-key", false, "print the generated API key")
	return cmd
}
