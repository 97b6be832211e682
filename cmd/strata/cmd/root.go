/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/ssargent/strata/pkg/config"
	"github.com/ssargent/strata/pkg/logger"
	"github.com/ssargent/strata/pkg/metrics"
	"github.com/ssargent/strata/pkg/store"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strata",
		Short: "Strata - typed records over an ordered KV store",
		Long: `Strata stores typed records in an embedded ordered key-value engine
(bbolt or Pebble). This tool inspects, dumps, restores and serves a store.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipStore(cmd) {
				return nil
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logger.New(cmd.ErrOrStderr(), cfg.Logging.Level)
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			db, err := store.Open(cfg, log, m)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			cmd.SetContext(withEnv(cmd.Context(), &env{cfg: cfg, log: log, db: db, reg: reg, metrics: m}))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			e, ok := envFrom(cmd.Context())
			if !ok {
				return nil
			}
			return e.db.Close()
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "config file (default "+config.GetDefaultConfigPath()+")")
	cmd.PersistentFlags().StringP("data-dir", "d", "", "data directory, overrides the config file")
	cmd.PersistentFlags().String("engine", "", "storage engine (bolt or pebble), overrides the config file")

	cmd.AddCommand(newInitCmd(), newStatsCmd(), newScanCmd(), newDumpCmd(), newRestoreCmd(), newServeCmd())
	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// skipStore reports whether cmd runs without an open store.
func skipStore(cmd *cobra.Command) bool {
	return cmd.Annotations["store"] == "none"
}

// loadConfig reads the config file named by --config, or the default one if
// it exists, and applies flag overrides. Without a file the defaults apply.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		path = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if explicit || config.ConfigExists(path) {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if engine, _ := cmd.Flags().GetString("engine"); engine != "" {
		cfg.Engine = engine
	}
	return cfg, cfg.Validate()
}
