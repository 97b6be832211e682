/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ssargent/strata/pkg/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the inspection API server",
		Long: `Start a read-only HTTP API over the store: health, statistics and raw
entry scans under /api/v1, and Prometheus metrics under /metrics.

Requests to /api/v1 must carry the configured API key in X-API-Key.

Examples:
  strata serve
  strata serve --port 9000 --bind 0.0.0.0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := mustEnv(cmd)
			if err != nil {
				return err
			}
			cfg := api.ServerConfig{
				Bind:   e.cfg.Server.Bind,
				Port:   e.cfg.Server.Port,
				APIKey: e.cfg.Security.APIKey,
			}
			if cmd.Flags().Changed("port") {
				cfg.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("bind") {
				cfg.Bind, _ = cmd.Flags().GetString("bind")
			}
			if cmd.Flags().Changed("api-key") {
				cfg.APIKey, _ = cmd.Flags().GetString("api-key")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return api.StartServer(ctx, e.db.Main, cfg, e.metrics, e.reg, e.log)
		},
	}
	cmd.Flags().IntP("port", "p", 8080, "port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "address to bind")
	cmd.Flags().String("api-key", "", "API key, overrides the config file")
	return cmd
}
