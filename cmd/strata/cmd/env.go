package cmd

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/ssargent/strata/pkg/config"
	"github.com/ssargent/strata/pkg/logger"
	"github.com/ssargent/strata/pkg/metrics"
	"github.com/ssargent/strata/pkg/store"
)

type envKey struct{}

// env is what PersistentPreRunE opens for a command.
type env struct {
	cfg *config.Config
	log logger.Logger
	db  *store.Backgroundable

	reg     *prometheus.Registry
	metrics *metrics.Metrics
}

func withEnv(ctx context.Context, e *env) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, envKey{}, e)
}

func envFrom(ctx context.Context) (*env, bool) {
	if ctx == nil {
		return nil, false
	}
	e, ok := ctx.Value(envKey{}).(*env)
	return e, ok
}

func mustEnv(cmd *cobra.Command) (*env, error) {
	e, ok := envFrom(cmd.Context())
	if !ok {
		return nil, errors.New("store not found in context")
	}
	return e, nil
}
