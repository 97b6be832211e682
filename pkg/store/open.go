package store

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/ssargent/strata/pkg/config"
	"github.com/ssargent/strata/pkg/kv"
	"github.com/ssargent/strata/pkg/kv/boltkv"
	"github.com/ssargent/strata/pkg/kv/pebblekv"
	"github.com/ssargent/strata/pkg/logger"
	"github.com/ssargent/strata/pkg/metrics"
)

const (
	boltFile  = "strata.db"
	pebbleDir = "pebble"
)

// OpenEnv opens the engine named by cfg.Engine under cfg.DataDir.
func OpenEnv(cfg *config.Config, log logger.Logger) (kv.Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger
	}

	switch cfg.Engine {
	case config.EnginePebble:
		dir := filepath.Join(cfg.DataDir, pebbleDir)
		log.Infof("opening pebble environment at %s", dir)
		return pebblekv.Open(dir, pebblekv.Options{
			NoSync: cfg.Storage.NoSync,
			Logger: log.WithPrefix("pebble: "),
		})
	case config.EngineBolt:
		path := filepath.Join(cfg.DataDir, boltFile)
		log.Infof("opening bolt environment at %s", path)
		return boltkv.Open(path, boltkv.Options{
			Timeout: cfg.Storage.OpenTimeout,
			NoSync:  cfg.Storage.NoSync,
		})
	}
	return nil, errors.Errorf("unknown engine %q", cfg.Engine)
}

// Open opens the environment described by cfg and builds both stores over
// it. Closing the result closes the environment.
func Open(cfg *config.Config, log logger.Logger, m *metrics.Metrics) (*Backgroundable, error) {
	env, err := OpenEnv(cfg, log)
	if err != nil {
		return nil, err
	}
	opts := Options{
		Table:        cfg.Table,
		MinValueSize: cfg.Storage.MinValueSize,
		Logger:       log,
		Metrics:      m,
	}
	b := NewBackgroundable(env, opts, cfg.Background.Workers)
	b.owned = true
	return b, nil
}
