package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/njoerd114/placereminder/internal/config"
	"github.com/njoerd114/placereminder/internal/geofence"
	"github.com/njoerd114/placereminder/internal/reminders"
	"github.com/njoerd114/placereminder/internal/state"
	"github.com/njoerd114/placereminder/internal/worker"
)

// app bundles the components shared by every subcommand that touches the
// reminder database.
type app struct {
	cfg      *config.Config
	dbPath   string
	store    *state.Store
	repo     *reminders.Repository
	registry *geofence.Registry
	logger   *slog.Logger
}

// newLogger builds the stderr text logger used by every subcommand.
func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads cfgPath. When required is false a missing file yields the
// defaults so local commands work before setup has run.
func loadConfig(cfgPath string, required bool, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err == nil {
		return cfg, nil
	}
	if !required && errors.Is(err, fs.ErrNotExist) {
		logger.Debug("no config file, using defaults", "path", cfgPath)
		return config.Default(), nil
	}
	return nil, fmt.Errorf("loading config from %q: %w", cfgPath, err)
}

// geofenceOptions converts the geofence config block.
func geofenceOptions(cfg *config.Config) geofence.Options {
	opts := geofence.Options{
		RadiusMeters: cfg.Geofence.RadiusMeters,
		Expiration:   cfg.Geofence.Expiration,
	}
	if cfg.Geofence.NeverExpire {
		opts.Expiration = geofence.NeverExpire
	}
	return opts
}

func dbPath(cfg *config.Config) (string, error) {
	if cfg.Database.Path != "" {
		return cfg.Database.Path, nil
	}
	p, err := state.DefaultDBPath()
	if err != nil {
		return "", fmt.Errorf("resolving state DB path: %w", err)
	}
	return p, nil
}

// openApp opens the database and builds the repository and registry.
func openApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	path, err := dbPath(cfg)
	if err != nil {
		return nil, err
	}
	store, err := state.OpenWithDriver(cfg.Database.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("opening state DB at %q: %w", path, err)
	}
	logger.Debug("state DB opened", "path", path, "driver", cfg.Database.Driver)

	return &app{
		cfg:      cfg,
		dbPath:   path,
		store:    store,
		repo:     reminders.NewRepository(store, worker.NewPool(cfg.Workers), logger),
		registry: geofence.NewRegistry(store, geofence.DefaultMaxGeofences, logger),
		logger:   logger,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing state DB", "error", err)
	}
}
