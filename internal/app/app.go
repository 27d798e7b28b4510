// Package app wires configuration, logging, persistence and the engine
// together for the binaries.
package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/hailam/rizzi/internal/config"
	"github.com/hailam/rizzi/internal/engine"
	"github.com/hailam/rizzi/internal/logging"
	"github.com/hailam/rizzi/internal/storage"
)

// App holds the long-lived pieces shared by every front-end.
type App struct {
	Config *config.Store
	Log    zerolog.Logger
	Engine *engine.Engine

	// Store is nil when the database could not be opened; the app then
	// runs without persistence.
	Store *storage.Storage
}

// Open resolves the configuration from parsed flags, layers stored
// preferences under explicit flags and builds the engine. Logs go to
// logOut.
func Open(flags *config.Flags, logOut io.Writer) (*App, error) {
	cfg, err := flags.Resolve()
	if err != nil {
		return nil, err
	}
	log := logging.New(logOut, cfg.LogLevel, cfg.LogPretty)

	a := &App{Log: log}
	if dir, err := storage.DatabaseDir(cfg.DataDir); err != nil {
		log.Warn().Err(err).Msg("no data directory, running without persistence")
	} else if a.Store, err = storage.Open(dir); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("open database, running without persistence")
		a.Store = nil
	}

	if a.Store != nil {
		prefs, err := a.Store.LoadPreferences()
		switch {
		case err == nil:
			cfg.ApplyPreferences(prefs, flags.FlagSet())
			if err := cfg.Validate(); err != nil {
				a.Store.Close()
				return nil, fmt.Errorf("stored preferences: %w", err)
			}
		case !errors.Is(err, storage.ErrNotFound):
			log.Warn().Err(err).Msg("load preferences")
		}
	}

	a.Config = config.NewStore(cfg)
	a.Engine = engine.NewEngine(cfg.HashMB)

	if cfg.PersistTT && a.Store != nil {
		entries, err := a.Store.LoadTT()
		switch {
		case err == nil:
			a.Engine.TT().Load(entries)
			log.Info().Int("entries", len(entries)).Msg("transposition table restored")
		case !errors.Is(err, storage.ErrNotFound):
			log.Warn().Err(err).Msg("load transposition table")
		}
	}

	log.Debug().
		Int("hash_mb", cfg.HashMB).
		Int("move_time_ms", cfg.MoveTimeMs).
		Int("max_depth", cfg.MaxDepth).
		Bool("persist_tt", cfg.PersistTT).
		Msg("configuration")
	return a, nil
}

// SavePreferences persists p when a database is open.
func (a *App) SavePreferences(p config.Preferences) error {
	if a.Store == nil {
		return nil
	}
	return a.Store.SavePreferences(p)
}

// RecordMatch appends a finished game to the match log when a database
// is open.
func (a *App) RecordMatch(rec storage.MatchRecord) error {
	if a.Store == nil {
		return nil
	}
	return a.Store.RecordMatch(rec)
}

// Close snapshots the transposition table if configured and closes the
// database.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	var errs []error
	if a.Config.Get().PersistTT {
		entries := a.Engine.TT().Entries()
		if err := a.Store.SaveTT(entries); err != nil {
			errs = append(errs, fmt.Errorf("save transposition table: %w", err))
		} else {
			a.Log.Info().Int("entries", len(entries)).Msg("transposition table saved")
		}
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
