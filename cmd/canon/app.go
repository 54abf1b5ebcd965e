package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/cognicore/canon/internal/logging"
	"github.com/cognicore/canon/pkg/canon/config"
	"github.com/cognicore/canon/pkg/canon/ingest"
	"github.com/cognicore/canon/pkg/canon/internalerr"
	"github.com/cognicore/canon/pkg/canon/store"
	"github.com/cognicore/canon/pkg/canon/store/sqlite"
)

// app holds what every subcommand needs: configuration, logger and store.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	store  store.Store
}

// loadConfig reads .env, the config file and the global flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return config.Config{}, err
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Path = db
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())

	st, err := sqlite.OpenSQLite(cmd.Context(), cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("store opened", "path", cfg.Store.Path)
	return &app{cfg: cfg, logger: logger, store: st}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// lock takes an exclusive lock next to the database so only one build or
// rewrite runs against it at a time.
func (a *app) lock() (func(), error) {
	l := flock.New(a.cfg.Store.Path + ".lock")
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", l.Path(), internalerr.ErrLocked)
	}
	return func() {
		if err := l.Unlock(); err != nil {
			a.logger.Warn("failed to release lock", "path", l.Path(), "err", err)
		}
	}, nil
}

func paperFromDoc(d ingest.Doc) store.Paper {
	return store.Paper{
		ID:         d.ID,
		Title:      d.Title,
		Abstract:   d.Abstract,
		Authors:    d.Authors,
		Categories: d.Categories,
		Published:  d.Published,
		Updated:    d.Updated,
	}
}

func docFromPaper(p store.Paper) ingest.Doc {
	return ingest.Doc{
		ID:         p.ID,
		Title:      p.Title,
		Abstract:   p.Abstract,
		Authors:    p.Authors,
		Categories: p.Categories,
		Published:  p.Published,
		Updated:    p.Updated,
		URL:        "https://arxiv.org/abs/" + p.ID,
	}
}

// parseDate accepts YYYY-MM-DD; empty means unset.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// upsertDocs stores docs and returns how many were new.
func (a *app) upsertDocs(cmd *cobra.Command, docs []ingest.Doc) (inserted int, err error) {
	for _, d := range docs {
		isNew, err := a.store.UpsertPaper(cmd.Context(), paperFromDoc(d))
		if err != nil {
			return inserted, fmt.Errorf("store paper %s: %w", d.ID, err)
		}
		if isNew {
			inserted++
		}
	}
	return inserted, nil
}
