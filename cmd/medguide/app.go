package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/FranksOps/medguide/internal/config"
	"github.com/FranksOps/medguide/internal/extract"
	"github.com/FranksOps/medguide/internal/fingerprint"
	"github.com/FranksOps/medguide/internal/pipeline"
	"github.com/FranksOps/medguide/internal/registry"
	"github.com/FranksOps/medguide/internal/scraper"
	"github.com/FranksOps/medguide/internal/serp"
	"github.com/FranksOps/medguide/internal/storage"
	"github.com/FranksOps/medguide/internal/storage/jsonbackend"
	"github.com/FranksOps/medguide/internal/storage/postgres"
	"github.com/FranksOps/medguide/internal/storage/sqlite"
	"github.com/FranksOps/medguide/pkg/useragent"
)

// app holds the components built from configuration.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	backend      storage.Backend
	fetcher      *scraper.Fetcher
	orchestrator *pipeline.Orchestrator
}

// newLogger builds the process logger. Logs always go to w (stderr), since
// stdout carries MCP traffic in stdio mode.
func newLogger(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// openBackend opens the configured audit backend, or returns nil for none.
func openBackend(ctx context.Context, cfg config.Audit) (storage.Backend, error) {
	switch cfg.Backend {
	case config.AuditNone, "":
		return nil, nil
	case config.AuditSQLite:
		return sqlite.New(cfg.DSN)
	case config.AuditPostgres:
		return postgres.New(ctx, cfg.DSN)
	case config.AuditJSONL:
		return jsonbackend.New(cfg.DSN)
	}
	return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
}

// newApp wires the search stack.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(os.Stderr, cfg.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	backend, err := openBackend(ctx, cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("open audit backend: %w", err)
	}

	profile, err := fingerprint.ParseProfile(cfg.Fetch.Fingerprint)
	if err != nil {
		return nil, err
	}

	minDelay := cfg.Fetch.MinDelay
	if minDelay == 0 {
		// Zero in config means no delay; the fetcher reads zero as "default".
		minDelay = -1
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:       cfg.Fetch.Timeout,
		MaxRedirects:  cfg.Fetch.MaxRedirects,
		UAPool:        useragent.NewPool(cfg.Fetch.UserAgents),
		Fingerprint:   profile,
		MinDelay:      minDelay,
		Jitter:        cfg.Fetch.Jitter,
		RespectRobots: cfg.Fetch.RespectRobots,
		Backend:       backend,
		Logger:        logger,
	})
	if err != nil {
		if backend != nil {
			_ = backend.Close()
		}
		return nil, err
	}

	orchestrator, err := pipeline.New(pipeline.Config{
		Registry:          registry.Default(),
		Fetcher:           fetcher,
		Parser:            serp.DuckDuckGo{MaxLinks: cfg.Search.MaxLinks},
		Extractor:         extract.New(extract.Config{MaxChars: cfg.Extract.MaxChars, Logger: logger}),
		DefaultResults:    cfg.Search.DefaultResults,
		MaxResults:        cfg.Search.MaxResultsCap,
		DisableBroadening: cfg.Search.DisableBroadening,
		Logger:            logger,
	})
	if err != nil {
		_ = fetcher.Close()
		if backend != nil {
			_ = backend.Close()
		}
		return nil, err
	}

	return &app{
		cfg:          cfg,
		logger:       logger,
		backend:      backend,
		fetcher:      fetcher,
		orchestrator: orchestrator,
	}, nil
}

func (a *app) Close() {
	_ = a.fetcher.Close()
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("failed to close audit backend", "err", err)
		}
	}
}
