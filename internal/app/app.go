package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/dvloznov/spend-anomaly/internal/alerts"
	"github.com/dvloznov/spend-anomaly/internal/anomaly"
	"github.com/dvloznov/spend-anomaly/internal/config"
	infraBQ "github.com/dvloznov/spend-anomaly/internal/infra/bigquery"
	"github.com/dvloznov/spend-anomaly/internal/infra/postgres"
	"github.com/dvloznov/spend-anomaly/internal/insights"
	"github.com/dvloznov/spend-anomaly/internal/mlservice"
	"github.com/dvloznov/spend-anomaly/internal/notionsync"
	"github.com/dvloznov/spend-anomaly/internal/reports"
	"github.com/dvloznov/spend-anomaly/internal/scan"
	"github.com/dvloznov/spend-anomaly/internal/store"
	"github.com/dvloznov/spend-anomaly/internal/store/memory"
)

// App holds the services shared by the binaries. Archiver and Publisher
// are nil when not configured; Narrator is always set but may be disabled.
type App struct {
	Config    *config.Config
	Store     store.Store
	Engine    *anomaly.Engine
	Alerts    *alerts.Service
	Archiver  *reports.Archiver
	Publisher *notionsync.Publisher
	Narrator  *insights.Narrator

	closers []io.Closer
}

// New opens the configured store and builds every service on top of it.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Store:   st,
		Alerts:  alerts.NewService(st),
		closers: []io.Closer{st},
	}
	a.Engine = NewEngine(cfg, st)

	if cfg.Reports.Bucket != "" {
		objects, err := reports.NewGCSObjectStore(ctx)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, objects)
		a.Archiver = reports.NewArchiver(objects, cfg.Reports.Bucket)
	}

	if cfg.NotionEnabled() {
		a.Publisher = notionsync.NewPublisher(notionsync.NewDatabase(cfg.Notion.Token, cfg.Notion.DatabaseID))
	}

	var gen insights.Generator
	if cfg.Gemini.Model != "" {
		g, err := insights.NewGeminiGenerator(ctx, cfg.Gemini.Model)
		if err != nil {
			log.Warn().Err(err).Msg("Gemini unavailable, summaries disabled")
		} else {
			gen = g
		}
	}
	a.Narrator = insights.NewNarrator(gen)

	log.Info().
		Str("backend", cfg.Store.Backend).
		Bool("remote", cfg.Remote.BaseURL != "").
		Bool("reports", a.Archiver != nil).
		Bool("notion", a.Publisher != nil).
		Bool("summaries", a.Narrator.Enabled()).
		Msg("Services initialized")

	return a, nil
}

// OpenStore opens the backend named by store.backend.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		if cfg.Store.Fixtures == "" {
			return memory.NewStore(), nil
		}
		return memory.LoadFile(cfg.Store.Fixtures)
	case config.BackendBigQuery:
		return infraBQ.NewBigQueryRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
	case config.BackendPostgres:
		return postgres.New(ctx, cfg.Postgres.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// NewEngine builds the detection engine. The remote delegate is only wired
// when remote.base_url is set.
func NewEngine(cfg *config.Config, st store.Store) *anomaly.Engine {
	forest := anomaly.DefaultForestConfig()
	forest.Seed = cfg.Detection.Seed

	opts := anomaly.Options{
		Model:           anomaly.IsolationForestModel{Config: forest},
		Alerts:          st,
		CategoryTimeout: cfg.Remote.CategoryTimeout,
		UserTimeout:     cfg.Remote.UserTimeout,
		Concurrency:     cfg.Detection.Concurrency,
	}
	if cfg.Remote.BaseURL != "" {
		opts.Delegate = mlservice.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, nil)
	}
	return anomaly.NewEngine(st, opts)
}

// Runner returns the scan job handler with the optional sinks attached.
func (a *App) Runner() *scan.Runner {
	r := &scan.Runner{Detector: a.Engine}
	if a.Archiver != nil {
		r.Archiver = a.Archiver
	}
	if a.Publisher != nil {
		r.Publisher = a.Publisher
	}
	return r
}

// Close releases the store and any clients, in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
