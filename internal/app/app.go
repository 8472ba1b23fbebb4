package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"baby-meal-planner/internal/auth"
	"baby-meal-planner/internal/catalog"
	"baby-meal-planner/internal/config"
	"baby-meal-planner/internal/database"
	"baby-meal-planner/internal/imageprompt"
	"baby-meal-planner/internal/images"
	"baby-meal-planner/internal/llm"
	"baby-meal-planner/internal/metrics"
	"baby-meal-planner/internal/pantry"
	"baby-meal-planner/internal/planner"
	"baby-meal-planner/internal/profile"
	"baby-meal-planner/internal/scoring"
	"baby-meal-planner/internal/shopping"
	"baby-meal-planner/internal/storage"
	"baby-meal-planner/internal/wizard"
)

// App holds the application's services.
type App struct {
	Config   *config.Config
	Catalog  *catalog.Catalog
	Pantry   *pantry.Store
	Profile  *profile.Store
	Plans    *planner.Store
	Shopping *shopping.List
	Scoring  *scoring.Engine
	Images   *images.Resolver
	Auth     *auth.Client
	Prompts  *imageprompt.Generator

	// Metrics is nil unless the SQLite backend is in use.
	Metrics *metrics.Store

	now     func() time.Time
	closers []func() error
}

// Option configures an App.
type Option func(*options)

type options struct {
	now        func() time.Time
	translator llm.TextGenerator
}

// WithClock overrides the clock shared by every store.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTranslator overrides the LLM used for image prompt translation.
func WithTranslator(t llm.TextGenerator) Option {
	return func(o *options) { o.translator = t }
}

// New builds the application from configuration: it opens the storage
// backend, loads the catalog and connects the optional LLM.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var (
		kv      storage.KV
		closers []func() error
		mstore  *metrics.Store
	)

	switch cfg.StorageBackend {
	case config.BackendSQLite:
		db, err := database.NewDB(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		closers = append(closers, db.Close)
		kv = storage.NewSQLiteStore(db.SQL)
		mstore = metrics.NewStore(db.SQL)
	case config.BackendFile:
		fs, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
		kv = fs
	case config.BackendMemory:
		kv = storage.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.translator == nil && cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Printf("Warning: image prompts will not be translated: %v", err)
		} else {
			closers = append(closers, gemini.Close)
			opts = append(opts, WithTranslator(gemini))
		}
	}

	a, err := NewWithStorage(cfg, kv, cat, opts...)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	a.Metrics = mstore
	a.closers = closers
	return a, nil
}

// NewWithStorage wires the services on an already opened key-value store.
func NewWithStorage(cfg *config.Config, kv storage.KV, cat *catalog.Catalog, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	resolver, err := images.NewResolver(cat, cfg.ImagesDir, cfg.ImagesBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to index ingredient images: %w", err)
	}

	pantryStore := pantry.NewStore(kv)
	profileStore := profile.NewStore(kv, profile.WithClock(o.now))
	plans := planner.NewStore(kv, planner.WithClock(o.now))

	promptOpts := []imageprompt.Option{imageprompt.WithClock(o.now)}
	if o.translator != nil {
		promptOpts = append(promptOpts, imageprompt.WithTranslator(o.translator))
	}

	return &App{
		Config:   cfg,
		Catalog:  cat,
		Pantry:   pantryStore,
		Profile:  profileStore,
		Plans:    plans,
		Shopping: shopping.NewList(kv, plans, pantryStore, cat, shopping.WithClock(o.now)),
		Scoring:  scoring.NewEngine(cat, profileStore, pantryStore),
		Images:   resolver,
		Auth:     auth.NewClient(cfg, kv, profileStore, auth.WithClock(o.now)),
		Prompts:  imageprompt.NewGenerator(promptOpts...),
		now:      o.now,
	}, nil
}

// Now returns the application clock's current time.
func (a *App) Now() time.Time {
	return a.now()
}

// NewWizard starts a planning wizard for the current week.
func (a *App) NewWizard(opts ...wizard.Option) *wizard.Session {
	return wizard.New(a.Plans, a.now(), opts...)
}

// RecordUsage stores LLM usage when a metrics store is available.
func (a *App) RecordUsage(metas []llm.AgentMeta) {
	if a.Metrics == nil {
		return
	}
	for _, meta := range metas {
		if err := a.Metrics.RecordMeta(meta); err != nil {
			log.Printf("Warning: failed to record metrics for %s: %v", meta.AgentName, err)
		}
	}
}

// Close releases the database and LLM connections.
func (a *App) Close() error {
	return closeAll(a.closers)
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
