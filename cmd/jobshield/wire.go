package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/marek/jobshield/internal/analysis"
	"github.com/marek/jobshield/internal/classify"
	"github.com/marek/jobshield/internal/config"
	"github.com/marek/jobshield/internal/db"
	"github.com/marek/jobshield/internal/factstore"
	"github.com/marek/jobshield/internal/feedback"
	"github.com/marek/jobshield/internal/fetch"
	"github.com/marek/jobshield/internal/patterns"
	"github.com/marek/jobshield/internal/reputation"
	"github.com/marek/jobshield/internal/scoring"
)

// pipeline bundles the wired collaborators a command needs.
type pipeline struct {
	analyzer   *analysis.Analyzer
	classifier *classify.Classifier
	checker    *reputation.Checker
	ledger     *feedback.Ledger
	library    *patterns.Library
	source     *factstore.CachedSource
	fetcher    *fetch.CachedFetcher
	archive    *db.DB // nil without DATABASE_URL / database_url

	closers []func()
}

// close releases pipeline resources in reverse wiring order.
func (p *pipeline) close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// loadConfig reads the optional JSON config file and layers environment
// fallbacks the way the server expects them.
func loadConfig() (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.FirestoreProject == "" {
		cfg.FirestoreProject = os.Getenv("FIRESTORE_PROJECT")
	}
	if cfg.FirestoreCredentials == "" {
		cfg.FirestoreCredentials = os.Getenv("FIRESTORE_CREDENTIALS")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// buildPipeline wires the full analysis stack from configuration. Without a
// Firestore project the Fact Store is an empty in-memory one: the blacklist
// is empty and scoring runs on the builtin rule tables.
func buildPipeline(ctx context.Context, cfg config.Config, useBrowser bool) (*pipeline, error) {
	p := &pipeline{}

	library, err := patterns.NewLibrary()
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern library: %w", err)
	}
	p.library = library

	var store factstore.Store
	if cfg.FirestoreProject != "" {
		fs, err := factstore.NewFirestoreStore(ctx, factstore.FirestoreConfig{
			ProjectID:       cfg.FirestoreProject,
			CredentialsFile: cfg.FirestoreCredentials,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Fact Store: %w", err)
		}
		p.closers = append(p.closers, func() { _ = fs.Close() })
		store = fs
	} else {
		store = factstore.NewMemoryStore()
	}

	if cfg.DatabaseURL != "" {
		archive, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to archive database: %w", err)
		}
		if err := archive.EnsureSchema(ctx); err != nil {
			archive.Close()
			return nil, fmt.Errorf("failed to prepare archive schema: %w", err)
		}
		p.closers = append(p.closers, archive.Close)
		p.archive = archive
		// Every persist mirrors to the archive alongside the Fact Store.
		store = factstore.NewFanout(store, archive)
	}

	fetchTimeout := time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	p.source = factstore.NewCachedSource(store, factstore.CacheConfig{FetchTimeout: fetchTimeout})
	p.checker = reputation.NewChecker(p.source)

	p.classifier = classify.NewClassifier(library.Signals(), nil, classify.Config{})
	p.ledger = feedback.NewLedger(p.classifier, store, feedback.Config{})
	p.closers = append(p.closers, p.ledger.Close)
	p.classifier.SetAccuracySource(p.ledger)

	fetchOpts := fetch.DefaultOptions()
	fetchOpts.UseBrowser = useBrowser || cfg.UseBrowser
	if fetchTimeout > 0 {
		fetchOpts.Timeout = fetchTimeout
	}
	p.fetcher = fetch.NewCachedFetcher(&fetch.CachedFetcherConfig{Options: fetchOpts})

	analyzer, err := analysis.New(analysis.Deps{
		Checker:    p.checker,
		Classifier: p.classifier,
		Scorer:     scoring.NewScorer(library, scoring.Config{}),
		Library:    library,
		Source:     p.source,
		Store:      store,
		Ledger:     p.ledger,
		Fetcher:    p.fetcher,
	}, analysis.Config{
		StageTimeout:       time.Duration(cfg.StageTimeoutSeconds) * time.Second,
		SkipClassification: cfg.SkipClassification,
		CacheSize:          cfg.CacheSize,
		CacheTTL:           time.Duration(cfg.CacheTTLSeconds) * time.Second,
		ScoreConcurrency:   cfg.ScoreConcurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to wire analyzer: %w", err)
	}
	p.analyzer = analyzer

	return p, nil
}
