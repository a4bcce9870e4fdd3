package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/haukened/psl-updater/internal/psl/common/clock"
	"github.com/haukened/psl-updater/internal/psl/common/log"
	"github.com/haukened/psl-updater/internal/psl/config"
	"github.com/haukened/psl-updater/internal/psl/domain"
	"github.com/haukened/psl-updater/internal/psl/gateways/fetcher"
	"github.com/haukened/psl-updater/internal/psl/infra/bloom"
	"github.com/haukened/psl-updater/internal/psl/infra/punycode"
	"github.com/haukened/psl-updater/internal/psl/repos/ledger/bolt"
	"github.com/haukened/psl-updater/internal/psl/repos/resource"
	"github.com/haukened/psl-updater/internal/psl/services/augmenter"
	"github.com/haukened/psl-updater/internal/psl/services/normalizer"
	"github.com/haukened/psl-updater/internal/psl/services/updater"
	"github.com/haukened/psl-updater/internal/psl/services/verifier"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "psl-updater"

	// duplicate pre-filter false-positive rate
	verifyFPRate = 0.001
)

// httpClient is swapped in tests.
var httpClient = http.DefaultClient

// Application holds the wired pipeline and the resources it owns.
type Application struct {
	config  *config.AppConfig
	updater *updater.ListUpdater
	encoder *punycode.Encoder
	ledger  *bolt.Store
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Failed to build application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	run, err := app.Run(ctx)
	stop()
	if cerr := app.Close(); cerr != nil {
		log.Warn(map[string]any{"error": cerr.Error()}, "Failed to close ledger")
	}
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Update failed")
	}

	log.Info(app.runFields(run), "Public suffix list updated")
}

// buildApplication constructs all components and wires them together
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()

	output, err := cfg.OutputPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output path: %w", err)
	}

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.Log.Level,
		"source":    cfg.Source.URL,
		"output":    output,
		"strict":    cfg.Verify.Strict,
		"ledger":    cfg.Ledger.Path,
	}, "Starting psl-updater")

	f, err := fetcher.New(fetcher.Options{
		URL:       cfg.Source.URL,
		Timeout:   cfg.Source.Timeout,
		MaxBytes:  cfg.Source.MaxBytes,
		UserAgent: appName + "/" + version,
		Client:    httpClient,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	enc, err := punycode.New(cfg.Encoder.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	app := &Application{config: cfg, encoder: enc}

	opts := updater.Options{
		Fetcher:    f,
		Normalizer: normalizer.New(logger),
		Augmenter:  augmenter.New(enc, logger),
		Verifier:   verifier.New(bloom.NewFactory(), verifyFPRate, logger),
		Writer:     resource.New(output, logger),
		Clock:      &clock.RealClock{},
		Logger:     logger,
		Strict:     cfg.Verify.Strict,
	}

	if cfg.Ledger.Path != "" {
		store, err := bolt.New(cfg.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		app.ledger = store
		opts.Ledger = store
		logPreviousRun(store)
	}

	u, err := updater.New(opts)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to build updater: %w", err)
	}
	app.updater = u
	return app, nil
}

// logPreviousRun reports the newest ledger entry, if any.
func logPreviousRun(store *bolt.Store) {
	prev, ok, err := store.Last()
	switch {
	case err != nil:
		log.Warn(map[string]any{"error": err.Error()}, "Failed to read previous run")
	case ok:
		log.Info(map[string]any{
			"run_id":      prev.ID,
			"finished_at": prev.FinishedAt,
			"digest":      prev.Digest,
			"etag":        prev.ETag,
		}, "Previous run")
	}
}

// runFields describes a finished run, including label cache effectiveness.
func (app *Application) runFields(run domain.Run) map[string]any {
	hits, misses := app.encoder.Stats()
	return map[string]any{
		"run_id":       run.ID,
		"path":         run.OutputPath,
		"lines":        run.Lines,
		"inserted":     run.Inserted,
		"digest":       run.Digest,
		"duration":     run.Duration().String(),
		"cache_hits":   hits,
		"cache_misses": misses,
	}
}

// Run performs a single update.
func (app *Application) Run(ctx context.Context) (domain.Run, error) {
	return app.updater.Run(ctx)
}

// Close releases the ledger, if one is open.
func (app *Application) Close() error {
	if app.ledger == nil {
		return nil
	}
	return app.ledger.Close()
}
