package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/rfpagent/internal/api"
	"github.com/dgallion1/rfpagent/internal/chunker"
	"github.com/dgallion1/rfpagent/internal/config"
	"github.com/dgallion1/rfpagent/internal/extract"
	"github.com/dgallion1/rfpagent/internal/fetch"
	"github.com/dgallion1/rfpagent/internal/llm"
	"github.com/dgallion1/rfpagent/internal/loader"
	"github.com/dgallion1/rfpagent/internal/parser"
	"github.com/dgallion1/rfpagent/internal/proposal"
	"github.com/dgallion1/rfpagent/internal/store"
)

func main() {
	cfg, err := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open database", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}

	// Initialize clients.
	client, closeClient := newModelClient(cfg)
	var stats *llm.Stats
	if client != nil {
		stats = llm.NewStats(cfg.StatsWindow)
		client = llm.WithStats(client, stats)
		log.Info("model configured", "provider", cfg.LLMProvider, "model", client.Model())
	} else {
		log.Warn("no model configured; extraction will use the fallback structure")
	}

	files := loader.New(
		chunker.Config{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap},
		parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
	)
	downloader := fetch.New(fetch.Options{
		Timeout:  cfg.DownloadTimeout,
		MaxBytes: cfg.MaxDownloadBytes,
		Retries:  cfg.DownloadRetries,
		Logger:   log,
	})

	srv := api.NewServer(api.Deps{
		Store: db,
		Extractor: extract.New(extract.Options{
			Client:         client,
			Loader:         files,
			Timeout:        cfg.LLMTimeout,
			MaxPromptChars: cfg.MaxPromptChars,
			Logger:         log,
		}),
		Fetcher: downloader,
		Proposals: proposal.New(proposal.Options{
			Client:  client,
			Fetcher: downloader,
			Loader:  files,
			Timeout: cfg.LLMTimeout,
			Logger:  log,
		}),
		Stats: stats,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLMTimeout + cfg.DownloadTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("starting rfpagent", "port", cfg.Port, "database", cfg.DatabaseDriver)
	err = serve(ctx, httpServer, log, func() {
		closeClient()
		db.Close()
	})
	if err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
// cleanup has always run by the time serve returns.
func serve(ctx context.Context, srv *http.Server, log *slog.Logger, cleanup func()) error {
	defer cleanup()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	err := srv.Shutdown(shutdownCtx)
	if lerr := <-errCh; err == nil && !errors.Is(lerr, http.ErrServerClosed) {
		err = lerr
	}
	return err
}

// newModelClient builds the client for the configured provider. It returns
// a nil client when no model name is set.
func newModelClient(cfg config.Config) (llm.Client, func()) {
	if cfg.Model() == "" {
		return nil, func() {}
	}
	switch cfg.LLMProvider {
	case "anthropic":
		c := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		return c, c.Close
	default:
		c := llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
		return c, c.Close
	}
}
