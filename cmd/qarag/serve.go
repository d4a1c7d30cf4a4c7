package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matsen/qarag/internal/logger"
	"github.com/matsen/qarag/internal/qa"
	"github.com/matsen/qarag/internal/semantic"
	"github.com/matsen/qarag/internal/server"
	"github.com/matsen/qarag/internal/storage"
)

var (
	servePort int
	serveHost string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from PORT)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (default from HOST or 0.0.0.0)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question-answering HTTP API",
	Long: `Serve the question-answering HTTP API.

Endpoints:
  POST /ask      {"question": "...", "rewrite": false}
  GET  /health   liveness and index size
  GET  /         plain "OK"

A missing index is not fatal: the service starts and answers every
question with the fallback until the index file appears. The index is
reloaded automatically whenever 'qarag build' replaces it.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if err := cfg.ValidateServe(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	store := semantic.NewStore()
	if err := store.LoadFile(cfg.IndexPath); err != nil {
		if errors.Is(err, semantic.ErrIndexNotFound) {
			logger.Warn("index %s not found; answering with fallback until it is built", cfg.IndexPath)
		} else {
			logger.Warn("loading index %s: %v", cfg.IndexPath, err)
		}
	} else {
		logger.Info("loaded %d entries from %s", store.Current().Len(), cfg.IndexPath)
	}

	if !cfg.DisableIndexWatch {
		startWatcher(ctx, store)
	}

	var recorder qa.AskRecorder
	if cfg.AskLogPath != "" {
		db, err := storage.OpenDB(cfg.AskLogPath)
		if err != nil {
			exitWithError(ExitError, "opening ask log: %v", err)
		}
		defer db.Close()
		recorder = db
	}

	provider := newEmbeddingProvider(cfg)
	asker := newAsker(cfg, store, newEmbeddingClient(cfg, provider), recorder)

	srv := server.New(asker, store, cfg.Addr(), cfg.AllowedOrigins)
	if err := srv.Run(ctx); err != nil {
		exitWithError(ExitError, "server: %v", err)
	}
	return nil
}

// startWatcher reloads the store when the index file changes. Failure to
// watch is logged; the server runs with the snapshot it has.
func startWatcher(ctx context.Context, store *semantic.Store) {
	if err := os.MkdirAll(filepath.Dir(cfg.IndexPath), 0755); err != nil {
		logger.Warn("index watch disabled: %v", err)
		return
	}
	w, err := semantic.NewWatcher(store, cfg.IndexPath)
	if err != nil {
		logger.Warn("index watch disabled: %v", err)
		return
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Warn("index watcher stopped: %v", err)
		}
	}()
}
