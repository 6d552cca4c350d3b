package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/htmlpath/internal/anchorstore"
	"github.com/dgallion1/htmlpath/internal/api"
	"github.com/dgallion1/htmlpath/internal/config"
	"github.com/dgallion1/htmlpath/internal/pipeline"
	"github.com/dgallion1/htmlpath/internal/stats"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The pipeline and API take interfaces; leave them nil rather than
	// wrapping a nil *Client when no store is configured.
	var (
		store   pipeline.AnchorStore
		anchors api.AnchorReader
		client  *anchorstore.Client
	)
	if cfg.AnchorstoreURL != "" {
		client = anchorstore.NewClient(cfg.AnchorstoreURL, cfg.AnchorstoreAPIKey)
		store, anchors = client, client
	} else {
		log.Warn("ANCHORSTORE_URL not set; anchors are kept on jobs only")
	}

	latency := stats.NewLatency(cfg.StatsWindow)
	orch := pipeline.NewOrchestrator(cfg, store, latency, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, anchors, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Stop accepting uploads before the queue closes.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		if client != nil {
			client.Close()
		}
	}()

	log.Info("starting htmlpath", "port", cfg.Port, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
