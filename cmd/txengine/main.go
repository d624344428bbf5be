// Command txengine runs the transaction submission and confirmation
// engine against a substrate-style node: it connects the gateway, drives
// the submission ticker and the reconciliation loop, and serves /health,
// /version and /metrics. It has no input path for transaction requests
// of its own; those enter through engine.AddTransaction.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/somnia-chain/substrate-tx-engine/internal/api"
	"github.com/somnia-chain/substrate-tx-engine/internal/config"
	"github.com/somnia-chain/substrate-tx-engine/internal/engine"
	"github.com/somnia-chain/substrate-tx-engine/internal/gateway"
	"github.com/somnia-chain/substrate-tx-engine/internal/logging"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cleanupLog := logging.Setup(logging.Config{
		LogFile:        cfg.LogFile,
		MaxLogFileSize: cfg.MaxLogFileSize,
	})
	defer cleanupLog()

	fmt.Println("")
	slog.Info("tx-engine starting",
		"version", config.Version,
		"commit", config.GitCommit,
		"built", config.BuildTime,
	)
	slog.Info("Configuration loaded", "node_url", cfg.NodeURL, "accounts", len(cfg.Accounts), "max_retries", cfg.MaxRetries)
	fmt.Println("")

	gw := gateway.NewWSGateway(nil)

	eng, err := engine.New(cfg, gw)
	if err != nil {
		slog.Error("Failed to construct engine", "error", err)
		os.Exit(1)
	}

	ctx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	err = eng.Initialize(ctx, cfg.NodeURL)
	cancelInit()
	if err != nil {
		slog.Error("Failed to initialize engine", "error", err)
		os.Exit(1)
	}
	slog.Info("Engine initialized", "node_url", cfg.NodeURL)

	eng.StartReconciliation()

	driverDone := make(chan struct{})
	driverCtx, cancelDriver := context.WithCancel(context.Background())
	go func() {
		defer close(driverDone)
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-driverCtx.Done():
				return
			case <-ticker.C:
				if err := eng.Tick(driverCtx); err != nil {
					slog.Error("Submission driver tick failed", "error", err)
				}
			}
		}
	}()

	server := api.NewServer(eng)
	mux := http.NewServeMux()
	mux.HandleFunc("/", server.HandleRequest)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: mux,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
		}
	}()
	slog.Info("HTTP server listening", "port", cfg.MetricsPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("")
	slog.Info("Shutting down...")

	cancelDriver()
	<-driverDone

	eng.StopReconciliation()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Failed to stop HTTP server", "error", err)
	}

	if closer, ok := gw.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("Failed to close gateway", "error", err)
		}
	}

	slog.Info("Shutdown complete")
}
