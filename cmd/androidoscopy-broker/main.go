// main.go — Entry point for the androidoscopy-broker daemon: an HTTP
// server exposing /ws/app, /ws/dashboard, and /healthz, with graceful
// shutdown on SIGINT/SIGTERM following the OmniRoute services' pattern.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brennhill/androidoscopy-broker/internal/broker"
	"github.com/brennhill/androidoscopy-broker/internal/config"
	"github.com/brennhill/androidoscopy-broker/internal/telemetrylog"
)

const sweepInterval = 60 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[androidoscopy] configuration error: %v\n", err)
		return 2
	}

	log, err := telemetrylog.NewZap(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[androidoscopy] logger init error: %v\n", err)
		return 1
	}
	defer telemetrylog.Sync(log)

	log.Info("starting androidoscopy-broker",
		telemetrylog.Int("http_port", cfg.HTTPPort),
		telemetrylog.Int("ws_port", cfg.WSPort),
	)

	srv := broker.NewServer(cfg, log)

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	go srv.RunSweeper(sweepCtx, sweepInterval)
	defer cancelSweep()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      newConnectionLimiter(cfg.MaxConnections, newRouter(srv)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections are long-lived
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("http server listening", telemetrylog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", telemetrylog.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", telemetrylog.Err(err))
		return 1
	}
	log.Info("shutdown complete")
	return 0
}
