// server.go — Composition root for the broker's runtime state, mirroring
// the original implementation's AppState: one registry, one config, one
// logger, shared across every connection handler.
package broker

import (
	"context"
	"time"

	"github.com/brennhill/androidoscopy-broker/internal/config"
	"github.com/brennhill/androidoscopy-broker/internal/registry"
	"github.com/brennhill/androidoscopy-broker/internal/telemetrylog"
	"github.com/google/uuid"
)

// Server bundles everything a connection handler needs. It has no
// network code of its own — cmd/androidoscopy-broker wires it to HTTP.
type Server struct {
	Registry *registry.Registry
	Config   config.Config
	Log      telemetrylog.Logger
}

// NewServer builds a Server with a fresh registry sized per cfg.
func NewServer(cfg config.Config, log telemetrylog.Logger) *Server {
	reg := registry.New(cfg.DataBufferSize, cfg.LogBufferSize, cfg.SessionTTL, uuid.NewString)
	return &Server{Registry: reg, Config: cfg, Log: log}
}

// RunSweeper runs the TTL sweep on a fixed interval until ctx is
// canceled. Called once from main as a background goroutine.
func (s *Server) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := s.Registry.Sweep(now)
			if removed > 0 {
				s.Log.Info("swept expired sessions", telemetrylog.Int("removed", removed))
			}
		}
	}
}

// SessionCounts backs the /healthz endpoint.
func (s *Server) SessionCounts() (active, ended int) {
	return s.Registry.Counts()
}
