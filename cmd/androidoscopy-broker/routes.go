// routes.go — HTTP route wiring: the two WebSocket upgrade endpoints
// and the ambient /healthz endpoint (spec §7, supplemented from the
// original's operational-endpoint pattern).
package main

import (
	"net/http"

	"github.com/brennhill/androidoscopy-broker/internal/broker"
	"github.com/brennhill/androidoscopy-broker/internal/telemetrylog"
	"github.com/brennhill/androidoscopy-broker/internal/util"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func newRouter(srv *broker.Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/app", handleWSApp(srv))
	mux.HandleFunc("/ws/dashboard", handleWSDashboard(srv))
	mux.HandleFunc("/healthz", handleHealthz(srv))
	return mux
}

func handleWSApp(srv *broker.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			srv.Log.Warn("ws/app upgrade failed", telemetrylog.Err(err))
			return
		}
		defer conn.Close()
		broker.ServeProducer(conn, srv.Registry, srv.Log)
	}
}

func handleWSDashboard(srv *broker.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			srv.Log.Warn("ws/dashboard upgrade failed", telemetrylog.Err(err))
			return
		}
		defer conn.Close()
		broker.ServeConsumer(conn, srv.Registry, srv.Log)
	}
}

// healthzResponse is the body of GET /healthz. It reports process
// liveness and session counts, never session content.
type healthzResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	EndedSessions  int    `json:"ended_sessions"`
}

func handleHealthz(srv *broker.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, ended := srv.SessionCounts()
		util.JSONResponse(w, http.StatusOK, healthzResponse{
			Status:         "ok",
			ActiveSessions: active,
			EndedSessions:  ended,
		})
	}
}
