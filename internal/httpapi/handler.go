package httpapi

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	server "ore-and-order/server"
)

// Config carries the handler dependencies.
type Config struct {
	Logger *zap.SugaredLogger
}

// New wires the relay's HTTP surface: the websocket upgrade, a liveness
// check, and a diagnostics snapshot.
func New(srv *server.Server, cfg Config) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/ws", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Infow("websocket upgrade failed", "err", err)
			return
		}
		srv.ServeConn(conn)
	})

	mux.HandleFunc("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string `json:"status"`
			ServerTime int64  `json:"serverTime"`
			Rooms      any    `json:"rooms"`
			Players    any    `json:"players"`
			Telemetry  any    `json:"telemetry"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Rooms:      srv.RoomInfos(),
			Players:    srv.DiagnosticsSnapshot(),
			Telemetry:  srv.TelemetrySnapshot(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Debugw("diagnostics encode failed", "err", err)
		}
	})

	return mux
}
