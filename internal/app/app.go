package app

import (
	"context"
	"fmt"
	"net/http"

	server "ore-and-order/server"
	"ore-and-order/server/internal/httpapi"
	"ore-and-order/server/logging"
)

// Run assembles the relay server from environment configuration and
// serves until the listener fails or the context is canceled.
func Run(ctx context.Context) error {
	cfg := server.LoadConfig()

	log, err := logging.New(logging.Options{FilePath: cfg.LogFile, Debug: cfg.Debug})
	if err != nil {
		return fmt.Errorf("failed to construct logger: %w", err)
	}
	defer log.Sync()

	srv := server.New(cfg, log)
	handler := httpapi.New(srv, httpapi.Config{Logger: log})

	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}

	go func() {
		<-ctx.Done()
		httpSrv.Shutdown(context.Background())
	}()

	log.Infof("relay listening on %s (%d rooms, %s ticks)",
		cfg.ListenAddr, cfg.RoomCount, cfg.TickInterval)

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
