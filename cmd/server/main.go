// Command server exposes the snapshot and history files written by the
// sync cycle over HTTP.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketsync/internal/config"
	"marketsync/internal/endpoint"
	"marketsync/internal/logging"
)

func main() {
	var configPath string
	var console bool
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.BoolVar(&console, "console", false, "human-readable log output")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fallback := logging.New("info", console)
		fallback.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, console)

	s := newSnapshotServer(cfg.Sync.DataDir, cfg.Sync.HistoryDir, endpoint.Registry(), log)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withGzip(recoverPanic(s.routes())),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("server stopped")
}
