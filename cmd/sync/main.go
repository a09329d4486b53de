// Command sync runs the market-data sync cycle: once by default, or on a
// fixed interval with -interval.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"marketsync/internal/config"
	"marketsync/internal/cycle"
	"marketsync/internal/endpoint"
	"marketsync/internal/fetch"
	"marketsync/internal/history"
	"marketsync/internal/httpx"
	"marketsync/internal/logging"
	"marketsync/internal/market"
	"marketsync/internal/ratelimit"
	"marketsync/internal/snapshot"
)

func main() {
	var configPath string
	var interval time.Duration
	var console bool
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.DurationVar(&interval, "interval", 0, "rerun the cycle on this interval; 0 runs once")
	flag.BoolVar(&console, "console", false, "human-readable log output")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fallback := logging.New("info", console)
		fallback.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, console)

	runner, err := buildRunner(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("setup")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := runner.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("sync cycle")
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case <-ticker.C:
			if _, err := runner.Run(ctx); err != nil {
				log.Fatal().Err(err).Msg("sync cycle")
			}
		}
	}
}

func buildRunner(cfg config.Config, log zerolog.Logger) (*cycle.Runner, error) {
	client, err := fetch.NewClient(
		cfg.Credentials.BaseURL,
		cfg.Credentials.APIKey,
		fetch.WithHTTPClient(httpx.New(cfg.Sync.RequestTimeout())),
		fetch.WithTimeout(cfg.Sync.RequestTimeout()),
	)
	if err != nil {
		return nil, err
	}

	// Prefer token bucket with burst if RPM is set, otherwise use min-interval.
	var limiter ratelimit.Limiter
	if rl := cfg.RateLimit; rl.MaxRequestsPerMinute > 0 {
		burst := rl.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = ratelimit.NewTokenBucket(float64(rl.MaxRequestsPerMinute)/60.0, burst)
	} else if rl.MinRequestIntervalMs > 0 {
		limiter = &ratelimit.MinInterval{Interval: rl.MinRequestInterval()}
	}

	days, err := cfg.MarketHours.Weekdays()
	if err != nil {
		return nil, err
	}
	hours, err := market.New(cfg.Sync.Timezone, cfg.MarketHours.Open, cfg.MarketHours.Close, days)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		return nil, err
	}

	return &cycle.Runner{
		Cfg:      cfg,
		Registry: endpoint.Registry(),
		Orch: &fetch.Orchestrator{
			Client:  client,
			Limit:   int64(cfg.Sync.MaxConcurrentRequests),
			Limiter: limiter,
			Log:     log,
		},
		Store: history.NewStore(cfg.Sync.HistoryDir, loc, log),
		Snap: &snapshot.Writer{
			DataDir: cfg.Sync.DataDir,
			Compact: cfg.Sync.Compact,
			Log:     log,
		},
		Hours: hours,
		Log:   log,
	}, nil
}
