// Package config loads the sync service configuration from an optional
// JSON file plus environment overrides. Provider credentials are never
// read from the file; they come only from the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

type Sync struct {
	DataDir               string `json:"data_dir" default:"api/v1/market" validate:"required"`
	HistoryDir            string `json:"history_dir" default:"history" validate:"required"`
	DictionaryDir         string `json:"dictionary_dir" default:"dictionaries" validate:"required"`
	Timezone              string `json:"timezone" default:"Asia/Tehran" validate:"required"`
	RequestTimeoutSec     int    `json:"request_timeout_sec" default:"15" validate:"gt=0"`
	MaxConcurrentRequests int    `json:"max_concurrent_requests" default:"10" validate:"gt=0"`
	Compact               bool   `json:"compact"`
	UserAgent             string `json:"user_agent" default:"marketsync/1.0"`
}

type MarketHours struct {
	Open  string   `json:"open" default:"08:30" validate:"required"`
	Close string   `json:"close" default:"12:45" validate:"required"`
	Days  []string `json:"days" validate:"required,min=1,dive,oneof=saturday sunday monday tuesday wednesday thursday friday"`
}

type RateLimit struct {
	// Zero values leave the throttle off; cmd/sync only builds a limiter
	// when one of these is set.
	MaxRequestsPerMinute int `json:"max_requests_per_minute" validate:"gte=0"`
	Burst                int `json:"burst" default:"10" validate:"gte=0"`
	MinRequestIntervalMs int `json:"min_request_interval_ms" validate:"gte=0"`
}

type Server struct {
	Port              string `json:"port" default:"8080" validate:"required"`
	RequestTimeoutSec int    `json:"request_timeout_sec" default:"10" validate:"gt=0"`
}

// Credentials identify the service to the upstream provider. They are
// taken from BRS_BASE_URL and BRS_API_KEY only and never serialized.
type Credentials struct {
	BaseURL string `json:"-"`
	APIKey  string `json:"-"`
}

type Config struct {
	Sync        Sync        `json:"sync"`
	MarketHours MarketHours `json:"market_hours"`
	RateLimit   RateLimit   `json:"rate_limit"`
	Server      Server      `json:"server"`
	Credentials Credentials `json:"-"`
	LogLevel    string      `json:"log_level" default:"info" validate:"oneof=trace debug info warn error"`
}

var validate = validator.New()

// Load reads JSON config from path. If path is empty, config.json is used
// when present; otherwise defaults apply. Environment variables override
// select fields afterwards. Missing credentials are not an error here;
// callers gate on RequireCredentials before fetching.
func Load(path string) (Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return cfg, fmt.Errorf("apply defaults: %w", err)
	}
	cfg.MarketHours.Days = []string{"saturday", "sunday", "monday", "tuesday", "wednesday"}

	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Credentials.BaseURL = os.Getenv("BRS_BASE_URL")
	cfg.Credentials.APIKey = os.Getenv("BRS_API_KEY")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Sync.DataDir = v
	}
	if v := os.Getenv("HISTORY_DIR"); v != "" {
		cfg.Sync.HistoryDir = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Sync.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_REQUESTS"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Sync.MaxConcurrentRequests = x
		}
	}
}

// RequireCredentials reports whether the provider credential pair is set.
func (c Config) RequireCredentials() error {
	if c.Credentials.BaseURL == "" || c.Credentials.APIKey == "" {
		return errors.New("BRS_BASE_URL and BRS_API_KEY must be set")
	}
	return nil
}

func (s Sync) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSec) * time.Second
}

func (r RateLimit) MinRequestInterval() time.Duration {
	return time.Duration(r.MinRequestIntervalMs) * time.Millisecond
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Weekdays resolves the configured trading day names.
func (m MarketHours) Weekdays() ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(m.Days))
	for _, d := range m.Days {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", d)
		}
		out = append(out, wd)
	}
	return out, nil
}
