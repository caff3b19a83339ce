// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache backends accepted by cache.backend.
const (
	CacheBackendFS     = "fs"
	CacheBackendMemory = "memory"
	CacheBackendGCS    = "gcs"
	CacheBackendNone   = "none"
)

// DefaultUserAgent identifies the scraper to the sites it fetches.
const DefaultUserAgent = "PoliteScraper/1.0 (+https://github.com/JakeFAU/polite-scraper)"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Fetch   FetchConfig       `mapstructure:"fetch"`
	Cache   CacheConfig       `mapstructure:"cache"`
	Robots  RobotsConfig      `mapstructure:"robots"`
	Origins map[string]string `mapstructure:"origins"`
	Results ResultsConfig     `mapstructure:"results"`
	Server  ServerConfig      `mapstructure:"server"`
	Logging LoggingConfig     `mapstructure:"logging"`
}

// FetchConfig governs the retrying fetcher.
type FetchConfig struct {
	UserAgent             string  `mapstructure:"user_agent"`
	InitialDelaySeconds   float64 `mapstructure:"initial_delay_seconds"`
	MaxRetries            int     `mapstructure:"max_retries"`
	BackoffFactor         float64 `mapstructure:"backoff_factor"`
	RequestTimeoutSeconds float64 `mapstructure:"request_timeout_seconds"`
	ScrapeTimeoutSeconds  float64 `mapstructure:"scrape_timeout_seconds"`
}

// CacheConfig selects and configures the response cache.
type CacheConfig struct {
	Backend   string `mapstructure:"backend"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// RobotsConfig controls robots.txt enforcement.
type RobotsConfig struct {
	Respect       bool `mapstructure:"respect"`
	FallbackAllow bool `mapstructure:"fallback_allow"`
}

// ResultsConfig enables the optional Postgres result store.
type ResultsConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// ServerConfig controls the HTTP server and batch fan-out.
type ServerConfig struct {
	Port        int     `mapstructure:"port"`
	Concurrency int     `mapstructure:"concurrency"`
	PerHostRPS  float64 `mapstructure:"per_host_rps"`
	Burst       int     `mapstructure:"burst"`
	APIKey      string  `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.initial_delay_seconds", 1)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.backoff_factor", 2)
	v.SetDefault("fetch.request_timeout_seconds", 10)
	v.SetDefault("fetch.scrape_timeout_seconds", 120)
	v.SetDefault("cache.backend", CacheBackendFS)
	v.SetDefault("cache.dir", "scraper_cache")
	v.SetDefault("cache.gcs_bucket", "")
	v.SetDefault("cache.gcs_prefix", "scraper_cache")
	v.SetDefault("robots.respect", true)
	v.SetDefault("robots.fallback_allow", true)
	v.SetDefault("origins.example", "https://example.com")
	v.SetDefault("origins.gdp", "https://en.wikipedia.org")
	v.SetDefault("origins.gdp-text", "https://en.wikipedia.org")
	v.SetDefault("origins.waters", "https://en.wikipedia.org")
	v.SetDefault("results.dsn", "")
	v.SetDefault("results.table", "scrape_results")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.concurrency", 4)
	v.SetDefault("server.per_host_rps", 1)
	v.SetDefault("server.burst", 1)
	v.SetDefault("server.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Fetch.UserAgent) == "" {
		return fmt.Errorf("fetch.user_agent must be set")
	}
	if c.Fetch.InitialDelaySeconds < 0 {
		return fmt.Errorf("fetch.initial_delay_seconds must be >= 0")
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must be >= 0")
	}
	if c.Fetch.BackoffFactor < 0 {
		return fmt.Errorf("fetch.backoff_factor must be >= 0")
	}
	if c.Fetch.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.request_timeout_seconds must be > 0")
	}
	if c.Fetch.ScrapeTimeoutSeconds < 0 {
		return fmt.Errorf("fetch.scrape_timeout_seconds must be >= 0")
	}
	switch c.Cache.Backend {
	case CacheBackendFS:
		if strings.TrimSpace(c.Cache.Dir) == "" {
			return fmt.Errorf("cache.dir must be set for the fs backend")
		}
	case CacheBackendGCS:
		if strings.TrimSpace(c.Cache.GCSBucket) == "" {
			return fmt.Errorf("cache.gcs_bucket must be set for the gcs backend")
		}
	case CacheBackendMemory, CacheBackendNone:
	default:
		return fmt.Errorf("cache.backend %q is not one of fs, memory, gcs, none", c.Cache.Backend)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.Concurrency <= 0 {
		return fmt.Errorf("server.concurrency must be > 0")
	}
	if c.Server.PerHostRPS <= 0 {
		return fmt.Errorf("server.per_host_rps must be > 0")
	}
	return nil
}

// InitialDelay converts fetch.initial_delay_seconds to a duration.
func (c FetchConfig) InitialDelay() time.Duration {
	return seconds(c.InitialDelaySeconds)
}

// RequestTimeout converts fetch.request_timeout_seconds to a duration.
func (c FetchConfig) RequestTimeout() time.Duration {
	return seconds(c.RequestTimeoutSeconds)
}

// ScrapeTimeout converts fetch.scrape_timeout_seconds; zero disables it.
func (c FetchConfig) ScrapeTimeout() time.Duration {
	return seconds(c.ScrapeTimeoutSeconds)
}

// Origin returns the configured origin for a strategy, if any.
func (c Config) Origin(strategy string) (string, bool) {
	origin, ok := c.Origins[strings.ToLower(strategy)]
	if !ok || strings.TrimSpace(origin) == "" {
		return "", false
	}
	return origin, true
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
