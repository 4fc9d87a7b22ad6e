// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"SHORTLY_DB_PATH" envDefault:"./data/shortly.db"`
	ServerHost string `env:"SHORTLY_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"SHORTLY_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"SHORTLY_ENV" envDefault:"development"`
	LogLevel   string `env:"SHORTLY_LOG_LEVEL" envDefault:"info"`

	// BaseURL is the public URL the service is reachable at. Used when
	// building short URLs returned by the links API.
	BaseURL string `env:"SHORTLY_BASE_URL" envDefault:"http://localhost:8080"`

	// APIToken protects the link-management API. Empty disables the API.
	APIToken string `env:"SHORTLY_API_TOKEN"`

	// Cache configuration
	RedisURL    string `env:"SHORTLY_REDIS_URL"`                          // Optional Redis URL for link cache
	CachePrefix string `env:"SHORTLY_CACHE_PREFIX" envDefault:"shortly:"` // Redis key prefix
	CacheTTL    int    `env:"SHORTLY_CACHE_TTL" envDefault:"3600"`        // Link cache TTL in seconds

	// GeoIP configuration
	GeoIPDBPath string `env:"SHORTLY_GEOIP_DB_PATH"` // Path to GeoLite2-City.mmdb file

	// IP intelligence service (external geo/ISP lookup)
	IPIntelURL   string `env:"SHORTLY_IPINTEL_URL"`   // Base URL of the IP lookup service
	IPIntelToken string `env:"SHORTLY_IPINTEL_TOKEN"` // API token for the IP lookup service

	// Tor exit detection
	TorCheckURL    string `env:"SHORTLY_TOR_CHECK_URL"`     // Per-IP Tor exit check endpoint
	TorExitListURL string `env:"SHORTLY_TOR_EXIT_LIST_URL"` // Published exit-node list, refreshed periodically

	// Enrichment worker
	EnrichWorkers      int `env:"SHORTLY_ENRICH_WORKERS" envDefault:"3"`
	EnrichTimeoutSec   int `env:"SHORTLY_ENRICH_TIMEOUT" envDefault:"5"` // Per-lookup timeout in seconds
	ClickRetentionDays int `env:"SHORTLY_CLICK_RETENTION_DAYS" envDefault:"365"`

	// Client telemetry beacon
	BeaconEnabled    bool `env:"SHORTLY_BEACON_ENABLED" envDefault:"false"`
	BeaconGraceDelay int  `env:"SHORTLY_BEACON_GRACE_MS" envDefault:"100"` // Redirect grace delay in milliseconds

	// Seeding configuration
	DoSeed bool `env:"SHORTLY_DO_SEED" envDefault:"false"` // Enable database seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// GeoIPEnabled returns true if the local GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// IPIntelEnabled returns true if the external IP intelligence service is configured.
func (c Config) IPIntelEnabled() bool {
	return c.IPIntelURL != ""
}

// APIEnabled returns true if the link-management API is enabled.
func (c Config) APIEnabled() bool {
	return c.APIToken != ""
}

// EnrichTimeout returns the per-lookup enrichment timeout.
func (c Config) EnrichTimeout() time.Duration {
	return time.Duration(c.EnrichTimeoutSec) * time.Second
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid SHORTLY_BASE_URL: %w", err)
	}

	if cfg.IPIntelURL != "" {
		u, err := url.Parse(cfg.IPIntelURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("SHORTLY_IPINTEL_URL must be an http(s) URL, got %q", cfg.IPIntelURL)
		}
	}

	if cfg.EnrichWorkers <= 0 {
		cfg.EnrichWorkers = 3
	}
	if cfg.EnrichTimeoutSec <= 0 {
		cfg.EnrichTimeoutSec = 5
	}

	return cfg, nil
}
