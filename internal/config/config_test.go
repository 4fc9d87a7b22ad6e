// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DBPath != "./data/shortly.db" {
		t.Errorf("DBPath = %q, want ./data/shortly.db", cfg.DBPath)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode by default")
	}
	if cfg.APIEnabled() {
		t.Error("API must be disabled without a token")
	}
	if cfg.UseRedisCache() {
		t.Error("redis cache must be disabled without a URL")
	}
	if cfg.IPIntelEnabled() {
		t.Error("ip intelligence must be disabled without a URL")
	}
	if cfg.BeaconEnabled {
		t.Error("beacon must be disabled by default")
	}
	if cfg.EnrichTimeout() != 5*time.Second {
		t.Errorf("EnrichTimeout = %v, want 5s", cfg.EnrichTimeout())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHORTLY_SERVER_HOST", "0.0.0.0")
	t.Setenv("SHORTLY_SERVER_PORT", "9090")
	t.Setenv("SHORTLY_API_TOKEN", "secret-token")
	t.Setenv("SHORTLY_ENV", "production")
	t.Setenv("SHORTLY_IPINTEL_URL", "https://ipintel.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ServerAddr() != "0.0.0.0:9090" {
		t.Errorf("ServerAddr = %q, want 0.0.0.0:9090", cfg.ServerAddr())
	}
	if !cfg.APIEnabled() {
		t.Error("expected API enabled with token set")
	}
	if cfg.IsDevelopment() {
		t.Error("expected production mode")
	}
	if !cfg.IPIntelEnabled() {
		t.Error("expected ip intelligence enabled with a URL set")
	}
}

func TestLoadInvalidIPIntelURL(t *testing.T) {
	t.Setenv("SHORTLY_IPINTEL_URL", "not a url")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid SHORTLY_IPINTEL_URL")
	}
}

func TestLoadClampsWorkerSettings(t *testing.T) {
	t.Setenv("SHORTLY_ENRICH_WORKERS", "-2")
	t.Setenv("SHORTLY_ENRICH_TIMEOUT", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EnrichWorkers != 3 {
		t.Errorf("EnrichWorkers = %d, want clamped to 3", cfg.EnrichWorkers)
	}
	if cfg.EnrichTimeoutSec != 5 {
		t.Errorf("EnrichTimeoutSec = %d, want clamped to 5", cfg.EnrichTimeoutSec)
	}
}
