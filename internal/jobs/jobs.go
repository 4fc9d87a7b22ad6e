// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package jobs runs the background maintenance schedule: click retention,
// GeoIP database reloads, Tor exit list refreshes, and rate limiter cleanup.
package jobs

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/shortly-go/internal/geoip"
	"github.com/olegiv/shortly-go/internal/ipintel"
	"github.com/olegiv/shortly-go/internal/middleware"
	"github.com/olegiv/shortly-go/internal/store"
)

// limiterCacheMax is the per-IP limiter count above which the cache resets.
const limiterCacheMax = 10000

// Scheduler owns the cron instance and its registered jobs.
type Scheduler struct {
	cron    *cron.Cron
	queries *store.Queries
	logger  *slog.Logger
}

// Config lists the collaborators and knobs for the maintenance jobs.
// Nil collaborators skip their job.
type Config struct {
	RetentionDays int
	Geo           *geoip.Lookup
	Tor           *ipintel.TorChecker
	Limiters      []*middleware.GlobalRateLimiter
}

// NewScheduler creates the maintenance scheduler.
func NewScheduler(db *sql.DB, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		queries: store.New(db),
		logger:  logger,
	}
}

// Start registers the jobs and starts the schedule.
func (s *Scheduler) Start(cfg Config) {
	if cfg.RetentionDays > 0 {
		_, _ = s.cron.AddFunc("45 3 * * *", func() {
			s.purgeClicks(cfg.RetentionDays)
		})
	}

	if cfg.Geo != nil && cfg.Geo.IsEnabled() {
		_, _ = s.cron.AddFunc("10 * * * *", func() {
			if err := cfg.Geo.Reload(); err != nil {
				s.logger.Warn("geoip reload failed", "error", err, "category", store.EventCategoryEnrich)
			}
		})
	}

	if cfg.Tor.Enabled() {
		_, _ = s.cron.AddFunc("@every 30m", func() {
			s.refreshTorExits(cfg.Tor)
		})
		// Prime the list so early clicks get Tor verdicts too.
		go s.refreshTorExits(cfg.Tor)
	}

	if len(cfg.Limiters) > 0 {
		_, _ = s.cron.AddFunc("@every 1h", func() {
			for _, rl := range cfg.Limiters {
				if rl.Cleanup(limiterCacheMax) {
					s.logger.Info("rate limiter cache reset")
				}
			}
		})
	}

	s.cron.Start()
	s.logger.Info("maintenance scheduler started")
}

// Stop stops the schedule and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("maintenance scheduler stopped")
}

// purgeClicks deletes click events older than the retention window.
func (s *Scheduler) purgeClicks(retentionDays int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	deleted, err := s.queries.PurgeClickEventsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("click retention purge failed", "error", err, "category", store.EventCategoryTracking)
		return
	}
	if deleted > 0 {
		s.logger.Info("purged old click events", "deleted", deleted, "cutoff", cutoff)
	}
}

func (s *Scheduler) refreshTorExits(tor *ipintel.TorChecker) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := tor.RefreshExitList(ctx); err != nil {
		s.logger.Warn("tor exit list refresh failed", "error", err, "category", store.EventCategoryEnrich)
		return
	}
	s.logger.Info("tor exit list refreshed", "exits", tor.ExitCount())
}
