// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package enrich augments recorded click events off the redirect path:
// geolocation, VPN heuristics and Tor detection run on a worker pool after
// the visitor has already been redirected.
package enrich

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/olegiv/shortly-go/internal/geoip"
	"github.com/olegiv/shortly-go/internal/ipintel"
	"github.com/olegiv/shortly-go/internal/store"
	"github.com/olegiv/shortly-go/internal/util"
)

// Job identifies one click event to enrich, carrying the request data the
// lookups need.
type Job struct {
	ClickID string
	IP      string
	Headers http.Header
}

// Config holds dispatcher configuration.
type Config struct {
	Workers       int           // Number of concurrent enrichment workers
	LookupTimeout time.Duration // Per-lookup deadline
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:       3,
		LookupTimeout: 5 * time.Second,
	}
}

// Dispatcher runs enrichment jobs on a bounded queue of workers.
type Dispatcher struct {
	queries *store.Queries
	logger  *slog.Logger
	geo     *geoip.Lookup
	intel   *ipintel.Client
	tor     *ipintel.TorChecker
	cfg     Config
	queue   chan Job
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

// NewDispatcher creates an enrichment dispatcher. Any of geo, intel, and tor
// may be nil or disabled; the corresponding fields stay unknown.
func NewDispatcher(db *sql.DB, logger *slog.Logger, geo *geoip.Lookup, intel *ipintel.Client, tor *ipintel.TorChecker, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		queries: store.New(db),
		logger:  logger,
		geo:     geo,
		intel:   intel,
		tor:     tor,
		cfg:     cfg,
		queue:   make(chan Job, 100),
		done:    make(chan struct{}),
	}
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting enrichment dispatcher", "workers", d.cfg.Workers)

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the dispatcher and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	close(d.done)
	d.wg.Wait()
	d.logger.Info("enrichment dispatcher stopped")
}

// Enqueue submits a job without blocking. When the queue is full the job is
// dropped; the click event simply stays unenriched.
func (d *Dispatcher) Enqueue(job Job) {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()
	if !running {
		return
	}

	select {
	case d.queue <- job:
	default:
		d.logger.Warn("enrichment queue full, dropping job", "click_id", job.ClickID, "category", store.EventCategoryEnrich)
	}
}

// worker processes queued jobs.
func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("enrichment worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case job := <-d.queue:
			d.process(ctx, job)
		}
	}
}

// result collects lookup outcomes before the single patch write.
type result struct {
	location geoip.Location
	isp      string
	org      string
	haveVPN  bool
	isVPN    bool
	haveTor  bool
	isTor    bool
}

// process runs the lookups for one job and writes the enrichment patch.
// Each lookup gets its own deadline; a slow or failing source leaves its
// fields NULL without holding up the others' results.
func (d *Dispatcher) process(ctx context.Context, job Job) {
	var res result

	if util.IsPrivateAddr(job.IP) {
		// Private and loopback addresses never reach external services.
		res.location = geoip.Location{
			Country: geoip.LocalSentinel,
			Region:  geoip.LocalSentinel,
			City:    geoip.LocalSentinel,
		}
		res.isp = geoip.LocalSentinel
		res.haveVPN = true
		res.haveTor = true
	} else {
		d.lookup(ctx, job, &res)
	}

	err := d.queries.UpdateClickEnrichment(ctx, store.UpdateClickEnrichmentParams{
		ID:         job.ClickID,
		Country:    util.NullStringFromValue(res.location.Country),
		Region:     util.NullStringFromValue(res.location.Region),
		City:       util.NullStringFromValue(res.location.City),
		ISP:        util.NullStringFromValue(res.isp),
		IsVPN:      nullBoolIf(res.haveVPN, res.isVPN),
		IsTor:      nullBoolIf(res.haveTor, res.isTor),
		EnrichedAt: time.Now().UTC(),
	})
	if err != nil {
		d.logger.Error("failed to store enrichment", "error", err, "click_id", job.ClickID, "category", store.EventCategoryEnrich)
	}
}

// lookup runs geolocation, VPN, and Tor checks concurrently.
func (d *Dispatcher) lookup(ctx context.Context, job Job, res *result) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		loc, isp, org := d.geolocate(ctx, job.IP)
		mu.Lock()
		res.location = loc
		res.isp = isp
		res.org = org
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if d.tor.Enabled() {
			torCtx, cancel := context.WithTimeout(ctx, d.cfg.LookupTimeout)
			defer cancel()
			isTor := d.tor.IsTorExit(torCtx, job.IP)
			mu.Lock()
			res.haveTor = true
			res.isTor = isTor
			mu.Unlock()
		}
	}()

	wg.Wait()

	// The VPN heuristic needs the organization from geolocation, so it
	// runs after; it makes no network calls of its own.
	res.haveVPN = true
	res.isVPN = ipintel.IsLikelyVPN(job.Headers, res.org)
}

// geolocate resolves location and ISP, preferring the external service and
// falling back to the local database.
func (d *Dispatcher) geolocate(ctx context.Context, ip string) (geoip.Location, string, string) {
	if d.intel.Enabled() {
		lookupCtx, cancel := context.WithTimeout(ctx, d.cfg.LookupTimeout)
		defer cancel()

		info, err := d.intel.Lookup(lookupCtx, ip)
		if err == nil {
			return geoip.Location{
				Country: info.Country,
				Region:  info.Region,
				City:    info.City,
			}, info.ISP, info.Org
		}
		d.logger.Warn("external ip lookup failed", "error", err, "ip", ip, "category", store.EventCategoryEnrich)
	}

	if d.geo != nil && d.geo.IsEnabled() {
		return d.geo.LookupIP(ip), "", ""
	}

	return geoip.Location{}, "", ""
}

func nullBoolIf(valid, value bool) sql.NullBool {
	return sql.NullBool{Bool: value, Valid: valid}
}
