// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip provides IP geolocation using a MaxMind GeoLite2-City database.
package geoip

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"

	"github.com/olegiv/shortly-go/internal/util"
)

// LocalSentinel is returned for private and loopback addresses.
// No database or network lookup is performed for those.
const LocalSentinel = "Local"

// Location is the result of a GeoIP lookup. Empty fields mean unknown.
type Location struct {
	Country string
	Region  string
	City    string
}

// IsZero returns true if no location information was found.
func (l Location) IsZero() bool {
	return l.Country == "" && l.Region == "" && l.City == ""
}

// Lookup handles IP geolocation using a MaxMind GeoLite2-City database.
type Lookup struct {
	db          *maxminddb.Reader
	dbPath      string
	dbModTime   time.Time
	initialized bool
	enabled     bool
	mu          sync.RWMutex
}

// geoRecord matches the GeoLite2-City database structure.
type geoRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Subdivisions []struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"subdivisions"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
}

// NewLookup creates a new GeoIP lookup instance.
func NewLookup() *Lookup {
	return &Lookup{}
}

// Init initializes the GeoIP database from the given path.
// If path is empty, GeoIP lookups are disabled (graceful degradation).
func (g *Lookup) Init(dbPath string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.initialized = true
	g.dbPath = dbPath

	if dbPath == "" {
		g.enabled = false
		return nil
	}

	return g.loadDatabase()
}

// loadDatabase loads or reloads the MaxMind database.
// Caller must hold g.mu write lock.
func (g *Lookup) loadDatabase() error {
	info, err := os.Stat(g.dbPath)
	if err != nil {
		g.enabled = false
		if os.IsNotExist(err) {
			return fmt.Errorf("GeoIP database not found: %s", g.dbPath)
		}
		return fmt.Errorf("GeoIP database stat error: %w", err)
	}

	// Skip reload if not modified
	if g.db != nil && info.ModTime().Equal(g.dbModTime) {
		return nil
	}

	if g.db != nil {
		_ = g.db.Close()
		g.db = nil
	}

	db, err := maxminddb.Open(g.dbPath)
	if err != nil {
		g.enabled = false
		return fmt.Errorf("failed to open GeoIP database: %w", err)
	}

	g.db = db
	g.dbModTime = info.ModTime()
	g.enabled = true

	return nil
}

// Reload reloads the GeoIP database if it has been updated on disk.
// Safe to call periodically (e.g., from a cron job).
func (g *Lookup) Reload() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dbPath == "" {
		return nil
	}

	return g.loadDatabase()
}

// LookupIP returns the location for an IP address.
// Private and loopback addresses short-circuit to the Local sentinel without
// touching the database. Invalid IPs and lookup errors yield a zero Location.
func (g *Lookup) LookupIP(ip string) Location {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.initialized {
		return Location{}
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return Location{}
	}

	if util.IsPrivateIP(parsedIP) || parsedIP.IsLoopback() {
		return Location{Country: LocalSentinel, Region: LocalSentinel, City: LocalSentinel}
	}

	if !g.enabled || g.db == nil {
		return Location{}
	}

	var record geoRecord
	if err := g.db.Lookup(parsedIP, &record); err != nil {
		return Location{}
	}

	loc := Location{Country: record.Country.ISOCode}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
	}
	loc.City = record.City.Names["en"]
	return loc
}

// IsEnabled returns whether database-backed lookups are available.
func (g *Lookup) IsEnabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.enabled
}

// Close closes the GeoIP database.
func (g *Lookup) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.db != nil {
		err := g.db.Close()
		g.db = nil
		g.enabled = false
		return err
	}
	return nil
}
