// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

// ShortLink is a persisted shortened link. The click counters are maintained
// by a database trigger on click_events and are read-only for application code.
type ShortLink struct {
	ID               int64
	ShortCode        string
	TargetURL        string
	PasswordHash     sql.NullString
	IsActive         bool
	OwnerEmail       sql.NullString
	ClickCount       int64
	UniqueClickCount int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Protected returns true if the link requires a password.
func (l ShortLink) Protected() bool {
	return l.PasswordHash.Valid && l.PasswordHash.String != ""
}

// ClickEvent is one recorded visit attempt. Enrichment and telemetry fields
// start NULL and are each patched at most once after insert.
type ClickEvent struct {
	ID         string
	LinkID     int64
	IP         string
	UserAgent  string
	Browser    string
	OS         string
	DeviceType string
	// Authorized is NULL for unprotected links, false for attempts without a
	// valid password, true once the password has been verified.
	Authorized sql.NullBool

	// Server-side enrichment (deferred worker)
	Country sql.NullString
	Region  sql.NullString
	City    sql.NullString
	ISP     sql.NullString
	IsVPN   sql.NullBool
	IsTor   sql.NullBool

	// Client-side telemetry (beacon)
	IsVM            sql.NullBool
	IsIncognito     sql.NullBool
	Timezone        sql.NullString
	Language        sql.NullString
	Screen          sql.NullString
	BatteryLevel    sql.NullFloat64
	BatteryCharging sql.NullBool
	ConnectionType  sql.NullString
	LocalIP         sql.NullString

	CreatedAt   time.Time
	EnrichedAt  sql.NullTime
	TelemetryAt sql.NullTime
}

// LinkStats holds aggregate counts across all links.
type LinkStats struct {
	TotalLinks   int64
	ActiveLinks  int64
	TotalClicks  int64
	UniqueClicks int64
}

// Event log levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event log categories.
const (
	EventCategorySystem   = "system"
	EventCategoryRedirect = "redirect"
	EventCategoryTracking = "tracking"
	EventCategoryEnrich   = "enrichment"
)
