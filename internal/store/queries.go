// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries wraps a database handle with typed query methods.
type Queries struct {
	db DBTX
}

// New creates a Queries instance for the given database handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const shortLinkColumns = `id, short_code, target_url, password_hash, is_active, owner_email,
	click_count, unique_click_count, created_at, updated_at`

func scanShortLink(row *sql.Row) (ShortLink, error) {
	var l ShortLink
	err := row.Scan(&l.ID, &l.ShortCode, &l.TargetURL, &l.PasswordHash, &l.IsActive,
		&l.OwnerEmail, &l.ClickCount, &l.UniqueClickCount, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// CreateShortLinkParams holds parameters for CreateShortLink.
type CreateShortLinkParams struct {
	ShortCode    string
	TargetURL    string
	PasswordHash sql.NullString
	OwnerEmail   sql.NullString
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateShortLink inserts a new short link and returns it.
func (q *Queries) CreateShortLink(ctx context.Context, arg CreateShortLinkParams) (ShortLink, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO short_links (short_code, target_url, password_hash, owner_email, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+shortLinkColumns,
		arg.ShortCode, arg.TargetURL, arg.PasswordHash, arg.OwnerEmail, arg.IsActive,
		arg.CreatedAt, arg.UpdatedAt)
	return scanShortLink(row)
}

// GetActiveLinkByCode looks up an active short link by its code.
// The short_code column is COLLATE NOCASE, so the match is case-insensitive.
func (q *Queries) GetActiveLinkByCode(ctx context.Context, code string) (ShortLink, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+shortLinkColumns+`
		FROM short_links
		WHERE short_code = ? AND is_active = 1`, code)
	return scanShortLink(row)
}

// GetLinkByCode looks up a short link by its code regardless of active state.
func (q *Queries) GetLinkByCode(ctx context.Context, code string) (ShortLink, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+shortLinkColumns+`
		FROM short_links
		WHERE short_code = ?`, code)
	return scanShortLink(row)
}

// GetLinkByID looks up a short link by its identifier.
func (q *Queries) GetLinkByID(ctx context.Context, id int64) (ShortLink, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+shortLinkColumns+`
		FROM short_links
		WHERE id = ?`, id)
	return scanShortLink(row)
}

// ListLinks returns all short links, newest first.
func (q *Queries) ListLinks(ctx context.Context) ([]ShortLink, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+shortLinkColumns+`
		FROM short_links
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var links []ShortLink
	for rows.Next() {
		var l ShortLink
		if err := rows.Scan(&l.ID, &l.ShortCode, &l.TargetURL, &l.PasswordHash, &l.IsActive,
			&l.OwnerEmail, &l.ClickCount, &l.UniqueClickCount, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// SetLinkActive toggles the active flag of a short link.
func (q *Queries) SetLinkActive(ctx context.Context, id int64, active bool, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE short_links SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, updatedAt, id)
	return err
}

// DeleteLink removes a short link and, via cascade, its click events.
func (q *Queries) DeleteLink(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM short_links WHERE id = ?`, id)
	return err
}

// GetLinkStats returns aggregate counts across all links.
func (q *Queries) GetLinkStats(ctx context.Context) (LinkStats, error) {
	var s LinkStats
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(is_active), 0),
		       COALESCE(SUM(click_count), 0),
		       COALESCE(SUM(unique_click_count), 0)
		FROM short_links`).Scan(&s.TotalLinks, &s.ActiveLinks, &s.TotalClicks, &s.UniqueClicks)
	return s, err
}

const clickEventColumns = `id, link_id, ip, user_agent, browser, os, device_type, authorized,
	country, region, city, isp, is_vpn, is_tor,
	is_vm, is_incognito, timezone, language, screen, battery_level, battery_charging,
	connection_type, local_ip, created_at, enriched_at, telemetry_at`

func scanClickEvent(scan func(...any) error) (ClickEvent, error) {
	var e ClickEvent
	err := scan(&e.ID, &e.LinkID, &e.IP, &e.UserAgent, &e.Browser, &e.OS, &e.DeviceType, &e.Authorized,
		&e.Country, &e.Region, &e.City, &e.ISP, &e.IsVPN, &e.IsTor,
		&e.IsVM, &e.IsIncognito, &e.Timezone, &e.Language, &e.Screen, &e.BatteryLevel, &e.BatteryCharging,
		&e.ConnectionType, &e.LocalIP, &e.CreatedAt, &e.EnrichedAt, &e.TelemetryAt)
	return e, err
}

// CreateClickEventParams holds parameters for CreateClickEvent.
// Enrichment and telemetry fields are intentionally absent: they start NULL.
type CreateClickEventParams struct {
	ID         string
	LinkID     int64
	IP         string
	UserAgent  string
	Browser    string
	OS         string
	DeviceType string
	Authorized sql.NullBool
	CreatedAt  time.Time
}

// CreateClickEvent inserts one click event row.
func (q *Queries) CreateClickEvent(ctx context.Context, arg CreateClickEventParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO click_events (id, link_id, ip, user_agent, browser, os, device_type, authorized, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.LinkID, arg.IP, arg.UserAgent, arg.Browser, arg.OS, arg.DeviceType,
		arg.Authorized, arg.CreatedAt)
	return err
}

// GetClickEvent returns a click event by identifier.
func (q *Queries) GetClickEvent(ctx context.Context, id string) (ClickEvent, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+clickEventColumns+`
		FROM click_events
		WHERE id = ?`, id)
	return scanClickEvent(row.Scan)
}

// AuthorizeClickEvent marks a click event as password-verified.
// Returns the number of rows affected; zero means the identifier did not
// match an event of the given link.
func (q *Queries) AuthorizeClickEvent(ctx context.Context, id string, linkID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE click_events SET authorized = 1 WHERE id = ? AND link_id = ?`, id, linkID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateClickEnrichmentParams holds the deferred-worker patch for a click event.
type UpdateClickEnrichmentParams struct {
	ID         string
	Country    sql.NullString
	Region     sql.NullString
	City       sql.NullString
	ISP        sql.NullString
	IsVPN      sql.NullBool
	IsTor      sql.NullBool
	EnrichedAt time.Time
}

// UpdateClickEnrichment writes the server-side enrichment fields.
// A pure overwrite: repeating the call with the same values is safe.
func (q *Queries) UpdateClickEnrichment(ctx context.Context, arg UpdateClickEnrichmentParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE click_events
		SET country = ?, region = ?, city = ?, isp = ?, is_vpn = ?, is_tor = ?, enriched_at = ?
		WHERE id = ?`,
		arg.Country, arg.Region, arg.City, arg.ISP, arg.IsVPN, arg.IsTor, arg.EnrichedAt, arg.ID)
	return err
}

// UpdateClickTelemetryParams holds the client-beacon patch for a click event.
type UpdateClickTelemetryParams struct {
	ID              string
	Timezone        sql.NullString
	Language        sql.NullString
	Screen          sql.NullString
	ConnectionType  sql.NullString
	LocalIP         sql.NullString
	BatteryLevel    sql.NullFloat64
	BatteryCharging sql.NullBool
	IsVM            sql.NullBool
	IsIncognito     sql.NullBool
	TelemetryAt     time.Time
}

// UpdateClickTelemetry writes the browser-only telemetry fields.
func (q *Queries) UpdateClickTelemetry(ctx context.Context, arg UpdateClickTelemetryParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE click_events
		SET timezone = ?, language = ?, screen = ?, connection_type = ?, local_ip = ?,
		    battery_level = ?, battery_charging = ?, is_vm = ?, is_incognito = ?, telemetry_at = ?
		WHERE id = ?`,
		arg.Timezone, arg.Language, arg.Screen, arg.ConnectionType, arg.LocalIP,
		arg.BatteryLevel, arg.BatteryCharging, arg.IsVM, arg.IsIncognito, arg.TelemetryAt, arg.ID)
	return err
}

// ListClickEventsByLink returns the most recent click events for a link.
func (q *Queries) ListClickEventsByLink(ctx context.Context, linkID int64, limit int64) ([]ClickEvent, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+clickEventColumns+`
		FROM click_events
		WHERE link_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, linkID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []ClickEvent
	for rows.Next() {
		e, err := scanClickEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountClickEventsByLink returns the number of stored click events for a link.
func (q *Queries) CountClickEventsByLink(ctx context.Context, linkID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM click_events WHERE link_id = ?`, linkID).Scan(&n)
	return n, err
}

// PurgeClickEventsBefore deletes click events created before the cutoff.
// Used by the retention job. Returns the number of deleted rows.
func (q *Queries) PurgeClickEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM click_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateEventParams holds parameters for CreateEvent.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent writes an entry to the event log.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO event_log (level, category, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.Metadata, arg.CreatedAt)
	return err
}
