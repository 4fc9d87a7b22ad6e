// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tracker records click events on the redirect critical path.
// A record is built only from data derivable from the request itself;
// no network calls happen here. Insert failures are logged and swallowed:
// analytics must never block the redirect.
package tracker

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/shortly-go/internal/store"
)

// Recorder inserts click events synchronously before a redirect is sent.
type Recorder struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewRecorder creates a click recorder.
func NewRecorder(db *sql.DB, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		queries: store.New(db),
		logger:  logger,
	}
}

// Record inserts one click event and returns its identifier.
// Returns the empty string if the insert failed; the caller proceeds with
// the redirect either way.
func (r *Recorder) Record(ctx context.Context, linkID int64, ip, userAgent string, authorized sql.NullBool) string {
	ua := ParseUserAgent(userAgent)
	id := uuid.NewString()

	err := r.queries.CreateClickEvent(ctx, store.CreateClickEventParams{
		ID:         id,
		LinkID:     linkID,
		IP:         ip,
		UserAgent:  userAgent,
		Browser:    ua.Browser,
		OS:         ua.OS,
		DeviceType: ua.DeviceType,
		Authorized: authorized,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		r.logger.Error("failed to record click", "error", err, "link_id", linkID, "category", store.EventCategoryTracking)
		return ""
	}

	return id
}
