// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/olegiv/shortly-go/internal/logging"
	"github.com/olegiv/shortly-go/internal/store"
	"github.com/olegiv/shortly-go/internal/testutil"
)

func newEventLogger(t *testing.T) (*slog.Logger, *sql.DB) {
	t.Helper()

	db := testutil.TestMemoryDB(t)

	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(logging.NewEventLogHandler(inner, store.New(db)))
	return logger, db
}

func countEvents(t *testing.T, db *sql.DB) int {
	t.Helper()

	var n int
	if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM event_log").Scan(&n); err != nil {
		t.Fatalf("counting events: %v", err)
	}
	return n
}

func TestWarnAndErrorReachEventLog(t *testing.T) {
	logger, db := newEventLogger(t)

	logger.Warn("enrichment queue full, dropping job", "click_id", "abc")
	logger.Error("failed to record click", "error", "disk full")

	if got := countEvents(t, db); got != 2 {
		t.Errorf("event rows = %d, want 2", got)
	}
}

func TestInfoAndDebugStayOut(t *testing.T) {
	logger, db := newEventLogger(t)

	logger.Info("server starting")
	logger.Debug("worker started")

	if got := countEvents(t, db); got != 0 {
		t.Errorf("event rows = %d, want 0", got)
	}
}

func TestCategoryFromAttribute(t *testing.T) {
	logger, db := newEventLogger(t)

	logger.Warn("something odd", "category", store.EventCategoryEnrich)

	var category string
	err := db.QueryRowContext(context.Background(), "SELECT category FROM event_log LIMIT 1").Scan(&category)
	if err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if category != store.EventCategoryEnrich {
		t.Errorf("category = %q, want %q", category, store.EventCategoryEnrich)
	}
}

func TestCategoryInferredFromMessage(t *testing.T) {
	logger, db := newEventLogger(t)

	logger.Warn("authorize matched no click event")

	var category string
	err := db.QueryRowContext(context.Background(), "SELECT category FROM event_log LIMIT 1").Scan(&category)
	if err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if category != store.EventCategoryTracking {
		t.Errorf("category = %q, want %q", category, store.EventCategoryTracking)
	}
}
