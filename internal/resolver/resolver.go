// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package resolver maps short codes to redirect decisions, including the
// password gate for protected links. Resolution fails closed: inactive,
// missing, and errored lookups are indistinguishable to the visitor.
package resolver

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/olegiv/shortly-go/internal/auth"
	"github.com/olegiv/shortly-go/internal/cache"
	"github.com/olegiv/shortly-go/internal/store"
	"github.com/olegiv/shortly-go/internal/tracker"
)

// ErrNotFound is returned for any code that cannot be served: unknown,
// deactivated, or failing to load.
var ErrNotFound = errors.New("short link not found")

// Action tells the handler what to send back.
type Action int

const (
	// ActionNotFound renders the not-found page.
	ActionNotFound Action = iota
	// ActionRedirect sends the visitor to the target URL.
	ActionRedirect
	// ActionChallenge renders the password form.
	ActionChallenge
)

// Decision is the outcome of one visit to a short code.
type Decision struct {
	Action    Action
	TargetURL string
	// ClickID identifies the click event issued for this visit, carried
	// through the challenge form so retries do not create new events.
	// Empty when recording failed.
	ClickID string
	// InvalidPassword marks a challenge shown after a failed attempt.
	InvalidPassword bool
}

// Visit describes one incoming request for a short code.
type Visit struct {
	Code      string
	Password  string
	ClickID   string
	IP        string
	UserAgent string
}

// Service resolves short codes and enforces the password gate.
type Service struct {
	queries  *store.Queries
	recorder *tracker.Recorder
	links    *cache.LinkCache
	logger   *slog.Logger
}

// NewService creates a resolver. The cache may be nil.
func NewService(db *sql.DB, recorder *tracker.Recorder, links *cache.LinkCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		queries:  store.New(db),
		recorder: recorder,
		links:    links,
		logger:   logger,
	}
}

// Resolve loads the active link for a code, case-insensitively.
// Every failure mode collapses to ErrNotFound.
func (s *Service) Resolve(ctx context.Context, code string) (store.ShortLink, error) {
	link, err := s.queries.GetActiveLinkByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("link lookup failed", "error", err, "code", code, "category", store.EventCategoryRedirect)
		}
		return store.ShortLink{}, ErrNotFound
	}
	return link, nil
}

// Handle runs the full decision for one visit: resolve the code, apply the
// password gate if the link is protected, and record the click.
func (s *Service) Handle(ctx context.Context, v Visit) Decision {
	if entry := s.links.Get(ctx, v.Code); entry != nil {
		// Only unprotected links are cached, so this is always a plain
		// redirect.
		clickID := s.recorder.Record(ctx, entry.ID, v.IP, v.UserAgent, sql.NullBool{})
		return Decision{Action: ActionRedirect, TargetURL: entry.TargetURL, ClickID: clickID}
	}

	link, err := s.Resolve(ctx, v.Code)
	if err != nil {
		return Decision{Action: ActionNotFound}
	}

	if !link.Protected() {
		s.links.Set(ctx, v.Code, cache.Entry{ID: link.ID, TargetURL: link.TargetURL})
		clickID := s.recorder.Record(ctx, link.ID, v.IP, v.UserAgent, sql.NullBool{})
		return Decision{Action: ActionRedirect, TargetURL: link.TargetURL, ClickID: clickID}
	}

	return s.gate(ctx, link, v)
}

// gate applies the password state machine for a protected link.
func (s *Service) gate(ctx context.Context, link store.ShortLink, v Visit) Decision {
	if v.Password == "" {
		// First arrival: issue an unauthorized click event and challenge.
		clickID := v.ClickID
		if clickID == "" {
			clickID = s.recorder.Record(ctx, link.ID, v.IP, v.UserAgent,
				sql.NullBool{Bool: false, Valid: true})
		}
		return Decision{Action: ActionChallenge, ClickID: clickID}
	}

	ok, err := auth.CheckPassword(v.Password, link.PasswordHash.String)
	if err != nil {
		// A malformed stored hash is a server-side defect; the visitor
		// sees the same response as for an unknown code.
		s.logger.Error("password verification failed", "error", err, "link_id", link.ID, "category", store.EventCategoryRedirect)
		return Decision{Action: ActionNotFound}
	}

	if !ok {
		clickID := v.ClickID
		if clickID == "" {
			// A retry normally carries the click identifier from the
			// challenge form; create one only when it was lost.
			clickID = s.recorder.Record(ctx, link.ID, v.IP, v.UserAgent,
				sql.NullBool{Bool: false, Valid: true})
		}
		return Decision{Action: ActionChallenge, ClickID: clickID, InvalidPassword: true}
	}

	if v.ClickID != "" {
		s.authorize(ctx, v.ClickID, link.ID)
		return Decision{Action: ActionRedirect, TargetURL: link.TargetURL, ClickID: v.ClickID}
	}

	// Correct password on the first request, no prior event to flip.
	clickID := s.recorder.Record(ctx, link.ID, v.IP, v.UserAgent,
		sql.NullBool{Bool: true, Valid: true})
	return Decision{Action: ActionRedirect, TargetURL: link.TargetURL, ClickID: clickID}
}

// authorize flips the pending click event to authorized. The redirect
// proceeds even when the update misses: an expired or foreign click
// identifier loses the analytics linkage, nothing more.
func (s *Service) authorize(ctx context.Context, clickID string, linkID int64) {
	rows, err := s.queries.AuthorizeClickEvent(ctx, clickID, linkID)
	if err != nil {
		s.logger.Error("failed to authorize click event", "error", err, "click_id", clickID, "category", store.EventCategoryRedirect)
		return
	}
	if rows == 0 {
		s.logger.Warn("authorize matched no click event", "click_id", clickID, "link_id", linkID, "category", store.EventCategoryRedirect)
	}
}
