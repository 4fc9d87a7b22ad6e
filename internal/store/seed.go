// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Seed inserts demo short links when seeding is enabled and the table is empty.
// Intended for development; production deployments create links via the API.
func Seed(ctx context.Context, db *sql.DB, doSeed bool) error {
	if !doSeed {
		return nil
	}

	var count int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM short_links`).Scan(&count); err != nil {
		return fmt.Errorf("counting short links: %w", err)
	}
	if count > 0 {
		slog.Info("seed skipped, short links already present", "count", count)
		return nil
	}

	now := time.Now().UTC()

	demoLinks := []CreateShortLinkParams{
		{
			ShortCode: "demo",
			TargetURL: "https://example.com",
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ShortCode: "docs",
			TargetURL: "https://go.dev/doc/",
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	// One password-protected demo link ("secret")
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing demo password: %w", err)
	}
	demoLinks = append(demoLinks, CreateShortLinkParams{
		ShortCode:    "vault",
		TargetURL:    "https://example.com/protected",
		PasswordHash: sql.NullString{String: string(hash), Valid: true},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	// All demo links land in one transaction so a partial seed never
	// survives a failure.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := New(db).WithTx(tx)
	for _, link := range demoLinks {
		if _, err := qtx.CreateShortLink(ctx, link); err != nil {
			return fmt.Errorf("seeding link %q: %w", link.ShortCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}

	slog.Info("seeded demo short links", "count", len(demoLinks))
	return nil
}
