// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides an optional Redis read-through cache for resolved
// short links. Only unprotected active links are cached; protected links
// always hit the database so the password hash never leaves it.
// A nil *LinkCache is valid and behaves as a permanent miss.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is the cached projection of a short link. It carries exactly what
// an unprotected redirect needs.
type Entry struct {
	ID        int64  `json:"id"`
	TargetURL string `json:"target_url"`
}

// LinkCache caches code-to-target resolutions in Redis.
type LinkCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects to Redis using a redis:// URL and verifies the connection.
func New(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*LinkCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &LinkCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

// NewWithClient wraps an existing Redis client. Used in tests.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *LinkCache {
	return &LinkCache{client: client, prefix: prefix, ttl: ttl}
}

// key builds the cache key for a code. Codes are lowercased so the cache
// matches the case-insensitive database lookup.
func (c *LinkCache) key(code string) string {
	return c.prefix + strings.ToLower(code)
}

// Get returns the cached entry for a code, or nil on a miss.
// Redis errors are treated as misses.
func (c *LinkCache) Get(ctx context.Context, code string) *Entry {
	if c == nil {
		return nil
	}

	data, err := c.client.Get(ctx, c.key(code)).Bytes()
	if err != nil {
		return nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}

	return &entry
}

// Set stores an entry for a code. Errors are ignored; the database remains
// the source of truth.
func (c *LinkCache) Set(ctx context.Context, code string, entry Entry) {
	if c == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	c.client.Set(ctx, c.key(code), data, c.ttl)
}

// Invalidate removes the cached entry for a code. Called whenever a link is
// deactivated, deleted, or gains a password.
func (c *LinkCache) Invalidate(ctx context.Context, code string) {
	if c == nil {
		return
	}
	c.client.Del(ctx, c.key(code))
}

// Close releases the underlying Redis connection.
func (c *LinkCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
