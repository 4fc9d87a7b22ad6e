// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*LinkCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewWithClient(client, "shortly:link:", time.Hour), mr
}

func TestSetAndGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "abc123", Entry{ID: 7, TargetURL: "https://example.com"})

	entry := c.Get(ctx, "abc123")
	if entry == nil {
		t.Fatal("expected cache hit")
	}
	if entry.ID != 7 || entry.TargetURL != "https://example.com" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestGetCaseInsensitive(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "MyLink", Entry{ID: 1, TargetURL: "https://example.com"})

	if c.Get(ctx, "mylink") == nil {
		t.Error("lookup must be case-insensitive")
	}
	if c.Get(ctx, "MYLINK") == nil {
		t.Error("lookup must be case-insensitive")
	}
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	if entry := c.Get(context.Background(), "missing"); entry != nil {
		t.Errorf("expected miss, got %+v", entry)
	}
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "abc123", Entry{ID: 7, TargetURL: "https://example.com"})
	c.Invalidate(ctx, "abc123")

	if c.Get(ctx, "abc123") != nil {
		t.Error("expected entry gone after invalidation")
	}
}

func TestEntryExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewWithClient(client, "shortly:link:", time.Minute)
	ctx := context.Background()

	c.Set(ctx, "abc123", Entry{ID: 7, TargetURL: "https://example.com"})
	mr.FastForward(2 * time.Minute)

	if c.Get(ctx, "abc123") != nil {
		t.Error("expected entry expired after TTL")
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *LinkCache
	ctx := context.Background()

	if c.Get(ctx, "abc123") != nil {
		t.Error("nil cache must miss")
	}
	c.Set(ctx, "abc123", Entry{ID: 1})
	c.Invalidate(ctx, "abc123")
	if err := c.Close(); err != nil {
		t.Errorf("nil cache Close: %v", err)
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	c, mr := newTestCache(t)

	mr.Set("shortly:link:abc123", "not json")

	if c.Get(context.Background(), "abc123") != nil {
		t.Error("corrupt entry must read as a miss")
	}
}
