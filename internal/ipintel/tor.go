// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ipintel

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TorChecker detects Tor exit nodes. It prefers a locally cached exit-node
// list (refreshed periodically from a published list) and falls back to a
// per-IP check service. Any failure means "not Tor".
type TorChecker struct {
	checkURL    string
	exitListURL string
	http        *http.Client

	mu          sync.RWMutex
	exits       map[string]struct{}
	lastRefresh time.Time
}

// torCheckResponse is the reply of the per-IP check service.
type torCheckResponse struct {
	IsTor bool `json:"IsTor"`
}

// NewTorChecker creates a Tor exit checker. Both URLs are optional;
// with neither configured every check returns false.
func NewTorChecker(checkURL, exitListURL string) *TorChecker {
	return &TorChecker{
		checkURL:    strings.TrimRight(checkURL, "/"),
		exitListURL: exitListURL,
		http:        &http.Client{Timeout: defaultTimeout},
	}
}

// Enabled returns true if any detection source is configured.
func (t *TorChecker) Enabled() bool {
	return t != nil && (t.checkURL != "" || t.exitListURL != "")
}

// RefreshExitList downloads the published exit-node list and replaces the
// cached set. Lines starting with '#' are ignored.
func (t *TorChecker) RefreshExitList(ctx context.Context) error {
	if t.exitListURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.exitListURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching exit list: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("exit list returned status %d", resp.StatusCode)
	}

	exits := make(map[string]struct{})
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		exits[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading exit list: %w", err)
	}

	t.mu.Lock()
	t.exits = exits
	t.lastRefresh = time.Now()
	t.mu.Unlock()

	return nil
}

// ExitCount returns the size of the cached exit-node set.
func (t *TorChecker) ExitCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.exits)
}

// IsTorExit reports whether the IP is a known Tor exit node.
// The cached list is consulted first; the check service only when no list
// has been loaded. Errors and timeouts default to false.
func (t *TorChecker) IsTorExit(ctx context.Context, ip string) bool {
	if !t.Enabled() {
		return false
	}

	t.mu.RLock()
	exits := t.exits
	t.mu.RUnlock()

	if len(exits) > 0 {
		_, found := exits[ip]
		return found
	}

	if t.checkURL == "" {
		return false
	}

	reqURL := t.checkURL + "?ip=" + url.QueryEscape(ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result torCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	return result.IsTor
}
