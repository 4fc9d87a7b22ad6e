// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ipintel provides best-effort IP intelligence lookups: external
// geolocation, VPN heuristics and Tor exit detection. Every lookup is
// designed to fail soft; callers treat errors as "unknown".
package ipintel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultTimeout bounds a single lookup request when the caller's context
// carries no deadline of its own.
const defaultTimeout = 5 * time.Second

// IPInfo is the response of the external IP intelligence service.
type IPInfo struct {
	Country string `json:"country"`
	Region  string `json:"regionName"`
	City    string `json:"city"`
	ISP     string `json:"isp"`
	Org     string `json:"org"`
	Proxy   bool   `json:"proxy"`
	Hosting bool   `json:"hosting"`
}

// Client queries an external IP intelligence service.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given service base URL.
// The token is sent as a query parameter when non-empty.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// Enabled returns true if the service is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Lookup queries the service for the given IP address.
func (c *Client) Lookup(ctx context.Context, ip string) (*IPInfo, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ip intelligence service not configured")
	}

	reqURL := c.baseURL + "/" + url.PathEscape(ip)
	if c.token != "" {
		reqURL += "?token=" + url.QueryEscape(c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ip lookup request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ip lookup returned status %d", resp.StatusCode)
	}

	var info IPInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("parsing ip lookup response: %w", err)
	}

	return &info, nil
}
