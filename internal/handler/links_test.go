// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func (a *app) apiRequest(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.10:54321"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestAPIRequiresToken(t *testing.T) {
	a := newApp(t, false)

	if w := a.apiRequest(http.MethodGet, "/api/links", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d, want 401", w.Code)
	}
	if w := a.apiRequest(http.MethodGet, "/api/links", nil, "wrong-token"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", w.Code)
	}
	if w := a.apiRequest(http.MethodGet, "/api/links", nil, testAPIToken); w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", w.Code)
	}
}

func TestCreateLink(t *testing.T) {
	a := newApp(t, false)

	w := a.apiRequest(http.MethodPost, "/api/links", map[string]any{
		"short_code": "docs",
		"target_url": "https://go.dev/doc/",
	}, testAPIToken)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ShortCode string `json:"short_code"`
		ShortURL  string `json:"short_url"`
		TargetURL string `json:"target_url"`
		Protected bool   `json:"protected"`
		IsActive  bool   `json:"is_active"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ShortCode != "docs" {
		t.Errorf("ShortCode = %q", resp.ShortCode)
	}
	if resp.ShortURL != "http://localhost:8080/docs" {
		t.Errorf("ShortURL = %q", resp.ShortURL)
	}
	if resp.Protected {
		t.Error("link without password must not be protected")
	}
	if !resp.IsActive {
		t.Error("new links start active")
	}
}

func TestCreateLinkGeneratesCode(t *testing.T) {
	a := newApp(t, false)

	w := a.apiRequest(http.MethodPost, "/api/links", map[string]any{
		"target_url": "https://example.com",
	}, testAPIToken)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ShortCode string `json:"short_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.ShortCode) != 6 {
		t.Errorf("generated code %q, want 6 characters", resp.ShortCode)
	}
}

func TestCreateLinkValidation(t *testing.T) {
	a := newApp(t, false)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing target", map[string]any{"short_code": "x"}, http.StatusBadRequest},
		{"relative target", map[string]any{"target_url": "/local/path"}, http.StatusBadRequest},
		{"bad scheme", map[string]any{"target_url": "javascript:alert(1)"}, http.StatusBadRequest},
		{"code with slash", map[string]any{"target_url": "https://example.com", "short_code": "a/b"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.apiRequest(http.MethodPost, "/api/links", tt.body, testAPIToken)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestCreateLinkDuplicateCode(t *testing.T) {
	a := newApp(t, false)
	a.addLink(t, "taken", "https://example.com", "")

	w := a.apiRequest(http.MethodPost, "/api/links", map[string]any{
		"short_code": "taken",
		"target_url": "https://example.org",
	}, testAPIToken)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestCreateProtectedLink(t *testing.T) {
	a := newApp(t, false)

	w := a.apiRequest(http.MethodPost, "/api/links", map[string]any{
		"short_code": "vault",
		"target_url": "https://example.com/secret",
		"password":   "letmein",
	}, testAPIToken)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	if bytes.Contains(w.Body.Bytes(), []byte("$2")) {
		t.Error("password hash must not appear in the response")
	}

	var resp struct {
		Protected bool `json:"protected"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Protected {
		t.Error("expected protected link")
	}

	// The gate actually engages.
	if got := a.get("/vault"); got.Code != http.StatusOK || !bytes.Contains(got.Body.Bytes(), []byte("/unlock/vault")) {
		t.Errorf("expected challenge page for the new protected link, status %d", got.Code)
	}
}

func TestToggleLink(t *testing.T) {
	a := newApp(t, false)
	a.addLink(t, "flip", "https://example.com", "")

	w := a.apiRequest(http.MethodPost, "/api/links/flip/toggle", nil, testAPIToken)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	if got := a.get("/flip"); got.Code != http.StatusNotFound {
		t.Errorf("deactivated link resolved with status %d, want 404", got.Code)
	}

	w = a.apiRequest(http.MethodPost, "/api/links/flip/toggle", nil, testAPIToken)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	if got := a.get("/flip"); got.Code != http.StatusFound {
		t.Errorf("reactivated link status = %d, want 302", got.Code)
	}
}

func TestDeleteLink(t *testing.T) {
	a := newApp(t, false)
	a.addLink(t, "gone", "https://example.com", "")

	w := a.apiRequest(http.MethodDelete, "/api/links/gone", nil, testAPIToken)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	if w := a.apiRequest(http.MethodGet, "/api/links/gone", nil, testAPIToken); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 after delete", w.Code)
	}
}

func TestLinkClicksEndpoint(t *testing.T) {
	a := newApp(t, false)
	a.addLink(t, "clicked", "https://example.com", "")

	a.get("/clicked")
	a.get("/clicked")

	w := a.apiRequest(http.MethodGet, "/api/links/clicked/clicks", nil, testAPIToken)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Clicks []struct {
			ID         string `json:"id"`
			Browser    string `json:"browser"`
			DeviceType string `json:"device_type"`
			Authorized *bool  `json:"authorized"`
		} `json:"clicks"`
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Total != 2 || len(resp.Clicks) != 2 {
		t.Errorf("total = %d, clicks = %d, want 2/2", resp.Total, len(resp.Clicks))
	}
	if resp.Clicks[0].Authorized != nil {
		t.Error("unprotected clicks must report authorized as null")
	}
	if resp.Clicks[0].Browser != "Firefox" {
		t.Errorf("Browser = %q", resp.Clicks[0].Browser)
	}
}

func TestStatsEndpoint(t *testing.T) {
	a := newApp(t, false)
	a.addLink(t, "s1", "https://example.com/1", "")
	a.addLink(t, "s2", "https://example.com/2", "")
	a.get("/s1")

	w := a.apiRequest(http.MethodGet, "/api/stats", nil, testAPIToken)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		TotalLinks  int64 `json:"total_links"`
		ActiveLinks int64 `json:"active_links"`
		TotalClicks int64 `json:"total_clicks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.TotalLinks != 2 || resp.ActiveLinks != 2 {
		t.Errorf("links = %d/%d, want 2/2", resp.TotalLinks, resp.ActiveLinks)
	}
	if resp.TotalClicks != 1 {
		t.Errorf("TotalClicks = %d, want 1", resp.TotalClicks)
	}
}

func TestHealthEndpoints(t *testing.T) {
	a := newApp(t, false)

	if w := a.get("/health"); w.Code != http.StatusOK {
		t.Errorf("/health status = %d", w.Code)
	}
	if w := a.get("/health/ready"); w.Code != http.StatusOK {
		t.Errorf("/health/ready status = %d", w.Code)
	}
}
