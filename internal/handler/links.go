// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/shortly-go/internal/auth"
	"github.com/olegiv/shortly-go/internal/cache"
	"github.com/olegiv/shortly-go/internal/store"
	"github.com/olegiv/shortly-go/internal/util"
)

const (
	codeAlphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength     = 6
	codeGenRetries = 5
	maxCodeLength  = 64
)

// LinksHandler implements the token-protected link management API.
type LinksHandler struct {
	queries *store.Queries
	links   *cache.LinkCache
	logger  *slog.Logger
	baseURL string
}

// NewLinksHandler creates the management API handler. The cache may be nil.
func NewLinksHandler(db *sql.DB, links *cache.LinkCache, logger *slog.Logger, baseURL string) *LinksHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinksHandler{
		queries: store.New(db),
		links:   links,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// linkResponse is the JSON projection of a short link. The password hash
// never leaves the server.
type linkResponse struct {
	ID               int64     `json:"id"`
	ShortCode        string    `json:"short_code"`
	ShortURL         string    `json:"short_url"`
	TargetURL        string    `json:"target_url"`
	Protected        bool      `json:"protected"`
	IsActive         bool      `json:"is_active"`
	OwnerEmail       string    `json:"owner_email,omitempty"`
	ClickCount       int64     `json:"click_count"`
	UniqueClickCount int64     `json:"unique_click_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (h *LinksHandler) toResponse(l store.ShortLink) linkResponse {
	return linkResponse{
		ID:               l.ID,
		ShortCode:        l.ShortCode,
		ShortURL:         h.baseURL + "/" + l.ShortCode,
		TargetURL:        l.TargetURL,
		Protected:        l.Protected(),
		IsActive:         l.IsActive,
		OwnerEmail:       l.OwnerEmail.String,
		ClickCount:       l.ClickCount,
		UniqueClickCount: l.UniqueClickCount,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

// createLinkRequest is the POST /api/links body.
type createLinkRequest struct {
	ShortCode  string `json:"short_code"`
	TargetURL  string `json:"target_url"`
	Password   string `json:"password"`
	OwnerEmail string `json:"owner_email"`
}

// Create handles POST /api/links.
func (h *LinksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	target, err := url.Parse(strings.TrimSpace(req.TargetURL))
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		writeJSONError(w, http.StatusBadRequest, "target_url must be an absolute http(s) URL")
		return
	}

	req.ShortCode = strings.TrimSpace(req.ShortCode)
	if len(req.ShortCode) > maxCodeLength || strings.ContainsAny(req.ShortCode, "/ \t") {
		writeJSONError(w, http.StatusBadRequest, "invalid short_code")
		return
	}

	var passwordHash sql.NullString
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			h.logger.Error("failed to hash password", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "failed to create link")
			return
		}
		passwordHash = util.NullStringFromValue(hash)
	}

	now := time.Now().UTC()
	params := store.CreateShortLinkParams{
		TargetURL:    target.String(),
		PasswordHash: passwordHash,
		OwnerEmail:   util.NullStringFromValue(strings.TrimSpace(req.OwnerEmail)),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	link, err := h.createWithCode(r, params, req.ShortCode)
	if err != nil {
		if errors.Is(err, errCodeTaken) {
			writeJSONError(w, http.StatusConflict, "short_code already in use")
			return
		}
		h.logger.Error("failed to create link", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to create link")
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(link))
}

var errCodeTaken = errors.New("short code already in use")

// createWithCode inserts the link, generating a random code when none was
// requested. Collisions on generated codes are retried with a fresh code.
func (h *LinksHandler) createWithCode(r *http.Request, params store.CreateShortLinkParams, requested string) (store.ShortLink, error) {
	if requested != "" {
		params.ShortCode = requested
		link, err := h.queries.CreateShortLink(r.Context(), params)
		if isUniqueViolation(err) {
			return store.ShortLink{}, errCodeTaken
		}
		return link, err
	}

	var lastErr error
	for i := 0; i < codeGenRetries; i++ {
		params.ShortCode = randomCode(codeLength)
		link, err := h.queries.CreateShortLink(r.Context(), params)
		if err == nil {
			return link, nil
		}
		if !isUniqueViolation(err) {
			return store.ShortLink{}, err
		}
		lastErr = err
	}
	return store.ShortLink{}, lastErr
}

// randomCode returns a random code over the base62 alphabet.
func randomCode(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf)
}

// isUniqueViolation matches SQLite unique constraint failures without
// depending on driver error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// List handles GET /api/links.
func (h *LinksHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := h.queries.ListLinks(r.Context())
	if err != nil {
		h.logger.Error("failed to list links", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list links")
		return
	}

	out := make([]linkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, h.toResponse(l))
	}

	writeJSON(w, http.StatusOK, map[string]any{"links": out})
}

// Get handles GET /api/links/{code}.
func (h *LinksHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, ok := h.requireLink(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(link))
}

// Clicks handles GET /api/links/{code}/clicks.
func (h *LinksHandler) Clicks(w http.ResponseWriter, r *http.Request) {
	link, ok := h.requireLink(w, r)
	if !ok {
		return
	}

	limit := int64(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	events, err := h.queries.ListClickEventsByLink(r.Context(), link.ID, limit)
	if err != nil {
		h.logger.Error("failed to list click events", "error", err, "link_id", link.ID)
		writeJSONError(w, http.StatusInternalServerError, "failed to list clicks")
		return
	}

	total, err := h.queries.CountClickEventsByLink(r.Context(), link.ID)
	if err != nil {
		h.logger.Error("failed to count click events", "error", err, "link_id", link.ID)
		writeJSONError(w, http.StatusInternalServerError, "failed to list clicks")
		return
	}

	out := make([]clickResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toClickResponse(e))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"clicks": out,
		"total":  total,
	})
}

// Toggle handles POST /api/links/{code}/toggle.
func (h *LinksHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	link, ok := h.requireLink(w, r)
	if !ok {
		return
	}

	active := !link.IsActive
	if err := h.queries.SetLinkActive(r.Context(), link.ID, active, time.Now().UTC()); err != nil {
		h.logger.Error("failed to toggle link", "error", err, "link_id", link.ID)
		writeJSONError(w, http.StatusInternalServerError, "failed to toggle link")
		return
	}

	h.links.Invalidate(r.Context(), link.ShortCode)

	link.IsActive = active
	writeJSON(w, http.StatusOK, h.toResponse(link))
}

// Delete handles DELETE /api/links/{code}. Click events cascade.
func (h *LinksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	link, ok := h.requireLink(w, r)
	if !ok {
		return
	}

	if err := h.queries.DeleteLink(r.Context(), link.ID); err != nil {
		h.logger.Error("failed to delete link", "error", err, "link_id", link.ID)
		writeJSONError(w, http.StatusInternalServerError, "failed to delete link")
		return
	}

	h.links.Invalidate(r.Context(), link.ShortCode)

	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/stats.
func (h *LinksHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queries.GetLinkStats(r.Context())
	if err != nil {
		h.logger.Error("failed to load stats", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_links":   stats.TotalLinks,
		"active_links":  stats.ActiveLinks,
		"total_clicks":  stats.TotalClicks,
		"unique_clicks": stats.UniqueClicks,
	})
}

// requireLink loads the link for the {code} URL parameter, including
// inactive ones; management sees everything.
func (h *LinksHandler) requireLink(w http.ResponseWriter, r *http.Request) (store.ShortLink, bool) {
	code := chi.URLParam(r, "code")

	link, err := h.queries.GetLinkByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "link not found")
		} else {
			h.logger.Error("failed to load link", "error", err, "code", code)
			writeJSONError(w, http.StatusInternalServerError, "failed to load link")
		}
		return store.ShortLink{}, false
	}

	return link, true
}
