// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler wires the HTTP surface: the public redirect flow with its
// password challenge and beacon staging page, the telemetry endpoint, and
// the token-protected link management API.
package handler

import (
	"database/sql"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/shortly-go/internal/enrich"
	"github.com/olegiv/shortly-go/internal/resolver"
	"github.com/olegiv/shortly-go/internal/store"
	"github.com/olegiv/shortly-go/internal/util"
	"github.com/olegiv/shortly-go/web"
)

// RedirectHandler serves the public resolution flow.
type RedirectHandler struct {
	svc           *resolver.Service
	enricher      *enrich.Dispatcher
	queries       *store.Queries
	templates     *template.Template
	logger        *slog.Logger
	beaconEnabled bool
	graceDelay    int
}

// NewRedirectHandler creates the public redirect handler.
// graceDelay is the milliseconds the staging page waits after posting the
// beacon before redirecting.
func NewRedirectHandler(db *sql.DB, svc *resolver.Service, enricher *enrich.Dispatcher, logger *slog.Logger, beaconEnabled bool, graceDelay int) (*RedirectHandler, error) {
	tmpl, err := template.ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RedirectHandler{
		svc:           svc,
		enricher:      enricher,
		queries:       store.New(db),
		templates:     tmpl,
		logger:        logger,
		beaconEnabled: beaconEnabled,
		graceDelay:    graceDelay,
	}, nil
}

// challengeData feeds the password form template.
type challengeData struct {
	Code            string
	ClickID         string
	InvalidPassword bool
}

// stagingData feeds the beacon staging template.
type stagingData struct {
	Code       string
	TargetURL  string
	ClickID    string
	GraceDelay int
}

// Resolve handles GET /{code}: resolve the short code and either redirect,
// challenge for a password, or render the not-found page.
func (h *RedirectHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.visit(w, r, resolver.Visit{
		Code:      chi.URLParam(r, "code"),
		Password:  r.URL.Query().Get("password"),
		ClickID:   r.URL.Query().Get("clickId"),
		IP:        util.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
}

// ChallengeForm handles GET /unlock/{code}: show the password form for a
// protected link, issuing a click event if the visitor has none yet. The
// error query flag set by a rejected submission renders the retry message.
func (h *RedirectHandler) ChallengeForm(w http.ResponseWriter, r *http.Request) {
	v := resolver.Visit{
		Code:      chi.URLParam(r, "code"),
		ClickID:   r.URL.Query().Get("clickId"),
		IP:        util.ClientIP(r),
		UserAgent: r.UserAgent(),
	}

	d := h.svc.Handle(r.Context(), v)
	h.maybeEnrich(r, v, d)

	switch d.Action {
	case resolver.ActionChallenge:
		h.render(w, http.StatusOK, "challenge.html", challengeData{
			Code:            v.Code,
			ClickID:         d.ClickID,
			InvalidPassword: r.URL.Query().Get("error") == "invalid",
		})

	case resolver.ActionRedirect:
		// Nothing to unlock; the link is not protected.
		h.redirectToTarget(w, r, v.Code, d)

	default:
		h.NotFound(w, r)
	}
}

// ChallengeSubmit handles POST /unlock/{code}: verify the submitted password.
func (h *RedirectHandler) ChallengeSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	h.visit(w, r, resolver.Visit{
		Code:      chi.URLParam(r, "code"),
		Password:  r.PostFormValue("password"),
		ClickID:   r.PostFormValue("clickId"),
		IP:        util.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
}

// visit runs the resolver decision and renders its outcome. Challenge
// decisions redirect to the form page so retries stay on a GET URL.
func (h *RedirectHandler) visit(w http.ResponseWriter, r *http.Request, v resolver.Visit) {
	d := h.svc.Handle(r.Context(), v)
	h.maybeEnrich(r, v, d)

	switch d.Action {
	case resolver.ActionRedirect:
		h.redirectToTarget(w, r, v.Code, d)

	case resolver.ActionChallenge:
		h.redirectToChallenge(w, r, v.Code, d)

	default:
		h.NotFound(w, r)
	}
}

// maybeEnrich queues deferred enrichment for freshly recorded events. A
// click identifier that differs from the one the request carried marks a
// new event; only those get enriched.
func (h *RedirectHandler) maybeEnrich(r *http.Request, v resolver.Visit, d resolver.Decision) {
	if d.ClickID != "" && d.ClickID != v.ClickID {
		h.enricher.Enqueue(enrich.Job{
			ClickID: d.ClickID,
			IP:      v.IP,
			Headers: r.Header.Clone(),
		})
	}
}

func (h *RedirectHandler) redirectToTarget(w http.ResponseWriter, r *http.Request, code string, d resolver.Decision) {
	if h.beaconEnabled && d.ClickID != "" {
		h.renderStaging(w, stagingData{
			Code:       code,
			TargetURL:  d.TargetURL,
			ClickID:    d.ClickID,
			GraceDelay: h.graceDelay,
		})
		return
	}
	http.Redirect(w, r, d.TargetURL, http.StatusFound)
}

func (h *RedirectHandler) redirectToChallenge(w http.ResponseWriter, r *http.Request, code string, d resolver.Decision) {
	q := url.Values{}
	if d.ClickID != "" {
		q.Set("clickId", d.ClickID)
	}
	if d.InvalidPassword {
		q.Set("error", "invalid")
	}

	target := "/unlock/" + url.PathEscape(code)
	if enc := q.Encode(); enc != "" {
		target += "?" + enc
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Staging handles GET /go/{clickId}: re-render the staging page for an
// already recorded click, e.g. after a reload.
func (h *RedirectHandler) Staging(w http.ResponseWriter, r *http.Request) {
	clickID := chi.URLParam(r, "clickId")

	event, err := h.queries.GetClickEvent(r.Context(), clickID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			h.logger.Error("failed to load click event", "error", err, "click_id", clickID)
		}
		h.NotFound(w, r)
		return
	}

	link, err := h.queries.GetLinkByID(r.Context(), event.LinkID)
	if err != nil || !link.IsActive {
		h.NotFound(w, r)
		return
	}

	// A pending password gate must not be bypassed through the staging URL.
	if link.Protected() && !(event.Authorized.Valid && event.Authorized.Bool) {
		h.redirectToChallenge(w, r, link.ShortCode, resolver.Decision{ClickID: event.ID})
		return
	}

	h.renderStaging(w, stagingData{
		Code:       link.ShortCode,
		TargetURL:  link.TargetURL,
		ClickID:    event.ID,
		GraceDelay: h.graceDelay,
	})
}

// NotFound renders the shared not-found page.
func (h *RedirectHandler) NotFound(w http.ResponseWriter, _ *http.Request) {
	h.render(w, http.StatusNotFound, "notfound.html", nil)
}

func (h *RedirectHandler) renderStaging(w http.ResponseWriter, data stagingData) {
	h.render(w, http.StatusOK, "staging.html", data)
}

func (h *RedirectHandler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("failed to render template", "error", err, "template", name)
	}
}
