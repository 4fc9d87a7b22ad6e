// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/shortly-go/internal/middleware"
)

// RouterConfig bundles the handlers and knobs needed to build the router.
type RouterConfig struct {
	Redirect  *RedirectHandler
	Telemetry *TelemetryHandler
	Links     *LinksHandler
	Health    *HealthHandler
	APIToken  string

	PublicLimiter *middleware.GlobalRateLimiter
	APILimiter    *middleware.GlobalRateLimiter
}

// NewRouter assembles the HTTP routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", cfg.Health.Live)
	r.Get("/health/live", cfg.Health.Live)
	r.Get("/health/ready", cfg.Health.Ready)

	// Public redirect surface
	r.Group(func(r chi.Router) {
		r.Use(cfg.PublicLimiter.HTMLMiddleware())

		r.Get("/unlock/{code}", cfg.Redirect.ChallengeForm)
		r.Post("/unlock/{code}", cfg.Redirect.ChallengeSubmit)
		r.Get("/go/{clickId}", cfg.Redirect.Staging)
		r.Get("/{code}", cfg.Redirect.Resolve)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cfg.APILimiter.Middleware())

		// Beacon endpoint: unauthenticated, rate limited per IP
		r.Post("/clicks/telemetry", cfg.Telemetry.Submit)

		// Management API
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireBearerToken(cfg.APIToken))

			r.Get("/stats", cfg.Links.Stats)
			r.Route("/links", func(r chi.Router) {
				r.Post("/", cfg.Links.Create)
				r.Get("/", cfg.Links.List)
				r.Get("/{code}", cfg.Links.Get)
				r.Get("/{code}/clicks", cfg.Links.Clicks)
				r.Post("/{code}/toggle", cfg.Links.Toggle)
				r.Delete("/{code}", cfg.Links.Delete)
			})
		})
	})

	r.NotFound(cfg.Redirect.NotFound)

	return r
}
