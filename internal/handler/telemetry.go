// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/shortly-go/internal/store"
	"github.com/olegiv/shortly-go/internal/telemetry"
	"github.com/olegiv/shortly-go/internal/util"
)

// maxTelemetryBody caps the beacon payload size.
const maxTelemetryBody = 64 << 10

// TelemetryHandler accepts beacon payloads from the staging page.
type TelemetryHandler struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewTelemetryHandler creates the telemetry endpoint handler.
func NewTelemetryHandler(db *sql.DB, logger *slog.Logger) *TelemetryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelemetryHandler{
		queries: store.New(db),
		logger:  logger,
	}
}

// Submit handles POST /api/clicks/telemetry. The raw machine indicators are
// scored server side; the client never decides its own verdict.
func (h *TelemetryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var payload telemetry.Payload

	body := http.MaxBytesReader(w, r.Body, maxTelemetryBody)
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if err := payload.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The click event must exist; telemetry for unknown identifiers is
	// dropped without revealing whether the identifier was ever valid.
	event, err := h.queries.GetClickEvent(r.Context(), payload.ClickID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	// The verdict combines the page's raw indicators with the user agent
	// the click was recorded under.
	isVM := telemetry.IsLikelyVM(payload.Client.VM, event.UserAgent)

	err = h.queries.UpdateClickTelemetry(r.Context(), store.UpdateClickTelemetryParams{
		ID:              payload.ClickID,
		Timezone:        util.NullStringFromValue(payload.Client.Timezone),
		Language:        util.NullStringFromValue(payload.Client.Language),
		Screen:          util.NullStringFromValue(payload.Client.Screen),
		ConnectionType:  util.NullStringFromValue(payload.Client.ConnectionType),
		LocalIP:         util.NullStringFromValue(payload.Client.LocalIP),
		BatteryLevel:    util.NullFloat64FromPtr(payload.Client.BatteryLevel),
		BatteryCharging: util.NullBoolFromPtr(payload.Client.BatteryCharging),
		IsVM:            sql.NullBool{Bool: isVM, Valid: true},
		IsIncognito:     util.NullBoolFromPtr(payload.Client.Incognito),
		TelemetryAt:     time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("failed to store telemetry", "error", err, "click_id", payload.ClickID, "category", store.EventCategoryTracking)
		writeJSONError(w, http.StatusInternalServerError, "failed to store telemetry")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
