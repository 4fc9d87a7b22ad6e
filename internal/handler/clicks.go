// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"time"

	"github.com/olegiv/shortly-go/internal/store"
)

// clickResponse is the JSON projection of a click event. Nullable columns
// become pointers so "unknown" and "false"/"empty" stay distinguishable.
type clickResponse struct {
	ID         string `json:"id"`
	IP         string `json:"ip"`
	UserAgent  string `json:"user_agent"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"device_type"`
	Authorized *bool  `json:"authorized"`

	Country *string `json:"country"`
	Region  *string `json:"region"`
	City    *string `json:"city"`
	ISP     *string `json:"isp"`
	IsVPN   *bool   `json:"is_vpn"`
	IsTor   *bool   `json:"is_tor"`

	IsVM            *bool    `json:"is_vm"`
	IsIncognito     *bool    `json:"is_incognito"`
	Timezone        *string  `json:"timezone"`
	Language        *string  `json:"language"`
	Screen          *string  `json:"screen"`
	BatteryLevel    *float64 `json:"battery_level"`
	BatteryCharging *bool    `json:"battery_charging"`
	ConnectionType  *string  `json:"connection_type"`
	LocalIP         *string  `json:"local_ip"`

	CreatedAt   time.Time  `json:"created_at"`
	EnrichedAt  *time.Time `json:"enriched_at"`
	TelemetryAt *time.Time `json:"telemetry_at"`
}

func toClickResponse(e store.ClickEvent) clickResponse {
	return clickResponse{
		ID:         e.ID,
		IP:         e.IP,
		UserAgent:  e.UserAgent,
		Browser:    e.Browser,
		OS:         e.OS,
		DeviceType: e.DeviceType,
		Authorized: nullBoolPtr(e.Authorized),

		Country: nullStringPtr(e.Country),
		Region:  nullStringPtr(e.Region),
		City:    nullStringPtr(e.City),
		ISP:     nullStringPtr(e.ISP),
		IsVPN:   nullBoolPtr(e.IsVPN),
		IsTor:   nullBoolPtr(e.IsTor),

		IsVM:            nullBoolPtr(e.IsVM),
		IsIncognito:     nullBoolPtr(e.IsIncognito),
		Timezone:        nullStringPtr(e.Timezone),
		Language:        nullStringPtr(e.Language),
		Screen:          nullStringPtr(e.Screen),
		BatteryLevel:    nullFloat64Ptr(e.BatteryLevel),
		BatteryCharging: nullBoolPtr(e.BatteryCharging),
		ConnectionType:  nullStringPtr(e.ConnectionType),
		LocalIP:         nullStringPtr(e.LocalIP),

		CreatedAt:   e.CreatedAt,
		EnrichedAt:  nullTimePtr(e.EnrichedAt),
		TelemetryAt: nullTimePtr(e.TelemetryAt),
	}
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullBoolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return &v.Bool
}

func nullFloat64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}
