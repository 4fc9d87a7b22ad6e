// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package telemetry handles the client-side beacon: the JSON payload posted
// by the staging page, its validation, and the scoring of raw virtual-machine
// indicators into a verdict.
package telemetry

import (
	"errors"
	"strings"
)

// ErrMissingClickID rejects a payload that cannot be tied to a click event.
var ErrMissingClickID = errors.New("telemetry payload missing click id")

// maxFieldLen caps free-form string fields before they reach the database.
const maxFieldLen = 255

// Payload is the beacon body posted from the staging page.
type Payload struct {
	ShortCode string     `json:"shortCode"`
	ClickID   string     `json:"clickId"`
	Client    ClientData `json:"clientData"`
}

// ClientData bundles the browser-only signals. Every field is optional;
// browsers deny or omit signals freely.
type ClientData struct {
	Timezone        string       `json:"timezone"`
	Language        string       `json:"language"`
	Screen          string       `json:"screen"`
	ConnectionType  string       `json:"connectionType"`
	LocalIP         string       `json:"localIp"`
	BatteryLevel    *float64     `json:"batteryLevel"`
	BatteryCharging *bool        `json:"batteryCharging"`
	Incognito       *bool        `json:"incognito"`
	VM              VMIndicators `json:"vm"`
}

// VMIndicators are the raw machine signals the page collects. The verdict
// is computed server side so the policy stays in one place.
type VMIndicators struct {
	HardwareConcurrency int    `json:"hardwareConcurrency"`
	ScreenResolution    string `json:"screenResolution"`
	WebGLVendor         string `json:"webglVendor"`
	WebGLRenderer       string `json:"webglRenderer"`
	TimezoneUTC         bool   `json:"timezoneUtc"`
}

// Validate normalizes a payload in place and reports whether it is usable.
func (p *Payload) Validate() error {
	p.ClickID = strings.TrimSpace(p.ClickID)
	if p.ClickID == "" {
		return ErrMissingClickID
	}

	p.ShortCode = clamp(p.ShortCode)
	p.Client.Timezone = clamp(p.Client.Timezone)
	p.Client.Language = clamp(p.Client.Language)
	p.Client.Screen = clamp(p.Client.Screen)
	p.Client.ConnectionType = clamp(p.Client.ConnectionType)
	p.Client.LocalIP = clamp(p.Client.LocalIP)

	return nil
}

func clamp(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxFieldLen {
		s = s[:maxFieldLen]
	}
	return s
}
