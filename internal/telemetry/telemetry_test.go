// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package telemetry

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateRequiresClickID(t *testing.T) {
	p := Payload{Client: ClientData{Timezone: "Europe/Berlin"}}
	if err := p.Validate(); !errors.Is(err, ErrMissingClickID) {
		t.Errorf("expected ErrMissingClickID, got %v", err)
	}

	p = Payload{ClickID: "   "}
	if err := p.Validate(); !errors.Is(err, ErrMissingClickID) {
		t.Errorf("whitespace click id must be rejected, got %v", err)
	}
}

func TestValidateClampsFields(t *testing.T) {
	p := Payload{
		ClickID: "abc",
		Client: ClientData{
			Timezone: " Europe/Berlin ",
			Language: strings.Repeat("x", 500),
		},
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.Client.Timezone != "Europe/Berlin" {
		t.Errorf("Timezone = %q, want trimmed", p.Client.Timezone)
	}
	if len(p.Client.Language) != 255 {
		t.Errorf("Language length = %d, want 255", len(p.Client.Language))
	}
}

func TestVMScore(t *testing.T) {
	tests := []struct {
		name      string
		ind       VMIndicators
		userAgent string
		want      int
	}{
		{
			name: "real hardware",
			ind: VMIndicators{
				HardwareConcurrency: 8,
				ScreenResolution:    "2560x1440",
				WebGLVendor:         "NVIDIA Corporation",
				WebGLRenderer:       "NVIDIA GeForce RTX 3070",
			},
			userAgent: "Mozilla/5.0 (X11; Linux x86_64) Firefox/115.0",
			want:      0,
		},
		{
			name: "low cores only",
			ind: VMIndicators{
				HardwareConcurrency: 2,
				ScreenResolution:    "1920x1080",
			},
			want: 1,
		},
		{
			name: "virtualbox graphics and vm resolution",
			ind: VMIndicators{
				HardwareConcurrency: 4,
				ScreenResolution:    "1024x768",
				WebGLRenderer:       "VirtualBox Graphics Adapter",
			},
			want: 2,
		},
		{
			name: "all indicators",
			ind: VMIndicators{
				HardwareConcurrency: 1,
				ScreenResolution:    "800x600",
				WebGLVendor:         "VMware, Inc.",
				TimezoneUTC:         true,
			},
			userAgent: "Mozilla/5.0 HeadlessChrome/120.0",
			want:      5,
		},
		{
			name: "swiftshader renderer",
			ind: VMIndicators{
				HardwareConcurrency: 8,
				WebGLRenderer:       "Google SwiftShader",
			},
			want: 1,
		},
		{
			name:      "headless user agent only",
			ind:       VMIndicators{HardwareConcurrency: 8},
			userAgent: "Mozilla/5.0 (X11; Linux x86_64) HeadlessChrome/120.0",
			want:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VMScore(tt.ind, tt.userAgent); got != tt.want {
				t.Errorf("VMScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsLikelyVM(t *testing.T) {
	single := VMIndicators{HardwareConcurrency: 2}
	if IsLikelyVM(single, "") {
		t.Error("one indicator must not classify as a VM")
	}

	double := VMIndicators{HardwareConcurrency: 2, TimezoneUTC: true}
	if !IsLikelyVM(double, "") {
		t.Error("two indicators must classify as a VM")
	}

	headless := VMIndicators{HardwareConcurrency: 2}
	if !IsLikelyVM(headless, "HeadlessChrome/120.0") {
		t.Error("headless user agent plus low cores must classify as a VM")
	}
}
