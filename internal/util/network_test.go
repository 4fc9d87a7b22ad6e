// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsPrivateAddr(t *testing.T) {
	private := []string{"127.0.0.1", "10.0.0.1", "172.16.0.1", "192.168.1.1", "::1", "fd00::1", "169.254.1.1"}
	for _, ip := range private {
		if !IsPrivateAddr(ip) {
			t.Errorf("IsPrivateAddr(%q) = false, want true", ip)
		}
	}

	public := []string{"203.0.113.10", "8.8.8.8", "2001:db8::1"}
	for _, ip := range public {
		if IsPrivateAddr(ip) {
			t.Errorf("IsPrivateAddr(%q) = true, want false", ip)
		}
	}

	// Unparsable addresses fail closed.
	if !IsPrivateAddr("not-an-ip") {
		t.Error("invalid address must be treated as private")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "203.0.113.10:54321",
			want:       "203.0.113.10",
		},
		{
			name:       "x-real-ip wins",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.10"},
			want:       "203.0.113.10",
		},
		{
			name:       "x-forwarded-for first entry",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.10, 70.41.3.18"},
			want:       "203.0.113.10",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
