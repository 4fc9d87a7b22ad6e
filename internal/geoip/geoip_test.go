// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import (
	"testing"
)

func TestLookupIPPrivateAddressesReturnLocal(t *testing.T) {
	g := NewLookup()

	for _, ip := range []string{"127.0.0.1", "192.168.1.5", "10.0.0.1", "::1"} {
		loc := g.LookupIP(ip)
		if loc.Country != LocalSentinel || loc.Region != LocalSentinel || loc.City != LocalSentinel {
			t.Errorf("LookupIP(%q) = %+v, want all %q", ip, loc, LocalSentinel)
		}
	}
}

func TestLookupIPWithoutDatabase(t *testing.T) {
	g := NewLookup()

	if g.IsEnabled() {
		t.Error("lookup without Init must be disabled")
	}

	loc := g.LookupIP("203.0.113.10")
	if !loc.IsZero() {
		t.Errorf("LookupIP without database = %+v, want zero", loc)
	}
}

func TestLookupIPInvalidAddress(t *testing.T) {
	g := NewLookup()

	loc := g.LookupIP("not-an-ip")
	if !loc.IsZero() {
		t.Errorf("LookupIP(invalid) = %+v, want zero", loc)
	}
}

func TestInitMissingFile(t *testing.T) {
	g := NewLookup()

	if err := g.Init("/nonexistent/GeoLite2-City.mmdb"); err == nil {
		t.Error("expected error for missing database file")
	}
	if g.IsEnabled() {
		t.Error("failed Init must leave the lookup disabled")
	}
}

func TestLocationIsZero(t *testing.T) {
	if !(Location{}).IsZero() {
		t.Error("empty location must be zero")
	}
	if (Location{Country: "DE"}).IsZero() {
		t.Error("location with a country must not be zero")
	}
}
