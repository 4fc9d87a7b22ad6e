// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ipintel

import (
	"net/http"
	"strings"
)

// VPNIndicatorThreshold is the number of independent indicators required to
// flag a request as coming through a VPN or proxy. A single indicator is
// enough: either a proxy-revealing header or a hosting-provider organization.
const VPNIndicatorThreshold = 1

// proxyHeaders are request headers that forward or anonymizing proxies
// commonly inject.
var proxyHeaders = []string{
	"Via",
	"Forwarded",
	"Proxy-Connection",
	"X-Proxy-Id",
	"X-Bluecoat-Via",
}

// hostingKeywords match organization/ISP names of hosting and VPN providers.
// An IP registered to one of these is almost never a residential connection.
var hostingKeywords = []string{
	"vpn",
	"proxy",
	"hosting",
	"datacenter",
	"data center",
	"server",
	"cloud",
	"digitalocean",
	"amazon",
	"aws",
	"google llc",
	"microsoft azure",
	"ovh",
	"hetzner",
	"linode",
	"vultr",
	"leaseweb",
	"m247",
	"contabo",
	"mullvad",
	"nordvpn",
	"expressvpn",
	"proton",
}

// VPNScore counts independent VPN/proxy indicators for a request:
// one for any proxy-revealing header, one for a hosting-provider
// organization name. The score is compared against VPNIndicatorThreshold
// so the policy stays testable apart from signal availability.
func VPNScore(headers http.Header, org string) int {
	score := 0

	for _, h := range proxyHeaders {
		if headers.Get(h) != "" {
			score++
			break
		}
	}

	if org != "" {
		lower := strings.ToLower(org)
		for _, kw := range hostingKeywords {
			if strings.Contains(lower, kw) {
				score++
				break
			}
		}
	}

	return score
}

// IsLikelyVPN reports whether the indicator score reaches the threshold.
func IsLikelyVPN(headers http.Header, org string) bool {
	return VPNScore(headers, org) >= VPNIndicatorThreshold
}
