// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package telemetry

import (
	"strings"
)

// VMIndicatorThreshold is the number of independent indicators required to
// classify a visitor as running inside a virtual machine. Single signals
// fire on real hardware too often to act on alone.
const VMIndicatorThreshold = 2

// vmScreenResolutions are default framebuffer sizes of common hypervisor
// display adapters.
var vmScreenResolutions = []string{
	"1024x768",
	"800x600",
	"1280x800",
	"1152x864",
}

// vmGraphicsKeywords match WebGL vendor/renderer strings exposed by
// virtualized graphics stacks.
var vmGraphicsKeywords = []string{
	"vmware",
	"virtualbox",
	"vbox",
	"llvmpipe",
	"swiftshader",
	"mesa offscreen",
	"parallels",
	"qemu",
	"virgl",
	"microsoft basic render",
}

// vmUserAgentKeywords match user-agent substrings of headless and automated
// browsers, which almost always run virtualized.
var vmUserAgentKeywords = []string{
	"headlesschrome",
	"phantomjs",
	"slimerjs",
	"selenium",
	"puppeteer",
	"playwright",
}

// VMScore counts independent virtual-machine indicators across the collected
// signals and the user agent the click was recorded with.
func VMScore(ind VMIndicators, userAgent string) int {
	score := 0

	if ind.HardwareConcurrency > 0 && ind.HardwareConcurrency <= 2 {
		score++
	}

	for _, res := range vmScreenResolutions {
		if ind.ScreenResolution == res {
			score++
			break
		}
	}

	graphics := strings.ToLower(ind.WebGLVendor + " " + ind.WebGLRenderer)
	for _, kw := range vmGraphicsKeywords {
		if strings.Contains(graphics, kw) {
			score++
			break
		}
	}

	if ind.TimezoneUTC {
		score++
	}

	ua := strings.ToLower(userAgent)
	for _, kw := range vmUserAgentKeywords {
		if strings.Contains(ua, kw) {
			score++
			break
		}
	}

	return score
}

// IsLikelyVM reports whether the indicator score reaches the threshold.
func IsLikelyVM(ind VMIndicators, userAgent string) bool {
	return VMScore(ind, userAgent) >= VMIndicatorThreshold
}
