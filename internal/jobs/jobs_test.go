// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package jobs

import (
	"testing"

	"github.com/olegiv/shortly-go/internal/geoip"
	"github.com/olegiv/shortly-go/internal/testutil"
)

func TestSchedulerStartStop(t *testing.T) {
	db := testutil.TestMemoryDB(t)

	s := NewScheduler(db, testutil.TestLogger())
	s.Start(Config{
		RetentionDays: 30,
		Geo:           geoip.NewLookup(),
	})
	s.Stop()
}

func TestPurgeClicksDirect(t *testing.T) {
	db := testutil.TestMemoryDB(t)

	s := NewScheduler(db, testutil.TestLogger())

	// No rows is a clean no-op.
	s.purgeClicks(30)
}
