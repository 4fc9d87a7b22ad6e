// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
)

// NullStringFromValue creates a sql.NullString from a string value.
// Returns a valid NullString if the string is non-empty, otherwise returns an invalid one.
func NullStringFromValue(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullBoolFromPtr converts a pointer to bool into sql.NullBool.
func NullBoolFromPtr(ptr *bool) sql.NullBool {
	if ptr != nil {
		return sql.NullBool{Bool: *ptr, Valid: true}
	}
	return sql.NullBool{}
}

// NullBoolFromValue creates a valid sql.NullBool from a bool value.
func NullBoolFromValue(b bool) sql.NullBool {
	return sql.NullBool{Bool: b, Valid: true}
}

// NullFloat64FromPtr converts a pointer to float64 into sql.NullFloat64.
func NullFloat64FromPtr(ptr *float64) sql.NullFloat64 {
	if ptr != nil {
		return sql.NullFloat64{Float64: *ptr, Valid: true}
	}
	return sql.NullFloat64{}
}
