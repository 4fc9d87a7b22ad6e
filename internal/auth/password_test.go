// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("expected bcrypt hash, got %q", hash)
	}

	ok, err := CheckPassword("hunter2", hash)
	if err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if !ok {
		t.Error("expected correct password to verify")
	}
}

func TestCheckPasswordMismatch(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := CheckPassword("wrong", hash)
	if err != nil {
		t.Fatalf("mismatch should not be an error, got %v", err)
	}
	if ok {
		t.Error("expected wrong password to fail verification")
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	ok, err := CheckPassword("hunter2", "not-a-bcrypt-hash")
	if err == nil {
		t.Error("expected error for malformed hash")
	}
	if ok {
		t.Error("malformed hash must not verify")
	}
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	h1, err := HashPassword("same")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("same")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Error("expected different salts to produce different hashes")
	}
}
