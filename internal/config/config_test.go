package config

import (
	"testing"
	"time"
)

func TestNormalizeEnv(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"dev", "development"},
		{"Development", "development"},
		{"local", "development"},
		{"prod", "production"},
		{"PRODUCTION", "production"},
		{"stage", "staging"},
		{"testing", "test"},
		{"  qa  ", "qa"},
	}
	for _, tc := range cases {
		if got := normalizeEnv(tc.in); got != tc.want {
			t.Errorf("normalizeEnv(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_ENV", "Dev")
	t.Setenv("BOOKING_LOCK_TIMEOUT_MS", "250")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Errorf("expected normalized app env development, got %q", cfg.AppEnv)
	}
	if cfg.BookingLockTimeout != 250*time.Millisecond {
		t.Errorf("expected 250ms lock timeout, got %s", cfg.BookingLockTimeout)
	}
}

func TestLoadConfigRejectsBadLockTimeout(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("BOOKING_LOCK_TIMEOUT_MS", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BookingLockTimeout != 3*time.Second {
		t.Errorf("expected fallback 3s lock timeout, got %s", cfg.BookingLockTimeout)
	}
}
