package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the CLASSLINK_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Call it BEFORE CLI flag
// parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("CLASSLINK_BIND"); v != "" {
		cfg.BindAddress = v
	}
	if v := envInt("CLASSLINK_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := os.Getenv("CLASSLINK_ROSTER"); v != "" {
		cfg.Roster = ParseRoster(v)
	}
	if v := os.Getenv("CLASSLINK_ROSTER_FILE"); v != "" {
		cfg.RosterFile = v
	}
	if envBool("CLASSLINK_WATCH_ROSTER") {
		cfg.WatchRoster = true
	}
	if v := envInt("CLASSLINK_HANDSHAKE_TIMEOUT"); v > 0 {
		cfg.HandshakeTimeout = secondsDuration(v)
	}
	if v := envInt("CLASSLINK_WRITE_TIMEOUT"); v > 0 {
		cfg.WriteTimeout = secondsDuration(v)
	}
	if v := envInt("CLASSLINK_MAX_FRAME"); v > 0 {
		cfg.MaxFrameBytes = v
	}
	if v := envInt("CLASSLINK_BIND_RETRIES"); v > 0 {
		cfg.BindRetries = v
	}
	if envBool("CLASSLINK_HEADLESS") {
		cfg.Headless = true
	}

	// Student client
	if v := os.Getenv("CLASSLINK_ID"); v != "" {
		cfg.Identifier = v
	}
	if v := os.Getenv("CLASSLINK_SERVER"); v != "" {
		cfg.ServerAddr = v
	}
	if v := envInt("CLASSLINK_DIAL_RETRIES"); v > 0 {
		cfg.DialRetries = v
	}

	// Output
	if v := envInt("CLASSLINK_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
