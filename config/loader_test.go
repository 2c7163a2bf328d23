package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Bind(t *testing.T) {
	t.Setenv("CLASSLINK_BIND", "192.168.49.1")
	t.Setenv("CLASSLINK_PORT", "9000")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.BindAddress != "192.168.49.1" {
		t.Errorf("BindAddress = %q", cfg.BindAddress)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
}

func TestLoadFromEnv_Roster(t *testing.T) {
	t.Setenv("CLASSLINK_ROSTER", "a, b,c")
	t.Setenv("CLASSLINK_ROSTER_FILE", "/tmp/roster.txt")
	t.Setenv("CLASSLINK_WATCH_ROSTER", "yes")
	cfg := Default()
	LoadFromEnv(cfg)
	if len(cfg.Roster) != 3 || cfg.Roster[1] != "b" {
		t.Errorf("Roster = %v", cfg.Roster)
	}
	if cfg.RosterFile != "/tmp/roster.txt" {
		t.Errorf("RosterFile = %q", cfg.RosterFile)
	}
	if !cfg.WatchRoster {
		t.Error("WatchRoster should be true")
	}
}

func TestLoadFromEnv_Timeouts(t *testing.T) {
	t.Setenv("CLASSLINK_HANDSHAKE_TIMEOUT", "5")
	t.Setenv("CLASSLINK_WRITE_TIMEOUT", "2")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.HandshakeTimeout != 5*time.Second {
		t.Errorf("HandshakeTimeout = %v", cfg.HandshakeTimeout)
	}
	if cfg.WriteTimeout != 2*time.Second {
		t.Errorf("WriteTimeout = %v", cfg.WriteTimeout)
	}
}

func TestLoadFromEnv_Join(t *testing.T) {
	t.Setenv("CLASSLINK_ID", "816117992")
	t.Setenv("CLASSLINK_SERVER", "192.168.49.1:8888")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Identifier != "816117992" || cfg.ServerAddr != "192.168.49.1:8888" {
		t.Errorf("got id=%q server=%q", cfg.Identifier, cfg.ServerAddr)
	}
}

func TestLoadFromEnv_InvalidIgnored(t *testing.T) {
	t.Setenv("CLASSLINK_PORT", "not-a-number")
	t.Setenv("CLASSLINK_BIND_RETRIES", "-3")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want default", cfg.Port)
	}
	if cfg.BindRetries != DefaultBindRetries {
		t.Errorf("BindRetries = %d, want default", cfg.BindRetries)
	}
}

func TestEnvBool(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "TRUE", "Yes"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("CLASSLINK_TEST_BOOL", v)
			if !envBool("CLASSLINK_TEST_BOOL") {
				t.Errorf("envBool(%q) = false", v)
			}
		})
	}
	t.Setenv("CLASSLINK_TEST_BOOL", "no")
	if envBool("CLASSLINK_TEST_BOOL") {
		t.Error("envBool(no) = true")
	}
}
