package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath != "pawtrack.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.ReminderLead != 30*time.Minute || cfg.MissedGrace != 2*time.Hour {
		t.Errorf("reminder lead = %v, grace = %v", cfg.ReminderLead, cfg.MissedGrace)
	}
	if cfg.SessionTTL != 720*time.Hour {
		t.Errorf("session ttl = %v", cfg.SessionTTL)
	}
	if cfg.PersistQueueSize != 256 {
		t.Errorf("queue size = %d", cfg.PersistQueueSize)
	}
	if cfg.PushEnabled() {
		t.Error("push should be disabled without keys")
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("addr = %q", cfg.Addr())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PAWTRACK_PORT", "9090")
	t.Setenv("PAWTRACK_REMINDER_LEAD", "15m")
	t.Setenv("PAWTRACK_VAPID_PUBLIC_KEY", "pub")
	t.Setenv("PAWTRACK_VAPID_PRIVATE_KEY", "priv")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Port)
	}
	if cfg.ReminderLead != 15*time.Minute {
		t.Errorf("lead = %v, want 15m", cfg.ReminderLead)
	}
	if !cfg.PushEnabled() {
		t.Error("push should be enabled")
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("PAWTRACK_PORT", "not-an-int")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadDotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PAWTRACK_DB_PATH=/tmp/from-file.db\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("PAWTRACK_DB_PATH") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/from-file.db" {
		t.Errorf("db path = %q, want /tmp/from-file.db", cfg.DBPath)
	}
}

func TestLoadMissingDotenvIgnored(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	bad := cfg
	bad.VAPIDPublicKey = "only-public"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for half-configured VAPID keys")
	}

	bad = cfg
	bad.PersistQueueSize = 0
	bad.Port = 70000
	err = bad.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "port") || !strings.Contains(err.Error(), "queue") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}
