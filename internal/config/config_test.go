package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"FAIRSHARE_PORT", "FAIRSHARE_DB_PATH", "FAIRSHARE_TIMEZONE",
		"FAIRSHARE_JOB_INTERVAL", "FAIRSHARE_REMINDER_INTERVAL", "FAIRSHARE_REDIS_DB",
		"FAIRSHARE_VAPID_PUBLIC_KEY", "FAIRSHARE_VAPID_PRIVATE_KEY",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.DBPath != "fairshare.db" {
		t.Errorf("db path = %q, want fairshare.db", cfg.DBPath)
	}
	if cfg.JobInterval != 24*time.Hour {
		t.Errorf("job interval = %s, want 24h", cfg.JobInterval)
	}
	if cfg.ReminderInterval != time.Minute {
		t.Errorf("reminder interval = %s, want 1m", cfg.ReminderInterval)
	}
	if cfg.PushEnabled() {
		t.Error("push should be disabled without VAPID keys")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FAIRSHARE_PORT", "9090")
	t.Setenv("FAIRSHARE_TIMEZONE", "Europe/Madrid")
	t.Setenv("FAIRSHARE_JOB_INTERVAL", "6h")
	t.Setenv("FAIRSHARE_REDIS_ADDR", "localhost:6379")
	t.Setenv("FAIRSHARE_REDIS_DB", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || cfg.JobInterval != 6*time.Hour || cfg.RedisDB != 2 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc.String() != "Europe/Madrid" {
		t.Errorf("location = %s, want Europe/Madrid", loc)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"FAIRSHARE_JOB_INTERVAL": "daily",
		"FAIRSHARE_REDIS_DB":     "zero",
		"FAIRSHARE_TIMEZONE":     "Mars/Olympus",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", key, val)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	base := Config{DBPath: "x.db", Timezone: "UTC", JobInterval: time.Hour, ReminderInterval: time.Minute}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	halfPush := base
	halfPush.VAPIDPublicKey = "pub"
	if err := halfPush.Validate(); err == nil {
		t.Error("expected error for VAPID public key without private key")
	}

	zero := base
	zero.ReminderInterval = 0
	if err := zero.Validate(); err == nil {
		t.Error("expected error for zero reminder interval")
	}
}
