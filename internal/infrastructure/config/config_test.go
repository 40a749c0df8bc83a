package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.StorageBackend != "mongo" || cfg.Mongo.Database != "outage_alerts" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.SessionTTL != 168*time.Hour || cfg.Notify.BaseBackoff != 2*time.Second {
		t.Errorf("unexpected durations: %+v %+v", cfg.Auth, cfg.Notify)
	}
	if cfg.Auth.JWTSecret == "" {
		t.Error("development should fall back to a dev secret")
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{"ENV": "production"}))
	if err == nil {
		t.Fatal("expected error without JWT_SECRET in production")
	}

	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENV":                   "production",
		"JWT_SECRET":            "s3cret",
		"STORAGE_BACKEND":       "Memory",
		"ALLOW_EMPLOYEE_SIGNUP": "true",
		"NOTIFY_WORKERS":        "3",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StorageBackend != "memory" || !cfg.Auth.AllowEmployeeSignup || cfg.Notify.Workers != 3 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{"STORAGE_BACKEND": "postgres"}))
	if err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := &Config{Notify: NotifyConfig{Timezone: "Not/AZone"}}
	if cfg.Location() != time.UTC {
		t.Error("expected UTC fallback")
	}
}
