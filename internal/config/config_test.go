package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 15*time.Second {
		t.Fatalf("expected default timeout 15s, got %s", cfg.Server.RequestTimeout)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "custodycore.db" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != "fs" {
		t.Fatalf("expected fs blob driver, got %s", cfg.Blob.Driver)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CUSTODYCORE_PORT", "9999")
	t.Setenv("CUSTODYCORE_STORAGE_DRIVER", "memory")
	t.Setenv("CUSTODYCORE_YARD_CAPACITY", "120")
	t.Setenv("CUSTODYCORE_REQUEST_TIMEOUT", "2s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "9999" || cfg.Storage.Driver != "memory" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Yard.MaxCapacity != 120 {
		t.Fatalf("expected capacity 120, got %d", cfg.Yard.MaxCapacity)
	}
	if cfg.Server.RequestTimeout != 2*time.Second {
		t.Fatalf("expected timeout 2s, got %s", cfg.Server.RequestTimeout)
	}
}

func TestValidateFailures(t *testing.T) {
	t.Setenv("CUSTODYCORE_STORAGE_DRIVER", "postgres")
	t.Setenv("CUSTODYCORE_POSTGRES_DSN", "")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "CUSTODYCORE_POSTGRES_DSN") {
		t.Fatalf("expected DSN requirement for postgres driver, got %v", err)
	}

	t.Setenv("CUSTODYCORE_STORAGE_DRIVER", "oracle")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "unknown storage driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}

	t.Setenv("CUSTODYCORE_STORAGE_DRIVER", "memory")
	t.Setenv("CUSTODYCORE_YARD_CAPACITY", "-5")
	if _, err := Load(""); err == nil {
		t.Fatal("expected rejection of negative capacity")
	}
}
