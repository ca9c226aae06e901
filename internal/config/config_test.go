package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("STORE_DRIVER")
	os.Unsetenv("SESSION_SECRET")
	os.Setenv("ENV", "development")
	defer os.Unsetenv("ENV")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.StoreDriver != "file" {
		t.Errorf("expected default store driver file, got %s", cfg.StoreDriver)
	}
	if cfg.BlobDriver != "inline" {
		t.Errorf("expected default blob driver inline, got %s", cfg.BlobDriver)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("expected default session ttl 12h, got %s", cfg.SessionTTL)
	}
	if cfg.SessionSecret == "" {
		t.Error("expected development session secret to be filled in")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("STORE_DRIVER", "SQLite")
	os.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	defer os.Unsetenv("STORE_DRIVER")
	defer os.Unsetenv("CORS_ORIGINS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StoreDriver != "sqlite" {
		t.Errorf("expected sqlite, got %s", cfg.StoreDriver)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("expected two trimmed origins, got %v", cfg.CORSOrigins)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Env:           "production",
			StoreDriver:   "file",
			BlobDriver:    "inline",
			SessionSecret: "s3cret",
			SessionTTL:    time.Hour,
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := base()
	c.StoreDriver = "postgres"
	if err := c.Validate(); err == nil {
		t.Error("expected error for postgres without DATABASE_URL")
	}

	c = base()
	c.StoreDriver = "redis"
	if err := c.Validate(); err == nil {
		t.Error("expected error for unknown store driver")
	}

	c = base()
	c.BlobDriver = "s3"
	if err := c.Validate(); err == nil {
		t.Error("expected error for s3 without bucket")
	}

	c = base()
	c.SessionSecret = ""
	if err := c.Validate(); err == nil {
		t.Error("expected error for missing session secret")
	}

	c = base()
	c.SessionSecret = devSessionSecret
	if err := c.Validate(); err == nil {
		t.Error("expected error for development secret in production")
	}
}

func TestConfig_SQLitePath(t *testing.T) {
	c := &Config{StorePath: "./data"}
	if got := c.SQLitePath(); got != "./data/dental.db" {
		t.Errorf("expected ./data/dental.db, got %s", got)
	}
	c.StorePath = "/var/lib/dental/state.db"
	if got := c.SQLitePath(); got != "/var/lib/dental/state.db" {
		t.Errorf("expected explicit file path, got %s", got)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}
