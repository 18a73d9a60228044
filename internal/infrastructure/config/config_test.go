package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "fiskal" {
		t.Errorf("default app name: got %q", cfg.App.Name)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("default port: got %d", cfg.HTTP.Port)
	}
	if cfg.Fiscal.Provider != "fina" {
		t.Errorf("default provider: got %q", cfg.Fiscal.Provider)
	}
	if cfg.Fiscal.Currency != "EUR" {
		t.Errorf("default currency: got %q", cfg.Fiscal.Currency)
	}
	if cfg.Fiscal.Timezone != "Europe/Zagreb" {
		t.Errorf("default timezone: got %q", cfg.Fiscal.Timezone)
	}
	if cfg.Cleanup.StaleAge != 30*time.Minute {
		t.Errorf("default stale age: got %s", cfg.Cleanup.StaleAge)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("PG_HOST", "db.internal")
	t.Setenv("PG_PORT", "5433")
	t.Setenv("FINA_REQUEST_TIMEOUT", "45s")
	t.Setenv("S3_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTP.Port != 9090 {
		t.Errorf("port: got %d", cfg.HTTP.Port)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("database: got %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Fiscal.RequestTimeout != 45*time.Second {
		t.Errorf("request timeout: got %s", cfg.Fiscal.RequestTimeout)
	}
	if cfg.Archive.Enabled {
		t.Error("archive should be disabled")
	}
}

func TestLoadRejectsInvalidTimezone(t *testing.T) {
	t.Setenv("FINA_TIMEZONE", "Mars/Olympus")

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestLoadRequiresBucketWithEndpoint(t *testing.T) {
	t.Setenv("S3_ENDPOINT_URL", "https://minio.internal")
	t.Setenv("S3_BUCKET_NAME", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when endpoint is set without bucket")
	}
}

func TestHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("PG_PORT", "not-a-number")
	t.Setenv("S3_ENABLED", "maybe")
	t.Setenv("WEBHOOK_TOLERANCE", "five minutes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("garbage int should fall back, got %d", cfg.Database.Port)
	}
	if !cfg.Archive.Enabled {
		t.Error("garbage bool should fall back to default true")
	}
	if cfg.Webhook.Tolerance != 5*time.Minute {
		t.Errorf("garbage duration should fall back, got %s", cfg.Webhook.Tolerance)
	}
}

func TestConnString(t *testing.T) {
	d := DatabaseSettings{
		Host: "localhost", Port: 5432, Database: "fiskal",
		User: "postgres", Password: "secret", SSLMode: "disable",
	}
	want := "host=localhost port=5432 dbname=fiskal user=postgres password=secret sslmode=disable"
	if got := d.ConnString(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAddress(t *testing.T) {
	if got := (HTTPSettings{Port: 8080}).Address(); got != ":8080" {
		t.Errorf("got %q", got)
	}
}
