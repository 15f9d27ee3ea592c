package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TELEGRAM_TOKEN", "DATABASE_URL", "REPORT_INTERVAL_HOURS", "REPORT_TIME", "HTTP_ADDR", "TIMEZONE", "API_URL", "OWNER_ID"} {
		t.Setenv(key, "")
	}
	t.Setenv("DAILYPLANNER_CONFIG_PATH", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "daily_planner.db" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
	if cfg.ReportInterval != 5*time.Hour {
		t.Fatalf("unexpected interval %v", cfg.ReportInterval)
	}
	if cfg.HTTPAddr != ":8080" || cfg.BotEnabled() || cfg.OwnerID != 0 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", " token ")
	t.Setenv("REPORT_INTERVAL_HOURS", "3")
	t.Setenv("REPORT_TIME", "09:30")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("OWNER_ID", "7")

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TelegramToken != "token" || !cfg.BotEnabled() {
		t.Fatalf("unexpected token %q", cfg.TelegramToken)
	}
	if cfg.ReportInterval != 3*time.Hour || cfg.ReportTime != "09:30" {
		t.Fatalf("unexpected schedule %v %q", cfg.ReportInterval, cfg.ReportTime)
	}
	if cfg.Location != time.UTC || cfg.OwnerID != 7 {
		t.Fatalf("unexpected location/owner %v %d", cfg.Location, cfg.OwnerID)
	}
}

func TestInvalidIntervalFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("REPORT_INTERVAL_HOURS", "-2")

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ReportInterval != 5*time.Hour {
		t.Fatalf("expected default interval, got %v", cfg.ReportInterval)
	}
}

func TestInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMEZONE", "Mars/Olympus")
	if _, err := Load(New()); err == nil {
		t.Fatalf("expected timezone error")
	}

	clearEnv(t)
	t.Setenv("OWNER_ID", "abc")
	if _, err := Load(New()); err == nil {
		t.Fatalf("expected owner error")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("DAILYPLANNER_CONFIG_PATH", dir)
	content := "database_url: planner-test.db\nhttp_addr: \":9090\"\n"
	if err := os.WriteFile(filepath.Join(dir, ".dailyplanner.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HTTP_ADDR", ":7070")

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "planner-test.db" {
		t.Fatalf("file value not used: %q", cfg.DatabaseURL)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("env must override the file, got %q", cfg.HTTPAddr)
	}
}
