package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: ashare
database:
  host: localhost
  port: 5432
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Index.BaseValue != 1000 {
		t.Errorf("default base value = %v, want 1000", cfg.Index.BaseValue)
	}
	if cfg.Index.MaxChainDays != 120 {
		t.Errorf("default max chain days = %d, want 120", cfg.Index.MaxChainDays)
	}
	if cfg.Screener.TurnoverWindow != 30 || cfg.Screener.BurstLookback != 126 {
		t.Errorf("unexpected screener defaults: %+v", cfg.Screener)
	}
	if cfg.Screener.SOEBonus != 1.2 || cfg.Screener.HighPriceBonus != 1.2 {
		t.Errorf("unexpected bonus defaults: %+v", cfg.Screener)
	}
	if cfg.Auth.Duration != 24*time.Hour {
		t.Errorf("default auth duration = %v, want 24h", cfg.Auth.Duration)
	}
	if cfg.Scheduler.Spec == "" {
		t.Error("scheduler spec default missing")
	}
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
index:
  base_value: 100
  history_days: 90
  max_chain_days: 30
screener:
  turnover_window: 10
  select_ratio: 0.5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Index.BaseValue != 100 || cfg.Index.HistoryDays != 90 || cfg.Index.MaxChainDays != 30 {
		t.Errorf("explicit index values overridden: %+v", cfg.Index)
	}
	if cfg.Screener.SelectRatio != 0.5 {
		t.Errorf("explicit select ratio overridden: %v", cfg.Screener.SelectRatio)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  host: filehost
  port: 5432
  password: filepass
`)

	t.Setenv("ASHARE_DB_HOST", "envhost")
	t.Setenv("ASHARE_DB_PORT", "15432")
	t.Setenv("ASHARE_AUTH_SECRET", "envsecret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Host != "envhost" {
		t.Errorf("env host override missing, got %q", cfg.Database.Host)
	}
	if cfg.Database.Port != 15432 {
		t.Errorf("env port override missing, got %d", cfg.Database.Port)
	}
	if cfg.Database.Password != "filepass" {
		t.Errorf("unrelated value changed: %q", cfg.Database.Password)
	}
	if cfg.Auth.SecretKey != "envsecret" {
		t.Errorf("env secret override missing")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing config file must be an error")
	}
}
