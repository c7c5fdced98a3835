package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EventLogPath == "" || cfg.SnapshotDBDir == "" || cfg.MarketsPath == "" {
		t.Fatalf("expected defaults to be populated, got %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "event_log_path: /tmp/custom-events.ndjson\nsnapshot_db_dir: /tmp/custom-snapshots\nmarkets_path: /tmp/custom-markets.yaml\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EventLogPath != "/tmp/custom-events.ndjson" {
		t.Fatalf("event_log_path = %q, want override from file", cfg.EventLogPath)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("event_log_path: /tmp/from-file.ndjson\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("RISK_EVENT_LOG_PATH", "/tmp/from-env.ndjson")
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EventLogPath != "/tmp/from-env.ndjson" {
		t.Fatalf("event_log_path = %q, want env override to win", cfg.EventLogPath)
	}
}

func TestLoadMarketFixturesParsesAndTranslates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markets.yaml")
	contents := `
markets:
  - market_id: BTC-PERP
    initial_margin_fraction: "0.05"
    maintenance_margin_fraction: "0.03"
    initial_mark_price: "50000"
  - market_id: ETH-PERP
    initial_margin_fraction: "0.10"
    maintenance_margin_fraction: "0.05"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fixtures, err := LoadMarketFixtures(path)
	if err != nil {
		t.Fatalf("LoadMarketFixtures: %v", err)
	}
	if len(fixtures) != 2 {
		t.Fatalf("expected 2 fixtures, got %d", len(fixtures))
	}

	payload, err := fixtures[0].ToMarketInitPayload()
	if err != nil {
		t.Fatalf("ToMarketInitPayload: %v", err)
	}
	if payload.MarketId != "BTC-PERP" {
		t.Fatalf("market_id = %q, want BTC-PERP", payload.MarketId)
	}

	ethPayload, err := fixtures[1].ToMarketInitPayload()
	if err != nil {
		t.Fatalf("ToMarketInitPayload (no initial mark): %v", err)
	}
	if !ethPayload.InitialMarkPrice.IsZero() {
		t.Fatalf("expected zero default initial mark price, got %s", ethPayload.InitialMarkPrice)
	}
}

func TestLoadMarketFixturesRejectsBadDecimal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markets.yaml")
	contents := "markets:\n  - market_id: BTC-PERP\n    initial_margin_fraction: \"not-a-number\"\n    maintenance_margin_fraction: \"0.03\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fixtures, err := LoadMarketFixtures(path)
	if err != nil {
		t.Fatalf("LoadMarketFixtures: %v", err)
	}
	if _, err := fixtures[0].ToMarketInitPayload(); err == nil {
		t.Fatalf("expected an error translating a malformed decimal fixture")
	}
}
