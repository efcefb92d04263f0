package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cfg.Cron.Tick != "@every 60s" {
		t.Fatalf("cron.tick=%q want @every 60s", cfg.Cron.Tick)
	}
	if cfg.Engine.Workers != 1 {
		t.Fatalf("engine.workers=%d want=1", cfg.Engine.Workers)
	}
	if cfg.Engine.PriceTimeout != 10*time.Second {
		t.Fatalf("engine.price_timeout=%s want=10s", cfg.Engine.PriceTimeout)
	}
	if cfg.Ledger.SeedAsset != "USDC" || cfg.Ledger.SeedBalance != 10000 {
		t.Fatalf("ledger=%+v want USDC/10000", cfg.Ledger)
	}
	if cfg.Cache.Driver != "memory" {
		t.Fatalf("cache.driver=%q want memory", cfg.Cache.Driver)
	}
}

func TestLoad_FileAndStrategyDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte(`
engine:
  workers: 4
strategy_defaults:
  grid:
    grid_count: 20
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if cfg.Engine.Workers != 4 {
		t.Fatalf("engine.workers=%d want=4", cfg.Engine.Workers)
	}
	grid, ok := cfg.StrategyDefaults["grid"].(map[string]any)
	if !ok {
		t.Fatalf("strategy_defaults.grid=%T want map", cfg.StrategyDefaults["grid"])
	}
	if grid["grid_count"] != 20 {
		t.Fatalf("grid_count=%v want=20", grid["grid_count"])
	}
}
