package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "environment: test\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.Backend != "file" {
		t.Fatalf("expected file backend, got %s", cfg.Cache.Backend)
	}
	if cfg.Cache.RuntimeTTL != 300*time.Second {
		t.Fatalf("expected 300s runtime ttl, got %v", cfg.Cache.RuntimeTTL)
	}
	if len(cfg.Analysis.ReferenceSymbols) != 2 || cfg.Analysis.ReferenceSymbols[0] != "BTC" {
		t.Fatalf("expected default references BTC/ETH, got %v", cfg.Analysis.ReferenceSymbols)
	}
	if cfg.Analysis.ChunkDays != 7 || cfg.Analysis.FetchLimit != 2000 {
		t.Fatalf("unexpected analysis defaults: %+v", cfg.Analysis)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: test\ncache:\n  backend: s3\n"))
	if err == nil {
		t.Fatalf("expected error for unknown cache backend")
	}
}

func TestLoadRequiresClickHouseHost(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: test\ncache:\n  backend: clickhouse\n"))
	if err == nil {
		t.Fatalf("expected error for clickhouse backend without host")
	}
}

func TestLoadRejectsWrongReferenceCount(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: test\nanalysis:\n  reference_symbols: [BTC]\n"))
	if err == nil {
		t.Fatalf("expected error for a single reference symbol")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REFERENCE_SYMBOLS", "SOL,ETH")

	cfg, err := LoadWithEnv(writeConfig(t, "environment: test\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cache.Backend != "redis" {
		t.Fatalf("expected env override for backend, got %s", cfg.Cache.Backend)
	}
	if cfg.Analysis.ReferenceSymbols[0] != "SOL" {
		t.Fatalf("expected env override for references, got %v", cfg.Analysis.ReferenceSymbols)
	}
}
