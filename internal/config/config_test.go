package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLines != 1000 || cfg.ScriptsDir != "scripts" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_PartialFileRepairsZeroFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netsentinel.json")
	data, _ := json.Marshal(map[string]any{"logs_dir": "/var/log/netsentinel"})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogsDir != "/var/log/netsentinel" {
		t.Fatalf("LogsDir = %q", cfg.LogsDir)
	}
	if cfg.LogLines != 1000 {
		t.Fatalf("LogLines should fall back to default, got %d", cfg.LogLines)
	}
	if cfg.DefaultTimeoutMs != 5000 {
		t.Fatalf("DefaultTimeoutMs should fall back to default, got %d", cfg.DefaultTimeoutMs)
	}
}

func TestDefaultTimeout(t *testing.T) {
	cfg := Default()
	if got := cfg.DefaultTimeout().Milliseconds(); got != 5000 {
		t.Fatalf("DefaultTimeout = %dms, want 5000", got)
	}
}

func TestLoad_TooLowTimeoutRaisedToDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netsentinel.json")
	data, _ := json.Marshal(map[string]any{"default_timeout_ms": 1})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultTimeoutMs != 5000 {
		t.Fatalf("DefaultTimeoutMs = %d, want the floor to raise 1ms to the 5000ms default", cfg.DefaultTimeoutMs)
	}
}
