package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flowpanel.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	// Point XDG at an empty dir so no real user config leaks in.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.Debounce() != 200*time.Millisecond {
		t.Errorf("Debounce = %v, want 200ms", cfg.Debounce())
	}
	if cfg.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want 64", cfg.QueueSize)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
addr = ":9000"
debounce_ms = 50
queue_size = 16
graph = "board.json"
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Addr)
	}
	if cfg.Debounce() != 50*time.Millisecond {
		t.Errorf("Debounce = %v, want 50ms", cfg.Debounce())
	}
	if cfg.QueueSize != 16 {
		t.Errorf("QueueSize = %d, want 16", cfg.QueueSize)
	}
	if cfg.Graph != "board.json" {
		t.Errorf("Graph = %q, want board.json", cfg.Graph)
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `addr = ":7000"`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("Addr = %q, want :7000", cfg.Addr)
	}
	if cfg.DebounceMs != 200 {
		t.Errorf("DebounceMs = %d, want default 200", cfg.DebounceMs)
	}
}

func TestLoadConfigExplicitMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("missing explicit config file should error")
	}
}

func TestLoadConfigXDGLocation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "flowpanel"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "flowpanel", "flowpanel.toml"), []byte(`addr = ":6000"`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":6000" {
		t.Errorf("Addr = %q, want :6000", cfg.Addr)
	}
}

func TestLoadConfigRejectsNegatives(t *testing.T) {
	path := writeConfig(t, `debounce_ms = -5`)
	if _, err := loadConfig(path); err == nil {
		t.Fatal("negative debounce_ms should error")
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := writeConfig(t, `addr = [`)
	if _, err := loadConfig(path); err == nil {
		t.Fatal("malformed TOML should error")
	}
}
