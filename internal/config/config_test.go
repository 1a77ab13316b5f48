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
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Hub.URL != "http://localhost:8000" {
		t.Errorf("hub url = %q", cfg.Hub.URL)
	}
	if cfg.Defaults.Mode != "emergent" {
		t.Errorf("mode = %q", cfg.Defaults.Mode)
	}
	if cfg.SnapshotTimeout() != 10*time.Second {
		t.Errorf("snapshot timeout = %v", cfg.SnapshotTimeout())
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
hub:
  url: https://hub.example.com
  snapshot_timeout: 3s
defaults:
  provider: anthropic
  mode: direct
`)
	t.Setenv("MURMUR_HUB_URL", "https://other.example.com")
	t.Setenv("MURMUR_HUB_TOKEN", "tok")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Hub.URL != "https://other.example.com" {
		t.Errorf("env override lost: %q", cfg.Hub.URL)
	}
	if cfg.Hub.Token != "tok" {
		t.Errorf("token = %q", cfg.Hub.Token)
	}
	if cfg.Defaults.Provider != "anthropic" || cfg.Defaults.Mode != "direct" {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	if cfg.SnapshotTimeout() != 3*time.Second {
		t.Errorf("snapshot timeout = %v", cfg.SnapshotTimeout())
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	path := writeConfig(t, `
defaults:
  mode: chaotic
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected mode validation error")
	}
}

func TestValidateRejectsBadTimeout(t *testing.T) {
	path := writeConfig(t, `
hub:
  url: http://localhost:8000
  snapshot_timeout: soon
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected timeout validation error")
	}
}
