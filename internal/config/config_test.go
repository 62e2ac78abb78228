package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  port: 9090
  host: "0.0.0.0"
processes:
  python: python3
  settle_wait: 2s
discovery:
  timeout: 3s
runtime_dir: /var/run/milab
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Processes.Python != "python3" {
		t.Errorf("Processes.Python = %q, want %q", cfg.Processes.Python, "python3")
	}
	if cfg.Processes.SettleWait != 2*time.Second {
		t.Errorf("Processes.SettleWait = %v, want 2s", cfg.Processes.SettleWait)
	}
	if cfg.Discovery.Timeout != 3*time.Second {
		t.Errorf("Discovery.Timeout = %v, want 3s", cfg.Discovery.Timeout)
	}
	if cfg.RuntimeDir != "/var/run/milab" {
		t.Errorf("RuntimeDir = %q, want %q", cfg.RuntimeDir, "/var/run/milab")
	}

	// Defaults should still be applied for unspecified fields.
	if cfg.Processes.StimulusScript == "" {
		t.Error("Processes.StimulusScript should have default, got empty")
	}
	if cfg.Discovery.Script == "" {
		t.Error("Discovery.Script should have default, got empty")
	}
	if cfg.Broadcast.SnapshotInterval == 0 {
		t.Error("Broadcast.SnapshotInterval should have default, got 0")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load() on missing file should fall back to defaults, got error: %v", err)
	}

	def := Default()
	if cfg.Server.Port != def.Server.Port {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, def.Server.Port)
	}
	if cfg.Processes.SettleWait != def.Processes.SettleWait {
		t.Errorf("Processes.SettleWait = %v, want default %v", cfg.Processes.SettleWait, def.Processes.SettleWait)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte(":::not valid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Processes.SettleWait != 1500*time.Millisecond {
		t.Errorf("Processes.SettleWait = %v, want 1.5s", cfg.Processes.SettleWait)
	}
	if cfg.Processes.StderrTailBytes != 2048 {
		t.Errorf("Processes.StderrTailBytes = %d, want 2048", cfg.Processes.StderrTailBytes)
	}
	if cfg.Discovery.Timeout != 5*time.Second {
		t.Errorf("Discovery.Timeout = %v, want 5s", cfg.Discovery.Timeout)
	}
	if cfg.RuntimeDir != "tmp" {
		t.Errorf("RuntimeDir = %q, want %q", cfg.RuntimeDir, "tmp")
	}
}
