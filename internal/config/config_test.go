// ABOUTME: Tests for yaml config loading and validation
// ABOUTME: Covers defaults, overrides and rejection of bad values
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  file_path: /tmp/test.wav\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.BindAddress != "0.0.0.0" {
		t.Errorf("expected default bind address, got %q", cfg.Server.BindAddress)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.FilePath != "/tmp/test.wav" {
		t.Errorf("expected file_path from file, got %q", cfg.Server.FilePath)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  bind_address: 127.0.0.1
  port: 9000
  file_path: /music/song.flac
discovery:
  enabled: true
  name: living-room
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.BindAddress != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if !cfg.Discovery.Enabled || cfg.Discovery.Name != "living-room" {
		t.Errorf("unexpected discovery config: %+v", cfg.Discovery)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"port too large", "server:\n  port: 70000\n  file_path: /tmp/a.wav\n"},
		{"port zero", "server:\n  port: 0\n  file_path: /tmp/a.wav\n"},
		{"discovery without name", "server:\n  file_path: /tmp/a.wav\ndiscovery:\n  enabled: true\n  name: \"\"\n"},
		{"not yaml", "{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadAllowsFilePathFromFlags(t *testing.T) {
	// A config file may omit file_path when the -file flag supplies it
	// later; Load must not reject the partial config.
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.FilePath != "" {
		t.Errorf("expected empty file path, got %q", cfg.Server.FilePath)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
