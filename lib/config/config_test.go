// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"crypto/tls"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8956 {
		t.Errorf("expected port=8956, got %d", cfg.Server.Port)
	}
	if cfg.Server.Identifier != "Server" {
		t.Errorf("expected identifier=Server, got %q", cfg.Server.Identifier)
	}
	if cfg.Server.MaxPasteDuration.Std() != 15*time.Second {
		t.Errorf("expected max_paste_duration=15s, got %s", cfg.Server.MaxPasteDuration)
	}
	if cfg.Client.Timeout.Std() != 10*time.Second {
		t.Errorf("expected client timeout=10s, got %s", cfg.Client.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_WithoutFileUsesDefault(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.WelcomeMessage != "Welcome to p2paste chat" {
		t.Errorf("expected default welcome message, got %q", cfg.Server.WelcomeMessage)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	path := writeConfig(t, "p2paste.yaml", `
server:
  port: 9000
  timeout: 30s
  max_paste_duration: 20
wire:
  codec: cbor
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port=9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.Timeout.Std() != 30*time.Second {
		t.Errorf("expected timeout=30s, got %s", cfg.Server.Timeout)
	}
	if cfg.Server.MaxPasteDuration.Std() != 20*time.Second {
		t.Errorf("expected bare integer to be seconds, got %s", cfg.Server.MaxPasteDuration)
	}
	if cfg.Wire.Codec != "cbor" {
		t.Errorf("expected codec=cbor, got %q", cfg.Wire.Codec)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.Identifier != "Server" {
		t.Errorf("expected identifier to keep default, got %q", cfg.Server.Identifier)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeConfig(t, "p2paste.jsonc", `{
  // Comments and trailing commas are allowed.
  "server": {
    "identifier": "Hub",
    "max_paste_duration": "1m",
    "request_queue": 8,
  },
  "client": {"timeout": 5},
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Server.Identifier != "Hub" {
		t.Errorf("expected identifier=Hub, got %q", cfg.Server.Identifier)
	}
	if cfg.Server.MaxPasteDuration.Std() != time.Minute {
		t.Errorf("expected max_paste_duration=1m, got %s", cfg.Server.MaxPasteDuration)
	}
	if cfg.Server.RequestQueue != 8 {
		t.Errorf("expected request_queue=8, got %d", cfg.Server.RequestQueue)
	}
	if cfg.Client.Timeout.Std() != 5*time.Second {
		t.Errorf("expected client timeout=5s, got %s", cfg.Client.Timeout)
	}
}

func TestLoadFile_ExpandsPaths(t *testing.T) {
	t.Setenv("P2PASTE_CERTS", "/srv/certs")
	path := writeConfig(t, "p2paste.yaml", `
server:
  certificate: ${P2PASTE_CERTS}/server.pem
  key: ${P2PASTE_UNSET_VARIABLE:-/etc/p2paste}/key.pem
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Server.Certificate != "/srv/certs/server.pem" {
		t.Errorf("certificate = %q", cfg.Server.Certificate)
	}
	if cfg.Server.Key != "/etc/p2paste/key.pem" {
		t.Errorf("key = %q", cfg.Server.Key)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Server.Identifier = ""
	cfg.Server.MaxPasteDuration = 0
	cfg.Wire.Codec = "xml"
	cfg.TLS.MinVersion = "2.0"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, fragment := range []string{
		"server.identifier",
		"server.max_paste_duration",
		"wire.codec",
		"tls.min_version",
		"log.level",
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q does not mention %s", err, fragment)
		}
	}
}

func TestHostPort(t *testing.T) {
	server := Default().Server
	tests := []struct {
		requested    int
		wantPort     int
		wantFellBack bool
	}{
		{requested: 0, wantPort: 8956, wantFellBack: true},
		{requested: 80, wantPort: 8956, wantFellBack: true},
		{requested: 70000, wantPort: 8956, wantFellBack: true},
		{requested: 1024, wantPort: 1024},
		{requested: 9100, wantPort: 9100},
	}
	for _, test := range tests {
		port, fellBack := server.HostPort(test.requested)
		if port != test.wantPort || fellBack != test.wantFellBack {
			t.Errorf("HostPort(%d) = (%d, %v), want (%d, %v)",
				test.requested, port, fellBack, test.wantPort, test.wantFellBack)
		}
	}
}

func TestTLSVersion(t *testing.T) {
	tests := map[string]uint16{
		"":    tls.VersionTLS12,
		"1.2": tls.VersionTLS12,
		"1.3": tls.VersionTLS13,
	}
	for input, want := range tests {
		got, err := TLSConfig{MinVersion: input}.Version()
		if err != nil {
			t.Errorf("Version(%q): %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("Version(%q) = %#x, want %#x", input, got, want)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	level, err := LogConfig{Level: "debug"}.SlogLevel()
	if err != nil {
		t.Fatalf("SlogLevel: %v", err)
	}
	if level != slog.LevelDebug {
		t.Errorf("level = %v, want debug", level)
	}
}
