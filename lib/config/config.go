// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/p2paste/p2paste/lib/codec"
	"github.com/p2paste/p2paste/transport"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the configuration file when --config is
// not given.
const EnvironmentVariable = "P2PASTE_CONFIG"

// Config is the complete p2paste configuration.
type Config struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Client ClientConfig `yaml:"client" json:"client"`
	TLS    TLSConfig    `yaml:"tls" json:"tls"`
	Wire   WireConfig   `yaml:"wire" json:"wire"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// ServerConfig configures the hosting side.
type ServerConfig struct {
	// Identifier is the nickname the server stamps on its own
	// envelopes (welcome, announcements, roster, grants).
	Identifier string `yaml:"identifier" json:"identifier"`

	// WelcomeMessage is unicast to every newly identified client.
	WelcomeMessage string `yaml:"welcome_message" json:"welcome_message"`

	// BindHost is the local address to listen on. Empty means all
	// interfaces.
	BindHost string `yaml:"bind_host" json:"bind_host"`

	// Port is the default listening port.
	Port int `yaml:"port" json:"port"`

	// MinPort is the lowest port an operator may request. Requests
	// below it fall back to Port.
	MinPort int `yaml:"min_port" json:"min_port"`

	// Timeout bounds the TLS handshake, identification, and each
	// frame read or write on server connections.
	Timeout Duration `yaml:"timeout" json:"timeout"`

	// MaxPasteDuration is how long a holder keeps paste permission
	// before the next requester is granted.
	MaxPasteDuration Duration `yaml:"max_paste_duration" json:"max_paste_duration"`

	// RequestQueue bounds the number of pending paste requests.
	RequestQueue int `yaml:"request_queue" json:"request_queue"`

	// Certificate and Key are PEM files. They may name the same file
	// when it holds both blocks.
	Certificate string `yaml:"certificate" json:"certificate"`
	Key         string `yaml:"key" json:"key"`
}

// ClientConfig configures the connecting side.
type ClientConfig struct {
	// Timeout bounds the dial, the TLS handshake, and each frame read
	// or write.
	Timeout Duration `yaml:"timeout" json:"timeout"`

	// CACertificate is the PEM trust root used to verify the server.
	CACertificate string `yaml:"ca_certificate" json:"ca_certificate"`

	// ServerName overrides the name verified against the server
	// certificate. Empty uses the host part of the dialed address.
	ServerName string `yaml:"server_name" json:"server_name"`
}

// TLSConfig configures protocol versions for both sides.
type TLSConfig struct {
	// MinVersion is "1.0", "1.1", "1.2" or "1.3".
	MinVersion string `yaml:"min_version" json:"min_version"`
}

// WireConfig configures framing.
type WireConfig struct {
	// Codec is "json" (the default) or "cbor".
	Codec string `yaml:"codec" json:"codec"`

	// PollInterval is the readiness poll granularity of receive
	// loops; it bounds how long a disconnect waits for the loop.
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" json:"level"`

	// File, when set, receives JSON log records instead of stderr.
	File string `yaml:"file" json:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Identifier:       "Server",
			WelcomeMessage:   "Welcome to p2paste chat",
			Port:             8956,
			MinPort:          1024,
			Timeout:          Seconds(15),
			MaxPasteDuration: Seconds(15),
			RequestQueue:     64,
			Certificate:      "certificates/cert.pem",
			Key:              "certificates/cert.pem",
		},
		Client: ClientConfig{
			Timeout:       Seconds(10),
			CACertificate: "certificates/cert.pem",
		},
		TLS: TLSConfig{
			MinVersion: "1.2",
		},
		Wire: WireConfig{
			Codec:        "json",
			PollInterval: Seconds(1),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load resolves the configuration file from path, falling back to the
// P2PASTE_CONFIG environment variable, and falling back to Default when
// neither names a file. The result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	return LoadFile(path)
}

// LoadFile loads and validates the configuration file at path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Identifier == "" {
		errs = append(errs, errors.New("server.identifier is required"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MinPort < 0 || c.Server.MinPort > 65535 {
		errs = append(errs, fmt.Errorf("server.min_port %d out of range", c.Server.MinPort))
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, errors.New("server.timeout must be positive"))
	}
	if c.Server.MaxPasteDuration <= 0 {
		errs = append(errs, errors.New("server.max_paste_duration must be positive"))
	}
	if c.Server.RequestQueue <= 0 {
		errs = append(errs, errors.New("server.request_queue must be positive"))
	}
	if c.Client.Timeout <= 0 {
		errs = append(errs, errors.New("client.timeout must be positive"))
	}
	if c.Wire.PollInterval <= 0 {
		errs = append(errs, errors.New("wire.poll_interval must be positive"))
	}
	if _, err := codec.ByName(c.Wire.Codec); err != nil {
		errs = append(errs, fmt.Errorf("wire.codec: %w", err))
	}
	if _, err := c.TLS.Version(); err != nil {
		errs = append(errs, fmt.Errorf("tls.min_version: %w", err))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// HostPort returns the port to host on for an operator-requested port.
// Requests below MinPort (including zero, meaning "not given") use the
// configured default.
func (s ServerConfig) HostPort(requested int) (port int, fellBack bool) {
	if requested < s.MinPort || requested > 65535 {
		return s.Port, true
	}
	return requested, false
}

// Version parses MinVersion into a crypto/tls version constant.
func (t TLSConfig) Version() (uint16, error) {
	return transport.ParseTLSVersion(t.MinVersion)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

func (c *Config) expandVariables() {
	c.Server.Certificate = expandVars(c.Server.Certificate)
	c.Server.Key = expandVars(c.Server.Key)
	c.Client.CACertificate = expandVars(c.Client.CACertificate)
	c.Log.File = expandVars(c.Log.File)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}
