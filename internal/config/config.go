// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/woco-foundation/swarmctl/internal/errors"
	"github.com/woco-foundation/swarmctl/internal/rpc"
)

// Duration is a time.Duration written as "3s" or "1m30s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Node             string          `toml:"Node"`
	NodeURL          string          `toml:"NodeURL"`
	BlockTimeSeconds int64           `toml:"BlockTimeSeconds"`
	DatabasePath     string          `toml:"DatabasePath"`
	LogLevel         string          `toml:"LogLevel"`
	LogJSON          bool            `toml:"LogJSON"`
	Timeout          Duration        `toml:"Timeout"`
	Retry            RetryConfig     `toml:"Retry"`
	Poll             PollConfig      `toml:"Poll"`
	Telemetry        TelemetryConfig `toml:"Telemetry"`
	Server           ServerConfig    `toml:"Server"`
}

type RetryConfig struct {
	MaxRetries     int      `toml:"MaxRetries"`
	InitialBackoff Duration `toml:"InitialBackoff"`
	MaxBackoff     Duration `toml:"MaxBackoff"`
}

// PollConfig controls how long a new batch is waited on.
type PollConfig struct {
	Interval Duration `toml:"Interval"`
	Attempts int      `toml:"Attempts"`
}

type TelemetryConfig struct {
	Enabled     bool    `toml:"Enabled"`
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	ServiceName string  `toml:"ServiceName"`
	SampleRatio float64 `toml:"SampleRatio"`
}

type ServerConfig struct {
	Listen    string  `toml:"Listen"`
	RateLimit float64 `toml:"RateLimit"`
	Burst     int     `toml:"Burst"`
}

// DefaultPath is ~/.swarmctl/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".swarmctl", "config.toml")
}

func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the TOML file at path, falling back to defaults when it does not
// exist, then applies SWARMCTL_* environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			meta, err := toml.DecodeFile(path, cfg)
			if err != nil {
				return nil, fmt.Errorf("decode config %s: %w", path, err)
			}
			if undecoded := meta.Undecoded(); len(undecoded) > 0 {
				return nil, fmt.Errorf("config %s: unknown key %s", path, undecoded[0])
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Node == "" {
		cfg.Node = string(rpc.Local)
	}
	if cfg.BlockTimeSeconds <= 0 {
		cfg.BlockTimeSeconds = rpc.LocalConfig.BlockTimeSeconds
	}
	if cfg.DatabasePath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DatabasePath = filepath.Join(home, ".swarmctl", "history.db")
		} else {
			cfg.DatabasePath = "history.db"
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Timeout.Duration == 0 {
		cfg.Timeout.Duration = 30 * time.Second
	}
	def := rpc.DefaultRetryConfig()
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = def.MaxRetries
	}
	if cfg.Retry.InitialBackoff.Duration == 0 {
		cfg.Retry.InitialBackoff.Duration = def.InitialBackoff
	}
	if cfg.Retry.MaxBackoff.Duration == 0 {
		cfg.Retry.MaxBackoff.Duration = def.MaxBackoff
	}
	if cfg.Poll.Interval.Duration == 0 {
		cfg.Poll.Interval.Duration = 3 * time.Second
	}
	if cfg.Poll.Attempts == 0 {
		cfg.Poll.Attempts = 50
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "swarmctl"
	}
	if cfg.Telemetry.SampleRatio == 0 {
		cfg.Telemetry.SampleRatio = 1
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = "127.0.0.1:8090"
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 20
	}
	if cfg.Server.Burst == 0 {
		cfg.Server.Burst = 40
	}
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"SWARMCTL_NODE":          &cfg.Node,
		"SWARMCTL_NODE_URL":      &cfg.NodeURL,
		"SWARMCTL_DB":            &cfg.DatabasePath,
		"SWARMCTL_LOG_LEVEL":     &cfg.LogLevel,
		"SWARMCTL_OTLP_ENDPOINT": &cfg.Telemetry.Endpoint,
		"SWARMCTL_LISTEN":        &cfg.Server.Listen,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := os.LookupEnv("SWARMCTL_BLOCK_TIME"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SWARMCTL_BLOCK_TIME: %w", err)
		}
		cfg.BlockTimeSeconds = n
	}
	if v, ok := os.LookupEnv("SWARMCTL_LOG_JSON"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SWARMCTL_LOG_JSON: %w", err)
		}
		cfg.LogJSON = b
	}
	if cfg.Telemetry.Endpoint != "" {
		if _, ok := os.LookupEnv("SWARMCTL_OTLP_ENDPOINT"); ok {
			cfg.Telemetry.Enabled = true
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.NodeURL != "" {
		if err := rpc.ValidateNodeURL(c.NodeURL); err != nil {
			return err
		}
	} else if _, ok := rpc.ConfigFor(rpc.Node(c.Node)); !ok {
		return errors.WrapInvalidNode(c.Node)
	}
	if c.BlockTimeSeconds <= 0 {
		return fmt.Errorf("BlockTimeSeconds must be positive, got %d", c.BlockTimeSeconds)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("Retry.MaxRetries must not be negative, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.MaxBackoff.Duration < c.Retry.InitialBackoff.Duration {
		return fmt.Errorf("Retry.MaxBackoff %s is shorter than Retry.InitialBackoff %s", c.Retry.MaxBackoff, c.Retry.InitialBackoff)
	}
	if c.Poll.Attempts < 0 {
		return fmt.Errorf("Poll.Attempts must not be negative, got %d", c.Poll.Attempts)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("Telemetry.Endpoint is required when telemetry is enabled")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("Telemetry.SampleRatio must be within [0,1], got %g", c.Telemetry.SampleRatio)
	}
	if c.Server.RateLimit < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("Server.RateLimit and Server.Burst must not be negative")
	}
	return nil
}

// APIURL is NodeURL when set, otherwise the preset's URL.
func (c *Config) APIURL() string {
	if c.NodeURL != "" {
		return c.NodeURL
	}
	preset, ok := rpc.ConfigFor(rpc.Node(c.Node))
	if !ok {
		return rpc.LocalAPIURL
	}
	return preset.APIURL
}

// RetryPolicy converts the retry section for the node client.
func (c *Config) RetryPolicy() rpc.RetryConfig {
	policy := rpc.DefaultRetryConfig()
	policy.MaxRetries = c.Retry.MaxRetries
	policy.InitialBackoff = c.Retry.InitialBackoff.Duration
	policy.MaxBackoff = c.Retry.MaxBackoff.Duration
	return policy
}

// NodeClient builds a client for the configured node.
func (c *Config) NodeClient() *rpc.Client {
	return rpc.NewClientWithURL(c.APIURL(), rpc.WithTimeout(c.Timeout.Duration), rpc.WithRetryConfig(c.RetryPolicy()))
}
