package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where binaries look for settings when --config is not given.
const DefaultPath = "./config/visiondeck.yaml"

type Config struct {
	Backend struct {
		BaseURL        string        `yaml:"base_url" toml:"base_url"`
		RequestTimeout time.Duration `yaml:"request_timeout" toml:"request_timeout"`
		PushAttempts   int           `yaml:"push_attempts" toml:"push_attempts"`
		PushBackoff    time.Duration `yaml:"push_backoff" toml:"push_backoff"`
	} `yaml:"backend" toml:"backend"`

	Web struct {
		Addr string `yaml:"addr" toml:"addr"`
	} `yaml:"web" toml:"web"`

	Log struct {
		Level       string `yaml:"level" toml:"level"`
		File        string `yaml:"file,omitempty" toml:"file,omitempty"`
		MaxBytes    int    `yaml:"max_bytes" toml:"max_bytes"`
		BackupCount int    `yaml:"backup_count" toml:"backup_count"`
		Stdout      bool   `yaml:"stdout" toml:"stdout"`
	} `yaml:"log" toml:"log"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Backend.BaseURL = "http://localhost:8000"
	// No timeout and a single attempt: a hung request just stays outstanding.
	cfg.Backend.RequestTimeout = 0
	cfg.Backend.PushAttempts = 1
	cfg.Web.Addr = ":8080"
	cfg.Log.Level = "INFO"
	cfg.Log.MaxBytes = 5 * 1024 * 1024
	cfg.Log.BackupCount = 3
	cfg.Log.Stdout = false
	return cfg
}

// Load reads settings from path, layering them over the defaults. A missing
// file yields the defaults. Files ending in .toml are parsed as TOML, anything
// else as YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values a binary cannot start without.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	if c.Backend.RequestTimeout < 0 || c.Backend.PushBackoff < 0 {
		return fmt.Errorf("backend durations must not be negative")
	}
	return nil
}

// Write stores cfg at path in the format implied by its extension, creating
// parent directories. It refuses to overwrite an existing file.
func Write(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isTOML(path) {
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = []byte(sb.String())
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
