package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValidationMode int

const (
	ValidationFull ValidationMode = iota
	ValidationDiag
)

// Config is the HSM daemon's on-disk configuration: where keys live,
// which client owns this engine instance, and how the shared-memory
// transport is sized.
type Config struct {
	NVM       NVMConfig       `yaml:"nvm"`
	Client    ClientConfig    `yaml:"client"`
	Transport TransportConfig `yaml:"transport"`
	Runtime   RuntimeConfig   `yaml:"runtime"`
}

type NVMConfig struct {
	DSN string `yaml:"dsn"`
}

type ClientConfig struct {
	ID *uint32 `yaml:"id"`
}

type TransportConfig struct {
	RequestPath  string `yaml:"request_path"`
	ResponsePath string `yaml:"response_path"`
	BufferSize   *int   `yaml:"buffer_size"`
}

type RuntimeConfig struct {
	CacheSize   *int  `yaml:"cache_size"`
	AutoInitRnd *bool `yaml:"auto_init_rnd"`
}

func Load(path string) (*Config, error) {
	return LoadWithMode(path, ValidationFull)
}

func LoadWithMode(path string, mode ValidationMode) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.resolvePaths(path)
	if err := cfg.ValidateWithMode(mode); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	return c.ValidateWithMode(ValidationFull)
}

func (c *Config) ValidateWithMode(mode ValidationMode) error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	switch mode {
	case ValidationDiag:
		return nil
	case ValidationFull:
		return c.validateFullMode()
	default:
		return fmt.Errorf("unsupported validation mode: %d", mode)
	}
}

func (c *Config) validateCommon() error {
	if strings.TrimSpace(c.NVM.DSN) == "" {
		return fmt.Errorf("config.nvm.dsn is required")
	}
	if c.Client.ID == nil {
		return fmt.Errorf("config.client.id is required")
	}
	return nil
}

func (c *Config) validateFullMode() error {
	if strings.TrimSpace(c.Transport.RequestPath) == "" {
		return fmt.Errorf("config.transport.request_path is required")
	}
	if strings.TrimSpace(c.Transport.ResponsePath) == "" {
		return fmt.Errorf("config.transport.response_path is required")
	}
	if c.Transport.BufferSize == nil {
		return fmt.Errorf("config.transport.buffer_size is required")
	}
	if *c.Transport.BufferSize <= 8 {
		return fmt.Errorf("config.transport.buffer_size must exceed the 8-byte CSR header")
	}

	if c.Runtime.CacheSize == nil {
		return fmt.Errorf("config.runtime.cache_size is required")
	}
	if *c.Runtime.CacheSize <= 0 {
		return fmt.Errorf("config.runtime.cache_size must be > 0")
	}
	if c.Runtime.AutoInitRnd == nil {
		return fmt.Errorf("config.runtime.auto_init_rnd is required")
	}
	return nil
}

func (c *Config) resolvePaths(configPath string) {
	configDir := filepath.Dir(configPath)
	c.NVM.DSN = resolvePath(configDir, c.NVM.DSN)
	c.Transport.RequestPath = resolvePath(configDir, c.Transport.RequestPath)
	c.Transport.ResponsePath = resolvePath(configDir, c.Transport.ResponsePath)
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) || strings.Contains(trimmed, ":") {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}
