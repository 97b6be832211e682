/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine names accepted in Config.Engine.
const (
	EngineBolt   = "bolt"
	EnginePebble = "pebble"
)

// DefaultMinValueSize is the default size of the value scratch buffer.
const DefaultMinValueSize = 32 * 1024

// Config represents the Strata configuration
type Config struct {
	DataDir    string     `yaml:"data_dir"`
	Engine     string     `yaml:"engine"`
	Table      string     `yaml:"table"`
	Storage    Storage    `yaml:"storage"`
	Background Background `yaml:"background"`
	Server     Server     `yaml:"server"`
	Security   Security   `yaml:"security"`
	Logging    Logging    `yaml:"logging"`
}

// Storage tunes the underlying engine and the store's scratch buffers
type Storage struct {
	MinValueSize int           `yaml:"min_value_size"`
	NoSync       bool          `yaml:"no_sync"`
	OpenTimeout  time.Duration `yaml:"open_timeout"`
}

// Background configures the background transaction pool
type Background struct {
	Workers int `yaml:"workers"`
}

// Server configures the inspection HTTP server
type Server struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Engine:  EngineBolt,
		Table:   "records",
		Storage: Storage{
			MinValueSize: DefaultMinValueSize,
			OpenTimeout:  time.Second,
		},
		Background: Background{
			Workers: 4,
		},
		Server: Server{
			Bind: "127.0.0.1",
			Port: 8080,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Validate checks the configuration for values the store cannot run with
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	switch c.Engine {
	case EngineBolt, EnginePebble:
	default:
		return fmt.Errorf("unknown engine %q (want %q or %q)", c.Engine, EngineBolt, EnginePebble)
	}
	if c.Table == "" {
		return fmt.Errorf("table is required")
	}
	if c.Storage.MinValueSize < 0 {
		return fmt.Errorf("storage.min_value_size must not be negative")
	}
	if c.Background.Workers < 0 {
		return fmt.Errorf("background.workers must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// LoadConfig loads configuration from the specified path. Missing keys keep
// their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a new configuration with a generated API key
func BootstrapConfig(configPath string, dataDir string, engine string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}
	if engine != "" {
		config.Engine = engine
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./strata.yaml"
	}

	// ~/.config/strata/config.yaml
	return filepath.Join(homeDir, ".config", "strata", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
