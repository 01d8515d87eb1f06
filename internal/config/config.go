// Package config handles configuration management for foldersentinel.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brianly1003/foldersentinel/internal/pathutil"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FSENTINEL_SERVER_PORT.
const EnvPrefix = "FSENTINEL"

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Roots    RootsConfig    `mapstructure:"roots" yaml:"roots"`
	Watcher  WatcherConfig  `mapstructure:"watcher" yaml:"watcher"`
	Disposal DisposalConfig `mapstructure:"disposal" yaml:"disposal"`
	Audit    AuditConfig    `mapstructure:"audit" yaml:"audit"`
	Hub      HubConfig      `mapstructure:"hub" yaml:"hub"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig holds the REST and live stream server configuration.
type ServerConfig struct {
	Enabled        bool     `mapstructure:"enabled" yaml:"enabled"`
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// RootsConfig holds watch root persistence configuration.
type RootsConfig struct {
	File      string `mapstructure:"file" yaml:"file"`
	AutoStart bool   `mapstructure:"auto_start" yaml:"auto_start"` // start monitoring at launch when roots exist
}

// WatcherConfig holds watch registry configuration.
type WatcherConfig struct {
	DebounceMS     int      `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	IgnorePatterns []string `mapstructure:"ignore_patterns" yaml:"ignore_patterns"`
}

// DisposalConfig holds disposal configuration.
type DisposalConfig struct {
	TrashDir       string `mapstructure:"trash_dir" yaml:"trash_dir"` // empty uses the platform trash
	DefaultMode    string `mapstructure:"default_mode" yaml:"default_mode"`
	DefaultRetries int    `mapstructure:"default_retries" yaml:"default_retries"`
}

// AuditConfig holds audit log configuration.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// HubConfig holds event hub configuration.
type HubConfig struct {
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default search paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.foldersentinel")
		v.AddConfigPath("/etc/foldersentinel")
	}

	// Environment variable prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file (optional - not an error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Post-process configuration
	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the default configuration with paths resolved.
func Default() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := postProcess(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8780)
	v.SetDefault("server.allowed_origins", []string{})

	// Roots defaults - empty file resolves under the config directory
	v.SetDefault("roots.file", "")
	v.SetDefault("roots.auto_start", true)

	// Watcher defaults - uses centralized patterns from defaults.go
	v.SetDefault("watcher.debounce_ms", 0)
	v.SetDefault("watcher.ignore_patterns", DefaultIgnorePatterns)

	// Disposal defaults
	v.SetDefault("disposal.trash_dir", "")
	v.SetDefault("disposal.default_mode", "trash")
	v.SetDefault("disposal.default_retries", 0)

	// Audit defaults
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.path", "")

	// Hub defaults
	v.SetDefault("hub.buffer_size", 256)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// postProcess resolves file locations.
func postProcess(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	if cfg.Roots.File == "" {
		cfg.Roots.File = filepath.Join(configDir, DefaultRootsFile)
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = filepath.Join(configDir, DefaultAuditFile)
	}

	for _, p := range []*string{&cfg.Roots.File, &cfg.Audit.Path, &cfg.Disposal.TrashDir} {
		if *p == "" {
			continue
		}
		resolved, err := pathutil.Absolute(*p)
		if err != nil {
			return err
		}
		*p = resolved
	}

	return nil
}

// Save writes cfg to path as YAML, creating the parent directory.
func Save(path string, cfg *Config) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigDir returns the user config directory for foldersentinel.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".foldersentinel"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
