package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/brianly1003/foldersentinel/internal/domain"
)

var (
	validLogLevels  = []string{"trace", "debug", "info", "warn", "error"}
	validLogFormats = []string{"console", "json"}
)

// Validate validates the configuration.
func Validate(cfg *Config) error {
	// Validate server config
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	// Validate roots config
	if err := validateRoots(&cfg.Roots); err != nil {
		return err
	}

	// Validate watcher config
	if err := validateWatcher(&cfg.Watcher); err != nil {
		return err
	}

	// Validate disposal config
	if err := validateDisposal(&cfg.Disposal); err != nil {
		return err
	}

	if err := validateAudit(&cfg.Audit); err != nil {
		return err
	}

	if err := validateHub(&cfg.Hub); err != nil {
		return err
	}

	return validateLogging(&cfg.Logging)
}

func validateServer(cfg *ServerConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if cfg.Host == "" {
		return fmt.Errorf("server.host cannot be empty")
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" || (strings.HasPrefix(origin, "*.") && len(origin) > 2) {
			continue
		}
		if err := validateOrigin(origin); err != nil {
			return err
		}
	}
	return nil
}

// validateOrigin validates that an origin is a well-formed http(s) URL.
func validateOrigin(origin string) error {
	parsed, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("server.allowed_origins has invalid value %q: %w", origin, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("server.allowed_origins value %q must include a host", origin)
	}
	if !strings.EqualFold(parsed.Scheme, "http") && !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("server.allowed_origins value %q must use http or https", origin)
	}
	return nil
}

func validateRoots(cfg *RootsConfig) error {
	if cfg.File == "" {
		return fmt.Errorf("roots.file cannot be empty")
	}
	return nil
}

func validateWatcher(cfg *WatcherConfig) error {
	if cfg.DebounceMS < 0 {
		return fmt.Errorf("watcher.debounce_ms cannot be negative")
	}
	if cfg.DebounceMS > 10000 {
		return fmt.Errorf("watcher.debounce_ms cannot exceed 10000ms")
	}
	for _, p := range cfg.IgnorePatterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("watcher.ignore_patterns has invalid pattern %q: %w", p, err)
		}
	}
	return nil
}

func validateDisposal(cfg *DisposalConfig) error {
	if _, err := domain.ParseDisposalMode(cfg.DefaultMode); err != nil {
		return fmt.Errorf("disposal.default_mode must be trash or permanent")
	}
	if cfg.DefaultRetries < 0 {
		return fmt.Errorf("disposal.default_retries cannot be negative")
	}
	if cfg.DefaultRetries > 100 {
		return fmt.Errorf("disposal.default_retries cannot exceed 100")
	}
	return nil
}

func validateAudit(cfg *AuditConfig) error {
	if cfg.Enabled && cfg.Path == "" {
		return fmt.Errorf("audit.path cannot be empty when audit is enabled")
	}
	return nil
}

func validateHub(cfg *HubConfig) error {
	if cfg.BufferSize < 1 {
		return fmt.Errorf("hub.buffer_size must be at least 1")
	}
	if cfg.BufferSize > 65536 {
		return fmt.Errorf("hub.buffer_size cannot exceed 65536")
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	if !contains(validLogLevels, strings.ToLower(cfg.Level)) {
		return fmt.Errorf("logging.level must be one of: %s", strings.Join(validLogLevels, ", "))
	}
	if !contains(validLogFormats, strings.ToLower(cfg.Format)) {
		return fmt.Errorf("logging.format must be one of: %s", strings.Join(validLogFormats, ", "))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
