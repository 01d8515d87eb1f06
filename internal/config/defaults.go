// Package config provides centralized default configuration values.
package config

import "path/filepath"

const (
	// DefaultRootsFile is the persisted watch root list inside the config dir.
	DefaultRootsFile = "watchroots.yaml"
	// DefaultAuditFile is the audit database inside the config dir.
	DefaultAuditFile = "audit.db"
	// DefaultConfigFile is the file written by `config init`.
	DefaultConfigFile = "config.yaml"
)

// DefaultIgnorePatterns lists child directory names that operating systems
// and tools create on their own. Matches are never reported as new folders.
//
// Users can override via config.yaml: watcher.ignore_patterns
var DefaultIgnorePatterns = []string{
	".Trash-*",
	".Trashes",
	"$RECYCLE.BIN",
	"System Volume Information",
	"lost+found",
	".fseventsd",
	".Spotlight-V100",
}

// IgnoreMatcher reports whether a child name matches any of the patterns.
// Uses the provided list as is; an empty list ignores nothing.
func IgnoreMatcher(patterns []string) func(name string) bool {
	if len(patterns) == 0 {
		return func(string) bool { return false }
	}
	list := append([]string(nil), patterns...)
	return func(name string) bool {
		for _, p := range list {
			if ok, _ := filepath.Match(p, name); ok {
				return true
			}
		}
		return false
	}
}
