package domain

import (
	"fmt"
	"path/filepath"
	"time"
)

// MonitorState is the monitoring mode over the whole root collection.
type MonitorState string

const (
	StateStopped    MonitorState = "stopped"
	StateMonitoring MonitorState = "monitoring"
)

// LogLevel is the severity of a LogEntry.
type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

// DisposalMode selects how a pending folder is removed.
type DisposalMode string

const (
	// ModeTrash moves the folder to the recoverable trash facility.
	ModeTrash DisposalMode = "trash"
	// ModePermanent deletes the folder irrevocably.
	ModePermanent DisposalMode = "permanent"
)

// ParseDisposalMode converts a client-supplied string into a DisposalMode.
func ParseDisposalMode(s string) (DisposalMode, error) {
	switch DisposalMode(s) {
	case ModeTrash, ModePermanent:
		return DisposalMode(s), nil
	default:
		return "", NewValidationError("mode", fmt.Sprintf("unknown disposal mode %q", s))
	}
}

// WatchRoot is a top-level directory monitored for new child directories.
type WatchRoot struct {
	Path    string    `json:"path"`
	AddedAt time.Time `json:"added_at"`
}

// PendingFolder is a child directory detected under a root and not yet
// disposed of or observed removed.
type PendingFolder struct {
	FullPath   string    `json:"full_path"`
	RootPath   string    `json:"root_path"`
	DetectedAt time.Time `json:"detected_at"`
}

// Name returns the folder's base name.
func (f PendingFolder) Name() string {
	return filepath.Base(f.FullPath)
}

// LogEntry is an immutable audit record.
type LogEntry struct {
	Seq     int       `json:"seq"`
	Level   LogLevel  `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"timestamp"`
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Time.Format("15:04:05"), e.Level, e.Message)
}
