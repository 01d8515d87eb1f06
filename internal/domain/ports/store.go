package ports

import "github.com/brianly1003/foldersentinel/internal/domain"

// RootStore persists the ordered list of watch root paths.
type RootStore interface {
	// Load returns the persisted paths. A missing store yields an error
	// matching fs.ErrNotExist.
	Load() ([]string, error)

	// Save replaces the persisted paths.
	Save(paths []string) error
}

// RootBackup is implemented by stores that can set an unreadable list
// aside before it is overwritten.
type RootBackup interface {
	// Backup moves the persisted data out of the way and returns where it went.
	Backup() (string, error)
}

// AuditSink records log entries beyond the lifetime of the process.
type AuditSink interface {
	Append(entry domain.LogEntry) error
}
