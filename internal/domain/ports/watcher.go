package ports

// WatchRegistry maps each watched root path to exactly one live,
// non-recursive directory subscription. Implementations publish
// folder_created, folder_deleted and watch_error events tagged with the root.
type WatchRegistry interface {
	// Start establishes a watch for every root independently.
	// It is a no-op when the registry is already running.
	Start(roots []string)

	// Stop tears down every watch and leaves the registry not running.
	Stop()

	// AddWatchFolder establishes a watch for a single root.
	// Returns false when the root is already watched, is not an existing
	// directory, or the watch could not be established.
	AddWatchFolder(path string) bool

	// RemoveWatchFolder tears down the watch for exactly that root.
	// Returns false when the root was not watched.
	RemoveWatchFolder(path string) bool

	// IsRunning returns true while at least one watch is live.
	IsRunning() bool

	// WatchedRoots returns the roots that currently have a live watch.
	WatchedRoots() []string
}
