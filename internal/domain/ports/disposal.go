package ports

import "github.com/brianly1003/foldersentinel/internal/domain"

// Disposer removes a directory either into the trash or permanently.
// Any confirmation for the operation itself is the caller's concern.
type Disposer interface {
	Dispose(path string, mode domain.DisposalMode) error
}
