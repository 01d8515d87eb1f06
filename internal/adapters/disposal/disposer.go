// Package disposal removes pending folders, either into the user's trash or
// permanently.
package disposal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Bios-Marcel/wastebasket/v2"
	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/brianly1003/foldersentinel/internal/domain/ports"
	"github.com/rs/zerolog/log"
)

// Disposer implements ports.Disposer on the local filesystem.
type Disposer struct {
	// TrashDir overrides the platform trash. It is laid out like a
	// freedesktop.org trash directory (files/ and info/).
	TrashDir string

	// trash moves a path into the platform trash.
	trash func(paths ...string) error
}

// New creates a Disposer. An empty trashDir selects the platform trash,
// which on Linux and BSD also covers per-volume .Trash-$uid directories.
func New(trashDir string) *Disposer {
	return &Disposer{
		TrashDir: trashDir,
		trash:    wastebasket.Trash,
	}
}

// Dispose removes path according to mode.
func (d *Disposer) Dispose(path string, mode domain.DisposalMode) error {
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, domain.ErrFolderNotFound)
		}
		return err
	}

	switch mode {
	case domain.ModePermanent:
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to delete: %w", err)
		}
		log.Debug().Str("path", path).Msg("folder deleted")
		return nil

	case domain.ModeTrash:
		if d.TrashDir != "" {
			dest, err := newTrashDir(d.TrashDir).put(path)
			if err != nil {
				return err
			}
			log.Debug().Str("path", path).Str("trash", dest).Msg("folder moved to trash")
			return nil
		}
		if err := d.trash(path); err != nil {
			return fmt.Errorf("failed to move to trash: %w", err)
		}
		log.Debug().Str("path", path).Msg("folder moved to trash")
		return nil

	default:
		return domain.NewValidationError("mode", fmt.Sprintf("unknown disposal mode %q", mode))
	}
}

var _ ports.Disposer = (*Disposer)(nil)
