package disposal

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// maxNameAttempts bounds the search for a free name inside the trash.
const maxNameAttempts = 1000

// trashDir is a configured trash directory in the freedesktop.org layout.
// Every trashed entry gets a .trashinfo record so desktop tools can restore it.
type trashDir struct {
	files string
	info  string
}

func newTrashDir(dir string) *trashDir {
	return &trashDir{
		files: filepath.Join(dir, "files"),
		info:  filepath.Join(dir, "info"),
	}
}

// put moves path into the trash and returns its new location. The info
// record is created first to reserve the name and is removed again if the
// move fails. The configured directory must be on the same filesystem.
func (c *trashDir) put(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for _, dir := range []string{c.files, c.info} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("failed to create trash: %w", err)
		}
	}

	base := filepath.Base(abs)
	for i := 1; i <= maxNameAttempts; i++ {
		name := base
		if i > 1 {
			name = base + "." + strconv.Itoa(i)
		}
		dest := filepath.Join(c.files, name)
		if _, err := os.Lstat(dest); err == nil {
			continue
		}

		infoPath := filepath.Join(c.info, name+".trashinfo")
		if err := writeTrashInfo(infoPath, abs, time.Now()); err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return "", fmt.Errorf("failed to write trash info: %w", err)
		}

		if err := os.Rename(abs, dest); err != nil {
			os.Remove(infoPath)
			return "", fmt.Errorf("failed to move to trash: %w", err)
		}
		return dest, nil
	}
	return "", fmt.Errorf("no free trash name for %s", base)
}

// writeTrashInfo creates the info record exclusively.
func writeTrashInfo(infoPath, original string, deleted time.Time) error {
	f, err := os.OpenFile(infoPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	content := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: original}).EscapedPath(),
		deleted.Format("2006-01-02T15:04:05"),
	)
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(infoPath)
		return err
	}
	return f.Close()
}
