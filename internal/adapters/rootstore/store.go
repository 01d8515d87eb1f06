// Package rootstore persists the ordered watch root list as a YAML sequence.
package rootstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brianly1003/foldersentinel/internal/domain/ports"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// FileName is the default file name of the persisted list.
const FileName = "watchroots.yaml"

// FileStore reads and writes the root list at Path. A JSON array of strings,
// as written by earlier releases, is valid YAML and loads unchanged.
type FileStore struct {
	Path string
}

// New creates a FileStore for path.
func New(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load returns the persisted paths in order. A missing file yields an error
// matching fs.ErrNotExist.
func (s *FileStore) Load() ([]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch roots: %w", err)
	}

	var paths []string
	if err := yaml.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("failed to parse watch roots %s: %w", s.Path, err)
	}

	log.Debug().Str("path", s.Path).Int("count", len(paths)).Msg("watch roots read")
	return paths, nil
}

// Save replaces the persisted list. The file is written to a temporary
// sibling and renamed into place.
func (s *FileStore) Save(paths []string) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if paths == nil {
		paths = []string{}
	}
	data, err := yaml.Marshal(paths)
	if err != nil {
		return fmt.Errorf("failed to marshal watch roots: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write watch roots: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write watch roots: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		log.Debug().Err(err).Str("path", tmpName).Msg("failed to chmod watch roots")
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace watch roots: %w", err)
	}

	log.Debug().Str("path", s.Path).Int("count", len(paths)).Msg("watch roots written")
	return nil
}

// Backup renames the current file to a timestamped .bak sibling.
func (s *FileStore) Backup() (string, error) {
	dest := s.Path + "." + time.Now().Format("20060102-150405") + ".bak"
	if err := os.Rename(s.Path, dest); err != nil {
		return "", fmt.Errorf("failed to back up watch roots: %w", err)
	}
	log.Info().Str("path", s.Path).Str("backup", dest).Msg("watch roots backed up")
	return dest, nil
}

var (
	_ ports.RootStore  = (*FileStore)(nil)
	_ ports.RootBackup = (*FileStore)(nil)
)
