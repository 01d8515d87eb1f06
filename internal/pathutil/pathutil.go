// Package pathutil normalizes user-supplied folder paths.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brianly1003/foldersentinel/internal/domain"
)

// ExpandHome replaces a leading "~" with the user's home directory.
//
//	~          → /home/alice
//	~/Inbox    → /home/alice/Inbox
//	~bob/Inbox → unchanged
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// Absolute expands "~" and returns a clean absolute path.
func Absolute(path string) (string, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}

// NormalizeRoot trims surrounding whitespace and returns the absolute form
// of a watch root. A blank path yields domain.ErrEmptyPath.
func NormalizeRoot(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", domain.ErrEmptyPath
	}
	return Absolute(path)
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
