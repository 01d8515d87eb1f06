package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/brianly1003/foldersentinel/internal/adapters/rootstore"
	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/brianly1003/foldersentinel/internal/pathutil"
	"github.com/spf13/cobra"
)

// rootsCmd manages the persisted watch root list without a running server.
var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "List and edit the persisted watch roots",
	Long: `List and edit the watch roots saved in roots.file.

Changes take effect the next time foldersentinel starts. While the server
is running, use the REST API instead so the live tracker sees them.

Examples:
  foldersentinel roots list
  foldersentinel roots add ~/Downloads
  foldersentinel roots remove ~/Downloads`,
}

var rootsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the persisted watch roots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRootStore()
		if err != nil {
			return err
		}
		return listRoots(cmd.OutOrStdout(), store)
	},
}

var rootsAddCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Add watch roots",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRootStore()
		if err != nil {
			return err
		}
		return addRoots(cmd.OutOrStdout(), store, args)
	},
}

var rootsRemoveCmd = &cobra.Command{
	Use:   "remove <path>...",
	Short: "Remove watch roots",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRootStore()
		if err != nil {
			return err
		}
		return removeRoots(cmd.OutOrStdout(), store, args)
	},
}

func init() {
	rootsCmd.AddCommand(rootsListCmd)
	rootsCmd.AddCommand(rootsAddCmd)
	rootsCmd.AddCommand(rootsRemoveCmd)
}

func openRootStore() (*rootstore.FileStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return rootstore.New(cfg.Roots.File), nil
}

func loadRootList(store *rootstore.FileStore) ([]string, error) {
	paths, err := store.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return paths, err
}

func listRoots(out io.Writer, store *rootstore.FileStore) error {
	paths, err := loadRootList(store)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, "No watch roots configured.")
		return nil
	}
	for _, p := range paths {
		status := ""
		if !pathutil.IsDir(p) {
			status = "  (missing)"
		}
		fmt.Fprintf(out, "%s%s\n", p, status)
	}
	return nil
}

func addRoots(out io.Writer, store *rootstore.FileStore, args []string) error {
	paths, err := loadRootList(store)
	if err != nil {
		return err
	}

	for _, arg := range args {
		root, err := pathutil.NormalizeRoot(arg)
		if err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
		if !pathutil.IsDir(root) {
			return fmt.Errorf("%s: %w", root, domain.ErrNotDirectory)
		}
		if indexOf(paths, root) >= 0 {
			fmt.Fprintf(out, "Already watching %s\n", root)
			continue
		}
		paths = append(paths, root)
		fmt.Fprintf(out, "Added %s\n", root)
	}

	return store.Save(paths)
}

func removeRoots(out io.Writer, store *rootstore.FileStore, args []string) error {
	paths, err := loadRootList(store)
	if err != nil {
		return err
	}

	for _, arg := range args {
		root, err := pathutil.NormalizeRoot(arg)
		if err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
		i := indexOf(paths, root)
		if i < 0 {
			return fmt.Errorf("%s: %w", root, domain.ErrRootNotFound)
		}
		paths = append(paths[:i], paths[i+1:]...)
		fmt.Fprintf(out, "Removed %s\n", root)
	}

	return store.Save(paths)
}


func indexOf(paths []string, p string) int {
	for i, existing := range paths {
		if filepath.Clean(existing) == p {
			return i
		}
	}
	return -1
}
