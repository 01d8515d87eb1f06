package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/brianly1003/foldersentinel/internal/adapters/auditlog"
	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd prints audit records from previous and current runs.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the persisted audit log",
	Long: `Show the most recent audit log entries, oldest first.

Every session log entry (new folders, disposals, failures, state changes)
is recorded in audit.path when audit logging is enabled.

Examples:
  foldersentinel history
  foldersentinel history --limit 200`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "number of entries to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Audit.Enabled {
		return errors.New("audit logging is disabled (audit.enabled: false)")
	}
	if _, err := os.Stat(cfg.Audit.Path); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No audit log at %s\n", cfg.Audit.Path)
		return nil
	}

	store, err := auditlog.Open(cfg.Audit.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}
	return printHistory(cmd.OutOrStdout(), records)
}

func printHistory(out io.Writer, records []auditlog.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "Audit log is empty.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tTIME\tLEVEL\tMESSAGE")
	for _, r := range records {
		run := r.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			run,
			r.Entry.Time.Local().Format("2006-01-02 15:04:05"),
			r.Entry.Level,
			r.Entry.Message)
	}
	return w.Flush()
}
