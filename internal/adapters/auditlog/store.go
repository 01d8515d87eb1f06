// Package auditlog persists session log entries in SQLite so the audit trail
// outlives a single run.
package auditlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/brianly1003/foldersentinel/internal/domain/ports"
	"github.com/brianly1003/foldersentinel/internal/sync"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// Record is a persisted log entry with the run that produced it.
type Record struct {
	RunID string          `json:"run_id"`
	Entry domain.LogEntry `json:"entry"`
}

// Store is a SQLite-backed audit sink.
type Store struct {
	db     *sql.DB
	dbPath string
	runID  string

	mu         sync.Mutex
	stmtInsert *sql.Stmt
	closed     bool
}

// Open opens (creating if needed) the audit database at dbPath. Every entry
// appended through the returned Store is tagged with a fresh run id.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create audit dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	// A single connection serialises writers without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("failed to set pragma")
		}
	}

	s := &Store{
		db:     db,
		dbPath: dbPath,
		runID:  uuid.NewString(),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	s.stmtInsert, err = db.Prepare(`
		INSERT INTO log_entries (run_id, seq, level, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	log.Debug().Str("path", dbPath).Str("run_id", s.runID).Msg("audit log opened")
	return s, nil
}

func (s *Store) initSchema() error {
	var current int
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		// Table might not exist
		current = 0
	}
	if current >= schemaVersion {
		return nil
	}

	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS log_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_log_entries_run ON log_entries(run_id, seq);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	_, err = s.db.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)", schemaVersion)
	return err
}

// RunID returns the id tagging entries appended in this run.
func (s *Store) RunID() string {
	return s.runID
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Append records entry under the current run.
func (s *Store) Append(entry domain.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("audit log closed")
	}
	_, err := s.stmtInsert.Exec(s.runID, entry.Seq, string(entry.Level), entry.Message, entry.Time.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit most recent records, oldest first. A limit of
// zero or less returns every record.
func (s *Store) Recent(limit int) ([]Record, error) {
	query := `
		SELECT run_id, seq, level, message, created_at FROM (
			SELECT id, run_id, seq, level, message, created_at
			FROM log_entries ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec   Record
			level string
			nanos int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Entry.Seq, &level, &rec.Entry.Message, &nanos); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		rec.Entry.Level = domain.LogLevel(level)
		rec.Entry.Time = time.Unix(0, nanos)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.stmtInsert != nil {
		s.stmtInsert.Close()
	}
	return s.db.Close()
}

var _ ports.AuditSink = (*Store)(nil)
