package internal

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS mirrored_logs (
	hash TEXT NOT NULL,
	naming TEXT NOT NULL,
	derived_name TEXT NOT NULL,
	mirrored_at TEXT NOT NULL,
	PRIMARY KEY (hash, naming, derived_name)
)`

// Ledger remembers which derived names a commit was committed to the target
// under, per naming policy. It is a hint for skipping backend queries; the log files stay the
// source of truth and are always checked before a ledger entry is trusted.
type Ledger struct {
	db   *sql.DB
	path string
}

// LedgerPath returns the ledger location inside the target repository
func LedgerPath(targetDir string) string {
	return filepath.Join(targetDir, ".git", "commit-mirror.db")
}

// OpenLedger opens or creates the ledger database at path
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &LedgerError{Path: path, Op: "open", Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &LedgerError{Path: path, Op: "open", Err: fmt.Errorf("database ping failed: %w", err)}
	}

	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, &LedgerError{Path: path, Op: "open", Err: fmt.Errorf("failed to create schema: %w", err)}
	}

	return &Ledger{db: db, path: path}, nil
}

// DerivedNames returns the log names recorded for hash under naming
func (l *Ledger) DerivedNames(hash string, naming NamingPolicy) ([]string, error) {
	rows, err := l.db.Query("SELECT derived_name FROM mirrored_logs WHERE hash = ? AND naming = ? ORDER BY derived_name", hash, string(naming))
	if err != nil {
		return nil, &LedgerError{Path: l.path, Op: "lookup", Err: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &LedgerError{Path: l.path, Op: "lookup", Err: fmt.Errorf("scan failed: %w", err)}
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, &LedgerError{Path: l.path, Op: "lookup", Err: fmt.Errorf("rows iteration error: %w", err)}
	}

	return names, nil
}

// Record stores the derived names a commit was mirrored into under naming
func (l *Ledger) Record(hash string, naming NamingPolicy, names []string, at time.Time) error {
	tx, err := l.db.Begin()
	if err != nil {
		return &LedgerError{Path: l.path, Op: "record", Err: err}
	}

	stamp := at.UTC().Format(time.RFC3339)
	for _, name := range names {
		if _, err := tx.Exec("INSERT OR IGNORE INTO mirrored_logs (hash, naming, derived_name, mirrored_at) VALUES (?, ?, ?, ?)", hash, string(naming), name, stamp); err != nil {
			_ = tx.Rollback()
			return &LedgerError{Path: l.path, Op: "record", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &LedgerError{Path: l.path, Op: "record", Err: err}
	}
	return nil
}

// Close closes the underlying database
func (l *Ledger) Close() error {
	return l.db.Close()
}
