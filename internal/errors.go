package internal

import (
	"fmt"
	"strings"
)

// ArgumentError represents an invalid or missing command-line argument
type ArgumentError struct {
	Flag   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("--%s %s", e.Flag, e.Reason)
}

// ResolutionError represents a failure to compute the set of new commits
type ResolutionError struct {
	Ref string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution error [%s]: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ExtractionError represents a failure to read metadata for one commit
type ExtractionError struct {
	ID    string
	Field string // "message", "author", "date", "paths"
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error [%s] %s: %v", shortHash(e.ID), e.Field, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// LogWriteError represents errors mutating a log file in the target directory
type LogWriteError struct {
	Name string
	Op   string // "read", "append", "rollback"
	Err  error
}

func (e *LogWriteError) Error() string {
	return fmt.Sprintf("log write error: %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *LogWriteError) Unwrap() error {
	return e.Err
}

// CommitError represents errors staging or committing in the target repository
type CommitError struct {
	Dir   string
	Files []string
	Err   error
}

func (e *CommitError) Error() string {
	if len(e.Files) == 0 {
		return fmt.Sprintf("commit error %s: %v", e.Dir, e.Err)
	}
	return fmt.Sprintf("commit error %s [%s]: %v", e.Dir, strings.Join(e.Files, ", "), e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// LedgerError represents errors reading or writing the mirror ledger
type LedgerError struct {
	Path string
	Op   string // "open", "lookup", "record"
	Err  error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
