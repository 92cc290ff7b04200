package internal

import (
	"fmt"
	"path"
	"strings"
)

// Commit represents one source commit as read from the backend
type Commit struct {
	Hash    string   `json:"hash" yaml:"hash"`
	Message string   `json:"message" yaml:"message"`
	Author  string   `json:"author" yaml:"author"`
	Date    string   `json:"date" yaml:"date"`
	Paths   []string `json:"paths,omitempty" yaml:"paths,omitempty"`
}

// blockSeparator ends every block in a log file
const blockSeparator = "---\n"

// FormatBlock renders the log block recorded for a commit. Continuation lines
// of a multi-line message are indented so they can never read as a hash line
// or a separator.
func FormatBlock(c *Commit) string {
	return fmt.Sprintf("Commit Hash: %s\nCommit Message: %s\nAuthor: %s\nCommit Date: %s\n%s",
		singleLine(c.Hash), indentContinuation(c.Message), singleLine(c.Author), singleLine(c.Date), blockSeparator)
}

func indentContinuation(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\n  ")
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func singleLine(s string) string {
	return lineBreaks.Replace(s)
}

// hashLine is the line that identifies a block in a log file
func hashLine(hash string) string {
	return "Commit Hash: " + hash + "\n"
}

// DeriveFileNames computes the distinct log file names for a set of changed
// paths, in first-seen order.
func DeriveFileNames(paths []string, naming NamingPolicy) []string {
	seen := make(map[string]bool)
	var names []string

	for _, p := range paths {
		p = strings.ReplaceAll(p, "\\", "/")
		var name string
		switch naming {
		case NamingPath:
			name = path.Clean(p)
			if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
				continue
			}
		default:
			name = path.Base(p)
		}

		if name == "" || name == "." || name == "/" || isGitPath(name) {
			continue
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	return names
}

func isGitPath(name string) bool {
	return name == ".git" || strings.HasPrefix(name, ".git/")
}

// Outcome describes what a run did with one commit
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// SummaryEntry records the result for one commit
type SummaryEntry struct {
	Hash      string   `json:"hash" yaml:"hash"`
	FileNames []string `json:"file_names,omitempty" yaml:"file_names,omitempty"`
	Message   string   `json:"message,omitempty" yaml:"message,omitempty"`
	Date      string   `json:"date,omitempty" yaml:"date,omitempty"`
	Outcome   Outcome  `json:"outcome" yaml:"outcome"`
	Reason    string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Summary accumulates the results of one pipeline run
type Summary struct {
	Committed int            `json:"committed" yaml:"committed"`
	Skipped   int            `json:"skipped" yaml:"skipped"`
	Failed    int            `json:"failed" yaml:"failed"`
	Entries   []SummaryEntry `json:"entries" yaml:"entries"`
}

// NewSummary creates an empty Summary
func NewSummary() *Summary {
	return &Summary{Entries: make([]SummaryEntry, 0)}
}

// Add records an entry and updates the counters
func (s *Summary) Add(entry SummaryEntry) {
	switch entry.Outcome {
	case OutcomeCommitted:
		s.Committed++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
	s.Entries = append(s.Entries, entry)
}

// CommittedEntries returns only the entries that produced a target commit
func (s *Summary) CommittedEntries() []SummaryEntry {
	var entries []SummaryEntry
	for _, e := range s.Entries {
		if e.Outcome == OutcomeCommitted {
			entries = append(entries, e)
		}
	}
	return entries
}
