package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/commit-mirror/internal"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	committedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// TextReporter prints a human-readable summary, styled on terminals
type TextReporter struct{}

// Report writes the summary as text
func (r *TextReporter) Report(summary *internal.Summary, w io.Writer) error {
	styled := internal.IsTerminal(w)
	render := func(style lipgloss.Style, s string) string {
		if styled {
			return style.Render(s)
		}
		return s
	}

	committed := summary.CommittedEntries()
	if _, err := fmt.Fprintln(w, render(headerStyle, fmt.Sprintf("%d New Commits Added", len(committed)))); err != nil {
		return err
	}

	for _, e := range committed {
		line := fmt.Sprintf("  %s | %s - %s", e.Date, strings.Join(e.FileNames, ", "), firstLine(e.Message))
		if _, err := fmt.Fprintln(w, render(committedStyle, line)); err != nil {
			return err
		}
	}

	for _, e := range summary.Entries {
		if e.Outcome != internal.OutcomeFailed {
			continue
		}
		line := fmt.Sprintf("  failed %s: %s", shortHash(e.Hash), e.Reason)
		if _, err := fmt.Fprintln(w, render(failedStyle, line)); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Committed: %d, Skipped: %d, Failed: %d\n", summary.Committed, summary.Skipped, summary.Failed)
	return err
}

// Format returns the report format name
func (r *TextReporter) Format() string {
	return "text"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
