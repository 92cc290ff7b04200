package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/commit-mirror/internal"
)

// MarkdownReporter prints the summary as a Markdown table
type MarkdownReporter struct{}

// Report writes the summary as Markdown
func (r *MarkdownReporter) Report(summary *internal.Summary, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# Mirror Summary\n\n")
	_, _ = fmt.Fprintf(w, "**Committed:** %d  \n", summary.Committed)
	_, _ = fmt.Fprintf(w, "**Skipped:** %d  \n", summary.Skipped)
	_, _ = fmt.Fprintf(w, "**Failed:** %d\n\n", summary.Failed)

	if len(summary.Entries) == 0 {
		_, err := fmt.Fprintf(w, "No new commits.\n")
		return err
	}

	_, _ = fmt.Fprintf(w, "| Commit | Outcome | Files | Message |\n")
	_, _ = fmt.Fprintf(w, "|---|---|---|---|\n")
	for _, e := range summary.Entries {
		message := firstLine(e.Message)
		if e.Outcome != internal.OutcomeCommitted && e.Reason != "" {
			message = e.Reason
		}
		if _, err := fmt.Fprintf(w, "| `%s` | %s | %s | %s |\n",
			shortHash(e.Hash), e.Outcome, escapeCell(strings.Join(e.FileNames, ", ")), escapeCell(message)); err != nil {
			return err
		}
	}

	return nil
}

// Format returns the report format name
func (r *MarkdownReporter) Format() string {
	return "md"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
