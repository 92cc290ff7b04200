package report

import (
	"encoding/json"
	"io"

	"github.com/iksnae/commit-mirror/internal"
)

// JSONReporter prints the summary as pretty-printed JSON
type JSONReporter struct{}

// Report writes the summary as JSON
func (r *JSONReporter) Report(summary *internal.Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(summary)
}

// Format returns the report format name
func (r *JSONReporter) Format() string {
	return "json"
}
