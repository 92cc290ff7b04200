package report

import (
	"io"

	"github.com/iksnae/commit-mirror/internal"
	"gopkg.in/yaml.v3"
)

// YAMLReporter prints the summary as YAML
type YAMLReporter struct{}

// Report writes the summary as YAML
func (r *YAMLReporter) Report(summary *internal.Summary, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(summary)
}

// Format returns the report format name
func (r *YAMLReporter) Format() string {
	return "yaml"
}
