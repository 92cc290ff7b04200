package report

import (
	"fmt"
	"io"

	"github.com/iksnae/commit-mirror/internal"
)

// Reporter renders the summary of a mirror run
type Reporter interface {
	Report(summary *internal.Summary, w io.Writer) error
	Format() string
}

// NewReporter creates a new reporter based on format
func NewReporter(format string) (Reporter, error) {
	switch format {
	case "text", "":
		return &TextReporter{}, nil
	case "md", "markdown":
		return &MarkdownReporter{}, nil
	case "yaml":
		return &YAMLReporter{}, nil
	case "json":
		return &JSONReporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: text, md, yaml, json)", format)
	}
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
