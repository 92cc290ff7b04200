package internal

import (
	"context"

	"github.com/iksnae/commit-mirror/internal/vcs"
)

// Extractor reads commit metadata from the backend
type Extractor struct {
	backend vcs.Backend
}

// NewExtractor creates a new Extractor
func NewExtractor(backend vcs.Backend) *Extractor {
	return &Extractor{backend: backend}
}

// Extract fetches message, author, date and changed paths for one commit.
// Any failing query fails the whole extraction.
func (e *Extractor) Extract(ctx context.Context, repo, id string) (*Commit, error) {
	message, err := e.backend.CommitMessage(ctx, repo, id)
	if err != nil {
		return nil, &ExtractionError{ID: id, Field: "message", Err: err}
	}

	author, err := e.backend.CommitAuthor(ctx, repo, id)
	if err != nil {
		return nil, &ExtractionError{ID: id, Field: "author", Err: err}
	}

	date, err := e.backend.CommitDate(ctx, repo, id)
	if err != nil {
		return nil, &ExtractionError{ID: id, Field: "date", Err: err}
	}

	paths, err := e.backend.ChangedPaths(ctx, repo, id)
	if err != nil {
		return nil, &ExtractionError{ID: id, Field: "paths", Err: err}
	}

	return &Commit{
		Hash:    id,
		Message: message,
		Author:  author,
		Date:    date,
		Paths:   paths,
	}, nil
}
