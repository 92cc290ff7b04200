// Package vcs abstracts the version-control operations the mirror needs.
//
// The default implementation shells out to the git executable. A pure-Go
// implementation backed by go-git is available for hosts without git installed.
// Every operation takes the repository path explicitly; no implementation
// changes the process working directory.
package vcs

import (
	"context"
	"fmt"
	"time"
)

// DateLayout is git's default %ad rendering
const DateLayout = "Mon Jan 2 15:04:05 2006 -0700"

// Backend defines the version-control collaborator
type Backend interface {
	// ResolveReference returns the commit id a reference name points at
	ResolveReference(ctx context.Context, repo, name string) (string, error)
	// ListIDsBetween returns ids reachable from to but not from from, newest first
	ListIDsBetween(ctx context.Context, repo, from, to string) ([]string, error)

	CommitMessage(ctx context.Context, repo, id string) (string, error)
	CommitAuthor(ctx context.Context, repo, id string) (string, error)
	CommitDate(ctx context.Context, repo, id string) (string, error)
	// ChangedPaths lists repository-relative paths changed by a commit.
	// Merge commits report no paths.
	ChangedPaths(ctx context.Context, repo, id string) ([]string, error)

	InitRepository(ctx context.Context, path string) error
	StageFile(ctx context.Context, repo, path string) error
	// UnstageFile removes a path from the index without touching the worktree
	UnstageFile(ctx context.Context, repo, path string) error
	// CreateCommit commits the index and returns the new commit id
	CreateCommit(ctx context.Context, repo, message string) (string, error)
}

// Signature is an optional identity used for commits created by a backend
type Signature struct {
	Name  string
	Email string
}

// IsZero reports whether no identity was configured
func (s Signature) IsZero() bool {
	return s.Name == "" && s.Email == ""
}

// Options configures backend construction
type Options struct {
	// Identity overrides the author/committer of target commits
	Identity Signature
	// CommandTimeout bounds each git invocation; zero means no limit
	CommandTimeout time.Duration
}

// NewBackend creates a backend by name
func NewBackend(kind string, opts Options) (Backend, error) {
	switch kind {
	case "git", "":
		return NewGitCLI(opts), nil
	case "go-git":
		return NewGoGit(opts), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: git, go-git)", kind)
	}
}
