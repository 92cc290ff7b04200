package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/commit-mirror/internal/vcs"
)

// Committer records log changes as commits in the target repository
type Committer struct {
	backend vcs.Backend
}

// NewCommitter creates a new Committer
func NewCommitter(backend vcs.Backend) *Committer {
	return &Committer{backend: backend}
}

// EnsureInitialized initializes a repository in dir unless one is already there
func (c *Committer) EnsureInitialized(ctx context.Context, dir string) error {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err == nil && info.IsDir() {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return &CommitError{Dir: dir, Err: err}
	}

	LogInfo("Initializing git repository in %s", dir)
	if err := c.backend.InitRepository(ctx, dir); err != nil {
		return &CommitError{Dir: dir, Err: fmt.Errorf("init failed: %w", err)}
	}
	return nil
}

// CommitFile stages exactly one file and commits it with message
func (c *Committer) CommitFile(ctx context.Context, dir, name, message string) (string, error) {
	return c.CommitFiles(ctx, dir, []string{name}, message)
}

// CommitFiles stages exactly the named files and creates one commit
func (c *Committer) CommitFiles(ctx context.Context, dir string, names []string, message string) (string, error) {
	if len(names) == 0 {
		return "", &CommitError{Dir: dir, Err: fmt.Errorf("nothing to commit")}
	}

	for _, name := range names {
		if err := c.backend.StageFile(ctx, dir, name); err != nil {
			return "", &CommitError{Dir: dir, Files: names, Err: fmt.Errorf("stage %s: %w", name, err)}
		}
	}

	id, err := c.backend.CreateCommit(ctx, dir, message)
	if err != nil {
		return "", &CommitError{Dir: dir, Files: names, Err: err}
	}
	return id, nil
}

// Restore re-synchronizes the index with a rolled-back log file so that a
// failed commit leaves nothing staged behind.
func (c *Committer) Restore(ctx context.Context, dir, name string, created bool) error {
	var err error
	if created {
		err = c.backend.UnstageFile(ctx, dir, name)
	} else {
		err = c.backend.StageFile(ctx, dir, name)
	}
	if err != nil {
		return &CommitError{Dir: dir, Files: []string{name}, Err: fmt.Errorf("restore index: %w", err)}
	}
	return nil
}
