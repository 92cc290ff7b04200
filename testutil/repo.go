package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// FixtureEpoch is the author time of the first commit made by a SourceRepo.
// Every further commit is one minute later.
var FixtureEpoch = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// SourceRepo is an on-disk repository built with go-git for tests
type SourceRepo struct {
	t     *testing.T
	Dir   string
	Repo  *git.Repository
	clock time.Time
}

// NewSourceRepo initializes an empty repository on branch main in a temp dir
func NewSourceRepo(t *testing.T) *SourceRepo {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName("main"),
		},
	})
	if err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}

	return &SourceRepo{t: t, Dir: dir, Repo: repo, clock: FixtureEpoch}
}

// Commit writes files (path -> content) and commits them on main.
// It returns the new commit hash.
func (r *SourceRepo) Commit(message, author string, files map[string]string) string {
	r.t.Helper()

	w, err := r.Repo.Worktree()
	if err != nil {
		r.t.Fatalf("Failed to open worktree: %v", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		WriteFile(r.t, filepath.Join(r.Dir, filepath.FromSlash(name)), files[name])
		if _, err := w.Add(name); err != nil {
			r.t.Fatalf("Failed to stage %s: %v", name, err)
		}
	}

	sig := &object.Signature{Name: author, Email: author + "@example.com", When: r.clock}
	r.clock = r.clock.Add(time.Minute)

	hash, err := w.Commit(message, &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: len(files) == 0,
	})
	if err != nil {
		r.t.Fatalf("Failed to commit %q: %v", message, err)
	}
	return hash.String()
}

// MarkPushed points refs/remotes/<remote>/main at hash
func (r *SourceRepo) MarkPushed(remote, hash string) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewRemoteReferenceName(remote, "main"), plumbing.NewHash(hash))
	if err := r.Repo.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("Failed to set %s: %v", ref.Name(), err)
	}
}

// Head returns the hash main points at
func (r *SourceRepo) Head() string {
	r.t.Helper()
	ref, err := r.Repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	if err != nil {
		r.t.Fatalf("Failed to resolve main: %v", err)
	}
	return ref.Hash().String()
}

// TargetCommit is a commit read back from a target repository
type TargetCommit struct {
	Message string
	Files   []string
}

// TargetHistory returns the commits of the repository in dir, oldest first.
// A repository without commits yields an empty history.
func TargetHistory(t *testing.T, dir string) []TargetCommit {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", dir, err)
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil
	}
	if err != nil {
		t.Fatalf("Failed to resolve HEAD in %s: %v", dir, err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		t.Fatalf("Failed to walk %s: %v", dir, err)
	}
	defer iter.Close()

	var history []TargetCommit
	err = iter.ForEach(func(c *object.Commit) error {
		stats, err := c.Stats()
		if err != nil {
			return err
		}
		files := make([]string, 0, len(stats))
		for _, s := range stats {
			files = append(files, s.Name)
		}
		sort.Strings(files)
		history = append([]TargetCommit{{Message: c.Message, Files: files}}, history...)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to read history of %s: %v", dir, err)
	}
	return history
}

// StagedFiles returns the paths in the index of dir that differ from HEAD
func StagedFiles(t *testing.T, dir string) []string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", dir, err)
	}
	w, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to open worktree of %s: %v", dir, err)
	}
	status, err := w.Status()
	if err != nil {
		t.Fatalf("Failed to read status of %s: %v", dir, err)
	}

	var staged []string
	for name, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			staged = append(staged, name)
		}
	}
	sort.Strings(staged)
	return staged
}

// RemoveAll deletes path, failing the test on error
func RemoveAll(t *testing.T, path string) {
	t.Helper()
	if err := os.RemoveAll(path); err != nil {
		t.Fatalf("Failed to remove %s: %v", path, err)
	}
}
