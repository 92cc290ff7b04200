package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/commit-mirror/testutil"
)

var testIdentity = Signature{Name: "Mirror Bot", Email: "bot@example.com"}

// forEachBackend runs fn against every Backend implementation. The git CLI
// backend is skipped when git is not installed.
func forEachBackend(t *testing.T, fn func(t *testing.T, b Backend)) {
	t.Run("go-git", func(t *testing.T) {
		fn(t, NewGoGit(Options{Identity: testIdentity}))
	})
	t.Run("git", func(t *testing.T) {
		if _, err := exec.LookPath("git"); err != nil {
			t.Skip("git not installed")
		}
		fn(t, NewGitCLI(Options{Identity: testIdentity}))
	})
}

type sourceFixture struct {
	repo  *testutil.SourceRepo
	base  string
	first string
	last  string
}

// newSourceFixture builds base (pushed) <- fix bug <- add feature (local only)
func newSourceFixture(t *testing.T) *sourceFixture {
	t.Helper()
	repo := testutil.NewSourceRepo(t)
	base := repo.Commit("initial", "Alice", map[string]string{"README.md": "hello\n", "src/main.go": "package main\n"})
	repo.MarkPushed("origin", base)
	first := repo.Commit("fix bug", "Alice", map[string]string{"src/x.txt": "fixed\n"})
	last := repo.Commit("add feature\n\nWith a body.", "Bob", map[string]string{"y.txt": "feature\n", "src/x.txt": "fixed again\n"})
	return &sourceFixture{repo: repo, base: base, first: first, last: last}
}

func TestBackend_ResolveReference(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		f := newSourceFixture(t)
		ctx := context.Background()

		local, err := b.ResolveReference(ctx, f.repo.Dir, "main")
		require.NoError(t, err)
		assert.Equal(t, f.last, local)

		remote, err := b.ResolveReference(ctx, f.repo.Dir, "origin/main")
		require.NoError(t, err)
		assert.Equal(t, f.base, remote)

		_, err = b.ResolveReference(ctx, f.repo.Dir, "upstream/main")
		assert.Error(t, err)
	})
}

func TestBackend_ListIDsBetween(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		f := newSourceFixture(t)

		ids, err := b.ListIDsBetween(context.Background(), f.repo.Dir, f.base, f.last)
		require.NoError(t, err)
		assert.Equal(t, []string{f.last, f.first}, ids)

		ids, err = b.ListIDsBetween(context.Background(), f.repo.Dir, f.last, f.last)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestBackend_CommitMetadata(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		f := newSourceFixture(t)
		ctx := context.Background()

		message, err := b.CommitMessage(ctx, f.repo.Dir, f.last)
		require.NoError(t, err)
		assert.Equal(t, "add feature\n\nWith a body.", message)

		author, err := b.CommitAuthor(ctx, f.repo.Dir, f.last)
		require.NoError(t, err)
		assert.Equal(t, "Bob", author)

		date, err := b.CommitDate(ctx, f.repo.Dir, f.first)
		require.NoError(t, err)
		assert.Equal(t, "Tue Jan 2 15:05:05 2024 +0000", date)

		_, err = b.CommitMessage(ctx, f.repo.Dir, "0000000000000000000000000000000000000000")
		assert.Error(t, err)
	})
}

func TestBackend_ChangedPaths(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		f := newSourceFixture(t)
		ctx := context.Background()

		paths, err := b.ChangedPaths(ctx, f.repo.Dir, f.last)
		require.NoError(t, err)
		assert.Equal(t, []string{"src/x.txt", "y.txt"}, paths)

		paths, err = b.ChangedPaths(ctx, f.repo.Dir, f.base)
		require.NoError(t, err)
		assert.Equal(t, []string{"README.md", "src/main.go"}, paths)
	})
}

func TestBackend_TargetOperations(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		dir := filepath.Join(t.TempDir(), "target")

		require.NoError(t, b.InitRepository(ctx, dir))
		assert.DirExists(t, filepath.Join(dir, ".git"))
		// Initializing twice is harmless.
		require.NoError(t, b.InitRepository(ctx, dir))

		testutil.WriteFile(t, filepath.Join(dir, "x.txt"), "Commit Hash: abc\n")
		testutil.WriteFile(t, filepath.Join(dir, "untracked.txt"), "left alone\n")
		require.NoError(t, b.StageFile(ctx, dir, "x.txt"))

		id, err := b.CreateCommit(ctx, dir, "fix bug")
		require.NoError(t, err)
		assert.Len(t, id, 40)

		history := testutil.TargetHistory(t, dir)
		require.Len(t, history, 1)
		assert.Equal(t, "fix bug", trimMessage(history[0].Message))
		assert.Equal(t, []string{"x.txt"}, history[0].Files)

		// Nothing staged.
		_, err = b.CreateCommit(ctx, dir, "empty")
		assert.Error(t, err)
	})
}

func TestBackend_UnstageFile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		dir := t.TempDir()
		require.NoError(t, b.InitRepository(ctx, dir))

		testutil.WriteFile(t, filepath.Join(dir, "base.txt"), "base\n")
		require.NoError(t, b.StageFile(ctx, dir, "base.txt"))
		_, err := b.CreateCommit(ctx, dir, "base")
		require.NoError(t, err)

		testutil.WriteFile(t, filepath.Join(dir, "new.txt"), "new\n")
		require.NoError(t, b.StageFile(ctx, dir, "new.txt"))
		assert.Equal(t, []string{"new.txt"}, testutil.StagedFiles(t, dir))

		require.NoError(t, os.Remove(filepath.Join(dir, "new.txt")))
		require.NoError(t, b.UnstageFile(ctx, dir, "new.txt"))
		assert.Empty(t, testutil.StagedFiles(t, dir))

		// Unknown paths are ignored.
		require.NoError(t, b.UnstageFile(ctx, dir, "never-added.txt"))
	})
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend("git", Options{})
	require.NoError(t, err)
	assert.IsType(t, &GitCLI{}, b)

	b, err = NewBackend("", Options{})
	require.NoError(t, err)
	assert.IsType(t, &GitCLI{}, b)

	b, err = NewBackend("go-git", Options{})
	require.NoError(t, err)
	assert.IsType(t, &GoGit{}, b)

	_, err = NewBackend("hg", Options{})
	assert.Error(t, err)
}

func trimMessage(s string) string {
	for len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	return s
}
