package internal

import (
	"io"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLog(t *testing.T, fs billy.Filesystem, name string) string {
	t.Helper()
	f, err := fs.Open(name)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(data)
}

func TestLogWriter_AppendCreatesLog(t *testing.T) {
	fs := memfs.New()
	w := NewLogWriter(fs)
	c := CreateTestCommit("h1", "fix bug", "src/x.txt")

	lw, err := w.AppendIfAbsent("x.txt", c)
	require.NoError(t, err)

	assert.True(t, lw.Written)
	assert.True(t, lw.Created)
	assert.Equal(t, FormatBlock(c), readLog(t, fs, "x.txt"))
}

func TestLogWriter_AppendIsIdempotent(t *testing.T) {
	fs := memfs.New()
	w := NewLogWriter(fs)
	c := CreateTestCommit("h1", "fix bug")

	_, err := w.AppendIfAbsent("x.txt", c)
	require.NoError(t, err)

	lw, err := w.AppendIfAbsent("x.txt", c)
	require.NoError(t, err)

	assert.False(t, lw.Written)
	assert.Equal(t, FormatBlock(c), readLog(t, fs, "x.txt"))
}

func TestLogWriter_AppendKeepsExistingBlocks(t *testing.T) {
	fs := memfs.New()
	w := NewLogWriter(fs)
	first := CreateTestCommit("h1", "first")
	second := CreateTestCommit("h2", "second")

	_, err := w.AppendIfAbsent("x.txt", first)
	require.NoError(t, err)
	lw, err := w.AppendIfAbsent("x.txt", second)
	require.NoError(t, err)

	assert.True(t, lw.Written)
	assert.False(t, lw.Created)
	assert.Equal(t, FormatBlock(first)+FormatBlock(second), readLog(t, fs, "x.txt"))
}

func TestLogWriter_HashMatchIsLineAnchored(t *testing.T) {
	fs := memfs.New()
	w := NewLogWriter(fs)

	// A message mentioning the hash must not count as a record of it.
	require.NoError(t, util.WriteFile(fs, "x.txt", []byte("Commit Hash: h10\nCommit Message: see Commit Hash: h1 x\n---\n"), 0644))

	ok, err := w.Contains("x.txt", "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = w.Contains("x.txt", "h10")
	require.NoError(t, err)
	assert.True(t, ok)

	lw, err := w.AppendIfAbsent("x.txt", CreateTestCommit("h1", "real"))
	require.NoError(t, err)
	assert.True(t, lw.Written)
}

func TestLogWriter_ContainsMissingLog(t *testing.T) {
	w := NewLogWriter(memfs.New())

	ok, err := w.Contains("missing.txt", "h1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogWriter_NestedNames(t *testing.T) {
	fs := memfs.New()
	w := NewLogWriter(fs)
	c := CreateTestCommit("h1", "nested")

	_, err := w.AppendIfAbsent("a/b/util.go", c)
	require.NoError(t, err)

	assert.Equal(t, FormatBlock(c), readLog(t, fs, "a/b/util.go"))
}

func TestLogWriter_Rollback(t *testing.T) {
	t.Run("created log is removed", func(t *testing.T) {
		fs := memfs.New()
		w := NewLogWriter(fs)

		lw, err := w.AppendIfAbsent("x.txt", CreateTestCommit("h1", "msg"))
		require.NoError(t, err)
		require.NoError(t, w.Rollback(lw))

		_, err = fs.Stat("x.txt")
		assert.Error(t, err)
	})

	t.Run("appended log is truncated", func(t *testing.T) {
		fs := memfs.New()
		w := NewLogWriter(fs)
		first := CreateTestCommit("h1", "first")

		_, err := w.AppendIfAbsent("x.txt", first)
		require.NoError(t, err)
		lw, err := w.AppendIfAbsent("x.txt", CreateTestCommit("h2", "second"))
		require.NoError(t, err)
		require.NoError(t, w.Rollback(lw))

		assert.Equal(t, FormatBlock(first), readLog(t, fs, "x.txt"))
	})

	t.Run("no-op write", func(t *testing.T) {
		w := NewLogWriter(memfs.New())
		assert.NoError(t, w.Rollback(&LogWrite{Name: "x.txt"}))
		assert.NoError(t, w.Rollback(nil))
	})
}

func TestLogWriter_QuotedHashDoesNotCount(t *testing.T) {
	fs := memfs.New()
	w := NewLogWriter(fs)
	quoting := CreateTestCommit("h2", "copy of log\nCommit Hash: h1\nend")
	original := CreateTestCommit("h1", "original")

	_, err := w.AppendIfAbsent("x.txt", quoting)
	require.NoError(t, err)

	ok, err := w.Contains("x.txt", "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	lw, err := w.AppendIfAbsent("x.txt", original)
	require.NoError(t, err)
	assert.True(t, lw.Written)
	assert.Equal(t, FormatBlock(quoting)+FormatBlock(original), readLog(t, fs, "x.txt"))

	ok, err = w.Contains("x.txt", "h1")
	require.NoError(t, err)
	assert.True(t, ok)
}
