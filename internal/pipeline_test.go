package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/commit-mirror/testutil"
)

const testDate = "Tue Jan 2 15:04:05 2024 +0000"

type pipelineFixture struct {
	backend *testutil.MockBackend
	cfg     *Config
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	return &pipelineFixture{
		backend: testutil.NewMockBackend(),
		cfg:     CreateTestConfig(t.TempDir(), filepath.Join(t.TempDir(), "target")),
	}
}

func (f *pipelineFixture) commit(id, message string, paths ...string) *Commit {
	f.backend.AddCommit(id, testutil.MockCommit{Message: message, Author: "Alice", Date: testDate, Paths: paths})
	return &Commit{Hash: id, Message: message, Author: "Alice", Date: testDate, Paths: paths}
}

func (f *pipelineFixture) run(t *testing.T, opts ...PipelineOption) *Summary {
	t.Helper()
	summary, err := NewPipeline(f.cfg, f.backend, opts...).Run(context.Background())
	require.NoError(t, err)
	return summary
}

func (f *pipelineFixture) log(t *testing.T, name string) string {
	t.Helper()
	return testutil.ReadFile(t, filepath.Join(f.cfg.NewDir, filepath.FromSlash(name)))
}

func TestPipeline_MirrorsNewCommits(t *testing.T) {
	f := newPipelineFixture(t)
	fix := f.commit("c1", "fix bug", "src/x.txt")
	feature := f.commit("c2", "add feature", "y.txt")

	summary := f.run(t)

	assert.Equal(t, 2, summary.Committed)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, FormatBlock(fix), f.log(t, "x.txt"))
	assert.Equal(t, FormatBlock(feature), f.log(t, "y.txt"))
	assert.Equal(t, []testutil.MockTargetCommit{
		{Message: "fix bug", Files: []string{"x.txt"}},
		{Message: "add feature", Files: []string{"y.txt"}},
	}, f.backend.TargetCommits())

	require.Len(t, summary.Entries, 2)
	assert.Equal(t, SummaryEntry{
		Hash:      "c1",
		FileNames: []string{"x.txt"},
		Message:   "fix bug",
		Date:      testDate,
		Outcome:   OutcomeCommitted,
	}, summary.Entries[0])
}

func TestPipeline_SecondRunChangesNothing(t *testing.T) {
	f := newPipelineFixture(t)
	f.commit("c1", "fix bug", "x.txt")
	f.commit("c2", "add feature", "y.txt")

	f.run(t)
	before := map[string]string{"x.txt": f.log(t, "x.txt"), "y.txt": f.log(t, "y.txt")}

	summary := f.run(t)

	assert.Zero(t, summary.Committed)
	assert.Equal(t, 2, summary.Skipped)
	for _, e := range summary.Entries {
		assert.Equal(t, "already recorded", e.Reason)
	}
	assert.Len(t, f.backend.TargetCommits(), 2)
	for name, content := range before {
		assert.Equal(t, content, f.log(t, name))
	}
}

func TestPipeline_OrderPolicy(t *testing.T) {
	tests := []struct {
		name  string
		order OrderPolicy
		want  []string
	}{
		{name: "chronological", order: OrderChronological, want: []string{"first", "second"}},
		{name: "resolver", order: OrderResolver, want: []string{"second", "first"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			f.cfg.Order = tt.order
			first := f.commit("c1", "first", "shared.txt")
			second := f.commit("c2", "second", "shared.txt")

			f.run(t)

			var got []string
			for _, c := range f.backend.TargetCommits() {
				got = append(got, c.Message)
			}
			assert.Equal(t, tt.want, got)

			blocks := map[string]string{"first": FormatBlock(first), "second": FormatBlock(second)}
			assert.Equal(t, blocks[tt.want[0]]+blocks[tt.want[1]], f.log(t, "shared.txt"))
		})
	}
}

func TestPipeline_MessageQuotingAnotherHash(t *testing.T) {
	f := newPipelineFixture(t)
	f.cfg.Order = OrderResolver
	original := f.commit("c1", "original", "x.txt")
	quoting := f.commit("c2", "copy of log\nCommit Hash: c1\nend", "x.txt")

	summary := f.run(t)

	assert.Equal(t, 2, summary.Committed)
	assert.Zero(t, summary.Skipped)
	assert.Equal(t, FormatBlock(quoting)+FormatBlock(original), f.log(t, "x.txt"))

	summary = f.run(t)
	assert.Zero(t, summary.Committed)
	assert.Equal(t, 2, summary.Skipped)
}

func TestPipeline_LogFilesystem(t *testing.T) {
	f := newPipelineFixture(t)
	c := f.commit("c1", "fix bug", "src/x.txt")
	fs := memfs.New()

	summary := f.run(t, WithLogFilesystem(fs))

	assert.Equal(t, 1, summary.Committed)
	assert.Equal(t, FormatBlock(c), readLog(t, fs, "x.txt"))
	assert.False(t, testutil.Exists(t, filepath.Join(f.cfg.NewDir, "x.txt")))
	assert.Equal(t, []testutil.MockTargetCommit{
		{Message: "fix bug", Files: []string{"x.txt"}},
	}, f.backend.TargetCommits())
}

func TestPipeline_MultiPathCommitIsOneTargetCommit(t *testing.T) {
	f := newPipelineFixture(t)
	c := f.commit("c1", "touch two", "a/one.txt", "b/two.txt")

	f.run(t)

	assert.Equal(t, FormatBlock(c), f.log(t, "one.txt"))
	assert.Equal(t, FormatBlock(c), f.log(t, "two.txt"))
	assert.Equal(t, []testutil.MockTargetCommit{
		{Message: "touch two", Files: []string{"one.txt", "two.txt"}},
	}, f.backend.TargetCommits())
}

func TestPipeline_PathNaming(t *testing.T) {
	f := newPipelineFixture(t)
	f.cfg.Naming = NamingPath
	c := f.commit("c1", "same basename", "a/util.go", "b/util.go")

	f.run(t)

	assert.Equal(t, FormatBlock(c), f.log(t, "a/util.go"))
	assert.Equal(t, FormatBlock(c), f.log(t, "b/util.go"))
}

func TestPipeline_NoChangedFilesIsSkipped(t *testing.T) {
	f := newPipelineFixture(t)
	f.commit("merge", "Merge branch 'topic'")

	summary := f.run(t)

	require.Len(t, summary.Entries, 1)
	assert.Equal(t, OutcomeSkipped, summary.Entries[0].Outcome)
	assert.Equal(t, "no changed files", summary.Entries[0].Reason)
	assert.Empty(t, f.backend.TargetCommits())
	assert.Empty(t, testutil.ListFiles(t, f.cfg.NewDir))
}

func TestPipeline_ExtractionFailureIsIsolated(t *testing.T) {
	f := newPipelineFixture(t)
	f.commit("bad", "broken", "bad.txt")
	good := f.commit("good", "works", "good.txt")
	f.backend.Fail("author", "bad")

	summary := f.run(t)

	assert.Equal(t, 1, summary.Committed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, OutcomeFailed, summary.Entries[0].Outcome)
	assert.Contains(t, summary.Entries[0].Reason, "author")
	assert.Equal(t, FormatBlock(good), f.log(t, "good.txt"))
	assert.False(t, testutil.Exists(t, filepath.Join(f.cfg.NewDir, "bad.txt")))
}

func TestPipeline_CommitFailureRollsBack(t *testing.T) {
	f := newPipelineFixture(t)
	earlier := f.commit("c0", "earlier", "x.txt")
	f.run(t)
	before := f.log(t, "x.txt")

	c := f.commit("c1", "change both", "x.txt", "new.txt")
	f.backend.Fail("commit", "*")

	summary := f.run(t)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, before, f.log(t, "x.txt"))
	assert.Equal(t, FormatBlock(earlier), before)
	assert.False(t, testutil.Exists(t, filepath.Join(f.cfg.NewDir, "new.txt")))
	assert.NotContains(t, f.backend.StagedFiles(), "new.txt")
	assert.Equal(t, 1, f.backend.CallCount("unstage"))

	// The next run retries the commit from scratch.
	delete(f.backend.FailOn, "commit")
	summary = f.run(t)

	assert.Equal(t, 1, summary.Committed)
	assert.Equal(t, FormatBlock(earlier)+FormatBlock(c), f.log(t, "x.txt"))
	assert.Equal(t, FormatBlock(c), f.log(t, "new.txt"))
}

func TestPipeline_ResolutionFailureAbortsRun(t *testing.T) {
	f := newPipelineFixture(t)
	f.commit("c1", "fix bug", "x.txt")
	delete(f.backend.Refs, "origin/main")

	summary, err := NewPipeline(f.cfg, f.backend).Run(context.Background())

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Empty(t, summary.Entries)
	assert.Empty(t, f.backend.TargetCommits())
}

func TestPipeline_CancelledContext(t *testing.T) {
	f := newPipelineFixture(t)
	f.commit("c1", "fix bug", "x.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(f.cfg, f.backend).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.backend.TargetCommits())
}

func TestPipeline_Ledger(t *testing.T) {
	f := newPipelineFixture(t)
	f.commit("c1", "fix bug", "x.txt")

	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer ledger.Close()

	f.run(t, WithLedger(ledger))
	queries := f.backend.CallCount("message")

	summary := f.run(t, WithLedger(ledger))
	require.Len(t, summary.Entries, 1)
	assert.Equal(t, "already mirrored", summary.Entries[0].Reason)
	assert.Equal(t, queries, f.backend.CallCount("message"), "ledger hit should skip extraction")

	// A log removed behind our back invalidates the ledger hint.
	require.NoError(t, os.Remove(filepath.Join(f.cfg.NewDir, "x.txt")))
	summary = f.run(t, WithLedger(ledger))
	assert.Equal(t, 1, summary.Committed)
	assert.Len(t, f.backend.TargetCommits(), 2)
}

func TestPipeline_LedgerFollowsNamingPolicy(t *testing.T) {
	f := newPipelineFixture(t)
	c := f.commit("c1", "fix bug", "src/x.txt")

	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer ledger.Close()

	f.run(t, WithLedger(ledger))
	assert.Equal(t, FormatBlock(c), f.log(t, "x.txt"))

	f.cfg.Naming = NamingPath
	summary := f.run(t, WithLedger(ledger))

	assert.Equal(t, 1, summary.Committed)
	assert.Equal(t, FormatBlock(c), f.log(t, "src/x.txt"))

	summary = f.run(t, WithLedger(ledger))
	require.Len(t, summary.Entries, 1)
	assert.Equal(t, "already mirrored", summary.Entries[0].Reason)
}
