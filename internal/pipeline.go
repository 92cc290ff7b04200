package internal

import (
	"context"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/iksnae/commit-mirror/internal/vcs"
)

// Pipeline runs one resolution cycle: resolve new commits, then extract,
// dedup-write and commit each of them in turn.
type Pipeline struct {
	sourceDir string
	targetDir string
	order     OrderPolicy
	naming    NamingPolicy

	resolver  *Resolver
	extractor *Extractor
	writer    *LogWriter
	committer *Committer
	ledger    *Ledger
	now       func() time.Time
}

// PipelineOption customizes a Pipeline
type PipelineOption func(*Pipeline)

// WithLedger enables the mirror ledger hint
func WithLedger(l *Ledger) PipelineOption {
	return func(p *Pipeline) {
		p.ledger = l
	}
}

// WithLogFilesystem replaces the filesystem the logs are written to
func WithLogFilesystem(fs billy.Filesystem) PipelineOption {
	return func(p *Pipeline) {
		p.writer = NewLogWriter(fs)
	}
}

// NewPipeline creates a Pipeline for the directories and policies in cfg
func NewPipeline(cfg *Config, backend vcs.Backend, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		sourceDir: cfg.SourceDir,
		targetDir: cfg.NewDir,
		order:     cfg.Order,
		naming:    cfg.Naming,
		resolver:  NewResolver(backend, cfg.LocalRef(), cfg.RemoteRef()),
		extractor: NewExtractor(backend),
		writer:    NewLogWriter(osfs.New(cfg.NewDir)),
		committer: NewCommitter(backend),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one cycle. Initialization and resolution failures abort the
// cycle; failures for a single commit are recorded in the Summary and the
// cycle moves on to the next commit.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := NewSummary()

	if err := p.committer.EnsureInitialized(ctx, p.targetDir); err != nil {
		return summary, err
	}

	ids, err := p.resolver.Resolve(ctx, p.sourceDir)
	if err != nil {
		return summary, err
	}
	ids = orderIDs(ids, p.order)

	LogInfo("%d new commit(s) to mirror from %s", len(ids), p.sourceDir)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Add(p.process(ctx, id))
	}

	return summary, nil
}

func (p *Pipeline) process(ctx context.Context, id string) SummaryEntry {
	entry := SummaryEntry{Hash: id}

	if p.alreadyMirrored(id) {
		LogDebug("Skipping %s: recorded in ledger and present in logs", shortHash(id))
		entry.Outcome = OutcomeSkipped
		entry.Reason = "already mirrored"
		return entry
	}

	commit, err := p.extractor.Extract(ctx, p.sourceDir, id)
	if err != nil {
		LogWarn("Skipping commit: %v", err)
		entry.Outcome = OutcomeFailed
		entry.Reason = err.Error()
		return entry
	}
	entry.Message = commit.Message
	entry.Date = commit.Date

	names := DeriveFileNames(commit.Paths, p.naming)
	if len(names) == 0 {
		LogDebug("Skipping %s: no changed files", shortHash(id))
		entry.Outcome = OutcomeSkipped
		entry.Reason = "no changed files"
		return entry
	}
	entry.FileNames = names

	var writes []*LogWrite
	for _, name := range names {
		lw, err := p.writer.AppendIfAbsent(name, commit)
		if err != nil {
			LogError("Failed to record %s: %v", shortHash(id), err)
			p.rollback(ctx, writes, false)
			entry.Outcome = OutcomeFailed
			entry.Reason = err.Error()
			return entry
		}
		if lw.Written {
			writes = append(writes, lw)
		}
	}

	if len(writes) == 0 {
		p.record(id, names)
		entry.Outcome = OutcomeSkipped
		entry.Reason = "already recorded"
		return entry
	}

	written := make([]string, 0, len(writes))
	for _, lw := range writes {
		written = append(written, lw.Name)
	}

	if _, err := p.committer.CommitFiles(ctx, p.targetDir, written, commit.Message); err != nil {
		LogError("Failed to commit %s: %v", shortHash(id), err)
		p.rollback(ctx, writes, true)
		entry.Outcome = OutcomeFailed
		entry.Reason = err.Error()
		return entry
	}

	p.record(id, names)
	LogInfo("%s | %s - %s", commit.Date, strings.Join(written, ", "), commit.Message)

	entry.FileNames = written
	entry.Outcome = OutcomeCommitted
	return entry
}

// rollback undoes the log writes of a commit, newest first. When the files
// may have been staged the index is restored as well.
func (p *Pipeline) rollback(ctx context.Context, writes []*LogWrite, staged bool) {
	for i := len(writes) - 1; i >= 0; i-- {
		lw := writes[i]
		if err := p.writer.Rollback(lw); err != nil {
			LogError("Failed to roll back %s: %v", lw.Name, err)
			continue
		}
		if !staged {
			continue
		}
		if err := p.committer.Restore(ctx, p.targetDir, lw.Name, lw.Created); err != nil {
			LogError("Failed to restore index for %s: %v", lw.Name, err)
		}
	}
}

func (p *Pipeline) alreadyMirrored(id string) bool {
	if p.ledger == nil {
		return false
	}

	names, err := p.ledger.DerivedNames(id, p.naming)
	if err != nil {
		LogWarn("Ledger lookup failed: %v", err)
		return false
	}
	if len(names) == 0 {
		return false
	}

	for _, name := range names {
		ok, err := p.writer.Contains(name, id)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func (p *Pipeline) record(id string, names []string) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.Record(id, p.naming, names, p.now()); err != nil {
		LogWarn("Ledger update failed: %v", err)
	}
}
