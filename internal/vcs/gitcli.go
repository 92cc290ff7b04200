package vcs

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// GitCLI implements Backend by invoking the git executable
type GitCLI struct {
	git      *runner
	identity Signature
}

// NewGitCLI creates a Backend that shells out to git
func NewGitCLI(opts Options) *GitCLI {
	return &GitCLI{
		// Optional locks would let read-only queries touch the source .git
		// directory and re-trigger the watcher.
		git:      newRunner("git", opts.CommandTimeout, "GIT_OPTIONAL_LOCKS=0", "GIT_TERMINAL_PROMPT=0"),
		identity: opts.Identity,
	}
}

func (g *GitCLI) output(ctx context.Context, repo string, args ...string) (string, error) {
	res, err := g.git.run(ctx, repo, args...)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// ResolveReference implements Backend
func (g *GitCLI) ResolveReference(ctx context.Context, repo, name string) (string, error) {
	out, err := g.output(ctx, repo, "rev-parse", "--verify", "--quiet", name+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("unknown reference %s: %w", name, err)
	}
	id := strings.TrimSpace(out)
	if id == "" {
		return "", fmt.Errorf("unknown reference %s", name)
	}
	return id, nil
}

// ListIDsBetween implements Backend
func (g *GitCLI) ListIDsBetween(ctx context.Context, repo, from, to string) ([]string, error) {
	out, err := g.output(ctx, repo, "rev-list", from+".."+to)
	if err != nil {
		return nil, err
	}
	return splitNonEmpty(out, "\n"), nil
}

func (g *GitCLI) logField(ctx context.Context, repo, id, format string) (string, error) {
	out, err := g.output(ctx, repo, "log", "-n", "1", "--date=default", "--format="+format, id, "--")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CommitMessage implements Backend
func (g *GitCLI) CommitMessage(ctx context.Context, repo, id string) (string, error) {
	return g.logField(ctx, repo, id, "%B")
}

// CommitAuthor implements Backend
func (g *GitCLI) CommitAuthor(ctx context.Context, repo, id string) (string, error) {
	return g.logField(ctx, repo, id, "%an")
}

// CommitDate implements Backend
func (g *GitCLI) CommitDate(ctx context.Context, repo, id string) (string, error) {
	return g.logField(ctx, repo, id, "%ad")
}

// ChangedPaths implements Backend
func (g *GitCLI) ChangedPaths(ctx context.Context, repo, id string) ([]string, error) {
	out, err := g.output(ctx, repo, "diff-tree", "--no-commit-id", "--name-only", "-r", "-z", "--root", id, "--")
	if err != nil {
		return nil, err
	}
	return splitNonEmpty(out, "\x00"), nil
}

// InitRepository implements Backend
func (g *GitCLI) InitRepository(ctx context.Context, path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	_, err := g.output(ctx, path, "init", "-q")
	return err
}

// StageFile implements Backend
func (g *GitCLI) StageFile(ctx context.Context, repo, path string) error {
	_, err := g.output(ctx, repo, "add", "--", path)
	return err
}

// UnstageFile implements Backend
func (g *GitCLI) UnstageFile(ctx context.Context, repo, path string) error {
	_, err := g.output(ctx, repo, "rm", "--cached", "-q", "--ignore-unmatch", "--", path)
	return err
}

// CreateCommit implements Backend
func (g *GitCLI) CreateCommit(ctx context.Context, repo, message string) (string, error) {
	var args []string
	if g.identity.Name != "" {
		args = append(args, "-c", "user.name="+g.identity.Name)
	}
	if g.identity.Email != "" {
		args = append(args, "-c", "user.email="+g.identity.Email)
	}
	args = append(args, "commit", "-q", "--allow-empty-message", "-m", message)

	if _, err := g.output(ctx, repo, args...); err != nil {
		return "", err
	}
	return g.ResolveReference(ctx, repo, "HEAD")
}

func splitNonEmpty(s, sep string) []string {
	var parts []string
	for _, part := range strings.Split(s, sep) {
		if sep != "\x00" {
			part = strings.TrimSpace(part)
		}
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
