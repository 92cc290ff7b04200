package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	fallbackName  = "commit-mirror"
	fallbackEmail = "commit-mirror@localhost"
)

// GoGit implements Backend in pure Go on top of go-git
type GoGit struct {
	identity Signature
	now      func() time.Time
}

// NewGoGit creates a Backend backed by go-git
func NewGoGit(opts Options) *GoGit {
	return &GoGit{
		identity: opts.Identity,
		now:      time.Now,
	}
}

func (g *GoGit) open(ctx context.Context, repo string) (*git.Repository, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := git.PlainOpen(repo)
	if err != nil {
		return nil, fmt.Errorf("unable to open repository located at %q: %w", repo, err)
	}
	return r, nil
}

func (g *GoGit) commit(ctx context.Context, repo, id string) (*object.Commit, error) {
	r, err := g.open(ctx, repo)
	if err != nil {
		return nil, err
	}
	hash, err := r.ResolveRevision(plumbing.Revision(id))
	if err != nil {
		return nil, fmt.Errorf("unknown revision %s: %w", id, err)
	}
	return r.CommitObject(*hash)
}

// ResolveReference implements Backend
func (g *GoGit) ResolveReference(ctx context.Context, repo, name string) (string, error) {
	r, err := g.open(ctx, repo)
	if err != nil {
		return "", err
	}
	hash, err := r.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return "", fmt.Errorf("unknown reference %s: %w", name, err)
	}
	return hash.String(), nil
}

// ListIDsBetween implements Backend
func (g *GoGit) ListIDsBetween(ctx context.Context, repo, from, to string) ([]string, error) {
	r, err := g.open(ctx, repo)
	if err != nil {
		return nil, err
	}

	// Everything reachable from the remote side is already synchronized.
	seen := make(map[plumbing.Hash]bool)
	base, err := r.Log(&git.LogOptions{From: plumbing.NewHash(from)})
	if err != nil {
		return nil, fmt.Errorf("unable to walk %s: %w", from, err)
	}
	err = base.ForEach(func(c *object.Commit) error {
		seen[c.Hash] = true
		return ctx.Err()
	})
	base.Close()
	if err != nil {
		return nil, err
	}

	head, err := r.Log(&git.LogOptions{
		From:  plumbing.NewHash(to),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to walk %s: %w", to, err)
	}
	defer head.Close()

	var ids []string
	err = head.ForEach(func(c *object.Commit) error {
		if !seen[c.Hash] {
			ids = append(ids, c.Hash.String())
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CommitMessage implements Backend
func (g *GoGit) CommitMessage(ctx context.Context, repo, id string) (string, error) {
	c, err := g.commit(ctx, repo, id)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(c.Message), nil
}

// CommitAuthor implements Backend
func (g *GoGit) CommitAuthor(ctx context.Context, repo, id string) (string, error) {
	c, err := g.commit(ctx, repo, id)
	if err != nil {
		return "", err
	}
	return c.Author.Name, nil
}

// CommitDate implements Backend
func (g *GoGit) CommitDate(ctx context.Context, repo, id string) (string, error) {
	c, err := g.commit(ctx, repo, id)
	if err != nil {
		return "", err
	}
	return c.Author.When.Format(DateLayout), nil
}

// ChangedPaths implements Backend
func (g *GoGit) ChangedPaths(ctx context.Context, repo, id string) ([]string, error) {
	c, err := g.commit(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if c.NumParents() > 1 {
		return nil, nil
	}

	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("unable to read tree of %s: %w", id, err)
	}

	var paths []string
	if c.NumParents() == 0 {
		err = tree.Files().ForEach(func(f *object.File) error {
			paths = append(paths, f.Name)
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(paths)
		return paths, nil
	}

	parent, err := c.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("unable to read parent of %s: %w", id, err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("unable to read tree of %s: %w", parent.Hash, err)
	}

	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, fmt.Errorf("unable to diff %s: %w", id, err)
	}

	unique := make(map[string]bool)
	for _, change := range changes {
		for _, name := range []string{change.From.Name, change.To.Name} {
			if name != "" && !unique[name] {
				unique[name] = true
				paths = append(paths, name)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// InitRepository implements Backend
func (g *GoGit) InitRepository(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	_, err := git.PlainInit(path, false)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		return nil
	}
	return err
}

// StageFile implements Backend
func (g *GoGit) StageFile(ctx context.Context, repo, path string) error {
	r, err := g.open(ctx, repo)
	if err != nil {
		return err
	}
	w, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("unable to open worktree: %w", err)
	}
	if _, err := w.Add(path); err != nil {
		return fmt.Errorf("unable to stage %s: %w", path, err)
	}
	return nil
}

// UnstageFile implements Backend
func (g *GoGit) UnstageFile(ctx context.Context, repo, path string) error {
	r, err := g.open(ctx, repo)
	if err != nil {
		return err
	}
	idx, err := r.Storer.Index()
	if err != nil {
		return fmt.Errorf("unable to read index: %w", err)
	}
	if _, err := idx.Remove(path); err != nil {
		if errors.Is(err, index.ErrEntryNotFound) {
			return nil
		}
		return fmt.Errorf("unable to unstage %s: %w", path, err)
	}
	return r.Storer.SetIndex(idx)
}

// CreateCommit implements Backend
func (g *GoGit) CreateCommit(ctx context.Context, repo, message string) (string, error) {
	r, err := g.open(ctx, repo)
	if err != nil {
		return "", err
	}
	w, err := r.Worktree()
	if err != nil {
		return "", fmt.Errorf("unable to open worktree: %w", err)
	}

	sig := g.signature()
	hash, err := w.Commit(message, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		return "", fmt.Errorf("unable to commit: %w", err)
	}
	return hash.String(), nil
}

// signature picks the configured identity, then the global git config,
// then a fixed fallback.
func (g *GoGit) signature() *object.Signature {
	sig := &object.Signature{
		Name:  g.identity.Name,
		Email: g.identity.Email,
		When:  g.now(),
	}
	if sig.Name == "" || sig.Email == "" {
		if cfg, err := config.LoadConfig(config.GlobalScope); err == nil {
			if sig.Name == "" {
				sig.Name = cfg.User.Name
			}
			if sig.Email == "" {
				sig.Email = cfg.User.Email
			}
		}
	}
	if sig.Name == "" {
		sig.Name = fallbackName
	}
	if sig.Email == "" {
		sig.Email = fallbackEmail
	}
	return sig
}
