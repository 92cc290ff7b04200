package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrInjected is returned by MockBackend operations configured to fail
var ErrInjected = errors.New("injected failure")

// MockCommit is a scripted source commit
type MockCommit struct {
	Message string
	Author  string
	Date    string
	Paths   []string
}

// MockTargetCommit is a commit recorded by MockBackend.CreateCommit
type MockTargetCommit struct {
	Message string
	Files   []string
}

// MockBackend is a scripted, in-memory version-control backend. Source
// queries are answered from Refs, Pending and Commits; target operations
// create real directories but only record staging and commits in memory.
type MockBackend struct {
	mu sync.Mutex

	Refs    map[string]string
	Pending []string // returned by ListIDsBetween, newest first
	Commits map[string]MockCommit

	// FailOn makes an operation fail for an id ("message", "author", "date",
	// "paths") or for every call ("resolve", "list", "init", "stage",
	// "unstage", "commit") when the id is "*".
	FailOn map[string]map[string]bool

	Calls   []string
	Staged  []string
	Created []MockTargetCommit
}

// NewMockBackend creates a MockBackend where main is ahead of origin/main
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Refs: map[string]string{
			"main":        "local-head",
			"origin/main": "remote-head",
		},
		Commits: make(map[string]MockCommit),
		FailOn:  make(map[string]map[string]bool),
	}
}

// AddCommit scripts a new commit on top of the pending list
func (m *MockBackend) AddCommit(id string, c MockCommit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commits[id] = c
	m.Pending = append([]string{id}, m.Pending...)
}

// Fail makes op fail for id ("*" for every call)
func (m *MockBackend) Fail(op, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOn[op] == nil {
		m.FailOn[op] = make(map[string]bool)
	}
	m.FailOn[op][id] = true
}

// CallCount returns how many times op was called
func (m *MockBackend) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == op {
			n++
		}
	}
	return n
}

// TargetCommits returns a copy of the commits created so far
func (m *MockBackend) TargetCommits() []MockTargetCommit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockTargetCommit, len(m.Created))
	copy(out, m.Created)
	return out
}

// StagedFiles returns a copy of the current index
func (m *MockBackend) StagedFiles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Staged))
	copy(out, m.Staged)
	return out
}

func (m *MockBackend) call(op, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, op)
	if m.FailOn[op]["*"] || (id != "" && m.FailOn[op][id]) {
		return fmt.Errorf("%s %s: %w", op, id, ErrInjected)
	}
	return nil
}

func (m *MockBackend) lookup(id string) (MockCommit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Commits[id]
	if !ok {
		return MockCommit{}, fmt.Errorf("unknown commit %s", id)
	}
	return c, nil
}

// ResolveReference implements vcs.Backend
func (m *MockBackend) ResolveReference(ctx context.Context, repo, name string) (string, error) {
	if err := m.call("resolve", name); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.Refs[name]
	if !ok {
		return "", fmt.Errorf("unknown reference %s", name)
	}
	return id, nil
}

// ListIDsBetween implements vcs.Backend
func (m *MockBackend) ListIDsBetween(ctx context.Context, repo, from, to string) ([]string, error) {
	if err := m.call("list", ""); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.Pending))
	copy(ids, m.Pending)
	return ids, nil
}

// CommitMessage implements vcs.Backend
func (m *MockBackend) CommitMessage(ctx context.Context, repo, id string) (string, error) {
	if err := m.call("message", id); err != nil {
		return "", err
	}
	c, err := m.lookup(id)
	return c.Message, err
}

// CommitAuthor implements vcs.Backend
func (m *MockBackend) CommitAuthor(ctx context.Context, repo, id string) (string, error) {
	if err := m.call("author", id); err != nil {
		return "", err
	}
	c, err := m.lookup(id)
	return c.Author, err
}

// CommitDate implements vcs.Backend
func (m *MockBackend) CommitDate(ctx context.Context, repo, id string) (string, error) {
	if err := m.call("date", id); err != nil {
		return "", err
	}
	c, err := m.lookup(id)
	return c.Date, err
}

// ChangedPaths implements vcs.Backend
func (m *MockBackend) ChangedPaths(ctx context.Context, repo, id string) ([]string, error) {
	if err := m.call("paths", id); err != nil {
		return nil, err
	}
	c, err := m.lookup(id)
	return c.Paths, err
}

// InitRepository implements vcs.Backend by creating path/.git
func (m *MockBackend) InitRepository(ctx context.Context, path string) error {
	if err := m.call("init", ""); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(path, ".git"), 0755)
}

// StageFile implements vcs.Backend
func (m *MockBackend) StageFile(ctx context.Context, repo, path string) error {
	if err := m.call("stage", path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Staged {
		if s == path {
			return nil
		}
	}
	m.Staged = append(m.Staged, path)
	return nil
}

// UnstageFile implements vcs.Backend
func (m *MockBackend) UnstageFile(ctx context.Context, repo, path string) error {
	if err := m.call("unstage", path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Staged[:0]
	for _, s := range m.Staged {
		if s != path {
			kept = append(kept, s)
		}
	}
	m.Staged = kept
	return nil
}

// CreateCommit implements vcs.Backend. A failed commit leaves the index as is.
func (m *MockBackend) CreateCommit(ctx context.Context, repo, message string) (string, error) {
	if err := m.call("commit", ""); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Staged) == 0 {
		return "", errors.New("nothing to commit")
	}
	files := make([]string, len(m.Staged))
	copy(files, m.Staged)
	m.Created = append(m.Created, MockTargetCommit{Message: message, Files: files})
	m.Staged = nil
	return fmt.Sprintf("target-%d", len(m.Created)), nil
}
