package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// OrderPolicy controls the order in which new commits are processed
type OrderPolicy string

const (
	// OrderChronological processes oldest commits first
	OrderChronological OrderPolicy = "chronological"
	// OrderResolver keeps the backend order, newest first
	OrderResolver OrderPolicy = "resolver"
)

// NamingPolicy controls how log file names are derived from changed paths
type NamingPolicy string

const (
	// NamingBasename keys logs by the base name of each changed path
	NamingBasename NamingPolicy = "basename"
	// NamingPath keys logs by the full relative path of each changed path
	NamingPath NamingPolicy = "path"
)

const (
	BackendGit   = "git"
	BackendGoGit = "go-git"

	DefaultQuietWindow = time.Second
)

// Identity is an optional author identity for target commits
type Identity struct {
	Name  string `yaml:"name,omitempty"`
	Email string `yaml:"email,omitempty"`
}

// Config holds everything a mirror run needs
type Config struct {
	SourceDir      string        `yaml:"sourceDir"`
	NewDir         string        `yaml:"newDir"`
	Watch          bool          `yaml:"watch"`
	Branch         string        `yaml:"branch"`
	Remote         string        `yaml:"remote"`
	Backend        string        `yaml:"backend"`
	Order          OrderPolicy   `yaml:"order"`
	Naming         NamingPolicy  `yaml:"naming"`
	QuietWindow    time.Duration `yaml:"quietWindow"`
	CommandTimeout time.Duration `yaml:"commandTimeout"`
	Ledger         bool          `yaml:"ledger"`
	Report         string        `yaml:"report"`
	Author         Identity      `yaml:"author,omitempty"`
}

// DefaultConfig returns a Config populated with defaults
func DefaultConfig() *Config {
	return &Config{
		Branch:      "main",
		Remote:      "origin",
		Backend:     BackendGit,
		Order:       OrderChronological,
		Naming:      NamingBasename,
		QuietWindow: DefaultQuietWindow,
		Report:      "text",
	}
}

// LoadConfig reads a YAML config file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// LocalRef returns the local branch reference name
func (c *Config) LocalRef() string {
	return c.Branch
}

// RemoteRef returns the remote-tracking reference name
func (c *Config) RemoteRef() string {
	return c.Remote + "/" + c.Branch
}

// Validate checks required values and enum fields. Directory paths are made
// absolute relative to the current working directory.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return &ArgumentError{Flag: "sourceDir", Reason: "parameter is missing"}
	}
	if c.NewDir == "" {
		return &ArgumentError{Flag: "newDir", Reason: "parameter is missing"}
	}

	var err error
	if c.SourceDir, err = filepath.Abs(c.SourceDir); err != nil {
		return &ArgumentError{Flag: "sourceDir", Reason: err.Error()}
	}
	if c.NewDir, err = filepath.Abs(c.NewDir); err != nil {
		return &ArgumentError{Flag: "newDir", Reason: err.Error()}
	}
	if c.SourceDir == c.NewDir {
		return &ArgumentError{Flag: "newDir", Reason: "must differ from --sourceDir"}
	}

	if c.Branch == "" {
		return &ArgumentError{Flag: "branch", Reason: "must not be empty"}
	}
	if c.Remote == "" {
		return &ArgumentError{Flag: "remote", Reason: "must not be empty"}
	}

	switch c.Backend {
	case BackendGit, BackendGoGit:
	default:
		return &ArgumentError{Flag: "backend", Reason: fmt.Sprintf("unsupported value %q (supported: git, go-git)", c.Backend)}
	}

	switch c.Order {
	case OrderChronological, OrderResolver:
	default:
		return &ArgumentError{Flag: "order", Reason: fmt.Sprintf("unsupported value %q (supported: chronological, resolver)", c.Order)}
	}

	switch c.Naming {
	case NamingBasename, NamingPath:
	default:
		return &ArgumentError{Flag: "naming", Reason: fmt.Sprintf("unsupported value %q (supported: basename, path)", c.Naming)}
	}

	if c.QuietWindow <= 0 {
		return &ArgumentError{Flag: "quiet-window", Reason: "must be positive"}
	}
	if c.CommandTimeout < 0 {
		return &ArgumentError{Flag: "command-timeout", Reason: "must not be negative"}
	}

	return nil
}
