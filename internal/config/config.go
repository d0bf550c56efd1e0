package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is looked up in the repository root when no --config is given.
const FileName = ".tag-release.yaml"

const (
	NotesBody = "body"
	NotesFull = "full"

	BackendGH     = "gh"
	BackendGitHub = "github"
)

// Hosting selects how hosted releases are managed.
type Hosting struct {
	Backend    string `yaml:"backend"`
	Repository string `yaml:"repository"`
	TokenEnv   string `yaml:"token_env"`
	APIURL     string `yaml:"api_url"`
	// UploadURL defaults to the host of APIURL.
	UploadURL  string `yaml:"upload_url"`
}

// Config is the release configuration of one repository.
type Config struct {
	Changelog     string   `yaml:"changelog"`
	Sentinel      string   `yaml:"sentinel"`
	Notes         string   `yaml:"notes"`
	Artifacts     []string `yaml:"artifacts"`
	Remote        string   `yaml:"remote"`
	PushBranch    *bool    `yaml:"push_branch"`
	CommitMessage string   `yaml:"commit_message"`
	StableMarker  string   `yaml:"stable_marker"`
	LatestName    string   `yaml:"latest_name"`
	LogLevel      string   `yaml:"log_level"`
	Hosting       Hosting  `yaml:"hosting"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path and fills unset fields with defaults. A missing file is not
// an error.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Changelog == "" {
		c.Changelog = "CHANGE_LOGS.md"
	}
	if c.Sentinel == "" {
		c.Sentinel = "======="
	}
	if c.Notes == "" {
		c.Notes = NotesBody
	}
	if c.Artifacts == nil {
		c.Artifacts = []string{"dmmap.h"}
	}
	if c.Remote == "" {
		c.Remote = "origin"
	}
	if c.PushBranch == nil {
		push := true
		c.PushBranch = &push
	}
	if c.CommitMessage == "" {
		c.CommitMessage = "Release {version}"
	}
	if c.StableMarker == "" {
		c.StableMarker = "stable"
	}
	if c.LatestName == "" {
		c.LatestName = "latest"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Hosting.Backend == "" {
		c.Hosting.Backend = BackendGH
	}
	if c.Hosting.TokenEnv == "" {
		c.Hosting.TokenEnv = "GITHUB_TOKEN"
	}
}

// Validate reports settings the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Notes {
	case NotesBody, NotesFull:
	default:
		return fmt.Errorf("notes must be %q or %q, got %q", NotesBody, NotesFull, c.Notes)
	}
	switch c.Hosting.Backend {
	case BackendGH:
	case BackendGitHub:
		if _, _, ok := c.Hosting.OwnerRepo(); !ok {
			return fmt.Errorf("hosting.repository must be owner/name for the %s backend", BackendGitHub)
		}
	default:
		return fmt.Errorf("unknown hosting backend %q", c.Hosting.Backend)
	}
	if c.Hosting.UploadURL != "" && c.Hosting.APIURL == "" {
		return errors.New("hosting.upload_url requires hosting.api_url")
	}
	if strings.TrimSpace(c.Sentinel) == "" {
		return errors.New("sentinel must not be blank")
	}
	if c.Remote == "" {
		return errors.New("remote must not be empty")
	}
	return nil
}

// ShouldPushBranch reports whether the current branch is pushed before the tag.
func (c Config) ShouldPushBranch() bool {
	return c.PushBranch == nil || *c.PushBranch
}

// CommitMessageFor renders the artifact commit message for version.
func (c Config) CommitMessageFor(version string) string {
	return strings.ReplaceAll(c.CommitMessage, "{version}", version)
}

// IsStable reports whether version names a production release.
func (c Config) IsStable(version string) bool {
	return strings.Contains(version, c.StableMarker)
}

// OwnerRepo splits Repository into its two parts.
func (h Hosting) OwnerRepo() (string, string, bool) {
	owner, repo, ok := strings.Cut(h.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}
	return owner, repo, true
}
