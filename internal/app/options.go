package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"tag-release/internal/config"
)

// Options collect validated inputs for running the CLI.
type Options struct {
	RepoPath   string
	ConfigPath string

	// Overrides are applied on top of the loaded configuration.
	Changelog    string
	Artifacts    []string
	ArtifactsSet bool
	Backend      string
	Remote       string
	Notes        string
	NoPushBranch bool
	LogLevel     string
}

// FlagValues mirrors the command-line flags so we can keep parsing/validation in one place.
type FlagValues struct {
	RepoPath     string
	ConfigPath   string
	Changelog    string
	Artifacts    []string
	ArtifactsSet bool
	Backend      string
	Remote       string
	Notes        string
	NoPushBranch bool
	LogLevel     string
}

// OptionsFromFlags validates user input and resolves default values.
func OptionsFromFlags(f FlagValues) (Options, error) {
	if f.RepoPath == "" {
		f.RepoPath = "."
	}
	repo := filepath.Clean(f.RepoPath)

	configPath := filepath.Join(repo, config.FileName)
	if f.ConfigPath != "" {
		configPath = filepath.Clean(f.ConfigPath)
	}

	switch f.Backend {
	case "", config.BackendGH, config.BackendGitHub:
	default:
		return Options{}, fmt.Errorf("--backend must be %q or %q", config.BackendGH, config.BackendGitHub)
	}
	switch f.Notes {
	case "", config.NotesBody, config.NotesFull:
	default:
		return Options{}, fmt.Errorf("--notes must be %q or %q", config.NotesBody, config.NotesFull)
	}

	var artifacts []string
	for _, a := range f.Artifacts {
		a = strings.TrimSpace(a)
		if a == "" {
			return Options{}, errors.New("--artifact must not be empty")
		}
		artifacts = append(artifacts, filepath.ToSlash(filepath.Clean(a)))
	}

	return Options{
		RepoPath:     repo,
		ConfigPath:   configPath,
		Changelog:    f.Changelog,
		Artifacts:    artifacts,
		ArtifactsSet: f.ArtifactsSet || len(artifacts) > 0,
		Backend:      f.Backend,
		Remote:       f.Remote,
		Notes:        f.Notes,
		NoPushBranch: f.NoPushBranch,
		LogLevel:     f.LogLevel,
	}, nil
}

// apply layers the flag overrides on cfg.
func (o Options) apply(cfg config.Config) (config.Config, error) {
	if o.Changelog != "" {
		cfg.Changelog = o.Changelog
	}
	if o.ArtifactsSet {
		cfg.Artifacts = o.Artifacts
	}
	if o.Backend != "" {
		cfg.Hosting.Backend = o.Backend
	}
	if o.Remote != "" {
		cfg.Remote = o.Remote
	}
	if o.Notes != "" {
		cfg.Notes = o.Notes
	}
	if o.NoPushBranch {
		push := false
		cfg.PushBranch = &push
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o Options) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(o.RepoPath, path)
}
