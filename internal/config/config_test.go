package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Changelog != "CHANGE_LOGS.md" || cfg.Sentinel != "=======" || cfg.Remote != "origin" {
		t.Fatalf("expected defaults to be populated, got %+v", cfg)
	}
	require.Equal(t, []string{"dmmap.h"}, cfg.Artifacts)
	require.True(t, cfg.ShouldPushBranch())
	require.Equal(t, BackendGH, cfg.Hosting.Backend)
	require.Equal(t, NotesBody, cfg.Notes)
}

func TestLoadOverridesDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	raw := strings.TrimSpace(`
changelog: docs/CHANGES.md
notes: full
artifacts:
  - include/dmmap.h
  - include/deza_mmap.h
push_branch: false
commit_message: "chore: publish {version}"
hosting:
  backend: github
  repository: deza/dmmap
`)
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "docs/CHANGES.md", cfg.Changelog)
	require.Equal(t, NotesFull, cfg.Notes)
	require.Equal(t, []string{"include/dmmap.h", "include/deza_mmap.h"}, cfg.Artifacts)
	require.False(t, cfg.ShouldPushBranch())
	require.Equal(t, "chore: publish v1.0.0", cfg.CommitMessageFor("v1.0.0"))
	require.Equal(t, "GITHUB_TOKEN", cfg.Hosting.TokenEnv)

	owner, repo, ok := cfg.Hosting.OwnerRepo()
	require.True(t, ok)
	require.Equal(t, "deza", owner)
	require.Equal(t, "dmmap", repo)
}

func TestLoadEmptyArtifactList(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("artifacts: []\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, cfg.Artifacts)
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := map[string]string{
		"unknown field":         "changelogs: CHANGES.md\n",
		"bad notes mode":        "notes: everything\n",
		"unknown backend":       "hosting:\n  backend: gitlab\n",
		"github without repo":   "hosting:\n  backend: github\n",
		"github malformed repo": "hosting:\n  backend: github\n  repository: a/b/c\n",
		"blank sentinel":        "sentinel: \"   \"\n",
		"upload without api":    "hosting:\n  upload_url: https://uploads.example.com/\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestLoadEnterpriseURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	raw := strings.TrimSpace(`
hosting:
  backend: github
  repository: deza/dmmap
  api_url: https://ghe.example.com/api/v3/
  upload_url: https://uploads.ghe.example.com/
`)
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://ghe.example.com/api/v3/", cfg.Hosting.APIURL)
	require.Equal(t, "https://uploads.ghe.example.com/", cfg.Hosting.UploadURL)
}

func TestIsStable(t *testing.T) {
	cfg := Default()
	require.True(t, cfg.IsStable("v2.1.0-stable"))
	require.False(t, cfg.IsStable("v2.2.0-beta"))

	cfg.StableMarker = "ga"
	require.True(t, cfg.IsStable("v3.0.0-ga"))
}
