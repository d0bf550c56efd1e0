package app

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tag-release/internal/changelog"
	"tag-release/internal/config"
	"tag-release/internal/fake"
	"tag-release/internal/model"
)

func repoWithChangelog(t *testing.T, text string) Options {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CHANGE_LOGS.md"), []byte(text), 0o644))
	opts, err := OptionsFromFlags(FlagValues{RepoPath: dir})
	require.NoError(t, err)
	return opts
}

func TestRunStableRelease(t *testing.T) {
	opts := repoWithChangelog(t, "## v2.1.0-stable\nFix crash\n=======\n## v2.0.0-stable\nOlder\n")
	v := &fake.VCS{Dirty: true}
	h := &fake.Hosting{}
	var out bytes.Buffer

	require.NoError(t, Run(context.Background(), opts, Deps{VCS: v, Hosting: h, Out: &out}))

	require.Equal(t, []string{"Release v2.1.0-stable"}, v.Commits)
	require.Equal(t, map[string]string{"v2.1.0-stable": "Fix crash"}, v.Tags)
	require.Equal(t, []string{"origin HEAD", "origin v2.1.0-stable"}, v.Pushed)

	require.Equal(t, model.Release{
		Tag: "v2.1.0-stable", Title: "v2.1.0-stable", Notes: "Fix crash",
		Latest: true, Assets: []string{"dmmap.h"},
	}, h.Releases["v2.1.0-stable"])
	require.Equal(t, model.Release{
		Tag: "latest", Title: "v2.1.0-stable", Notes: "Fix crash",
		Assets: []string{"dmmap.h"},
	}, h.Releases["latest"])
	require.Equal(t, "v2.1.0-stable", h.Latest())

	require.Contains(t, out.String(), "Extracted version")
	require.Contains(t, out.String(), "Successfully created and pushed version v2.1.0-stable")
}

func TestRunPrerelease(t *testing.T) {
	opts := repoWithChangelog(t, "## v2.2.0-beta\nWIP\n=======")
	v := &fake.VCS{}
	h := &fake.Hosting{Releases: map[string]model.Release{
		"v2.1.0-stable": {Tag: "v2.1.0-stable", Title: "v2.1.0-stable", Latest: true},
		"latest":        {Tag: "latest", Title: "v2.1.0-stable"},
	}}

	require.NoError(t, Run(context.Background(), opts, Deps{VCS: v, Hosting: h, Out: &bytes.Buffer{}}))

	require.Empty(t, v.Commits, "clean tree must not produce a commit")
	require.Equal(t, "WIP", v.Tags["v2.2.0-beta"])
	require.True(t, h.Releases["v2.2.0-beta"].Prerelease)
	require.Equal(t, "v2.1.0-stable", h.Releases["latest"].Title)
	require.Equal(t, "v2.1.0-stable", h.Latest())
}

func TestRunWithoutVersionHasNoSideEffects(t *testing.T) {
	opts := repoWithChangelog(t, "Nothing to see\n=======\n## v1.0.0\n")
	v := &fake.VCS{Dirty: true}
	h := &fake.Hosting{}

	err := Run(context.Background(), opts, Deps{VCS: v, Hosting: h, Out: &bytes.Buffer{}})
	require.ErrorIs(t, err, changelog.ErrNoVersion)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	require.Equal(t, StageParse, stageErr.Stage)
	require.Empty(t, v.Calls)
	require.Empty(t, h.Calls)
}

func TestRunMissingChangelog(t *testing.T) {
	opts, err := OptionsFromFlags(FlagValues{RepoPath: t.TempDir()})
	require.NoError(t, err)
	v := &fake.VCS{}
	var out bytes.Buffer

	err = Run(context.Background(), opts, Deps{VCS: v, Hosting: &fake.Hosting{}, Out: &out})
	require.Error(t, err)
	require.NotErrorIs(t, err, changelog.ErrNoVersion)
	require.Empty(t, v.Calls)
	require.Contains(t, out.String(), "Failed to read changelog")
	require.NotContains(t, out.String(), "No version found")
}

func TestRunLogsMissingVersion(t *testing.T) {
	opts := repoWithChangelog(t, "no version here\n=======")
	var out bytes.Buffer

	err := Run(context.Background(), opts, Deps{VCS: &fake.VCS{}, Hosting: &fake.Hosting{}, Out: &out})
	require.ErrorIs(t, err, changelog.ErrNoVersion)
	require.Contains(t, out.String(), "No version found in changelog or invalid format")
	require.NotContains(t, out.String(), "Failed to read changelog")
}

func TestRunStopsAtFirstFailingStage(t *testing.T) {
	tests := []struct {
		name      string
		vcsFail   string
		hostFail  string
		wantStage string
		wantTag   bool
		wantHost  bool
	}{
		{name: "stage", vcsFail: "stage", wantStage: StageCommit},
		{name: "commit", vcsFail: "commit", wantStage: StageCommit},
		{name: "tag", vcsFail: "tag", wantStage: StageTag},
		{name: "push tag", vcsFail: "push-tag", wantStage: StageTag, wantTag: true},
		{name: "publish", hostFail: "create", wantStage: StagePublish, wantTag: true, wantHost: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := repoWithChangelog(t, "## v3.0.0-stable\nBig\n=======")
			v := &fake.VCS{Dirty: true, FailOn: tc.vcsFail}
			h := &fake.Hosting{FailOn: tc.hostFail}

			err := Run(context.Background(), opts, Deps{VCS: v, Hosting: h, Out: &bytes.Buffer{}})
			var stageErr *StageError
			require.True(t, errors.As(err, &stageErr))
			require.Equal(t, tc.wantStage, stageErr.Stage)

			_, tagged := v.Tags["v3.0.0-stable"]
			require.Equal(t, tc.wantTag, tagged)
			require.Equal(t, tc.wantHost, len(h.Calls) > 0)
		})
	}
}

func TestRunUsesConfigFile(t *testing.T) {
	opts := repoWithChangelog(t, "Preamble\n## v1.0.0-stable\nDone\n=======")
	cfg := "notes: full\nartifacts: []\npush_branch: false\nremote: upstream\nlatest_name: current\n"
	require.NoError(t, os.WriteFile(filepath.Join(opts.RepoPath, config.FileName), []byte(cfg), 0o644))

	v := &fake.VCS{Dirty: true}
	h := &fake.Hosting{}
	require.NoError(t, Run(context.Background(), opts, Deps{VCS: v, Hosting: h, Out: &bytes.Buffer{}}))

	require.Empty(t, v.Commits)
	require.Equal(t, "Preamble\n## v1.0.0-stable\nDone", v.Tags["v1.0.0-stable"])
	require.Equal(t, []string{"upstream v1.0.0-stable"}, v.Pushed)
	require.Equal(t, "current", h.Releases["current"].Tag)
	require.Equal(t, "v1.0.0-stable", h.Releases["current"].Title)
	require.Empty(t, h.Releases["v1.0.0-stable"].Assets)
}

func TestRunGitHubBackendTwoStableReleases(t *testing.T) {
	api := fake.NewGitHubAPI("deza", "dmmap")
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	opts := repoWithChangelog(t, "## v2.1.0-stable\nFix crash\n=======")
	cfg := "hosting:\n  backend: github\n  repository: deza/dmmap\n  api_url: " + srv.URL + "\n"
	require.NoError(t, os.WriteFile(opts.ConfigPath, []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(opts.RepoPath, "dmmap.h"), []byte("#pragma once\n"), 0o644))

	require.NoError(t, Run(context.Background(), opts, Deps{VCS: &fake.VCS{}, Out: &bytes.Buffer{}}))

	require.NoError(t, os.WriteFile(filepath.Join(opts.RepoPath, "CHANGE_LOGS.md"), []byte("## v2.2.0-stable\nMore\n=======\n"), 0o644))
	require.NoError(t, Run(context.Background(), opts, Deps{VCS: &fake.VCS{}, Out: &bytes.Buffer{}}))

	latest, ok := api.Release("latest")
	require.True(t, ok)
	require.Equal(t, "v2.2.0-stable", latest.Name)
	require.Equal(t, "More", latest.Body)
	require.Equal(t, "v2.2.0-stable", api.LatestTag())
	require.Equal(t, 3, api.Count())
	for _, path := range api.Uploads() {
		require.True(t, strings.HasPrefix(path, "/api/uploads/"), path)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	opts := repoWithChangelog(t, "## v1\n=======")
	require.NoError(t, os.WriteFile(opts.ConfigPath, []byte("notes: loud\n"), 0o644))

	err := Run(context.Background(), opts, Deps{VCS: &fake.VCS{}, Hosting: &fake.Hosting{}, Out: &bytes.Buffer{}})
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	require.Equal(t, StageConfig, stageErr.Stage)
}

func TestPreview(t *testing.T) {
	opts := repoWithChangelog(t, "## v2.1.0-stable\nFix crash\n=======")
	var out bytes.Buffer
	require.NoError(t, Preview(opts, &out))
	require.Equal(t, "Version: v2.1.0-stable (stable, moves latest)\nArtifacts: [dmmap.h]\n\nFix crash\n", out.String())

	opts = repoWithChangelog(t, "no version here")
	require.ErrorIs(t, Preview(opts, &bytes.Buffer{}), changelog.ErrNoVersion)
}
