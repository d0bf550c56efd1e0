package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"tag-release/internal/changelog"
	"tag-release/internal/config"
	"tag-release/internal/hosting"
	"tag-release/internal/logging"
	"tag-release/internal/model"
	"tag-release/internal/publish"
	"tag-release/internal/vcs"
)

// Pipeline stages, in order.
const (
	StageConfig  = "config"
	StageParse   = "parse"
	StageCommit  = "commit"
	StageTag     = "tag"
	StagePublish = "publish"
)

// StageError names the stage that stopped the pipeline.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

func fail(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Deps lets callers swap the gateways. Nil fields are built from the config.
type Deps struct {
	VCS     vcs.Gateway
	Hosting hosting.Gateway
	Out     io.Writer
}

// Run orchestrates the full workflow: changelog -> artifact commit -> tag and push -> hosted release.
func Run(ctx context.Context, opts Options, deps Deps) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fail(StageConfig, err)
	}

	out := deps.Out
	if out == nil {
		out = os.Stdout
	}
	log, err := logging.New(out, cfg.LogLevel)
	if err != nil {
		return fail(StageConfig, err)
	}

	section, err := changelog.ParseFile(opts.resolve(cfg.Changelog), changelog.Options{Sentinel: cfg.Sentinel})
	if err != nil {
		if errors.Is(err, changelog.ErrNoVersion) {
			log.WithError(err).Error("No version found in changelog or invalid format")
		} else {
			log.WithError(err).Error("Failed to read changelog")
		}
		return fail(StageParse, err)
	}
	notes := releaseNotes(cfg, section)
	log.WithField("version", section.Version).Info("Extracted version")
	log.WithField("description", notes).Info("Tag description")
	if canonical := changelog.Semver(section.Version); canonical == "" {
		log.WithField("version", section.Version).Debug("Version is not a semantic version")
	}

	git := deps.VCS
	if git == nil {
		git = vcs.Git{RepoPath: opts.RepoPath}
	}
	host := deps.Hosting
	if host == nil {
		host, err = newHosting(ctx, cfg, opts.RepoPath)
		if err != nil {
			return fail(StageConfig, err)
		}
	}

	committer := publish.Committer{
		VCS:       git,
		Artifacts: cfg.Artifacts,
		Message:   cfg.CommitMessageFor,
		Log:       log,
	}
	if _, err := committer.Commit(ctx, section.Version); err != nil {
		log.WithError(err).Error("Failed to commit release artifacts")
		return fail(StageCommit, err)
	}

	tagger := publish.Tagger{
		VCS:        git,
		Remote:     cfg.Remote,
		PushBranch: cfg.ShouldPushBranch(),
		Log:        log,
	}
	if err := tagger.Tag(ctx, section.Version, notes); err != nil {
		log.WithError(err).Errorf("Failed to tag or push version %s", section.Version)
		return fail(StageTag, err)
	}

	publisher := publish.Publisher{
		Hosting:      host,
		Artifacts:    cfg.Artifacts,
		StableMarker: cfg.StableMarker,
		LatestName:   cfg.LatestName,
		Log:          log,
	}
	outcome, err := publisher.Publish(ctx, section.Version, notes)
	if err != nil {
		log.WithError(err).Errorf("Failed to create hosted release for version %s; tag %s is already pushed", section.Version, section.Version)
		return fail(StagePublish, err)
	}

	log.WithFields(logrus.Fields{
		"created": outcome.Created,
		"stable":  outcome.Stable,
		"latest":  outcome.LatestMoved,
	}).Infof("Successfully created and pushed version %s", section.Version)
	return nil
}

// Preview parses the changelog and prints what a run would release, without
// touching git or the hosting service.
func Preview(opts Options, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fail(StageConfig, err)
	}
	section, err := changelog.ParseFile(opts.resolve(cfg.Changelog), changelog.Options{Sentinel: cfg.Sentinel})
	if err != nil {
		return fail(StageParse, err)
	}

	kind := "prerelease"
	if cfg.IsStable(section.Version) {
		kind = "stable, moves " + cfg.LatestName
	}
	fmt.Fprintf(out, "Version: %s (%s)\n", section.Version, kind)
	if len(cfg.Artifacts) > 0 {
		fmt.Fprintf(out, "Artifacts: %v\n", cfg.Artifacts)
	}
	fmt.Fprintf(out, "\n%s\n", releaseNotes(cfg, section))
	return nil
}

func loadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	return opts.apply(cfg)
}

func releaseNotes(cfg config.Config, section model.Section) string {
	if cfg.Notes == config.NotesFull {
		return section.Full
	}
	return section.Body
}

func newHosting(ctx context.Context, cfg config.Config, repoPath string) (hosting.Gateway, error) {
	if cfg.Hosting.Backend == config.BackendGitHub {
		owner, repo, _ := cfg.Hosting.OwnerRepo()
		gh, err := hosting.NewGitHub(ctx, owner, repo, os.Getenv(cfg.Hosting.TokenEnv), cfg.Hosting.APIURL, cfg.Hosting.UploadURL)
		if err != nil {
			return nil, err
		}
		gh.Dir = repoPath
		return gh, nil
	}
	return hosting.GH{RepoPath: repoPath, Repository: cfg.Hosting.Repository}, nil
}
