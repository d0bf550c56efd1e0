package vcs

import (
	"context"
	"errors"
	"fmt"

	"tag-release/internal/execx"
)

// Gateway is the version-control surface the release pipeline needs.
type Gateway interface {
	Stage(ctx context.Context, paths []string) error
	HasStagedChanges(ctx context.Context, paths []string) (bool, error)
	Commit(ctx context.Context, message string, paths []string) error
	CreateTag(ctx context.Context, name, message string) error
	PushHead(ctx context.Context, remote string) error
	PushTag(ctx context.Context, remote, name string) error
}

// Git drives the git CLI inside RepoPath.
type Git struct {
	RepoPath string
	Runner   execx.Runner
}

func (g Git) Stage(ctx context.Context, paths []string) error {
	args := append([]string{"add", "--"}, paths...)
	if _, err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	return nil
}

// HasStagedChanges relies on `git diff --cached --quiet` exiting 1 when the
// index differs from HEAD.
func (g Git) HasStagedChanges(ctx context.Context, paths []string) (bool, error) {
	args := append([]string{"diff", "--cached", "--quiet", "--"}, paths...)
	_, err := g.run(ctx, args...)
	if err == nil {
		return false, nil
	}
	var execErr *execx.Error
	if errors.As(err, &execErr) && execErr.ExitCode == 1 {
		return true, nil
	}
	return false, fmt.Errorf("git diff: %w", err)
}

// Commit records only paths, leaving anything else in the index alone.
func (g Git) Commit(ctx context.Context, message string, paths []string) error {
	args := append([]string{"commit", "-m", message, "--"}, paths...)
	if _, err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

func (g Git) CreateTag(ctx context.Context, name, message string) error {
	if _, err := g.run(ctx, "tag", "-a", name, "-m", message); err != nil {
		return fmt.Errorf("git tag %s: %w", name, err)
	}
	return nil
}

func (g Git) PushHead(ctx context.Context, remote string) error {
	if _, err := g.run(ctx, "push", remote, "HEAD"); err != nil {
		return fmt.Errorf("git push %s HEAD: %w", remote, err)
	}
	return nil
}

func (g Git) PushTag(ctx context.Context, remote, name string) error {
	if _, err := g.run(ctx, "push", remote, "refs/tags/"+name); err != nil {
		return fmt.Errorf("git push %s %s: %w", remote, name, err)
	}
	return nil
}

func (g Git) run(ctx context.Context, args ...string) (string, error) {
	runner := g.Runner
	if runner == nil {
		runner = execx.Exec{}
	}
	return runner.Run(ctx, g.RepoPath, "git", args...)
}
