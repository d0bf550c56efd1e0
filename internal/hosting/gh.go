package hosting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tag-release/internal/execx"
	"tag-release/internal/model"
)

// GH manages releases through the GitHub CLI. The CLI infers the repository
// from RepoPath unless Repository ("owner/name") is set.
type GH struct {
	RepoPath   string
	Repository string
	Runner     execx.Runner
}

func (g GH) View(ctx context.Context, ref string) (model.Release, error) {
	out, err := g.run(ctx, "release", "view", ref, "--json", "tagName,name,body,isPrerelease")
	if err != nil {
		if isNotFound(err) {
			return model.Release{}, ErrNotFound
		}
		return model.Release{}, fmt.Errorf("gh release view %s: %w", ref, err)
	}

	var parsed struct {
		TagName      string `json:"tagName"`
		Name         string `json:"name"`
		Body         string `json:"body"`
		IsPrerelease bool   `json:"isPrerelease"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return model.Release{}, fmt.Errorf("parse gh release view response: %w", err)
	}

	return model.Release{
		Tag:        parsed.TagName,
		Title:      parsed.Name,
		Notes:      parsed.Body,
		Prerelease: parsed.IsPrerelease,
	}, nil
}

func (g GH) Create(ctx context.Context, rel model.Release) error {
	args := []string{"release", "create", rel.Tag}
	args = append(args, rel.Assets...)
	args = append(args, "--title", rel.Title, "--notes", rel.Notes)
	if rel.Prerelease {
		args = append(args, "--prerelease")
	}
	switch {
	case rel.Latest:
		args = append(args, "--latest")
	case !rel.Prerelease:
		// gh marks every new full release latest unless told otherwise.
		args = append(args, "--latest=false")
	}
	if _, err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("gh release create %s: %w", rel.Tag, err)
	}
	return nil
}

func (g GH) Edit(ctx context.Context, ref string, edit model.ReleaseEdit) error {
	args := []string{"release", "edit", ref}
	if edit.Tag != "" {
		args = append(args, "--tag", edit.Tag)
	}
	args = append(args, "--title", edit.Title, "--notes", edit.Notes)
	if edit.Latest {
		args = append(args, "--latest")
	}
	if _, err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("gh release edit %s: %w", ref, err)
	}

	if len(edit.Assets) == 0 {
		return nil
	}
	target := ref
	if edit.Tag != "" {
		target = edit.Tag
	}
	args = append([]string{"release", "upload", target}, edit.Assets...)
	args = append(args, "--clobber")
	if _, err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("gh release upload %s: %w", target, err)
	}
	return nil
}

func (g GH) run(ctx context.Context, args ...string) (string, error) {
	if g.Repository != "" {
		args = append(args, "--repo", g.Repository)
	}
	runner := g.Runner
	if runner == nil {
		runner = execx.Exec{}
	}
	return runner.Run(ctx, g.RepoPath, "gh", args...)
}

// gh prints "release not found" and exits 1 for unknown tags. Other 404s,
// such as a missing repository, surface as "HTTP 404: Not Found" and are real
// failures.
func isNotFound(err error) bool {
	var execErr *execx.Error
	if !errors.As(err, &execErr) {
		return false
	}
	return strings.Contains(strings.ToLower(execErr.Stderr), "release not found")
}
