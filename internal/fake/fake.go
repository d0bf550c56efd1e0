// Package fake provides in-memory gateways that record every call. Tests use
// them to drive the release pipeline without git or a hosting service.
package fake

import (
	"context"
	"fmt"
	"strings"

	"tag-release/internal/hosting"
	"tag-release/internal/model"
)

// VCS is an in-memory vcs.Gateway.
type VCS struct {
	// Dirty makes HasStagedChanges report pending changes.
	Dirty bool
	// FailOn makes the named operation ("stage", "commit", "tag", "push-head",
	// "push-tag") return an error.
	FailOn string

	Calls   []string
	Commits []string
	Tags    map[string]string
	Pushed  []string
}

func (v *VCS) record(op, detail string) error {
	v.Calls = append(v.Calls, strings.TrimSpace(op+" "+detail))
	if v.FailOn == op {
		return fmt.Errorf("%s failed", op)
	}
	return nil
}

func (v *VCS) Stage(_ context.Context, paths []string) error {
	return v.record("stage", strings.Join(paths, " "))
}

func (v *VCS) HasStagedChanges(_ context.Context, paths []string) (bool, error) {
	if err := v.record("status", strings.Join(paths, " ")); err != nil {
		return false, err
	}
	return v.Dirty, nil
}

func (v *VCS) Commit(_ context.Context, message string, _ []string) error {
	if err := v.record("commit", message); err != nil {
		return err
	}
	v.Commits = append(v.Commits, message)
	v.Dirty = false
	return nil
}

func (v *VCS) CreateTag(_ context.Context, name, message string) error {
	if err := v.record("tag", name); err != nil {
		return err
	}
	if _, ok := v.Tags[name]; ok {
		return fmt.Errorf("tag %s already exists", name)
	}
	if v.Tags == nil {
		v.Tags = map[string]string{}
	}
	v.Tags[name] = message
	return nil
}

func (v *VCS) PushHead(_ context.Context, remote string) error {
	if err := v.record("push-head", remote); err != nil {
		return err
	}
	v.Pushed = append(v.Pushed, remote+" HEAD")
	return nil
}

func (v *VCS) PushTag(_ context.Context, remote, name string) error {
	if err := v.record("push-tag", remote+" "+name); err != nil {
		return err
	}
	v.Pushed = append(v.Pushed, remote+" "+name)
	return nil
}

// Hosting is an in-memory hosting.Gateway. Like the real service it keys
// releases by tag, allows one release per tag and keeps a single release
// marked as latest.
type Hosting struct {
	// FailOn makes "view", "create" or "edit" return an error.
	FailOn string

	Releases map[string]model.Release
	Calls    []string
}

func (h *Hosting) fail(op, ref string) error {
	h.Calls = append(h.Calls, op+" "+ref)
	if h.FailOn == op {
		return fmt.Errorf("%s %s failed", op, ref)
	}
	return nil
}

func (h *Hosting) View(_ context.Context, ref string) (model.Release, error) {
	if err := h.fail("view", ref); err != nil {
		return model.Release{}, err
	}
	rel, ok := h.Releases[ref]
	if !ok {
		return model.Release{}, hosting.ErrNotFound
	}
	return rel, nil
}

func (h *Hosting) Create(_ context.Context, rel model.Release) error {
	if err := h.fail("create", rel.Tag); err != nil {
		return err
	}
	if _, ok := h.Releases[rel.Tag]; ok {
		return fmt.Errorf("release for tag %s already exists", rel.Tag)
	}
	if h.Releases == nil {
		h.Releases = map[string]model.Release{}
	}
	rel.Assets = append([]string(nil), rel.Assets...)
	h.Releases[rel.Tag] = rel
	if rel.Latest {
		h.markLatest(rel.Tag)
	}
	return nil
}

func (h *Hosting) Edit(_ context.Context, ref string, edit model.ReleaseEdit) error {
	if err := h.fail("edit", ref); err != nil {
		return err
	}
	rel, ok := h.Releases[ref]
	if !ok {
		return hosting.ErrNotFound
	}
	if edit.Tag != "" && edit.Tag != ref {
		if _, taken := h.Releases[edit.Tag]; taken {
			return fmt.Errorf("release for tag %s already exists", edit.Tag)
		}
		delete(h.Releases, ref)
		rel.Tag = edit.Tag
	}
	rel.Title = edit.Title
	rel.Notes = edit.Notes
	for _, asset := range edit.Assets {
		if !contains(rel.Assets, asset) {
			rel.Assets = append(rel.Assets, asset)
		}
	}
	h.Releases[rel.Tag] = rel
	if edit.Latest {
		h.markLatest(rel.Tag)
	}
	return nil
}

// Latest returns the tag currently marked as latest.
func (h *Hosting) Latest() string {
	for tag, rel := range h.Releases {
		if rel.Latest {
			return tag
		}
	}
	return ""
}

func (h *Hosting) markLatest(tag string) {
	for t, rel := range h.Releases {
		rel.Latest = t == tag
		if rel.Latest {
			rel.Prerelease = false
		}
		h.Releases[t] = rel
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
