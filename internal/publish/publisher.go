package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"

	"tag-release/internal/changelog"
	"tag-release/internal/hosting"
	"tag-release/internal/model"
)

// Outcome summarizes what Publish changed on the hosting service.
type Outcome struct {
	Created     bool
	Stable      bool
	LatestMoved bool
}

// Publisher creates or updates the hosted release for a tag. Stable versions
// also refresh the release named LatestName, which stays on its own tag and
// mirrors the newest stable title, notes and assets.
type Publisher struct {
	Hosting   hosting.Gateway
	Artifacts []string
	// StableMarker marks production versions; anything else is a prerelease.
	StableMarker string
	// LatestName is the ref of the latest release record.
	LatestName string
	Log        logrus.FieldLogger
}

func (p Publisher) Publish(ctx context.Context, version, notes string) (Outcome, error) {
	log := logger(p.Log).WithFields(logrus.Fields{"stage": "publish", "tag": version})
	out := Outcome{Stable: p.isStable(version)}

	_, err := p.Hosting.View(ctx, version)
	switch {
	case errors.Is(err, hosting.ErrNotFound):
		rel := model.Release{
			Tag:        version,
			Title:      version,
			Notes:      notes,
			Prerelease: !out.Stable,
			Latest:     out.Stable,
			Assets:     p.Artifacts,
		}
		if err := p.Hosting.Create(ctx, rel); err != nil {
			return out, err
		}
		out.Created = true
		log.WithField("prerelease", rel.Prerelease).Info("Created release")
	case err != nil:
		return out, err
	default:
		edit := model.ReleaseEdit{Title: version, Notes: notes, Latest: out.Stable}
		if err := p.Hosting.Edit(ctx, version, edit); err != nil {
			return out, err
		}
		log.Info("Release already exists, updated title and notes")
	}

	if !out.Stable {
		log.Info("Not a stable version, leaving latest release untouched")
		return out, nil
	}
	if err := p.updateLatest(ctx, log, version, notes); err != nil {
		return out, err
	}
	out.LatestMoved = true
	return out, nil
}

// updateLatest never re-points the latest record's tag: a hosting service
// allows one release per tag and the version already owns its own.
func (p Publisher) updateLatest(ctx context.Context, log logrus.FieldLogger, version, notes string) error {
	name := p.latestName()
	current, err := p.Hosting.View(ctx, name)
	switch {
	case errors.Is(err, hosting.ErrNotFound):
		rel := model.Release{
			Tag:    name,
			Title:  version,
			Notes:  notes,
			Assets: p.Artifacts,
		}
		if err := p.Hosting.Create(ctx, rel); err != nil {
			return fmt.Errorf("create %s release: %w", name, err)
		}
		log.WithField("release", name).Info("Created latest release")
		return nil
	case err != nil:
		return fmt.Errorf("view %s release: %w", name, err)
	}

	if isDowngrade(current.Title, version) {
		log.WithField("previous", current.Title).Warn("Moving latest release to an older version")
	}
	edit := model.ReleaseEdit{Title: version, Notes: notes, Assets: p.Artifacts}
	if err := p.Hosting.Edit(ctx, name, edit); err != nil {
		return fmt.Errorf("update %s release: %w", name, err)
	}
	log.WithField("release", name).Info("Latest release now mirrors tag")
	return nil
}

func (p Publisher) isStable(version string) bool {
	marker := p.StableMarker
	if marker == "" {
		marker = "stable"
	}
	return strings.Contains(version, marker)
}

func (p Publisher) latestName() string {
	if p.LatestName == "" {
		return "latest"
	}
	return p.LatestName
}

func isDowngrade(previous, next string) bool {
	prev, cur := changelog.Semver(previous), changelog.Semver(next)
	if prev == "" || cur == "" {
		return false
	}
	return semver.Compare(cur, prev) < 0
}
