package publish

import (
	"context"

	"github.com/sirupsen/logrus"

	"tag-release/internal/vcs"
)

// Tagger creates the annotated release tag and publishes it.
type Tagger struct {
	VCS    vcs.Gateway
	Remote string
	// PushBranch pushes the current branch first so the tagged commit exists
	// on the remote.
	PushBranch bool
	Log        logrus.FieldLogger
}

func (t Tagger) Tag(ctx context.Context, version, message string) error {
	log := logger(t.Log).WithFields(logrus.Fields{"stage": "tag", "tag": version})
	if message == "" {
		message = version
	}

	if err := t.VCS.CreateTag(ctx, version, message); err != nil {
		return err
	}
	log.Info("Created annotated tag")

	remote := t.Remote
	if remote == "" {
		remote = "origin"
	}
	if t.PushBranch {
		if err := t.VCS.PushHead(ctx, remote); err != nil {
			return err
		}
		log.WithField("remote", remote).Info("Pushed current branch")
	}
	if err := t.VCS.PushTag(ctx, remote, version); err != nil {
		return err
	}
	log.WithField("remote", remote).Info("Pushed tag")
	return nil
}
