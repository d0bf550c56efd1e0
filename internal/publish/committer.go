package publish

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"tag-release/internal/vcs"
)

// Committer makes sure the release artifacts are committed before tagging.
type Committer struct {
	VCS       vcs.Gateway
	Artifacts []string
	// Message renders the commit message for a version.
	Message func(version string) string
	Log     logrus.FieldLogger
}

// Commit stages the artifacts and commits them when they changed. It reports
// whether a commit was created.
func (c Committer) Commit(ctx context.Context, version string) (bool, error) {
	log := logger(c.Log).WithField("stage", "commit")
	if len(c.Artifacts) == 0 {
		log.Debug("no release artifacts configured")
		return false, nil
	}

	if err := c.VCS.Stage(ctx, c.Artifacts); err != nil {
		return false, err
	}
	dirty, err := c.VCS.HasStagedChanges(ctx, c.Artifacts)
	if err != nil {
		return false, err
	}
	if !dirty {
		log.WithField("artifacts", c.Artifacts).Info("Artifacts unchanged, nothing to commit")
		return false, nil
	}

	message := fmt.Sprintf("Release %s", version)
	if c.Message != nil {
		message = c.Message(version)
	}
	if err := c.VCS.Commit(ctx, message, c.Artifacts); err != nil {
		return false, err
	}
	log.WithField("message", message).Info("Committed release artifacts")
	return true, nil
}

func logger(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		discard := logrus.New()
		discard.Out = io.Discard
		return discard
	}
	return l
}
