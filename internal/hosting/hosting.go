package hosting

import (
	"context"
	"errors"

	"tag-release/internal/model"
)

// ErrNotFound is returned by View when no release exists for the ref.
var ErrNotFound = errors.New("release not found")

// Gateway manages hosted release records.
type Gateway interface {
	View(ctx context.Context, ref string) (model.Release, error)
	Create(ctx context.Context, rel model.Release) error
	Edit(ctx context.Context, ref string, edit model.ReleaseEdit) error
}
