package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactInfo describes one persisted archive.
type ArtifactInfo struct {
	BuildID string
	ModTime time.Time
}

// ArtifactStore persists packaged scaffolds keyed by build id. Put must be
// atomic: a concurrent List or Get never observes a partial artifact.
// Delete of a missing artifact is not an error.
type ArtifactStore interface {
	Put(ctx context.Context, buildID string, data []byte) error
	Get(ctx context.Context, buildID string) ([]byte, error)
	List(ctx context.Context) ([]ArtifactInfo, error)
	Delete(ctx context.Context, buildID string) error
}

// StalePurger is implemented by stores that can leave leftovers of
// interrupted writes behind. PurgeStale removes those last modified before
// cutoff and reports how many were removed.
type StalePurger interface {
	PurgeStale(ctx context.Context, cutoff time.Time) (int, error)
}

func checkID(buildID string) error {
	if buildID == "" || strings.ContainsAny(buildID, `/\`) || strings.HasPrefix(buildID, ".") {
		return fmt.Errorf("invalid build id %q", buildID)
	}
	return nil
}
