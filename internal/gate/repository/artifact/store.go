package artifact

import (
	"context"
	"errors"
)

// Store persists the blobs the check runners upload for a gate run.
// Artifacts are keyed by run ID plus one of the fixed artifact names
// (format-output, lint-marker, coverage-output, ...).
type Store interface {
	Put(ctx context.Context, runID, name string, content []byte) error
	Get(ctx context.Context, runID, name string) ([]byte, error)
	GetURL(ctx context.Context, runID, name string) (string, error)
	List(ctx context.Context, runID string) ([]string, error)
}

// ErrNotFound is returned by Get when no blob exists under the given
// run ID and name. Absence is an expected state for marker artifacts,
// so callers usually branch on this rather than fail.
var ErrNotFound = errors.New("artifact not found")
