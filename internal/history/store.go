// Package history keeps a queryable log of completed pipeline runs.
package history

import (
	"context"

	"git.home.luguber.info/inful/ddd/internal/pipeline"
)

// Store persists run results.
type Store interface {
	// Record saves one completed run. Recording the same run ID twice
	// replaces the earlier row.
	Record(ctx context.Context, res *pipeline.Result) error

	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]*pipeline.Result, error)

	// Prune keeps the newest keep runs and returns how many were deleted.
	Prune(ctx context.Context, keep int) (int64, error)

	// Close releases resources.
	Close() error
}
