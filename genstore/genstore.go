// Package genstore keeps per-key generation counters for bakestore.
//
// A bake is written together with the generation observed before it was
// produced. Bumping the generation (when a source cloud map changes, say)
// makes every stored bake for that key stale; readers drop stale bakes.
package genstore

import (
	"context"
	"time"
)

type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, storageKey string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, storageKey string) (uint64, error)
	// Cleanup prunes generations not bumped within retention and reports how
	// many were removed (always 0 where the backend expires keys itself).
	Cleanup(retention time.Duration) int
	Close(context.Context) error
}
