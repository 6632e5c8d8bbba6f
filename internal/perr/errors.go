// Package perr defines the cross-stage error taxonomy from spec.md §7.
// Code that raises one of these conditions returns the sentinel, wrapped
// with fmt.Errorf("...: %w", ...) where it adds context, so callers can
// distinguish locally-recoverable errors from fatal ones with errors.Is,
// the way lvlath's ErrVertexNotFound/ErrGraphNil are used across its
// packages. Only ErrInvalidGeometry and ErrDegenerateSplit (geometry) and
// ErrEmptyGraph and ErrCancelled (graphbuild) are returned by any package;
// the other sentinels are declared but not returned, and staging-store
// failures come back as ordinary wrapped errors, not as ErrStorage.
package perr

import "errors"

var (
	// ErrInvalidGeometry: empty/zero-length/NaN or validity failure.
	// Recovered locally by the caller (skip the trail/pair); never fatal
	// on its own.
	ErrInvalidGeometry = errors.New("perr: invalid geometry")

	// ErrDegenerateSplit: a point split cannot be made; geometry.Split
	// returns it when the split point is not within the buffer of the
	// line. Recovered locally: the split is declined.
	ErrDegenerateSplit = errors.New("perr: degenerate split")

	// ErrInvariantViolated: a post-stage invariant check failed. Fatal —
	// the stage's transaction rolls back.
	ErrInvariantViolated = errors.New("perr: invariant violated")

	// ErrEmptyGraph: C6 produced zero edges. Fatal.
	ErrEmptyGraph = errors.New("perr: empty graph")

	// ErrCancelled: the run's context was cancelled. Soft — the stage
	// commits progress made so far.
	ErrCancelled = errors.New("perr: cancelled")

	// ErrDeadlineExceeded: a stage's soft deadline elapsed. Soft — the
	// stage commits progress made so far and reports partial completion.
	ErrDeadlineExceeded = errors.New("perr: stage deadline exceeded")

	// ErrStorage: an underlying staging-store/IO failure. Fatal; the run
	// aborts with rollback.
	ErrStorage = errors.New("perr: storage error")

	// ErrLoopDecomposeFailed: C3 produced zero simple pieces from a
	// self-touching trail. The original trail is left untouched and
	// flagged rather than the run aborting.
	ErrLoopDecomposeFailed = errors.New("perr: loop decomposition failed")
)
