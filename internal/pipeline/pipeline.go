// Package pipeline wires C2 through C8 into a single run: stage the
// input trails, decompose loops, split intersections, snap endpoints and
// fill gaps, build the node network, merge degree-2 chains, and analyze
// connectivity — threading one *config.Config and one context.Context
// throughout rather than relying on package-level state, per spec.md §9's
// explicit-threading re-architecture note.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaydu/carthorse/internal/config"
	"github.com/shaydu/carthorse/internal/connectivity"
	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/graphbuild"
	"github.com/shaydu/carthorse/internal/loopdecomp"
	"github.com/shaydu/carthorse/internal/perr"
	"github.com/shaydu/carthorse/internal/snapper"
	"github.com/shaydu/carthorse/internal/splitter"
	"github.com/shaydu/carthorse/internal/staging"
)

// Scope narrows a run to a subset of the staged trails, mirroring the
// CLI's --region/--bbox flags. A zero Scope processes every staged trail.
type Scope struct {
	Region string
	BBox   *entities.BoundingBox
}

// Run executes the full pipeline against an already-populated store
// (C2's input trails must already be staged by the caller) and returns
// the run's diagnostics record.
func Run(ctx context.Context, store *staging.Store, cfg *config.Config, stagingName string, scope Scope) (*entities.Diagnostics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	if err := applyScope(ctx, store, scope); err != nil {
		return nil, fmt.Errorf("pipeline: apply scope: %w", err)
	}

	diag := &entities.Diagnostics{StagingName: stagingName, StartedAt: now()}
	defer func() { diag.FinishedAt = now() }()

	if err := runStage(ctx, diag, "C3", cfg.StageTimeoutDefault, func(sctx context.Context) (entities.StageCounts, error) {
		res, err := loopdecomp.Decompose(sctx, store, cfg)
		if err != nil {
			return entities.StageCounts{}, err
		}
		return entities.StageCounts{
			Stage:     "C3",
			Inputs:    res.TrailsExamined,
			Splits:    res.TrailsSplit,
			Discarded: res.PiecesDiscarded,
		}, nil
	}); err != nil {
		return diag, err
	}

	if err := runStage(ctx, diag, "C4", cfg.StageTimeoutC4, func(sctx context.Context) (entities.StageCounts, error) {
		res, err := splitter.Split(sctx, store, cfg)
		if err != nil {
			return entities.StageCounts{}, err
		}
		return entities.StageCounts{
			Stage:     "C4",
			Inputs:    res.PairsExamined,
			Splits:    res.SplitsMade,
			Discarded: res.PairsFailed,
		}, nil
	}); err != nil {
		return diag, err
	}

	if err := runStage(ctx, diag, "C5", cfg.StageTimeoutDefault, func(sctx context.Context) (entities.StageCounts, error) {
		res, err := snapper.Run(sctx, store, cfg)
		if err != nil {
			return entities.StageCounts{}, err
		}
		return entities.StageCounts{
			Stage:   "C5",
			Merges:  res.EndpointsMerged,
			Bridges: res.BridgesCreated,
		}, nil
	}); err != nil {
		return diag, err
	}

	if err := runStage(ctx, diag, "C6", cfg.StageTimeoutDefault, func(sctx context.Context) (entities.StageCounts, error) {
		res, err := graphbuild.BuildNodes(sctx, store, cfg)
		if err != nil {
			return entities.StageCounts{}, err
		}
		return entities.StageCounts{
			Stage:  "C6",
			Inputs: res.EdgesAssigned,
			Merges: res.VerticesCreated,
		}, nil
	}); err != nil {
		return diag, err
	}

	if err := runStage(ctx, diag, "C7", cfg.StageTimeoutDefault, func(sctx context.Context) (entities.StageCounts, error) {
		res, err := graphbuild.MergeChains(sctx, store, cfg)
		if err != nil {
			return entities.StageCounts{}, err
		}
		return entities.StageCounts{
			Stage:  "C7",
			Merges: res.ChainsMerged,
		}, nil
	}); err != nil {
		return diag, err
	}

	report, err := connectivity.Analyze(ctx, store)
	if err != nil {
		return diag, fmt.Errorf("pipeline: C8 connectivity: %w", err)
	}
	diag.Connectivity = report

	return diag, nil
}

// runStage runs fn under a soft per-stage deadline: a context.DeadlineExceeded
// is recorded as a partial stage (not fatal) while any other error aborts
// the run, per spec.md §5's soft-deadline/hard-failure split.
func runStage(ctx context.Context, diag *entities.Diagnostics, stage string, timeoutS int, fn func(context.Context) (entities.StageCounts, error)) error {
	sctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutS)*time.Second)
	defer cancel()

	start := now()
	counts, err := fn(sctx)
	counts.DurationMS = now().Sub(start).Milliseconds()

	if err != nil {
		if sctx.Err() != nil && ctx.Err() == nil {
			counts.Partial = true
			counts.Stage = stage
			diag.AddStageCounts(counts)
			diag.AddSkip(stage, "", fmt.Sprintf("stage deadline exceeded: %v", err))
			return nil
		}
		if errors.Is(err, perr.ErrEmptyGraph) {
			diag.AddStageCounts(counts)
			return fmt.Errorf("pipeline: %s: %w", stage, err)
		}
		return fmt.Errorf("pipeline: %s: %w", stage, err)
	}

	diag.AddStageCounts(counts)
	return nil
}

// now is the pipeline's sole time source, isolated here so tests can
// observe ordering without depending on wall-clock granularity.
func now() time.Time { return time.Now() }

// applyScope removes every staged trail outside scope, so downstream
// stages only ever see the trails the caller asked for. A zero Scope is
// a no-op (the whole staging database is in scope).
func applyScope(ctx context.Context, store *staging.Store, scope Scope) error {
	if scope.Region == "" && scope.BBox == nil {
		return nil
	}

	trails, err := store.ListAllTrails(ctx)
	if err != nil {
		return fmt.Errorf("list trails: %w", err)
	}
	for _, t := range trails {
		inScope := true
		if scope.Region != "" && t.Region != scope.Region {
			inScope = false
		}
		if scope.BBox != nil && !t.BBox.Intersects(*scope.BBox) {
			inScope = false
		}
		if !inScope {
			if err := store.DeleteTrail(ctx, t.TrailUUID); err != nil {
				return fmt.Errorf("delete out-of-scope trail %s: %w", t.TrailUUID, err)
			}
		}
	}
	return nil
}
