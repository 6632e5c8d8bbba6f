// Command carthorse runs the trail-to-graph pipeline against a region or
// bounding box of staged trails, producing a routable planar graph in a
// SQLite staging database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaydu/carthorse/internal/config"
	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/geovalidate"
	"github.com/shaydu/carthorse/internal/perr"
	"github.com/shaydu/carthorse/internal/pipeline"
	"github.com/shaydu/carthorse/internal/staging"
)

// Exit codes per spec.md §6's CLI surface.
const (
	exitOK                = 0
	exitUsageError        = 2
	exitInputUnavailable  = 3
	exitInvariantViolated = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		region   string
		bbox     string
		stagingPath string
		overrides []string
	)

	cmd := &cobra.Command{
		Use:   "carthorse",
		Short: "Build a routable graph from staged trail geometry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if region == "" && bbox == "" {
				return fmt.Errorf("one of --region or --bbox is required")
			}

			cfg := config.Load()
			for _, kv := range overrides {
				key, val, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid --set value %q, expected key=val", kv)
				}
				if err := cfg.Override(key, val); err != nil {
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			store, err := staging.Open(ctx, stagingPath)
			if err != nil {
				return fmt.Errorf("opening staging database: %w", err)
			}
			defer store.Close()

			stagingName := stagingPath
			if stagingName == "" {
				stagingName = "in-memory"
			}

			scope, err := parseScope(region, bbox)
			if err != nil {
				return err
			}

			diag, err := pipeline.Run(ctx, store, cfg, stagingName, scope)
			if err != nil {
				return err
			}

			printDiagnostics(cmd, diag)
			return nil
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "region tag of staged trails to process")
	cmd.Flags().StringVar(&bbox, "bbox", "", "bounding box of staged trails to process, as minLng,minLat,maxLng,maxLat")
	cmd.Flags().StringVar(&stagingPath, "staging", "", "path to the SQLite staging database (empty for in-memory)")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "override a config tolerance, as key=val (repeatable)")
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "carthorse:", err)
		return classifyExitCode(err)
	}
	return exitOK
}

func printDiagnostics(cmd *cobra.Command, diag *entities.Diagnostics) {
	cmd.Println(diag.String())
}

// parseScope turns the --region/--bbox flag values into a pipeline.Scope.
// bbox must be "minLng,minLat,maxLng,maxLat" when set.
func parseScope(region, bbox string) (pipeline.Scope, error) {
	scope := pipeline.Scope{Region: region}
	if bbox == "" {
		return scope, nil
	}
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return scope, fmt.Errorf("invalid --bbox %q, expected minLng,minLat,maxLng,maxLat", bbox)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return scope, fmt.Errorf("invalid --bbox %q: %w", bbox, err)
		}
		vals[i] = v
	}
	if err := geovalidate.ValidateBoundingBox(vals[0], vals[1], vals[2], vals[3]); err != nil {
		return scope, fmt.Errorf("invalid --bbox %q: %w", bbox, err)
	}
	box := entities.BoundingBox{MinLng: vals[0], MinLat: vals[1], MaxLng: vals[2], MaxLat: vals[3]}
	scope.BBox = &box
	return scope, nil
}

// classifyExitCode maps a run failure onto spec.md §6's exit codes by
// checking the perr taxonomy with errors.Is, falling back to a usage
// error for anything that never reached a staged sentinel (flag parsing,
// config validation).
func classifyExitCode(err error) int {
	switch {
	case errors.Is(err, perr.ErrInvariantViolated):
		return exitInvariantViolated
	case errors.Is(err, perr.ErrStorage), errors.Is(err, perr.ErrEmptyGraph):
		return exitInputUnavailable
	default:
		return exitUsageError
	}
}
