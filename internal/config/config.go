// Package config holds the pipeline's tunable tolerances and stage
// deadlines, loaded from environment variables with sensible defaults —
// following the teacher's config.Load()/getEnv/getEnvInt pattern.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// Config holds every tolerance and deadline named in spec.md §6. There is
// deliberately no global/package-level instance: a Config is built once by
// Load (or NewDefault) and threaded explicitly through the pipeline and
// every stage, per spec.md §9's "replace module-level globals with an
// explicitly threaded value" re-architecture note.
type Config struct {
	// SnapTolDegrees is the Pass A snap tolerance in C4, in degrees.
	SnapTolDegrees float64
	// SplitBufferDegrees is the buffer radius for the point-split fallback.
	SplitBufferDegrees float64
	// TIntersectionTolM is the near-miss T-intersection detection radius, in meters.
	TIntersectionTolM float64
	// VertexMergeTolM is the endpoint coincidence radius, in meters.
	VertexMergeTolM float64
	// GapToleranceM is the max connector bridge length in C5, in meters.
	GapToleranceM float64
	// MinSegmentM is the minimum surviving split segment length, in meters.
	MinSegmentM float64
	// LengthToleranceM is the allowed per-edge length loss, in meters.
	LengthToleranceM float64
	// RoundDecimals is the coordinate rounding precision before snap/dedup.
	RoundDecimals int
	// MergeDegree2 enables C7 chain merging.
	MergeDegree2 bool
	// DensifyIntervalM is the densify spacing used by C3 before splitting loops.
	DensifyIntervalM float64
	// PointMergeTolDegrees merges candidate split points within this distance.
	PointMergeTolDegrees float64

	// StageTimeoutC4 and StageTimeoutDefault are the soft per-stage
	// deadlines in seconds (spec.md §5/§6: {C4:600, else:300}).
	StageTimeoutC4      int
	StageTimeoutDefault int
}

// NewDefault returns a Config with every default from spec.md §6.
func NewDefault() *Config {
	return &Config{
		SnapTolDegrees:       1e-6,
		SplitBufferDegrees:   1e-6,
		TIntersectionTolM:    3.0,
		VertexMergeTolM:      0.1,
		GapToleranceM:        10.0,
		MinSegmentM:          1.0,
		LengthToleranceM:     1.0,
		RoundDecimals:        6,
		MergeDegree2:         true,
		DensifyIntervalM:     5.0,
		PointMergeTolDegrees: 0.01 / 111320.0, // ~0.01m expressed in degrees at the equator
		StageTimeoutC4:       600,
		StageTimeoutDefault:  300,
	}
}

// Load builds a Config from environment variables, falling back to
// NewDefault's values — mirrors the teacher's config.Load().
func Load() *Config {
	d := NewDefault()
	return &Config{
		SnapTolDegrees:       getEnvFloat("CARTHORSE_SNAP_TOL_DEGREES", d.SnapTolDegrees),
		SplitBufferDegrees:   getEnvFloat("CARTHORSE_SPLIT_BUFFER_DEGREES", d.SplitBufferDegrees),
		TIntersectionTolM:    getEnvFloat("CARTHORSE_T_INTERSECTION_TOL_M", d.TIntersectionTolM),
		VertexMergeTolM:      getEnvFloat("CARTHORSE_VERTEX_MERGE_TOL_M", d.VertexMergeTolM),
		GapToleranceM:        getEnvFloat("CARTHORSE_GAP_TOLERANCE_M", d.GapToleranceM),
		MinSegmentM:          getEnvFloat("CARTHORSE_MIN_SEGMENT_M", d.MinSegmentM),
		LengthToleranceM:     getEnvFloat("CARTHORSE_LENGTH_TOLERANCE_M", d.LengthToleranceM),
		RoundDecimals:        getEnvInt("CARTHORSE_ROUND_DECIMALS", d.RoundDecimals),
		MergeDegree2:         getEnvBool("CARTHORSE_MERGE_DEGREE2", d.MergeDegree2),
		DensifyIntervalM:     getEnvFloat("CARTHORSE_DENSIFY_INTERVAL_M", d.DensifyIntervalM),
		PointMergeTolDegrees: d.PointMergeTolDegrees,
		StageTimeoutC4:       getEnvInt("CARTHORSE_STAGE_TIMEOUT_C4_S", d.StageTimeoutC4),
		StageTimeoutDefault:  getEnvInt("CARTHORSE_STAGE_TIMEOUT_DEFAULT_S", d.StageTimeoutDefault),
	}
}

// Validate checks the tolerance-ordering invariants a misconfigured run
// would otherwise violate silently (e.g. bridging gaps smaller than the
// coincidence threshold).
func (c *Config) Validate() error {
	switch {
	case c.MinSegmentM <= 0:
		return fmt.Errorf("config: min_segment_m must be positive, got %v", c.MinSegmentM)
	case c.GapToleranceM <= 1.0:
		return fmt.Errorf("config: gap_tolerance_m must exceed the 1.0m coincidence threshold, got %v", c.GapToleranceM)
	case c.VertexMergeTolM < 0:
		return fmt.Errorf("config: vertex_merge_tol_m must be non-negative, got %v", c.VertexMergeTolM)
	case c.RoundDecimals < 0 || c.RoundDecimals > 15:
		return fmt.Errorf("config: round_decimals out of range, got %d", c.RoundDecimals)
	case c.StageTimeoutC4 <= 0 || c.StageTimeoutDefault <= 0:
		return fmt.Errorf("config: stage timeouts must be positive")
	}
	return nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Warning: invalid integer value for %s: %s, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Warning: invalid float value for %s: %s, using default %v", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("Warning: invalid bool value for %s: %s, using default %v", key, value, defaultValue)
	}
	return defaultValue
}

// Override applies a single "key=val" CLI override (the --set flag from
// spec.md §6's CLI surface) onto c. Unknown keys are reported as an error
// rather than silently ignored.
func (c *Config) Override(key, val string) error {
	switch key {
	case "snap_tol_degrees":
		return setFloat(&c.SnapTolDegrees, val)
	case "split_buffer_degrees":
		return setFloat(&c.SplitBufferDegrees, val)
	case "t_intersection_tol_m":
		return setFloat(&c.TIntersectionTolM, val)
	case "vertex_merge_tol_m":
		return setFloat(&c.VertexMergeTolM, val)
	case "gap_tolerance_m":
		return setFloat(&c.GapToleranceM, val)
	case "min_segment_m":
		return setFloat(&c.MinSegmentM, val)
	case "length_tolerance_m":
		return setFloat(&c.LengthToleranceM, val)
	case "round_decimals":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("config: invalid round_decimals %q: %w", val, err)
		}
		c.RoundDecimals = n
	case "merge_degree2":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("config: invalid merge_degree2 %q: %w", val, err)
		}
		c.MergeDegree2 = b
	case "stage_timeout_s":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("config: invalid stage_timeout_s %q: %w", val, err)
		}
		c.StageTimeoutC4 = n
		c.StageTimeoutDefault = n
	default:
		return fmt.Errorf("config: unknown override key %q", key)
	}
	return nil
}

func setFloat(dst *float64, val string) error {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("config: invalid float %q: %w", val, err)
	}
	*dst = f
	return nil
}
