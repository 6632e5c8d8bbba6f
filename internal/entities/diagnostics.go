package entities

import (
	"fmt"
	"strings"
	"time"
)

// SkipReason records why a single pair/trail/split was skipped during a
// stage, per spec.md §7's "local recovery is preferred" policy.
type SkipReason struct {
	Stage   string
	Subject string // e.g. "trail1uuid,trail2uuid" or an edge id
	Reason  string
}

// StageCounts tracks per-stage input/output counters for the diagnostics
// table spec.md §6 requires ("counts per stage: inputs, splits, merges,
// bridges, discarded").
type StageCounts struct {
	Stage      string
	Inputs     int
	Splits     int
	Merges     int
	Bridges    int
	Discarded  int
	DurationMS int64
	Partial    bool // true if the stage hit its soft deadline
}

// ConnectivityReport is the C8 output summary.
type ConnectivityReport struct {
	ComponentCount      int
	LargestComponent    int
	TotalNodes          int
	ConnectivityScore   float64
	IsolatedNodeIDs     []int64
	IsolatedEdgeIDs     []int64
	ExamplePaths        [][]int64 // vertex id chains
}

// Diagnostics is the always-produced, append-only record of a pipeline
// run (spec.md §6 "Diagnostics table").
type Diagnostics struct {
	StagingName string
	StartedAt   time.Time
	FinishedAt  time.Time

	StageCounts []StageCounts
	SkipReasons []SkipReason

	Connectivity *ConnectivityReport
}

// AddSkip appends a skip reason for a stage.
func (d *Diagnostics) AddSkip(stage, subject, reason string) {
	d.SkipReasons = append(d.SkipReasons, SkipReason{Stage: stage, Subject: subject, Reason: reason})
}

// AddStageCounts appends the counters for a completed (or partial) stage.
func (d *Diagnostics) AddStageCounts(c StageCounts) {
	d.StageCounts = append(d.StageCounts, c)
}

// String renders a short human-readable run summary, in the same
// emoji-prefixed style the teacher uses for its import/sync logs.
func (d *Diagnostics) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %s -> %s\n", d.StagingName, d.StartedAt.Format(time.RFC3339), d.FinishedAt.Format(time.RFC3339))
	for _, c := range d.StageCounts {
		status := "✅"
		if c.Partial {
			status = "⚠️ partial"
		}
		fmt.Fprintf(&b, "  %s %s: inputs=%d splits=%d merges=%d bridges=%d discarded=%d (%dms)\n",
			status, c.Stage, c.Inputs, c.Splits, c.Merges, c.Bridges, c.Discarded, c.DurationMS)
	}
	if len(d.SkipReasons) > 0 {
		fmt.Fprintf(&b, "  %d skip(s) recorded\n", len(d.SkipReasons))
	}
	if d.Connectivity != nil {
		fmt.Fprintf(&b, "  connectivity: %d component(s), score=%.3f, %d isolated node(s)\n",
			d.Connectivity.ComponentCount, d.Connectivity.ConnectivityScore, len(d.Connectivity.IsolatedNodeIDs))
	}
	return b.String()
}
