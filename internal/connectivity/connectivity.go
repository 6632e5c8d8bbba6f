// Package connectivity implements the Connectivity Analyzer (C8): it
// loads the finished graph into a katalvlaran/lvlath core.Graph and runs
// BFS-based component discovery and shortest-path smoke tests, the way
// the teacher leans on a purpose-built library for its PostGIS/MVT
// plumbing rather than hand-rolling the equivalent.
package connectivity

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"

	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/staging"
)

// Analyze builds an in-memory undirected graph from the staged
// vertices/edges and returns a ConnectivityReport per spec.md §4.8:
// component count, largest component size, a connectivity score
// (largest component size / total vertex count), isolated nodes/edges,
// and a handful of example shortest paths.
func Analyze(ctx context.Context, store *staging.Store) (*entities.ConnectivityReport, error) {
	vertices, err := store.ListVertices(ctx)
	if err != nil {
		return nil, fmt.Errorf("connectivity: list vertices: %w", err)
	}
	edges, err := store.ListEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("connectivity: list edges: %w", err)
	}

	g := core.NewGraph()
	for _, v := range vertices {
		if err := g.AddVertex(vertexLabel(v.VertexID)); err != nil {
			return nil, fmt.Errorf("connectivity: add vertex %d: %w", v.VertexID, err)
		}
	}
	for _, e := range edges {
		if e.Source == e.Target {
			continue // lvlath's default graph disallows loops
		}
		if _, err := g.AddEdge(vertexLabel(e.Source), vertexLabel(e.Target), 0); err != nil {
			return nil, fmt.Errorf("connectivity: add edge %d: %w", e.EdgeID, err)
		}
	}

	components := findComponents(g)

	report := &entities.ConnectivityReport{
		ComponentCount: len(components),
		TotalNodes:     len(vertices),
	}

	var largest []string
	for _, c := range components {
		if len(c) > len(largest) {
			largest = c
		}
	}
	report.LargestComponent = len(largest)
	if report.TotalNodes > 0 {
		report.ConnectivityScore = float64(report.LargestComponent) / float64(report.TotalNodes)
	}

	report.IsolatedNodeIDs = isolatedVertices(vertices, edges)
	report.IsolatedEdgeIDs = isolatedEdges(edges)
	report.ExamplePaths = examplePaths(g, components)

	return report, nil
}

func vertexLabel(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseLabel(label string) int64 {
	id, _ := strconv.ParseInt(label, 10, 64)
	return id
}

// findComponents groups vertices into connected components via repeated
// BFS from an unvisited vertex, in deterministic (sorted) vertex order.
func findComponents(g *core.Graph) [][]string {
	all := g.Vertices() // already sorted lex asc
	visited := make(map[string]bool, len(all))
	var components [][]string

	for _, start := range all {
		if visited[start] {
			continue
		}
		res, err := bfs.BFS(g, start)
		if err != nil {
			// Isolated vertex: BFS still succeeds (order == [start]) for any
			// valid start, so this only happens on a library-internal error;
			// treat the vertex as its own singleton component defensively.
			components = append(components, []string{start})
			visited[start] = true
			continue
		}
		sort.Strings(res.Order)
		components = append(components, res.Order)
		for _, id := range res.Order {
			visited[id] = true
		}
	}
	return components
}

func isolatedVertices(vertices []*entities.Vertex, edges []*entities.Edge) []int64 {
	degree := make(map[int64]int, len(vertices))
	for _, v := range vertices {
		degree[v.VertexID] = 0
	}
	for _, e := range edges {
		degree[e.Source]++
		degree[e.Target]++
	}
	var out []int64
	for _, v := range vertices {
		if degree[v.VertexID] == 0 {
			out = append(out, v.VertexID)
		}
	}
	return out
}

// isolatedEdges reports edges whose both endpoints are referenced by no
// other edge (spec.md §4.8: a 2-node component unto itself), not edges
// that happen to be self-loops.
func isolatedEdges(edges []*entities.Edge) []int64 {
	degree := make(map[int64]int, len(edges)*2)
	for _, e := range edges {
		degree[e.Source]++
		degree[e.Target]++
	}
	var out []int64
	for _, e := range edges {
		if degree[e.Source] == 1 && degree[e.Target] == 1 {
			out = append(out, e.EdgeID)
		}
	}
	return out
}

// examplePaths returns, for each of up to three non-trivial components, a
// BFS shortest path between its first and last vertex — a smoke test that
// the graph is actually traversable end to end, not just connected on
// paper.
func examplePaths(g *core.Graph, components [][]string) [][]int64 {
	var out [][]int64
	count := 0
	for _, c := range components {
		if len(c) < 2 || count >= 3 {
			continue
		}
		res, err := bfs.BFS(g, c[0])
		if err != nil {
			continue
		}
		path, err := res.PathTo(c[len(c)-1])
		if err != nil {
			continue
		}
		ids := make([]int64, len(path))
		for i, label := range path {
			ids[i] = parseLabel(label)
		}
		out = append(out, ids)
		count++
	}
	return out
}
