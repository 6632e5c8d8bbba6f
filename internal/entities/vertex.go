package entities

// Vertex is a graph node uniquely identified by rounded 2D coordinates
// (spec.md §3). Degree is maintained consistent with the edge table after
// every mutation by the component that performs the mutation.
type Vertex struct {
	VertexID int64
	TheGeom  Point2D
	Degree   int
}
