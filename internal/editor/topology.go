package editor

import (
	"slices"

	"github.com/MeKo-Tech/annotator/internal/geometry"
)

// InsertVertex returns a copy of poly with (x, y) added next to its "nearest"
// edge, together with the index the vertex was inserted at. poly is not modified.
//
// The nearest edge is the one minimising the sum of the squared distances from
// (x, y) to both endpoints, not the point-to-segment distance. Ties go to the
// lowest edge index. The vertex lands at position
// (i+1) % n, so for the closing edge it becomes the new first vertex.
func InsertVertex(poly geometry.Polygon, x, y int) (geometry.Polygon, int) {
	p := geometry.Pt(x, y)
	n := len(poly)
	if n == 0 {
		return append(poly, p), 0
	}

	insertAt := -1
	best := 0
	for i := range poly {
		a, b := poly.Edge(i)
		d := geometry.SquaredDistance(p, a) + geometry.SquaredDistance(p, b)
		if insertAt < 0 || d < best {
			best = d
			insertAt = (i + 1) % n
		}
	}

	out := make(geometry.Polygon, 0, n+1)
	out = append(out, poly[:insertAt]...)
	out = append(out, p)
	out = append(out, poly[insertAt:]...)
	return out, insertAt
}

// DeleteVertex returns a copy of poly without vertex i. Polygons at the minimum vertex
// count and out of range indices are returned unchanged with ok == false.
func DeleteVertex(poly geometry.Polygon, i int) (geometry.Polygon, bool) {
	if len(poly) <= geometry.MinPolygonVertices || i < 0 || i >= len(poly) {
		return poly, false
	}
	return slices.Delete(poly.Clone(), i, i+1), true
}
