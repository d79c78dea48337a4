// Package geometry provides the integer canvas-space shapes edited by the
// annotation editor: points, axis-aligned rectangles and closed polygons.
//
// All types are plain values. Rect and Point copy on assignment; Polygon is a
// slice and must be cloned with Clone whenever an independent copy is needed.
package geometry

import (
	"encoding/json"
	"fmt"
	"image"
)

// MinPolygonVertices is the smallest number of vertices a Polygon may have.
const MinPolygonVertices = 3

// Point is a pixel coordinate in canvas space.
type Point struct {
	X int
	Y int
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// ImagePoint converts p to an image.Point.
func (p Point) ImagePoint() image.Point {
	return image.Pt(p.X, p.Y)
}

// MarshalJSON encodes the point as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

// UnmarshalJSON decodes a point from [x, y]. Fractional values are truncated
// toward zero, the same way the detector output is converted to pixels.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("point: expected 2 values, got %d", len(raw))
	}
	p.X, p.Y = int(raw[0]), int(raw[1])
	return nil
}

// Rect is an axis-aligned rectangle addressed by its two corners.
// The corners are not normalized: X1 may exceed X2 and Y1 may exceed Y2.
type Rect struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// R is shorthand for Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}.
func R(x1, y1, x2, y2 int) Rect {
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Min returns the normalized top-left corner.
func (r Rect) Min() Point {
	return Point{X: min(r.X1, r.X2), Y: min(r.Y1, r.Y2)}
}

// Max returns the normalized bottom-right corner.
func (r Rect) Max() Point {
	return Point{X: max(r.X1, r.X2), Y: max(r.Y1, r.Y2)}
}

// Width returns the absolute horizontal extent.
func (r Rect) Width() int { return r.Max().X - r.Min().X }

// Height returns the absolute vertical extent.
func (r Rect) Height() int { return r.Max().Y - r.Min().Y }

// Area returns the absolute area of the rectangle.
func (r Rect) Area() int { return r.Width() * r.Height() }

// Contains reports whether p lies inside the rectangle, edges included.
// Inverted rectangles are handled by comparing against the normalized bounds.
func (r Rect) Contains(p Point) bool {
	lo, hi := r.Min(), r.Max()
	return p.X >= lo.X && p.X <= hi.X && p.Y >= lo.Y && p.Y <= hi.Y
}

// Corners returns the four corners in handle order: (x1,y1), (x2,y1),
// (x1,y2), (x2,y2).
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{X: r.X1, Y: r.Y1},
		{X: r.X2, Y: r.Y1},
		{X: r.X1, Y: r.Y2},
		{X: r.X2, Y: r.Y2},
	}
}

// MarshalJSON encodes the rectangle as [x1, y1, x2, y2].
func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{r.X1, r.Y1, r.X2, r.Y2})
}

// UnmarshalJSON decodes a rectangle from [x1, y1, x2, y2].
func (r *Rect) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("rect: %w", err)
	}
	if len(raw) != 4 {
		return fmt.Errorf("rect: expected 4 values, got %d", len(raw))
	}
	r.X1, r.Y1, r.X2, r.Y2 = int(raw[0]), int(raw[1]), int(raw[2]), int(raw[3])
	return nil
}

// Polygon is a closed ring of vertices; the last vertex connects to the first.
type Polygon []Point

// Clone returns a copy that shares no storage with p. A nil polygon clones to nil.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Edge returns the endpoints of edge i, which runs from p[i] to p[(i+1)%n].
func (p Polygon) Edge(i int) (Point, Point) {
	return p[i], p[(i+1)%len(p)]
}

// Bounds returns the axis-aligned bounding rectangle of the vertices.
func (p Polygon) Bounds() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	r := Rect{X1: p[0].X, Y1: p[0].Y, X2: p[0].X, Y2: p[0].Y}
	for _, v := range p[1:] {
		r.X1 = min(r.X1, v.X)
		r.Y1 = min(r.Y1, v.Y)
		r.X2 = max(r.X2, v.X)
		r.Y2 = max(r.Y2, v.Y)
	}
	return r
}

// Area returns the absolute area enclosed by the ring using the shoelace formula.
func (p Polygon) Area() float64 {
	if len(p) < MinPolygonVertices {
		return 0
	}
	var sum int
	for i := range p {
		a, b := p.Edge(i)
		sum += a.X*b.Y - b.X*a.Y
	}
	if sum < 0 {
		sum = -sum
	}
	return float64(sum) / 2
}

// Equal reports whether both polygons have the same vertices in the same order.
func (p Polygon) Equal(other Polygon) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// CloneRects returns an independent copy of a rectangle list.
func CloneRects(rects []Rect) []Rect {
	if rects == nil {
		return nil
	}
	out := make([]Rect, len(rects))
	copy(out, rects)
	return out
}

// SquaredDistance returns the squared Euclidean distance between a and b.
func SquaredDistance(a, b Point) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}
