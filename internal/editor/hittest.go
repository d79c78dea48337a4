package editor

import (
	"fmt"

	"github.com/MeKo-Tech/annotator/internal/geometry"
)

// Handle identifies a rectangle corner.
//
//	1 2
//	3 4
type Handle int

const (
	HandleTopLeft     Handle = 1 // (x1, y1)
	HandleTopRight    Handle = 2 // (x2, y1)
	HandleBottomLeft  Handle = 3 // (x1, y2)
	HandleBottomRight Handle = 4 // (x2, y2)
)

// handleOrder is the fixed test order; the first hit wins.
var handleOrder = [4]Handle{HandleTopLeft, HandleTopRight, HandleBottomLeft, HandleBottomRight}

// Valid reports whether h names one of the four corners.
func (h Handle) Valid() bool {
	return h >= HandleTopLeft && h <= HandleBottomRight
}

func (h Handle) String() string {
	switch h {
	case HandleTopLeft:
		return "top-left"
	case HandleTopRight:
		return "top-right"
	case HandleBottomLeft:
		return "bottom-left"
	case HandleBottomRight:
		return "bottom-right"
	default:
		return fmt.Sprintf("handle(%d)", int(h))
	}
}

// inHandleSquare reports whether (x, y) lies in the square of side tolerance
// centred on c. Bounds are inclusive.
func inHandleSquare(c geometry.Point, tolerance, x, y int) bool {
	half := float64(tolerance) / 2
	fx, fy := float64(x), float64(y)
	return float64(c.X)-half <= fx && fx <= float64(c.X)+half &&
		float64(c.Y)-half <= fy && fy <= float64(c.Y)+half
}

// LocateRectangleHandle returns the corner of rect whose handle square
// contains (x, y). Corners are tested in order 1, 2, 3, 4.
func LocateRectangleHandle(rect geometry.Rect, tolerance, x, y int) (Handle, bool) {
	corners := rect.Corners()
	for i, h := range handleOrder {
		if inHandleSquare(corners[i], tolerance, x, y) {
			return h, true
		}
	}
	return 0, false
}

// LocateAnyRectangleHandle scans rects in index order and returns the first
// rectangle with a corner under (x, y).
func LocateAnyRectangleHandle(rects []geometry.Rect, tolerance, x, y int) (int, Handle, bool) {
	for i, r := range rects {
		if h, ok := LocateRectangleHandle(r, tolerance, x, y); ok {
			return i, h, true
		}
	}
	return -1, 0, false
}

// LocatePolygonVertex returns the first vertex whose handle square contains (x, y).
func LocatePolygonVertex(poly geometry.Polygon, tolerance, x, y int) (int, bool) {
	for i, v := range poly {
		if inHandleSquare(v, tolerance, x, y) {
			return i, true
		}
	}
	return -1, false
}

// LocateRectanglesContaining returns the indices of every rectangle whose
// area contains (x, y), in ascending order.
func LocateRectanglesContaining(rects []geometry.Rect, x, y int) []int {
	var out []int
	p := geometry.Pt(x, y)
	for i, r := range rects {
		if r.Contains(p) {
			out = append(out, i)
		}
	}
	return out
}
