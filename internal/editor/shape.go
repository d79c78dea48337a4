package editor

import "github.com/MeKo-Tech/annotator/internal/geometry"

// MoveRectangleHandle shifts the coordinates owned by handle by (dx, dy).
// The result is not validated; corners may cross.
func MoveRectangleHandle(rect *geometry.Rect, handle Optional[Handle], dx, dy int) {
	h, ok := handle.Get()
	if !ok || rect == nil {
		return
	}
	switch h {
	case HandleTopLeft:
		rect.X1 += dx
		rect.Y1 += dy
	case HandleTopRight:
		rect.X2 += dx
		rect.Y1 += dy
	case HandleBottomLeft:
		rect.X1 += dx
		rect.Y2 += dy
	case HandleBottomRight:
		rect.X2 += dx
		rect.Y2 += dy
	}
}

// MovePolygonVertex shifts one vertex of poly in place.
func MovePolygonVertex(poly geometry.Polygon, vertex Optional[int], dx, dy int) {
	i, ok := vertex.Get()
	if !ok || i < 0 || i >= len(poly) {
		return
	}
	poly[i].X += dx
	poly[i].Y += dy
}
