package editor

import "github.com/MeKo-Tech/annotator/internal/geometry"

// Button is a pointer button, numbered like DOM MouseEvent.button.
type Button int

const (
	ButtonPrimary   Button = 0
	ButtonAuxiliary Button = 1
	ButtonSecondary Button = 2
)

// PointerDown starts a gesture at (x, y). It reports whether the shapes changed.
//
// In bounding box mode any button grabs the first rectangle corner under the
// pointer. In polygon mode the primary button grabs a vertex, while the
// secondary button deletes the vertex under the pointer or, if there is none,
// inserts a new vertex at the pointer. Insert and delete never start a drag.
func (s *Session) PointerDown(x, y int, button Button) bool {
	switch s.mode {
	case ModeBoundingBox:
		s.lastX, s.lastY = x, y
		idx, h, ok := LocateAnyRectangleHandle(s.rectangles, s.handleSize, x, y)
		if !ok {
			return false
		}
		s.selected = Some(idx)
		s.activeCorner = Some(h)
		s.dragging = true
		return false

	case ModePolygon:
		s.lastX, s.lastY = x, y
		switch button {
		case ButtonPrimary:
			v, ok := LocatePolygonVertex(s.polygon, s.handleSize, x, y)
			if !ok {
				return false
			}
			s.activeVertex = Some(v)
			s.dragging = true
			return false
		case ButtonSecondary:
			return s.toggleVertex(x, y)
		}
	}
	return false
}

// toggleVertex deletes the vertex under (x, y) or inserts a new one there.
func (s *Session) toggleVertex(x, y int) bool {
	if v, ok := LocatePolygonVertex(s.polygon, s.handleSize, x, y); ok {
		poly, deleted := DeleteVertex(s.polygon, v)
		if !deleted {
			return false
		}
		s.polygon = poly
		s.changes.RecordPolygonChange(ChangeDelete)
		return true
	}
	s.polygon, _ = InsertVertex(s.polygon, x, y)
	s.changes.RecordPolygonChange(ChangeAdd)
	return true
}

// PointerMove drags the grabbed handle by the distance travelled since the
// previous pointer event. It reports whether the shapes changed.
func (s *Session) PointerMove(x, y int) bool {
	if !s.dragging {
		return false
	}
	dx, dy := x-s.lastX, y-s.lastY
	s.lastX, s.lastY = x, y

	switch s.mode {
	case ModeBoundingBox:
		idx, ok := s.selected.Get()
		if !ok || idx < 0 || idx >= len(s.rectangles) {
			return false
		}
		MoveRectangleHandle(&s.rectangles[idx], s.activeCorner, dx, dy)
	case ModePolygon:
		MovePolygonVertex(s.polygon, s.activeVertex, dx, dy)
	default:
		return false
	}
	return dx != 0 || dy != 0
}

// PointerUp ends the gesture. A finished drag counts as exactly one move no
// matter how many PointerMove events it spanned.
func (s *Session) PointerUp() bool {
	return s.endGesture(true)
}

// PointerLeave ends the gesture when the pointer leaves the surface.
func (s *Session) PointerLeave() bool {
	return s.endGesture(true)
}

// endGesture clears the drag state, recording one move when record is set
// and a drag was in progress. It reports whether a drag ended.
func (s *Session) endGesture(record bool) bool {
	if !s.dragging {
		return false
	}
	if record {
		switch s.mode {
		case ModeBoundingBox:
			if idx, ok := s.selected.Get(); ok {
				s.changes.RecordRectangleMove(idx)
			}
		case ModePolygon:
			s.changes.RecordPolygonChange(ChangeMove)
		}
	}
	s.dragging = false
	s.activeCorner = None[Handle]()
	s.activeVertex = None[int]()
	return true
}

// State is a detached, JSON-friendly copy of a session used for rendering
// and for reporting to clients.
type State struct {
	Mode               Mode             `json:"mode"`
	HandleSize         int              `json:"handle_size"`
	Rectangles         []geometry.Rect  `json:"rectangles"`
	Classes            []ObjectClass    `json:"classes"`
	Selected           *int             `json:"selected,omitempty"`
	Polygon            geometry.Polygon `json:"polygon,omitempty"`
	Dragging           bool             `json:"dragging"`
	RectangleMoves     map[int]int      `json:"rectangle_moves"`
	PolygonChanges     PolygonChanges   `json:"polygon_changes"`
	OriginalRectangles []geometry.Rect  `json:"original_rectangles,omitempty"`
	OriginalPolygon    geometry.Polygon `json:"original_polygon,omitempty"`
}

// Snapshot returns a State sharing no storage with the session.
func (s *Session) Snapshot() State {
	st := State{
		Mode:               s.mode,
		HandleSize:         s.handleSize,
		Rectangles:         geometry.CloneRects(s.rectangles),
		Classes:            make([]ObjectClass, len(s.classes)),
		Polygon:            s.polygon.Clone(),
		Dragging:           s.dragging,
		RectangleMoves:     s.changes.AllRectangleMoves(),
		PolygonChanges:     s.changes.PolygonChanges(),
		OriginalRectangles: geometry.CloneRects(s.originalRectangles),
		OriginalPolygon:    s.originalPolygon.Clone(),
	}
	for i, c := range s.classes {
		st.Classes[i] = append(ObjectClass(nil), c...)
	}
	if idx, ok := s.selected.Get(); ok {
		st.Selected = &idx
	}
	return st
}
