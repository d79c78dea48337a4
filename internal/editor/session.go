package editor

import (
	"encoding/json"
	"fmt"

	"github.com/MeKo-Tech/annotator/internal/geometry"
)

// DefaultHandleSize is the side of the square hit area around a handle, in pixels.
const DefaultHandleSize = 8

// Mode is the annotation lifecycle stage of a Session.
type Mode int

const (
	ModeStart Mode = iota
	ModeBoundingBox
	ModePolygon
	ModeDone
)

var modeNames = map[Mode]string{
	ModeStart:       "start",
	ModeBoundingBox: "bounding_box",
	ModePolygon:     "polygon",
	ModeDone:        "done",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	for k, v := range modeNames {
		if v == string(text) {
			*m = k
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", text)
}

// ObjectClass is a detector class identifier. It is opaque to the editor and
// is echoed back in the result exactly as it was received.
type ObjectClass json.RawMessage

// MarshalJSON returns the raw identifier, or null when empty.
func (c ObjectClass) MarshalJSON() ([]byte, error) {
	if len(c) == 0 {
		return []byte("null"), nil
	}
	return c, nil
}

// UnmarshalJSON stores a copy of the raw identifier.
func (c *ObjectClass) UnmarshalJSON(data []byte) error {
	*c = append((*c)[:0], data...)
	return nil
}

func (c ObjectClass) String() string {
	return string(c)
}

// ClassOf builds an ObjectClass from any JSON-encodable value.
func ClassOf(v any) ObjectClass {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return ObjectClass(data)
}

// BoundaryRequest describes the rectangle a boundary prediction is needed
// for. It is returned by a successful DoubleClick and must be handed back to
// ApplyBoundary together with the predicted polygon.
type BoundaryRequest struct {
	Index int
	Rect  geometry.Rect
	Class ObjectClass
	seq   uint64
}

// Session is the aggregate state of one annotation job. It is not safe for
// concurrent use; callers serialize every event that touches it.
type Session struct {
	mode       Mode
	handleSize int

	rectangles         []geometry.Rect
	classes            []ObjectClass
	originalRectangles []geometry.Rect

	polygon         geometry.Polygon
	originalPolygon geometry.Polygon

	selected     Optional[int]
	activeCorner Optional[Handle]
	activeVertex Optional[int]
	dragging     bool
	lastX, lastY int

	boundarySeq uint64
	changes     *ChangeTracker
}

// NewSession creates an empty session in ModeStart. A non-positive
// handleSize falls back to DefaultHandleSize.
func NewSession(handleSize int) *Session {
	if handleSize <= 0 {
		handleSize = DefaultHandleSize
	}
	return &Session{
		mode:       ModeStart,
		handleSize: handleSize,
		changes:    NewChangeTracker(),
	}
}

// Mode returns the current lifecycle stage.
func (s *Session) Mode() Mode { return s.mode }

// HandleSize returns the hit tolerance in pixels.
func (s *Session) HandleSize() int { return s.handleSize }

// Dragging reports whether a drag gesture is in progress.
func (s *Session) Dragging() bool { return s.dragging }

// Selected returns the selected rectangle index, if any.
func (s *Session) Selected() Optional[int] { return s.selected }

// Changes returns the session's change tracker.
func (s *Session) Changes() *ChangeTracker { return s.changes }

// Rectangles returns a copy of the live rectangles.
func (s *Session) Rectangles() []geometry.Rect { return geometry.CloneRects(s.rectangles) }

// OriginalRectangles returns a copy of the predicted rectangles.
func (s *Session) OriginalRectangles() []geometry.Rect {
	return geometry.CloneRects(s.originalRectangles)
}

// Polygon returns a copy of the live polygon.
func (s *Session) Polygon() geometry.Polygon { return s.polygon.Clone() }

// OriginalPolygon returns a copy of the predicted polygon.
func (s *Session) OriginalPolygon() geometry.Polygon { return s.originalPolygon.Clone() }

// ApplyPredictions loads the detector output and enters ModeBoundingBox.
// rects and classes are parallel and must have equal length. The session
// keeps its own copies, so later edits never reach the caller's slices or the
// predicted baseline.
func (s *Session) ApplyPredictions(rects []geometry.Rect, classes []ObjectClass) error {
	if s.mode != ModeStart {
		return fmt.Errorf("%w: predictions received in mode %s", ErrInvalidState, s.mode)
	}
	if len(rects) != len(classes) {
		return fmt.Errorf("%w: %d rectangles but %d classes", ErrInvalidState, len(rects), len(classes))
	}

	s.rectangles = geometry.CloneRects(rects)
	s.originalRectangles = geometry.CloneRects(rects)
	s.classes = make([]ObjectClass, len(classes))
	for i, c := range classes {
		s.classes[i] = append(ObjectClass(nil), c...)
	}
	s.mode = ModeBoundingBox
	return nil
}

// DoubleClick selects the single rectangle containing (x, y) and returns the
// boundary request to issue for it. When no rectangle or more than one
// rectangle contains the point nothing changes and ok is false; the editor
// never guesses between overlapping candidates.
func (s *Session) DoubleClick(x, y int) (BoundaryRequest, bool) {
	if s.mode != ModeBoundingBox {
		return BoundaryRequest{}, false
	}
	hits := LocateRectanglesContaining(s.rectangles, x, y)
	if len(hits) != 1 {
		return BoundaryRequest{}, false
	}

	idx := hits[0]
	s.selected = Some(idx)
	s.boundarySeq++
	return BoundaryRequest{
		Index: idx,
		Rect:  s.rectangles[idx],
		Class: append(ObjectClass(nil), s.classes[idx]...),
		seq:   s.boundarySeq,
	}, true
}

// ApplyBoundary installs the predicted polygon for req and enters
// ModePolygon. Responses for a request that is no longer the latest, or whose
// rectangle is no longer selected, are rejected with ErrStaleResponse and
// leave the session untouched. A rectangle drag still in progress is counted
// as a finished move.
func (s *Session) ApplyBoundary(req BoundaryRequest, poly geometry.Polygon) error {
	if s.mode != ModeBoundingBox {
		return fmt.Errorf("%w: boundary received in mode %s", ErrStaleResponse, s.mode)
	}
	if sel, ok := s.selected.Get(); !ok || sel != req.Index || req.seq != s.boundarySeq {
		return fmt.Errorf("%w: rectangle %d is no longer selected", ErrStaleResponse, req.Index)
	}
	if len(poly) < geometry.MinPolygonVertices {
		return fmt.Errorf("%w: boundary has %d vertices, need at least %d",
			ErrInvalidState, len(poly), geometry.MinPolygonVertices)
	}

	s.endGesture(true)
	s.polygon = poly.Clone()
	s.originalPolygon = poly.Clone()
	s.mode = ModePolygon
	return nil
}

// MarkSubmitted finalizes the session after the backend acknowledged the result.
func (s *Session) MarkSubmitted() error {
	if s.mode != ModePolygon {
		return fmt.Errorf("%w: submit in mode %s", ErrInvalidState, s.mode)
	}
	s.endGesture(false)
	s.mode = ModeDone
	return nil
}
