package editor

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/MeKo-Tech/annotator/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBoxSession returns a session that has received the given predictions.
func newBoxSession(t *testing.T, rects ...geometry.Rect) *Session {
	t.Helper()
	classes := make([]ObjectClass, len(rects))
	for i := range rects {
		classes[i] = ClassOf(i + 3)
	}
	s := NewSession(8)
	require.NoError(t, s.ApplyPredictions(rects, classes))
	return s
}

// newPolygonSession returns a session in polygon mode for the first rectangle.
func newPolygonSession(t *testing.T, poly geometry.Polygon) *Session {
	t.Helper()
	s := newBoxSession(t, geometry.R(0, 0, 100, 100))
	req, ok := s.DoubleClick(50, 50)
	require.True(t, ok)
	require.NoError(t, s.ApplyBoundary(req, poly))
	return s
}

func TestNewSession(t *testing.T) {
	s := NewSession(0)
	assert.Equal(t, ModeStart, s.Mode())
	assert.Equal(t, DefaultHandleSize, s.HandleSize())
	assert.False(t, s.Selected().IsSet())
	assert.False(t, s.Dragging())
}

func TestSession_ApplyPredictionsSnapshotsOriginals(t *testing.T) {
	rects := []geometry.Rect{geometry.R(10, 10, 50, 50)}
	s := NewSession(8)
	require.NoError(t, s.ApplyPredictions(rects, []ObjectClass{ClassOf(3)}))

	assert.Equal(t, ModeBoundingBox, s.Mode())
	assert.Equal(t, rects, s.OriginalRectangles())
	assert.Equal(t, rects, s.Rectangles())

	// Mutating the caller's slice must not leak into the session.
	rects[0].X1 = 999
	assert.Equal(t, geometry.R(10, 10, 50, 50), s.Rectangles()[0])
}

func TestSession_ApplyPredictionsErrors(t *testing.T) {
	s := NewSession(8)
	err := s.ApplyPredictions([]geometry.Rect{geometry.R(0, 0, 1, 1)}, nil)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, ModeStart, s.Mode())

	require.NoError(t, s.ApplyPredictions(nil, nil))
	err = s.ApplyPredictions(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSession_DragRectangleHandle(t *testing.T) {
	s := newBoxSession(t, geometry.R(10, 10, 50, 50))

	s.PointerDown(50, 50, ButtonPrimary)
	require.True(t, s.Dragging())
	assert.True(t, s.PointerMove(52, 51))
	assert.True(t, s.PointerMove(55, 55))
	assert.True(t, s.PointerUp())

	assert.False(t, s.Dragging())
	assert.Equal(t, geometry.R(10, 10, 55, 55), s.Rectangles()[0])
	assert.Equal(t, 1, s.Changes().RectangleMoves(0))
	assert.Equal(t, geometry.R(10, 10, 50, 50), s.OriginalRectangles()[0])
	sel, ok := s.Selected().Get()
	require.True(t, ok)
	assert.Equal(t, 0, sel)
}

func TestSession_PointerDownMissDoesNotDrag(t *testing.T) {
	s := newBoxSession(t, geometry.R(10, 10, 50, 50))

	s.PointerDown(30, 30, ButtonPrimary)
	assert.False(t, s.Dragging())
	assert.False(t, s.PointerMove(40, 40))
	assert.False(t, s.PointerUp())
	assert.Equal(t, geometry.R(10, 10, 50, 50), s.Rectangles()[0])
	assert.Zero(t, s.Changes().RectangleMoves(0))
	assert.False(t, s.Selected().IsSet())
}

func TestSession_PointerLeaveEndsGesture(t *testing.T) {
	s := newBoxSession(t, geometry.R(10, 10, 50, 50))

	s.PointerDown(10, 10, ButtonPrimary)
	s.PointerMove(5, 5)
	assert.True(t, s.PointerLeave())
	assert.False(t, s.PointerLeave())
	assert.Equal(t, geometry.R(5, 5, 50, 50), s.Rectangles()[0])
	assert.Equal(t, 1, s.Changes().RectangleMoves(0))
}

func TestSession_PointerEventsIgnoredOutsideEditingModes(t *testing.T) {
	s := NewSession(8)
	assert.False(t, s.PointerDown(0, 0, ButtonPrimary))
	assert.False(t, s.Dragging())
	assert.False(t, s.PointerMove(5, 5))
	assert.False(t, s.PointerUp())
}

func TestSession_DoubleClick(t *testing.T) {
	t.Run("single containing rectangle selects it", func(t *testing.T) {
		s := newBoxSession(t, geometry.R(10, 10, 50, 50))
		req, ok := s.DoubleClick(30, 30)
		require.True(t, ok)
		assert.Equal(t, 0, req.Index)
		assert.Equal(t, geometry.R(10, 10, 50, 50), req.Rect)
		assert.JSONEq(t, `3`, string(req.Class))
		assert.Equal(t, ModeBoundingBox, s.Mode(), "mode changes only once the boundary arrives")

		require.NoError(t, s.ApplyBoundary(req, geometry.Polygon{{X: 10, Y: 10}, {X: 50, Y: 10}, {X: 30, Y: 50}}))
		assert.Equal(t, ModePolygon, s.Mode())
	})

	t.Run("no containing rectangle is a no-op", func(t *testing.T) {
		s := newBoxSession(t, geometry.R(10, 10, 50, 50))
		_, ok := s.DoubleClick(1000, 1000)
		assert.False(t, ok)
		assert.Equal(t, ModeBoundingBox, s.Mode())
		assert.False(t, s.Selected().IsSet())
	})

	t.Run("overlapping rectangles are ambiguous", func(t *testing.T) {
		s := newBoxSession(t, geometry.R(0, 0, 50, 50), geometry.R(25, 25, 75, 75))
		_, ok := s.DoubleClick(30, 30)
		assert.False(t, ok)
		assert.False(t, s.Selected().IsSet())

		req, ok := s.DoubleClick(60, 60)
		require.True(t, ok)
		assert.Equal(t, 1, req.Index)
	})

	t.Run("ignored in polygon mode", func(t *testing.T) {
		s := newPolygonSession(t, geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}})
		_, ok := s.DoubleClick(5, 5)
		assert.False(t, ok)
	})
}

func TestSession_ApplyBoundaryStaleness(t *testing.T) {
	poly := geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}

	t.Run("selection moved to another rectangle", func(t *testing.T) {
		s := newBoxSession(t, geometry.R(0, 0, 50, 50), geometry.R(100, 100, 150, 150))
		req, ok := s.DoubleClick(25, 25)
		require.True(t, ok)

		// Grabbing a corner of the other rectangle changes the selection.
		s.PointerDown(100, 100, ButtonPrimary)
		s.PointerUp()

		err := s.ApplyBoundary(req, poly)
		require.ErrorIs(t, err, ErrStaleResponse)
		assert.Equal(t, ModeBoundingBox, s.Mode())
		assert.Nil(t, s.Polygon())
	})

	t.Run("superseded by a newer double click", func(t *testing.T) {
		s := newBoxSession(t, geometry.R(0, 0, 50, 50))
		first, ok := s.DoubleClick(25, 25)
		require.True(t, ok)
		second, ok := s.DoubleClick(26, 26)
		require.True(t, ok)

		require.ErrorIs(t, s.ApplyBoundary(first, poly), ErrStaleResponse)
		require.NoError(t, s.ApplyBoundary(second, poly))
		require.ErrorIs(t, s.ApplyBoundary(second, poly), ErrStaleResponse)
	})

	t.Run("degenerate boundary rejected", func(t *testing.T) {
		s := newBoxSession(t, geometry.R(0, 0, 50, 50))
		req, ok := s.DoubleClick(25, 25)
		require.True(t, ok)
		err := s.ApplyBoundary(req, geometry.Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}})
		require.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, ModeBoundingBox, s.Mode())
	})
}

func TestSession_ApplyBoundaryDuringDragCountsMove(t *testing.T) {
	s := newBoxSession(t, geometry.R(10, 10, 50, 50))
	req, ok := s.DoubleClick(30, 30)
	require.True(t, ok)

	s.PointerDown(50, 50, ButtonPrimary)
	s.PointerMove(60, 60)
	require.True(t, s.Dragging())

	require.NoError(t, s.ApplyBoundary(req, geometry.Polygon{{X: 15, Y: 15}, {X: 45, Y: 15}, {X: 45, Y: 45}}))
	assert.False(t, s.Dragging())
	assert.Equal(t, ModePolygon, s.Mode())

	// The release arrives after the mode switch and must not count again.
	assert.False(t, s.PointerUp())

	p, err := AssembleResult(s)
	require.NoError(t, err)
	assert.Equal(t, geometry.R(10, 10, 60, 60), p.AnnotatedBoundingBox)
	assert.Equal(t, geometry.R(10, 10, 50, 50), p.PredictedBoundingBox)
	assert.Equal(t, 1, p.BoundingBoxChanges)
	assert.Zero(t, p.PolygonChanges)
}

func TestSession_ApplyBoundarySnapshotsOriginal(t *testing.T) {
	poly := geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}
	s := newPolygonSession(t, poly)

	poly[0].X = 77
	assert.Equal(t, geometry.Pt(0, 0), s.OriginalPolygon()[0])

	s.PointerDown(0, 0, ButtonPrimary)
	s.PointerMove(3, 4)
	s.PointerUp()
	assert.Equal(t, geometry.Pt(3, 4), s.Polygon()[0])
	assert.Equal(t, geometry.Pt(0, 0), s.OriginalPolygon()[0])
	assert.Equal(t, PolygonChanges{Move: 1}, s.Changes().PolygonChanges())
}

func TestSession_PolygonSecondaryButton(t *testing.T) {
	s := newPolygonSession(t, geometry.Polygon{{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 40}, {X: 0, Y: 40}})

	// Delete vertex 0 by pressing on it.
	assert.True(t, s.PointerDown(1, 1, ButtonSecondary))
	assert.False(t, s.Dragging())
	assert.Equal(t, geometry.Polygon{{X: 40, Y: 0}, {X: 40, Y: 40}, {X: 0, Y: 40}}, s.Polygon())

	// Minimum vertex count reached: deletion is refused and not counted.
	assert.False(t, s.PointerDown(40, 0, ButtonSecondary))
	assert.Len(t, s.Polygon(), 3)

	// Press away from any vertex inserts one.
	assert.True(t, s.PointerDown(20, 0, ButtonSecondary))
	assert.Len(t, s.Polygon(), 4)
	assert.False(t, s.Dragging())

	assert.Equal(t, PolygonChanges{Add: 1, Delete: 1}, s.Changes().PolygonChanges())
}

func TestSession_AuxiliaryButtonIgnoredInPolygonMode(t *testing.T) {
	s := newPolygonSession(t, geometry.Polygon{{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 40}})
	assert.False(t, s.PointerDown(0, 0, ButtonAuxiliary))
	assert.False(t, s.Dragging())
	assert.Len(t, s.Polygon(), 3)
}

func TestSession_MarkSubmitted(t *testing.T) {
	s := newBoxSession(t, geometry.R(0, 0, 10, 10))
	require.ErrorIs(t, s.MarkSubmitted(), ErrInvalidState)

	s = newPolygonSession(t, geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}})
	require.NoError(t, s.MarkSubmitted())
	assert.Equal(t, ModeDone, s.Mode())

	assert.False(t, s.PointerDown(0, 0, ButtonPrimary))
	assert.False(t, s.Dragging())
}

func TestAssembleResult(t *testing.T) {
	t.Run("no selection", func(t *testing.T) {
		s := newBoxSession(t, geometry.R(0, 0, 10, 10))
		_, err := AssembleResult(s)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("untouched rectangle reports zero changes", func(t *testing.T) {
		s := newPolygonSession(t, geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}})
		res, err := AssembleResult(s)
		require.NoError(t, err)
		assert.Zero(t, res.BoundingBoxChanges)
		assert.Zero(t, res.PolygonChanges)
	})

	t.Run("full diff", func(t *testing.T) {
		s := newBoxSession(t, geometry.R(10, 10, 50, 50))
		s.PointerDown(50, 50, ButtonPrimary)
		s.PointerMove(55, 55)
		s.PointerUp()

		req, ok := s.DoubleClick(30, 30)
		require.True(t, ok)
		require.NoError(t, s.ApplyBoundary(req, geometry.Polygon{{X: 10, Y: 10}, {X: 50, Y: 10}, {X: 50, Y: 50}, {X: 10, Y: 50}}))

		s.PointerDown(10, 10, ButtonPrimary)
		s.PointerMove(12, 12)
		s.PointerUp()
		s.PointerDown(30, 11, ButtonSecondary)

		before := s.Snapshot()
		res, err := AssembleResult(s)
		require.NoError(t, err)
		assert.Equal(t, before, s.Snapshot(), "assembling must not mutate the session")

		data, err := json.Marshal(res)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"object_class": 3,
			"predicted_bounding_box": [10,10,50,50],
			"predicted_polygon": [[10,10],[50,10],[50,50],[10,50]],
			"annotated_bounding_box": [10,10,55,55],
			"annotated_polygon": [[12,12],[30,11],[50,10],[50,50],[10,50]],
			"bounding_box_changes": 1,
			"polygon_changes": 2
		}`, string(data))
	})
}

func TestObjectClass_RoundTripsVerbatim(t *testing.T) {
	var classes []ObjectClass
	require.NoError(t, json.Unmarshal([]byte(`[3, "person", 1.5]`), &classes))
	require.Len(t, classes, 3)

	data, err := json.Marshal(classes)
	require.NoError(t, err)
	assert.JSONEq(t, `[3, "person", 1.5]`, string(data))

	data, err = json.Marshal(ObjectClass(nil))
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestMode_Text(t *testing.T) {
	for _, m := range []Mode{ModeStart, ModeBoundingBox, ModePolygon, ModeDone} {
		text, err := m.MarshalText()
		require.NoError(t, err)
		var back Mode
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, m, back)
	}
	var m Mode
	assert.Error(t, m.UnmarshalText([]byte("contour")))
}
