package editor

import (
	"testing"

	"github.com/MeKo-Tech/annotator/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveRectangleHandle(t *testing.T) {
	tests := []struct {
		name     string
		handle   Optional[Handle]
		expected geometry.Rect
	}{
		{name: "handle 1", handle: Some(HandleTopLeft), expected: geometry.R(15, 13, 50, 50)},
		{name: "handle 2", handle: Some(HandleTopRight), expected: geometry.R(10, 13, 55, 50)},
		{name: "handle 3", handle: Some(HandleBottomLeft), expected: geometry.R(15, 10, 50, 53)},
		{name: "handle 4", handle: Some(HandleBottomRight), expected: geometry.R(10, 10, 55, 53)},
		{name: "absent handle", handle: None[Handle](), expected: geometry.R(10, 10, 50, 50)},
		{name: "unknown handle", handle: Some(Handle(7)), expected: geometry.R(10, 10, 50, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := geometry.R(10, 10, 50, 50)
			MoveRectangleHandle(&r, tt.handle, 5, 3)
			assert.Equal(t, tt.expected, r)
		})
	}
}

func TestMoveRectangleHandle_AllowsCrossing(t *testing.T) {
	r := geometry.R(10, 10, 50, 50)
	MoveRectangleHandle(&r, Some(HandleTopLeft), 100, 100)
	assert.Equal(t, geometry.R(110, 110, 50, 50), r)
}

func TestMovePolygonVertex(t *testing.T) {
	poly := geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}

	MovePolygonVertex(poly, Some(0), 2, 3)
	assert.Equal(t, geometry.Pt(2, 3), poly[0])

	MovePolygonVertex(poly, None[int](), 2, 3)
	MovePolygonVertex(poly, Some(7), 2, 3)
	MovePolygonVertex(poly, Some(-1), 2, 3)
	assert.Equal(t, geometry.Polygon{{X: 2, Y: 3}, {X: 10, Y: 0}, {X: 10, Y: 10}}, poly)
}

func TestInsertVertex(t *testing.T) {
	tri := geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}

	tests := []struct {
		name        string
		poly        geometry.Polygon
		x, y        int
		expected    geometry.Polygon
		expectedIdx int
	}{
		{
			// Sums: edge0 = 400+100, edge1 = 100+200, edge2 = 200+400.
			name:        "nearest edge by summed squared distance",
			poly:        tri,
			x:           20,
			y:           0,
			expected:    geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}, {X: 10, Y: 10}},
			expectedIdx: 2,
		},
		{
			// Equidistant from every vertex of the square: first edge wins.
			name:        "tie goes to first edge",
			poly:        geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
			x:           5,
			y:           5,
			expected:    geometry.Polygon{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
			expectedIdx: 1,
		},
		{
			name:        "closing edge inserts at the front",
			poly:        tri,
			x:           0,
			y:           10,
			expected:    geometry.Polygon{{X: 0, Y: 10}, {X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}},
			expectedIdx: 0,
		},
		{
			name:        "empty polygon",
			poly:        nil,
			x:           1,
			y:           2,
			expected:    geometry.Polygon{{X: 1, Y: 2}},
			expectedIdx: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, idx := InsertVertex(tt.poly, tt.x, tt.y)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.expectedIdx, idx)
		})
	}
}

func TestInsertVertex_DoesNotModifyInput(t *testing.T) {
	poly := make(geometry.Polygon, 3, 10)
	copy(poly, geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}})

	_, _ = InsertVertex(poly, 20, 0)
	assert.Equal(t, geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}, poly)
}

func TestDeleteVertex(t *testing.T) {
	square := geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}

	got, ok := DeleteVertex(square, 1)
	require.True(t, ok)
	assert.Equal(t, geometry.Polygon{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}, got)
	assert.Len(t, square, 4, "input must be left intact")

	again, ok := DeleteVertex(got, 0)
	assert.False(t, ok)
	assert.Equal(t, got, again)

	_, ok = DeleteVertex(square, 4)
	assert.False(t, ok)
	_, ok = DeleteVertex(square, -1)
	assert.False(t, ok)
}

func TestInsertThenDeleteRoundTrip(t *testing.T) {
	poly := geometry.Polygon{{X: 144, Y: 147}, {X: 180, Y: 128}, {X: 205, Y: 110}, {X: 216, Y: 123}, {X: 310, Y: 54}}
	inserted, idx := InsertVertex(poly, 200, 200)
	restored, ok := DeleteVertex(inserted, idx)
	require.True(t, ok)
	assert.Equal(t, poly, restored)
}

func TestChangeTracker(t *testing.T) {
	tr := NewChangeTracker()
	assert.Zero(t, tr.RectangleMoves(3))

	tr.RecordRectangleMove(3)
	tr.RecordRectangleMove(3)
	tr.RecordRectangleMove(0)
	assert.Equal(t, 2, tr.RectangleMoves(3))
	assert.Equal(t, map[int]int{0: 1, 3: 2}, tr.AllRectangleMoves())

	tr.RecordPolygonChange(ChangeMove)
	tr.RecordPolygonChange(ChangeAdd)
	tr.RecordPolygonChange(ChangeAdd)
	tr.RecordPolygonChange(ChangeDelete)
	assert.Equal(t, PolygonChanges{Move: 1, Add: 2, Delete: 1}, tr.PolygonChanges())
	assert.Equal(t, 4, tr.PolygonChanges().Total())

	moves := tr.AllRectangleMoves()
	moves[3] = 100
	assert.Equal(t, 2, tr.RectangleMoves(3))
}
