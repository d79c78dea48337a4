package evaluation

import (
	"bytes"
	"testing"

	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/MeKo-Tech/annotator/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, y, side int) geometry.Polygon {
	return geometry.Polygon{{X: x, Y: y}, {X: x + side, Y: y}, {X: x + side, Y: y + side}, {X: x, Y: y + side}}
}

func TestBoxIoU(t *testing.T) {
	tests := []struct {
		name     string
		pred     geometry.Rect
		truth    geometry.Rect
		expected float64
	}{
		{name: "identical", pred: geometry.R(0, 0, 10, 10), truth: geometry.R(0, 0, 10, 10), expected: 1},
		{name: "half overlap", pred: geometry.R(0, 0, 10, 10), truth: geometry.R(5, 0, 15, 10), expected: 1.0 / 3},
		{name: "disjoint", pred: geometry.R(0, 0, 10, 10), truth: geometry.R(20, 20, 30, 30), expected: 0},
		{name: "touching edges", pred: geometry.R(0, 0, 10, 10), truth: geometry.R(10, 0, 20, 10), expected: 0},
		{name: "inverted corners", pred: geometry.R(10, 10, 0, 0), truth: geometry.R(0, 0, 10, 10), expected: 1},
		{name: "both empty", pred: geometry.R(5, 5, 5, 5), truth: geometry.R(5, 5, 5, 5), expected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, BoxIoU(tt.pred, tt.truth), 1e-4)
		})
	}
}

func TestAreaChange(t *testing.T) {
	assert.InDelta(t, 0.5, AreaChange(50, 100), 1e-9)
	assert.InDelta(t, 0.5, AreaChange(150, 100), 1e-9)
	assert.Zero(t, AreaChange(100, 100))
	assert.Zero(t, AreaChange(10, 0))
}

func TestVertexChanges(t *testing.T) {
	pred := geometry.Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: 1}}
	truth := geometry.Polygon{{X: 1, Y: 1}, {X: 2, Y: 2}}
	assert.Equal(t, 3, VertexChanges(pred, truth))

	assert.Zero(t, VertexChanges(square(0, 0, 10), square(0, 0, 10)))

	// Reordering alone is not a change.
	sq := square(0, 0, 10)
	rotated := geometry.Polygon{sq[2], sq[3], sq[0], sq[1]}
	assert.Zero(t, VertexChanges(sq, rotated))

	// One moved vertex counts as one removed plus one added.
	moved := sq.Clone()
	moved[0] = geometry.Pt(2, 2)
	assert.Equal(t, 2, VertexChanges(sq, moved))
}

func TestPolygonIoU(t *testing.T) {
	assert.InDelta(t, 1, PolygonIoU(square(0, 0, 10), square(0, 0, 10)), 1e-3)
	assert.InDelta(t, 1.0/3, PolygonIoU(square(0, 0, 10), square(5, 0, 10)), 1e-3)
	assert.Zero(t, PolygonIoU(square(0, 0, 10), square(50, 50, 10)))
	assert.Zero(t, PolygonIoU(geometry.Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}}, square(0, 0, 10)))

	tri := geometry.Polygon{{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 0, Y: 40}}
	assert.InDelta(t, 1, PolygonIoU(tri, tri), 1e-3)
}

func TestPolygonIoU_LargePolygonsAreScaled(t *testing.T) {
	a := square(0, 0, 10000)
	b := square(5000, 0, 10000)
	assert.InDelta(t, 1.0/3, PolygonIoU(a, b), 1e-2)
}

func TestEvaluate(t *testing.T) {
	p := editor.DiffPayload{
		ObjectClass:          editor.ClassOf(3),
		PredictedBoundingBox: geometry.R(0, 0, 10, 10),
		AnnotatedBoundingBox: geometry.R(0, 0, 10, 20),
		PredictedPolygon:     square(0, 0, 10),
		AnnotatedPolygon:     square(0, 0, 10),
		BoundingBoxChanges:   1,
		PolygonChanges:       0,
	}

	r := Evaluate(p)
	assert.InDelta(t, 0.5, r.BoundingBoxIoU, 1e-4)
	assert.InDelta(t, 0.5, r.BoundingBoxAreaChange, 1e-9)
	assert.InDelta(t, 1, r.PolygonIoU, 1e-3)
	assert.Zero(t, r.PolygonAreaChange)
	assert.Zero(t, r.PolygonVertexChanges)
	assert.Equal(t, 1, r.BoundingBoxEditGestures)

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	assert.Contains(t, buf.String(), "bounding box IoU")
	assert.Contains(t, buf.String(), "50.00%")
}
