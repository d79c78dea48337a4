package editor

import (
	"reflect"
	"testing"

	"github.com/MeKo-Tech/annotator/internal/geometry"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genRect generates a normalized rectangle whose sides are longer than
// minSide, so that corner tolerance windows of up to minSide never overlap.
func genRect(minSide int) gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(-500, 500),
		gen.IntRange(-500, 500),
		gen.IntRange(minSide+1, 400),
		gen.IntRange(minSide+1, 400),
	).Map(func(vals []interface{}) geometry.Rect {
		x, y := vals[0].(int), vals[1].(int)
		return geometry.R(x, y, x+vals[2].(int), y+vals[3].(int))
	})
}

func genPolygonPoint() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(-1000, 1000),
		gen.IntRange(-1000, 1000),
	).Map(func(vals []interface{}) geometry.Point {
		return geometry.Pt(vals[0].(int), vals[1].(int))
	})
}

func genPolygonOf(minSize, maxSize int) gopter.Gen {
	return gen.IntRange(minSize, maxSize).FlatMap(func(n interface{}) gopter.Gen {
		return gen.SliceOfN(n.(int), genPolygonPoint()).Map(func(pts []geometry.Point) geometry.Polygon {
			return geometry.Polygon(pts)
		})
	}, reflect.TypeOf(geometry.Polygon{}))
}

func TestLocateRectangleHandle_CornersProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("each exact corner resolves to its own handle", prop.ForAll(
		func(r geometry.Rect, tol int) bool {
			for i, c := range r.Corners() {
				h, ok := LocateRectangleHandle(r, tol, c.X, c.Y)
				if !ok || h != handleOrder[i] {
					return false
				}
			}
			return true
		},
		genRect(64),
		gen.IntRange(1, 64),
	))

	properties.Property("points outside every window miss", prop.ForAll(
		func(r geometry.Rect, tol int, p geometry.Point) bool {
			for _, c := range r.Corners() {
				dx, dy := 2*(p.X-c.X), 2*(p.Y-c.Y)
				if dx >= -tol && dx <= tol && dy >= -tol && dy <= tol {
					return true // inside a window, not this property's concern
				}
			}
			_, ok := LocateRectangleHandle(r, tol, p.X, p.Y)
			return !ok
		},
		genRect(64),
		gen.IntRange(1, 64),
		genPolygonPoint(),
	))

	properties.TestingRun(t)
}

func TestMoveRectangleHandle_ZeroDeltaProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("zero delta leaves the rectangle unchanged", prop.ForAll(
		func(r geometry.Rect, h int) bool {
			moved := r
			MoveRectangleHandle(&moved, Some(Handle(h)), 0, 0)
			return moved == r
		},
		genRect(0),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}

func TestDeleteVertex_MinimumProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("deletes never drop below three vertices", prop.ForAll(
		func(poly geometry.Polygon, picks []int) bool {
			for _, pick := range picks {
				next, ok := DeleteVertex(poly, pick%(len(poly)+1))
				if len(next) < geometry.MinPolygonVertices {
					return false
				}
				if len(poly) == geometry.MinPolygonVertices && (ok || !next.Equal(poly)) {
					return false
				}
				poly = next
			}
			return len(poly) >= geometry.MinPolygonVertices
		},
		genPolygonOf(3, 12),
		gen.SliceOfN(20, gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}

func TestInsertDeleteRoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("deleting the inserted vertex restores the polygon", prop.ForAll(
		func(poly geometry.Polygon, p geometry.Point) bool {
			inserted, idx := InsertVertex(poly, p.X, p.Y)
			if len(inserted) != len(poly)+1 || inserted[idx] != p {
				return false
			}
			restored, ok := DeleteVertex(inserted, idx)
			return ok && restored.Equal(poly)
		},
		genPolygonOf(3, 12),
		genPolygonPoint(),
	))

	properties.TestingRun(t)
}

func TestDragCountsOnceProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a drag of N moves counts as one rectangle move", prop.ForAll(
		func(steps []int) bool {
			s := NewSession(DefaultHandleSize)
			if err := s.ApplyPredictions(
				[]geometry.Rect{geometry.R(100, 100, 200, 200)},
				[]ObjectClass{ClassOf(1)},
			); err != nil {
				return false
			}

			s.PointerDown(200, 200, ButtonPrimary)
			x := 200
			for _, step := range steps {
				x += step
				s.PointerMove(x, x)
			}
			s.PointerUp()

			return s.Changes().RectangleMoves(0) == 1 && s.Rectangles()[0] == geometry.R(100, 100, x, x)
		},
		gen.SliceOf(gen.IntRange(-20, 20)),
	))

	properties.Property("polygon counters never decrease", prop.ForAll(
		func(clicks []geometry.Point) bool {
			s := NewSession(DefaultHandleSize)
			_ = s.ApplyPredictions([]geometry.Rect{geometry.R(-1000, -1000, 1000, 1000)}, []ObjectClass{ClassOf(1)})
			req, ok := s.DoubleClick(0, 0)
			if !ok || s.ApplyBoundary(req, geometry.Polygon{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}}) != nil {
				return false
			}

			prev := s.Changes().PolygonChanges()
			for _, c := range clicks {
				s.PointerDown(c.X, c.Y, ButtonSecondary)
				cur := s.Changes().PolygonChanges()
				if cur.Add < prev.Add || cur.Delete < prev.Delete || cur.Move < prev.Move {
					return false
				}
				if len(s.Polygon()) < geometry.MinPolygonVertices {
					return false
				}
				prev = cur
			}
			return true
		},
		gen.SliceOf(genPolygonPoint()),
	))

	properties.TestingRun(t)
}
