// Package evaluation scores a submitted correction against the prediction
// it started from.
package evaluation

import (
	"image"
	"math"

	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/MeKo-Tech/annotator/internal/geometry"
	"golang.org/x/image/vector"
)

// iouEpsilon keeps IoU finite when both shapes are empty.
const iouEpsilon = 0.001

// maxRasterPixels bounds the mask size used for polygon IoU.
const maxRasterPixels = 2048 * 2048

// Report holds the metrics for one DiffPayload. Ground truth is the annotated
// shape, the prediction is the detector output.
type Report struct {
	BoundingBoxIoU          float64 `json:"bounding_box_iou"`
	BoundingBoxAreaChange   float64 `json:"bounding_box_area_change"`
	PolygonIoU              float64 `json:"polygon_iou"`
	PolygonAreaChange       float64 `json:"polygon_area_change"`
	PolygonVertexChanges    int     `json:"polygon_vertex_changes"`
	BoundingBoxEditGestures int     `json:"bounding_box_edit_gestures"`
	PolygonEditGestures     int     `json:"polygon_edit_gestures"`
}

// Evaluate computes every metric for p.
func Evaluate(p editor.DiffPayload) Report {
	return Report{
		BoundingBoxIoU:          BoxIoU(p.PredictedBoundingBox, p.AnnotatedBoundingBox),
		BoundingBoxAreaChange:   AreaChange(float64(p.PredictedBoundingBox.Area()), float64(p.AnnotatedBoundingBox.Area())),
		PolygonIoU:              PolygonIoU(p.PredictedPolygon, p.AnnotatedPolygon),
		PolygonAreaChange:       AreaChange(p.PredictedPolygon.Area(), p.AnnotatedPolygon.Area()),
		PolygonVertexChanges:    VertexChanges(p.PredictedPolygon, p.AnnotatedPolygon),
		BoundingBoxEditGestures: p.BoundingBoxChanges,
		PolygonEditGestures:     p.PolygonChanges,
	}
}

// BoxIoU is the intersection over union of two rectangles.
func BoxIoU(pred, truth geometry.Rect) float64 {
	a, b := pred.Min(), pred.Max()
	c, d := truth.Min(), truth.Max()
	iw := min(b.X, d.X) - max(a.X, c.X)
	ih := min(b.Y, d.Y) - max(a.Y, c.Y)
	inter := 0.0
	if iw > 0 && ih > 0 {
		inter = float64(iw * ih)
	}
	union := float64(pred.Area()+truth.Area()) - inter
	return inter / (union + iouEpsilon)
}

// AreaChange is |truth - pred| / truth, or 0 when truth has no area.
func AreaChange(pred, truth float64) float64 {
	if truth == 0 {
		return 0
	}
	return math.Abs(truth-pred) / truth
}

// VertexChanges counts the vertices present in only one of the two polygons,
// treating each polygon as a multiset of points.
func VertexChanges(pred, truth geometry.Polygon) int {
	remaining := make(map[geometry.Point]int, len(truth))
	for _, p := range truth {
		remaining[p]++
	}
	count := 0
	for _, p := range pred {
		if remaining[p] > 0 {
			remaining[p]--
			continue
		}
		count++
	}
	for _, n := range remaining {
		count += n
	}
	return count
}

// PolygonIoU rasterizes both polygons and returns the intersection over union
// of the covered pixels. Large polygons are scaled down first.
func PolygonIoU(pred, truth geometry.Polygon) float64 {
	if len(pred) < geometry.MinPolygonVertices || len(truth) < geometry.MinPolygonVertices {
		return 0
	}

	b := union(pred.Bounds(), truth.Bounds())
	origin := b.Min()
	w, h := b.Width()+1, b.Height()+1
	scale := 1.0
	if px := float64(w) * float64(h); px > maxRasterPixels {
		scale = math.Sqrt(maxRasterPixels / px)
		w = int(math.Ceil(float64(w)*scale)) + 1
		h = int(math.Ceil(float64(h)*scale)) + 1
	}

	pm := rasterize(pred, origin, scale, w, h)
	tm := rasterize(truth, origin, scale, w, h)

	var inter, uni int
	for i := range pm.Pix {
		in1, in2 := pm.Pix[i] >= 0x80, tm.Pix[i] >= 0x80
		if in1 && in2 {
			inter++
		}
		if in1 || in2 {
			uni++
		}
	}
	return float64(inter) / (float64(uni) + iouEpsilon)
}

func rasterize(p geometry.Polygon, origin geometry.Point, scale float64, w, h int) *image.Alpha {
	z := vector.NewRasterizer(w, h)
	pt := func(v geometry.Point) (float32, float32) {
		return float32(float64(v.X-origin.X) * scale), float32(float64(v.Y-origin.Y) * scale)
	}
	z.MoveTo(pt(p[0]))
	for _, v := range p[1:] {
		z.LineTo(pt(v))
	}
	z.ClosePath()

	dst := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	return dst
}

func union(a, b geometry.Rect) geometry.Rect {
	return geometry.R(
		min(a.Min().X, b.Min().X),
		min(a.Min().Y, b.Min().Y),
		max(a.Max().X, b.Max().X),
		max(a.Max().Y, b.Max().Y),
	)
}
