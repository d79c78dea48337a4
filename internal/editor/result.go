package editor

import (
	"fmt"

	"github.com/MeKo-Tech/annotator/internal/geometry"
)

// DiffPayload is the submitted comparison between the predicted and the
// human-corrected annotation of one object.
type DiffPayload struct {
	ObjectClass          ObjectClass      `json:"object_class"`
	PredictedBoundingBox geometry.Rect    `json:"predicted_bounding_box"`
	PredictedPolygon     geometry.Polygon `json:"predicted_polygon"`
	AnnotatedBoundingBox geometry.Rect    `json:"annotated_bounding_box"`
	AnnotatedPolygon     geometry.Polygon `json:"annotated_polygon"`
	BoundingBoxChanges   int              `json:"bounding_box_changes"`
	PolygonChanges       int              `json:"polygon_changes"`
}

// AssembleResult builds the payload for the selected rectangle. It fails with
// ErrInvalidState when no rectangle is selected. The session is not modified.
func AssembleResult(s *Session) (DiffPayload, error) {
	idx, ok := s.selected.Get()
	if !ok {
		return DiffPayload{}, fmt.Errorf("%w: no rectangle selected", ErrInvalidState)
	}
	if idx < 0 || idx >= len(s.rectangles) || idx >= len(s.originalRectangles) || idx >= len(s.classes) {
		return DiffPayload{}, fmt.Errorf("%w: selected rectangle %d out of range", ErrInvalidState, idx)
	}

	return DiffPayload{
		ObjectClass:          append(ObjectClass(nil), s.classes[idx]...),
		PredictedBoundingBox: s.originalRectangles[idx],
		PredictedPolygon:     s.originalPolygon.Clone(),
		AnnotatedBoundingBox: s.rectangles[idx],
		AnnotatedPolygon:     s.polygon.Clone(),
		BoundingBoxChanges:   s.changes.RectangleMoves(idx),
		PolygonChanges:       s.changes.PolygonChanges().Total(),
	}, nil
}
