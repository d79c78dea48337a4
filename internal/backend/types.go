package backend

import (
	"encoding/json"

	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/MeKo-Tech/annotator/internal/geometry"
)

// ImageRef identifies an uploaded image on the prediction backend.
type ImageRef struct {
	ImageID       string `json:"image_id"`
	ImageFileName string `json:"image_file_name"`
}

// UploadResponse is returned by the upload endpoint.
type UploadResponse struct {
	Filename string `json:"filename"`
}

// BoundingBoxesResponse holds the detector output for an image. BoundingBox
// and Classes are parallel.
type BoundingBoxesResponse struct {
	BoundingBox []geometry.Rect      `json:"bounding_box"`
	Classes     []editor.ObjectClass `json:"classes"`
}

type ObjectBoundaryRequest struct {
	ImageRef
	BoundingBox     geometry.Rect      `json:"bounding_box"`
	ClassOfInterest editor.ObjectClass `json:"class_of_interest"`
}

type ObjectBoundaryResponse struct {
	SimpleMaskPolygon geometry.Polygon `json:"simple_mask_polygon"`
}

type SubmitRequest struct {
	ImageRef
	Result editor.DiffPayload `json:"result"`
}

// SubmitResponse is the backend acknowledgement, kept verbatim.
type SubmitResponse = json.RawMessage

// ErrorResponse is the JSON error body the backend may return.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
