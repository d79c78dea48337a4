package backend

import (
	"fmt"
	"net/http"
)

// RequestError describes a failed backend call.
type RequestError struct {
	Op     string // upload_image, get_bounding_boxes, get_object_boundary, submit_result
	Status int    // HTTP status, 0 when no response was received
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("backend %s: %d %s: %v", e.Op, e.Status, http.StatusText(e.Status), e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
