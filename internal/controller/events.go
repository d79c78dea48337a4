package controller

import (
	"github.com/MeKo-Tech/annotator/internal/backend"
	"github.com/MeKo-Tech/annotator/internal/editor"
)

// Inbound events. Coordinates are canvas pixels.
type (
	// Open starts the job for an uploaded image. An empty ImageID is replaced
	// by a generated one.
	Open struct {
		ImageID       string
		ImageFileName string
	}
	PointerDown struct {
		X, Y   int
		Button editor.Button
	}
	PointerMove  struct{ X, Y int }
	PointerUp    struct{}
	PointerLeave struct{}
	DoubleClick  struct{ X, Y int }
	Submit       struct{}
)

// completions posted back by backend calls, and internal requests
type (
	evtBoxes struct {
		ref  backend.ImageRef
		resp backend.BoundingBoxesResponse
		err  error
	}
	evtBoundary struct {
		req  editor.BoundaryRequest
		resp backend.ObjectBoundaryResponse
		err  error
	}
	evtSubmitted struct {
		payload editor.DiffPayload
		ack     backend.SubmitResponse
		err     error
	}
	evtSnapshot struct {
		reply chan editor.State
	}
)
