package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MeKo-Tech/annotator/internal/backend"
	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/MeKo-Tech/annotator/internal/geometry"
)

// FakeBackend is an in-process prediction service.
type FakeBackend struct {
	Server *httptest.Server

	mu               sync.Mutex
	boxes            backend.BoundingBoxesResponse
	boundary         geometry.Polygon
	failures         map[string]int
	hold             chan struct{}
	uploads          []string
	boxRequests      []backend.ImageRef
	boundaryRequests []backend.ObjectBoundaryRequest
	submissions      []backend.SubmitRequest
}

// NewFakeBackend starts a fake backend that predicts one rectangle
// [10,10,50,50] of class 3 with a square boundary inside it.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	f := &FakeBackend{
		boxes: backend.BoundingBoxesResponse{
			BoundingBox: []geometry.Rect{geometry.R(10, 10, 50, 50)},
			Classes:     []editor.ObjectClass{editor.ClassOf(3)},
		},
		boundary: geometry.Polygon{{X: 15, Y: 15}, {X: 45, Y: 15}, {X: 45, Y: 45}, {X: 15, Y: 45}},
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/upload_image", f.handleUpload)
	mux.HandleFunc("/get_bounding_boxes", f.handleBoxes)
	mux.HandleFunc("/get_object_boundary", f.handleBoundary)
	mux.HandleFunc("/submit_result", f.handleSubmit)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		f.Release()
		f.Server.Close()
	})
	return f
}

// URL returns the base URL of the fake.
func (f *FakeBackend) URL() string { return f.Server.URL }

// SetBoxes replaces the predicted rectangles.
func (f *FakeBackend) SetBoxes(rects []geometry.Rect, classes []editor.ObjectClass) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boxes = backend.BoundingBoxesResponse{BoundingBox: rects, Classes: classes}
}

// SetBoundary replaces the predicted contour.
func (f *FakeBackend) SetBoundary(p geometry.Polygon) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boundary = p
}

// Fail makes every call to op answer with status.
func (f *FakeBackend) Fail(op string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = status
}

// HoldBoundaries blocks boundary responses until Release is called.
func (f *FakeBackend) HoldBoundaries() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hold == nil {
		f.hold = make(chan struct{})
	}
}

// Release lets held boundary responses through.
func (f *FakeBackend) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hold != nil {
		close(f.hold)
		f.hold = nil
	}
}

// Uploads returns the names of uploaded files.
func (f *FakeBackend) Uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

// BoxRequests returns the received bounding box requests.
func (f *FakeBackend) BoxRequests() []backend.ImageRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.ImageRef(nil), f.boxRequests...)
}

// BoundaryRequests returns the received boundary requests.
func (f *FakeBackend) BoundaryRequests() []backend.ObjectBoundaryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.ObjectBoundaryRequest(nil), f.boundaryRequests...)
}

// Submissions returns the received results.
func (f *FakeBackend) Submissions() []backend.SubmitRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.SubmitRequest(nil), f.submissions...)
}

func (f *FakeBackend) failure(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[op]
}

func (f *FakeBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	if status := f.failure(backend.OpUploadImage); status != 0 {
		writeError(w, status)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	_, _ = io.Copy(io.Discard, file)

	f.mu.Lock()
	f.uploads = append(f.uploads, header.Filename)
	f.mu.Unlock()
	writeJSON(w, backend.UploadResponse{Filename: header.Filename})
}

func (f *FakeBackend) handleBoxes(w http.ResponseWriter, r *http.Request) {
	if status := f.failure(backend.OpGetBoundingBoxes); status != 0 {
		writeError(w, status)
		return
	}
	var req backend.ImageRef
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.boxRequests = append(f.boxRequests, req)
	resp := f.boxes
	f.mu.Unlock()
	writeJSON(w, resp)
}

func (f *FakeBackend) handleBoundary(w http.ResponseWriter, r *http.Request) {
	var req backend.ObjectBoundaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.boundaryRequests = append(f.boundaryRequests, req)
	hold := f.hold
	f.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	if status := f.failure(backend.OpGetObjectBoundary); status != 0 {
		writeError(w, status)
		return
	}
	f.mu.Lock()
	poly := f.boundary.Clone()
	f.mu.Unlock()
	writeJSON(w, backend.ObjectBoundaryResponse{SimpleMaskPolygon: poly})
}

func (f *FakeBackend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if status := f.failure(backend.OpSubmitResult); status != 0 {
		writeError(w, status)
		return
	}
	var req backend.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.submissions = append(f.submissions, req)
	f.mu.Unlock()
	writeJSON(w, map[string]string{"status": "stored"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(backend.ErrorResponse{
		Error:   "fake_failure",
		Message: http.StatusText(status),
	})
}
