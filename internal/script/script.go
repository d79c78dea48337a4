// Package script replays a recorded editing session offline. A script carries
// the predictions the backend would have returned together with an ordered
// list of pointer events, so a session can be reproduced without a network.
package script

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/annotator/internal/controller"
	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/MeKo-Tech/annotator/internal/geometry"
	"github.com/MeKo-Tech/annotator/internal/render"
	"gopkg.in/yaml.v3"
)

// Event types understood by Run.
const (
	EventPointerDown  = "pointer_down"
	EventPointerMove  = "pointer_move"
	EventPointerUp    = "pointer_up"
	EventPointerLeave = "pointer_leave"
	EventDoubleClick  = "double_click"
)

// ErrNoBoundary is returned when a double click selects a rectangle but the
// script carries no boundary polygon.
var ErrNoBoundary = errors.New("script has no boundary polygon")

// Script is the on-disk replay format.
type Script struct {
	Image       string      `yaml:"image,omitempty"`
	HandleSize  int         `yaml:"handle_size,omitempty"`
	Predictions Predictions `yaml:"predictions"`
	Boundary    [][2]int    `yaml:"boundary,omitempty"`
	Events      []Event     `yaml:"events"`

	dir string
}

// Predictions mirrors the get_bounding_boxes response.
type Predictions struct {
	Boxes   [][4]int      `yaml:"boxes"`
	Classes []interface{} `yaml:"classes"`
}

// Event is one recorded pointer event.
type Event struct {
	Type   string `yaml:"type"`
	X      int    `yaml:"x,omitempty"`
	Y      int    `yaml:"y,omitempty"`
	Button int    `yaml:"button,omitempty"`
}

// Result is the outcome of a replay.
type Result struct {
	Payload editor.DiffPayload
	State   editor.State
}

// Load reads and validates the script at path. A relative image path is
// resolved against the script's directory.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer func() { _ = f.Close() }()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// Parse decodes a script. Unknown keys are rejected.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the script for problems that can be found without running it.
func (s *Script) Validate() error {
	if len(s.Predictions.Boxes) != len(s.Predictions.Classes) {
		return fmt.Errorf("predictions: %d boxes but %d classes",
			len(s.Predictions.Boxes), len(s.Predictions.Classes))
	}
	if len(s.Boundary) > 0 && len(s.Boundary) < geometry.MinPolygonVertices {
		return fmt.Errorf("boundary: need at least %d vertices, got %d",
			geometry.MinPolygonVertices, len(s.Boundary))
	}
	for i, ev := range s.Events {
		switch ev.Type {
		case EventPointerDown, EventPointerMove, EventPointerUp, EventPointerLeave, EventDoubleClick:
		default:
			return fmt.Errorf("event %d: unknown type %q", i, ev.Type)
		}
	}
	return nil
}

// ImagePath returns the background image path, or "" when none is set.
func (s *Script) ImagePath() string {
	if s.Image == "" || filepath.IsAbs(s.Image) || s.dir == "" {
		return s.Image
	}
	return filepath.Join(s.dir, s.Image)
}

func (s *Script) rects() []geometry.Rect {
	rects := make([]geometry.Rect, len(s.Predictions.Boxes))
	for i, b := range s.Predictions.Boxes {
		rects[i] = geometry.R(b[0], b[1], b[2], b[3])
	}
	return rects
}

func (s *Script) classes() []editor.ObjectClass {
	classes := make([]editor.ObjectClass, len(s.Predictions.Classes))
	for i, c := range s.Predictions.Classes {
		classes[i] = editor.ClassOf(c)
	}
	return classes
}

func (s *Script) boundary() geometry.Polygon {
	poly := make(geometry.Polygon, len(s.Boundary))
	for i, p := range s.Boundary {
		poly[i] = geometry.Pt(p[0], p[1])
	}
	return poly
}

// Run replays the script against a fresh session and assembles the result.
// The session must end in polygon mode.
func (s *Script) Run(logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sess := editor.NewSession(s.HandleSize)
	if err := sess.ApplyPredictions(s.rects(), s.classes()); err != nil {
		return nil, fmt.Errorf("predictions: %w", err)
	}

	for i, ev := range s.Events {
		changed, err := s.apply(sess, ev)
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, ev.Type, err)
		}
		logger.Debug("replayed event",
			"index", i,
			"type", ev.Type,
			"x", ev.X,
			"y", ev.Y,
			"changed", changed,
			"mode", sess.Mode().String())
	}

	if sess.Mode() != editor.ModePolygon {
		return nil, fmt.Errorf("%w: script ended in mode %s, want %s",
			editor.ErrInvalidState, sess.Mode(), editor.ModePolygon)
	}
	payload, err := editor.AssembleResult(sess)
	if err != nil {
		return nil, err
	}
	return &Result{Payload: payload, State: sess.Snapshot()}, nil
}

func (s *Script) apply(sess *editor.Session, ev Event) (bool, error) {
	switch ev.Type {
	case EventPointerDown:
		return sess.PointerDown(ev.X, ev.Y, editor.Button(ev.Button)), nil
	case EventPointerMove:
		return sess.PointerMove(ev.X, ev.Y), nil
	case EventPointerUp:
		return sess.PointerUp(), nil
	case EventPointerLeave:
		return sess.PointerLeave(), nil
	case EventDoubleClick:
		req, ok := sess.DoubleClick(ev.X, ev.Y)
		if !ok {
			return false, nil
		}
		if len(s.Boundary) == 0 {
			return false, ErrNoBoundary
		}
		if err := sess.ApplyBoundary(req, s.boundary()); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, fmt.Errorf("unknown event type %q", ev.Type)
}

// RenderFrame draws the final state over img. The canvas takes the size of
// img, or the default canvas size when img is nil.
func (r *Result) RenderFrame(img image.Image, style render.Style) *render.Canvas {
	w, h := controller.DefaultCanvasWidth, controller.DefaultCanvasHeight
	if img != nil {
		w, h = img.Bounds().Dx(), img.Bounds().Dy()
	}
	canvas := render.NewCanvas(w, h)
	render.Draw(canvas, img, r.State, style)
	return canvas
}
