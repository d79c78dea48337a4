// Package controller drives one annotation session. All session mutations
// happen on a single event loop; backend calls run on their own goroutines
// and post their results back to the loop in the order they complete.
package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/MeKo-Tech/annotator/internal/backend"
	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/MeKo-Tech/annotator/internal/render"
	"github.com/google/uuid"
)

// Default canvas size used when neither the configuration nor a background
// image provides one.
const (
	DefaultCanvasWidth  = 640
	DefaultCanvasHeight = 480
)

// ErrClosed is returned when an event is dispatched after the loop stopped.
var ErrClosed = errors.New("controller closed")

// Backend is the part of the prediction service the controller uses.
type Backend interface {
	GetBoundingBoxes(ctx context.Context, ref backend.ImageRef) (backend.BoundingBoxesResponse, error)
	GetObjectBoundary(ctx context.Context, req backend.ObjectBoundaryRequest) (backend.ObjectBoundaryResponse, error)
	SubmitResult(ctx context.Context, req backend.SubmitRequest) (backend.SubmitResponse, error)
}

// Sink receives everything the controller reports to its client.
type Sink interface {
	PublishState(st editor.State) error
	PublishFrame(png []byte) error
	PublishError(op string, err error) error
}

// Config configures a Controller.
type Config struct {
	HandleSize    int
	ImageDir      string // background images are loaded from here when set
	ImageIDPrefix string
	CanvasWidth   int
	CanvasHeight  int
	RenderFrames  bool
	Style         render.Style
	Logger        *slog.Logger

	// NewSurface overrides the rendering surface; it defaults to a render.Canvas.
	NewSurface func(width, height int) render.Surface
}

// Controller owns a Session and serializes every event that touches it.
type Controller struct {
	cfg     Config
	backend Backend
	sink    Sink
	logger  *slog.Logger

	events   chan any
	done     chan struct{}
	inflight sync.WaitGroup

	// loop-owned state
	session    *editor.Session
	ref        backend.ImageRef
	opened     bool
	submitting bool
	background image.Image
	surface    render.Surface
}

// New creates a controller. Call Run to start processing events.
func New(b Backend, sink Sink, cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Style.Box == nil || cfg.Style.Poly == nil || cfg.Style.Handle == nil {
		cfg.Style = render.DefaultStyle()
	}
	if cfg.NewSurface == nil {
		cfg.NewSurface = func(w, h int) render.Surface { return render.NewCanvas(w, h) }
	}
	return &Controller{
		cfg:     cfg,
		backend: b,
		sink:    sink,
		logger:  logger,
		events:  make(chan any, 64),
		done:    make(chan struct{}),
		session: editor.NewSession(cfg.HandleSize),
	}
}

// Run processes events until ctx is cancelled. In-flight backend calls are
// cancelled with ctx and waited for before Run returns.
func (c *Controller) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("controller panic", "error", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("controller panic: %v", r)
		}
		close(c.done)
		c.inflight.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// Dispatch queues an inbound event.
func (c *Controller) Dispatch(ctx context.Context, ev any) error {
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the session state as seen by the loop.
func (c *Controller) Snapshot(ctx context.Context) (editor.State, error) {
	reply := make(chan editor.State, 1)
	if err := c.Dispatch(ctx, evtSnapshot{reply: reply}); err != nil {
		return editor.State{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-c.done:
		return editor.State{}, ErrClosed
	case <-ctx.Done():
		return editor.State{}, ctx.Err()
	}
}

// post delivers a completion back to the loop unless it already stopped.
func (c *Controller) post(ev any) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// goCall runs fn on a worker goroutine tracked by Run.
func (c *Controller) goCall(fn func()) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		fn()
	}()
}

func (c *Controller) handle(ctx context.Context, ev any) {
	if c.submitting && isEditEvent(ev) {
		c.logger.Debug("ignoring edit during submission", "image_id", c.ref.ImageID, "type", fmt.Sprintf("%T", ev))
		return
	}

	switch e := ev.(type) {
	case Open:
		c.handleOpen(ctx, e)
	case PointerDown:
		x, y := c.clamp(e.X, e.Y)
		before := c.session.Changes().PolygonChanges()
		changed := c.session.PointerDown(x, y, e.Button)
		if changed {
			c.countTopologyChange(before)
		}
		c.redraw()
	case PointerMove:
		x, y := c.clamp(e.X, e.Y)
		if c.session.PointerMove(x, y) {
			c.redraw()
		}
	case PointerUp:
		c.endGesture(c.session.PointerUp)
	case PointerLeave:
		c.endGesture(c.session.PointerLeave)
	case DoubleClick:
		c.handleDoubleClick(ctx, e)
	case Submit:
		c.handleSubmit(ctx)
	case evtBoxes:
		c.applyBoxes(e)
	case evtBoundary:
		c.applyBoundary(e)
	case evtSubmitted:
		c.applySubmitted(e)
	case evtSnapshot:
		e.reply <- c.session.Snapshot()
	default:
		c.logger.Warn("unknown controller event", "type", fmt.Sprintf("%T", ev))
	}
}

// isEditEvent reports whether ev can change the shapes.
func isEditEvent(ev any) bool {
	switch ev.(type) {
	case PointerDown, PointerMove, PointerUp, PointerLeave, DoubleClick:
		return true
	}
	return false
}

func (c *Controller) handleOpen(ctx context.Context, e Open) {
	if c.opened {
		c.fail("open", fmt.Errorf("%w: an image is already open", editor.ErrInvalidState))
		return
	}
	if e.ImageFileName == "" {
		c.fail("open", errors.New("image_file_name is required"))
		return
	}

	c.opened = true
	c.ref = backend.ImageRef{ImageID: e.ImageID, ImageFileName: filepath.Base(e.ImageFileName)}
	if c.ref.ImageID == "" {
		c.ref.ImageID = c.cfg.ImageIDPrefix + uuid.NewString()
	}
	c.loadBackground()
	c.logger.Info("annotation session opened", "image_id", c.ref.ImageID, "image_file_name", c.ref.ImageFileName)
	c.redraw()

	ref := c.ref
	c.goCall(func() {
		resp, err := c.backend.GetBoundingBoxes(ctx, ref)
		c.post(evtBoxes{ref: ref, resp: resp, err: err})
	})
}

// loadBackground reads the image and sizes the surface. A missing image is
// not fatal; the editor then works on a blank canvas.
func (c *Controller) loadBackground() {
	w, h := c.cfg.CanvasWidth, c.cfg.CanvasHeight
	if c.cfg.ImageDir != "" {
		img, meta, err := render.LoadImage(filepath.Join(c.cfg.ImageDir, c.ref.ImageFileName))
		if err != nil {
			c.logger.Warn("background image unavailable", "image_id", c.ref.ImageID, "error", err)
		} else {
			c.background = img
			if w <= 0 || h <= 0 {
				w, h = meta.Width, meta.Height
			}
		}
	}
	if w <= 0 || h <= 0 {
		w, h = DefaultCanvasWidth, DefaultCanvasHeight
	}
	c.surface = c.cfg.NewSurface(w, h)
}

func (c *Controller) applyBoxes(e evtBoxes) {
	if e.err != nil {
		c.networkFailure(backend.OpGetBoundingBoxes, e.err)
		return
	}
	if err := c.session.ApplyPredictions(e.resp.BoundingBox, e.resp.Classes); err != nil {
		c.fail(backend.OpGetBoundingBoxes, err)
		return
	}
	c.logger.Info("predictions received", "image_id", e.ref.ImageID, "rectangles", len(e.resp.BoundingBox))
	c.redraw()
}

func (c *Controller) handleDoubleClick(ctx context.Context, e DoubleClick) {
	x, y := c.clamp(e.X, e.Y)
	req, ok := c.session.DoubleClick(x, y)
	if !ok {
		return
	}
	c.redraw()

	body := backend.ObjectBoundaryRequest{
		ImageRef:        c.ref,
		BoundingBox:     req.Rect,
		ClassOfInterest: req.Class,
	}
	c.goCall(func() {
		resp, err := c.backend.GetObjectBoundary(ctx, body)
		c.post(evtBoundary{req: req, resp: resp, err: err})
	})
}

func (c *Controller) applyBoundary(e evtBoundary) {
	if e.err != nil {
		c.networkFailure(backend.OpGetObjectBoundary, e.err)
		return
	}
	err := c.session.ApplyBoundary(e.req, e.resp.SimpleMaskPolygon)
	switch {
	case errors.Is(err, editor.ErrStaleResponse):
		staleResponsesTotal.Inc()
		c.logger.Debug("discarding stale boundary", "image_id", c.ref.ImageID, "rectangle", e.req.Index)
		return
	case err != nil:
		c.fail(backend.OpGetObjectBoundary, err)
		return
	}
	c.redraw()
}

func (c *Controller) handleSubmit(ctx context.Context) {
	if c.submitting {
		c.fail(backend.OpSubmitResult, fmt.Errorf("%w: submission already in progress", editor.ErrInvalidState))
		return
	}
	if c.session.Mode() != editor.ModePolygon {
		c.fail(backend.OpSubmitResult, fmt.Errorf("%w: nothing to submit in mode %s", editor.ErrInvalidState, c.session.Mode()))
		return
	}
	// A drag still in progress is part of the submitted result.
	if c.session.Dragging() {
		c.endGesture(c.session.PointerUp)
	}
	payload, err := editor.AssembleResult(c.session)
	if err != nil {
		c.fail(backend.OpSubmitResult, err)
		return
	}

	// Edits are ignored until the backend answers.
	c.submitting = true
	req := backend.SubmitRequest{ImageRef: c.ref, Result: payload}
	c.goCall(func() {
		ack, err := c.backend.SubmitResult(ctx, req)
		c.post(evtSubmitted{payload: payload, ack: ack, err: err})
	})
}

func (c *Controller) applySubmitted(e evtSubmitted) {
	c.submitting = false
	if e.err != nil {
		submissionsTotal.WithLabelValues("error").Inc()
		c.networkFailure(backend.OpSubmitResult, e.err)
		return
	}
	if err := c.session.MarkSubmitted(); err != nil {
		c.fail(backend.OpSubmitResult, err)
		return
	}
	submissionsTotal.WithLabelValues("success").Inc()
	c.logger.Info("result submitted",
		"image_id", c.ref.ImageID,
		"bounding_box_changes", e.payload.BoundingBoxChanges,
		"polygon_changes", e.payload.PolygonChanges)
	c.redraw()
}

func (c *Controller) endGesture(end func() bool) {
	mode := c.session.Mode()
	if !end() {
		return
	}
	switch mode {
	case editor.ModeBoundingBox:
		gesturesTotal.WithLabelValues("rectangle_move").Inc()
	case editor.ModePolygon:
		gesturesTotal.WithLabelValues("polygon_move").Inc()
	}
	c.redraw()
}

func (c *Controller) countTopologyChange(before editor.PolygonChanges) {
	after := c.session.Changes().PolygonChanges()
	if after.Add > before.Add {
		gesturesTotal.WithLabelValues("polygon_add").Inc()
	}
	if after.Delete > before.Delete {
		gesturesTotal.WithLabelValues("polygon_delete").Inc()
	}
}

// clamp keeps pointer coordinates on the surface.
func (c *Controller) clamp(x, y int) (int, int) {
	if c.surface == nil {
		return x, y
	}
	b := c.surface.Bounds()
	if b.Empty() {
		return x, y
	}
	return min(max(x, b.Min.X), b.Max.X-1), min(max(y, b.Min.Y), b.Max.Y-1)
}

// redraw repaints the surface and publishes the new state.
func (c *Controller) redraw() {
	st := c.session.Snapshot()
	if c.surface != nil {
		render.Draw(c.surface, c.background, st, c.cfg.Style)
		if c.cfg.RenderFrames {
			c.publishFrame()
		}
	}
	if err := c.sink.PublishState(st); err != nil {
		c.logger.Debug("publishing state", "error", err)
	}
}

func (c *Controller) publishFrame() {
	enc, ok := c.surface.(interface{ EncodePNG(w io.Writer) error })
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := enc.EncodePNG(&buf); err != nil {
		c.logger.Error("encoding frame", "image_id", c.ref.ImageID, "error", err)
		return
	}
	if err := c.sink.PublishFrame(buf.Bytes()); err != nil {
		c.logger.Debug("publishing frame", "error", err)
	}
}

// networkFailure logs a failed backend call. The session is left as it was.
func (c *Controller) networkFailure(op string, err error) {
	c.logger.Error("backend call failed", "operation", op, "image_id", c.ref.ImageID, "error", err)
	c.report(op, err)
}

func (c *Controller) fail(op string, err error) {
	c.logger.Warn("request rejected", "operation", op, "image_id", c.ref.ImageID, "error", err)
	c.report(op, err)
}

func (c *Controller) report(op string, err error) {
	if perr := c.sink.PublishError(op, err); perr != nil {
		c.logger.Debug("publishing error", "error", perr)
	}
}
