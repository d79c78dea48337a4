package support

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/MeKo-Tech/annotator/internal/geometry"
	"github.com/cucumber/godog"
)

// RegisterSessionSteps registers steps that drive an editor session.
func (testCtx *TestContext) RegisterSessionSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a new editing session$`, testCtx.aNewEditingSession)
	sc.Step(`^predictions "([^"]*)" with class (\d+) arrive$`, testCtx.predictionsArrive)
	sc.Step(`^the mode is "([^"]*)"$`, testCtx.theModeIs)
	sc.Step(`^rectangle (\d+) is "([^"]*)"$`, testCtx.rectangleIs)
	sc.Step(`^the original rectangle (\d+) is "([^"]*)"$`, testCtx.originalRectangleIs)
	sc.Step(`^rectangle (\d+) has (\d+) recorded moves?$`, testCtx.rectangleHasMoves)
	sc.Step(`^I drag from (-?\d+),(-?\d+) to (-?\d+),(-?\d+) in (\d+) steps?$`, testCtx.iDrag)
	sc.Step(`^I press the (primary|secondary) button at (-?\d+),(-?\d+)$`, testCtx.iPressButton)
	sc.Step(`^I double-click at (-?\d+),(-?\d+)$`, testCtx.iDoubleClick)
	sc.Step(`^no boundary is requested$`, testCtx.noBoundaryIsRequested)
	sc.Step(`^a boundary is requested for rectangle (\d+)$`, testCtx.aBoundaryIsRequestedFor)
	sc.Step(`^the boundary "([^"]*)" arrives$`, testCtx.theBoundaryArrives)
	sc.Step(`^the polygon is "([^"]*)"$`, testCtx.thePolygonIs)
	sc.Step(`^the original polygon is "([^"]*)"$`, testCtx.theOriginalPolygonIs)
	sc.Step(`^the polygon has (\d+) (move|add|delete) changes?$`, testCtx.thePolygonHasChanges)
	sc.Step(`^I assemble the result$`, testCtx.iAssembleTheResult)
	sc.Step(`^assembling fails with an invalid state error$`, testCtx.assemblingFailsWithInvalidState)
	sc.Step(`^the result has (\d+) bounding box changes?$`, testCtx.theResultHasBoxChanges)
	sc.Step(`^the result has (\d+) polygon changes?$`, testCtx.theResultHasPolygonChanges)
	sc.Step(`^the result (predicted|annotated) bounding box is "([^"]*)"$`, testCtx.theResultBoundingBoxIs)
	sc.Step(`^the result class is (\d+)$`, testCtx.theResultClassIs)
}

func (testCtx *TestContext) aNewEditingSession() error {
	testCtx.Reset()
	return nil
}

// predictionsArrive accepts rectangles separated by ";" that all share one class.
func (testCtx *TestContext) predictionsArrive(rects string, class int) error {
	var boxes []geometry.Rect
	var classes []editor.ObjectClass
	for _, part := range strings.Split(rects, ";") {
		r, err := parseRect(part)
		if err != nil {
			return err
		}
		boxes = append(boxes, r)
		classes = append(classes, editor.ClassOf(class))
	}
	return testCtx.Session.ApplyPredictions(boxes, classes)
}

func (testCtx *TestContext) theModeIs(want string) error {
	if got := testCtx.Session.Mode().String(); got != want {
		return fmt.Errorf("expected mode %q, got %q", want, got)
	}
	return nil
}

func (testCtx *TestContext) rectangleIs(idx int, want string) error {
	return expectRect(testCtx.Session.Rectangles(), idx, want)
}

func (testCtx *TestContext) originalRectangleIs(idx int, want string) error {
	return expectRect(testCtx.Session.OriginalRectangles(), idx, want)
}

func expectRect(rects []geometry.Rect, idx int, want string) error {
	expected, err := parseRect(want)
	if err != nil {
		return err
	}
	if idx >= len(rects) {
		return fmt.Errorf("rectangle %d does not exist, have %d", idx, len(rects))
	}
	if rects[idx] != expected {
		return fmt.Errorf("expected rectangle %d to be %v, got %v", idx, expected, rects[idx])
	}
	return nil
}

func (testCtx *TestContext) rectangleHasMoves(idx, want int) error {
	if got := testCtx.Session.Changes().RectangleMoves(idx); got != want {
		return fmt.Errorf("expected %d moves for rectangle %d, got %d", want, idx, got)
	}
	return nil
}

// iDrag presses the primary button at the start point, reaches the end point
// in evenly spaced moves and releases.
func (testCtx *TestContext) iDrag(x1, y1, x2, y2, steps int) error {
	if steps < 1 {
		return fmt.Errorf("a drag needs at least one step, got %d", steps)
	}
	s := testCtx.Session
	s.PointerDown(x1, y1, editor.ButtonPrimary)
	if !s.Dragging() {
		return fmt.Errorf("no handle under %d,%d", x1, y1)
	}
	for i := 1; i <= steps; i++ {
		s.PointerMove(x1+(x2-x1)*i/steps, y1+(y2-y1)*i/steps)
	}
	testCtx.LastChanged = s.PointerUp()
	return nil
}

func (testCtx *TestContext) iPressButton(button string, x, y int) error {
	b := editor.ButtonPrimary
	if button == "secondary" {
		b = editor.ButtonSecondary
	}
	testCtx.LastChanged = testCtx.Session.PointerDown(x, y, b)
	testCtx.Session.PointerUp()
	return nil
}

func (testCtx *TestContext) iDoubleClick(x, y int) error {
	req, ok := testCtx.Session.DoubleClick(x, y)
	if ok {
		testCtx.PendingBoundary = &req
	} else {
		testCtx.PendingBoundary = nil
	}
	return nil
}

func (testCtx *TestContext) noBoundaryIsRequested() error {
	if testCtx.PendingBoundary != nil {
		return fmt.Errorf("expected no boundary request, got one for rectangle %d", testCtx.PendingBoundary.Index)
	}
	return nil
}

func (testCtx *TestContext) aBoundaryIsRequestedFor(idx int) error {
	if testCtx.PendingBoundary == nil {
		return errors.New("expected a boundary request, got none")
	}
	if testCtx.PendingBoundary.Index != idx {
		return fmt.Errorf("expected boundary request for rectangle %d, got %d", idx, testCtx.PendingBoundary.Index)
	}
	if sel, ok := testCtx.Session.Selected().Get(); !ok || sel != idx {
		return fmt.Errorf("expected rectangle %d to be selected", idx)
	}
	return nil
}

func (testCtx *TestContext) theBoundaryArrives(points string) error {
	if testCtx.PendingBoundary == nil {
		return errors.New("no boundary was requested")
	}
	poly, err := parsePolygon(points)
	if err != nil {
		return err
	}
	return testCtx.Session.ApplyBoundary(*testCtx.PendingBoundary, poly)
}

func (testCtx *TestContext) thePolygonIs(want string) error {
	return expectPolygon(testCtx.Session.Polygon(), want)
}

func (testCtx *TestContext) theOriginalPolygonIs(want string) error {
	return expectPolygon(testCtx.Session.OriginalPolygon(), want)
}

func expectPolygon(got geometry.Polygon, want string) error {
	expected, err := parsePolygon(want)
	if err != nil {
		return err
	}
	if !got.Equal(expected) {
		return fmt.Errorf("expected polygon %s, got %s", formatPolygon(expected), formatPolygon(got))
	}
	return nil
}

func (testCtx *TestContext) thePolygonHasChanges(want int, kind string) error {
	changes := testCtx.Session.Changes().PolygonChanges()
	got := map[string]int{"move": changes.Move, "add": changes.Add, "delete": changes.Delete}[kind]
	if got != want {
		return fmt.Errorf("expected %d %s changes, got %d", want, kind, got)
	}
	return nil
}

func (testCtx *TestContext) iAssembleTheResult() error {
	testCtx.LastPayload, testCtx.LastError = editor.AssembleResult(testCtx.Session)
	return nil
}

func (testCtx *TestContext) assemblingFailsWithInvalidState() error {
	if !errors.Is(testCtx.LastError, editor.ErrInvalidState) {
		return fmt.Errorf("expected ErrInvalidState, got %v", testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) resultOK() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("assembling the result failed: %w", testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theResultHasBoxChanges(want int) error {
	if err := testCtx.resultOK(); err != nil {
		return err
	}
	if got := testCtx.LastPayload.BoundingBoxChanges; got != want {
		return fmt.Errorf("expected %d bounding box changes, got %d", want, got)
	}
	return nil
}

func (testCtx *TestContext) theResultHasPolygonChanges(want int) error {
	if err := testCtx.resultOK(); err != nil {
		return err
	}
	if got := testCtx.LastPayload.PolygonChanges; got != want {
		return fmt.Errorf("expected %d polygon changes, got %d", want, got)
	}
	return nil
}

func (testCtx *TestContext) theResultBoundingBoxIs(which, want string) error {
	if err := testCtx.resultOK(); err != nil {
		return err
	}
	box := testCtx.LastPayload.AnnotatedBoundingBox
	if which == "predicted" {
		box = testCtx.LastPayload.PredictedBoundingBox
	}
	return expectRect([]geometry.Rect{box}, 0, want)
}

func (testCtx *TestContext) theResultClassIs(want int) error {
	if err := testCtx.resultOK(); err != nil {
		return err
	}
	if got, expected := testCtx.LastPayload.ObjectClass.String(), editor.ClassOf(want).String(); got != expected {
		return fmt.Errorf("expected class %s, got %s", expected, got)
	}
	return nil
}
