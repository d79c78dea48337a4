package support

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/MeKo-Tech/annotator/internal/geometry"
)

// TestContext holds the state of one editor scenario.
type TestContext struct {
	Session *editor.Session

	// Boundary request issued by the last successful double click.
	PendingBoundary *editor.BoundaryRequest

	// Result of the last topology step run outside a session.
	Polygon     geometry.Polygon
	InsertIndex int

	LastPayload editor.DiffPayload
	LastError   error
	LastChanged bool
}

// NewTestContext creates a context with a fresh session.
func NewTestContext() *TestContext {
	return &TestContext{Session: editor.NewSession(editor.DefaultHandleSize)}
}

// Reset discards all scenario state.
func (testCtx *TestContext) Reset() {
	*testCtx = *NewTestContext()
}

// parseRect parses "x1,y1,x2,y2".
func parseRect(s string) (geometry.Rect, error) {
	vals, err := parseInts(s, 4)
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("rectangle %q: %w", s, err)
	}
	return geometry.R(vals[0], vals[1], vals[2], vals[3]), nil
}

// parsePolygon parses "(x,y) (x,y) ...".
func parsePolygon(s string) (geometry.Polygon, error) {
	var poly geometry.Polygon
	for _, field := range strings.Fields(s) {
		vals, err := parseInts(strings.Trim(field, "()"), 2)
		if err != nil {
			return nil, fmt.Errorf("polygon %q: %w", s, err)
		}
		poly = append(poly, geometry.Pt(vals[0], vals[1]))
	}
	return poly, nil
}

func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(parts))
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func formatPolygon(poly geometry.Polygon) string {
	parts := make([]string, len(poly))
	for i, p := range poly {
		parts[i] = fmt.Sprintf("(%d,%d)", p.X, p.Y)
	}
	return strings.Join(parts, " ")
}
