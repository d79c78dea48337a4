// Package render draws editor state onto a raster surface.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/annotator/internal/editor"
	"github.com/MeKo-Tech/annotator/internal/geometry"
	"github.com/lucasb-eyer/go-colorful"
)

// Surface is the drawing capability the editor renders into. Stroke
// operations use the colour set by the most recent SetStroke call.
type Surface interface {
	Bounds() image.Rectangle
	ClearArea(x, y, w, h int)
	DrawImage(img image.Image, x, y int)
	SetStroke(c color.Color)
	StrokeRectangle(r geometry.Rect)
	StrokePolygonPath(p geometry.Polygon)
	StrokeHandleSquare(p geometry.Point, size int)
}

// Default overlay colours.
const (
	DefaultBoxColor    = "#ffff00"
	DefaultPolyColor   = "#ffff00"
	DefaultHandleColor = "#ffff00"
)

// Style holds the overlay colours.
type Style struct {
	Box    color.Color
	Poly   color.Color
	Handle color.Color
}

// DefaultStyle returns the yellow overlay used by the editor.
func DefaultStyle() Style {
	s, _ := ParseStyle(DefaultBoxColor, DefaultPolyColor, DefaultHandleColor)
	return s
}

// ParseStyle builds a Style from hex colour strings such as "#ffcc00".
func ParseStyle(box, poly, handle string) (Style, error) {
	var (
		s   Style
		err error
	)
	if s.Box, err = parseColor("box", box); err != nil {
		return Style{}, err
	}
	if s.Poly, err = parseColor("poly", poly); err != nil {
		return Style{}, err
	}
	if s.Handle, err = parseColor("handle", handle); err != nil {
		return Style{}, err
	}
	return s, nil
}

func parseColor(name, hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid %s color %q: %w", name, hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Draw repaints the whole surface: clear, background image, then the overlay
// for the current mode. img may be nil.
func Draw(s Surface, img image.Image, st editor.State, style Style) {
	b := s.Bounds()
	s.ClearArea(b.Min.X, b.Min.Y, b.Dx(), b.Dy())
	if img != nil {
		s.DrawImage(img, 0, 0)
	}

	switch st.Mode {
	case editor.ModeBoundingBox:
		for _, r := range st.Rectangles {
			s.SetStroke(style.Box)
			s.StrokeRectangle(r)
			s.SetStroke(style.Handle)
			for _, c := range r.Corners() {
				s.StrokeHandleSquare(c, st.HandleSize)
			}
		}
	case editor.ModePolygon, editor.ModeDone:
		if len(st.Polygon) == 0 {
			return
		}
		s.SetStroke(style.Poly)
		s.StrokePolygonPath(st.Polygon)
		s.SetStroke(style.Handle)
		for _, p := range st.Polygon {
			s.StrokeHandleSquare(p, st.HandleSize)
		}
	}
}
