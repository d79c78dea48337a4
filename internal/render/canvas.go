package render

import (
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/MeKo-Tech/annotator/internal/geometry"
	"github.com/disintegration/imaging"
)

// Canvas is an in-memory Surface backed by an NRGBA image.
type Canvas struct {
	img       *image.NRGBA
	stroke    color.Color
	lineWidth int
}

// NewCanvas creates a transparent canvas of the given size.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		img:       imaging.New(width, height, color.Transparent),
		stroke:    color.Black,
		lineWidth: 1,
	}
}

// SetLineWidth sets the stroke thickness in pixels.
func (c *Canvas) SetLineWidth(w int) {
	if w < 1 {
		w = 1
	}
	c.lineWidth = w
}

func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

func (c *Canvas) ClearArea(x, y, w, h int) {
	r := image.Rect(x, y, x+w, y+h).Intersect(c.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(c.img, r, image.Transparent, image.Point{}, draw.Src)
}

// DrawImage composites img at its original size with its top-left corner at (x, y).
func (c *Canvas) DrawImage(img image.Image, x, y int) {
	if img == nil {
		return
	}
	c.img = imaging.Overlay(c.img, img, image.Pt(x, y), 1.0)
}

func (c *Canvas) SetStroke(col color.Color) {
	if col == nil {
		col = color.Black
	}
	c.stroke = col
}

func (c *Canvas) StrokeRectangle(r geometry.Rect) {
	corners := []image.Point{
		image.Pt(r.X1, r.Y1),
		image.Pt(r.X2, r.Y1),
		image.Pt(r.X2, r.Y2),
		image.Pt(r.X1, r.Y2),
	}
	c.strokeClosed(corners)
}

func (c *Canvas) StrokePolygonPath(p geometry.Polygon) {
	if len(p) < 2 {
		return
	}
	pts := make([]image.Point, len(p))
	for i, v := range p {
		pts[i] = v.ImagePoint()
	}
	c.strokeClosed(pts)
}

// StrokeHandleSquare outlines a square of side size centred on p.
func (c *Canvas) StrokeHandleSquare(p geometry.Point, size int) {
	half := size / 2
	c.strokeClosed([]image.Point{
		image.Pt(p.X-half, p.Y-half),
		image.Pt(p.X+half, p.Y-half),
		image.Pt(p.X+half, p.Y+half),
		image.Pt(p.X-half, p.Y+half),
	})
}

// Image returns a copy of the current pixels.
func (c *Canvas) Image() *image.NRGBA {
	return imaging.Clone(c.img)
}

// EncodePNG writes the current pixels as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return imaging.Encode(w, c.img, imaging.PNG)
}

// Save writes the canvas to path; the format follows the file extension.
func (c *Canvas) Save(path string) error {
	return imaging.Save(c.img, path)
}

func (c *Canvas) strokeClosed(pts []image.Point) {
	for i := range pts {
		c.drawLine(pts[i], pts[(i+1)%len(pts)])
	}
}

// drawLine draws a segment with Bresenham's algorithm.
func (c *Canvas) drawLine(a, b image.Point) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		c.plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) plot(x, y int) {
	r := (c.lineWidth - 1) / 2
	bounds := c.img.Bounds()
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(bounds) {
				c.img.Set(xx, yy, c.stroke)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
