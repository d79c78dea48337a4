package testutil

import (
	"bytes"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CreateTestImage returns an opaque image filled with bg.
func CreateTestImage(width, height int, bg color.Color) *image.NRGBA {
	return imaging.New(width, height, bg)
}

// CreateSceneImage returns a light image with a dark filled square at
// (x, y)-(x+size, y+size) and a caption, standing in for a photographed object.
func CreateSceneImage(width, height, x, y, size int) *image.NRGBA {
	img := imaging.New(width, height, color.NRGBA{R: 235, G: 235, B: 235, A: 255})
	obj := imaging.New(size, size, color.NRGBA{R: 40, G: 60, B: 90, A: 255})
	img = imaging.Paste(img, obj, image.Pt(x, y))

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, height-4),
	}
	d.DrawString("object")
	return img
}

// SaveImage writes img to dir/name; the format follows the extension.
func SaveImage(t *testing.T, img image.Image, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

// EncodePNG returns img encoded as PNG.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}
