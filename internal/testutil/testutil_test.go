package testutil

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
}

func TestCreateSceneImage(t *testing.T) {
	img := CreateSceneImage(100, 80, 10, 10, 40)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, color.NRGBA{R: 40, G: 60, B: 90, A: 255}, img.NRGBAAt(30, 30))
	assert.Equal(t, color.NRGBA{R: 235, G: 235, B: 235, A: 255}, img.NRGBAAt(90, 5))

	path := SaveImage(t, img, t.TempDir(), "scene.png")
	assert.True(t, FileExists(path))
	assert.NotEmpty(t, EncodePNG(t, img))
}
