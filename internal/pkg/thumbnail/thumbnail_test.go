package thumbnail

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestGenerate_FitsWithinBox(t *testing.T) {
	out, err := Generate(pngOf(t, 800, 400), 200)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 100, cfg.Height)
}

func TestGenerate_SmallImageNotEnlarged(t *testing.T) {
	out, err := Generate(pngOf(t, 50, 30), 200)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestGenerate_InvalidInput(t *testing.T) {
	_, err := Generate(strings.NewReader("not an image"), 200)
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("image/png"))
	assert.False(t, Supported("image/svg+xml"))
	assert.False(t, Supported("video/mp4"))
}
