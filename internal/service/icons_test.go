package service

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestProcessIconKeepsSmallImages(t *testing.T) {
	in := pngBytes(t, 64, 64)

	out, contentType, err := processIcon(in, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, in, out)
}

func TestProcessIconDownscalesLargeImages(t *testing.T) {
	in := pngBytes(t, 1024, 600)

	out, contentType, err := processIcon(in, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	b := img.Bounds()
	assert.Equal(t, 512, b.Dx())
	assert.Equal(t, 300, b.Dy())
}

func TestProcessIconRejectsGarbage(t *testing.T) {
	_, _, err := processIcon([]byte("not an image"), "image/png")
	require.Error(t, err)
}

func TestProcessIconPassesSVGThrough(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`)

	out, contentType, err := processIcon(svg, "image/svg+xml")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", contentType)
	assert.Equal(t, svg, out)
}
