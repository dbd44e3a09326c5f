package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestOptimizeDownscalesPreservingAspect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2000, 1000))
	opt := NewOptimizer(500, 85)

	out, err := opt.Optimize(encodePNG(t, src))
	require.NoError(t, err)

	decoded := decodeJPEG(t, out)
	assert.Equal(t, 500, decoded.Bounds().Dx())
	assert.Equal(t, 250, decoded.Bounds().Dy())
}

func TestOptimizeKeepsSmallImagesUnscaled(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 120, 80))
	opt := NewOptimizer(1024, 85)

	out, err := opt.Optimize(encodePNG(t, src))
	require.NoError(t, err)

	decoded := decodeJPEG(t, out)
	assert.Equal(t, 120, decoded.Bounds().Dx())
	assert.Equal(t, 80, decoded.Bounds().Dy())
}

func TestOptimizeFlattensTransparencyOntoWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	// fully transparent source
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			src.SetNRGBA(x, y, color.NRGBA{A: 0})
		}
	}
	opt := NewOptimizer(1024, 95)

	out, err := opt.Optimize(encodePNG(t, src))
	require.NoError(t, err)

	decoded := decodeJPEG(t, out)
	r, g, b, _ := decoded.At(5, 5).RGBA()
	// JPEG is lossy; allow a small tolerance off pure white.
	assert.Greater(t, r>>8, uint32(245))
	assert.Greater(t, g>>8, uint32(245))
	assert.Greater(t, b>>8, uint32(245))
}

func TestOptimizeExtremeAspectRatioKeepsBothSides(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4000, 1))
	opt := NewOptimizer(1024, 85)

	out, err := opt.Optimize(encodePNG(t, src))
	require.NoError(t, err)

	decoded := decodeJPEG(t, out)
	assert.Equal(t, 1024, decoded.Bounds().Dx())
	assert.Equal(t, 1, decoded.Bounds().Dy())
}

func TestOptimizeRejectsNonImagePayload(t *testing.T) {
	opt := NewOptimizer(1024, 85)
	_, err := opt.Optimize([]byte("<html>not an image</html>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode image")
}

func TestOptimizePortraitOrientation(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 1600))
	opt := NewOptimizer(800, 85)

	out, err := opt.Optimize(encodePNG(t, src))
	require.NoError(t, err)

	decoded := decodeJPEG(t, out)
	assert.Equal(t, 200, decoded.Bounds().Dx())
	assert.Equal(t, 800, decoded.Bounds().Dy())
}
