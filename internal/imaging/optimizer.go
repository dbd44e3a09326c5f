// Package imaging normalizes fetched image payloads before they are sent to
// the captioning service. The point is to bound payload size and per-call
// cost, not to convert formats for their own sake.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// Optimizer re-encodes images as bounded baseline JPEGs.
type Optimizer struct {
	maxDimension int
	jpegQuality  int
}

// NewOptimizer builds an optimizer with sane fallbacks for zero config.
func NewOptimizer(maxDimension, jpegQuality int) *Optimizer {
	if maxDimension <= 0 {
		maxDimension = 1024
	}
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 85
	}
	return &Optimizer{maxDimension: maxDimension, jpegQuality: jpegQuality}
}

// Optimize decodes src, downscales it so the longest side fits the
// configured maximum (aspect ratio preserved, Catmull-Rom resampling),
// flattens any transparency onto an opaque white background, and re-encodes
// as JPEG at the configured quality.
func (o *Optimizer) Optimize(src []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := o.fitDimensions(width, height)

	// Drawing onto an opaque RGBA canvas both rescales and flattens
	// alpha/palette pixels in one pass.
	canvas := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	if newWidth != width || newHeight != height {
		xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), img, bounds, xdraw.Over, nil)
	} else {
		draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Over)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: o.jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// fitDimensions bounds the longest side to maxDimension, preserving aspect.
func (o *Optimizer) fitDimensions(width, height int) (int, int) {
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= o.maxDimension {
		return width, height
	}

	if width > height {
		return o.maxDimension, atLeastOne(float64(height) * float64(o.maxDimension) / float64(width))
	}
	return atLeastOne(float64(width) * float64(o.maxDimension) / float64(height)), o.maxDimension
}

// atLeastOne keeps extreme aspect ratios from rounding a side down to zero.
func atLeastOne(scaled float64) int {
	if scaled < 1 {
		return 1
	}
	return int(scaled)
}
