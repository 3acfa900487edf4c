package codec

import (
	"errors"
	"image"
	"image/jpeg"
	"math"

	webpenc "github.com/chai2010/webp"
	"github.com/nfnt/resize"
)

// ErrNilImage is returned when Encode is handed a nil bitmap
var ErrNilImage = errors.New("nil image")

// Encode renders img at width x height and the given quality in (0,1],
// returning the compressed bytes. Dimensions <= 0 mean "native size".
// The source image is never mutated; resizing produces a new bitmap.
func (a *Adapter) Encode(img image.Image, width, height int, quality float64) ([]byte, error) {
	if img == nil {
		return nil, ErrNilImage
	}

	bounds := img.Bounds()
	if width <= 0 || height <= 0 {
		width, height = bounds.Dx(), bounds.Dy()
	}
	if width != bounds.Dx() || height != bounds.Dy() {
		img = resize.Resize(uint(width), uint(height), img, resize.Bilinear)
	}

	q := clampQuality(quality)

	buf := getBuffer(estimateEncodedCap(width, height, q))
	defer putBuffer(buf)

	if a.format == FormatWebP {
		if err := webpenc.Encode(buf, toRGBA(img), &webpenc.Options{Quality: float32(q)}); err != nil {
			return nil, err
		}
	} else {
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, err
		}
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// clampQuality maps the engine's (0,1] quality to the codec 1..100 scale
func clampQuality(quality float64) int {
	q := int(math.Round(quality * 100))
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return q
}

// estimateEncodedCap guesses an output capacity so the encode buffer rarely
// regrows. Deliberately rough.
func estimateEncodedCap(width, height, quality int) int {
	pixels := width * height
	var perPixel float64
	switch {
	case quality >= 90:
		perPixel = 2.0
	case quality >= 70:
		perPixel = 1.0
	case quality >= 50:
		perPixel = 0.5
	default:
		perPixel = 0.3
	}
	return int(float64(pixels) * perPixel)
}

// toRGBA converts an image for the WebP encoder, which wants RGBA input
func toRGBA(img image.Image) *image.RGBA {
	if src, ok := img.(*image.RGBA); ok {
		return src
	}
	rgba := image.NewRGBA(img.Bounds())
	for y := rgba.Rect.Min.Y; y < rgba.Rect.Max.Y; y++ {
		for x := rgba.Rect.Min.X; x < rgba.Rect.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba
}
