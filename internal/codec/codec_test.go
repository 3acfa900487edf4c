package codec

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

// createTestImage creates a simple gradient image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewFormatFallback(t *testing.T) {
	assert.Equal(t, FormatJPEG, New("jpeg").Format())
	assert.Equal(t, FormatWebP, New("webp").Format())
	assert.Equal(t, FormatJPEG, New("bmp").Format())
	assert.Equal(t, FormatJPEG, New("").Format())
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want kind
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, kindJPEG},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}, kindPNG},
		{"gif", []byte("GIF89a"), kindGIF},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), kindWebP},
		{"heic", []byte("\x00\x00\x00\x18ftypheic"), kindHEIF},
		{"heif mif1", []byte("\x00\x00\x00\x1cftypmif1"), kindHEIF},
		{"unknown", []byte("not an image at all"), kindUnknown},
		{"short", []byte{0xFF}, kindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniff(tt.data))
		})
	}
}

func TestDecodeInvalidInput(t *testing.T) {
	a := New(FormatJPEG)

	_, err := a.Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = a.Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupported)

	// Valid magic bytes but truncated body
	_, err = a.Decode([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00})
	assert.Error(t, err)
}

func TestDecodePNG(t *testing.T) {
	a := New(FormatJPEG)
	data := encodePNG(t, createTestImage(64, 48))

	img, err := a.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestEncodeJPEGRoundTrip(t *testing.T) {
	a := New(FormatJPEG)
	src := createTestImage(120, 80)

	out, err := a.Encode(src, 120, 80, 0.85)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 120, decoded.Bounds().Dx())
	assert.Equal(t, 80, decoded.Bounds().Dy())
}

func TestEncodeResizes(t *testing.T) {
	a := New(FormatJPEG)
	src := createTestImage(200, 100)

	out, err := a.Encode(src, 100, 50, 0.85)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestEncodeNativeSizeOnNonPositiveDims(t *testing.T) {
	a := New(FormatJPEG)
	src := createTestImage(60, 40)

	out, err := a.Encode(src, 0, 0, 0.85)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Width)
	assert.Equal(t, 40, cfg.Height)
}

func TestEncodeQualityAffectsSize(t *testing.T) {
	a := New(FormatJPEG)
	src := createTestImage(300, 300)

	low, err := a.Encode(src, 300, 300, 0.1)
	require.NoError(t, err)
	high, err := a.Encode(src, 300, 300, 0.95)
	require.NoError(t, err)

	assert.Greater(t, len(high), len(low))
}

func TestEncodeNilImage(t *testing.T) {
	a := New(FormatJPEG)
	_, err := a.Encode(nil, 10, 10, 0.5)
	assert.ErrorIs(t, err, ErrNilImage)
}

func TestClampQuality(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{1.0, 100},
		{0.7, 70},
		{0.005, 1},
		{0, 1},
		{-0.3, 1},
		{1.7, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampQuality(tt.in), "quality %v", tt.in)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", New(FormatJPEG).ContentType())
	assert.Equal(t, "image/webp", New(FormatWebP).ContentType())
}

// boundsOnly implements image.Image with arbitrary bounds and no storage,
// for exercising the bomb limits without allocating gigabytes.
type boundsOnly struct {
	rect image.Rectangle
}

func (b boundsOnly) ColorModel() color.Model { return color.RGBAModel }
func (b boundsOnly) Bounds() image.Rectangle { return b.rect }
func (b boundsOnly) At(x, y int) color.Color { return color.RGBA{} }

func TestValidateImage(t *testing.T) {
	assert.NoError(t, ValidateImage(createTestImage(16, 16)))
	assert.ErrorIs(t, ValidateImage(nil), ErrInvalidDimensions)
	assert.ErrorIs(t, ValidateImage(boundsOnly{image.Rect(0, 0, 0, 0)}), ErrInvalidDimensions)
	assert.ErrorIs(t, ValidateImage(boundsOnly{image.Rect(0, 0, MaxImageWidth+1, 10)}), ErrImageTooLarge)
	assert.ErrorIs(t, ValidateImage(boundsOnly{image.Rect(0, 0, 16000, 16000)}), ErrImageTooLarge)
}

func BenchmarkEncodeJPEG(b *testing.B) {
	a := New(FormatJPEG)
	src := createTestImage(1920, 1080)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Encode(src, 1920, 1080, 0.85)
	}
}
