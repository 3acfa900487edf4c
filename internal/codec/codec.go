// Package codec adapts the platform image codecs to the search engine:
// content-sniffed decoding of JPEG, PNG, GIF, WebP and HEIF input, and
// lossy JPEG or WebP encoding at a requested quality and dimensions.
package codec

import (
	"bytes"
	"errors"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/adrium/goheif"
	"golang.org/x/image/webp"
)

// Supported output formats
const (
	FormatJPEG = "jpeg"
	FormatWebP = "webp"
)

var (
	// ErrEmptyInput is returned for zero-length input data
	ErrEmptyInput = errors.New("empty image data")
	// ErrUnsupported is returned when the input matches no known format
	ErrUnsupported = errors.New("unsupported image format")
)

// Adapter decodes raster images and re-encodes bitmaps in one lossy output
// format. It satisfies the search engine's Codec interface.
type Adapter struct {
	format string
}

// New creates an Adapter for the given output format. Anything other than
// FormatWebP falls back to FormatJPEG.
func New(format string) *Adapter {
	if format != FormatWebP {
		format = FormatJPEG
	}
	return &Adapter{format: format}
}

// Format returns the adapter's output format
func (a *Adapter) Format() string {
	return a.format
}

// Decode sniffs the input format by magic bytes and decodes it into a
// bitmap. Decoded dimensions are validated against the bomb limits.
func (a *Adapter) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	var (
		img image.Image
		err error
	)
	switch sniff(data) {
	case kindJPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	case kindPNG:
		img, err = png.Decode(bytes.NewReader(data))
	case kindGIF:
		img, err = gif.Decode(bytes.NewReader(data))
	case kindWebP:
		img, err = webp.Decode(bytes.NewReader(data))
	case kindHEIF:
		img, err = goheif.Decode(bytes.NewReader(data))
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, err
	}

	if err := ValidateImage(img); err != nil {
		return nil, err
	}
	return img, nil
}

// ContentType returns the MIME type of the adapter's output
func (a *Adapter) ContentType() string {
	if a.format == FormatWebP {
		return "image/webp"
	}
	return "image/jpeg"
}

type kind int

const (
	kindUnknown kind = iota
	kindJPEG
	kindPNG
	kindGIF
	kindWebP
	kindHEIF
)

func sniff(buf []byte) kind {
	switch {
	case isJPEG(buf):
		return kindJPEG
	case isPNG(buf):
		return kindPNG
	case isGIF(buf):
		return kindGIF
	case isWebP(buf):
		return kindWebP
	case isHEIF(buf):
		return kindHEIF
	}
	return kindUnknown
}

func isJPEG(buf []byte) bool {
	return len(buf) > 2 &&
		buf[0] == 0xFF && buf[1] == 0xD8 && buf[2] == 0xFF
}

func isPNG(buf []byte) bool {
	return len(buf) > 3 &&
		buf[0] == 0x89 && buf[1] == 0x50 &&
		buf[2] == 0x4E && buf[3] == 0x47
}

func isGIF(buf []byte) bool {
	return len(buf) > 2 &&
		buf[0] == 0x47 && buf[1] == 0x49 && buf[2] == 0x46
}

func isWebP(buf []byte) bool {
	return len(buf) > 11 &&
		buf[8] == 0x57 && buf[9] == 0x45 &&
		buf[10] == 0x42 && buf[11] == 0x50
}

// HEIF follows ISOBMFF: [4 byte size] "ftyp" [brand]
func isHEIF(buf []byte) bool {
	if len(buf) < 12 || string(buf[4:8]) != "ftyp" {
		return false
	}
	brand := string(bytes.ToLower(buf[8:12]))
	switch brand {
	case "heic", "heim", "heis", "heix", "mif1":
		return true
	}
	return len(brand) >= 2 && brand[:2] == "he"
}
