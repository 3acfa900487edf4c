package codec

import (
	"errors"
	"image"
	"log"
)

var (
	// ErrInvalidDimensions is returned for zero or negative dimensions
	ErrInvalidDimensions = errors.New("invalid image dimensions")
	// ErrImageTooLarge is returned when dimensions exceed the bomb limits
	ErrImageTooLarge = errors.New("image dimensions exceed maximum allowed")
)

// Limits protecting against decompression bombs
const (
	MaxImageWidth  = 20000
	MaxImageHeight = 20000
	MaxImagePixels = 250_000_000
)

// ValidateImage checks decoded image dimensions are within acceptable limits
func ValidateImage(img image.Image) error {
	if img == nil {
		return ErrInvalidDimensions
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= 0 || height <= 0 {
		log.Printf("Invalid dimensions: %dx%d", width, height)
		return ErrInvalidDimensions
	}

	if width > MaxImageWidth || height > MaxImageHeight {
		log.Printf("Dimensions too large: %dx%d (max: %dx%d)", width, height, MaxImageWidth, MaxImageHeight)
		return ErrImageTooLarge
	}

	if int64(width)*int64(height) > MaxImagePixels {
		log.Printf("Too many pixels: %dx%d (max: %d)", width, height, MaxImagePixels)
		return ErrImageTooLarge
	}

	return nil
}
