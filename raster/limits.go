package raster

import (
	"fmt"
	"math"
)

const (
	// maxImageDimension caps width and height so a lying or corrupted
	// header cannot request an absurd buffer.
	maxImageDimension = 32768
	// maxImagePixels bounds the pixel count (256 MP, roughly 768 MB of RGB).
	maxImagePixels int64 = 256 * 1024 * 1024
)

// Limits bounds the images a Decoder is willing to allocate. A field <= 0
// disables that check.
type Limits struct {
	MaxDimension int
	MaxPixels    int64
}

// DefaultLimits returns the limits applied when Config.Limits is zero.
func DefaultLimits() Limits {
	return Limits{MaxDimension: maxImageDimension, MaxPixels: maxImagePixels}
}

// NoLimits disables every check except integer overflow.
var NoLimits = Limits{MaxDimension: -1, MaxPixels: -1}

func (l Limits) validate(width, height int) error {
	if l.MaxDimension > 0 && (width > l.MaxDimension || height > l.MaxDimension) {
		return fmt.Errorf("%w: dimension %d x %d over %d", ErrTooLarge, width, height, l.MaxDimension)
	}
	if l.MaxPixels > 0 {
		if pixels := int64(width) * int64(height); pixels > l.MaxPixels {
			return fmt.Errorf("%w: pixel count %d over %d", ErrTooLarge, pixels, l.MaxPixels)
		}
	}
	return nil
}

// payloadSize returns width*height*channels, or ErrSizeOverflow.
func payloadSize(width, height, channels int) (int, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return 0, fmt.Errorf("%w: %d x %d x %d", ErrMalformedDimension, width, height, channels)
	}
	if width > math.MaxInt/height {
		return 0, ErrSizeOverflow
	}
	pixels := width * height
	if pixels > math.MaxInt/channels {
		return 0, ErrSizeOverflow
	}
	return pixels * channels, nil
}
