package raster

import (
	"errors"
	"fmt"
)

var (
	// ErrBadMagic is returned when the stream does not start with the raw
	// pixel-map marker.
	ErrBadMagic = errors.New("raster: bad magic")

	// ErrMalformedDimension is returned when a width or height token is
	// empty, contains a non-digit byte, or is zero.
	ErrMalformedDimension = errors.New("raster: malformed dimension")

	// ErrTokenTooLong is returned when a header token or line exceeds its
	// configured length bound.
	ErrTokenTooLong = errors.New("raster: header token too long")

	// ErrTruncatedHeader is returned when the stream ends before the header
	// is complete.
	ErrTruncatedHeader = errors.New("raster: truncated header")

	// ErrSizeOverflow is returned when width*height*channels does not fit
	// in an int.
	ErrSizeOverflow = errors.New("raster: payload size overflows")

	// ErrTooLarge is returned when the header describes an image beyond the
	// configured Limits.
	ErrTooLarge = errors.New("raster: image exceeds limits")

	// ErrShortRead matches any *ShortReadError.
	ErrShortRead = errors.New("raster: short payload read")

	errHeaderIncomplete = errors.New("raster: payload requested before header is complete")
)

// HeaderError reports a header parse failure together with the tokenizer
// state it occurred in and the number of bytes consumed so far.
type HeaderError struct {
	State  string
	Offset int64
	Err    error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("raster header (%s) at byte %d: %v", e.State, e.Offset, e.Err)
}

func (e *HeaderError) Unwrap() error { return e.Err }

// AllocationError reports that no payload buffer could be sized for the
// parsed dimensions.
type AllocationError struct {
	Width, Height, Channels int
	Err                     error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("raster: cannot allocate %dx%dx%d payload: %v", e.Width, e.Height, e.Channels, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// ShortReadError reports that the stream ended after Got of Want payload
// bytes. The partial buffer is discarded.
type ShortReadError struct {
	Got  int
	Want int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("raster: short read: got %d of %d payload bytes", e.Got, e.Want)
}

func (e *ShortReadError) Is(target error) bool { return target == ErrShortRead }
