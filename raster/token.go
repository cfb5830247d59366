package raster

import (
	"fmt"
	"strconv"
)

// token accumulates header bytes up to a fixed capacity. It never grows past
// the limit it was created with.
type token struct {
	buf []byte
}

func newToken(limit int) token {
	return token{buf: make([]byte, 0, limit)}
}

func (t *token) reset() { t.buf = t.buf[:0] }

func (t *token) add(c byte) error {
	if len(t.buf) == cap(t.buf) {
		return fmt.Errorf("%w: more than %d bytes", ErrTokenTooLong, cap(t.buf))
	}
	t.buf = append(t.buf, c)
	return nil
}

// dimension converts the accumulated digits to a positive int.
func (t *token) dimension() (int, error) {
	if len(t.buf) == 0 {
		return 0, fmt.Errorf("%w: empty token", ErrMalformedDimension)
	}
	v, err := strconv.Atoi(string(t.buf))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedDimension, t.buf, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: %q is not positive", ErrMalformedDimension, t.buf)
	}
	return v, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
