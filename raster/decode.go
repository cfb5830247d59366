package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// Magic is the marker that opens a binary RGB raw pixel-map stream.
const Magic = "P6"

const (
	// DefaultMaxTokenLength bounds the width and height tokens.
	DefaultMaxTokenLength = 15
	// DefaultMaxLineLength bounds the opaque header lines (magic line rest,
	// comment, max value).
	DefaultMaxLineLength = 1024

	rgbChannels = 3
)

// Config controls the header tokenizer. Zero fields take their defaults; a
// zero Limits means DefaultLimits.
type Config struct {
	MaxTokenLength int
	MaxLineLength  int
	Limits         Limits
}

func (c Config) withDefaults() Config {
	if c.MaxTokenLength <= 0 {
		c.MaxTokenLength = DefaultMaxTokenLength
	}
	if c.MaxLineLength <= 0 {
		c.MaxLineLength = DefaultMaxLineLength
	}
	if c.Limits == (Limits{}) {
		c.Limits = DefaultLimits()
	}
	return c
}

// Header is the parsed header of a raw pixel-map stream.
type Header struct {
	Magic    string
	Width    int
	Height   int
	Channels int
	// Comment is the opaque line following the magic line, without its
	// terminator. It is kept for diagnostics only.
	Comment string
	// MaxValue is the declared maximum sample value as written. Samples
	// are read as 8-bit whatever it says.
	MaxValue string
}

// Size returns the payload length in bytes described by h.
func (h Header) Size() (int, error) {
	return payloadSize(h.Width, h.Height, h.Channels)
}

type state int

const (
	stateMagic state = iota
	stateComment
	stateWidth
	stateHeight
	stateMaxValue
	stateComplete
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateMagic:
		return "magic"
	case stateComment:
		return "comment"
	case stateWidth:
		return "width"
	case stateHeight:
		return "height"
	case stateMaxValue:
		return "max value"
	case stateComplete:
		return "complete"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// source adapts the Byte Source contract: a read that returns no data and
// no error means the producer is gone.
type source struct {
	r io.Reader
}

func (s source) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := s.r.Read(p)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

var makeBuffer = func(n int) []byte { return make([]byte, n) }

// Decoder extracts one raster image from a byte stream. It holds the
// transient state of a single extraction and is not safe for concurrent use.
type Decoder struct {
	br    *bufio.Reader
	cfg   Config
	state state
	tok   token
	off   int64
	hdr   Header
	err   error
	alloc func(n int) []byte
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader, cfg Config) *Decoder {
	cfg = cfg.withDefaults()
	return &Decoder{
		br:    bufio.NewReader(source{r: r}),
		cfg:   cfg,
		tok:   newToken(cfg.MaxTokenLength),
		alloc: makeBuffer,
	}
}

// Decode reads a complete image from r using the default configuration.
func Decode(r io.Reader) (*Image, error) {
	return NewDecoder(r, Config{}).Decode()
}

// Offset returns the number of stream bytes consumed so far.
func (d *Decoder) Offset() int64 { return d.off }

// Decode reads the header and then the payload.
func (d *Decoder) Decode() (*Image, error) {
	if _, err := d.ReadHeader(); err != nil {
		return nil, err
	}
	return d.ReadPayload()
}

// ReadHeader runs the header state machine to completion. On success the
// decoder is positioned at the first payload byte. Calling it again returns
// the same result.
func (d *Decoder) ReadHeader() (Header, error) {
	if d.err != nil {
		return Header{}, d.err
	}
	for d.state != stateComplete {
		at := d.state
		if err := d.step(); err != nil {
			d.state = stateFailed
			d.err = &HeaderError{State: at.String(), Offset: d.off, Err: err}
			return Header{}, d.err
		}
	}
	return d.hdr, nil
}

func (d *Decoder) step() error {
	switch d.state {
	case stateMagic:
		if err := d.consumeMagic(); err != nil {
			return err
		}
		d.hdr.Magic = Magic
		d.state = stateComment
	case stateComment:
		line, err := d.skipLine(true)
		if err != nil {
			return err
		}
		d.hdr.Comment = line
		d.state = stateWidth
	case stateWidth:
		w, err := d.readDimension(' ')
		if err != nil {
			return err
		}
		d.hdr.Width = w
		d.state = stateHeight
	case stateHeight:
		h, err := d.readDimension('\n')
		if err != nil {
			return err
		}
		d.hdr.Height = h
		d.state = stateMaxValue
	case stateMaxValue:
		line, err := d.skipLine(true)
		if err != nil {
			return err
		}
		d.hdr.MaxValue = line
		d.hdr.Channels = rgbChannels
		d.state = stateComplete
	default:
		return fmt.Errorf("raster: unexpected tokenizer state %v", d.state)
	}
	return nil
}

func (d *Decoder) readByte() (byte, error) {
	c, err := d.br.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrTruncatedHeader
		}
		return 0, err
	}
	d.off++
	return c, nil
}

func (d *Decoder) consumeMagic() error {
	for i := 0; i < len(Magic); i++ {
		c, err := d.readByte()
		if err != nil {
			return err
		}
		if c != Magic[i] {
			return fmt.Errorf("%w: byte %d is %q", ErrBadMagic, i, c)
		}
	}
	_, err := d.skipLine(false)
	return err
}

// skipLine consumes bytes up to and including the next '\n'. The line body
// is returned only when keep is set.
func (d *Decoder) skipLine(keep bool) (string, error) {
	var line []byte
	for n := 0; ; n++ {
		c, err := d.readByte()
		if err != nil {
			return "", err
		}
		if c == '\n' {
			return string(line), nil
		}
		if n >= d.cfg.MaxLineLength {
			return "", fmt.Errorf("%w: line longer than %d bytes", ErrTokenTooLong, d.cfg.MaxLineLength)
		}
		if keep {
			line = append(line, c)
		}
	}
}

func (d *Decoder) readDimension(term byte) (int, error) {
	d.tok.reset()
	for {
		c, err := d.readByte()
		if err != nil {
			return 0, err
		}
		switch {
		case c == term:
			return d.tok.dimension()
		case isDigit(c):
			if err := d.tok.add(c); err != nil {
				return 0, err
			}
		default:
			return 0, fmt.Errorf("%w: unexpected byte %q", ErrMalformedDimension, c)
		}
	}
}

// ReadPayload allocates a buffer sized from the parsed header and fills it
// from the stream. It never returns a partially filled image.
func (d *Decoder) ReadPayload() (*Image, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.state != stateComplete {
		return nil, errHeaderIncomplete
	}
	h := d.hdr
	size, err := h.Size()
	if err != nil {
		return nil, &AllocationError{Width: h.Width, Height: h.Height, Channels: h.Channels, Err: err}
	}
	if err := d.cfg.Limits.validate(h.Width, h.Height); err != nil {
		return nil, &AllocationError{Width: h.Width, Height: h.Height, Channels: h.Channels, Err: err}
	}

	pix := d.alloc(size)
	got := 0
	for got < size {
		n, err := d.br.Read(pix[got:])
		got += n
		d.off += int64(n)
		if got == size {
			break
		}
		if (err == nil && n == 0) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &ShortReadError{Got: got, Want: size}
		}
		if err != nil {
			return nil, fmt.Errorf("raster: payload read failed after %d of %d bytes: %w", got, size, err)
		}
	}
	return &Image{Width: h.Width, Height: h.Height, Channels: h.Channels, Pix: pix}, nil
}
