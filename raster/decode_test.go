package raster

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/davecgh/go-spew/spew"
)

const sampleHeader = "P6\n# comment\n64 32\n255\n"

func payload(n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(1)).Read(b)
	return b
}

func stream(header string, body []byte) io.Reader {
	return io.MultiReader(strings.NewReader(header), bytes.NewReader(body))
}

func TestDecodeSample(t *testing.T) {
	want := payload(64 * 32 * 3)
	img, err := Decode(stream(sampleHeader, want))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if img.Width != 64 || img.Height != 32 || img.Channels != 3 {
		t.Fatalf("unexpected image shape:\n%s", spew.Sdump(img.Width, img.Height, img.Channels))
	}
	if !bytes.Equal(img.Pix, want) {
		t.Fatalf("payload mismatch")
	}
}

func TestDecodeShortRead(t *testing.T) {
	want := 64*32*3 - 10
	_, err := Decode(stream(sampleHeader, payload(want)))
	var sr *ShortReadError
	if !errors.As(err, &sr) {
		t.Fatalf("expected ShortReadError, got %v", err)
	}
	if sr.Got != want || sr.Want != 64*32*3 {
		t.Fatalf("unexpected short read counts: %+v", sr)
	}
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("ShortReadError should match ErrShortRead")
	}
}

func TestDecodeBadMagicAllocatesNothing(t *testing.T) {
	allocs := 0
	d := NewDecoder(strings.NewReader("XX\n# comment\n64 32\n255\n"), Config{})
	d.alloc = func(n int) []byte {
		allocs++
		return make([]byte, n)
	}
	img, err := d.Decode()
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
	if img != nil {
		t.Fatalf("expected no image on bad magic")
	}
	if allocs != 0 {
		t.Fatalf("payload buffer allocated %d times on bad magic", allocs)
	}
	if d.Offset() != 1 {
		t.Fatalf("bad magic should stop at the first byte, offset = %d", d.Offset())
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
		state string
	}{
		{"empty stream", "", ErrTruncatedHeader, "magic"},
		{"wrong second byte", "P3\n", ErrBadMagic, "magic"},
		{"eof after magic", "P6", ErrTruncatedHeader, "magic"},
		{"eof in comment", "P6\n# creat", ErrTruncatedHeader, "comment"},
		{"empty width", "P6\n#\n 32\n255\n", ErrMalformedDimension, "width"},
		{"letter in width", "P6\n#\n6a 32\n255\n", ErrMalformedDimension, "width"},
		{"sign in width", "P6\n#\n-6 32\n255\n", ErrMalformedDimension, "width"},
		{"zero width", "P6\n#\n0 32\n255\n", ErrMalformedDimension, "width"},
		{"tab separator", "P6\n#\n64\t32\n255\n", ErrMalformedDimension, "width"},
		{"empty height", "P6\n#\n64 \n255\n", ErrMalformedDimension, "height"},
		{"double space", "P6\n#\n64  32\n255\n", ErrMalformedDimension, "height"},
		{"crlf height", "P6\n#\n64 32\r\n255\n", ErrMalformedDimension, "height"},
		{"eof in width", "P6\n#\n64", ErrTruncatedHeader, "width"},
		{"eof in height", "P6\n#\n64 32", ErrTruncatedHeader, "height"},
		{"eof in max value", "P6\n#\n64 32\n25", ErrTruncatedHeader, "max value"},
		{"long width", "P6\n#\n1234567890123456 1\n255\n", ErrTokenTooLong, "width"},
		{"long height", "P6\n#\n1 1234567890123456\n255\n", ErrTokenTooLong, "height"},
		{"long comment", "P6\n#" + strings.Repeat("x", DefaultMaxLineLength) + "\n1 1\n255\n", ErrTokenTooLong, "comment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(strings.NewReader(tt.input), Config{})
			_, err := d.ReadHeader()
			if !errors.Is(err, tt.want) {
				t.Fatalf("ReadHeader(%q) error = %v, want %v", tt.input, err, tt.want)
			}
			var he *HeaderError
			if !errors.As(err, &he) {
				t.Fatalf("expected *HeaderError, got %T", err)
			}
			if he.State != tt.state {
				t.Fatalf("failure state = %q, want %q", he.State, tt.state)
			}
			// Failures are sticky.
			if _, err2 := d.ReadPayload(); err2 != err {
				t.Fatalf("ReadPayload after failure = %v, want %v", err2, err)
			}
		})
	}
}

func TestDecodeLongestTokenAccepted(t *testing.T) {
	// 15 digits is the documented bound; the value is rejected by limits,
	// not by the tokenizer.
	d := NewDecoder(strings.NewReader("P6\n#\n100000000000000 1\n255\n"), Config{})
	h, err := d.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if h.Width != 100000000000000 {
		t.Fatalf("unexpected width %d", h.Width)
	}
	if _, err := d.ReadPayload(); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestReadHeaderKeepsMaxValue(t *testing.T) {
	header := "P6\n#\n2 1\n65535\n"
	d := NewDecoder(stream(header, payload(12)), Config{})
	h, err := d.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if h.MaxValue != "65535" {
		t.Fatalf("max value = %q", h.MaxValue)
	}
	// Samples are read as 8-bit: only width*height*3 bytes are consumed.
	img, err := d.ReadPayload()
	if err != nil {
		t.Fatalf("ReadPayload() error = %v", err)
	}
	if len(img.Pix) != 6 || d.Offset() != int64(len(header)+6) {
		t.Fatalf("read %d bytes, offset %d", len(img.Pix), d.Offset())
	}
}

func TestReadHeaderPositionsAtPayload(t *testing.T) {
	body := []byte("\n\nrest of the payload")
	header := "P6\n# Image generated by GPL Ghostscript\n4 1\n255\n"
	d := NewDecoder(stream(header, body), Config{})
	h, err := d.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if h.Comment != "# Image generated by GPL Ghostscript" {
		t.Fatalf("unexpected comment %q", h.Comment)
	}
	if d.Offset() != int64(len(header)) {
		t.Fatalf("offset after header = %d, want %d", d.Offset(), len(header))
	}
	img, err := d.ReadPayload()
	if err != nil {
		t.Fatalf("ReadPayload() error = %v", err)
	}
	if !bytes.Equal(img.Pix, body[:12]) {
		t.Fatalf("payload must start right after the header, got %q", img.Pix)
	}
	if d.Offset() != int64(len(header)+12) {
		t.Fatalf("decoder consumed past the payload: offset %d", d.Offset())
	}
}

func TestDecodeOneByteReader(t *testing.T) {
	want := payload(5 * 7 * 3)
	img, err := Decode(iotest.OneByteReader(stream(sampleHeader[:3]+"#\n5 7\n255\n", want)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(img.Pix, want) {
		t.Fatalf("payload mismatch")
	}
}

func TestDecodeDataErrReader(t *testing.T) {
	want := payload(2 * 2 * 3)
	img, err := Decode(iotest.DataErrReader(stream("P6\n#\n2 2\n255\n", want)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(img.Pix, want) {
		t.Fatalf("payload mismatch")
	}
}

// stallReader returns its data, then zero bytes with no error forever.
type stallReader struct {
	data []byte
}

func (r *stallReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, nil
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestZeroByteReadIsEndOfStream(t *testing.T) {
	_, err := Decode(&stallReader{data: []byte("P6\n#\n2 2\n255\nabc")})
	var sr *ShortReadError
	if !errors.As(err, &sr) || sr.Got != 3 || sr.Want != 12 {
		t.Fatalf("expected short read of 3/12, got %v", err)
	}

	_, err = Decode(&stallReader{data: []byte("P6\n#\n2")})
	if !errors.Is(err, ErrTruncatedHeader) {
		t.Fatalf("expected truncated header, got %v", err)
	}
}

func TestDecodeTransportError(t *testing.T) {
	boom := errors.New("pipe broken")
	_, err := Decode(io.MultiReader(strings.NewReader("P6\n#\n2 2\n255\nabc"), iotest.ErrReader(boom)))
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error to propagate, got %v", err)
	}
	if errors.Is(err, ErrShortRead) {
		t.Fatalf("transport error must not be reported as a short read")
	}

	_, err = Decode(io.MultiReader(strings.NewReader("P6\n"), iotest.ErrReader(boom)))
	var he *HeaderError
	if !errors.As(err, &he) || !errors.Is(err, boom) {
		t.Fatalf("expected HeaderError wrapping transport error, got %v", err)
	}
}

func TestDecodeSizeOverflow(t *testing.T) {
	d := NewDecoder(strings.NewReader("P6\n#\n999999999999999 999999999999999\n255\n"), Config{Limits: NoLimits})
	allocs := 0
	d.alloc = func(n int) []byte {
		allocs++
		return make([]byte, n)
	}
	_, err := d.Decode()
	if !errors.Is(err, ErrSizeOverflow) {
		t.Fatalf("expected ErrSizeOverflow, got %v", err)
	}
	var ae *AllocationError
	if !errors.As(err, &ae) || ae.Channels != 3 {
		t.Fatalf("expected AllocationError, got %v", err)
	}
	if allocs != 0 {
		t.Fatalf("no buffer may be allocated on overflow")
	}
}

func TestDecodeCustomTokenLength(t *testing.T) {
	_, err := NewDecoder(strings.NewReader("P6\n#\n1000 1\n255\n"), Config{MaxTokenLength: 3}).ReadHeader()
	if !errors.Is(err, ErrTokenTooLong) {
		t.Fatalf("expected ErrTokenTooLong with 3-byte tokens, got %v", err)
	}
}

func TestReadPayloadBeforeHeader(t *testing.T) {
	d := NewDecoder(strings.NewReader(sampleHeader), Config{})
	if _, err := d.ReadPayload(); err == nil {
		t.Fatalf("expected error when reading payload before the header")
	}
}

func TestRoundTrip(t *testing.T) {
	for _, dims := range [][2]int{{1, 1}, {3, 2}, {64, 32}, {17, 9}} {
		src, err := NewImage(dims[0], dims[1], 3)
		if err != nil {
			t.Fatalf("NewImage() error = %v", err)
		}
		copy(src.Pix, payload(len(src.Pix)))

		var buf bytes.Buffer
		if err := src.EncodePPM(&buf); err != nil {
			t.Fatalf("EncodePPM() error = %v", err)
		}
		got, err := Decode(&buf)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got.Width != src.Width || got.Height != src.Height || got.Channels != src.Channels {
			t.Fatalf("shape mismatch: got %dx%dx%d want %dx%dx%d", got.Width, got.Height, got.Channels, src.Width, src.Height, src.Channels)
		}
		if !bytes.Equal(got.Pix, src.Pix) {
			t.Fatalf("pixels differ after round trip for %v", dims)
		}
	}
}
