package raster

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
)

// Image is a decoded raster. Pix holds Width*Height*Channels bytes in
// row-major order with interleaved channels, exactly as the stream carried
// them.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// NewImage allocates a zeroed image. Channels must be 1 or 3.
func NewImage(width, height, channels int) (*Image, error) {
	if channels != 1 && channels != rgbChannels {
		return nil, fmt.Errorf("raster: unsupported channel count %d", channels)
	}
	size, err := payloadSize(width, height, channels)
	if err != nil {
		return nil, &AllocationError{Width: width, Height: height, Channels: channels, Err: err}
	}
	return &Image{Width: width, Height: height, Channels: channels, Pix: make([]byte, size)}, nil
}

// Stride returns the number of bytes per row.
func (m *Image) Stride() int { return m.Width * m.Channels }

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (m *Image) PixOffset(x, y int) int {
	return y*m.Stride() + x*m.Channels
}

// RGBAt returns the color at (x, y). Gray images report equal channels.
func (m *Image) RGBAt(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return color.RGBA{}
	}
	i := m.PixOffset(x, y)
	if m.Channels == 1 {
		v := m.Pix[i]
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}
	return color.RGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: 255}
}

// ToImage converts m into a standard library image. The pixels are copied.
func (m *Image) ToImage() image.Image {
	rect := image.Rect(0, 0, m.Width, m.Height)
	if m.Channels == 1 {
		img := image.NewGray(rect)
		copy(img.Pix, m.Pix)
		return img
	}
	img := image.NewNRGBA(rect)
	i := 0
	for o := 0; o < len(img.Pix); o += 4 {
		img.Pix[o] = m.Pix[i]
		img.Pix[o+1] = m.Pix[i+1]
		img.Pix[o+2] = m.Pix[i+2]
		img.Pix[o+3] = 255
		i += rgbChannels
	}
	return img
}

// FromImage converts any image into an RGB raster.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	m := &Image{Width: b.Dx(), Height: b.Dy(), Channels: rgbChannels}
	m.Pix = make([]byte, m.Width*m.Height*rgbChannels)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			m.Pix[i], m.Pix[i+1], m.Pix[i+2] = c.R, c.G, c.B
			i += rgbChannels
		}
	}
	return m
}

// EncodePPM writes m in the same raw pixel-map layout a renderer produces:
// magic line, comment line, dimensions, max value, payload. Gray samples
// are repeated into all three channels so the output always decodes.
func (m *Image) EncodePPM(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n# psraster\n%d %d\n255\n", Magic, m.Width, m.Height)
	if m.Channels == 1 {
		var px [rgbChannels]byte
		for _, v := range m.Pix {
			px[0], px[1], px[2] = v, v, v
			if _, err := bw.Write(px[:]); err != nil {
				return err
			}
		}
		return bw.Flush()
	}
	if _, err := bw.Write(m.Pix); err != nil {
		return err
	}
	return bw.Flush()
}
