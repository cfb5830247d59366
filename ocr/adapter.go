package ocr

import (
	"bytes"
	"fmt"

	"github.com/wudi/psraster/export"
	"github.com/wudi/psraster/raster"
)

// InputOption mutates an OCR input built from a raster.
type InputOption func(*Input)

// WithLanguages sets language hints on the OCR input.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithRegion restricts recognition to part of the raster. An empty region
// means the whole raster.
func WithRegion(region Region) InputOption {
	return func(in *Input) {
		if region.IsEmpty() {
			in.Region = nil
			return
		}
		in.Region = &region
	}
}

// WithDPI records the rendering resolution on the OCR input.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// WithMetadata sets engine-specific variables for the input.
func WithMetadata(metadata map[string]string) InputOption {
	return func(in *Input) {
		if len(metadata) == 0 {
			in.Metadata = nil
			return
		}
		in.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			in.Metadata[k] = v
		}
	}
}

// InputFromRaster builds a PNG-encoded OCR input from img. A region option
// crops the raster before encoding; the region is clipped to the raster.
func InputFromRaster(id string, img *raster.Image, opts ...InputOption) (Input, error) {
	in := Input{ID: id, Format: ImageFormatPNG}
	for _, opt := range opts {
		opt(&in)
	}
	src := img
	if in.Region != nil {
		r, cropped, err := crop(img, *in.Region)
		if err != nil {
			return Input{}, err
		}
		in.Region = &r
		src = cropped
	}
	var buf bytes.Buffer
	if err := export.Encode(&buf, src, export.PNG, export.Options{}); err != nil {
		return Input{}, fmt.Errorf("encode raster %s: %w", id, err)
	}
	in.Image = buf.Bytes()
	return in, nil
}

func crop(img *raster.Image, r Region) (Region, *raster.Image, error) {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.Width, img.Width), min(r.Y+r.Height, img.Height)
	if x1 <= x0 || y1 <= y0 {
		return Region{}, nil, fmt.Errorf("region %+v outside %dx%d raster", r, img.Width, img.Height)
	}
	out, err := raster.NewImage(x1-x0, y1-y0, img.Channels)
	if err != nil {
		return Region{}, nil, err
	}
	for y := y0; y < y1; y++ {
		src := img.Pix[img.PixOffset(x0, y):img.PixOffset(x1, y)]
		copy(out.Pix[out.PixOffset(0, y-y0):], src)
	}
	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, out, nil
}
