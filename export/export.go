// Package export writes extracted rasters in common image formats and
// resamples them.
package export

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/wudi/psraster/raster"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// Format names an output encoding.
type Format string

const (
	PNG     Format = "png"
	JPEG    Format = "jpeg"
	TIFF    Format = "tiff"
	BMP     Format = "bmp"
	PPM     Format = "ppm"
	PPMZstd Format = "ppm.zst"
)

const defaultJPEGQuality = 90

// Options tunes the lossy and compressed encoders.
type Options struct {
	// JPEGQuality is 1-100; zero means 90.
	JPEGQuality int
	// ZstdLevel selects the zstd encoder speed; zero means the library
	// default.
	ZstdLevel zstd.EncoderLevel
}

// ParseFormat maps a format name, with or without a leading dot, to a
// Format.
func ParseFormat(name string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(name), ".") {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "tif", "tiff":
		return TIFF, nil
	case "bmp":
		return BMP, nil
	case "ppm", "pnm":
		return PPM, nil
	case "ppm.zst", "zst":
		return PPMZstd, nil
	default:
		return "", fmt.Errorf("export: unknown format %q", name)
	}
}

// FormatFromPath picks the format from a file name extension.
func FormatFromPath(path string) (Format, error) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".ppm.zst") {
		return PPMZstd, nil
	}
	ext := filepath.Ext(lower)
	if ext == "" {
		return "", fmt.Errorf("export: no extension in %q", path)
	}
	return ParseFormat(ext)
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img *raster.Image, f Format, opts Options) error {
	switch f {
	case PNG:
		return png.Encode(w, img.ToImage())
	case JPEG:
		q := opts.JPEGQuality
		if q <= 0 {
			q = defaultJPEGQuality
		}
		return jpeg.Encode(w, img.ToImage(), &jpeg.Options{Quality: q})
	case TIFF:
		return tiff.Encode(w, img.ToImage(), &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case BMP:
		return bmp.Encode(w, img.ToImage())
	case PPM:
		return img.EncodePPM(w)
	case PPMZstd:
		var zopts []zstd.EOption
		if opts.ZstdLevel != 0 {
			zopts = append(zopts, zstd.WithEncoderLevel(opts.ZstdLevel))
		}
		enc, err := zstd.NewWriter(w, zopts...)
		if err != nil {
			return fmt.Errorf("export: zstd writer: %w", err)
		}
		if err := img.EncodePPM(enc); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("export: unknown format %q", f)
	}
}

// Scale resamples img to width x height with a Catmull-Rom kernel. The
// channel count is preserved.
func Scale(img *raster.Image, width, height int) (*raster.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("export: invalid target size %dx%d", width, height)
	}
	src := img.ToImage()
	rect := image.Rect(0, 0, width, height)
	if img.Channels == 1 {
		dst := image.NewGray(rect)
		draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
		out, err := raster.NewImage(width, height, 1)
		if err != nil {
			return nil, err
		}
		copy(out.Pix, dst.Pix)
		return out, nil
	}
	dst := image.NewNRGBA(rect)
	draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
	return raster.FromImage(dst), nil
}

// Fit returns the largest size with img's aspect ratio that fits in
// maxWidth x maxHeight. A non-positive bound leaves that axis free.
func Fit(img *raster.Image, maxWidth, maxHeight int) (int, int) {
	w, h := float64(img.Width), float64(img.Height)
	scale := 1.0
	if maxWidth > 0 {
		scale = float64(maxWidth) / w
	}
	if maxHeight > 0 {
		if s := float64(maxHeight) / h; maxWidth <= 0 || s < scale {
			scale = s
		}
	}
	tw, th := int(w*scale+0.5), int(h*scale+0.5)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}
