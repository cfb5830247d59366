package ocr

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"reflect"
	"testing"

	"github.com/wudi/psraster/raster"
)

func checker(t *testing.T, w, h int) *raster.Image {
	t.Helper()
	img, err := raster.NewImage(w, h, 3)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = byte(x)
			img.Pix[i+1] = byte(y)
			img.Pix[i+2] = 0xff
		}
	}
	return img
}

func TestInputFromRaster(t *testing.T) {
	img := checker(t, 4, 3)
	meta := map[string]string{"psm": "6"}

	in, err := InputFromRaster("page-1", img,
		WithLanguages("eng", "spa"),
		WithDPI(300),
		WithMetadata(meta),
	)
	if err != nil {
		t.Fatalf("InputFromRaster() error = %v", err)
	}
	if in.ID != "page-1" || in.Format != ImageFormatPNG || in.DPI != 300 {
		t.Fatalf("unexpected input: %+v", in)
	}
	if !reflect.DeepEqual(in.Languages, []string{"eng", "spa"}) {
		t.Fatalf("unexpected languages: %+v", in.Languages)
	}
	meta["psm"] = "7"
	if in.Metadata["psm"] != "6" {
		t.Fatalf("metadata was not copied: %+v", in.Metadata)
	}
	decoded, err := png.Decode(bytes.NewReader(in.Image))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("bounds = %v", b)
	}
}

func TestInputFromRasterCropsRegion(t *testing.T) {
	img := checker(t, 10, 10)
	in, err := InputFromRaster("r", img, WithRegion(Region{X: 6, Y: 2, Width: 8, Height: 3}))
	if err != nil {
		t.Fatalf("InputFromRaster() error = %v", err)
	}
	want := Region{X: 6, Y: 2, Width: 4, Height: 3}
	if in.Region == nil || *in.Region != want {
		t.Fatalf("region = %#v, want clipped %+v", in.Region, want)
	}
	decoded, err := png.Decode(bytes.NewReader(in.Image))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("bounds = %v", b)
	}
	r, g, _, _ := decoded.At(0, 0).RGBA()
	if r>>8 != 6 || g>>8 != 2 {
		t.Fatalf("top-left pixel = (%d,%d), want (6,2)", r>>8, g>>8)
	}
}

func TestInputFromRasterRegionOutside(t *testing.T) {
	img := checker(t, 4, 4)
	if _, err := InputFromRaster("r", img, WithRegion(Region{X: 10, Y: 10, Width: 2, Height: 2})); err == nil {
		t.Fatalf("expected error for region outside raster")
	}
}

func TestWithRegionClearsEmpty(t *testing.T) {
	in := Input{Region: &Region{X: 1, Y: 1, Width: 2, Height: 2}}
	WithRegion(Region{})(&in)
	if in.Region != nil {
		t.Fatalf("expected nil region for empty input, got %#v", in.Region)
	}
}

type stubEngine struct {
	seen []string
	fail string
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	s.seen = append(s.seen, in.ID)
	if in.ID == s.fail {
		return Result{}, errors.New("boom")
	}
	return Result{InputID: in.ID, PlainText: "text " + in.ID}, nil
}

func TestRecognizeRasters(t *testing.T) {
	eng := &stubEngine{}
	results, err := RecognizeRasters(context.Background(), eng, []*raster.Image{checker(t, 2, 2), checker(t, 3, 3)})
	if err != nil {
		t.Fatalf("RecognizeRasters() error = %v", err)
	}
	if len(results) != 2 || results[1].PlainText != "text raster-1" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if !reflect.DeepEqual(eng.seen, []string{"raster-0", "raster-1"}) {
		t.Fatalf("engine saw %v", eng.seen)
	}
}

func TestRecognizeStopsOnError(t *testing.T) {
	eng := &stubEngine{fail: "b"}
	_, err := Recognize(context.Background(), eng, Input{ID: "a"}, Input{ID: "b"}, Input{ID: "c"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(eng.seen) != 2 {
		t.Fatalf("engine saw %v after failure", eng.seen)
	}
}

func TestRecognizeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Recognize(ctx, &stubEngine{}, Input{ID: "a"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDefaultEngine(t *testing.T) {
	prev := DefaultEngine()
	t.Cleanup(func() { SetDefaultEngine(prev) })

	SetDefaultEngine(noopEngine{})
	res, err := DefaultEngine().Recognize(context.Background(), Input{ID: "x"})
	if err != nil || res.InputID != "x" || res.PlainText != "" {
		t.Fatalf("noop result = %+v, %v", res, err)
	}
	eng := &stubEngine{}
	SetDefaultEngine(eng)
	if DefaultEngine() != Engine(eng) {
		t.Fatalf("default engine not replaced")
	}
}
