package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wudi/psraster/export"
	"github.com/wudi/psraster/extract"
	"github.com/wudi/psraster/observability"
	"github.com/wudi/psraster/ocr"
	_ "github.com/wudi/psraster/ocr/tesseract"
	"github.com/wudi/psraster/raster"
	"github.com/wudi/psraster/renderer"
)

const defaultStdinBase = "psraster"

type options struct {
	input      string
	output     string
	format     export.Format
	resolution int
	gsPath     string
	width      int
	height     int
	timeout    time.Duration
	ocr        bool
	psm        int
	whitelist  string
	verbose    bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "psraster: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "psraster: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	fs := flag.NewFlagSet("psraster", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: psraster [flags] <file.ps|->\n")
		fs.PrintDefaults()
	}
	resolution := fs.Int("r", renderer.DefaultResolution, "Rendering resolution in dots per inch (non-positive selects the default)")
	output := fs.String("o", "", "Output path; the format follows the extension (default <input>.png)")
	format := fs.String("format", "", "Output format: png, jpeg, tiff, bmp, ppm, ppm.zst")
	gsPath := fs.String("gs", "", "Ghostscript binary (default "+renderer.DefaultGhostscriptBinary()+")")
	scale := fs.String("scale", "", "Resize to WxH; a zero side keeps the aspect ratio")
	timeout := fs.Duration("timeout", 0, "Abort rendering after this long (0 disables)")
	doOCR := fs.Bool("ocr", false, "Print text recognized in the raster")
	psm := fs.Int("psm", -1, "Tesseract page segmentation mode 0-13 for -ocr (-1 keeps the engine default)")
	whitelist := fs.String("whitelist", "", "Restrict -ocr to these characters")
	verbose := fs.Bool("v", false, "Log extraction progress to stderr")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return options{}, fmt.Errorf("missing document path")
	}
	if *psm < -1 || *psm > 13 {
		return options{}, fmt.Errorf("psm must be between 0 and 13, got %d", *psm)
	}
	opts := options{
		input:      fs.Arg(0),
		output:     *output,
		resolution: *resolution,
		gsPath:     *gsPath,
		timeout:    *timeout,
		ocr:        *doOCR,
		psm:        *psm,
		whitelist:  *whitelist,
		verbose:    *verbose,
	}
	if *scale != "" {
		w, h, err := parseScale(*scale)
		if err != nil {
			return options{}, err
		}
		opts.width, opts.height = w, h
	}

	switch {
	case *format != "":
		f, err := export.ParseFormat(*format)
		if err != nil {
			return options{}, err
		}
		opts.format = f
		if opts.output == "" {
			opts.output = defaultOutput(opts.input, f)
		}
	case opts.output != "":
		f, err := export.FormatFromPath(opts.output)
		if err != nil {
			return options{}, err
		}
		opts.format = f
	default:
		opts.format = export.PNG
		opts.output = defaultOutput(opts.input, export.PNG)
	}
	return opts, nil
}

// parseScale reads "WxH". One side may be zero, not both.
func parseScale(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("scale %q: want WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w < 0 {
		return 0, 0, fmt.Errorf("scale %q: bad width", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 {
		return 0, 0, fmt.Errorf("scale %q: bad height", s)
	}
	if w == 0 && h == 0 {
		return 0, 0, fmt.Errorf("scale %q: width and height are both zero", s)
	}
	return w, h, nil
}

func defaultOutput(input string, f export.Format) string {
	base := defaultStdinBase
	if input != "-" {
		base = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
	return base + "." + string(f)
}

func run(opts options, stdin io.Reader, stdout, stderr io.Writer) error {
	doc, err := readDocument(opts.input, stdin)
	if err != nil {
		return err
	}

	var logger observability.Logger = observability.NopLogger{}
	if opts.verbose {
		logger = observability.NewTextLogger(stderr, observability.LevelDebug)
	}
	gs := renderer.NewGhostscript(renderer.WithBinary(opts.gsPath))
	ext := extract.New(gs, extract.WithLogger(logger))

	ctx := context.Background()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	img, err := ext.Extract(ctx, doc, opts.resolution)
	if err != nil {
		return err
	}
	if img, err = resize(img, opts.width, opts.height); err != nil {
		return err
	}
	if err := writeImage(opts.output, img, opts.format); err != nil {
		return err
	}
	logger.Info("raster written",
		observability.String("path", opts.output),
		observability.String("format", string(opts.format)),
		observability.Int("width", img.Width),
		observability.Int("height", img.Height),
	)

	if opts.ocr {
		results, err := ocr.RecognizeRasters(ctx, ocr.DefaultEngine(), []*raster.Image{img}, ocrOptions(opts)...)
		if err != nil {
			return fmt.Errorf("ocr: %w", err)
		}
		for _, res := range results {
			fmt.Fprintln(stdout, res.PlainText)
		}
	}
	return nil
}

func ocrOptions(opts options) []ocr.InputOption {
	in := []ocr.InputOption{ocr.WithDPI(renderer.Options{Resolution: opts.resolution}.EffectiveResolution())}
	if opts.psm >= 0 {
		in = append(in, ocr.WithTesseractPSM(opts.psm))
	}
	if opts.whitelist != "" {
		in = append(in, ocr.WithTesseractWhitelist(opts.whitelist))
	}
	return in
}

func readDocument(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		doc, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return doc, nil
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return doc, nil
}

func resize(img *raster.Image, width, height int) (*raster.Image, error) {
	if width == 0 && height == 0 {
		return img, nil
	}
	if width == 0 || height == 0 {
		width, height = export.Fit(img, width, height)
	}
	if width == img.Width && height == img.Height {
		return img, nil
	}
	return export.Scale(img, width, height)
}

func writeImage(path string, img *raster.Image, f export.Format) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := export.Encode(file, img, f, export.Options{}); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("encode %s: %w", f, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
