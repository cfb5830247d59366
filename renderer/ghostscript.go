package renderer

import (
	"fmt"
	"runtime"
)

// GhostscriptDevice is the output device whose stream the raster package
// understands.
const GhostscriptDevice = "ppmraw"

type ghostscriptConfig struct {
	binary string
	args   []string
}

// GhostscriptOption configures NewGhostscript.
type GhostscriptOption func(*ghostscriptConfig)

// WithBinary overrides the Ghostscript executable.
func WithBinary(path string) GhostscriptOption {
	return func(c *ghostscriptConfig) {
		if path != "" {
			c.binary = path
		}
	}
}

// WithArgs adds arguments to every invocation, before Options.ExtraArgs.
func WithArgs(args ...string) GhostscriptOption {
	return func(c *ghostscriptConfig) { c.args = append(c.args, args...) }
}

// DefaultGhostscriptBinary returns the usual console executable name for
// the current platform.
func DefaultGhostscriptBinary() string {
	if runtime.GOOS == "windows" {
		return "gswin64c"
	}
	return "gs"
}

// NewGhostscript returns a renderer that runs Ghostscript on the document
// read from stdin and writes a single raw RGB pixel map stream to stdout.
// PostScript output from the job itself is redirected to stderr so it
// cannot corrupt the raster stream.
func NewGhostscript(opts ...GhostscriptOption) *Command {
	cfg := ghostscriptConfig{binary: DefaultGhostscriptBinary()}
	for _, opt := range opts {
		opt(&cfg)
	}
	fixed := append([]string(nil), cfg.args...)
	return &Command{
		name: "ghostscript",
		path: cfg.binary,
		args: func(o Options) []string {
			return ghostscriptArgs(o, fixed)
		},
	}
}

func ghostscriptArgs(o Options, fixed []string) []string {
	dpi := o.EffectiveResolution()
	args := []string{
		"-q",
		"-dSAFER",
		"-dBATCH",
		"-dNOPAUSE",
		"-sDEVICE=" + GhostscriptDevice,
		"-sstdout=%stderr",
		"-sOutputFile=-",
		fmt.Sprintf("-r%dx%d", dpi, dpi),
	}
	args = append(args, fixed...)
	args = append(args, o.ExtraArgs...)
	return append(args, "-")
}
