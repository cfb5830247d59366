package renderer

import (
	"context"
	"fmt"
	"io"
)

// DefaultResolution is used when Options.Resolution is not positive.
const DefaultResolution = 300

// Options are the per-document rendering parameters.
type Options struct {
	// Resolution in dots per inch, applied to both axes.
	Resolution int
	// ExtraArgs are appended to the engine's argument list before the
	// document operand.
	ExtraArgs []string
}

// EffectiveResolution returns Resolution, or DefaultResolution when it is
// not positive.
func (o Options) EffectiveResolution() int {
	if o.Resolution <= 0 {
		return DefaultResolution
	}
	return o.Resolution
}

// Renderer starts rendering sessions.
type Renderer interface {
	Name() string
	Start(ctx context.Context, document []byte, opts Options) (Session, error)
}

// Session is one running instance of a renderer.
type Session interface {
	// Output is the engine's output channel. Reads block until data is
	// available or the engine closes the channel.
	Output() io.Reader
	// Wait discards any output left unread, then waits for the engine to
	// finish and returns its exit code. A non-nil error means the status
	// could not be determined.
	Wait() (int, error)
	// Stderr returns the tail of the engine's diagnostic output.
	Stderr() string
	// Close releases the session. An engine that is still running is
	// terminated. Close is safe to call more than once and after Wait.
	Close() error
}

// StartError reports that a renderer could not be started.
type StartError struct {
	Renderer string
	Err      error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Renderer, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }
