package extract

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRendererFailure matches any *RendererFailureError.
var ErrRendererFailure = errors.New("extract: renderer reported failure")

// RendererFailureError reports a renderer that exited unsuccessfully. It is
// returned even when the raster itself was read completely.
type RendererFailureError struct {
	Renderer string
	Code     int
	// Stderr is the tail of the renderer's diagnostic output.
	Stderr string
}

func (e *RendererFailureError) Error() string {
	msg := fmt.Sprintf("extract: %s exited with code %d", e.Renderer, e.Code)
	if line := lastLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

func (e *RendererFailureError) Is(target error) bool { return target == ErrRendererFailure }

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
