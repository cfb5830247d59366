// Package renderer defines the boundary to an external rendering engine and
// provides an implementation that runs the engine as a child process.
//
// A Renderer starts one Session per document. The Session exposes the
// engine's output channel as a blocking io.Reader and reports the engine's
// exit status once the output has been consumed. Sessions are not shared:
// concurrent extractions each start their own.
package renderer
