package extract

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/wudi/psraster/observability"
	"github.com/wudi/psraster/raster"
	"github.com/wudi/psraster/recovery"
	"github.com/wudi/psraster/renderer"
	"golang.org/x/sync/errgroup"
)

// Extractor turns documents into raster images through a Renderer. It holds
// no per-call state and may be used concurrently; every call starts its own
// session.
type Extractor struct {
	renderer    renderer.Renderer
	logger      observability.Logger
	tracer      observability.Tracer
	decoder     raster.Config
	extraArgs   []string
	concurrency int
	recovery    recovery.Strategy
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l observability.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t observability.Tracer) Option {
	return func(e *Extractor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithDecoderConfig sets the header tokenizer bounds and allocation limits.
func WithDecoderConfig(cfg raster.Config) Option {
	return func(e *Extractor) { e.decoder = cfg }
}

// WithExtraArgs passes additional arguments to every renderer session.
func WithExtraArgs(args ...string) Option {
	return func(e *Extractor) { e.extraArgs = append([]string(nil), args...) }
}

// WithConcurrency bounds the number of sessions ExtractBatch runs at once.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithRecovery sets how ExtractBatch treats a failed document. The default
// is recovery.StrictStrategy.
func WithRecovery(s recovery.Strategy) Option {
	return func(e *Extractor) {
		if s != nil {
			e.recovery = s
		}
	}
}

// New returns an Extractor using r.
func New(r renderer.Renderer, opts ...Option) *Extractor {
	e := &Extractor{
		renderer:    r,
		logger:      observability.NopLogger{},
		tracer:      observability.NopTracer(),
		concurrency: runtime.GOMAXPROCS(0),
		recovery:    recovery.NewStrictStrategy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract renders document at the given resolution (non-positive selects
// the renderer default) and returns the decoded raster. Exactly one renderer
// session is started and it is closed before Extract returns, whatever the
// outcome. Nothing is retried.
//
// Errors are a *renderer.StartError, a *raster.HeaderError,
// *raster.AllocationError or *raster.ShortReadError from decoding, or a
// *RendererFailureError when the renderer exits unsuccessfully after
// producing a complete raster.
func (e *Extractor) Extract(ctx context.Context, document []byte, resolution int) (img *raster.Image, err error) {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanExtract)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()

	start := time.Now()
	opts := renderer.Options{Resolution: resolution, ExtraArgs: e.extraArgs}
	log := e.logger.With(
		observability.String("renderer", e.renderer.Name()),
		observability.Int("resolution", opts.EffectiveResolution()),
	)
	span.SetTag(observability.TagResolution, opts.EffectiveResolution())

	sess, err := e.start(ctx, document, opts)
	if err != nil {
		log.Error("renderer start failed", observability.Error("err", err))
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("renderer close failed", observability.Error("err", cerr))
		}
	}()
	log.Debug("renderer started", observability.Int("document_bytes", len(document)))

	dec := raster.NewDecoder(sess.Output(), e.decoder)
	img, err = e.decode(ctx, dec, log)
	if err != nil {
		log.Error("raster extraction failed",
			observability.Error("err", err),
			observability.Int64("offset", dec.Offset()),
			observability.String("stderr", lastLine(sess.Stderr())),
		)
		return nil, err
	}

	code, err := sess.Wait()
	span.SetTag(observability.TagExitCode, code)
	if err != nil {
		return nil, fmt.Errorf("extract: wait for %s: %w", e.renderer.Name(), err)
	}
	if code != 0 {
		err = &RendererFailureError{Renderer: e.renderer.Name(), Code: code, Stderr: sess.Stderr()}
		log.Error("renderer reported failure", observability.Int("code", code), observability.Error("err", err))
		return nil, err
	}

	span.SetTag(observability.TagPayloadBytes, len(img.Pix))
	span.SetTag(observability.TagExtractTime, time.Since(start))
	log.Info("raster extracted",
		observability.Int("width", img.Width),
		observability.Int("height", img.Height),
		observability.Int("bytes", len(img.Pix)),
		observability.Duration("took", time.Since(start)),
	)
	return img, nil
}

func (e *Extractor) start(ctx context.Context, document []byte, opts renderer.Options) (renderer.Session, error) {
	_, span := e.tracer.StartSpan(ctx, observability.SpanRendererStart)
	defer span.Finish()
	sess, err := e.renderer.Start(ctx, document, opts)
	if err != nil {
		var se *renderer.StartError
		if !errors.As(err, &se) {
			err = &renderer.StartError{Renderer: e.renderer.Name(), Err: err}
		}
		span.SetError(err)
		return nil, err
	}
	return sess, nil
}

func (e *Extractor) decode(ctx context.Context, dec *raster.Decoder, log observability.Logger) (*raster.Image, error) {
	_, hspan := e.tracer.StartSpan(ctx, observability.SpanHeader)
	h, err := dec.ReadHeader()
	if err != nil {
		hspan.SetError(err)
		hspan.Finish()
		return nil, err
	}
	hspan.Finish()
	log.Debug("raster header",
		observability.Int("width", h.Width),
		observability.Int("height", h.Height),
		observability.String("comment", h.Comment),
		observability.String("max_value", h.MaxValue),
	)

	_, pspan := e.tracer.StartSpan(ctx, observability.SpanPayload)
	defer pspan.Finish()
	img, err := dec.ReadPayload()
	if err != nil {
		pspan.SetError(err)
		return nil, err
	}
	return img, nil
}

// ExtractBatch extracts each document in its own session, running up to the
// configured concurrency at once. Results keep the input order. Each failure
// goes to the recovery strategy: a skipped document leaves a nil slot, and
// otherwise the failure cancels the remaining sessions and is returned.
func (e *Extractor) ExtractBatch(ctx context.Context, documents [][]byte, resolution int) ([]*raster.Image, error) {
	images := make([]*raster.Image, len(documents))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, doc := range documents {
		g.Go(func() error {
			img, err := e.Extract(ctx, doc, resolution)
			if err != nil {
				if e.recovery.OnError(ctx, err, recovery.Location{Index: i, Component: "extract"}) == recovery.ActionSkip {
					e.logger.Warn("document skipped", observability.Int("document", i), observability.Error("error", err))
					return nil
				}
				return fmt.Errorf("document %d: %w", i, err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}
