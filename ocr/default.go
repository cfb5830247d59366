package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/wudi/psraster/raster"
)

var (
	defaultMu     sync.RWMutex
	defaultEngine Engine = noopEngine{}
)

// DefaultEngine returns the engine installed by SetDefaultEngine, or a no-op
// engine.
func DefaultEngine() Engine {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultEngine
}

// SetDefaultEngine replaces the default engine.
func SetDefaultEngine(engine Engine) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultEngine = engine
}

// Recognize runs engine over inputs, batching when the engine supports it.
func Recognize(ctx context.Context, engine Engine, inputs ...Input) ([]Result, error) {
	if b, ok := engine.(BatchEngine); ok {
		return b.RecognizeBatch(ctx, inputs)
	}
	results := make([]Result, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := engine.Recognize(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", in.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// RecognizeRasters converts rasters to inputs (IDs "raster-<index>") and runs
// engine over them.
func RecognizeRasters(ctx context.Context, engine Engine, images []*raster.Image, opts ...InputOption) ([]Result, error) {
	inputs := make([]Input, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in, err := InputFromRaster(fmt.Sprintf("raster-%d", i), img, opts...)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return Recognize(ctx, engine, inputs...)
}

type noopEngine struct{}

func (noopEngine) Name() string { return "noop" }

func (noopEngine) Recognize(ctx context.Context, input Input) (Result, error) {
	return Result{InputID: input.ID}, nil
}
