// Package recovery decides what a batch does when one document fails.
package recovery

import (
	"context"
	"fmt"
	"sync"
)

// Strategy is consulted once per failed document.
type Strategy interface {
	OnError(ctx context.Context, err error, location Location) Action
}

// Location identifies the failed document within a batch.
type Location struct {
	Index     int
	Component string
}

type Action int

const (
	// ActionFail aborts the batch with the error.
	ActionFail Action = iota
	// ActionSkip leaves a nil slot for the document and continues.
	ActionSkip
)

// StrictStrategy fails the batch on the first error.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(context.Context, error, Location) Action {
	return ActionFail
}

// LenientStrategy skips failed documents and records why. It is safe for
// concurrent use.
type LenientStrategy struct {
	mu     sync.Mutex
	errors []error
}

func NewLenientStrategy() *LenientStrategy {
	return &LenientStrategy{}
}

func (s *LenientStrategy) OnError(ctx context.Context, err error, location Location) Action {
	if ctx.Err() != nil {
		return ActionFail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, fmt.Errorf("[%s] document %d: %w", location.Component, location.Index, err))
	return ActionSkip
}

// Errors returns the recorded failures in the order they were reported.
func (s *LenientStrategy) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errors...)
}
