// Package model defines the contract between the decision core and an
// external generative text model.
//
// The model is treated as an opaque function with latency and failure
// modes. Implementations must be safe for concurrent use and must return
// promptly once ctx is done.
package model

import (
	"context"
	"errors"
)

// ErrNoResponse is returned when the model answered without usable text.
var ErrNoResponse = errors.New("model: no response")

// ErrDisabled is returned by Disabled for every request.
var ErrDisabled = errors.New("model: disabled")

// Request carries the prompt and generation parameters. The call timeout is
// carried by the context, not the request.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator produces text for a prompt.
type Generator interface {
	// Generate returns the model's text. It returns ErrNoResponse when the
	// model produced nothing usable, and ctx.Err() (possibly wrapped) when
	// the context ends first.
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Disabled is a Generator that always fails, so every decision takes the
// rule-based path.
type Disabled struct{}

// Generate implements Generator.
func (Disabled) Generate(context.Context, Request) (string, error) {
	return "", ErrDisabled
}
