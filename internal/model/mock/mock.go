// Package mock provides a test double for the model.Generator interface.
//
// Use Generator in unit tests to feed controlled responses, latencies and
// failures to the decision core without a live model. Configure fields before
// the first call; mutating them during a concurrent call is the caller's
// responsibility.
//
// Example:
//
//	g := &mock.Generator{Response: "Decide: DEFEND"}
//	text, err := g.Generate(ctx, req)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/cory-johannsen/npcbrain/internal/model"
)

// Call records a single invocation of Generate.
type Call struct {
	// Req is the Request passed to Generate.
	Req model.Request
	// Deadline is the context deadline at call time, zero when none was set.
	Deadline time.Time
}

// Generator is a mock implementation of model.Generator.
// A zero Generator returns model.ErrNoResponse.
type Generator struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Responses are returned in order, one per call; the last one repeats.
	// When empty, Response is used.
	Responses []string

	// Response is returned when Responses is empty.
	Response string

	// Err, if non-nil, is returned instead of a response.
	Err error

	// Delay is waited before answering. A context that ends first makes
	// Generate return ctx.Err().
	Delay time.Duration

	// Panic, if non-empty, makes Generate panic with this message.
	Panic string

	// --- Call records (read after test) ---

	// Calls records every invocation of Generate in order.
	Calls []Call
}

// Generate records the call and returns the configured outcome.
func (g *Generator) Generate(ctx context.Context, req model.Request) (string, error) {
	g.mu.Lock()
	deadline, _ := ctx.Deadline()
	idx := len(g.Calls)
	g.Calls = append(g.Calls, Call{Req: req, Deadline: deadline})
	delay, err, panicMsg := g.Delay, g.Err, g.Panic
	text := g.Response
	if n := len(g.Responses); n > 0 {
		text = g.Responses[min(idx, n-1)]
	}
	g.mu.Unlock()

	if panicMsg != "" {
		panic(panicMsg)
	}
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", model.ErrNoResponse
	}
	return text, nil
}

// CallCount returns the number of Generate calls so far.
func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}

// Reset clears the call records.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = nil
}
