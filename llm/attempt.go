package llm

import (
	"context"
	"sync"
	"time"
)

// DefaultAttemptTimeout bounds a single network attempt.
const DefaultAttemptTimeout = 30 * time.Second

// AttemptController manages the cancellation state of a provider's in-flight
// attempt. Each Begin supersedes the previous attempt: the old context is
// cancelled before the new one is created, and a generation counter
// guarantees that a stale timeout or cancel for attempt N can never abort
// attempt N+1.
type AttemptController struct {
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// Begin starts a new attempt. Any previously outstanding attempt is cancelled
// first. The returned context fires after timeout or when the controller is
// cancelled; done must be called when the attempt resolves.
func (c *AttemptController) Begin(ctx context.Context, timeout time.Duration) (attemptCtx context.Context, done func()) {
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	c.cancel = cancel

	done = func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// Only clear state that still belongs to this attempt.
		if c.generation == gen {
			c.cancel = nil
		}
		cancel()
	}
	return attemptCtx, done
}

// Cancel aborts the outstanding attempt, if any. Idempotent and safe to call
// with nothing in flight.
func (c *AttemptController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Generation reports the current attempt generation. Used by tests to verify
// that superseded attempts cannot interfere with newer ones.
func (c *AttemptController) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// AttemptError converts a context-related failure into the layer's timeout
// error so callers can distinguish "backend said no" from "we gave up
// waiting". Non-context errors are returned unchanged.
func AttemptError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return NewTimeoutError("attempt cancelled or timed out", err)
	}
	return err
}
