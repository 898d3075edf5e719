package llm

import (
	"context"
)

// Provider is the public surface of one backend. Implementations handle the
// backend's wire protocol internally and expose uniform failure, streaming
// and cancellation semantics.
//
// A Provider instance holds at most one outstanding attempt's cancellation
// state: a new Complete or Stream call supersedes the previous attempt.
// Callers that need true parallelism use separate instances.
type Provider interface {
	// IsReady reports whether a credential is configured. Cheap and
	// synchronous; never performs I/O.
	IsReady() bool

	// Complete sends a request and returns the full response. Exactly one
	// terminal outcome per call: a response or a typed *Error.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Stream sends a request and returns a finite, non-restartable chunk
	// stream. The caller must read until Next returns false and then
	// Close the stream.
	Stream(ctx context.Context, req *Request) (Stream, error)

	// Cancel aborts the in-flight attempt, if any. Idempotent.
	Cancel()

	// CountTokens approximates the token count of messages. A budgeting
	// heuristic, not a tokenizer.
	CountTokens(messages []Message) int

	// Models lists the models this backend offers. May hit the network
	// for backends that only expose models remotely.
	Models(ctx context.Context) ([]string, error)

	// DefaultModel returns the configured default model without I/O.
	DefaultModel() string
}

// Stream is a pull-based iterator over streaming chunks. Chunks arrive
// strictly in the order the backend sent them. After Next returns false,
// Err distinguishes clean termination (nil) from a mid-stream failure.
type Stream interface {
	// Next advances to the next chunk. Returns false when the stream is
	// complete or an error occurred.
	Next() bool

	// Chunk returns the current chunk. Only valid after Next returned true.
	Chunk() *StreamChunk

	// Err returns the error that terminated the stream, if any.
	Err() error

	// Close releases the underlying connection. Safe to call at any time,
	// including mid-stream; always releases the transport exactly once.
	Close() error
}
