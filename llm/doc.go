// Package llm provides a provider-neutral abstraction and resilience layer
// for Large Language Model APIs.
//
// The package defines the neutral request/response/stream contract plus the
// shared machinery every backend implementation composes:
//
//  1. Types: Request, Response, StreamChunk, ToolCall and friends form the
//     protocol-neutral data model. Requests are immutable; the layer never
//     mutates caller data.
//
//  2. Provider interface: each backend family implements Provider with a
//     single-shot Complete, an incremental Stream, and cheap introspection
//     (IsReady, Models, DefaultModel, CountTokens).
//
//  3. Retry: the Retry function executes an attempt up to a policy's limit,
//     classifying failures as retryable (transport errors, rate-limit and
//     server-class statuses) or terminal, with a doubling capped backoff.
//
//  4. Cancellation: AttemptController issues one timeout-bounded context per
//     attempt and guarantees a superseded attempt's timer can never abort a
//     newer attempt.
//
//  5. Streaming: SSEDecoder reassembles fragmented reads into discrete
//     events independent of backend family, and Stream is the pull-based
//     iterator providers hand to callers.
//
//  6. Errors: every failure is a typed *Error with kind validation, timeout
//     or internal; nothing is thrown past the layer boundary.
//
// Backend implementations live in subpackages (llm/openai, llm/gemini). To
// add a backend: implement Provider, translate between the neutral model and
// the backend's wire format, and route every failure through the *Error
// constructors so retry classification keeps working.
package llm
