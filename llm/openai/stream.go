package openai

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/switchboard-ai/switchboard/llm"
)

// doneSentinel terminates a chat completions stream. It is never parsed as a
// structured payload.
const doneSentinel = "[DONE]"

// chatStream adapts the SSE frame sequence into the neutral chunk stream.
// Chunks are yielded strictly in backend order; tool-call deltas are
// accumulated and surfaced once complete; the single done chunk is emitted
// when the sentinel (or a clean close) arrives, carrying the finish reason
// and usage.
type chatStream struct {
	ctx     context.Context
	decoder *llm.SSEDecoder
	release func()
	names   *llm.ToolNameCodec
	logger  zerolog.Logger

	mu       sync.Mutex
	pending  []llm.StreamChunk
	current  *llm.StreamChunk
	err      error
	finished bool

	id           string
	model        string
	finishReason llm.FinishReason
	usage        *llm.Usage
	builders     []toolCallBuilder
	inThinking   bool
}

type toolCallBuilder struct {
	id        string
	name      string
	arguments strings.Builder
}

func newChatStream(ctx context.Context, decoder *llm.SSEDecoder, release func(), names *llm.ToolNameCodec, logger zerolog.Logger) *chatStream {
	return &chatStream{
		ctx:          ctx,
		decoder:      decoder,
		release:      release,
		names:        names,
		logger:       logger,
		finishReason: llm.FinishReasonStop,
	}
}

// Next implements llm.Stream.
func (s *chatStream) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if len(s.pending) > 0 {
			chunk := s.pending[0]
			s.pending = s.pending[1:]
			s.current = &chunk
			return true
		}
		if s.finished {
			return false
		}

		payload, err := s.decoder.Next()
		if err == io.EOF {
			s.queueFinal()
			continue
		}
		if err != nil {
			s.fail(llm.AttemptError(s.ctx, llm.NewInternalError("stream read failed", 0, err)))
			return false
		}

		var frame chatCompletionChunk
		if jsonErr := json.Unmarshal(payload, &frame); jsonErr != nil {
			// A single corrupt frame must not abort a healthy stream.
			s.logger.Debug().Err(jsonErr).Msg("Skipping malformed stream frame")
			continue
		}
		s.consume(&frame)
	}
}

// Chunk implements llm.Stream.
func (s *chatStream) Chunk() *llm.StreamChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Err implements llm.Stream.
func (s *chatStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements llm.Stream. Releases the connection and the attempt slot
// exactly once, on every exit path. Closing the decoder first unblocks a
// concurrent Next that is waiting on the network.
func (s *chatStream) Close() error {
	err := s.decoder.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.terminate()
	return err
}

func (s *chatStream) terminate() error {
	s.finished = true
	err := s.decoder.Close()
	if s.release != nil {
		s.release()
		s.release = nil
	}
	return err
}

func (s *chatStream) fail(err error) {
	s.err = err
	_ = s.terminate()
}

// consume turns one wire frame into zero or more pending chunks.
func (s *chatStream) consume(frame *chatCompletionChunk) {
	if frame.ID != "" {
		s.id = frame.ID
	}
	if frame.Model != "" {
		s.model = frame.Model
	}
	if frame.Usage != nil {
		s.usage = usageToNeutral(frame.Usage)
	}

	for _, choice := range frame.Choices {
		if choice.Delta.Reasoning != "" {
			s.queueText(choice.Delta.Reasoning, true)
		}
		if choice.Delta.Content != "" {
			s.queueText(choice.Delta.Content, false)
		}
		for _, tc := range choice.Delta.ToolCalls {
			s.accumulateToolCall(tc)
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			s.finishReason = mapFinishReason(*choice.FinishReason, len(s.builders) > 0)
		}
	}
}

// queueText emits a content chunk, opening or closing the thinking envelope
// on transitions so that concatenating all content chunks reproduces the
// non-streaming content field exactly.
func (s *chatStream) queueText(text string, thinking bool) {
	if thinking && !s.inThinking {
		s.inThinking = true
		text = "<thinking>\n" + text
	}
	if !thinking && s.inThinking {
		s.inThinking = false
		text = "\n</thinking>\n\n" + text
	}
	s.pending = append(s.pending, llm.StreamChunk{ID: s.id, Model: s.model, Content: text})
}

func (s *chatStream) accumulateToolCall(tc chunkToolCall) {
	for len(s.builders) <= tc.Index {
		s.builders = append(s.builders, toolCallBuilder{})
	}
	b := &s.builders[tc.Index]
	if tc.ID != "" {
		b.id = tc.ID
	}
	if tc.Function.Name != "" {
		b.name = tc.Function.Name
	}
	if tc.Function.Arguments != "" {
		b.arguments.WriteString(tc.Function.Arguments)
	}
}

// queueFinal emits the accumulated tool calls, then the single done chunk,
// and releases the transport.
func (s *chatStream) queueFinal() {
	if s.inThinking {
		s.inThinking = false
		s.pending = append(s.pending, llm.StreamChunk{ID: s.id, Model: s.model, Content: "\n</thinking>\n\n"})
	}

	if len(s.builders) > 0 {
		calls := make([]llm.ToolCall, 0, len(s.builders))
		for i := range s.builders {
			calls = append(calls, llm.ToolCall{
				ID:        s.builders[i].id,
				Name:      s.names.Decode(s.builders[i].name),
				Arguments: s.builders[i].arguments.String(),
			})
		}
		s.builders = nil
		s.pending = append(s.pending, llm.StreamChunk{ID: s.id, Model: s.model, ToolCalls: calls})
	}

	s.pending = append(s.pending, llm.StreamChunk{
		ID:           s.id,
		Model:        s.model,
		FinishReason: s.finishReason,
		Usage:        s.usage,
		Done:         true,
	})
	_ = s.terminate()
}

var _ llm.Stream = (*chatStream)(nil)
