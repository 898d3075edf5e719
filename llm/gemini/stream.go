package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/switchboard-ai/switchboard/llm"
)

// generateStream adapts the streamGenerateContent SSE frames into the
// neutral chunk stream. Each frame is a full generateContentResponse whose
// parts carry text or thought deltas; function calls arrive whole.
type generateStream struct {
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
	toolCalls    []llm.ToolCall
	inThinking   bool
}

func newGenerateStream(ctx context.Context, decoder *llm.SSEDecoder, release func(), model string, names *llm.ToolNameCodec, logger zerolog.Logger) *generateStream {
	return &generateStream{
		ctx:          ctx,
		decoder:      decoder,
		release:      release,
		names:        names,
		logger:       logger,
		model:        model,
		finishReason: llm.FinishReasonStop,
	}
}

// Next implements llm.Stream.
func (s *generateStream) Next() bool {
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

		var frame generateContentResponse
		if jsonErr := json.Unmarshal(payload, &frame); jsonErr != nil {
			// A single corrupt frame must not abort a healthy stream.
			s.logger.Debug().Err(jsonErr).Msg("Skipping malformed stream frame")
			continue
		}
		s.consume(&frame)
	}
}

// Chunk implements llm.Stream.
func (s *generateStream) Chunk() *llm.StreamChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Err implements llm.Stream.
func (s *generateStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements llm.Stream. Releases the connection and the attempt slot
// exactly once, on every exit path. Closing the decoder first unblocks a
// concurrent Next that is waiting on the network.
func (s *generateStream) Close() error {
	err := s.decoder.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.terminate()
	return err
}

func (s *generateStream) terminate() error {
	s.finished = true
	err := s.decoder.Close()
	if s.release != nil {
		s.release()
		s.release = nil
	}
	return err
}

func (s *generateStream) fail(err error) {
	s.err = err
	_ = s.terminate()
}

func (s *generateStream) consume(frame *generateContentResponse) {
	if frame.ResponseID != "" {
		s.id = frame.ResponseID
	}
	if frame.ModelVersion != "" {
		s.model = frame.ModelVersion
	}
	if frame.UsageMetadata != nil {
		s.usage = usageToNeutral(frame.UsageMetadata)
	}
	if len(frame.Candidates) == 0 {
		return
	}
	cand := frame.Candidates[0]

	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				s.queueText(p.Text, p.Thought)
			}
			if p.FunctionCall != nil {
				call := llm.ToolCall{
					ID:        fmt.Sprintf("call_%d", len(s.toolCalls)),
					Name:      s.names.Decode(p.FunctionCall.Name),
					Arguments: string(p.FunctionCall.Args),
				}
				if call.Arguments == "" {
					call.Arguments = "{}"
				}
				if p.ThoughtSignature != "" {
					call.Metadata = map[string]string{signatureMetadataKey: p.ThoughtSignature}
				}
				s.toolCalls = append(s.toolCalls, call)
			}
		}
	}
	if cand.FinishReason != "" {
		s.finishReason = mapFinishReason(cand.FinishReason, len(s.toolCalls) > 0)
	}
}

// queueText emits a content chunk, opening or closing the thinking envelope
// on transitions so that concatenating all content chunks reproduces the
// non-streaming content field exactly.
func (s *generateStream) queueText(text string, thinking bool) {
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

// queueFinal emits the accumulated tool calls, then the single done chunk,
// and releases the transport.
func (s *generateStream) queueFinal() {
	if s.inThinking {
		s.inThinking = false
		s.pending = append(s.pending, llm.StreamChunk{ID: s.id, Model: s.model, Content: "\n</thinking>\n\n"})
	}

	if len(s.toolCalls) > 0 {
		calls := s.toolCalls
		s.toolCalls = nil
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

var _ llm.Stream = (*generateStream)(nil)
