package openai

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/switchboard-ai/switchboard/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config holds the static configuration for a Client. It mirrors the
// credential resolver contract: base URL, API key, model list, timeout.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string   // default model when a request leaves Model empty
	Models      []string // static model list; empty means list remotely
	Timeout     time.Duration
	RetryPolicy *llm.RetryPolicy
}

// Client implements llm.Provider for the single-JSON-turn chat completions
// family: OpenAI and the gateways that speak its dialect.
type Client struct {
	config    Config
	transport *llm.Transport
	policy    llm.RetryPolicy
	attempts  llm.AttemptController
	names     *llm.ToolNameCodec
	logger    zerolog.Logger
}

// NewClient creates a Client. A missing API key is not an error here; it
// surfaces as IsReady() == false and a validation failure on first use.
func NewClient(config Config, logger zerolog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = llm.DefaultAttemptTimeout
	}
	policy := llm.DefaultRetryPolicy
	if config.RetryPolicy != nil {
		policy = *config.RetryPolicy
	}

	headers := map[string]string{
		"Authorization": "Bearer " + config.APIKey,
	}
	return &Client{
		config:    config,
		transport: llm.NewTransport(config.BaseURL, headers),
		policy:    policy,
		names:     llm.NewToolNameCodec(),
		logger:    logger.With().Str("provider", llm.ProviderOpenAI).Logger(),
	}
}

// IsReady implements llm.Provider. No I/O.
func (c *Client) IsReady() bool {
	return c.config.APIKey != ""
}

// DefaultModel implements llm.Provider.
func (c *Client) DefaultModel() string {
	return c.config.Model
}

// CountTokens implements llm.Provider with the shared character heuristic.
func (c *Client) CountTokens(messages []llm.Message) int {
	return llm.EstimateTokens(messages)
}

// Cancel implements llm.Provider. Idempotent; safe with nothing in flight.
func (c *Client) Cancel() {
	c.attempts.Cancel()
}

// Models implements llm.Provider. The static list wins when configured;
// otherwise the backend's model listing endpoint is queried.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	if len(c.config.Models) > 0 {
		return append([]string(nil), c.config.Models...), nil
	}
	if !c.IsReady() {
		return nil, llm.NewValidationError("openai: api key not configured")
	}

	var list modelList
	if err := c.transport.GetJSON(ctx, "/models", &list); err != nil {
		return nil, err
	}
	return lo.Map(list.Data, func(m modelEntry, _ int) string { return m.ID }), nil
}

// Complete implements llm.Provider. One wire round trip per attempt, wrapped
// by the retry engine; validation failures are returned before any network
// call is made.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	model, err := c.validate(req)
	if err != nil {
		return nil, err
	}
	body := buildChatRequest(req, model, false, c.names)

	c.logger.Debug().
		Str("model", model).
		Int("messages", len(body.Messages)).
		Int("tools", len(body.Tools)).
		Msg("Completion request")

	return llm.Retry(ctx, c.logger, c.policy, func(ctx context.Context) (*llm.Response, error) {
		attemptCtx, done := c.attempts.Begin(ctx, c.config.Timeout)
		defer done()

		var raw chatCompletionResponse
		if err := c.transport.PostJSON(attemptCtx, "/chat/completions", body, &raw); err != nil {
			return nil, llm.AttemptError(attemptCtx, err)
		}
		resp, err := responseToNeutral(&raw, c.names)
		if err != nil {
			return nil, err
		}

		if resp.Usage != nil {
			c.logger.Debug().
				Int("prompt_tokens", resp.Usage.PromptTokens).
				Int("completion_tokens", resp.Usage.CompletionTokens).
				Str("finish_reason", string(resp.FinishReason)).
				Msg("Completion response")
		}
		return resp, nil
	})
}

// Stream implements llm.Provider. The retry engine wraps connection
// establishment only; once the stream is open, a failure is surfaced through
// the stream itself.
func (c *Client) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	model, err := c.validate(req)
	if err != nil {
		return nil, err
	}
	body := buildChatRequest(req, model, true, c.names)

	type opened struct {
		stream llm.Stream
	}
	result, err := llm.Retry(ctx, c.logger, c.policy, func(ctx context.Context) (opened, error) {
		attemptCtx, done := c.attempts.Begin(ctx, c.config.Timeout)

		rc, err := c.transport.PostStream(attemptCtx, "/chat/completions", body)
		if err != nil {
			done()
			return opened{}, llm.AttemptError(attemptCtx, err)
		}
		decoder := llm.NewSSEDecoder(rc, doneSentinel)
		return opened{stream: newChatStream(attemptCtx, decoder, done, c.names, c.logger)}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.stream, nil
}

func (c *Client) validate(req *llm.Request) (string, error) {
	if req == nil {
		return "", llm.NewValidationError("openai: request is required")
	}
	if !c.IsReady() {
		return "", llm.NewValidationError("openai: api key not configured")
	}
	model := req.Model
	if model == "" {
		model = c.config.Model
	}
	if model == "" {
		return "", llm.NewValidationError("openai: model is required and no default is configured")
	}
	return model, nil
}

var _ llm.Provider = (*Client)(nil)
