package gemini

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/switchboard-ai/switchboard/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config holds the static configuration for a Client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string   // default model when a request leaves Model empty
	Models      []string // static model list; empty means list remotely
	Timeout     time.Duration
	RetryPolicy *llm.RetryPolicy
}

// Client implements llm.Provider for the structured multi-part family:
// Gemini-style generateContent backends with thinking parts and signed
// tool-call continuations.
type Client struct {
	config    Config
	transport *llm.Transport
	policy    llm.RetryPolicy
	attempts  llm.AttemptController
	names     *llm.ToolNameCodec
	logger    zerolog.Logger
}

// NewClient creates a Client. A missing API key surfaces as IsReady() ==
// false and a validation failure on first use.
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
		"x-goog-api-key": config.APIKey,
	}
	return &Client{
		config:    config,
		transport: llm.NewTransport(config.BaseURL, headers),
		policy:    policy,
		names:     llm.NewToolNameCodec(),
		logger:    logger.With().Str("provider", llm.ProviderGemini).Logger(),
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
// otherwise the remote listing endpoint is queried and the "models/" name
// prefix stripped.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	if len(c.config.Models) > 0 {
		return append([]string(nil), c.config.Models...), nil
	}
	if !c.IsReady() {
		return nil, llm.NewValidationError("gemini: api key not configured")
	}

	var listing modelListing
	if err := c.transport.GetJSON(ctx, "/v1beta/models", &listing); err != nil {
		return nil, err
	}
	models := make([]string, 0, len(listing.Models))
	for _, m := range listing.Models {
		models = append(models, strings.TrimPrefix(m.Name, "models/"))
	}
	return models, nil
}

// Complete implements llm.Provider.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	model, err := c.validate(req)
	if err != nil {
		return nil, err
	}
	body := buildGenerateRequest(req, c.names)

	c.logger.Debug().
		Str("model", model).
		Int("contents", len(body.Contents)).
		Int("tools", len(body.Tools)).
		Msg("Completion request")

	path := "/v1beta/models/" + model + ":generateContent"
	return llm.Retry(ctx, c.logger, c.policy, func(ctx context.Context) (*llm.Response, error) {
		attemptCtx, done := c.attempts.Begin(ctx, c.config.Timeout)
		defer done()

		var raw generateContentResponse
		if err := c.transport.PostJSON(attemptCtx, path, body, &raw); err != nil {
			return nil, llm.AttemptError(attemptCtx, err)
		}
		resp, err := responseToNeutral(&raw, c.names)
		if err != nil {
			return nil, err
		}
		if resp.Model == "" {
			resp.Model = model
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

// Stream implements llm.Provider. This dialect's SSE stream has no sentinel;
// it ends when the connection closes cleanly.
func (c *Client) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	model, err := c.validate(req)
	if err != nil {
		return nil, err
	}
	body := buildGenerateRequest(req, c.names)
	path := "/v1beta/models/" + model + ":streamGenerateContent?alt=sse"

	type opened struct {
		stream llm.Stream
	}
	result, err := llm.Retry(ctx, c.logger, c.policy, func(ctx context.Context) (opened, error) {
		attemptCtx, done := c.attempts.Begin(ctx, c.config.Timeout)

		rc, err := c.transport.PostStream(attemptCtx, path, body)
		if err != nil {
			done()
			return opened{}, llm.AttemptError(attemptCtx, err)
		}
		decoder := llm.NewSSEDecoder(rc, "")
		return opened{stream: newGenerateStream(attemptCtx, decoder, done, model, c.names, c.logger)}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.stream, nil
}

func (c *Client) validate(req *llm.Request) (string, error) {
	if req == nil {
		return "", llm.NewValidationError("gemini: request is required")
	}
	if !c.IsReady() {
		return "", llm.NewValidationError("gemini: api key not configured")
	}
	model := req.Model
	if model == "" {
		model = c.config.Model
	}
	if model == "" {
		return "", llm.NewValidationError("gemini: model is required and no default is configured")
	}
	return model, nil
}

var _ llm.Provider = (*Client)(nil)
