package openai

import (
	"strings"

	"github.com/samber/lo"
	"github.com/switchboard-ai/switchboard/llm"
)

// The wire format of the chat completions dialect: a flat messages array
// where each turn is a single JSON object. Shared by OpenAI itself and the
// many OpenAI-compatible gateways.

type chatCompletionRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	Stop          []string       `json:"stop,omitempty"`
	Tools         []chatTool     `json:"tools,omitempty"`
	ToolChoice    interface{}    `json:"tool_choice,omitempty"`
	User          string         `json:"user,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    interface{}    `json:"content,omitempty"` // string or []contentPart
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

type chatToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string             `json:"type"`
	Function functionDefinition `json:"function"`
}

type functionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Created int64        `json:"created"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage"`
}

type chatChoice struct {
	Message      assistantMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

type assistantMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Reasoning string         `json:"reasoning_content"`
	ToolCalls []chatToolCall `json:"tool_calls"`
}

type chatUsage struct {
	PromptTokens            int                      `json:"prompt_tokens"`
	CompletionTokens        int                      `json:"completion_tokens"`
	TotalTokens             int                      `json:"total_tokens"`
	CompletionTokensDetails *completionTokensDetails `json:"completion_tokens_details"`
}

type completionTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

type chatCompletionChunk struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
	Usage   *chatUsage    `json:"usage"`
}

type chunkChoice struct {
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type chunkDelta struct {
	Content   string          `json:"content"`
	Reasoning string          `json:"reasoning_content"`
	ToolCalls []chunkToolCall `json:"tool_calls"`
}

type chunkToolCall struct {
	Index    int          `json:"index"`
	ID       string       `json:"id"`
	Function functionCall `json:"function"`
}

type modelList struct {
	Data []modelEntry `json:"data"`
}

type modelEntry struct {
	ID string `json:"id"`
}

// placeholderTurnText is injected when translation would otherwise produce
// zero conversational turns. Backends reject empty message lists.
const placeholderTurnText = "..."

// buildChatRequest maps a neutral request to the wire body. The neutral
// request is read-only; the body is built fresh each time. Tool names pass
// through names on the way out so user-facing names that the backend would
// reject become safe identifiers.
func buildChatRequest(req *llm.Request, model string, stream bool, names *llm.ToolNameCodec) chatCompletionRequest {
	body := chatCompletionRequest{
		Model:       model,
		Messages:    buildMessages(req.Messages, names),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		User:        req.User,
		Stream:      stream,
	}

	if len(req.Tools) > 0 {
		body.Tools = lo.Map(req.Tools, func(t llm.ToolDefinition, _ int) chatTool {
			return chatTool{
				Type: "function",
				Function: functionDefinition{
					Name:        names.Encode(t.Name),
					Description: t.Description,
					Parameters:  llm.SanitizeSchema(t.Parameters),
				},
			}
		})
		body.ToolChoice = buildToolChoice(req.ToolChoice, names)
	}

	if stream {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	return body
}

func buildMessages(msgs []llm.Message, names *llm.ToolNameCodec) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	conversational := 0

	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			// This dialect has a dedicated system role.
			out = append(out, chatMessage{Role: "system", Content: m.TextContent()})

		case llm.RoleTool:
			out = append(out, chatMessage{
				Role:       "tool",
				Content:    m.TextContent(),
				ToolCallID: m.ToolCallID,
			})
			conversational++

		case llm.RoleAssistant:
			wire := chatMessage{Role: "assistant"}
			if text := m.TextContent(); text != "" {
				wire.Content = text
			}
			for _, tc := range m.ToolCalls {
				wire.ToolCalls = append(wire.ToolCalls, chatToolCall{
					ID:       tc.ID,
					Type:     "function",
					Function: functionCall{Name: names.Encode(tc.Name), Arguments: tc.Arguments},
				})
			}
			out = append(out, wire)
			conversational++

		default:
			out = append(out, chatMessage{Role: "user", Content: buildUserContent(m)})
			conversational++
		}
	}

	if conversational == 0 {
		out = append(out, chatMessage{Role: "user", Content: placeholderTurnText})
	}
	return out
}

// buildUserContent returns a plain string for text-only messages and a typed
// part array when the message carries images.
func buildUserContent(m llm.Message) interface{} {
	if len(m.Parts) == 0 {
		return m.Content
	}

	hasImage := false
	for _, p := range m.Parts {
		if p.Type == llm.PartTypeImage {
			hasImage = true
			break
		}
	}
	if !hasImage {
		return m.TextContent()
	}

	parts := make([]contentPart, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch p.Type {
		case llm.PartTypeText:
			parts = append(parts, contentPart{Type: "text", Text: p.Text})
		case llm.PartTypeImage:
			url := p.ImageURL
			if url == "" && p.ImageData != "" {
				url = "data:" + p.MediaType + ";base64," + p.ImageData
			}
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURLPart{URL: url}})
		}
	}
	return parts
}

func buildToolChoice(choice string, names *llm.ToolNameCodec) interface{} {
	switch choice {
	case "", "auto":
		return "auto"
	case "none", "required":
		return choice
	default:
		// A specific tool name forces that function.
		return map[string]interface{}{
			"type":     "function",
			"function": map[string]interface{}{"name": names.Encode(choice)},
		}
	}
}

// responseToNeutral maps a wire response back to the neutral model. Tool
// names are decoded back to their user-facing form.
func responseToNeutral(raw *chatCompletionResponse, names *llm.ToolNameCodec) (*llm.Response, error) {
	if len(raw.Choices) == 0 {
		return nil, llm.NewInternalError("empty backend payload: no choices", 0, nil)
	}
	choice := raw.Choices[0]

	resp := &llm.Response{
		ID:           raw.ID,
		Content:      llm.WrapThinking(choice.Message.Reasoning, choice.Message.Content),
		FinishReason: mapFinishReason(choice.FinishReason, len(choice.Message.ToolCalls) > 0),
		Model:        raw.Model,
		Created:      llm.Timestamp(raw.Created),
	}

	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      names.Decode(tc.Function.Name),
			Arguments: tc.Function.Arguments,
		})
	}

	resp.Usage = usageToNeutral(raw.Usage)
	return resp, nil
}

// mapFinishReason normalizes the dialect's finish vocabulary. Unknown values
// map to stop: an unrecognized terminal state is not a failure.
func mapFinishReason(reason string, hasToolCalls bool) llm.FinishReason {
	switch strings.ToLower(reason) {
	case "stop":
		if hasToolCalls {
			return llm.FinishReasonToolCalls
		}
		return llm.FinishReasonStop
	case "length", "max_tokens":
		return llm.FinishReasonLength
	case "tool_calls", "function_call":
		return llm.FinishReasonToolCalls
	case "content_filter":
		return llm.FinishReasonContentFilter
	default:
		return llm.FinishReasonStop
	}
}

// usageToNeutral folds reasoning tokens into the completion count; the
// neutral model has no separate reasoning-token field.
func usageToNeutral(u *chatUsage) *llm.Usage {
	if u == nil {
		return nil
	}
	completion := u.CompletionTokens
	if u.CompletionTokensDetails != nil {
		completion += u.CompletionTokensDetails.ReasoningTokens
	}
	return &llm.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: completion,
		TotalTokens:      u.TotalTokens,
	}
}
