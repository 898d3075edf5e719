package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
	"github.com/switchboard-ai/switchboard/llm"
)

// The wire format of the structured multi-part dialect: each turn is a list
// of typed parts (text, thought, functionCall, functionResponse, inline
// media), with a dedicated systemInstruction field outside the turn list.

type generateContentRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
	Tools             []wireTool         `json:"tools,omitempty"`
	ToolConfig        *toolConfig        `json:"toolConfig,omitempty"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

type content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []part `json:"parts"`
}

type part struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	ThoughtSignature string            `json:"thoughtSignature,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
	InlineData       *inlineData       `json:"inlineData,omitempty"`
	FileData         *fileData         `json:"fileData,omitempty"`
}

type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type fileData struct {
	MimeType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type wireTool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations,omitempty"`
}

type functionDeclaration struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type toolConfig struct {
	FunctionCallingConfig *functionCallingConfig `json:"functionCallingConfig,omitempty"`
}

type functionCallingConfig struct {
	Mode                 string   `json:"mode,omitempty"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata"`
	PromptFeedback *promptFeedback `json:"promptFeedback"`
	ModelVersion   string          `json:"modelVersion"`
	ResponseID     string          `json:"responseId"`
}

type candidate struct {
	Content      *content `json:"content"`
	FinishReason string   `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type modelListing struct {
	Models []listedModel `json:"models"`
}

type listedModel struct {
	Name string `json:"name"`
}

// signatureMetadataKey is where the continuation signature captured from a
// tool-call part is kept on the neutral ToolCall.
const signatureMetadataKey = "thought_signature"

// placeholderTurnText is injected when translation would otherwise produce
// zero turns (e.g. a request holding only a system message). The backend
// rejects an empty contents list.
const placeholderTurnText = "..."

// toolCallContext is what multi-turn tool use needs to replay a call: the
// tool name behind an id and the opaque signature that must be echoed back
// verbatim, or the backend rejects the exchange.
type toolCallContext struct {
	name      string
	signature string
}

// buildGenerateRequest maps a neutral request to the wire body. The neutral
// request is read-only. Tool names pass through names on the way out so
// user-facing names the backend would reject become safe identifiers.
func buildGenerateRequest(req *llm.Request, names *llm.ToolNameCodec) generateContentRequest {
	body := generateContentRequest{}

	system, contents := buildContents(req.Messages, names)
	if system != "" {
		body.SystemInstruction = &systemInstruction{Parts: []part{{Text: system}}}
	}
	body.Contents = contents

	if req.MaxTokens > 0 || req.Temperature != nil || req.TopP != nil || len(req.Stop) > 0 {
		body.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
			StopSequences:   req.Stop,
		}
	}

	if len(req.Tools) > 0 {
		decls := lo.Map(req.Tools, func(t llm.ToolDefinition, _ int) functionDeclaration {
			return functionDeclaration{
				Name:        names.Encode(t.Name),
				Description: t.Description,
				Parameters:  llm.SanitizeSchema(t.Parameters),
			}
		})
		body.Tools = []wireTool{{FunctionDeclarations: decls}}
		body.ToolConfig = buildToolConfig(req.ToolChoice, names)
	}
	return body
}

// buildContents translates the message sequence. System messages are
// extracted for the dedicated systemInstruction mechanism; tool-result turns
// are resolved through a lookup from tool-call id to name and signature
// captured from the assistant turn that produced the call.
func buildContents(messages []llm.Message, names *llm.ToolNameCodec) (string, []content) {
	var system string
	callContexts := make(map[string]toolCallContext)
	var contents []content

	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.TextContent()

		case llm.RoleAssistant:
			c := content{Role: "model"}
			if text := m.TextContent(); text != "" {
				c.Parts = append(c.Parts, part{Text: text})
			}
			for _, tc := range m.ToolCalls {
				signature := tc.Metadata[signatureMetadataKey]
				wireName := names.Encode(tc.Name)
				callContexts[tc.ID] = toolCallContext{name: wireName, signature: signature}
				c.Parts = append(c.Parts, part{
					ThoughtSignature: signature,
					FunctionCall: &functionCall{
						Name: wireName,
						Args: argumentsToRaw(tc.Arguments),
					},
				})
			}
			if len(c.Parts) > 0 {
				contents = append(contents, c)
			}

		case llm.RoleTool:
			callCtx := callContexts[m.ToolCallID]
			contents = append(contents, content{
				Role: "user",
				Parts: []part{{
					ThoughtSignature: callCtx.signature,
					FunctionResponse: &functionResponse{
						Name:     callCtx.name,
						Response: toolResultToRaw(m.TextContent()),
					},
				}},
			})

		default:
			contents = append(contents, content{Role: "user", Parts: buildUserParts(m)})
		}
	}

	if len(contents) == 0 {
		contents = append(contents, content{Role: "user", Parts: []part{{Text: placeholderTurnText}}})
	}
	return system, contents
}

func buildUserParts(m llm.Message) []part {
	if len(m.Parts) == 0 {
		return []part{{Text: m.Content}}
	}
	parts := make([]part, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch p.Type {
		case llm.PartTypeText:
			parts = append(parts, part{Text: p.Text})
		case llm.PartTypeImage:
			if p.ImageURL != "" {
				parts = append(parts, part{FileData: &fileData{MimeType: p.MediaType, FileURI: p.ImageURL}})
			} else {
				parts = append(parts, part{InlineData: &inlineData{MimeType: p.MediaType, Data: p.ImageData}})
			}
		}
	}
	return parts
}

// argumentsToRaw carries the backend-native argument encoding through
// verbatim when it is valid JSON, degrading to an empty object otherwise.
func argumentsToRaw(arguments string) json.RawMessage {
	if arguments == "" || !json.Valid([]byte(arguments)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(arguments)
}

// toolResultToRaw wraps non-JSON tool output so the wire field is always a
// JSON object.
func toolResultToRaw(result string) json.RawMessage {
	if json.Valid([]byte(result)) && len(result) > 0 && (result[0] == '{' || result[0] == '[') {
		return json.RawMessage(result)
	}
	wrapped, err := json.Marshal(map[string]string{"result": result})
	if err != nil {
		return json.RawMessage("{}")
	}
	return wrapped
}

func buildToolConfig(choice string, names *llm.ToolNameCodec) *toolConfig {
	cfg := &functionCallingConfig{}
	switch choice {
	case "", "auto":
		cfg.Mode = "AUTO"
	case "none":
		cfg.Mode = "NONE"
	case "required":
		cfg.Mode = "ANY"
	default:
		cfg.Mode = "ANY"
		cfg.AllowedFunctionNames = []string{names.Encode(choice)}
	}
	return &toolConfig{FunctionCallingConfig: cfg}
}

// responseToNeutral maps a wire response back to the neutral model. Thinking
// parts are concatenated separately from visible text and wrapped; tool-call
// ids are synthesized since this dialect has none, with the part's signature
// captured as metadata for later echo and names decoded back to their
// user-facing form.
func responseToNeutral(raw *generateContentResponse, names *llm.ToolNameCodec) (*llm.Response, error) {
	resp := &llm.Response{
		ID:      raw.ResponseID,
		Model:   raw.ModelVersion,
		Created: llm.Timestamp(0),
	}
	if resp.ID == "" {
		resp.ID = fmt.Sprintf("gemini-%d", resp.Created.UnixNano())
	}

	if len(raw.Candidates) == 0 {
		if raw.PromptFeedback != nil && raw.PromptFeedback.BlockReason != "" {
			resp.FinishReason = llm.FinishReasonContentFilter
			resp.Usage = usageToNeutral(raw.UsageMetadata)
			return resp, nil
		}
		return nil, llm.NewInternalError("empty backend payload: no candidates", 0, nil)
	}
	cand := raw.Candidates[0]

	var thinking, visible string
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				if p.Thought {
					thinking += p.Text
				} else {
					visible += p.Text
				}
			}
			if p.FunctionCall != nil {
				call := llm.ToolCall{
					ID:        fmt.Sprintf("call_%d", len(resp.ToolCalls)),
					Name:      names.Decode(p.FunctionCall.Name),
					Arguments: string(p.FunctionCall.Args),
				}
				if call.Arguments == "" {
					call.Arguments = "{}"
				}
				if p.ThoughtSignature != "" {
					call.Metadata = map[string]string{signatureMetadataKey: p.ThoughtSignature}
				}
				resp.ToolCalls = append(resp.ToolCalls, call)
			}
		}
	}
	resp.Content = llm.WrapThinking(thinking, visible)
	resp.FinishReason = mapFinishReason(cand.FinishReason, len(resp.ToolCalls) > 0)
	resp.Usage = usageToNeutral(raw.UsageMetadata)
	return resp, nil
}

// mapFinishReason normalizes the dialect's finish vocabulary. Unknown values
// map to stop: an unrecognized terminal state is not a failure.
func mapFinishReason(reason string, hasToolCalls bool) llm.FinishReason {
	if hasToolCalls {
		return llm.FinishReasonToolCalls
	}
	switch reason {
	case "STOP", "":
		return llm.FinishReasonStop
	case "MAX_TOKENS":
		return llm.FinishReasonLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return llm.FinishReasonContentFilter
	default:
		return llm.FinishReasonStop
	}
}

// usageToNeutral folds reasoning tokens into the completion count; the
// neutral model has no separate reasoning-token field.
func usageToNeutral(u *usageMetadata) *llm.Usage {
	if u == nil {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     u.PromptTokenCount,
		CompletionTokens: u.CandidatesTokenCount + u.ThoughtsTokenCount,
		TotalTokens:      u.TotalTokenCount,
	}
}
