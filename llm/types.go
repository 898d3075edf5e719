package llm

import (
	"encoding/json"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// MessageRole represents the role of a message in a conversation.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// PartType represents the type of a content part within a message.
type PartType string

const (
	PartTypeText  PartType = "text"
	PartTypeImage PartType = "image"
)

// ContentPart is a single typed segment of message content. Text parts carry
// Text; image parts carry a URL or a base64 payload with its media type.
type ContentPart struct {
	Type      PartType
	Text      string
	ImageURL  string
	ImageData string // base64-encoded, used when ImageURL is empty
	MediaType string // e.g. "image/png", for ImageData
}

// Message represents a single message in a conversation.
// Content holds plain text; Parts, when non-empty, takes precedence and
// carries an ordered sequence of typed parts.
type Message struct {
	Role       MessageRole
	Content    string
	Parts      []ContentPart
	ToolCalls  []ToolCall // assistant messages that requested tool invocations
	ToolCallID string     // tool messages: id of the call this result answers
}

// ToolDefinition describes a tool the model may invoke. Parameters is a
// JSON-Schema-like tree; providers sanitize it for their dialect before
// sending (see SanitizeSchema).
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Request represents a complete, provider-neutral completion request.
// The provider layer never mutates a Request.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolDefinition
	ToolChoice  string // "", "auto", "none", "required", or a tool name
	MaxTokens   int
	Temperature *float64
	TopP        *float64
	Stop        []string
	User        string
}

// FinishReason is the normalized terminal state of a completion.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonError         FinishReason = "error"
)

// ToolCall represents a tool invocation requested by the model. Arguments is
// kept as the backend-native JSON string; Metadata carries opaque
// backend-specific continuation data (e.g. a reasoning signature) that must
// be echoed back verbatim on later turns.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
	Metadata  map[string]string
}

// ParsedArguments decodes the call's argument string into a map. Malformed
// JSON is first run through jsonrepair; if that also fails the result
// degrades to an empty object rather than an error, so a bad tool payload
// never crashes the caller.
func (tc ToolCall) ParsedArguments() map[string]interface{} {
	args := make(map[string]interface{})
	if tc.Arguments == "" {
		return args
	}
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err == nil {
		return args
	}
	repaired, err := jsonrepair.JSONRepair(tc.Arguments)
	if err != nil {
		return make(map[string]interface{})
	}
	args = make(map[string]interface{})
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		return make(map[string]interface{})
	}
	return args
}

// Usage represents token usage reported by a backend. CompletionTokens
// includes reasoning tokens when the backend reports them separately.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response represents a complete, provider-neutral completion response.
type Response struct {
	ID           string
	Content      string
	ToolCalls    []ToolCall
	FinishReason FinishReason
	Usage        *Usage
	Model        string
	Created      time.Time
}

// StreamChunk is one increment of a streaming response. Every field is
// optional except Done; a stream ends with exactly one chunk where Done is
// true, carrying the finish reason and usage.
type StreamChunk struct {
	ID           string
	Content      string
	ToolCalls    []ToolCall
	FinishReason FinishReason
	Usage        *Usage
	Model        string
	Done         bool
}

// NewTextMessage creates a message with plain text content.
func NewTextMessage(role MessageRole, text string) Message {
	return Message{Role: role, Content: text}
}

// NewToolResultMessage creates a tool message answering the given call.
func NewToolResultMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, Content: content}
}

// TextContent returns the message's text: the plain Content field, or the
// concatenation of its text parts when typed parts are present.
func (m Message) TextContent() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var text string
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			text += p.Text
		}
	}
	return text
}

// ToJSON marshals a message for debugging/logging purposes.
func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
