package engine

import (
	"context"
	"fmt"
)

// MessageRole represents the role of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ChatMessage is the provider-agnostic message we pass around.
type ChatMessage struct {
	Role    MessageRole // Role of the message sender
	Content string      // Message content
	Name    string      // Tool call ID for tool messages (providers match results by ID)
	// ToolCalls stores the tool calls made by this assistant message.
	// Providers require tool_calls to be present in assistant messages when
	// converting back to wire format, so they travel with the message.
	ToolCalls []ToolCall
}

// Validate checks if the ChatMessage is valid.
func (m ChatMessage) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
	default:
		return fmt.Errorf("invalid message role: %s", m.Role)
	}
	if m.Role == RoleTool && m.Name == "" {
		return fmt.Errorf("tool messages must reference a tool call ID")
	}
	return nil
}

// Usage holds token accounting returned by providers.
type Usage struct {
	Prompt     int
	Completion int
	Total      int
}

// ToolCall represents a function/tool the assistant requested.
type ToolCall struct {
	ID   string // Provider-specific tool call ID (e.g., OpenAI's call_xxx)
	Name string
	Args map[string]any
}

// ToolResult is the uniform outcome of dispatching a ToolCall.
// Dispatch never fails as a Go error: every failure mode is folded into
// Success=false with Error set, so the loop can always feed the result
// back to the model.
type ToolResult struct {
	Success   bool
	Output    string
	Error     string
	Truncated bool
	Metadata  map[string]string
}

// Text renders the result as the content of a tool-role message.
func (r ToolResult) Text() string {
	if !r.Success {
		return "ERROR: " + r.Error
	}
	return r.Output
}

// LLMResponse is a normalized result of one chat call.
type LLMResponse struct {
	Assistant    ChatMessage
	ToolCalls    []ToolCall // zero or more tool calls requested by the model
	Usage        Usage
	FinishReason string // "stop" | "length" | "tool_calls" | "content_filter"
}

// LLMClient abstracts the chosen provider SDK (OpenAI, Anthropic, etc.)
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []ChatMessage, toolSchemas []ToolSchema, opts ChatOptions) (LLMResponse, error)
}

// ChatOptions keeps knobs forwarded to the SDK.
type ChatOptions struct {
	Temperature     float32
	MaxOutputTokens int
}

// ToolSchema is the JSON schema the provider expects for function calling.
type ToolSchema struct {
	Name        string
	Description string
	JSONSchema  string // raw JSON string
}

// ToolDispatcher is the registry capability the loop consumes.
// Implementations live in internal/tools; the engine only needs dispatch
// and the schema list to advertise to the provider.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, call ToolCall) ToolResult
	Schemas() []ToolSchema
}
