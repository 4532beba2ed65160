package provider

import (
	"context"
	"strings"
)

// Role constants for conversation messages. The Messages API knows only
// user and assistant turns; the system prompt travels out-of-band.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content block types produced by the model or synthesized for it.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Stop reasons the orchestrator understands.
const (
	StopToolUse = "tool_use"
	StopEndTurn = "end_turn"
)

// Message is one turn in the conversation history.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is the union of text, tool_use and tool_result blocks.
// Text is set for text blocks; ID/Name/Input for tool_use blocks;
// ToolUseID/Content for tool_result blocks.
type ContentBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

// Response is the model's reply to one invocation.
type Response struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// ToolDefinition is a Messages-API tool schema entry.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Provider is the interface for model backends.
type Provider interface {
	Invoke(ctx context.Context, messages []Message, system string, tools []ToolDefinition) (*Response, error)
}

// TextMessage builds a single-text-block message for the given role.
func TextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentBlock{{Type: BlockText, Text: text}},
	}
}

// ToolCalls returns the tool_use blocks of a response, in emission order.
func (r *Response) ToolCalls() []ContentBlock {
	var calls []ContentBlock
	for _, b := range r.Content {
		if b.Type == BlockToolUse {
			calls = append(calls, b)
		}
	}
	return calls
}

// Text concatenates all text blocks of a response, ignoring other blocks.
func (r *Response) Text() string {
	var sb strings.Builder
	for _, b := range r.Content {
		if b.Type == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}
