package domain

import "encoding/json"

const (
	StreamEventText       = "text"
	StreamEventToolCall   = "tool_call"
	StreamEventToolResult = "tool_result"
	StreamEventError      = "error"
	StreamEventFinish     = "finish"
)

// StreamEvent is one incremental chunk of a streaming completion.
type StreamEvent struct {
	Type         string
	Text         string
	ToolCall     *ToolCallChunk
	ToolResult   *ToolResultChunk
	FinishReason string
	Err          string
}

type ToolCallChunk struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args"`
}

type ToolResultChunk struct {
	ToolCallID string          `json:"toolCallId"`
	Result     json.RawMessage `json:"result"`
}
