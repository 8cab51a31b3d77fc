package domain

import "encoding/json"

const (
	ToolSearchJob     = "searchJob"
	ToolFindJobSalary = "findJobSalary"
	ToolFindVideo     = "findVideo"
	ToolFindBook      = "findBook"
)

const (
	InvocationStateCall   = "call"
	InvocationStateResult = "result"
)

// ToolInvocation is a backend-executed lookup surfaced to the client.
// State moves call -> result exactly once.
type ToolInvocation struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	State      string          `json:"state"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}
