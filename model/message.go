package model

import "time"

// Roles used in conversation turns.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Turn represents a single entry in the conversation history.
// Turns are ordered and immutable once appended to a session.
type Turn struct {
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	ToolCall  *ToolCall   `json:"tool_call,omitempty"`
	Result    *ToolResult `json:"tool_result,omitempty"`
}

// ToolCall is a provider-agnostic tool invocation request parsed from a
// model reply.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the structured outcome of a tool execution.
//
// Declined is not an error: it records that the operator refused the
// confirmation prompt, and is fed back to the model as a normal observation.
type ToolResult struct {
	Success  bool   `json:"success"`
	Declined bool   `json:"declined,omitempty"`
	Output   string `json:"output,omitempty"`
	Err      string `json:"error,omitempty"`
}

// Observation renders the result as text for the next reasoning step.
func (r *ToolResult) Observation() string {
	switch {
	case r.Declined:
		return "User denied permission for this action."
	case r.Err != "":
		if r.Output != "" {
			return "Tool execution error: " + r.Err + "\n" + r.Output
		}
		return "Tool execution error: " + r.Err
	default:
		return r.Output
	}
}
