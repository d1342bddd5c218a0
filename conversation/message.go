// Package conversation runs one user turn through the two-round tool protocol: offer the
// registered tools to the completion service, execute at most one requested tool, feed its
// result back, and return the final answer.
package conversation

import (
	"context"

	"github.com/skosovsky/tooldesk"
)

// Role is the author of a Message.
type Role string

// Message roles understood by completion services.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolChoiceAuto lets the model decide whether to call a tool.
const ToolChoiceAuto = "auto"

// FunctionCall is a tool invocation requested by the model. Arguments is the raw JSON text.
type FunctionCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one entry of a turn transcript. Assistant messages carry either Content or
// ToolCall; tool messages carry the result in Content and reference the call by ToolCallID.
type Message struct {
	Role       Role
	Content    string
	ToolCall   *FunctionCall
	ToolName   string
	ToolCallID string
}

// SystemMessage returns a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant text message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolCallMessage returns the assistant message that requested call.
func ToolCallMessage(call FunctionCall) Message {
	return Message{Role: RoleAssistant, ToolCall: &call}
}

// ToolResultMessage returns the tool message answering call.
func ToolResultMessage(call FunctionCall, result string) Message {
	return Message{Role: RoleTool, Content: result, ToolName: call.Name, ToolCallID: call.ID}
}

// Request is one completion call. Tools is empty when no tools are offered; ToolChoice is only
// meaningful together with Tools.
type Request struct {
	Messages   []Message
	Tools      []tooldesk.Declaration
	ToolChoice string
}

// Response is the model's reply: text content, tool calls, or both.
type Response struct {
	Content   string
	ToolCalls []FunctionCall
}

// Completer is the completion service. Implementations must honor ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (Response, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
