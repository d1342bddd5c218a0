package tooldesk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ParamType is the JSON type tag of a tool parameter.
type ParamType string

// Supported parameter types. Integers reflected from Go structs are reported as ParamNumber.
const (
	ParamNumber ParamType = "number"
	ParamString ParamType = "string"
)

// Param describes one argument of a tool. Params are ordered; the order is what the LLM sees.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// Handler runs a tool. It must not panic or block past ctx: failures (upstream HTTP errors,
// unsupported units, ...) are reported inside the returned string so the model can explain them.
type Handler func(ctx context.Context, args Args) string

// ToolSpec is the identity and contract of one LLM-callable tool.
// It is provider-agnostic (no knowledge of OpenAI, Anthropic, etc.).
type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
	// Check optionally runs business validation after schema validation; a non-nil error
	// rejects the call as an argument validation failure before Handler runs.
	Check func(Args) error
	// Timeout overrides the registry default when > 0.
	Timeout time.Duration
}

// Signature renders the tool as name(param: type, optional?: type), as listed in system prompts.
func (s ToolSpec) Signature() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if !p.Required {
			b.WriteByte('?')
		}
		b.WriteString(": ")
		b.WriteString(string(p.Type))
	}
	b.WriteByte(')')
	return b.String()
}

// Param returns the declared parameter with the given name.
func (s ToolSpec) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Declaration is the model-facing description of a tool: Parameters holds a JSON Schema
// object whose properties follow the Params order.
type Declaration struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Args holds validated tool arguments keyed by parameter name. Numbers are float64.
type Args map[string]any

// Number returns the numeric argument name, or 0 when absent.
func (a Args) Number(name string) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

// String returns the string argument name, or "" when absent.
func (a Args) String(name string) string {
	switch v := a[name].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Has reports whether name was supplied.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// ToolCall is a single execution request (as produced by the LLM).
type ToolCall struct {
	ID       string
	ToolName string
	Args     json.RawMessage // raw JSON payload as sent by the model
}

// ToolResult is the outcome of Registry.Execute. Result is the string forwarded to the model;
// Error is set when the call never reached the handler (ClientError), the handler panicked
// (SystemError) or the deadline expired (ErrTimeout).
type ToolResult struct {
	CallID   string
	ToolName string
	Result   string
	Error    error
	Duration time.Duration
}
