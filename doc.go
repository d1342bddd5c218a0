// Package tooldesk provides the tool registry of a function-calling assistant: it owns tool
// identity and argument schemas, describes tools to a language model, and safely dispatches the
// model's tool call.
//
// # Overview
//
// A model produces a tool call as a name plus a JSON payload. This package turns that payload
// into a handler invocation: parse (must be a JSON object) → resolve the name → validate against
// the same JSON Schema shown to the model → run the handler under a timeout → return its string.
//
// Pipeline: ToolSpec (or a Go argument struct via NewTool) → Registry → Declarations (sent to the
// model) → Execute (parse, resolve, validate, call) → ToolResult.
//
// # Key concepts
//
//   - Single Source of Truth: a ToolSpec's Params drive the declaration sent to the model, the
//     signature listed in the system prompt, and the validation of incoming arguments.
//   - Registration order: DescribeAll and Declarations return tools in the order they were
//     registered, so composed prompts are reproducible.
//   - Recoverable failures: a malformed payload, an invented tool name or a schema violation is
//     a ClientError wrapping ErrMalformedArguments, ErrUnknownTool or ErrArgumentValidation.
//     Handlers report their own failures inside the returned string.
//
// Sub-packages: policy (instruction variants), prompt (system prompt composer), conversation
// (two-round orchestrator), llm/openai (completion service adapter), toolkits/* (tools).
//
// # Example
//
//	type Args struct {
//	    City string `json:"city" description:"The city name"`
//	}
//	spec, err := tooldesk.NewTool("get_weather", "Get the current weather in a given city.",
//	    func(_ context.Context, a Args) string { return `{"temperature":22.5}` })
//	if err != nil { ... }
//	reg := tooldesk.NewRegistry()
//	if err := reg.Register(spec); err != nil { ... }
//	res := reg.Execute(ctx, tooldesk.ToolCall{ID: "1", ToolName: "get_weather", Args: []byte(`{"city":"Jakarta"}`)})
package tooldesk
