package tooldesk

import (
	"errors"
	"fmt"
)

// Sentinel errors for tooldesk. Use errors.Is to check.
var (
	ErrDuplicateTool      = errors.New("duplicate tool")
	ErrInvalidTool        = errors.New("invalid tool spec")
	ErrUnknownTool        = errors.New("unknown tool")
	ErrMalformedArguments = errors.New("malformed tool arguments")
	ErrArgumentValidation = errors.New("argument validation failed")
	ErrTimeout            = errors.New("tool execution timeout")
	ErrShutdown           = errors.New("registry is shutting down")
)

// ClientError is an error caused by the model's tool call itself (invented tool name,
// unparseable JSON, schema violation). Reason is safe to show to the user or the LLM.
// Err wraps one of the sentinels above for errors.Is/errors.As.
type ClientError struct {
	Reason string
	Err    error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("invalid tool call: %s", e.Reason)
}

// Unwrap supports errors.Is/errors.As on wrapped chains (e.g. errors.Is(err, ErrUnknownTool)).
func (e *ClientError) Unwrap() error { return e.Err }

// SystemError represents an internal failure (panic in a handler, broken schema).
// The LLM should not see the underlying error message or stack.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	return "internal system error during tool execution"
}

func (e *SystemError) Unwrap() error { return e.Err }

// IsClientError returns true if err is or wraps a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// IsSystemError returns true if err is or wraps a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// ClientReason returns the ClientError reason in err's chain, or err.Error() otherwise.
func ClientReason(err error) string {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return err.Error()
}

// wrapJSONParseError returns a ClientError for argument payloads that are not a JSON object.
func wrapJSONParseError(err error) error {
	return &ClientError{Reason: "json parse error: " + err.Error(), Err: ErrMalformedArguments}
}

func unknownToolError(name string) error {
	return &ClientError{Reason: fmt.Sprintf("tool %q is not registered", name), Err: ErrUnknownTool}
}
