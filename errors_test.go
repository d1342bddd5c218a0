package tooldesk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientError(t *testing.T) {
	tests := []struct {
		name   string
		err    *ClientError
		expect string
	}{
		{"with reason", &ClientError{Reason: "missing property 'city'"}, "invalid tool call: missing property 'city'"},
		{"empty reason", &ClientError{Reason: ""}, "invalid tool call: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.err.Error())
		})
	}
}

func TestSystemError(t *testing.T) {
	inner := errors.New("db connection refused")
	err := &SystemError{Err: inner}
	assert.Equal(t, "internal system error during tool execution", err.Error())
	assert.Same(t, inner, err.Unwrap())
}

func TestErrorsIs_As(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		is       bool
		asClient bool
		asSystem bool
	}{
		{"unknown tool", unknownToolError("x"), ErrUnknownTool, true, true, false},
		{"malformed", wrapJSONParseError(errors.New("eof")), ErrMalformedArguments, true, true, false},
		{"SystemError timeout", &SystemError{Err: ErrTimeout}, ErrTimeout, true, false, true},
		{"wrapped ClientError", wrapErr{err: &ClientError{Reason: "y", Err: ErrArgumentValidation}}, ErrArgumentValidation, true, true, false},
		{"wrapped SystemError", wrapErr{err: &SystemError{Err: ErrTimeout}}, ErrTimeout, true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.is, errors.Is(tt.err, tt.target), "errors.Is")
			assert.Equal(t, tt.asClient, IsClientError(tt.err), "IsClientError")
			assert.Equal(t, tt.asSystem, IsSystemError(tt.err), "IsSystemError")
		})
	}
}

func TestClientReason(t *testing.T) {
	require.Equal(t, `tool "x" is not registered`, ClientReason(unknownToolError("x")))
	require.Equal(t, "y", ClientReason(wrapErr{err: &ClientError{Reason: "y"}}))
	require.Equal(t, "plain", ClientReason(errors.New("plain")))
}

type wrapErr struct {
	err error
}

func (e wrapErr) Error() string {
	if e.err == nil {
		return ""
	}
	return "wrap: " + e.err.Error()
}
func (e wrapErr) Unwrap() error { return e.err }
