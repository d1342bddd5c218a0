package tooldesk

import (
	"context"
)

// NewTool builds a ToolSpec from a typed function. Parameters are reflected from the fields of
// T (json names, field order, omitempty for optional); `description` struct tags become parameter
// descriptions. Schema validation runs in the registry; decoding into T and Validatable run in
// Check so that business-rule failures are reported like schema violations.
// Returns an error if T cannot be described (not a struct, unsupported field type).
func NewTool[T any](
	name, description string,
	fn func(ctx context.Context, args T) string,
	opts ...ToolOption,
) (ToolSpec, error) {
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	ext, err := NewExtractor[T]()
	if err != nil {
		return ToolSpec{}, err
	}
	check := func(args Args) error {
		_, err := ext.Decode(args)
		return err
	}
	handler := func(ctx context.Context, args Args) string {
		typed, err := ext.Decode(args)
		if err != nil {
			// Check already accepted these args; only reachable when a handler is invoked directly.
			return "Invalid arguments: " + ClientReason(err)
		}
		return fn(ctx, typed)
	}
	spec := ToolSpec{
		Name:        name,
		Description: description,
		Params:      ext.Params(),
		Handler:     handler,
		Check:       check,
		Timeout:     o.timeout,
	}
	if err := checkSpec(spec); err != nil {
		return ToolSpec{}, err
	}
	return spec, nil
}

// MustTool is NewTool that panics on error. For package-level tool definitions.
func MustTool[T any](
	name, description string,
	fn func(ctx context.Context, args T) string,
	opts ...ToolOption,
) ToolSpec {
	spec, err := NewTool(name, description, fn, opts...)
	if err != nil {
		panic("tooldesk: " + err.Error())
	}
	return spec
}
