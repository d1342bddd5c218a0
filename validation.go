package tooldesk

import (
	"bytes"
	"errors"
	"strings"

	validator "github.com/santhosh-tekuri/jsonschema/v6"
)

// Validatable is implemented by argument structs that need custom business validation.
// Called by NewTool handlers after schema validation and decoding.
type Validatable interface {
	Validate() error
}

// schemaValidator validates a JSON value decoded by validator.UnmarshalJSON.
// *validator.Schema implements it.
type schemaValidator interface {
	Validate(v any) error
}

// compileSchema compiles a declaration's parameter schema. Each tool gets its own compiler,
// so the resource location only has to be unique within it.
func compileSchema(raw []byte) (*validator.Schema, error) {
	doc, err := validator.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c := validator.NewCompiler()
	if err := c.AddResource("parameters.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("parameters.json")
}

// validateAgainstSchema runs schema validation on the raw argument payload. The payload
// must already be known to be a JSON object; parse errors are reported by the caller.
func validateAgainstSchema(validate schemaValidator, raw []byte) error {
	inst, err := validator.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return wrapJSONParseError(err)
	}
	if err := validate.Validate(inst); err != nil {
		return &ClientError{Reason: validationReason(err), Err: ErrArgumentValidation}
	}
	return nil
}

// validationReason flattens the multi-line validator output into one line without the
// schema location header.
func validationReason(err error) string {
	var ve *validator.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var parts []string
	for _, line := range strings.Split(ve.Error(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "jsonschema validation failed") {
			continue
		}
		parts = append(parts, strings.TrimPrefix(line, "- "))
	}
	if len(parts) == 0 {
		return ve.Error()
	}
	return strings.Join(parts, "; ")
}

// validateCustom runs Validatable if args implements it.
func validateCustom(args any) error {
	if v, ok := args.(Validatable); ok {
		return v.Validate()
	}
	return nil
}
