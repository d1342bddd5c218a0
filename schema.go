package tooldesk

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
)

var errNilSchema = errors.New("schema reflection returned nil")

// reflector produces a flat object schema for the argument struct: no $ref/$defs, properties in
// field order, fields without omitempty required.
var reflector = &jsonschema.Reflector{
	ExpandedStruct: true,
	DoNotReference: true,
}

// inlineReflector handles unnamed struct types, which ExpandedStruct cannot look up by name.
var inlineReflector = &jsonschema.Reflector{
	DoNotReference: true,
}

// paramsFor derives the ordered parameter list of argument struct T. Property order and
// required-ness come from the reflected schema; descriptions from `description` struct tags
// (falling back to jsonschema tag descriptions).
func paramsFor[T any]() ([]Param, error) {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: argument type %s is not a struct", ErrInvalidTool, typ)
	}
	r := reflector
	if typ.Name() == "" {
		r = inlineReflector
	}
	schema := r.ReflectFromType(typ)
	if schema == nil {
		return nil, errNilSchema
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	descriptions := descriptionsFromStructTags(typ)

	var params []Param
	if schema.Properties == nil {
		return params, nil
	}
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		pt, err := paramTypeOf(pair.Value.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrInvalidTool, pair.Key, err)
		}
		desc := descriptions[pair.Key]
		if desc == "" {
			desc = pair.Value.Description
		}
		params = append(params, Param{
			Name:        pair.Key,
			Type:        pt,
			Description: desc,
			Required:    required[pair.Key],
		})
	}
	return params, nil
}

func paramTypeOf(jsonType string) (ParamType, error) {
	switch jsonType {
	case "number", "integer":
		return ParamNumber, nil
	case "string":
		return ParamString, nil
	default:
		return "", fmt.Errorf("unsupported parameter type %q", jsonType)
	}
}

// descriptionsFromStructTags maps json property names to `description` tags of root-level fields.
func descriptionsFromStructTags(typ reflect.Type) map[string]string {
	out := make(map[string]string)
	for field := range typ.Fields() {
		jsonTag := strings.Split(field.Tag.Get("json"), ",")[0]
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		if desc := field.Tag.Get("description"); desc != "" {
			out[jsonTag] = desc
		}
	}
	return out
}

// parametersSchema builds the JSON Schema object shown to the model and used for validation.
// Unknown keys are rejected (additionalProperties: false).
func parametersSchema(params []Param) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	var required []string
	for _, p := range params {
		props.Set(p.Name, &jsonschema.Schema{
			Type:        string(p.Type),
			Description: p.Description,
		})
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// marshalParameters returns the deterministic JSON form of parametersSchema.
func marshalParameters(params []Param) (json.RawMessage, error) {
	return json.Marshal(parametersSchema(params))
}

// checkSpec rejects specs the registry cannot serve.
func checkSpec(spec ToolSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: tool name cannot be empty", ErrInvalidTool)
	}
	if spec.Handler == nil {
		return fmt.Errorf("%w: tool %q has no handler", ErrInvalidTool, spec.Name)
	}
	seen := make(map[string]bool, len(spec.Params))
	for _, p := range spec.Params {
		if p.Name == "" {
			return fmt.Errorf("%w: tool %q has a parameter without a name", ErrInvalidTool, spec.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: tool %q declares parameter %q twice", ErrInvalidTool, spec.Name, p.Name)
		}
		seen[p.Name] = true
		if p.Type != ParamNumber && p.Type != ParamString {
			return fmt.Errorf("%w: tool %q parameter %q has unsupported type %q", ErrInvalidTool, spec.Name, p.Name, p.Type)
		}
	}
	return nil
}
