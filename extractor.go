package tooldesk

import (
	"encoding/json"
	"reflect"
	"slices"
)

// Extractor holds the reflected parameter list for argument type T and decodes validated Args
// into T. Use it in custom handlers that want typed arguments without NewTool.
type Extractor[T any] struct {
	params []Param
}

// NewExtractor reflects T once. T must be a struct whose fields are numbers or strings.
func NewExtractor[T any]() (*Extractor[T], error) {
	params, err := paramsFor[T]()
	if err != nil {
		return nil, err
	}
	return &Extractor[T]{params: params}, nil
}

// Params returns a copy of the reflected parameter list.
func (e *Extractor[T]) Params() []Param {
	return slices.Clone(e.params)
}

// Decode converts schema-validated Args into T and runs Validatable.Validate() if T
// implements it. Validation failures are returned as ClientError wrapping ErrArgumentValidation.
func (e *Extractor[T]) Decode(args Args) (T, error) {
	var zero T
	data, err := json.Marshal(args)
	if err != nil {
		return zero, &SystemError{Err: err}
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, &ClientError{Reason: err.Error(), Err: ErrArgumentValidation}
	}
	if err := runCustomValidation(out); err != nil {
		if IsClientError(err) {
			return zero, err
		}
		return zero, &ClientError{Reason: err.Error(), Err: ErrArgumentValidation}
	}
	return out, nil
}

// runCustomValidation runs Validatable.Validate() on args; if args does not implement Validatable,
// it tries &args for value types (pointer receiver). Never calls Validate twice for the same receiver.
func runCustomValidation[T any](args T) error {
	if err := validateCustom(any(args)); err != nil {
		return err
	}
	if _, ok := any(args).(Validatable); ok {
		return nil
	}
	typ := reflect.TypeOf(args)
	if typ == nil || typ.Kind() == reflect.Pointer {
		return nil
	}
	return validateCustom(any(&args))
}
