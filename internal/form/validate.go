package form

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/cast"
)

// ValidationError reports the fields that blocked a save. Field is the first
// offending field in render order, where focus should move.
type ValidationError struct {
	Field  string
	Errors validation.Errors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("form: invalid field %q: %v", e.Field, e.Errors)
}

// Validate checks values against the form and returns the values to save:
// only known fields, with empty optional values dropped and number inputs
// coerced to float64.
func (f *Form) Validate(values map[string]any) (map[string]any, error) {
	out := make(map[string]any)
	errs := validation.Errors{}
	first := ""

	fail := func(name string, err error) {
		errs[name] = err
		if first == "" {
			first = name
		}
	}

	for _, fl := range f.Fields() {
		v, present := values[fl.Name]
		if present && fl.Input == InputNumber {
			n, err := toNumber(v)
			if err != nil {
				fail(fl.Name, err)
				continue
			}
			v = n
		}

		var rule validation.Rule = validation.Required
		if fl.Input == InputNumber {
			// Zero is a valid number; only absence counts as empty.
			rule = validation.NotNil
		}
		if fl.Required {
			if err := validation.Validate(v, rule); err != nil {
				fail(fl.Name, err)
				continue
			}
		}
		if v == nil || (fl.Input != InputNumber && validation.IsEmpty(v)) {
			continue
		}
		out[fl.Name] = v
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Field: first, Errors: errs}
	}
	return out, nil
}

func toNumber(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, validation.NewError("validation_is_number", "must be a number")
	}
	return n, nil
}
