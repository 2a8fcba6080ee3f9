package forms

import "strings"

// ValidationError aggregates the field errors that blocked a submission.
// It never reaches the network; callers display the fields and re-submit.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		parts[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Check validates input and wraps any failures in a ValidationError.
func Check(input any) error {
	if fields := Validate(input); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
