package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
)

// FieldError is one field-scoped validation failure. Client-side schema
// errors and server-side field errors share this shape so a form can render
// both in the same place.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their json name, which is what forms display and
	// what the backend uses in its field_errors map.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks input against its schema tags and returns every field
// failure. A nil result means the input may be submitted.
func Validate(input any) []FieldError {
	return toFieldErrors(validate.Struct(input))
}

// ValidateField re-checks a single struct field, for per-field feedback as
// the user types. fields are Go struct field names.
func ValidateField(input any, fields ...string) []FieldError {
	return toFieldErrors(validate.StructPartial(input, fields...))
}

func toFieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: messageFor(fe)})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "eqfield":
		return "does not match"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	case "gtfield":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// MergeServerErrors folds the field-level detail of a failed mutation's
// APIError into the client-side error list, so the form shows both in one
// pass. Non-field API errors pass through untouched.
func MergeServerErrors(fieldErrs []FieldError, err error) []FieldError {
	apiErr, ok := apiclient.AsAPIError(err)
	if !ok || len(apiErr.FieldErrors) == 0 {
		return fieldErrs
	}
	merged := make([]FieldError, len(fieldErrs), len(fieldErrs)+len(apiErr.FieldErrors))
	copy(merged, fieldErrs)
	for field, messages := range apiErr.FieldErrors {
		for _, message := range messages {
			merged = append(merged, FieldError{Field: field, Message: message})
		}
	}
	return merged
}
