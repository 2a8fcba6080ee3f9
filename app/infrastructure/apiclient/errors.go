package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a 4xx/5xx response from the backend, optionally carrying
// per-field validation detail for form display.
type APIError struct {
	StatusCode  int                 `json:"-"`
	Message     string              `json:"message"`
	FieldErrors map[string][]string `json:"field_errors,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// NetworkError means the request never produced a server response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthError is a 401 that survived the token refresh. The session has been
// torn down by the time this error surfaces; it is handled globally, not by
// the view that triggered it.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// AsAPIError unwraps err into an APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func newAPIError(statusCode int, body APIError) *APIError {
	message := body.Message
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &APIError{
		StatusCode:  statusCode,
		Message:     message,
		FieldErrors: body.FieldErrors,
	}
}
