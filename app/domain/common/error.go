package common

import "fmt"

// Error carries a message plus a stable code so failures can be traced back
// to the exact call site from logs and API responses.
type Error struct {
	Message string
	Code    string
	Cause   error
}

func NewError(cause error, code string) *Error {
	return &Error{
		Message: cause.Error(),
		Code:    code,
		Cause:   cause,
	}
}

func NewErrorWithMessage(message string, code string) *Error {
	return &Error{
		Message: message,
		Code:    code,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %s)", e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
