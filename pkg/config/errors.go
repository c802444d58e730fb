package config

import "fmt"

// Error codes.
const (
	CodeMissingUsername = "missing_username"
	CodeMissingToken    = "missing_token"
	CodeMissingOutput   = "missing_output"
	CodeInvalidValue    = "invalid_value"
)

// Error is a configuration problem detected before any request is made.
type Error struct {
	Code    string
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error (%s) %s: %s", e.Code, e.Field, e.Message)
}

func invalid(field, msg string) *Error {
	return &Error{Code: CodeInvalidValue, Field: field, Message: msg}
}
