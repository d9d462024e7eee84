package schema

import (
	"fmt"
	"strings"
)

// AuthorizationError reports a field the user may not resolve.
type AuthorizationError struct {
	Type  string
	Field string
	Err   error // set when the authorizer itself failed
}

func (e *AuthorizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authorization of field '%s' on type '%s' failed: %v", e.Field, e.Type, e.Err)
	}
	return fmt.Sprintf("you are not authorized to access the '%s' field on type '%s'", e.Field, e.Type)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// ArgumentError reports arguments that failed coercion or validation.
type ArgumentError struct {
	Field    string
	Messages []string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("field '%s' - %s", e.Field, strings.Join(e.Messages, "; "))
}

// UsageError reports a selection that can never be valid for the field,
// such as an unknown argument. It aborts compilation of the whole document.
type UsageError struct {
	Field   string
	Message string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}
