package executor

import (
	"errors"

	compiler "github.com/hanpama/gqlexpr/internal/compiler"
	connection "github.com/hanpama/gqlexpr/internal/connection"
	expr "github.com/hanpama/gqlexpr/internal/expr"
	schema "github.com/hanpama/gqlexpr/internal/schema"
	services "github.com/hanpama/gqlexpr/internal/services"
)

// ErrorKind is reported under extensions.code.
type ErrorKind string

const (
	AuthorizationDenied      ErrorKind = "AUTHORIZATION_DENIED"
	InvalidCursor            ErrorKind = "INVALID_CURSOR"
	ArgumentValidationFailed ErrorKind = "ARGUMENT_VALIDATION_FAILED"
	ServiceResolutionFailed  ErrorKind = "SERVICE_RESOLUTION_FAILED"
	MalformedSelection       ErrorKind = "MALFORMED_SELECTION"
	DataSourceFailed         ErrorKind = "DATA_SOURCE_FAILED"
	// InvalidVariables and Cancelled abort the request before any data is
	// produced.
	InvalidVariables ErrorKind = "INVALID_VARIABLES"
	Cancelled        ErrorKind = "CANCELLED"
)

// ExecutionResult is the response of one operation. Data is nil when the
// request failed before execution or a null reached the root.
type ExecutionResult struct {
	Data       any            `json:"data"`
	Errors     []GraphQLError `json:"errors,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLError is one entry of ExecutionResult.Errors. Path is the response
// path for field errors and empty for request errors.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string { return e.Message }

// Code returns the kind stored under extensions.code, if any.
func (e GraphQLError) Code() ErrorKind {
	k, _ := e.Extensions["code"].(ErrorKind)
	return k
}

// classify maps a field scoped error to its kind. Unknown errors default to
// fallback.
func classify(err error, fallback ErrorKind) ErrorKind {
	var (
		authErr    *schema.AuthorizationError
		cursorErr  *connection.InvalidCursorError
		argErr     *schema.ArgumentError
		serviceErr *expr.ServiceError
		unknownErr *services.UnknownServiceError
		selErr     *compiler.SelectionError
		usageErr   *schema.UsageError
	)
	switch {
	case errors.As(err, &authErr):
		return AuthorizationDenied
	case errors.As(err, &cursorErr):
		return InvalidCursor
	case errors.As(err, &argErr):
		return ArgumentValidationFailed
	case errors.As(err, &serviceErr), errors.As(err, &unknownErr):
		return ServiceResolutionFailed
	case errors.As(err, &selErr), errors.As(err, &usageErr):
		return MalformedSelection
	}
	return fallback
}

func newError(message string, path Path, kind ErrorKind) GraphQLError {
	e := GraphQLError{Message: message, Path: path}
	if kind != "" {
		e.Extensions = map[string]any{"code": kind}
	}
	return e
}
