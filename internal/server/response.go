package server

import (
	"encoding/json"
	"net/http"

	executor "github.com/hanpama/gqlexpr/internal/executor"
	language "github.com/hanpama/gqlexpr/internal/language"
)

// Codes of errors raised before the executor runs.
const (
	codeParseFailed      = "GRAPHQL_PARSE_FAILED"
	codeValidationFailed = "GRAPHQL_VALIDATION_FAILED"
	codeUnauthenticated  = "UNAUTHENTICATED"
)

type wireLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type wireError struct {
	Message    string         `json:"message"`
	Locations  []wireLocation `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// wireResult is the response body of one operation.
type wireResult struct {
	Data       any            `json:"data"`
	Errors     []wireError    `json:"errors,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func messageResult(msg string) wireResult {
	return wireResult{Errors: []wireError{{Message: msg}}}
}

func codedResult(msg, code string) wireResult {
	return wireResult{Errors: []wireError{{Message: msg, Extensions: map[string]any{"code": code}}}}
}

// documentErrors reports parse and validation errors with their locations.
// Errors without a validation rule come from the parser.
func documentErrors(errs language.ErrorList) wireResult {
	var out wireResult
	for _, e := range errs {
		code := codeValidationFailed
		if e.Rule == "" {
			code = codeParseFailed
		}
		we := wireError{Message: e.Message, Extensions: map[string]any{"code": code}}
		for _, l := range e.Locations {
			we.Locations = append(we.Locations, wireLocation{Line: l.Line, Column: l.Column})
		}
		out.Errors = append(out.Errors, we)
	}
	return out
}

func fromExecution(res *executor.ExecutionResult) wireResult {
	out := wireResult{Data: res.Data, Extensions: res.Extensions}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, wireError{
			Message:    e.Message,
			Path:       []any(e.Path),
			Extensions: e.Extensions,
		})
	}
	return out
}

type responder struct {
	w      http.ResponseWriter
	pretty bool
}

func (r responder) write(status int, body any) int {
	r.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	r.w.WriteHeader(status)
	enc := json.NewEncoder(r.w)
	if r.pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(body)
	return status
}
