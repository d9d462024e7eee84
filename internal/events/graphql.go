package events

import "time"

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	ExecutionID   string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after executing a GraphQL operation.
type GraphQLFinish struct {
	ExecutionID   string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}

// Phase names an execution phase.
type Phase string

const (
	PhaseCompile Phase = "compile"
	// PhaseA evaluates the context-only tree through the data source.
	PhaseA Phase = "phase_a"
	// PhaseB resolves deferred service fields in process.
	PhaseB Phase = "phase_b"
)

// PhaseStart is emitted when an execution phase begins.
type PhaseStart struct {
	ExecutionID string
	Phase       Phase
}

// PhaseFinish is emitted when an execution phase ends. ServiceFields is the
// number of deferred fields and is only set for PhaseB.
type PhaseFinish struct {
	ExecutionID   string
	Phase         Phase
	ServiceFields int
	Err           error
	Duration      time.Duration
}

// FieldError is emitted for every field scoped error added to a result.
type FieldError struct {
	ExecutionID string
	Code        string
}
