package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	authz "github.com/hanpama/gqlexpr/internal/authz"
	compilectx "github.com/hanpama/gqlexpr/internal/compilectx"
	compiler "github.com/hanpama/gqlexpr/internal/compiler"
	eventbus "github.com/hanpama/gqlexpr/internal/eventbus"
	events "github.com/hanpama/gqlexpr/internal/events"
	expr "github.com/hanpama/gqlexpr/internal/expr"
	language "github.com/hanpama/gqlexpr/internal/language"
	schema "github.com/hanpama/gqlexpr/internal/schema"
	services "github.com/hanpama/gqlexpr/internal/services"
)

type Path []PathElement

type PathElement = any

// executionState holds the state during query execution
type executionState struct {
	executor *Executor
	context  context.Context
	cc       *compilectx.Context

	mu      sync.Mutex
	errors  []GraphQLError
	timings map[string]any
}

type Executor struct {
	source     DataSource
	schema     *schema.Schema
	meta       *schema.Schema
	compiler   *compiler.Compiler
	services   *services.Registry
	authorizer authz.Authorizer
	options    compilectx.Options
}

type Option func(*Executor)

// WithServices sets the registry service fields resolve through.
func WithServices(r *services.Registry) Option {
	return func(e *Executor) { e.services = r }
}

// WithAuthorizer sets the authorizer for fields guarded by policies. Without
// one only roles are checked.
func WithAuthorizer(a authz.Authorizer) Option {
	return func(e *Executor) { e.authorizer = a }
}

func WithExecutionOptions(o compilectx.Options) Option {
	return func(e *Executor) { e.options = o }
}

// WithMetaSchema makes the types and root query fields of meta selectable,
// as introspection requires.
func WithMetaSchema(meta *schema.Schema) Option {
	return func(e *Executor) { e.meta = meta }
}

// NewExecutor creates an executor for the frozen schema s.
func NewExecutor(source DataSource, s *schema.Schema, opts ...Option) *Executor {
	e := &Executor{source: source, schema: s, options: compilectx.DefaultOptions()}
	for _, opt := range opts {
		opt(e)
	}
	var copts []compiler.Option
	if e.meta != nil {
		copts = append(copts, compiler.WithMetaSchema(e.meta))
	}
	e.compiler = compiler.New(s, copts...)
	return e
}

func (e *Executor) Schema() *schema.Schema { return e.schema }

func (e *Executor) Options() compilectx.Options { return e.options }

// ExecuteRequest executes the named operation of document against rootValue.
// The requesting user is read from ctx with authz.UserFromContext. ctx is
// checked for cancellation before each phase.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	rootValue any,
) *ExecutionResult {
	operation, err := compiler.GetOperation(document, operationName)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	coercedVariableValues, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{newError(err.Error(), nil, InvalidVariables)}}
	}

	state := &executionState{
		executor: e,
		context:  ctx,
		cc:       compilectx.New(e.options, authz.UserFromContext(ctx), e.authorizer, coercedVariableValues),
		errors:   []GraphQLError{},
		timings:  map[string]any{},
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{
		ExecutionID:   state.cc.ID(),
		OperationName: operation.Name,
		OperationType: string(operation.Operation),
	})
	res := state.execute(document, operation.Name, rootValue)
	errs := make([]error, len(res.Errors))
	for i, err := range res.Errors {
		errs[i] = err
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		ExecutionID:   state.cc.ID(),
		OperationName: operation.Name,
		OperationType: string(operation.Operation),
		Errors:        errs,
		Duration:      time.Since(start),
	})
	return res
}

func (s *executionState) execute(document *language.QueryDocument, operationName string, rootValue any) *ExecutionResult {
	var q *compiler.Query
	err := s.phase(events.PhaseCompile, 0, func() error {
		var err error
		q, err = s.executor.compiler.Compile(s.context, document, operationName, s.cc)
		return err
	})
	if err != nil {
		return s.compileFailed(err)
	}

	// Field errors found while compiling are reported once, at the path of
	// the selection.
	compiler.Walk(q.Nodes, func(n *compiler.Node) {
		if n.Err != nil {
			s.addError(newError(n.Err.Error(), n.Path, classify(n.Err, ArgumentValidationFailed)))
		}
	})

	if s.cc.Options().NoExecution {
		return s.result(map[string]any{})
	}

	env := []expr.EnvOption{
		expr.WithServices(s.executor.services.Scope()),
		expr.WithGuardHandler(s.guardFailed),
	}

	if err := s.context.Err(); err != nil {
		return s.fail(newError(err.Error(), nil, Cancelled))
	}
	phaseA, err := compiler.BuildPhaseA(q)
	if err != nil {
		return s.compileFailed(err)
	}
	var data any
	err = s.phase(events.PhaseA, 0, func() error {
		var err error
		data, err = s.executor.source.Evaluate(s.context, phaseA, expr.NewEnv(q.ContextParam, rootValue, env...))
		return err
	})
	if err != nil {
		return s.fail(newError(err.Error(), nil, DataSourceFailed))
	}

	if compiler.HasPhaseB(q) {
		if err := s.context.Err(); err != nil {
			return s.fail(newError(err.Error(), nil, Cancelled))
		}
		result, phaseB, err := compiler.BuildPhaseB(q)
		if err != nil {
			return s.compileFailed(err)
		}
		err = s.phase(events.PhaseB, len(s.cc.ServiceFields()), func() error {
			var err error
			data, err = expr.Eval(s.context, phaseB, expr.NewEnv(result, data, env...))
			return err
		})
		if err != nil {
			return s.fail(newError(err.Error(), nil, ServiceResolutionFailed))
		}
	}

	completed := s.completeFields(q.Nodes, data, Path{})
	if completed == nil {
		return s.result(nil)
	}
	return s.result(completed)
}

// phase runs one execution phase, publishing its events and recording its
// duration.
func (s *executionState) phase(p events.Phase, serviceFields int, run func() error) error {
	id := s.cc.ID()
	eventbus.Publish(s.context, events.PhaseStart{ExecutionID: id, Phase: p})
	start := time.Now()
	err := run()
	d := time.Since(start)
	eventbus.Publish(s.context, events.PhaseFinish{
		ExecutionID:   id,
		Phase:         p,
		ServiceFields: serviceFields,
		Err:           err,
		Duration:      d,
	})
	fields := log.Fields{"execution": id, "phase": p, "duration": d}
	if p == events.PhaseB {
		fields["serviceFields"] = serviceFields
	}
	if err != nil {
		log.WithFields(fields).WithError(err).Debug("phase failed")
	} else {
		log.WithFields(fields).Debug("phase finished")
	}
	s.timings[string(p)] = float64(d.Microseconds()) / 1000
	return err
}

func (s *executionState) guardFailed(path []any, label string, err error) {
	log.WithFields(log.Fields{"execution": s.cc.ID(), "field": label}).WithError(err).Debug("guarded field failed")
	s.addError(newError(err.Error(), Path(path), classify(err, ServiceResolutionFailed)))
}

// compileFailed reports an error that stopped the operation from compiling.
func (s *executionState) compileFailed(err error) *ExecutionResult {
	var selErr *compiler.SelectionError
	if errors.As(err, &selErr) {
		return s.fail(newError(selErr.Message, selErr.Path, MalformedSelection))
	}
	return s.fail(newError(err.Error(), nil, ""))
}

// fail discards everything produced so far and reports err alone.
func (s *executionState) fail(err GraphQLError) *ExecutionResult {
	s.mu.Lock()
	s.errors = []GraphQLError{err}
	s.mu.Unlock()
	s.publishError(err)
	return s.result(nil)
}

func (s *executionState) result(data any) *ExecutionResult {
	res := &ExecutionResult{Data: data, Errors: s.errors}
	if s.cc.Options().IncludeDebugInfo {
		res.Extensions = map[string]any{
			"executionId":   s.cc.ID(),
			"timings":       s.timings,
			"serviceFields": len(s.cc.ServiceFields()),
		}
	}
	return res
}

// completeFields completes the fields of one object. A nil result means a
// non-null field was null and the object itself must be null.
func (s *executionState) completeFields(nodes []*compiler.Node, objectValue any, path Path) map[string]any {
	out := make(map[string]any, len(nodes))
	for _, n := range nodes {
		p := appendPath(path, n.ResponseName)
		var value any
		if n.Err == nil {
			v, err := expr.ReadMember(objectValue, n.ResponseName)
			if err != nil {
				s.addError(newError(err.Error(), p, DataSourceFailed))
			}
			value = v
		}
		completed := s.completeValue(n, n.Type, value, p)
		if schema.IsNonNull(n.Type) && isNullish(completed) {
			return nil
		}
		out[n.ResponseName] = completed
	}
	return out
}

// completeValue completes a value
func (s *executionState) completeValue(n *compiler.Node, fieldType *schema.TypeRef, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if n.Err == nil && !s.hasErrorAtPath(path) {
				s.addError(newError(fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)), path, ""))
			}
			return nil
		}
		// an inner null already recorded its error; propagate only
		return s.completeValue(n, fieldType.OfType, result, path)
	}

	if isNullish(result) {
		return nil
	}

	if schema.IsList(fieldType) {
		return s.completeListValue(n, fieldType, result, path)
	}

	typeObj := s.lookupType(fieldType.Named)
	if typeObj == nil {
		s.addError(newError(fmt.Sprintf("Unknown type: %s", fieldType.Named), path, ""))
		return nil
	}
	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := serializeLeafValue(typeObj, result)
		if err != nil {
			s.addError(newError(err.Error(), path, DataSourceFailed))
			return nil
		}
		return serialized
	default:
		completed := s.completeFields(n.Children, result, path)
		if completed == nil {
			return nil
		}
		return completed
	}
}

// completeListValue completes a list value
func (s *executionState) completeListValue(n *compiler.Node, listType *schema.TypeRef, result any, path Path) any {
	items, err := expr.ToSlice(result)
	if err != nil {
		s.addError(newError(fmt.Sprintf("Expected list value, got %T", result), path, DataSourceFailed))
		return nil
	}
	inner := listType.OfType
	completed := make([]any, len(items))
	for i, item := range items {
		v := s.completeValue(n, inner, item, appendPath(path, i))
		if schema.IsNonNull(inner) && isNullish(v) {
			// Propagate null to the list field; error already recorded by inner completion
			return nil
		}
		completed[i] = v
	}
	return completed
}

func (s *executionState) lookupType(name string) *schema.Type {
	if t, ok := s.executor.schema.Types[name]; ok {
		return t
	}
	if s.executor.meta != nil {
		return s.executor.meta.Types[name]
	}
	return nil
}

func pathToString(path Path) string {
	result := ""
	for i, elem := range path {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				result += "."
			}
			result += v
		case int:
			result += fmt.Sprintf("[%d]", v)
		}
	}
	return result
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

// Helper function to add an error to the execution state
func (s *executionState) addError(err GraphQLError) {
	s.mu.Lock()
	s.errors = append(s.errors, err)
	s.mu.Unlock()
	s.publishError(err)
}

func (s *executionState) publishError(err GraphQLError) {
	eventbus.Publish(s.context, events.FieldError{ExecutionID: s.cc.ID(), Code: string(err.Code())})
}

// hasErrorAtPath reports whether an error with the given path already exists.
func (s *executionState) hasErrorAtPath(path Path) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, err := range s.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
