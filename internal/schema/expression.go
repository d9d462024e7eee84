package schema

import (
	"context"

	"github.com/hanpama/gqlexpr/internal/compilectx"
	"github.com/hanpama/gqlexpr/internal/expr"
	"github.com/hanpama/gqlexpr/internal/language"
)

// Extension rewrites a field. Configure runs once when the schema is frozen
// and may add arguments, rewrite the return type or register helper types.
// GetExpression runs for every selection of the field and wraps the
// expression built so far.
type Extension interface {
	Configure(s *Schema, f *Field) error
	// GetExpression returns the wrapped expression and, optionally, the
	// parameter the field's selection set must be compiled against.
	GetExpression(ctx context.Context, req ExtensionRequest) (expr.Expr, *expr.Param, error)
}

// ParentNode is the compiled node a field is attached to.
type ParentNode interface {
	ResponsePath() []any
}

// ExpressionRequest carries what GetExpression needs for one selection.
type ExpressionRequest struct {
	// FieldExpression overrides the field's resolve expression.
	FieldExpression expr.Expr
	// FieldContext is the parent expression the field parameter is
	// rebased onto.
	FieldContext expr.Expr
	Parent       ParentNode
	// SchemaContext replaces the schema's context parameter when set.
	SchemaContext  *expr.Param
	CompileContext *compilectx.Context
	// Arguments are the coerced argument values of this selection.
	Arguments  map[string]any
	Variables  map[string]any
	Directives language.DirectiveList
	// ContextChanged is set beneath a deferred field: the expression will
	// be evaluated in process, so it is returned live instead of deferred.
	ContextChanged bool
	// Replacer carries substitutions applied together with the rebasing.
	Replacer *expr.Replacer
	Path     []any
}

// ExtensionRequest is passed to each extension in turn.
type ExtensionRequest struct {
	Field          *Field
	Expression     expr.Expr
	Arguments      map[string]any
	Parent         ParentNode
	CompileContext *compilectx.Context
	Directives     language.DirectiveList
	ContextChanged bool
	Path           []any
}

// GetExpression builds the expression resolving f for one selection.
//
// Authorization is checked first and fails with *AuthorizationError.
// Validators then run over the coerced arguments and fail with
// *ArgumentError. The resolve expression is rebased onto the field context,
// arguments are bound as constants and every extension wraps the result in
// registration order. When the field needs services and the execution runs
// service fields separately, the expression is registered with the compile
// context and a marker is returned in its place.
//
// The returned parameter, when not nil, is the one the selection set of the
// field must be compiled against.
func (f *Field) GetExpression(ctx context.Context, req ExpressionRequest) (expr.Expr, *expr.Param, error) {
	cc := req.CompileContext
	typeName := ""
	if f.FromType != nil {
		typeName = f.FromType.Name
	}
	if need := f.RequiredAuthorization(); !need.IsEmpty() {
		if cc == nil {
			return nil, nil, &AuthorizationError{Type: typeName, Field: f.Name}
		}
		ok, err := cc.Authorize(ctx, need)
		if err != nil || !ok {
			return nil, nil, &AuthorizationError{Type: typeName, Field: f.Name, Err: err}
		}
	}

	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}
	if err := f.validateArguments(ctx, args); err != nil {
		return nil, nil, err
	}

	e := req.FieldExpression
	if e == nil {
		e = f.ResolveExpression
	}
	if e == nil {
		e = expr.Member(req.FieldContext, f.Name)
	} else {
		r := req.Replacer
		if r == nil {
			r = expr.NewReplacer()
		}
		r.Set(f.FieldParam, req.FieldContext)
		r.Set(f.ArgumentParam, expr.Const(args))
		if s := f.schema(); s != nil && req.SchemaContext != nil && req.SchemaContext != s.ContextParam {
			r.Set(s.ContextParam, req.SchemaContext)
		}
		e = r.Apply(e)
	}

	var child *expr.Param
	for _, ext := range f.Extensions {
		wrapped, p, err := ext.GetExpression(ctx, ExtensionRequest{
			Field:          f,
			Expression:     e,
			Arguments:      args,
			Parent:         req.Parent,
			CompileContext: cc,
			Directives:     req.Directives,
			ContextChanged: req.ContextChanged,
			Path:           req.Path,
		})
		if err != nil {
			return nil, nil, err
		}
		e = wrapped
		if p != nil {
			child = p
		}
	}

	if cc != nil && cc.Options().ExecuteServiceFieldsSeparately && !req.ContextChanged &&
		(len(f.Services()) > 0 || expr.HasService(e)) {
		return cc.Defer(f.Name, req.Path, e), child, nil
	}
	return e, child, nil
}

func (f *Field) schema() *Schema {
	if f.FromType == nil {
		return nil
	}
	return f.FromType.schema
}
