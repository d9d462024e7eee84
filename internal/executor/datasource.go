package executor

import (
	"context"

	expr "github.com/hanpama/gqlexpr/internal/expr"
)

// DataSource evaluates the context-only expression tree of an operation.
//
// General contract
//   - Evaluate is called at most once per execution, with the phase-A tree
//     of the operation. The tree is an object expression whose fields are the
//     root response names; the returned value must be the materialized object
//     (map[string]any or any value expr.ReadMember can read).
//   - env binds the schema's context parameter to the root value passed to
//     ExecuteRequest and carries the execution's service resolver and guard
//     handler. Sources that evaluate part of the tree in process must do so
//     with env or an environment derived from it, so guarded fields report
//     their failures.
//   - When service fields execute separately the tree contains no service
//     nodes. In single-phase mode it may; sources that cannot resolve them
//     must fail instead of returning partial data.
//   - An error fails the whole operation: the result carries one
//     DATA_SOURCE_FAILED error and no data.
//   - Implementations must be safe for concurrent use by different
//     executions and must not retain the tree or env after returning.
//
// Ordering
//   - Element order and element counts of lists are part of the result. Phase
//     B never re-queries the source and never reorders what it returned.
type DataSource interface {
	Evaluate(ctx context.Context, tree expr.Expr, env *expr.Env) (any, error)
}

// DataSourceFunc adapts a function to DataSource.
type DataSourceFunc func(ctx context.Context, tree expr.Expr, env *expr.Env) (any, error)

func (f DataSourceFunc) Evaluate(ctx context.Context, tree expr.Expr, env *expr.Env) (any, error) {
	return f(ctx, tree, env)
}
