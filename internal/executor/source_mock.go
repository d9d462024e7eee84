package executor

import (
	"context"
	"sync"

	expr "github.com/hanpama/gqlexpr/internal/expr"
)

// MockDataSource evaluates trees in process and records every tree it was
// asked to evaluate, formatted with expr.Format.
type MockDataSource struct {
	mu    sync.Mutex
	err   error
	trees []string
}

func NewMockDataSource() *MockDataSource { return &MockDataSource{} }

// NewMockErrorDataSource returns a source that fails every evaluation.
func NewMockErrorDataSource(err error) *MockDataSource { return &MockDataSource{err: err} }

func (m *MockDataSource) Evaluate(ctx context.Context, tree expr.Expr, env *expr.Env) (any, error) {
	m.mu.Lock()
	m.trees = append(m.trees, expr.Format(tree))
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return expr.Eval(ctx, tree, env)
}

// Trees returns the recorded trees in evaluation order.
func (m *MockDataSource) Trees() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.trees...)
}
