package expr

import (
	"context"
	"fmt"
	"sort"
)

// ServiceResolver returns service instances by name.
type ServiceResolver interface {
	Resolve(ctx context.Context, name string) (any, error)
}

// Interceptor lets a data source evaluate a node natively. It reports
// handled=false to fall back to in-process evaluation.
type Interceptor func(ctx context.Context, e Expr, env *Env) (value any, handled bool, err error)

// GuardHandler receives failures isolated by a GuardExpr. path is the
// response path at the guard: object keys as strings, list indexes as ints.
type GuardHandler func(path []any, label string, err error)

type binding struct {
	param *Param
	value any
	next  *binding
}

type pathSegment struct {
	key  any
	prev *pathSegment
}

type envShared struct {
	root      *Param
	services  ServiceResolver
	intercept Interceptor
	guard     GuardHandler
}

// Env is the immutable evaluation environment: parameter bindings, the
// service resolver, an optional data-source interceptor and the current
// response path. Deriving an environment never affects its parent.
type Env struct {
	shared   *envShared
	bindings *binding
	path     *pathSegment
}

type EnvOption func(*envShared)

// WithServices sets the resolver ServiceExpr nodes are evaluated through.
func WithServices(r ServiceResolver) EnvOption {
	return func(s *envShared) { s.services = r }
}

func WithInterceptor(i Interceptor) EnvOption {
	return func(s *envShared) { s.intercept = i }
}

func WithGuardHandler(h GuardHandler) EnvOption {
	return func(s *envShared) { s.guard = h }
}

// NewEnv creates an environment whose root parameter is bound to value.
// root may be nil for expressions without a root context.
func NewEnv(root *Param, value any, opts ...EnvOption) *Env {
	s := &envShared{root: root}
	for _, o := range opts {
		o(s)
	}
	env := &Env{shared: s}
	if root != nil {
		env = env.Bind(root, value)
	}
	return env
}

// Root returns the parameter the environment was created for.
func (env *Env) Root() *Param { return env.shared.root }

// Bind returns a child environment with p bound to v.
func (env *Env) Bind(p *Param, v any) *Env {
	return &Env{shared: env.shared, bindings: &binding{param: p, value: v, next: env.bindings}, path: env.path}
}

// Lookup returns the value bound to p.
func (env *Env) Lookup(p *Param) (any, bool) {
	for b := env.bindings; b != nil; b = b.next {
		if b.param == p {
			return b.value, true
		}
	}
	return nil, false
}

// WithInterceptor returns a copy of the environment evaluated through i.
func (env *Env) WithInterceptor(i Interceptor) *Env {
	s := *env.shared
	s.intercept = i
	return &Env{shared: &s, bindings: env.bindings, path: env.path}
}

func (env *Env) push(key any) *Env {
	return &Env{shared: env.shared, bindings: env.bindings, path: &pathSegment{key: key, prev: env.path}}
}

// Path returns the current response path.
func (env *Env) Path() []any {
	var n int
	for s := env.path; s != nil; s = s.prev {
		n++
	}
	out := make([]any, n)
	for s := env.path; s != nil; s = s.prev {
		n--
		out[n] = s.key
	}
	return out
}

// Eval evaluates e in env.
func Eval(ctx context.Context, e Expr, env *Env) (any, error) {
	if i := env.shared.intercept; i != nil {
		v, handled, err := i(ctx, e, env)
		if handled || err != nil {
			return v, err
		}
	}
	switch e := e.(type) {
	case *Param:
		v, ok := env.Lookup(e)
		if !ok {
			return nil, fmt.Errorf("unbound parameter %s", e.Name)
		}
		return v, nil
	case *ConstExpr:
		return e.Value, nil
	case *MarkerExpr:
		return nil, nil
	case *MemberExpr:
		target, err := Eval(ctx, e.Target, env)
		if err != nil {
			return nil, err
		}
		return ReadMember(target, e.Name)
	case *ObjectExpr:
		out := make(map[string]any, len(e.Fields))
		for _, f := range e.Fields {
			v, err := Eval(ctx, f.Value, env.push(f.Name))
			if err != nil {
				return nil, err
			}
			out[f.Name] = v
		}
		return out, nil
	case *SelectExpr:
		items, err := evalSeq(ctx, e.Source, env)
		if err != nil || items == nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			if isNil(item) {
				continue
			}
			inner := env.push(i).Bind(e.Item, item)
			if e.Index != nil {
				inner = inner.Bind(e.Index, i)
			}
			if out[i], err = Eval(ctx, e.Body, inner); err != nil {
				return nil, err
			}
		}
		return out, nil
	case *ProjectExpr:
		src, err := Eval(ctx, e.Source, env)
		if err != nil || isNil(src) {
			return nil, err
		}
		return Eval(ctx, e.Body, env.Bind(e.Item, src))
	case *WhereExpr:
		items, err := evalSeq(ctx, e.Source, env)
		if err != nil || items == nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := Eval(ctx, e.Predicate, env.Bind(e.Item, item))
			if err != nil {
				return nil, err
			}
			keep, err := truthy(v)
			if err != nil {
				return nil, fmt.Errorf("where predicate: %w", err)
			}
			if keep {
				out = append(out, item)
			}
		}
		return out, nil
	case *OrderByExpr:
		items, err := evalSeq(ctx, e.Source, env)
		if err != nil || items == nil {
			return nil, err
		}
		return sortItems(items, e.Keys)
	case *CountExpr:
		items, err := evalSeq(ctx, e.Source, env)
		if err != nil {
			return nil, err
		}
		return len(items), nil
	case *FirstExpr:
		items, err := evalSeq(ctx, e.Source, env)
		if err != nil || len(items) == 0 {
			return nil, err
		}
		return items[0], nil
	case *PageExpr:
		items, err := evalSeq(ctx, e.Source, env)
		if err != nil {
			return nil, err
		}
		start, end, err := e.Pager.Window(len(items))
		if err != nil {
			return nil, err
		}
		if start < 0 || start > end || end > len(items) {
			return nil, fmt.Errorf("page window [%d, %d) out of range for %d items", start, end, len(items))
		}
		return e.Pager.Build(items[start:end], start, len(items))
	case *BinaryExpr:
		return evalBinary(ctx, e, env)
	case *CallExpr:
		args := make([]any, len(e.Args))
		for i, a := range e.Args {
			v, err := Eval(ctx, a, env)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		v, err := e.Fn(ctx, args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name, err)
		}
		return v, nil
	case *ServiceExpr:
		if env.shared.services == nil {
			return nil, &ServiceError{Name: e.Name, Err: fmt.Errorf("no service resolver")}
		}
		v, err := env.shared.services.Resolve(ctx, e.Name)
		if err != nil {
			return nil, &ServiceError{Name: e.Name, Err: err}
		}
		return v, nil
	case *GuardExpr:
		v, err := Eval(ctx, e.Body, env)
		if err != nil {
			if h := env.shared.guard; h != nil {
				h(env.Path(), e.Label, err)
			}
			return nil, nil
		}
		return v, nil
	case nil:
		return nil, fmt.Errorf("nil expression")
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

// ServiceError reports a service that could not be resolved.
type ServiceError struct {
	Name string
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("resolve service %s: %v", e.Name, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func evalSeq(ctx context.Context, e Expr, env *Env) ([]any, error) {
	v, err := Eval(ctx, e, env)
	if err != nil {
		return nil, err
	}
	return ToSlice(v)
}

func evalBinary(ctx context.Context, e *BinaryExpr, env *Env) (any, error) {
	left, err := Eval(ctx, e.Left, env)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case OpAnd, OpOr:
		l, err := truthy(left)
		if err != nil {
			return nil, err
		}
		if (e.Op == OpAnd && !l) || (e.Op == OpOr && l) {
			return l, nil
		}
		right, err := Eval(ctx, e.Right, env)
		if err != nil {
			return nil, err
		}
		return truthy(right)
	}
	right, err := Eval(ctx, e.Right, env)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case OpEq:
		return equal(left, right), nil
	case OpNe:
		return !equal(left, right), nil
	case OpAdd, OpSub:
		return arith(e.Op, left, right)
	}
	if deref(left) == nil || deref(right) == nil {
		return false, nil
	}
	c, err := Compare(left, right)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case OpLt:
		return c < 0, nil
	case OpLe:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	case OpGe:
		return c >= 0, nil
	}
	return nil, fmt.Errorf("unknown operator %s", e.Op)
}

func sortItems(items []any, keys []SortKey) ([]any, error) {
	out := make([]any, len(items))
	copy(out, items)
	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		for _, k := range keys {
			a, err := ReadMember(out[i], k.Name)
			if err != nil {
				sortErr = err
				return false
			}
			b, err := ReadMember(out[j], k.Name)
			if err != nil {
				sortErr = err
				return false
			}
			c, err := Compare(a, b)
			if err != nil {
				sortErr = err
				return false
			}
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}
