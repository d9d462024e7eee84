// Package memory is a data source that evaluates trees in process over
// ordinary Go values: maps, slices and structs read by expr.ReadMember.
package memory

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	expr "github.com/hanpama/gqlexpr/internal/expr"
)

type Source struct {
	intercept expr.Interceptor
}

type Option func(*Source)

// WithInterceptor evaluates nodes through i first, as a native data source
// would.
func WithInterceptor(i expr.Interceptor) Option {
	return func(s *Source) { s.intercept = i }
}

func New(opts ...Option) *Source {
	s := &Source{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate evaluates tree with expr.Eval. Service nodes are resolved through
// the services of env, so the source also serves single-phase executions.
func (s *Source) Evaluate(ctx context.Context, tree expr.Expr, env *expr.Env) (any, error) {
	if s.intercept != nil {
		env = env.WithInterceptor(s.intercept)
	}
	start := time.Now()
	v, err := expr.Eval(ctx, tree, env)
	entry := log.WithFields(log.Fields{"duration": time.Since(start)})
	if log.IsLevelEnabled(log.TraceLevel) {
		entry = entry.WithField("tree", expr.Format(tree))
	}
	if err != nil {
		entry.WithError(err).Debug("memory evaluation failed")
	} else {
		entry.Debug("memory evaluation finished")
	}
	return v, err
}
