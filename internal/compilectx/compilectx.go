// Package compilectx holds the per-execution state shared by the compiler,
// the field model and the executor: options, the requesting user, directive
// decisions, and the service fields deferred to the second phase.
package compilectx

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hanpama/gqlexpr/internal/authz"
	"github.com/hanpama/gqlexpr/internal/expr"
	"github.com/hanpama/gqlexpr/internal/language"
)

// Options control how an operation is compiled and executed.
type Options struct {
	// ExecuteServiceFieldsSeparately defers fields that need services to a
	// second, in-process phase so the data source only sees expressions it
	// can translate.
	ExecuteServiceFieldsSeparately bool
	// IncludeDebugInfo adds per-phase timings to the result extensions.
	IncludeDebugInfo bool
	// NoExecution compiles the operation without evaluating it.
	NoExecution bool
}

func DefaultOptions() Options {
	return Options{ExecuteServiceFieldsSeparately: true}
}

// Extracted is a service-free sub-expression of a deferred field. Phase A
// evaluates it under Name next to the field's marker so phase B can read the
// value back instead of touching the data source.
type Extracted struct {
	Name string
	Expr expr.Expr
}

// ServiceField is a field deferred to phase B.
type ServiceField struct {
	Marker   *expr.MarkerExpr
	Field    string
	Path     []any
	Services []string
	// Live is the complete in-process expression for the field, including
	// the projection of its selection set.
	Live      expr.Expr
	Extracted []Extracted
}

// Context is created for one execution and never reused.
type Context struct {
	id         string
	opts       Options
	user       *authz.User
	authorizer authz.Authorizer
	variables  map[string]any

	fields     []*ServiceField
	byMarker   map[expr.NodeID]*ServiceField
	directives map[*language.Directive]bool
	rebind     *expr.Replacer
}

// New creates a context. A nil authorizer checks roles only.
func New(opts Options, user *authz.User, authorizer authz.Authorizer, variables map[string]any) *Context {
	if authorizer == nil {
		authorizer = authz.RoleAuthorizer{}
	}
	if variables == nil {
		variables = map[string]any{}
	}
	return &Context{
		id:         uuid.NewString(),
		opts:       opts,
		user:       user,
		authorizer: authorizer,
		variables:  variables,
		byMarker:   map[expr.NodeID]*ServiceField{},
		directives: map[*language.Directive]bool{},
		rebind:     expr.NewReplacer(),
	}
}

// ID identifies the execution in logs and debug output.
func (c *Context) ID() string { return c.id }

func (c *Context) Options() Options { return c.opts }

func (c *Context) User() *authz.User { return c.user }

func (c *Context) Variables() map[string]any { return c.variables }

func (c *Context) Authorize(ctx context.Context, req *authz.RequiredAuthorization) (bool, error) {
	if req.IsEmpty() {
		return true, nil
	}
	return c.authorizer.IsAuthorized(ctx, c.user, req)
}

// Defer registers a service field and returns the marker that stands in for
// it in phase A.
func (c *Context) Defer(field string, path []any, live expr.Expr) *expr.MarkerExpr {
	m := expr.Marker(field)
	sf := &ServiceField{Marker: m, Field: field, Path: path}
	c.fields = append(c.fields, sf)
	c.byMarker[m.ID()] = sf
	c.SetLive(m, live)
	return m
}

// SetLive replaces the live expression of a deferred field and recomputes its
// extracted values.
func (c *Context) SetLive(m *expr.MarkerExpr, live expr.Expr) {
	sf, ok := c.byMarker[m.ID()]
	if !ok {
		panic(fmt.Sprintf("compilectx: unknown marker for %s", m.Field))
	}
	sf.Live = live
	sf.Services = expr.Services(live)
	core := expr.ExtractCore(live)
	sf.Extracted = make([]Extracted, len(core))
	for i, e := range core {
		sf.Extracted[i] = Extracted{Name: fmt.Sprintf("__svc%d_%d", m.ID(), i), Expr: e}
	}
}

func (c *Context) ServiceField(m *expr.MarkerExpr) (*ServiceField, bool) {
	sf, ok := c.byMarker[m.ID()]
	return sf, ok
}

// ServiceFields returns the deferred fields in registration order.
func (c *Context) ServiceFields() []*ServiceField { return c.fields }

// RecordDirective stores whether the selection carrying d is included.
func (c *Context) RecordDirective(d *language.Directive, include bool) {
	c.directives[d] = include
}

func (c *Context) DirectiveResult(d *language.Directive) (include, ok bool) {
	include, ok = c.directives[d]
	return include, ok
}

// Rebind records a phase-B substitution applied by Rebinder.
func (c *Context) Rebind(from, to expr.Expr) { c.rebind.Set(from, to) }

func (c *Context) Rebinder() *expr.Replacer { return c.rebind }
