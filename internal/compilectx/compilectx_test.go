package compilectx

import (
	"context"
	"testing"

	"github.com/hanpama/gqlexpr/internal/authz"
	"github.com/hanpama/gqlexpr/internal/expr"
	"github.com/hanpama/gqlexpr/internal/language"
	"github.com/stretchr/testify/require"
)

func TestDeferExtractsCoreValues(t *testing.T) {
	c := New(DefaultOptions(), nil, nil, nil)
	p := expr.NewParam("p")
	live := expr.Call("age", func(context.Context, []any) (any, error) { return 0, nil },
		expr.Service("ages"), expr.Member(p, "birthday"))

	m := c.Defer("age", []any{"people", "age"}, live)
	sf, ok := c.ServiceField(m)
	require.True(t, ok)
	require.Equal(t, []string{"ages"}, sf.Services)
	require.Len(t, sf.Extracted, 1)
	require.Equal(t, "p.birthday", expr.Format(sf.Extracted[0].Expr))
	require.Equal(t, []*ServiceField{sf}, c.ServiceFields())

	// replacing the live expression recomputes extraction
	c.SetLive(m, expr.Call("now", func(context.Context, []any) (any, error) { return 0, nil }, expr.Service("clock")))
	require.Empty(t, sf.Extracted)
	require.Equal(t, []string{"clock"}, sf.Services)
}

func TestContextsAreIndependent(t *testing.T) {
	a := New(DefaultOptions(), nil, nil, nil)
	b := New(DefaultOptions(), nil, nil, nil)
	require.NotEqual(t, a.ID(), b.ID())

	d := &language.Directive{Name: "skip"}
	a.RecordDirective(d, false)
	include, ok := a.DirectiveResult(d)
	require.True(t, ok)
	require.False(t, include)
	_, ok = b.DirectiveResult(d)
	require.False(t, ok)
}

func TestAuthorize(t *testing.T) {
	req := &authz.RequiredAuthorization{}
	req.RequireAnyRole("admin")

	c := New(DefaultOptions(), &authz.User{ID: "1", Roles: []string{"admin"}}, nil, nil)
	ok, err := c.Authorize(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)

	c = New(DefaultOptions(), nil, nil, nil)
	ok, err = c.Authorize(context.Background(), req)
	require.NoError(t, err)
	require.False(t, ok)
}
