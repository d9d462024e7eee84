package connection

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/gqlexpr/internal/compilectx"
	"github.com/hanpama/gqlexpr/internal/expr"
	"github.com/hanpama/gqlexpr/internal/schema"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCursorRoundTrip(t *testing.T) {
	for n := 0; n < 2000; n++ {
		got, err := DecodeCursor(EncodeCursor(n))
		require.NoError(t, err)
		require.Equal(t, n, got)
	}
	require.Equal(t, "MQ==", EncodeCursor(1))
}

func TestDecodeCursorRejectsForeignStrings(t *testing.T) {
	for _, c := range []string{
		"",
		"not base64!",
		"YWJj",     // "abc"
		"LTE=",     // "-1"
		"MDE=",     // "01"
		"MQ",       // unpadded
		"ICAx",     // "  1"
		"MS41",     // "1.5"
		// overflows int
		"OTk5OTk5OTk5OTk5OTk5OTk5OTk5OTk5",
	} {
		_, err := DecodeCursor(c)
		var invalid *InvalidCursorError
		require.ErrorAs(t, err, &invalid, "cursor %q", c)
		require.Equal(t, c, invalid.Cursor)
	}
}

func TestPaginateFirst(t *testing.T) {
	for total := 0; total <= 8; total++ {
		for first := 0; first <= total; first++ {
			w, err := Paginate(total, Args{First: ptr(first)})
			require.NoError(t, err)
			require.Equal(t, min(first, total), w.Len())
			require.Equal(t, first < total, w.HasNextPage)
			require.False(t, w.HasPreviousPage)
		}
	}
}

func TestPaginateLast(t *testing.T) {
	for total := 0; total <= 8; total++ {
		for last := 0; last <= total; last++ {
			w, err := Paginate(total, Args{Last: ptr(last)})
			require.NoError(t, err)
			require.Equal(t, min(last, total), w.Len())
			require.Equal(t, last < total, w.HasPreviousPage)
			require.False(t, w.HasNextPage)
		}
	}
}

func TestPaginateCursors(t *testing.T) {
	tests := []struct {
		name string
		args Args
		want Window
	}{
		{"none", Args{}, Window{Start: 0, End: 5}},
		{"after", Args{After: ptr(2)}, Window{Start: 2, End: 5, HasPreviousPage: true}},
		{"before", Args{Before: ptr(4)}, Window{Start: 0, End: 3, HasNextPage: true}},
		{"after and before", Args{After: ptr(1), Before: ptr(5)}, Window{Start: 1, End: 4, HasNextPage: true, HasPreviousPage: true}},
		{"crossed cursors", Args{After: ptr(4), Before: ptr(2)}, Window{Start: 4, End: 4, HasNextPage: true, HasPreviousPage: true}},
		{"after the end", Args{After: ptr(9)}, Window{Start: 5, End: 5, HasPreviousPage: true}},
		{"before the start", Args{Before: ptr(0)}, Window{Start: 0, End: 0, HasNextPage: true}},
		{"first then last", Args{First: ptr(4), Last: ptr(2)}, Window{Start: 2, End: 4, HasNextPage: true, HasPreviousPage: true}},
		{"first zero", Args{After: ptr(1), First: ptr(0)}, Window{Start: 1, End: 1, HasNextPage: true, HasPreviousPage: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Paginate(5, tt.args)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("window mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPaginateRejectsNegativeSizes(t *testing.T) {
	_, err := Paginate(5, Args{First: ptr(-1)})
	require.Error(t, err)
	_, err = Paginate(5, Args{Last: ptr(-3)})
	require.Error(t, err)
}

func people() []any {
	out := make([]any, 5)
	for i := range out {
		out[i] = map[string]any{"id": i + 1}
	}
	return out
}

func evalConnection(t *testing.T, args Args) *Connection {
	t.Helper()
	root := expr.NewParam("ctx")
	e := expr.Page(expr.Member(root, "people"), connectionPager{args: args})
	v, err := expr.Eval(context.Background(), e, expr.NewEnv(root, map[string]any{"people": people()}))
	require.NoError(t, err)
	return v.(*Connection)
}

func ids(c *Connection) []any {
	out := make([]any, len(c.Edges))
	for i, e := range c.Edges {
		out[i] = e.Node.(map[string]any)["id"]
	}
	return out
}

func TestFivePeople(t *testing.T) {
	c := evalConnection(t, Args{})
	require.Equal(t, []any{1, 2, 3, 4, 5}, ids(c))
	require.False(t, c.PageInfo.HasNextPage)
	require.False(t, c.PageInfo.HasPreviousPage)
	require.Equal(t, EncodeCursor(1), *c.PageInfo.StartCursor)
	require.Equal(t, EncodeCursor(5), *c.PageInfo.EndCursor)
	require.Equal(t, 5, c.TotalCount)

	c = evalConnection(t, Args{First: ptr(1)})
	require.Equal(t, []any{1}, ids(c))
	require.True(t, c.PageInfo.HasNextPage)
	require.Equal(t, *c.PageInfo.StartCursor, *c.PageInfo.EndCursor)

	c = evalConnection(t, Args{First: ptr(2), After: ptr(1)})
	require.Equal(t, []any{2, 3}, ids(c))
	require.True(t, c.PageInfo.HasNextPage)
	require.True(t, c.PageInfo.HasPreviousPage)
	require.Equal(t, EncodeCursor(2), c.Edges[0].Cursor)
	require.Equal(t, EncodeCursor(3), c.Edges[1].Cursor)

	c = evalConnection(t, Args{Last: ptr(2)})
	require.Equal(t, []any{4, 5}, ids(c))
	require.True(t, c.PageInfo.HasPreviousPage)
	require.False(t, c.PageInfo.HasNextPage)
	require.Equal(t, EncodeCursor(4), *c.PageInfo.StartCursor)

	c = evalConnection(t, Args{Last: ptr(3), Before: ptr(4)})
	require.Equal(t, []any{1, 2, 3}, ids(c))
	require.True(t, c.PageInfo.HasNextPage)
	require.False(t, c.PageInfo.HasPreviousPage)
	require.Equal(t, 5, c.TotalCount)
}

func TestEmptyConnection(t *testing.T) {
	root := expr.NewParam("ctx")
	e := expr.Page(expr.Member(root, "people"), connectionPager{args: Args{First: ptr(3)}})
	v, err := expr.Eval(context.Background(), e, expr.NewEnv(root, map[string]any{"people": []any{}}))
	require.NoError(t, err)
	want := &Connection{Edges: []Edge{}}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("connection mismatch (-want +got):\n%s", diff)
	}
}

func newPagedSchema(t *testing.T, ext schema.Extension) *schema.Schema {
	t.Helper()
	return newPagedSchemaOf(t, schema.ListType(schema.NamedType("Person")), ext)
}

func newPagedSchemaOf(t *testing.T, list *schema.TypeRef, ext schema.Extension) *schema.Schema {
	t.Helper()
	s := schema.NewSchema("")
	s.AddType(schema.NewType("Person", schema.TypeKindObject, "").
		AddField(schema.NewField("id", "", schema.NonNullType(schema.NamedType("Int")))))
	s.Query().AddField(schema.NewField("people", "", list).AddExtension(ext))
	require.NoError(t, s.Freeze())
	return s
}

func TestConnectionPagingConfigure(t *testing.T) {
	s := newPagedSchema(t, UseConnectionPaging())
	f := s.Query().Field("people")
	require.Equal(t, "PersonConnection", f.Type.String())
	require.Equal(t, "[Person]", f.DeclaredType().String())

	sdl := schema.Render(s)
	for _, want := range []string{
		"people(first: Int, after: String, last: Int, before: String): PersonConnection\n",
		"type PersonConnection {\n  edges: [PersonEdge!]!\n  pageInfo: PageInfo!\n  totalCount: Int!\n}",
		"type PersonEdge {\n  node: Person!\n  cursor: String!\n}",
		"startCursor: String",
	} {
		require.True(t, strings.Contains(sdl, want), "missing %q in\n%s", want, sdl)
	}
	require.Equal(t, schema.FieldTypeQuery, s.Types["PersonConnection"].Field("edges").FieldType)
}

func TestPagingKeepsListNullability(t *testing.T) {
	nonNullList := schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType("Person"))))
	tests := []struct {
		name string
		list *schema.TypeRef
		ext  func() schema.Extension
		want string
	}{
		{"nullable connection", schema.ListType(schema.NamedType("Person")), func() schema.Extension { return UseConnectionPaging() }, "PersonConnection"},
		{"non-null connection", nonNullList, func() schema.Extension { return UseConnectionPaging() }, "PersonConnection!"},
		{"nullable page", schema.ListType(schema.NamedType("Person")), func() schema.Extension { return UseOffsetPaging() }, "PersonPage"},
		{"non-null page", nonNullList, func() schema.Extension { return UseOffsetPaging() }, "PersonPage!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newPagedSchemaOf(t, tt.list, tt.ext())
			require.Equal(t, tt.want, s.Query().Field("people").Type.String())
		})
	}
}

func TestConnectionPagingRejectsNonLists(t *testing.T) {
	s := schema.NewSchema("")
	s.Query().AddField(schema.NewField("count", "", schema.NamedType("Int")).AddExtension(UseConnectionPaging()))
	require.Error(t, s.Freeze())
}

func getExpression(t *testing.T, f *schema.Field, args map[string]any) (expr.Expr, error) {
	t.Helper()
	cc := compilectx.New(compilectx.DefaultOptions(), nil, nil, nil)
	e, _, err := f.GetExpression(context.Background(), schema.ExpressionRequest{
		FieldContext:   expr.NewParam("ctx"),
		CompileContext: cc,
		Arguments:      args,
	})
	return e, err
}

func TestConnectionPagingGetExpression(t *testing.T) {
	s := newPagedSchema(t, UseConnectionPaging(WithDefaultPageSize(2), WithMaxPageSize(3)))
	f := s.Query().Field("people")

	e, err := getExpression(t, f, map[string]any{"first": 2, "after": EncodeCursor(1)})
	require.NoError(t, err)
	require.Equal(t, "ctx.people.Page(connection(first: 2, after: 1))", expr.Format(e))

	e, err = getExpression(t, f, map[string]any{})
	require.NoError(t, err)
	require.Equal(t, "ctx.people.Page(connection(first: 2))", expr.Format(e))

	_, err = getExpression(t, f, map[string]any{"after": "garbage"})
	var invalid *InvalidCursorError
	require.ErrorAs(t, err, &invalid)

	var argErr *schema.ArgumentError
	_, err = getExpression(t, f, map[string]any{"first": -1})
	require.ErrorAs(t, err, &argErr)
	_, err = getExpression(t, f, map[string]any{"last": 4})
	require.ErrorAs(t, err, &argErr)
}

func TestOffsetPaging(t *testing.T) {
	s := newPagedSchema(t, UseOffsetPaging())
	f := s.Query().Field("people")
	require.Equal(t, "PersonPage", f.Type.String())

	e, err := getExpression(t, f, map[string]any{"skip": 1, "take": 2})
	require.NoError(t, err)
	page := e.(*expr.PageExpr)
	root := page.Source.(*expr.MemberExpr).Target.(*expr.Param)
	v, err := expr.Eval(context.Background(), e, expr.NewEnv(root, map[string]any{"people": people()}))
	require.NoError(t, err)
	want := &OffsetPage{
		Items:           []any{map[string]any{"id": 2}, map[string]any{"id": 3}},
		TotalItems:      5,
		HasNextPage:     true,
		HasPreviousPage: true,
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("page mismatch (-want +got):\n%s", diff)
	}

	_, err = getExpression(t, f, map[string]any{"skip": -2})
	var argErr *schema.ArgumentError
	require.ErrorAs(t, err, &argErr)
}
