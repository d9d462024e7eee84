package introspection_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/gqlexpr/internal/executor"
	introspection "github.com/hanpama/gqlexpr/internal/introspection"
	language "github.com/hanpama/gqlexpr/internal/language"
	schema "github.com/hanpama/gqlexpr/internal/schema"
)

func newExecutor(t *testing.T, sdl string) *executor.Executor {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	require.NoError(t, sch.Freeze())
	return executor.NewExecutor(executor.NewMockDataSource(), sch,
		executor.WithMetaSchema(introspection.NewMetaSchema(sch)))
}

func run(t *testing.T, exec *executor.Executor, query string) *executor.ExecutionResult {
	t.Helper()
	doc, errs := language.LoadQuery(exec.Schema().ValidationSchema(), query)
	require.Empty(t, errs)
	return exec.ExecuteRequest(context.Background(), doc, "", nil, map[string]any{"hello": "world"})
}

func TestSchemaQueryType(t *testing.T) {
	exec := newExecutor(t, `type Query { hello: String }`)

	gotRes := run(t, exec, `{ hello __schema { queryType { name kind } mutationType { name } } }`)
	wantRes := &executor.ExecutionResult{
		Data: map[string]any{
			"hello": "world",
			"__schema": map[string]any{
				"queryType":    map[string]any{"name": "Query", "kind": "OBJECT"},
				"mutationType": nil,
			},
		},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestTypeLookup(t *testing.T) {
	exec := newExecutor(t, `
		type Query { person(id: ID!): Person }
		type Person {
			name: String!
			nick: String @deprecated(reason: "use name")
			friends: [Person!]
		}
	`)

	gotRes := run(t, exec, `{
		__type(name: "Person") {
			name
			kind
			fields { name type { kind name ofType { kind name ofType { kind name } } } }
			all: fields(includeDeprecated: true) { name isDeprecated deprecationReason }
		}
		missing: __type(name: "Nope") { name }
	}`)
	typ := func(kind string, name any, ofType any) map[string]any {
		return map[string]any{"kind": kind, "name": name, "ofType": ofType}
	}
	wantRes := &executor.ExecutionResult{
		Data: map[string]any{
			"__type": map[string]any{
				"name": "Person",
				"kind": "OBJECT",
				"fields": []any{
					map[string]any{"name": "name", "type": typ("NON_NULL", nil, map[string]any{"kind": "SCALAR", "name": "String", "ofType": nil})},
					map[string]any{"name": "friends", "type": typ("LIST", nil, map[string]any{"kind": "NON_NULL", "name": nil, "ofType": map[string]any{"kind": "OBJECT", "name": "Person"}})},
				},
				"all": []any{
					map[string]any{"name": "name", "isDeprecated": false, "deprecationReason": nil},
					map[string]any{"name": "nick", "isDeprecated": true, "deprecationReason": "use name"},
					map[string]any{"name": "friends", "isDeprecated": false, "deprecationReason": nil},
				},
			},
			"missing": nil,
		},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestTypesIncludeMetaTypes(t *testing.T) {
	exec := newExecutor(t, `enum Mood { HAPPY SAD } type Query { mood: Mood }`)

	res := run(t, exec, `{ __schema { types { name } directives { name locations args { name defaultValue } } } }`)
	require.Empty(t, res.Errors)
	sch := res.Data.(map[string]any)["__schema"].(map[string]any)
	var names []string
	for _, tv := range sch["types"].([]any) {
		names = append(names, tv.(map[string]any)["name"].(string))
	}
	require.Contains(t, names, "Mood")
	require.Contains(t, names, "__Type")
	require.Contains(t, names, "String")
	require.IsIncreasing(t, names)
	require.Len(t, sch["directives"], 2)
}

func TestTypename(t *testing.T) {
	exec := newExecutor(t, `type Query { hello: String }`)

	gotRes := run(t, exec, `{ __typename __schema { __typename } }`)
	wantRes := &executor.ExecutionResult{
		Data:   map[string]any{"__typename": "Query", "__schema": map[string]any{"__typename": "__Schema"}},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}
