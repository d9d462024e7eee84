package demo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	authz "github.com/hanpama/gqlexpr/internal/authz"
	compilectx "github.com/hanpama/gqlexpr/internal/compilectx"
	executor "github.com/hanpama/gqlexpr/internal/executor"
	language "github.com/hanpama/gqlexpr/internal/language"
	server "github.com/hanpama/gqlexpr/internal/server"
)

func apps(t *testing.T) map[string]*App {
	t.Helper()
	out := map[string]*App{}
	for name, dsn := range map[string]string{
		"memory": "",
		"sqlite": filepath.Join(t.TempDir(), "demo.db"),
	} {
		app, err := New(context.Background(), Options{
			SQLiteDSN:     dsn,
			Year:          2020,
			Execution:     compilectx.DefaultOptions(),
			Introspection: true,
		})
		require.NoError(t, err)
		t.Cleanup(func() { app.Close() })
		out[name] = app
	}
	return out
}

func run(t *testing.T, app *App, ctx context.Context, query string) *executor.ExecutionResult {
	t.Helper()
	doc, errs := language.LoadQuery(app.Executor.Schema().ValidationSchema(), query)
	require.Empty(t, errs)
	return app.Executor.ExecuteRequest(ctx, doc, "", nil, app.Root)
}

// Pattern: Result comparison
func TestQueries_Result(t *testing.T) {
	hr := authz.WithUser(context.Background(), &authz.User{ID: "hana", Roles: []string{"hr"}})
	tests := []struct {
		name  string
		ctx   context.Context
		query string
		want  *executor.ExecutionResult
	}{
		{
			name:  "Connection with ages",
			query: `{ people(first: 2) { edges { cursor node { name age } } pageInfo { hasNextPage endCursor } totalCount } }`,
			want: &executor.ExecutionResult{
				Data: map[string]any{"people": map[string]any{
					"edges": []any{
						map[string]any{"cursor": "MQ==", "node": map[string]any{"name": "Ann", "age": 30}},
						map[string]any{"cursor": "Mg==", "node": map[string]any{"name": "Bob", "age": 35}},
					},
					"pageInfo":   map[string]any{"hasNextPage": true, "endCursor": "Mg=="},
					"totalCount": 5,
				}},
				Errors: []executor.GraphQLError{},
			},
		},
		{
			name:  "Nested projects and owner",
			query: `{ person(id: "1") { name team projects { name status owner { name } } } }`,
			want: &executor.ExecutionResult{
				Data: map[string]any{"person": map[string]any{
					"name": "Ann",
					"team": "core",
					"projects": []any{
						map[string]any{"name": "Compiler", "status": "ACTIVE", "owner": map[string]any{"name": "Ann"}},
						map[string]any{"name": "Executor", "status": "DONE", "owner": map[string]any{"name": "Ann"}},
					},
				}},
				Errors: []executor.GraphQLError{},
			},
		},
		{
			name:  "Filtered nested projects",
			query: `{ person(id: "1") { projects(status: DONE) { name } } }`,
			want: &executor.ExecutionResult{
				Data: map[string]any{"person": map[string]any{
					"projects": []any{map[string]any{"name": "Executor"}},
				}},
				Errors: []executor.GraphQLError{},
			},
		},
		{
			name:  "Offset page",
			query: `{ projects(status: ACTIVE, take: 2) { items { name } totalItems hasNextPage hasPreviousPage } }`,
			want: &executor.ExecutionResult{
				Data: map[string]any{"projects": map[string]any{
					"items":           []any{map[string]any{"name": "Compiler"}, map[string]any{"name": "Website"}},
					"totalItems":      3,
					"hasNextPage":     true,
					"hasPreviousPage": false,
				}},
				Errors: []executor.GraphQLError{},
			},
		},
		{
			name:  "Salary denied",
			query: `{ oldest { name salary } }`,
			want: &executor.ExecutionResult{
				Data: map[string]any{"oldest": map[string]any{"name": "Dee", "salary": nil}},
				Errors: []executor.GraphQLError{{
					Message:    "you are not authorized to access the 'salary' field on type 'Person'",
					Path:       executor.Path{"oldest", "salary"},
					Extensions: map[string]any{"code": executor.AuthorizationDenied},
				}},
			},
		},
		{
			name:  "Salary granted by policy",
			ctx:   hr,
			query: `{ oldest { name salary } }`,
			want: &executor.ExecutionResult{
				Data:   map[string]any{"oldest": map[string]any{"name": "Dee", "salary": 400}},
				Errors: []executor.GraphQLError{},
			},
		},
		{
			name:  "Unknown person",
			query: `{ person(id: "99") { name } }`,
			want: &executor.ExecutionResult{
				Data:   map[string]any{"person": nil},
				Errors: []executor.GraphQLError{},
			},
		},
	}
	for source, app := range apps(t) {
		for _, tt := range tests {
			t.Run(source+"/"+tt.name, func(t *testing.T) {
				ctx := tt.ctx
				if ctx == nil {
					ctx = context.Background()
				}
				got := run(t, app, ctx, tt.query)
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestIntrospection(t *testing.T) {
	app := apps(t)["memory"]
	res := run(t, app, context.Background(), `{ __type(name: "Status") { kind enumValues { name } } }`)
	want := &executor.ExecutionResult{
		Data: map[string]any{"__type": map[string]any{
			"kind":       "ENUM",
			"enumValues": []any{map[string]any{"name": "ACTIVE"}, map[string]any{"name": "DONE"}},
		}},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteRequiresSeparateServiceFields(t *testing.T) {
	_, err := New(context.Background(), Options{SQLiteDSN: ":memory:"})
	require.ErrorContains(t, err, "requires service fields to execute separately")
}

func TestSeedIsIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "demo.db")
	for i := 0; i < 2; i++ {
		src, err := OpenSQLite(context.Background(), dsn)
		require.NoError(t, err)
		var n int
		require.NoError(t, src.DB().QueryRow(`SELECT COUNT(*) FROM "people"`).Scan(&n))
		require.Equal(t, 5, n)
		require.NoError(t, src.Close())
	}
}

func TestAgeServiceCarriesForwardedRequestID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want *AgeService
	}{
		{
			name: "forwarded",
			ctx:  metadata.NewOutgoingContext(context.Background(), metadata.Pairs(server.RequestIDHeader, "req-7")),
			want: &AgeService{Year: 2020, RequestID: "req-7"},
		},
		{
			name: "no metadata",
			ctx:  context.Background(),
			want: &AgeService{Year: 2020},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Services(2020).Scope().Resolve(tt.ctx, "ages")
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("AgeService mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
