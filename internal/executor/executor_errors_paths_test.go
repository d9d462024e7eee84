package executor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	authz "github.com/hanpama/gqlexpr/internal/authz"
	compilectx "github.com/hanpama/gqlexpr/internal/compilectx"
	executor "github.com/hanpama/gqlexpr/internal/executor"
	schema "github.com/hanpama/gqlexpr/internal/schema"
	services "github.com/hanpama/gqlexpr/internal/services"
)

// Pattern: Result comparison
func TestErrors_AuthorizationIsReportedOnce(t *testing.T) {
	exec := executor.NewExecutor(executor.NewMockDataSource(), newPeopleSchema(t))

	gotRes := execute(t, exec, context.Background(), "{ people { salary } }", nil)
	people := make([]any, 5)
	for i := range people {
		people[i] = map[string]any{"salary": nil}
	}
	wantRes := &executor.ExecutionResult{
		Data: map[string]any{"people": people},
		Errors: []executor.GraphQLError{{
			Message:    "you are not authorized to access the 'salary' field on type 'Person'",
			Path:       executor.Path{"people", "salary"},
			Extensions: map[string]any{"code": executor.AuthorizationDenied},
		}},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	ctx := authz.WithUser(context.Background(), &authz.User{ID: "hana", Roles: []string{"hr"}})
	gotRes = execute(t, exec, ctx, "{ oldest { salary } }", nil)
	wantRes = &executor.ExecutionResult{
		Data:   map[string]any{"oldest": map[string]any{"salary": 400}},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors_AuthorizationNullsNonNullAncestors(t *testing.T) {
	exec := executor.NewExecutor(executor.NewMockDataSource(),
		buildPeopleSchema(t, peopleSchemaConfig{salary: schema.NonNullType(schema.NamedType("Int"))}))

	tests := []struct {
		query string
		path  executor.Path
		data  any
	}{
		{
			query: "{ oldest { name salary } }",
			path:  executor.Path{"oldest", "salary"},
			data:  map[string]any{"oldest": nil},
		},
		{
			query: "{ people { name salary } }",
			path:  executor.Path{"people", "salary"},
			data:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			gotRes := execute(t, exec, context.Background(), tt.query, nil)
			wantRes := &executor.ExecutionResult{
				Data: tt.data,
				Errors: []executor.GraphQLError{{
					Message:    "you are not authorized to access the 'salary' field on type 'Person'",
					Path:       tt.path,
					Extensions: map[string]any{"code": executor.AuthorizationDenied},
				}},
			}
			if diff := cmp.Diff(wantRes, gotRes); diff != "" {
				t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrors_ServiceFailuresUseResponsePaths(t *testing.T) {
	for _, opts := range []compilectx.Options{compilectx.DefaultOptions(), {}} {
		exec := executor.NewExecutor(executor.NewMockDataSource(), newPeopleSchema(t),
			executor.WithServices(ageRegistry(&ageService{fail: true})),
			executor.WithExecutionOptions(opts))

		gotRes := execute(t, exec, context.Background(), "{ oldest { name age } people { age } }", nil)
		wantRes := &executor.ExecutionResult{
			Data: map[string]any{
				"oldest": map[string]any{"name": "Dee", "age": nil},
				"people": []any{
					map[string]any{"age": nil},
					map[string]any{"age": nil},
					map[string]any{"age": nil},
					map[string]any{"age": nil},
					map[string]any{"age": nil},
				},
			},
			Errors: []executor.GraphQLError{
				{Message: "Age: ages unavailable", Path: executor.Path{"oldest", "age"}, Extensions: map[string]any{"code": executor.ServiceResolutionFailed}},
				{Message: "Age: ages unavailable", Path: executor.Path{"people", 0, "age"}, Extensions: map[string]any{"code": executor.ServiceResolutionFailed}},
				{Message: "Age: ages unavailable", Path: executor.Path{"people", 1, "age"}, Extensions: map[string]any{"code": executor.ServiceResolutionFailed}},
				{Message: "Age: ages unavailable", Path: executor.Path{"people", 2, "age"}, Extensions: map[string]any{"code": executor.ServiceResolutionFailed}},
				{Message: "Age: ages unavailable", Path: executor.Path{"people", 3, "age"}, Extensions: map[string]any{"code": executor.ServiceResolutionFailed}},
				{Message: "Age: ages unavailable", Path: executor.Path{"people", 4, "age"}, Extensions: map[string]any{"code": executor.ServiceResolutionFailed}},
			},
		}
		if diff := cmp.Diff(wantRes, gotRes); diff != "" {
			t.Fatalf("ExecutionResult mismatch with %+v (-want +got):\n%s", opts, diff)
		}
	}
}

func TestErrors_UnregisteredService(t *testing.T) {
	exec := executor.NewExecutor(executor.NewMockDataSource(), newPeopleSchema(t), executor.WithServices(services.NewRegistry()))

	res := execute(t, exec, context.Background(), "{ oldest { age } }", nil)
	require.Len(t, res.Errors, 1)
	require.Equal(t, `resolve service ages: service "ages" is not registered`, res.Errors[0].Message)
	require.Equal(t, executor.ServiceResolutionFailed, res.Errors[0].Code())
	require.Equal(t, map[string]any{"oldest": map[string]any{"age": nil}}, res.Data)
}

func TestErrors_DataSourceFailure(t *testing.T) {
	exec := executor.NewExecutor(executor.NewMockErrorDataSource(errors.New("disk on fire")), newPeopleSchema(t))

	gotRes := execute(t, exec, context.Background(), "{ people { name salary } }", nil)
	wantRes := &executor.ExecutionResult{
		Errors: []executor.GraphQLError{{
			Message:    "disk on fire",
			Extensions: map[string]any{"code": executor.DataSourceFailed},
		}},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors_MalformedSelection(t *testing.T) {
	src := executor.NewMockDataSource()
	exec := executor.NewExecutor(src, newPeopleSchema(t))

	gotRes := execute(t, exec, context.Background(), "{ people { name shoeSize } }", nil)
	wantRes := &executor.ExecutionResult{
		Errors: []executor.GraphQLError{{
			Message:    "Cannot query field 'shoeSize' on type 'Person'",
			Path:       executor.Path{"people", "shoeSize"},
			Extensions: map[string]any{"code": executor.MalformedSelection},
		}},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.Empty(t, src.Trees())
}

func TestErrors_InvalidCursorNullsItsField(t *testing.T) {
	exec := executor.NewExecutor(executor.NewMockDataSource(), buildPeopleSchema(t, peopleSchemaConfig{directory: true}))

	tests := []struct {
		name  string
		query string
		field string
		data  any
	}{
		{
			name:  "nullable connection",
			query: `{ oldest { name } directory(after: "nope") { totalCount } }`,
			field: "directory",
			data:  map[string]any{"oldest": map[string]any{"name": "Dee"}, "directory": nil},
		},
		{
			name:  "non-null connection nulls data",
			query: `{ oldest { name } peopleConnection(after: "nope") { totalCount } }`,
			field: "peopleConnection",
			data:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotRes := execute(t, exec, context.Background(), tt.query, nil)
			wantRes := &executor.ExecutionResult{
				Data: tt.data,
				Errors: []executor.GraphQLError{{
					Message:    `invalid cursor "nope"`,
					Path:       executor.Path{tt.field},
					Extensions: map[string]any{"code": executor.InvalidCursor},
				}},
			}
			if diff := cmp.Diff(wantRes, gotRes); diff != "" {
				t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrors_ArgumentValidation(t *testing.T) {
	exec := executor.NewExecutor(executor.NewMockDataSource(), newPeopleSchema(t))

	res := execute(t, exec, context.Background(), `{ peopleConnection(first: -1) { totalCount } }`, nil)
	require.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
	require.Equal(t, executor.ArgumentValidationFailed, res.Errors[0].Code())
	require.Equal(t, executor.Path{"peopleConnection"}, res.Errors[0].Path)

	res = execute(t, exec, context.Background(), `query($n: Int!) { people { name } peopleConnection(first: $n) { totalCount } }`, map[string]any{"n": "two"})
	require.Nil(t, res.Data)
	require.Equal(t, executor.InvalidVariables, res.Errors[0].Code())
}
