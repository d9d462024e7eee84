package executor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	connection "github.com/hanpama/gqlexpr/internal/connection"
	executor "github.com/hanpama/gqlexpr/internal/executor"
	expr "github.com/hanpama/gqlexpr/internal/expr"
	language "github.com/hanpama/gqlexpr/internal/language"
	schema "github.com/hanpama/gqlexpr/internal/schema"
	services "github.com/hanpama/gqlexpr/internal/services"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

type person struct {
	ID       int    `expr:"id"`
	Name     string `expr:"name"`
	Birthday int    `expr:"birthday"`
	Salary   int    `expr:"salary"`
	Team     *string
}

type dataset struct {
	People []person `expr:"people"`
}

func ptr[T any](v T) *T { return &v }

// fivePeople returns the people with ids 1 to 5, born so that in 2020 they
// are 30, 35, 20, 50 and 25 years old.
func fivePeople() dataset {
	return dataset{People: []person{
		{ID: 1, Name: "Ann", Birthday: 1990, Salary: 100, Team: ptr("core")},
		{ID: 2, Name: "Bob", Birthday: 1985, Salary: 200},
		{ID: 3, Name: "Cid", Birthday: 2000, Salary: 300, Team: ptr("web")},
		{ID: 4, Name: "Dee", Birthday: 1970, Salary: 400},
		{ID: 5, Name: "Eve", Birthday: 1995, Salary: 500},
	}}
}

type ageService struct {
	year int
	fail bool
}

func age(_ context.Context, args []any) (any, error) {
	svc, ok := args[0].(*ageService)
	if !ok {
		return nil, fmt.Errorf("unexpected service %T", args[0])
	}
	if svc.fail {
		return nil, errors.New("ages unavailable")
	}
	return svc.year - args[1].(int), nil
}

func ageRegistry(svc *ageService) *services.Registry {
	return services.NewRegistry().RegisterInstance("ages", svc)
}

// peopleSchemaConfig varies the nullability of newPeopleSchema's fields.
type peopleSchemaConfig struct {
	// salary replaces the nullable Int type of Person.salary.
	salary *schema.TypeRef
	// directory adds directory: PersonConnection, paged from a nullable list.
	directory bool
}

// newPeopleSchema builds:
//
//	type Person { id: ID! name: String salary: Int (hr only) age: Int (service) team: String }
//	type Query { people: [Person!]! peopleConnection: PersonConnection! oldest: Person }
func newPeopleSchema(t *testing.T) *schema.Schema {
	t.Helper()
	return buildPeopleSchema(t, peopleSchemaConfig{})
}

func buildPeopleSchema(t *testing.T, cfg peopleSchemaConfig) *schema.Schema {
	t.Helper()
	salary := cfg.salary
	if salary == nil {
		salary = schema.NamedType("Int")
	}
	s := schema.NewSchema("")
	s.AddType(schema.NewType("Person", schema.TypeKindObject, "").
		AddField(schema.NewField("id", "", schema.NonNullType(schema.NamedType("ID")))).
		AddField(schema.NewField("name", "", schema.NamedType("String"))).
		AddField(schema.NewField("team", "", schema.NamedType("String"))).
		AddField(schema.NewField("salary", "", salary).RequiresAnyRole("hr")).
		AddField(schema.NewField("age", "", schema.NamedType("Int")).
			SetResolve(func(src, _ *expr.Param) expr.Expr {
				return expr.Call("Age", age, expr.Service("ages"), expr.Member(src, "birthday"))
			})))
	s.Query().
		AddField(schema.NewField("people", "", schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType("Person")))))).
		AddField(schema.NewField("peopleConnection", "", schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType("Person"))))).
			SetResolve(func(src, _ *expr.Param) expr.Expr { return expr.Member(src, "people") }).
			AddExtension(connection.UseConnectionPaging())).
		AddField(schema.NewField("oldest", "", schema.NamedType("Person")).
			SetResolve(func(src, _ *expr.Param) expr.Expr {
				return expr.First(expr.OrderBy(expr.Member(src, "people"), expr.SortKey{Name: "birthday"}))
			}))
	if cfg.directory {
		s.Query().AddField(schema.NewField("directory", "", schema.ListType(schema.NonNullType(schema.NamedType("Person")))).
			SetResolve(func(src, _ *expr.Param) expr.Expr { return expr.Member(src, "people") }).
			AddExtension(connection.UseConnectionPaging()))
	}
	require.NoError(t, s.Freeze())
	return s
}

func execute(t *testing.T, exec *executor.Executor, ctx context.Context, query string, vars map[string]any) *executor.ExecutionResult {
	t.Helper()
	return exec.ExecuteRequest(ctx, mustParseQuery(t, query), "", vars, fivePeople())
}
