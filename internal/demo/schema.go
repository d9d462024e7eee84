// Package demo is a small people and projects API served by the gqlexpr
// command. It exercises every moving part of the engine: connection and
// offset paging, a service-backed field, a policy-guarded field and both
// data sources.
package demo

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	connection "github.com/hanpama/gqlexpr/internal/connection"
	expr "github.com/hanpama/gqlexpr/internal/expr"
	schema "github.com/hanpama/gqlexpr/internal/schema"
)

// SalaryPolicy guards Person.salary.
const SalaryPolicy = "salary:read"

func nonNull(name string) *schema.TypeRef { return schema.NonNullType(schema.NamedType(name)) }

func listOf(name string) *schema.TypeRef { return schema.NonNullType(schema.ListType(nonNull(name))) }

// AgeService computes ages relative to a fixed year.
type AgeService struct {
	Year int
	// RequestID is empty outside an HTTP request.
	RequestID string
}

// Age is the call behind Person.age. Its arguments are the service and a
// birth year.
func Age(_ context.Context, args []any) (any, error) {
	svc, ok := args[0].(*AgeService)
	if !ok {
		return nil, fmt.Errorf("unexpected service %T", args[0])
	}
	if args[1] == nil {
		return nil, nil
	}
	born, err := toInt(args[1])
	if err != nil {
		log.WithField("request", svc.RequestID).WithError(err).Warn("unreadable birthday")
		return nil, err
	}
	return svc.Year - born, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("birthday %v (%T) is not a number", v, v)
}

// NewSchema builds and freezes the demo schema:
//
//	enum Status { ACTIVE DONE }
//	type Person { id name team salary age projects(status) }
//	type Project { id name status owner }
//	type Query {
//	  people(first, after, last, before): PersonConnection!
//	  person(id: ID!): Person
//	  oldest: Person
//	  projects(status, skip, take): ProjectPage!
//	}
func NewSchema() (*schema.Schema, error) {
	s := schema.NewSchema("People and the projects they own.")
	ctx := s.ContextParam

	s.AddType(schema.NewType("Status", schema.TypeKindEnum, "").
		AddEnumValue(schema.NewEnumValue("ACTIVE", "")).
		AddEnumValue(schema.NewEnumValue("DONE", "")))

	s.AddType(schema.NewType("Person", schema.TypeKindObject, "").
		AddField(schema.NewField("id", "", nonNull("ID"))).
		AddField(schema.NewField("name", "", nonNull("String"))).
		AddField(schema.NewField("team", "", schema.NamedType("String"))).
		AddField(schema.NewField("salary", "Yearly salary. Requires the salary:read policy.", schema.NamedType("Int")).
			RequiresAnyPolicy(SalaryPolicy)).
		AddField(schema.NewField("age", "Age in the service's reference year.", schema.NamedType("Int")).
			SetResolve(func(src, _ *expr.Param) expr.Expr {
				return expr.Call("Age", Age, expr.Service("ages"), expr.Member(src, "birthday"))
			})).
		AddField(schema.NewField("projects", "Projects owned by the person.", listOf("Project")).
			AddArgument(schema.NewInputValue("status", "", schema.NamedType("Status"))).
			SetResolve(func(src, args *expr.Param) expr.Expr {
				p := expr.NewParam("project")
				return expr.OrderBy(
					expr.Where(expr.Member(ctx, "projects"), p, expr.Binary(expr.OpAnd,
						expr.Eq(expr.Member(p, "owner"), expr.Member(src, "id")),
						statusFilter(p, args))),
					expr.SortKey{Name: "id"})
			})))

	s.AddType(schema.NewType("Project", schema.TypeKindObject, "").
		AddField(schema.NewField("id", "", nonNull("ID"))).
		AddField(schema.NewField("name", "", nonNull("String"))).
		AddField(schema.NewField("status", "", nonNull("Status"))).
		AddField(schema.NewField("owner", "", schema.NamedType("Person")).
			SetResolve(func(src, _ *expr.Param) expr.Expr {
				p := expr.NewParam("person")
				return expr.First(expr.Where(expr.Member(ctx, "people"), p,
					expr.Eq(expr.Member(p, "id"), expr.Member(src, "owner"))))
			})))

	s.Query().
		AddField(schema.NewField("people", "Everyone, by name.", listOf("Person")).
			SetResolve(func(src, _ *expr.Param) expr.Expr {
				return expr.OrderBy(expr.Member(src, "people"), expr.SortKey{Name: "name"})
			}).
			AddExtension(connection.UseConnectionPaging(connection.WithMaxPageSize(100)))).
		AddField(schema.NewField("person", "", schema.NamedType("Person")).
			AddArgument(schema.NewInputValue("id", "", nonNull("ID"))).
			SetResolve(func(src, args *expr.Param) expr.Expr {
				p := expr.NewParam("person")
				return expr.First(expr.Where(expr.Member(src, "people"), p,
					expr.Eq(expr.Member(p, "id"), expr.Member(args, "id"))))
			})).
		AddField(schema.NewField("oldest", "", schema.NamedType("Person")).
			SetResolve(func(src, _ *expr.Param) expr.Expr {
				return expr.First(expr.OrderBy(expr.Member(src, "people"), expr.SortKey{Name: "birthday"}))
			})).
		AddField(schema.NewField("projects", "", listOf("Project")).
			AddArgument(schema.NewInputValue("status", "", schema.NamedType("Status"))).
			SetResolve(func(src, args *expr.Param) expr.Expr {
				p := expr.NewParam("project")
				return expr.OrderBy(expr.Where(expr.Member(src, "projects"), p, statusFilter(p, args)),
					expr.SortKey{Name: "id"})
			}).
			AddExtension(connection.UseOffsetPaging(connection.WithDefaultPageSize(20))))

	if err := s.Freeze(); err != nil {
		return nil, err
	}
	return s, nil
}

// statusFilter matches every project when the status argument is null.
func statusFilter(project, args *expr.Param) expr.Expr {
	status := expr.Member(args, "status")
	return expr.Binary(expr.OpOr,
		expr.Eq(status, expr.Const(nil)),
		expr.Eq(expr.Member(project, "status"), status))
}
