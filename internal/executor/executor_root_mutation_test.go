package executor_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	compilectx "github.com/hanpama/gqlexpr/internal/compilectx"
	executor "github.com/hanpama/gqlexpr/internal/executor"
	expr "github.com/hanpama/gqlexpr/internal/expr"
	schema "github.com/hanpama/gqlexpr/internal/schema"
	services "github.com/hanpama/gqlexpr/internal/services"
)

// journal records the mutations applied to it.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) write(name string) (any, error) {
	if name == "m2" {
		return nil, errors.New("boom")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, name)
	return name, nil
}

func newMutationSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch := schema.NewSchema("")
	sch.Query().AddField(schema.NewField("ping", "", schema.NamedType("String")))
	m := sch.Mutation()
	for _, name := range []string{"m1", "m2", "m3"} {
		m.AddField(schema.NewField(name, "", schema.NamedType("String")).
			SetResolve(func(_, _ *expr.Param) expr.Expr {
				return expr.Call("Write", func(_ context.Context, args []any) (any, error) {
					return args[0].(*journal).write(args[1].(string))
				}, expr.Service("journal"), expr.Const(name))
			}))
	}
	require.NoError(t, sch.Freeze())
	return sch
}

// Pattern: Result comparison
func TestMutation_Serial_Evaluation_Order_Result(t *testing.T) {
	for _, opts := range []compilectx.Options{compilectx.DefaultOptions(), {}} {
		j := &journal{}
		exec := executor.NewExecutor(executor.NewMockDataSource(), newMutationSchema(t),
			executor.WithServices(services.NewRegistry().RegisterInstance("journal", j)),
			executor.WithExecutionOptions(opts))

		gotRes := run(t, exec, "mutation { m3 m1 m2 again: m1 }", nil)
		wantRes := &executor.ExecutionResult{
			Data: map[string]any{"m3": "m3", "m1": "m1", "m2": nil, "again": "m1"},
			Errors: []executor.GraphQLError{{
				Message:    "Write: boom",
				Path:       executor.Path{"m2"},
				Extensions: map[string]any{"code": executor.ServiceResolutionFailed},
			}},
		}
		if diff := cmp.Diff(wantRes, gotRes); diff != "" {
			t.Fatalf("ExecutionResult mismatch with %+v (-want +got):\n%s", opts, diff)
		}
		if diff := cmp.Diff([]string{"m3", "m1", "m1"}, j.entries); diff != "" {
			t.Fatalf("journal mismatch with %+v (-want +got):\n%s", opts, diff)
		}
	}
}

func TestMutation_NotDefined(t *testing.T) {
	exec := sdlExecutor(t, `type Query { ping: String }`)
	res := run(t, exec, "mutation { ping }", nil)
	require.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
}
