package executor_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	compilectx "github.com/hanpama/gqlexpr/internal/compilectx"
	executor "github.com/hanpama/gqlexpr/internal/executor"
)

var namesAndAges = map[string]any{
	"people": []any{
		map[string]any{"name": "Ann", "age": 30},
		map[string]any{"name": "Bob", "age": 35},
		map[string]any{"name": "Cid", "age": 20},
		map[string]any{"name": "Dee", "age": 50},
		map[string]any{"name": "Eve", "age": 25},
	},
}

// Pattern: Result comparison + data source calls
func TestPhases_ServiceFieldsExecuteSeparately(t *testing.T) {
	src := executor.NewMockDataSource()
	exec := executor.NewExecutor(src, newPeopleSchema(t), executor.WithServices(ageRegistry(&ageService{year: 2020})))

	gotRes := execute(t, exec, context.Background(), "{ people { name age } }", nil)
	wantRes := &executor.ExecutionResult{Data: namesAndAges, Errors: []executor.GraphQLError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	trees := src.Trees()
	require.Len(t, trees, 1, "phase B never consults the data source")
	require.NotContains(t, trees[0], "Service(")
	require.Contains(t, trees[0], "age: Marker(age)")
}

func TestPhases_SinglePhaseMatchesTwoPhase(t *testing.T) {
	src := executor.NewMockDataSource()
	exec := executor.NewExecutor(src, newPeopleSchema(t),
		executor.WithServices(ageRegistry(&ageService{year: 2020})),
		executor.WithExecutionOptions(compilectx.Options{}))

	gotRes := execute(t, exec, context.Background(), "{ people { name age } }", nil)
	wantRes := &executor.ExecutionResult{Data: namesAndAges, Errors: []executor.GraphQLError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	trees := src.Trees()
	require.Len(t, trees, 1)
	require.Contains(t, trees[0], "Guard(Age(Service(ages), p.birthday))")
}

func TestPhases_ContextOnlyQueryHasOnePhase(t *testing.T) {
	src := executor.NewMockDataSource()
	exec := executor.NewExecutor(src, newPeopleSchema(t))

	gotRes := execute(t, exec, context.Background(), "{ oldest { id name team } }", nil)
	wantRes := &executor.ExecutionResult{
		Data:   map[string]any{"oldest": map[string]any{"id": "4", "name": "Dee", "team": nil}},
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"{oldest: ctx.people.OrderBy(birthday).First().Let(p => {id: p.id, name: p.name, team: p.team})}"}, src.Trees()); diff != "" {
		t.Fatalf("trees mismatch (-want +got):\n%s", diff)
	}
}

func TestPhases_NoExecution(t *testing.T) {
	src := executor.NewMockDataSource()
	exec := executor.NewExecutor(src, newPeopleSchema(t), executor.WithExecutionOptions(compilectx.Options{
		ExecuteServiceFieldsSeparately: true,
		NoExecution:                    true,
	}))

	gotRes := execute(t, exec, context.Background(), "{ people { name age } }", nil)
	wantRes := &executor.ExecutionResult{Data: map[string]any{}, Errors: []executor.GraphQLError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.Empty(t, src.Trees())
}

func TestPhases_DebugInfo(t *testing.T) {
	exec := executor.NewExecutor(executor.NewMockDataSource(), newPeopleSchema(t),
		executor.WithServices(ageRegistry(&ageService{year: 2020})),
		executor.WithExecutionOptions(compilectx.Options{
			ExecuteServiceFieldsSeparately: true,
			IncludeDebugInfo:               true,
		}))

	res := execute(t, exec, context.Background(), "{ people { name age } }", nil)
	require.Empty(t, res.Errors)
	require.Equal(t, 1, res.Extensions["serviceFields"])
	id, _ := res.Extensions["executionId"].(string)
	require.NotEmpty(t, id)

	timings, ok := res.Extensions["timings"].(map[string]any)
	require.True(t, ok)
	var phases []string
	for phase := range timings {
		phases = append(phases, phase)
	}
	require.ElementsMatch(t, []string{"compile", "phase_a", "phase_b"}, phases)

	// phase B is skipped when nothing was deferred
	res = execute(t, exec, context.Background(), "{ people { name } }", nil)
	timings = res.Extensions["timings"].(map[string]any)
	_, ok = timings["phase_b"]
	require.False(t, ok)
}

func TestPhases_ServicesResolvedPerExecution(t *testing.T) {
	var calls int
	svc := &ageService{year: 2020}
	reg := ageRegistry(svc)
	reg.Register("ages", func(context.Context) (any, error) {
		calls++
		return svc, nil
	})
	exec := executor.NewExecutor(executor.NewMockDataSource(), newPeopleSchema(t), executor.WithServices(reg))

	for i := 0; i < 2; i++ {
		res := execute(t, exec, context.Background(), "{ people { age } }", nil)
		require.Empty(t, res.Errors)
	}
	require.Equal(t, 2, calls, "one instance per execution, shared by all five people")
}

func TestPhases_DeferredFieldUnderFragment(t *testing.T) {
	exec := executor.NewExecutor(executor.NewMockDataSource(), newPeopleSchema(t),
		executor.WithServices(ageRegistry(&ageService{year: 2020})))

	res := execute(t, exec, context.Background(), `
		{ people { ...withAge } }
		fragment withAge on Person { name years: age }
	`, nil)
	require.Empty(t, res.Errors)
	people := res.Data.(map[string]any)["people"].([]any)
	var got []string
	for _, p := range people {
		m := p.(map[string]any)
		got = append(got, m["name"].(string)+"="+strings.Repeat("|", m["years"].(int)/10))
	}
	if diff := cmp.Diff([]string{"Ann=|||", "Bob=|||", "Cid=||", "Dee=|||||", "Eve=||"}, got); diff != "" {
		t.Fatalf("people mismatch (-want +got):\n%s", diff)
	}
}
