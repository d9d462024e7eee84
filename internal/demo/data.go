package demo

import (
	"context"
	"fmt"

	sqlite "github.com/hanpama/gqlexpr/internal/datasource/sqlite"
)

// Tables are the SQLite tables of the demo data.
var Tables = []sqlite.Table{
	{Name: "people", Columns: []string{"id", "name", "birthday", "salary", "team"}},
	{Name: "projects", Columns: []string{"id", "name", "status", "owner"}},
}

func people() []map[string]any {
	return []map[string]any{
		{"id": "1", "name": "Ann", "birthday": 1990, "salary": 100, "team": "core"},
		{"id": "2", "name": "Bob", "birthday": 1985, "salary": 200},
		{"id": "3", "name": "Cid", "birthday": 2000, "salary": 300, "team": "web"},
		{"id": "4", "name": "Dee", "birthday": 1970, "salary": 400},
		{"id": "5", "name": "Eve", "birthday": 1995, "salary": 500},
	}
}

func projects() []map[string]any {
	return []map[string]any{
		{"id": "10", "name": "Compiler", "status": "ACTIVE", "owner": "1"},
		{"id": "11", "name": "Executor", "status": "DONE", "owner": "1"},
		{"id": "12", "name": "Website", "status": "ACTIVE", "owner": "3"},
		{"id": "13", "name": "Payroll", "status": "ACTIVE", "owner": "4"},
	}
}

func rows(ms []map[string]any) []any {
	out := make([]any, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}

// MemoryRoot returns the demo data as a root value for the memory source.
func MemoryRoot() map[string]any {
	return map[string]any{
		"people":   rows(people()),
		"projects": rows(projects()),
	}
}

// OpenSQLite opens dsn, creates the demo tables and seeds them when the
// people table is empty. The source is also the root value of executions
// against it.
func OpenSQLite(ctx context.Context, dsn string) (*sqlite.Source, error) {
	src, err := sqlite.Open(dsn, Tables...)
	if err != nil {
		return nil, err
	}
	if err := seed(ctx, src); err != nil {
		src.Close()
		return nil, err
	}
	return src, nil
}

func seed(ctx context.Context, src *sqlite.Source) error {
	if err := src.CreateTables(ctx); err != nil {
		return err
	}
	var n int
	if err := src.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "people"`).Scan(&n); err != nil {
		return fmt.Errorf("count people: %w", err)
	}
	if n > 0 {
		return nil
	}
	if err := src.Insert(ctx, "people", people()...); err != nil {
		return err
	}
	return src.Insert(ctx, "projects", projects()...)
}
