// Package sqlite is a data source backed by SQLite through modernc.org/sqlite.
//
// Trees are evaluated in process with an interceptor that translates
// sequence nodes rooted at a table into SQL: reading a table member of the
// source, Where over column comparisons, OrderBy on columns, Count, First
// and Page. Everything else, including projections, runs in process over the
// fetched rows. Rows are returned as map[string]any keyed by column.
//
// The root value of an execution must be the *Source itself; members of the
// root name tables.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	expr "github.com/hanpama/gqlexpr/internal/expr"
)

// Table maps a root member to a table of the same name. Only the listed
// columns are selected, filtered and sorted on.
type Table struct {
	Name    string
	Columns []string
}

func (t Table) hasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

type Source struct {
	db     *sql.DB
	tables map[string]Table
}

// Open opens the database at dsn with the "sqlite" driver.
func Open(dsn string, tables ...Table) (*Source, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// an in-memory database lives as long as its connection
	db.SetMaxOpenConns(1)
	return New(db, tables...), nil
}

func New(db *sql.DB, tables ...Table) *Source {
	s := &Source{db: db, tables: make(map[string]Table, len(tables))}
	for _, t := range tables {
		s.tables[t.Name] = t
	}
	return s
}

func (s *Source) DB() *sql.DB { return s.db }

func (s *Source) Close() error { return s.db.Close() }

// CreateTables creates every table that does not exist yet. Columns are
// declared without a type, so values keep the storage class they were
// inserted with.
func (s *Source) CreateTables(ctx context.Context) error {
	for _, t := range s.tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = quote(c)
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(t.Name), strings.Join(cols, ", "))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// Insert adds rows to table. Keys that are not columns of the table are
// rejected.
func (s *Source) Insert(ctx context.Context, table string, rows ...map[string]any) error {
	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("unknown table %s", table)
	}
	for _, row := range rows {
		var cols, marks []string
		var args []any
		for _, c := range t.Columns {
			v, ok := row[c]
			if !ok {
				continue
			}
			cols = append(cols, quote(c))
			marks = append(marks, "?")
			args = append(args, v)
		}
		if len(cols) != len(row) {
			return fmt.Errorf("row %v has columns not in table %s", row, table)
		}
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(t.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))
		if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

// Evaluate evaluates tree, translating what it can into SQL. Trees that
// reference services are refused: service calls cannot be expressed in SQL,
// so executions against this source should run service fields separately.
func (s *Source) Evaluate(ctx context.Context, tree expr.Expr, env *expr.Env) (any, error) {
	if names := expr.Services(tree); len(names) > 0 {
		return nil, fmt.Errorf("sqlite cannot evaluate service %s", names[0])
	}
	log.WithField("tree", expr.Format(tree)).Debug("sqlite evaluate")
	return expr.Eval(ctx, tree, env.WithInterceptor(s.intercept))
}

func (s *Source) intercept(ctx context.Context, e expr.Expr, env *expr.Env) (any, bool, error) {
	switch e := e.(type) {
	case *expr.CountExpr:
		q, ok := s.translate(ctx, e.Source, env)
		if !ok {
			return nil, false, nil
		}
		n, err := s.count(ctx, q)
		return n, true, err
	case *expr.FirstExpr:
		q, ok := s.translate(ctx, e.Source, env)
		if !ok {
			return nil, false, nil
		}
		rows, err := s.rows(ctx, q, 0, 1)
		if err != nil || len(rows) == 0 {
			return nil, true, err
		}
		return rows[0], true, nil
	case *expr.PageExpr:
		q, ok := s.translate(ctx, e.Source, env)
		if !ok {
			return nil, false, nil
		}
		total, err := s.count(ctx, q)
		if err != nil {
			return nil, true, err
		}
		start, end, err := e.Pager.Window(total)
		if err != nil {
			return nil, true, err
		}
		if start < 0 || start > end || end > total {
			return nil, true, fmt.Errorf("page window [%d, %d) out of range for %d items", start, end, total)
		}
		rows, err := s.rows(ctx, q, start, end-start)
		if err != nil {
			return nil, true, err
		}
		v, err := e.Pager.Build(rows, start, total)
		return v, true, err
	case *expr.MemberExpr, *expr.WhereExpr, *expr.OrderByExpr:
		q, ok := s.translate(ctx, e, env)
		if !ok {
			return nil, false, nil
		}
		rows, err := s.rows(ctx, q, 0, -1)
		return rows, true, err
	}
	return nil, false, nil
}
