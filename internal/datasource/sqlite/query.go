package sqlite

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	expr "github.com/hanpama/gqlexpr/internal/expr"
)

// query is a translated sequence: the rows of a table, filtered and
// ordered.
type query struct {
	table   Table
	where   []string
	args    []any
	orderBy []string
}

func (q *query) clone() *query {
	c := *q
	c.where = append([]string(nil), q.where...)
	c.args = append([]any(nil), q.args...)
	c.orderBy = append([]string(nil), q.orderBy...)
	return &c
}

func (q *query) from() (string, []any) {
	var b strings.Builder
	b.WriteString(" FROM ")
	b.WriteString(quote(q.table.Name))
	if len(q.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.where, " AND "))
	}
	return b.String(), q.args
}

// translate turns a sequence expression into a query. It reports false when
// any part of e cannot be expressed in SQL.
func (s *Source) translate(ctx context.Context, e expr.Expr, env *expr.Env) (*query, bool) {
	switch e := e.(type) {
	case *expr.MemberExpr:
		p, ok := e.Target.(*expr.Param)
		if !ok {
			return nil, false
		}
		if v, ok := env.Lookup(p); !ok || v != s {
			return nil, false
		}
		t, ok := s.tables[e.Name]
		if !ok {
			return nil, false
		}
		return &query{table: t}, true
	case *expr.WhereExpr:
		q, ok := s.translate(ctx, e.Source, env)
		if !ok {
			return nil, false
		}
		cond, args, ok := s.predicate(ctx, q.table, e.Item, e.Predicate, env)
		if !ok {
			return nil, false
		}
		q = q.clone()
		q.where = append(q.where, cond)
		q.args = append(q.args, args...)
		return q, true
	case *expr.OrderByExpr:
		q, ok := s.translate(ctx, e.Source, env)
		if !ok {
			return nil, false
		}
		keys := make([]string, 0, len(e.Keys))
		for _, k := range e.Keys {
			if !q.table.hasColumn(k.Name) {
				return nil, false
			}
			dir := "ASC"
			if k.Desc {
				dir = "DESC"
			}
			keys = append(keys, quote(k.Name)+" "+dir)
		}
		q = q.clone()
		// a later OrderBy sorts stably by its keys first
		q.orderBy = append(keys, q.orderBy...)
		return q, true
	}
	return nil, false
}

var comparisons = map[expr.BinaryOp]string{
	expr.OpEq: "=",
	expr.OpNe: "<>",
	expr.OpLt: "<",
	expr.OpLe: "<=",
	expr.OpGt: ">",
	expr.OpGe: ">=",
}

// predicate translates a Where predicate over item. Operands are columns of
// item or expressions independent of it, which are evaluated up front and
// bound as arguments.
func (s *Source) predicate(ctx context.Context, t Table, item *expr.Param, e expr.Expr, env *expr.Env) (string, []any, bool) {
	b, ok := e.(*expr.BinaryExpr)
	if !ok {
		return "", nil, false
	}
	switch b.Op {
	case expr.OpAnd, expr.OpOr:
		l, largs, ok := s.predicate(ctx, t, item, b.Left, env)
		if !ok {
			return "", nil, false
		}
		r, rargs, ok := s.predicate(ctx, t, item, b.Right, env)
		if !ok {
			return "", nil, false
		}
		op := " AND "
		if b.Op == expr.OpOr {
			op = " OR "
		}
		return "(" + l + op + r + ")", append(largs, rargs...), true
	}
	sqlOp, ok := comparisons[b.Op]
	if !ok {
		return "", nil, false
	}
	left, lv, lcol, ok := s.operand(ctx, t, item, b.Left, env)
	if !ok {
		return "", nil, false
	}
	right, rv, rcol, ok := s.operand(ctx, t, item, b.Right, env)
	if !ok {
		return "", nil, false
	}
	if !lcol && !rcol {
		v, err := expr.Eval(ctx, b, env)
		if err != nil {
			return "", nil, false
		}
		if v == true {
			return "1", nil, true
		}
		return "0", nil, true
	}
	// null compares equal to null in process
	switch {
	case !rcol && rv == nil && lcol:
		return nullTest(left, b.Op)
	case !lcol && lv == nil && rcol:
		return nullTest(right, b.Op)
	}
	var args []any
	if !lcol {
		args = append(args, lv)
	}
	if !rcol {
		args = append(args, rv)
	}
	return left + " " + sqlOp + " " + right, args, true
}

func nullTest(col string, op expr.BinaryOp) (string, []any, bool) {
	switch op {
	case expr.OpEq:
		return col + " IS NULL", nil, true
	case expr.OpNe:
		return col + " IS NOT NULL", nil, true
	}
	return "0", nil, true
}

// operand returns the SQL for one side of a comparison: a quoted column, or
// a placeholder with its value.
func (s *Source) operand(ctx context.Context, t Table, item *expr.Param, e expr.Expr, env *expr.Env) (sql string, value any, column bool, ok bool) {
	if m, isMember := e.(*expr.MemberExpr); isMember && m.Target == item {
		if !t.hasColumn(m.Name) {
			return "", nil, false, false
		}
		return quote(m.Name), nil, true, true
	}
	for _, p := range expr.FreeParams(e) {
		if p == item {
			return "", nil, false, false
		}
	}
	v, err := expr.Eval(ctx, e, env)
	if err != nil {
		return "", nil, false, false
	}
	return "?", v, false, true
}

func (s *Source) count(ctx context.Context, q *query) (int, error) {
	from, args := q.from()
	stmt := "SELECT COUNT(*)" + from
	log.WithFields(log.Fields{"sql": stmt, "args": args}).Debug("sqlite query")
	var n int
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table.Name, err)
	}
	return n, nil
}

// rows fetches the rows of q from offset on. A negative limit fetches all.
func (s *Source) rows(ctx context.Context, q *query, offset, limit int) ([]any, error) {
	cols := make([]string, len(q.table.Columns))
	for i, c := range q.table.Columns {
		cols[i] = quote(c)
	}
	from, args := q.from()
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(from)
	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(append(q.orderBy, "rowid"), ", "))
	if limit >= 0 || offset > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, offset)
	}
	stmt := b.String()
	log.WithFields(log.Fields{"sql": stmt, "args": args}).Debug("sqlite query")

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.table.Name, err)
	}
	defer rows.Close()
	out := []any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.table.Name, err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range q.table.Columns {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.table.Name, err)
	}
	return out, nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
