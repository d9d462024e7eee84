package connection

import (
	"fmt"
	"strings"
)

// Connection is the value a paged field resolves to.
type Connection struct {
	Edges      []Edge   `expr:"edges"`
	PageInfo   PageInfo `expr:"pageInfo"`
	TotalCount int      `expr:"totalCount"`
}

// Edge pairs an item with its cursor.
type Edge struct {
	Node   any    `expr:"node"`
	Cursor string `expr:"cursor"`
}

type PageInfo struct {
	HasNextPage     bool    `expr:"hasNextPage"`
	HasPreviousPage bool    `expr:"hasPreviousPage"`
	StartCursor     *string `expr:"startCursor"`
	EndCursor       *string `expr:"endCursor"`
}

// NewConnection shapes the items of w, taken from a sequence of total items.
func NewConnection(items []any, w Window, total int) *Connection {
	c := &Connection{
		Edges:      make([]Edge, len(items)),
		TotalCount: total,
		PageInfo: PageInfo{
			HasNextPage:     w.HasNextPage,
			HasPreviousPage: w.HasPreviousPage,
		},
	}
	for i, item := range items {
		c.Edges[i] = Edge{Node: item, Cursor: EncodeCursor(w.Start + i + 1)}
	}
	if n := len(c.Edges); n > 0 {
		start, end := c.Edges[0].Cursor, c.Edges[n-1].Cursor
		c.PageInfo.StartCursor = &start
		c.PageInfo.EndCursor = &end
	}
	return c
}

// connectionPager pages a sequence for a PageExpr. It is immutable, so one
// compiled expression can page every parent element it is evaluated for.
type connectionPager struct {
	args Args
}

func (p connectionPager) Window(total int) (int, int, error) {
	w, err := Paginate(total, p.args)
	return w.Start, w.End, err
}

func (p connectionPager) Build(items []any, start, total int) (any, error) {
	w, err := Paginate(total, p.args)
	if err != nil {
		return nil, err
	}
	if w.Start != start || w.Len() != len(items) {
		return nil, fmt.Errorf("page of %d items at %d does not match window [%d, %d)", len(items), start, w.Start, w.End)
	}
	return NewConnection(items, w, total), nil
}

// Args exposes the decoded arguments to data sources that page natively.
func (p connectionPager) Args() Args { return p.args }

func (p connectionPager) String() string {
	var parts []string
	add := func(name string, v *int) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s: %d", name, *v))
		}
	}
	add("first", p.args.First)
	add("after", p.args.After)
	add("last", p.args.Last)
	add("before", p.args.Before)
	return "connection(" + strings.Join(parts, ", ") + ")"
}

// OffsetPage is the value an offset paged field resolves to.
type OffsetPage struct {
	Items           []any `expr:"items"`
	TotalItems      int   `expr:"totalItems"`
	HasNextPage     bool  `expr:"hasNextPage"`
	HasPreviousPage bool  `expr:"hasPreviousPage"`
}

type offsetPager struct {
	skip int
	take *int
}

func (p offsetPager) Window(total int) (int, int, error) {
	start := min(p.skip, total)
	end := total
	if p.take != nil {
		end = min(start+*p.take, total)
	}
	return start, end, nil
}

func (p offsetPager) Build(items []any, start, total int) (any, error) {
	if items == nil {
		items = []any{}
	}
	return &OffsetPage{
		Items:           items,
		TotalItems:      total,
		HasNextPage:     start+len(items) < total,
		HasPreviousPage: start > 0,
	}, nil
}

func (p offsetPager) String() string {
	if p.take == nil {
		return fmt.Sprintf("offset(skip: %d)", p.skip)
	}
	return fmt.Sprintf("offset(skip: %d, take: %d)", p.skip, *p.take)
}
