package expr

import (
	"context"
	"sync/atomic"
)

// NodeID uniquely identifies an expression node. Rewrites never reuse an ID:
// a rebuilt node always receives a fresh one.
type NodeID uint64

var lastNodeID atomic.Uint64

func nextID() NodeID { return NodeID(lastNodeID.Add(1)) }

// Expr is an immutable expression node.
type Expr interface {
	ID() NodeID
	Children() []Expr
	// withChildren returns a copy of the node with the given children.
	// The copy has a fresh ID.
	withChildren(children []Expr) Expr
}

type node struct{ id NodeID }

func (n node) ID() NodeID { return n.id }

func newNode() node { return node{id: nextID()} }

// Param is a named parameter. It is bound either by the evaluation
// environment (the schema context, a phase-B result) or by a Select, Project
// or Where that declares it.
type Param struct {
	node
	Name string
}

func NewParam(name string) *Param { return &Param{node: newNode(), Name: name} }

func (p *Param) Children() []Expr { return nil }
func (p *Param) withChildren([]Expr) Expr { return p }
func (p *Param) String() string { return p.Name }

type ConstExpr struct {
	node
	Value any
}

func Const(v any) *ConstExpr { return &ConstExpr{node: newNode(), Value: v} }

func (c *ConstExpr) Children() []Expr { return nil }
func (c *ConstExpr) withChildren([]Expr) Expr { return Const(c.Value) }

// MemberExpr reads a named member of Target. A nil target yields nil.
type MemberExpr struct {
	node
	Target Expr
	Name   string
}

func Member(target Expr, name string) *MemberExpr {
	return &MemberExpr{node: newNode(), Target: target, Name: name}
}

func (m *MemberExpr) Children() []Expr { return []Expr{m.Target} }
func (m *MemberExpr) withChildren(c []Expr) Expr {
	return Member(c[0], m.Name)
}

// ObjectField is one named entry of an ObjectExpr.
type ObjectField struct {
	Name  string
	Value Expr
}

// ObjectExpr builds a map[string]any, evaluating fields in declaration order.
type ObjectExpr struct {
	node
	Fields []ObjectField
}

func Object(fields ...ObjectField) *ObjectExpr {
	return &ObjectExpr{node: newNode(), Fields: fields}
}

func (o *ObjectExpr) Children() []Expr {
	out := make([]Expr, len(o.Fields))
	for i, f := range o.Fields {
		out[i] = f.Value
	}
	return out
}

func (o *ObjectExpr) withChildren(c []Expr) Expr {
	fields := make([]ObjectField, len(o.Fields))
	for i, f := range o.Fields {
		fields[i] = ObjectField{Name: f.Name, Value: c[i]}
	}
	return Object(fields...)
}

// Field looks up an entry by name.
func (o *ObjectExpr) Field(name string) (Expr, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// SelectExpr maps every element of Source through Body with Item (and the
// optional zero-based Index) bound. Nil elements map to nil without
// evaluating Body.
type SelectExpr struct {
	node
	Source Expr
	Item   *Param
	Index  *Param
	Body   Expr
}

func Select(source Expr, item *Param, body Expr) *SelectExpr {
	return &SelectExpr{node: newNode(), Source: source, Item: item, Body: body}
}

func SelectIndexed(source Expr, item, index *Param, body Expr) *SelectExpr {
	return &SelectExpr{node: newNode(), Source: source, Item: item, Index: index, Body: body}
}

func (s *SelectExpr) Children() []Expr { return []Expr{s.Source, s.Body} }
func (s *SelectExpr) withChildren(c []Expr) Expr {
	return &SelectExpr{node: newNode(), Source: c[0], Item: s.Item, Index: s.Index, Body: c[1]}
}

// ProjectExpr evaluates Source once, binds it to Item and evaluates Body.
// A nil source yields nil.
type ProjectExpr struct {
	node
	Source Expr
	Item   *Param
	Body   Expr
}

func Project(source Expr, item *Param, body Expr) *ProjectExpr {
	return &ProjectExpr{node: newNode(), Source: source, Item: item, Body: body}
}

func (p *ProjectExpr) Children() []Expr { return []Expr{p.Source, p.Body} }
func (p *ProjectExpr) withChildren(c []Expr) Expr {
	return Project(c[0], p.Item, c[1])
}

// WhereExpr keeps the elements of Source for which Predicate is true.
type WhereExpr struct {
	node
	Source    Expr
	Item      *Param
	Predicate Expr
}

func Where(source Expr, item *Param, predicate Expr) *WhereExpr {
	return &WhereExpr{node: newNode(), Source: source, Item: item, Predicate: predicate}
}

func (w *WhereExpr) Children() []Expr { return []Expr{w.Source, w.Predicate} }
func (w *WhereExpr) withChildren(c []Expr) Expr {
	return Where(c[0], w.Item, c[1])
}

type SortKey struct {
	Name string
	Desc bool
}

// OrderByExpr stably sorts Source by the named members of its elements.
type OrderByExpr struct {
	node
	Source Expr
	Keys   []SortKey
}

func OrderBy(source Expr, keys ...SortKey) *OrderByExpr {
	return &OrderByExpr{node: newNode(), Source: source, Keys: keys}
}

func (o *OrderByExpr) Children() []Expr { return []Expr{o.Source} }
func (o *OrderByExpr) withChildren(c []Expr) Expr {
	return OrderBy(c[0], o.Keys...)
}

type CountExpr struct {
	node
	Source Expr
}

func Count(source Expr) *CountExpr { return &CountExpr{node: newNode(), Source: source} }

func (c *CountExpr) Children() []Expr { return []Expr{c.Source} }
func (c *CountExpr) withChildren(ch []Expr) Expr { return Count(ch[0]) }

// FirstExpr yields the first element of Source, or nil when it is empty.
type FirstExpr struct {
	node
	Source Expr
}

func First(source Expr) *FirstExpr { return &FirstExpr{node: newNode(), Source: source} }

func (f *FirstExpr) Children() []Expr { return []Expr{f.Source} }
func (f *FirstExpr) withChildren(c []Expr) Expr { return First(c[0]) }

// Pager decides which slice of a sequence a PageExpr materializes and shapes
// the result. Implementations must be immutable: one PageExpr may be
// evaluated many times, once per parent element.
type Pager interface {
	// Window returns the half-open, zero-based range to materialize given
	// the full length of the sequence.
	Window(total int) (start, end int, err error)
	// Build shapes the materialized items. start is the zero-based position
	// of items[0] in the full sequence.
	Build(items []any, start, total int) (any, error)
}

// PageExpr materializes a window of Source. Data sources that can count and
// slice natively evaluate it without loading the full sequence.
type PageExpr struct {
	node
	Source Expr
	Pager  Pager
}

func Page(source Expr, pager Pager) *PageExpr {
	return &PageExpr{node: newNode(), Source: source, Pager: pager}
}

func (p *PageExpr) Children() []Expr { return []Expr{p.Source} }
func (p *PageExpr) withChildren(c []Expr) Expr { return Page(c[0], p.Pager) }

type BinaryOp string

const (
	OpEq  BinaryOp = "=="
	OpNe  BinaryOp = "!="
	OpLt  BinaryOp = "<"
	OpLe  BinaryOp = "<="
	OpGt  BinaryOp = ">"
	OpGe  BinaryOp = ">="
	OpAnd BinaryOp = "&&"
	OpOr  BinaryOp = "||"
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
)

type BinaryExpr struct {
	node
	Op          BinaryOp
	Left, Right Expr
}

func Binary(op BinaryOp, left, right Expr) *BinaryExpr {
	return &BinaryExpr{node: newNode(), Op: op, Left: left, Right: right}
}

func Eq(left, right Expr) *BinaryExpr { return Binary(OpEq, left, right) }

func (b *BinaryExpr) Children() []Expr { return []Expr{b.Left, b.Right} }
func (b *BinaryExpr) withChildren(c []Expr) Expr {
	return Binary(b.Op, c[0], c[1])
}

// Func is the Go implementation behind a CallExpr.
type Func func(ctx context.Context, args []any) (any, error)

// CallExpr invokes an in-process function. Calls are opaque to data sources.
type CallExpr struct {
	node
	Name string
	Fn   Func
	Args []Expr
}

func Call(name string, fn Func, args ...Expr) *CallExpr {
	return &CallExpr{node: newNode(), Name: name, Fn: fn, Args: args}
}

func (c *CallExpr) Children() []Expr { return c.Args }
func (c *CallExpr) withChildren(ch []Expr) Expr {
	return Call(c.Name, c.Fn, ch...)
}

// ServiceExpr evaluates to the service instance registered under Name.
// Its presence makes an expression service-dependent.
type ServiceExpr struct {
	node
	Name string
}

func Service(name string) *ServiceExpr { return &ServiceExpr{node: newNode(), Name: name} }

func (s *ServiceExpr) Children() []Expr { return nil }
func (s *ServiceExpr) withChildren([]Expr) Expr { return Service(s.Name) }

// MarkerExpr stands in for a field deferred to the second execution phase.
// It evaluates to nil.
type MarkerExpr struct {
	node
	Field string
}

func Marker(field string) *MarkerExpr { return &MarkerExpr{node: newNode(), Field: field} }

func (m *MarkerExpr) Children() []Expr { return nil }
func (m *MarkerExpr) withChildren([]Expr) Expr { return m }

// GuardExpr isolates failures of Body: an error is reported to the
// environment's guard handler with the current response path and the guard
// evaluates to nil.
type GuardExpr struct {
	node
	Label string
	Body  Expr
}

func Guard(label string, body Expr) *GuardExpr {
	return &GuardExpr{node: newNode(), Label: label, Body: body}
}

func (g *GuardExpr) Children() []Expr { return []Expr{g.Body} }
func (g *GuardExpr) withChildren(c []Expr) Expr { return Guard(g.Label, c[0]) }
