// Package compiler turns a GraphQL operation into expression trees.
//
// Compile resolves every selected field against the schema and builds a tree
// of nodes, each carrying the expression its field produced. BuildPhaseA
// assembles the context-only tree handed to the data source; BuildPhaseB
// assembles the in-process tree that resolves deferred service fields over
// the materialized phase-A result.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	compilectx "github.com/hanpama/gqlexpr/internal/compilectx"
	expr "github.com/hanpama/gqlexpr/internal/expr"
	language "github.com/hanpama/gqlexpr/internal/language"
	schema "github.com/hanpama/gqlexpr/internal/schema"
)

// SelectionError reports a selection that cannot be compiled. It aborts the
// whole compilation.
type SelectionError struct {
	Path    []any
	Message string
}

func (e *SelectionError) Error() string { return e.Message }

func selectionErrorf(path []any, format string, args ...any) *SelectionError {
	return &SelectionError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Query is a compiled operation.
type Query struct {
	Operation *language.OperationDefinition
	RootType  *schema.Type
	Nodes     []*Node
	// ContextParam is bound to the root value when the trees are evaluated.
	ContextParam *expr.Param
	Context      *compilectx.Context
}

// Node is one selected field occurrence.
type Node struct {
	Field        *schema.Field
	ResponseName string
	// Path holds the response names from the root; list indexes are not
	// part of it.
	Path      []any
	Arguments map[string]any
	// Type is the effective return type of the field.
	Type *schema.TypeRef
	// Value is the field's expression before its selection set is applied.
	// For deferred fields it is the live, service backed expression.
	Value expr.Expr
	// Item is bound to each object the selection set is applied to.
	Item *expr.Param
	// Expression is Value with the selection set applied. Deferred fields
	// keep their complete live expression here.
	Expression expr.Expr
	Children   []*Node
	// Marker stands in for a deferred field in phase A.
	Marker *expr.MarkerExpr
	// Err is a field scoped failure; the field resolves to null.
	Err error
	// Typename is set for __typename selections.
	Typename string
	// Services lists the services the field needs.
	Services []string
	Fields   []*language.Field
}

func (n *Node) ResponsePath() []any { return n.Path }

// Deferred reports whether the field resolves in phase B.
func (n *Node) Deferred() bool { return n.Marker != nil }

// HasExtractedDescendant reports whether n or a node below it is deferred.
func (n *Node) HasExtractedDescendant() bool {
	if n.Marker != nil {
		return true
	}
	for _, c := range n.Children {
		if c.HasExtractedDescendant() {
			return true
		}
	}
	return false
}

// Walk visits every node below nodes in document order.
func Walk(nodes []*Node, fn func(*Node)) {
	for _, n := range nodes {
		fn(n)
		Walk(n.Children, fn)
	}
}

// Compiler compiles operations against one frozen schema.
type Compiler struct {
	schema *schema.Schema
	meta   *schema.Schema
}

type Option func(*Compiler)

// WithMetaSchema makes the root query fields and types of meta selectable
// next to those of the compiled schema. Introspection uses it.
func WithMetaSchema(meta *schema.Schema) Option {
	return func(c *Compiler) { c.meta = meta }
}

func New(s *schema.Schema, opts ...Option) *Compiler {
	c := &Compiler{schema: s}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type compilation struct {
	ctx      context.Context
	compiler *Compiler
	cc       *compilectx.Context
	document *language.QueryDocument
}

// Compile compiles the named operation of document. Variables are read from
// cc and must already be coerced. A *SelectionError means the document
// selects something the schema cannot resolve.
func (c *Compiler) Compile(ctx context.Context, document *language.QueryDocument, operationName string, cc *compilectx.Context) (*Query, error) {
	operation, err := GetOperation(document, operationName)
	if err != nil {
		return nil, err
	}
	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = c.schema.GetQueryType()
	case language.Mutation:
		rootType = c.schema.GetMutationType()
	case language.Subscription:
		return nil, errors.New("subscriptions are not supported")
	default:
		return nil, fmt.Errorf("unsupported operation type: %s", operation.Operation)
	}
	if rootType == nil {
		return nil, fmt.Errorf("root type not found for %s operation", operation.Operation)
	}

	comp := &compilation{ctx: ctx, compiler: c, cc: cc, document: document}
	nodes, err := comp.selectionSet(nil, rootType, operation.SelectionSet, c.schema.ContextParam, nil, false)
	if err != nil {
		return nil, err
	}
	return &Query{
		Operation:    operation,
		RootType:     rootType,
		Nodes:        nodes,
		ContextParam: c.schema.ContextParam,
		Context:      cc,
	}, nil
}

func (c *compilation) lookupType(name string) *schema.Type {
	if t, ok := c.compiler.schema.Types[name]; ok {
		return t
	}
	if c.compiler.meta != nil {
		return c.compiler.meta.Types[name]
	}
	return nil
}

func (c *compilation) lookupField(objectType *schema.Type, name string) *schema.Field {
	if f := objectType.Field(name); f != nil {
		return f
	}
	if c.compiler.meta != nil && objectType.Name == c.compiler.schema.QueryType {
		if q := c.compiler.meta.GetQueryType(); q != nil {
			return q.Field(name)
		}
	}
	return nil
}

// selectionSet compiles the fields selected from objectType. fieldContext is
// the expression children are rebased onto; beneath a deferred field
// contextChanged is set and children are compiled live.
func (c *compilation) selectionSet(parent *Node, objectType *schema.Type, set language.SelectionSet, fieldContext expr.Expr, path []any, contextChanged bool) ([]*Node, error) {
	grouped, err := c.collectFields(objectType, set, path)
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, len(grouped.fields))
	for _, cf := range grouped.orderedFields() {
		n, err := c.field(parent, objectType, cf, fieldContext, appendPath(path, cf.ResponseName), contextChanged)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (c *compilation) field(parent *Node, objectType *schema.Type, cf collectedField, fieldContext expr.Expr, path []any, contextChanged bool) (*Node, error) {
	first := cf.Fields[0]
	n := &Node{ResponseName: cf.ResponseName, Path: path, Fields: cf.Fields}

	if first.Name == "__typename" {
		if objectType.Kind != schema.TypeKindObject {
			return nil, selectionErrorf(path, "__typename of abstract type '%s' cannot be resolved", objectType.Name)
		}
		n.Typename = objectType.Name
		n.Type = schema.NonNullType(schema.NamedType("String"))
		n.Value = expr.Const(objectType.Name)
		n.Expression = n.Value
		return n, nil
	}

	fieldDef := c.lookupField(objectType, first.Name)
	if fieldDef == nil {
		return nil, selectionErrorf(path, "Cannot query field '%s' on type '%s'", first.Name, objectType.Name)
	}
	n.Field = fieldDef
	n.Type = fieldDef.Type

	namedType := c.lookupType(schema.GetNamedType(fieldDef.Type))
	if namedType == nil {
		return nil, selectionErrorf(path, "unknown type '%s'", schema.GetNamedType(fieldDef.Type))
	}
	selection := mergeSelectionSets(cf.Fields)
	if namedType.IsComposite() && len(selection) == 0 {
		return nil, selectionErrorf(path, "field '%s' of type '%s' must have a selection of subfields", first.Name, fieldDef.Type)
	}
	if !namedType.IsComposite() && len(selection) > 0 {
		return nil, selectionErrorf(path, "field '%s' must not have a selection since type '%s' has no subfields", first.Name, fieldDef.Type)
	}

	args, err := fieldDef.CoerceArguments(first.Arguments, c.cc.Variables())
	if err != nil {
		var usage *schema.UsageError
		if errors.As(err, &usage) {
			return nil, selectionErrorf(path, "%s", usage.Error())
		}
		n.Err = err
		return n, nil
	}
	n.Arguments = args

	var parentNode schema.ParentNode
	if parent != nil {
		parentNode = parent
	}
	value, item, err := fieldDef.GetExpression(c.ctx, schema.ExpressionRequest{
		FieldContext:   fieldContext,
		Parent:         parentNode,
		SchemaContext:  c.compiler.schema.ContextParam,
		CompileContext: c.cc,
		Arguments:      args,
		Variables:      c.cc.Variables(),
		Directives:     first.Directives,
		ContextChanged: contextChanged,
		Path:           path,
	})
	if err != nil {
		n.Err = err
		return n, nil
	}
	if m, ok := value.(*expr.MarkerExpr); ok {
		sf, ok := c.cc.ServiceField(m)
		if !ok {
			return nil, unknownMarker(path, m)
		}
		n.Marker = m
		value = sf.Live
		contextChanged = true
	}
	n.Value = value
	n.Services = expr.Services(value)

	if !namedType.IsComposite() {
		n.Expression = value
	} else {
		if item == nil {
			item = expr.NewParam(paramName(namedType.Name))
		}
		n.Item = item
		children, err := c.selectionSet(n, namedType, selection, item, path, contextChanged)
		if err != nil {
			return nil, err
		}
		n.Children = children
		body, err := objectA(children, c.cc)
		if err != nil {
			return nil, err
		}
		n.Expression = shape(value, n.Type, item, body)
	}

	if n.Marker != nil {
		c.cc.SetLive(n.Marker, n.Expression)
	} else if len(n.Services) > 0 {
		n.Expression = expr.Guard(pathString(path), n.Expression)
	}
	return n, nil
}

// shape applies body to the value of a field of type t: once per element of
// a list, or once to the object itself.
func shape(src expr.Expr, t *schema.TypeRef, item *expr.Param, body expr.Expr) expr.Expr {
	t = t.Nullable()
	if t.Kind != schema.TypeRefKindList {
		return expr.Project(src, item, body)
	}
	inner := t.OfType.Nullable()
	if inner.Kind == schema.TypeRefKindList {
		elem := expr.NewParam("l")
		return expr.Select(src, elem, shape(elem, t.OfType, item, body))
	}
	return expr.Select(src, item, body)
}

func paramName(typeName string) string {
	name := strings.TrimLeft(typeName, "_")
	if name == "" {
		return "x"
	}
	return strings.ToLower(name[:1])
}

func appendPath(path []any, elem any) []any {
	out := make([]any, len(path)+1)
	copy(out, path)
	out[len(path)] = elem
	return out
}

func pathString(path []any) string {
	var b strings.Builder
	for i, elem := range path {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		}
	}
	return b.String()
}
