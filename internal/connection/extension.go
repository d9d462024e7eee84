package connection

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hanpama/gqlexpr/internal/expr"
	"github.com/hanpama/gqlexpr/internal/schema"
)

type options struct {
	defaultPageSize int
	maxPageSize     int
}

// Option configures a paging extension.
type Option func(*options)

// WithDefaultPageSize limits pages requested without a size.
func WithDefaultPageSize(n int) Option {
	return func(o *options) { o.defaultPageSize = n }
}

// WithMaxPageSize rejects requested page sizes above n.
func WithMaxPageSize(n int) Option {
	return func(o *options) { o.maxPageSize = n }
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) sizeTag() string {
	if o.maxPageSize > 0 {
		return "min=0,max=" + strconv.Itoa(o.maxPageSize)
	}
	return "min=0"
}

// ConnectionPaging turns a list field into a connection.
type ConnectionPaging struct {
	opts options
}

// UseConnectionPaging returns the extension for list fields of object types.
// Configure adds the first, after, last and before arguments and rewrites
// the return type to <Item>Connection, non-null when the declared list is,
// registering the connection, edge and
// PageInfo types.
func UseConnectionPaging(opts ...Option) *ConnectionPaging {
	return &ConnectionPaging{opts: newOptions(opts)}
}

func (c *ConnectionPaging) Configure(s *schema.Schema, f *schema.Field) error {
	item, err := listItemType(s, f)
	if err != nil {
		return err
	}
	addArgument(f, "first", schema.NamedType("Int"))
	addArgument(f, "after", schema.NamedType("String"))
	addArgument(f, "last", schema.NamedType("Int"))
	addArgument(f, "before", schema.NamedType("String"))
	f.AddValidator(schema.TagValidator(map[string]string{
		"first": c.opts.sizeTag(),
		"last":  c.opts.sizeTag(),
	}))

	if _, ok := s.Types["PageInfo"]; !ok {
		s.AddType(schema.NewType("PageInfo", schema.TypeKindObject, "Information about pagination in a connection.").
			AddField(schema.NewField("hasNextPage", "", schema.NonNullType(schema.NamedType("Boolean")))).
			AddField(schema.NewField("hasPreviousPage", "", schema.NonNullType(schema.NamedType("Boolean")))).
			AddField(schema.NewField("startCursor", "", schema.NamedType("String"))).
			AddField(schema.NewField("endCursor", "", schema.NamedType("String"))))
	}
	edgeName := item + "Edge"
	if _, ok := s.Types[edgeName]; !ok {
		s.AddType(schema.NewType(edgeName, schema.TypeKindObject, "An edge in a connection of "+item+".").
			AddField(schema.NewField("node", "", schema.NonNullType(schema.NamedType(item)))).
			AddField(schema.NewField("cursor", "", schema.NonNullType(schema.NamedType("String")))))
	}
	connName := item + "Connection"
	if _, ok := s.Types[connName]; !ok {
		s.AddType(schema.NewType(connName, schema.TypeKindObject, "A connection to a list of "+item+".").
			AddField(schema.NewField("edges", "", schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType(edgeName)))))).
			AddField(schema.NewField("pageInfo", "", schema.NonNullType(schema.NamedType("PageInfo")))).
			AddField(schema.NewField("totalCount", "", schema.NonNullType(schema.NamedType("Int")))))
	}
	f.Type = wrapLike(f.Type, connName)
	return nil
}

// GetExpression decodes the cursors of the invocation and pages the list
// expression. An undecodable cursor fails with *InvalidCursorError.
func (c *ConnectionPaging) GetExpression(_ context.Context, req schema.ExtensionRequest) (expr.Expr, *expr.Param, error) {
	var args Args
	var err error
	if args.First, err = intArgument(req.Arguments, "first"); err != nil {
		return nil, nil, err
	}
	if args.Last, err = intArgument(req.Arguments, "last"); err != nil {
		return nil, nil, err
	}
	if args.After, err = cursorArgument(req.Arguments, "after"); err != nil {
		return nil, nil, err
	}
	if args.Before, err = cursorArgument(req.Arguments, "before"); err != nil {
		return nil, nil, err
	}
	if args.First == nil && args.Last == nil && c.opts.defaultPageSize > 0 {
		n := c.opts.defaultPageSize
		args.First = &n
	}
	return expr.Page(req.Expression, connectionPager{args: args}), nil, nil
}

// OffsetPaging turns a list field into a page addressed by skip and take.
type OffsetPaging struct {
	opts options
}

// UseOffsetPaging returns the extension adding skip and take arguments and
// rewriting the return type to <Item>Page, non-null when the declared list is.
func UseOffsetPaging(opts ...Option) *OffsetPaging {
	return &OffsetPaging{opts: newOptions(opts)}
}

func (o *OffsetPaging) Configure(s *schema.Schema, f *schema.Field) error {
	item, err := listItemType(s, f)
	if err != nil {
		return err
	}
	addArgument(f, "skip", schema.NamedType("Int"))
	addArgument(f, "take", schema.NamedType("Int"))
	f.AddValidator(schema.TagValidator(map[string]string{
		"skip": "min=0",
		"take": o.opts.sizeTag(),
	}))
	pageName := item + "Page"
	if _, ok := s.Types[pageName]; !ok {
		s.AddType(schema.NewType(pageName, schema.TypeKindObject, "A page of "+item+".").
			AddField(schema.NewField("items", "", schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType(item)))))).
			AddField(schema.NewField("totalItems", "", schema.NonNullType(schema.NamedType("Int")))).
			AddField(schema.NewField("hasNextPage", "", schema.NonNullType(schema.NamedType("Boolean")))).
			AddField(schema.NewField("hasPreviousPage", "", schema.NonNullType(schema.NamedType("Boolean")))))
	}
	f.Type = wrapLike(f.Type, pageName)
	return nil
}

func (o *OffsetPaging) GetExpression(_ context.Context, req schema.ExtensionRequest) (expr.Expr, *expr.Param, error) {
	var p offsetPager
	skip, err := intArgument(req.Arguments, "skip")
	if err != nil {
		return nil, nil, err
	}
	if skip != nil {
		p.skip = *skip
	}
	if p.take, err = intArgument(req.Arguments, "take"); err != nil {
		return nil, nil, err
	}
	if p.take == nil && o.opts.defaultPageSize > 0 {
		n := o.opts.defaultPageSize
		p.take = &n
	}
	return expr.Page(req.Expression, p), nil, nil
}

// listItemType returns the object type name of a list field.
func listItemType(s *schema.Schema, f *schema.Field) (string, error) {
	if f.Type == nil || f.Type.Nullable().Kind != schema.TypeRefKindList {
		return "", fmt.Errorf("paging requires a list type, got %s", f.Type)
	}
	name := f.Type.Nullable().OfType.Nullable()
	if name == nil || name.Kind != schema.TypeRefKindNamed {
		return "", fmt.Errorf("paging requires a list of named types, got %s", f.Type)
	}
	item, ok := s.Types[name.Named]
	if !ok || !item.IsComposite() {
		return "", fmt.Errorf("paging requires a list of objects, got %s", f.Type)
	}
	return item.Name, nil
}

// wrapLike names the paged type, non-null only when the list type was.
func wrapLike(list *schema.TypeRef, name string) *schema.TypeRef {
	t := schema.NamedType(name)
	if list.IsNonNull() {
		return schema.NonNullType(t)
	}
	return t
}

func addArgument(f *schema.Field, name string, t *schema.TypeRef) {
	for _, a := range f.Arguments {
		if a.Name == name {
			return
		}
	}
	f.AddArgument(schema.NewInputValue(name, "", t))
}

func intArgument(args map[string]any, name string) (*int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	n, ok := v.(int)
	if !ok {
		return nil, fmt.Errorf("argument %s: expected Int, got %T", name, v)
	}
	return &n, nil
}

func cursorArgument(args map[string]any, name string) (*int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &InvalidCursorError{Cursor: fmt.Sprint(v)}
	}
	n, err := DecodeCursor(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
