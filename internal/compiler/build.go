package compiler

import (
	compilectx "github.com/hanpama/gqlexpr/internal/compilectx"
	expr "github.com/hanpama/gqlexpr/internal/expr"
)

// objectA builds the phase-A object for one selection set. A deferred field
// contributes its marker and the service-free values it was extracted with;
// fields that failed to compile contribute nothing.
func objectA(nodes []*Node, cc *compilectx.Context) (*expr.ObjectExpr, error) {
	fields := make([]expr.ObjectField, 0, len(nodes))
	for _, n := range nodes {
		if n.Err != nil {
			continue
		}
		if n.Marker == nil {
			fields = append(fields, expr.ObjectField{Name: n.ResponseName, Value: n.Expression})
			continue
		}
		fields = append(fields, expr.ObjectField{Name: n.ResponseName, Value: n.Marker})
		sf, ok := cc.ServiceField(n.Marker)
		if !ok {
			return nil, unknownMarker(n.Path, n.Marker)
		}
		for _, ex := range sf.Extracted {
			fields = append(fields, expr.ObjectField{Name: ex.Name, Value: ex.Expr})
		}
	}
	return expr.Object(fields...), nil
}

// unknownMarker reports a marker that was not deferred through cc.
func unknownMarker(path []any, m *expr.MarkerExpr) *SelectionError {
	return selectionErrorf(path, "field '%s' was not deferred by this compilation", m.Field)
}

// BuildPhaseA returns the context-only tree of q. It contains no service
// nodes when service fields execute separately.
func BuildPhaseA(q *Query) (expr.Expr, error) {
	tree, err := objectA(q.Nodes, q.Context)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// HasPhaseB reports whether q deferred any field.
func HasPhaseB(q *Query) bool {
	for _, n := range q.Nodes {
		if n.HasExtractedDescendant() {
			return true
		}
	}
	return false
}

// BuildPhaseB returns the tree resolving the deferred fields of q over the
// phase-A result, bound to the returned parameter. Subtrees without deferred
// fields are copied from the result; deferred fields evaluate their live
// expression with every extracted value read back from the result, each
// guarded so a failing service only nulls its own field.
func BuildPhaseB(q *Query) (*expr.Param, expr.Expr, error) {
	result := expr.NewParam("result")
	tree, err := objectB(q.Nodes, result, q.Context)
	if err != nil {
		return nil, nil, err
	}
	return result, tree, nil
}

func objectB(nodes []*Node, src expr.Expr, cc *compilectx.Context) (*expr.ObjectExpr, error) {
	fields := make([]expr.ObjectField, 0, len(nodes))
	for _, n := range nodes {
		if n.Err != nil {
			continue
		}
		switch {
		case n.Marker != nil:
			sf, ok := cc.ServiceField(n.Marker)
			if !ok {
				return nil, unknownMarker(n.Path, n.Marker)
			}
			for _, ex := range sf.Extracted {
				cc.Rebind(ex.Expr, expr.Member(src, ex.Name))
			}
			live := cc.Rebinder().Apply(sf.Live)
			fields = append(fields, expr.ObjectField{Name: n.ResponseName, Value: expr.Guard(pathString(n.Path), live)})
		case n.HasExtractedDescendant():
			item := expr.NewParam(n.Item.Name)
			body, err := objectB(n.Children, item, cc)
			if err != nil {
				return nil, err
			}
			fields = append(fields, expr.ObjectField{Name: n.ResponseName, Value: shape(expr.Member(src, n.ResponseName), n.Type, item, body)})
		default:
			fields = append(fields, expr.ObjectField{Name: n.ResponseName, Value: expr.Member(src, n.ResponseName)})
		}
	}
	return expr.Object(fields...), nil
}
