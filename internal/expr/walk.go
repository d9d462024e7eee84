package expr

import "sort"

// Walk visits e and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range e.Children() {
		Walk(c, fn)
	}
}

// Contains reports whether any node of e satisfies pred.
func Contains(e Expr, pred func(Expr) bool) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if found {
			return false
		}
		if pred(n) {
			found = true
			return false
		}
		return true
	})
	return found
}

// HasService reports whether e depends on a service instance.
func HasService(e Expr) bool {
	return Contains(e, func(n Expr) bool {
		_, ok := n.(*ServiceExpr)
		return ok
	})
}

// Services returns the sorted, de-duplicated names of the services e uses.
func Services(e Expr) []string {
	seen := map[string]bool{}
	Walk(e, func(n Expr) bool {
		if s, ok := n.(*ServiceExpr); ok {
			seen[s.Name] = true
		}
		return true
	})
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// declared returns the parameters bound by binders inside e.
func declared(e Expr) map[*Param]bool {
	out := map[*Param]bool{}
	Walk(e, func(n Expr) bool {
		switch n := n.(type) {
		case *SelectExpr:
			out[n.Item] = true
			if n.Index != nil {
				out[n.Index] = true
			}
		case *ProjectExpr:
			out[n.Item] = true
		case *WhereExpr:
			out[n.Item] = true
		}
		return true
	})
	return out
}

// FreeParams returns the parameters e references without binding them, in
// first-reference order.
func FreeParams(e Expr) []*Param {
	bound := declared(e)
	seen := map[*Param]bool{}
	var out []*Param
	Walk(e, func(n Expr) bool {
		if p, ok := n.(*Param); ok && !bound[p] && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
		return true
	})
	return out
}

// Replace returns e with every node whose ID is a key of repl substituted by
// the mapped expression. Nodes on the path to a substitution are rebuilt with
// fresh IDs; untouched subtrees are shared. e itself is never modified.
func Replace(e Expr, repl map[NodeID]Expr) Expr {
	if e == nil || len(repl) == 0 {
		return e
	}
	if r, ok := repl[e.ID()]; ok {
		return r
	}
	children := e.Children()
	if len(children) == 0 {
		return e
	}
	var rebuilt []Expr
	for i, c := range children {
		nc := Replace(c, repl)
		if nc != c && rebuilt == nil {
			rebuilt = make([]Expr, len(children))
			copy(rebuilt, children[:i])
		}
		if rebuilt != nil {
			rebuilt[i] = nc
		}
	}
	if rebuilt == nil {
		return e
	}
	return e.withChildren(rebuilt)
}

// Replacer accumulates substitutions and applies them with Replace.
type Replacer struct {
	repl map[NodeID]Expr
}

func NewReplacer() *Replacer {
	return &Replacer{repl: map[NodeID]Expr{}}
}

// Set substitutes every occurrence of from with to. A nil from is ignored.
func (r *Replacer) Set(from, to Expr) *Replacer {
	if p, ok := from.(*Param); from == nil || (ok && p == nil) {
		return r
	}
	r.repl[from.ID()] = to
	return r
}

func (r *Replacer) Len() int { return len(r.repl) }

func (r *Replacer) Apply(e Expr) Expr { return Replace(e, r.repl) }

// ExtractCore returns the maximal sub-expressions of e that can be computed
// without services: each contains no ServiceExpr, references at least one
// parameter that is free in e, and references no parameter bound inside e.
// Shared subtrees are returned once.
func ExtractCore(e Expr) []Expr {
	bound := declared(e)
	var out []Expr
	seen := map[NodeID]bool{}
	var visit func(n Expr)
	visit = func(n Expr) {
		if seen[n.ID()] {
			return
		}
		if extractable(n, bound) {
			seen[n.ID()] = true
			out = append(out, n)
			return
		}
		for _, c := range n.Children() {
			visit(c)
		}
	}
	visit(e)
	return out
}

func extractable(n Expr, bound map[*Param]bool) bool {
	if HasService(n) {
		return false
	}
	local := declared(n)
	free := false
	ok := true
	Walk(n, func(x Expr) bool {
		if !ok {
			return false
		}
		switch x := x.(type) {
		case *MarkerExpr:
			ok = false
		case *Param:
			switch {
			case local[x]:
			case bound[x]:
				ok = false
			default:
				free = true
			}
		}
		return ok
	})
	return ok && free
}
