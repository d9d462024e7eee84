package expr

import (
	"fmt"
	"strings"
)

// Format renders e as a compact single-line string for logs and tests.
func Format(e Expr) string {
	var b strings.Builder
	format(&b, e)
	return b.String()
}

func format(b *strings.Builder, e Expr) {
	switch e := e.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Param:
		b.WriteString(e.Name)
	case *ConstExpr:
		fmt.Fprintf(b, "%#v", e.Value)
	case *MemberExpr:
		format(b, e.Target)
		b.WriteByte('.')
		b.WriteString(e.Name)
	case *ObjectExpr:
		b.WriteByte('{')
		for i, f := range e.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			format(b, f.Value)
		}
		b.WriteByte('}')
	case *SelectExpr:
		format(b, e.Source)
		if e.Index != nil {
			fmt.Fprintf(b, ".Select((%s, %s) => ", e.Item.Name, e.Index.Name)
		} else {
			fmt.Fprintf(b, ".Select(%s => ", e.Item.Name)
		}
		format(b, e.Body)
		b.WriteByte(')')
	case *ProjectExpr:
		format(b, e.Source)
		fmt.Fprintf(b, ".Let(%s => ", e.Item.Name)
		format(b, e.Body)
		b.WriteByte(')')
	case *WhereExpr:
		format(b, e.Source)
		fmt.Fprintf(b, ".Where(%s => ", e.Item.Name)
		format(b, e.Predicate)
		b.WriteByte(')')
	case *OrderByExpr:
		format(b, e.Source)
		b.WriteString(".OrderBy(")
		for i, k := range e.Keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k.Name)
			if k.Desc {
				b.WriteString(" desc")
			}
		}
		b.WriteByte(')')
	case *CountExpr:
		format(b, e.Source)
		b.WriteString(".Count()")
	case *FirstExpr:
		format(b, e.Source)
		b.WriteString(".First()")
	case *PageExpr:
		format(b, e.Source)
		fmt.Fprintf(b, ".Page(%v)", e.Pager)
	case *BinaryExpr:
		b.WriteByte('(')
		format(b, e.Left)
		fmt.Fprintf(b, " %s ", e.Op)
		format(b, e.Right)
		b.WriteByte(')')
	case *CallExpr:
		b.WriteString(e.Name)
		b.WriteByte('(')
		for i, a := range e.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, a)
		}
		b.WriteByte(')')
	case *ServiceExpr:
		fmt.Fprintf(b, "Service(%s)", e.Name)
	case *MarkerExpr:
		fmt.Fprintf(b, "Marker(%s)", e.Field)
	case *GuardExpr:
		b.WriteString("Guard(")
		format(b, e.Body)
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "%T", e)
	}
}
