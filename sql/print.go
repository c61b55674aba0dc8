package sql

import (
	"bytes"
	"fmt"
	"strings"
)

// Canonical printing of tree nodes. The output is deterministic for a given
// tree, which is what lets the compiler key maps by printed expressions; it
// also doubles as the diagnostic form shown in error messages.

func printIdent(id Ident, buf *bytes.Buffer) {
	if id.IsUnique() {
		buf.WriteString(fmt.Sprintf("unique#%d", id.Sym))
	} else {
		buf.WriteString(id.Name)
	}
}

func doPrintNode(node Node, buf *bytes.Buffer) {
	if node == nil {
		return
	}

	switch node.Type() {
	case NodeInteger:
		buf.WriteString(fmt.Sprintf("%d", node.(*Integer).Value))
		break

	case NodeBool:
		buf.WriteString(fmt.Sprintf("%t", node.(*Bool).Value))
		break

	case NodeString:
		buf.WriteString(fmt.Sprintf("%q", node.(*String).Value))
		break

	case NodeName:
		printIdent(node.(*Name).Id, buf)
		break

	case NodeInternalName:
		buf.WriteString(node.(*InternalName).Id)
		break

	case NodeBinaryOp:
		b := node.(*BinaryOp)
		buf.WriteString("(")
		doPrintNode(b.L, buf)
		buf.WriteString(" ")
		buf.WriteString(b.Op)
		buf.WriteString(" ")
		doPrintNode(b.R, buf)
		buf.WriteString(")")
		break

	case NodeCallSetFunction:
		c := node.(*CallSetFunction)
		buf.WriteString(c.Func)
		buf.WriteString("(")
		for idx, arg := range c.Args {
			if idx > 0 {
				buf.WriteString(", ")
			}
			doPrintNode(arg, buf)
		}
		buf.WriteString(")")
		break

	case NodeColumn:
		col := node.(*Column)
		doPrintNode(col.Value, buf)
		if !col.As.Empty() {
			buf.WriteString(" as ")
			printIdent(col.As, buf)
		}
		break

	case NodeWildCard:
		w := node.(*WildCard)
		if w.Table != "" {
			buf.WriteString(w.Table)
			buf.WriteString(".")
		}
		buf.WriteString("*")
		break

	case NodeOrderBy:
		o := node.(*OrderBy)
		doPrintNode(o.Value, buf)
		if o.Order == OrderDesc {
			buf.WriteString(" desc")
		} else {
			buf.WriteString(" asc")
		}
		break

	case NodeTableRef:
		t := node.(*TableRef)
		if t.Schema != "" {
			buf.WriteString(t.Schema)
			buf.WriteString(".")
		}
		buf.WriteString(t.Name)
		if t.Alias != "" {
			buf.WriteString(" as ")
			buf.WriteString(t.Alias)
		}
		break

	case NodeJoin:
		j := node.(*Join)
		doPrintNode(j.Left, buf)
		buf.WriteString(fmt.Sprintf(" %s join ", j.Kind))
		doPrintNode(j.Right, buf)
		buf.WriteString(" on ")
		doPrintNode(j.On, buf)
		break

	case NodeSubQuery:
		s := node.(*SubQuery)
		buf.WriteString("(")
		doPrintSelect(s.Query, buf)
		buf.WriteString(") as ")
		buf.WriteString(s.Alias)
		break

	case NodeTableFunction:
		f := node.(*TableFunction)
		buf.WriteString(f.Func)
		buf.WriteString("(")
		for idx, arg := range f.Args {
			if idx > 0 {
				buf.WriteString(", ")
			}
			doPrintNode(arg, buf)
		}
		buf.WriteString(")")
		if f.Alias != "" {
			buf.WriteString(" as ")
			buf.WriteString(f.Alias)
		}
		break

	case NodeLateral:
		buf.WriteString("lateral ")
		doPrintNode(node.(*Lateral).Table, buf)
		break

	case NodeSelect:
		doPrintSelect(node.(*Select), buf)
		break

	case NodeShow:
		buf.WriteString("show ")
		buf.WriteString(strings.Join(node.(*Show).Args, " "))
		break

	case NodeCopyFrom:
		c := node.(*CopyFrom)
		buf.WriteString(fmt.Sprintf("copy %s from %q", c.Table, c.Path))
		break

	case NodeCopyTo:
		c := node.(*CopyTo)
		buf.WriteString(fmt.Sprintf("copy %s to %q", c.Table, c.Path))
		break

	case NodeDropTable:
		buf.WriteString("drop table ")
		buf.WriteString(strings.Join(node.(*DropTable).Names, ", "))
		break

	case NodeCreateTableAs:
		c := node.(*CreateTableAs)
		buf.WriteString(fmt.Sprintf("create table %s as ", c.Name))
		doPrintSelect(c.Query, buf)
		break

	default:
		buf.WriteString(fmt.Sprintf("<%s>", TypeName(node.Type())))
		break
	}
}

func doPrintSelect(s *Select, buf *bytes.Buffer) {
	if s.With != nil {
		buf.WriteString("with ")
		for idx, cte := range s.With {
			if idx > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(cte.Name)
			buf.WriteString(" as (")
			doPrintSelect(cte.Query, buf)
			buf.WriteString(")")
		}
		buf.WriteString(" ")
	}
	buf.WriteString("select ")
	if s.Quantifier != "" {
		buf.WriteString(s.Quantifier)
		buf.WriteString(" ")
	}
	for idx, col := range s.Columns {
		if idx > 0 {
			buf.WriteString(", ")
		}
		doPrintNode(col, buf)
	}
	if s.From != nil {
		buf.WriteString(" from ")
		for idx, t := range s.From {
			if idx > 0 {
				buf.WriteString(", ")
			}
			doPrintNode(t, buf)
		}
	}
	if s.Where != nil {
		buf.WriteString(" where ")
		doPrintNode(s.Where, buf)
	}
	if s.GroupBy != nil {
		buf.WriteString(" group by ")
		for idx, g := range s.GroupBy {
			if idx > 0 {
				buf.WriteString(", ")
			}
			doPrintNode(g, buf)
		}
	}
	if s.Having != nil {
		buf.WriteString(" having ")
		doPrintNode(s.Having, buf)
	}
	if s.OrderBy != nil {
		buf.WriteString(" order by ")
		for idx, o := range s.OrderBy {
			if idx > 0 {
				buf.WriteString(", ")
			}
			doPrintNode(o, buf)
		}
	}
	if s.Limit != nil {
		buf.WriteString(" limit ")
		doPrintNode(s.Limit, buf)
	}
	if s.Offset != nil {
		buf.WriteString(" offset ")
		doPrintNode(s.Offset, buf)
	}
}

func PrintNode(node Node) string {
	b := &bytes.Buffer{}
	doPrintNode(node, b)
	return b.String()
}

func PrintExpr(expr Expr) string {
	return PrintNode(expr)
}

// Key returns the canonical map key for an expression. Two structurally
// equal expressions always print to the same key.
func Key(expr Expr) string {
	return PrintNode(expr)
}
