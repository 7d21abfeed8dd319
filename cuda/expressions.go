package cuda

import (
	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/lower"
)

const (
	precTernary = -1
	precUnary   = 12
	precPrimary = 14
)

// precedence of the outermost operator of e, C rules.
func precedence(e ir.Expr) int {
	switch x := e.(type) {
	case *ir.Binary:
		return x.Op.Precedence()
	case *ir.Select:
		return precTernary
	case *ir.Unary, *ir.Convert:
		return precUnary
	}
	return precPrimary
}

// expr prints e.
func (w *Writer) expr(e ir.Expr) string {
	switch x := e.(type) {
	case *ir.Const:
		return x.String()
	case *ir.Var:
		return x.Name
	case *ir.Load:
		return lower.FieldPointer(x.Field) + "[" + w.expr(x.Index) + "]"
	case *ir.Binary:
		p := x.Op.Precedence()
		left := w.operand(x.Left, p, false)
		right := w.operand(x.Right, p, true)
		return left + " " + x.Op.String() + " " + right
	case *ir.Unary:
		op := "-"
		if x.Op == ir.OpNot {
			op = "!"
		}
		return op + w.operand(x.X, precUnary, true)
	case *ir.Select:
		return "(" + w.expr(x.Cond) + ") ? " + w.operand(x.Then, precTernary, true) + " : " + w.operand(x.Else, precTernary, true)
	case *ir.Convert:
		return "((" + typeName(x.To) + ") " + w.operand(x.X, precUnary, true) + ")"
	case *ir.EdgeDst:
		return "graph.getAbsDestination(" + w.expr(x.Edge) + ")"
	case *ir.EdgeWeight:
		return "graph.getAbsWeight(" + w.expr(x.Edge) + ")"
	case *ir.OutDegree:
		return "graph.getOutDegree(" + w.expr(x.Node) + ")"
	case *ir.NodeData:
		return "graph.node_data[" + w.expr(x.Node) + "]"
	case *ir.Abs:
		return "fabs(" + w.expr(x.X) + ")"
	case nil:
		w.fail("missing expression")
		return ""
	}
	w.fail("expression %T", e)
	return ""
}

// operand prints e as an operand of an operator with precedence p. Right operands of equal
// precedence are parenthesized since none of the binary operators is treated as associative.
func (w *Writer) operand(e ir.Expr, p int, right bool) string {
	q := precedence(e)
	s := w.expr(e)
	if q < p || (right && q == p && q != precPrimary) {
		return "(" + s + ")"
	}
	return s
}

// cast prints e converted to t when its type differs.
func (w *Writer) cast(e ir.Expr, t ir.Type) string {
	if w.typeOf(e) == t {
		return w.expr(e)
	}
	return "(" + typeName(t) + ") " + w.operand(e, precUnary, true)
}
