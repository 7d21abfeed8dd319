package ir

import "math"

// Constructors for writing programs in Go.

func V(name string) *Var { return &Var{Name: name} }

func U32(v uint32) *Const { return &Const{Type: TypeUint32, Bits: v} }

func I32(v int32) *Const { return &Const{Type: TypeInt32, Bits: uint32(v)} }

func F32(v float64) *Const { return &Const{Type: TypeFloat32, Float: float64(float32(v))} }

func Bool(b bool) *Const {
	if b {
		return &Const{Type: TypeBool, Bits: 1}
	}
	return &Const{Type: TypeBool}
}

// Infinity is a large distance that still leaves headroom for one relaxation step without wrapping.
const Infinity = math.MaxUint32 / 4

func Ld(field string, index Expr) *Load { return &Load{Field: field, Index: index} }

func bin(op BinaryOp, a, b Expr) *Binary { return &Binary{Op: op, Left: a, Right: b} }

func Add(a, b Expr) *Binary { return bin(OpAdd, a, b) }
func Sub(a, b Expr) *Binary { return bin(OpSub, a, b) }
func Mul(a, b Expr) *Binary { return bin(OpMul, a, b) }
func Div(a, b Expr) *Binary { return bin(OpDiv, a, b) }
func Mod(a, b Expr) *Binary { return bin(OpMod, a, b) }
func Eq(a, b Expr) *Binary  { return bin(OpEq, a, b) }
func Ne(a, b Expr) *Binary  { return bin(OpNe, a, b) }
func Lt(a, b Expr) *Binary  { return bin(OpLt, a, b) }
func Le(a, b Expr) *Binary  { return bin(OpLe, a, b) }
func Gt(a, b Expr) *Binary  { return bin(OpGt, a, b) }
func Ge(a, b Expr) *Binary  { return bin(OpGe, a, b) }
func And(a, b Expr) *Binary { return bin(OpAnd, a, b) }
func Or(a, b Expr) *Binary  { return bin(OpOr, a, b) }

func Not(x Expr) *Unary { return &Unary{Op: OpNot, X: x} }
func Neg(x Expr) *Unary { return &Unary{Op: OpNeg, X: x} }

func Sel(cond, then, els Expr) *Select { return &Select{Cond: cond, Then: then, Else: els} }

func Conv(to Type, x Expr) *Convert { return &Convert{To: to, X: x} }

func Dst(edge Expr) *EdgeDst                { return &EdgeDst{Edge: edge} }
func Weight(edge Expr) *EdgeWeight          { return &EdgeWeight{Edge: edge} }
func OutDeg(node Expr) *OutDegree           { return &OutDegree{Node: node} }
func NodeLabel(node Expr) *NodeData         { return &NodeData{Node: node} }
func AbsOf(x Expr) *Abs                     { return &Abs{X: x} }
func Let(name string, t Type, e Expr) *Decl { return &Decl{Name: name, Type: t, Init: e} }
func Local(name string, t Type) *Decl       { return &Decl{Name: name, Type: t} }
func Set(name string, e Expr) *Assign       { return &Assign{Name: name, Value: e} }

func StoreTo(field string, index, value Expr) *Store {
	return &Store{Field: field, Index: index, Value: value}
}

func Atom(op AtomicOp, field string, index, value Expr) *Atomic {
	return &Atomic{Op: op, Field: field, Index: index, Value: value}
}

// AtomOld is an atomic update whose previous value lands in result.
func AtomOld(result string, op AtomicOp, field string, index, value Expr) *Atomic {
	return &Atomic{Op: op, Field: field, Index: index, Value: value, Result: result}
}

func When(cond Expr, then ...Stmt) *If { return &If{Cond: cond, Then: then} }

func WhenElse(cond Expr, then, els Block) *If { return &If{Cond: cond, Then: then, Else: els} }

func Nodes(v string, body ...Stmt) *ForNodes { return &ForNodes{Var: v, Body: body} }

func Edges(v string, source Expr, body ...Stmt) *ForEdges {
	return &ForEdges{Var: v, Source: source, Body: body}
}

func Frontier(item string, body ...Stmt) *ForWorklist { return &ForWorklist{Item: item, Body: body} }

func Closure(body ...Stmt) *ClosureHint { return &ClosureHint{Body: body} }

func SkipEdges() *Skip { return &Skip{} }

func SignalAny() *Signal { return &Signal{} }

func SignalSum(n Expr) *Signal { return &Signal{Value: n} }

func PushVertex(v Expr) *PushItem { return &PushItem{Vertex: v} }
