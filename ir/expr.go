package ir

import (
	"strconv"
	"strings"
)

// Expr is an expression node. The set of variants is closed.
type Expr interface {
	exprKind()
}

// Const is a literal. Integral values live in Bits (two's complement for Int32),
// floating values in Float.
type Const struct {
	Type  Type
	Bits  uint32
	Float float64
}

// Var reads a thread-local, a loop variable or a scalar parameter.
type Var struct {
	Name string
}

// Load is a plain read of Field[Index].
type Load struct {
	Field string
	Index Expr
}

type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binaryTokens = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&&", OpOr: "||",
}

func (op BinaryOp) String() string { return binaryTokens[op] }

// IsComparison reports whether op yields a Bool from numeric operands.
func (op BinaryOp) IsComparison() bool { return op >= OpEq && op <= OpGe }

// IsLogical reports whether op combines Bool operands.
func (op BinaryOp) IsLogical() bool { return op == OpAnd || op == OpOr }

// Precedence follows C; higher binds tighter.
func (op BinaryOp) Precedence() int {
	switch op {
	case OpMul, OpDiv, OpMod:
		return 10
	case OpAdd, OpSub:
		return 9
	case OpLt, OpLe, OpGt, OpGe:
		return 7
	case OpEq, OpNe:
		return 6
	case OpAnd:
		return 2
	case OpOr:
		return 1
	}
	return 0
}

type Binary struct {
	Op          BinaryOp
	Left, Right Expr
}

type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpNot
)

type Unary struct {
	Op UnaryOp
	X  Expr
}

// Select is the ternary conditional.
type Select struct {
	Cond, Then, Else Expr
}

// Convert is an explicit numeric conversion.
type Convert struct {
	To Type
	X  Expr
}

// EdgeDst is the absolute destination vertex of an edge cursor.
type EdgeDst struct {
	Edge Expr
}

// EdgeWeight is the weight of an edge cursor.
type EdgeWeight struct {
	Edge Expr
}

type OutDegree struct {
	Node Expr
}

// NodeData is the read-only static label of a vertex (its global id unless the graph says otherwise).
type NodeData struct {
	Node Expr
}

// Abs of a floating value.
type Abs struct {
	X Expr
}

func (*Const) exprKind()      {}
func (*Var) exprKind()        {}
func (*Load) exprKind()       {}
func (*Binary) exprKind()     {}
func (*Unary) exprKind()      {}
func (*Select) exprKind()     {}
func (*Convert) exprKind()    {}
func (*EdgeDst) exprKind()    {}
func (*EdgeWeight) exprKind() {}
func (*OutDegree) exprKind()  {}
func (*NodeData) exprKind()   {}
func (*Abs) exprKind()        {}

// Int returns the signed value of an integral constant.
func (c *Const) Int() int64 {
	if c.Type == TypeInt32 {
		return int64(int32(c.Bits))
	}
	return int64(c.Bits)
}

// Value returns the constant as a float64, whatever its type.
func (c *Const) Value() float64 {
	switch c.Type {
	case TypeFloat32:
		return c.Float
	case TypeBool:
		if c.Bits != 0 {
			return 1
		}
		return 0
	}
	return float64(c.Int())
}

func (c *Const) String() string {
	switch c.Type {
	case TypeBool:
		if c.Bits != 0 {
			return "true"
		}
		return "false"
	case TypeFloat32:
		s := strconv.FormatFloat(c.Float, 'g', -1, 32)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	case TypeInt32:
		return strconv.FormatInt(int64(int32(c.Bits)), 10)
	}
	return strconv.FormatUint(uint64(c.Bits), 10)
}

// ConstOf builds a constant of type t from a float64, truncating for integral types.
func ConstOf(t Type, v float64) *Const {
	switch t {
	case TypeFloat32:
		return &Const{Type: t, Float: v}
	case TypeBool:
		if v != 0 {
			return &Const{Type: t, Bits: 1}
		}
		return &Const{Type: t}
	case TypeInt32:
		return &Const{Type: t, Bits: uint32(int32(int64(v)))}
	}
	return &Const{Type: t, Bits: uint32(uint64(v))}
}
