package hclprog

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/ScottSallinen/lollipop-gg/ir"
)

var binaryOps = map[*hclsyntax.Operation]ir.BinaryOp{
	hclsyntax.OpAdd:                ir.OpAdd,
	hclsyntax.OpSubtract:           ir.OpSub,
	hclsyntax.OpMultiply:           ir.OpMul,
	hclsyntax.OpDivide:             ir.OpDiv,
	hclsyntax.OpModulo:             ir.OpMod,
	hclsyntax.OpEqual:              ir.OpEq,
	hclsyntax.OpNotEqual:           ir.OpNe,
	hclsyntax.OpLessThan:           ir.OpLt,
	hclsyntax.OpLessThanOrEqual:    ir.OpLe,
	hclsyntax.OpGreaterThan:        ir.OpGt,
	hclsyntax.OpGreaterThanOrEqual: ir.OpGe,
	hclsyntax.OpLogicalAnd:         ir.OpAnd,
	hclsyntax.OpLogicalOr:          ir.OpOr,
}

var conversions = map[string]ir.Type{
	"float32": ir.TypeFloat32,
	"int32":   ir.TypeInt32,
	"uint32":  ir.TypeUint32,
	"index":   ir.TypeIndex,
}

// expr translates an HCL expression. Missing expressions were already reported and give nil.
func (d *decoder) expr(e hcl.Expression) ir.Expr {
	if e == nil {
		return nil
	}
	rng := e.Range().Ptr()
	switch x := e.(type) {
	case *hclsyntax.LiteralValueExpr:
		c, err := literal(x.Val)
		if err != nil {
			d.errorf(rng, "Invalid literal", err.Error())
			return nil
		}
		return c

	case *hclsyntax.ScopeTraversalExpr:
		root := x.Traversal.RootName()
		switch len(x.Traversal) {
		case 1:
			return ir.V(root)
		case 2:
			if idx, ok := x.Traversal[1].(hcl.TraverseIndex); ok {
				c, err := literal(idx.Key)
				if err != nil {
					d.errorf(rng, "Invalid index", err.Error())
					return nil
				}
				return ir.Ld(root, c)
			}
		}
		d.errorf(rng, "Unsupported reference", "Only plain names and field[index] reads are supported.")
		return nil

	case *hclsyntax.IndexExpr:
		coll, ok := x.Collection.(*hclsyntax.ScopeTraversalExpr)
		if !ok || len(coll.Traversal) != 1 {
			d.errorf(rng, "Unsupported index", "Only a field can be indexed.")
			return nil
		}
		return ir.Ld(coll.Traversal.RootName(), d.expr(x.Key))

	case *hclsyntax.ParenthesesExpr:
		return d.expr(x.Expression)

	case *hclsyntax.BinaryOpExpr:
		op, ok := binaryOps[x.Op]
		if !ok {
			d.errorf(rng, "Unsupported operator", "This operator has no device equivalent.")
			return nil
		}
		return &ir.Binary{Op: op, Left: d.expr(x.LHS), Right: d.expr(x.RHS)}

	case *hclsyntax.UnaryOpExpr:
		switch x.Op {
		case hclsyntax.OpLogicalNot:
			return ir.Not(d.expr(x.Val))
		case hclsyntax.OpNegate:
			return ir.Neg(d.expr(x.Val))
		}
		d.errorf(rng, "Unsupported operator", "Only ! and unary - are supported.")
		return nil

	case *hclsyntax.ConditionalExpr:
		return ir.Sel(d.expr(x.Condition), d.expr(x.TrueResult), d.expr(x.FalseResult))

	case *hclsyntax.FunctionCallExpr:
		return d.call(x)
	}
	d.errorf(rng, "Unsupported expression", fmt.Sprintf("%T cannot be used in a vertex program.", e))
	return nil
}

func (d *decoder) call(x *hclsyntax.FunctionCallExpr) ir.Expr {
	if len(x.Args) != 1 || x.ExpandFinal {
		d.errorf(x.Range().Ptr(), "Wrong number of arguments", x.Name+" takes one argument.")
		return nil
	}
	arg := d.expr(x.Args[0])
	switch x.Name {
	case "dst":
		return ir.Dst(arg)
	case "weight":
		return ir.Weight(arg)
	case "out_degree":
		return ir.OutDeg(arg)
	case "node_data":
		return ir.NodeLabel(arg)
	case "abs":
		return ir.AbsOf(arg)
	}
	if t, ok := conversions[x.Name]; ok {
		return ir.Conv(t, arg)
	}
	d.errorf(x.NameRange.Ptr(), "Call to unknown function", "There is no function named \""+x.Name+"\".")
	return nil
}

// literal types an untyped HCL literal: whole non-negative numbers are uint32, negative ones
// int32, other numbers float32.
func literal(v cty.Value) (*ir.Const, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, errors.New("literal has no value")
	}
	switch v.Type() {
	case cty.Bool:
		return ir.Bool(v.True()), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() && bf.Sign() >= 0 {
			if u, acc := bf.Uint64(); acc == big.Exact && u <= math.MaxUint32 {
				return ir.U32(uint32(u)), nil
			}
			return nil, fmt.Errorf("%s does not fit in 32 bits", bf.String())
		}
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact && i >= math.MinInt32 {
				return ir.I32(int32(i)), nil
			}
			return nil, fmt.Errorf("%s does not fit in 32 bits", bf.String())
		}
		f, _ := bf.Float64()
		return ir.F32(f), nil
	}
	return nil, fmt.Errorf("%s literals have no device type", v.Type().FriendlyName())
}

// constFromCty converts v to a constant of type t.
func constFromCty(v cty.Value, t ir.Type) (*ir.Const, error) {
	want := cty.Number
	if t == ir.TypeBool {
		want = cty.Bool
	}
	v, err := convert.Convert(v, want)
	if err != nil {
		return nil, fmt.Errorf("want %v: %w", t, err)
	}
	var c *ir.Const
	switch t {
	case ir.TypeBool:
		var b bool
		err = gocty.FromCtyValue(v, &b)
		c = ir.Bool(b)
	case ir.TypeFloat32:
		var f float64
		err = gocty.FromCtyValue(v, &f)
		c = ir.F32(f)
	case ir.TypeInt32:
		var i int32
		err = gocty.FromCtyValue(v, &i)
		c = ir.I32(i)
	case ir.TypeUint32, ir.TypeIndex:
		var u uint32
		err = gocty.FromCtyValue(v, &u)
		c = &ir.Const{Type: t, Bits: u}
	default:
		return nil, fmt.Errorf("no constants of type %v", t)
	}
	if err != nil {
		return nil, fmt.Errorf("want %v: %w", t, err)
	}
	return c, nil
}

// ParseValue reads a parameter value written as an HCL expression, such as "0.85" or "3".
func ParseValue(text string, t ir.Type) (*ir.Const, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(text), "value", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	c, err := constFromCty(v, t)
	if err != nil {
		return nil, fmt.Errorf("hclprog: %q: %w", text, err)
	}
	return c, nil
}
