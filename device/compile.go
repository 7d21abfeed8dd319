package device

import (
	"fmt"
	"math"
	"sync/atomic"

	"golang.org/x/exp/constraints"

	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/utils"
)

// Kernels are compiled once into closures. A thread owns two frames of slots: 32 bit words for
// bool and integer variables, and float64 slots for float variables. Float values are always
// rounded to float32 precision, so a float slot holds exactly what the device would hold.

type thread struct {
	ints   []uint32
	floats []float64
	old    uint32 // Previous word of the last atomic.
	l      *launch
}

type (
	intFn   func(*thread) uint32
	floatFn func(*thread) float64
)

// value is a compiled expression of static type t. Float types set f, all others set i.
type value struct {
	t ir.Type
	i intFn
	f floatFn
}

type slot struct {
	t   ir.Type
	idx int
}

type scope struct {
	parent *scope
	vars   map[string]slot
}

type fieldRef struct {
	idx int // Position in launch.fields.
	t   ir.Type
}

type compiler struct {
	kernel  string
	fields  map[string]fieldRef
	scope   *scope
	nInts   int
	nFloats int
	err     error
}

func (c *compiler) fail(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf("device: compile %s: "+format, append([]any{c.kernel}, args...)...)
	}
}

func (c *compiler) push() { c.scope = &scope{parent: c.scope, vars: map[string]slot{}} }
func (c *compiler) pop()  { c.scope = c.scope.parent }

func (c *compiler) declare(name string, t ir.Type) slot {
	var s slot
	if t.IsFloat() {
		s = slot{t: t, idx: c.nFloats}
		c.nFloats++
	} else {
		s = slot{t: t, idx: c.nInts}
		c.nInts++
	}
	c.scope.vars[name] = s
	return s
}

func (c *compiler) lookup(name string) (slot, bool) {
	for s := c.scope; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return slot{}, false
}

func (c *compiler) VarType(name string) (ir.Type, bool) {
	s, ok := c.lookup(name)
	return s.t, ok
}

func (c *compiler) FieldType(name string) (ir.Type, bool) {
	f, ok := c.fields[name]
	return f.t, ok
}

func (c *compiler) field(name string) fieldRef {
	f, ok := c.fields[name]
	if !ok {
		c.fail("field %q is not a kernel argument", name)
	}
	return f
}

func roundF32(f float64) float64 { return float64(float32(f)) }

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func constant(t ir.Type, bits uint32, f float64) value {
	if t.IsFloat() {
		f = roundF32(f)
		return value{t: t, f: func(*thread) float64 { return f }}
	}
	return value{t: t, i: func(*thread) uint32 { return bits }}
}

// convert follows C conversions between 32 bit types: integers reinterpret their bits, floats
// truncate toward zero.
func convert(v value, to ir.Type) value {
	switch {
	case v.t == to:
		return v
	case v.i == nil && v.f == nil:
		return value{t: to, i: func(*thread) uint32 { return 0 }}
	case to.IsFloat() && v.t.IsFloat():
		return value{t: to, f: v.f}
	case to.IsFloat():
		f := v.i
		if v.t == ir.TypeInt32 {
			return value{t: to, f: func(th *thread) float64 { return roundF32(float64(int32(f(th)))) }}
		}
		return value{t: to, f: func(th *thread) float64 { return roundF32(float64(f(th))) }}
	case v.t.IsFloat():
		f := v.f
		if to == ir.TypeInt32 {
			return value{t: to, i: func(th *thread) uint32 { return uint32(int32(f(th))) }}
		}
		return value{t: to, i: func(th *thread) uint32 { return uint32(int64(f(th))) }}
	case to == ir.TypeBool:
		f := v.i
		return value{t: to, i: func(th *thread) uint32 { return b2u(f(th) != 0) }}
	}
	return value{t: to, i: v.i}
}

func (c *compiler) index(e ir.Expr) intFn {
	v := c.expr(e)
	if !v.t.IsInteger() {
		c.fail("index expression of type %v", v.t)
		return func(*thread) uint32 { return 0 }
	}
	return v.i
}

func (c *compiler) expr(e ir.Expr) value {
	switch x := e.(type) {
	case *ir.Const:
		return constant(x.Type, x.Bits, x.Float)
	case *ir.Var:
		s, ok := c.lookup(x.Name)
		if !ok {
			c.fail("undeclared %q", x.Name)
			return value{t: ir.TypeInvalid}
		}
		idx := s.idx
		if s.t.IsFloat() {
			return value{t: s.t, f: func(th *thread) float64 { return th.floats[idx] }}
		}
		return value{t: s.t, i: func(th *thread) uint32 { return th.ints[idx] }}
	case *ir.Load:
		ref := c.field(x.Field)
		fi, idx := ref.idx, c.index(x.Index)
		if ref.t.IsFloat() {
			return value{t: ref.t, f: func(th *thread) float64 {
				return float64(utils.AtomicLoadFloat32(&th.l.fields[fi][idx(th)]))
			}}
		}
		return value{t: ref.t, i: func(th *thread) uint32 { return atomic.LoadUint32(&th.l.fields[fi][idx(th)]) }}
	case *ir.Binary:
		return c.binary(x)
	case *ir.Unary:
		v := c.expr(x.X)
		if x.Op == ir.OpNot {
			f := convert(v, ir.TypeBool).i
			return value{t: ir.TypeBool, i: func(th *thread) uint32 { return f(th) ^ 1 }}
		}
		if v.t.IsFloat() {
			f := v.f
			return value{t: v.t, f: func(th *thread) float64 { return -f(th) }}
		}
		f := v.i
		return value{t: v.t, i: func(th *thread) uint32 { return -f(th) }}
	case *ir.Select:
		t, err := ir.TypeOf(x, c)
		if err != nil {
			c.fail("%v", err)
			return value{t: ir.TypeInvalid}
		}
		cond := convert(c.expr(x.Cond), ir.TypeBool).i
		a, b := convert(c.expr(x.Then), t), convert(c.expr(x.Else), t)
		if t.IsFloat() {
			return value{t: t, f: func(th *thread) float64 {
				if cond(th) != 0 {
					return a.f(th)
				}
				return b.f(th)
			}}
		}
		return value{t: t, i: func(th *thread) uint32 {
			if cond(th) != 0 {
				return a.i(th)
			}
			return b.i(th)
		}}
	case *ir.Convert:
		return convert(c.expr(x.X), x.To)
	case *ir.EdgeDst:
		e := c.index(x.Edge)
		return value{t: ir.TypeIndex, i: func(th *thread) uint32 { return th.l.graph.Destination(e(th)) }}
	case *ir.EdgeWeight:
		e := c.index(x.Edge)
		return value{t: ir.TypeUint32, i: func(th *thread) uint32 { return th.l.graph.Weight(e(th)) }}
	case *ir.OutDegree:
		v := c.index(x.Node)
		return value{t: ir.TypeIndex, i: func(th *thread) uint32 { return th.l.graph.OutDegree(v(th)) }}
	case *ir.NodeData:
		v := c.index(x.Node)
		return value{t: ir.TypeUint32, i: func(th *thread) uint32 { return th.l.graph.NodeLabel(v(th)) }}
	case *ir.Abs:
		v := c.expr(x.X)
		if !v.t.IsFloat() {
			c.fail("abs of %v", v.t)
			return v
		}
		f := v.f
		return value{t: v.t, f: func(th *thread) float64 { return math.Abs(f(th)) }}
	}
	c.fail("expression %T", e)
	return value{t: ir.TypeInvalid}
}

func (c *compiler) binary(x *ir.Binary) value {
	a, b := c.expr(x.Left), c.expr(x.Right)
	if x.Op.IsLogical() {
		l, r := convert(a, ir.TypeBool).i, convert(b, ir.TypeBool).i
		if x.Op == ir.OpAnd {
			return value{t: ir.TypeBool, i: func(th *thread) uint32 {
				if l(th) == 0 {
					return 0
				}
				return r(th)
			}}
		}
		return value{t: ir.TypeBool, i: func(th *thread) uint32 {
			if l(th) != 0 {
				return 1
			}
			return r(th)
		}}
	}

	t := ir.Promote(a.t, b.t)
	a, b = convert(a, t), convert(b, t)
	var fn value
	switch {
	case t.IsFloat():
		if x.Op.IsComparison() {
			fn = value{t: ir.TypeBool, i: compare[float64](x.Op, a.f, b.f)}
		} else {
			fn = value{t: t, f: floatArith(x.Op, a.f, b.f)}
		}
	case t == ir.TypeInt32:
		l, r := a.i, b.i
		ls := func(th *thread) int32 { return int32(l(th)) }
		rs := func(th *thread) int32 { return int32(r(th)) }
		if x.Op.IsComparison() {
			fn = value{t: ir.TypeBool, i: compare[int32](x.Op, ls, rs)}
		} else {
			if f := intArith[int32](x.Op, ls, rs); f != nil {
				fn = value{t: t, i: func(th *thread) uint32 { return uint32(f(th)) }}
			}
		}
	default:
		if x.Op.IsComparison() {
			fn = value{t: ir.TypeBool, i: compare[uint32](x.Op, a.i, b.i)}
		} else {
			fn = value{t: t, i: intArith[uint32](x.Op, a.i, b.i)}
		}
	}
	if fn.i == nil && fn.f == nil {
		c.fail("operator %v on %v", x.Op, t)
	}
	return fn
}

func compare[T constraints.Integer | constraints.Float](op ir.BinaryOp, l, r func(*thread) T) intFn {
	switch op {
	case ir.OpEq:
		return func(th *thread) uint32 { return b2u(l(th) == r(th)) }
	case ir.OpNe:
		return func(th *thread) uint32 { return b2u(l(th) != r(th)) }
	case ir.OpLt:
		return func(th *thread) uint32 { return b2u(l(th) < r(th)) }
	case ir.OpLe:
		return func(th *thread) uint32 { return b2u(l(th) <= r(th)) }
	case ir.OpGt:
		return func(th *thread) uint32 { return b2u(l(th) > r(th)) }
	case ir.OpGe:
		return func(th *thread) uint32 { return b2u(l(th) >= r(th)) }
	}
	return nil
}

// intArith wraps on overflow. Division by zero panics, which faults the launch.
func intArith[T constraints.Integer](op ir.BinaryOp, l, r func(*thread) T) func(*thread) T {
	switch op {
	case ir.OpAdd:
		return func(th *thread) T { return l(th) + r(th) }
	case ir.OpSub:
		return func(th *thread) T { return l(th) - r(th) }
	case ir.OpMul:
		return func(th *thread) T { return l(th) * r(th) }
	case ir.OpDiv:
		return func(th *thread) T { return l(th) / r(th) }
	case ir.OpMod:
		return func(th *thread) T { return l(th) % r(th) }
	}
	return nil
}

// Every float operation rounds to float32.
func floatArith(op ir.BinaryOp, l, r floatFn) floatFn {
	switch op {
	case ir.OpAdd:
		return func(th *thread) float64 { return roundF32(l(th) + r(th)) }
	case ir.OpSub:
		return func(th *thread) float64 { return roundF32(l(th) - r(th)) }
	case ir.OpMul:
		return func(th *thread) float64 { return roundF32(l(th) * r(th)) }
	case ir.OpDiv:
		return func(th *thread) float64 { return roundF32(l(th) / r(th)) }
	}
	return nil
}
