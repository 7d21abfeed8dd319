package device

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/utils"
)

// stmtFn runs one statement. It returns false when the current sweep iteration must end.
type stmtFn func(*thread) bool

type sweepFn func(th *thread, tid uint32)

type paramBinding struct {
	kind  ir.ParamKind
	slot  slot
	field int
}

// kernel is a compiled device kernel.
type kernel struct {
	name    string
	params  []paramBinding
	nFields int
	nInts   int
	nFloats int
	locals  []stmtFn
	sweep   sweepFn
}

// launch holds the arguments of one kernel invocation.
type launch struct {
	graph    Accessor
	fields   [][]uint32
	red      *Reduction
	in, out  *Worklist
	ints     []uint32 // Frame template: parameter slots set, everything else zero.
	floats   []float64
	begin    uint32
	end      uint32
	blockDim uint32
	nthreads uint32
}

func compileKernel(k *ir.Kernel) (*kernel, error) {
	c := &compiler{kernel: k.Name, fields: map[string]fieldRef{}}
	c.push()
	out := &kernel{name: k.Name, params: make([]paramBinding, len(k.Params))}
	for i, p := range k.Params {
		b := paramBinding{kind: p.Kind, field: -1}
		switch p.Kind {
		case ir.ParamOwned, ir.ParamBegin, ir.ParamEnd:
			b.slot = c.declare(p.Name, ir.TypeUint32)
		case ir.ParamScalar:
			b.slot = c.declare(p.Name, p.Type)
		case ir.ParamField:
			b.field = out.nFields
			c.fields[p.Ref] = fieldRef{idx: out.nFields, t: p.Type}
			out.nFields++
		}
		out.params[i] = b
	}
	for _, d := range k.Locals {
		out.locals = append(out.locals, c.stmt(d))
	}
	switch s := k.Body.(type) {
	case *ir.ForNodes:
		out.sweep = c.nodes(s)
	case *ir.ForWorklist:
		out.sweep = c.frontier(s)
	default:
		c.fail("sweep %T", k.Body)
	}
	if c.err != nil {
		return nil, c.err
	}
	out.nInts, out.nFloats = c.nInts, c.nFloats
	return out, nil
}

func (c *compiler) nodes(s *ir.ForNodes) sweepFn {
	c.push()
	defer c.pop()
	v := c.declare(s.Var, ir.TypeIndex).idx
	body := c.stmts(s.Body)
	roundUp := s.RoundUp
	return func(th *thread, tid uint32) {
		l := th.l
		bound := l.end
		if roundUp && l.end > l.begin {
			bound = l.begin + utils.RoundUp(l.end-l.begin, l.blockDim)
		}
		for i := l.begin + tid; i < bound; i += l.nthreads {
			th.ints[v] = i
			body(th)
		}
	}
}

func (c *compiler) frontier(s *ir.ForWorklist) sweepFn {
	c.push()
	defer c.pop()
	v := c.declare(s.Var, ir.TypeIndex).idx
	body := c.stmts(s.Body)
	roundUp := s.RoundUp
	return func(th *thread, tid uint32) {
		l := th.l
		bound := l.in.size()
		if roundUp {
			bound = utils.RoundUp(bound, l.blockDim)
		}
		for i := tid; i < bound; i += l.nthreads {
			th.ints[v] = i
			body(th)
		}
	}
}

// block compiles b in its own scope.
func (c *compiler) block(b ir.Block) stmtFn {
	c.push()
	defer c.pop()
	return c.stmts(b)
}

// stmts compiles b in the current scope.
func (c *compiler) stmts(b ir.Block) stmtFn {
	fns := make([]stmtFn, 0, len(b))
	for _, s := range b {
		fns = append(fns, c.stmt(s))
	}
	return func(th *thread) bool {
		for _, f := range fns {
			if !f(th) {
				return false
			}
		}
		return true
	}
}

// assign stores v into s with the conversion of a C assignment.
func assign(s slot, v value) stmtFn {
	v = convert(v, s.t)
	idx := s.idx
	if s.t.IsFloat() {
		f := v.f
		return func(th *thread) bool {
			th.floats[idx] = roundF32(f(th))
			return true
		}
	}
	f := v.i
	return func(th *thread) bool {
		th.ints[idx] = f(th)
		return true
	}
}

// word converts v to the storage bits of a field of type t.
func word(v value, t ir.Type) intFn {
	v = convert(v, t)
	if t.IsFloat() {
		f := v.f
		return func(th *thread) uint32 { return math.Float32bits(float32(f(th))) }
	}
	return v.i
}

func (c *compiler) stmt(s ir.Stmt) stmtFn {
	switch x := s.(type) {
	case *ir.Decl:
		var init value
		if x.Init != nil {
			init = c.expr(x.Init)
		} else {
			init = constant(x.Type, 0, 0)
		}
		return assign(c.declare(x.Name, x.Type), init)
	case *ir.Assign:
		sl, ok := c.lookup(x.Name)
		if !ok {
			c.fail("assignment to undeclared %q", x.Name)
			return nop
		}
		return assign(sl, c.expr(x.Value))
	case *ir.Store:
		ref := c.field(x.Field)
		fi, idx, val := ref.idx, c.index(x.Index), word(c.expr(x.Value), ref.t)
		return func(th *thread) bool {
			atomic.StoreUint32(&th.l.fields[fi][idx(th)], val(th))
			return true
		}
	case *ir.Atomic:
		return c.atomic(x)
	case *ir.If:
		cond := convert(c.expr(x.Cond), ir.TypeBool).i
		then, els := c.block(x.Then), c.block(x.Else)
		return func(th *thread) bool {
			if cond(th) != 0 {
				return then(th)
			}
			return els(th)
		}
	case *ir.ForEdges:
		src := c.index(x.Source)
		c.push()
		e := c.declare(x.Var, ir.TypeIndex).idx
		body := c.stmts(x.Body)
		c.pop()
		return func(th *thread) bool {
			g, v := th.l.graph, src(th)
			end := g.FirstEdge(v + 1)
			for i := g.FirstEdge(v); i < end; i++ {
				th.ints[e] = i
				if !body(th) {
					return false
				}
			}
			return true
		}
	case *ir.ClosureHint:
		// Cooperative execution only changes which lane runs an edge.
		return c.stmts(x.Body)
	case *ir.Signal:
		if x.Value == nil {
			return func(th *thread) bool {
				th.l.red.signal()
				return true
			}
		}
		n := convert(c.expr(x.Value), ir.TypeUint32).i
		return func(th *thread) bool {
			th.l.red.add(n(th))
			return true
		}
	case *ir.PushItem:
		v := c.index(x.Vertex)
		return func(th *thread) bool {
			th.l.out.push(v(th))
			return true
		}
	case *ir.UniformGuard:
		sl, ok := c.lookup(x.Pop)
		if !ok {
			c.fail("guard %q is not declared", x.Pop)
			return nop
		}
		idx := sl.idx
		return func(th *thread) bool { return th.ints[idx] != 0 }
	case *ir.PopItem:
		idx, okIdx := c.lookup(x.Index)
		item, okItem := c.lookup(x.Item)
		res, okRes := c.lookup(x.Ok)
		if !okIdx || !okItem || !okRes {
			c.fail("pop with undeclared operands")
			return nop
		}
		return func(th *thread) bool {
			v, ok := th.l.in.popID(th.ints[idx.idx])
			th.ints[item.idx] = v
			th.ints[res.idx] = b2u(ok)
			return true
		}
	}
	c.fail("statement %T", s)
	return nop
}

func nop(*thread) bool { return true }

func (c *compiler) atomic(x *ir.Atomic) stmtFn {
	ref := c.field(x.Field)
	fi, idx := ref.idx, c.index(x.Index)
	val := convert(c.expr(x.Value), ref.t)

	// op applies the update and returns the previous word.
	var op func(th *thread, p *uint32) uint32
	switch {
	case ref.t.IsFloat():
		f := val.f
		var apply func(p *uint32, v float32) float32
		switch x.Op {
		case ir.AtomicMin:
			apply = utils.AtomicMinFloat32
		case ir.AtomicMax:
			apply = utils.AtomicMaxFloat32
		case ir.AtomicAdd:
			apply = utils.AtomicAddFloat32
		case ir.AtomicExch:
			apply = func(p *uint32, v float32) float32 {
				return math.Float32frombits(atomic.SwapUint32(p, math.Float32bits(v)))
			}
		}
		op = func(th *thread, p *uint32) uint32 { return math.Float32bits(apply(p, float32(f(th)))) }
	case ref.t == ir.TypeInt32:
		f := val.i
		var apply func(p *uint32, v int32) int32
		switch x.Op {
		case ir.AtomicMin:
			apply = utils.AtomicMinInt32
		case ir.AtomicMax:
			apply = utils.AtomicMaxInt32
		case ir.AtomicAdd:
			apply = func(p *uint32, v int32) int32 { return int32(atomic.AddUint32(p, uint32(v)) - uint32(v)) }
		case ir.AtomicExch:
			apply = func(p *uint32, v int32) int32 { return int32(atomic.SwapUint32(p, uint32(v))) }
		}
		op = func(th *thread, p *uint32) uint32 { return uint32(apply(p, int32(f(th)))) }
	default:
		f := val.i
		var apply func(p *uint32, v uint32) uint32
		switch x.Op {
		case ir.AtomicMin:
			apply = utils.AtomicMinUint32
		case ir.AtomicMax:
			apply = utils.AtomicMaxUint32
		case ir.AtomicAdd:
			apply = func(p *uint32, v uint32) uint32 { return atomic.AddUint32(p, v) - v }
		case ir.AtomicExch:
			apply = atomic.SwapUint32
		}
		op = func(th *thread, p *uint32) uint32 { return apply(p, f(th)) }
	}

	if x.Result == "" {
		return func(th *thread) bool {
			op(th, &th.l.fields[fi][idx(th)])
			return true
		}
	}
	res, ok := c.lookup(x.Result)
	if !ok {
		c.fail("atomic result %q is not declared", x.Result)
		return nop
	}

	// The previous value is typed as the field, then assigned to the result variable.
	var prev value
	if ref.t.IsFloat() {
		prev = value{t: ref.t, f: func(th *thread) float64 { return float64(math.Float32frombits(th.old)) }}
	} else {
		prev = value{t: ref.t, i: func(th *thread) uint32 { return th.old }}
	}
	store := assign(res, prev)
	return func(th *thread) bool {
		th.old = op(th, &th.l.fields[fi][idx(th)])
		return store(th)
	}
}

// run launches k with the given geometry and waits for every block. The first fault wins.
func (k *kernel) run(ctx context.Context, l *launch, geom Geometry, parallelism int) error {
	start := time.Now()
	kernelLaunches.WithLabelValues(k.name).Inc()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for b := uint32(0); b < geom.Blocks; b++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return k.block(l, b)
		})
	}
	err := g.Wait()
	launchLatency.WithLabelValues(k.name).Observe(time.Since(start).Seconds())
	if err != nil {
		var f *Fault
		if errors.As(err, &f) {
			executionFaults.WithLabelValues(k.name).Inc()
		}
		return err
	}
	log.Trace().Msg("device: " + k.name + " done in " + utils.V(time.Since(start).Microseconds()) + "us")
	return nil
}

// block runs the threads of block b one after another.
func (k *kernel) block(l *launch, b uint32) (err error) {
	th := &thread{ints: make([]uint32, k.nInts), floats: make([]float64, k.nFloats), l: l}
	var t uint32
	defer func() {
		if r := recover(); r != nil {
			err = &Fault{Kernel: k.name, Block: b, Thread: t, Cause: r}
		}
	}()
	for t = 0; t < l.blockDim; t++ {
		copy(th.ints, l.ints)
		copy(th.floats, l.floats)
		for _, loc := range k.locals {
			loc(th)
		}
		k.sweep(th, b*l.blockDim+t)
	}
	return nil
}
