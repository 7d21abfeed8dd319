package cuda

import (
	"strings"

	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/lower"
)

const fullMask = "0xffffffff"

func (w *Writer) kernelParam(p ir.KernelParam) string {
	switch p.Kind {
	case ir.ParamGraph:
		return "CSRGraph " + p.Name
	case ir.ParamOwned, ir.ParamBegin, ir.ParamEnd:
		return "unsigned int " + p.Name
	case ir.ParamScalar:
		if p.Const {
			return "const " + typeName(p.Type) + " " + p.Name
		}
		return typeName(p.Type) + " " + p.Name
	case ir.ParamField:
		return typeName(p.Type) + " * " + p.Name
	case ir.ParamReduction:
		if p.Reduction == ir.ReduceSum {
			return "Sum " + p.Name
		}
		return "Any " + p.Name
	case ir.ParamWorklistIn, ir.ParamWorklistOut:
		return "Worklist2 " + p.Name
	}
	w.fail("kernel parameter kind %d", p.Kind)
	return ""
}

func (w *Writer) writeKernel(k *ir.Kernel) {
	w.kernel = k
	w.namer = newNamer()
	w.vars = make(map[string]ir.Type)
	w.params = make(map[string]bool)
	w.guard = ""
	w.roundUp = false

	params := make([]string, len(k.Params))
	for i, p := range k.Params {
		params[i] = w.kernelParam(p)
		w.namer.reserve(p.Name)
		w.params[p.Name] = true
		switch p.Kind {
		case ir.ParamOwned, ir.ParamBegin, ir.ParamEnd:
			w.vars[p.Name] = ir.TypeUint32
		case ir.ParamScalar:
			w.vars[p.Name] = p.Type
		}
	}
	for _, n := range []string{"tid", "nthreads", "__kernel_tb_size"} {
		w.namer.reserve(n)
	}
	ir.WalkStmts(ir.Block{k.Body}, func(s ir.Stmt) bool {
		if d, ok := s.(*ir.Decl); ok {
			w.namer.reserve(d.Name)
		}
		return true
	})

	w.writeLine("__global__ void %s(%s)", k.Name, strings.Join(params, ", "))
	w.open()
	w.writeLine("unsigned tid = TID_1D;")
	w.writeLine("unsigned nthreads = TOTAL_THREADS_1D;")
	w.writeLine("")
	w.writeLine("const unsigned __kernel_tb_size = TB_SIZE;")
	for _, d := range k.Locals {
		w.stmt(d)
	}
	switch s := k.Body.(type) {
	case *ir.ForNodes:
		w.nodeSweep(s)
	case *ir.ForWorklist:
		w.worklistSweep(s)
	default:
		w.fail("kernel %s body %T", k.Name, k.Body)
	}
	w.close()
}

func (w *Writer) nodeSweep(s *ir.ForNodes) {
	end := w.namer.call(s.Var + "_end")
	bound := end
	w.writeLine("index_type %s;", end)
	if s.RoundUp {
		bound = w.namer.call(s.Var + "_rup")
		w.writeLine("index_type %s;", bound)
	}
	w.writeLine("%s = __end;", end)
	if s.RoundUp {
		w.writeLine("%s = ((__begin) + roundup(((__end) - (__begin)), (blockDim.x)));", bound)
	}
	w.vars[s.Var] = ir.TypeIndex
	w.writeLine("for (index_type %s = __begin + tid; %s < %s; %s += nthreads)", s.Var, s.Var, bound, s.Var)
	w.sweepBody(s.Body, s.RoundUp)
}

func (w *Writer) worklistSweep(s *ir.ForWorklist) {
	end := w.namer.call(s.Var + "_end")
	bound := end
	w.writeLine("index_type %s;", end)
	if s.RoundUp {
		bound = w.namer.call(s.Var + "_rup")
		w.writeLine("index_type %s;", bound)
	}
	w.writeLine("%s = *((volatile index_type *) (in_wl).dindex);", end)
	if s.RoundUp {
		w.writeLine("%s = roundup((%s), (blockDim.x));", bound, end)
	}
	w.vars[s.Var] = ir.TypeIndex
	w.writeLine("for (index_type %s = 0 + tid; %s < %s; %s += nthreads)", s.Var, s.Var, bound, s.Var)
	w.sweepBody(s.Body, s.RoundUp)
}

// sweepBody prints one sweep iteration. In a rounded sweep every lane keeps iterating after the
// uniform guard: nested statements run under the guard, and hinted edge loops run warp-cooperatively.
func (w *Writer) sweepBody(b ir.Block, roundUp bool) {
	w.roundUp = roundUp
	w.open()
	for _, s := range b {
		if w.guard == "" {
			w.stmt(s)
			continue
		}
		switch x := s.(type) {
		case *ir.ClosureHint:
			w.cooperative(x.Body)
		case *ir.Decl:
			// Declared outside the guard so later statements still see it.
			w.stmt(ir.Local(x.Name, x.Type))
			if x.Init != nil {
				w.guarded(ir.Set(x.Name, x.Init))
			}
		default:
			w.guarded(s)
		}
	}
	w.close()
	w.guard = ""
	w.roundUp = false
}

// guarded prints s inside `if (guard)`, with cooperative lowering disabled.
func (w *Writer) guarded(s ir.Stmt) {
	g := w.guard
	w.guard = ""
	w.writeLine("if (%s)", g)
	w.open()
	w.stmt(s)
	w.close()
	w.guard = g
}

func (w *Writer) block(b ir.Block) {
	for _, s := range b {
		w.stmt(s)
	}
}

func (w *Writer) stmt(s ir.Stmt) {
	switch x := s.(type) {
	case *ir.Decl:
		w.vars[x.Name] = x.Type
		if x.Init == nil {
			w.writeLine("%s %s;", typeName(x.Type), x.Name)
		} else {
			w.writeLine("%s %s = %s;", typeName(x.Type), x.Name, w.expr(x.Init))
		}
	case *ir.Assign:
		w.writeLine("%s = %s;", x.Name, w.expr(x.Value))
	case *ir.Store:
		w.writeLine("%s[%s] = %s;", lower.FieldPointer(x.Field), w.expr(x.Index), w.expr(x.Value))
	case *ir.Atomic:
		w.writeLine("%s;", w.atomic(x))
	case *ir.If:
		w.writeLine("if (%s)", w.expr(x.Cond))
		w.open()
		w.block(x.Then)
		w.close()
		if len(x.Else) > 0 {
			w.writeLine("else")
			w.open()
			w.block(x.Else)
			w.close()
		}
	case *ir.ForEdges:
		w.edges(x)
	case *ir.ClosureHint:
		w.block(x.Body)
	case *ir.Signal:
		if x.Value == nil {
			w.writeLine("%s.return_( 1);", lower.ReductionHandle(ir.ReduceAny))
		} else {
			w.writeLine("%s.do_return( %s);", lower.ReductionHandle(ir.ReduceSum), w.expr(x.Value))
		}
	case *ir.PushItem:
		w.writeLine("(out_wl).push(%s);", w.expr(x.Vertex))
	case *ir.UniformGuard:
		if w.roundUp {
			w.guard = x.Pop
			return
		}
		w.writeLine("if (!%s)", x.Pop)
		w.open()
		w.writeLine("continue;")
		w.close()
	case *ir.PopItem:
		w.writeLine("%s = (in_wl).pop_id(%s, %s);", x.Ok, x.Index, x.Item)
	default:
		w.fail("statement %T", s)
	}
}

func (w *Writer) atomic(x *ir.Atomic) string {
	ft, ok := w.fields[x.Field]
	if !ok {
		w.fail("atomic on unknown field %q", x.Field)
	}
	var fn string
	switch x.Op {
	case ir.AtomicMin:
		fn = "atomicMin"
		if ft.IsFloat() {
			fn = "atomicMinFloat"
			w.helpers[fn] = true
		}
	case ir.AtomicMax:
		fn = "atomicMax"
		if ft.IsFloat() {
			fn = "atomicMaxFloat"
			w.helpers[fn] = true
		}
	case ir.AtomicAdd:
		fn = "atomicAdd"
	case ir.AtomicExch:
		fn = "atomicExch"
	}
	call := fn + "(&" + lower.FieldPointer(x.Field) + "[" + w.expr(x.Index) + "], " + w.cast(x.Value, ft) + ")"
	if x.Result != "" {
		return x.Result + " = " + call
	}
	return call
}

func (w *Writer) edges(e *ir.ForEdges) {
	w.vars[e.Var] = ir.TypeIndex
	src := w.expr(e.Source)
	end := w.namer.call(e.Var + "_end")
	w.open()
	w.writeLine("index_type %s = (graph).getFirstEdge((%s) + 1);", end, src)
	w.writeLine("for (index_type %s = (graph).getFirstEdge(%s) + 0; %s < %s; %s += 1)", e.Var, src, e.Var, end, e.Var)
	w.open()
	w.block(e.Body)
	w.close()
	w.close()
}

// cooperative prints a hinted block so that every lane of a warp helps with the edge ranges of
// every other lane. Edge ranges and captured thread-locals are broadcast with warp shuffles.
func (w *Writer) cooperative(b ir.Block) {
	for _, s := range b {
		e, ok := s.(*ir.ForEdges)
		if !ok || len(ir.AssignedVars(ir.Block{e})) > 0 {
			w.guarded(s)
			continue
		}
		w.cooperativeEdges(e)
	}
}

func (w *Writer) cooperativeEdges(e *ir.ForEdges) {
	var captured []string
	for _, name := range ir.FreeVars(e.Body) {
		if name == e.Var || w.params[name] {
			continue
		}
		if _, ok := w.vars[name]; !ok {
			w.fail("cooperative edge loop captures undeclared %q", name)
			continue
		}
		captured = append(captured, name)
	}

	src := w.expr(e.Source)
	begin, end := w.namer.call("_np_begin"), w.namer.call("_np_end")
	lane := w.namer.call("_np_lane")
	b, en := w.namer.call("_np_b"), w.namer.call("_np_e")

	w.open()
	w.writeLine("index_type %s = %s ? (graph).getFirstEdge(%s) : 0;", begin, w.guard, src)
	w.writeLine("index_type %s = %s ? (graph).getFirstEdge((%s) + 1) : 0;", end, w.guard, src)
	w.writeLine("for (int %s = 0; %s < %d; %s++)", lane, lane, WarpSize, lane)
	w.open()
	w.writeLine("index_type %s = __shfl_sync(%s, %s, %s);", b, fullMask, begin, lane)
	w.writeLine("index_type %s = __shfl_sync(%s, %s, %s);", en, fullMask, end, lane)
	tmps := make([]string, len(captured))
	for i, name := range captured {
		t := w.vars[name]
		tmps[i] = w.namer.call("_np_c")
		if t == ir.TypeBool {
			w.writeLine("bool %s = (bool) __shfl_sync(%s, (int) %s, %s);", tmps[i], fullMask, name, lane)
		} else {
			w.writeLine("%s %s = __shfl_sync(%s, %s, %s);", typeName(t), tmps[i], fullMask, name, lane)
		}
	}
	w.open()
	for i, name := range captured {
		w.writeLine("%s %s = %s;", typeName(w.vars[name]), name, tmps[i])
	}
	w.vars[e.Var] = ir.TypeIndex
	g := w.guard
	w.guard = ""
	w.writeLine("for (index_type %s = %s + (threadIdx.x %% %d); %s < %s; %s += %d)", e.Var, b, WarpSize, e.Var, en, e.Var, WarpSize)
	w.open()
	w.block(e.Body)
	w.close()
	w.guard = g
	w.close()
	w.close()
	w.close()
}
