package device

import (
	"context"
	"fmt"

	"github.com/ScottSallinen/lollipop-gg/ir"
)

// HostArgs are the arguments of a host wrapper call.
type HostArgs struct {
	Begin, End uint32               // Node sweeps only.
	Retval     int                  // Incoming value of the reduction slot.
	Params     map[string]*ir.Const // Scalar parameters by name.
}

// hostFrame is the state of one running wrapper.
type hostFrame struct {
	HostArgs
	geom    Geometry
	sized   bool
	pending chan error
}

// Call runs a host wrapper and returns the value left in its return slot.
func (c *Context) Call(ctx context.Context, wrapper string, args HostArgs) (int, error) {
	h := c.module.Host(wrapper)
	if h == nil {
		return 0, fmt.Errorf("%w: wrapper %q", ErrUnknown, wrapper)
	}
	if h.HasParam(ir.HostBegin) && !(args.Begin <= args.End && args.End <= c.nowned) {
		return 0, fmt.Errorf("%w: %s [%d, %d) with %d owned", ErrRange, wrapper, args.Begin, args.End, c.nowned)
	}
	for _, p := range h.Params {
		if p.Kind == ir.HostScalar && args.Params[p.Name] == nil {
			return 0, fmt.Errorf("%w: %s needs %q", ErrMissingParam, wrapper, p.Name)
		}
	}
	f := &hostFrame{HostArgs: args}
	for _, step := range h.Steps {
		if err := c.step(ctx, h, f, step); err != nil {
			return 0, fmt.Errorf("%s: %w", wrapper, err)
		}
	}
	return f.Retval, nil
}

func (c *Context) step(ctx context.Context, h *ir.HostWrapper, f *hostFrame, step ir.HostStep) error {
	switch s := step.(type) {
	case ir.SizeGrid:
		f.geom, f.sized = c.opts.Sizer.Size(c.graph), true
	case ir.StageReduction:
		c.retval.CPUWrite()[0] = uint32(int32(f.Retval))
	case ir.BindReduction:
		c.reduction(s.Kind).bind(c.retval.GPUWrite())
	case ir.StageWorklist:
		c.in.UpdateGPU(c.numInItems)
	case ir.ResetWorklist:
		c.out.WillWrite()
		c.out.Reset()
	case ir.Invoke:
		return c.invoke(ctx, f, s)
	case ir.CheckKernel:
		if f.pending == nil {
			return nil
		}
		err := <-f.pending
		f.pending = nil
		return err
	case ir.ReadReduction:
		f.Retval = int(int32(c.retval.CPURead()[0]))
	case ir.PublishWorklist:
		c.out.UpdateCPU()
		c.numOutItems = c.out.NItems()
		worklistPushes.Add(float64(c.numOutItems))
	case ir.Forward:
		return c.forward(ctx, f, s)
	default:
		return fmt.Errorf("device: host step %T", step)
	}
	return nil
}

// invoke binds the arguments and starts the kernel. CheckKernel waits for it.
func (c *Context) invoke(ctx context.Context, f *hostFrame, inv ir.Invoke) error {
	k, ok := c.kernels[inv.Kernel]
	if !ok {
		return fmt.Errorf("%w: kernel %q", ErrUnknown, inv.Kernel)
	}
	if len(inv.Args) != len(k.params) {
		return fmt.Errorf("device: %s takes %d arguments, got %d", inv.Kernel, len(k.params), len(inv.Args))
	}
	if !f.sized {
		return fmt.Errorf("device: %s launched before sizing the grid", inv.Kernel)
	}

	l := &launch{
		graph:    c.graph,
		fields:   make([][]uint32, k.nFields),
		ints:     make([]uint32, k.nInts),
		floats:   make([]float64, k.nFloats),
		blockDim: f.geom.Threads,
		nthreads: f.geom.TotalThreads(),
	}
	for i, a := range inv.Args {
		p := k.params[i]
		var w uint32
		switch a.Kind {
		case ir.ArgGraph:
			continue
		case ir.ArgOwned:
			w = c.nowned
		case ir.ArgZero:
			w = 0
		case ir.ArgBegin:
			w = f.Begin
		case ir.ArgEnd:
			w = f.End
		case ir.ArgScalar:
			setScalar(l, p.slot, f.Params[a.Name])
			continue
		case ir.ArgField:
			arr, err := c.Field(a.Name)
			if err != nil {
				return err
			}
			l.fields[p.field] = arr.GPUWrite()
			continue
		case ir.ArgReduction:
			l.red = c.reduction(a.Reduction)
			continue
		case ir.ArgWorklistIn:
			l.in = c.in
			continue
		case ir.ArgWorklistOut:
			l.out = c.out
			continue
		default:
			return fmt.Errorf("device: argument kind %d cannot be passed to a kernel", a.Kind)
		}
		l.ints[p.slot.idx] = w
		switch p.kind {
		case ir.ParamBegin:
			l.begin = w
		case ir.ParamEnd:
			l.end = w
		}
	}

	f.pending = make(chan error, 1)
	go func() {
		f.pending <- k.run(ctx, l, f.geom, c.opts.Parallelism)
	}()
	return nil
}

// setScalar writes a parameter value into its slot with the conversion of a C argument.
func setScalar(l *launch, s slot, v *ir.Const) {
	switch {
	case s.t.IsFloat():
		l.floats[s.idx] = roundF32(v.Value())
	case v.Type.IsFloat():
		if s.t == ir.TypeInt32 {
			l.ints[s.idx] = uint32(int32(v.Float))
		} else {
			l.ints[s.idx] = uint32(int64(v.Float))
		}
	default:
		l.ints[s.idx] = v.Bits
	}
}

// forward calls another wrapper, mapping the arguments onto its parameters in order.
func (c *Context) forward(ctx context.Context, f *hostFrame, fwd ir.Forward) error {
	target := c.module.Host(fwd.Wrapper)
	if target == nil {
		return fmt.Errorf("%w: wrapper %q", ErrUnknown, fwd.Wrapper)
	}
	if len(fwd.Args) != len(target.Params) {
		return fmt.Errorf("device: %s takes %d arguments, got %d", fwd.Wrapper, len(target.Params), len(fwd.Args))
	}
	args := HostArgs{Params: f.Params}
	for i, a := range fwd.Args {
		var w uint32
		switch a.Kind {
		case ir.ArgZero:
			w = 0
		case ir.ArgOwned:
			w = c.nowned
		case ir.ArgBegin:
			w = f.Begin
		case ir.ArgEnd:
			w = f.End
		case ir.ArgRetval:
			args.Retval = f.Retval
			continue
		default:
			continue
		}
		switch target.Params[i].Kind {
		case ir.HostBegin:
			args.Begin = w
		case ir.HostEnd:
			args.End = w
		}
	}
	ret, err := c.Call(ctx, fwd.Wrapper, args)
	if err != nil {
		return err
	}
	f.Retval = ret
	return nil
}
