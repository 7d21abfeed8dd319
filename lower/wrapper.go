package lower

import "github.com/ScottSallinen/lollipop-gg/ir"

// ReductionHandle is the kernel-side name of a reduction slot.
func ReductionHandle(kind ir.ReductionKind) string {
	if kind == ir.ReduceSum {
		return "sum_retval"
	}
	return "any_retval"
}

// FieldPointer is the kernel-side name of a field.
func FieldPointer(field string) string { return "p_" + field }

// kernelParams orders the device arguments: graph, ownership count, range, scalars, fields,
// then the reduction handle and the worklists.
func kernelParams(nodeSweep bool, fields []ir.Field, scalars []ir.Param, red ir.ReductionKind, pops, pushes bool) []ir.KernelParam {
	params := []ir.KernelParam{
		{Kind: ir.ParamGraph, Name: "graph"},
		{Kind: ir.ParamOwned, Name: "__nowned", Type: ir.TypeUint32},
	}
	if nodeSweep {
		params = append(params,
			ir.KernelParam{Kind: ir.ParamBegin, Name: "__begin", Type: ir.TypeUint32},
			ir.KernelParam{Kind: ir.ParamEnd, Name: "__end", Type: ir.TypeUint32})
	}
	for _, s := range scalars {
		params = append(params, ir.KernelParam{Kind: ir.ParamScalar, Name: s.Name, Ref: s.Name, Type: s.Type, Const: s.Const})
	}
	for _, f := range fields {
		params = append(params, ir.KernelParam{Kind: ir.ParamField, Name: FieldPointer(f.Name), Ref: f.Name, Type: f.Type})
	}
	if red != ir.ReduceNone {
		params = append(params, ir.KernelParam{Kind: ir.ParamReduction, Name: ReductionHandle(red), Reduction: red})
	}
	if pops {
		params = append(params, ir.KernelParam{Kind: ir.ParamWorklistIn, Name: "in_wl"})
	}
	if pushes {
		params = append(params, ir.KernelParam{Kind: ir.ParamWorklistOut, Name: "out_wl"})
	}
	return params
}

// hostWrapper builds the launch sequence for k: size the grid, stage the reduction slot and
// frontiers, invoke, check, then read results back.
func hostWrapper(k *ir.Kernel, nodeSweep bool, scalars []ir.Param, info ir.PhaseInfo) *ir.HostWrapper {
	h := &ir.HostWrapper{Name: k.Name + "_cuda", Kernel: k.Name}
	if nodeSweep {
		h.Params = append(h.Params,
			ir.HostParam{Kind: ir.HostBegin, Name: "__begin", Type: ir.TypeUint32},
			ir.HostParam{Kind: ir.HostEnd, Name: "__end", Type: ir.TypeUint32})
	}
	if k.Reduction != ir.ReduceNone {
		h.Params = append(h.Params, ir.HostParam{Kind: ir.HostRetval, Name: "__retval", Type: ir.TypeInt32})
	}
	for _, s := range scalars {
		h.Params = append(h.Params, ir.HostParam{Kind: ir.HostScalar, Name: s.Name, Type: s.Type, Const: s.Const})
	}
	h.Params = append(h.Params, ir.HostParam{Kind: ir.HostContext, Name: "ctx"})

	h.Steps = append(h.Steps, ir.SizeGrid{})
	if k.Reduction != ir.ReduceNone {
		h.Steps = append(h.Steps, ir.StageReduction{}, ir.BindReduction{Kind: k.Reduction})
	}
	if info.Worklist {
		h.Steps = append(h.Steps, ir.StageWorklist{})
	}
	if info.Pushes {
		h.Steps = append(h.Steps, ir.ResetWorklist{})
	}

	inv := ir.Invoke{Kernel: k.Name}
	for _, prm := range k.Params {
		var a ir.HostArg
		switch prm.Kind {
		case ir.ParamGraph:
			a = ir.HostArg{Kind: ir.ArgGraph}
		case ir.ParamOwned:
			a = ir.HostArg{Kind: ir.ArgOwned}
		case ir.ParamBegin:
			a = ir.HostArg{Kind: ir.ArgBegin, Name: "__begin"}
		case ir.ParamEnd:
			a = ir.HostArg{Kind: ir.ArgEnd, Name: "__end"}
		case ir.ParamScalar:
			a = ir.HostArg{Kind: ir.ArgScalar, Name: prm.Ref}
		case ir.ParamField:
			a = ir.HostArg{Kind: ir.ArgField, Name: prm.Ref}
		case ir.ParamReduction:
			a = ir.HostArg{Kind: ir.ArgReduction, Name: prm.Name, Reduction: prm.Reduction}
		case ir.ParamWorklistIn:
			a = ir.HostArg{Kind: ir.ArgWorklistIn, Name: "in_wl"}
		case ir.ParamWorklistOut:
			a = ir.HostArg{Kind: ir.ArgWorklistOut, Name: "out_wl"}
		}
		inv.Args = append(inv.Args, a)
	}
	h.Steps = append(h.Steps, inv, ir.CheckKernel{})
	if k.Reduction != ir.ReduceNone {
		h.Steps = append(h.Steps, ir.ReadReduction{})
	}
	if info.Pushes {
		h.Steps = append(h.Steps, ir.PublishWorklist{})
	}
	return h
}

// allWrapper forwards to h over the full owned range.
func allWrapper(h *ir.HostWrapper) *ir.HostWrapper {
	all := &ir.HostWrapper{Name: h.Kernel + "_all_cuda", Kernel: h.Kernel}
	fwd := ir.Forward{Wrapper: h.Name}
	for _, prm := range h.Params {
		switch prm.Kind {
		case ir.HostBegin:
			fwd.Args = append(fwd.Args, ir.HostArg{Kind: ir.ArgZero})
		case ir.HostEnd:
			fwd.Args = append(fwd.Args, ir.HostArg{Kind: ir.ArgOwned})
		case ir.HostRetval:
			all.Params = append(all.Params, prm)
			fwd.Args = append(fwd.Args, ir.HostArg{Kind: ir.ArgRetval, Name: prm.Name})
		case ir.HostScalar:
			all.Params = append(all.Params, prm)
			fwd.Args = append(fwd.Args, ir.HostArg{Kind: ir.ArgScalar, Name: prm.Name})
		case ir.HostContext:
			all.Params = append(all.Params, prm)
			fwd.Args = append(fwd.Args, ir.HostArg{Kind: ir.ArgContext, Name: prm.Name})
		}
	}
	all.Steps = []ir.HostStep{fwd}
	return all
}
