package cuda

import (
	"strings"

	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/lower"
)

func hostParam(p ir.HostParam) string {
	switch p.Kind {
	case ir.HostBegin, ir.HostEnd:
		return "unsigned int  " + p.Name
	case ir.HostRetval:
		return "int & " + p.Name
	case ir.HostScalar:
		if p.Const {
			return "const " + typeName(p.Type) + " & " + p.Name
		}
		return typeName(p.Type) + " " + p.Name
	}
	return "struct CUDA_Context*  " + p.Name
}

func (w *Writer) hostSignature(h *ir.HostWrapper) string {
	params := make([]string, len(h.Params))
	for i, p := range h.Params {
		params[i] = hostParam(p)
	}
	return "void " + h.Name + "(" + strings.Join(params, ", ") + ")"
}

func hostArg(a ir.HostArg) string {
	switch a.Kind {
	case ir.ArgGraph:
		return "ctx->gg"
	case ir.ArgOwned:
		return "ctx->nowned"
	case ir.ArgZero:
		return "0"
	case ir.ArgField:
		return "ctx->" + a.Name + ".gpu_wr_ptr()"
	case ir.ArgReduction, ir.ArgWorklistIn, ir.ArgWorklistOut:
		return "ctx->" + a.Name
	}
	return a.Name
}

func hostArgs(args []ir.HostArg) string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = hostArg(a)
	}
	return strings.Join(out, ", ")
}

// writeHost prints one host wrapper step by step.
func (w *Writer) writeHost(h *ir.HostWrapper) {
	w.writeLine("%s", w.hostSignature(h))
	w.open()
	for _, step := range h.Steps {
		switch s := step.(type) {
		case ir.SizeGrid:
			w.writeLine("dim3 blocks;")
			w.writeLine("dim3 threads;")
			w.writeLine("kernel_sizing(ctx->gg, blocks, threads);")
		case ir.StageReduction:
			w.writeLine("*(ctx->p_retval.cpu_wr_ptr()) = __retval;")
		case ir.BindReduction:
			w.writeLine("ctx->%s.rv = ctx->p_retval.gpu_wr_ptr();", lower.ReductionHandle(s.Kind))
		case ir.StageWorklist:
			w.writeLine("ctx->in_wl.update_gpu(ctx->shared_wl->num_in_items);")
		case ir.ResetWorklist:
			w.writeLine("ctx->out_wl.will_write();")
			w.writeLine("ctx->out_wl.reset();")
		case ir.Invoke:
			w.writeLine("%s <<<blocks, threads>>>(%s);", s.Kernel, hostArgs(s.Args))
		case ir.CheckKernel:
			w.writeLine("check_cuda_kernel;")
		case ir.ReadReduction:
			w.writeLine("__retval = *(ctx->p_retval.cpu_rd_ptr());")
		case ir.PublishWorklist:
			w.writeLine("ctx->out_wl.update_cpu();")
			w.writeLine("ctx->shared_wl->num_out_items = ctx->out_wl.nitems();")
		case ir.Forward:
			w.writeLine("%s(%s);", s.Wrapper, hostArgs(s.Args))
		default:
			w.fail("host step %T of %s", step, h.Name)
		}
	}
	w.close()
}
