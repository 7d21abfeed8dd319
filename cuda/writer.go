// Package cuda prints a lowered module as CUDA device kernels, host wrappers and a header.
package cuda

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/utils"
)

// DefaultTBSize is the thread block size the launch geometry policy assumes.
const DefaultTBSize = 256

// WarpSize is the lane count of cooperative edge loops.
const WarpSize = 32

type Options struct {
	TBSize int    // Defaults to DefaultTBSize.
	Header string // Name of the emitted header; defaults to "<module>_cuda.cuh".
}

// Output is the emitted text.
type Output struct {
	Source string
	Header string
}

var ErrUnsupported = errors.New("cuda: unsupported construct")

// Compile prints m.
func Compile(m *ir.Module, opts Options) (*Output, error) {
	if m == nil || m.Program == nil {
		return nil, errors.New("cuda: nil module")
	}
	if opts.TBSize <= 0 {
		opts.TBSize = DefaultTBSize
	}
	if opts.Header == "" {
		opts.Header = m.Name + "_cuda.cuh"
	}
	w := newWriter(m, &opts)
	if err := w.writeModule(); err != nil {
		return nil, err
	}
	h := newWriter(m, &opts)
	h.writeHeader()
	log.Trace().Msg("cuda: emitted " + m.Name + " (" + utils.V(w.out.Len()) + " bytes)")
	return &Output{Source: w.String(), Header: h.String()}, nil
}

// namer generates unique temporaries within one kernel.
type namer struct {
	used    map[string]struct{}
	counter uint32
}

func newNamer() *namer {
	return &namer{used: make(map[string]struct{})}
}

func (n *namer) reserve(name string) {
	n.used[name] = struct{}{}
}

// call returns base, or base with a numeric suffix if base is taken.
func (n *namer) call(base string) string {
	if _, used := n.used[base]; !used {
		n.used[base] = struct{}{}
		return base
	}
	for {
		n.counter++
		candidate := fmt.Sprintf("%s%d", base, n.counter)
		if _, used := n.used[candidate]; !used {
			n.used[candidate] = struct{}{}
			return candidate
		}
	}
}

// Writer visits a module once and prints it.
type Writer struct {
	module  *ir.Module
	options *Options

	out    strings.Builder
	indent int

	// Kernel context
	kernel   *ir.Kernel
	namer    *namer
	vars     map[string]ir.Type
	fields   map[string]ir.Type
	params   map[string]bool // Kernel parameters are uniform across a warp.
	guard    string          // Non-empty while nested statements run under a cooperative guard.
	roundUp  bool
	helpers  map[string]bool
	firstErr error
}

func newWriter(m *ir.Module, opts *Options) *Writer {
	w := &Writer{
		module:  m,
		options: opts,
		fields:  make(map[string]ir.Type),
		helpers: make(map[string]bool),
	}
	for _, f := range m.Program.Fields {
		w.fields[f.Name] = f.Type
	}
	return w
}

func (w *Writer) String() string {
	return w.out.String()
}

func (w *Writer) writeModule() error {
	w.writeLine("/*  -*- mode: c++ -*-  */")
	w.writeLine("#include \"gg.h\"")
	w.writeLine("#include \"ggcuda.h\"")
	w.writeLine("#include \"kernels/reduce.cuh\"")
	w.writeLine("#include \"%s\"", w.options.Header)
	w.writeLine("#define TB_SIZE %d", w.options.TBSize)
	w.writeLine("")
	w.writeContext()

	// Kernels are printed into a scratch writer first so that the helper prelude only
	// carries what the kernels used.
	body := &Writer{module: w.module, options: w.options, fields: w.fields, helpers: w.helpers}
	for _, k := range w.module.Kernels {
		body.writeKernel(k)
		if body.firstErr != nil {
			return body.firstErr
		}
	}
	w.writeHelpers()
	w.out.WriteString(body.String())

	for _, h := range w.module.Hosts {
		w.writeHost(h)
	}
	return nil
}

// writeContext prints the per-run context: graph, owned count and every device-resident handle.
func (w *Writer) writeContext() {
	w.writeLine("struct CUDA_Context")
	w.writeLine("{")
	w.pushIndent()
	w.writeLine("CSRGraphTy gg;")
	w.writeLine("unsigned int nowned;")
	for _, f := range w.module.Program.Fields {
		w.writeLine("Shared<%s> %s;", typeName(f.Type), f.Name)
	}
	anyRed, sum, wl := false, false, false
	for _, p := range w.module.Phases {
		anyRed = anyRed || p.Reduction == ir.ReduceAny
		sum = sum || p.Reduction == ir.ReduceSum
		wl = wl || p.Worklist || p.Pushes
	}
	if anyRed || sum {
		w.writeLine("Shared<int> p_retval;")
	}
	if anyRed {
		w.writeLine("Any any_retval;")
	}
	if sum {
		w.writeLine("Sum sum_retval;")
	}
	if wl {
		w.writeLine("Worklist2 in_wl;")
		w.writeLine("Worklist2 out_wl;")
		w.writeLine("struct CUDA_Worklist *shared_wl;")
	}
	w.popIndent()
	w.writeLine("};")
	w.writeLine("")
}

func (w *Writer) writeHelpers() {
	if w.helpers["atomicMinFloat"] {
		w.writeFloatCAS("atomicMinFloat", "fminf")
	}
	if w.helpers["atomicMaxFloat"] {
		w.writeFloatCAS("atomicMaxFloat", "fmaxf")
	}
}

func (w *Writer) writeFloatCAS(name, combine string) {
	w.writeLine("__device__ static float %s(float * addr, float value)", name)
	w.writeLine("{")
	w.pushIndent()
	w.writeLine("int * a = (int *) addr;")
	w.writeLine("int old = *a, assumed;")
	w.writeLine("do")
	w.writeLine("{")
	w.pushIndent()
	w.writeLine("assumed = old;")
	w.writeLine("old = atomicCAS(a, assumed, __float_as_int(%s(value, __int_as_float(assumed))));", combine)
	w.popIndent()
	w.writeLine("} while (assumed != old);")
	w.writeLine("return __int_as_float(old);")
	w.popIndent()
	w.writeLine("}")
}

func (w *Writer) writeHeader() {
	w.writeLine("#pragma once")
	w.writeLine("")
	w.writeLine("struct CUDA_Context;")
	w.writeLine("")
	for _, h := range w.module.Hosts {
		w.writeLine("%s;", w.hostSignature(h))
	}
}

// fail records the first unsupported construct; printing continues so that the caller gets one error.
func (w *Writer) fail(format string, args ...any) {
	if w.firstErr == nil {
		w.firstErr = fmt.Errorf("%w: "+format, append([]any{ErrUnsupported}, args...)...)
	}
}

// Output helpers

//nolint:goprintffuncname
func (w *Writer) write(format string, args ...any) {
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
}

//nolint:goprintffuncname
func (w *Writer) writeLine(format string, args ...any) {
	if format != "" {
		w.writeIndent()
	}
	w.write(format, args...)
	w.out.WriteByte('\n')
}

func (w *Writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("  ")
	}
}

func (w *Writer) pushIndent() {
	w.indent++
}

func (w *Writer) popIndent() {
	if w.indent > 0 {
		w.indent--
	}
}

func (w *Writer) open() {
	w.writeLine("{")
	w.pushIndent()
}

func (w *Writer) close() {
	w.popIndent()
	w.writeLine("}")
}

// typeName is the device spelling of t.
func typeName(t ir.Type) string {
	switch t {
	case ir.TypeBool:
		return "bool"
	case ir.TypeInt32:
		return "int"
	case ir.TypeUint32:
		return "unsigned int"
	case ir.TypeFloat32:
		return "float"
	case ir.TypeIndex:
		return "index_type"
	}
	return "void"
}

// VarType and FieldType let the writer infer expression types in the current kernel.
func (w *Writer) VarType(name string) (ir.Type, bool) {
	t, ok := w.vars[name]
	return t, ok
}

func (w *Writer) FieldType(name string) (ir.Type, bool) {
	t, ok := w.fields[name]
	return t, ok
}

func (w *Writer) typeOf(e ir.Expr) ir.Type {
	t, err := ir.TypeOf(e, w)
	if err != nil {
		w.fail("%v", err)
	}
	return t
}
