// Package device emulates the GPU that lowered kernels run on: state arrays with host and device
// copies, the reduction slot, worklists, the launch geometry policy and an interpreter for
// lowered kernels and host wrappers.
package device

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog/log"

	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/utils"
)

type Options struct {
	Sizer       Sizer     `yaml:"-"`
	Admission   Admission `yaml:"admission"`
	Parallelism int       `yaml:"parallelism"` // Blocks running at once; defaults to GOMAXPROCS.
}

// Context owns every piece of device state of one run. Nothing is shared between contexts.
type Context struct {
	module *ir.Module
	graph  Accessor
	opts   Options
	nowned uint32

	fields  map[string]*Array
	order   []*Array
	retval  *Array // p_retval, one word.
	anyRed  *Reduction
	sumRed  *Reduction
	in, out *Worklist

	// Host-visible frontier sizes, as in the shared worklist record.
	numInItems  int
	numOutItems int

	kernels map[string]*kernel
}

// NewContext allocates state for m over g and compiles every kernel of m.
func NewContext(m *ir.Module, g Accessor, opts Options) (*Context, error) {
	if opts.Sizer == nil {
		opts.Sizer = DefaultSizing()
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}
	n := g.OwnedVertexCount()
	c := &Context{
		module:  m,
		graph:   g,
		opts:    opts,
		nowned:  n,
		fields:  make(map[string]*Array, len(m.Program.Fields)),
		retval:  NewArray("p_retval", ir.TypeInt32, 1),
		anyRed:  &Reduction{kind: ir.ReduceAny},
		sumRed:  &Reduction{kind: ir.ReduceSum},
		kernels: make(map[string]*kernel, len(m.Kernels)),
	}
	for _, f := range m.Program.Fields {
		a := NewArray(f.Name, f.Type, n)
		c.fields[f.Name] = a
		c.order = append(c.order, a)
	}

	needsWL := false
	for _, p := range m.Phases {
		needsWL = needsWL || p.Worklist || p.Pushes
	}
	if needsWL {
		capacity := n
		if opts.Admission == AdmitAll {
			capacity = n + g.EdgeCount()
		}
		c.in = NewWorklist(capacity, n, opts.Admission)
		c.out = NewWorklist(capacity, n, opts.Admission)
	}

	for _, k := range m.Kernels {
		ck, err := compileKernel(k)
		if err != nil {
			return nil, err
		}
		c.kernels[k.Name] = ck
	}
	log.Debug().Msg("device: context for " + m.Name + " with " + utils.V(n) + " vertices, " + utils.V(len(c.order)) + " arrays, admission " + opts.Admission.String())
	return c, nil
}

func (c *Context) Module() *ir.Module   { return c.module }
func (c *Context) Graph() Accessor      { return c.graph }
func (c *Context) Owned() uint32        { return c.nowned }
func (c *Context) Geometry() Geometry   { return c.opts.Sizer.Size(c.graph) }
func (c *Context) Arrays() []*Array     { return c.order }
func (c *Context) Retval() *Array       { return c.retval }
func (c *Context) NumInItems() int      { return c.numInItems }
func (c *Context) NumOutItems() int     { return c.numOutItems }
func (c *Context) HasWorklists() bool   { return c.in != nil }
func (c *Context) Admission() Admission { return c.opts.Admission }

// Field returns the state array of a program field.
func (c *Context) Field(name string) (*Array, error) {
	a, ok := c.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: field %q", ErrUnknown, name)
	}
	return a, nil
}

// Frontier lists the incoming frontier.
func (c *Context) Frontier() []uint32 {
	if c.in == nil {
		return nil
	}
	return c.in.Items(c.numInItems)
}

// SetFrontier replaces the incoming frontier.
func (c *Context) SetFrontier(items []uint32) error {
	if c.in == nil {
		return fmt.Errorf("device: %s has no worklist", c.module.Name)
	}
	if len(items) > int(c.in.Capacity()) {
		return fmt.Errorf("device: frontier of %d exceeds capacity %d", len(items), c.in.Capacity())
	}
	c.in.Load(items)
	c.numInItems = len(items)
	return nil
}

// SwapWorklists makes the frontier produced by the last round the incoming one.
func (c *Context) SwapWorklists() {
	if c.in == nil {
		return
	}
	c.in, c.out = c.out, c.in
	c.numInItems, c.numOutItems = c.numOutItems, 0
}

func (c *Context) reduction(kind ir.ReductionKind) *Reduction {
	if kind == ir.ReduceSum {
		return c.sumRed
	}
	return c.anyRed
}
