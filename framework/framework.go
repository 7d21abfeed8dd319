// Package framework drives a lowered vertex program on the emulated device:
// Reset, Initialize, then relax rounds until the reduction reports no change.
package framework

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/ScottSallinen/lollipop-gg/device"
	"github.com/ScottSallinen/lollipop-gg/graph"
	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/lower"
	"github.com/ScottSallinen/lollipop-gg/utils"
)

var (
	ErrUnknownPhase = errors.New("framework: unknown phase")
	ErrUnknownParam = errors.New("framework: unknown parameter")
	ErrMissingParam = errors.New("framework: parameter has no value")
)

// Framework owns one device context and the phases of one module.
type Framework struct {
	Module *ir.Module
	Graph  *graph.Graph // As swept: transposed for pull programs.
	Device *device.Context

	opts   Options
	phases map[string]*Phase
	reset  []*Phase
	init   []*Phase
	seed   []*Phase
	relax  []*Phase
	round  int
}

// Round is the outcome of one relax round.
type Round struct {
	Index  int
	Result int // Summed reductions, or the outgoing frontier size of a worklist program.
}

// Result of a run.
type Result struct {
	Iterations int
	Converged  bool
	Seconds    float64
}

// Build lowers p and creates a framework for it.
func Build(p *ir.VertexProgram, g *graph.Graph, opts Options) (*Framework, error) {
	m, err := lower.Lower(p, lower.Options{Cooperative: opts.Cooperative})
	if err != nil {
		return nil, err
	}
	return New(m, g, opts)
}

// New allocates device state for m over g.
func New(m *ir.Module, g *graph.Graph, opts Options) (*Framework, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Partitions <= 0 {
		opts.Partitions = 1
	}
	if m.Program.Direction == ir.Pull && !g.Transposed() {
		g = g.Transpose()
	}
	dev, err := device.NewContext(m, g, opts.Device)
	if err != nil {
		return nil, fmt.Errorf("framework: %s: %w", m.Name, err)
	}
	f := &Framework{Module: m, Graph: g, Device: dev, opts: opts, phases: make(map[string]*Phase, len(m.Phases))}
	for _, info := range m.Phases {
		ph := &Phase{Info: info, dev: dev}
		f.phases[info.Name] = ph
		switch info.Role {
		case ir.RoleReset:
			f.reset = append(f.reset, ph)
		case ir.RoleInit:
			f.init = append(f.init, ph)
		case ir.RoleSeed:
			f.seed = append(f.seed, ph)
		case ir.RoleRelax:
			f.relax = append(f.relax, ph)
		}
	}
	return f, nil
}

func (f *Framework) Options() Options { return f.opts }

// Phase returns a phase by name.
func (f *Framework) Phase(name string) (*Phase, error) {
	ph, ok := f.phases[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownPhase, name, f.Module.Name)
	}
	return ph, nil
}

// Params fills defaults into the given values and rejects names the program does not declare.
func (f *Framework) Params(values Params) (Params, error) {
	return ResolveParams(f.Module.Program, values)
}

func ResolveParams(p *ir.VertexProgram, values Params) (Params, error) {
	out := make(Params, len(p.Params))
	for name := range values {
		if _, ok := p.Param(name); !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownParam, name, p.Name)
		}
	}
	for _, prm := range p.Params {
		v := values[prm.Name]
		if v == nil {
			v = prm.Default
		}
		if v == nil {
			return nil, fmt.Errorf("%w: %q in %s", ErrMissingParam, prm.Name, p.Name)
		}
		if !ir.Assignable(prm.Type, v.Type) {
			return nil, fmt.Errorf("framework: %s: %q is %v, want %v", p.Name, prm.Name, v.Type, prm.Type)
		}
		out[prm.Name] = v
	}
	return out, nil
}

// Initialize runs the reset and init phases, then seeds the first frontier of a worklist program.
func (f *Framework) Initialize(ctx context.Context, params Params) error {
	for _, ph := range slices.Concat(f.reset, f.init, f.seed) {
		if _, err := ph.RunAll(ctx, params); err != nil {
			return fmt.Errorf("framework: %s: %w", ph.Name(), err)
		}
	}
	if len(f.seed) > 0 {
		f.Device.SwapWorklists()
		log.Debug().Msg("Seeded frontier of " + utils.V(f.Device.NumInItems()) + " vertices")
	}
	f.round = 0
	return nil
}

// Step runs one relax round.
func (f *Framework) Step(ctx context.Context, params Params) (Round, error) {
	r := Round{Index: f.round}
	for _, ph := range f.relax {
		if ph.Info.Worklist || f.opts.Partitions == 1 {
			n, err := ph.RunAll(ctx, params)
			if err != nil {
				return r, fmt.Errorf("framework: round %d: %s: %w", r.Index, ph.Name(), err)
			}
			r.Result += n
			continue
		}
		for _, rg := range Partition(f.Device.Owned(), f.opts.Partitions) {
			n, err := ph.Run(ctx, rg[0], rg[1], params)
			if err != nil {
				return r, fmt.Errorf("framework: round %d: %s [%d, %d): %w", r.Index, ph.Name(), rg[0], rg[1], err)
			}
			r.Result += n
		}
	}
	if f.Device.HasWorklists() {
		r.Result = f.Device.NumOutItems()
		f.Device.SwapWorklists()
	}
	f.round++
	log.Debug().Msg("Round " + utils.V(r.Index) + " result " + utils.V(r.Result))
	return r, nil
}

// Run initializes and steps until a round reports nothing left to do, or the round cap.
func (f *Framework) Run(ctx context.Context, values Params) (Result, error) {
	var res Result
	params, err := f.Params(values)
	if err != nil {
		return res, err
	}
	watch := utils.Watch{}
	watch.Start()
	if err := f.Initialize(ctx, params); err != nil {
		return res, err
	}
	for res.Iterations < f.opts.MaxIterations {
		r, err := f.Step(ctx, params)
		res.Iterations++
		if err != nil {
			return res, err
		}
		if r.Result == 0 {
			res.Converged = true
			break
		}
	}
	res.Seconds = watch.Elapsed().Seconds()
	if !res.Converged {
		log.Warn().Msg(f.Module.Name + " stopped after " + utils.V(res.Iterations) + " rounds without converging")
	} else {
		log.Info().Msg(f.Module.Name + " converged in " + utils.V(res.Iterations) + " rounds, " + utils.F("%.3f", res.Seconds*1000) + " ms")
	}
	return res, nil
}

// Partition splits [0, n) into at most parts contiguous ranges.
func Partition(n uint32, parts int) [][2]uint32 {
	if parts <= 1 || n == 0 {
		return [][2]uint32{{0, n}}
	}
	chunk := (n + uint32(parts) - 1) / uint32(parts)
	var out [][2]uint32
	for b := uint32(0); b < n; b += chunk {
		out = append(out, [2]uint32{b, utils.Min(b+chunk, n)})
	}
	return out
}

// Typed views of field results.

func (f *Framework) Uint32Field(name string) ([]uint32, error) {
	a, err := f.Device.Field(name)
	if err != nil {
		return nil, err
	}
	return a.Uint32s(), nil
}

func (f *Framework) Int32Field(name string) ([]int32, error) {
	a, err := f.Device.Field(name)
	if err != nil {
		return nil, err
	}
	return a.Int32s(), nil
}

func (f *Framework) Float32Field(name string) ([]float32, error) {
	a, err := f.Device.Field(name)
	if err != nil {
		return nil, err
	}
	return a.Float32s(), nil
}
