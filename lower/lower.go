// Package lower turns a vertex program into device kernels and the host wrappers that launch them.
package lower

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/utils"
)

// SeedKernel is the name of the generated kernel that fills the first frontier of a worklist program.
const SeedKernel = "InitializeWorklist"

const (
	guardVar = "pop"
	slotVar  = "wlvertex"
)

type Options struct {
	// Cooperative rounds sweep bounds up to a block multiple so that hinted edge loops
	// can run warp-cooperatively. Results do not change.
	Cooperative bool
}

// Lower validates p and lowers every phase. The module keeps a reference to p.
func Lower(p *ir.VertexProgram, opts Options) (*ir.Module, error) {
	if err := ir.Validate(p); err != nil {
		return nil, fmt.Errorf("lower: %w", err)
	}
	l := &lowerer{prog: p, opts: opts, mod: &ir.Module{Name: p.Name, Program: p}}

	phases, roles := p.Phases()
	seeded := false
	for i, ph := range phases {
		if roles[i] == ir.RoleRelax && p.Schedule == ir.Worklist && !seeded {
			if err := l.phase(l.seedPhase(), ir.RoleSeed); err != nil {
				return nil, err
			}
			seeded = true
		}
		if err := l.phase(ph, roles[i]); err != nil {
			return nil, err
		}
	}
	log.Debug().Msg("Lowered " + p.Name + ": " + utils.V(len(l.mod.Kernels)) + " kernels, " + utils.V(len(l.mod.Hosts)) + " host wrappers")
	return l.mod, nil
}

type lowerer struct {
	prog *ir.VertexProgram
	opts Options
	mod  *ir.Module
}

func (l *lowerer) seedPhase() *ir.Phase {
	v := "src"
	var body ir.Block
	if s := l.prog.Seed; s != nil {
		v = s.Var
		body = ir.Block{ir.When(s.When, ir.PushVertex(ir.V(v)))}
	} else {
		body = ir.Block{ir.PushVertex(ir.V(v))}
	}
	return &ir.Phase{Name: SeedKernel, Body: &ir.ForNodes{Var: v, Body: body}}
}

func (l *lowerer) phase(ph *ir.Phase, role ir.Role) error {
	if l.mod.Kernel(ph.Name) != nil {
		return fmt.Errorf("lower %s: kernel name %q used twice", l.prog.Name, ph.Name)
	}
	k := &ir.Kernel{Name: ph.Name, Role: role, Reduction: ph.Reduction, Locals: ph.Locals}
	info := ir.PhaseInfo{Name: ph.Name, Role: role, Kernel: ph.Name, Reduction: ph.Reduction}

	nodeSweep := false
	switch s := ph.Body.(type) {
	case *ir.ForNodes:
		nodeSweep = true
		k.Body = l.nodes(s)
	case *ir.ForWorklist:
		info.Worklist = true
		k.Body = l.worklist(s)
	default:
		return fmt.Errorf("lower %s.%s: unexpected sweep %T", l.prog.Name, ph.Name, ph.Body)
	}
	ir.WalkStmts(ir.Block{ph.Body}, func(s ir.Stmt) bool {
		if _, ok := s.(*ir.PushItem); ok {
			info.Pushes = true
		}
		return true
	})

	fields, scalars := l.references(ph)
	k.Params = kernelParams(nodeSweep, fields, scalars, ph.Reduction, info.Worklist, info.Pushes)

	host := hostWrapper(k, nodeSweep, scalars, info)
	info.Wrapper = host.Name
	l.mod.Kernels = append(l.mod.Kernels, k)
	l.mod.Hosts = append(l.mod.Hosts, host)
	if nodeSweep {
		all := allWrapper(host)
		info.AllWrapper = all.Name
		l.mod.Hosts = append(l.mod.Hosts, all)
	}
	l.mod.Phases = append(l.mod.Phases, info)
	return nil
}

// nodes lowers a node sweep: the divergence guard is computed once per vertex, the prefix runs
// under it, and the nested part is reached only through a uniform guard.
func (l *lowerer) nodes(s *ir.ForNodes) *ir.ForNodes {
	pop := ir.Let(guardVar, ir.TypeBool, ir.Lt(ir.V(s.Var), ir.V("__end")))
	body, cooperative := l.guarded(s.Body, ir.Block{pop})
	return &ir.ForNodes{Var: s.Var, Body: body, Guard: guardVar, RoundUp: l.opts.Cooperative && cooperative}
}

// worklist lowers a frontier sweep: slot indices are swept, and a failed pop acts as the guard.
func (l *lowerer) worklist(s *ir.ForWorklist) *ir.ForWorklist {
	head := ir.Block{
		ir.Local(s.Item, ir.TypeIndex),
		ir.Local(guardVar, ir.TypeBool),
		&ir.PopItem{Index: slotVar, Item: s.Item, Ok: guardVar},
	}
	body, cooperative := l.guarded(s.Body, head)
	return &ir.ForWorklist{Item: s.Item, Body: body, Var: slotVar, Guard: guardVar, RoundUp: l.opts.Cooperative && cooperative}
}

func (l *lowerer) guarded(body ir.Block, head ir.Block) (ir.Block, bool) {
	prefix, nested := ir.SplitNested(body)
	out := head
	var guarded ir.Block
	for _, st := range prefix {
		// Top level declarations must stay visible to the nested part, so they move above the guard.
		if d, ok := st.(*ir.Decl); ok {
			out = append(out, ir.Local(d.Name, d.Type))
			if d.Init != nil {
				guarded = append(guarded, ir.Set(d.Name, d.Init))
			}
			continue
		}
		guarded = append(guarded, replaceSkip(st))
	}
	out = append(out, &ir.If{Cond: ir.V(guardVar), Then: guarded})
	if len(nested) == 0 {
		return out, false
	}
	out = append(out, &ir.UniformGuard{Pop: guardVar})
	out = append(out, nested...)
	hinted := false
	ir.WalkStmts(nested, func(s ir.Stmt) bool {
		if _, ok := s.(*ir.ClosureHint); ok {
			hinted = true
		}
		return !hinted
	})
	return out, hinted
}

func replaceSkip(s ir.Stmt) ir.Stmt {
	switch x := s.(type) {
	case *ir.Skip:
		return ir.Set(guardVar, ir.Bool(false))
	case *ir.If:
		return &ir.If{Cond: x.Cond, Then: replaceSkips(x.Then), Else: replaceSkips(x.Else)}
	}
	return s
}

func replaceSkips(b ir.Block) ir.Block {
	if b == nil {
		return nil
	}
	out := make(ir.Block, len(b))
	for i, s := range b {
		out[i] = replaceSkip(s)
	}
	return out
}

// references lists the fields and scalar parameters a phase touches, in declaration order.
func (l *lowerer) references(ph *ir.Phase) (fields []ir.Field, scalars []ir.Param) {
	usedF := map[string]bool{}
	usedV := map[string]bool{}
	visit := func(e ir.Expr) {
		ir.VisitExpr(e, func(e ir.Expr) {
			switch x := e.(type) {
			case *ir.Load:
				usedF[x.Field] = true
			case *ir.Var:
				usedV[x.Name] = true
			}
		})
	}
	block := ir.Block{ph.Body}
	for _, d := range ph.Locals {
		block = append(block, d)
	}
	ir.WalkStmts(block, func(s ir.Stmt) bool {
		for _, e := range ir.StmtExprs(s) {
			visit(e)
		}
		switch x := s.(type) {
		case *ir.Store:
			usedF[x.Field] = true
		case *ir.Atomic:
			usedF[x.Field] = true
		}
		return true
	})
	for _, f := range l.prog.Fields {
		if usedF[f.Name] {
			fields = append(fields, f)
		}
	}
	for _, p := range l.prog.Params {
		if usedV[p.Name] {
			scalars = append(scalars, p)
		}
	}
	return fields, scalars
}
