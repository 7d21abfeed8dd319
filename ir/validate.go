package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is one problem found in a vertex program.
type ValidationError struct {
	Program string
	Phase   string
	Msg     string
}

func (e *ValidationError) Error() string {
	if e.Phase == "" {
		return e.Program + ": " + e.Msg
	}
	return e.Program + "." + e.Phase + ": " + e.Msg
}

// Names introduced by lowering and the emitted kernels.
var reservedNames = map[string]bool{
	"graph": true, "pop": true, "wlvertex": true, "tid": true, "nthreads": true,
	"any_retval": true, "sum_retval": true, "in_wl": true, "out_wl": true,
}

// Reserved reports whether name may not be declared by a program.
func Reserved(name string) bool {
	return reservedNames[name] || strings.HasPrefix(name, "__") || strings.HasPrefix(name, "_np") || strings.HasPrefix(name, "p_")
}

// Validate checks a vertex program: names, types, structure, and that no per-vertex state
// is written without an atomic update unless the writer owns the vertex.
func Validate(p *VertexProgram) error {
	if p == nil {
		return errors.New("nil program")
	}
	v := &validator{prog: p}
	v.checkDecls()
	v.checkSeed()

	phases, roles := p.Phases()
	if len(p.Relax) == 0 {
		v.errorf(nil, "no relax phase")
	}
	seen := map[string]bool{}
	signals, pops, pushes := false, false, false
	for i, ph := range phases {
		if ph == nil {
			v.errorf(nil, "nil phase")
			continue
		}
		if ph.Name == "" || Reserved(ph.Name) {
			v.errorf(ph, "invalid phase name %q", ph.Name)
		}
		if seen[ph.Name] {
			v.errorf(ph, "duplicate phase name")
		}
		seen[ph.Name] = true
		k := v.checkPhase(ph, roles[i])
		if roles[i] == RoleRelax {
			signals = signals || k.signals
			pops = pops || k.pops
			pushes = pushes || k.pushes
		}
	}
	switch p.Schedule {
	case Topological:
		if !signals && len(p.Relax) > 0 {
			v.errorf(nil, "topological program never signals its reduction, so it cannot converge")
		}
	case Worklist:
		if !pops {
			v.errorf(nil, "worklist program has no worklist sweep")
		}
		if !pushes {
			v.errorf(nil, "worklist program never pushes to the frontier")
		}
	}
	return errors.Join(v.errs...)
}

type validator struct {
	prog *VertexProgram
	errs []error
}

func (v *validator) errorf(ph *Phase, format string, args ...any) {
	e := &ValidationError{Program: v.prog.Name, Msg: fmt.Sprintf(format, args...)}
	if ph != nil {
		e.Phase = ph.Name
	}
	v.errs = append(v.errs, e)
}

func (v *validator) checkDecls() {
	p := v.prog
	if p.Name == "" {
		v.errorf(nil, "program has no name")
	}
	names := map[string]bool{}
	for _, f := range p.Fields {
		if f.Name == "" || Reserved(f.Name) || names[f.Name] {
			v.errorf(nil, "invalid or duplicate field name %q", f.Name)
		}
		if f.Type == TypeInvalid || f.Type == TypeBool {
			v.errorf(nil, "field %q has unsupported type %v", f.Name, f.Type)
		}
		names[f.Name] = true
	}
	for _, prm := range p.Params {
		if prm.Name == "" || Reserved(prm.Name) || names[prm.Name] {
			v.errorf(nil, "invalid or duplicate parameter name %q", prm.Name)
		}
		if prm.Type == TypeInvalid {
			v.errorf(nil, "parameter %q has no type", prm.Name)
		}
		if prm.Default != nil && !Assignable(prm.Type, prm.Default.Type) {
			v.errorf(nil, "default of %q is %v, want %v", prm.Name, prm.Default.Type, prm.Type)
		}
		names[prm.Name] = true
	}
}

func (v *validator) checkSeed() {
	p := v.prog
	if p.Seed == nil {
		return
	}
	if p.Schedule != Worklist {
		v.errorf(nil, "seed on a %v program", p.Schedule)
		return
	}
	s := NewScope(p).Child()
	s.Declare(p.Seed.Var, TypeIndex)
	t, err := TypeOf(p.Seed.When, s)
	if err != nil {
		v.errorf(nil, "seed: %v", err)
	} else if t != TypeBool {
		v.errorf(nil, "seed condition is %v, want bool", t)
	}
}

// kernelCheck collects facts about one phase while walking it.
type kernelCheck struct {
	phase    *Phase
	role     Role
	owner    string
	inPrefix bool
	inEdges  bool
	stored   map[string]bool
	atomics  map[string]bool
	loads    []*Load
	signals  bool
	pops     bool
	pushes   bool
}

func (v *validator) checkPhase(ph *Phase, role Role) *kernelCheck {
	k := &kernelCheck{phase: ph, role: role, stored: map[string]bool{}, atomics: map[string]bool{}}
	scope := NewScope(v.prog).Child()
	for _, d := range ph.Locals {
		v.checkStmt(d, scope, k)
	}
	if ph.Reduction != ReduceNone && role != RoleRelax {
		v.errorf(ph, "%v phase cannot carry a %v reduction", role, ph.Reduction)
	}

	var body Block
	sweep := scope.Child()
	switch s := ph.Body.(type) {
	case *ForNodes:
		if s.Guard != "" {
			v.errorf(ph, "sweep is already lowered")
		}
		k.owner = s.Var
		v.declare(ph, sweep, s.Var, TypeIndex)
		body = s.Body
	case *ForWorklist:
		if s.Guard != "" {
			v.errorf(ph, "sweep is already lowered")
		}
		if role != RoleRelax || v.prog.Schedule != Worklist {
			v.errorf(ph, "worklist sweep outside a relax phase of a worklist program")
		}
		k.owner = s.Item
		k.pops = true
		v.declare(ph, sweep, s.Item, TypeIndex)
		body = s.Body
	default:
		v.errorf(ph, "phase body must be a node or worklist sweep, got %T", ph.Body)
		return k
	}

	prefix, nested := SplitNested(body)
	k.inPrefix = true
	v.checkBlock(prefix, sweep, k)
	k.inPrefix = false
	v.checkBlock(nested, sweep, k)

	for f := range k.stored {
		if k.atomics[f] {
			v.errorf(ph, "field %q is both stored and atomically updated", f)
		}
	}
	for _, ld := range k.loads {
		if k.stored[ld.Field] && !k.isOwner(ld.Index) {
			v.errorf(ph, "field %q is stored by its owner but read at another vertex", ld.Field)
		}
	}
	return k
}

func (k *kernelCheck) isOwner(e Expr) bool {
	vr, ok := e.(*Var)
	return ok && vr.Name == k.owner
}

func (v *validator) declare(ph *Phase, s *Scope, name string, t Type) {
	if name == "" || Reserved(name) {
		v.errorf(ph, "invalid variable name %q", name)
	}
	if _, exists := s.VarType(name); exists {
		v.errorf(ph, "variable %q shadows an existing name", name)
	}
	if _, exists := s.FieldType(name); exists {
		v.errorf(ph, "variable %q shadows a field", name)
	}
	s.Declare(name, t)
}

func (v *validator) checkBlock(b Block, s *Scope, k *kernelCheck) {
	for _, st := range b {
		v.checkStmt(st, s, k)
	}
}

// expr types e and records field reads.
func (v *validator) expr(e Expr, s *Scope, k *kernelCheck) (Type, bool) {
	t, err := TypeOf(e, s)
	if err != nil {
		v.errorf(k.phase, "%v", err)
		return TypeInvalid, false
	}
	VisitExpr(e, func(e Expr) {
		if ld, ok := e.(*Load); ok {
			k.loads = append(k.loads, ld)
		}
	})
	return t, true
}

func (v *validator) checkStmt(st Stmt, s *Scope, k *kernelCheck) {
	ph := k.phase
	switch x := st.(type) {
	case *Decl:
		if x.Init != nil {
			if t, ok := v.expr(x.Init, s, k); ok && !Assignable(x.Type, t) {
				v.errorf(ph, "cannot initialize %v %q with %v", x.Type, x.Name, t)
			}
		}
		if x.Type == TypeInvalid {
			v.errorf(ph, "variable %q has no type", x.Name)
		}
		v.declare(ph, s, x.Name, x.Type)

	case *Assign:
		to, ok := s.VarType(x.Name)
		if !ok {
			v.errorf(ph, "assignment to undeclared %q", x.Name)
			return
		}
		if _, isParam := v.prog.Param(x.Name); isParam || x.Name == k.owner {
			v.errorf(ph, "assignment to read-only %q", x.Name)
		}
		if t, ok := v.expr(x.Value, s, k); ok && !Assignable(to, t) {
			v.errorf(ph, "cannot assign %v to %v %q", t, to, x.Name)
		}

	case *Store:
		ft, ok := s.FieldType(x.Field)
		if !ok {
			v.errorf(ph, "store to unknown field %q", x.Field)
			return
		}
		if !k.isOwner(x.Index) {
			v.errorf(ph, "plain store to %q at a vertex the worker does not own; use an atomic update", x.Field)
		}
		if t, ok := v.expr(x.Value, s, k); ok && !Assignable(ft, t) {
			v.errorf(ph, "cannot store %v into %v field %q", t, ft, x.Field)
		}
		VisitExpr(x.Value, func(e Expr) {
			if ld, ok := e.(*Load); ok && ld.Field == x.Field {
				v.errorf(ph, "plain read-modify-write of %q; use an atomic update", x.Field)
			}
		})
		k.stored[x.Field] = true

	case *Atomic:
		ft, ok := s.FieldType(x.Field)
		if !ok {
			v.errorf(ph, "atomic update of unknown field %q", x.Field)
			return
		}
		if t, ok := v.expr(x.Index, s, k); ok && !t.IsInteger() {
			v.errorf(ph, "index of %q is %v", x.Field, t)
		}
		if t, ok := v.expr(x.Value, s, k); ok && !Assignable(ft, t) {
			v.errorf(ph, "atomic %v of %v into %v field %q", x.Op, t, ft, x.Field)
		}
		if x.Result != "" {
			rt, ok := s.VarType(x.Result)
			if !ok {
				v.errorf(ph, "atomic result %q is not declared", x.Result)
			} else if !Assignable(rt, ft) {
				v.errorf(ph, "atomic result %q is %v, field is %v", x.Result, rt, ft)
			}
		}
		if v.prog.Direction == Pull && k.role == RoleRelax && !k.isOwner(x.Index) {
			v.errorf(ph, "pull relaxation must fold into the owner's %q", x.Field)
		}
		k.atomics[x.Field] = true

	case *If:
		if t, ok := v.expr(x.Cond, s, k); ok && t != TypeBool {
			v.errorf(ph, "condition is %v, want bool", t)
		}
		v.checkBlock(x.Then, s.Child(), k)
		v.checkBlock(x.Else, s.Child(), k)

	case *ForNodes, *ForWorklist:
		v.errorf(ph, "nested sweep %T", st)

	case *ForEdges:
		if k.inEdges {
			v.errorf(ph, "edge sweep nested in another edge sweep")
		}
		if t, ok := v.expr(x.Source, s, k); ok && !t.IsInteger() {
			v.errorf(ph, "edge sweep source is %v", t)
		}
		inner := s.Child()
		v.declare(ph, inner, x.Var, TypeIndex)
		outer := k.inEdges
		k.inEdges = true
		v.checkBlock(x.Body, inner, k)
		k.inEdges = outer

	case *ClosureHint:
		v.checkBlock(x.Body, s.Child(), k)

	case *Skip:
		if !k.inPrefix {
			v.errorf(ph, "skip must come before the edge sweep")
		}

	case *Signal:
		switch ph.Reduction {
		case ReduceNone:
			v.errorf(ph, "signal in a phase without a reduction")
		case ReduceAny:
			if x.Value != nil {
				v.errorf(ph, "any-mode signal takes no value")
			}
		case ReduceSum:
			if x.Value == nil {
				v.errorf(ph, "sum-mode signal needs a value")
				break
			}
			// Sum slots only count up.
			if t, ok := v.expr(x.Value, s, k); ok && !t.IsUnsigned() {
				v.errorf(ph, "sum-mode signal value is %v, not unsigned", t)
			}
		}
		k.signals = true

	case *PushItem:
		if v.prog.Schedule != Worklist {
			v.errorf(ph, "push in a %v program", v.prog.Schedule)
		}
		if t, ok := v.expr(x.Vertex, s, k); ok && !t.IsInteger() {
			v.errorf(ph, "pushed vertex is %v", t)
		}
		k.pushes = true

	case *UniformGuard, *PopItem:
		v.errorf(ph, "%T is produced by lowering and cannot appear in a program", st)

	default:
		v.errorf(ph, "unknown statement %T", st)
	}
}
