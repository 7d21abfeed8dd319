package ir

// Role of a phase within a run.
type Role uint8

const (
	RoleReset Role = iota
	RoleInit
	RoleSeed
	RoleRelax
)

func (r Role) String() string {
	switch r {
	case RoleReset:
		return "reset"
	case RoleInit:
		return "init"
	case RoleSeed:
		return "seed"
	case RoleRelax:
		return "relax"
	}
	return "unknown"
}

// Phase is one kernel of a vertex program.
type Phase struct {
	Name      string
	Reduction ReductionKind
	Locals    []*Decl // Declared at kernel scope, before the sweep.
	Body      Stmt    // A *ForNodes or *ForWorklist.
}

// Seed selects the initial frontier of a worklist program.
type Seed struct {
	Var  string
	When Expr
}

// VertexProgram is the declarative description of one graph algorithm.
type VertexProgram struct {
	Name      string
	Fields    []Field
	Params    []Param
	Schedule  Schedule
	Direction Direction
	Reset     *Phase
	Init      []*Phase
	Relax     []*Phase
	Seed      *Seed // Worklist programs only; nil seeds every owned vertex.
}

// Field returns the named field.
func (p *VertexProgram) Field(name string) (Field, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Param returns the named scalar parameter.
func (p *VertexProgram) Param(name string) (Param, bool) {
	for _, prm := range p.Params {
		if prm.Name == name {
			return prm, true
		}
	}
	return Param{}, false
}

// Phases lists the phases in run order with their roles.
func (p *VertexProgram) Phases() (phases []*Phase, roles []Role) {
	if p.Reset != nil {
		phases = append(phases, p.Reset)
		roles = append(roles, RoleReset)
	}
	for _, ph := range p.Init {
		phases = append(phases, ph)
		roles = append(roles, RoleInit)
	}
	for _, ph := range p.Relax {
		phases = append(phases, ph)
		roles = append(roles, RoleRelax)
	}
	return phases, roles
}
