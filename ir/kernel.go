package ir

// ParamKind classifies a device kernel parameter.
type ParamKind uint8

const (
	ParamGraph ParamKind = iota
	ParamOwned
	ParamBegin
	ParamEnd
	ParamScalar
	ParamField
	ParamReduction
	ParamWorklistIn
	ParamWorklistOut
)

// KernelParam is one entry of a device kernel's ordered argument list.
type KernelParam struct {
	Kind      ParamKind
	Name      string // Name inside the kernel, e.g. "p_dist_current".
	Ref       string // Field or scalar parameter name, for ParamField and ParamScalar.
	Type      Type
	Const     bool
	Reduction ReductionKind
}

// Kernel is a lowered device kernel.
type Kernel struct {
	Name      string
	Role      Role
	Reduction ReductionKind
	Params    []KernelParam
	Locals    []*Decl
	Body      Stmt // Lowered *ForNodes or *ForWorklist.
}

// Param returns the parameter bound to a field or scalar name.
func (k *Kernel) Param(kind ParamKind, ref string) (int, bool) {
	for i := range k.Params {
		if k.Params[i].Kind == kind && k.Params[i].Ref == ref {
			return i, true
		}
	}
	return -1, false
}

// HasParam reports whether the kernel takes a parameter of the given kind.
func (k *Kernel) HasParam(kind ParamKind) bool {
	for i := range k.Params {
		if k.Params[i].Kind == kind {
			return true
		}
	}
	return false
}

// HostParamKind classifies a host wrapper parameter.
type HostParamKind uint8

const (
	HostBegin HostParamKind = iota
	HostEnd
	HostRetval
	HostScalar
	HostContext
)

type HostParam struct {
	Kind  HostParamKind
	Name  string
	Type  Type
	Const bool
}

// ArgKind is the source of one argument passed by a host wrapper.
type ArgKind uint8

const (
	ArgGraph ArgKind = iota
	ArgOwned
	ArgZero
	ArgBegin
	ArgEnd
	ArgRetval
	ArgScalar
	ArgField
	ArgReduction
	ArgWorklistIn
	ArgWorklistOut
	ArgContext
)

type HostArg struct {
	Kind      ArgKind
	Name      string
	Reduction ReductionKind
}

// HostStep is one action of a host wrapper. The set of variants is closed.
type HostStep interface {
	hostStep()
}

// SizeGrid asks the launch geometry policy for block and thread counts.
type SizeGrid struct{}

// StageReduction writes the caller's return slot into the host copy of the reduction slot.
type StageReduction struct{}

// BindReduction points the reduction handle at the device copy of the slot.
type BindReduction struct {
	Kind ReductionKind
}

// StageWorklist makes the incoming frontier count visible to the device.
type StageWorklist struct{}

// ResetWorklist empties the outgoing frontier.
type ResetWorklist struct{}

type Invoke struct {
	Kernel string
	Args   []HostArg
}

// CheckKernel waits for the launch and surfaces execution faults.
type CheckKernel struct{}

// ReadReduction copies the reduction slot back into the caller's return slot.
type ReadReduction struct{}

// PublishWorklist copies the outgoing frontier count to the shared host counters.
type PublishWorklist struct{}

// Forward calls another host wrapper, used by the full-range wrappers.
type Forward struct {
	Wrapper string
	Args    []HostArg
}

func (SizeGrid) hostStep()        {}
func (StageReduction) hostStep()  {}
func (BindReduction) hostStep()   {}
func (StageWorklist) hostStep()   {}
func (ResetWorklist) hostStep()   {}
func (Invoke) hostStep()          {}
func (CheckKernel) hostStep()     {}
func (ReadReduction) hostStep()   {}
func (PublishWorklist) hostStep() {}
func (Forward) hostStep()         {}

// HostWrapper is a host entry point.
type HostWrapper struct {
	Name   string
	Kernel string
	Params []HostParam
	Steps  []HostStep
}

// HasParam reports whether the wrapper takes a parameter of the given kind.
func (h *HostWrapper) HasParam(kind HostParamKind) bool {
	for i := range h.Params {
		if h.Params[i].Kind == kind {
			return true
		}
	}
	return false
}

// PhaseInfo ties a program phase to its lowered artifacts.
type PhaseInfo struct {
	Name       string
	Role       Role
	Kernel     string
	Wrapper    string
	AllWrapper string // Empty for worklist sweeps.
	Reduction  ReductionKind
	Worklist   bool // Consumes the incoming frontier.
	Pushes     bool // Produces an outgoing frontier.
}

// Module is the output of lowering one vertex program.
type Module struct {
	Name    string
	Program *VertexProgram
	Kernels []*Kernel
	Hosts   []*HostWrapper
	Phases  []PhaseInfo
}

func (m *Module) Kernel(name string) *Kernel {
	for _, k := range m.Kernels {
		if k.Name == name {
			return k
		}
	}
	return nil
}

func (m *Module) Host(name string) *HostWrapper {
	for _, h := range m.Hosts {
		if h.Name == name {
			return h
		}
	}
	return nil
}

func (m *Module) Phase(name string) (PhaseInfo, bool) {
	for _, p := range m.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseInfo{}, false
}

// PhasesWithRole returns the phases of one role, in run order.
func (m *Module) PhasesWithRole(role Role) []PhaseInfo {
	var out []PhaseInfo
	for _, p := range m.Phases {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}
