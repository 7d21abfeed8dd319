package ir

import "fmt"

// Type is the scalar type of a field, parameter, local or expression. Every value is 32 bits wide on the device.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt32
	TypeUint32
	TypeFloat32
	TypeIndex // Vertex or edge index (index_type).
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeInt32:   "int32",
	TypeUint32:  "uint32",
	TypeFloat32: "float32",
	TypeIndex:   "index",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType resolves a type name as written in program files.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name && Type(t) != TypeInvalid {
			return Type(t), nil
		}
	}
	switch name {
	case "int":
		return TypeInt32, nil
	case "uint", "unsigned":
		return TypeUint32, nil
	case "float":
		return TypeFloat32, nil
	}
	return TypeInvalid, fmt.Errorf("unknown type %q", name)
}

func (t Type) IsFloat() bool    { return t == TypeFloat32 }
func (t Type) IsInteger() bool  { return t == TypeInt32 || t == TypeUint32 || t == TypeIndex }
func (t Type) IsUnsigned() bool { return t == TypeUint32 || t == TypeIndex }
func (t Type) IsNumeric() bool  { return t.IsFloat() || t.IsInteger() }

// Schedule decides which vertices a relaxation round visits.
type Schedule uint8

const (
	Topological Schedule = iota // Every round sweeps the full owned range.
	Worklist                    // Every round visits the frontier produced by the previous round.
)

func (s Schedule) String() string {
	switch s {
	case Topological:
		return "topological"
	case Worklist:
		return "worklist"
	}
	return fmt.Sprintf("Schedule(%d)", uint8(s))
}

func ParseSchedule(s string) (Schedule, error) {
	switch s {
	case "topological", "topo":
		return Topological, nil
	case "worklist", "wl":
		return Worklist, nil
	}
	return 0, fmt.Errorf("unknown schedule %q", s)
}

// Direction of edge relaxation.
type Direction uint8

const (
	Push Direction = iota // Sources write into neighbours.
	Pull                  // Owners read neighbours and fold into their own state. Runs on the transposed graph.
)

func (d Direction) String() string {
	switch d {
	case Push:
		return "push"
	case Pull:
		return "pull"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

func ParseDirection(s string) (Direction, error) {
	switch s {
	case "push":
		return Push, nil
	case "pull":
		return Pull, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// ReductionKind selects the discipline of a phase's reduction slot.
type ReductionKind uint8

const (
	ReduceNone ReductionKind = iota
	ReduceAny                // Logical OR of all signals.
	ReduceSum                // Sum of all signalled increments.
)

func (r ReductionKind) String() string {
	switch r {
	case ReduceNone:
		return "none"
	case ReduceAny:
		return "any"
	case ReduceSum:
		return "sum"
	}
	return fmt.Sprintf("ReductionKind(%d)", uint8(r))
}

func ParseReduction(s string) (ReductionKind, error) {
	switch s {
	case "", "none":
		return ReduceNone, nil
	case "any":
		return ReduceAny, nil
	case "sum":
		return ReduceSum, nil
	}
	return 0, fmt.Errorf("unknown reduction %q", s)
}

// AtomicOp is the read-modify-write primitive of an atomic update.
type AtomicOp uint8

const (
	AtomicMin AtomicOp = iota
	AtomicMax
	AtomicAdd
	AtomicExch
)

func (op AtomicOp) String() string {
	switch op {
	case AtomicMin:
		return "min"
	case AtomicMax:
		return "max"
	case AtomicAdd:
		return "add"
	case AtomicExch:
		return "exch"
	}
	return fmt.Sprintf("AtomicOp(%d)", uint8(op))
}

func ParseAtomicOp(s string) (AtomicOp, error) {
	switch s {
	case "min":
		return AtomicMin, nil
	case "max":
		return AtomicMax, nil
	case "add":
		return AtomicAdd, nil
	case "exch", "exchange":
		return AtomicExch, nil
	}
	return 0, fmt.Errorf("unknown atomic op %q", s)
}

// Field is a named per-vertex device state array.
type Field struct {
	Name string
	Type Type
}

// Param is a named scalar kernel parameter, passed by value on every launch.
type Param struct {
	Name    string
	Type    Type
	Const   bool   // Printed with a const qualifier.
	Default *Const // Optional value used when the caller does not supply one.
}
