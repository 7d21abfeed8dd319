package ir

import "fmt"

// Env resolves names for type inference.
type Env interface {
	VarType(name string) (Type, bool)
	FieldType(name string) (Type, bool)
}

// Promote is the usual arithmetic conversion of two numeric operand types.
func Promote(a, b Type) Type {
	switch {
	case a.IsFloat() || b.IsFloat():
		return TypeFloat32
	case a == TypeIndex && b == TypeIndex:
		return TypeIndex
	case a.IsUnsigned() || b.IsUnsigned():
		return TypeUint32
	}
	return TypeInt32
}

// Assignable reports whether a value of type from can be written into a slot of type to.
func Assignable(to, from Type) bool {
	if to == from {
		return true
	}
	return to.IsNumeric() && from.IsNumeric()
}

// TypeOf infers the type of e.
func TypeOf(e Expr, env Env) (Type, error) {
	switch x := e.(type) {
	case *Const:
		if x.Type == TypeInvalid {
			return TypeInvalid, fmt.Errorf("untyped constant")
		}
		return x.Type, nil
	case *Var:
		if t, ok := env.VarType(x.Name); ok {
			return t, nil
		}
		return TypeInvalid, fmt.Errorf("undeclared variable %q", x.Name)
	case *Load:
		t, ok := env.FieldType(x.Field)
		if !ok {
			return TypeInvalid, fmt.Errorf("unknown field %q", x.Field)
		}
		if err := wantInteger(x.Index, env, "index of "+x.Field); err != nil {
			return TypeInvalid, err
		}
		return t, nil
	case *Binary:
		return binaryType(x, env)
	case *Unary:
		t, err := TypeOf(x.X, env)
		if err != nil {
			return TypeInvalid, err
		}
		if x.Op == OpNot {
			if t != TypeBool {
				return TypeInvalid, fmt.Errorf("operand of ! is %v, want bool", t)
			}
			return TypeBool, nil
		}
		if !t.IsNumeric() {
			return TypeInvalid, fmt.Errorf("operand of unary - is %v", t)
		}
		return t, nil
	case *Select:
		c, err := TypeOf(x.Cond, env)
		if err != nil {
			return TypeInvalid, err
		}
		if c != TypeBool {
			return TypeInvalid, fmt.Errorf("select condition is %v, want bool", c)
		}
		a, err := TypeOf(x.Then, env)
		if err != nil {
			return TypeInvalid, err
		}
		b, err := TypeOf(x.Else, env)
		if err != nil {
			return TypeInvalid, err
		}
		if a == b {
			return a, nil
		}
		if a.IsNumeric() && b.IsNumeric() {
			return Promote(a, b), nil
		}
		return TypeInvalid, fmt.Errorf("select branches have types %v and %v", a, b)
	case *Convert:
		t, err := TypeOf(x.X, env)
		if err != nil {
			return TypeInvalid, err
		}
		if x.To == TypeInvalid || (x.To == TypeBool && t != TypeBool) || (t == TypeBool && x.To.IsFloat()) {
			return TypeInvalid, fmt.Errorf("cannot convert %v to %v", t, x.To)
		}
		return x.To, nil
	case *EdgeDst:
		return TypeIndex, wantInteger(x.Edge, env, "edge")
	case *EdgeWeight:
		return TypeUint32, wantInteger(x.Edge, env, "edge")
	case *OutDegree:
		return TypeIndex, wantInteger(x.Node, env, "vertex")
	case *NodeData:
		return TypeUint32, wantInteger(x.Node, env, "vertex")
	case *Abs:
		t, err := TypeOf(x.X, env)
		if err != nil {
			return TypeInvalid, err
		}
		if !t.IsFloat() {
			return TypeInvalid, fmt.Errorf("abs of %v, want float32", t)
		}
		return t, nil
	case nil:
		return TypeInvalid, fmt.Errorf("missing expression")
	}
	return TypeInvalid, fmt.Errorf("unknown expression %T", e)
}

func binaryType(x *Binary, env Env) (Type, error) {
	a, err := TypeOf(x.Left, env)
	if err != nil {
		return TypeInvalid, err
	}
	b, err := TypeOf(x.Right, env)
	if err != nil {
		return TypeInvalid, err
	}
	switch {
	case x.Op.IsLogical():
		if a != TypeBool || b != TypeBool {
			return TypeInvalid, fmt.Errorf("operands of %v are %v and %v, want bool", x.Op, a, b)
		}
		return TypeBool, nil
	case x.Op == OpEq || x.Op == OpNe:
		if (a == TypeBool) != (b == TypeBool) {
			return TypeInvalid, fmt.Errorf("cannot compare %v with %v", a, b)
		}
		return TypeBool, nil
	case x.Op.IsComparison():
		if !a.IsNumeric() || !b.IsNumeric() {
			return TypeInvalid, fmt.Errorf("cannot order %v and %v", a, b)
		}
		return TypeBool, nil
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return TypeInvalid, fmt.Errorf("operands of %v are %v and %v", x.Op, a, b)
	}
	t := Promote(a, b)
	if x.Op == OpMod && t.IsFloat() {
		return TypeInvalid, fmt.Errorf("%% on float operands")
	}
	return t, nil
}

func wantInteger(e Expr, env Env, what string) error {
	t, err := TypeOf(e, env)
	if err != nil {
		return err
	}
	if !t.IsInteger() {
		return fmt.Errorf("%s is %v, want an integer", what, t)
	}
	return nil
}

// Scope is a chain of variable declarations over a program's fields.
type Scope struct {
	parent *Scope
	vars   map[string]Type
	fields map[string]Type
}

// NewScope returns the root scope of a program: its fields and scalar parameters.
func NewScope(p *VertexProgram) *Scope {
	s := &Scope{vars: map[string]Type{}, fields: map[string]Type{}}
	for _, f := range p.Fields {
		s.fields[f.Name] = f.Type
	}
	for _, prm := range p.Params {
		s.vars[prm.Name] = prm.Type
	}
	return s
}

// Child opens a nested scope.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, vars: map[string]Type{}, fields: s.fields}
}

// Declare adds a variable to this scope.
func (s *Scope) Declare(name string, t Type) {
	s.vars[name] = t
}

func (s *Scope) VarType(name string) (Type, bool) {
	for c := s; c != nil; c = c.parent {
		if t, ok := c.vars[name]; ok {
			return t, true
		}
	}
	return TypeInvalid, false
}

func (s *Scope) FieldType(name string) (Type, bool) {
	t, ok := s.fields[name]
	return t, ok
}
