package ir

// Stmt is a statement node. The set of variants is closed.
type Stmt interface {
	stmtKind()
}

// Block is an ordered statement sequence.
type Block []Stmt

// Decl declares a thread-local. Init may be nil.
type Decl struct {
	Name string
	Type Type
	Init Expr
}

// Assign writes a thread-local.
type Assign struct {
	Name  string
	Value Expr
}

// Store is a plain write of Field[Index]. Only the owner of Index may store.
type Store struct {
	Field string
	Index Expr
	Value Expr
}

// Atomic applies Op to Field[Index] with Value. When Result is set, the previous
// value is written to that (already declared) thread-local.
type Atomic struct {
	Op     AtomicOp
	Field  string
	Index  Expr
	Value  Expr
	Result string
}

type If struct {
	Cond Expr
	Then Block
	Else Block
}

// ForNodes binds Var to each vertex of [__begin, __end), one per logical worker.
//
// After lowering, Guard names the divergence predicate declared at the top of Body
// and RoundUp extends the loop bound to a block multiple so that whole warps iterate together.
type ForNodes struct {
	Var     string
	Body    Block
	Guard   string
	RoundUp bool
}

// ForEdges binds Var to each out-edge of Source.
type ForEdges struct {
	Var    string
	Source Expr
	Body   Block
}

// ForWorklist binds Item to each vertex of the incoming frontier.
//
// After lowering, Var names the frontier slot index and Guard the pop result.
type ForWorklist struct {
	Item    string
	Body    Block
	Var     string
	Guard   string
	RoundUp bool
}

// ClosureHint brackets a block that may run cooperatively across a warp. It has no semantic effect.
type ClosureHint struct {
	Body Block
}

// Skip excludes the current worker from the nested parallel part of its sweep.
type Skip struct{}

// Signal contributes to the phase's reduction slot. Value is nil for any-mode.
type Signal struct {
	Value Expr
}

// PushItem admits Vertex into the next frontier.
type PushItem struct {
	Vertex Expr
}

// UniformGuard ends the current sweep iteration when Pop is false. Produced by lowering.
type UniformGuard struct {
	Pop string
}

// PopItem takes frontier slot Index, storing the vertex in Item and success in Ok. Produced by lowering.
type PopItem struct {
	Index string
	Item  string
	Ok    string
}

func (*Decl) stmtKind()         {}
func (*Assign) stmtKind()       {}
func (*Store) stmtKind()        {}
func (*Atomic) stmtKind()       {}
func (*If) stmtKind()           {}
func (*ForNodes) stmtKind()     {}
func (*ForEdges) stmtKind()     {}
func (*ForWorklist) stmtKind()  {}
func (*ClosureHint) stmtKind()  {}
func (*Skip) stmtKind()         {}
func (*Signal) stmtKind()       {}
func (*PushItem) stmtKind()     {}
func (*UniformGuard) stmtKind() {}
func (*PopItem) stmtKind()      {}
