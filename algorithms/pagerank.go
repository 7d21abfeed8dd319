package algorithms

import "github.com/ScottSallinen/lollipop-gg/ir"

const (
	valueField    = "value"
	noutField     = "nout"
	sumField      = "sum"
	residualField = "residual"
)

func oneMinusAlpha() ir.Expr { return ir.Sub(ir.U32(1), ir.V(Alpha)) }

// PageRankPull recomputes every rank from its in-neighbours each round:
// pr = alpha + (1 - alpha) * sum(value[u] / nout[u]). A round signals when some rank moved by
// more than the tolerance.
func PageRankPull() *ir.VertexProgram {
	return &ir.VertexProgram{
		Name:      "pagerank",
		Direction: ir.Pull,
		Fields: []ir.Field{
			{Name: noutField, Type: ir.TypeInt32},
			{Name: sumField, Type: ir.TypeFloat32},
			{Name: valueField, Type: ir.TypeFloat32},
		},
		Params: []ir.Param{alphaParam(), toleranceParam()},
		Reset: &ir.Phase{
			Name: "ResetGraph",
			Body: ir.Nodes("src",
				ir.StoreTo(valueField, ir.V("src"), ir.U32(0)),
				ir.StoreTo(noutField, ir.V("src"), ir.U32(0)),
				ir.StoreTo(sumField, ir.V("src"), ir.U32(0)),
			),
		},
		Init: []*ir.Phase{{
			Name: "InitializeGraph",
			Body: ir.Nodes("src",
				ir.StoreTo(valueField, ir.V("src"), ir.V(Alpha)),
				// Edges are reversed, so each in-neighbour counts one of its out-edges.
				ir.Closure(ir.Edges("nbr", ir.V("src"),
					ir.Let("dst", ir.TypeIndex, ir.Dst(ir.V("nbr"))),
					ir.Atom(ir.AtomicAdd, noutField, ir.V("dst"), ir.U32(1)),
				)),
			),
		}},
		Relax: []*ir.Phase{
			{
				Name: "PageRank_partial",
				Body: ir.Nodes("src",
					ir.Closure(ir.Edges("nbr", ir.V("src"),
						ir.Let("dst", ir.TypeIndex, ir.Dst(ir.V("nbr"))),
						ir.Let("dnout", ir.TypeInt32, ir.Ld(noutField, ir.V("dst"))),
						ir.When(ir.Gt(ir.V("dnout"), ir.U32(0)),
							ir.Atom(ir.AtomicAdd, sumField, ir.V("src"), ir.Div(ir.Ld(valueField, ir.V("dst")), ir.V("dnout"))),
						),
					)),
				),
			},
			{
				Name:      "PageRank",
				Reduction: ir.ReduceAny,
				Locals: []*ir.Decl{
					ir.Local("pr_value", ir.TypeFloat32),
					ir.Local("diff", ir.TypeFloat32),
				},
				Body: ir.Nodes("src",
					ir.Set("pr_value", ir.Add(ir.Mul(ir.Ld(sumField, ir.V("src")), oneMinusAlpha()), ir.V(Alpha))),
					ir.Set("diff", ir.AbsOf(ir.Sub(ir.V("pr_value"), ir.Ld(valueField, ir.V("src"))))),
					ir.StoreTo(sumField, ir.V("src"), ir.U32(0)),
					ir.When(ir.Gt(ir.V("diff"), ir.V(Tolerance)),
						ir.StoreTo(valueField, ir.V("src"), ir.V("pr_value")),
						ir.SignalAny(),
					),
				),
			},
		},
	}
}

func pushFields() []ir.Field {
	return []ir.Field{
		{Name: noutField, Type: ir.TypeUint32},
		{Name: residualField, Type: ir.TypeFloat32},
		{Name: valueField, Type: ir.TypeFloat32},
	}
}

func pushReset() *ir.Phase {
	return &ir.Phase{
		Name: "ResetGraph",
		Body: ir.Nodes("src",
			ir.StoreTo(valueField, ir.V("src"), ir.U32(0)),
			ir.StoreTo(noutField, ir.V("src"), ir.U32(0)),
			ir.StoreTo(residualField, ir.V("src"), ir.U32(0)),
		),
	}
}

// pushInit starts every rank at alpha and pushes its first delta into the neighbours' residuals.
func pushInit() *ir.Phase {
	return &ir.Phase{
		Name:   "InitializeGraph",
		Locals: []*ir.Decl{ir.Local("delta", ir.TypeFloat32)},
		Body: ir.Nodes("src",
			ir.StoreTo(valueField, ir.V("src"), ir.V(Alpha)),
			ir.StoreTo(noutField, ir.V("src"), ir.OutDeg(ir.V("src"))),
			ir.WhenElse(ir.Gt(ir.Ld(noutField, ir.V("src")), ir.U32(0)),
				ir.Block{ir.Set("delta", ir.Div(ir.Mul(ir.Ld(valueField, ir.V("src")), oneMinusAlpha()), ir.Ld(noutField, ir.V("src"))))},
				ir.Block{ir.SkipEdges()},
			),
			ir.Closure(ir.Edges("nbr", ir.V("src"),
				ir.Let("dst", ir.TypeIndex, ir.Dst(ir.V("nbr"))),
				ir.Atom(ir.AtomicAdd, residualField, ir.V("dst"), ir.V("delta")),
			)),
		),
	}
}

// pushRelax drains the owner's residual into its rank and spreads it over the out-edges. onCross
// runs when a neighbour's residual rises above the tolerance from at or below it.
func pushRelax(onCross ir.Stmt) ir.Block {
	return ir.Block{
		ir.AtomOld("residual_old", ir.AtomicExch, residualField, ir.V("src"), ir.U32(0)),
		ir.Atom(ir.AtomicAdd, valueField, ir.V("src"), ir.V("residual_old")),
		ir.WhenElse(ir.Gt(ir.Ld(noutField, ir.V("src")), ir.U32(0)),
			ir.Block{ir.Set("delta", ir.Div(ir.Mul(ir.V("residual_old"), oneMinusAlpha()), ir.Ld(noutField, ir.V("src"))))},
			ir.Block{ir.SkipEdges()},
		),
		ir.Closure(ir.Edges("nbr", ir.V("src"),
			ir.Let("dst", ir.TypeIndex, ir.Dst(ir.V("nbr"))),
			ir.Local("dst_residual_old", ir.TypeFloat32),
			ir.AtomOld("dst_residual_old", ir.AtomicAdd, residualField, ir.V("dst"), ir.V("delta")),
			ir.When(ir.And(
				ir.Le(ir.V("dst_residual_old"), ir.V(Tolerance)),
				ir.Gt(ir.Add(ir.V("dst_residual_old"), ir.V("delta")), ir.V(Tolerance)),
			), onCross),
		)),
	}
}

func pushLocals() []*ir.Decl {
	return []*ir.Decl{
		ir.Local("residual_old", ir.TypeFloat32),
		ir.Local("delta", ir.TypeFloat32),
	}
}

// PageRankPush is the residual formulation. Each round counts the residuals that crossed the
// tolerance; a round with none ends the run.
func PageRankPush() *ir.VertexProgram {
	return &ir.VertexProgram{
		Name:   "pagerank_push",
		Fields: pushFields(),
		Params: []ir.Param{alphaParam(), toleranceParam()},
		Reset:  pushReset(),
		Init:   []*ir.Phase{pushInit()},
		Relax: []*ir.Phase{{
			Name:      "PageRank",
			Reduction: ir.ReduceSum,
			Locals:    pushLocals(),
			Body:      ir.Nodes("src", pushRelax(ir.SignalSum(ir.U32(1)))...),
		}},
	}
}

// PageRankWorklist is the residual formulation that only revisits vertices whose residual crossed
// the tolerance. Every vertex starts on the frontier.
func PageRankWorklist() *ir.VertexProgram {
	return &ir.VertexProgram{
		Name:     "pagerank_wl",
		Schedule: ir.Worklist,
		Fields:   pushFields(),
		Params:   []ir.Param{alphaParam(), toleranceParam()},
		Reset:    pushReset(),
		Init:     []*ir.Phase{pushInit()},
		Relax: []*ir.Phase{{
			Name:   "PageRank",
			Locals: pushLocals(),
			Body:   ir.Frontier("src", pushRelax(ir.PushVertex(ir.V("dst")))...),
		}},
	}
}
