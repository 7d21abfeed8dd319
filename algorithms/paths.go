package algorithms

import "github.com/ScottSallinen/lollipop-gg/ir"

const distField = "dist_current"

func initDistances() *ir.Phase {
	return &ir.Phase{
		Name: "InitializeGraph",
		Body: ir.Nodes("src",
			ir.StoreTo(distField, ir.V("src"),
				ir.Sel(ir.Eq(ir.NodeLabel(ir.V("src")), ir.V(SrcNode)), ir.U32(0), ir.V(Infinity))),
		),
	}
}

// relaxMin lowers dist_current[dst] to newDist and runs onImprove when it was strictly improved.
func relaxMin(newDist ir.Expr, onImprove ir.Stmt) ir.Stmt {
	return ir.Closure(
		ir.Edges("jj", ir.V("src"),
			ir.Let("dst", ir.TypeIndex, ir.Dst(ir.V("jj"))),
			ir.Let("new_dist", ir.TypeUint32, newDist),
			ir.Local("old_dist", ir.TypeUint32),
			ir.AtomOld("old_dist", ir.AtomicMin, distField, ir.V("dst"), ir.V("new_dist")),
			ir.When(ir.Gt(ir.V("old_dist"), ir.V("new_dist")), onImprove),
		),
	)
}

// BFS computes hop counts from local_src_node, sweeping every vertex each round.
func BFS() *ir.VertexProgram {
	return &ir.VertexProgram{
		Name:   "bfs",
		Fields: []ir.Field{{Name: distField, Type: ir.TypeUint32}},
		Params: []ir.Param{infinityParam(), srcParam()},
		Init:   []*ir.Phase{initDistances()},
		Relax: []*ir.Phase{{
			Name:      "BFS",
			Reduction: ir.ReduceAny,
			Body: ir.Nodes("src",
				relaxMin(ir.Add(ir.U32(1), ir.Ld(distField, ir.V("src"))), ir.SignalAny()),
			),
		}},
	}
}

// ssspRelax skips unreached sources, then relaxes each out-edge by its weight.
func ssspRelax(onImprove ir.Stmt) ir.Block {
	return ir.Block{
		ir.Let("sdist", ir.TypeUint32, ir.Ld(distField, ir.V("src"))),
		ir.When(ir.Eq(ir.V("sdist"), ir.V(Infinity)), ir.SkipEdges()),
		relaxMin(ir.Add(ir.Weight(ir.V("jj")), ir.V("sdist")), onImprove),
	}
}

// SSSP computes weighted shortest path distances with topological sweeps.
func SSSP() *ir.VertexProgram {
	return &ir.VertexProgram{
		Name:   "sssp",
		Fields: []ir.Field{{Name: distField, Type: ir.TypeUint32}},
		Params: []ir.Param{infinityParam(), srcParam()},
		Init:   []*ir.Phase{initDistances()},
		Relax: []*ir.Phase{{
			Name:      "SSSP",
			Reduction: ir.ReduceAny,
			Body:      ir.Nodes("src", ssspRelax(ir.SignalAny())...),
		}},
	}
}

// SSSPWorklist computes the same distances, visiting only vertices whose distance improved in
// the previous round. The first frontier is the source vertex.
func SSSPWorklist() *ir.VertexProgram {
	return &ir.VertexProgram{
		Name:     "sssp_wl",
		Schedule: ir.Worklist,
		Fields:   []ir.Field{{Name: distField, Type: ir.TypeUint32}},
		Params:   []ir.Param{infinityParam(), srcParam()},
		Init:     []*ir.Phase{initDistances()},
		Seed:     &ir.Seed{Var: "v", When: ir.Eq(ir.NodeLabel(ir.V("v")), ir.V(SrcNode))},
		Relax: []*ir.Phase{{
			Name: "SSSP",
			Body: ir.Frontier("src", ssspRelax(ir.PushVertex(ir.V("dst")))...),
		}},
	}
}
