package algorithms

import "github.com/ScottSallinen/lollipop-gg/ir"

const compField = "comp_current"

func initComponents() *ir.Phase {
	return &ir.Phase{
		Name: "InitializeGraph",
		Body: ir.Nodes("src", ir.StoreTo(compField, ir.V("src"), ir.NodeLabel(ir.V("src")))),
	}
}

// CC labels each vertex with the smallest label that reaches it, pulling from in-neighbours.
// On an undirected graph this is the connected component id.
func CC() *ir.VertexProgram {
	return &ir.VertexProgram{
		Name:      "cc",
		Direction: ir.Pull,
		Fields:    []ir.Field{{Name: compField, Type: ir.TypeUint32}},
		Init:      []*ir.Phase{initComponents()},
		Relax: []*ir.Phase{{
			Name:      "ConnectedComp",
			Reduction: ir.ReduceAny,
			Body: ir.Nodes("src",
				ir.Closure(ir.Edges("jj", ir.V("src"),
					ir.Let("dst", ir.TypeIndex, ir.Dst(ir.V("jj"))),
					ir.Let("new_comp", ir.TypeUint32, ir.Ld(compField, ir.V("dst"))),
					ir.Local("old_comp", ir.TypeUint32),
					ir.AtomOld("old_comp", ir.AtomicMin, compField, ir.V("src"), ir.V("new_comp")),
					ir.When(ir.Gt(ir.V("old_comp"), ir.V("new_comp")), ir.SignalAny()),
				)),
			),
		}},
	}
}

// CCWorklist propagates labels forward from every vertex, revisiting only vertices whose label dropped.
func CCWorklist() *ir.VertexProgram {
	return &ir.VertexProgram{
		Name:     "cc_wl",
		Schedule: ir.Worklist,
		Fields:   []ir.Field{{Name: compField, Type: ir.TypeUint32}},
		Init:     []*ir.Phase{initComponents()},
		Relax: []*ir.Phase{{
			Name: "ConnectedComp",
			Body: ir.Frontier("src",
				ir.Let("new_comp", ir.TypeUint32, ir.Ld(compField, ir.V("src"))),
				ir.Closure(ir.Edges("jj", ir.V("src"),
					ir.Let("dst", ir.TypeIndex, ir.Dst(ir.V("jj"))),
					ir.Local("old_comp", ir.TypeUint32),
					ir.AtomOld("old_comp", ir.AtomicMin, compField, ir.V("dst"), ir.V("new_comp")),
					ir.When(ir.Gt(ir.V("old_comp"), ir.V("new_comp")), ir.PushVertex(ir.V("dst"))),
				)),
			),
		}},
	}
}
