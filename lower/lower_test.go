package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ScottSallinen/lollipop-gg/ir"
)

func ssspProgram(schedule ir.Schedule) *ir.VertexProgram {
	p := &ir.VertexProgram{
		Name:     "sssp",
		Schedule: schedule,
		Fields:   []ir.Field{{Name: "dist_current", Type: ir.TypeUint32}},
		Params: []ir.Param{
			{Name: "local_infinity", Type: ir.TypeUint32, Const: true},
			{Name: "local_src_node", Type: ir.TypeUint32},
		},
		Init: []*ir.Phase{{
			Name: "InitializeGraph",
			Body: ir.Nodes("src", ir.StoreTo("dist_current", ir.V("src"),
				ir.Sel(ir.Eq(ir.NodeLabel(ir.V("src")), ir.V("local_src_node")), ir.U32(0), ir.V("local_infinity")))),
		}},
	}
	relax := ir.Block{
		ir.Let("sdist", ir.TypeUint32, ir.Ld("dist_current", ir.V("src"))),
		ir.When(ir.Eq(ir.V("sdist"), ir.V("local_infinity")), ir.SkipEdges()),
		ir.Closure(ir.Edges("jj", ir.V("src"),
			ir.Let("dst", ir.TypeIndex, ir.Dst(ir.V("jj"))),
			ir.Let("new_dist", ir.TypeUint32, ir.Add(ir.Weight(ir.V("jj")), ir.V("sdist"))),
			ir.Local("old_dist", ir.TypeUint32),
			ir.AtomOld("old_dist", ir.AtomicMin, "dist_current", ir.V("dst"), ir.V("new_dist")),
		)),
	}
	edges := relax[2].(*ir.ClosureHint).Body[0].(*ir.ForEdges)
	if schedule == ir.Worklist {
		p.Seed = &ir.Seed{Var: "v", When: ir.Eq(ir.NodeLabel(ir.V("v")), ir.V("local_src_node"))}
		edges.Body = append(edges.Body, ir.When(ir.Gt(ir.V("old_dist"), ir.V("new_dist")), ir.PushVertex(ir.V("dst"))))
		p.Relax = []*ir.Phase{{Name: "SSSP", Body: ir.Frontier("src", relax...)}}
	} else {
		edges.Body = append(edges.Body, ir.When(ir.Gt(ir.V("old_dist"), ir.V("new_dist")), ir.SignalAny()))
		p.Relax = []*ir.Phase{{Name: "SSSP", Reduction: ir.ReduceAny, Body: ir.Nodes("src", relax...)}}
	}
	return p
}

func paramNames(k *ir.Kernel) []string {
	var out []string
	for _, p := range k.Params {
		out = append(out, p.Name)
	}
	return out
}

func hostParamNames(h *ir.HostWrapper) []string {
	var out []string
	for _, p := range h.Params {
		out = append(out, p.Name)
	}
	return out
}

func TestLowerTopologicalArgumentOrder(t *testing.T) {
	m, err := Lower(ssspProgram(ir.Topological), Options{})
	require.NoError(t, err)

	require.Len(t, m.Kernels, 2)
	init := m.Kernel("InitializeGraph")
	require.NotNil(t, init)
	assert.Equal(t, []string{"graph", "__nowned", "__begin", "__end", "local_infinity", "local_src_node", "p_dist_current"}, paramNames(init))

	relax := m.Kernel("SSSP")
	require.NotNil(t, relax)
	assert.Equal(t, []string{"graph", "__nowned", "__begin", "__end", "local_infinity", "p_dist_current", "any_retval"}, paramNames(relax))

	h := m.Host("SSSP_cuda")
	require.NotNil(t, h)
	assert.Equal(t, []string{"__begin", "__end", "__retval", "local_infinity", "ctx"}, hostParamNames(h))
	require.Len(t, h.Steps, 6)
	assert.Equal(t, ir.SizeGrid{}, h.Steps[0])
	assert.Equal(t, ir.StageReduction{}, h.Steps[1])
	assert.Equal(t, ir.BindReduction{Kind: ir.ReduceAny}, h.Steps[2])
	inv := h.Steps[3].(ir.Invoke)
	assert.Equal(t, "SSSP", inv.Kernel)
	assert.Len(t, inv.Args, len(relax.Params))
	assert.Equal(t, ir.ArgReduction, inv.Args[len(inv.Args)-1].Kind)
	assert.Equal(t, ir.CheckKernel{}, h.Steps[4])
	assert.Equal(t, ir.ReadReduction{}, h.Steps[5])

	all := m.Host("SSSP_all_cuda")
	require.NotNil(t, all)
	assert.Equal(t, []string{"__retval", "local_infinity", "ctx"}, hostParamNames(all))
	fwd := all.Steps[0].(ir.Forward)
	assert.Equal(t, "SSSP_cuda", fwd.Wrapper)
	assert.Equal(t, ir.ArgZero, fwd.Args[0].Kind)
	assert.Equal(t, ir.ArgOwned, fwd.Args[1].Kind)

	info, ok := m.Phase("SSSP")
	require.True(t, ok)
	assert.Equal(t, ir.PhaseInfo{Name: "SSSP", Role: ir.RoleRelax, Kernel: "SSSP", Wrapper: "SSSP_cuda", AllWrapper: "SSSP_all_cuda", Reduction: ir.ReduceAny}, info)
	assert.Len(t, m.PhasesWithRole(ir.RoleInit), 1)
}

func TestLowerDivergenceGuard(t *testing.T) {
	m, err := Lower(ssspProgram(ir.Topological), Options{})
	require.NoError(t, err)
	sweep := m.Kernel("SSSP").Body.(*ir.ForNodes)
	assert.Equal(t, "pop", sweep.Guard)
	assert.False(t, sweep.RoundUp)

	body := sweep.Body
	require.Len(t, body, 5)
	assert.Equal(t, ir.Let("pop", ir.TypeBool, ir.Lt(ir.V("src"), ir.V("__end"))), body[0])
	assert.Equal(t, ir.Local("sdist", ir.TypeUint32), body[1], "prefix declarations are hoisted above the guard")
	guard := body[2].(*ir.If)
	assert.Equal(t, ir.V("pop"), guard.Cond)
	require.Len(t, guard.Then, 2)
	assert.Equal(t, ir.Set("sdist", ir.Ld("dist_current", ir.V("src"))), guard.Then[0])
	skip := guard.Then[1].(*ir.If)
	assert.Equal(t, ir.Block{ir.Set("pop", ir.Bool(false))}, skip.Then)
	assert.Equal(t, &ir.UniformGuard{Pop: "pop"}, body[3])
	assert.IsType(t, &ir.ClosureHint{}, body[4])

	coop, err := Lower(ssspProgram(ir.Topological), Options{Cooperative: true})
	require.NoError(t, err)
	assert.True(t, coop.Kernel("SSSP").Body.(*ir.ForNodes).RoundUp)
	assert.False(t, coop.Kernel("InitializeGraph").Body.(*ir.ForNodes).RoundUp, "sweeps without a hinted edge loop keep their bound")

	init := m.Kernel("InitializeGraph").Body.(*ir.ForNodes).Body
	require.Len(t, init, 2)
	assert.IsType(t, &ir.If{}, init[1])
}

func TestLowerWorklist(t *testing.T) {
	m, err := Lower(ssspProgram(ir.Worklist), Options{})
	require.NoError(t, err)

	var names []string
	for _, k := range m.Kernels {
		names = append(names, k.Name)
	}
	assert.Equal(t, []string{"InitializeGraph", SeedKernel, "SSSP"}, names)

	seed := m.Kernel(SeedKernel)
	assert.Equal(t, ir.RoleSeed, seed.Role)
	assert.Equal(t, []string{"graph", "__nowned", "__begin", "__end", "local_src_node", "out_wl"}, paramNames(seed))

	relax := m.Kernel("SSSP")
	assert.Equal(t, []string{"graph", "__nowned", "local_infinity", "p_dist_current", "in_wl", "out_wl"}, paramNames(relax))
	sweep := relax.Body.(*ir.ForWorklist)
	assert.Equal(t, "wlvertex", sweep.Var)
	assert.Equal(t, &ir.PopItem{Index: "wlvertex", Item: "src", Ok: "pop"}, sweep.Body[2])

	h := m.Host("SSSP_cuda")
	assert.Equal(t, []string{"local_infinity", "ctx"}, hostParamNames(h))
	assert.Equal(t, []ir.HostStep{ir.SizeGrid{}, ir.StageWorklist{}, ir.ResetWorklist{}}, h.Steps[:3])
	assert.Equal(t, ir.PublishWorklist{}, h.Steps[len(h.Steps)-1])
	assert.Nil(t, m.Host("SSSP_all_cuda"))

	info, _ := m.Phase("SSSP")
	assert.True(t, info.Worklist)
	assert.True(t, info.Pushes)
	assert.Empty(t, info.AllWrapper)
	seedInfo, _ := m.Phase(SeedKernel)
	assert.True(t, seedInfo.Pushes)
	assert.False(t, seedInfo.Worklist)
}

func TestLowerRejectsInvalid(t *testing.T) {
	p := ssspProgram(ir.Topological)
	p.Relax[0].Body.(*ir.ForNodes).Body = ir.Block{ir.StoreTo("dist_current", ir.U32(0), ir.U32(1)), ir.SignalAny()}
	_, err := Lower(p, Options{})
	var ve *ir.ValidationError
	assert.ErrorAs(t, err, &ve)
}
