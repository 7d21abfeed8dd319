package framework

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ScottSallinen/lollipop-gg/device"
	"github.com/ScottSallinen/lollipop-gg/graph"
	"github.com/ScottSallinen/lollipop-gg/ir"
)

// hops computes hop counts from local_src_node with a topological push sweep.
func hops() *ir.VertexProgram {
	return &ir.VertexProgram{
		Name:   "hops",
		Fields: []ir.Field{{Name: "dist", Type: ir.TypeUint32}},
		Params: []ir.Param{
			{Name: "local_infinity", Type: ir.TypeUint32, Const: true, Default: ir.U32(ir.Infinity)},
			{Name: "local_src_node", Type: ir.TypeUint32},
		},
		Init: []*ir.Phase{{
			Name: "Init",
			Body: ir.Nodes("src", ir.StoreTo("dist", ir.V("src"),
				ir.Sel(ir.Eq(ir.NodeLabel(ir.V("src")), ir.V("local_src_node")), ir.U32(0), ir.V("local_infinity")))),
		}},
		Relax: []*ir.Phase{{
			Name:      "Relax",
			Reduction: ir.ReduceAny,
			Body: ir.Nodes("src",
				ir.Let("d", ir.TypeUint32, ir.Ld("dist", ir.V("src"))),
				ir.When(ir.Eq(ir.V("d"), ir.V("local_infinity")), ir.SkipEdges()),
				ir.Edges("e", ir.V("src"),
					ir.Local("old", ir.TypeUint32),
					ir.AtomOld("old", ir.AtomicMin, "dist", ir.Dst(ir.V("e")), ir.Add(ir.V("d"), ir.U32(1))),
					ir.When(ir.Gt(ir.V("old"), ir.Add(ir.V("d"), ir.U32(1))), ir.SignalAny()),
				),
			),
		}},
	}
}

func chain(t *testing.T, n uint32) *graph.Graph {
	t.Helper()
	var edges []graph.Edge
	for i := uint32(0); i+1 < n; i++ {
		edges = append(edges, graph.Edge{Src: i, Dst: i + 1, Weight: 1})
	}
	g, err := graph.FromEdges(n, edges, graph.DefaultOptions())
	require.NoError(t, err)
	return g
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Device.Sizer = device.KernelSizing{SMs: 2, BlocksPerSM: 2, ThreadsPerBlock: 8}
	return opts
}

func TestRunConverges(t *testing.T) {
	for _, parts := range []int{1, 3, 50} {
		opts := testOptions()
		opts.Partitions = parts
		f, err := Build(hops(), chain(t, 10), opts)
		require.NoError(t, err)

		res, err := f.Run(context.Background(), Params{"local_src_node": ir.U32(0)})
		require.NoError(t, err)
		assert.True(t, res.Converged)
		assert.LessOrEqual(t, res.Iterations, 10)

		dist, err := f.Uint32Field("dist")
		require.NoError(t, err)
		assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, dist, "partitions %d", parts)
	}
}

func TestRunStopsAtCap(t *testing.T) {
	p := hops()
	p.Relax[0].Body = ir.Nodes("src", ir.SignalAny())
	opts := testOptions()
	opts.MaxIterations = 5
	f, err := Build(p, chain(t, 3), opts)
	require.NoError(t, err)

	res, err := f.Run(context.Background(), Params{"local_src_node": ir.U32(0)})
	require.NoError(t, err, "hitting the cap is not an error")
	assert.False(t, res.Converged)
	assert.Equal(t, 5, res.Iterations)
}

func TestStepByStep(t *testing.T) {
	f, err := Build(hops(), chain(t, 4), testOptions())
	require.NoError(t, err)
	ctx := context.Background()
	params, err := f.Params(Params{"local_src_node": ir.U32(0)})
	require.NoError(t, err)

	require.NoError(t, f.Initialize(ctx, params))
	init, err := f.Phase("Init")
	require.NoError(t, err)
	assert.Equal(t, ir.RoleInit, init.Info.Role)

	r, err := f.Step(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Index)
	assert.Equal(t, 1, r.Result)

	// A single phase over a subrange only touches that range.
	relax, err := f.Phase("Relax")
	require.NoError(t, err)
	_, err = relax.Run(ctx, 3, 4, params)
	require.NoError(t, err)
	_, err = relax.Run(ctx, 3, 5, params)
	assert.ErrorIs(t, err, device.ErrRange)

	_, err = f.Phase("Nope")
	assert.ErrorIs(t, err, ErrUnknownPhase)
}

func TestParams(t *testing.T) {
	p := hops()
	got, err := ResolveParams(p, Params{"local_src_node": ir.U32(3)})
	require.NoError(t, err)
	assert.Equal(t, ir.U32(ir.Infinity), got["local_infinity"])
	assert.Equal(t, ir.U32(3), got["local_src_node"])

	_, err = ResolveParams(p, Params{})
	assert.ErrorIs(t, err, ErrMissingParam)
	_, err = ResolveParams(p, Params{"local_src_node": ir.U32(3), "other": ir.U32(1)})
	assert.ErrorIs(t, err, ErrUnknownParam)
	_, err = ResolveParams(p, Params{"local_src_node": ir.Bool(true)})
	assert.Error(t, err)
}

func TestFaultAbortsRun(t *testing.T) {
	p := hops()
	p.Relax[0].Body = ir.Nodes("src",
		ir.Atom(ir.AtomicMin, "dist", ir.Add(ir.V("src"), ir.U32(100)), ir.U32(0)),
		ir.SignalAny())
	f, err := Build(p, chain(t, 3), testOptions())
	require.NoError(t, err)
	res, err := f.Run(context.Background(), Params{"local_src_node": ir.U32(0)})
	assert.ErrorIs(t, err, device.ErrExecutionFault)
	assert.Equal(t, 1, res.Iterations)
}

func TestPullRunsOnTransposedGraph(t *testing.T) {
	p := &ir.VertexProgram{
		Name:      "indeg",
		Direction: ir.Pull,
		Fields:    []ir.Field{{Name: "count", Type: ir.TypeUint32}},
		Init: []*ir.Phase{{
			Name: "Count",
			Body: ir.Nodes("src", ir.StoreTo("count", ir.V("src"), ir.OutDeg(ir.V("src")))),
		}},
		// Never signals, so the first relax round converges.
		Relax: []*ir.Phase{{Name: "Done", Reduction: ir.ReduceAny, Body: ir.Nodes("src", ir.When(ir.Bool(false), ir.SignalAny()))}},
	}
	g, err := graph.FromEdges(3, []graph.Edge{{Src: 0, Dst: 2}, {Src: 1, Dst: 2}}, graph.DefaultOptions())
	require.NoError(t, err)

	f, err := Build(p, g, testOptions())
	require.NoError(t, err)
	assert.True(t, f.Graph.Transposed())
	res, err := f.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	count, err := f.Uint32Field("count")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 0, 2}, count, "out-degree of the transposed graph is the in-degree")
}

func TestPartition(t *testing.T) {
	assert.Equal(t, [][2]uint32{{0, 10}}, Partition(10, 1))
	assert.Equal(t, [][2]uint32{{0, 4}, {4, 8}, {8, 10}}, Partition(10, 3))
	assert.Equal(t, [][2]uint32{{0, 1}, {1, 2}}, Partition(2, 5))
	assert.Equal(t, [][2]uint32{{0, 0}}, Partition(0, 4))
}

func TestCompare(t *testing.T) {
	require.NoError(t, CompareFloats("rank", []float32{1, 2}, []float32{1, 2.0001}, 1e-3))
	assert.ErrorIs(t, CompareFloats("rank", []float32{1, 2}, []float32{1, 2.1}, 1e-3), ErrMismatch)
	assert.ErrorIs(t, CompareFloats("rank", []float32{1}, []float32{1, 2}, 1e-3), ErrMismatch)
	require.NoError(t, CompareExact("dist", []uint32{1, 2}, []uint32{1, 2}))
	err := CompareExact("dist", []uint32{1, 5, 7}, []uint32{1, 2, 7})
	require.ErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), "first 1")
}
