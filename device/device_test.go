package device_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ScottSallinen/lollipop-gg/device"
	"github.com/ScottSallinen/lollipop-gg/graph"
	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/lower"
)

// 0 -> 1, 0 -> 2, 1 -> 2, 2 -> 3, weights 1 2 3 4.
func smallGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.FromEdges(4, []graph.Edge{{Src: 0, Dst: 1, Weight: 1}, {Src: 0, Dst: 2, Weight: 2}, {Src: 1, Dst: 2, Weight: 3}, {Src: 2, Dst: 3, Weight: 4}}, graph.DefaultOptions())
	require.NoError(t, err)
	return g
}

func newContext(t *testing.T, p *ir.VertexProgram, g device.Accessor, lopts lower.Options, dopts device.Options) *device.Context {
	t.Helper()
	m, err := lower.Lower(p, lopts)
	require.NoError(t, err)
	c, err := device.NewContext(m, g, dopts)
	require.NoError(t, err)
	return c
}

// degreeProgram stores each out-degree and sums them in its relax phase.
func degreeProgram() *ir.VertexProgram {
	return &ir.VertexProgram{
		Name:   "degree",
		Fields: []ir.Field{{Name: "deg", Type: ir.TypeUint32}},
		Init: []*ir.Phase{{
			Name: "Store",
			Body: ir.Nodes("src", ir.StoreTo("deg", ir.V("src"), ir.OutDeg(ir.V("src")))),
		}},
		Relax: []*ir.Phase{{
			Name:      "Count",
			Reduction: ir.ReduceSum,
			Body:      ir.Nodes("src", ir.SignalSum(ir.Ld("deg", ir.V("src")))),
		}},
	}
}

func randomSizing() device.KernelSizing {
	return device.KernelSizing{
		SMs:             uint32(1 + rand.Intn(4)),
		BlocksPerSM:     uint32(1 + rand.Intn(3)),
		ThreadsPerBlock: uint32(1 + rand.Intn(64)),
	}
}

func TestSumReduction(t *testing.T) {
	g := smallGraph(t)
	for _, coop := range []bool{false, true} {
		c := newContext(t, degreeProgram(), g, lower.Options{Cooperative: coop}, device.Options{Sizer: randomSizing()})
		ctx := context.Background()

		_, err := c.Call(ctx, "Store_all_cuda", device.HostArgs{})
		require.NoError(t, err)
		deg, err := c.Field("deg")
		require.NoError(t, err)
		assert.Equal(t, []uint32{2, 1, 1, 0}, deg.Uint32s())

		total, err := c.Call(ctx, "Count_all_cuda", device.HostArgs{})
		require.NoError(t, err)
		assert.Equal(t, 4, total)

		// The slot starts at the caller's value.
		total, err = c.Call(ctx, "Count_cuda", device.HostArgs{Begin: 1, End: 3, Retval: 10})
		require.NoError(t, err)
		assert.Equal(t, 12, total)
	}
}

func TestGeometryDoesNotChangeResults(t *testing.T) {
	edges := make([]graph.Edge, 0, 400)
	for i := 0; i < 400; i++ {
		edges = append(edges, graph.Edge{Src: uint32(rand.Intn(97)), Dst: uint32(rand.Intn(97)), Weight: 1})
	}
	g, err := graph.FromEdges(97, edges, graph.DefaultOptions())
	require.NoError(t, err)

	for _, sizing := range []device.KernelSizing{{1, 1, 1}, {1, 1, 32}, {2, 4, 7}, randomSizing()} {
		c := newContext(t, degreeProgram(), g, lower.Options{Cooperative: true}, device.Options{Sizer: sizing, Parallelism: 2})
		_, err := c.Call(context.Background(), "Store_all_cuda", device.HostArgs{})
		require.NoError(t, err)
		total, err := c.Call(context.Background(), "Count_all_cuda", device.HostArgs{})
		require.NoError(t, err)
		assert.Equal(t, 400, total, "sizing %+v", sizing)
	}
}

func TestCallChecksArguments(t *testing.T) {
	c := newContext(t, degreeProgram(), smallGraph(t), lower.Options{}, device.Options{})
	ctx := context.Background()

	_, err := c.Call(ctx, "Count_cuda", device.HostArgs{Begin: 3, End: 2})
	assert.ErrorIs(t, err, device.ErrRange)
	_, err = c.Call(ctx, "Count_cuda", device.HostArgs{Begin: 0, End: 5})
	assert.ErrorIs(t, err, device.ErrRange)
	_, err = c.Call(ctx, "Nope_cuda", device.HostArgs{})
	assert.ErrorIs(t, err, device.ErrUnknown)
	_, err = c.Field("nope")
	assert.ErrorIs(t, err, device.ErrUnknown)

	p := degreeProgram()
	p.Params = []ir.Param{{Name: "scale", Type: ir.TypeUint32}}
	p.Relax[0].Body = ir.Nodes("src", ir.SignalSum(ir.Mul(ir.Ld("deg", ir.V("src")), ir.V("scale"))))
	c = newContext(t, p, smallGraph(t), lower.Options{}, device.Options{})
	_, err = c.Call(ctx, "Count_all_cuda", device.HostArgs{})
	assert.ErrorIs(t, err, device.ErrMissingParam)

	_, err = c.Call(ctx, "Store_all_cuda", device.HostArgs{})
	require.NoError(t, err)
	total, err := c.Call(ctx, "Count_all_cuda", device.HostArgs{Params: map[string]*ir.Const{"scale": ir.U32(3)}})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
}

// A graph whose weights cannot be read.
type brokenWeights struct{ *graph.Graph }

func (brokenWeights) Weight(uint32) uint32 { panic("weight unavailable") }

func TestExecutionFaults(t *testing.T) {
	ctx := context.Background()
	relax := func(body ...ir.Stmt) *ir.VertexProgram {
		return &ir.VertexProgram{
			Name:   "faulty",
			Fields: []ir.Field{{Name: "f", Type: ir.TypeUint32}},
			Relax: []*ir.Phase{{
				Name:      "Relax",
				Reduction: ir.ReduceAny,
				Body:      ir.Nodes("src", append(body, ir.SignalAny())...),
			}},
		}
	}
	cases := []struct {
		name string
		prog *ir.VertexProgram
		g    device.Accessor
	}{
		{"out of range state", relax(ir.Atom(ir.AtomicAdd, "f", ir.Add(ir.V("src"), ir.U32(1000)), ir.U32(1))), smallGraph(t)},
		{"division by zero", relax(ir.StoreTo("f", ir.V("src"), ir.Div(ir.U32(1), ir.NodeLabel(ir.V("src"))))), smallGraph(t)},
		{"accessor panic", relax(ir.Edges("e", ir.V("src"), ir.Atom(ir.AtomicMin, "f", ir.Dst(ir.V("e")), ir.Weight(ir.V("e"))))), brokenWeights{smallGraph(t)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newContext(t, tc.prog, tc.g, lower.Options{}, device.Options{Sizer: randomSizing()})
			_, err := c.Call(ctx, "Relax_all_cuda", device.HostArgs{})
			require.Error(t, err)
			assert.ErrorIs(t, err, device.ErrExecutionFault)
			var f *device.Fault
			require.True(t, errors.As(err, &f))
			assert.Equal(t, "Relax", f.Kernel)
		})
	}
}

// spreadProgram pushes every out-neighbour of the frontier, copies times each.
func spreadProgram(copies int) *ir.VertexProgram {
	var pushes []ir.Stmt
	for i := 0; i < copies; i++ {
		pushes = append(pushes, ir.PushVertex(ir.Dst(ir.V("e"))))
	}
	return &ir.VertexProgram{
		Name:     "spread",
		Schedule: ir.Worklist,
		Relax: []*ir.Phase{{
			Name: "Spread",
			Body: ir.Frontier("v", ir.Edges("e", ir.V("v"), pushes...)),
		}},
	}
}

func TestWorklistRounds(t *testing.T) {
	ctx := context.Background()
	g := smallGraph(t)

	once := newContext(t, spreadProgram(1), g, lower.Options{}, device.Options{Sizer: randomSizing()})
	all := newContext(t, spreadProgram(1), g, lower.Options{}, device.Options{Sizer: randomSizing(), Admission: device.AdmitAll})
	for _, c := range []*device.Context{once, all} {
		_, err := c.Call(ctx, lower.SeedKernel+"_all_cuda", device.HostArgs{})
		require.NoError(t, err)
		assert.Equal(t, 4, c.NumOutItems())
		c.SwapWorklists()
		assert.ElementsMatch(t, []uint32{0, 1, 2, 3}, c.Frontier())

		_, err = c.Call(ctx, "Spread_cuda", device.HostArgs{})
		require.NoError(t, err)
		c.SwapWorklists()
	}
	assert.ElementsMatch(t, []uint32{1, 2, 3}, once.Frontier())
	assert.ElementsMatch(t, []uint32{1, 2, 2, 3}, all.Frontier())

	require.NoError(t, once.SetFrontier([]uint32{3}))
	_, err := once.Call(ctx, "Spread_cuda", device.HostArgs{})
	require.NoError(t, err)
	assert.Equal(t, 0, once.NumOutItems(), "sinks push nothing")
}

func TestWorklistOverflowFaults(t *testing.T) {
	ctx := context.Background()
	// Capacity is owned + edges = 8; three copies of every edge push 12.
	c := newContext(t, spreadProgram(3), smallGraph(t), lower.Options{}, device.Options{Admission: device.AdmitAll})
	require.NoError(t, c.SetFrontier([]uint32{0, 1, 2, 3}))
	_, err := c.Call(ctx, "Spread_cuda", device.HostArgs{})
	assert.ErrorIs(t, err, device.ErrExecutionFault)

	// Once-admission never overflows.
	c = newContext(t, spreadProgram(3), smallGraph(t), lower.Options{}, device.Options{})
	require.NoError(t, c.SetFrontier([]uint32{0, 1, 2, 3}))
	_, err = c.Call(ctx, "Spread_cuda", device.HostArgs{})
	require.NoError(t, err)
	assert.Equal(t, 3, c.NumOutItems())
}
