package algorithms_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ScottSallinen/lollipop-gg/algorithms"
	"github.com/ScottSallinen/lollipop-gg/device"
	"github.com/ScottSallinen/lollipop-gg/framework"
	"github.com/ScottSallinen/lollipop-gg/graph"
	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/lower"
)

func build(t *testing.T, n uint32, edges []graph.Edge) *graph.Graph {
	t.Helper()
	g, err := graph.FromEdges(n, edges, graph.DefaultOptions())
	require.NoError(t, err)
	return g
}

// randomGraph has n vertices and m edges with weights in [1, 10], without self loops.
func randomGraph(t *testing.T, seed uint64, n, m uint32) *graph.Graph {
	t.Helper()
	r := rand.New(rand.NewPCG(seed, seed*7+1))
	edges := make([]graph.Edge, 0, m)
	for len(edges) < int(m) {
		s, d := r.Uint32N(n), r.Uint32N(n)
		if s == d {
			continue
		}
		edges = append(edges, graph.Edge{Src: s, Dst: d, Weight: 1 + r.Uint32N(10)})
	}
	return build(t, n, edges)
}

func options(sizing device.KernelSizing, admission device.Admission, partitions int) framework.Options {
	opts := framework.DefaultOptions()
	opts.Device.Sizer = sizing
	opts.Device.Admission = admission
	opts.Partitions = partitions
	return opts
}

func small() framework.Options {
	return options(device.KernelSizing{SMs: 2, BlocksPerSM: 2, ThreadsPerBlock: 8}, device.AdmitOnce, 1)
}

func run(t *testing.T, name string, g *graph.Graph, opts framework.Options, params framework.Params) *framework.Framework {
	t.Helper()
	a, err := algorithms.Lookup(name)
	require.NoError(t, err)
	f, err := framework.Build(a.Program(), g, opts)
	require.NoError(t, err)
	res, err := f.Run(context.Background(), params)
	require.NoError(t, err)
	require.True(t, res.Converged, "%s did not converge in %d rounds", name, res.Iterations)
	return f
}

func TestRegistry(t *testing.T) {
	names := algorithms.Names()
	assert.Equal(t, []string{"bfs", "cc", "cc-wl", "pagerank", "pagerank-push", "pagerank-wl", "sssp", "sssp-wl"}, names)
	for _, name := range names {
		a, err := algorithms.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, a.Name)
		p := a.Program()
		require.NoError(t, ir.Validate(p), name)
		_, err = lower.Lower(p, lower.Options{})
		require.NoError(t, err, name)
		src, err := a.Source()
		require.NoError(t, err)
		assert.Contains(t, string(src), `program "`+p.Name+`"`)
	}

	_, err := algorithms.Lookup("triangles")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sssp-wl")
}

func TestInitializeGraph(t *testing.T) {
	g := build(t, 5, []graph.Edge{{Src: 0, Dst: 1, Weight: 1}, {Src: 2, Dst: 3, Weight: 1}})
	f, err := framework.Build(algorithms.SSSP(), g, small())
	require.NoError(t, err)
	params, err := f.Params(framework.Params{algorithms.SrcNode: ir.U32(2), algorithms.Infinity: ir.U32(9999)})
	require.NoError(t, err)
	require.NoError(t, f.Initialize(context.Background(), params))

	dist, err := f.Uint32Field("dist_current")
	require.NoError(t, err)
	assert.Equal(t, []uint32{9999, 9999, 0, 9999, 9999}, dist)
}

func TestSSSPRounds(t *testing.T) {
	g := build(t, 4, []graph.Edge{{Src: 0, Dst: 1, Weight: 1}, {Src: 1, Dst: 2, Weight: 2}, {Src: 0, Dst: 2, Weight: 5}})
	for _, name := range []string{"sssp", "sssp-wl"} {
		a, err := algorithms.Lookup(name)
		require.NoError(t, err)
		f, err := framework.Build(a.Program(), g, small())
		require.NoError(t, err)
		params, err := f.Params(framework.Params{algorithms.SrcNode: ir.U32(0)})
		require.NoError(t, err)
		require.NoError(t, f.Initialize(context.Background(), params))

		var results []int
		found := false
		for len(results) < 10 {
			r, err := f.Step(context.Background(), params)
			require.NoError(t, err)
			assert.Equal(t, len(results), r.Index)
			results = append(results, r.Result)

			dist, err := f.Uint32Field("dist_current")
			require.NoError(t, err)
			if !found && dist[2] == 3 {
				found = true
				assert.Positive(t, r.Result, "%s: round %d lowered dist[2] to 3", name, r.Index)
			}
			if r.Result == 0 {
				break
			}
		}
		assert.True(t, found, name)
		require.NotEmpty(t, results)
		assert.Positive(t, results[0], name)
		assert.Zero(t, results[len(results)-1], name)
		assert.LessOrEqual(t, len(results), 4, name)

		dist, err := f.Uint32Field("dist_current")
		require.NoError(t, err)
		assert.Equal(t, []uint32{0, 1, 3, ir.Infinity}, dist, name)
	}
}

func TestBFSAndCCScenarios(t *testing.T) {
	// 0 -> 1 -> 2, 3 -> 2, 4 alone.
	g := build(t, 5, []graph.Edge{{Src: 0, Dst: 1, Weight: 7}, {Src: 1, Dst: 2, Weight: 7}, {Src: 3, Dst: 2, Weight: 7}})

	f := run(t, "bfs", g, small(), framework.Params{algorithms.SrcNode: ir.U32(0)})
	dist, err := f.Uint32Field("dist_current")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, ir.Infinity, ir.Infinity}, dist)

	for _, name := range []string{"cc", "cc-wl"} {
		f := run(t, name, g, small(), nil)
		comp, err := f.Uint32Field("comp_current")
		require.NoError(t, err)
		assert.Equal(t, []uint32{0, 0, 0, 3, 4}, comp, name)
	}
}

func TestPageRankCycle(t *testing.T) {
	g := build(t, 3, []graph.Edge{{Src: 0, Dst: 1, Weight: 1}, {Src: 1, Dst: 2, Weight: 1}, {Src: 2, Dst: 0, Weight: 1}})
	f := run(t, "pagerank", g, small(), framework.Params{algorithms.Tolerance: ir.F32(0)})
	values, err := f.Float32Field("value")
	require.NoError(t, err)
	for _, v := range values {
		assert.InDelta(t, 1.0, v, 1e-5)
	}
}

// With tolerance 0 a drained vertex keeps pushing zero deltas; those must not count as crossings.
func TestPushPageRankSettlesOnChain(t *testing.T) {
	g := build(t, 3, []graph.Edge{{Src: 0, Dst: 1, Weight: 1}, {Src: 1, Dst: 2, Weight: 1}})
	for _, name := range []string{"pagerank-push", "pagerank-wl"} {
		a, err := algorithms.Lookup(name)
		require.NoError(t, err)
		opts := small()
		opts.MaxIterations = 20
		f, err := framework.Build(a.Program(), g, opts)
		require.NoError(t, err)
		res, err := f.Run(context.Background(), framework.Params{algorithms.Tolerance: ir.F32(0)})
		require.NoError(t, err)
		assert.True(t, res.Converged, "%s ran %d rounds", name, res.Iterations)
		assert.LessOrEqual(t, res.Iterations, 5, name)

		values, err := f.Float32Field("value")
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float32{0.15, 0.2775, 0.385875}, values, 1e-5, name)
	}
}

// Every algorithm agrees with its host computation across launch geometries, partitionings and
// admission policies.
func TestAgainstHost(t *testing.T) {
	sizings := []device.KernelSizing{
		{SMs: 1, BlocksPerSM: 1, ThreadsPerBlock: 1},
		{SMs: 2, BlocksPerSM: 2, ThreadsPerBlock: 8},
		{SMs: 4, BlocksPerSM: 4, ThreadsPerBlock: 32},
	}
	graphs := []*graph.Graph{
		randomGraph(t, 1, 20, 40),
		randomGraph(t, 2, 60, 240),
		randomGraph(t, 3, 100, 120),
	}
	params := framework.Params{algorithms.SrcNode: ir.U32(0), algorithms.Tolerance: ir.F32(1e-5)}

	for _, name := range algorithms.Names() {
		a, err := algorithms.Lookup(name)
		require.NoError(t, err)
		p := a.Program()
		values := framework.Params{}
		for k, v := range params {
			if _, ok := p.Param(k); ok {
				values[k] = v
			}
		}
		for gi, g := range graphs {
			for si, sizing := range sizings {
				for _, admission := range []device.Admission{device.AdmitOnce, device.AdmitAll} {
					if admission == device.AdmitAll && p.Schedule != ir.Worklist {
						continue
					}
					opts := options(sizing, admission, 1+si)
					f := run(t, name, g, opts, values)
					assert.NoError(t, a.Check(g, f, values), "%s graph %d sizing %d admission %v", name, gi, si, admission)
				}
			}
		}
	}
}

func TestCooperativeRuns(t *testing.T) {
	g := randomGraph(t, 9, 50, 300)
	opts := small()
	opts.Cooperative = true
	for _, name := range algorithms.Names() {
		a, err := algorithms.Lookup(name)
		require.NoError(t, err)
		values := framework.Params{}
		if _, ok := a.Program().Param(algorithms.SrcNode); ok {
			values[algorithms.SrcNode] = ir.U32(3)
		}
		if _, ok := a.Program().Param(algorithms.Tolerance); ok {
			values[algorithms.Tolerance] = ir.F32(1e-5)
		}
		f := run(t, name, g, opts, values)
		assert.NoError(t, a.Check(g, f, values), name)
	}
}
