package algorithms

import (
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog/log"
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/ScottSallinen/lollipop-gg/framework"
	"github.com/ScottSallinen/lollipop-gg/graph"
	"github.com/ScottSallinen/lollipop-gg/utils"
)

// Host computations on the input graph (never the transposed copy a pull run sweeps).

// sources lists the vertices whose label is src.
func sources(g *graph.Graph, src uint32) (out []uint32) {
	for v := uint32(0); v < g.OwnedVertexCount(); v++ {
		if g.NodeLabel(v) == src {
			out = append(out, v)
		}
	}
	return out
}

// reference copies g into a gonum graph with a virtual root (id n) joined to every source by a
// zero weight edge. Self loops never shorten a path and parallel edges keep their lightest weight.
func reference(g *graph.Graph, src uint32) (*simple.WeightedDirectedGraph, simple.Node) {
	n := g.OwnedVertexCount()
	ref := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for v := uint32(0); v <= n; v++ {
		ref.AddNode(simple.Node(v))
	}
	root := simple.Node(n)
	for _, s := range sources(g, src) {
		ref.SetWeightedEdge(ref.NewWeightedEdge(root, simple.Node(s), 0))
	}
	for _, e := range g.Edges() {
		if e.Src == e.Dst {
			continue
		}
		from, to := simple.Node(e.Src), simple.Node(e.Dst)
		if w, ok := ref.Weight(from.ID(), to.ID()); ok && w <= float64(e.Weight) {
			continue
		}
		ref.SetWeightedEdge(ref.NewWeightedEdge(from, to, float64(e.Weight)))
	}
	return ref, root
}

func unreached(n, inf uint32) []uint32 {
	dist := make([]uint32, n)
	for i := range dist {
		dist[i] = inf
	}
	return dist
}

// HopDistances is a host BFS; unreached vertices get inf.
func HopDistances(g *graph.Graph, src, inf uint32) []uint32 {
	ref, root := reference(g, src)
	dist := unreached(g.OwnedVertexCount(), inf)
	var bf traverse.BreadthFirst
	bf.Walk(ref, root, func(v gonum.Node, depth int) bool {
		if v.ID() != root.ID() && uint64(depth-1) < uint64(inf) {
			dist[v.ID()] = uint32(depth - 1)
		}
		return false
	})
	return dist
}

// ShortestPaths is Dijkstra on the host; unreached vertices get inf.
func ShortestPaths(g *graph.Graph, src, inf uint32) []uint32 {
	ref, root := reference(g, src)
	shortest := path.DijkstraFrom(root, ref)
	dist := unreached(g.OwnedVertexCount(), inf)
	for v := range dist {
		if d := shortest.WeightTo(int64(v)); d < float64(inf) {
			dist[v] = uint32(d)
		}
	}
	return dist
}

// MinReachingLabels gives each vertex the smallest label of any vertex that reaches it (itself included).
func MinReachingLabels(g *graph.Graph) []uint32 {
	n := g.OwnedVertexCount()
	order := make([]uint32, n)
	for v := range order {
		order[v] = uint32(v)
	}
	slices.SortStableFunc(order, func(a, b uint32) int { return int(g.NodeLabel(a)) - int(g.NodeLabel(b)) })

	comp := make([]uint32, n)
	done := utils.NewBitmap(n)
	for _, root := range order {
		if done.IsSet(root) {
			continue
		}
		// Anything already labelled was reached from a smaller label, along with all it reaches.
		label := g.NodeLabel(root)
		done.Set(root)
		comp[root] = label
		stack := []uint32{root}
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, w := range g.Neighbours(v) {
				if !done.IsSet(w) {
					done.Set(w)
					comp[w] = label
					stack = append(stack, w)
				}
			}
		}
	}
	return comp
}

// PageRanks iterates pr = alpha + (1 - alpha) * sum(pr[u] / outdeg[u]) in double precision until
// no rank moves by more than epsilon.
func PageRanks(g *graph.Graph, alpha float64, epsilon float64, maxIterations int) []float64 {
	n := g.OwnedVertexCount()
	pr := make([]float64, n)
	next := make([]float64, n)
	for i := range pr {
		pr[i] = alpha
	}
	for it := 0; it < maxIterations; it++ {
		clear(next)
		for v := uint32(0); v < n; v++ {
			if deg := g.OutDegree(v); deg > 0 {
				share := pr[v] / float64(deg)
				for _, w := range g.Neighbours(v) {
					next[w] += share
				}
			}
		}
		delta := 0.0
		for v := range next {
			next[v] = alpha + (1-alpha)*next[v]
			delta = utils.Max(delta, math.Abs(next[v]-pr[v]))
		}
		pr, next = next, pr
		if delta <= epsilon {
			log.Debug().Msg("Host PageRank settled after " + utils.V(it+1) + " iterations")
			break
		}
	}
	return pr
}

func checkBFS(g *graph.Graph, f *framework.Framework, values framework.Params) error {
	params, err := f.Params(values)
	if err != nil {
		return err
	}
	got, err := f.Uint32Field(distField)
	if err != nil {
		return err
	}
	return framework.CompareExact(distField, got, HopDistances(g, params[SrcNode].Bits, params[Infinity].Bits))
}

func checkSSSP(g *graph.Graph, f *framework.Framework, values framework.Params) error {
	params, err := f.Params(values)
	if err != nil {
		return err
	}
	got, err := f.Uint32Field(distField)
	if err != nil {
		return err
	}
	return framework.CompareExact(distField, got, ShortestPaths(g, params[SrcNode].Bits, params[Infinity].Bits))
}

func checkCC(g *graph.Graph, f *framework.Framework, _ framework.Params) error {
	got, err := f.Uint32Field(compField)
	if err != nil {
		return err
	}
	return framework.CompareExact(compField, got, MinReachingLabels(g))
}

// PageRankSlack is the agreement expected between a converged run and the host ranks.
func PageRankSlack(tolerance float64) float64 {
	return utils.Max(1e-2, 50*tolerance)
}

func checkPageRank(g *graph.Graph, f *framework.Framework, values framework.Params) error {
	params, err := f.Params(values)
	if err != nil {
		return err
	}
	got, err := f.Float32Field(valueField)
	if err != nil {
		return err
	}
	alpha, tol := params[Alpha].Value(), params[Tolerance].Value()
	host := PageRanks(g, alpha, 1e-9, 10000)
	want := make([]float32, len(host))
	for i, v := range host {
		want[i] = float32(v)
	}
	if err := framework.CompareFloats(valueField, got, want, PageRankSlack(tol)); err != nil {
		return fmt.Errorf("%w (alpha %g, tolerance %g)", err, alpha, tol)
	}
	return nil
}
