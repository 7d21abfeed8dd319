// Package graph holds the compressed adjacency (CSR) graph that kernels sweep over.
package graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/ScottSallinen/lollipop-gg/utils"
)

// Edge is one directed edge as read from input.
type Edge struct {
	Src    uint32
	Dst    uint32
	Weight uint32
}

// Graph is a CSR graph. Every vertex is owned by the single emulated device,
// so the owned vertex count equals the vertex count.
//
// RowStart has one entry per vertex plus a sentinel; the out-edges of v are
// EdgeDst[RowStart[v]:RowStart[v+1]] with weights at the same positions of EdgeData.
type Graph struct {
	RowStart []uint32
	EdgeDst  []uint32
	EdgeData []uint32
	NodeData []uint32 // Static per-vertex label; the vertex id unless the input says otherwise.

	transposed bool
}

var ErrVertexRange = errors.New("graph: vertex out of range")

// FromEdges builds a graph of n vertices. Edges keep their input order within a row.
func FromEdges(n uint32, edges []Edge, opts Options) (*Graph, error) {
	if opts.Undirected {
		mirrored := make([]Edge, 0, 2*len(edges))
		for _, e := range edges {
			mirrored = append(mirrored, e)
			if e.Src != e.Dst {
				mirrored = append(mirrored, Edge{Src: e.Dst, Dst: e.Src, Weight: e.Weight})
			}
		}
		edges = mirrored
	}
	if opts.Transpose {
		flipped := make([]Edge, len(edges))
		for i, e := range edges {
			flipped[i] = Edge{Src: e.Dst, Dst: e.Src, Weight: e.Weight}
		}
		edges = flipped
	}
	for _, e := range edges {
		if e.Src >= n || e.Dst >= n {
			return nil, fmt.Errorf("%w: edge %d -> %d with %d vertices", ErrVertexRange, e.Src, e.Dst, n)
		}
	}

	g := &Graph{
		RowStart:   make([]uint32, n+1),
		EdgeDst:    make([]uint32, len(edges)),
		EdgeData:   make([]uint32, len(edges)),
		NodeData:   make([]uint32, n),
		transposed: opts.Transpose,
	}
	for _, e := range edges {
		g.RowStart[e.Src+1]++
	}
	for v := uint32(0); v < n; v++ {
		g.RowStart[v+1] += g.RowStart[v]
	}
	next := slices.Clone(g.RowStart[:n])
	for _, e := range edges {
		pos := next[e.Src]
		next[e.Src]++
		g.EdgeDst[pos] = e.Dst
		g.EdgeData[pos] = e.Weight
	}
	for v := range g.NodeData {
		g.NodeData[v] = uint32(v)
	}
	log.Debug().Msg("Built CSR graph: " + utils.V(n) + " vertices, " + utils.V(len(edges)) + " edges")
	return g, nil
}

// Transpose returns a new graph with every edge reversed. Node data is shared.
func (g *Graph) Transpose() *Graph {
	n := g.OwnedVertexCount()
	edges := make([]Edge, 0, len(g.EdgeDst))
	for v := uint32(0); v < n; v++ {
		for e := g.RowStart[v]; e < g.RowStart[v+1]; e++ {
			edges = append(edges, Edge{Src: g.EdgeDst[e], Dst: v, Weight: g.EdgeData[e]})
		}
	}
	t, _ := FromEdges(n, edges, Options{})
	t.NodeData = g.NodeData
	t.transposed = !g.transposed
	return t
}

// Transposed reports whether edges run against the input direction.
func (g *Graph) Transposed() bool { return g.transposed }

// Edges lists every edge in CSR order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.EdgeDst))
	for v := uint32(0); v < g.OwnedVertexCount(); v++ {
		for e := g.RowStart[v]; e < g.RowStart[v+1]; e++ {
			out = append(out, Edge{Src: v, Dst: g.EdgeDst[e], Weight: g.EdgeData[e]})
		}
	}
	return out
}

// Accessors used by kernels. Out of range arguments panic, as a device access would fault.

func (g *Graph) OwnedVertexCount() uint32     { return uint32(len(g.RowStart) - 1) }
func (g *Graph) EdgeCount() uint32            { return uint32(len(g.EdgeDst)) }
func (g *Graph) FirstEdge(v uint32) uint32    { return g.RowStart[v] }
func (g *Graph) OutDegree(v uint32) uint32    { return g.RowStart[v+1] - g.RowStart[v] }
func (g *Graph) Destination(e uint32) uint32  { return g.EdgeDst[e] }
func (g *Graph) Weight(e uint32) uint32       { return g.EdgeData[e] }
func (g *Graph) NodeLabel(v uint32) uint32    { return g.NodeData[v] }
func (g *Graph) Neighbours(v uint32) []uint32 { return g.EdgeDst[g.RowStart[v]:g.RowStart[v+1]] }

// Stats summarizes the degree distribution.
type Stats struct {
	Vertices     uint32
	Edges        uint32
	Sinks        uint32
	MaxOutDegree uint32
	MedianOut    uint32
}

func (g *Graph) ComputeStats() (s Stats) {
	s.Vertices = g.OwnedVertexCount()
	s.Edges = g.EdgeCount()
	if s.Vertices == 0 {
		return s
	}
	degrees := make([]uint32, s.Vertices)
	for v := range degrees {
		degrees[v] = g.OutDegree(uint32(v))
		if degrees[v] == 0 {
			s.Sinks++
		}
	}
	s.MaxOutDegree = utils.MaxSlice(degrees)
	s.MedianOut = utils.Median(degrees)
	return s
}

func (s Stats) Log() {
	log.Info().Msg("----GraphStats----")
	log.Info().Msg("Vertices " + utils.V(s.Vertices))
	if s.Vertices > 0 {
		log.Info().Msg("Sinks " + utils.V(s.Sinks) + " pct: " + utils.F("%.3f", float64(s.Sinks)*100.0/float64(s.Vertices)))
	}
	log.Info().Msg("Edges " + utils.V(s.Edges))
	log.Info().Msg("MaxOutDeg " + utils.V(s.MaxOutDegree))
	log.Info().Msg("MedianOutDeg " + utils.V(s.MedianOut))
	log.Info().Msg("----EndStats----")
}
