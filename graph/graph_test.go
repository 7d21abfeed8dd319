package graph

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func testEdges() []Edge {
	return []Edge{{0, 1, 1}, {1, 2, 2}, {0, 2, 5}, {2, 0, 1}}
}

func Test_FromEdges(t *testing.T) {
	g, err := FromEdges(4, testEdges(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if g.OwnedVertexCount() != 4 || g.EdgeCount() != 4 {
		t.Fatalf("counts %v %v", g.OwnedVertexCount(), g.EdgeCount())
	}
	if !slices.Equal(g.RowStart, []uint32{0, 2, 3, 4, 4}) {
		t.Fatalf("row start %v", g.RowStart)
	}
	if !slices.Equal(g.Neighbours(0), []uint32{1, 2}) {
		t.Fatalf("neighbours of 0: %v", g.Neighbours(0))
	}
	if g.Weight(g.FirstEdge(0)+1) != 5 {
		t.Fatalf("weight of second edge of 0: %v", g.Weight(g.FirstEdge(0)+1))
	}
	if g.OutDegree(3) != 0 || g.NodeLabel(3) != 3 {
		t.Fatalf("sink vertex: degree %v label %v", g.OutDegree(3), g.NodeLabel(3))
	}
	if !slices.Equal(g.Edges(), []Edge{{0, 1, 1}, {0, 2, 5}, {1, 2, 2}, {2, 0, 1}}) {
		t.Fatalf("edges %v", g.Edges())
	}

	if _, err := FromEdges(2, testEdges(), DefaultOptions()); !errors.Is(err, ErrVertexRange) {
		t.Fatalf("expected range error, got %v", err)
	}
}

func Test_Transpose(t *testing.T) {
	g, _ := FromEdges(4, testEdges(), DefaultOptions())
	tr := g.Transpose()
	if !tr.Transposed() || g.Transposed() {
		t.Fatal("transposed flag")
	}
	if !slices.Equal(tr.Neighbours(2), []uint32{0, 1}) {
		t.Fatalf("in-neighbours of 2: %v", tr.Neighbours(2))
	}
	back := tr.Transpose()
	if !slices.Equal(back.RowStart, g.RowStart) || back.Transposed() {
		t.Fatalf("double transpose row start %v", back.RowStart)
	}

	opts := DefaultOptions()
	opts.Transpose = true
	flipped, _ := FromEdges(4, testEdges(), opts)
	if !slices.Equal(flipped.RowStart, tr.RowStart) {
		t.Fatalf("transpose option %v vs %v", flipped.RowStart, tr.RowStart)
	}
}

func Test_Undirected(t *testing.T) {
	opts := DefaultOptions()
	opts.Undirected = true
	g, _ := FromEdges(3, []Edge{{0, 1, 1}, {2, 2, 1}}, opts)
	if g.EdgeCount() != 3 {
		t.Fatalf("self loops are not mirrored: %v edges", g.EdgeCount())
	}
	if !slices.Equal(g.Neighbours(1), []uint32{0}) {
		t.Fatalf("mirror %v", g.Neighbours(1))
	}
}

func Test_LoadEdgeList(t *testing.T) {
	input := "# comment\n0 1 7\n1 2 3\n\n% other comment\n2 0 1\n3 3 9"
	opts := DefaultOptions()
	opts.WeightPos = 1
	g, err := LoadEdgeList(strings.NewReader(input), opts)
	if err != nil {
		t.Fatal(err)
	}
	if g.OwnedVertexCount() != 4 || g.EdgeCount() != 4 {
		t.Fatalf("counts %v %v", g.OwnedVertexCount(), g.EdgeCount())
	}
	if g.Weight(g.FirstEdge(0)) != 7 || g.Weight(g.FirstEdge(3)) != 9 {
		t.Fatal("weights not parsed")
	}

	g, err = LoadEdgeList(strings.NewReader("0 1 7\n"), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if g.Weight(0) != 1 {
		t.Fatalf("default weight %v", g.Weight(0))
	}

	bad := []string{"0\n", "0 x\n", "0 1\n"}
	for i, in := range bad {
		o := DefaultOptions()
		if i == 2 {
			o.WeightPos = 1
		}
		if _, err := LoadEdgeList(strings.NewReader(in), o); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func Test_Stats(t *testing.T) {
	g, _ := FromEdges(4, testEdges(), DefaultOptions())
	s := g.ComputeStats()
	if s.Sinks != 1 || s.MaxOutDegree != 2 || s.Edges != 4 {
		t.Fatalf("stats %+v", s)
	}
	s.Log()
}
