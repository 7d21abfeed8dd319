// Package algorithms holds the vertex programs that ship with lollipop-gg, each built from IR
// constructors and mirrored by an embedded .hcl program file.
package algorithms

import (
	"embed"
	"fmt"
	"slices"

	"github.com/ScottSallinen/lollipop-gg/framework"
	"github.com/ScottSallinen/lollipop-gg/graph"
	"github.com/ScottSallinen/lollipop-gg/ir"
)

//go:embed programs/*.hcl
var Programs embed.FS

// Algorithm is one registered vertex program.
type Algorithm struct {
	Name    string
	Program func() *ir.VertexProgram
	File    string // Embedded HCL file describing the same program.
	// Check compares the results of a finished run with a host computation on the input graph.
	Check func(g *graph.Graph, f *framework.Framework, params framework.Params) error
}

// Source returns the embedded HCL text of the algorithm.
func (a *Algorithm) Source() ([]byte, error) {
	return Programs.ReadFile("programs/" + a.File)
}

var registry = map[string]*Algorithm{
	"bfs":           {Name: "bfs", Program: BFS, File: "bfs.hcl", Check: checkBFS},
	"sssp":          {Name: "sssp", Program: SSSP, File: "sssp.hcl", Check: checkSSSP},
	"sssp-wl":       {Name: "sssp-wl", Program: SSSPWorklist, File: "sssp-wl.hcl", Check: checkSSSP},
	"cc":            {Name: "cc", Program: CC, File: "cc.hcl", Check: checkCC},
	"cc-wl":         {Name: "cc-wl", Program: CCWorklist, File: "cc-wl.hcl", Check: checkCC},
	"pagerank":      {Name: "pagerank", Program: PageRankPull, File: "pagerank.hcl", Check: checkPageRank},
	"pagerank-push": {Name: "pagerank-push", Program: PageRankPush, File: "pagerank-push.hcl", Check: checkPageRank},
	"pagerank-wl":   {Name: "pagerank-wl", Program: PageRankWorklist, File: "pagerank-wl.hcl", Check: checkPageRank},
}

// Lookup finds an algorithm by name.
func Lookup(name string) (*Algorithm, error) {
	a, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("algorithms: unknown algorithm %q (have %v)", name, Names())
	}
	return a, nil
}

// Names lists the registered algorithms in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Shared parameter names.
const (
	Infinity  = "local_infinity"
	SrcNode   = "local_src_node"
	Alpha     = "local_alpha"
	Tolerance = "local_tolerance"
)

const (
	DefaultAlpha     = 0.15
	DefaultTolerance = 0.0001
)

func infinityParam() ir.Param {
	return ir.Param{Name: Infinity, Type: ir.TypeUint32, Const: true, Default: ir.U32(ir.Infinity)}
}

func srcParam() ir.Param { return ir.Param{Name: SrcNode, Type: ir.TypeUint32} }

func alphaParam() ir.Param {
	return ir.Param{Name: Alpha, Type: ir.TypeFloat32, Const: true, Default: ir.F32(DefaultAlpha)}
}

func toleranceParam() ir.Param {
	return ir.Param{Name: Tolerance, Type: ir.TypeFloat32, Default: ir.F32(DefaultTolerance)}
}
