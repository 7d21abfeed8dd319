package device

import "runtime"

// Accessor is the read-only view of the graph that kernels use.
type Accessor interface {
	OwnedVertexCount() uint32
	EdgeCount() uint32
	FirstEdge(v uint32) uint32 // Valid for v == OwnedVertexCount(), giving the edge count.
	OutDegree(v uint32) uint32
	Destination(e uint32) uint32
	Weight(e uint32) uint32
	NodeLabel(v uint32) uint32
}

// Geometry is the launch shape of one kernel.
type Geometry struct {
	Blocks  uint32
	Threads uint32 // Per block.
}

func (g Geometry) TotalThreads() uint32 { return g.Blocks * g.Threads }

// Sizer picks the launch geometry for a graph.
type Sizer interface {
	Size(g Accessor) Geometry
}

type SizerFunc func(g Accessor) Geometry

func (f SizerFunc) Size(g Accessor) Geometry { return f(g) }

// KernelSizing launches BlocksPerSM blocks on each emulated multiprocessor, independent of the graph.
type KernelSizing struct {
	SMs             uint32 `yaml:"sms"`
	BlocksPerSM     uint32 `yaml:"blocks_per_sm"`
	ThreadsPerBlock uint32 `yaml:"threads_per_block"`
}

// DefaultSizing treats every CPU as a multiprocessor running 8 blocks of 256 threads.
func DefaultSizing() KernelSizing {
	return KernelSizing{SMs: uint32(runtime.NumCPU()), BlocksPerSM: 8, ThreadsPerBlock: 256}
}

func (s KernelSizing) Size(Accessor) Geometry {
	g := Geometry{Blocks: s.SMs * s.BlocksPerSM, Threads: s.ThreadsPerBlock}
	if g.Blocks == 0 {
		g.Blocks = 1
	}
	if g.Threads == 0 {
		g.Threads = 1
	}
	return g
}
