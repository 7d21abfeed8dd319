package device

import (
	"math"
	"slices"
	"sync"

	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/utils"
)

// Array is one per-vertex state array with a host copy and a device copy, each 32 bit words.
// Copies are made lazily: a pointer request for one side copies from the other side only if
// the other side was handed out for writing since the last copy.
type Array struct {
	name string
	typ  ir.Type

	mu        sync.Mutex
	host      []uint32
	dev       []uint32
	hostStale bool
	devStale  bool
}

func NewArray(name string, t ir.Type, n uint32) *Array {
	return &Array{name: name, typ: t, host: make([]uint32, n), dev: make([]uint32, n)}
}

func (a *Array) Name() string  { return a.name }
func (a *Array) Type() ir.Type { return a.typ }
func (a *Array) Len() int      { return len(a.host) }

func (a *Array) syncHost() {
	if a.hostStale {
		copy(a.host, a.dev)
		a.hostStale = false
		transferBytes.WithLabelValues("dtoh").Add(float64(4 * len(a.dev)))
	}
}

func (a *Array) syncDevice() {
	if a.devStale {
		copy(a.dev, a.host)
		a.devStale = false
		transferBytes.WithLabelValues("htod").Add(float64(4 * len(a.host)))
	}
}

// CPURead returns the host copy. It must not be written.
func (a *Array) CPURead() []uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncHost()
	return a.host
}

// CPUWrite returns the host copy and marks the device copy stale.
func (a *Array) CPUWrite() []uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncHost()
	a.devStale = true
	return a.host
}

// GPURead returns the device copy. It must not be written.
func (a *Array) GPURead() []uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncDevice()
	return a.dev
}

// GPUWrite returns the device copy and marks the host copy stale.
func (a *Array) GPUWrite() []uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncDevice()
	a.hostStale = true
	return a.dev
}

// Typed host views. Getters return copies.

func (a *Array) Uint32s() []uint32 { return slices.Clone(a.CPURead()) }

func (a *Array) Int32s() []int32 {
	words := a.CPURead()
	out := make([]int32, len(words))
	for i, w := range words {
		out[i] = int32(w)
	}
	return out
}

func (a *Array) Float32s() []float32 {
	words := a.CPURead()
	out := make([]float32, len(words))
	for i, w := range words {
		out[i] = math.Float32frombits(w)
	}
	return out
}

func (a *Array) SetUint32s(vals []uint32) {
	copy(a.CPUWrite(), vals)
}

func (a *Array) SetFloat32s(vals []float32) {
	copy(a.CPUWrite(), utils.Float32Words(vals))
}
