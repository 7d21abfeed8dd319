package device

import (
	"sync/atomic"

	"github.com/ScottSallinen/lollipop-gg/ir"
)

// Reduction is the kernel-side handle of the reduction slot. It points at the device copy of
// the context's p_retval once bound.
type Reduction struct {
	kind ir.ReductionKind
	rv   *uint32
}

func (r *Reduction) Kind() ir.ReductionKind { return r.kind }

func (r *Reduction) bind(slot []uint32) {
	r.rv = &slot[0]
}

// signal is the any-mode return: the slot becomes 1.
func (r *Reduction) signal() {
	atomic.StoreUint32(r.rv, 1)
}

// add is the sum-mode return.
func (r *Reduction) add(n uint32) {
	atomic.AddUint32(r.rv, n)
}
