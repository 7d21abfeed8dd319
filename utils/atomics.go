package utils

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// Device state is stored as raw 32 bit words; these helpers give the word the meaning of
// its field type. Every access is atomic, so concurrent kernels never race in the Go sense.

//go:nosplit
func Noescape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}

//go:nosplit
func AtomicMinUint32(targetVal *uint32, new uint32) (old uint32) {
	for {
		old = atomic.LoadUint32(targetVal)
		if new >= old || atomic.CompareAndSwapUint32(targetVal, old, new) {
			return old
		}
	}
}

//go:nosplit
func AtomicMaxUint32(targetVal *uint32, new uint32) (old uint32) {
	for {
		old = atomic.LoadUint32(targetVal)
		if new <= old || atomic.CompareAndSwapUint32(targetVal, old, new) {
			return old
		}
	}
}

// Int32 stored as its two's complement bits.
//
//go:nosplit
func AtomicMinInt32(targetVal *uint32, new int32) (old int32) {
	for {
		oldU := atomic.LoadUint32(targetVal)
		old = int32(oldU)
		if new >= old || atomic.CompareAndSwapUint32(targetVal, oldU, uint32(new)) {
			return old
		}
	}
}

//go:nosplit
func AtomicMaxInt32(targetVal *uint32, new int32) (old int32) {
	for {
		oldU := atomic.LoadUint32(targetVal)
		old = int32(oldU)
		if new <= old || atomic.CompareAndSwapUint32(targetVal, oldU, uint32(new)) {
			return old
		}
	}
}

// Float32 stored as its IEEE bits.
//
//go:nosplit
func AtomicAddFloat32(targetVal *uint32, delta float32) (oldF float32) {
	for {
		oldU := atomic.LoadUint32(targetVal)
		oldF = math.Float32frombits(oldU)
		if atomic.CompareAndSwapUint32(targetVal, oldU, math.Float32bits(oldF+delta)) {
			return oldF
		}
	}
}

//go:nosplit
func AtomicMinFloat32(targetVal *uint32, new float32) (oldF float32) {
	for {
		oldU := atomic.LoadUint32(targetVal)
		oldF = math.Float32frombits(oldU)
		if new >= oldF || atomic.CompareAndSwapUint32(targetVal, oldU, math.Float32bits(new)) {
			return oldF
		}
	}
}

//go:nosplit
func AtomicMaxFloat32(targetVal *uint32, new float32) (oldF float32) {
	for {
		oldU := atomic.LoadUint32(targetVal)
		oldF = math.Float32frombits(oldU)
		if new <= oldF || atomic.CompareAndSwapUint32(targetVal, oldU, math.Float32bits(new)) {
			return oldF
		}
	}
}

//go:nosplit
func AtomicLoadFloat32(targetVal *uint32) float32 {
	return math.Float32frombits(atomic.LoadUint32(targetVal))
}

// Reinterprets a float32 slice as raw words without copying.
func Float32Words(f []float32) []uint32 {
	if len(f) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(Noescape(unsafe.Pointer(&f[0]))), len(f))
}
