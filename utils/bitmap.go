package utils

import (
	"math/bits"
	"sync/atomic"
)

// Initially inspired from https://github.com/kelindar/bitmap Thank you for using the MIT license!
// Mostly just implementing/changing for the needed use-cases.

// ------------------ Regular Bitmap ------------------

type Bitmap []uint64

// NewBitmap holds at least size bits.
func NewBitmap(size uint32) Bitmap {
	return make(Bitmap, (uint64(size)+63)>>6)
}

// Set sets the bit x in the bitmap and grows it if necessary.
func (bitmap *Bitmap) Set(x uint32) {
	idx := int(x >> 6)
	bit := int(x % 64)
	if idx >= len(*bitmap) {
		bitmap.grow(idx)
	}
	(*bitmap)[idx] |= (1 << bit)
}

func (bitmap Bitmap) IsSet(x uint32) bool {
	idx := int(x >> 6)
	if idx >= len(bitmap) {
		return false
	}
	return atomic.LoadUint64(&bitmap[idx])&(1<<(x%64)) != 0
}

// TestAndSet atomically sets bit x and reports whether this call was the one that set it.
// Out of range bits are never set.
func (bitmap Bitmap) TestAndSet(x uint32) bool {
	idx := int(x >> 6)
	if idx >= len(bitmap) {
		return false
	}
	mask := uint64(1) << (x % 64)
	for {
		old := atomic.LoadUint64(&bitmap[idx])
		if old&mask != 0 {
			return false
		}
		if atomic.CompareAndSwapUint64(&bitmap[idx], old, old|mask) {
			return true
		}
	}
}

// Zeros all bits in the bitmap.
func (bitmap *Bitmap) Zeroes() {
	for i := 0; i < len(*bitmap); i++ {
		(*bitmap)[i] = 0
	}
}

// Count of set bits.
func (bitmap Bitmap) Count() (n int) {
	for i := range bitmap {
		n += bits.OnesCount64(atomic.LoadUint64(&bitmap[i]))
	}
	return n
}

// grow grows the size of the bitmap until we reach the desired block offset
func (bitmap *Bitmap) grow(idx int) {
	// If there's space, resize the slice without copying.
	if cap(*bitmap) > idx {
		*bitmap = (*bitmap)[:idx+1]
		return
	}
	old := *bitmap
	*bitmap = make(Bitmap, idx+1, resize(cap(old), idx+1))
	copy(*bitmap, old)
}

// resize calculates the new required capacity and a new index
func resize(capacity, v int) int {
	const threshold = 256

	if v < threshold {
		return int(RoundUpPow(uint64(v + 1)))
	}

	if capacity < threshold {
		capacity = threshold
	}

	for 0 < capacity && capacity < (v+1) {
		capacity += (capacity + 3*threshold) / 4
	}
	return capacity
}
