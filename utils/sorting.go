package utils

import (
	"container/heap"

	"golang.org/x/exp/constraints"
)

// Wrapper for sorting that gives the indexes of a hypothetically sorted array.
// It does not modify the input array.
type indexed[T constraints.Ordered] struct {
	Index []int
	Input []T
}

func (s indexed[T]) Len() int { return len(s.Index) }
func (s indexed[T]) Swap(i, j int) {
	s.Index[i], s.Index[j] = s.Index[j], s.Index[i]
}

func (s *indexed[T]) Init(input []T, size int) {
	s.Input = input
	s.Index = make([]int, size)
	for i := range s.Index {
		s.Index[i] = i
	}
}

// Smallest first version (adds the less function).
type indexedSf[T constraints.Ordered] struct {
	indexed[T]
}

func (s indexedSf[T]) Less(i, j int) bool { return s.Input[s.Index[i]] < s.Input[s.Index[j]] }

// TopN gives the topCount largest values of array with their vertex index, largest first.
// For small N this is cheaper than sorting the whole array ( O(N * C log C) ).
func TopN[T constraints.Integer | constraints.Float](array []T, topCount uint32) []Pair[uint32, T] {
	if topCount > uint32(len(array)) {
		topCount = uint32(len(array))
	}
	if topCount == 0 {
		return nil
	}
	// Smallest first, so the root is the smallest-of-the-largest and can be replaced.
	pq := PriorityQueueSf[T]{}
	pq.Init(array, int(topCount))
	for i := int(topCount); i < len(array); i++ {
		if array[pq.Peek()] < array[i] {
			pq.Replace(0, i)
		}
	}

	topSet := make([]Pair[uint32, T], topCount)
	for i := uint32(0); i < topCount; i++ {
		index := pq.Extract()
		topSet[topCount-i-1] = Pair[uint32, T]{uint32(index), array[index]}
	}
	return topSet
}

// Smallest first priority queue over indexes of the input.
// Use Init, Extract, Peek and Replace rather than the heap functions.
type PriorityQueueSf[T constraints.Ordered] struct {
	indexedSf[T]
}

func (pq *PriorityQueueSf[T]) Init(input []T, size int) {
	pq.indexedSf.Init(input, size)
	heap.Init(pq)
}

func (pq *PriorityQueueSf[T]) Extract() (v int) {
	return heap.Pop(pq).(int)
}

func (pq *PriorityQueueSf[T]) Peek() (idx int) {
	return pq.Index[0]
}

func (pq *PriorityQueueSf[T]) Replace(pos int, idx int) {
	pq.Index[pos] = idx
	heap.Fix(pq, pos)
}

// Heap functions below (prefer not to use them directly).

func (pq *PriorityQueueSf[T]) Push(x any) {
	pq.Index = append(pq.Index, x.(int))
}

func (pq *PriorityQueueSf[T]) Pop() any {
	last := len(pq.Index) - 1
	item := pq.Index[last]
	pq.Index = pq.Index[:last]
	return item
}
