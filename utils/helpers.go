package utils

import (
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/constraints"
)

type Pair[F any, S any] struct {
	First  F
	Second S
}

// Round up to the next power of 2
func RoundUpPow(i uint64) uint64 {
	i--
	i |= i >> 1
	i |= i >> 2
	i |= i >> 4
	i |= i >> 8
	i |= i >> 16
	i |= i >> 32
	i++
	return i
}

// RoundUp rounds n up to a multiple of m (m > 0).
func RoundUp[T constraints.Unsigned](n, m T) T {
	return ((n + m - 1) / m) * m
}

func Max[T constraints.Ordered](x, y T) T {
	if x < y {
		return y
	}
	return x
}

func Min[T constraints.Ordered](x, y T) T {
	if y < x {
		return y
	}
	return x
}

func MaxSlice[T constraints.Ordered](slice []T) T {
	max := slice[0]
	for i := range slice {
		max = Max(max, slice[i])
	}
	return max
}

func Median[T constraints.Integer | constraints.Float](n []T) T {
	return Percentile(n, 50)
}

func Percentile[T constraints.Integer | constraints.Float](n []T, percentile int) T {
	if len(n) == 0 {
		log.Warn().Msg("WARNING: Percentile called on empty slice")
		return 0
	}
	if len(n) == 1 {
		return n[0]
	}

	copyN := make([]T, len(n))
	copy(copyN, n)
	sort.Slice(copyN, func(i, j int) bool { return copyN[i] < copyN[j] })

	idx := int(((float64(percentile) / 100.0) * float64(len(copyN))))
	if idx >= len(copyN) {
		idx = len(copyN) - 1
	}
	if len(copyN)%2 == 0 || idx == 0 { // even number of elements, or the we are targeting the first element
		return copyN[idx]
	} else if copyN[idx-1] == copyN[idx] {
		return copyN[idx]
	}
	return (copyN[idx-1] + copyN[idx]) / 2
}

// Compares two arrays: showcases average and L1 differences.
// Returns: Average L1 diff, 50th percentile L1 diff, 95th percentile L1 diff
func ResultCompare[T constraints.Float | constraints.Integer](a []T, b []T) (avgL1Diff float64, medianL1Diff float64, percentile95L1 float64) {
	if len(a) == 0 {
		return
	}
	listL1Diff := make([]float64, len(a))

	for i := range a {
		l1delta := math.Abs(float64(b[i]) - float64(a[i]))
		listL1Diff[i] = l1delta
		avgL1Diff += l1delta
	}
	avgL1Diff = avgL1Diff / float64(len(a))

	sort.Float64s(listL1Diff)
	medianL1Diff = listL1Diff[len(listL1Diff)/2]
	if len(listL1Diff)%2 == 0 {
		medianL1Diff = (listL1Diff[len(listL1Diff)/2-1] + listL1Diff[len(listL1Diff)/2]) / 2
	}
	percentile95L1 = listL1Diff[int(float64(len(listL1Diff)-1)*0.95)]

	return avgL1Diff, medianL1Diff, percentile95L1
}
