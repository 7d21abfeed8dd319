package framework

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"

	"github.com/ScottSallinen/lollipop-gg/utils"
)

// ErrMismatch is returned when a result differs from a reference.
var ErrMismatch = errors.New("framework: result differs from reference")

func widen[T float32 | uint32 | int32](s []T) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

// CompareFloats checks got against want element-wise within tol and logs the error distribution.
func CompareFloats(name string, got, want []float32, tol float64) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: %s has %d values, want %d", ErrMismatch, name, len(got), len(want))
	}
	g, w := widen(got), widen(want)
	avg, median, p95 := utils.ResultCompare(g, w)
	maxDiff := 0.0
	if len(g) > 0 {
		maxDiff = floats.Distance(g, w, math.Inf(1))
	}
	log.Debug().Msg("Compare " + name + ": avg L1 " + utils.F("%.3e", avg) + " median " + utils.F("%.3e", median) +
		" p95 " + utils.F("%.3e", p95) + " max " + utils.F("%.3e", maxDiff))
	if !floats.EqualApprox(g, w, tol) {
		return fmt.Errorf("%w: %s max difference %g above %g", ErrMismatch, name, maxDiff, tol)
	}
	return nil
}

// CompareExact checks integral results.
func CompareExact[T uint32 | int32](name string, got, want []T) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: %s has %d values, want %d", ErrMismatch, name, len(got), len(want))
	}
	bad := 0
	first := -1
	for i := range got {
		if got[i] != want[i] {
			if first < 0 {
				first = i
			}
			bad++
		}
	}
	if bad > 0 {
		return fmt.Errorf("%w: %s differs at %d vertices, first %d (got %v want %v)", ErrMismatch, name, bad, first, got[first], want[first])
	}
	return nil
}
