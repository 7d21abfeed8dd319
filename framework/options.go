package framework

import "github.com/ScottSallinen/lollipop-gg/device"

// Options of a run. They can be read from a run-config file.
type Options struct {
	MaxIterations int            `yaml:"max_iterations"` // Round cap; non-convergence is not an error.
	Partitions    int            `yaml:"partitions"`     // Subranges each topological relax phase is launched over.
	Cooperative   bool           `yaml:"cooperative"`    // Lower hinted edge loops for warp-cooperative execution.
	Device        device.Options `yaml:"device"`
}

const DefaultMaxIterations = 10000

func DefaultOptions() Options {
	return Options{MaxIterations: DefaultMaxIterations, Partitions: 1}
}
