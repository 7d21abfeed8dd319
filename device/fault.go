package device

import (
	"errors"
	"fmt"
)

// ErrExecutionFault is wrapped by every fault raised while a kernel runs.
var ErrExecutionFault = errors.New("device: execution fault")

var (
	ErrRange        = errors.New("device: invalid iteration range")
	ErrMissingParam = errors.New("device: missing scalar parameter")
	ErrUnknown      = errors.New("device: unknown kernel or wrapper")
)

// Fault describes the first failing thread of a launch.
type Fault struct {
	Kernel string
	Block  uint32
	Thread uint32
	Cause  any // Recovered panic value.
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%v: kernel %s block %d thread %d: %v", ErrExecutionFault, f.Kernel, f.Block, f.Thread, f.Cause)
}

func (f *Fault) Unwrap() error { return ErrExecutionFault }

// overflow is raised inside a kernel when a frontier has no room left.
type overflow struct {
	capacity uint32
}

func (o overflow) Error() string {
	return fmt.Sprintf("worklist overflow (capacity %d)", o.capacity)
}

// outOfRange is raised inside a kernel when a vertex id is not owned.
type outOfRange struct {
	what   string
	vertex uint32
	owned  uint32
}

func (o outOfRange) Error() string {
	return fmt.Sprintf("%s of vertex %d, owned %d", o.what, o.vertex, o.owned)
}
