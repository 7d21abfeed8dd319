package framework

import (
	"context"
	"fmt"

	"github.com/ScottSallinen/lollipop-gg/device"
	"github.com/ScottSallinen/lollipop-gg/ir"
)

// Params are scalar program parameters by name.
type Params map[string]*ir.Const

// Phase runs one round of one kernel. Callers never see the split between the host wrapper and
// the device kernel.
type Phase struct {
	Info ir.PhaseInfo
	dev  *device.Context
}

func (p *Phase) Name() string { return p.Info.Name }

// Run sweeps [begin, end) of a node-sweep phase and returns its reduction value (0 without one).
func (p *Phase) Run(ctx context.Context, begin, end uint32, params Params) (int, error) {
	if p.Info.Worklist {
		return 0, fmt.Errorf("framework: %s sweeps the frontier and takes no range", p.Info.Name)
	}
	return p.dev.Call(ctx, p.Info.Wrapper, device.HostArgs{Begin: begin, End: end, Params: params})
}

// RunAll sweeps every owned vertex, or the whole incoming frontier of a worklist phase.
func (p *Phase) RunAll(ctx context.Context, params Params) (int, error) {
	wrapper := p.Info.AllWrapper
	if p.Info.Worklist {
		wrapper = p.Info.Wrapper
	}
	return p.dev.Call(ctx, wrapper, device.HostArgs{Params: params})
}
