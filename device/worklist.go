package device

import (
	"fmt"
	"math"
	"slices"
	"sync/atomic"

	"github.com/ScottSallinen/lollipop-gg/utils"
)

// Admission decides which pushes enter a frontier.
type Admission uint8

const (
	// AdmitOnce admits a vertex at most once per round; later pushes of it are dropped.
	AdmitOnce Admission = iota
	// AdmitAll admits every push. A vertex may appear several times in one frontier.
	AdmitAll
)

func (a Admission) String() string {
	switch a {
	case AdmitOnce:
		return "once"
	case AdmitAll:
		return "all"
	}
	return fmt.Sprintf("Admission(%d)", uint8(a))
}

func ParseAdmission(s string) (Admission, error) {
	switch s {
	case "", "once", "dedup":
		return AdmitOnce, nil
	case "all", "dup":
		return AdmitAll, nil
	}
	return 0, fmt.Errorf("unknown admission policy %q", s)
}

func (a *Admission) UnmarshalText(text []byte) (err error) {
	*a, err = ParseAdmission(string(text))
	return err
}

func (a Admission) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// emptySlot marks a consumed frontier entry.
const emptySlot = math.MaxUint32

// Worklist is one device-resident frontier.
type Worklist struct {
	items  []uint32
	dindex uint32 // Device-side item count.
	count  int    // Host-side item count, valid after UpdateCPU.
	owned  uint32
	policy Admission
	seen   utils.Bitmap
}

// NewWorklist holds up to capacity items of vertices in [0, owned).
func NewWorklist(capacity, owned uint32, policy Admission) *Worklist {
	wl := &Worklist{items: make([]uint32, capacity), owned: owned, policy: policy}
	if policy == AdmitOnce {
		wl.seen = utils.NewBitmap(owned)
	}
	return wl
}

func (wl *Worklist) Capacity() uint32 { return uint32(len(wl.items)) }

// WillWrite announces that the device is about to produce this frontier.
func (wl *Worklist) WillWrite() {
	wl.count = 0
}

// Reset empties the frontier and forgets admissions.
func (wl *Worklist) Reset() {
	atomic.StoreUint32(&wl.dindex, 0)
	if wl.seen != nil {
		wl.seen.Zeroes()
	}
}

// UpdateGPU sets the device count from the host count of items already in place.
func (wl *Worklist) UpdateGPU(n int) {
	atomic.StoreUint32(&wl.dindex, uint32(n))
}

// UpdateCPU copies the device count back to the host.
func (wl *Worklist) UpdateCPU() {
	wl.count = int(atomic.LoadUint32(&wl.dindex))
}

// NItems is the host-side count.
func (wl *Worklist) NItems() int { return wl.count }

// Items returns a copy of the first n slots.
func (wl *Worklist) Items(n int) []uint32 {
	return slices.Clone(wl.items[:n])
}

// Load places items as an incoming frontier without going through a kernel.
func (wl *Worklist) Load(items []uint32) {
	n := copy(wl.items, items)
	wl.count = n
	atomic.StoreUint32(&wl.dindex, uint32(n))
}

func (wl *Worklist) size() uint32 {
	return atomic.LoadUint32(&wl.dindex)
}

// push runs on the device. Exceeding capacity or pushing an unowned vertex faults.
func (wl *Worklist) push(v uint32) {
	if v >= wl.owned {
		panic(outOfRange{what: "push", vertex: v, owned: wl.owned})
	}
	if wl.policy == AdmitOnce && !wl.seen.TestAndSet(v) {
		return
	}
	slot := atomic.AddUint32(&wl.dindex, 1) - 1
	if slot >= uint32(len(wl.items)) {
		panic(overflow{capacity: uint32(len(wl.items))})
	}
	atomic.StoreUint32(&wl.items[slot], v)
}

// popID runs on the device. It takes slot i, which can succeed once.
func (wl *Worklist) popID(i uint32) (uint32, bool) {
	if i >= wl.size() {
		return 0, false
	}
	v := atomic.SwapUint32(&wl.items[i], emptySlot)
	if v == emptySlot {
		return 0, false
	}
	return v, true
}
