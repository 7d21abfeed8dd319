package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ScottSallinen/lollipop-gg/ir"
)

func TestWorklistPopOnce(t *testing.T) {
	wl := NewWorklist(4, 10, AdmitAll)
	wl.Load([]uint32{3, 7})

	v, ok := wl.popID(1)
	require.True(t, ok)
	assert.Equal(t, uint32(7), v)

	_, ok = wl.popID(1)
	assert.False(t, ok, "a slot is delivered once")
	_, ok = wl.popID(2)
	assert.False(t, ok, "slots past the count are empty")
	_, ok = wl.popID(100)
	assert.False(t, ok)
}

func TestWorklistAdmission(t *testing.T) {
	once := NewWorklist(8, 8, AdmitOnce)
	all := NewWorklist(8, 8, AdmitAll)
	for _, wl := range []*Worklist{once, all} {
		wl.WillWrite()
		wl.Reset()
		for _, v := range []uint32{2, 5, 2, 2} {
			wl.push(v)
		}
		wl.UpdateCPU()
	}
	assert.Equal(t, 2, once.NItems())
	assert.ElementsMatch(t, []uint32{2, 5}, once.Items(once.NItems()))
	assert.Equal(t, 4, all.NItems())

	// Admissions are forgotten on reset.
	once.Reset()
	once.push(2)
	once.UpdateCPU()
	assert.Equal(t, 1, once.NItems())
}

func TestWorklistFaults(t *testing.T) {
	wl := NewWorklist(2, 4, AdmitAll)
	wl.push(1)
	wl.push(1)
	assert.PanicsWithValue(t, overflow{capacity: 2}, func() { wl.push(1) })
	assert.Panics(t, func() { wl.push(4) }, "vertices past the owned range fault")
}

func TestAdmissionFromConfig(t *testing.T) {
	var opts Options
	require.NoError(t, yaml.Unmarshal([]byte("admission: all\nparallelism: 3\n"), &opts))
	assert.Equal(t, AdmitAll, opts.Admission)
	assert.Equal(t, 3, opts.Parallelism)

	require.Error(t, yaml.Unmarshal([]byte("admission: sometimes\n"), &opts))

	a, err := ParseAdmission("")
	require.NoError(t, err)
	assert.Equal(t, AdmitOnce, a)
	assert.Equal(t, "once", a.String())
}

func TestArrayResidency(t *testing.T) {
	a := NewArray("dist", ir.TypeUint32, 3)
	a.SetUint32s([]uint32{4, 5, 6})
	assert.True(t, a.devStale)

	dev := a.GPUWrite()
	assert.Equal(t, []uint32{4, 5, 6}, dev, "device copy is refreshed before use")
	dev[1] = 50
	assert.True(t, a.hostStale)

	assert.Equal(t, []uint32{4, 50, 6}, a.Uint32s())
	assert.False(t, a.hostStale)

	f := NewArray("rank", ir.TypeFloat32, 2)
	f.SetFloat32s([]float32{0.5, -1})
	f.GPURead()
	assert.Equal(t, []float32{0.5, -1}, f.Float32s())

	i := NewArray("delta", ir.TypeInt32, 1)
	i.SetUint32s([]uint32{uint32(0xFFFFFFFF)})
	assert.Equal(t, []int32{-1}, i.Int32s())
}
