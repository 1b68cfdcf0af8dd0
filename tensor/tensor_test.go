package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateShapeInference(t *testing.T) {
	m, err := Create(4, 3, 0, 2, DTypeF32, Pack1, nil)
	require.NoError(t, err)
	defer m.Release()

	assert.Equal(t, 3, m.Dims)
	assert.Equal(t, 4, m.W)
	assert.Equal(t, 3, m.H)
	assert.Equal(t, 2, m.C)
	assert.Equal(t, 4*3*2, m.Total())
	assert.GreaterOrEqual(t, m.CStep, m.W*m.H)
}

func TestStorageSoundnessRetainRelease(t *testing.T) {
	m, err := Create(2, 2, 0, 1, DTypeF32, Pack1, nil)
	require.NoError(t, err)

	assert.False(t, m.Shared(), "a freshly created Mat has exactly one handle")

	other := m.Retain()
	assert.True(t, m.Shared())
	assert.True(t, other.Shared())

	other.Release()
	assert.False(t, m.Shared(), "releasing the second handle drops back to sole ownership")

	m.Release()
}

func TestChannelViewIsolatesWrites(t *testing.T) {
	m, err := CreateDims(3, 2, 2, 0, 3, DTypeF32, Pack1, nil)
	require.NoError(t, err)
	defer m.Release()

	for q := 0; q < 3; q++ {
		ch := m.Channel(q)
		for i := 0; i < ch.ChannelSize(); i++ {
			ch.SetF32(i, float32(q*10+i))
		}
	}

	for q := 0; q < 3; q++ {
		ch := m.Channel(q)
		for i := 0; i < ch.ChannelSize(); i++ {
			assert.Equal(t, float32(q*10+i), ch.GetF32(i))
		}
	}
}

func TestChannelViewHonorsCStepPadding(t *testing.T) {
	// A 1x1 f32 rank-3 Mat aligns its channel step to 16 bytes (4
	// elements), well beyond W*H=1: any index math assuming cstep==W*H
	// would alias channel 0 onto channel 1.
	m, err := CreateDims(3, 1, 1, 0, 2, DTypeF32, Pack1, nil)
	require.NoError(t, err)
	defer m.Release()

	require.Greater(t, m.CStep, m.W*m.H)

	m.Channel(0).SetF32(0, 1)
	m.Channel(1).SetF32(0, 2)

	assert.Equal(t, float32(1), m.Channel(0).GetF32(0))
	assert.Equal(t, float32(2), m.Channel(1).GetF32(0))
}

func TestFillScaleHonorCStepPadding(t *testing.T) {
	// Same padded shape as TestChannelViewHonorsCStepPadding but with
	// 4 channels, so a flat 0..Total() loop (Total()==4) would only
	// ever touch channel 0's own CStep(=4)-wide block.
	m, err := CreateDims(3, 1, 1, 0, 4, DTypeF32, Pack1, nil)
	require.NoError(t, err)
	defer m.Release()
	require.Greater(t, m.CStep, m.W*m.H)

	require.NoError(t, m.Fill(3))
	for q := 0; q < 4; q++ {
		assert.Equal(t, float32(3), m.Channel(q).GetF32(0), "Fill must reach channel %d, not just channel 0's padded block", q)
	}

	for q, v := range []float32{1, 2, 3, 4} {
		m.Channel(q).SetF32(0, v)
	}
	require.NoError(t, m.Scale(10))
	for q, v := range []float32{1, 2, 3, 4} {
		assert.Equal(t, v*10, m.Channel(q).GetF32(0), "Scale must reach channel %d, not just channel 0's padded block", q)
	}
}

func TestToF32AndCastHonorCStepPadding(t *testing.T) {
	m, err := CreateDims(3, 1, 1, 0, 4, DTypeF32, Pack1, nil)
	require.NoError(t, err)
	defer m.Release()
	require.Greater(t, m.CStep, m.W*m.H)

	want := []float32{1, 2, 3, 4}
	for q, v := range want {
		m.Channel(q).SetF32(0, v)
	}

	got, err := m.ToF32()
	require.NoError(t, err)
	assert.Equal(t, want, got, "ToF32 must return dense logical values, not channel 0's padded block repeated")

	f16, err := m.Cast(DTypeF16, nil)
	require.NoError(t, err)
	defer f16.Release()
	gotF16, err := f16.ToF32()
	require.NoError(t, err)
	for q, v := range want {
		assert.InDelta(t, v, gotF16[q], 1e-3, "Cast must write channel %d's own slab, not overwrite it from channel 0's padded block", q)
	}
}

func TestReshapePreservesTotal(t *testing.T) {
	m, err := Create(6, 0, 0, 0, DTypeF32, Pack1, nil)
	require.NoError(t, err)
	defer m.Release()
	for i := 0; i < 6; i++ {
		m.SetF32(i, float32(i))
	}

	r, err := m.Reshape(3, 2, 0, 0)
	require.NoError(t, err)
	defer r.Release()

	assert.Equal(t, 2, r.Dims)
	for i := 0; i < 6; i++ {
		assert.Equal(t, float32(i), r.GetF32(i))
	}

	_, err = m.Reshape(4, 0, 0, 0)
	assert.Error(t, err, "reshape must reject a mismatched element count")
}

func TestCloneIsIndependentStorage(t *testing.T) {
	m, err := Create(4, 0, 0, 0, DTypeF32, Pack1, nil)
	require.NoError(t, err)
	defer m.Release()
	require.NoError(t, m.Fill(1))

	c, err := m.Clone(nil)
	require.NoError(t, err)
	defer c.Release()

	c.SetF32(0, 99)
	assert.Equal(t, float32(1), m.GetF32(0), "clone must not alias the source storage")
	assert.True(t, Equal(m, m))
	assert.False(t, Equal(m, c))
}

func TestCastTransitivity(t *testing.T) {
	m, err := Create(5, 0, 0, 0, DTypeF32, Pack1, nil)
	require.NoError(t, err)
	defer m.Release()
	vals := []float32{0, 1, -1, 2.5, -3.5}
	for i, v := range vals {
		m.SetF32(i, v)
	}

	f16, err := m.Cast(DTypeF16, nil)
	require.NoError(t, err)
	defer f16.Release()

	back, err := f16.Cast(DTypeF32, nil)
	require.NoError(t, err)
	defer back.Release()

	got, err := back.ToF32()
	require.NoError(t, err)
	for i, v := range vals {
		assert.InDelta(t, v, got[i], 1e-3, "f32->f16->f32 must round-trip exactly representable values")
	}

	bf16, err := m.Cast(DTypeBF16, nil)
	require.NoError(t, err)
	defer bf16.Release()
	backBF, err := bf16.Cast(DTypeF32, nil)
	require.NoError(t, err)
	defer backBF.Release()
	gotBF, err := backBF.ToF32()
	require.NoError(t, err)
	for i, v := range vals {
		assert.InDelta(t, v, gotBF[i], 0.05, "f32->bf16->f32 loses mantissa bits but preserves magnitude/sign")
	}

	same, err := m.Cast(DTypeF32, nil)
	require.NoError(t, err)
	defer same.Release()
	assert.True(t, Equal(m, same), "casting to the same dtype is a no-op clone")
}

func TestConvertPackingRoundTrip(t *testing.T) {
	m, err := CreateDims(3, 2, 2, 0, 8, DTypeF32, Pack1, nil)
	require.NoError(t, err)
	defer m.Release()

	n := m.Total()
	for i := 0; i < n; i++ {
		m.SetF32(i, float32(i))
	}

	packed, err := m.ConvertPacking(Pack4, nil)
	require.NoError(t, err)
	defer packed.Release()
	assert.Equal(t, Pack4, packed.ElemPack)
	assert.Equal(t, 2, packed.C, "8 logical channels packed 4-wide occupy 2 lanes")

	unpacked, err := packed.ConvertPacking(Pack1, nil)
	require.NoError(t, err)
	defer unpacked.Release()

	assert.True(t, Equal(m, unpacked), "convert_packing(convert_packing(T,k),1) must equal T")
}
