package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattiml/lattice/alloc"
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/paramdict"
	"github.com/lattiml/lattice/tensor"
)

func newF32(t *testing.T, dims, w, h, d, c int, vals []float32) tensor.Mat {
	t.Helper()
	m, err := tensor.CreateDims(dims, w, h, d, c, tensor.DTypeF32, tensor.Pack1, nil)
	require.NoError(t, err)
	for i, v := range vals {
		m.SetF32(i, v)
	}
	return m
}

func paramsOf(t *testing.T, kv map[int]paramdict.Value) *paramdict.Dict {
	t.Helper()
	pd := paramdict.New()
	for k, v := range kv {
		require.NoError(t, pd.Set(k, v))
	}
	return pd
}

func TestReLUFixedPoint(t *testing.T) {
	l := newReLU()
	require.NoError(t, l.LoadParam(paramsOf(t, map[int]paramdict.Value{
		0: {Kind: paramdict.KindFloat, Float: 0},
	})))

	in := newF32(t, 1, 3, 0, 0, 0, []float32{1, 2, 3})
	defer in.Release()

	out, err := l.ForwardOne(in, option.Default())
	require.NoError(t, err)
	defer out.Release()

	for i := 0; i < 3; i++ {
		assert.Equal(t, in.GetF32(i), out.GetF32(i), "plain ReLU is a fixed point on already-positive input")
	}
}

func TestLeakyReLUNegativeSlope(t *testing.T) {
	l := newReLU()
	require.NoError(t, l.LoadParam(paramsOf(t, map[int]paramdict.Value{
		0: {Kind: paramdict.KindFloat, Float: 0.1},
	})))

	in := newF32(t, 1, 4, 0, 0, 0, []float32{-10, -1, 0, 5})
	defer in.Release()

	out, err := l.ForwardOne(in, option.Default())
	require.NoError(t, err)
	defer out.Release()

	assert.InDelta(t, -1.0, out.GetF32(0), 1e-6)
	assert.InDelta(t, -0.1, out.GetF32(1), 1e-6)
	assert.InDelta(t, 0.0, out.GetF32(2), 1e-6)
	assert.InDelta(t, 5.0, out.GetF32(3), 1e-6)
}

func TestBiasBroadcastPerChannel(t *testing.T) {
	l := newBias().(*Bias)
	l.Channels = 2
	l.Weights = []float32{10, -5}

	// A 2x1 slab is padded to a CStep of 4, so each channel is written
	// through its own view rather than by flat index.
	in := newF32(t, 3, 2, 1, 0, 2, nil)
	defer in.Release()
	for i, v := range []float32{1, 2, 3, 4} {
		in.Channel(i/2).SetF32(i%2, v)
	}

	out, err := l.ForwardOne(in, option.Default())
	require.NoError(t, err)
	defer out.Release()

	ch0 := out.Channel(0)
	ch1 := out.Channel(1)
	assert.Equal(t, float32(11), ch0.GetF32(0))
	assert.Equal(t, float32(12), ch0.GetF32(1))
	assert.Equal(t, float32(-2), ch1.GetF32(0))
	assert.Equal(t, float32(-1), ch1.GetF32(1))
}

func TestSliceByIndex(t *testing.T) {
	l := newSlice().(*Slice)
	l.Indices = []int{2}
	l.Axis = 0 // w-axis on a rank-1 input

	in := newF32(t, 1, 5, 0, 0, 0, []float32{0, 1, 2, 3, 4})
	defer in.Release()

	outs, err := l.Forward([]tensor.Mat{in}, option.Default())
	require.NoError(t, err)
	require.Len(t, outs, 2)
	defer outs[0].Release()
	defer outs[1].Release()

	assert.Equal(t, 2, outs[0].W)
	assert.Equal(t, 3, outs[1].W)
	assert.Equal(t, []float32{0, 1}, []float32{outs[0].GetF32(0), outs[0].GetF32(1)})
	assert.Equal(t, []float32{2, 3, 4}, []float32{outs[1].GetF32(0), outs[1].GetF32(1), outs[1].GetF32(2)})
}

func TestConcatThenSliceRoundTrip(t *testing.T) {
	a := newF32(t, 3, 2, 2, 0, 1, []float32{1, 2, 3, 4})
	defer a.Release()
	b := newF32(t, 3, 2, 2, 0, 2, []float32{5, 6, 7, 8, 9, 10, 11, 12})
	defer b.Release()

	concat := newConcat().(*Concat)
	concat.Axis = 0 // channel axis

	joined, err := concat.Forward([]tensor.Mat{a, b}, option.Default())
	require.NoError(t, err)
	require.Len(t, joined, 1)
	defer joined[0].Release()
	require.Equal(t, 3, joined[0].C)

	slice := newSlice().(*Slice)
	slice.Axis = 0
	slice.Indices = []int{1}

	split, err := slice.Forward(joined, option.Default())
	require.NoError(t, err)
	require.Len(t, split, 2)
	defer split[0].Release()
	defer split[1].Release()

	assert.True(t, tensor.Equal(a, split[0]), "slicing a concat back at the join boundary must recover the first input")
	assert.True(t, tensor.Equal(b, split[1]), "slicing a concat back at the join boundary must recover the second input")
}

func TestPoolingGlobalAverage(t *testing.T) {
	l := newPooling().(*Pooling)
	l.PoolingType = poolAvg
	l.GlobalPooling = true

	in := newF32(t, 3, 2, 2, 0, 1, []float32{1, 2, 3, 4})
	defer in.Release()

	out, err := l.ForwardOne(in, option.Default())
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, 1, out.W)
	assert.Equal(t, 1, out.H)
	assert.InDelta(t, 2.5, out.GetF32(0), 1e-6)
}

func TestConvolutionZeroWeightsPlusBias(t *testing.T) {
	l := newConvolution().(*Convolution)
	l.NumOutput = 4
	l.KernelW, l.KernelH = 3, 3
	l.StrideW, l.StrideH = 2, 2
	l.PadW, l.PadH = 1, 1
	l.DilationW, l.DilationH = 1, 1
	l.HasBias = true
	l.inChannels = 1
	l.weights = make([]float32, l.NumOutput*l.inChannels*l.KernelH*l.KernelW)
	l.bias = []float32{1, 2, 3, 4}

	in, err := tensor.CreateDims(3, 4, 4, 0, 1, tensor.DTypeF32, tensor.Pack1, nil)
	require.NoError(t, err)
	defer in.Release()
	require.NoError(t, in.Fill(7))

	out, err := l.ForwardOne(in, option.Default())
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, 4, out.C)
	require.Equal(t, 2, out.W)
	require.Equal(t, 2, out.H)
	for oc := 0; oc < 4; oc++ {
		ch := out.Channel(oc)
		for i := 0; i < ch.ChannelSize(); i++ {
			assert.Equal(t, l.bias[oc], ch.GetF32(i), "zero weights leave only the per-output-channel bias")
		}
	}
}

func TestInnerProductIdentity(t *testing.T) {
	l := newInnerProduct().(*InnerProduct)
	l.NumOutput = 3
	l.inChannels = 3
	l.weights = []float32{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}

	in := newF32(t, 1, 3, 0, 0, 0, []float32{4, 5, 6})
	defer in.Release()

	out, err := l.ForwardOne(in, option.Default())
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, float32(4), out.GetF32(0))
	assert.Equal(t, float32(5), out.GetF32(1))
	assert.Equal(t, float32(6), out.GetF32(2))
}

func TestReLUHonorsCStepPaddingAcrossChannels(t *testing.T) {
	l := newReLU()
	require.NoError(t, l.LoadParam(paramsOf(t, map[int]paramdict.Value{
		0: {Kind: paramdict.KindFloat, Float: 0.5},
	})))

	// 1x1 spatial, 4 channels: CStep (4 elements, 16-byte aligned) is
	// wider than the 1-element real slab per channel, the same shape
	// a global-average Pooling output takes.
	in, err := tensor.CreateDims(3, 1, 1, 0, 4, tensor.DTypeF32, tensor.Pack1, nil)
	require.NoError(t, err)
	defer in.Release()
	vals := []float32{-1, -2, -3, -4}
	for q, v := range vals {
		in.Channel(q).SetF32(0, v)
	}

	out, err := l.ForwardOne(in, option.Default())
	require.NoError(t, err)
	defer out.Release()

	for q, v := range vals {
		assert.InDelta(t, v*0.5, out.Channel(q).GetF32(0), 1e-6, "channel %d must read its own slab, not channel 0's padded block", q)
	}
}

func TestSoftmaxHonorsCStepPaddingAcrossChannels(t *testing.T) {
	l := newSoftmax()

	in, err := tensor.CreateDims(3, 1, 1, 0, 4, tensor.DTypeF32, tensor.Pack1, nil)
	require.NoError(t, err)
	defer in.Release()
	vals := []float32{0, 1, 2, 3}
	for q, v := range vals {
		in.Channel(q).SetF32(0, v)
	}

	out, err := l.ForwardOne(in, option.Default())
	require.NoError(t, err)
	defer out.Release()

	var sum float32
	prev := float32(-1)
	for q := range vals {
		v := out.Channel(q).GetF32(0)
		assert.Greater(t, v, prev, "softmax must preserve the strictly increasing input order across channels")
		prev = v
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestSoftmaxSumsToOne(t *testing.T) {
	l := newSoftmax()

	in := newF32(t, 1, 3, 0, 0, 0, []float32{1, 2, 3})
	defer in.Release()

	out, err := l.ForwardOne(in, option.Default())
	require.NoError(t, err)
	defer out.Release()

	var sum float32
	for i := 0; i < 3; i++ {
		v := out.GetF32(i)
		assert.Greater(t, v, float32(0))
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestAllocatorForFallsBackToDefault(t *testing.T) {
	assert.Equal(t, alloc.Default, allocatorFor(option.Option{}))

	p := alloc.NewPool(0)
	opt := option.Option{BlobAllocator: p}
	assert.Same(t, p, allocatorFor(opt))
}
