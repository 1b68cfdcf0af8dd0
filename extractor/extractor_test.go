package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattiml/lattice/engine"
	"github.com/lattiml/lattice/graph"
	"github.com/lattiml/lattice/layer"
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/tensor"
)

func mustLayer(t *testing.T, typeName string) layer.Layer {
	t.Helper()
	l, err := layer.Create(typeName, layer.ResolveOptions{})
	require.NoError(t, err)
	return l
}

// linearNet builds Input(data) -> ReLU(relu_out), a minimal graph good
// enough to exercise the scheduler without the full topology parser.
func linearNet(t *testing.T) *engine.Net {
	t.Helper()
	g := graph.New()

	require.NoError(t, g.AddLayer("in", mustLayer(t, "Input"), nil, []string{"data"}))
	require.NoError(t, g.AddLayer("relu0", mustLayer(t, "ReLU"), []string{"data"}, []string{"relu_out"}))

	return &engine.Net{Graph: g}
}

func TestSetInputThenExtract(t *testing.T) {
	net := linearNet(t)

	in, err := tensor.CreateDims(1, 3, 0, 0, 0, tensor.DTypeF32, tensor.Pack1, nil)
	require.NoError(t, err)
	defer in.Release()
	for i, v := range []float32{-1, 0, 2} {
		in.SetF32(i, v)
	}

	ext := New(net, option.Default())
	require.NoError(t, ext.SetInput("data", in))

	out, err := ext.Extract("relu_out")
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, float32(0), out.GetF32(0))
	assert.Equal(t, float32(0), out.GetF32(1))
	assert.Equal(t, float32(2), out.GetF32(2))
}

func TestExtractUnknownBlobFails(t *testing.T) {
	net := linearNet(t)
	ext := New(net, option.Default())
	_, err := ext.Extract("nonexistent")
	assert.Error(t, err)
}

func TestExtractWithoutInputFails(t *testing.T) {
	net := linearNet(t)
	ext := New(net, option.Default())
	_, err := ext.Extract("relu_out")
	assert.Error(t, err, "Input's Forward must fail when SetInput was never called")
}

func TestInPlaceForwardClonesSharedInput(t *testing.T) {
	net := linearNet(t)

	in, err := tensor.CreateDims(1, 2, 0, 0, 0, tensor.DTypeF32, tensor.Pack1, nil)
	require.NoError(t, err)
	in.SetF32(0, -5)
	in.SetF32(1, 3)
	defer in.Release()

	opt := option.Default()
	opt.Lightmode = true

	ext := New(net, opt)
	require.NoError(t, ext.SetInput("data", in))

	out, err := ext.Extract("relu_out")
	require.NoError(t, err)
	defer out.Release()

	// ReLU is in-place eligible and sole-consumer here, but SetInput's
	// Retain keeps a second handle alive, so the scheduler must clone
	// before mutating: the caller's own tensor must read back unchanged.
	assert.Equal(t, float32(-5), in.GetF32(0))
	assert.Equal(t, float32(3), in.GetF32(1))
	assert.Equal(t, float32(0), out.GetF32(0))
	assert.Equal(t, float32(3), out.GetF32(1))
}

func TestLightmodeNeverReclaimsUserSetBlob(t *testing.T) {
	net := linearNet(t)

	in, err := tensor.CreateDims(1, 2, 0, 0, 0, tensor.DTypeF32, tensor.Pack1, nil)
	require.NoError(t, err)
	defer in.Release()
	require.NoError(t, in.Fill(1))

	opt := option.Default()
	opt.Lightmode = true

	ext := New(net, opt)
	require.NoError(t, ext.SetInput("data", in))

	_, err = ext.Extract("relu_out")
	require.NoError(t, err)

	// The "data" blob was deposited via SetInput, so even though ReLU
	// consumed it under lightmode, it must still be readable afterward
	// rather than having been reclaimed like an ordinary intermediate.
	data, err := ext.Extract("data")
	require.NoError(t, err)
	defer data.Release()
	assert.Equal(t, float32(1), data.GetF32(0))
}

func TestExtractIdempotentAcrossCalls(t *testing.T) {
	net := linearNet(t)

	in, err := tensor.CreateDims(1, 2, 0, 0, 0, tensor.DTypeF32, tensor.Pack1, nil)
	require.NoError(t, err)
	defer in.Release()
	require.NoError(t, in.Fill(4))

	ext := New(net, option.Default())
	require.NoError(t, ext.SetInput("data", in))

	first, err := ext.Extract("relu_out")
	require.NoError(t, err)
	defer first.Release()

	second, err := ext.Extract("relu_out")
	require.NoError(t, err)
	defer second.Release()

	assert.True(t, tensor.Equal(first, second))
}
