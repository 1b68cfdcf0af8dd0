package engine

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattiml/lattice/extractor"
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/tensor"
)

func writeF32(buf *bytes.Buffer, vals ...float32) {
	for _, v := range vals {
		binary.Write(buf, binary.LittleEndian, math.Float32bits(v))
	}
}

// classifyTopology is the literal end-to-end scenario: a 4x4x1 input
// runs through a stride-2 zero-weight convolution whose only effect is
// its per-output-channel bias, a global average pool, an identity
// fully-connected layer, and a softmax.
const classifyTopology = `LATTICE1
5 5
Input input0 0 1 data
Convolution conv0 1 1 data conv_out 0=4 1=3 2=3 3=2 4=2 5=1 6=1 7=1 8=1 9=1 10=36
Pooling pool0 1 1 conv_out pool_out 0=1 7=1
InnerProduct ip0 1 1 pool_out ip_out 0=4 1=0 2=16
Softmax softmax0 1 1 ip_out prob
`

func classifyWeights() []byte {
	var buf bytes.Buffer
	zeros := make([]float32, 36)
	writeF32(&buf, zeros...)
	writeF32(&buf, 1, 2, 3, 4) // conv bias

	identity := make([]float32, 16)
	for i := 0; i < 4; i++ {
		identity[i*4+i] = 1
	}
	writeF32(&buf, identity...)

	return buf.Bytes()
}

func TestLoadAndExtractClassifyScenario(t *testing.T) {
	net, err := Load(strings.NewReader(classifyTopology), bytes.NewReader(classifyWeights()), option.Default())
	require.NoError(t, err)
	defer net.Close(option.Default())

	in, err := tensor.CreateDims(3, 4, 4, 0, 1, tensor.DTypeF32, tensor.Pack1, nil)
	require.NoError(t, err)
	defer in.Release()
	require.NoError(t, in.Fill(7))

	ext := extractor.New(net, option.Default())
	require.NoError(t, ext.SetInput("data", in))

	out, err := ext.Extract("prob")
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, 4, out.Total())
	var sum float32
	for i := 0; i < 4; i++ {
		sum += out.GetF32(i)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)

	for i := 0; i < 3; i++ {
		assert.Less(t, out.GetF32(i), out.GetF32(i+1), "softmax preserves the logits' increasing order")
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := Load(strings.NewReader("NOPE\n0 0\n"), bytes.NewReader(nil), option.Default())
	assert.Error(t, err)
}

func TestLoadRejectsUnknownLayerType(t *testing.T) {
	topo := "LATTICE1\n1 1\nBogus l0 0 1 out\n"
	_, err := Load(strings.NewReader(topo), bytes.NewReader(nil), option.Default())
	assert.Error(t, err)
}

func TestExtractIsIdempotent(t *testing.T) {
	net, err := Load(strings.NewReader(classifyTopology), bytes.NewReader(classifyWeights()), option.Default())
	require.NoError(t, err)
	defer net.Close(option.Default())

	in, err := tensor.CreateDims(3, 4, 4, 0, 1, tensor.DTypeF32, tensor.Pack1, nil)
	require.NoError(t, err)
	defer in.Release()
	require.NoError(t, in.Fill(7))

	opt := option.Default()
	opt.Lightmode = false // keep intermediates so a second Extract hits the memo, not a recompute

	ext := extractor.New(net, opt)
	require.NoError(t, ext.SetInput("data", in))

	first, err := ext.Extract("prob")
	require.NoError(t, err)
	defer first.Release()

	second, err := ext.Extract("prob")
	require.NoError(t, err)
	defer second.Release()

	assert.True(t, tensor.Equal(first, second))
}
