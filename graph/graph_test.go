package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattiml/lattice/layer"
)

func mustLayer(t *testing.T, typeName string) layer.Layer {
	t.Helper()
	l, err := layer.Create(typeName, layer.ResolveOptions{})
	require.NoError(t, err)
	return l
}

func TestAddLayerWiresProducerConsumer(t *testing.T) {
	g := New()

	input := mustLayer(t, "Input")
	require.NoError(t, g.AddLayer("in", input, nil, []string{"t0"}))

	relu := mustLayer(t, "ReLU")
	require.NoError(t, g.AddLayer("r1", relu, []string{"t0"}, []string{"t1"}))

	require.NoError(t, g.CheckBlobUniqueness())

	idx, err := g.ResolveBlob("t0")
	require.NoError(t, err)
	assert.Equal(t, 0, g.Blobs[idx].Producer)
	assert.Equal(t, 1, g.Blobs[idx].Consumer)
}

func TestAddLayerRejectsUnproducedBottom(t *testing.T) {
	g := New()
	relu := mustLayer(t, "ReLU")
	err := g.AddLayer("r1", relu, []string{"nope"}, []string{"t1"})
	assert.Error(t, err)
}

func TestAddLayerInsertsSplitOnSecondConsumer(t *testing.T) {
	g := New()

	input := mustLayer(t, "Input")
	require.NoError(t, g.AddLayer("in", input, nil, []string{"t0"}))

	r1 := mustLayer(t, "ReLU")
	require.NoError(t, g.AddLayer("r1", r1, []string{"t0"}, []string{"t1"}))

	r2 := mustLayer(t, "ReLU")
	require.NoError(t, g.AddLayer("r2", r2, []string{"t0"}, []string{"t2"}))

	require.NoError(t, g.CheckBlobUniqueness())

	// A Split layer must now sit between t0's producer and both consumers.
	var splitIdx = -1
	for i, node := range g.Layers {
		if node.Layer.Type() == "Split" {
			splitIdx = i
		}
	}
	require.NotEqual(t, -1, splitIdx, "a second consumer of t0 must trigger split insertion")

	split := g.Layers[splitIdx].Layer
	require.Len(t, split.Bottoms(), 1)
	assert.Equal(t, 0, split.Bottoms()[0], "the split's sole input is t0's blob index")
	require.Len(t, split.Tops(), 2)

	// r1 and r2 must have been rewired off t0 onto the split's two tops.
	assert.NotEqual(t, 0, r1.Bottoms()[0])
	assert.NotEqual(t, 0, r2.Bottoms()[0])
	assert.Contains(t, split.Tops(), r1.Bottoms()[0])
	assert.Contains(t, split.Tops(), r2.Bottoms()[0])
}

func TestBlobIndexCreatesPlaceholder(t *testing.T) {
	g := New()
	idx := g.BlobIndex("future")
	assert.Equal(t, -1, g.Blobs[idx].Producer)
	assert.Equal(t, idx, g.BlobIndex("future"), "resolving the same name twice returns the same index")
}
