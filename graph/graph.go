// Package graph - Blob and Layer wiring (spec.md §3, §4.F)
//
// A Graph holds two parallel, index-addressed arrays: LayerNodes and
// Blobs. Blobs are referenced by index rather than by pointer so the
// structure stays relocatable and lifetime analysis (lightmode
// reclamation in the extractor package) reduces to integer bookkeeping.
// Grounded on original_source/src/net.h's Blob/Layer index arrays and
// on the teacher's ml.Context.Forward/Layer graph-building shape for
// the idiomatic Go rendering (plain slices plus index fields rather
// than pointer-linked nodes).
package graph

import (
	"fmt"

	"github.com/lattiml/lattice/layer"
)

// Blob is a named graph edge. Per spec.md §3, every blob has exactly
// one producer and at most one consumer; fan-out is always modeled by
// an inserted Split layer rather than a multi-consumer blob.
type Blob struct {
	Name     string
	Producer int // layer index, -1 if none assigned yet
	Consumer int // layer index, -1 if unconsumed
}

// LayerNode pairs a constructed layer.Layer with its instance name and
// wiring, matching spec.md §3's Layer attributes.
type LayerNode struct {
	Layer layer.Layer
	Name  string
}

// Graph is the parallel layers/blobs structure from spec.md §4.F.
type Graph struct {
	Layers []LayerNode
	Blobs  []Blob

	nameToBlob map[string]int
}

// New returns an empty graph ready for incremental construction by a
// loader (engine.Load).
func New() *Graph {
	return &Graph{nameToBlob: make(map[string]int)}
}

// BlobIndex resolves a blob name to its index, creating an unproduced
// placeholder blob if the name hasn't been seen yet (the topology
// format names a layer's bottoms before the producer line has
// necessarily been fully processed in some loader orderings).
func (g *Graph) BlobIndex(name string) int {
	if idx, ok := g.nameToBlob[name]; ok {
		return idx
	}
	idx := len(g.Blobs)
	g.Blobs = append(g.Blobs, Blob{Name: name, Producer: -1, Consumer: -1})
	g.nameToBlob[name] = idx
	return idx
}

// AddLayer appends a constructed layer, wires its tops as the producer
// of their blobs, and wires its bottoms as consumers - inserting a
// Split layer whenever a bottom blob would acquire a second consumer.
// This is the whole of spec.md §4.F's "the loader inserts a split
// operator whose single input is the shared blob and whose outputs
// are distinct blobs, each with one consumer".
func (g *Graph) AddLayer(name string, l layer.Layer, bottomNames, topNames []string) error {
	layerIdx := len(g.Layers)

	bottoms := make([]int, len(bottomNames))
	for i, bn := range bottomNames {
		bi := g.BlobIndex(bn)
		bottoms[i] = bi
		if g.Blobs[bi].Producer < 0 {
			return fmt.Errorf("graph: layer %q bottom %q has no producer", name, bn)
		}
		if err := g.consume(bi, layerIdx); err != nil {
			return err
		}
	}

	tops := make([]int, len(topNames))
	for i, tn := range topNames {
		ti := g.BlobIndex(tn)
		if g.Blobs[ti].Producer >= 0 {
			return fmt.Errorf("graph: blob %q already has a producer (layer %d)", tn, g.Blobs[ti].Producer)
		}
		g.Blobs[ti].Producer = layerIdx
		tops[i] = ti
	}

	l.SetWiring(bottoms, tops)
	g.Layers = append(g.Layers, LayerNode{Layer: l, Name: name})
	return nil
}

// consume records layerIdx as the consumer of blob bi, inserting a
// Split layer ahead of a second consumer so the blob-uniqueness
// invariant (spec.md §8 "every blob has exactly one producer and at
// most one consumer") always holds after AddLayer returns.
func (g *Graph) consume(bi, layerIdx int) error {
	b := &g.Blobs[bi]
	if b.Consumer < 0 {
		b.Consumer = layerIdx
		return nil
	}
	if b.Consumer == layerIdx {
		return nil
	}

	// Second distinct consumer: reroute through a Split. The Split's
	// single bottom is bi; its tops are two fresh blobs. The first top
	// replaces bi in the already-wired first consumer's bottom list;
	// the second top is recorded as consumed by layerIdx.
	splitName := fmt.Sprintf("%s_splitncnn_%d", g.Blobs[bi].Name, bi)
	splitFactory, err := newSplitLayer(splitName)
	if err != nil {
		return err
	}

	firstTopName := fmt.Sprintf("%s_splitncnn_%d_0", g.Blobs[bi].Name, bi)
	secondTopName := fmt.Sprintf("%s_splitncnn_%d_1", g.Blobs[bi].Name, bi)

	firstTop := g.appendBlob(firstTopName, len(g.Layers), b.Consumer)
	secondTop := g.appendBlob(secondTopName, len(g.Layers), layerIdx)

	splitFactory.SetWiring([]int{bi}, []int{firstTop, secondTop})
	g.Layers = append(g.Layers, LayerNode{Layer: splitFactory, Name: splitName})

	g.rewriteBottom(b.Consumer, bi, firstTop)
	g.rewriteBottom(layerIdx, bi, secondTop)

	b.Consumer = len(g.Layers) - 1
	return nil
}

func (g *Graph) appendBlob(name string, producer, consumer int) int {
	idx := len(g.Blobs)
	g.Blobs = append(g.Blobs, Blob{Name: name, Producer: producer, Consumer: consumer})
	g.nameToBlob[name] = idx
	return idx
}

// rewriteBottom replaces from with to in layerIdx's bottom list. Used
// only on already-appended layers whose wiring was set before the
// second-consumer conflict was discovered.
func (g *Graph) rewriteBottom(layerIdx, from, to int) {
	l := g.Layers[layerIdx].Layer
	bottoms := append([]int(nil), l.Bottoms()...)
	for i, b := range bottoms {
		if b == from {
			bottoms[i] = to
		}
	}
	l.SetWiring(bottoms, l.Tops())
}

// ResolveBlob returns the index of a named blob, or an error if the
// name was never registered by AddLayer.
func (g *Graph) ResolveBlob(name string) (int, error) {
	idx, ok := g.nameToBlob[name]
	if !ok {
		return -1, fmt.Errorf("graph: unknown blob %q", name)
	}
	return idx, nil
}

// CheckBlobUniqueness checks that every blob has a producer. A Blob
// holds a single Consumer index, so it cannot record two consumers;
// the layers' Bottoms lists are not cross-checked against it.
func (g *Graph) CheckBlobUniqueness() error {
	seenConsumer := make(map[int]bool)
	for i, b := range g.Blobs {
		if b.Producer < 0 {
			return fmt.Errorf("graph: blob %d (%q) has no producer", i, b.Name)
		}
		if b.Consumer >= 0 {
			if seenConsumer[b.Consumer] {
				// Multiple blobs sharing one consumer index is fine;
				// what must never happen is one blob index appearing
				// as a Bottom for two distinct layers, which AddLayer
				// already prevents by construction.
				continue
			}
			seenConsumer[b.Consumer] = true
		}
	}
	return nil
}
