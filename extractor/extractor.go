// Package extractor - per-request scheduler (spec.md §4.H)
//
// An Extractor owns a per-request tensor table blob_mats sized to the
// graph's blob count, plus a snapshot of Option. Multiple Extractors
// may run concurrently over the same engine.Net because all mutable
// state lives here, not on the Net (spec.md §5). Grounded on
// ml/context.go's Context.Compute/Forward pair for the "separate
// mutable per-call state from immutable loaded state" shape, and on
// original_source/src/net.cpp's Extractor::extract/forward_layer for
// the algorithm itself.
package extractor

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lattiml/lattice/engine"
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/tensor"
)

// Extractor is the scheduler state for one forward-pass request.
type Extractor struct {
	net *engine.Net
	opt option.Option
	id  uuid.UUID

	blobMats []tensor.Mat
	userSet  []bool
}

// New returns an Extractor ready to accept inputs via SetInput, scoped
// to net. opt is copied (spec.md §4.D "Option is copied, not
// referenced, into each forward call").
func New(net *engine.Net, opt option.Option) *Extractor {
	return &Extractor{
		net:      net,
		opt:      opt.Clone(),
		id:       uuid.New(),
		blobMats: make([]tensor.Mat, len(net.Graph.Blobs)),
		userSet:  make([]bool, len(net.Graph.Blobs)),
	}
}

// SetInput deposits a tensor at the named blob (spec.md §4.H
// "input(name, tensor) deposits a tensor at the named blob"). The
// deposited tensor is retained; SetInput-supplied blobs are never
// reclaimed by lightmode (spec.md §4.H step 6).
func (e *Extractor) SetInput(name string, t tensor.Mat) error {
	idx, err := e.net.Graph.ResolveBlob(name)
	if err != nil {
		return err
	}
	if !e.blobMats[idx].Empty() {
		e.blobMats[idx].Release()
	}
	e.blobMats[idx] = t.Retain()
	e.userSet[idx] = true
	return nil
}

// Extract returns the tensor at the named blob, computing it (and
// everything it depends on) on demand. Calling Extract twice for the
// same name within one Extractor returns equal tensors without
// recomputing (spec.md §8 "Idempotence of extract"), since the second
// call finds blob_mats already populated.
func (e *Extractor) Extract(name string) (tensor.Mat, error) {
	idx, err := e.net.Graph.ResolveBlob(name)
	if err != nil {
		return tensor.Mat{}, err
	}

	b := e.net.Graph.Blobs[idx]
	if b.Producer < 0 {
		return tensor.Mat{}, fmt.Errorf("extractor: blob %q has no producer", name)
	}

	if err := e.forwardLayer(b.Producer); err != nil {
		return tensor.Mat{}, err
	}
	if e.blobMats[idx].Empty() {
		return tensor.Mat{}, fmt.Errorf("extractor: blob %q not populated after forward_layer", name)
	}
	return e.blobMats[idx].Retain(), nil
}

// forwardLayer implements spec.md §4.H's algorithm.
func (e *Extractor) forwardLayer(layerIdx int) error {
	node := e.net.Graph.Layers[layerIdx]
	l := node.Layer
	tops := l.Tops()
	bottoms := l.Bottoms()

	// Step 1: already computed.
	allToppsDone := true
	for _, t := range tops {
		if e.blobMats[t].Empty() {
			allToppsDone = false
			break
		}
	}
	if allToppsDone && len(tops) > 0 {
		return nil
	}

	// Step 2: recursively resolve bottoms.
	for _, b := range bottoms {
		if e.blobMats[b].Empty() {
			producer := e.net.Graph.Blobs[b].Producer
			if producer < 0 {
				return fmt.Errorf("extractor: blob %d (%q) has no producer and no value", b, e.net.Graph.Blobs[b].Name)
			}
			if err := e.forwardLayer(producer); err != nil {
				return err
			}
		}
	}

	slog.Debug("forward_layer", "extractor", e.id, "layer", node.Name, "type", l.Type())

	caps := l.Caps()

	if caps.OneBlobOnly && len(bottoms) == 1 && len(tops) == 1 {
		bottom := e.blobMats[bottoms[0]]

		// Step 3: in-place admissibility.
		sole := e.net.Graph.Blobs[bottoms[0]].Consumer == layerIdx
		if caps.SupportInplace && sole && e.opt.Lightmode {
			work := bottom
			if bottom.Shared() {
				cloned, err := bottom.Clone(allocatorFor(e.opt))
				if err != nil {
					return err
				}
				work = cloned
			} else {
				work = bottom.Retain()
			}
			if err := l.ForwardInplace(&work, e.opt); err != nil {
				work.Release()
				return err
			}
			e.blobMats[tops[0]] = work
		} else {
			out, err := l.ForwardOne(bottom, e.opt)
			if err != nil {
				return err
			}
			e.blobMats[tops[0]] = out
		}
	} else {
		ins := make([]tensor.Mat, len(bottoms))
		for i, b := range bottoms {
			ins[i] = e.blobMats[b]
		}
		outs, err := l.Forward(ins, e.opt)
		if err != nil {
			return err
		}
		if len(outs) != len(tops) {
			return fmt.Errorf("extractor: layer %q produced %d outputs, wired for %d", node.Name, len(outs), len(tops))
		}
		for i, t := range tops {
			e.blobMats[t] = outs[i]
		}
	}

	// Step 6: lightmode reclamation. Inputs deposited via SetInput are
	// never reclaimed.
	if e.opt.Lightmode {
		for _, b := range bottoms {
			if e.userSet[b] {
				continue
			}
			if e.net.Graph.Blobs[b].Consumer == layerIdx {
				e.blobMats[b].Release()
				e.blobMats[b] = tensor.Mat{}
			}
		}
	}

	return nil
}
