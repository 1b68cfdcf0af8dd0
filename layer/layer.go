// Package layer - the operator contract and dispatch mechanism
//
// Implements spec.md §3 "Layer" and §4.E "Layer contract": every
// operator exposes LoadParam, LoadModel, CreatePipeline,
// DestroyPipeline, and one or more Forward variants gated by
// capability flags. Grounded on original_source/src/layer.h for the
// contract shape and on the teacher's ml.Backend/ml.Context interface
// pair for the idiomatic Go rendering of a small closed interface
// (spec.md §9: "keep this a small closed interface rather than a
// generic plug-in system").
package layer

import (
	"github.com/lattiml/lattice/modelbin"
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/paramdict"
	"github.com/lattiml/lattice/tensor"
)

// Capabilities advertises which Forward variants and storage types a
// layer instance supports, per spec.md §3/§4.E.
type Capabilities struct {
	// OneBlobOnly marks a layer as taking exactly one input and
	// producing exactly one output, enabling the single-Mat Forward
	// variant.
	OneBlobOnly bool

	// SupportInplace marks a layer eligible for forward_inplace when
	// the scheduler determines in-place execution is admissible
	// (spec.md §4.H step 3).
	SupportInplace bool

	SupportPacking     bool
	SupportBF16Storage bool
	SupportFP16Storage bool
	SupportInt8Storage bool

	// SupportVulkan marks a layer as having a GPU-capable
	// implementation registered under BackendGPU.
	SupportVulkan bool

	// Featmask is advisory: spec.md §9 states its semantics are
	// loosely defined upstream and implementers should treat it as a
	// hint, never a hard veto enforced by the scheduler itself.
	Featmask int
}

// Layer is the operator contract. Concrete layers embed Base (below)
// to get sane zero-value capability flags and only override what they
// need.
type Layer interface {
	Type() string
	Name() string
	Caps() Capabilities

	Bottoms() []int
	Tops() []int
	SetWiring(bottoms, tops []int)

	LoadParam(pd *paramdict.Dict) error
	LoadModel(mb *modelbin.Reader) error
	CreatePipeline(opt option.Option) error
	DestroyPipeline(opt option.Option) error

	// Forward is used when OneBlobOnly is false: multiple inputs,
	// multiple outputs.
	Forward(bottoms []tensor.Mat, opt option.Option) ([]tensor.Mat, error)

	// ForwardOne is used when OneBlobOnly is true.
	ForwardOne(bottom tensor.Mat, opt option.Option) (tensor.Mat, error)

	// ForwardInplace mutates bottom in place when SupportInplace is
	// true and the scheduler has determined in-place execution is
	// admissible. Single-blob form, matching the OneBlobOnly case.
	ForwardInplace(inout *tensor.Mat, opt option.Option) error
}

// Base provides the bookkeeping every concrete layer needs (wiring,
// name/type, zero-value capability flags) so operator files only
// implement the methods their semantics actually require. Embedding
// Base and overriding Forward/ForwardOne/ForwardInplace/Caps is the
// "small closed interface" pattern spec.md §9 asks for.
type Base struct {
	TypeName     string
	InstanceName string
	Capabilities Capabilities

	bottoms []int
	tops    []int
}

func (b *Base) Type() string       { return b.TypeName }
func (b *Base) Name() string       { return b.InstanceName }
func (b *Base) Caps() Capabilities { return b.Capabilities }
func (b *Base) Bottoms() []int     { return b.bottoms }
func (b *Base) Tops() []int        { return b.tops }

func (b *Base) SetWiring(bottoms, tops []int) {
	b.bottoms = bottoms
	b.tops = tops
}

// SetNames lets a loader (or loader-inserted split) assign the
// instance name after construction, since factories only know the
// type name at registration time.
func (b *Base) SetNames(typeName, instanceName string) {
	b.TypeName = typeName
	b.InstanceName = instanceName
}

func (b *Base) LoadParam(*paramdict.Dict) error     { return nil }
func (b *Base) LoadModel(*modelbin.Reader) error    { return nil }
func (b *Base) CreatePipeline(option.Option) error  { return nil }
func (b *Base) DestroyPipeline(option.Option) error { return nil }

func (b *Base) Forward(bottoms []tensor.Mat, opt option.Option) ([]tensor.Mat, error) {
	return nil, errNotImplemented(b.TypeName, "Forward")
}

func (b *Base) ForwardOne(bottom tensor.Mat, opt option.Option) (tensor.Mat, error) {
	return tensor.Mat{}, errNotImplemented(b.TypeName, "ForwardOne")
}

func (b *Base) ForwardInplace(inout *tensor.Mat, opt option.Option) error {
	return errNotImplemented(b.TypeName, "ForwardInplace")
}
