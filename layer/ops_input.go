package layer

import (
	"fmt"

	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/tensor"
)

// Input is the graph's entry layer: zero bottoms, one top. Its top
// blob is meant to be populated directly by Extractor.SetInput (spec.md
// §4.H "input(name, tensor) deposits a tensor at the named blob")
// before extract ever reaches it; Forward only runs, and only fails,
// when the caller forgot to supply that input.
type Input struct {
	Base
}

func newInput() Layer {
	l := &Input{}
	l.Capabilities = Capabilities{OneBlobOnly: false}
	return l
}

func init() {
	Register("Input", BackendScalar, newInput)
}

func (l *Input) Forward(bottoms []tensor.Mat, opt option.Option) ([]tensor.Mat, error) {
	return nil, fmt.Errorf("layer: Input %q has no value; call Extractor.SetInput first", l.InstanceName)
}
