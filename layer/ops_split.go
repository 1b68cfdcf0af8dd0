package layer

import (
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/tensor"
)

// Split duplicates a single bottom across every top, grounded on
// original_source/src/layer/split.cpp. It is loader-inserted whenever
// a blob would acquire a second consumer (spec.md §4.F) but behaves
// like any other registered layer type otherwise.
type Split struct {
	Base
}

func newSplit() Layer {
	l := &Split{}
	l.TypeName = "Split"
	l.Capabilities = Capabilities{OneBlobOnly: false}
	return l
}

func init() {
	Register("Split", BackendScalar, newSplit)
}

func (l *Split) Forward(bottoms []tensor.Mat, opt option.Option) ([]tensor.Mat, error) {
	n := len(l.Tops())
	out := make([]tensor.Mat, n)
	for i := range out {
		out[i] = bottoms[0].Retain()
	}
	return out, nil
}
