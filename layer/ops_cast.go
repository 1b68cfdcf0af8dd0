package layer

import (
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/paramdict"
	"github.com/lattiml/lattice/tensor"
)

// Cast wraps tensor.Cast as a layer, the scheduler-inserted
// "collaborator" spec.md §4.E refers to: "if a layer must accept f16
// input but only implements f32, the scheduler inserts a cast
// collaborator". This module doesn't implement that auto-insertion
// (no mixed-precision built-in kernels ship), but Cast is registered
// so a topology file can name one explicitly and so extractor tests
// can exercise cast transitivity (spec.md §8) through the ordinary
// layer path rather than calling tensor.Cast directly.
//
// Param layout: 0 DType (tensor.DType numeric value).
type Cast struct {
	Base

	ToType tensor.DType
}

func newCast() Layer {
	l := &Cast{}
	l.Capabilities = Capabilities{OneBlobOnly: true}
	return l
}

func init() {
	Register("Cast", BackendScalar, newCast)
}

func (l *Cast) LoadParam(pd *paramdict.Dict) error {
	l.ToType = tensor.DType(pd.GetInt(0, int(tensor.DTypeF32)))
	return nil
}

func (l *Cast) ForwardOne(bottom tensor.Mat, opt option.Option) (tensor.Mat, error) {
	return bottom.Cast(l.ToType, allocatorFor(opt))
}
