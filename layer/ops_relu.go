package layer

import (
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/paramdict"
	"github.com/lattiml/lattice/tensor"
)

// ReLU implements spec.md §4.E's "ReLU (optionally with negative
// slope)" activation, grounded on original_source/src/layer/relu.cpp.
// Param 0 is the negative slope (0.0 = plain ReLU).
type ReLU struct {
	Base

	Slope float32
}

func newReLU() Layer {
	l := &ReLU{}
	l.Capabilities = Capabilities{OneBlobOnly: true, SupportInplace: true}
	return l
}

func init() {
	Register("ReLU", BackendScalar, newReLU)
}

func (l *ReLU) LoadParam(pd *paramdict.Dict) error {
	l.Slope = float32(pd.GetFloat(0, 0))
	return nil
}

func (l *ReLU) ForwardOne(bottom tensor.Mat, opt option.Option) (tensor.Mat, error) {
	out, err := bottom.Clone(allocatorFor(opt))
	if err != nil {
		return tensor.Mat{}, err
	}
	if err := l.ForwardInplace(&out, opt); err != nil {
		out.Release()
		return tensor.Mat{}, err
	}
	return out, nil
}

func (l *ReLU) ForwardInplace(inout *tensor.Mat, opt option.Option) error {
	for q := 0; q < inout.Channels(); q++ {
		ch := inout.ChannelAt(q)
		n := ch.ChannelSize()
		for i := 0; i < n; i++ {
			v := ch.GetF32(i)
			if v < 0 {
				ch.SetF32(i, v*l.Slope)
			}
		}
	}
	return nil
}
