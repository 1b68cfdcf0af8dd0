package layer

import (
	"math"

	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/paramdict"
	"github.com/lattiml/lattice/tensor"
)

// Softmax normalizes the flattened input to a probability vector
// summing to 1, grounded on original_source/src/layer/softmax.cpp's
// single-axis (whole-blob) reduction.
type Softmax struct {
	Base
}

func newSoftmax() Layer {
	l := &Softmax{}
	l.Capabilities = Capabilities{OneBlobOnly: true, SupportInplace: true}
	return l
}

func init() {
	Register("Softmax", BackendScalar, newSoftmax)
}

func (l *Softmax) LoadParam(pd *paramdict.Dict) error {
	return nil
}

func (l *Softmax) ForwardOne(bottom tensor.Mat, opt option.Option) (tensor.Mat, error) {
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

func (l *Softmax) ForwardInplace(inout *tensor.Mat, opt option.Option) error {
	numCh := inout.Channels()

	maxV := float32(math.Inf(-1))
	for q := 0; q < numCh; q++ {
		ch := inout.ChannelAt(q)
		n := ch.ChannelSize()
		for i := 0; i < n; i++ {
			if v := ch.GetF32(i); v > maxV {
				maxV = v
			}
		}
	}

	var sum float32
	for q := 0; q < numCh; q++ {
		ch := inout.ChannelAt(q)
		n := ch.ChannelSize()
		for i := 0; i < n; i++ {
			e := float32(math.Exp(float64(ch.GetF32(i) - maxV)))
			ch.SetF32(i, e)
			sum += e
		}
	}

	for q := 0; q < numCh; q++ {
		ch := inout.ChannelAt(q)
		n := ch.ChannelSize()
		for i := 0; i < n; i++ {
			ch.SetF32(i, ch.GetF32(i)/sum)
		}
	}
	return nil
}
