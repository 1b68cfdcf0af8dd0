package layer

import (
	"fmt"

	"github.com/lattiml/lattice/alloc"
	"github.com/lattiml/lattice/modelbin"
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/paramdict"
	"github.com/lattiml/lattice/tensor"
)

// Bias adds a per-channel constant to a rank-3 (w,h,c) tensor,
// grounded on original_source/src/layer/bias.cpp. Param 0 is the
// channel count; the model stream holds that many f32 weights.
type Bias struct {
	Base

	Channels int
	Weights  []float32
}

func newBias() Layer {
	l := &Bias{}
	l.Capabilities = Capabilities{OneBlobOnly: true, SupportInplace: true}
	return l
}

func init() {
	Register("Bias", BackendScalar, newBias)
}

func (l *Bias) LoadParam(pd *paramdict.Dict) error {
	l.Channels = pd.GetInt(0, 0)
	return nil
}

func (l *Bias) LoadModel(mb *modelbin.Reader) error {
	m, err := mb.LoadRaw(l.Channels, tensor.DTypeF32, alloc.Default)
	if err != nil {
		return err
	}
	l.Weights = make([]float32, l.Channels)
	for i := range l.Weights {
		l.Weights[i] = m.GetF32(i)
	}
	m.Release()
	return nil
}

func (l *Bias) ForwardOne(bottom tensor.Mat, opt option.Option) (tensor.Mat, error) {
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

func (l *Bias) ForwardInplace(inout *tensor.Mat, opt option.Option) error {
	if inout.Dims != 3 {
		return fmt.Errorf("layer: Bias requires rank-3 input, got %d", inout.Dims)
	}
	if inout.C != l.Channels {
		return fmt.Errorf("layer: Bias expects %d channels, got %d", l.Channels, inout.C)
	}

	for q := 0; q < inout.C; q++ {
		ch := inout.Channel(q)
		n := ch.ChannelSize()
		b := l.Weights[q]
		for i := 0; i < n; i++ {
			ch.SetF32(i, flushOutput(ch.GetF32(i)+b, opt))
		}
	}
	return nil
}
