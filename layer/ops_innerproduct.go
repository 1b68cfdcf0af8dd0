package layer

import (
	"fmt"

	"github.com/lattiml/lattice/alloc"
	"github.com/lattiml/lattice/modelbin"
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/paramdict"
	"github.com/lattiml/lattice/tensor"
)

// InnerProduct is a fully-connected layer flattening its input to one
// vector per forward call, grounded on
// original_source/src/layer/innerproduct.cpp.
//
// Param layout: 0 NumOutput, 1 HasBias, 2 WeightDataSize (total
// element count of the weight blob; InChannels = WeightDataSize /
// NumOutput, following Convolution's same weight-size-driven shape
// inference).
type InnerProduct struct {
	Base

	NumOutput      int
	HasBias        bool
	WeightDataSize int

	inChannels int
	weights    []float32
	bias       []float32
}

func newInnerProduct() Layer {
	l := &InnerProduct{}
	l.Capabilities = Capabilities{OneBlobOnly: true}
	return l
}

func init() {
	Register("InnerProduct", BackendScalar, newInnerProduct)
}

func (l *InnerProduct) LoadParam(pd *paramdict.Dict) error {
	l.NumOutput = pd.GetInt(0, 0)
	l.HasBias = pd.GetInt(1, 0) != 0
	l.WeightDataSize = pd.GetInt(2, 0)
	return nil
}

func (l *InnerProduct) LoadModel(mb *modelbin.Reader) error {
	if l.NumOutput <= 0 || l.WeightDataSize <= 0 || l.WeightDataSize%l.NumOutput != 0 {
		return fmt.Errorf("layer: InnerProduct %q weight_data_size %d not divisible by num_output %d", l.InstanceName, l.WeightDataSize, l.NumOutput)
	}
	l.inChannels = l.WeightDataSize / l.NumOutput

	m, err := mb.LoadRaw(l.WeightDataSize, tensor.DTypeF32, alloc.Default)
	if err != nil {
		return err
	}
	l.weights = make([]float32, l.WeightDataSize)
	for i := range l.weights {
		l.weights[i] = m.GetF32(i)
	}
	m.Release()

	if l.HasBias {
		bm, err := mb.LoadRaw(l.NumOutput, tensor.DTypeF32, alloc.Default)
		if err != nil {
			return err
		}
		l.bias = make([]float32, l.NumOutput)
		for i := range l.bias {
			l.bias[i] = bm.GetF32(i)
		}
		bm.Release()
	}
	return nil
}

func (l *InnerProduct) ForwardOne(bottom tensor.Mat, opt option.Option) (tensor.Mat, error) {
	n := bottom.Total()
	if n != l.inChannels {
		return tensor.Mat{}, fmt.Errorf("layer: InnerProduct expects %d inputs, got %d", l.inChannels, n)
	}
	vals, err := bottom.ToF32()
	if err != nil {
		return tensor.Mat{}, err
	}

	out, err := tensor.Create(l.NumOutput, 0, 0, 0, tensor.DTypeF32, tensor.Pack1, allocatorFor(opt))
	if err != nil {
		return tensor.Mat{}, err
	}

	for o := 0; o < l.NumOutput; o++ {
		var sum float32
		wBase := o * l.inChannels
		for i := 0; i < l.inChannels; i++ {
			sum += vals[i] * l.weights[wBase+i]
		}
		if l.HasBias {
			sum += l.bias[o]
		}
		out.SetF32(o, flushOutput(sum, opt))
	}

	return out, nil
}
