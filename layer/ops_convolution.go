package layer

import (
	"fmt"

	"github.com/lattiml/lattice/alloc"
	"github.com/lattiml/lattice/modelbin"
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/paramdict"
	"github.com/lattiml/lattice/tensor"
)

// Convolution is the direct (no Winograd/sgemm fast path - those stay
// algorithmic Option flags only, per spec.md §4.D) 2D convolution,
// grounded on original_source/src/layer/convolution.cpp's innermost
// accumulation loop.
//
// Param layout: 0 NumOutput, 1 KernelW, 2 KernelH, 3 StrideW,
// 4 StrideH, 5 PadW, 6 PadH, 7 DilationW, 8 DilationH, 9 HasBias,
// 10 WeightDataSize (total element count of the weight blob). Input
// channel count is derived from WeightDataSize at load time the same
// way original_source does, rather than by propagating shapes through
// the graph (the topology format carries no shape hints per spec.md
// §6): inChannels = WeightDataSize / (NumOutput*KernelH*KernelW).
type Convolution struct {
	Base

	NumOutput            int
	KernelW, KernelH     int
	StrideW, StrideH     int
	PadW, PadH           int
	DilationW, DilationH int
	HasBias              bool
	WeightDataSize       int

	inChannels int
	weights    []float32
	bias       []float32
}

func newConvolution() Layer {
	l := &Convolution{}
	l.Capabilities = Capabilities{OneBlobOnly: true}
	return l
}

func init() {
	Register("Convolution", BackendScalar, newConvolution)
}

func (l *Convolution) LoadParam(pd *paramdict.Dict) error {
	l.NumOutput = pd.GetInt(0, 0)
	l.KernelW = pd.GetInt(1, 1)
	l.KernelH = pd.GetInt(2, l.KernelW)
	l.StrideW = pd.GetInt(3, 1)
	l.StrideH = pd.GetInt(4, l.StrideW)
	l.PadW = pd.GetInt(5, 0)
	l.PadH = pd.GetInt(6, l.PadW)
	l.DilationW = pd.GetInt(7, 1)
	l.DilationH = pd.GetInt(8, l.DilationW)
	l.HasBias = pd.GetInt(9, 0) != 0
	l.WeightDataSize = pd.GetInt(10, 0)
	return nil
}

func (l *Convolution) LoadModel(mb *modelbin.Reader) error {
	if l.NumOutput <= 0 || l.KernelW <= 0 || l.KernelH <= 0 {
		return fmt.Errorf("layer: Convolution %q has invalid shape params", l.InstanceName)
	}
	perOut := l.KernelH * l.KernelW
	if l.WeightDataSize <= 0 || l.WeightDataSize%(l.NumOutput*perOut) != 0 {
		return fmt.Errorf("layer: Convolution %q weight_data_size %d not divisible by num_output*kh*kw", l.InstanceName, l.WeightDataSize)
	}
	l.inChannels = l.WeightDataSize / (l.NumOutput * perOut)

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

func (l *Convolution) ForwardOne(bottom tensor.Mat, opt option.Option) (tensor.Mat, error) {
	if bottom.Dims != 3 {
		return tensor.Mat{}, fmt.Errorf("layer: Convolution requires rank-3 input, got %d", bottom.Dims)
	}
	if bottom.C != l.inChannels {
		return tensor.Mat{}, fmt.Errorf("layer: Convolution expects %d input channels, got %d", l.inChannels, bottom.C)
	}

	kew := l.DilationW*(l.KernelW-1) + 1
	keh := l.DilationH*(l.KernelH-1) + 1
	outW := (bottom.W+2*l.PadW-kew)/l.StrideW + 1
	outH := (bottom.H+2*l.PadH-keh)/l.StrideH + 1
	if outW <= 0 || outH <= 0 {
		return tensor.Mat{}, fmt.Errorf("layer: Convolution produces non-positive output size %dx%d", outW, outH)
	}

	out, err := tensor.CreateDims(3, outW, outH, 0, l.NumOutput, tensor.DTypeF32, tensor.Pack1, allocatorFor(opt))
	if err != nil {
		return tensor.Mat{}, err
	}

	weightsPerOut := l.inChannels * l.KernelH * l.KernelW

	for oc := 0; oc < l.NumOutput; oc++ {
		dst := out.Channel(oc)
		wBase := oc * weightsPerOut
		var bias float32
		if l.HasBias {
			bias = l.bias[oc]
		}

		for y := 0; y < outH; y++ {
			for x := 0; x < outW; x++ {
				sum := bias
				for ic := 0; ic < l.inChannels; ic++ {
					src := bottom.Channel(ic)
					wChanBase := wBase + ic*l.KernelH*l.KernelW
					for ky := 0; ky < l.KernelH; ky++ {
						sy := y*l.StrideH - l.PadH + ky*l.DilationH
						if sy < 0 || sy >= src.H {
							continue
						}
						for kx := 0; kx < l.KernelW; kx++ {
							sx := x*l.StrideW - l.PadW + kx*l.DilationW
							if sx < 0 || sx >= src.W {
								continue
							}
							w := l.weights[wChanBase+ky*l.KernelW+kx]
							sum += src.GetF32(sy*src.W+sx) * w
						}
					}
				}
				dst.SetF32(y*outW+x, flushOutput(sum, opt))
			}
		}
	}

	return out, nil
}
