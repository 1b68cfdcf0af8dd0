package layer

import (
	"fmt"
	"math"

	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/paramdict"
	"github.com/lattiml/lattice/tensor"
)

const (
	poolMax = 0
	poolAvg = 1
)

// Pooling implements spec.md §4.E's pooling semantics: "-inf initial
// for max and an area-normalized sum for average, where area excludes
// padding iff count_include_pad = false". Grounded on
// original_source/src/layer/pooling.cpp.
//
// Param layout (this module's own key assignment, not ncnn's):
// 0 PoolingType, 1 KernelW, 2 KernelH, 3 StrideW, 4 StrideH, 5 PadW,
// 6 PadH, 7 GlobalPooling, 8 CountIncludePad.
type Pooling struct {
	Base

	PoolingType     int
	KernelW, KernelH int
	StrideW, StrideH int
	PadW, PadH       int
	GlobalPooling    bool
	CountIncludePad  bool
}

func newPooling() Layer {
	l := &Pooling{}
	l.Capabilities = Capabilities{OneBlobOnly: true}
	return l
}

func init() {
	Register("Pooling", BackendScalar, newPooling)
}

func (l *Pooling) LoadParam(pd *paramdict.Dict) error {
	l.PoolingType = pd.GetInt(0, poolMax)
	l.KernelW = pd.GetInt(1, 1)
	l.KernelH = pd.GetInt(2, l.KernelW)
	l.StrideW = pd.GetInt(3, 1)
	l.StrideH = pd.GetInt(4, l.StrideW)
	l.PadW = pd.GetInt(5, 0)
	l.PadH = pd.GetInt(6, l.PadW)
	l.GlobalPooling = pd.GetInt(7, 0) != 0
	l.CountIncludePad = pd.GetInt(8, 0) != 0
	return nil
}

func (l *Pooling) ForwardOne(bottom tensor.Mat, opt option.Option) (tensor.Mat, error) {
	if bottom.Dims != 3 {
		return tensor.Mat{}, fmt.Errorf("layer: Pooling requires rank-3 input, got %d", bottom.Dims)
	}

	kw, kh, sw, sh, pw, ph := l.KernelW, l.KernelH, l.StrideW, l.StrideH, l.PadW, l.PadH
	if l.GlobalPooling {
		kw, kh, sw, sh, pw, ph = bottom.W, bottom.H, 1, 1, 0, 0
	}

	outW := (bottom.W+2*pw-kw)/sw + 1
	outH := (bottom.H+2*ph-kh)/sh + 1
	if outW <= 0 || outH <= 0 {
		return tensor.Mat{}, fmt.Errorf("layer: Pooling produces non-positive output size %dx%d", outW, outH)
	}

	out, err := tensor.CreateDims(3, outW, outH, 0, bottom.C, tensor.DTypeF32, tensor.Pack1, allocatorFor(opt))
	if err != nil {
		return tensor.Mat{}, err
	}

	for q := 0; q < bottom.C; q++ {
		src := bottom.Channel(q)
		dst := out.Channel(q)
		for y := 0; y < outH; y++ {
			for x := 0; x < outW; x++ {
				v, err := l.poolWindow(src, x*sw-pw, y*sh-ph, kw, kh)
				if err != nil {
					out.Release()
					return tensor.Mat{}, err
				}
				dst.SetF32(y*outW+x, v)
			}
		}
	}

	return out, nil
}

func (l *Pooling) poolWindow(src tensor.Mat, x0, y0, kw, kh int) (float32, error) {
	switch l.PoolingType {
	case poolMax:
		best := float32(math.Inf(-1))
		for dy := 0; dy < kh; dy++ {
			for dx := 0; dx < kw; dx++ {
				x, y := x0+dx, y0+dy
				if x < 0 || x >= src.W || y < 0 || y >= src.H {
					continue
				}
				v := src.GetF32(y*src.W + x)
				if v > best {
					best = v
				}
			}
		}
		return best, nil
	case poolAvg:
		var sum float32
		count := 0
		inBounds := 0
		for dy := 0; dy < kh; dy++ {
			for dx := 0; dx < kw; dx++ {
				x, y := x0+dx, y0+dy
				count++
				if x < 0 || x >= src.W || y < 0 || y >= src.H {
					continue
				}
				sum += src.GetF32(y*src.W + x)
				inBounds++
			}
		}
		area := inBounds
		if l.CountIncludePad {
			area = count
		}
		if area == 0 {
			return 0, nil
		}
		return sum / float32(area), nil
	default:
		return 0, fmt.Errorf("layer: Pooling unknown pooling_type %d", l.PoolingType)
	}
}
