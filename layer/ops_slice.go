package layer

import (
	"fmt"

	"github.com/lattiml/lattice/alloc"
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/paramdict"
	"github.com/lattiml/lattice/tensor"
)

// Slice splits its one input along a named axis at the given cut
// points, producing len(SliceIndices)+1 outputs, grounded on
// original_source/src/layer/slice.cpp. Axis follows ncnn's outermost-
// first convention: for a rank-3 (w,h,c) Mat, 0=c, 1=h, 2=w; for
// rank-2 (w,h), 0=h, 1=w; for rank-1 (w), 0=w.
//
// Param layout: 0 SliceIndices (IntArray of cut positions, strictly
// increasing, each < the axis extent), 1 Axis.
type Slice struct {
	Base

	Indices []int
	Axis    int
}

func newSlice() Layer {
	l := &Slice{}
	l.Capabilities = Capabilities{OneBlobOnly: false}
	return l
}

func init() {
	Register("Slice", BackendScalar, newSlice)
}

func (l *Slice) LoadParam(pd *paramdict.Dict) error {
	l.Indices = pd.GetIntArray(0, nil)
	l.Axis = pd.GetInt(1, 0)
	return nil
}

func axisExtent(m tensor.Mat, axis int) (int, error) {
	switch m.Dims {
	case 1:
		if axis == 0 {
			return m.W, nil
		}
	case 2:
		switch axis {
		case 0:
			return m.H, nil
		case 1:
			return m.W, nil
		}
	case 3:
		switch axis {
		case 0:
			return m.C, nil
		case 1:
			return m.H, nil
		case 2:
			return m.W, nil
		}
	}
	return 0, fmt.Errorf("layer: Slice axis %d invalid for rank-%d input", axis, m.Dims)
}

func (l *Slice) Forward(bottoms []tensor.Mat, opt option.Option) ([]tensor.Mat, error) {
	bottom := bottoms[0]
	extent, err := axisExtent(bottom, l.Axis)
	if err != nil {
		return nil, err
	}

	bounds := append([]int{0}, l.Indices...)
	bounds = append(bounds, extent)

	a := allocatorFor(opt)
	outs := make([]tensor.Mat, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		lo, hi := bounds[i], bounds[i+1]
		if lo < 0 || hi > extent || lo >= hi {
			for _, o := range outs {
				o.Release()
			}
			return nil, fmt.Errorf("layer: Slice bounds [%d,%d) invalid for extent %d", lo, hi, extent)
		}
		chunk, err := sliceAxis(bottom, l.Axis, lo, hi, a)
		if err != nil {
			for _, o := range outs {
				o.Release()
			}
			return nil, err
		}
		outs = append(outs, chunk)
	}
	return outs, nil
}

// sliceAxis materializes the half-open range [lo,hi) of axis from src
// into a freshly allocated Mat of the same rank. Channel-axis cuts
// copy whole per-channel views (so padded CStep never leaks into the
// copy); H/W-axis cuts copy element-by-element within matching
// per-channel views, where indices stay contiguous regardless of
// CStep padding between channels.
func sliceAxis(src tensor.Mat, axis, lo, hi int, a alloc.Allocator) (tensor.Mat, error) {
	switch src.Dims {
	case 1:
		out, err := tensor.Create(hi-lo, 0, 0, 0, src.Type, src.ElemPack, a)
		if err != nil {
			return tensor.Mat{}, err
		}
		for i := 0; i < out.W; i++ {
			out.SetF32(i, src.GetF32(lo+i))
		}
		return out, nil

	case 2:
		w, h := src.W, src.H
		if axis == 0 {
			h = hi - lo
		} else {
			w = hi - lo
		}
		out, err := tensor.CreateDims(2, w, h, 0, 0, src.Type, src.ElemPack, a)
		if err != nil {
			return tensor.Mat{}, err
		}
		for y := 0; y < out.H; y++ {
			for x := 0; x < out.W; x++ {
				var sy, sx int
				if axis == 0 {
					sy, sx = lo+y, x
				} else {
					sy, sx = y, lo+x
				}
				out.SetF32(y*out.W+x, src.GetF32(sy*src.W+sx))
			}
		}
		return out, nil

	case 3:
		w, h, c := src.W, src.H, src.C
		switch axis {
		case 0:
			c = hi - lo
		case 1:
			h = hi - lo
		case 2:
			w = hi - lo
		}
		out, err := tensor.CreateDims(3, w, h, 0, c, src.Type, src.ElemPack, a)
		if err != nil {
			return tensor.Mat{}, err
		}
		for oc := 0; oc < out.C; oc++ {
			sc := oc
			if axis == 0 {
				sc = lo + oc
			}
			srcCh := src.Channel(sc)
			dstCh := out.Channel(oc)
			for y := 0; y < out.H; y++ {
				for x := 0; x < out.W; x++ {
					sy, sx := y, x
					if axis == 1 {
						sy = lo + y
					} else if axis == 2 {
						sx = lo + x
					}
					dstCh.SetF32(y*out.W+x, srcCh.GetF32(sy*src.W+sx))
				}
			}
		}
		return out, nil
	}

	return tensor.Mat{}, fmt.Errorf("layer: Slice unsupported rank %d", src.Dims)
}
