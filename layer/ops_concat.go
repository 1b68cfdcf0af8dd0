package layer

import (
	"fmt"

	"github.com/lattiml/lattice/alloc"
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/paramdict"
	"github.com/lattiml/lattice/tensor"
)

// Concat joins two or more same-rank inputs along an axis, the
// inverse of Slice, grounded on original_source/src/layer/concat.cpp.
// Axis uses the same outermost-first convention as Slice.
//
// Param layout: 0 Axis.
type Concat struct {
	Base

	Axis int
}

func newConcat() Layer {
	l := &Concat{}
	l.Capabilities = Capabilities{OneBlobOnly: false}
	return l
}

func init() {
	Register("Concat", BackendScalar, newConcat)
}

func (l *Concat) LoadParam(pd *paramdict.Dict) error {
	l.Axis = pd.GetInt(0, 0)
	return nil
}

func (l *Concat) Forward(bottoms []tensor.Mat, opt option.Option) ([]tensor.Mat, error) {
	if len(bottoms) == 0 {
		return nil, fmt.Errorf("layer: Concat requires at least one input")
	}
	first := bottoms[0]
	extent := 0
	for _, b := range bottoms {
		e, err := axisExtent(b, l.Axis)
		if err != nil {
			return nil, err
		}
		extent += e
	}

	a := allocatorFor(opt)
	out, err := concatAlloc(first, l.Axis, extent, a)
	if err != nil {
		return nil, err
	}

	offset := 0
	for _, b := range bottoms {
		e, _ := axisExtent(b, l.Axis)
		if err := copyIntoAxis(out, b, l.Axis, offset); err != nil {
			out.Release()
			return nil, err
		}
		offset += e
	}

	return []tensor.Mat{out}, nil
}

func concatAlloc(like tensor.Mat, axis, extent int, a alloc.Allocator) (tensor.Mat, error) {
	w, h, c := like.W, like.H, like.C
	switch like.Dims {
	case 1:
		w = extent
		return tensor.Create(w, 0, 0, 0, like.Type, like.ElemPack, a)
	case 2:
		if axis == 0 {
			h = extent
		} else {
			w = extent
		}
		return tensor.CreateDims(2, w, h, 0, 0, like.Type, like.ElemPack, a)
	case 3:
		switch axis {
		case 0:
			c = extent
		case 1:
			h = extent
		case 2:
			w = extent
		}
		return tensor.CreateDims(3, w, h, 0, c, like.Type, like.ElemPack, a)
	}
	return tensor.Mat{}, fmt.Errorf("layer: Concat unsupported rank %d", like.Dims)
}

// copyIntoAxis copies src fully into dst starting at offset along axis.
func copyIntoAxis(dst, src tensor.Mat, axis, offset int) error {
	switch dst.Dims {
	case 1:
		for i := 0; i < src.W; i++ {
			dst.SetF32(offset+i, src.GetF32(i))
		}
		return nil
	case 2:
		for y := 0; y < src.H; y++ {
			for x := 0; x < src.W; x++ {
				var dy, dx int
				if axis == 0 {
					dy, dx = offset+y, x
				} else {
					dy, dx = y, offset+x
				}
				dst.SetF32(dy*dst.W+dx, src.GetF32(y*src.W+x))
			}
		}
		return nil
	case 3:
		for sc := 0; sc < src.C; sc++ {
			dc := sc
			if axis == 0 {
				dc = offset + sc
			}
			srcCh := src.Channel(sc)
			dstCh := dst.Channel(dc)
			for y := 0; y < src.H; y++ {
				for x := 0; x < src.W; x++ {
					dy, dx := y, x
					if axis == 1 {
						dy = offset + y
					} else if axis == 2 {
						dx = offset + x
					}
					dstCh.SetF32(dy*dst.W+dx, srcCh.GetF32(y*src.W+x))
				}
			}
		}
		return nil
	}
	return fmt.Errorf("layer: Concat unsupported rank %d", dst.Dims)
}
