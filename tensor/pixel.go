// pixel.go - pixel import with resize (spec.md §4.B)
//
// Converts an interleaved 8-bit-per-channel pixel buffer (as produced
// by an external image-decoding shim, out of scope per spec.md §1(iii))
// into a planar (channel, h, w) f32 Mat, resizing from the source
// dimensions to a target size along the way. Only nearest-neighbor and
// bilinear sampling are implemented, matching ml.SamplingMode in the
// teacher pack.
package tensor

import (
	"fmt"

	"github.com/lattiml/lattice/alloc"
)

// SamplingMode selects the interpolation method used when the target
// size differs from the source size.
type SamplingMode int

const (
	SamplingNearest SamplingMode = iota
	SamplingBilinear
)

// FromPixelsResize imports an interleaved [h][w][channels]byte pixel
// buffer, resizing to (dstW, dstH) and producing a planar rank-3 Mat
// of shape (dstW, dstH, channels).
func FromPixelsResize(pix []byte, srcW, srcH, channels int, dstW, dstH int, mode SamplingMode, a alloc.Allocator) (Mat, error) {
	if channels <= 0 {
		return Mat{}, fmt.Errorf("tensor: FromPixelsResize requires channels > 0")
	}
	if len(pix) < srcW*srcH*channels {
		return Mat{}, fmt.Errorf("tensor: pixel buffer too small: have %d want %d", len(pix), srcW*srcH*channels)
	}

	out, err := CreateDims(3, dstW, dstH, 0, channels, DTypeF32, Pack1, a)
	if err != nil {
		return Mat{}, err
	}

	scaleX := float64(srcW) / float64(dstW)
	scaleY := float64(srcH) / float64(dstH)

	for c := 0; c < channels; c++ {
		ch := out.Channel(c)
		for y := 0; y < dstH; y++ {
			for x := 0; x < dstW; x++ {
				var v float32
				switch mode {
				case SamplingBilinear:
					v = bilinearSample(pix, srcW, srcH, channels, c, (float64(x)+0.5)*scaleX-0.5, (float64(y)+0.5)*scaleY-0.5)
				default:
					sx := clampInt(int(float64(x)*scaleX), 0, srcW-1)
					sy := clampInt(int(float64(y)*scaleY), 0, srcH-1)
					v = float32(pix[(sy*srcW+sx)*channels+c])
				}
				ch.SetF32(y*out.W+x, v)
			}
		}
	}

	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func bilinearSample(pix []byte, w, h, channels, c int, fx, fy float64) float32 {
	x0 := clampInt(int(fx), 0, w-1)
	y0 := clampInt(int(fy), 0, h-1)
	x1 := clampInt(x0+1, 0, w-1)
	y1 := clampInt(y0+1, 0, h-1)

	dx := fx - float64(x0)
	dy := fy - float64(y0)
	if dx < 0 {
		dx = 0
	}
	if dy < 0 {
		dy = 0
	}

	p00 := float64(pix[(y0*w+x0)*channels+c])
	p10 := float64(pix[(y0*w+x1)*channels+c])
	p01 := float64(pix[(y1*w+x0)*channels+c])
	p11 := float64(pix[(y1*w+x1)*channels+c])

	top := p00 + (p10-p00)*dx
	bot := p01 + (p11-p01)*dx
	return float32(top + (bot-top)*dy)
}
