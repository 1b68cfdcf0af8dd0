package layer

import (
	"math"

	"github.com/lattiml/lattice/alloc"
	"github.com/lattiml/lattice/option"
)

// allocatorFor returns opt's blob allocator, falling back to the
// process default when a caller built an Option by hand without one
// (spec.md §4.B "if null, use process-default").
func allocatorFor(opt option.Option) alloc.Allocator {
	if opt.BlobAllocator != nil {
		return opt.BlobAllocator
	}
	return alloc.Default
}

// flushOutput zeroes v if it is a subnormal float32 and opt requests
// output-side flush-to-zero, mirroring
// original_source/src/option.cpp's flush_denormals output bit.
// Kernels call this on each accumulated result before writing it out.
// Nothing in this module applies input-side flushing: the
// FlushDenormalsInput bit is not acted on by the kernels or the
// scheduler.
func flushOutput(v float32, opt option.Option) float32 {
	if opt.FlushDenormals&option.FlushDenormalsOutput == 0 {
		return v
	}
	return flushSubnormal(v)
}

func flushSubnormal(v float32) float32 {
	if v == 0 {
		return v
	}
	a := math.Abs(float64(v))
	if a < 0x1p-126 {
		return 0
	}
	return v
}
