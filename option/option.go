// Package option - per-invocation configuration record (spec.md §3/§4.D)
//
// Option is copied, not referenced, into each Extractor so per-call
// overrides never leak between concurrent extractors on the same Net
// (spec.md §5).
package option

import "github.com/lattiml/lattice/alloc"

// FlushDenormals selects how the scalar kernels treat subnormal
// float32 values, mirroring original_source/src/option.cpp's
// flush_denormals bitmask (1 = flush-to-zero on input, 2 = on output).
// Only the output bit is acted on, by the Convolution, InnerProduct and
// Bias kernels.
type FlushDenormals int

const (
	FlushDenormalsNone   FlushDenormals = 0
	FlushDenormalsInput  FlushDenormals = 1
	FlushDenormalsOutput FlushDenormals = 2
	FlushDenormalsBoth   FlushDenormals = FlushDenormalsInput | FlushDenormalsOutput
)

// Option is the configuration record described by spec.md §4.D.
type Option struct {
	// Lightmode reclaims intermediate tensors once their single
	// consumer has run.
	Lightmode bool

	// NumThreads bounds worker threads per parallel region.
	NumThreads int

	BlobAllocator      alloc.Allocator
	WorkspaceAllocator alloc.Allocator

	UseVulkanCompute bool

	UseWinogradConvolution bool
	UseSgemmConvolution    bool

	UseFP16Storage    bool
	UseFP16Arithmetic bool
	UseFP16Packed     bool
	UseBF16Storage    bool

	UseInt8Inference  bool
	UseInt8Storage    bool
	UseInt8Arithmetic bool

	UsePackingLayout bool

	UseShaderPack8       bool
	UseCooperativeMatrix bool
	UseSubgroupOps       bool

	// OpenMPBlocktime is the thread-pool idle spin time, in
	// milliseconds, before a worker parks.
	OpenMPBlocktime int

	FlushDenormals FlushDenormals
}

// Default returns the baseline Option, matching
// original_source/src/option.cpp's constructor defaults where they
// have a meaningful Go-side equivalent (GPU/shader-specific defaults
// are left false since no GPU backend ships in this module; see
// spec.md §9 on the command-buffer collaborator).
func Default() Option {
	return Option{
		Lightmode:              true,
		NumThreads:             1,
		BlobAllocator:          alloc.Default,
		WorkspaceAllocator:     alloc.Default,
		UseWinogradConvolution: true,
		UseSgemmConvolution:    true,
		UseFP16Storage:         true,
		UseFP16Arithmetic:      true,
		UseFP16Packed:          true,
		UseInt8Inference:       true,
		UseInt8Storage:         true,
		UsePackingLayout:       true,
		OpenMPBlocktime:        20,
		FlushDenormals:         FlushDenormalsBoth,
	}
}

// Clone returns a value copy of opt. Option already has only value and
// interface fields, so Go's assignment semantics already copy it;
// Clone exists to make that intent explicit at call sites (extractor.New
// taking its own copy for each Extractor, per spec.md §4.D's last
// sentence).
func (o Option) Clone() Option {
	return o
}
