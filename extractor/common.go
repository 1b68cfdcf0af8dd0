package extractor

import (
	"github.com/lattiml/lattice/alloc"
	"github.com/lattiml/lattice/option"
)

func allocatorFor(opt option.Option) alloc.Allocator {
	if opt.BlobAllocator != nil {
		return opt.BlobAllocator
	}
	return alloc.Default
}
