// storage.go - reference-counted backing buffer for Mat
//
// A storage handle is shared by every Mat view derived from the same
// allocation (reshape, channel-view, row-view). The allocator that
// produced the bytes is remembered so Free can be routed back to it
// when the last handle drops.
package tensor

import (
	"sync/atomic"

	"github.com/lattiml/lattice/alloc"
)

type storage struct {
	data  []byte
	alloc alloc.Allocator
	refs  int32
}

func newStorage(data []byte, a alloc.Allocator) *storage {
	return &storage{data: data, alloc: a, refs: 1}
}

func (s *storage) retain() *storage {
	if s == nil {
		return nil
	}
	atomic.AddInt32(&s.refs, 1)
	return s
}

// release drops one reference, freeing the underlying bytes back to
// the owning allocator when the last handle drops. Safe to call on a
// nil storage (empty tensors have none).
func (s *storage) release() {
	if s == nil {
		return
	}
	if atomic.AddInt32(&s.refs, -1) == 0 {
		a := s.alloc
		if a == nil {
			a = alloc.Default
		}
		a.Free(s.data)
		s.data = nil
	}
}

// shared reports whether more than one handle currently references
// this storage. Used by the scheduler (extractor) to decide whether an
// in-place forward must clone first.
func (s *storage) shared() bool {
	if s == nil {
		return false
	}
	return atomic.LoadInt32(&s.refs) > 1
}
