// tensor.go - Mat construction, shape queries and basic lifecycle
//
// Implements spec.md §3 "Tensor (Mat)" and the construction half of
// §4.B: create(shape, elemsize, elempack, allocator), empty tensors,
// and the cstep/elempack invariants.
package tensor

import (
	"fmt"

	"github.com/lattiml/lattice/alloc"
)

// Mat is a rank-1 to rank-4 dense numeric array. The zero value is the
// empty tensor: null storage, zero dims, per spec.md §4.B.
type Mat struct {
	W, H, D, C int
	Dims       int
	Type       DType
	ElemPack   ElemPack

	// CStep is the channel step in elements; CStep >= W*H*D (invariant
	// from spec.md §3).
	CStep int

	store  *storage
	offset int // byte offset of this view's first element within store.data
}

// Empty reports whether this Mat carries no storage.
func (m Mat) Empty() bool {
	return m.store == nil || m.Dims == 0
}

// ElemSize is the per-element byte size (not multiplied by ElemPack).
func (m Mat) ElemSize() int {
	return m.Type.ElemSize()
}

// Total returns the product of the dims, not multiplied by ElemPack:
// for a packed Mat it counts pack-wide lanes, so the scalar count is
// Total()*ElemPack.
func (m Mat) Total() int {
	if m.Dims == 0 {
		return 0
	}
	n := m.W
	switch m.Dims {
	case 2:
		n *= m.H
	case 3:
		n *= m.H * m.C
	case 4:
		n *= m.H * m.D * m.C
	}
	return n
}

func alignUp(v, align int) int {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

// cstepFor computes the aligned channel step in elements for a w*h*d
// slab, so that consecutive channels start on a cache-friendly
// boundary. Mirrors ncnn's Mat::create alignment behavior.
func cstepFor(w, h, d, elemsize int, pack ElemPack) int {
	slab := w * h * d
	if slab == 0 {
		return 0
	}
	bytesPerElem := elemsize * int(pack)
	aligned := alignUp(slab*bytesPerElem, 16)
	return aligned / bytesPerElem
}

// Create allocates a new rank-1..4 Mat. dims is inferred from which of
// w,h,d,c are greater than one (a dimension of 0 or 1 collapses the
// rank), matching ncnn's family of create(w), create(w,h),
// create(w,h,c), create(w,h,d,c) overloads collapsed into one call.
func Create(w, h, d, c int, dtype DType, pack ElemPack, a alloc.Allocator) (Mat, error) {
	if !pack.valid() {
		return Mat{}, fmt.Errorf("tensor: invalid elempack %d", pack)
	}
	if w <= 0 {
		return Mat{}, fmt.Errorf("tensor: invalid shape w=%d", w)
	}

	dims := 1
	switch {
	case c > 1:
		dims = 3
		if d > 1 {
			dims = 4
		}
	case d > 1:
		dims = 4
		c = 1
	case h > 1:
		dims = 2
	}
	if h <= 0 {
		h = 1
	}
	if d <= 0 {
		d = 1
	}
	if c <= 0 {
		c = 1
	}

	elemsize := dtype.ElemSize()
	cstep := cstepFor(w, h, d, elemsize, pack)

	size := cstep * c * elemsize * int(pack)
	if a == nil {
		a = alloc.Default
	}
	data, err := a.Malloc(size)
	if err != nil {
		return Mat{}, err
	}

	return Mat{
		W: w, H: h, D: d, C: c,
		Dims:     dims,
		Type:     dtype,
		ElemPack: pack,
		CStep:    cstep,
		store:    newStorage(data, a),
	}, nil
}

// CreateDims allocates a new Mat with an explicit rank, rather than
// inferring it from which of w,h,d,c are non-trivial. Needed whenever
// a caller must preserve rank 3 with a singleton channel (c=1), which
// Create's shape-inference would otherwise collapse to rank 2.
func CreateDims(dims, w, h, d, c int, dtype DType, pack ElemPack, a alloc.Allocator) (Mat, error) {
	if !pack.valid() {
		return Mat{}, fmt.Errorf("tensor: invalid elempack %d", pack)
	}
	if w <= 0 {
		return Mat{}, fmt.Errorf("tensor: invalid shape w=%d", w)
	}
	if h <= 0 {
		h = 1
	}
	if d <= 0 {
		d = 1
	}
	if c <= 0 {
		c = 1
	}

	elemsize := dtype.ElemSize()
	cstep := cstepFor(w, h, d, elemsize, pack)

	size := cstep * c * elemsize * int(pack)
	if a == nil {
		a = alloc.Default
	}
	data, err := a.Malloc(size)
	if err != nil {
		return Mat{}, err
	}

	return Mat{
		W: w, H: h, D: d, C: c,
		Dims:     dims,
		Type:     dtype,
		ElemPack: pack,
		CStep:    cstep,
		store:    newStorage(data, a),
	}, nil
}

// CreateLike allocates a new Mat with the same shape, type and pack as
// like, using allocator a (or like's allocator's process-default
// equivalent when a is nil).
func CreateLike(like Mat, a alloc.Allocator) (Mat, error) {
	return CreateDims(like.Dims, like.W, like.H, like.D, like.C, like.Type, like.ElemPack, a)
}

// Release drops this Mat's handle on its storage. Safe to call more
// than once; subsequent calls are no-ops since Mat is a value type and
// each copy must release its own handle exactly once.
func (m *Mat) Release() {
	m.store.release()
	m.store = nil
}

// Retain returns a new Mat value sharing this Mat's storage, with the
// reference count incremented. Used wherever a tensor is deposited
// into more than one place (e.g. Extractor.blobMats and a caller's own
// handle).
func (m Mat) Retain() Mat {
	m.store = m.store.retain()
	return m
}

// Shared reports whether more than one handle currently references
// this Mat's storage. The scheduler (extractor package) consults this
// to decide whether an in-place forward must clone first (spec.md
// §4.H step 3: "the scheduler clones the bottom tensor only if its
// storage is shared").
func (m Mat) Shared() bool {
	return m.store.shared()
}

// bytes returns the raw backing slice for this view, offset to its
// first element. Element access beyond Total()*ElemSize()*ElemPack is
// the caller's responsibility, per spec.md §4.B.
func (m Mat) bytes() []byte {
	if m.store == nil {
		return nil
	}
	return m.store.data[m.offset:]
}

// Bytes exposes the raw element storage for this view. Len is
// CStep*C*ElemSize*ElemPack, so it includes any CStep padding, capped
// at the end of the underlying storage.
func (m Mat) Bytes() []byte {
	if m.Empty() {
		return nil
	}
	n := m.storageBytes()
	b := m.bytes()
	if n > len(b) {
		n = len(b)
	}
	return b[:n]
}

func (m Mat) storageBytes() int {
	return m.CStep * m.C * m.ElemSize() * int(m.ElemPack)
}

// Channel returns a rank-(Dims-1) view over the q-th outermost slice,
// sharing storage with the parent (spec.md §4.B "channel-view").
func (m Mat) Channel(q int) Mat {
	if m.Dims < 2 {
		panic("tensor: Channel requires rank >= 2")
	}
	if q < 0 || q >= m.C {
		panic(fmt.Sprintf("tensor: channel index %d out of range [0,%d)", q, m.C))
	}

	out := m
	out.Dims = m.Dims - 1
	if m.Dims == 4 {
		// (w,h,d,c) -> (w,h,d) represented as a 3D mat whose C field
		// holds the former D extent; D collapses to 1.
		out.C = m.D
		out.D = 1
	} else {
		out.C = 1
	}
	out.offset = m.offset + q*m.CStep*m.ElemSize()*int(m.ElemPack)
	out.store = m.store.retain()
	return out
}

// Row returns a rank-1 view over row y of a rank-2 Mat, sharing
// storage with the parent (spec.md §4.B "row-view").
func (m Mat) Row(y int) Mat {
	if m.Dims != 2 {
		panic("tensor: Row requires rank 2")
	}
	if y < 0 || y >= m.H {
		panic(fmt.Sprintf("tensor: row index %d out of range [0,%d)", y, m.H))
	}

	out := m
	out.H = 1
	out.Dims = 1
	out.offset = m.offset + y*m.W*m.ElemSize()*int(m.ElemPack)
	out.store = m.store.retain()
	return out
}

// Reshape changes the logical shape in place, preserving storage. The
// new shape must describe the same total element count.
func (m Mat) Reshape(w, h, d, c int) (Mat, error) {
	if h <= 0 {
		h = 1
	}
	if d <= 0 {
		d = 1
	}
	if c <= 0 {
		c = 1
	}

	dims := 1
	switch {
	case d > 1:
		dims = 4
	case c > 1:
		dims = 3
	case h > 1:
		dims = 2
	}

	total := w * h * d * c
	if total != m.Total() {
		return Mat{}, fmt.Errorf("tensor: reshape element count mismatch: have %d want %d", m.Total(), total)
	}

	out := m
	out.W, out.H, out.D, out.C = w, h, d, c
	out.Dims = dims
	out.CStep = cstepFor(w, h, d, m.ElemSize(), m.ElemPack)
	out.store = m.store.retain()
	return out, nil
}

// Clone performs a deep copy: new storage, same shape, type and pack.
func (m Mat) Clone(a alloc.Allocator) (Mat, error) {
	if m.Empty() {
		return Mat{}, nil
	}
	out, err := CreateDims(m.Dims, m.W, m.H, m.D, m.C, m.Type, m.ElemPack, a)
	if err != nil {
		return Mat{}, err
	}
	copy(out.Bytes(), m.Bytes())
	return out, nil
}
