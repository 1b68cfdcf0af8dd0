// access.go - typed element access for kernels (spec.md §4.B:
// "Element access is by typed pointer; bounds checks are the caller's
// responsibility").
//
// Kernels (the layer package's built-in operators) are the intended
// callers; these are deliberately unchecked for the same reason ncnn's
// Mat exposes a raw pointer rather than a bounds-checked accessor.
package tensor

import (
	"encoding/binary"
	"math"
)

// GetF32 reads the i-th f32 element from a Pack1 tensor's underlying
// bytes, relative to this view's own offset (so Channel/Row views
// index from 0 within the slice, not the whole storage).
func (m Mat) GetF32(i int) float32 {
	b := m.bytes()
	return math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
}

// SetF32 writes the i-th f32 element, mirroring GetF32.
func (m Mat) SetF32(i int, v float32) {
	b := m.bytes()
	binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
}

// GetI32 reads the i-th int32 element.
func (m Mat) GetI32(i int) int32 {
	b := m.bytes()
	return int32(binary.LittleEndian.Uint32(b[i*4:]))
}

// SetI32 writes the i-th int32 element.
func (m Mat) SetI32(i int, v int32) {
	b := m.bytes()
	binary.LittleEndian.PutUint32(b[i*4:], uint32(v))
}

// ChannelSize returns the number of elements in one channel slab
// (W*H*D), the unit layer kernels loop over per spec.md §4.E's
// pooling/activation definitions.
func (m Mat) ChannelSize() int {
	return m.W * m.H * m.D
}

// Channels returns the number of channel-view slabs Channel/ChannelAt
// walk over. Rank-1/2 tensors are always a single slab (CStep's
// padding only ever falls between channels, and rank<3 Mats have none
// per Create's shape inference), so kernels that must work at any
// rank should loop q over this rather than m.C directly.
func (m Mat) Channels() int {
	if m.Dims < 2 {
		return 1
	}
	return m.C
}

// ChannelAt returns the q-th channel-view slab. For Dims 2 and 3 this
// is Channel(q); for rank 4 it is Channel(q) viewed as one W*H*D slab;
// for rank-1 Mats, which Channel rejects, it is m itself, the only
// slab there is. Kernels that operate at any rank (ReLU,
// Softmax, Fill, Scale, ToF32, Cast) must index through ChannelAt
// rather than a flat 0..Total() loop, since CStep padding makes a flat
// index wrong for any channel after the first whenever W*H*D isn't
// already CStep-aligned (spec.md §3).
func (m Mat) ChannelAt(q int) Mat {
	if m.Dims < 2 {
		return m
	}
	if m.Dims == 4 {
		ch := m.Channel(q)
		ch.C, ch.D = 1, m.D
		return ch
	}
	return m.Channel(q)
}
