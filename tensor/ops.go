// ops.go - elementwise helpers: Fill, Scale, SubMean
//
// These operate on DTypeF32 storage only; callers needing fill/scale on
// other element types should Cast first. Kept deliberately small: the
// bulk numeric kernel corpus is an external collaborator per spec.md
// §1(i), this file only covers the handful of Mat-level utilities the
// spec calls out by name in §4.B.
package tensor

import (
	"encoding/binary"
	"fmt"
	"math"
)

func (m Mat) f32Slice() ([]float32, error) {
	if m.Type != DTypeF32 {
		return nil, fmt.Errorf("tensor: operation requires f32, got %s", m.Type)
	}
	if m.ElemPack != Pack1 {
		return nil, fmt.Errorf("tensor: operation requires elempack 1, got %d", m.ElemPack)
	}

	b := m.Bytes()
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}


// Fill sets every element of an f32 tensor to v.
func (m Mat) Fill(v float32) error {
	if m.Type != DTypeF32 || m.ElemPack != Pack1 {
		return fmt.Errorf("tensor: Fill requires f32/pack1")
	}
	for q := 0; q < m.Channels(); q++ {
		ch := m.ChannelAt(q)
		n := ch.ChannelSize()
		for i := 0; i < n; i++ {
			ch.SetF32(i, v)
		}
	}
	return nil
}

// Scale multiplies every element of an f32 tensor by s, in place.
func (m Mat) Scale(s float32) error {
	if m.Type != DTypeF32 || m.ElemPack != Pack1 {
		return fmt.Errorf("tensor: Scale requires f32/pack1")
	}
	for q := 0; q < m.Channels(); q++ {
		ch := m.ChannelAt(q)
		vals, err := ch.f32Slice()
		if err != nil {
			return err
		}
		for i, v := range vals {
			ch.SetF32(i, v*s)
		}
	}
	return nil
}

// SubMean subtracts a per-channel mean from a rank-3 (w,h,c) tensor in
// place, matching ncnn's Mat::substract_mean_normalize without the
// companion normalization (kept separate to match spec.md's naming:
// "subtract-mean / scale" are listed as distinct operations).
func (m Mat) SubMean(means []float32) error {
	if m.Dims != 3 {
		return fmt.Errorf("tensor: SubMean requires rank 3, got %d", m.Dims)
	}
	if len(means) != m.C {
		return fmt.Errorf("tensor: SubMean needs %d means, got %d", m.C, len(means))
	}

	size := m.W * m.H
	for q := 0; q < m.C; q++ {
		ch := m.Channel(q)
		vals, err := ch.f32Slice()
		if err != nil {
			return err
		}
		for i := 0; i < size; i++ {
			ch.SetF32(i, vals[i]-means[q])
		}
	}
	return nil
}

// Equal reports whether two Mats have identical shape, type, pack and
// bitwise-identical element bytes. Used by tests asserting determinism
// (spec.md §8).
func Equal(a, b Mat) bool {
	if a.Empty() != b.Empty() {
		return false
	}
	if a.Empty() {
		return true
	}
	if a.W != b.W || a.H != b.H || a.D != b.D || a.C != b.C || a.Dims != b.Dims {
		return false
	}
	if a.Type != b.Type || a.ElemPack != b.ElemPack {
		return false
	}

	ab, bb := a.Bytes(), b.Bytes()
	if len(ab) != len(bb) {
		return false
	}
	for i := range ab {
		if ab[i] != bb[i] {
			return false
		}
	}
	return true
}
