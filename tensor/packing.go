// packing.go - ConvertPacking: rearrange interleaved SIMD lanes
//
// Implements spec.md §4.B's "convert_packing(convert_packing(T, k), 1)
// equals T" property. Packing is defined over the tensor's outermost
// axis (the channel axis for rank 3/4 tensors): a Mat with ElemPack k
// has logicalChannels/k "lanes" (the logical channel count must be
// divisible by k), each lane storing k channels'
// values interleaved per spatial position, per the GLOSSARY definition
// of elempack.
package tensor

import (
	"encoding/binary"
	"fmt"

	"github.com/lattiml/lattice/alloc"
)

// ConvertPacking produces a new Mat holding the same logical values as
// m but laid out with elempack target. Only rank 3 and 4 tensors
// support a non-trivial pack change; for rank 1 and 2, target must
// equal m's current pack, and the result is then a clone.
func (m Mat) ConvertPacking(target ElemPack, a alloc.Allocator) (Mat, error) {
	if m.Empty() {
		return Mat{}, nil
	}
	if !target.valid() {
		return Mat{}, fmt.Errorf("tensor: invalid target elempack %d", target)
	}
	if target == m.ElemPack {
		return m.Clone(a)
	}
	if m.Type != DTypeF32 {
		return Mat{}, fmt.Errorf("tensor: ConvertPacking currently supports f32 only, got %s", m.Type)
	}
	if m.Dims < 3 {
		return Mat{}, fmt.Errorf("tensor: ConvertPacking requires rank >= 3, got %d", m.Dims)
	}

	logicalChannels := m.C * int(m.ElemPack)
	targetLanes := logicalChannels / int(target)
	if logicalChannels%int(target) != 0 {
		return Mat{}, fmt.Errorf("tensor: %d logical channels not divisible by target pack %d", logicalChannels, target)
	}

	slab := m.W * m.H * m.D

	out, err := CreateDims(m.Dims, m.W, m.H, m.D, targetLanes, m.Type, target, a)
	if err != nil {
		return Mat{}, err
	}

	srcK := int(m.ElemPack)
	dstK := int(target)

	for lane := 0; lane < targetLanes; lane++ {
		for j := 0; j < dstK; j++ {
			logicalCh := lane*dstK + j
			srcLane := logicalCh / srcK
			srcJ := logicalCh % srcK

			srcCh := m.Channel(srcLane)
			srcB := srcCh.bytes()

			for s := 0; s < slab; s++ {
				bits := binary.LittleEndian.Uint32(srcB[(s*srcK+srcJ)*4:])
				writePackedF32(out, lane, s, dstK, j, bits)
			}
		}
	}

	return out, nil
}

func writePackedF32(m Mat, lane, s, k, j int, bits uint32) {
	ch := m.Channel(lane)
	b := ch.bytes()
	binary.LittleEndian.PutUint32(b[(s*k+j)*4:], bits)
}
