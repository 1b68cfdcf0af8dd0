// cast.go - element-type conversion (spec.md §4.E "cast collaborator")
//
// Backs the explicit Cast built-in layer; the scheduler does not
// insert casts on its own. f16 uses
// IEEE binary16 via x448/float16; bf16 uses the high 16 bits of IEEE
// binary32 via d4l3k/go-bfloat16, per spec.md §4.C's framing rules.
package tensor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/d4l3k/go-bfloat16"
	"github.com/lattiml/lattice/alloc"
	"github.com/x448/float16"
)

// ToF32 returns the element values of m as float32, regardless of m's
// native DType, in dense logical (channel-major) order with none of
// storage's CStep padding between channels. m must have ElemPack 1;
// packed tensors should be unpacked via ConvertPacking first.
func (m Mat) ToF32() ([]float32, error) {
	if m.Empty() {
		return nil, nil
	}
	if m.ElemPack != Pack1 {
		return nil, fmt.Errorf("tensor: ToF32 requires elempack 1, got %d", m.ElemPack)
	}
	switch m.Type {
	case DTypeF32, DTypeF16, DTypeBF16, DTypeI8, DTypeI32:
	default:
		return nil, fmt.Errorf("tensor: ToF32 unsupported dtype %s", m.Type)
	}

	out := make([]float32, m.Total())
	pos := 0
	for q := 0; q < m.Channels(); q++ {
		ch := m.ChannelAt(q)
		b := ch.Bytes()
		n := ch.ChannelSize()

		switch m.Type {
		case DTypeF32:
			for i := 0; i < n; i++ {
				out[pos+i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
			}
		case DTypeF16:
			for i := 0; i < n; i++ {
				out[pos+i] = float16.Frombits(binary.LittleEndian.Uint16(b[i*2:])).Float32()
			}
		case DTypeBF16:
			copy(out[pos:pos+n], bfloat16.Decode(binary.LittleEndian, b[:n*2]))
		case DTypeI8:
			for i := 0; i < n; i++ {
				out[pos+i] = float32(int8(b[i]))
			}
		case DTypeI32:
			for i := 0; i < n; i++ {
				out[pos+i] = float32(int32(binary.LittleEndian.Uint32(b[i*4:])))
			}
		}
		pos += n
	}

	return out, nil
}

// Cast returns a new Mat holding the same logical values as m,
// reinterpreted (with rounding where needed) as dtype. m must have
// ElemPack 1. Matches the numeric intent of ncnn's cast.cpp: a no-op
// when type_from == type_to.
func (m Mat) Cast(dtype DType, a alloc.Allocator) (Mat, error) {
	if m.Empty() {
		return Mat{}, nil
	}
	if m.Type == dtype {
		return m.Clone(a)
	}

	f32, err := m.ToF32()
	if err != nil {
		return Mat{}, err
	}

	out, err := Create(m.W, m.H, m.D, m.C, dtype, m.ElemPack, a)
	if err != nil {
		return Mat{}, err
	}

	switch dtype {
	case DTypeF32, DTypeF16, DTypeBF16, DTypeI8, DTypeI32:
	default:
		out.Release()
		return Mat{}, fmt.Errorf("tensor: Cast unsupported target dtype %s", dtype)
	}

	pos := 0
	for q := 0; q < out.Channels(); q++ {
		ch := out.ChannelAt(q)
		b := ch.bytes()
		n := ch.ChannelSize()
		vals := f32[pos : pos+n]

		switch dtype {
		case DTypeF32:
			for i, v := range vals {
				binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
			}
		case DTypeF16:
			for i, v := range vals {
				binary.LittleEndian.PutUint16(b[i*2:], float16.Fromfloat32(v).Bits())
			}
		case DTypeBF16:
			copy(b, bfloat16.Encode(binary.LittleEndian, vals))
		case DTypeI8:
			for i, v := range vals {
				b[i] = byte(int8(roundClampInt8(v)))
			}
		case DTypeI32:
			for i, v := range vals {
				binary.LittleEndian.PutUint32(b[i*4:], uint32(int32(v)))
			}
		}
		pos += n
	}

	return out, nil
}

// roundClampInt8 rounds to nearest (half away from zero) and saturates
// to the int8 range, matching ncnn's float32_to_int8.
func roundClampInt8(v float32) int {
	var tmp float32
	if v >= 0 {
		tmp = v + 0.5
	} else {
		tmp = v - 0.5
	}
	if tmp > 127 {
		return 127
	}
	if tmp < -128 {
		return -128
	}
	return int(tmp)
}
