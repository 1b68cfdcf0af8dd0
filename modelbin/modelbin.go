// Package modelbin - positional binary weight stream reader
//
// Implements spec.md §4.C's ModelBin: "reads weight tensors from a
// positional binary stream. Two framings exist: (1) tagged ...; (2)
// raw ...". Grounded on fs/ggml/gguf_reader.go's generic readGGUF[T]
// helper and gguf.go's tag-driven tensor decode loop for the Go idiom
// of a small positional reader over an io.Reader, adapted to this
// spec's own (simpler, fully self-described) tag scheme rather than
// GGUF's.
package modelbin

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/d4l3k/go-bfloat16"
	"github.com/lattiml/lattice/alloc"
	"github.com/lattiml/lattice/tensor"
	"github.com/x448/float16"
)

// ErrShortRead is returned when the underlying stream ends before the
// declared element count is satisfied, per spec.md §7 ("Malformed
// weights / short read").
var ErrShortRead = errors.New("modelbin: short read")

// Tag selects the element type (and, for int8, the presence of a
// trailing per-tensor quantization scale) encoded in a tagged
// tensor's leading 32-bit word.
type Tag uint32

const (
	TagFloat32 Tag = 0
	TagFloat16 Tag = 1
	TagInt8    Tag = 2 // followed by count int8 values, then one float32 scale
	TagBFloat16 Tag = 3
)

// Reader reads tensors from a positional little-endian binary stream,
// per spec.md §6 ("Weight file ... little-endian").
type Reader struct {
	r io.Reader
}

// NewReader wraps r as a ModelBin-style positional reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// LoadTagged reads one tensor using the tagged framing: a leading
// 32-bit Tag word selects the element type, followed by count
// elements of the packed payload and, for TagInt8, a trailing float32
// per-tensor scale. Returns the tensor as f32 and the scale (1.0 for
// non-quantized tags).
func (r *Reader) LoadTagged(count int, a alloc.Allocator) (tensor.Mat, float32, error) {
	var tagWord uint32
	if err := binary.Read(r.r, binary.LittleEndian, &tagWord); err != nil {
		return tensor.Mat{}, 0, fmt.Errorf("%w: reading tag: %v", ErrShortRead, err)
	}

	switch Tag(tagWord) {
	case TagFloat32:
		m, err := r.loadRawF32(count, a)
		return m, 1, err
	case TagFloat16:
		m, err := r.loadRawF16(count, a)
		return m, 1, err
	case TagBFloat16:
		m, err := r.loadRawBF16(count, a)
		return m, 1, err
	case TagInt8:
		raw := make([]byte, count)
		if _, err := io.ReadFull(r.r, raw); err != nil {
			return tensor.Mat{}, 0, fmt.Errorf("%w: reading int8 payload: %v", ErrShortRead, err)
		}
		var scale float32
		if err := binary.Read(r.r, binary.LittleEndian, &scale); err != nil {
			return tensor.Mat{}, 0, fmt.Errorf("%w: reading int8 scale: %v", ErrShortRead, err)
		}

		m, err := tensor.Create(count, 0, 0, 0, tensor.DTypeF32, tensor.Pack1, a)
		if err != nil {
			return tensor.Mat{}, 0, err
		}
		vals := make([]float32, count)
		for i, b := range raw {
			vals[i] = float32(int8(b)) * scale
		}
		if err := fillF32(m, vals); err != nil {
			return tensor.Mat{}, 0, err
		}
		return m, scale, nil
	default:
		return tensor.Mat{}, 0, fmt.Errorf("modelbin: unknown tag %d", tagWord)
	}
}

// LoadRaw reads count elements of a type known ahead of time (the
// "raw" framing of spec.md §4.C), with no leading tag word.
func (r *Reader) LoadRaw(count int, dtype tensor.DType, a alloc.Allocator) (tensor.Mat, error) {
	switch dtype {
	case tensor.DTypeF32:
		return r.loadRawF32(count, a)
	case tensor.DTypeF16:
		return r.loadRawF16(count, a)
	case tensor.DTypeBF16:
		return r.loadRawBF16(count, a)
	default:
		return tensor.Mat{}, fmt.Errorf("modelbin: unsupported raw dtype %s", dtype)
	}
}

func (r *Reader) loadRawF32(count int, a alloc.Allocator) (tensor.Mat, error) {
	m, err := tensor.Create(count, 0, 0, 0, tensor.DTypeF32, tensor.Pack1, a)
	if err != nil {
		return tensor.Mat{}, err
	}
	buf := m.Bytes()
	if _, err := io.ReadFull(r.r, buf); err != nil {
		m.Release()
		return tensor.Mat{}, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	return m, nil
}

func (r *Reader) loadRawF16(count int, a alloc.Allocator) (tensor.Mat, error) {
	raw := make([]byte, count*2)
	if _, err := io.ReadFull(r.r, raw); err != nil {
		return tensor.Mat{}, fmt.Errorf("%w: %v", ErrShortRead, err)
	}

	m, err := tensor.Create(count, 0, 0, 0, tensor.DTypeF32, tensor.Pack1, a)
	if err != nil {
		return tensor.Mat{}, err
	}
	vals := make([]float32, count)
	for i := range vals {
		bits := binary.LittleEndian.Uint16(raw[i*2:])
		vals[i] = float16.Frombits(bits).Float32()
	}
	if err := fillF32(m, vals); err != nil {
		return tensor.Mat{}, err
	}
	return m, nil
}

func (r *Reader) loadRawBF16(count int, a alloc.Allocator) (tensor.Mat, error) {
	raw := make([]byte, count*2)
	if _, err := io.ReadFull(r.r, raw); err != nil {
		return tensor.Mat{}, fmt.Errorf("%w: %v", ErrShortRead, err)
	}

	vals := bfloat16.Decode(binary.LittleEndian, raw)

	m, err := tensor.Create(count, 0, 0, 0, tensor.DTypeF32, tensor.Pack1, a)
	if err != nil {
		return tensor.Mat{}, err
	}
	if err := fillF32(m, vals); err != nil {
		return tensor.Mat{}, err
	}
	return m, nil
}

func fillF32(m tensor.Mat, vals []float32) error {
	b := m.Bytes()
	if len(b) < len(vals)*4 {
		return fmt.Errorf("modelbin: destination tensor too small")
	}
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return nil
}
