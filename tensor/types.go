// Package tensor - Mat: das zentrale N-dimensionale Tensor-Objekt
//
// Dieses Modul definiert die grundlegenden Typen:
// - DType: erkannte Elementtypen (f32, f16, bf16, i8, i32)
// - ElemPack: SIMD-Lane-Packfaktor
// - Mat: der eigentliche Tensor mit refcounted Storage
package tensor

import "fmt"

// DType identifies the element type stored in a Mat. The element byte
// size together with ElemPack conveys the storage type to kernels, per
// spec.md §3.
type DType int

const (
	DTypeF32 DType = iota
	DTypeF16
	DTypeBF16
	DTypeI8
	DTypeI32
)

// ElemSize returns the natural (unpacked) byte size of one element of
// this type.
func (d DType) ElemSize() int {
	switch d {
	case DTypeF32:
		return 4
	case DTypeF16, DTypeBF16:
		return 2
	case DTypeI8:
		return 1
	case DTypeI32:
		return 4
	default:
		panic(fmt.Sprintf("tensor: unknown dtype %d", d))
	}
}

func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "f32"
	case DTypeF16:
		return "f16"
	case DTypeBF16:
		return "bf16"
	case DTypeI8:
		return "i8"
	case DTypeI32:
		return "i32"
	default:
		return "unknown"
	}
}

// ElemPack is the number of scalars interleaved per outer-axis index
// for SIMD, per the GLOSSARY. Only 1, 4 and 8 are recognized.
type ElemPack int

const (
	Pack1 ElemPack = 1
	Pack4 ElemPack = 4
	Pack8 ElemPack = 8
)

func (p ElemPack) valid() bool {
	return p == Pack1 || p == Pack4 || p == Pack8
}
