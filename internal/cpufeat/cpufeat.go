// Package cpufeat - CPU instruction-set probing backing layer dispatch
//
// A real SIMD kernel package would consult this to decide whether to
// register its CPU-SIMD factory variants at all; structurally this is
// grounded on ml/device_info.go's device/capability detection, and on
// janpfeifer-go-highway's per-architecture dispatch files
// (hwy/dispatch_amd64.go, hwy/dispatch_arm64.go) which this package
// imitates the shape of (a build-tag-gated file per architecture
// selecting what the probe reports) without vendoring the library:
// highway is a generic SIMD primitives library with no tensor/layer
// contract of its own to adapt, so only the dispatch *pattern* is
// grounded here, not the code.
package cpufeat

// ISA identifies a CPU SIMD instruction-set extension a kernel family
// might specialize for.
type ISA int

const (
	ISANone ISA = iota
	ISAAVX2
	ISANEON
)

// Available reports the ISA this process can dispatch to, detected
// once at package init and cached; nil-safe to call from any
// goroutine.
func Available() ISA {
	return detected
}

var detected = detect()
