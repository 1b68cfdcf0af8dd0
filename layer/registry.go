// registry.go - process-wide layer type registry and dispatch
//
// Implements spec.md §4.E's "Dispatch": a central registry maps
// layer-type names to factories; for each type, zero or more
// specialized factories exist (scalar, CPU-SIMD, GPU). Resolution
// order at creation time: user-provided override, then GPU if
// requested and registered, then CPU-SIMD if the CPU exposes the
// required ISA, else scalar. Grounded on the teacher's
// ml.RegisterBackend/ml.NewBackend pair (a name-keyed factory map with
// a single resolution function) and on original_source/src/layer.h's
// layer_registry_entry / create_layer family for which resolution
// order to implement.
package layer

import (
	"fmt"
	"sync"

	"github.com/lattiml/lattice/internal/cpufeat"
)

// Backend identifies which kernel family a factory targets.
type Backend int

const (
	BackendScalar Backend = iota
	BackendCPUSIMD
	BackendGPU
)

// Factory constructs a new, unconfigured Layer instance.
type Factory func() Layer

type registryEntry struct {
	factories map[Backend]Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*registryEntry)
)

// Register adds a factory for typeName under backend. Per spec.md §9,
// registration is load-time only; no synchronization is promised (or
// needed) against concurrent Extractor.extract calls, since those never
// touch the registry.
func Register(typeName string, backend Backend, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	e, ok := registry[typeName]
	if !ok {
		e = &registryEntry{factories: make(map[Backend]Factory)}
		registry[typeName] = e
	}
	e.factories[backend] = f
}

// ResolveOptions carries the per-create_layer inputs that affect
// dispatch resolution order (spec.md §4.E).
type ResolveOptions struct {
	// Override, if non-empty, forces a specific backend's factory to
	// be used regardless of Vulkan/ISA availability. Matches "a
	// user-provided override" at the head of the resolution order.
	Override *Backend

	UseVulkanCompute bool
}

// Create resolves and instantiates a layer for typeName, following the
// resolution order from spec.md §4.E: user override, then GPU if
// requested and registered, then CPU-SIMD if the running CPU exposes
// the required ISA, else scalar.
func Create(typeName string, opts ResolveOptions) (Layer, error) {
	registryMu.RLock()
	e, ok := registry[typeName]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("layer: unknown type %q", typeName)
	}

	if opts.Override != nil {
		if f, ok := e.factories[*opts.Override]; ok {
			return f(), nil
		}
		return nil, fmt.Errorf("layer: type %q has no factory for overridden backend %d", typeName, *opts.Override)
	}

	if opts.UseVulkanCompute {
		if f, ok := e.factories[BackendGPU]; ok {
			return f(), nil
		}
	}

	if cpufeat.Available() != cpufeat.ISANone {
		if f, ok := e.factories[BackendCPUSIMD]; ok {
			return f(), nil
		}
	}

	if f, ok := e.factories[BackendScalar]; ok {
		return f(), nil
	}

	return nil, fmt.Errorf("layer: type %q has no scalar fallback factory", typeName)
}

// Registered reports whether typeName has at least one factory
// registered, for Net loader error messages distinguishing "unknown
// type" from other failures (spec.md §7).
func Registered(typeName string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[typeName]
	return ok
}
