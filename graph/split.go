package graph

import (
	"github.com/lattiml/lattice/layer"
)

// newSplitLayer resolves the registered "Split" layer type through the
// normal dispatch path (layer.Create), so a loader-inserted split uses
// whatever backend (scalar/SIMD/GPU) resolution would pick for any
// other layer of that type, per spec.md §4.E.
func newSplitLayer(instanceName string) (layer.Layer, error) {
	l, err := layer.Create("Split", layer.ResolveOptions{})
	if err != nil {
		return nil, err
	}
	if b, ok := l.(interface{ SetNames(typeName, instanceName string) }); ok {
		b.SetNames("Split", instanceName)
	}
	return l, nil
}
