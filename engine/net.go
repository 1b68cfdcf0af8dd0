// Package engine - Net loader (spec.md §4.G)
//
// Parses the topology descriptor (§6), resolves each layer through
// layer.Create, wires graph.Graph, runs LoadParam/LoadModel/
// CreatePipeline in three passes, and releases partial state on any
// failure. Grounded on fs/ggml/gguf_reader.go for the "parse a
// self-describing binary/text format into typed in-memory structures"
// shape, and on fs/ggml/gguf_write.go's errgroup.Group usage for the
// concurrent CreatePipeline fan-out.
package engine

import (
	"bufio"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lattiml/lattice/graph"
	"github.com/lattiml/lattice/layer"
	"github.com/lattiml/lattice/modelbin"
	"github.com/lattiml/lattice/option"
	"github.com/lattiml/lattice/paramdict"
)

// Magic is the fixed literal topology files must open with, per
// spec.md §6 ("Line 1: magic number (fixed literal)").
const Magic = "LATTICE1"

// Net is a loaded, immutable topology plus weights, ready to back any
// number of concurrent Extractors (spec.md §4.H "the Net's post-load
// state is immutable").
type Net struct {
	Graph *graph.Graph
}

// Load parses topo (the topology descriptor) and bin (the weight
// stream) into a ready-to-extract Net, per spec.md §4.G's three
// passes. opt controls which backend layer.Create resolves to
// (UseVulkanCompute) and is otherwise not retained - each Extractor
// supplies its own Option copy at extract time.
func Load(topo io.Reader, bin io.Reader, opt option.Option) (*Net, error) {
	g := graph.New()

	scanner := bufio.NewScanner(topo)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	if !scanner.Scan() {
		return nil, fmt.Errorf("engine: empty topology stream")
	}
	if magic := strings.TrimSpace(scanner.Text()); magic != Magic {
		return nil, fmt.Errorf("engine: bad magic %q, want %q", magic, Magic)
	}

	if !scanner.Scan() {
		return nil, fmt.Errorf("engine: missing layer/blob count line")
	}
	counts := strings.Fields(scanner.Text())
	if len(counts) != 2 {
		return nil, fmt.Errorf("engine: layer/blob count line must have 2 fields, got %d", len(counts))
	}
	layerCount, err := strconv.Atoi(counts[0])
	if err != nil {
		return nil, fmt.Errorf("engine: invalid layer count: %w", err)
	}
	blobCount, err := strconv.Atoi(counts[1])
	if err != nil {
		return nil, fmt.Errorf("engine: invalid blob count: %w", err)
	}

	for i := 0; i < layerCount; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("engine: expected %d layer lines, stream ended after %d", layerCount, i)
		}
		if err := loadLayerLine(g, scanner.Text(), opt); err != nil {
			releasePartial(g)
			return nil, fmt.Errorf("engine: layer %d: %w", i, err)
		}
	}
	if err := scanner.Err(); err != nil {
		releasePartial(g)
		return nil, fmt.Errorf("engine: reading topology: %w", err)
	}

	if len(g.Blobs) != blobCount {
		// Split insertion grows the blob count beyond what the topology
		// header declared; that's expected whenever any blob fans out,
		// so only a *smaller* observed count is a real mismatch.
		if len(g.Blobs) < blobCount {
			releasePartial(g)
			return nil, fmt.Errorf("engine: declared %d blobs, parsed %d", blobCount, len(g.Blobs))
		}
	}

	mb := modelbin.NewReader(bin)
	for i, node := range g.Layers {
		if err := node.Layer.LoadModel(mb); err != nil {
			releasePartial(g)
			return nil, fmt.Errorf("engine: loading weights for layer %d (%s %q): %w", i, node.Layer.Type(), node.Name, err)
		}
	}

	eg := new(errgroup.Group)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for _, node := range g.Layers {
		l := node.Layer
		eg.Go(func() error {
			return l.CreatePipeline(opt)
		})
	}
	if err := eg.Wait(); err != nil {
		releasePartial(g)
		return nil, fmt.Errorf("engine: create_pipeline: %w", err)
	}

	return &Net{Graph: g}, nil
}

func loadLayerLine(g *graph.Graph, line string, opt option.Option) error {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return fmt.Errorf("malformed layer line: %q", line)
	}

	typeName, instanceName := fields[0], fields[1]
	nbottoms, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("invalid bottom count: %w", err)
	}
	ntops, err := strconv.Atoi(fields[3])
	if err != nil {
		return fmt.Errorf("invalid top count: %w", err)
	}

	need := 4 + nbottoms + ntops
	if len(fields) < need {
		return fmt.Errorf("layer line too short: need %d fields for %d bottoms/%d tops, have %d", need, nbottoms, ntops, len(fields))
	}

	bottomNames := append([]string(nil), fields[4:4+nbottoms]...)
	topNames := append([]string(nil), fields[4+nbottoms:need]...)
	kvFields := fields[need:]

	if !layer.Registered(typeName) {
		return fmt.Errorf("unknown layer type %q", typeName)
	}
	l, err := layer.Create(typeName, layer.ResolveOptions{UseVulkanCompute: opt.UseVulkanCompute})
	if err != nil {
		return err
	}
	if b, ok := l.(interface{ SetNames(typeName, instanceName string) }); ok {
		b.SetNames(typeName, instanceName)
	}

	pd, err := paramdict.ParseFields(kvFields)
	if err != nil {
		return fmt.Errorf("parsing params: %w", err)
	}
	if err := l.LoadParam(pd); err != nil {
		return fmt.Errorf("load_param: %w", err)
	}

	return g.AddLayer(instanceName, l, bottomNames, topNames)
}

// releasePartial tears down any pipelines already created before a
// load failure, per spec.md §7 ("Malformed topology: Net-load returns
// negative; partial state released").
func releasePartial(g *graph.Graph) {
	for _, node := range g.Layers {
		_ = node.Layer.DestroyPipeline(option.Option{})
	}
}

// Close releases every layer's pipeline state. Call once a Net is no
// longer needed; layer weights themselves are ordinary Go memory and
// are reclaimed by the garbage collector once the last reference drops.
func (n *Net) Close(opt option.Option) error {
	for _, node := range n.Graph.Layers {
		if err := node.Layer.DestroyPipeline(opt); err != nil {
			return err
		}
	}
	return nil
}
