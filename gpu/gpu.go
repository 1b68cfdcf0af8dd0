// Package gpu - command-buffer collaborator trait (spec.md §9)
//
// "A VkCompute-style command recorder buffers kernel submissions,
// uploads, and downloads... In a systems-language rewrite, this
// collaborator is best modeled as a trait with separate record/
// submit/wait operations; the spec does not mandate a particular
// driver API." This package is exactly that trait and nothing more:
// no driver is implemented, matching spec.md §1(iii)'s GPU shader
// compilation exclusion. Grounded on ml/backend.go's Backend interface
// for the "small interface the rest of the engine programs against,
// with the real implementation out of scope" shape.
package gpu

import (
	"context"
	"errors"

	"github.com/lattiml/lattice/alloc"
	"github.com/lattiml/lattice/tensor"
)

// ErrNoDriver is returned by the package-level CommandBuffer
// constructor: this module ships no GPU driver, only the trait.
var ErrNoDriver = errors.New("gpu: no command-buffer driver registered")

// CommandBuffer buffers kernel submissions, uploads and downloads
// across one extract call, flushing at extract boundaries (spec.md §9).
type CommandBuffer interface {
	// RecordUpload schedules host-to-device transfer of t, returning a
	// device-resident handle opaque to the scheduler.
	RecordUpload(t tensor.Mat) (DeviceTensor, error)

	// RecordKernel schedules a named kernel invocation over the given
	// device tensors; params is kernel-specific and opaque here.
	RecordKernel(name string, ins []DeviceTensor, params any) ([]DeviceTensor, error)

	// RecordDownload schedules device-to-host transfer, returning a
	// host Mat once Wait completes.
	RecordDownload(t DeviceTensor, a alloc.Allocator) (tensor.Mat, error)

	// Submit flushes every recorded operation to the device.
	Submit(ctx context.Context) error

	// Wait blocks until the most recent Submit's work has completed.
	// For GPU paths that expose fence-based cancellation, ctx
	// cancellation unblocks Wait early (spec.md §4.H "Cancellation").
	Wait(ctx context.Context) error
}

// DeviceTensor is an opaque handle to device-resident storage, created
// by CommandBuffer.RecordUpload and consumed by RecordKernel/
// RecordDownload.
type DeviceTensor interface {
	// Shape reports the logical dims of the device-resident tensor,
	// for kernel dispatch sizing without a host round-trip.
	Shape() (w, h, d, c int)
}

// Factory constructs a CommandBuffer bound to one physical device.
// No implementation ships in this module; a real backend would
// register one the way layer.Register binds a type name to a
// constructor.
type Factory func() (CommandBuffer, error)

// NewCommandBuffer always fails: this module carries the GPU trait
// only, per spec.md §1(iii). Callers checking UseVulkanCompute should
// treat this as "fall back to CPU" per spec.md §7's GPU failure row.
func NewCommandBuffer() (CommandBuffer, error) {
	return nil, ErrNoDriver
}
