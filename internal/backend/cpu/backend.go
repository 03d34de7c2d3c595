// Package cpu implements the array primitives of the sequence layer on the CPU.
package cpu

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/born-ml/seqadapt/internal/parallel"
	"github.com/born-ml/seqadapt/internal/tensor"
)

// CPUBackend implements tensor.Backend on the CPU.
//
// The random source used for dropout masks is guarded by a mutex, so one
// backend may be shared by layers running on different goroutines.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config

	mu  sync.Mutex
	src rand.Source
}

// New creates a CPU backend with a randomly seeded mask source.
func New() *CPUBackend {
	return NewWithSeed(rand.Uint64())
}

// NewWithSeed creates a CPU backend whose dropout masks are reproducible
// for a given seed.
func NewWithSeed(seed uint64) *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: parallel.DefaultConfig(),
		src:      rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
}

// SetParallel replaces the config used to split per-item copies and
// element-wise loops across goroutines.
func (cpu *CPUBackend) SetParallel(cfg parallel.Config) {
	cpu.parallel = cfg
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// mustBeLive panics when an operand's buffer has already been released.
func mustBeLive(op string, ts ...*tensor.RawTensor) {
	for i, t := range ts {
		if t.Released() {
			panic(fmt.Sprintf("%s: operand %d %v has been released", op, i, t.Shape()))
		}
	}
}

// Reshape copies t into a new array with newShape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	mustBeLive("reshape", t)
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: invalid shape: %v", err))
	}

	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			t.Shape(), newShape))
	}

	result, err := tensor.NewRaw(newShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}

	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes the axes of t. With no axes all dimensions are reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	mustBeLive("transpose", t)
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD array", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(newShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	transposeBytes(result.Data(), t.Data(), shape, axes, t.DType().Size())
	return result
}

// transposeBytes moves whole elements of elemSize bytes, so it serves
// every dtype.
func transposeBytes(dst, src []byte, shape tensor.Shape, axes []int, elemSize int) {
	ndim := len(shape)
	srcStrides := shape.ComputeStrides()

	dstShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		dstShape[i] = shape[ax]
	}
	dstStrides := dstShape.ComputeStrides()

	n := shape.NumElements()
	coords := make([]int, ndim)
	for i := 0; i < n; i++ {
		idx := i
		for dim := 0; dim < ndim; dim++ {
			coords[dim] = idx / srcStrides[dim]
			idx %= srcStrides[dim]
		}

		dstIdx := 0
		for dstDim, srcDim := range axes {
			dstIdx += coords[srcDim] * dstStrides[dstDim]
		}

		copy(dst[dstIdx*elemSize:(dstIdx+1)*elemSize], src[i*elemSize:(i+1)*elemSize])
	}
}

// Mul performs element-wise multiplication of two same-shaped Float32 arrays.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	mustBeLive("mul", a, b)
	if !a.Shape().Equal(b.Shape()) {
		panic(fmt.Sprintf("mul: shape mismatch: %v vs %v", a.Shape(), b.Shape()))
	}

	result, err := tensor.NewRaw(a.Shape(), tensor.Float32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("mul: failed to create result array: %v", err))
	}

	dst, aData, bData := result.AsFloat32(), a.AsFloat32(), b.AsFloat32()
	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = aData[i] * bData[i]
		}
	}, cpu.parallel)
	return result
}

// MulScalar multiplies every element of a Float32 array by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	mustBeLive("mulscalar", x)
	result, err := tensor.NewRaw(x.Shape(), tensor.Float32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("mulscalar: %v", err))
	}

	dst, src := result.AsFloat32(), x.AsFloat32()
	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = src[i] * scalar
		}
	}, cpu.parallel)
	return result
}
