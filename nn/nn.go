// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/seqadapt/internal/nn"
	"github.com/born-ml/seqadapt/seq"
	"github.com/born-ml/seqadapt/tensor"
)

// Layer is the contract shared by every transform.
type Layer[In, Out any] = nn.Layer[In, Out]

// Backprop maps an output gradient to an input gradient.
type Backprop[Out, In any] = nn.Backprop[Out, In]

// BackpropFunc adapts a plain function to the Backprop interface.
type BackpropFunc[Out, In any] = nn.BackpropFunc[Out, In]

// SeqLayer is a layer over any sequence representation.
type SeqLayer = nn.SeqLayer

// Array2DLayer is a layer over (rows, features) arrays.
type Array2DLayer = nn.Array2DLayer

// PaddedLayer is a layer over time-major Padded batches.
type PaddedLayer = nn.PaddedLayer

// Dims is a table of named layer dimensions.
type Dims = nn.Dims

// NewDims declares the given dimension names, all unset.
func NewDims(names ...string) *Dims {
	return nn.NewDims(names...)
}

// Errors returned by layers.
var (
	ErrNotInitialized = nn.ErrNotInitialized
	ErrDimMismatch    = nn.ErrDimMismatch
	ErrUnknownDim     = nn.ErrUnknownDim
)

// Adapters

// WithArray2D runs a 2D array layer over any sequence representation.
type WithArray2D = nn.WithArray2D

// NewWithArray2D wraps layer. List items are separated by pad zero rows.
//
// Example:
//
//	backend := cpu.New()
//	adapter := nn.NewWithArray2D(nn.NewLinear(0, 16), backend, 1)
func NewWithArray2D(layer Array2DLayer, backend tensor.Backend, pad int) *WithArray2D {
	return nn.NewWithArray2D(layer, backend, pad)
}

// WithPadded runs a Padded layer over any sequence representation.
type WithPadded = nn.WithPadded

// NewWithPadded wraps layer.
//
// Example:
//
//	adapter := nn.NewWithPadded(nn.NewRunningSum(), backend)
func NewWithPadded(layer PaddedLayer, backend tensor.Backend) *WithPadded {
	return nn.NewWithPadded(layer, backend)
}

// Dropout zeroes random elements of its input during training.
type Dropout = nn.Dropout

// NewDropout creates a dropout layer. Panics if rate is outside [0, 1].
func NewDropout(rate float32, backend tensor.Backend) *Dropout {
	return nn.NewDropout(rate, backend)
}

// Layers

// Linear implements a fully connected layer over (rows, nI) arrays.
type Linear = nn.Linear

// NewLinear creates a Linear layer. Zero widths are resolved by Initialize.
func NewLinear(nI, nO int) *Linear {
	return nn.NewLinear(nI, nO)
}

// RunningSum accumulates every item's features over time.
type RunningSum = nn.RunningSum

// NewRunningSum creates a RunningSum layer.
func NewRunningSum() *RunningSum {
	return nn.NewRunningSum()
}

// Identity returns its input unchanged.
type Identity[T any] = nn.Identity[T]

// NewIdentity creates an identity layer with the given name.
func NewIdentity[T any](name string) *Identity[T] {
	return nn.NewIdentity[T](name)
}

// Chain feeds the output of one layer into another.
type Chain[A, B, C any] = nn.Chain[A, B, C]

// NewChain composes first and second.
func NewChain[A, B, C any](first Layer[A, B], second Layer[B, C]) *Chain[A, B, C] {
	return nn.NewChain(first, second)
}

// Sequential chains sequence layers together.
type Sequential = nn.Sequential

// NewSequential creates a new Sequential container.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewDropout(0.1, backend),
//	    nn.NewWithArray2D(nn.NewLinear(0, 16), backend, 0),
//	)
func NewSequential(layers ...SeqLayer) *Sequential {
	return nn.NewSequential(layers...)
}

// Compile-time checks that the adapters are sequence layers.
var (
	_ SeqLayer = (*WithArray2D)(nil)
	_ SeqLayer = (*WithPadded)(nil)
	_ SeqLayer = (*Dropout)(nil)
	_ SeqLayer = (*Sequential)(nil)

	_ Layer[seq.Padded, seq.Padded]               = (*RunningSum)(nil)
	_ Layer[*tensor.RawTensor, *tensor.RawTensor] = (*Linear)(nil)
)
