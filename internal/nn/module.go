// Package nn implements the layers of the sequence adapter framework.
//
// This package provides:
//   - Layer interface: the forward/backward contract every transform follows
//   - Dims: named dimension table shared between wrappers and wrapped layers
//   - Dropout: stochastic masking over any sequence representation
//   - WithArray2D: runs a 2D array layer over any sequence representation
//   - WithPadded: runs a Padded layer over any sequence representation
//   - Linear, RunningSum, Identity: concrete transforms to wrap
//   - Sequential: container for chaining sequence layers
package nn

import "errors"

// Common errors.
var (
	ErrNotInitialized = errors.New("layer not initialized")
	ErrDimMismatch    = errors.New("dimension mismatch")
	ErrUnknownDim     = errors.New("unknown dimension")
)

// Layer is the contract shared by every transform.
//
// Forward runs the transform and returns the output together with the
// Backprop context that holds everything captured during this call.
// A layer keeps no per-call state of its own, so one layer may serve
// concurrent Forward calls as long as each call owns its containers.
//
// A layer that keeps an input or output array beyond Forward takes its own
// reference with Clone, so callers may Release intermediates they created.
type Layer[In, Out any] interface {
	// Name identifies the layer, e.g. "with_array(linear)".
	Name() string

	// Forward computes the output for x. The train flag enables
	// training-only behavior such as dropout.
	Forward(x In, train bool) (Out, Backprop[Out, In], error)

	// Initialize resolves unset dimensions from optional samples.
	// A zero sample (nil array, nil Seq, Padded with nil Data) means none.
	Initialize(x In, y Out) error

	// Dims returns the layer's named dimension table.
	Dims() *Dims
}

// Backprop is the context produced by one Forward call.
//
// Backward maps a gradient shaped like the forward output to a gradient
// shaped like the forward input. It reuses exactly the state captured at
// forward time, so calling it twice with the same gradient gives the same
// result.
type Backprop[Out, In any] interface {
	Backward(dY Out) (In, error)
}

// BackpropFunc adapts a plain function to the Backprop interface.
type BackpropFunc[Out, In any] func(dY Out) (In, error)

// Backward calls f(dY).
func (f BackpropFunc[Out, In]) Backward(dY Out) (In, error) {
	return f(dY)
}

// identityBackprop returns the gradient unchanged.
type identityBackprop[T any] struct{}

func (identityBackprop[T]) Backward(dY T) (T, error) {
	return dY, nil
}
