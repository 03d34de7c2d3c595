// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package seq provides the four representations of a batch of
// variable-length sequences and the conversions between them.
//
// # Representations
//
//   - List: one (length_i, features) array per item
//   - Ragged: all items concatenated along axis 0, plus lengths
//   - Padded: a time-major (steps, batch, features) array sorted by
//     descending length, plus size_at_t, lengths and indices
//   - Dense: a plain array, or the four Padded arrays in wire form
//
// Example:
//
//	backend := cpu.New()
//	items := seq.List{a, b, c}                 // lengths 3, 1, 2
//	p, err := seq.List2Padded(backend, items)  // indices [0 2 1], size_at_t [3 2 1]
//	back, err := seq.Padded2List(backend, p)   // original order restored
package seq

import (
	"github.com/born-ml/seqadapt/internal/seq"
	"github.com/born-ml/seqadapt/tensor"
)

// Seq is one of List, Ragged, Padded or Dense.
type Seq = seq.Seq

// Kind identifies a sequence representation.
type Kind = seq.Kind

// Representation kinds.
const (
	KindList   = seq.KindList
	KindRagged = seq.KindRagged
	KindPadded = seq.KindPadded
	KindDense  = seq.KindDense
)

// List holds one array per batch item.
type List = seq.List

// Ragged holds the items concatenated along axis 0 with their lengths.
type Ragged = seq.Ragged

// Padded holds a time-major batch sorted by descending length.
type Padded = seq.Padded

// Dense holds arrays with no per-item metadata.
type Dense = seq.Dense

// ShapeError provides detail about a failed shape precondition.
type ShapeError = seq.ShapeError

// Errors returned by conversions and adapters.
var (
	ErrShapeMismatch = seq.ErrShapeMismatch
	ErrUnrecognized  = seq.ErrUnrecognized
)

// NewRagged builds a Ragged from data and integer lengths.
func NewRagged(data *tensor.RawTensor, lengths []int) Ragged {
	return seq.NewRagged(data, lengths)
}

// NewDense wraps a single array.
func NewDense(x *tensor.RawTensor) Dense {
	return seq.NewDense(x)
}

// NewPaddedData wraps the four arrays of the Padded wire form.
func NewPaddedData(data, sizeAtT, lengths, indices *tensor.RawTensor) Dense {
	return seq.NewPaddedData(data, sizeAtT, lengths, indices)
}

// FromPadded returns the wire form of p.
func FromPadded(p Padded) Dense {
	return seq.FromPadded(p)
}

// Flatten concatenates the items of xs with pad zero rows around each one.
func Flatten(b tensor.Backend, xs List, pad int) (*tensor.RawTensor, error) {
	return seq.Flatten(b, xs, pad)
}

// Unflatten splits x by lengths, skipping the pad rows Flatten inserted.
func Unflatten(b tensor.Backend, x *tensor.RawTensor, lengths []int, pad int) (List, error) {
	return seq.Unflatten(b, x, lengths, pad)
}

// FlatRows returns the number of rows Flatten produces.
func FlatRows(lengths []int, pad int) int {
	return seq.FlatRows(lengths, pad)
}

// RaggedToList splits a Ragged into its items.
func RaggedToList(b tensor.Backend, r Ragged) (List, error) {
	return seq.RaggedToList(b, r)
}

// ListToRagged concatenates a List into a Ragged.
func ListToRagged(b tensor.Backend, xs List) (Ragged, error) {
	return seq.ListToRagged(b, xs)
}

// List2Padded converts a List into the time-major Padded representation.
func List2Padded(b tensor.Backend, xs List) (Padded, error) {
	return seq.List2Padded(b, xs)
}

// Padded2List converts a Padded back into a List in original item order.
func Padded2List(b tensor.Backend, p Padded) (List, error) {
	return seq.Padded2List(b, p)
}

// PaddedFromArray3D wraps a (steps, batch, features) array that holds no
// padding as a Padded.
func PaddedFromArray3D(x *tensor.RawTensor) (Padded, error) {
	return seq.PaddedFromArray3D(x)
}
