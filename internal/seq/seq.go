// Package seq defines the sequence representations that flow between
// layers and the conversions between them.
//
// A batch of variable-length sequences of feature vectors can be held in
// exactly four ways:
//   - List: one array per item, shaped (length_i, features...)
//   - Ragged: the items concatenated along axis 0 plus their lengths
//   - Padded: a time-major (steps, batch, features...) array sorted by
//     descending length, plus size_at_t, lengths and indices
//   - Dense: a plain array with no per-item metadata, or the four arrays of
//     Padded in wire form
//
// Seq is a closed interface; switches over it should end in a default case
// that returns ErrUnrecognized.
//
// Containers are immutable snapshots: every conversion allocates new arrays.
package seq

import (
	"fmt"

	"github.com/born-ml/seqadapt/internal/tensor"
)

// Kind identifies a sequence representation.
type Kind int

// Representation kinds.
const (
	KindList Kind = iota
	KindRagged
	KindPadded
	KindDense
)

// String returns the representation name.
func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindRagged:
		return "ragged"
	case KindPadded:
		return "padded"
	case KindDense:
		return "dense"
	default:
		return "unknown"
	}
}

// Seq is one of List, Ragged, Padded or Dense.
type Seq interface {
	Kind() Kind
	fmt.Stringer
	sealed()
}

// List holds one array per batch item, each shaped (length_i, features...).
type List []*tensor.RawTensor

// Kind returns KindList.
func (List) Kind() Kind { return KindList }

func (List) sealed() {}

// String describes the item shapes.
func (l List) String() string {
	shapes := make([]string, len(l))
	for i, x := range l {
		shapes[i] = fmt.Sprint([]int(x.Shape()))
	}
	return fmt.Sprintf("list%v", shapes)
}

// Lengths returns the number of rows of every item.
func (l List) Lengths() []int {
	lengths := make([]int, len(l))
	for i, x := range l {
		lengths[i] = x.Shape().Rows()
	}
	return lengths
}

// Validate checks that every item has at least one axis and that all
// items agree on their trailing axes.
func (l List) Validate() error {
	if len(l) == 0 {
		return nil
	}
	first := l[0].Shape()
	if len(first) == 0 {
		return shapeErrorf("list", "item 0 is a scalar")
	}
	for i, x := range l {
		s := x.Shape()
		if len(s) != len(first) || !s[1:].Equal(first[1:]) {
			return shapeErrorf("list", "item %d has shape %v, item 0 has %v", i, s, first)
		}
		if x.DType() != l[0].DType() {
			return shapeErrorf("list", "item %d has dtype %s, item 0 has %s", i, x.DType(), l[0].DType())
		}
	}
	return nil
}

// Ragged holds the items concatenated along axis 0 with their lengths.
type Ragged struct {
	Data    *tensor.RawTensor // (sum(lengths), features...)
	Lengths *tensor.RawTensor // Int32, one per item
}

// NewRagged builds a Ragged from data and integer lengths.
func NewRagged(data *tensor.RawTensor, lengths []int) Ragged {
	return Ragged{Data: data, Lengths: tensor.FromInts(lengths)}
}

// Kind returns KindRagged.
func (Ragged) Kind() Kind { return KindRagged }

func (Ragged) sealed() {}

// String describes the payload shape and the number of items.
func (r Ragged) String() string {
	return fmt.Sprintf("ragged%v lengths=%v", []int(r.Data.Shape()), r.Lengths.Ints())
}

// Validate checks that the lengths partition the payload rows exactly.
func (r Ragged) Validate() error {
	if r.Data == nil || r.Lengths == nil {
		return shapeErrorf("ragged", "missing data or lengths")
	}
	if r.Data.NDim() == 0 {
		return shapeErrorf("ragged", "data is a scalar")
	}
	if r.Lengths.NDim() != 1 || r.Lengths.DType() != tensor.Int32 {
		return shapeErrorf("ragged", "lengths must be a 1D int32 array, got %s", r.Lengths)
	}
	total := 0
	for i, n := range r.Lengths.Ints() {
		if n < 0 {
			return shapeErrorf("ragged", "negative length %d at %d", n, i)
		}
		total += n
	}
	if rows := r.Data.Shape().Rows(); total != rows {
		return shapeErrorf("ragged", "lengths sum to %d, data has %d rows", total, rows)
	}
	return nil
}

// Padded holds a time-major batch sorted by descending length.
//
// Batch column k holds original item Indices[k]. SizeAtT[t] is the number of
// items still active at step t. Lengths are in original (unsorted) order.
type Padded struct {
	Data    *tensor.RawTensor // (steps, batch, features...)
	SizeAtT *tensor.RawTensor // Int32, (steps,)
	Lengths *tensor.RawTensor // Int32, (batch,)
	Indices *tensor.RawTensor // Int32, (batch,)
}

// Kind returns KindPadded.
func (Padded) Kind() Kind { return KindPadded }

func (Padded) sealed() {}

// String describes the payload shape and metadata.
func (p Padded) String() string {
	return fmt.Sprintf("padded%v size_at_t=%v lengths=%v indices=%v",
		[]int(p.Data.Shape()), p.SizeAtT.Ints(), p.Lengths.Ints(), p.Indices.Ints())
}

// WithData returns a Padded carrying data and this container's metadata.
func (p Padded) WithData(data *tensor.RawTensor) Padded {
	return Padded{Data: data, SizeAtT: p.SizeAtT, Lengths: p.Lengths, Indices: p.Indices}
}

// Validate checks the metadata against the payload:
// size_at_t is non-increasing and bounded by the batch size, indices is a
// permutation, and size_at_t[t] counts the items longer than t.
func (p Padded) Validate() error {
	if p.Data == nil || p.SizeAtT == nil || p.Lengths == nil || p.Indices == nil {
		return shapeErrorf("padded", "missing data or metadata")
	}
	shape := p.Data.Shape()
	if len(shape) < 3 {
		return shapeErrorf("padded", "data must be (steps, batch, features...), got %v", shape)
	}
	meta := []struct {
		name string
		arr  *tensor.RawTensor
	}{{"size_at_t", p.SizeAtT}, {"lengths", p.Lengths}, {"indices", p.Indices}}
	for _, m := range meta {
		if m.arr.NDim() != 1 || m.arr.DType() != tensor.Int32 {
			return shapeErrorf("padded", "%s must be a 1D int32 array, got %s", m.name, m.arr)
		}
	}

	steps, batch := shape[0], shape[1]
	sizeAtT := p.SizeAtT.Ints()
	lengths := p.Lengths.Ints()
	indices := p.Indices.Ints()

	if len(sizeAtT) != steps {
		return shapeErrorf("padded", "size_at_t has %d entries for %d steps", len(sizeAtT), steps)
	}
	if len(lengths) != batch || len(indices) != batch {
		return shapeErrorf("padded", "lengths (%d) and indices (%d) must match batch size %d",
			len(lengths), len(indices), batch)
	}

	seen := make([]bool, batch)
	for k, idx := range indices {
		if idx < 0 || idx >= batch || seen[idx] {
			return shapeErrorf("padded", "indices %v is not a permutation (position %d)", indices, k)
		}
		seen[idx] = true
	}

	prev := batch
	for t, n := range sizeAtT {
		if n < 0 || n > prev {
			return shapeErrorf("padded", "size_at_t %v is not non-increasing within [0, %d] (step %d)", sizeAtT, batch, t)
		}
		prev = n
	}

	for k, idx := range indices {
		n := lengths[idx]
		if n < 0 || n > steps {
			return shapeErrorf("padded", "length %d of item %d outside [0, %d]", n, idx, steps)
		}
		if k > 0 && n > lengths[indices[k-1]] {
			return shapeErrorf("padded", "batch is not sorted by descending length at position %d", k)
		}
	}

	for t, n := range sizeAtT {
		active := 0
		for _, l := range lengths {
			if l > t {
				active++
			}
		}
		if n != active {
			return shapeErrorf("padded", "size_at_t[%d] is %d, lengths %v leave %d items active", t, n, lengths, active)
		}
	}
	return nil
}

// Dense holds arrays with no per-item metadata: a single 2D or 3D array,
// or the (data, size_at_t, lengths, indices) wire form of Padded.
type Dense struct {
	Arrays []*tensor.RawTensor
}

// NewDense wraps a single array.
func NewDense(x *tensor.RawTensor) Dense {
	return Dense{Arrays: []*tensor.RawTensor{x}}
}

// NewPaddedData wraps the four arrays of the Padded wire form.
func NewPaddedData(data, sizeAtT, lengths, indices *tensor.RawTensor) Dense {
	return Dense{Arrays: []*tensor.RawTensor{data, sizeAtT, lengths, indices}}
}

// Kind returns KindDense.
func (Dense) Kind() Kind { return KindDense }

func (Dense) sealed() {}

// String describes the array shapes.
func (d Dense) String() string {
	shapes := make([]string, len(d.Arrays))
	for i, x := range d.Arrays {
		if x == nil {
			shapes[i] = "nil"
			continue
		}
		shapes[i] = fmt.Sprint([]int(x.Shape()))
	}
	return fmt.Sprintf("dense%v", shapes)
}

// IsArray reports whether d holds a single array.
func (d Dense) IsArray() bool {
	return len(d.Arrays) == 1 && d.Arrays[0] != nil
}

// IsPaddedData reports whether d holds the four arrays of the Padded wire form.
func (d Dense) IsPaddedData() bool {
	if len(d.Arrays) != 4 {
		return false
	}
	for _, x := range d.Arrays {
		if x == nil {
			return false
		}
	}
	return true
}

// Array returns the single array held by d, or ErrUnrecognized.
func (d Dense) Array() (*tensor.RawTensor, error) {
	if !d.IsArray() {
		return nil, fmt.Errorf("dense value with %d arrays: %w", len(d.Arrays), ErrUnrecognized)
	}
	return d.Arrays[0], nil
}

// AsPadded reinterprets the wire form as a Padded without conversion.
func (d Dense) AsPadded() (Padded, error) {
	if !d.IsPaddedData() {
		return Padded{}, fmt.Errorf("padded data needs 4 arrays, got %d: %w", len(d.Arrays), ErrUnrecognized)
	}
	return Padded{Data: d.Arrays[0], SizeAtT: d.Arrays[1], Lengths: d.Arrays[2], Indices: d.Arrays[3]}, nil
}

// FromPadded returns the wire form of p.
func FromPadded(p Padded) Dense {
	return NewPaddedData(p.Data, p.SizeAtT, p.Lengths, p.Indices)
}
