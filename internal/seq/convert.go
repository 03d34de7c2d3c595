package seq

import (
	"sort"

	"github.com/born-ml/seqadapt/internal/tensor"
)

// Flatten concatenates the items of xs into one array, inserting pad zero
// rows around every non-empty item. An empty list flattens to a (0, 0) array.
func Flatten(b tensor.Backend, xs List, pad int) (*tensor.RawTensor, error) {
	if pad < 0 {
		return nil, shapeErrorf("flatten", "negative pad %d", pad)
	}
	if err := xs.Validate(); err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return tensor.Zeros(tensor.Shape{0, 0}, tensor.Float32), nil
	}
	return b.Flatten(xs, pad), nil
}

// Unflatten splits x into one array per length, skipping the pad rows that
// Flatten inserted. The lengths and pad must account for every row of x.
func Unflatten(b tensor.Backend, x *tensor.RawTensor, lengths []int, pad int) (List, error) {
	if pad < 0 {
		return nil, shapeErrorf("unflatten", "negative pad %d", pad)
	}
	if x.NDim() == 0 {
		return nil, shapeErrorf("unflatten", "input is a scalar")
	}
	if want := FlatRows(lengths, pad); want != x.Shape().Rows() {
		return nil, shapeErrorf("unflatten", "lengths %v with pad %d need %d rows, array has %d",
			lengths, pad, want, x.Shape().Rows())
	}
	for i, n := range lengths {
		if n < 0 {
			return nil, shapeErrorf("unflatten", "negative length %d at %d", n, i)
		}
	}
	return b.Unflatten(x, lengths, pad), nil
}

// FlatRows returns the number of rows Flatten produces for items of the
// given lengths.
func FlatRows(lengths []int, pad int) int {
	rows := 0
	nonEmpty := 0
	for _, n := range lengths {
		if n > 0 {
			rows += n + pad
			nonEmpty++
		}
	}
	if nonEmpty > 0 {
		rows += pad
	}
	return rows
}

// RaggedToList splits a Ragged into its items.
func RaggedToList(b tensor.Backend, r Ragged) (List, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return b.Unflatten(r.Data, r.Lengths.Ints(), 0), nil
}

// ListToRagged concatenates a List into a Ragged with the items' lengths.
func ListToRagged(b tensor.Backend, xs List) (Ragged, error) {
	data, err := Flatten(b, xs, 0)
	if err != nil {
		return Ragged{}, err
	}
	return NewRagged(data, xs.Lengths()), nil
}

// List2Padded converts a List into the time-major Padded representation.
//
// Items are sorted by descending length (ties keep input order); Indices
// records the original position of every batch column, so that
// xs[Indices[k]] lands in column k. Lengths stay in input order.
func List2Padded(b tensor.Backend, xs List) (Padded, error) {
	if err := xs.Validate(); err != nil {
		return Padded{}, err
	}
	if len(xs) == 0 {
		return Padded{
			Data:    tensor.Zeros(tensor.Shape{0, 0, 0}, tensor.Float32),
			SizeAtT: tensor.FromInts(nil),
			Lengths: tensor.FromInts(nil),
			Indices: tensor.FromInts(nil),
		}, nil
	}

	lengths := xs.Lengths()
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return lengths[order[i]] > lengths[order[j]]
	})

	sorted := make([]*tensor.RawTensor, len(xs))
	for k, idx := range order {
		sorted[k] = xs[idx]
	}
	maxLen := lengths[order[0]]

	batchMajor := b.PadSequences(sorted, maxLen)
	data := b.Transpose(batchMajor, swapLeadingAxes(batchMajor.NDim())...)
	batchMajor.Release()

	sizeAtT := make([]int, maxLen)
	active := len(order)
	for t := range sizeAtT {
		for active > 0 && t >= lengths[order[active-1]] {
			active--
		}
		sizeAtT[t] = active
	}

	return Padded{
		Data:    data,
		SizeAtT: tensor.FromInts(sizeAtT),
		Lengths: tensor.FromInts(lengths),
		Indices: tensor.FromInts(order),
	}, nil
}

// Padded2List converts a Padded back into a List in original item order,
// dropping every padding step.
func Padded2List(b tensor.Backend, p Padded) (List, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	indices := p.Indices.Ints()
	if len(indices) == 0 {
		return List{}, nil
	}
	lengths := p.Lengths.Ints()

	sortedLengths := make([]int, len(indices))
	for k, idx := range indices {
		sortedLengths[k] = lengths[idx]
	}

	batchMajor := b.Transpose(p.Data, swapLeadingAxes(p.Data.NDim())...)
	items := b.UnpadSequences(batchMajor, sortedLengths)
	batchMajor.Release()

	out := make(List, len(items))
	for k, idx := range indices {
		out[idx] = items[k]
	}
	return out, nil
}

// PaddedFromArray3D wraps a raw (steps, batch, features) array as a Padded
// in which every item spans every step: size_at_t is the batch size at each
// step, every length is the step count and indices is the identity.
//
// The caller guarantees the array holds no real padding; nothing here can
// tell padding rows apart from data.
func PaddedFromArray3D(x *tensor.RawTensor) (Padded, error) {
	shape := x.Shape()
	if len(shape) != 3 {
		return Padded{}, shapeErrorf("padded", "expected a 3D array, got %v", shape)
	}
	steps, batch := shape[0], shape[1]
	return Padded{
		Data:    x,
		SizeAtT: tensor.Full(steps, batch),
		Lengths: tensor.Full(batch, steps),
		Indices: tensor.Arange(batch),
	}, nil
}

// swapLeadingAxes returns the permutation (1, 0, 2, ..., ndim-1).
func swapLeadingAxes(ndim int) []int {
	axes := make([]int, ndim)
	for i := range axes {
		axes[i] = i
	}
	axes[0], axes[1] = 1, 0
	return axes
}
