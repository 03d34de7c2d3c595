package nn

import (
	"fmt"

	"github.com/born-ml/seqadapt/internal/seq"
	"github.com/born-ml/seqadapt/internal/tensor"
)

// PaddedLayer is a layer over time-major Padded batches.
type PaddedLayer = Layer[seq.Padded, seq.Padded]

// WithPadded runs a Padded layer over any sequence representation.
//
// Accepted inputs:
//   - Padded: delegated directly.
//   - Ragged: split into items, padded, run, unpadded and concatenated
//     again with the original lengths.
//   - List: padded, run and unpadded in original item order.
//   - Dense wire form (data, size_at_t, lengths, indices): read as Padded
//     with no conversion and returned in the same form.
//   - Dense 3D array: treated as a batch with no padding at all, every
//     item spanning every step. Backward returns only the raw gradient.
//
// Intermediate buffers are released as soon as the next conversion has
// consumed them.
type WithPadded struct {
	layer   PaddedLayer
	backend tensor.Backend
	dims    *Dims
}

// NewWithPadded wraps layer. The adapter's dims mirror the wrapped layer's
// at construction; the wrapped layer's dims stay authoritative afterwards.
func NewWithPadded(layer PaddedLayer, backend tensor.Backend) *WithPadded {
	return &WithPadded{
		layer:   layer,
		backend: backend,
		dims:    MirrorDims(layer.Dims()),
	}
}

// Name returns "with_padded(<wrapped>)".
func (w *WithPadded) Name() string { return fmt.Sprintf("with_padded(%s)", w.layer.Name()) }

// Dims returns the adapter's dimension table.
func (w *WithPadded) Dims() *Dims { return w.dims }

// Layer returns the wrapped layer.
func (w *WithPadded) Layer() PaddedLayer { return w.layer }

// Initialize converts the samples to Padded and initializes the wrapped layer.
func (w *WithPadded) Initialize(x, y seq.Seq) error {
	var xp, yp seq.Padded
	var err error
	if x != nil {
		if xp, err = w.padded(x); err != nil {
			return fmt.Errorf("%s: initialize: %w", w.Name(), err)
		}
	}
	if y != nil {
		if yp, err = w.padded(y); err != nil {
			return fmt.Errorf("%s: initialize: %w", w.Name(), err)
		}
	}
	return w.layer.Initialize(xp, yp)
}

// padded converts a sample to Padded without running any layer.
func (w *WithPadded) padded(x seq.Seq) (seq.Padded, error) {
	switch v := x.(type) {
	case seq.Padded:
		return v, v.Validate()
	case seq.Ragged:
		xs, err := seq.RaggedToList(w.backend, v)
		if err != nil {
			return seq.Padded{}, err
		}
		return seq.List2Padded(w.backend, xs)
	case seq.List:
		return seq.List2Padded(w.backend, v)
	case seq.Dense:
		if v.IsPaddedData() {
			p, err := v.AsPadded()
			if err != nil {
				return seq.Padded{}, err
			}
			return p, p.Validate()
		}
		arr, err := v.Array()
		if err != nil {
			return seq.Padded{}, err
		}
		return seq.PaddedFromArray3D(arr)
	default:
		return seq.Padded{}, fmt.Errorf("%T: %w", x, seq.ErrUnrecognized)
	}
}

// Forward dispatches on the representation of x.
func (w *WithPadded) Forward(x seq.Seq, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	var (
		y   seq.Seq
		bp  Backprop[seq.Seq, seq.Seq]
		err error
	)
	switch v := x.(type) {
	case seq.Padded:
		y, bp, err = w.forwardPadded(v, train)
	case seq.Ragged:
		y, bp, err = w.forwardRagged(v, train)
	case seq.Dense:
		if v.IsPaddedData() {
			y, bp, err = w.forwardPaddedData(v, train)
		} else {
			y, bp, err = w.forwardArray(v, train)
		}
	case seq.List:
		y, bp, err = w.forwardList(v, train)
	default:
		err = fmt.Errorf("%T: %w", x, seq.ErrUnrecognized)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", w.Name(), err)
	}
	return y, bp, nil
}

func (w *WithPadded) forwardPadded(p seq.Padded, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	y, inner, err := w.layer.Forward(p, train)
	if err != nil {
		return nil, nil, err
	}
	return y, &paddedBackprop{inner: inner}, nil
}

type paddedBackprop struct {
	inner Backprop[seq.Padded, seq.Padded]
}

func (bp *paddedBackprop) Backward(dY seq.Seq) (seq.Seq, error) {
	p, ok := dY.(seq.Padded)
	if !ok {
		return nil, gradientMismatch("with_padded", dY, seq.KindPadded)
	}
	return bp.inner.Backward(p)
}

func (w *WithPadded) forwardRagged(r seq.Ragged, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	xp, err := w.raggedToPadded(r)
	if err != nil {
		return nil, nil, err
	}
	yp, inner, err := w.layer.Forward(xp, train)
	if err != nil {
		return nil, nil, err
	}
	yr, err := w.paddedToRagged(yp)
	if err != nil {
		return nil, nil, err
	}
	releaseIntermediate(xp.Data, yp.Data)
	return seq.Ragged{Data: yr, Lengths: r.Lengths}, &raggedPaddedBackprop{w: w, inner: inner}, nil
}

type raggedPaddedBackprop struct {
	w     *WithPadded
	inner Backprop[seq.Padded, seq.Padded]
}

func (bp *raggedPaddedBackprop) Backward(dY seq.Seq) (seq.Seq, error) {
	r, ok := dY.(seq.Ragged)
	if !ok {
		return nil, gradientMismatch("with_padded", dY, seq.KindRagged)
	}
	dYp, err := bp.w.raggedToPadded(r)
	if err != nil {
		return nil, err
	}
	dXp, err := bp.inner.Backward(dYp)
	if err != nil {
		return nil, err
	}
	dX, err := bp.w.paddedToRagged(dXp)
	if err != nil {
		return nil, err
	}
	releaseIntermediate(dYp.Data, dXp.Data)
	return seq.Ragged{Data: dX, Lengths: r.Lengths}, nil
}

// raggedToPadded splits r into items and pads them; the item buffers are
// released once padded.
func (w *WithPadded) raggedToPadded(r seq.Ragged) (seq.Padded, error) {
	xs, err := seq.RaggedToList(w.backend, r)
	if err != nil {
		return seq.Padded{}, err
	}
	p, err := seq.List2Padded(w.backend, xs)
	releaseList(xs)
	return p, err
}

// paddedToRagged unpads p and concatenates the items in original order.
func (w *WithPadded) paddedToRagged(p seq.Padded) (*tensor.RawTensor, error) {
	xs, err := seq.Padded2List(w.backend, p)
	if err != nil {
		return nil, err
	}
	flat, err := seq.Flatten(w.backend, xs, 0)
	releaseList(xs)
	return flat, err
}

func (w *WithPadded) forwardPaddedData(d seq.Dense, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	p, err := d.AsPadded()
	if err != nil {
		return nil, nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	y, inner, err := w.layer.Forward(p, train)
	if err != nil {
		return nil, nil, err
	}
	return seq.FromPadded(y), &paddedDataBackprop{inner: inner}, nil
}

type paddedDataBackprop struct {
	inner Backprop[seq.Padded, seq.Padded]
}

func (bp *paddedDataBackprop) Backward(dY seq.Seq) (seq.Seq, error) {
	d, ok := dY.(seq.Dense)
	if !ok {
		return nil, gradientMismatch("with_padded", dY, seq.KindDense)
	}
	p, err := d.AsPadded()
	if err != nil {
		return nil, err
	}
	dX, err := bp.inner.Backward(p)
	if err != nil {
		return nil, err
	}
	return seq.FromPadded(dX), nil
}

func (w *WithPadded) forwardArray(d seq.Dense, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	arr, err := d.Array()
	if err != nil {
		return nil, nil, err
	}
	p, err := seq.PaddedFromArray3D(arr)
	if err != nil {
		return nil, nil, err
	}
	y, inner, err := w.layer.Forward(p, train)
	if err != nil {
		return nil, nil, err
	}
	return seq.NewDense(y.Data), &arrayPaddedBackprop{inner: inner, meta: p}, nil
}

// arrayPaddedBackprop keeps the metadata synthesized for a raw 3D input.
type arrayPaddedBackprop struct {
	inner Backprop[seq.Padded, seq.Padded]
	meta  seq.Padded
}

func (bp *arrayPaddedBackprop) Backward(dY seq.Seq) (seq.Seq, error) {
	d, ok := dY.(seq.Dense)
	if !ok {
		return nil, gradientMismatch("with_padded", dY, seq.KindDense)
	}
	arr, err := d.Array()
	if err != nil {
		return nil, err
	}
	if arr.NDim() < 2 || arr.Shape()[0] != bp.meta.Data.Shape()[0] || arr.Shape()[1] != bp.meta.Data.Shape()[1] {
		return nil, &seq.ShapeError{Op: "with_padded", Details: fmt.Sprintf("gradient %v for input %v", arr.Shape(), bp.meta.Data.Shape())}
	}
	dX, err := bp.inner.Backward(bp.meta.WithData(arr))
	if err != nil {
		return nil, err
	}
	return seq.NewDense(dX.Data), nil
}

func (w *WithPadded) forwardList(xs seq.List, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	xp, err := seq.List2Padded(w.backend, xs)
	if err != nil {
		return nil, nil, err
	}
	yp, inner, err := w.layer.Forward(xp, train)
	if err != nil {
		return nil, nil, err
	}
	ys, err := seq.Padded2List(w.backend, yp)
	if err != nil {
		return nil, nil, err
	}
	releaseIntermediate(xp.Data, yp.Data)
	return ys, &listPaddedBackprop{w: w, inner: inner}, nil
}

type listPaddedBackprop struct {
	w     *WithPadded
	inner Backprop[seq.Padded, seq.Padded]
}

func (bp *listPaddedBackprop) Backward(dY seq.Seq) (seq.Seq, error) {
	dYs, ok := dY.(seq.List)
	if !ok {
		return nil, gradientMismatch("with_padded", dY, seq.KindList)
	}
	dYp, err := seq.List2Padded(bp.w.backend, dYs)
	if err != nil {
		return nil, err
	}
	dXp, err := bp.inner.Backward(dYp)
	if err != nil {
		return nil, err
	}
	dXs, err := seq.Padded2List(bp.w.backend, dXp)
	if err != nil {
		return nil, err
	}
	releaseIntermediate(dYp.Data, dXp.Data)
	return dXs, nil
}

func releaseList(xs seq.List) {
	for _, x := range xs {
		x.Release()
	}
}
