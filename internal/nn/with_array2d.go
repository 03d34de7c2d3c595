package nn

import (
	"fmt"

	"github.com/born-ml/seqadapt/internal/seq"
	"github.com/born-ml/seqadapt/internal/tensor"
)

// Array2DLayer is a layer over contiguous (rows, features) arrays.
type Array2DLayer = Layer[*tensor.RawTensor, *tensor.RawTensor]

// WithArray2D runs a 2D array layer over any sequence representation.
//
// The input is collapsed into one (rows, features) array, the wrapped
// layer runs once, and the output is expanded back into the input's
// representation:
//   - Dense 2D: passed straight through; a 2D array carries no sequence
//     structure to undo.
//   - Ragged: the concatenated payload is used as-is; lengths are kept.
//   - Padded: (steps, batch, features) is folded to (steps*batch, features)
//     and unfolded with the new feature width.
//   - List: the items are flattened with pad zero rows between them and
//     split again by their recorded lengths.
//
// The wrapped layer may change the feature width but not the row count.
type WithArray2D struct {
	layer   Array2DLayer
	backend tensor.Backend
	pad     int
	dims    *Dims
}

// NewWithArray2D wraps layer. The pad gap keeps layers with a receptive
// field of up to pad rows from mixing neighbouring list items.
// The adapter's dims mirror the wrapped layer's.
func NewWithArray2D(layer Array2DLayer, backend tensor.Backend, pad int) *WithArray2D {
	if pad < 0 {
		panic(fmt.Sprintf("NewWithArray2D: negative pad %d", pad))
	}
	return &WithArray2D{
		layer:   layer,
		backend: backend,
		pad:     pad,
		dims:    MirrorDims(layer.Dims()),
	}
}

// Name returns "with_array(<wrapped>)".
func (w *WithArray2D) Name() string { return fmt.Sprintf("with_array(%s)", w.layer.Name()) }

// Dims returns the adapter's dimension table.
func (w *WithArray2D) Dims() *Dims { return w.dims }

// Pad returns the row gap inserted between list items.
func (w *WithArray2D) Pad() int { return w.pad }

// Layer returns the wrapped layer.
func (w *WithArray2D) Layer() Array2DLayer { return w.layer }

// Initialize reduces the samples to 2D arrays, initializes the wrapped
// layer with them and then copies every dimension it resolved.
func (w *WithArray2D) Initialize(x, y seq.Seq) error {
	var xArr, yArr *tensor.RawTensor
	var err error
	if x != nil {
		if xArr, err = w.array(x); err != nil {
			return fmt.Errorf("%s: initialize: %w", w.Name(), err)
		}
	}
	if y != nil {
		if yArr, err = w.array(y); err != nil {
			return fmt.Errorf("%s: initialize: %w", w.Name(), err)
		}
	}

	if err := w.layer.Initialize(xArr, yArr); err != nil {
		return err
	}
	return w.dims.CopyFrom(w.layer.Dims())
}

// array extracts the 2D payload of a sample without running any layer.
func (w *WithArray2D) array(x seq.Seq) (*tensor.RawTensor, error) {
	switch v := x.(type) {
	case seq.Ragged:
		if err := v.Validate(); err != nil {
			return nil, err
		}
		return v.Data, nil
	case seq.Padded:
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if err := require3D(v.Data.Shape()); err != nil {
			return nil, err
		}
		return w.backend.Reshape(v.Data, foldShape(v.Data.Shape())), nil
	case seq.List:
		return seq.Flatten(w.backend, v, w.pad)
	case seq.Dense:
		return w.dense2D(v)
	default:
		return nil, fmt.Errorf("%T: %w", x, seq.ErrUnrecognized)
	}
}

func (w *WithArray2D) dense2D(d seq.Dense) (*tensor.RawTensor, error) {
	arr, err := d.Array()
	if err != nil {
		return nil, err
	}
	if arr.NDim() != 2 {
		return nil, &seq.ShapeError{Op: "with_array", Details: fmt.Sprintf("expected a 2D array, got %v", arr.Shape())}
	}
	return arr, nil
}

// Forward dispatches on the representation of x.
func (w *WithArray2D) Forward(x seq.Seq, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	var (
		y   seq.Seq
		bp  Backprop[seq.Seq, seq.Seq]
		err error
	)
	switch v := x.(type) {
	case seq.Dense:
		y, bp, err = w.forwardDense(v, train)
	case seq.Ragged:
		y, bp, err = w.forwardRagged(v, train)
	case seq.Padded:
		y, bp, err = w.forwardPadded(v, train)
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

func (w *WithArray2D) forwardDense(d seq.Dense, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	x, err := w.dense2D(d)
	if err != nil {
		return nil, nil, err
	}
	y, inner, err := w.layer.Forward(x, train)
	if err != nil {
		return nil, nil, err
	}
	return seq.NewDense(y), &dense2DBackprop{inner: inner}, nil
}

type dense2DBackprop struct {
	inner Backprop[*tensor.RawTensor, *tensor.RawTensor]
}

func (bp *dense2DBackprop) Backward(dY seq.Seq) (seq.Seq, error) {
	d, ok := dY.(seq.Dense)
	if !ok {
		return nil, gradientMismatch("with_array", dY, seq.KindDense)
	}
	arr, err := d.Array()
	if err != nil {
		return nil, err
	}
	dX, err := bp.inner.Backward(arr)
	if err != nil {
		return nil, err
	}
	return seq.NewDense(dX), nil
}

func (w *WithArray2D) forwardRagged(r seq.Ragged, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	if err := r.Validate(); err != nil {
		return nil, nil, err
	}
	y, inner, err := w.layer.Forward(r.Data, train)
	if err != nil {
		return nil, nil, err
	}
	if err := sameRows(y, r.Data); err != nil {
		return nil, nil, err
	}
	return seq.Ragged{Data: y, Lengths: r.Lengths}, &ragged2DBackprop{
		inner:   inner,
		backend: w.backend,
		xShape:  r.Data.Shape().Clone(),
	}, nil
}

// ragged2DBackprop restores the pre-transform payload shape, which the
// wrapped layer's gradient may not carry when it changed feature width.
type ragged2DBackprop struct {
	inner   Backprop[*tensor.RawTensor, *tensor.RawTensor]
	backend tensor.Backend
	xShape  tensor.Shape
}

func (bp *ragged2DBackprop) Backward(dY seq.Seq) (seq.Seq, error) {
	r, ok := dY.(seq.Ragged)
	if !ok {
		return nil, gradientMismatch("with_array", dY, seq.KindRagged)
	}
	dX, err := bp.inner.Backward(r.Data)
	if err != nil {
		return nil, err
	}
	if dX.NumElements() != bp.xShape.NumElements() {
		return nil, &seq.ShapeError{Op: "with_array", Details: fmt.Sprintf("gradient %v cannot take input shape %v", dX.Shape(), bp.xShape)}
	}
	if !dX.Shape().Equal(bp.xShape) {
		dX = bp.backend.Reshape(dX, bp.xShape)
	}
	return seq.Ragged{Data: dX, Lengths: r.Lengths}, nil
}

func (w *WithArray2D) forwardPadded(p seq.Padded, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	shape := p.Data.Shape()
	if err := require3D(shape); err != nil {
		return nil, nil, err
	}
	x := w.backend.Reshape(p.Data, foldShape(shape))
	y2d, inner, err := w.layer.Forward(x, train)
	if err != nil {
		return nil, nil, err
	}
	if err := sameRows(y2d, x); err != nil {
		return nil, nil, err
	}
	y := w.backend.Reshape(y2d, tensor.Shape{shape[0], shape[1], y2d.Shape().RowSize()})
	releaseIntermediate(x, y2d)
	return p.WithData(y), &padded2DBackprop{inner: inner, backend: w.backend}, nil
}

type padded2DBackprop struct {
	inner   Backprop[*tensor.RawTensor, *tensor.RawTensor]
	backend tensor.Backend
}

func (bp *padded2DBackprop) Backward(dY seq.Seq) (seq.Seq, error) {
	p, ok := dY.(seq.Padded)
	if !ok {
		return nil, gradientMismatch("with_array", dY, seq.KindPadded)
	}
	shape := p.Data.Shape()
	if err := require3D(shape); err != nil {
		return nil, err
	}
	dY2d := bp.backend.Reshape(p.Data, foldShape(shape))
	dX2d, err := bp.inner.Backward(dY2d)
	if err != nil {
		return nil, err
	}
	if err := sameRows(dX2d, dY2d); err != nil {
		return nil, err
	}
	dX := bp.backend.Reshape(dX2d, tensor.Shape{shape[0], shape[1], dX2d.Shape().RowSize()})
	releaseIntermediate(dY2d, dX2d)
	return p.WithData(dX), nil
}

func (w *WithArray2D) forwardList(xs seq.List, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	lengths := xs.Lengths()
	xf, err := seq.Flatten(w.backend, xs, w.pad)
	if err != nil {
		return nil, nil, err
	}
	yf, inner, err := w.layer.Forward(xf, train)
	if err != nil {
		return nil, nil, err
	}
	ys, err := seq.Unflatten(w.backend, yf, lengths, w.pad)
	if err != nil {
		return nil, nil, err
	}
	releaseIntermediate(xf, yf)
	return ys, &list2DBackprop{inner: inner, backend: w.backend, lengths: lengths, pad: w.pad}, nil
}

type list2DBackprop struct {
	inner   Backprop[*tensor.RawTensor, *tensor.RawTensor]
	backend tensor.Backend
	lengths []int
	pad     int
}

func (bp *list2DBackprop) Backward(dY seq.Seq) (seq.Seq, error) {
	dYs, ok := dY.(seq.List)
	if !ok {
		return nil, gradientMismatch("with_array", dY, seq.KindList)
	}
	dYf, err := seq.Flatten(bp.backend, dYs, bp.pad)
	if err != nil {
		return nil, err
	}
	dXf, err := bp.inner.Backward(dYf)
	if err != nil {
		return nil, err
	}
	dXs, err := seq.Unflatten(bp.backend, dXf, bp.lengths, bp.pad)
	if err != nil {
		return nil, err
	}
	releaseIntermediate(dYf, dXf)
	return dXs, nil
}

// foldShape merges the two leading axes: (steps, batch, f...) -> (steps*batch, f...).
func foldShape(s tensor.Shape) tensor.Shape {
	folded := make(tensor.Shape, 0, len(s)-1)
	folded = append(folded, s[0]*s[1])
	return append(folded, s[2:]...)
}

// releaseIntermediate drops an adapter's references to the array it handed
// to the wrapped layer and to the array it got back. A layer that returns
// its input unchanged hands back the same reference, which is released once.
func releaseIntermediate(in, out *tensor.RawTensor) {
	in.Release()
	if out != in {
		out.Release()
	}
}

// require3D rejects padded payloads with more than one feature axis; the
// wrapped layer only sees (rows, features).
func require3D(s tensor.Shape) error {
	if len(s) != 3 {
		return &seq.ShapeError{Op: "with_array", Details: fmt.Sprintf("padded data must be (steps, batch, features), got %v", s)}
	}
	return nil
}

func sameRows(y, x *tensor.RawTensor) error {
	if y.NDim() == 0 || y.Shape().Rows() != x.Shape().Rows() {
		return &seq.ShapeError{Op: "with_array", Details: fmt.Sprintf("wrapped layer mapped %v to %v; row count must not change", x.Shape(), y.Shape())}
	}
	return nil
}

func gradientMismatch(op string, dY seq.Seq, want seq.Kind) error {
	return fmt.Errorf("%s: %v gradient for %s output: %w", op, dY, want, seq.ErrShapeMismatch)
}
