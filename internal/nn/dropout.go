package nn

import (
	"fmt"

	"github.com/born-ml/seqadapt/internal/seq"
	"github.com/born-ml/seqadapt/internal/tensor"
)

// Dropout zeroes random elements of its input during training.
//
// Every element is kept with probability 1-rate and scaled by 1/(1-rate),
// so the expected activation is unchanged. The mask is drawn once per
// Forward call and reused by the matching Backward. Works on all four
// sequence representations; container metadata passes through unchanged.
//
// Example:
//
//	drop := nn.NewDropout(0.2, cpu.New())
//	y, bp, err := drop.Forward(x, true)
//	dx, err := bp.Backward(dy)
type Dropout struct {
	rate    float32
	enabled bool
	backend tensor.Backend
	dims    *Dims
}

// NewDropout creates a dropout layer. Panics if rate is outside [0, 1].
func NewDropout(rate float32, backend tensor.Backend) *Dropout {
	if rate < 0 || rate > 1 {
		panic(fmt.Sprintf("NewDropout: rate %v outside [0, 1]", rate))
	}
	return &Dropout{
		rate:    rate,
		enabled: true,
		backend: backend,
		dims:    NewDims(),
	}
}

// Name returns "dropout".
func (d *Dropout) Name() string { return "dropout" }

// Dims returns an empty dimension table.
func (d *Dropout) Dims() *Dims { return d.dims }

// Rate returns the drop probability.
func (d *Dropout) Rate() float32 { return d.rate }

// Enabled reports whether the layer masks in training mode.
func (d *Dropout) Enabled() bool { return d.enabled }

// SetEnabled switches masking on or off independently of training mode.
func (d *Dropout) SetEnabled(enabled bool) { d.enabled = enabled }

// Initialize is a no-op; dropout has no dimensions to resolve.
func (d *Dropout) Initialize(_, _ seq.Seq) error { return nil }

// Forward masks x. With rate 0, when disabled, or outside training it is
// the identity and so is its Backprop.
func (d *Dropout) Forward(x seq.Seq, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	if d.rate == 0 || !d.enabled || !train {
		return x, identityBackprop[seq.Seq]{}, nil
	}

	switch v := x.(type) {
	case seq.Ragged:
		data, bp := d.drop(seq.KindRagged, v.Data)
		return seq.Ragged{Data: data[0], Lengths: v.Lengths}, bp, nil
	case seq.Padded:
		data, bp := d.drop(seq.KindPadded, v.Data)
		return v.WithData(data[0]), bp, nil
	case seq.List:
		ys, bp := d.drop(seq.KindList, v...)
		return seq.List(ys), bp, nil
	case seq.Dense:
		if len(v.Arrays) == 0 || v.Arrays[0] == nil {
			return nil, nil, fmt.Errorf("dropout: %s: %w", v, seq.ErrUnrecognized)
		}
		// The payload is the first array; the Padded wire form keeps its metadata.
		data, bp := d.drop(seq.KindDense, v.Arrays[0])
		arrays := append([]*tensor.RawTensor(nil), v.Arrays...)
		arrays[0] = data[0]
		return seq.Dense{Arrays: arrays}, bp, nil
	default:
		return nil, nil, fmt.Errorf("dropout: %T: %w", x, seq.ErrUnrecognized)
	}
}

// drop masks every array in xs. At rate 1 no mask is drawn and the
// outputs are zeroed directly.
func (d *Dropout) drop(kind seq.Kind, xs ...*tensor.RawTensor) ([]*tensor.RawTensor, *dropoutBackprop) {
	bp := &dropoutBackprop{
		backend: d.backend,
		kind:    kind,
		masks:   make([]*tensor.RawTensor, len(xs)),
		shapes:  make([]tensor.Shape, len(xs)),
	}
	ys := make([]*tensor.RawTensor, len(xs))
	for i, x := range xs {
		bp.shapes[i] = x.Shape().Clone()
		if d.rate == 1 {
			ys[i] = d.backend.MulScalar(x, 0)
			continue
		}
		bp.masks[i] = d.backend.DropoutMask(x.Shape(), d.rate)
		ys[i] = d.backend.Mul(x, bp.masks[i])
	}
	return ys, bp
}

// dropoutBackprop holds the masks drawn by one Forward call. A nil mask
// means everything was dropped.
type dropoutBackprop struct {
	backend tensor.Backend
	kind    seq.Kind
	masks   []*tensor.RawTensor
	shapes  []tensor.Shape
}

func (bp *dropoutBackprop) Backward(dY seq.Seq) (seq.Seq, error) {
	if dY == nil || dY.Kind() != bp.kind {
		return nil, fmt.Errorf("dropout: gradient %v for %s output: %w", dY, bp.kind, seq.ErrShapeMismatch)
	}

	switch v := dY.(type) {
	case seq.Ragged:
		data, err := bp.apply(v.Data, 0)
		if err != nil {
			return nil, err
		}
		return seq.Ragged{Data: data, Lengths: v.Lengths}, nil
	case seq.Padded:
		data, err := bp.apply(v.Data, 0)
		if err != nil {
			return nil, err
		}
		return v.WithData(data), nil
	case seq.List:
		if len(v) != len(bp.masks) {
			return nil, &seq.ShapeError{Op: "dropout", Details: fmt.Sprintf("%d gradients for %d items", len(v), len(bp.masks))}
		}
		dXs := make(seq.List, len(v))
		for i, item := range v {
			dX, err := bp.apply(item, i)
			if err != nil {
				return nil, err
			}
			dXs[i] = dX
		}
		return dXs, nil
	case seq.Dense:
		if len(v.Arrays) == 0 || v.Arrays[0] == nil {
			return nil, fmt.Errorf("dropout: %s: %w", v, seq.ErrUnrecognized)
		}
		data, err := bp.apply(v.Arrays[0], 0)
		if err != nil {
			return nil, err
		}
		arrays := append([]*tensor.RawTensor(nil), v.Arrays...)
		arrays[0] = data
		return seq.Dense{Arrays: arrays}, nil
	default:
		return nil, fmt.Errorf("dropout: %T: %w", dY, seq.ErrUnrecognized)
	}
}

func (bp *dropoutBackprop) apply(dY *tensor.RawTensor, i int) (*tensor.RawTensor, error) {
	if !dY.Shape().Equal(bp.shapes[i]) {
		return nil, &seq.ShapeError{Op: "dropout", Details: fmt.Sprintf("gradient %v, mask %v", dY.Shape(), bp.shapes[i])}
	}
	if bp.masks[i] == nil {
		return bp.backend.MulScalar(dY, 0), nil
	}
	return bp.backend.Mul(dY, bp.masks[i]), nil
}
