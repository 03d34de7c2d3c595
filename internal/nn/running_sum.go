package nn

import (
	"fmt"

	"github.com/born-ml/seqadapt/internal/seq"
	"github.com/born-ml/seqadapt/internal/tensor"
)

// RunningSum accumulates every item's features over time:
//
//	y[t, b] = x[t, b] + y[t-1, b]
//
// Only the first size_at_t[t] batch columns are active at step t; padding
// positions stay zero in the output and receive no gradient. It is the
// simplest recurrent transform, so it depends on steps being ordered and
// on the batch being sorted by descending length.
type RunningSum struct {
	dims *Dims
}

// NewRunningSum creates a RunningSum layer.
func NewRunningSum() *RunningSum {
	return &RunningSum{dims: NewDims()}
}

// Name returns "running_sum".
func (l *RunningSum) Name() string { return "running_sum" }

// Dims returns an empty dimension table.
func (l *RunningSum) Dims() *Dims { return l.dims }

// Initialize checks the samples, if any, are valid Padded batches.
func (l *RunningSum) Initialize(x, y seq.Padded) error {
	for _, p := range []seq.Padded{x, y} {
		if p.Data == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("running_sum: %w", err)
		}
	}
	return nil
}

// Forward computes the cumulative sum over active steps.
func (l *RunningSum) Forward(x seq.Padded, _ bool) (seq.Padded, Backprop[seq.Padded, seq.Padded], error) {
	if err := x.Validate(); err != nil {
		return seq.Padded{}, nil, fmt.Errorf("running_sum: %w", err)
	}
	sizeAtT := x.SizeAtT.Ints()
	shape := x.Data.Shape()
	y := tensor.Zeros(shape, tensor.Float32)

	steps, batch, width := shape[0], shape[1], shape[2:].NumElements()
	src, dst := x.Data.AsFloat32(), y.AsFloat32()
	for t := 0; t < steps; t++ {
		for b := 0; b < sizeAtT[t]; b++ {
			cur := (t*batch + b) * width
			prev := ((t-1)*batch + b) * width
			for f := 0; f < width; f++ {
				dst[cur+f] = src[cur+f]
				if t > 0 {
					dst[cur+f] += dst[prev+f]
				}
			}
		}
	}

	return x.WithData(y), &runningSumBackprop{shape: shape.Clone(), sizeAtT: sizeAtT}, nil
}

type runningSumBackprop struct {
	shape   tensor.Shape
	sizeAtT []int
}

// Backward accumulates the gradient in reverse time order.
func (bp *runningSumBackprop) Backward(dY seq.Padded) (seq.Padded, error) {
	if dY.Data == nil || !dY.Data.Shape().Equal(bp.shape) {
		return seq.Padded{}, &seq.ShapeError{Op: "running_sum", Details: fmt.Sprintf("gradient %v for output %v", dY.Data, bp.shape)}
	}
	dX := tensor.Zeros(bp.shape, tensor.Float32)

	steps, batch, width := bp.shape[0], bp.shape[1], bp.shape[2:].NumElements()
	src, dst := dY.Data.AsFloat32(), dX.AsFloat32()
	for t := steps - 1; t >= 0; t-- {
		for b := 0; b < bp.sizeAtT[t]; b++ {
			cur := (t*batch + b) * width
			next := ((t+1)*batch + b) * width
			carry := t+1 < steps && b < bp.sizeAtT[t+1]
			for f := 0; f < width; f++ {
				dst[cur+f] = src[cur+f]
				if carry {
					dst[cur+f] += dst[next+f]
				}
			}
		}
	}

	return dY.WithData(dX), nil
}
