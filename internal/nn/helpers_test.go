package nn

import (
	"testing"

	"github.com/born-ml/seqadapt/internal/backend/cpu"
	"github.com/born-ml/seqadapt/internal/seq"
	"github.com/born-ml/seqadapt/internal/tensor"
	"github.com/stretchr/testify/require"
)

func newBackend() *cpu.CPUBackend {
	return cpu.NewWithSeed(7)
}

func array(t *testing.T, shape tensor.Shape, values ...float32) *tensor.RawTensor {
	t.Helper()
	x, err := tensor.FromSlice(values, shape)
	require.NoError(t, err)
	return x
}

// item builds a (n, width) array whose values are base, base+1, ...
func item(n, width int, base float32) *tensor.RawTensor {
	x := tensor.Zeros(tensor.Shape{n, width}, tensor.Float32)
	data := x.AsFloat32()
	for i := range data {
		data[i] = base + float32(i)
	}
	return x
}

func listOf(lengths []int, width int) seq.List {
	xs := make(seq.List, len(lengths))
	for i, n := range lengths {
		xs[i] = item(n, width, float32(100*(i+1)))
	}
	return xs
}

func raggedOf(lengths []int, width int) seq.Ragged {
	total := 0
	for _, n := range lengths {
		total += n
	}
	return seq.NewRagged(item(total, width, 1), lengths)
}

func paddedOf(t *testing.T, lengths []int, width int) seq.Padded {
	t.Helper()
	p, err := seq.List2Padded(newBackend(), listOf(lengths, width))
	require.NoError(t, err)
	return p
}

func ones(shape tensor.Shape) *tensor.RawTensor {
	x := tensor.Zeros(shape, tensor.Float32)
	data := x.AsFloat32()
	for i := range data {
		data[i] = 1
	}
	return x
}

// onesLike builds a gradient of ones with the structure of s.
func onesLike(s seq.Seq) seq.Seq {
	switch v := s.(type) {
	case seq.Ragged:
		return seq.Ragged{Data: ones(v.Data.Shape()), Lengths: v.Lengths}
	case seq.Padded:
		return v.WithData(ones(v.Data.Shape()))
	case seq.List:
		out := make(seq.List, len(v))
		for i, x := range v {
			out[i] = ones(x.Shape())
		}
		return out
	case seq.Dense:
		arrays := append([]*tensor.RawTensor(nil), v.Arrays...)
		arrays[0] = ones(arrays[0].Shape())
		return seq.Dense{Arrays: arrays}
	}
	return nil
}

// shapesOf lists the payload shapes of s.
func shapesOf(s seq.Seq) []tensor.Shape {
	switch v := s.(type) {
	case seq.Ragged:
		return []tensor.Shape{v.Data.Shape()}
	case seq.Padded:
		return []tensor.Shape{v.Data.Shape()}
	case seq.List:
		out := make([]tensor.Shape, len(v))
		for i, x := range v {
			out[i] = x.Shape()
		}
		return out
	case seq.Dense:
		return []tensor.Shape{v.Arrays[0].Shape()}
	}
	return nil
}

// windowSum adds every row to its neighbours: y[i] = x[i-1] + x[i] + x[i+1].
// Its receptive field is one row on each side.
type windowSum struct {
	dims *Dims
}

func newWindowSum() *windowSum { return &windowSum{dims: NewDims()} }

func (l *windowSum) Name() string { return "window_sum" }

func (l *windowSum) Dims() *Dims { return l.dims }

func (l *windowSum) Initialize(_, _ *tensor.RawTensor) error { return nil }

func (l *windowSum) Forward(x *tensor.RawTensor, _ bool) (*tensor.RawTensor, Backprop[*tensor.RawTensor, *tensor.RawTensor], error) {
	bp := BackpropFunc[*tensor.RawTensor, *tensor.RawTensor](func(dY *tensor.RawTensor) (*tensor.RawTensor, error) {
		return windowSumOf(dY), nil
	})
	return windowSumOf(x), bp, nil
}

func windowSumOf(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	n, width := shape[0], shape.RowSize()
	y := tensor.Zeros(shape, tensor.Float32)
	src, dst := x.AsFloat32(), y.AsFloat32()
	for i := 0; i < n; i++ {
		for j := i - 1; j <= i+1; j++ {
			if j < 0 || j >= n {
				continue
			}
			for f := 0; f < width; f++ {
				dst[i*width+f] += src[j*width+f]
			}
		}
	}
	return y
}

// keepInput passes arrays through unchanged, returning the very reference it
// was given, and holds its own clone of every array it sees.
type keepInput[T any] struct {
	dims    *Dims
	payload func(T) *tensor.RawTensor
	kept    []*tensor.RawTensor
}

func newKeepInput[T any](payload func(T) *tensor.RawTensor) *keepInput[T] {
	return &keepInput[T]{dims: NewDims(), payload: payload}
}

func (l *keepInput[T]) Name() string { return "keep_input" }

func (l *keepInput[T]) Dims() *Dims { return l.dims }

func (l *keepInput[T]) Initialize(_, _ T) error { return nil }

func (l *keepInput[T]) Forward(x T, _ bool) (T, Backprop[T, T], error) {
	l.kept = append(l.kept, l.payload(x).Clone())
	bp := BackpropFunc[T, T](func(dY T) (T, error) {
		l.kept = append(l.kept, l.payload(dY).Clone())
		return dY, nil
	})
	return x, bp, nil
}
