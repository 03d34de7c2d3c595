package nn

import (
	"fmt"
	"reflect"
)

// Chain feeds the output of one layer into another.
//
// Example:
//
//	mlp := nn.NewChain[*tensor.RawTensor, *tensor.RawTensor, *tensor.RawTensor](
//	    nn.NewLinear(0, 32),
//	    nn.NewLinear(32, 8),
//	)
//	model := nn.NewWithArray2D(mlp, backend, 0)
type Chain[A, B, C any] struct {
	first  Layer[A, B]
	second Layer[B, C]
	dims   *Dims
}

// NewChain composes first and second.
func NewChain[A, B, C any](first Layer[A, B], second Layer[B, C]) *Chain[A, B, C] {
	c := &Chain[A, B, C]{first: first, second: second, dims: NewDims("nI", "nO")}
	c.resolveDims()
	return c
}

// Name returns "first>>second".
func (c *Chain[A, B, C]) Name() string {
	return c.first.Name() + ">>" + c.second.Name()
}

// Dims returns nI of the first layer and nO of the second, once known.
func (c *Chain[A, B, C]) Dims() *Dims { return c.dims }

// Initialize initializes the first layer with x, pushes x through it to
// get a sample for the second layer, then initializes the second with y.
func (c *Chain[A, B, C]) Initialize(x A, y C) error {
	var mid B
	if err := c.first.Initialize(x, mid); err != nil {
		return fmt.Errorf("%s: %w", c.Name(), err)
	}
	if !isZero(x) {
		out, _, err := c.first.Forward(x, false)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
		mid = out
	}
	if err := c.second.Initialize(mid, y); err != nil {
		return fmt.Errorf("%s: %w", c.Name(), err)
	}
	return c.resolveDims()
}

func (c *Chain[A, B, C]) resolveDims() error {
	if v, ok := c.first.Dims().MaybeGet("nI"); ok {
		if err := c.dims.Set("nI", v); err != nil {
			return err
		}
	}
	if v, ok := c.second.Dims().MaybeGet("nO"); ok {
		if err := c.dims.Set("nO", v); err != nil {
			return err
		}
	}
	return nil
}

// Forward runs both layers.
func (c *Chain[A, B, C]) Forward(x A, train bool) (C, Backprop[C, A], error) {
	var zero C
	mid, bp1, err := c.first.Forward(x, train)
	if err != nil {
		return zero, nil, err
	}
	y, bp2, err := c.second.Forward(mid, train)
	if err != nil {
		return zero, nil, err
	}
	return y, BackpropFunc[C, A](func(dY C) (A, error) {
		dMid, err := bp2.Backward(dY)
		if err != nil {
			var none A
			return none, err
		}
		return bp1.Backward(dMid)
	}), nil
}

// isZero reports whether v is its type's zero value (nil array, nil Seq,
// empty Padded).
func isZero[T any](v T) bool {
	return reflect.ValueOf(&v).Elem().IsZero()
}
