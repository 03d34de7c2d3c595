package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/seqadapt/internal/seq"
)

// SeqLayer is a layer over any sequence representation.
type SeqLayer = Layer[seq.Seq, seq.Seq]

// Sequential is a container layer that chains sequence layers together.
//
// Each layer's output becomes the next layer's input; Backward runs the
// captured backprops in reverse order.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewDropout(0.1, backend),
//	    nn.NewWithArray2D(nn.NewLinear(0, 16), backend, 0),
//	    nn.NewWithPadded(nn.NewRunningSum(), backend),
//	)
type Sequential struct {
	layers []SeqLayer
	dims   *Dims
}

// NewSequential creates a new Sequential container.
func NewSequential(layers ...SeqLayer) *Sequential {
	return &Sequential{
		layers: layers,
		dims:   NewDims("nI", "nO"),
	}
}

// Name returns "a>>b>>c" for the chained layer names.
func (s *Sequential) Name() string {
	names := make([]string, len(s.layers))
	for i, l := range s.layers {
		names[i] = l.Name()
	}
	return strings.Join(names, ">>")
}

// Dims returns the container's dims: nI of the first layer and nO of the
// last, once resolved.
func (s *Sequential) Dims() *Dims { return s.dims }

// Add appends a layer to the chain.
func (s *Sequential) Add(layer SeqLayer) {
	s.layers = append(s.layers, layer)
}

// Len returns the number of layers in the chain.
func (s *Sequential) Len() int {
	return len(s.layers)
}

// Layer returns the layer at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential) Layer(index int) SeqLayer {
	if index < 0 || index >= len(s.layers) {
		panic("Sequential.Layer: index out of bounds")
	}
	return s.layers[index]
}

// Initialize initializes the layers in order. The sample input is pushed
// through each initialized layer (not in training mode) to give the next
// layer its sample; the sample output only reaches the last layer.
func (s *Sequential) Initialize(x, y seq.Seq) error {
	cur := x
	for i, l := range s.layers {
		var target seq.Seq
		if i == len(s.layers)-1 {
			target = y
		}
		if err := l.Initialize(cur, target); err != nil {
			return fmt.Errorf("initialize layer %d (%s): %w", i, l.Name(), err)
		}
		if cur != nil && i < len(s.layers)-1 {
			next, _, err := l.Forward(cur, false)
			if err != nil {
				return fmt.Errorf("initialize layer %d (%s): %w", i, l.Name(), err)
			}
			cur = next
		}
	}

	if len(s.layers) == 0 {
		return nil
	}
	if v, ok := s.layers[0].Dims().MaybeGet("nI"); ok {
		if err := s.dims.Set("nI", v); err != nil {
			return err
		}
	}
	if v, ok := s.layers[len(s.layers)-1].Dims().MaybeGet("nO"); ok {
		if err := s.dims.Set("nO", v); err != nil {
			return err
		}
	}
	return nil
}

// Forward applies all layers in sequence.
func (s *Sequential) Forward(x seq.Seq, train bool) (seq.Seq, Backprop[seq.Seq, seq.Seq], error) {
	bps := make([]Backprop[seq.Seq, seq.Seq], len(s.layers))
	out := x
	for i, l := range s.layers {
		y, bp, err := l.Forward(out, train)
		if err != nil {
			return nil, nil, err
		}
		out, bps[i] = y, bp
	}
	return out, sequentialBackprop(bps), nil
}

type sequentialBackprop []Backprop[seq.Seq, seq.Seq]

func (bps sequentialBackprop) Backward(dY seq.Seq) (seq.Seq, error) {
	grad := dY
	for i := len(bps) - 1; i >= 0; i-- {
		dX, err := bps[i].Backward(grad)
		if err != nil {
			return nil, err
		}
		grad = dX
	}
	return grad, nil
}
