package nn

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/seqadapt/internal/tensor"
)

// Linear implements a fully connected layer over (rows, nI) arrays.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x has shape [rows, nI]
//   - W has shape [nO, nI]
//   - b has shape [nO]
//   - y has shape [rows, nO]
//
// Either width may be left 0 and resolved by Initialize from sample arrays.
// Weights use Xavier initialization, biases start at zero. Backward
// accumulates weight and bias gradients until ZeroGrad is called.
type Linear struct {
	seed uint64
	dims *Dims

	mu     sync.Mutex
	weight *mat.Dense // [nO, nI]
	bias   *mat.VecDense
	dW     *mat.Dense
	db     *mat.VecDense
}

// NewLinear creates a Linear layer. Zero widths stay unset until Initialize.
func NewLinear(nI, nO int) *Linear {
	l := &Linear{seed: 1, dims: NewDims("nO", "nI")}
	if nO > 0 {
		_ = l.dims.Set("nO", nO)
	}
	if nI > 0 {
		_ = l.dims.Set("nI", nI)
	}
	l.allocate()
	return l
}

// WithSeed sets the seed used for weight initialization. It only has an
// effect before the weights are allocated.
func (l *Linear) WithSeed(seed uint64) *Linear {
	l.seed = seed
	return l
}

// Name returns "linear".
func (l *Linear) Name() string { return "linear" }

// Dims returns the table holding "nO" and "nI".
func (l *Linear) Dims() *Dims { return l.dims }

// Initialize resolves nI from the sample input's width and nO from the
// sample output's width, then allocates the weights.
func (l *Linear) Initialize(x, y *tensor.RawTensor) error {
	if x != nil {
		if x.NDim() != 2 {
			return fmt.Errorf("linear: sample input must be 2D, got %v: %w", x.Shape(), ErrDimMismatch)
		}
		if err := l.dims.Set("nI", x.Shape()[1]); err != nil {
			return fmt.Errorf("linear: %w", err)
		}
	}
	if y != nil {
		if y.NDim() != 2 {
			return fmt.Errorf("linear: sample output must be 2D, got %v: %w", y.Shape(), ErrDimMismatch)
		}
		if err := l.dims.Set("nO", y.Shape()[1]); err != nil {
			return fmt.Errorf("linear: %w", err)
		}
	}
	l.allocate()
	if l.weight == nil {
		return fmt.Errorf("linear: nI and nO must be known: %w", ErrNotInitialized)
	}
	return nil
}

func (l *Linear) allocate() {
	nO, okO := l.dims.MaybeGet("nO")
	nI, okI := l.dims.MaybeGet("nI")
	if !okO || !okI || nO == 0 || nI == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.weight != nil {
		return
	}
	l.weight = Xavier(nI, nO, nO, nI, l.seed)
	l.bias = mat.NewVecDense(nO, nil)
	l.dW = mat.NewDense(nO, nI, nil)
	l.db = mat.NewVecDense(nO, nil)
}

// SetWeights replaces the weight ([nO, nI], row-major) and bias ([nO]) values.
func (l *Linear) SetWeights(weight, bias []float32) error {
	nO, err := l.dims.Get("nO")
	if err != nil {
		return err
	}
	nI, err := l.dims.Get("nI")
	if err != nil {
		return err
	}
	if len(weight) != nO*nI || len(bias) != nO {
		return fmt.Errorf("linear: want %d weights and %d biases, got %d and %d: %w",
			nO*nI, nO, len(weight), len(bias), ErrDimMismatch)
	}

	l.allocate()
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i < nO; i++ {
		for j := 0; j < nI; j++ {
			l.weight.Set(i, j, float64(weight[i*nI+j]))
		}
		l.bias.SetVec(i, float64(bias[i]))
	}
	return nil
}

// Forward computes x @ W.T + b.
func (l *Linear) Forward(x *tensor.RawTensor, _ bool) (*tensor.RawTensor, Backprop[*tensor.RawTensor, *tensor.RawTensor], error) {
	if l.weight == nil {
		return nil, nil, fmt.Errorf("linear: %w", ErrNotInitialized)
	}
	nO, nI := l.weight.Dims()
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != nI {
		return nil, nil, fmt.Errorf("linear: expected input [rows, %d], got %v: %w", nI, shape, ErrDimMismatch)
	}

	rows := shape[0]
	if rows == 0 {
		return tensor.Zeros(tensor.Shape{0, nO}, tensor.Float32), &linearBackprop{l: l}, nil
	}

	xm := toDense(x)
	var ym mat.Dense
	ym.Mul(xm, l.weight.T())
	for i := 0; i < rows; i++ {
		row := ym.RawRowView(i)
		for j := range row {
			row[j] += l.bias.AtVec(j)
		}
	}

	return fromDense(&ym), &linearBackprop{l: l, x: xm}, nil
}

// linearBackprop keeps the forward input needed for the weight gradient.
type linearBackprop struct {
	l *Linear
	x *mat.Dense // nil when the input had no rows
}

func (bp *linearBackprop) Backward(dY *tensor.RawTensor) (*tensor.RawTensor, error) {
	nO, nI := bp.l.weight.Dims()
	rows := 0
	if bp.x != nil {
		rows, _ = bp.x.Dims()
	}
	if !dY.Shape().Equal(tensor.Shape{rows, nO}) {
		return nil, fmt.Errorf("linear: expected gradient [%d, %d], got %v: %w", rows, nO, dY.Shape(), ErrDimMismatch)
	}
	if rows == 0 {
		return tensor.Zeros(tensor.Shape{0, nI}, tensor.Float32), nil
	}

	dYm := toDense(dY)
	var dX mat.Dense
	dX.Mul(dYm, bp.l.weight)

	var dW mat.Dense
	dW.Mul(dYm.T(), bp.x)

	bp.l.mu.Lock()
	bp.l.dW.Add(bp.l.dW, &dW)
	for i := 0; i < rows; i++ {
		row := dYm.RawRowView(i)
		for j, v := range row {
			bp.l.db.SetVec(j, bp.l.db.AtVec(j)+v)
		}
	}
	bp.l.mu.Unlock()

	return fromDense(&dX), nil
}

// Gradients returns copies of the accumulated weight and bias gradients.
func (l *Linear) Gradients() (dW, db *tensor.RawTensor, err error) {
	if l.weight == nil {
		return nil, nil, fmt.Errorf("linear: %w", ErrNotInitialized)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return fromDense(l.dW), fromVec(l.db), nil
}

// ZeroGrad resets the accumulated gradients.
func (l *Linear) ZeroGrad() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dW != nil {
		l.dW.Zero()
		l.db.Zero()
	}
}

func toDense(x *tensor.RawTensor) *mat.Dense {
	shape := x.Shape()
	src := x.AsFloat32()
	data := make([]float64, len(src))
	for i, v := range src {
		data[i] = float64(v)
	}
	return mat.NewDense(shape[0], shape[1], data)
}

func fromDense(m mat.Matrix) *tensor.RawTensor {
	r, c := m.Dims()
	out := tensor.Zeros(tensor.Shape{r, c}, tensor.Float32)
	data := out.AsFloat32()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data[i*c+j] = float32(m.At(i, j))
		}
	}
	return out
}

func fromVec(v *mat.VecDense) *tensor.RawTensor {
	out := tensor.Zeros(tensor.Shape{v.Len()}, tensor.Float32)
	data := out.AsFloat32()
	for i := range data {
		data[i] = float32(v.AtVec(i))
	}
	return out
}
