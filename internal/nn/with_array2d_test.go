package nn

import (
	"testing"

	"github.com/born-ml/seqadapt/internal/seq"
	"github.com/born-ml/seqadapt/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLinear maps width 2 to width 3 with fixed weights.
func newTestLinear(t *testing.T) *Linear {
	t.Helper()
	l := NewLinear(2, 3)
	require.NoError(t, l.SetWeights([]float32{1, 0, 0, 1, 1, 1}, []float32{0, 0, 1}))
	return l
}

func TestWithArray2DName(t *testing.T) {
	w := NewWithArray2D(NewLinear(2, 3), newBackend(), 0)
	assert.Equal(t, "with_array(linear)", w.Name())
	assert.Equal(t, 0, w.Pad())
	assert.Panics(t, func() { NewWithArray2D(NewLinear(2, 3), newBackend(), -1) })
}

func TestWithArray2DRaggedMatchesDense(t *testing.T) {
	backend := newBackend()
	w := NewWithArray2D(newTestLinear(t), backend, 0)

	data := array(t, tensor.Shape{3, 2}, 1, 2, 3, 4, 5, 6)
	want := []float32{1, 2, 4, 3, 4, 8, 5, 6, 12}

	yd, _, err := w.Forward(seq.NewDense(data), false)
	require.NoError(t, err)
	arr, err := yd.(seq.Dense).Array()
	require.NoError(t, err)
	assert.Equal(t, want, arr.AsFloat32())

	r := seq.NewRagged(data, []int{1, 2})
	yr, _, err := w.Forward(r, false)
	require.NoError(t, err)
	assert.Equal(t, want, yr.(seq.Ragged).Data.AsFloat32())
	assert.Same(t, r.Lengths, yr.(seq.Ragged).Lengths)
}

func TestWithArray2DListIdentity(t *testing.T) {
	backend := newBackend()
	for _, pad := range []int{0, 1, 3} {
		w := NewWithArray2D(NewIdentity[*tensor.RawTensor]("noop"), backend, pad)
		xs := listOf([]int{2, 3}, 4)

		y, bp, err := w.Forward(xs, true)
		require.NoError(t, err)
		ys := y.(seq.List)
		require.Len(t, ys, 2)
		for i := range xs {
			assert.Equal(t, xs[i].Shape(), ys[i].Shape())
			assert.Equal(t, xs[i].AsFloat32(), ys[i].AsFloat32())
		}

		dX, err := bp.Backward(y)
		require.NoError(t, err)
		assert.Equal(t, shapesOf(xs), shapesOf(dX))
	}
}

func TestWithArray2DPaddingGap(t *testing.T) {
	backend := newBackend()
	xs := seq.List{
		array(t, tensor.Shape{2, 1}, 1, 2),
		array(t, tensor.Shape{3, 1}, 10, 20, 30),
	}

	isolated := NewWithArray2D(newWindowSum(), backend, 1)
	y, bp, err := isolated.Forward(xs, false)
	require.NoError(t, err)
	ys := y.(seq.List)
	assert.Equal(t, []float32{3, 3}, ys[0].AsFloat32())
	assert.Equal(t, []float32{30, 60, 50}, ys[1].AsFloat32())

	dX, err := bp.Backward(onesLike(y))
	require.NoError(t, err)
	dXs := dX.(seq.List)
	assert.Equal(t, []float32{2, 2}, dXs[0].AsFloat32())
	assert.Equal(t, []float32{2, 3, 2}, dXs[1].AsFloat32())

	// Without the gap the window reaches across the item boundary.
	mixed := NewWithArray2D(newWindowSum(), backend, 0)
	y, _, err = mixed.Forward(xs, false)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 13}, y.(seq.List)[0].AsFloat32())
}

func TestWithArray2DPadded(t *testing.T) {
	backend := newBackend()
	w := NewWithArray2D(newTestLinear(t), backend, 0)
	p := seq.Padded{
		Data:    array(t, tensor.Shape{2, 2, 2}, 1, 2, 3, 4, 5, 6, 0, 0),
		SizeAtT: tensor.FromInts([]int{2, 1}),
		Lengths: tensor.FromInts([]int{2, 1}),
		Indices: tensor.FromInts([]int{0, 1}),
	}

	y, bp, err := w.Forward(p, false)
	require.NoError(t, err)
	yp := y.(seq.Padded)
	assert.Equal(t, tensor.Shape{2, 2, 3}, yp.Data.Shape())
	assert.Equal(t, []float32{1, 2, 4, 3, 4, 8, 5, 6, 12, 0, 0, 1}, yp.Data.AsFloat32())
	assert.Same(t, p.SizeAtT, yp.SizeAtT)
	assert.Same(t, p.Lengths, yp.Lengths)
	assert.Same(t, p.Indices, yp.Indices)

	dX, err := bp.Backward(onesLike(y))
	require.NoError(t, err)
	dXp := dX.(seq.Padded)
	assert.Equal(t, tensor.Shape{2, 2, 2}, dXp.Data.Shape())
	for _, v := range dXp.Data.AsFloat32() {
		assert.InDelta(t, 2.0, v, 1e-6)
	}
}

func TestWithArray2DGradientShapes(t *testing.T) {
	backend := newBackend()
	inputs := map[string]seq.Seq{
		"ragged": raggedOf([]int{2, 0, 3}, 2),
		"padded": paddedOf(t, []int{2, 0, 3}, 2),
		"list":   listOf([]int{2, 0, 3}, 2),
		"dense":  seq.NewDense(item(5, 2, 1)),
	}

	for kind, x := range inputs {
		w := NewWithArray2D(newTestLinear(t), backend, 1)
		y, bp, err := w.Forward(x, true)
		require.NoError(t, err, kind)
		assert.Equal(t, x.Kind(), y.Kind(), kind)
		for _, s := range shapesOf(y) {
			assert.Equal(t, 3, s[len(s)-1], kind)
		}

		dX, err := bp.Backward(onesLike(y))
		require.NoError(t, err, kind)
		assert.Equal(t, x.Kind(), dX.Kind(), kind)
		assert.Equal(t, shapesOf(x), shapesOf(dX), kind)
	}
}

func TestWithArray2DInitialize(t *testing.T) {
	backend := newBackend()
	w := NewWithArray2D(NewLinear(0, 3), backend, 1)

	nO, ok := w.Dims().MaybeGet("nO")
	require.True(t, ok)
	assert.Equal(t, 3, nO)
	_, ok = w.Dims().MaybeGet("nI")
	assert.False(t, ok)

	_, _, err := w.Forward(listOf([]int{2}, 5), false)
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, w.Initialize(listOf([]int{2, 1}, 5), nil))
	nI, ok := w.Dims().MaybeGet("nI")
	require.True(t, ok)
	assert.Equal(t, 5, nI)

	y, _, err := w.Forward(listOf([]int{2, 1}, 5), false)
	require.NoError(t, err)
	assert.Equal(t, []tensor.Shape{{2, 3}, {1, 3}}, shapesOf(y))

	// A sample that disagrees with the resolved width is rejected.
	assert.ErrorIs(t, w.Initialize(listOf([]int{2}, 4), nil), ErrDimMismatch)
}

func TestWithArray2DInitializeFromOutput(t *testing.T) {
	w := NewWithArray2D(NewLinear(0, 0), newBackend(), 0)
	x := paddedOf(t, []int{2, 1}, 4)
	y := seq.NewDense(item(6, 7, 0))

	require.NoError(t, w.Initialize(x, y))
	nI, _ := w.Dims().MaybeGet("nI")
	nO, _ := w.Dims().MaybeGet("nO")
	assert.Equal(t, 4, nI)
	assert.Equal(t, 7, nO)
}

func TestWithArray2DErrors(t *testing.T) {
	backend := newBackend()
	w := NewWithArray2D(newTestLinear(t), backend, 0)

	_, _, err := w.Forward(seq.NewDense(tensor.Zeros(tensor.Shape{2, 2, 2}, tensor.Float32)), false)
	assert.ErrorIs(t, err, seq.ErrShapeMismatch)

	_, _, err = w.Forward(seq.FromPadded(paddedOf(t, []int{1}, 2)), false)
	assert.ErrorIs(t, err, seq.ErrUnrecognized)

	_, _, err = w.Forward(seq.NewRagged(item(3, 2, 0), []int{1, 1}), false)
	assert.ErrorIs(t, err, seq.ErrShapeMismatch)

	_, bp, err := w.Forward(raggedOf([]int{2}, 2), false)
	require.NoError(t, err)
	_, err = bp.Backward(listOf([]int{2}, 3))
	assert.ErrorIs(t, err, seq.ErrShapeMismatch)
}

func TestWithArray2DReleasesPassThroughOnce(t *testing.T) {
	inner := newKeepInput(func(x *tensor.RawTensor) *tensor.RawTensor { return x })
	w := NewWithArray2D(inner, newBackend(), 1)

	inputs := []seq.Seq{listOf([]int{2, 1}, 2), paddedOf(t, []int{2, 1}, 2)}
	for _, x := range inputs {
		y, bp, err := w.Forward(x, false)
		require.NoError(t, err, x.Kind())
		assert.Equal(t, shapesOf(x), shapesOf(y), x.Kind())
		_, err = bp.Backward(onesLike(y))
		require.NoError(t, err, x.Kind())
	}

	require.Len(t, inner.kept, 4)
	for i, k := range inner.kept {
		assert.False(t, k.Released(), "array %d seen by the wrapped layer", i)
	}
}

func TestWithArray2DRejectsExtraFeatureAxes(t *testing.T) {
	w := NewWithArray2D(NewIdentity[*tensor.RawTensor]("identity"), newBackend(), 0)
	p := seq.Padded{
		Data:    tensor.Zeros(tensor.Shape{2, 2, 1, 3}, tensor.Float32),
		SizeAtT: tensor.FromInts([]int{2, 1}),
		Lengths: tensor.FromInts([]int{2, 1}),
		Indices: tensor.FromInts([]int{0, 1}),
	}
	require.NoError(t, p.Validate())

	_, _, err := w.Forward(p, false)
	assert.ErrorIs(t, err, seq.ErrShapeMismatch)
	assert.ErrorIs(t, w.Initialize(p, nil), seq.ErrShapeMismatch)

	_, bp, err := w.Forward(paddedOf(t, []int{2, 1}, 3), false)
	require.NoError(t, err)
	_, err = bp.Backward(p)
	assert.ErrorIs(t, err, seq.ErrShapeMismatch)
}
