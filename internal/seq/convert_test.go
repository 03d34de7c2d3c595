package seq

import (
	"testing"

	"github.com/born-ml/seqadapt/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList2PaddedPermutation(t *testing.T) {
	backend := newBackend()
	xs := listOf([]int{3, 1, 2}, 2)

	p, err := List2Padded(backend, xs)
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	assert.Equal(t, tensor.Shape{3, 3, 2}, p.Data.Shape())
	assert.Equal(t, []int{0, 2, 1}, p.Indices.Ints())
	assert.Equal(t, []int{3, 1, 2}, p.Lengths.Ints(), "lengths stay in input order")
	assert.Equal(t, []int{3, 2, 1}, p.SizeAtT.Ints())

	// Batch columns sorted by descending length: 3, 2, 1.
	sorted := make([]int, 3)
	for k, idx := range p.Indices.Ints() {
		sorted[k] = p.Lengths.Ints()[idx]
	}
	assert.Equal(t, []int{3, 2, 1}, sorted)

	// Step 0 holds the first row of every item, in sorted order.
	data := p.Data.AsFloat32()
	assert.Equal(t, []float32{100, 101, 300, 301, 200, 201}, data[0:6])
	// Step 2 only has the longest item; the rest is padding.
	assert.Equal(t, []float32{104, 105, 0, 0, 0, 0}, data[12:18])

	back, err := Padded2List(backend, p)
	require.NoError(t, err)
	requireSameList(t, xs, back)
}

func TestList2PaddedTiesKeepInputOrder(t *testing.T) {
	p, err := List2Padded(newBackend(), listOf([]int{2, 3, 2}, 1))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 2}, p.Indices.Ints())
}

func TestList2PaddedEdges(t *testing.T) {
	backend := newBackend()

	t.Run("Empty", func(t *testing.T) {
		p, err := List2Padded(backend, List{})
		require.NoError(t, err)
		require.NoError(t, p.Validate())
		back, err := Padded2List(backend, p)
		require.NoError(t, err)
		assert.Empty(t, back)
	})

	t.Run("ZeroLengthItem", func(t *testing.T) {
		xs := listOf([]int{0, 2}, 3)
		p, err := List2Padded(backend, xs)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 1}, p.SizeAtT.Ints())
		back, err := Padded2List(backend, p)
		require.NoError(t, err)
		requireSameList(t, xs, back)
	})

	t.Run("MixedWidths", func(t *testing.T) {
		_, err := List2Padded(backend, List{item(1, 2, 0), item(1, 3, 0)})
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}

func TestFlattenRoundTrip(t *testing.T) {
	backend := newBackend()
	xs := listOf([]int{2, 0, 3}, 4)

	for _, pad := range []int{0, 1, 2} {
		flat, err := Flatten(backend, xs, pad)
		require.NoError(t, err)
		assert.Equal(t, FlatRows(xs.Lengths(), pad), flat.Shape().Rows())

		back, err := Unflatten(backend, flat, xs.Lengths(), pad)
		require.NoError(t, err)
		requireSameList(t, xs, back)
	}
}

func TestUnflattenErrors(t *testing.T) {
	backend := newBackend()
	flat := item(5, 2, 0)

	_, err := Unflatten(backend, flat, []int{2, 2}, 0)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Unflatten(backend, flat, []int{2, 3}, 1)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Unflatten(backend, flat, []int{2, 3}, -1)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Flatten(backend, List{item(1, 2, 0)}, -1)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestFlattenEmptyList(t *testing.T) {
	flat, err := Flatten(newBackend(), List{}, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{0, 0}, flat.Shape())
}

func TestRaggedListRoundTrip(t *testing.T) {
	backend := newBackend()
	r := NewRagged(item(5, 2, 0), []int{2, 3})

	xs, err := RaggedToList(backend, r)
	require.NoError(t, err)
	require.Len(t, xs, 2)
	assert.Equal(t, []float32{0, 1, 2, 3}, xs[0].AsFloat32())
	assert.Equal(t, []float32{4, 5, 6, 7, 8, 9}, xs[1].AsFloat32())

	back, err := ListToRagged(backend, xs)
	require.NoError(t, err)
	assert.Equal(t, r.Data.AsFloat32(), back.Data.AsFloat32())
	assert.Equal(t, []int{2, 3}, back.Lengths.Ints())

	_, err = RaggedToList(backend, NewRagged(item(5, 2, 0), []int{1, 3}))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestPaddedFromArray3D(t *testing.T) {
	p, err := PaddedFromArray3D(tensor.Zeros(tensor.Shape{4, 3, 2}, tensor.Float32))
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	assert.Equal(t, []int{3, 3, 3, 3}, p.SizeAtT.Ints())
	assert.Equal(t, []int{4, 4, 4}, p.Lengths.Ints())
	assert.Equal(t, []int{0, 1, 2}, p.Indices.Ints())

	_, err = PaddedFromArray3D(tensor.Zeros(tensor.Shape{4, 3}, tensor.Float32))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestConversionsReleaseIntermediates(t *testing.T) {
	backend := newBackend()
	xs := listOf([]int{2, 1}, 1)

	p, err := List2Padded(backend, xs)
	require.NoError(t, err)
	p.Data.Release()
	assert.True(t, p.Data.Released(), "padded payload has a single owner")

	for _, x := range xs {
		assert.False(t, x.Released(), "inputs are never released by conversions")
	}
}
