package nn

import (
	"testing"

	"github.com/born-ml/seqadapt/internal/seq"
	"github.com/born-ml/seqadapt/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain(t *testing.T) {
	first := newTestLinear(t)
	second := NewLinear(0, 0)
	c := NewChain[*tensor.RawTensor, *tensor.RawTensor, *tensor.RawTensor](first, second)
	assert.Equal(t, "linear>>linear", c.Name())

	nI, ok := c.Dims().MaybeGet("nI")
	require.True(t, ok)
	assert.Equal(t, 2, nI)
	_, ok = c.Dims().MaybeGet("nO")
	assert.False(t, ok)

	require.NoError(t, c.Initialize(item(4, 2, 0), item(4, 5, 0)))
	nO, _ := c.Dims().MaybeGet("nO")
	assert.Equal(t, 5, nO)
	inner, _ := second.Dims().MaybeGet("nI")
	assert.Equal(t, 3, inner)

	w := NewWithArray2D(c, newBackend(), 1)
	x := listOf([]int{2, 3}, 2)
	y, bp, err := w.Forward(x, true)
	require.NoError(t, err)
	assert.Equal(t, []tensor.Shape{{2, 5}, {3, 5}}, shapesOf(y))

	dX, err := bp.Backward(onesLike(y))
	require.NoError(t, err)
	assert.Equal(t, shapesOf(x), shapesOf(dX))
}

func TestChainOfSequenceLayers(t *testing.T) {
	backend := newBackend()
	c := NewChain[seq.Seq, seq.Seq, seq.Seq](
		NewWithArray2D(newTestLinear(t), backend, 0),
		NewWithPadded(NewRunningSum(), backend),
	)
	require.NoError(t, c.Initialize(nil, nil))

	x := raggedOf([]int{1, 2}, 2)
	y, bp, err := c.Forward(x, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 3}, y.(seq.Ragged).Data.Shape())

	dX, err := bp.Backward(onesLike(y))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, dX.(seq.Ragged).Data.Shape())
}
