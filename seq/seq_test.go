// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package seq_test

import (
	"testing"

	"github.com/born-ml/seqadapt/backend/cpu"
	"github.com/born-ml/seqadapt/seq"
	"github.com/born-ml/seqadapt/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicRoundTrip(t *testing.T) {
	backend := cpu.New()
	items := seq.List{
		tensor.MustFromSlice([]float32{1, 2, 3}, tensor.Shape{3, 1}),
		tensor.MustFromSlice([]float32{4}, tensor.Shape{1, 1}),
		tensor.MustFromSlice([]float32{5, 6}, tensor.Shape{2, 1}),
	}

	p, err := seq.List2Padded(backend, items)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, p.Indices.Ints())
	assert.Equal(t, []int{3, 2, 1}, p.SizeAtT.Ints())
	assert.Equal(t, seq.KindPadded, p.Kind())

	back, err := seq.Padded2List(backend, p)
	require.NoError(t, err)
	for i := range items {
		assert.Equal(t, items[i].AsFloat32(), back[i].AsFloat32())
	}

	r, err := seq.ListToRagged(backend, items)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, r.Data.AsFloat32())

	_, err = seq.Unflatten(backend, r.Data, []int{3, 2}, 0)
	assert.ErrorIs(t, err, seq.ErrShapeMismatch)
}
