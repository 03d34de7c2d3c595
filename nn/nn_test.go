// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"testing"

	"github.com/born-ml/seqadapt/backend/cpu"
	"github.com/born-ml/seqadapt/nn"
	"github.com/born-ml/seqadapt/seq"
	"github.com/born-ml/seqadapt/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicPipeline(t *testing.T) {
	backend := cpu.NewWithSeed(1)
	model := nn.NewSequential(
		nn.NewDropout(0.2, backend),
		nn.NewWithArray2D(nn.NewLinear(0, 5), backend, 1),
		nn.NewWithPadded(nn.NewRunningSum(), backend),
	)

	x := seq.List{
		tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}),
		tensor.MustFromSlice([]float32{7, 8, 9}, tensor.Shape{1, 3}),
	}
	require.NoError(t, model.Initialize(x, nil))
	assert.Equal(t, "dropout>>with_array(linear)>>with_padded(running_sum)", model.Name())

	y, bp, err := model.Forward(x, true)
	require.NoError(t, err)
	ys := y.(seq.List)
	assert.Equal(t, tensor.Shape{2, 5}, ys[0].Shape())
	assert.Equal(t, tensor.Shape{1, 5}, ys[1].Shape())

	dY := seq.List{tensor.Zeros(tensor.Shape{2, 5}, tensor.Float32), tensor.Zeros(tensor.Shape{1, 5}, tensor.Float32)}
	dX, err := bp.Backward(dY)
	require.NoError(t, err)
	dXs := dX.(seq.List)
	assert.Equal(t, x[0].Shape(), dXs[0].Shape())
	assert.Equal(t, x[1].Shape(), dXs[1].Shape())
}
