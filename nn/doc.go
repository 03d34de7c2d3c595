// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides layers that run over any sequence representation.
//
// # Overview
//
// This package contains:
//   - Layer: Forward returns the output and an explicit Backprop context
//   - Dims: named dimensions such as "nI" and "nO"
//   - Adapters: WithArray2D, WithPadded
//   - Dropout: masking over List, Ragged, Padded and Dense inputs
//   - Building blocks: Linear, RunningSum, Identity, Chain, Sequential
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/seqadapt/backend/cpu"
//	    "github.com/born-ml/seqadapt/nn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    model := nn.NewSequential(
//	        nn.NewDropout(0.1, backend),
//	        nn.NewWithArray2D(nn.NewLinear(0, 16), backend, 1),
//	        nn.NewWithPadded(nn.NewRunningSum(), backend),
//	    )
//	    if err := model.Initialize(sample, nil); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    y, bp, err := model.Forward(x, true)
//	    dx, err := bp.Backward(dy)
//	}
//
// # Adapters
//
// WithArray2D: collapses the input into one (rows, features) array, runs a
// 2D layer, and restores the input's representation. List items are
// separated by pad zero rows so windowed layers do not mix items.
//
//	adapter := nn.NewWithArray2D(layer, backend, pad)
//
// WithPadded: converts the input to a time-major Padded batch, runs a
// Padded layer, and converts back.
//
//	adapter := nn.NewWithPadded(layer, backend)
//
// Both return a Backprop that accepts a gradient in the output's
// representation and returns one in the input's representation.
package nn
