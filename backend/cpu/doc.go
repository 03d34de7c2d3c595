// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for the sequence layers.
//
// # Overview
//
// This package implements the array primitives the adapters need:
//   - Reshape and Transpose (copying, any dtype)
//   - Flatten and Unflatten with a zero-row gap between items
//   - PadSequences and UnpadSequences for time-major batches
//   - Elementwise Mul and MulScalar on float32 arrays
//   - DropoutMask with Bernoulli draws from a seeded source
//
// # Basic Usage
//
//	backend := cpu.New()               // random seed
//	repro := cpu.NewWithSeed(42)       // reproducible dropout masks
//	mask := repro.DropoutMask(tensor.Shape{4, 8}, 0.25)
//
// All operations allocate their results; inputs are never modified.
package cpu
