// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the array type shared by every sequence
// representation.
//
// # Overview
//
// A RawTensor is a row-major array with a Shape and a DataType (Float32 for
// features, Int32 for lengths, size_at_t and indices). Buffers are reference
// counted: Clone adds a reference, Release drops one, and the memory is
// freed when the last reference goes away. Zero-length axes are legal, so an
// empty sequence is a (0, features) array.
//
// # Basic Usage
//
//	x := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})
//	lengths := tensor.FromInts([]int{2, 1})
//	fmt.Println(x, lengths.Ints()) // float32[3 2] [2 1]
//
// Backends implement the Backend interface; see backend/cpu.
package tensor
