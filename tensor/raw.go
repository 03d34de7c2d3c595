// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/seqadapt/internal/tensor"
)

// RawTensor is the low-level array representation.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType(), Device()
//   - Type-safe data access via AsFloat32(), AsInt32() and Ints()
//   - Reference counting via Clone(), Release() and Released()
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
//	data := raw.AsFloat32()  // Type-safe access
//	clone := raw.Clone()     // Shares buffer via reference counting
type RawTensor = tensor.RawTensor

// Shape is the size of every axis, outermost first.
type Shape = tensor.Shape

// DataType identifies the element type of an array.
type DataType = tensor.DataType

// DType constrains the Go element types an array can hold.
type DType = tensor.DType

// Device identifies where an array lives.
type Device = tensor.Device

// Supported data types.
const (
	Float32 = tensor.Float32
	Int32   = tensor.Int32
)

// CPU is the host device.
const CPU = tensor.CPU

// NewRaw allocates a zeroed array.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Zeros allocates a zeroed CPU array. Panics if shape is invalid.
func Zeros(shape Shape, dtype DataType) *RawTensor {
	return tensor.Zeros(shape, dtype)
}

// FromSlice copies data into a new array of the given shape.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}

// MustFromSlice is like FromSlice but panics on error.
func MustFromSlice[T DType](data []T, shape Shape) *RawTensor {
	return tensor.MustFromSlice(data, shape)
}

// FromInts creates a 1D Int32 array, e.g. sequence lengths.
func FromInts(values []int) *RawTensor {
	return tensor.FromInts(values)
}

// Full creates an Int32 array of length n filled with value.
func Full(n, value int) *RawTensor {
	return tensor.Full(n, value)
}

// Arange creates the Int32 array [0, 1, ..., n-1].
func Arange(n int) *RawTensor {
	return tensor.Arange(n)
}
