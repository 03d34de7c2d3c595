package tensor

import "fmt"

// Zeros creates a zero-filled array on the CPU.
// Panics on a negative dimension.
//
// Example:
//
//	x := tensor.Zeros(tensor.Shape{3, 4}, tensor.Float32)
func Zeros(shape Shape, dtype DataType) *RawTensor {
	raw, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		panic(err) // Shape validation should prevent this
	}
	return raw
}

// FromSlice creates an array from a Go slice.
// The slice is copied into the array's memory.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), CPU)
	if err != nil {
		return nil, err
	}

	switch src := any(data).(type) {
	case []float32:
		copy(raw.AsFloat32(), src)
	case []int32:
		copy(raw.AsInt32(), src)
	}

	return raw, nil
}

// MustFromSlice is like FromSlice but panics on error.
func MustFromSlice[T DType](data []T, shape Shape) *RawTensor {
	raw, err := FromSlice(data, shape)
	if err != nil {
		panic(err)
	}
	return raw
}

// FromInts creates a 1D Int32 array from a slice of ints.
func FromInts(values []int) *RawTensor {
	raw := Zeros(Shape{len(values)}, Int32)
	out := raw.AsInt32()
	for i, v := range values {
		out[i] = int32(v) //nolint:gosec // sequence lengths and indices fit in int32
	}
	return raw
}

// Full creates an Int32 array of length n filled with value.
func Full(n, value int) *RawTensor {
	values := make([]int, n)
	for i := range values {
		values[i] = value
	}
	return FromInts(values)
}

// Arange creates the Int32 array [0, 1, ..., n-1].
func Arange(n int) *RawTensor {
	values := make([]int, n)
	for i := range values {
		values[i] = i
	}
	return FromInts(values)
}
