package tensor

// Backend defines the array primitives the sequence layer consumes.
// Backends handle the actual computation; the sequence layer only decides
// which primitive to call with which extents.
//
// Every primitive allocates a new result and leaves its inputs untouched.
// Primitives panic on programmer misuse (mismatched shapes, bad axes);
// callers validate container metadata before reaching them.
type Backend interface {
	// Reshape copies t into a new array with the given shape.
	// The element count must be preserved.
	Reshape(t *RawTensor, newShape Shape) *RawTensor

	// Transpose permutes the axes of t.
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Mul multiplies two same-shaped Float32 arrays element-wise.
	Mul(a, b *RawTensor) *RawTensor

	// MulScalar multiplies every element of a Float32 array by scalar.
	MulScalar(x *RawTensor, scalar float32) *RawTensor

	// Flatten concatenates items along axis 0. With pad > 0 every non-empty
	// item is preceded by pad zero rows and the result ends with pad zero rows.
	Flatten(items []*RawTensor, pad int) *RawTensor

	// Unflatten splits x along axis 0 by lengths, skipping the pad rows
	// Flatten inserted.
	Unflatten(x *RawTensor, lengths []int, pad int) []*RawTensor

	// PadSequences stacks items (length_i, ...) into (len(items), maxLen, ...),
	// zero-filling rows past each item's length.
	PadSequences(items []*RawTensor, maxLen int) *RawTensor

	// UnpadSequences is the inverse of PadSequences: it slices row b of x
	// down to lengths[b] steps.
	UnpadSequences(x *RawTensor, lengths []int) []*RawTensor

	// DropoutMask draws an inverted-dropout keep mask: each element is
	// 1/(1-rate) with probability 1-rate and 0 otherwise.
	DropoutMask(shape Shape, rate float32) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
