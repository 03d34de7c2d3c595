package cpu

import (
	"fmt"

	"github.com/born-ml/seqadapt/internal/parallel"
	"github.com/born-ml/seqadapt/internal/tensor"
)

// Flatten concatenates items along axis 0.
//
// All items must agree on every axis except the first. With pad > 0 each
// non-empty item is preceded by pad zero rows and one more block of pad zero
// rows closes the result, so a transform with a receptive field of at most
// pad rows never sees two items at once. Empty items contribute no rows.
//
// Example:
//
//	a := shape (2, 4), b := shape (3, 4)
//	backend.Flatten([]*RawTensor{a, b}, 0) // Shape: [5, 4]
//	backend.Flatten([]*RawTensor{a, b}, 1) // Shape: [8, 4]
func (cpu *CPUBackend) Flatten(items []*tensor.RawTensor, pad int) *tensor.RawTensor {
	if len(items) == 0 {
		panic("flatten: at least one item required")
	}
	mustBeLive("flatten", items...)
	if pad < 0 {
		panic(fmt.Sprintf("flatten: negative pad %d", pad))
	}

	first := items[0].Shape()
	if len(first) == 0 {
		panic("flatten: items must have at least one axis")
	}
	dtype := items[0].DType()

	total := 0
	nonEmpty := 0
	for i, it := range items {
		s := it.Shape()
		if len(s) != len(first) || !s[1:].Equal(first[1:]) {
			panic(fmt.Sprintf("flatten: item %d has shape %v, expected (*, %v)", i, s, []int(first[1:])))
		}
		if it.DType() != dtype {
			panic(fmt.Sprintf("flatten: item %d has dtype %s, expected %s", i, it.DType(), dtype))
		}
		if s[0] > 0 {
			total += s[0] + pad
			nonEmpty++
		}
	}
	if nonEmpty > 0 {
		total += pad
	}

	outShape := first.Clone()
	outShape[0] = total
	result, err := tensor.NewRaw(outShape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("flatten: %v", err))
	}

	rowBytes := first.RowSize() * dtype.Size()
	starts := make([]int, len(items))
	row := 0
	for i, it := range items {
		n := it.Shape()[0]
		if n == 0 {
			continue
		}
		row += pad // zero rows already in place
		starts[i] = row
		row += n
	}

	dst := result.Data()
	parallel.For(len(items), func(i int) {
		n := items[i].Shape()[0]
		offset := starts[i] * rowBytes
		copy(dst[offset:offset+n*rowBytes], items[i].Data())
	}, cpu.parallel)

	return result
}

// Unflatten splits x along axis 0 into one array per length, skipping the
// pad rows inserted by Flatten. The lengths and pad must account for every
// row of x.
func (cpu *CPUBackend) Unflatten(x *tensor.RawTensor, lengths []int, pad int) []*tensor.RawTensor {
	shape := x.Shape()
	if len(shape) == 0 {
		panic("unflatten: input must have at least one axis")
	}
	if pad < 0 {
		panic(fmt.Sprintf("unflatten: negative pad %d", pad))
	}
	mustBeLive("unflatten", x)

	rowBytes := shape.RowSize() * x.DType().Size()
	src := x.Data()
	results := make([]*tensor.RawTensor, len(lengths))
	starts := make([]int, len(lengths))

	row := 0
	nonEmpty := 0
	for i, n := range lengths {
		if n < 0 {
			panic(fmt.Sprintf("unflatten: negative length %d at %d", n, i))
		}
		if n > 0 {
			row += pad
			nonEmpty++
		}
		if row+n > shape[0] {
			panic(fmt.Sprintf("unflatten: lengths need more than %d rows", shape[0]))
		}

		itemShape := shape.Clone()
		itemShape[0] = n
		item, err := tensor.NewRaw(itemShape, x.DType(), cpu.device)
		if err != nil {
			panic(fmt.Sprintf("unflatten: %v", err))
		}
		results[i] = item
		starts[i] = row
		row += n
	}
	if nonEmpty > 0 {
		row += pad
	}

	if row != shape[0] {
		panic(fmt.Sprintf("unflatten: lengths cover %d rows, array has %d", row, shape[0]))
	}

	parallel.For(len(results), func(i int) {
		start := starts[i] * rowBytes
		copy(results[i].Data(), src[start:start+lengths[i]*rowBytes])
	}, cpu.parallel)

	return results
}

// PadSequences stacks items of shape (length_i, ...) into a single array of
// shape (len(items), maxLen, ...). Steps past an item's length stay zero.
func (cpu *CPUBackend) PadSequences(items []*tensor.RawTensor, maxLen int) *tensor.RawTensor {
	if len(items) == 0 {
		panic("pad: at least one item required")
	}
	mustBeLive("pad", items...)

	first := items[0].Shape()
	if len(first) == 0 {
		panic("pad: items must have at least one axis")
	}
	dtype := items[0].DType()

	outShape := make(tensor.Shape, 0, len(first)+1)
	outShape = append(outShape, len(items), maxLen)
	outShape = append(outShape, first[1:]...)

	result, err := tensor.NewRaw(outShape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("pad: %v", err))
	}

	for b, it := range items {
		s := it.Shape()
		if len(s) != len(first) || !s[1:].Equal(first[1:]) {
			panic(fmt.Sprintf("pad: item %d has shape %v, expected (*, %v)", b, s, []int(first[1:])))
		}
		if s[0] > maxLen {
			panic(fmt.Sprintf("pad: item %d has %d steps, more than %d", b, s[0], maxLen))
		}
	}

	rowBytes := first.RowSize() * dtype.Size()
	dst := result.Data()
	parallel.For(len(items), func(b int) {
		start := b * maxLen * rowBytes
		copy(dst[start:start+items[b].Shape()[0]*rowBytes], items[b].Data())
	}, cpu.parallel)

	return result
}

// UnpadSequences slices each row b of x (batch, steps, ...) down to
// lengths[b] steps.
func (cpu *CPUBackend) UnpadSequences(x *tensor.RawTensor, lengths []int) []*tensor.RawTensor {
	shape := x.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("unpad: expected at least 2 axes, got %v", shape))
	}
	mustBeLive("unpad", x)
	if len(lengths) != shape[0] {
		panic(fmt.Sprintf("unpad: %d lengths for batch of %d", len(lengths), shape[0]))
	}

	steps := shape[1]
	rowBytes := shape[2:].NumElements() * x.DType().Size()
	src := x.Data()

	results := make([]*tensor.RawTensor, len(lengths))
	for b, n := range lengths {
		if n < 0 || n > steps {
			panic(fmt.Sprintf("unpad: length %d out of range [0, %d]", n, steps))
		}
		itemShape := make(tensor.Shape, 0, len(shape)-1)
		itemShape = append(itemShape, n)
		itemShape = append(itemShape, shape[2:]...)

		item, err := tensor.NewRaw(itemShape, x.DType(), cpu.device)
		if err != nil {
			panic(fmt.Sprintf("unpad: %v", err))
		}
		results[b] = item
	}

	parallel.For(len(results), func(b int) {
		start := b * steps * rowBytes
		copy(results[b].Data(), src[start:start+lengths[b]*rowBytes])
	}, cpu.parallel)

	return results
}
