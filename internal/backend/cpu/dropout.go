package cpu

import (
	"fmt"

	"github.com/born-ml/seqadapt/internal/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// DropoutMask draws an inverted-dropout mask with the given shape.
//
// Each element is kept with probability 1-rate; kept elements carry
// 1/(1-rate) so the expected activation magnitude is unchanged.
// A rate of 1 drops everything.
func (cpu *CPUBackend) DropoutMask(shape tensor.Shape, rate float32) *tensor.RawTensor {
	if rate < 0 || rate > 1 {
		panic(fmt.Sprintf("dropout: rate %v outside [0, 1]", rate))
	}

	mask, err := tensor.NewRaw(shape, tensor.Float32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("dropout: %v", err))
	}
	if rate == 1 {
		return mask
	}

	keep := 1 - float64(rate)
	scale := float32(1 / keep)

	cpu.mu.Lock()
	defer cpu.mu.Unlock()

	draw := distuv.Bernoulli{P: keep, Src: cpu.src}
	data := mask.AsFloat32()
	for i := range data {
		data[i] = float32(draw.Rand()) * scale
	}
	return mask
}
