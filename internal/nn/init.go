package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Xavier (Glorot) initialization for a (rows, cols) weight matrix.
//
// Values are drawn from U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))).
// The source is seeded, so two layers built with the same seed and shape
// start from the same weights.
func Xavier(fanIn, fanOut, rows, cols int, seed uint64) *mat.Dense {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	dist := distuv.Uniform{Min: -bound, Max: bound, Src: rand.NewPCG(seed, uint64(fanIn)<<32|uint64(fanOut))} //nolint:gosec // dims are small and non-negative

	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = dist.Rand()
	}
	return mat.NewDense(rows, cols, data)
}
