package seq

import (
	"testing"

	"github.com/born-ml/seqadapt/internal/backend/cpu"
	"github.com/born-ml/seqadapt/internal/tensor"
	"github.com/stretchr/testify/require"
)

// item builds a (n, width) array whose values are base, base+1, ...
func item(n, width int, base float32) *tensor.RawTensor {
	x := tensor.Zeros(tensor.Shape{n, width}, tensor.Float32)
	data := x.AsFloat32()
	for i := range data {
		data[i] = base + float32(i)
	}
	return x
}

func listOf(lengths []int, width int) List {
	xs := make(List, len(lengths))
	for i, n := range lengths {
		xs[i] = item(n, width, float32(100*(i+1)))
	}
	return xs
}

func newBackend() *cpu.CPUBackend {
	return cpu.NewWithSeed(0)
}

func requireSameList(t *testing.T, want, got List) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].Shape(), got[i].Shape(), "item %d", i)
		require.Equal(t, want[i].AsFloat32(), got[i].AsFloat32(), "item %d", i)
	}
}
