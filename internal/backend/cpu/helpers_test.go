package cpu_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/kernelref/internal/backend/cpu"
	"github.com/born-ml/kernelref/internal/parallel"
	"github.com/born-ml/kernelref/internal/tensor"
)

// seed keeps random inputs reproducible across runs.
const seed = 2021

// backends returns a sequential backend and one that splits even small
// inputs across goroutines, so every test exercises both paths.
func backends() map[string]*cpu.CPUBackend {
	return map[string]*cpu.CPUBackend{
		"sequential": cpu.New(cpu.WithParallel(parallel.Sequential())),
		"parallel":   cpu.New(cpu.WithParallel(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1})),
	}
}

// uniform returns a tensor of dtype with values drawn from [lo, hi).
func uniform(t *testing.T, rng *rand.Rand, shape tensor.Shape, dtype tensor.DataType, lo, hi float64) *tensor.RawTensor {
	t.Helper()
	values := make([]float64, shape.NumElements())
	for i := range values {
		values[i] = lo + (hi-lo)*rng.Float64()
	}
	raw, err := tensor.FromFloat64s(values, shape, dtype)
	require.NoError(t, err)
	return raw
}

// randomMask returns a bool tensor with roughly half of the entries set.
func randomMask(rng *rand.Rand, shape tensor.Shape) *tensor.RawTensor {
	mask := make([]bool, shape.NumElements())
	for i := range mask {
		mask[i] = rng.Intn(2) == 1
	}
	return tensor.MustFromSlice(mask, shape)
}

// randomLabels returns hard labels in [0, classes) of the given shape.
func randomLabels(rng *rand.Rand, shape tensor.Shape, classes int) *tensor.RawTensor {
	labels := make([]int64, shape.NumElements())
	for i := range labels {
		labels[i] = int64(rng.Intn(classes))
	}
	return tensor.MustFromSlice(labels, shape)
}

// softLabels returns positive labels normalized to sum to one along axis.
func softLabels(t *testing.T, rng *rand.Rand, shape tensor.Shape, axis int, dtype tensor.DataType) *tensor.RawTensor {
	t.Helper()
	ax, err := shape.NormalizeAxis(axis)
	require.NoError(t, err)
	outer, dim, inner := shape.SplitAxis(ax)

	values := make([]float64, shape.NumElements())
	for i := range values {
		values[i] = 0.1 + 0.9*rng.Float64()
	}
	for n := 0; n < outer; n++ {
		for r := 0; r < inner; r++ {
			sum := 0.0
			for d := 0; d < dim; d++ {
				sum += values[n*dim*inner+d*inner+r]
			}
			for d := 0; d < dim; d++ {
				values[n*dim*inner+d*inner+r] /= sum
			}
		}
	}
	raw, err := tensor.FromFloat64s(values, shape, dtype)
	require.NoError(t, err)
	return raw
}
