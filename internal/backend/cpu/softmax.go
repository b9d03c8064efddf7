package cpu

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/kernelref/internal/parallel"
	"github.com/born-ml/kernelref/internal/tensor"
)

// SoftmaxClipFloor is the lower bound applied to x - max(x) before
// exponentiating. It keeps log(softmax) finite for every element, so the
// cross-entropy of a vanishing class is large but never +Inf.
const SoftmaxClipFloor = -64.0

// axisLayout is the (outer, dim, inner) view of a tensor around one axis.
// Slice (n, r) visits flat indices n*dim*inner + d*inner + r for d in [0, dim).
type axisLayout struct {
	outer, dim, inner int
}

func newAxisLayout(shape tensor.Shape, axis int) axisLayout {
	outer, dim, inner := shape.SplitAxis(axis)
	return axisLayout{outer: outer, dim: dim, inner: inner}
}

// base returns the flat index of element d = 0 of slice (n, r).
func (l axisLayout) base(n, r int) int {
	return n*l.dim*l.inner + r
}

// Softmax computes a numerically stable softmax along axis.
//
// For each slice along axis:
//
//	shifted_i = max(x_i - max(x), SoftmaxClipFloor)
//	out_i     = exp(shifted_i) / Σ_j exp(shifted_j)
//
// The result has the input's shape and dtype. Float16 inputs are computed in
// float32 and rounded back.
func (cpu *CPUBackend) Softmax(logits *tensor.RawTensor, axis int) (*tensor.RawTensor, error) {
	ax, err := logits.Shape().NormalizeAxis(axis)
	if err != nil {
		return nil, errors.WithMessage(err, "softmax")
	}

	switch logits.DType() {
	case tensor.Float16:
		out, err := cpu.Softmax(tensor.WidenFloat16(logits), ax)
		if err != nil {
			return nil, err
		}
		return tensor.NarrowFloat16(out), nil

	case tensor.Float32:
		out, err := tensor.NewRaw(logits.Shape(), tensor.Float32)
		if err != nil {
			return nil, errors.WithMessage(err, "softmax")
		}
		softmax(logits.AsFloat32(), out.AsFloat32(), newAxisLayout(logits.Shape(), ax), cpu.cfg)
		return out, nil

	case tensor.Float64:
		out, err := tensor.NewRaw(logits.Shape(), tensor.Float64)
		if err != nil {
			return nil, errors.WithMessage(err, "softmax")
		}
		softmax(logits.AsFloat64(), out.AsFloat64(), newAxisLayout(logits.Shape(), ax), cpu.cfg)
		return out, nil

	default:
		return nil, errors.Wrapf(tensor.ErrUnsupportedDType, "softmax: dtype %s", logits.DType())
	}
}

func softmax[T tensor.Float](input, output []T, l axisLayout, cfg parallel.Config) {
	if l.dim == 0 {
		return
	}
	parallel.ForBatch(l.outer, l.inner, func(n, r int) {
		base := l.base(n, r)

		// Pass 1: Find max.
		maxVal := input[base]
		for d := 1; d < l.dim; d++ {
			if v := input[base+d*l.inner]; v > maxVal {
				maxVal = v
			}
		}

		// Pass 2: Clipped exp and sum. Exponentials are kept in float64 so
		// float32 rows normalize with a single rounding per element.
		exps := make([]float64, l.dim)
		sum := 0.0
		for d := range l.dim {
			shifted := float64(input[base+d*l.inner] - maxVal)
			if shifted < SoftmaxClipFloor {
				shifted = SoftmaxClipFloor
			}
			exps[d] = math.Exp(shifted)
			sum += exps[d]
		}

		// Pass 3: Normalize.
		for d, e := range exps {
			output[base+d*l.inner] = T(e / sum)
		}
	}, cfg)
}
