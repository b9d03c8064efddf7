package cpu

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/kernelref/internal/parallel"
	"github.com/born-ml/kernelref/internal/tensor"
)

// DefaultIgnoreIndex is the hard label value excluded from the loss when the
// caller does not choose one.
const DefaultIgnoreIndex = -1

// CrossEntropyAttrs selects the label kind and reduction axis of the
// softmax-with-cross-entropy kernels.
type CrossEntropyAttrs struct {
	// SoftLabel selects distribution labels (same shape as the logits)
	// instead of integer class indices.
	SoftLabel bool

	// Axis is the class axis. Negative values count from the end.
	Axis int

	// IgnoreIndex marks hard label positions that contribute no loss and no
	// gradient. Unused for soft labels.
	IgnoreIndex int64
}

// DefaultCrossEntropyAttrs returns hard labels over the last axis with
// DefaultIgnoreIndex.
func DefaultCrossEntropyAttrs() CrossEntropyAttrs {
	return CrossEntropyAttrs{Axis: -1, IgnoreIndex: DefaultIgnoreIndex}
}

// CrossEntropy computes the per-slice cross-entropy of a softmax output.
//
// Soft labels:
//
//	loss[n, 0, r] = -Σ_d label[n, d, r] * log(softmax[n, d, r])
//
// Hard labels (label[n, 0, r] = class index c):
//
//	loss[n, 0, r] = 0                        if c == IgnoreIndex
//	loss[n, 0, r] = -log(softmax[n, c, r])   otherwise
//
// The loss has the softmax shape with the class axis collapsed to 1. Soft
// labels are trusted to sum to one. A non-ignored hard label outside
// [0, axis_dim) fails with tensor.ErrIndexOutOfRange and no result.
func (cpu *CPUBackend) CrossEntropy(sm, label *tensor.RawTensor, attrs CrossEntropyAttrs) (*tensor.RawTensor, error) {
	layout, lossShape, err := checkCrossEntropy(sm, label, attrs)
	if err != nil {
		return nil, errors.WithMessage(err, "cross_entropy")
	}

	if sm.DType() == tensor.Float16 {
		if attrs.SoftLabel {
			label = tensor.WidenFloat16(label)
		}
		loss, err := cpu.CrossEntropy(tensor.WidenFloat16(sm), label, attrs)
		if err != nil {
			return nil, err
		}
		return tensor.NarrowFloat16(loss), nil
	}

	loss, err := tensor.NewRaw(lossShape, sm.DType())
	if err != nil {
		return nil, errors.WithMessage(err, "cross_entropy")
	}

	switch sm.DType() {
	case tensor.Float32:
		err = crossEntropy(sm.AsFloat32(), label, loss.AsFloat32(), layout, attrs, cpu.cfg)
	case tensor.Float64:
		err = crossEntropy(sm.AsFloat64(), label, loss.AsFloat64(), layout, attrs, cpu.cfg)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "cross_entropy")
	}
	return loss, nil
}

// SoftmaxWithCrossEntropy is the fused forward pass: it returns both the
// softmax of logits and the cross-entropy loss computed from it. Float16
// logits are computed in float32 end to end, so the loss sees the unrounded
// softmax, and both outputs are rounded back at the end.
func (cpu *CPUBackend) SoftmaxWithCrossEntropy(logits, label *tensor.RawTensor, attrs CrossEntropyAttrs) (sm, loss *tensor.RawTensor, err error) {
	if logits.DType() == tensor.Float16 {
		if attrs.SoftLabel {
			if label.DType() != tensor.Float16 {
				return nil, nil, errors.Wrapf(tensor.ErrUnsupportedDType,
					"cross_entropy: soft label dtype %s, softmax dtype %s", label.DType(), tensor.Float16)
			}
			label = tensor.WidenFloat16(label)
		}
		sm, loss, err = cpu.SoftmaxWithCrossEntropy(tensor.WidenFloat16(logits), label, attrs)
		if err != nil {
			return nil, nil, err
		}
		return tensor.NarrowFloat16(sm), tensor.NarrowFloat16(loss), nil
	}

	sm, err = cpu.Softmax(logits, attrs.Axis)
	if err != nil {
		return nil, nil, err
	}
	loss, err = cpu.CrossEntropy(sm, label, attrs)
	if err != nil {
		return nil, nil, err
	}
	return sm, loss, nil
}

// SoftmaxCrossEntropyGrad computes the gradient of the loss with respect to
// the logits, given the forward softmax and the incoming loss gradient.
//
// Hard labels (class index c for slice (n, r)):
//
//	grad[n, d, r] = (softmax[n, d, r] - [d == c]) * gradLoss[n, 0, r]
//	grad[n, :, r] = 0                            if c == IgnoreIndex
//
// Soft labels:
//
//	grad[n, d, r] = (softmax[n, d, r] - label[n, d, r]) * gradLoss[n, 0, r]
//
// gradLoss must have the loss shape and the softmax dtype.
func (cpu *CPUBackend) SoftmaxCrossEntropyGrad(sm, label, gradLoss *tensor.RawTensor, attrs CrossEntropyAttrs) (*tensor.RawTensor, error) {
	layout, lossShape, err := checkCrossEntropy(sm, label, attrs)
	if err != nil {
		return nil, errors.WithMessage(err, "softmax_with_cross_entropy_grad")
	}
	if !gradLoss.Shape().Equal(lossShape) {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch,
			"softmax_with_cross_entropy_grad: loss gradient shape %v, want %v", gradLoss.Shape(), lossShape)
	}
	if gradLoss.DType() != sm.DType() {
		return nil, errors.Wrapf(tensor.ErrUnsupportedDType,
			"softmax_with_cross_entropy_grad: loss gradient dtype %s, softmax dtype %s", gradLoss.DType(), sm.DType())
	}

	if sm.DType() == tensor.Float16 {
		if attrs.SoftLabel {
			label = tensor.WidenFloat16(label)
		}
		grad, err := cpu.SoftmaxCrossEntropyGrad(tensor.WidenFloat16(sm), label, tensor.WidenFloat16(gradLoss), attrs)
		if err != nil {
			return nil, err
		}
		return tensor.NarrowFloat16(grad), nil
	}

	grad, err := tensor.NewRaw(sm.Shape(), sm.DType())
	if err != nil {
		return nil, errors.WithMessage(err, "softmax_with_cross_entropy_grad")
	}

	switch sm.DType() {
	case tensor.Float32:
		err = crossEntropyGrad(sm.AsFloat32(), label, gradLoss.AsFloat32(), grad.AsFloat32(), layout, attrs, cpu.cfg)
	case tensor.Float64:
		err = crossEntropyGrad(sm.AsFloat64(), label, gradLoss.AsFloat64(), grad.AsFloat64(), layout, attrs, cpu.cfg)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "softmax_with_cross_entropy_grad")
	}
	return grad, nil
}

// checkCrossEntropy validates dtypes and shapes shared by the forward and
// backward kernels and returns the axis layout and the loss shape.
func checkCrossEntropy(sm, label *tensor.RawTensor, attrs CrossEntropyAttrs) (axisLayout, tensor.Shape, error) {
	shape := sm.Shape()
	ax, err := shape.NormalizeAxis(attrs.Axis)
	if err != nil {
		return axisLayout{}, nil, err
	}
	if !sm.DType().IsFloat() {
		return axisLayout{}, nil, errors.Wrapf(tensor.ErrUnsupportedDType, "softmax dtype %s", sm.DType())
	}
	lossShape := shape.WithDim(ax, 1)

	if attrs.SoftLabel {
		if label.DType() != sm.DType() {
			return axisLayout{}, nil, errors.Wrapf(tensor.ErrUnsupportedDType,
				"soft label dtype %s, softmax dtype %s", label.DType(), sm.DType())
		}
		if !label.Shape().Equal(shape) {
			return axisLayout{}, nil, errors.Wrapf(tensor.ErrShapeMismatch,
				"soft label shape %v, softmax shape %v", label.Shape(), shape)
		}
	} else {
		if !label.DType().IsIndex() {
			return axisLayout{}, nil, errors.Wrapf(tensor.ErrUnsupportedDType,
				"hard label dtype %s, want int32 or int64", label.DType())
		}
		if !label.Shape().Equal(lossShape) {
			return axisLayout{}, nil, errors.Wrapf(tensor.ErrShapeMismatch,
				"hard label shape %v, want %v", label.Shape(), lossShape)
		}
	}
	return newAxisLayout(shape, ax), lossShape, nil
}

// hardLabels widens int32 or int64 class indices to int64.
func hardLabels(label *tensor.RawTensor) []int64 {
	if label.DType() == tensor.Int64 {
		return label.AsInt64()
	}
	src := label.AsInt32()
	out := make([]int64, len(src))
	for i, v := range src {
		out[i] = int64(v)
	}
	return out
}

// classOf returns the class index of slice (n, r), or ok == false when the
// slice is ignored. Out of range indices are reported as errors.
func classOf(labels []int64, n, r int, l axisLayout, ignoreIndex int64) (class int, ok bool, err error) {
	c := labels[n*l.inner+r]
	if c == ignoreIndex {
		return 0, false, nil
	}
	if c < 0 || c >= int64(l.dim) {
		return 0, false, errors.Wrapf(tensor.ErrIndexOutOfRange,
			"label %d at slice (%d, %d) outside [0, %d)", c, n, r, l.dim)
	}
	return int(c), true, nil
}

func crossEntropy[T tensor.Float](sm []T, label *tensor.RawTensor, loss []T, l axisLayout, attrs CrossEntropyAttrs, cfg parallel.Config) error {
	if attrs.SoftLabel {
		soft := tensor.Data[T](label)
		parallel.ForBatch(l.outer, l.inner, func(n, r int) {
			base := l.base(n, r)
			sum := 0.0
			for d := range l.dim {
				idx := base + d*l.inner
				sum -= float64(soft[idx]) * math.Log(float64(sm[idx]))
			}
			loss[n*l.inner+r] = T(sum)
		}, cfg)
		return nil
	}

	labels := hardLabels(label)
	return parallel.ForBatchErr(l.outer, l.inner, func(n, r int) error {
		c, ok, err := classOf(labels, n, r, l, attrs.IgnoreIndex)
		if err != nil || !ok {
			return err
		}
		loss[n*l.inner+r] = T(-math.Log(float64(sm[l.base(n, r)+c*l.inner])))
		return nil
	}, cfg)
}

func crossEntropyGrad[T tensor.Float](sm []T, label *tensor.RawTensor, gradLoss, grad []T, l axisLayout, attrs CrossEntropyAttrs, cfg parallel.Config) error {
	if attrs.SoftLabel {
		soft := tensor.Data[T](label)
		parallel.ForBatch(l.outer, l.inner, func(n, r int) {
			base := l.base(n, r)
			g := gradLoss[n*l.inner+r]
			for d := range l.dim {
				idx := base + d*l.inner
				grad[idx] = (sm[idx] - soft[idx]) * g
			}
		}, cfg)
		return nil
	}

	labels := hardLabels(label)
	return parallel.ForBatchErr(l.outer, l.inner, func(n, r int) error {
		c, ok, err := classOf(labels, n, r, l, attrs.IgnoreIndex)
		if err != nil || !ok {
			// grad is zero-initialized, so ignored slices need no writes.
			return err
		}
		base := l.base(n, r)
		g := gradLoss[n*l.inner+r]
		for d := range l.dim {
			idx := base + d*l.inner
			p := sm[idx]
			if d == c {
				p--
			}
			grad[idx] = p * g
		}
		return nil
	}, cfg)
}
