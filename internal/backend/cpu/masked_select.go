package cpu

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/born-ml/kernelref/internal/parallel"
	"github.com/born-ml/kernelref/internal/tensor"
)

// MaskedSelect returns the elements of x where mask is true, flattened into
// a rank-1 tensor in ascending flat-index order.
//
// mask must be a bool tensor with exactly x's shape; no broadcasting is done.
// The result may be empty. All DataTypes are accepted for x.
//
// Example:
//
//	x    = [1.0, 2.0, 3.0, 4.0]
//	mask = [true, false, true, false]
//	out  = [1.0, 3.0]
func (cpu *CPUBackend) MaskedSelect(x, mask *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := checkMask(mask, x.Shape()); err != nil {
		return nil, errors.WithMessage(err, "masked_select")
	}

	m := mask.AsBool()
	layout := cpu.maskLayout(m)

	out, err := tensor.NewRaw(tensor.Shape{layout.total()}, x.DType())
	if err != nil {
		return nil, errors.WithMessage(err, "masked_select")
	}

	switch x.DType() {
	case tensor.Float16:
		gatherMasked(x.AsFloat16(), m, out.AsFloat16(), layout)
	case tensor.Float32:
		gatherMasked(x.AsFloat32(), m, out.AsFloat32(), layout)
	case tensor.Float64:
		gatherMasked(x.AsFloat64(), m, out.AsFloat64(), layout)
	case tensor.Int32:
		gatherMasked(x.AsInt32(), m, out.AsInt32(), layout)
	case tensor.Int64:
		gatherMasked(x.AsInt64(), m, out.AsInt64(), layout)
	case tensor.Bool:
		gatherMasked(x.AsBool(), m, out.AsBool(), layout)
	default:
		return nil, errors.Wrapf(tensor.ErrUnsupportedDType, "masked_select: x dtype %s", x.DType())
	}
	return out, nil
}

// MaskedSelectGrad scatters gradOut back into a tensor of shape xShape.
//
// Positions where mask is true receive consecutive elements of gradOut in the
// same ascending order MaskedSelect uses; every other position is zero.
// gradOut is used as given, so callers may pass approximated gradients.
func (cpu *CPUBackend) MaskedSelectGrad(gradOut, mask *tensor.RawTensor, xShape tensor.Shape) (*tensor.RawTensor, error) {
	if err := xShape.Validate(); err != nil {
		return nil, errors.WithMessage(err, "masked_select_grad")
	}
	if err := checkMask(mask, xShape); err != nil {
		return nil, errors.WithMessage(err, "masked_select_grad")
	}

	m := mask.AsBool()
	layout := cpu.maskLayout(m)

	if gradOut.Shape().Rank() != 1 || gradOut.NumElements() != layout.total() {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch,
			"masked_select_grad: gradient shape %v, mask has %d true entries", gradOut.Shape(), layout.total())
	}

	out, err := tensor.NewRaw(xShape, gradOut.DType())
	if err != nil {
		return nil, errors.WithMessage(err, "masked_select_grad")
	}

	switch gradOut.DType() {
	case tensor.Float16:
		scatterMasked(gradOut.AsFloat16(), m, out.AsFloat16(), layout)
	case tensor.Float32:
		scatterMasked(gradOut.AsFloat32(), m, out.AsFloat32(), layout)
	case tensor.Float64:
		scatterMasked(gradOut.AsFloat64(), m, out.AsFloat64(), layout)
	case tensor.Int32:
		scatterMasked(gradOut.AsInt32(), m, out.AsInt32(), layout)
	case tensor.Int64:
		scatterMasked(gradOut.AsInt64(), m, out.AsInt64(), layout)
	case tensor.Bool:
		scatterMasked(gradOut.AsBool(), m, out.AsBool(), layout)
	default:
		return nil, errors.Wrapf(tensor.ErrUnsupportedDType, "masked_select_grad: dtype %s", gradOut.DType())
	}
	return out, nil
}

func checkMask(mask *tensor.RawTensor, shape tensor.Shape) error {
	if mask.DType() != tensor.Bool {
		return errors.Wrapf(tensor.ErrUnsupportedDType, "mask dtype is %s, want bool", mask.DType())
	}
	if !mask.Shape().Equal(shape) {
		return errors.Wrapf(tensor.ErrShapeMismatch, "mask shape %v does not match %v", mask.Shape(), shape)
	}
	return nil
}

// maskChunks records, for each contiguous chunk of the mask, where its
// selected elements start in the packed output. offsets has one more entry
// than ranges; the last one is the total number of true entries.
type maskChunks struct {
	ranges  []parallel.Range
	offsets []int
	cfg     parallel.Config
}

func (mc maskChunks) total() int {
	return mc.offsets[len(mc.offsets)-1]
}

// maskLayout counts true entries per chunk in parallel and prefix-sums them.
func (cpu *CPUBackend) maskLayout(mask []bool) maskChunks {
	ranges := parallel.Chunks(len(mask), cpu.cfg)

	// One goroutine per chunk: the chunks are already sized for the workers.
	chunkCfg := cpu.cfg
	chunkCfg.MinChunkSize = 1

	counts := make([]int, len(ranges))
	parallel.For(len(ranges), func(c int) {
		n := 0
		for _, keep := range mask[ranges[c].Start:ranges[c].End] {
			if keep {
				n++
			}
		}
		counts[c] = n
	}, chunkCfg)

	offsets := make([]int, len(ranges)+1)
	for c, n := range counts {
		offsets[c+1] = offsets[c] + n
	}
	return maskChunks{ranges: ranges, offsets: offsets, cfg: chunkCfg}
}

type element interface {
	float16.Float16 | float32 | float64 | int32 | int64 | bool
}

func gatherMasked[T element](src []T, mask []bool, dst []T, mc maskChunks) {
	parallel.For(len(mc.ranges), func(c int) {
		k := mc.offsets[c]
		for i := mc.ranges[c].Start; i < mc.ranges[c].End; i++ {
			if mask[i] {
				dst[k] = src[i]
				k++
			}
		}
	}, mc.cfg)
}

// scatterMasked relies on dst being zero-initialized.
func scatterMasked[T element](src []T, mask []bool, dst []T, mc maskChunks) {
	parallel.For(len(mc.ranges), func(c int) {
		k := mc.offsets[c]
		for i := mc.ranges[c].Start; i < mc.ranges[c].End; i++ {
			if mask[i] {
				dst[i] = src[k]
				k++
			}
		}
	}, mc.cfg)
}
