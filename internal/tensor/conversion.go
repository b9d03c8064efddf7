package tensor

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Float64s returns a copy of r's elements widened to float64.
// Bool elements map to 0 and 1.
func (r *RawTensor) Float64s() []float64 {
	out := make([]float64, r.NumElements())
	switch r.dtype {
	case Float16:
		for i, v := range r.AsFloat16() {
			out[i] = float64(v.Float32())
		}
	case Float32:
		widen(out, r.AsFloat32())
	case Float64:
		copy(out, r.AsFloat64())
	case Int32:
		widen(out, r.AsInt32())
	case Int64:
		widen(out, r.AsInt64())
	case Bool:
		for i, v := range r.AsBool() {
			if v {
				out[i] = 1
			}
		}
	}
	return out
}

func widen[T ~float32 | ~float64 | ~int32 | ~int64](dst []float64, src []T) {
	for i, v := range src {
		dst[i] = float64(v)
	}
}

func narrow[T ~float32 | ~float64 | ~int32 | ~int64](dst []T, src []float64) {
	for i, v := range src {
		dst[i] = T(v)
	}
}

// FromFloat64s builds a tensor of the given dtype from float64 values,
// rounding or truncating as the target type requires. Non-zero values map
// to true for Bool.
func FromFloat64s(values []float64, shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(values) {
		return nil, errors.Wrapf(ErrShapeMismatch, "shape %v requires %d elements, but got %d",
			shape, shape.NumElements(), len(values))
	}
	out, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case Float16:
		dst := out.AsFloat16()
		for i, v := range values {
			dst[i] = float16.Fromfloat32(float32(v))
		}
	case Float32:
		narrow(out.AsFloat32(), values)
	case Float64:
		copy(out.AsFloat64(), values)
	case Int32:
		narrow(out.AsInt32(), values)
	case Int64:
		narrow(out.AsInt64(), values)
	case Bool:
		dst := out.AsBool()
		for i, v := range values {
			dst[i] = v != 0
		}
	}
	return out, nil
}

// WidenFloat16 returns a float32 copy of a Float16 tensor.
func WidenFloat16(r *RawTensor) *RawTensor {
	out := &RawTensor{
		data:   make([]byte, r.NumElements()*Float32.Size()),
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  Float32,
	}
	dst := out.AsFloat32()
	for i, v := range r.AsFloat16() {
		dst[i] = v.Float32()
	}
	return out
}

// NarrowFloat16 returns a Float16 copy of a Float32 tensor, rounding to
// nearest even.
func NarrowFloat16(r *RawTensor) *RawTensor {
	out := &RawTensor{
		data:   make([]byte, r.NumElements()*Float16.Size()),
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  Float16,
	}
	dst := out.AsFloat16()
	for i, v := range r.AsFloat32() {
		dst[i] = float16.Fromfloat32(v)
	}
	return out
}
