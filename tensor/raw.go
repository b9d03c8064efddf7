// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/kernelref/internal/tensor"
)

// RawTensor is the dense tensor representation.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType()
//   - Typed views via AsFloat32(), AsInt64(), etc.
//   - Deep copies via Clone()
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
//	data := raw.AsFloat32()  // View over the tensor storage
//	clone := raw.Clone()     // Independent copy
type RawTensor = tensor.RawTensor

// Shape is the dimensions of a tensor. A nil or empty Shape is a scalar.
type Shape = tensor.Shape

// DataType is the runtime element type of a tensor.
type DataType = tensor.DataType

// DType is the constraint satisfied by every supported element type.
type DType = tensor.DType

// Supported data types.
const (
	Float16 = tensor.Float16
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Bool    = tensor.Bool
)

// Sentinel errors returned by the kernels.
var (
	ErrShapeMismatch    = tensor.ErrShapeMismatch
	ErrIndexOutOfRange  = tensor.ErrIndexOutOfRange
	ErrInvalidAxis      = tensor.ErrInvalidAxis
	ErrUnsupportedDType = tensor.ErrUnsupportedDType
)

// NewRaw creates a zero-filled tensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// FromSlice creates a tensor holding a copy of data.
// len(data) must equal shape.NumElements().
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}

// FromFloat64s creates a tensor of dtype from float64 values, converting
// each element.
func FromFloat64s(values []float64, shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.FromFloat64s(values, shape, dtype)
}

// ParseDataType maps a dtype name such as "float32" to its DataType.
func ParseDataType(name string) (DataType, error) {
	return tensor.ParseDataType(name)
}
