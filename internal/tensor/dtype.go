// Package tensor provides the core tensor types for the reference kernels.
package tensor

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// DType is a constraint for supported tensor element types.
// It uses Go generics to ensure compile-time type safety.
type DType interface {
	float16.Float16 | ~float32 | ~float64 | ~int32 | ~int64 | ~bool
}

// Float is the subset of DType that kernels compute on natively.
// Float16 data is widened to float32 before it reaches a Float kernel.
type Float interface {
	~float32 | ~float64
}

// Index is the constraint for hard label element types.
type Index interface {
	~int32 | ~int64
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Bool
	Float16
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Float16:
		return 2
	case Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Bool:
		return "bool"
	case Float16:
		return "float16"
	default:
		return "unknown"
	}
}

// IsFloat reports whether the data type is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt == Float16 || dt == Float32 || dt == Float64
}

// IsIndex reports whether the data type can hold hard label indices.
func (dt DataType) IsIndex() bool {
	return dt == Int32 || dt == Int64
}

// ParseDataType maps a name produced by DataType.String back to the DataType.
func ParseDataType(name string) (DataType, error) {
	switch name {
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "bool":
		return Bool, nil
	case "float16":
		return Float16, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedDType, "unknown dtype %q", name)
}

// DataTypeOf infers the DataType of a generic element type T.
func DataTypeOf[T DType]() DataType {
	var dummy T
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	case bool:
		return Bool
	case float16.Float16:
		return Float16
	default:
		panic("unsupported type")
	}
}
