package tensor

import (
	"math"

	"github.com/pkg/errors"
)

// MaxElements bounds the element count of a shape so that the byte size of
// any dtype still fits in an int.
const MaxElements = math.MaxInt / 8

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Validate checks that no dimension is negative and that the product of the
// non-zero dimensions does not exceed MaxElements. Zero sized dimensions are
// valid.
func (s Shape) Validate() error {
	n := 1
	for i, dim := range s {
		if dim < 0 {
			return errors.Wrapf(ErrShapeMismatch, "invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
		if dim == 0 {
			continue
		}
		if n > MaxElements/dim {
			return errors.Wrapf(ErrShapeMismatch, "shape %v exceeds %d elements", s, MaxElements)
		}
		n *= dim
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// NormalizeAxis maps a possibly negative axis into [0, rank).
func (s Shape) NormalizeAxis(axis int) (int, error) {
	rank := len(s)
	adjusted := axis
	if adjusted < 0 {
		adjusted += rank
	}
	if adjusted < 0 || adjusted >= rank {
		return 0, errors.Wrapf(ErrInvalidAxis, "axis %d for shape %v (rank %d)", axis, s, rank)
	}
	return adjusted, nil
}

// SplitAxis returns the outer size, axis size and inner size for iterating
// over axis, which must already be normalized. Element (n, d, r) of the
// resulting (outer, axisDim, inner) view lives at n*axisDim*inner + d*inner + r.
func (s Shape) SplitAxis(axis int) (outer, axisDim, inner int) {
	outer = 1
	for i := range axis {
		outer *= s[i]
	}
	axisDim = s[axis]
	inner = 1
	for i := axis + 1; i < len(s); i++ {
		inner *= s[i]
	}
	return outer, axisDim, inner
}

// WithDim returns a copy of the shape with dimension axis replaced by size.
func (s Shape) WithDim(axis, size int) Shape {
	out := s.Clone()
	out[axis] = size
	return out
}
