package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeNumElements(t *testing.T) {
	assert.Equal(t, 1, Shape{}.NumElements())
	assert.Equal(t, 0, Shape{3, 0, 2}.NumElements())
	assert.Equal(t, 24, Shape{2, 3, 4}.NumElements())
}

func TestShapeValidate(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		ok    bool
	}{
		{"scalar", Shape{}, true},
		{"zero sized", Shape{3, 0, 2}, true},
		{"zero hides large dims", Shape{1 << 40, 0, 1 << 40}, true},
		{"at limit", Shape{MaxElements}, true},
		{"negative", Shape{2, -1}, false},
		{"wraps to zero", Shape{1 << 32, 1 << 32}, false},
		{"above limit", Shape{MaxElements/2 + 1, 2}, false},
		{"large product", Shape{1 << 20, 1 << 20, 1 << 20}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shape.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrShapeMismatch)
		})
	}
}

func TestNormalizeAxis(t *testing.T) {
	tests := []struct {
		shape Shape
		axis  int
		want  int
		ok    bool
	}{
		{Shape{2, 3}, -1, 1, true},
		{Shape{2, 3}, 0, 0, true},
		{Shape{2, 3, 4}, -3, 0, true},
		{Shape{2, 3}, 2, 0, false},
		{Shape{2, 3}, -3, 0, false},
		{Shape{}, 0, 0, false},
	}
	for _, tt := range tests {
		got, err := tt.shape.NormalizeAxis(tt.axis)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrInvalidAxis, "shape %v axis %d", tt.shape, tt.axis)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSplitAxis(t *testing.T) {
	s := Shape{2, 3, 4, 5}

	n, d, r := s.SplitAxis(0)
	assert.Equal(t, []int{1, 2, 60}, []int{n, d, r})

	n, d, r = s.SplitAxis(2)
	assert.Equal(t, []int{6, 4, 5}, []int{n, d, r})

	n, d, r = s.SplitAxis(3)
	assert.Equal(t, []int{24, 5, 1}, []int{n, d, r})
}

func TestWithDim(t *testing.T) {
	s := Shape{4, 7, 2}
	got := s.WithDim(1, 1)
	assert.Equal(t, Shape{4, 1, 2}, got)
	assert.Equal(t, Shape{4, 7, 2}, s, "WithDim must not modify the receiver")
}

func TestComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Empty(t, Shape{}.ComputeStrides())
}
