// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kernelref/tensor"
)

// TestRawTensorAPI verifies the RawTensor alias exposes the expected API.
func TestRawTensorAPI(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
	require.NoError(t, err)
	assert.True(t, raw.Shape().Equal(tensor.Shape{2, 3}))
	assert.Equal(t, tensor.Float32, raw.DType())
	assert.Equal(t, 6, raw.NumElements())
	assert.Equal(t, make([]float32, 6), raw.AsFloat32())
}

func TestFromSlice(t *testing.T) {
	raw, err := tensor.FromSlice([]int64{1, 2, 3}, tensor.Shape{3})
	require.NoError(t, err)
	assert.Equal(t, tensor.Int64, raw.DType())

	_, err = tensor.FromSlice([]int64{1, 2}, tensor.Shape{3})
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestParseDataType(t *testing.T) {
	for _, dt := range []tensor.DataType{tensor.Float16, tensor.Float32, tensor.Float64, tensor.Int32, tensor.Int64, tensor.Bool} {
		got, err := tensor.ParseDataType(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, got)
	}
	_, err := tensor.ParseDataType("uint8")
	assert.ErrorIs(t, err, tensor.ErrUnsupportedDType)
}
