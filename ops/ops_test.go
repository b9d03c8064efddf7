// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package ops_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kernelref/backend/cpu"
	"github.com/born-ml/kernelref/ops"
	"github.com/born-ml/kernelref/tensor"
)

// TestBackendInterface verifies that cpu.Backend implements ops.Backend.
func TestBackendInterface(_ *testing.T) {
	var _ ops.Backend = (*cpu.Backend)(nil)
}

func TestRegistryFacade(t *testing.T) {
	registry := ops.NewRegistry(cpu.New(cpu.WithParallel(cpu.Sequential())))

	logits, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3})
	require.NoError(t, err)
	label, err := tensor.FromSlice([]int32{0}, tensor.Shape{1, 1})
	require.NoError(t, err)

	out, err := registry.Run(context.Background(), "softmax_with_cross_entropy",
		ops.Tensors{"Logits": logits, "Label": label}, ops.Attrs{"axis": 1})
	require.NoError(t, err)
	assert.Greater(t, out["Loss"].AsFloat32()[0], float32(2))

	_, err = registry.Run(context.Background(), "softmax", nil, nil)
	assert.ErrorIs(t, err, ops.ErrUnknownOp)
	assert.Equal(t, "unknown_op", ops.Kind(err))
}
