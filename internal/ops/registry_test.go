package ops_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/kernelref/internal/backend/cpu"
	"github.com/born-ml/kernelref/internal/ops"
	"github.com/born-ml/kernelref/internal/tensor"
)

// counterValue sums the samples of the counter family name whose labels
// include every pair in labels.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, m := range family.GetMetric() {
			got := map[string]string{}
			for _, pair := range m.GetLabel() {
				got[pair.GetName()] = pair.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue metrics
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func newRegistry(t *testing.T) (*ops.Registry, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	return ops.NewRegistry(cpu.New(), ops.WithMetrics(ops.NewMetrics(reg))), reg
}

func TestRegistry_Types(t *testing.T) {
	r, _ := newRegistry(t)
	assert.Equal(t, []string{
		"masked_select",
		"masked_select_grad",
		"softmax_with_cross_entropy",
		"softmax_with_cross_entropy_grad",
	}, r.Types())

	op, err := r.Lookup("masked_select")
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Mask"}, op.Inputs())
	assert.Equal(t, []string{"Y"}, op.Outputs())

	_, err = r.Lookup("conv2d")
	assert.ErrorIs(t, err, ops.ErrUnknownOp)
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r, _ := newRegistry(t)
	op, err := r.Lookup("masked_select")
	require.NoError(t, err)
	assert.ErrorIs(t, r.Register(op), ops.ErrDuplicateOp)
}

func TestRegistry_MaskedSelect(t *testing.T) {
	r, reg := newRegistry(t)
	ctx := context.Background()

	x := tensor.MustFromSlice([]float32{1, 2, 3, 4}, tensor.Shape{4})
	mask := tensor.MustFromSlice([]bool{true, false, true, false}, tensor.Shape{4})

	out, err := r.Run(ctx, "masked_select", ops.Tensors{"X": x, "Mask": mask}, nil)
	require.NoError(t, err)
	require.Contains(t, out, "Y")
	assert.Equal(t, []float32{1, 3}, out["Y"].AsFloat32())

	out, err = r.Run(ctx, "masked_select_grad", ops.Tensors{
		"X":      x,
		"Mask":   mask,
		"Y@GRAD": tensor.MustFromSlice([]float32{5, 6}, tensor.Shape{2}),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 0, 6, 0}, out["X@GRAD"].AsFloat32())

	assert.Equal(t, 1.0, counterValue(t, reg, "kernelref_op_runs_total", map[string]string{"op": "masked_select"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "kernelref_op_runs_total", map[string]string{"op": "masked_select_grad"}))
	assert.Zero(t, counterValue(t, reg, "kernelref_op_errors_total", nil))
}

func TestRegistry_SoftmaxWithCrossEntropy(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	logits := tensor.MustFromSlice([]float64{1, 2, 3, 1, 1, 1}, tensor.Shape{2, 3})
	label := tensor.MustFromSlice([]int64{2, 5}, tensor.Shape{2, 1})
	attrs := ops.Attrs{"ignore_index": 5, "numeric_stable_mode": true}

	fwd, err := r.Run(ctx, "softmax_with_cross_entropy", ops.Tensors{"Logits": logits, "Label": label}, attrs)
	require.NoError(t, err)
	require.Contains(t, fwd, "Softmax")
	require.Contains(t, fwd, "Loss")
	assert.Equal(t, tensor.Shape{2, 1}, fwd["Loss"].Shape())
	assert.Zero(t, fwd["Loss"].AsFloat64()[1])

	bwd, err := r.Run(ctx, "softmax_with_cross_entropy_grad", ops.Tensors{
		"Softmax":   fwd["Softmax"],
		"Label":     label,
		"Loss@GRAD": tensor.MustFromSlice([]float64{1, 1}, tensor.Shape{2, 1}),
	}, attrs)
	require.NoError(t, err)

	grad := bwd["Logits@GRAD"].AsFloat64()
	sm := fwd["Softmax"].AsFloat64()
	assert.InDeltaSlice(t, []float64{sm[0], sm[1], sm[2] - 1, 0, 0, 0}, grad, 1e-12)
}

func TestRegistry_Errors(t *testing.T) {
	r, reg := newRegistry(t)
	ctx := context.Background()
	x := tensor.MustFromSlice([]float32{1, 2}, tensor.Shape{2})

	_, err := r.Run(ctx, "gather", ops.Tensors{}, nil)
	assert.ErrorIs(t, err, ops.ErrUnknownOp)
	assert.Equal(t, ops.KindUnknownOp, ops.Kind(err))

	_, err = r.Run(ctx, "masked_select", ops.Tensors{"X": x}, nil)
	assert.ErrorIs(t, err, ops.ErrMissingInput)
	assert.Contains(t, err.Error(), `"Mask"`)

	_, err = r.Run(ctx, "softmax_with_cross_entropy", ops.Tensors{
		"Logits": x,
		"Label":  tensor.MustFromSlice([]int64{0}, tensor.Shape{1}),
	}, ops.Attrs{"axis": "last"})
	assert.ErrorIs(t, err, ops.ErrInvalidAttr)

	_, err = r.Run(ctx, "masked_select", ops.Tensors{
		"X":    x,
		"Mask": tensor.MustFromSlice([]bool{true}, tensor.Shape{1}),
	}, nil)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	assert.Equal(t, 1.0, counterValue(t, reg, "kernelref_op_errors_total", map[string]string{"op": "unknown", "kind": ops.KindUnknownOp}))
	assert.Equal(t, 1.0, counterValue(t, reg, "kernelref_op_errors_total", map[string]string{"op": "masked_select", "kind": ops.KindMissingInput}))
	assert.Equal(t, 1.0, counterValue(t, reg, "kernelref_op_errors_total", map[string]string{"kind": ops.KindInvalidAttr}))
	assert.Equal(t, 1.0, counterValue(t, reg, "kernelref_op_errors_total", map[string]string{"kind": ops.KindShapeMismatch}))
	assert.Equal(t, 2.0, counterValue(t, reg, "kernelref_op_runs_total", map[string]string{"op": "masked_select"}))
}

func TestRegistry_CanceledContext(t *testing.T) {
	r, _ := newRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x := tensor.MustFromSlice([]float32{1}, tensor.Shape{1})
	mask := tensor.MustFromSlice([]bool{true}, tensor.Shape{1})
	_, err := r.Run(ctx, "masked_select", ops.Tensors{"X": x, "Mask": mask}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ops.KindCanceled, ops.Kind(err))
}

func TestKind(t *testing.T) {
	assert.Empty(t, ops.Kind(nil))
	assert.Equal(t, ops.KindIndexOutOfRange, ops.Kind(tensor.ErrIndexOutOfRange))
	assert.Equal(t, ops.KindInternal, ops.Kind(assert.AnError))
}
