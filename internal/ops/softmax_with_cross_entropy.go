package ops

import (
	"context"

	"github.com/pkg/errors"

	"github.com/born-ml/kernelref/internal/backend/cpu"
)

// Operator type names.
const (
	TypeSoftmaxWithCrossEntropy     = "softmax_with_cross_entropy"
	TypeSoftmaxWithCrossEntropyGrad = "softmax_with_cross_entropy_grad"
)

// Attribute names shared by the forward and backward operators.
const (
	AttrSoftLabel         = "soft_label"
	AttrAxis              = "axis"
	AttrIgnoreIndex       = "ignore_index"
	AttrNumericStableMode = "numeric_stable_mode"
)

// crossEntropyAttrs reads and type-checks the cross-entropy attributes.
// numeric_stable_mode is validated but has no effect: the kernel always
// subtracts the slice maximum.
func crossEntropyAttrs(attrs Attrs) (cpu.CrossEntropyAttrs, error) {
	out := cpu.DefaultCrossEntropyAttrs()
	var err error
	if out.SoftLabel, err = attrs.Bool(AttrSoftLabel, false); err != nil {
		return out, err
	}
	if out.Axis, err = attrs.Int(AttrAxis, -1); err != nil {
		return out, err
	}
	if out.IgnoreIndex, err = attrs.Int64(AttrIgnoreIndex, cpu.DefaultIgnoreIndex); err != nil {
		return out, err
	}
	if _, err = attrs.Bool(AttrNumericStableMode, true); err != nil {
		return out, err
	}
	return out, nil
}

// SoftmaxWithCrossEntropyOp is the fused softmax and cross-entropy forward
// pass.
type SoftmaxWithCrossEntropyOp struct {
	backend Backend
}

// Type returns "softmax_with_cross_entropy".
func (op *SoftmaxWithCrossEntropyOp) Type() string { return TypeSoftmaxWithCrossEntropy }

// Inputs returns Logits and Label.
func (op *SoftmaxWithCrossEntropyOp) Inputs() []string { return []string{"Logits", "Label"} }

// Outputs returns Softmax and Loss.
func (op *SoftmaxWithCrossEntropyOp) Outputs() []string { return []string{"Softmax", "Loss"} }

// Run computes Softmax and Loss.
func (op *SoftmaxWithCrossEntropyOp) Run(_ context.Context, in Tensors, attrs Attrs) (Tensors, error) {
	args, err := gather(in, op.Inputs()...)
	if err != nil {
		return nil, errors.WithMessage(err, TypeSoftmaxWithCrossEntropy)
	}
	ce, err := crossEntropyAttrs(attrs)
	if err != nil {
		return nil, errors.WithMessage(err, TypeSoftmaxWithCrossEntropy)
	}
	sm, loss, err := op.backend.SoftmaxWithCrossEntropy(args[0], args[1], ce)
	if err != nil {
		return nil, err
	}
	return Tensors{"Softmax": sm, "Loss": loss}, nil
}

// SoftmaxWithCrossEntropyGradOp computes the logits gradient from the
// forward softmax.
type SoftmaxWithCrossEntropyGradOp struct {
	backend Backend
}

// Type returns "softmax_with_cross_entropy_grad".
func (op *SoftmaxWithCrossEntropyGradOp) Type() string { return TypeSoftmaxWithCrossEntropyGrad }

// Inputs returns Softmax, Label and Loss@GRAD.
func (op *SoftmaxWithCrossEntropyGradOp) Inputs() []string {
	return []string{"Softmax", "Label", "Loss@GRAD"}
}

// Outputs returns Logits@GRAD.
func (op *SoftmaxWithCrossEntropyGradOp) Outputs() []string { return []string{"Logits@GRAD"} }

// Run computes Logits@GRAD.
func (op *SoftmaxWithCrossEntropyGradOp) Run(_ context.Context, in Tensors, attrs Attrs) (Tensors, error) {
	args, err := gather(in, op.Inputs()...)
	if err != nil {
		return nil, errors.WithMessage(err, TypeSoftmaxWithCrossEntropyGrad)
	}
	ce, err := crossEntropyAttrs(attrs)
	if err != nil {
		return nil, errors.WithMessage(err, TypeSoftmaxWithCrossEntropyGrad)
	}
	grad, err := op.backend.SoftmaxCrossEntropyGrad(args[0], args[1], args[2], ce)
	if err != nil {
		return nil, err
	}
	return Tensors{"Logits@GRAD": grad}, nil
}
