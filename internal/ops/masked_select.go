package ops

import (
	"context"

	"github.com/pkg/errors"
)

// Operator type names.
const (
	TypeMaskedSelect     = "masked_select"
	TypeMaskedSelectGrad = "masked_select_grad"
)

// MaskedSelectOp selects X where Mask is true into the rank-1 output Y.
type MaskedSelectOp struct {
	backend Backend
}

// Type returns "masked_select".
func (op *MaskedSelectOp) Type() string { return TypeMaskedSelect }

// Inputs returns X and Mask.
func (op *MaskedSelectOp) Inputs() []string { return []string{"X", "Mask"} }

// Outputs returns Y.
func (op *MaskedSelectOp) Outputs() []string { return []string{"Y"} }

// Run computes Y. masked_select has no attributes.
func (op *MaskedSelectOp) Run(_ context.Context, in Tensors, _ Attrs) (Tensors, error) {
	args, err := gather(in, op.Inputs()...)
	if err != nil {
		return nil, errors.WithMessage(err, TypeMaskedSelect)
	}
	y, err := op.backend.MaskedSelect(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return Tensors{"Y": y}, nil
}

// MaskedSelectGradOp scatters Y@GRAD back to the shape of X.
// X contributes only its shape.
type MaskedSelectGradOp struct {
	backend Backend
}

// Type returns "masked_select_grad".
func (op *MaskedSelectGradOp) Type() string { return TypeMaskedSelectGrad }

// Inputs returns X, Mask and Y@GRAD.
func (op *MaskedSelectGradOp) Inputs() []string { return []string{"X", "Mask", "Y@GRAD"} }

// Outputs returns X@GRAD.
func (op *MaskedSelectGradOp) Outputs() []string { return []string{"X@GRAD"} }

// Run computes X@GRAD.
func (op *MaskedSelectGradOp) Run(_ context.Context, in Tensors, _ Attrs) (Tensors, error) {
	args, err := gather(in, op.Inputs()...)
	if err != nil {
		return nil, errors.WithMessage(err, TypeMaskedSelectGrad)
	}
	grad, err := op.backend.MaskedSelectGrad(args[2], args[1], args[0].Shape())
	if err != nil {
		return nil, err
	}
	return Tensors{"X@GRAD": grad}, nil
}
