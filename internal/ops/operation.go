// Package ops is the operator dispatch boundary over the reference kernels.
//
// An operation takes named input tensors and attributes and returns named
// output tensors, mirroring how the host framework calls a device kernel:
//   - masked_select: X, Mask -> Y
//   - masked_select_grad: X, Mask, Y@GRAD -> X@GRAD
//   - softmax_with_cross_entropy: Logits, Label -> Softmax, Loss
//   - softmax_with_cross_entropy_grad: Softmax, Label, Loss@GRAD -> Logits@GRAD
package ops

import (
	"context"

	"github.com/pkg/errors"

	"github.com/born-ml/kernelref/internal/backend/cpu"
	"github.com/born-ml/kernelref/internal/tensor"
)

// Tensors maps input or output names to tensors.
type Tensors map[string]*tensor.RawTensor

// Get returns the tensor called name, or ErrMissingInput.
func (t Tensors) Get(name string) (*tensor.RawTensor, error) {
	raw, ok := t[name]
	if !ok || raw == nil {
		return nil, errors.Wrapf(ErrMissingInput, "%q", name)
	}
	return raw, nil
}

// Operation is one named kernel entry point.
type Operation interface {
	// Type returns the operator type name, e.g. "masked_select".
	Type() string

	// Inputs returns the names of the required inputs.
	Inputs() []string

	// Outputs returns the names of the produced outputs.
	Outputs() []string

	// Run validates inputs and attributes and computes all outputs.
	Run(ctx context.Context, in Tensors, attrs Attrs) (Tensors, error)
}

// Backend is the set of kernels the built-in operations dispatch to.
// *cpu.CPUBackend implements it.
type Backend interface {
	MaskedSelect(x, mask *tensor.RawTensor) (*tensor.RawTensor, error)
	MaskedSelectGrad(gradOut, mask *tensor.RawTensor, xShape tensor.Shape) (*tensor.RawTensor, error)
	SoftmaxWithCrossEntropy(logits, label *tensor.RawTensor, attrs cpu.CrossEntropyAttrs) (sm, loss *tensor.RawTensor, err error)
	SoftmaxCrossEntropyGrad(sm, label, gradLoss *tensor.RawTensor, attrs cpu.CrossEntropyAttrs) (*tensor.RawTensor, error)
}

// Builtins returns the four built-in operations bound to backend.
func Builtins(backend Backend) []Operation {
	return []Operation{
		&MaskedSelectOp{backend: backend},
		&MaskedSelectGradOp{backend: backend},
		&SoftmaxWithCrossEntropyOp{backend: backend},
		&SoftmaxWithCrossEntropyGradOp{backend: backend},
	}
}

// gather fetches every named input in order.
func gather(in Tensors, names ...string) ([]*tensor.RawTensor, error) {
	out := make([]*tensor.RawTensor, len(names))
	for i, name := range names {
		raw, err := in.Get(name)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}
