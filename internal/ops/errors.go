package ops

import (
	"context"

	"github.com/pkg/errors"

	"github.com/born-ml/kernelref/internal/tensor"
)

// Dispatch errors. Kernel errors keep their tensor sentinels.
var (
	ErrUnknownOp    = errors.New("unknown operator")
	ErrMissingInput = errors.New("missing input")
	ErrInvalidAttr  = errors.New("invalid attribute")
	ErrDuplicateOp  = errors.New("operator already registered")
)

// Error kinds reported by Kind.
const (
	KindShapeMismatch    = "shape_mismatch"
	KindIndexOutOfRange  = "index_out_of_range"
	KindInvalidAxis      = "invalid_axis"
	KindUnsupportedDType = "unsupported_dtype"
	KindUnknownOp        = "unknown_op"
	KindMissingInput     = "missing_input"
	KindInvalidAttr      = "invalid_attr"
	KindCanceled         = "canceled"
	KindInternal         = "internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{tensor.ErrShapeMismatch, KindShapeMismatch},
	{tensor.ErrIndexOutOfRange, KindIndexOutOfRange},
	{tensor.ErrInvalidAxis, KindInvalidAxis},
	{tensor.ErrUnsupportedDType, KindUnsupportedDType},
	{ErrUnknownOp, KindUnknownOp},
	{ErrMissingInput, KindMissingInput},
	{ErrInvalidAttr, KindInvalidAttr},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindCanceled},
}

// Kind classifies err by the sentinel it wraps. Errors matching no sentinel
// are KindInternal; a nil error has no kind.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
