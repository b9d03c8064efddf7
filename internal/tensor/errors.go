package tensor

import "github.com/pkg/errors"

// Error kinds shared by every kernel. Callers match them with errors.Is;
// the returned errors carry the offending shapes or values as context.
var (
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrInvalidAxis      = errors.New("invalid axis")
	ErrUnsupportedDType = errors.New("unsupported dtype")
)
